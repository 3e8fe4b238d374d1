// Copyright 2025-2026
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gains_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pashagolub/pgxmock"

	"github.com/finfolio/ff-api/database"
	"github.com/finfolio/ff-api/gains"
	"github.com/finfolio/ff-api/ledger"
	"github.com/finfolio/ff-api/pgxmockhelper"
	"github.com/google/uuid"
)

const testUser = "testuser"

var _ = Describe("Summarize", func() {
	var (
		dbPool      pgxmock.PgxConnIface
		err         error
		ctx         context.Context
		portfolioID uuid.UUID
		accountID   uuid.UUID
	)

	BeforeEach(func() {
		ctx = context.Background()
		dbPool, err = pgxmock.NewConn()
		Expect(err).To(BeNil())
		database.SetPool(dbPool)

		// a fresh portfolio per spec keeps cached summaries from leaking
		// between tests
		portfolioID = uuid.New()
		accountID = uuid.New()
	})

	addSellRow := func(rows *pgxmock.Rows, gainLoss string, holdingPeriodDays int64, date time.Time) {
		rows.AddRow(uuid.New().String(), uuid.New().String(), accountID.String(),
			ledger.SellTransaction, "VFINX", "10", "100", "1000", nil, "USD",
			date, nil, "900", gainLoss, holdingPeriodDays)
	}

	Context("with sales on both sides of the long-term boundary", func() {
		It("should classify 364 days as short-term and 365 as long-term", func() {
			rows := pgxmockhelper.NewTransactionRows()
			addSellRow(rows, "100", 364, time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC))
			addSellRow(rows, "200", 365, time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC))
			addSellRow(rows, "-50", 488, time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC))
			pgxmockhelper.MockQuery(dbPool, "FROM transactions", rows)

			summary, err := gains.Summarize(ctx, testUser, portfolioID, 2025)
			Expect(err).To(BeNil())
			Expect(summary.Year).To(Equal(2025))
			Expect(summary.ShortTerm.StringFixed(2)).To(Equal("100.00"))
			Expect(summary.LongTerm.StringFixed(2)).To(Equal("150.00"))
			Expect(summary.Total.StringFixed(2)).To(Equal("250.00"))
			Expect(summary.Transactions).To(HaveLen(3))
			Expect(dbPool.ExpectationsWereMet()).To(BeNil())
		})
	})

	Context("with no realized sales in the year", func() {
		It("should return zero buckets", func() {
			pgxmockhelper.MockQuery(dbPool, "FROM transactions", pgxmockhelper.NewTransactionRows())

			summary, err := gains.Summarize(ctx, testUser, portfolioID, 2024)
			Expect(err).To(BeNil())
			Expect(summary.ShortTerm.IsZero()).To(BeTrue())
			Expect(summary.LongTerm.IsZero()).To(BeTrue())
			Expect(summary.Total.IsZero()).To(BeTrue())
			Expect(summary.Transactions).To(BeEmpty())
			Expect(dbPool.ExpectationsWereMet()).To(BeNil())
		})
	})

	Context("when called twice for the same portfolio and year", func() {
		It("should serve the second call from cache", func() {
			rows := pgxmockhelper.NewTransactionRows()
			addSellRow(rows, "75", 30, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC))
			pgxmockhelper.MockQuery(dbPool, "FROM transactions", rows)

			first, err := gains.Summarize(ctx, testUser, portfolioID, 2025)
			Expect(err).To(BeNil())

			second, err := gains.Summarize(ctx, testUser, portfolioID, 2025)
			Expect(err).To(BeNil())
			Expect(second.Total.String()).To(Equal(first.Total.String()))

			// only one database round trip was mocked
			Expect(dbPool.ExpectationsWereMet()).To(BeNil())
		})

		It("should recompute after invalidation", func() {
			rows := pgxmockhelper.NewTransactionRows()
			addSellRow(rows, "75", 30, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC))
			pgxmockhelper.MockQuery(dbPool, "FROM transactions", rows)

			_, err := gains.Summarize(ctx, testUser, portfolioID, 2025)
			Expect(err).To(BeNil())

			gains.Invalidate(testUser, portfolioID, 2025)

			rows = pgxmockhelper.NewTransactionRows()
			addSellRow(rows, "125", 30, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC))
			pgxmockhelper.MockQuery(dbPool, "FROM transactions", rows)

			summary, err := gains.Summarize(ctx, testUser, portfolioID, 2025)
			Expect(err).To(BeNil())
			Expect(summary.Total.StringFixed(2)).To(Equal("125.00"))
			Expect(dbPool.ExpectationsWereMet()).To(BeNil())
		})
	})
})
