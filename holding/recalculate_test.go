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

package holding_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pashagolub/pgxmock"

	"github.com/finfolio/ff-api/database"
	"github.com/finfolio/ff-api/holding"
	"github.com/finfolio/ff-api/ledger"
	"github.com/finfolio/ff-api/pgxmockhelper"
	"github.com/google/uuid"
)

const testUser = "testuser"

var _ = Describe("Recalculate", func() {
	var (
		dbPool    pgxmock.PgxConnIface
		err       error
		ctx       context.Context
		holdingID uuid.UUID
		accountID uuid.UUID
		day0      time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		dbPool, err = pgxmock.NewConn()
		Expect(err).To(BeNil())
		database.SetPool(dbPool)

		holdingID = uuid.New()
		accountID = uuid.New()
		day0 = time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)
	})

	addTransactionRow := func(rows *pgxmock.Rows, kind string, quantity, price interface{}, date time.Time) {
		rows.AddRow(uuid.New().String(), holdingID.String(), accountID.String(),
			kind, "VFINX", quantity, price, "0", nil, "USD", date, nil, nil, nil, nil)
	}

	mockReplay := func(txRows *pgxmock.Rows) {
		holdingRows := pgxmockhelper.NewHoldingRows()
		holdingRows.AddRow(holdingID.String(), accountID.String(), "VFINX", "0", "0", "0")
		pgxmockhelper.MockQuery(dbPool, "FROM holdings", holdingRows)
		pgxmockhelper.MockQuery(dbPool, "FROM transactions", txRows)
		pgxmockhelper.MockExec(dbPool, "UPDATE holdings SET", "UPDATE 1")
	}

	Context("with buys, a sale, and a split", func() {
		It("should rebuild the weighted-average position from zero", func() {
			rows := pgxmockhelper.NewTransactionRows()
			addTransactionRow(rows, ledger.BuyTransaction, "10", "10", day0)
			addTransactionRow(rows, ledger.BuyTransaction, "10", "20", day0.AddDate(0, 0, 10))
			addTransactionRow(rows, ledger.SellTransaction, "5", "30", day0.AddDate(0, 0, 20))
			// the quantity field of a SPLIT carries the ratio
			addTransactionRow(rows, ledger.SplitTransaction, "2", nil, day0.AddDate(0, 0, 30))
			addTransactionRow(rows, ledger.DividendTransaction, nil, nil, day0.AddDate(0, 0, 40))
			mockReplay(rows)

			h, err := holding.Recalculate(ctx, testUser, holdingID)
			Expect(err).To(BeNil())
			Expect(h.Quantity.StringFixed(0)).To(Equal("30"))
			// sale removed cost at the $15 average in effect before it
			Expect(h.CostBasis.StringFixed(2)).To(Equal("225.00"))
			Expect(h.AvgCostPerUnit.StringFixed(2)).To(Equal("7.50"))
			Expect(dbPool.ExpectationsWereMet()).To(BeNil())
		})
	})

	Context("when run twice with an unchanged ledger", func() {
		It("should produce identical results", func() {
			build := func() *pgxmock.Rows {
				rows := pgxmockhelper.NewTransactionRows()
				addTransactionRow(rows, ledger.BuyTransaction, "8", "125.50", day0)
				addTransactionRow(rows, ledger.SellTransaction, "3", "150", day0.AddDate(0, 0, 90))
				return rows
			}

			mockReplay(build())
			first, err := holding.Recalculate(ctx, testUser, holdingID)
			Expect(err).To(BeNil())

			mockReplay(build())
			second, err := holding.Recalculate(ctx, testUser, holdingID)
			Expect(err).To(BeNil())

			Expect(second.Quantity.String()).To(Equal(first.Quantity.String()))
			Expect(second.CostBasis.String()).To(Equal(first.CostBasis.String()))
			Expect(second.AvgCostPerUnit.String()).To(Equal(first.AvgCostPerUnit.String()))
			Expect(dbPool.ExpectationsWereMet()).To(BeNil())
		})
	})

	Context("with disposals exceeding acquisitions", func() {
		It("should clamp the position at zero", func() {
			rows := pgxmockhelper.NewTransactionRows()
			addTransactionRow(rows, ledger.BuyTransaction, "5", "10", day0)
			addTransactionRow(rows, ledger.SellTransaction, "8", "12", day0.AddDate(0, 0, 10))
			mockReplay(rows)

			h, err := holding.Recalculate(ctx, testUser, holdingID)
			Expect(err).To(BeNil())
			Expect(h.Quantity.IsZero()).To(BeTrue())
			Expect(h.CostBasis.IsZero()).To(BeTrue())
			Expect(h.AvgCostPerUnit.IsZero()).To(BeTrue())
			Expect(dbPool.ExpectationsWereMet()).To(BeNil())
		})
	})

	Context("with an unknown holding", func() {
		It("should surface ErrHoldingNotFound", func() {
			pgxmockhelper.MockNoRows(dbPool, "FROM holdings")

			_, err := holding.Recalculate(ctx, testUser, holdingID)
			Expect(err).To(MatchError(holding.ErrHoldingNotFound))
			Expect(dbPool.ExpectationsWereMet()).To(BeNil())
		})
	})
})
