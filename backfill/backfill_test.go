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

package backfill_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pashagolub/pgxmock"

	"github.com/finfolio/ff-api/backfill"
	"github.com/finfolio/ff-api/database"
	"github.com/finfolio/ff-api/ledger"
	"github.com/finfolio/ff-api/pgxmockhelper"
	"github.com/google/uuid"
)

const testUser = "testuser"

var _ = Describe("Run", func() {
	var (
		dbPool      pgxmock.PgxConnIface
		err         error
		ctx         context.Context
		portfolioID uuid.UUID
		accountID   uuid.UUID
		holdingID   uuid.UUID
		day0        time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		dbPool, err = pgxmock.NewConn()
		Expect(err).To(BeNil())
		database.SetPool(dbPool)

		portfolioID = uuid.New()
		accountID = uuid.New()
		holdingID = uuid.New()
		day0 = time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)
	})

	addTransactionRow := func(rows *pgxmock.Rows, id uuid.UUID, kind, quantity, price string, date time.Time) {
		rows.AddRow(id.String(), holdingID.String(), accountID.String(),
			kind, "VFINX", quantity, price, "0", nil, "USD", date, nil, nil, nil, nil)
	}

	Context("with a buy followed by a sell", func() {
		It("should open a lot and consume it", func() {
			buyID := uuid.New()
			sellID := uuid.New()

			rows := pgxmockhelper.NewTransactionRows()
			addTransactionRow(rows, buyID, ledger.BuyTransaction, "10", "10", day0)
			addTransactionRow(rows, sellID, ledger.SellTransaction, "4", "15", day0.AddDate(0, 0, 100))
			pgxmockhelper.MockQuery(dbPool, "FROM transactions", rows)

			// BUY: no existing lot, insert a new one
			pgxmockhelper.MockNoRows(dbPool, "FROM tax_lots WHERE transaction_id")
			pgxmockhelper.MockExec(dbPool, "INSERT INTO tax_lots", "INSERT 0 1")

			// SELL: consume from the open lot
			lotID := uuid.New()
			lotRows := pgxmockhelper.NewLotRows()
			lotRows.AddRow(lotID.String(), holdingID.String(), buyID.String(),
				"10", "10", "100", "10", day0)
			pgxmockhelper.MockQuery(dbPool, "FROM tax_lots", lotRows)
			pgxmockhelper.MockExecArgs(dbPool, "UPDATE tax_lots SET remaining",
				"UPDATE 1", lotID, "6")
			pgxmockhelper.MockExec(dbPool, "UPDATE transactions SET cost_basis_used", "UPDATE 1")

			result, err := backfill.Run(ctx, testUser, portfolioID)
			Expect(err).To(BeNil())
			Expect(result.Processed).To(Equal(2))
			Expect(result.LotsCreated).To(Equal(1))
			Expect(result.Consumed).To(Equal(1))
			Expect(result.Skipped).To(Equal(0))
			Expect(result.Errors).To(BeEmpty())
			Expect(result.Years).To(Equal([]int{2024}))
			Expect(dbPool.ExpectationsWereMet()).To(BeNil())
		})
	})

	Context("with a failing transaction in the middle", func() {
		It("should record the error and keep processing", func() {
			badBuyID := uuid.New()
			goodBuyID := uuid.New()

			rows := pgxmockhelper.NewTransactionRows()
			addTransactionRow(rows, badBuyID, ledger.BuyTransaction, "10", "10", day0)
			addTransactionRow(rows, goodBuyID, ledger.BuyTransaction, "5", "20", day0.AddDate(0, 0, 1))
			pgxmockhelper.MockQuery(dbPool, "FROM transactions", rows)

			// first BUY fails looking up its lot
			pgxmockhelper.MockQueryError(dbPool, "FROM tax_lots WHERE transaction_id",
				errors.New("connection reset"))

			// second BUY succeeds
			pgxmockhelper.MockNoRows(dbPool, "FROM tax_lots WHERE transaction_id")
			pgxmockhelper.MockExec(dbPool, "INSERT INTO tax_lots", "INSERT 0 1")

			result, err := backfill.Run(ctx, testUser, portfolioID)
			Expect(err).To(BeNil())
			Expect(result.Processed).To(Equal(2))
			Expect(result.LotsCreated).To(Equal(1))
			Expect(result.Errors).To(HaveLen(1))
			Expect(result.Errors[0].TransactionID).To(Equal(badBuyID))
			Expect(result.Errors[0].Message).To(ContainSubstring("connection reset"))
			Expect(dbPool.ExpectationsWereMet()).To(BeNil())
		})
	})

	Context("when re-run over already processed history", func() {
		It("should not create or consume anything twice", func() {
			buyID := uuid.New()
			sellID := uuid.New()

			rows := pgxmockhelper.NewTransactionRows()
			addTransactionRow(rows, buyID, ledger.BuyTransaction, "10", "10", day0)
			// the sell already carries engine-written tax fields
			rows.AddRow(sellID.String(), holdingID.String(), accountID.String(),
				ledger.SellTransaction, "VFINX", "4", "15", "0", nil, "USD",
				day0.AddDate(0, 0, 100), nil, "40", "20", int64(100))
			pgxmockhelper.MockQuery(dbPool, "FROM transactions", rows)

			// BUY: lot already exists, nothing inserted
			lotRows := pgxmockhelper.NewLotRows()
			lotRows.AddRow(uuid.New().String(), holdingID.String(), buyID.String(),
				"10", "6", "100", "10", day0)
			pgxmockhelper.MockQuery(dbPool, "FROM tax_lots WHERE transaction_id", lotRows)

			// SELL: short-circuits on the recorded gain; no lot queries at all

			result, err := backfill.Run(ctx, testUser, portfolioID)
			Expect(err).To(BeNil())
			Expect(result.LotsCreated).To(Equal(1))
			Expect(result.Consumed).To(Equal(1))
			Expect(result.Errors).To(BeEmpty())
			Expect(dbPool.ExpectationsWereMet()).To(BeNil())
		})
	})

	Context("with transactions that carry no lot semantics", func() {
		It("should skip transfers and splits", func() {
			rows := pgxmockhelper.NewTransactionRows()
			addTransactionRow(rows, uuid.New(), ledger.TransferInTransaction, "10", "10", day0)
			addTransactionRow(rows, uuid.New(), ledger.SplitTransaction, "2", "0", day0.AddDate(0, 0, 1))
			pgxmockhelper.MockQuery(dbPool, "FROM transactions", rows)

			result, err := backfill.Run(ctx, testUser, portfolioID)
			Expect(err).To(BeNil())
			Expect(result.Processed).To(Equal(2))
			Expect(result.Skipped).To(Equal(2))
			Expect(result.LotsCreated).To(Equal(0))
			Expect(result.Consumed).To(Equal(0))
			Expect(dbPool.ExpectationsWereMet()).To(BeNil())
		})
	})
})
