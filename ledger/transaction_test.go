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

package ledger_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pashagolub/pgxmock"
	"github.com/shopspring/decimal"

	"github.com/finfolio/ff-api/database"
	"github.com/finfolio/ff-api/ledger"
	"github.com/finfolio/ff-api/pgxmockhelper"
	"github.com/google/uuid"
)

func dec(v string) decimal.NullDecimal {
	d, err := decimal.NewFromString(v)
	Expect(err).To(BeNil())
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

var _ = Describe("Transaction", func() {
	var trx *ledger.Transaction

	BeforeEach(func() {
		trx = &ledger.Transaction{
			ID:        uuid.New(),
			AccountID: uuid.New(),
			Kind:      ledger.BuyTransaction,
			Ticker:    "VFINX",
			Quantity:  dec("10"),
			Price:     dec("175.50"),
			Amount:    decimal.NewFromInt(-1755),
			Currency:  "USD",
			Date:      time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
		}
	})

	Describe("kind predicates", func() {
		It("should open lots only for purchases and dividend reinvestments", func() {
			lotKinds := map[string]bool{
				ledger.BuyTransaction:              true,
				ledger.ReinvestDividendTransaction: true,
			}
			all := []string{
				ledger.BuyTransaction, ledger.ReinvestDividendTransaction,
				ledger.TransferInTransaction, ledger.SplitTransaction,
				ledger.SellTransaction, ledger.TransferOutTransaction,
				ledger.DividendTransaction, ledger.InterestTransaction,
				ledger.FeeTransaction, ledger.DepositTransaction,
			}
			for _, kind := range all {
				trx.Kind = kind
				Expect(trx.CreatesLot()).To(Equal(lotKinds[kind]), kind)
			}
		})

		It("should classify disposals", func() {
			trx.Kind = ledger.SellTransaction
			Expect(trx.IsDisposal()).To(BeTrue())
			trx.Kind = ledger.TransferOutTransaction
			Expect(trx.IsDisposal()).To(BeTrue())
			trx.Kind = ledger.BuyTransaction
			Expect(trx.IsDisposal()).To(BeFalse())
		})
	})

	Describe("FeesOrZero", func() {
		It("should default missing fees to zero", func() {
			Expect(trx.FeesOrZero().IsZero()).To(BeTrue())
			trx.Fees = dec("4.95")
			Expect(trx.FeesOrZero().StringFixed(2)).To(Equal("4.95"))
		})
	})

	Describe("ComputeSourceID", func() {
		It("should be deterministic for identical transactions", func() {
			other := *trx
			Expect(trx.ComputeSourceID()).To(Succeed())
			Expect(other.ComputeSourceID()).To(Succeed())
			Expect(trx.SourceID).To(HaveLen(32))
			Expect(other.SourceID).To(Equal(trx.SourceID))
		})

		It("should change when an identifying field changes", func() {
			Expect(trx.ComputeSourceID()).To(Succeed())
			first := trx.SourceID

			trx.Quantity = dec("11")
			Expect(trx.ComputeSourceID()).To(Succeed())
			Expect(trx.SourceID).NotTo(Equal(first))
		})
	})
})

var _ = Describe("Append", func() {
	var (
		dbPool pgxmock.PgxConnIface
		err    error
	)

	BeforeEach(func() {
		dbPool, err = pgxmock.NewConn()
		Expect(err).To(BeNil())
		database.SetPool(dbPool)
	})

	It("should compute a source id and insert the row", func() {
		trx := &ledger.Transaction{
			ID:        uuid.New(),
			AccountID: uuid.New(),
			Kind:      ledger.DepositTransaction,
			Amount:    decimal.NewFromInt(5000),
			Currency:  "USD",
			Date:      time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
		}

		pgxmockhelper.MockExec(dbPool, "INSERT INTO transactions", "INSERT 0 1")

		Expect(ledger.Append(context.Background(), "testuser", trx)).To(Succeed())
		Expect(trx.SourceID).To(HaveLen(32))
		Expect(dbPool.ExpectationsWereMet()).To(BeNil())
	})
})
