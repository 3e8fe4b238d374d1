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

package ledger

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/zeebo/blake3"
)

var (
	ErrGenerateHash       = errors.New("could not create a new hash")
	ErrTransactionMissing = errors.New("could not find transaction ID in database")
)

// transaction kinds
const (
	BuyTransaction              = "BUY"
	ReinvestDividendTransaction = "REINVEST_DIVIDEND"
	TransferInTransaction       = "TRANSFER_IN"
	SplitTransaction            = "SPLIT"
	SellTransaction             = "SELL"
	TransferOutTransaction      = "TRANSFER_OUT"
	DividendTransaction         = "DIVIDEND"
	InterestTransaction         = "INTEREST"
	FeeTransaction              = "FEE"
	TaxWithholdingTransaction   = "TAX_WITHHOLDING"
	AdjustmentTransaction       = "ADJUSTMENT"
	ForexTransaction            = "FOREX"
	DepositTransaction          = "DEPOSIT"
	WithdrawalTransaction       = "WITHDRAWAL"
	OtherTransaction            = "OTHER"
)

// decimal places used when persisting engine output; quantities carry extra
// precision to support fractional crypto units
const (
	CashPrecision     = 2
	QuantityPrecision = 8
)

// Transaction is a single event in the append-only ledger. The economic date
// is carried in Date; insertion time is not tracked here. CostBasisUsed,
// RealizedGainLoss and HoldingPeriodDays are written by the tax-lot engine for
// SELL transactions and are set at most once.
type Transaction struct {
	ID        uuid.UUID
	HoldingID uuid.NullUUID
	AccountID uuid.UUID
	Kind      string
	Ticker    string
	Quantity  decimal.NullDecimal
	Price     decimal.NullDecimal
	Amount    decimal.Decimal
	Fees      decimal.NullDecimal
	Currency  string
	Date      time.Time
	SourceID  string

	CostBasisUsed     decimal.NullDecimal
	RealizedGainLoss  decimal.NullDecimal
	HoldingPeriodDays sql.NullInt64
}

// IsAcquisition reports whether the transaction adds shares to a position
func (t *Transaction) IsAcquisition() bool {
	switch t.Kind {
	case BuyTransaction, ReinvestDividendTransaction, TransferInTransaction, SplitTransaction:
		return true
	}
	return false
}

// IsDisposal reports whether the transaction removes shares from a position
func (t *Transaction) IsDisposal() bool {
	switch t.Kind {
	case SellTransaction, TransferOutTransaction:
		return true
	}
	return false
}

// CreatesLot reports whether the tax-lot engine opens a lot for this
// transaction. TRANSFER_IN and SPLIT change position size but carry no cost
// information of their own, so no lot is opened for them.
func (t *Transaction) CreatesLot() bool {
	switch t.Kind {
	case BuyTransaction, ReinvestDividendTransaction:
		return true
	}
	return false
}

// FeesOrZero returns the transaction fees, defaulting to zero when unset
func (t *Transaction) FeesOrZero() decimal.Decimal {
	if t.Fees.Valid {
		return t.Fees.Decimal
	}
	return decimal.Zero
}

// ComputeSourceID calculates a 16-byte blake3 hash over the identifying fields
// of the transaction; import pipelines use it to de-duplicate re-uploaded
// broker statements
func (t *Transaction) ComputeSourceID() error {
	h := blake3.New()

	d, err := t.Date.UTC().MarshalText()
	if err != nil {
		return err
	}

	if _, err := h.Write(d); err != nil {
		log.Error().Stack().Err(err).Msg("could not write date to blake3 hasher")
		return err
	}

	if _, err := h.Write([]byte(t.AccountID.String())); err != nil {
		log.Error().Stack().Err(err).Msg("could not write account id to blake3 hasher")
		return err
	}

	if _, err := h.Write([]byte(t.Ticker)); err != nil {
		log.Error().Stack().Err(err).Msg("could not write ticker to blake3 hasher")
		return err
	}

	if _, err := h.Write([]byte(t.Kind)); err != nil {
		log.Error().Stack().Err(err).Msg("could not write kind to blake3 hasher")
		return err
	}

	if t.Quantity.Valid {
		if _, err := h.Write([]byte(t.Quantity.Decimal.StringFixed(QuantityPrecision))); err != nil {
			log.Error().Stack().Err(err).Msg("could not write quantity to blake3 hasher")
			return err
		}
	}

	if t.Price.Valid {
		if _, err := h.Write([]byte(t.Price.Decimal.StringFixed(CashPrecision))); err != nil {
			log.Error().Stack().Err(err).Msg("could not write price to blake3 hasher")
			return err
		}
	}

	if _, err := h.Write([]byte(t.Amount.StringFixed(CashPrecision))); err != nil {
		log.Error().Stack().Err(err).Msg("could not write amount to blake3 hasher")
		return err
	}

	digest := h.Digest()
	buf := make([]byte, 16)
	n, err := digest.Read(buf)
	if err != nil {
		return err
	}
	if n != 16 {
		return ErrGenerateHash
	}

	t.SourceID = hex.EncodeToString(buf)
	return nil
}
