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
	"context"
	"time"

	"github.com/finfolio/ff-api/database"
	"github.com/google/uuid"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// transactionColumns is the column list shared by every transaction query;
// numeric columns are cast to text so values round-trip losslessly into
// decimals
const transactionColumns = `
	id,
	holding_id,
	account_id,
	transaction_type,
	ticker,
	quantity::text,
	price::text,
	amount::text,
	fees::text,
	currency,
	event_date,
	encode(source_id, 'hex'),
	cost_basis_used::text,
	realized_gain_loss::text,
	holding_period_days`

func scanTransaction(rows pgx.Rows) (*Transaction, error) {
	t := &Transaction{}

	var quantity pgtype.Text
	var price pgtype.Text
	var amount pgtype.Text
	var fees pgtype.Text
	var sourceID pgtype.Text
	var costBasisUsed pgtype.Text
	var realizedGainLoss pgtype.Text

	err := rows.Scan(&t.ID, &t.HoldingID, &t.AccountID, &t.Kind, &t.Ticker,
		&quantity, &price, &amount, &fees, &t.Currency, &t.Date, &sourceID,
		&costBasisUsed, &realizedGainLoss, &t.HoldingPeriodDays)
	if err != nil {
		return nil, err
	}

	if t.Quantity, err = nullDecimalFromText(quantity); err != nil {
		return nil, err
	}
	if t.Price, err = nullDecimalFromText(price); err != nil {
		return nil, err
	}
	if t.Fees, err = nullDecimalFromText(fees); err != nil {
		return nil, err
	}
	if t.CostBasisUsed, err = nullDecimalFromText(costBasisUsed); err != nil {
		return nil, err
	}
	if t.RealizedGainLoss, err = nullDecimalFromText(realizedGainLoss); err != nil {
		return nil, err
	}

	if amount.Status == pgtype.Present {
		if t.Amount, err = decimal.NewFromString(amount.String); err != nil {
			return nil, err
		}
	}
	if sourceID.Status == pgtype.Present {
		t.SourceID = sourceID.String
	}

	return t, nil
}

func nullDecimalFromText(v pgtype.Text) (decimal.NullDecimal, error) {
	if v.Status != pgtype.Present {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(v.String)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}

func nullDecimalArg(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}

func queryTransactions(ctx context.Context, userID string, sql string, args ...interface{}) ([]*Transaction, error) {
	subLog := log.With().Str("UserID", userID).Logger()

	trx, err := database.TrxForUser(ctx, userID)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("unable to get database transaction object")
		return nil, err
	}

	rows, err := trx.Query(ctx, sql, args...)
	if err != nil {
		subLog.Error().Stack().Err(err).Str("Query", sql).Msg("could not load transactions from database")
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return nil, err
	}

	transactions := make([]*Transaction, 0, 1000)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			subLog.Warn().Stack().Err(err).Str("Query", sql).Msg("failed scanning row into transaction fields")
			if err := trx.Rollback(ctx); err != nil {
				subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
			}
			return nil, err
		}
		transactions = append(transactions, t)
	}

	if err := rows.Err(); err != nil {
		subLog.Warn().Stack().Err(err).Str("Query", sql).Msg("transaction query read failed")
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return nil, err
	}

	if err := trx.Commit(ctx); err != nil {
		subLog.Error().Stack().Err(err).Msg("could not commit transaction to database")
	}

	return transactions, nil
}

// ForHolding loads every transaction of a holding in ascending economic-date
// order; ties are broken by id so replays are deterministic
func ForHolding(ctx context.Context, userID string, holdingID uuid.UUID) ([]*Transaction, error) {
	transactionSQL := `SELECT` + transactionColumns + `
	FROM transactions
	WHERE holding_id=$1
	ORDER BY event_date, id`
	return queryTransactions(ctx, userID, transactionSQL, holdingID)
}

// InvestmentForPortfolio loads the acquisition and disposal transactions of
// every holding in the portfolio, in ascending economic-date order. This is
// the replay feed of the backfill orchestrator.
func InvestmentForPortfolio(ctx context.Context, userID string, portfolioID uuid.UUID) ([]*Transaction, error) {
	transactionSQL := `SELECT` + transactionColumns + `
	FROM transactions
	WHERE account_id IN (SELECT id FROM accounts WHERE portfolio_id=$1)
		AND holding_id IS NOT NULL
		AND transaction_type = ANY($2)
	ORDER BY event_date, id`
	kinds := []string{
		BuyTransaction, ReinvestDividendTransaction, TransferInTransaction,
		SplitTransaction, SellTransaction, TransferOutTransaction,
	}
	return queryTransactions(ctx, userID, transactionSQL, portfolioID, kinds)
}

// RealizedSellsForPortfolio loads SELL transactions inside the date range
// whose realized gain has been computed by the tax-lot engine
func RealizedSellsForPortfolio(ctx context.Context, userID string, portfolioID uuid.UUID, begin, end time.Time) ([]*Transaction, error) {
	transactionSQL := `SELECT` + transactionColumns + `
	FROM transactions
	WHERE account_id IN (SELECT id FROM accounts WHERE portfolio_id=$1)
		AND transaction_type=$2
		AND realized_gain_loss IS NOT NULL
		AND event_date >= $3 AND event_date <= $4
	ORDER BY event_date, id`
	return queryTransactions(ctx, userID, transactionSQL, portfolioID, SellTransaction, begin, end)
}

// Append writes a new transaction to the ledger. The ledger is append-only;
// existing rows are never modified through this path.
func Append(ctx context.Context, userID string, t *Transaction) error {
	subLog := log.With().Str("UserID", userID).Str("TransactionID", t.ID.String()).Logger()

	if t.SourceID == "" {
		if err := t.ComputeSourceID(); err != nil {
			subLog.Warn().Stack().Err(err).Msg("couldn't compute SourceID for transaction")
		}
	}

	trx, err := database.TrxForUser(ctx, userID)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("unable to get database transaction object")
		return err
	}

	transactionSQL := `
	INSERT INTO transactions (
		"id",
		"holding_id",
		"account_id",
		"transaction_type",
		"ticker",
		"quantity",
		"price",
		"amount",
		"fees",
		"currency",
		"event_date",
		"source_id",
		"user_id"
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, decode($12, 'hex'), $13
	)`
	_, err = trx.Exec(ctx, transactionSQL,
		t.ID,                        // 1
		t.HoldingID,                 // 2
		t.AccountID,                 // 3
		t.Kind,                      // 4
		t.Ticker,                    // 5
		nullDecimalArg(t.Quantity),  // 6
		nullDecimalArg(t.Price),     // 7
		t.Amount.String(),           // 8
		nullDecimalArg(t.Fees),      // 9
		t.Currency,                  // 10
		t.Date,                      // 11
		t.SourceID,                  // 12
		userID,                      // 13
	)
	if err != nil {
		subLog.Warn().Stack().Err(err).Object("Transaction", t).Msg("failed to save transaction")
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return err
	}

	if err := trx.Commit(ctx); err != nil {
		subLog.Error().Stack().Err(err).Msg("failed to commit ledger transaction")
		return err
	}

	return nil
}

// SaveTaxFields persists the engine-written subset of a SELL transaction:
// cost basis used, realized gain/loss, and average holding period. These are
// derived solely from lot consumption at the time of the sale and are not
// mutated again afterwards.
func SaveTaxFields(ctx context.Context, userID string, t *Transaction) error {
	subLog := log.With().Str("UserID", userID).Str("TransactionID", t.ID.String()).Logger()

	trx, err := database.TrxForUser(ctx, userID)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("unable to get database transaction object")
		return err
	}

	updateSQL := `UPDATE transactions SET cost_basis_used=$2, realized_gain_loss=$3, holding_period_days=$4 WHERE id=$1`
	tag, err := trx.Exec(ctx, updateSQL, t.ID,
		nullDecimalArg(t.CostBasisUsed),
		nullDecimalArg(t.RealizedGainLoss),
		t.HoldingPeriodDays)
	if err != nil {
		subLog.Error().Stack().Err(err).Str("Query", updateSQL).Msg("could not update transaction tax fields")
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return err
	}

	if tag.RowsAffected() == 0 {
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return ErrTransactionMissing
	}

	if err := trx.Commit(ctx); err != nil {
		subLog.Error().Stack().Err(err).Msg("failed to commit ledger transaction")
		return err
	}

	return nil
}
