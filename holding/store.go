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

package holding

import (
	"context"
	"errors"

	"github.com/finfolio/ff-api/database"
	"github.com/google/uuid"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Get loads a holding by id
func Get(ctx context.Context, userID string, holdingID uuid.UUID) (*Holding, error) {
	subLog := log.With().Str("UserID", userID).Str("HoldingID", holdingID.String()).Logger()

	trx, err := database.TrxForUser(ctx, userID)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("unable to get database transaction object")
		return nil, err
	}

	holdingSQL := `SELECT
		id,
		account_id,
		ticker,
		quantity::text,
		cost_basis::text,
		avg_cost_per_unit::text
	FROM holdings
	WHERE id=$1`

	h := &Holding{}
	var quantity pgtype.Text
	var costBasis pgtype.Text
	var avgCost pgtype.Text

	err = trx.QueryRow(ctx, holdingSQL, holdingID).Scan(&h.ID, &h.AccountID,
		&h.Ticker, &quantity, &costBasis, &avgCost)
	if err != nil {
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrHoldingNotFound
		}
		subLog.Error().Stack().Err(err).Str("Query", holdingSQL).Msg("could not load holding from database")
		return nil, err
	}

	if h.Quantity, err = decimal.NewFromString(quantity.String); err != nil {
		return nil, err
	}
	if h.CostBasis, err = decimal.NewFromString(costBasis.String); err != nil {
		return nil, err
	}
	if h.AvgCostPerUnit, err = decimal.NewFromString(avgCost.String); err != nil {
		return nil, err
	}

	if err := trx.Commit(ctx); err != nil {
		subLog.Error().Stack().Err(err).Msg("could not commit transaction to database")
	}

	return h, nil
}

// IDs returns the ids of every holding visible to the user; the nightly
// recalculation schedule iterates this list
func IDs(ctx context.Context, userID string) ([]uuid.UUID, error) {
	subLog := log.With().Str("UserID", userID).Logger()

	trx, err := database.TrxForUser(ctx, userID)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("unable to get database transaction object")
		return nil, err
	}

	idSQL := `SELECT id FROM holdings ORDER BY id`
	rows, err := trx.Query(ctx, idSQL)
	if err != nil {
		subLog.Error().Stack().Err(err).Str("Query", idSQL).Msg("could not load holding ids from database")
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return nil, err
	}

	ids := make([]uuid.UUID, 0, 100)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			subLog.Warn().Stack().Err(err).Msg("holding id scan failed")
			continue
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		subLog.Warn().Stack().Err(err).Str("Query", idSQL).Msg("holding id query read failed")
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return nil, err
	}

	if err := trx.Commit(ctx); err != nil {
		subLog.Error().Stack().Err(err).Msg("could not commit transaction to database")
	}

	return ids, nil
}

// save overwrites the derived fields of the holding wholesale; the row is
// never patched incrementally so repeated recalculation cannot double-count
func save(ctx context.Context, userID string, h *Holding) error {
	subLog := log.With().Str("UserID", userID).Object("Holding", h).Logger()

	trx, err := database.TrxForUser(ctx, userID)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("unable to get database transaction object")
		return err
	}

	updateSQL := `UPDATE holdings SET quantity=$2, cost_basis=$3, avg_cost_per_unit=$4 WHERE id=$1`
	tag, err := trx.Exec(ctx, updateSQL, h.ID,
		h.Quantity.String(),
		h.CostBasis.String(),
		h.AvgCostPerUnit.String())
	if err != nil {
		subLog.Error().Stack().Err(err).Str("Query", updateSQL).Msg("could not update holding")
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return err
	}

	if tag.RowsAffected() == 0 {
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return ErrHoldingNotFound
	}

	if err := trx.Commit(ctx); err != nil {
		subLog.Error().Stack().Err(err).Msg("failed to commit holding update")
		return err
	}

	return nil
}
