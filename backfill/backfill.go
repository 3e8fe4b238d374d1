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

package backfill

import (
	"context"
	"sort"

	"github.com/finfolio/ff-api/ledger"
	"github.com/finfolio/ff-api/observability/opentelemetry"
	"github.com/finfolio/ff-api/taxlot"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Error records a transaction the backfill could not process
type Error struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	Message       string    `json:"message"`
}

// Result summarizes a backfill run over a portfolio's investment history
type Result struct {
	PortfolioID uuid.UUID `json:"portfolio_id"`
	Processed   int       `json:"processed"`
	LotsCreated int       `json:"lots_created"`
	Consumed    int       `json:"consumed"`
	Skipped     int       `json:"skipped"`
	Years       []int     `json:"years"`
	Errors      []Error   `json:"errors"`
}

func (o *Result) MarshalZerologObject(e *zerolog.Event) {
	e.Str("PortfolioID", o.PortfolioID.String()).
		Int("Processed", o.Processed).
		Int("LotsCreated", o.LotsCreated).
		Int("Consumed", o.Consumed).
		Int("Skipped", o.Skipped).
		Int("NumErrors", len(o.Errors))
}

// Run replays a portfolio's investment transactions through the tax-lot
// engine in chronological order: acquisitions open lots, sales consume them.
// A transaction that fails is recorded in the result and the run continues so
// one bad row cannot block the rest of the history. Lot creation and
// consumption are both idempotent, so re-running a partially failed backfill
// picks up where it left off without double-counting.
func Run(ctx context.Context, userID string, portfolioID uuid.UUID) (*Result, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "backfill.Run")
	defer span.End()

	span.SetAttributes(attribute.String("portfolio_id", portfolioID.String()))

	subLog := log.With().Str("UserID", userID).Str("PortfolioID", portfolioID.String()).Logger()

	transactions, err := ledger.InvestmentForPortfolio(ctx, userID, portfolioID)
	if err != nil {
		return nil, err
	}

	result := &Result{
		PortfolioID: portfolioID,
		Years:       []int{},
		Errors:      []Error{},
	}

	years := make(map[int]struct{})
	for _, t := range transactions {
		result.Processed++
		switch {
		case t.CreatesLot():
			lot, err := taxlot.CreateLot(ctx, userID, t)
			if err != nil {
				subLog.Error().Stack().Err(err).Object("Transaction", t).Msg("backfill could not create tax lot")
				result.Errors = append(result.Errors, Error{TransactionID: t.ID, Message: err.Error()})
				continue
			}
			if lot != nil {
				result.LotsCreated++
			} else {
				result.Skipped++
			}
		case t.Kind == ledger.SellTransaction:
			gain, err := taxlot.ConsumeLots(ctx, userID, t)
			if err != nil {
				subLog.Error().Stack().Err(err).Object("Transaction", t).Msg("backfill could not consume tax lots")
				result.Errors = append(result.Errors, Error{TransactionID: t.ID, Message: err.Error()})
				continue
			}
			if gain != nil {
				result.Consumed++
				years[t.Date.Year()] = struct{}{}
			} else {
				result.Skipped++
			}
		default:
			// transfers and splits carry no lot semantics yet
			result.Skipped++
		}
	}

	// tax years whose realized gains were (re)written; callers use this to
	// invalidate cached summaries
	for year := range years {
		result.Years = append(result.Years, year)
	}
	sort.Ints(result.Years)

	subLog.Info().Object("Result", result).Msg("completed tax-lot backfill")
	return result, nil
}
