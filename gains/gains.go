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

package gains

import (
	"context"
	"fmt"
	"time"

	"github.com/finfolio/ff-api/common"
	"github.com/finfolio/ff-api/ledger"
	"github.com/finfolio/ff-api/observability/opentelemetry"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// LongTermThresholdDays is the holding period at which a realized gain
// becomes long-term. A sale held exactly this many days is long-term.
const LongTermThresholdDays = 365

// Summary groups the realized gains of a portfolio's tax year into short-term
// and long-term buckets. The per-transaction figures written by the tax-lot
// engine are the source of truth; sums are never re-derived from lots here.
type Summary struct {
	PortfolioID  uuid.UUID             `json:"portfolio_id"`
	Year         int                   `json:"year"`
	ShortTerm    decimal.Decimal       `json:"short_term"`
	LongTerm     decimal.Decimal       `json:"long_term"`
	Total        decimal.Decimal       `json:"total"`
	Transactions []*ledger.Transaction `json:"transactions"`
}

func cacheKey(userID string, portfolioID uuid.UUID, year int) string {
	return fmt.Sprintf("gains:%s:%s:%d", userID, portfolioID.String(), year)
}

// Summarize computes the realized-gain summary of a portfolio for a tax
// year. Only SELL transactions whose realized gain has been computed by the
// tax-lot engine contribute. Summaries are cached; cached entries expire via
// the shared cache TTL.
func Summarize(ctx context.Context, userID string, portfolioID uuid.UUID, year int) (*Summary, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "gains.Summarize")
	defer span.End()

	span.SetAttributes(
		attribute.String("portfolio_id", portfolioID.String()),
		attribute.Int("year", year),
	)

	subLog := log.With().Str("UserID", userID).Str("PortfolioID", portfolioID.String()).Int("Year", year).Logger()

	key := cacheKey(userID, portfolioID, year)
	if raw, err := common.CacheGet(key); err == nil && len(raw) > 0 {
		summary := &Summary{}
		if err := json.Unmarshal(raw, summary); err == nil {
			subLog.Debug().Msg("realized-gain summary served from cache")
			return summary, nil
		}
		subLog.Warn().Err(err).Msg("could not unmarshal cached summary; recomputing")
	}

	tz := common.GetTimezone()
	begin := time.Date(year, time.January, 1, 0, 0, 0, 0, tz)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, tz)

	sells, err := ledger.RealizedSellsForPortfolio(ctx, userID, portfolioID, begin, end)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		PortfolioID:  portfolioID,
		Year:         year,
		ShortTerm:    decimal.Zero,
		LongTerm:     decimal.Zero,
		Total:        decimal.Zero,
		Transactions: sells,
	}

	for _, t := range sells {
		gain := t.RealizedGainLoss.Decimal
		if t.HoldingPeriodDays.Valid && t.HoldingPeriodDays.Int64 >= LongTermThresholdDays {
			summary.LongTerm = summary.LongTerm.Add(gain)
		} else {
			summary.ShortTerm = summary.ShortTerm.Add(gain)
		}
		summary.Total = summary.Total.Add(gain)
	}

	if raw, err := json.Marshal(summary); err == nil {
		if err := common.CacheSet(key, raw); err != nil {
			subLog.Warn().Err(err).Msg("could not cache realized-gain summary")
		}
	}

	subLog.Debug().
		Int("NumTransactions", len(sells)).
		Str("ShortTerm", summary.ShortTerm.String()).
		Str("LongTerm", summary.LongTerm.String()).
		Msg("summarized realized gains")

	return summary, nil
}

// Invalidate drops the cached summary for a portfolio's tax year; the
// backfill orchestrator calls this after rewriting realized gains
func Invalidate(userID string, portfolioID uuid.UUID, years ...int) {
	for _, year := range years {
		common.CacheInvalidate(cacheKey(userID, portfolioID, year))
	}
}
