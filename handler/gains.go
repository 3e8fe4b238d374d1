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

package handler

import (
	"strconv"
	"time"

	"github.com/finfolio/ff-api/gains"
	"github.com/finfolio/ff-api/observability/opentelemetry"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
)

// GetRealizedGains returns the short-term/long-term realized gain summary for
// a portfolio's tax year. The year defaults to the current year.
func GetRealizedGains(c *fiber.Ctx) error {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(c.Context(), "handler.GetRealizedGains")
	defer span.End()
	span.SetAttributes(opentelemetry.SpanAttributesFromFiber(c)...)

	userID := c.Locals("userID").(string)

	portfolioID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		log.Warn().Stack().Err(err).Str("PortfolioID", c.Params("id")).Msg("invalid portfolio id")
		return fiber.ErrBadRequest
	}

	yearStr := c.Query("year", strconv.Itoa(time.Now().Year()))
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		log.Warn().Stack().Err(err).Str("Year", yearStr).Msg("invalid year query parameter")
		return fiber.ErrBadRequest
	}

	summary, err := gains.Summarize(ctx, userID, portfolioID, year)
	if err != nil {
		log.Error().Stack().Err(err).Str("PortfolioID", portfolioID.String()).Int("Year", year).Msg("could not summarize realized gains")
		return fiber.ErrInternalServerError
	}

	return c.JSON(summary)
}
