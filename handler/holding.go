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
	"errors"

	"github.com/finfolio/ff-api/holding"
	"github.com/finfolio/ff-api/observability/opentelemetry"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
)

// GetHolding returns a holding's derived position
func GetHolding(c *fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	holdingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		log.Warn().Stack().Err(err).Str("HoldingID", c.Params("id")).Msg("invalid holding id")
		return fiber.ErrBadRequest
	}

	h, err := holding.Get(c.Context(), userID, holdingID)
	if err != nil {
		if errors.Is(err, holding.ErrHoldingNotFound) {
			return fiber.ErrNotFound
		}
		log.Error().Stack().Err(err).Str("HoldingID", holdingID.String()).Msg("could not load holding")
		return fiber.ErrInternalServerError
	}

	return c.JSON(h)
}

// RecalculateHolding replays the holding's ledger and overwrites its derived
// quantity and cost basis
func RecalculateHolding(c *fiber.Ctx) error {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(c.Context(), "handler.RecalculateHolding")
	defer span.End()
	span.SetAttributes(opentelemetry.SpanAttributesFromFiber(c)...)

	userID := c.Locals("userID").(string)

	holdingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		log.Warn().Stack().Err(err).Str("HoldingID", c.Params("id")).Msg("invalid holding id")
		return fiber.ErrBadRequest
	}

	h, err := holding.Recalculate(ctx, userID, holdingID)
	if err != nil {
		if errors.Is(err, holding.ErrHoldingNotFound) {
			return fiber.ErrNotFound
		}
		log.Error().Stack().Err(err).Str("HoldingID", holdingID.String()).Msg("could not recalculate holding")
		return fiber.ErrInternalServerError
	}

	return c.JSON(h)
}
