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

package cmd

import (
	"context"

	"github.com/finfolio/ff-api/database"
	"github.com/finfolio/ff-api/holding"
	"github.com/rs/zerolog/log"
)

// recalculateAllHoldings rebuilds the derived position of every holding of
// every user; the nightly schedule runs this after market close
func recalculateAllHoldings() {
	ctx := context.Background()

	users, err := database.GetUsers(ctx)
	if err != nil {
		log.Error().Stack().Err(err).Msg("could not load users from database")
		return
	}

	for _, userID := range users {
		subLog := log.With().Str("UserID", userID).Logger()

		ids, err := holding.IDs(ctx, userID)
		if err != nil {
			subLog.Error().Stack().Err(err).Msg("could not list holdings for user")
			continue
		}

		for _, holdingID := range ids {
			if _, err := holding.Recalculate(ctx, userID, holdingID); err != nil {
				subLog.Error().Stack().Err(err).Str("HoldingID", holdingID.String()).Msg("could not recalculate holding")
			}
		}

		subLog.Info().Int("NumHoldings", len(ids)).Msg("recalculated holdings for user")
	}
}
