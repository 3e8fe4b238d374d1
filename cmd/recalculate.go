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

	"github.com/finfolio/ff-api/common"
	"github.com/finfolio/ff-api/database"
	"github.com/finfolio/ff-api/holding"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var recalculateCmdUser string

func init() {
	recalculateCmd.Flags().StringVarP(&recalculateCmdUser, "user", "u", "", "User the holdings belong to")
	recalculateCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(recalculateCmd)
}

var recalculateCmd = &cobra.Command{
	Use:   "recalculate [holdingID...]",
	Short: "Rebuild derived holding positions from the ledger",
	Long: `Replay the transaction ledger and overwrite the derived quantity, cost
basis, and average cost of the named holdings. With no arguments every holding
of the user is recalculated.`,
	Run: func(cmd *cobra.Command, args []string) {
		common.SetupLogging()
		ctx := context.Background()

		if err := database.Connect(ctx); err != nil {
			log.Fatal().Err(err).Msg("could not connect to database")
		}

		ids := make([]uuid.UUID, 0, len(args))
		for _, arg := range args {
			holdingID, err := uuid.Parse(arg)
			if err != nil {
				log.Fatal().Err(err).Str("HoldingID", arg).Msg("invalid holding id")
			}
			ids = append(ids, holdingID)
		}

		if len(ids) == 0 {
			var err error
			if ids, err = holding.IDs(ctx, recalculateCmdUser); err != nil {
				log.Fatal().Err(err).Msg("could not list holdings for user")
			}
		}

		for _, holdingID := range ids {
			h, err := holding.Recalculate(ctx, recalculateCmdUser, holdingID)
			if err != nil {
				log.Error().Stack().Err(err).Str("HoldingID", holdingID.String()).Msg("could not recalculate holding")
				continue
			}
			log.Info().Object("Holding", h).Msg("recalculated holding")
		}
	},
}
