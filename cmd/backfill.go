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
	"fmt"

	"github.com/finfolio/ff-api/backfill"
	"github.com/finfolio/ff-api/common"
	"github.com/finfolio/ff-api/database"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var backfillCmdUser string

func init() {
	backfillCmd.Flags().StringVarP(&backfillCmdUser, "user", "u", "", "User the portfolio belongs to")
	backfillCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(backfillCmd)
}

var backfillCmd = &cobra.Command{
	Use:   "backfill portfolioID",
	Args:  cobra.ExactArgs(1),
	Short: "Replay a portfolio's history through the tax-lot engine",
	Long: `Replay every investment transaction of the portfolio in chronological order:
acquisitions open tax lots and sales consume them, computing cost basis and
realized gains. Safe to re-run; already processed transactions are skipped.`,
	Run: func(cmd *cobra.Command, args []string) {
		common.SetupLogging()
		common.SetupCache()
		ctx := context.Background()

		if err := database.Connect(ctx); err != nil {
			log.Fatal().Err(err).Msg("could not connect to database")
		}

		portfolioID, err := uuid.Parse(args[0])
		if err != nil {
			log.Fatal().Err(err).Str("PortfolioID", args[0]).Msg("invalid portfolio id")
		}

		result, err := backfill.Run(ctx, backfillCmdUser, portfolioID)
		if err != nil {
			log.Fatal().Err(err).Msg("tax-lot backfill failed")
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Fatal().Err(err).Msg("could not marshal backfill result")
		}
		fmt.Println(string(out))
	},
}
