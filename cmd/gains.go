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
	"time"

	"github.com/finfolio/ff-api/common"
	"github.com/finfolio/ff-api/database"
	"github.com/finfolio/ff-api/gains"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	gainsCmdUser string
	gainsCmdYear int
)

func init() {
	gainsCmd.Flags().StringVarP(&gainsCmdUser, "user", "u", "", "User the portfolio belongs to")
	gainsCmd.MarkFlagRequired("user")

	gainsCmd.Flags().IntVarP(&gainsCmdYear, "year", "y", time.Now().Year(), "Tax year to summarize")

	rootCmd.AddCommand(gainsCmd)
}

var gainsCmd = &cobra.Command{
	Use:   "gains portfolioID",
	Args:  cobra.ExactArgs(1),
	Short: "Print the realized-gain summary for a portfolio's tax year",
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

		summary, err := gains.Summarize(ctx, gainsCmdUser, portfolioID, gainsCmdYear)
		if err != nil {
			log.Fatal().Err(err).Msg("could not summarize realized gains")
		}

		out, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			log.Fatal().Err(err).Msg("could not marshal summary")
		}
		fmt.Println(string(out))
	},
}
