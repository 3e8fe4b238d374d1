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

package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
)

// UserContext resolves the acting user for a request. Authentication happens
// at the gateway in front of this service; the gateway forwards the verified
// subject in the X-Ff-User header. Requests without the header run as the
// anonymous role, which the database restricts to read-only access.
func UserContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-Ff-User")
		if userID == "" {
			userID = viper.GetString("server.anonymous_user")
		}
		c.Locals("userID", userID)
		return c.Next()
	}
}
