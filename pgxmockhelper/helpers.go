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

// Package pgxmockhelper wraps the pgxmock choreography shared by the store
// test suites. Every store call runs inside a per-user transaction that
// begins with a SET ROLE, so the helpers expect that prologue before the
// query or exec under test.
package pgxmockhelper

import (
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/pashagolub/pgxmock"
)

// NewTransactionRows returns an empty row set matching the ledger store's
// transaction column list; numeric values are added as strings exactly as the
// database would return them after the ::text cast
func NewTransactionRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "holding_id", "account_id", "transaction_type", "ticker",
		"quantity", "price", "amount", "fees", "currency", "event_date",
		"source_id", "cost_basis_used", "realized_gain_loss",
		"holding_period_days",
	})
}

// NewLotRows returns an empty row set matching the tax-lot store's column list
func NewLotRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "holding_id", "transaction_id", "quantity", "remaining",
		"cost_basis", "cost_per_unit", "acquired_at",
	})
}

// NewHoldingRows returns an empty row set matching the holding store's column
// list
func NewHoldingRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "account_id", "ticker", "quantity", "cost_basis",
		"avg_cost_per_unit",
	})
}

// MockUserTrx expects the begin + SET ROLE prologue every store call issues
func MockUserTrx(db pgxmock.PgxConnIface) {
	db.ExpectBegin()
	db.ExpectExec("SET ROLE").WillReturnResult(pgconn.CommandTag("SET ROLE"))
}

// MockQuery expects a query inside a user transaction that returns rows and
// commits
func MockQuery(db pgxmock.PgxConnIface, sql string, rows *pgxmock.Rows) {
	MockUserTrx(db)
	db.ExpectQuery(sql).WillReturnRows(rows)
	db.ExpectCommit()
}

// MockNoRows expects a single-row query inside a user transaction that finds
// nothing; the store rolls back on the no-rows path
func MockNoRows(db pgxmock.PgxConnIface, sql string) {
	MockUserTrx(db)
	db.ExpectQuery(sql).WillReturnError(pgx.ErrNoRows)
	db.ExpectRollback()
}

// MockQueryError expects a query inside a user transaction that fails and
// rolls back
func MockQueryError(db pgxmock.PgxConnIface, sql string, err error) {
	MockUserTrx(db)
	db.ExpectQuery(sql).WillReturnError(err)
	db.ExpectRollback()
}

// MockExec expects a write inside a user transaction that succeeds and
// commits; tag is the postgres command tag, e.g. "UPDATE 1"
func MockExec(db pgxmock.PgxConnIface, sql string, tag string) {
	MockUserTrx(db)
	db.ExpectExec(sql).WillReturnResult(pgconn.CommandTag(tag))
	db.ExpectCommit()
}

// MockExecArgs is MockExec with argument matching
func MockExecArgs(db pgxmock.PgxConnIface, sql string, tag string, args ...interface{}) {
	MockUserTrx(db)
	db.ExpectExec(sql).WithArgs(args...).WillReturnResult(pgconn.CommandTag(tag))
	db.ExpectCommit()
}
