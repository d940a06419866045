// FixtureLink Core
// Copyright (c) 2026 The FixtureLink Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of FixtureLink Core.
//
// FixtureLink Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// FixtureLink Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with FixtureLink Core.  If not, see <http://www.gnu.org/licenses/>.

package rundb

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/fixturelink/fixturelink-core/pkg/database"
	"github.com/rs/zerolog/log"
)

const maxRecentRuns = 500

//go:embed migrations/*.sql
var migrationFiles embed.FS

func sqlMigrateUp(db *sql.DB) error {
	if err := database.MigrateUp(db, migrationFiles, "migrations"); err != nil {
		return fmt.Errorf("failed to run run database migrations: %w", err)
	}
	return nil
}

func sqlVacuum(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `vacuum;`)
	if err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	return nil
}

func sqlAddRun(ctx context.Context, db *sql.DB, entry *database.RunEntry) error {
	stmt, err := db.PrepareContext(ctx, `
		insert into Runs(
			FixtureSerial, Port, Result, ESN, Cycle, LotCode, Model, SealedAt, Text
		) values (?, ?, ?, ?, ?, ?, ?, ?, ?);
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare run insert statement: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql statement")
		}
	}()

	res, err := stmt.ExecContext(ctx,
		entry.FixtureSerial,
		entry.Port,
		entry.Result,
		entry.ESN,
		entry.Cycle,
		entry.LotCode,
		entry.Model,
		entry.SealedAt.Unix(),
		entry.Text,
	)
	if err != nil {
		return fmt.Errorf("failed to execute run insert: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		entry.DBID = id
	}
	return nil
}

func sqlRecentRuns(
	ctx context.Context,
	db *sql.DB,
	serial uint32,
	limit int,
) ([]database.RunEntry, error) {
	if limit <= 0 || limit > maxRecentRuns {
		limit = maxRecentRuns
	}
	list := make([]database.RunEntry, 0, min(limit, 25))

	q, err := db.PrepareContext(ctx, `
		select
		ID, FixtureSerial, Port, Result, ESN, Cycle, LotCode, Model, SealedAt, Text
		from Runs
		where (? = 0 or FixtureSerial = ?)
		order by ID desc
		limit ?;
	`)
	if err != nil {
		return list, fmt.Errorf("failed to prepare runs query statement: %w", err)
	}
	defer func() {
		if closeErr := q.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql statement")
		}
	}()

	rows, err := q.QueryContext(ctx, serial, serial, limit)
	if err != nil {
		return list, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql rows")
		}
	}()

	for rows.Next() {
		row := database.RunEntry{}
		var sealedAt int64
		if err := rows.Scan(
			&row.DBID,
			&row.FixtureSerial,
			&row.Port,
			&row.Result,
			&row.ESN,
			&row.Cycle,
			&row.LotCode,
			&row.Model,
			&sealedAt,
			&row.Text,
		); err != nil {
			return list, fmt.Errorf("failed to scan run row: %w", err)
		}
		row.SealedAt = time.Unix(sealedAt, 0)
		list = append(list, row)
	}
	if err := rows.Err(); err != nil {
		return list, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return list, nil
}

func sqlCleanupRuns(ctx context.Context, db *sql.DB, retentionDays int) (int64, error) {
	cutoffTime := time.Now().AddDate(0, 0, -retentionDays).Unix()

	stmt, err := db.PrepareContext(ctx, `delete from Runs where SealedAt < ?;`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare runs cleanup statement: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql statement")
		}
	}()

	result, err := stmt.ExecContext(ctx, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to execute runs cleanup: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected > 0 {
		if err := sqlVacuum(ctx, db); err != nil {
			log.Warn().Err(err).Msg("failed to vacuum after runs cleanup")
		}
	}
	return rowsAffected, nil
}
