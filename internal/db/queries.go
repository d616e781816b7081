/*
 * Copyright (c) 2023. Anton Starikov -- All Rights Reserved
 *
 * This file is part of HEATAI project.
 *
 * HEATAI is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as the Free Software Foundation,
 * either version 3 of the License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Names of the values the controller keeps between restarts.
const (
	ValueLastPayload = "last_payload"
	ValueLastMode    = "last_mode"
	ValueLogLevel    = "log_level"
)

const (
	upsertControllerValueSQL = `
INSERT INTO controller_values (name, value, updated_at)
VALUES (:name, :value, :updated_at)
ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	getControllerValueSQL = `SELECT value FROM controller_values WHERE name = ?`

	getControllerValueRowSQL = `SELECT name, value, updated_at FROM controller_values WHERE name = ?`
)

var ErrNotFound = errors.New("controller value not found")

type Queries struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Queries {
	return &Queries{db: db}
}

type UpsertControllerValueParams struct {
	Name      string    `db:"name"`
	Value     string    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}

type ControllerValue struct {
	Name      string    `db:"name"`
	Value     string    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (q *Queries) UpsertControllerValue(ctx context.Context, arg UpsertControllerValueParams) error {
	if arg.UpdatedAt.IsZero() {
		arg.UpdatedAt = time.Now().UTC()
	}
	if _, err := q.db.NamedExecContext(ctx, upsertControllerValueSQL, arg); err != nil {
		return errors.Wrapf(err, "upsert %s", arg.Name)
	}
	return nil
}

func (q *Queries) GetControllerValue(ctx context.Context, name string) (string, error) {
	var value string
	if err := q.db.GetContext(ctx, &value, getControllerValueSQL, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", errors.Wrap(ErrNotFound, name)
		}
		return "", errors.Wrapf(err, "get %s", name)
	}
	return value, nil
}

func (q *Queries) GetControllerValueRow(ctx context.Context, name string) (ControllerValue, error) {
	var row ControllerValue
	if err := q.db.GetContext(ctx, &row, getControllerValueRowSQL, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return row, errors.Wrap(ErrNotFound, name)
		}
		return row, errors.Wrapf(err, "get %s", name)
	}
	return row, nil
}

func (q *Queries) Close() error {
	return q.db.Close()
}
