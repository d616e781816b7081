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
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Queries {
	t.Helper()
	q, err := OpenDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func TestUpsertKeepsOneRowPerName(t *testing.T) {
	q := openMemory(t)
	ctx := context.Background()

	first := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, q.UpsertControllerValue(ctx, UpsertControllerValueParams{
		Name: ValueLastMode, Value: "auto", UpdatedAt: first,
	}))
	require.NoError(t, q.UpsertControllerValue(ctx, UpsertControllerValueParams{
		Name: ValueLastMode, Value: "off", UpdatedAt: first.Add(time.Minute),
	}))

	v, err := q.GetControllerValue(ctx, ValueLastMode)
	require.NoError(t, err)
	assert.Equal(t, "off", v)

	row, err := q.GetControllerValueRow(ctx, ValueLastMode)
	require.NoError(t, err)
	assert.True(t, row.UpdatedAt.Equal(first.Add(time.Minute)), "got %v", row.UpdatedAt)

	var count int
	require.NoError(t, q.db.Get(&count, `SELECT COUNT(*) FROM controller_values`))
	assert.Equal(t, 1, count)
}

func TestUpsertFillsTimestamp(t *testing.T) {
	q := openMemory(t)
	ctx := context.Background()

	before := time.Now().UTC().Add(-time.Second)
	require.NoError(t, q.UpsertControllerValue(ctx, UpsertControllerValueParams{Name: ValueLogLevel, Value: "debug"}))

	row, err := q.GetControllerValueRow(ctx, ValueLogLevel)
	require.NoError(t, err)
	assert.True(t, row.UpdatedAt.After(before))
}

func TestGetMissingValue(t *testing.T) {
	q := openMemory(t)

	_, err := q.GetControllerValue(context.Background(), ValueLastPayload)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = q.GetControllerValueRow(context.Background(), ValueLastPayload)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestOpenDatabaseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	q, err := OpenDatabase(path)
	require.NoError(t, err)
	require.NoError(t, q.UpsertControllerValue(context.Background(), UpsertControllerValueParams{Name: "k", Value: "v"}))
	require.NoError(t, q.Close())

	q, err = OpenDatabase(path)
	require.NoError(t, err)
	defer q.Close()
	v, err := q.GetControllerValue(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestQueriesPropagateDriverErrors(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	q := New(sqlx.NewDb(sqlDB, "sqlmock"))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO controller_values")).
		WithArgs(ValueLastPayload, "0;0.0;50.0;-;-;0;0;0;-;0;0;0", sqlmock.AnyArg()).
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectQuery(regexp.QuoteMeta(getControllerValueSQL)).
		WithArgs(ValueLastPayload).
		WillReturnError(errors.New("database is locked"))

	err = q.UpsertControllerValue(context.Background(), UpsertControllerValueParams{
		Name: ValueLastPayload, Value: "0;0.0;50.0;-;-;0;0;0;-;0;0;0",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")

	_, err = q.GetControllerValue(context.Background(), ValueLastPayload)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "database is locked")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/heat")
	p, err := expandHome("~/.heatai.db")
	require.NoError(t, err)
	assert.Equal(t, "/home/heat/.heatai.db", p)

	p, err = expandHome("/var/lib/heatai.db")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/heatai.db", p)
}
