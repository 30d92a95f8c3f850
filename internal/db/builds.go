/*
 * Copyright (c) 2023. Anton Starikov -- All Rights Reserved
 *
 * This file is part of ISM330GEN project.
 *
 * ISM330GEN is free software: you can redistribute it and/or modify
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
	"time"

	"github.com/pkg/errors"
)

const Schema = `
CREATE TABLE IF NOT EXISTS builds (
	build_id    TEXT PRIMARY KEY,
	output      TEXT NOT NULL,
	source_hash TEXT NOT NULL,
	components  TEXT NOT NULL,
	actions     INTEGER NOT NULL,
	created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS builds_by_output ON builds (output, created_at);
`

// Build is one compiler run that wrote generated code.
type Build struct {
	BuildID    string    `db:"build_id"`
	Output     string    `db:"output"`
	SourceHash string    `db:"source_hash"`
	Components string    `db:"components"`
	Actions    int       `db:"actions"`
	CreatedAt  time.Time `db:"created_at"`
}

func (q *Queries) InsertBuild(ctx context.Context, b Build) error {
	b.CreatedAt = b.CreatedAt.UTC()
	_, err := q.db.NamedExecContext(ctx, `
		INSERT INTO builds (build_id, output, source_hash, components, actions, created_at)
		VALUES (:build_id, :output, :source_hash, :components, :actions, :created_at)`, b)
	return errors.Wrapf(err, "failed to record build %s", b.BuildID)
}

// LastBuild returns the latest build written to output, or sql.ErrNoRows.
func (q *Queries) LastBuild(ctx context.Context, output string) (Build, error) {
	var b Build
	err := q.db.GetContext(ctx, &b, `
		SELECT build_id, output, source_hash, components, actions, created_at
		FROM builds WHERE output = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, output)
	return b, err
}

func (q *Queries) ListBuilds(ctx context.Context, limit int) ([]Build, error) {
	var builds []Build
	err := q.db.SelectContext(ctx, &builds, `
		SELECT build_id, output, source_hash, components, actions, created_at
		FROM builds ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list builds")
	}
	return builds, nil
}
