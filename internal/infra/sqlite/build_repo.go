/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/guipratiko/Clerky-app/internal/domain"
	"github.com/guipratiko/Clerky-app/internal/domain/model"
)

// BuildRepository handles build record persistence.
type BuildRepository struct {
	db *sql.DB
}

func NewBuildRepository(db *sql.DB) *BuildRepository {
	return &BuildRepository{db: db}
}

func (r *BuildRepository) FindByUDID(ctx context.Context, udid string) (*model.Build, error) {
	const q = `
		SELECT id, udid, build_id, status, started_at
		FROM builds
		WHERE udid = ?
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, q, udid)
	var b model.Build
	if err := row.Scan(&b.ID, &b.UDID, &b.BuildID, &b.Status, &b.StartedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan build: %w", err)
	}
	return &b, nil
}

// Create inserts a new build record. The UNIQUE constraint on udid makes a
// duplicate insert fail rather than silently producing a second record.
func (r *BuildRepository) Create(ctx context.Context, b *model.Build) error {
	const q = `
		INSERT INTO builds (udid, build_id, status, started_at)
		VALUES (?, ?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, q, b.UDID, b.BuildID, b.Status, b.StartedAt)
	if err != nil {
		return fmt.Errorf("insert build: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = id
	return nil
}

// UpdateBuildID overwrites the build identifier once the tool output has
// been parsed.
func (r *BuildRepository) UpdateBuildID(ctx context.Context, udid, buildID string) error {
	const q = `
		UPDATE builds
		SET build_id = ?
		WHERE udid = ?
	`
	res, err := r.db.ExecContext(ctx, q, buildID, udid)
	if err != nil {
		return fmt.Errorf("update build id: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteByUDID removes a record, used to roll back a claim when the build
// trigger fails so the caller may retry.
func (r *BuildRepository) DeleteByUDID(ctx context.Context, udid string) error {
	const q = `
		DELETE FROM builds
		WHERE udid = ?
	`
	if _, err := r.db.ExecContext(ctx, q, udid); err != nil {
		return fmt.Errorf("delete build: %w", err)
	}
	return nil
}
