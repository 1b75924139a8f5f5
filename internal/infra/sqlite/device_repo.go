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

type DeviceRepository struct {
	db *sql.DB
}

// NewDeviceRepository creates a new instance of DeviceRepository.
func NewDeviceRepository(db *sql.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

func (r *DeviceRepository) FindByUDID(ctx context.Context, udid string) (*model.Device, error) {
	const query = `
		SELECT id, udid, name, registered_at
		FROM devices
		WHERE udid = ?
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, query, udid)
	var d model.Device
	if err := row.Scan(&d.ID, &d.UDID, &d.Name, &d.RegisteredAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &d, nil
}

func (r *DeviceRepository) Create(ctx context.Context, d *model.Device) error {
	const query = `
		INSERT INTO devices (udid, name, registered_at)
		VALUES (?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query, d.UDID, d.Name, d.RegisteredAt)
	if err != nil {
		return fmt.Errorf("insert device: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = id
	return nil
}
