package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tundra/internal/database"
)

type Repository interface {
	FindByDeviceID(ctx context.Context, deviceID string) (*AppUser, error)
	Create(ctx context.Context, req LoginRequest, ip string, now int64) (*AppUser, error)
	UpdateLoginInfo(ctx context.Context, userID string, req LoginRequest, ip string, now int64) error
}

type PostgresRepository struct {
	db database.Querier
}

func NewRepository(db database.Querier) Repository {
	return &PostgresRepository{db: db}
}

const appUserColumns = `
	id, user_id, device_id, app_id, device_brand, device_model, os, os_version,
	client_version, client_version_int, carrier, firebase_token, ip,
	register_time, create_time, last_active_time, is_deleted
`

// FindByDeviceID returns nil without an error when no active user matches.
func (r *PostgresRepository) FindByDeviceID(ctx context.Context, deviceID string) (*AppUser, error) {
	query := `
		SELECT ` + appUserColumns + `
		FROM app_users
		WHERE device_id = $1 AND is_deleted = FALSE
	`

	row, err := r.db.QueryRow(ctx, query, deviceID)
	if err != nil {
		return nil, err
	}

	user, err := scanAppUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by device_id: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) Create(ctx context.Context, req LoginRequest, ip string, now int64) (*AppUser, error) {
	userID := fmt.Sprintf("user_%s_%d", req.DeviceID, now)

	query := `
		INSERT INTO app_users (
			user_id, device_id, app_id, device_brand, device_model, os, os_version,
			client_version, client_version_int, carrier, firebase_token, ip,
			register_time, create_time, is_deleted
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, FALSE)
		RETURNING ` + appUserColumns + `
	`

	row, err := r.db.QueryRow(ctx, query,
		userID,
		req.DeviceID,
		req.AppID,
		req.DeviceBrand,
		req.DeviceModel,
		req.OS,
		req.OSVersion,
		req.ClientVersion,
		clientVersionInt(req.ClientVersion),
		nullString(req.Carrier),
		nullString(req.FirebaseToken),
		nullString(ip),
		now,
		now,
	)
	if err != nil {
		return nil, err
	}

	user, err := scanAppUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// UpdateLoginInfo refreshes the mutable login fields; ip and carrier keep
// their previous values when the new ones are empty.
func (r *PostgresRepository) UpdateLoginInfo(ctx context.Context, userID string, req LoginRequest, ip string, now int64) error {
	query := `
		UPDATE app_users
		SET last_active_time = $1,
		    client_version = $2,
		    client_version_int = $3,
		    os_version = $4,
		    firebase_token = COALESCE($5, firebase_token),
		    ip = COALESCE($6, ip),
		    carrier = COALESCE($7, carrier)
		WHERE user_id = $8
	`

	_, err := r.db.Exec(ctx, query,
		now,
		req.ClientVersion,
		clientVersionInt(req.ClientVersion),
		req.OSVersion,
		nullString(req.FirebaseToken),
		nullString(ip),
		nullString(req.Carrier),
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user login info: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAppUser(row rowScanner) (*AppUser, error) {
	var user AppUser
	err := row.Scan(
		&user.ID, &user.UserID, &user.DeviceID, &user.AppID,
		&user.DeviceBrand, &user.DeviceModel, &user.OS, &user.OSVersion,
		&user.ClientVersion, &user.ClientVersionInt, &user.Carrier,
		&user.FirebaseToken, &user.IP,
		&user.RegisterTime, &user.CreateTime, &user.LastActiveTime,
		&user.IsDeleted,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// clientVersionInt turns "1.2.3" into 123 for sortable version comparisons.
func clientVersionInt(version string) *int64 {
	if version == "" {
		return nil
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(version, ".", ""), 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
