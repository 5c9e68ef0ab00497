package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/usergate/internal/database"
	"github.com/BradenHooton/usergate/internal/models"
	"github.com/jackc/pgx/v5"
)

const userColumns = `user_id, first_name, last_name, email, password_hash, otp,
	password_reset_otp, password_reset_otp_expires, created_date, updated_date`

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// rowScanner is satisfied by pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// scanUserRow populates a User from a row selected with userColumns
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var otp, resetOTP *int32

	err := scanner.Scan(
		&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.PasswordHash, &otp,
		&resetOTP, &user.PasswordResetOTPExpires, &user.CreatedDate, &user.UpdatedDate,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	user.OTP = intPtr(otp)
	user.PasswordResetOTP = intPtr(resetOTP)

	return &user, nil
}

func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)

	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

func intPtr(v *int32) *int {
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (first_name, last_name, email, password_hash, otp, created_date, updated_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + userColumns

	return scanUserRow(r.db.Pool.QueryRow(ctx, query,
		user.FirstName, user.LastName, user.Email, user.PasswordHash, user.OTP,
		user.CreatedDate, user.UpdatedDate,
	))
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`

	return scanUserRow(r.db.Pool.QueryRow(ctx, query, id))
}

// GetByEmail returns the full record, password hash included.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	return scanUserRow(r.db.Pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY user_id LIMIT $1 OFFSET $2`

	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	return scanUserRows(rows)
}

// Update writes profile fields only. The password hash is changed through
// ConsumePasswordReset.
func (r *UserRepository) Update(ctx context.Context, id int64, user *models.User) (*models.User, error) {
	query := `
		UPDATE users SET first_name = $1, last_name = $2, email = $3, updated_date = $4
		WHERE user_id = $5
		RETURNING ` + userColumns

	return scanUserRow(r.db.Pool.QueryRow(ctx, query,
		user.FirstName, user.LastName, user.Email, user.UpdatedDate, id,
	))
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM users WHERE user_id = $1`

	result, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// SetPasswordResetOTP overwrites any outstanding reset code for the user.
func (r *UserRepository) SetPasswordResetOTP(ctx context.Context, id int64, code int, expires time.Time) error {
	query := `UPDATE users SET password_reset_otp = $1, password_reset_otp_expires = $2 WHERE user_id = $3`

	result, err := r.db.Pool.Exec(ctx, query, code, expires, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// ConsumePasswordReset locks the user row, runs check against it and, if
// check passes, stores the new hash and clears the reset code in the same
// transaction. Two concurrent resets with the same code cannot both succeed.
func (r *UserRepository) ConsumePasswordReset(
	ctx context.Context,
	email string,
	check func(*models.User) error,
	passwordHash string,
	now time.Time,
) (*models.User, error) {
	var updated *models.User

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		user, err := scanUserRow(tx.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1 FOR UPDATE`, email))
		if err != nil {
			return err
		}

		if err := check(user); err != nil {
			return err
		}
		user.ClearPasswordResetOTP()

		updated, err = scanUserRow(tx.QueryRow(ctx, `
			UPDATE users
			SET password_hash = $1, password_reset_otp = $2, password_reset_otp_expires = $3, updated_date = $4
			WHERE user_id = $5
			RETURNING `+userColumns,
			passwordHash, user.PasswordResetOTP, user.PasswordResetOTPExpires, now, user.ID,
		))
		return err
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// ClearExpiredPasswordResetOTPs drops reset codes whose expiry is before the cutoff.
func (r *UserRepository) ClearExpiredPasswordResetOTPs(ctx context.Context, before time.Time) (int64, error) {
	query := `
		UPDATE users SET password_reset_otp = NULL, password_reset_otp_expires = NULL
		WHERE password_reset_otp_expires IS NOT NULL AND password_reset_otp_expires < $1
	`

	result, err := r.db.Pool.Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired reset codes: %w", err)
	}

	return result.RowsAffected(), nil
}
