package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUserNotFound signals that the directory has no row for the identity.
var ErrUserNotFound = errors.New("auth: user not found")

// Directory looks up user rows by the identity provider's subject.
type Directory interface {
	GetUserByAuthID(ctx context.Context, authID uuid.UUID) (User, error)
}

// PGRepository implements Directory backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed user directory.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// GetUserByAuthID retrieves a user and its roles by identity subject.
func (r *PGRepository) GetUserByAuthID(ctx context.Context, authID uuid.UUID) (User, error) {
	const selectSQL = `
		SELECT id, email, first_name, last_name, user_type, two_factor_enabled, created_at, updated_at
		FROM users
		WHERE auth_id = $1
	`

	user, err := scanUser(r.pool.QueryRow(ctx, selectSQL, authID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("auth: get user by auth id: %w", err)
	}

	roles, err := r.listRoles(ctx, user.ID)
	if err != nil {
		return User{}, err
	}
	user.Roles = roles
	return user, nil
}

// InsertTwoFactorCode stores an issued verification code.
func (r *PGRepository) InsertTwoFactorCode(ctx context.Context, code TwoFactorCode) error {
	const insertSQL = `
		INSERT INTO two_factor_codes (user_id, code, expires_at, is_used)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := r.pool.Exec(ctx, insertSQL, code.UserID, code.Code, code.ExpiresAt, code.Used); err != nil {
		return fmt.Errorf("auth: insert two factor code: %w", err)
	}
	return nil
}

func (r *PGRepository) listRoles(ctx context.Context, userID int64) ([]Role, error) {
	const selectSQL = `
		SELECT r.id, r.name
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1
		ORDER BY r.name ASC
	`

	rows, err := r.pool.Query(ctx, selectSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("auth: list roles: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, fmt.Errorf("auth: scan role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("auth: iterate roles: %w", err)
	}
	return roles, nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		user      User
		firstName *string
		lastName  *string
		userType  *string
	)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&firstName,
		&lastName,
		&userType,
		&user.TwoFactorEnabled,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return User{}, err
	}

	if firstName != nil {
		user.FirstName = *firstName
	}
	if lastName != nil {
		user.LastName = *lastName
	}
	if userType != nil {
		user.UserType = *userType
	}
	return user, nil
}
