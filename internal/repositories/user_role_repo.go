package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/usergate/internal/database"
	"github.com/BradenHooton/usergate/internal/models"
	"github.com/lib/pq"
)

type UserRoleRepository struct {
	db *database.DB
}

func NewUserRoleRepository(db *database.DB) *UserRoleRepository {
	return &UserRoleRepository{db: db}
}

// Create inserts the pair. The (user_id, role_id) unique index turns a
// racing duplicate into models.ErrConflict.
func (r *UserRoleRepository) Create(ctx context.Context, ur *models.UserRole) (*models.UserRole, error) {
	query := `
		INSERT INTO user_roles (user_id, role_id, created_date, updated_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, role_id, created_date, updated_date
	`

	var created models.UserRole
	err := r.db.Pool.QueryRow(ctx, query, ur.UserID, ur.RoleID, ur.CreatedDate, ur.UpdatedDate).Scan(
		&created.ID, &created.UserID, &created.RoleID, &created.CreatedDate, &created.UpdatedDate,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &created, nil
}

func (r *UserRoleRepository) Exists(ctx context.Context, userID, roleID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM user_roles WHERE user_id = $1 AND role_id = $2)`

	var exists bool
	if err := r.db.Pool.QueryRow(ctx, query, userID, roleID).Scan(&exists); err != nil {
		return false, database.MapPostgresError(err)
	}

	return exists, nil
}

// UserHasRole reports whether the user is assigned the role with the given name.
func (r *UserRoleRepository) UserHasRole(ctx context.Context, userID int64, roleName string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM user_roles ur
			JOIN roles r ON r.role_id = ur.role_id
			WHERE ur.user_id = $1 AND r.role_name = $2
		)
	`

	var exists bool
	if err := r.db.Pool.QueryRow(ctx, query, userID, roleName).Scan(&exists); err != nil {
		return false, database.MapPostgresError(err)
	}

	return exists, nil
}

// ListUsersWithRoles returns every user with the roles assigned to them.
// Users without roles are included with an empty slice.
func (r *UserRoleRepository) ListUsersWithRoles(ctx context.Context) ([]*models.UserWithRoles, error) {
	// The aggregates are cast to text so pq.Array can parse the array literal.
	query := `
		SELECT u.user_id, u.first_name, u.last_name, u.email, u.created_date, u.updated_date,
			COALESCE(array_agg(r.role_id ORDER BY r.role_id) FILTER (WHERE r.role_id IS NOT NULL), '{}')::text,
			COALESCE(array_agg(r.role_name ORDER BY r.role_id) FILTER (WHERE r.role_id IS NOT NULL), '{}')::text
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.user_id
		LEFT JOIN roles r ON r.role_id = ur.role_id
		GROUP BY u.user_id
		ORDER BY u.user_id
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users with roles: %w", err)
	}
	defer rows.Close()

	result := make([]*models.UserWithRoles, 0)

	for rows.Next() {
		var user models.User
		var roleIDs []int64
		var roleNames []string

		err := rows.Scan(
			&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.CreatedDate, &user.UpdatedDate,
			pq.Array(&roleIDs), pq.Array(&roleNames),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user with roles: %w", err)
		}

		if len(roleIDs) != len(roleNames) {
			return nil, fmt.Errorf("role aggregate mismatch for user %d", user.ID)
		}

		roles := make([]models.RoleSummary, len(roleIDs))
		for i := range roleIDs {
			roles[i] = models.RoleSummary{ID: roleIDs[i], Name: roleNames[i]}
		}

		result = append(result, &models.UserWithRoles{User: &user, Roles: roles})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}
