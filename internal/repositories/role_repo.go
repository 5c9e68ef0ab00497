package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/usergate/internal/database"
	"github.com/BradenHooton/usergate/internal/models"
	"github.com/jackc/pgx/v5"
)

const roleColumns = `role_id, role_name, created_date, updated_date`

type RoleRepository struct {
	db *database.DB
}

func NewRoleRepository(db *database.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

func scanRoleRow(scanner rowScanner) (*models.Role, error) {
	var role models.Role

	if err := scanner.Scan(&role.ID, &role.Name, &role.CreatedDate, &role.UpdatedDate); err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &role, nil
}

func scanRoleRows(rows pgx.Rows) ([]*models.Role, error) {
	defer rows.Close()

	roles := make([]*models.Role, 0)

	for rows.Next() {
		role, err := scanRoleRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return roles, nil
}

// Create inserts a role. A duplicate name maps to models.ErrConflict.
func (r *RoleRepository) Create(ctx context.Context, role *models.Role) (*models.Role, error) {
	query := `
		INSERT INTO roles (role_name, created_date, updated_date)
		VALUES ($1, $2, $3)
		RETURNING ` + roleColumns

	return scanRoleRow(r.db.Pool.QueryRow(ctx, query, role.Name, role.CreatedDate, role.UpdatedDate))
}

func (r *RoleRepository) GetByID(ctx context.Context, id int64) (*models.Role, error) {
	return scanRoleRow(r.db.Pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE role_id = $1`, id))
}

func (r *RoleRepository) GetByName(ctx context.Context, name string) (*models.Role, error) {
	return scanRoleRow(r.db.Pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE role_name = $1`, name))
}

func (r *RoleRepository) List(ctx context.Context) ([]*models.Role, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY role_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", err)
	}

	return scanRoleRows(rows)
}

func (r *RoleRepository) Update(ctx context.Context, id int64, role *models.Role) (*models.Role, error) {
	query := `
		UPDATE roles SET role_name = $1, updated_date = $2
		WHERE role_id = $3
		RETURNING ` + roleColumns

	return scanRoleRow(r.db.Pool.QueryRow(ctx, query, role.Name, role.UpdatedDate, id))
}

// Delete removes the role; its user_roles rows go with it through the cascade.
func (r *RoleRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM roles WHERE role_id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
