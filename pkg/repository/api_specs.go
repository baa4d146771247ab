package repository

import (
	"database/sql"
	"fmt"

	"github.com/toolbridge/toolbridge/pkg/models"
)

const specColumns = "id, name, title, version, spec_content, endpoint_path, file_format, file_size, api_key_token, is_active, created_at, updated_at"

// APISpecRepository handles database operations for stored API specs
type APISpecRepository struct {
	db *sql.DB
}

// NewAPISpecRepository creates a new repository instance
func NewAPISpecRepository(db *sql.DB) *APISpecRepository {
	return &APISpecRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSpec(row rowScanner) (*models.APISpec, error) {
	spec := &models.APISpec{}
	err := row.Scan(
		&spec.ID,
		&spec.Name,
		&spec.Title,
		&spec.Version,
		&spec.SpecContent,
		&spec.EndpointPath,
		&spec.FileFormat,
		&spec.FileSize,
		&spec.APIKeyToken,
		&spec.IsActive,
		&spec.CreatedAt,
		&spec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return spec, nil
}

// Create inserts a new API spec into the database
func (r *APISpecRepository) Create(spec *models.APISpec) (*models.APISpec, error) {
	query := `
		INSERT INTO api_specs (name, title, version, spec_content, endpoint_path, file_format, file_size, api_key_token, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		spec.Name,
		spec.Title,
		spec.Version,
		spec.SpecContent,
		spec.EndpointPath,
		spec.FileFormat,
		spec.FileSize,
		spec.APIKeyToken,
		spec.IsActive,
	).Scan(&spec.ID, &spec.CreatedAt, &spec.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create api spec: %v", err)
	}

	return spec, nil
}

// GetByID retrieves an API spec by its ID
func (r *APISpecRepository) GetByID(id int) (*models.APISpec, error) {
	query := fmt.Sprintf("SELECT %s FROM api_specs WHERE id = $1", specColumns)

	spec, err := scanSpec(r.db.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("api spec with id %d not found", id)
		}
		return nil, fmt.Errorf("failed to get api spec: %v", err)
	}
	return spec, nil
}

// GetByName retrieves an API spec by its name
func (r *APISpecRepository) GetByName(name string) (*models.APISpec, error) {
	query := fmt.Sprintf("SELECT %s FROM api_specs WHERE name = $1", specColumns)

	spec, err := scanSpec(r.db.QueryRow(query, name))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("api spec with name %s not found", name)
		}
		return nil, fmt.Errorf("failed to get api spec: %v", err)
	}
	return spec, nil
}

// GetByEndpointPath retrieves an API spec by its endpoint path
func (r *APISpecRepository) GetByEndpointPath(path string) (*models.APISpec, error) {
	query := fmt.Sprintf("SELECT %s FROM api_specs WHERE endpoint_path = $1", specColumns)

	spec, err := scanSpec(r.db.QueryRow(query, path))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("api spec with endpoint path %s not found", path)
		}
		return nil, fmt.Errorf("failed to get api spec: %v", err)
	}
	return spec, nil
}

func (r *APISpecRepository) queryMany(query string) ([]*models.APISpec, error) {
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query api specs: %v", err)
	}
	defer rows.Close()

	var specs []*models.APISpec
	for rows.Next() {
		spec, err := scanSpec(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan api spec: %v", err)
		}
		specs = append(specs, spec)
	}

	return specs, rows.Err()
}

// GetAll retrieves all API specs
func (r *APISpecRepository) GetAll() ([]*models.APISpec, error) {
	return r.queryMany(fmt.Sprintf("SELECT %s FROM api_specs ORDER BY created_at DESC", specColumns))
}

// GetActive retrieves all active API specs
func (r *APISpecRepository) GetActive() ([]*models.APISpec, error) {
	return r.queryMany(fmt.Sprintf("SELECT %s FROM api_specs WHERE is_active = true ORDER BY created_at DESC", specColumns))
}

// Update modifies an existing API spec
func (r *APISpecRepository) Update(spec *models.APISpec) (*models.APISpec, error) {
	query := `
		UPDATE api_specs
		SET name = $2, title = $3, version = $4, spec_content = $5, endpoint_path = $6,
		    file_format = $7, file_size = $8, api_key_token = $9, is_active = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRow(
		query,
		spec.ID,
		spec.Name,
		spec.Title,
		spec.Version,
		spec.SpecContent,
		spec.EndpointPath,
		spec.FileFormat,
		spec.FileSize,
		spec.APIKeyToken,
		spec.IsActive,
	).Scan(&spec.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to update api spec: %v", err)
	}

	return spec, nil
}

func (r *APISpecRepository) execOne(query string, args ...any) error {
	result, err := r.db.Exec(query, args...)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %v", err)
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an API spec from the database
func (r *APISpecRepository) Delete(id int) error {
	err := r.execOne(`DELETE FROM api_specs WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return fmt.Errorf("api spec with id %d not found", id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete api spec: %v", err)
	}
	return nil
}

// SetActive sets the is_active status of an API spec
func (r *APISpecRepository) SetActive(id int, active bool) error {
	err := r.execOne(`UPDATE api_specs SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err == sql.ErrNoRows {
		return fmt.Errorf("api spec with id %d not found", id)
	}
	if err != nil {
		return fmt.Errorf("failed to set active status: %v", err)
	}
	return nil
}

// UpdateAPIKeyToken updates the stored API key token for a spec
func (r *APISpecRepository) UpdateAPIKeyToken(id int, token *string) error {
	err := r.execOne(`UPDATE api_specs SET api_key_token = $2, updated_at = NOW() WHERE id = $1`, id, token)
	if err == sql.ErrNoRows {
		return fmt.Errorf("api spec with id %d not found", id)
	}
	if err != nil {
		return fmt.Errorf("failed to update API key token: %v", err)
	}
	return nil
}
