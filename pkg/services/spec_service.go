package services

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/toolbridge/toolbridge/pkg/models"
	"github.com/toolbridge/toolbridge/pkg/openapi"
	"github.com/toolbridge/toolbridge/pkg/repository"
)

// SpecService manages stored API specs and turns them into indexed operations.
type SpecService struct {
	specRepo *repository.APISpecRepository
	db       *sql.DB
}

// NewSpecService creates a new spec service
func NewSpecService(db *sql.DB) *SpecService {
	return &SpecService{
		specRepo: repository.NewAPISpecRepository(db),
		db:       db,
	}
}

// parseSpecContent parses the stored spec content; the OpenAPI loader accepts
// both JSON and YAML.
func (s *SpecService) parseSpecContent(spec *models.APISpec) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData([]byte(spec.SpecContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse spec content: %v", err)
	}
	return doc, nil
}

// LoadSpecByName loads and indexes a specific active spec by name.
func (s *SpecService) LoadSpecByName(name string) ([]openapi.Operation, *openapi3.T, error) {
	spec, err := s.specRepo.GetByName(name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load spec by name: %v", err)
	}
	return s.indexSpec(spec, fmt.Sprintf("spec '%s'", name))
}

// LoadSpecByEndpoint loads and indexes a specific active spec by endpoint path.
func (s *SpecService) LoadSpecByEndpoint(endpointPath string) ([]openapi.Operation, *openapi3.T, error) {
	spec, err := s.specRepo.GetByEndpointPath(endpointPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load spec by endpoint: %v", err)
	}
	return s.indexSpec(spec, fmt.Sprintf("spec at endpoint '%s'", endpointPath))
}

func (s *SpecService) indexSpec(spec *models.APISpec, what string) ([]openapi.Operation, *openapi3.T, error) {
	if spec.IsActive != nil && !*spec.IsActive {
		return nil, nil, fmt.Errorf("%s is not active", what)
	}

	doc, err := s.parseSpecContent(spec)
	if err != nil {
		return nil, nil, err
	}

	return openapi.ExtractOperations(doc), doc, nil
}

// ImportSpecFromFile imports a spec file into the database.
func (s *SpecService) ImportSpecFromFile(filePath, name, endpointPath string) error {
	return s.ImportSpecFromFileWithToken(filePath, name, endpointPath, nil)
}

// ImportSpecFromFileWithToken imports a spec file with a stored API key token.
func (s *SpecService) ImportSpecFromFileWithToken(filePath, name, endpointPath string, apiKeyToken *string) error {
	if s.db == nil {
		return fmt.Errorf("database connection not initialized")
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read spec file: %v", err)
	}

	format := "yaml"
	if strings.HasSuffix(strings.ToLower(filePath), ".json") {
		format = "json"
	}

	return s.createSpec(name, endpointPath, string(content), format, apiKeyToken)
}

// CreateSpecFromContent creates a new stored spec directly from content.
func (s *SpecService) CreateSpecFromContent(name, endpointPath, specContent, fileFormat string, apiKeyToken *string) error {
	if s.db == nil {
		return fmt.Errorf("database connection not initialized")
	}
	return s.createSpec(name, endpointPath, specContent, fileFormat, apiKeyToken)
}

func (s *SpecService) createSpec(name, endpointPath, content, format string, apiKeyToken *string) error {
	// Parse up front so broken documents never land in the table, and so
	// title/version can be captured for listings.
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData([]byte(content))
	if err != nil {
		return fmt.Errorf("failed to parse OpenAPI spec: %v", err)
	}

	var title, version *string
	if doc.Info != nil {
		if doc.Info.Title != "" {
			title = &doc.Info.Title
		}
		if doc.Info.Version != "" {
			version = &doc.Info.Version
		}
	}

	spec := models.NewAPISpec(name, content, endpointPath)
	spec.Title = title
	spec.Version = version
	spec.FileFormat = &format
	spec.APIKeyToken = apiKeyToken
	fileSize := len(content)
	spec.FileSize = &fileSize

	if _, err := s.specRepo.Create(spec); err != nil {
		return fmt.Errorf("failed to save spec to database: %v", err)
	}

	log.Printf("Imported spec '%s' (endpoint %s)", name, endpointPath)
	return nil
}

// GetAllSpecs returns all specs from the database
func (s *SpecService) GetAllSpecs() ([]*models.APISpec, error) {
	return s.specRepo.GetAll()
}

// GetActiveSpecs returns all active specs from the database
func (s *SpecService) GetActiveSpecs() ([]*models.APISpec, error) {
	return s.specRepo.GetActive()
}

// GetSpecByID returns one spec by ID
func (s *SpecService) GetSpecByID(id int) (*models.APISpec, error) {
	return s.specRepo.GetByID(id)
}

// UpdateSpec persists changes to an existing spec
func (s *SpecService) UpdateSpec(spec *models.APISpec) (*models.APISpec, error) {
	return s.specRepo.Update(spec)
}

// ActivateSpec activates a spec by ID
func (s *SpecService) ActivateSpec(id int) error {
	return s.specRepo.SetActive(id, true)
}

// DeactivateSpec deactivates a spec by ID
func (s *SpecService) DeactivateSpec(id int) error {
	return s.specRepo.SetActive(id, false)
}

// DeleteSpec deletes a spec by ID
func (s *SpecService) DeleteSpec(id int) error {
	return s.specRepo.Delete(id)
}

// UpdateAPIKeyToken updates the API key token for a spec by ID
func (s *SpecService) UpdateAPIKeyToken(id int, token *string) error {
	return s.specRepo.UpdateAPIKeyToken(id, token)
}
