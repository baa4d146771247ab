package loader

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/toolbridge/toolbridge/pkg/auth"
	"github.com/toolbridge/toolbridge/pkg/models"
	"github.com/toolbridge/toolbridge/pkg/openapi"
	"github.com/toolbridge/toolbridge/pkg/server"
	"github.com/toolbridge/toolbridge/pkg/services"
)

// SpecLoader loads OpenAPI documents from files, URLs or the database and
// keeps the indexed operations cached per source for the process lifetime.
// Spec documents are assumed stable within a session, so there is no eviction.
type SpecLoader struct {
	specService      *services.SpecService
	authStateManager *auth.StateManager

	mu          sync.RWMutex
	loadedSpecs map[string]*LoadedSpec
}

// LoadedSpec is one indexed specification with its source metadata.
type LoadedSpec struct {
	Endpoint   string
	Doc        *openapi3.T
	Spec       *models.APISpec
	Operations []openapi.Operation
	AuthType   string
	LoadedAt   time.Time
}

// NewSpecLoader creates a new specification loader. specService may be nil in
// file-only mode.
func NewSpecLoader(specService *services.SpecService, authStateManager *auth.StateManager) *SpecLoader {
	return &SpecLoader{
		specService:      specService,
		authStateManager: authStateManager,
		loadedSpecs:      make(map[string]*LoadedSpec),
	}
}

// LoadFromDatabase loads all active specifications from the database.
func (sl *SpecLoader) LoadFromDatabase(ctx context.Context) ([]*LoadedSpec, error) {
	if sl.specService == nil {
		return nil, server.NewErrorWithContext(ctx, server.ErrorTypeDatabase, "spec service not initialized", "")
	}

	specs, err := sl.specService.GetActiveSpecs()
	if err != nil {
		return nil, server.WrapWithContext(ctx, err, server.ErrorTypeDatabase, "failed to load specs from database")
	}

	var loadedSpecs []*LoadedSpec
	for _, spec := range specs {
		loadedSpec, err := sl.processSpec(ctx, strings.TrimPrefix(spec.EndpointPath, "/"), []byte(spec.SpecContent), spec)
		if err != nil {
			log.Printf("Failed to process spec for endpoint %s: %v", spec.EndpointPath, err)
			continue
		}
		loadedSpecs = append(loadedSpecs, loadedSpec)
	}

	if sl.authStateManager != nil {
		sl.authStateManager.UpdateSpecs(specs)
	}

	return loadedSpecs, nil
}

// LoadFromFiles loads specifications from file paths or URLs.
func (sl *SpecLoader) LoadFromFiles(ctx context.Context, filePaths []string) ([]*LoadedSpec, error) {
	var loadedSpecs []*LoadedSpec

	for _, filePath := range filePaths {
		loadedSpec, err := sl.loadFromFile(ctx, filePath)
		if err != nil {
			log.Printf("Failed to load spec from %s: %v", filePath, err)
			continue
		}
		loadedSpecs = append(loadedSpecs, loadedSpec)
	}

	return loadedSpecs, nil
}

func (sl *SpecLoader) loadFromFile(ctx context.Context, filePath string) (*LoadedSpec, error) {
	var content []byte
	var err error

	if strings.HasPrefix(filePath, "http://") || strings.HasPrefix(filePath, "https://") {
		content, err = sl.loadFromURL(ctx, filePath)
	} else {
		content, err = sl.loadFromLocalFile(ctx, filePath)
	}
	if err != nil {
		return nil, err
	}

	return sl.processSpec(ctx, endpointFromPath(filePath), content, nil)
}

func (sl *SpecLoader) loadFromURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, server.WrapWithContext(ctx, err, server.ErrorTypeNetwork, "failed to create request")
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, server.WrapWithContext(ctx, err, server.ErrorTypeNetwork, "failed to fetch spec from URL")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, server.NewErrorWithContext(ctx, server.ErrorTypeNetwork,
			fmt.Sprintf("HTTP %d when fetching spec", resp.StatusCode), url)
	}

	return io.ReadAll(resp.Body)
}

func (sl *SpecLoader) loadFromLocalFile(ctx context.Context, filePath string) ([]byte, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, server.NewErrorWithContext(ctx, server.ErrorTypeNotFound, "spec file not found", filePath)
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, server.WrapWithContext(ctx, err, server.ErrorTypeInternal, "failed to read spec file")
	}

	return content, nil
}

// processSpec parses, validates and indexes raw spec content, storing the
// result under its endpoint key.
func (sl *SpecLoader) processSpec(ctx context.Context, endpoint string, content []byte, spec *models.APISpec) (*LoadedSpec, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(content)
	if err != nil {
		return nil, server.WrapWithContext(ctx, err, server.ErrorTypeValidation, "failed to parse OpenAPI spec")
	}

	if err := doc.Validate(ctx); err != nil {
		return nil, server.WrapWithContext(ctx, err, server.ErrorTypeValidation, "OpenAPI spec validation failed")
	}

	schemeName, authType, authPath := auth.ExtractAuthSchemeFromSpec(doc)
	if authPath != "" {
		log.Printf("%s API: security scheme '%s' with %s authentication: %s", endpoint, schemeName, authType, authPath)
	} else {
		log.Printf("%s API: no security scheme declared in spec", endpoint)
	}

	loaded := &LoadedSpec{
		Endpoint:   endpoint,
		Doc:        doc,
		Spec:       spec,
		Operations: openapi.ExtractOperations(doc),
		AuthType:   authType,
		LoadedAt:   time.Now(),
	}

	sl.mu.Lock()
	sl.loadedSpecs[endpoint] = loaded
	sl.mu.Unlock()

	return loaded, nil
}

// Get returns the cached spec for an endpoint.
func (sl *SpecLoader) Get(endpoint string) (*LoadedSpec, bool) {
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	spec, ok := sl.loadedSpecs[endpoint]
	return spec, ok
}

// GetLoadedSpecs returns a snapshot of all currently loaded specifications.
func (sl *SpecLoader) GetLoadedSpecs() map[string]*LoadedSpec {
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	out := make(map[string]*LoadedSpec, len(sl.loadedSpecs))
	for k, v := range sl.loadedSpecs {
		out[k] = v
	}
	return out
}

// Reload reloads all database-backed specifications and returns the endpoint
// names that were refreshed.
func (sl *SpecLoader) Reload(ctx context.Context) ([]string, error) {
	if sl.specService == nil {
		return nil, nil
	}

	loadedSpecs, err := sl.LoadFromDatabase(ctx)
	if err != nil {
		return nil, err
	}

	var reloadedAPIs []string
	for _, spec := range loadedSpecs {
		reloadedAPIs = append(reloadedAPIs, spec.Endpoint)
	}
	return reloadedAPIs, nil
}

// ReloadEndpoint re-reads one database-backed specification by its endpoint
// name and replaces its cache entry, leaving every other loaded spec alone.
func (sl *SpecLoader) ReloadEndpoint(ctx context.Context, endpoint string) error {
	if sl.specService == nil {
		return server.NewErrorWithContext(ctx, server.ErrorTypeDatabase, "spec service not initialized", "")
	}

	ops, doc, err := sl.specService.LoadSpecByEndpoint("/" + endpoint)
	if err != nil {
		return server.WrapWithContext(ctx, err, server.ErrorTypeNotFound, "failed to reload spec")
	}

	_, authType, _ := auth.ExtractAuthSchemeFromSpec(doc)

	var spec *models.APISpec
	if sl.authStateManager != nil {
		spec, _ = sl.authStateManager.GetSpec(endpoint)
	}

	sl.mu.Lock()
	sl.loadedSpecs[endpoint] = &LoadedSpec{
		Endpoint:   endpoint,
		Doc:        doc,
		Spec:       spec,
		Operations: ops,
		AuthType:   authType,
		LoadedAt:   time.Now(),
	}
	sl.mu.Unlock()

	log.Printf("Reloaded API %q with %d operations", endpoint, len(ops))
	return nil
}

// endpointFromPath extracts an endpoint name from a file path or URL.
func endpointFromPath(path string) string {
	if strings.HasPrefix(path, "http") {
		parts := strings.Split(path, "/")
		if len(parts) > 0 {
			filename := parts[len(parts)-1]
			if idx := strings.Index(filename, "?"); idx != -1 {
				filename = filename[:idx]
			}
			if idx := strings.LastIndex(filename, "."); idx != -1 {
				filename = filename[:idx]
			}
			return strings.ToLower(filename)
		}
	}

	baseName := filepath.Base(path)
	if idx := strings.LastIndex(baseName, "."); idx != -1 {
		baseName = baseName[:idx]
	}
	return strings.ToLower(baseName)
}
