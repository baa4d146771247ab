package auth

import (
	"strings"
	"sync"

	"github.com/toolbridge/toolbridge/pkg/models"
)

// StateManager holds the currently loaded specs keyed by endpoint, so request
// handlers can look up the stored auth defaults for the API they target.
type StateManager struct {
	specs map[string]*models.APISpec
	mutex sync.RWMutex
}

func NewStateManager() *StateManager {
	return &StateManager{
		specs: make(map[string]*models.APISpec),
	}
}

func (sm *StateManager) UpdateSpecs(specs []*models.APISpec) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.specs = make(map[string]*models.APISpec)
	for _, spec := range specs {
		endpoint := strings.TrimPrefix(spec.EndpointPath, "/")
		sm.specs[endpoint] = spec
	}
}

func (sm *StateManager) GetSpec(endpoint string) (*models.APISpec, bool) {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	spec, exists := sm.specs[endpoint]
	return spec, exists
}
