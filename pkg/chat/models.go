package chat

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/nanochat/nanochat-desktop/pkg/client"
)

// ModelCatalog is the slice of the remote API the model picker consumes.
type ModelCatalog interface {
	EnabledModels(ctx context.Context) ([]client.UserModel, error)
}

var _ ModelCatalog = (*client.Client)(nil)

// Models tracks the user's enabled models and the one selected for sending.
type Models struct {
	catalog ModelCatalog

	mu         sync.RWMutex
	models     []client.UserModel
	selectedID string
}

func NewModels(catalog ModelCatalog) *Models {
	return &Models{catalog: catalog}
}

// Load fetches the enabled models. If nothing is selected yet, the first
// pinned model wins, then the first model.
func (m *Models) Load(ctx context.Context) error {
	models, err := m.catalog.EnabledModels(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.models = models
	if m.selectedID != "" && m.find(m.selectedID) == nil {
		m.selectedID = ""
	}
	if m.selectedID == "" {
		for _, model := range models {
			if model.Pinned {
				m.selectedID = model.ModelID
				break
			}
		}
	}
	if m.selectedID == "" && len(models) > 0 {
		m.selectedID = models[0].ModelID
	}
	return nil
}

// Models returns the loaded model list.
func (m *Models) Models() []client.UserModel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]client.UserModel(nil), m.models...)
}

// Select picks the model used for subsequent sends.
func (m *Models) Select(modelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.find(modelID) == nil {
		return errors.Errorf("unknown model %q", modelID)
	}
	m.selectedID = modelID
	return nil
}

// Selected returns the currently selected model.
func (m *Models) Selected() (client.UserModel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if model := m.find(m.selectedID); model != nil {
		return *model, true
	}
	return client.UserModel{}, false
}

func (m *Models) find(modelID string) *client.UserModel {
	for i := range m.models {
		if m.models[i].ModelID == modelID {
			return &m.models[i]
		}
	}
	return nil
}
