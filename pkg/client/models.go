package client

import "context"

// ListModels returns the user's model registry. Some server versions return a
// map keyed by model ID instead of an array; both shapes are accepted.
func (c *Client) ListModels(ctx context.Context) ([]UserModel, error) {
	var models []UserModel
	err := c.get(ctx, "/api/db/user-models", &models)
	if err == nil {
		return models, nil
	}
	if !IsParse(err) {
		return nil, err
	}

	var keyed map[string]UserModel
	if mapErr := c.get(ctx, "/api/db/user-models", &keyed); mapErr != nil {
		return nil, err
	}
	models = make([]UserModel, 0, len(keyed))
	for _, m := range keyed {
		models = append(models, m)
	}
	return models, nil
}

// EnabledModels returns only the models the user has enabled.
func (c *Client) EnabledModels(ctx context.Context) ([]UserModel, error) {
	models, err := c.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	enabled := make([]UserModel, 0, len(models))
	for _, m := range models {
		if m.Enabled {
			enabled = append(enabled, m)
		}
	}
	return enabled, nil
}

// SetModelEnabled enables or disables a model.
func (c *Client) SetModelEnabled(ctx context.Context, provider, modelID string, enabled bool) error {
	return c.post(ctx, "/api/db/user-models", map[string]any{
		"action":   "set",
		"provider": provider,
		"modelId":  modelID,
		"enabled":  enabled,
	}, nil)
}

// ToggleModelPinned flips a model's pinned flag.
func (c *Client) ToggleModelPinned(ctx context.Context, provider, modelID string) error {
	return c.post(ctx, "/api/db/user-models", map[string]any{
		"action":   "togglePinned",
		"provider": provider,
		"modelId":  modelID,
	}, nil)
}
