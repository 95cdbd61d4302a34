package client

import "context"

// SettingsUpdate carries the mutable user settings. Nil fields are left
// untouched.
type SettingsUpdate struct {
	PrivacyMode             *bool   `json:"privacyMode,omitempty"`
	ContextMemoryEnabled    *bool   `json:"contextMemoryEnabled,omitempty"`
	PersistentMemoryEnabled *bool   `json:"persistentMemoryEnabled,omitempty"`
	Theme                   *string `json:"theme,omitempty"`
}

// GetUserSettings fetches the user's server-side settings.
func (c *Client) GetUserSettings(ctx context.Context) (UserSettings, error) {
	var settings UserSettings
	err := c.get(ctx, "/api/db/user-settings", &settings)
	return settings, err
}

// UpdateUserSettings patches the user's server-side settings.
func (c *Client) UpdateUserSettings(ctx context.Context, updates SettingsUpdate) (UserSettings, error) {
	body := map[string]any{"action": "update"}
	if updates.PrivacyMode != nil {
		body["privacyMode"] = *updates.PrivacyMode
	}
	if updates.ContextMemoryEnabled != nil {
		body["contextMemoryEnabled"] = *updates.ContextMemoryEnabled
	}
	if updates.PersistentMemoryEnabled != nil {
		body["persistentMemoryEnabled"] = *updates.PersistentMemoryEnabled
	}
	if updates.Theme != nil {
		body["theme"] = *updates.Theme
	}
	var settings UserSettings
	err := c.post(ctx, "/api/db/user-settings", body, &settings)
	return settings, err
}
