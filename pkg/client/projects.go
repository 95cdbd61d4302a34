package client

import (
	"context"
	"net/http"
	"net/url"
)

// ProjectUpdate carries the mutable fields of a project. Nil fields are left
// untouched.
type ProjectUpdate struct {
	Name         *string `json:"name,omitempty"`
	Description  *string `json:"description,omitempty"`
	SystemPrompt *string `json:"systemPrompt,omitempty"`
	Color        *string `json:"color,omitempty"`
}

// ListProjects returns all projects.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.get(ctx, "/api/projects", &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// GetProject fetches a single project.
func (c *Client) GetProject(ctx context.Context, id string) (Project, error) {
	var project Project
	err := c.get(ctx, "/api/projects/"+url.PathEscape(id), &project)
	return project, err
}

// CreateProject creates a project.
func (c *Client) CreateProject(ctx context.Context, name string, options ProjectUpdate) (Project, error) {
	body := map[string]any{"name": name}
	if options.Description != nil {
		body["description"] = *options.Description
	}
	if options.SystemPrompt != nil {
		body["systemPrompt"] = *options.SystemPrompt
	}
	if options.Color != nil {
		body["color"] = *options.Color
	}
	var project Project
	err := c.post(ctx, "/api/projects", body, &project)
	return project, err
}

// UpdateProject patches a project.
func (c *Client) UpdateProject(ctx context.Context, id string, updates ProjectUpdate) (Project, error) {
	var project Project
	err := c.do(ctx, http.MethodPatch, "/api/projects/"+url.PathEscape(id), updates, &project)
	return project, err
}

// DeleteProject removes a project.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/projects/"+url.PathEscape(id), nil, nil)
}
