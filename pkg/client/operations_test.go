package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListMessages(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/db/messages", r.URL.Path)
		require.Equal(t, "c1", r.URL.Query().Get("conversationId"))
		_, _ = w.Write([]byte(`[
			{"id":"m1","conversationId":"c1","role":"user","content":"hi","createdAt":"2026-01-01T00:00:00Z"},
			{"id":"m2","conversationId":"c1","role":"assistant","content":"","createdAt":"2026-01-01T00:00:01Z"}
		]`))
	}))

	messages, err := c.ListMessages(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, RoleUser, messages[0].Role)
	require.True(t, messages[0].HasContent())
	require.False(t, messages[1].HasContent())
}

func TestGenerate(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate-message", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "hi", req.Message)
		require.Equal(t, "m1", req.ModelID)
		require.Empty(t, req.ConversationID)

		_, _ = w.Write([]byte(`{"ok":true,"conversation_id":"c1"}`))
	}))

	resp, err := c.Generate(context.Background(), GenerateRequest{Message: "hi", ModelID: "m1"})
	require.NoError(t, err)
	require.True(t, resp.OK)
	require.Equal(t, "c1", resp.ConversationID)
}

func TestCancelGeneration(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/cancel-generation", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "c1", body["conversation_id"])
		_, _ = w.Write([]byte(`{"ok":true,"cancelled":true}`))
	}))

	resp, err := c.CancelGeneration(context.Background(), "c1")
	require.NoError(t, err)
	require.True(t, resp.Cancelled)
}

func TestListConversations_ProjectFilter(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "p1", r.URL.Query().Get("projectId"))
		_, _ = w.Write([]byte(`[{"id":"c1","title":"First","userId":"u1","pinned":false,"generating":true,"createdAt":"","updatedAt":""}]`))
	}))

	projectID := "p1"
	conversations, err := c.ListConversations(context.Background(), &projectID)
	require.NoError(t, err)
	require.Len(t, conversations, 1)
	require.True(t, conversations[0].Generating)
}

func TestListModels_AcceptsKeyedObject(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"m1": {"modelId":"m1","provider":"openai","enabled":true,"pinned":true},
			"m2": {"modelId":"m2","provider":"openai","enabled":false,"pinned":false}
		}`))
	}))

	models, err := c.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
}

func TestEnabledModels_FiltersDisabled(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"modelId":"m1","provider":"openai","enabled":true,"pinned":false},
			{"modelId":"m2","provider":"openai","enabled":false,"pinned":false}
		]`))
	}))

	models, err := c.EnabledModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	require.Equal(t, "m1", models[0].ModelID)
}

func TestUpdateProject_UsesPatch(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		_, _ = w.Write([]byte(`{"id":"p1","name":"renamed","createdAt":"","updatedAt":""}`))
	}))
	defer srv.Close()
	c, err := New(srv.URL, "key")
	require.NoError(t, err)

	name := "renamed"
	project, err := c.UpdateProject(context.Background(), "p1", ProjectUpdate{Name: &name})
	require.NoError(t, err)
	require.Equal(t, http.MethodPatch, gotMethod)
	require.Equal(t, "renamed", project.Name)
}
