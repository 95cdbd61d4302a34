package chat

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/nanochat/nanochat-desktop/pkg/client"
)

func TestStartGeneration_SecondStartCancelsFirst(t *testing.T) {
	gw := &fakeGateway{generateResp: client.GenerateResponse{OK: true, ConversationID: "c1"}}
	gw.onGetConversation = stillGenerating("c1")
	svc := newTestService(t, gw, Config{PollInterval: time.Hour})
	svc.View().Select("c1")

	first, err := svc.StartGeneration(context.Background(), "c1", client.GenerateRequest{Message: "one", ModelID: "m1"})
	require.NoError(t, err)
	require.Equal(t, StatusAwaitingReply, first.Status())

	second, err := svc.StartGeneration(context.Background(), "c1", client.GenerateRequest{Message: "two", ModelID: "m1"})
	require.NoError(t, err)
	defer second.Cancel()

	require.Equal(t, StatusCancelled, first.Status())
	require.Equal(t, StatusAwaitingReply, second.Status())

	// Only the replacement remains registered.
	live, ok := svc.ActiveSession("c1")
	require.True(t, ok)
	require.Same(t, second, live)

	// After the swap the view shows the new send in progress.
	require.True(t, svc.View().Snapshot().Generating)
}

func TestStartGeneration_StampsConversationIDOnRequest(t *testing.T) {
	gw := &fakeGateway{generateResp: client.GenerateResponse{OK: true, ConversationID: "c1"}}
	svc := newTestService(t, gw, Config{PollInterval: time.Hour})
	svc.View().Select("c1")

	sess, err := svc.StartGeneration(context.Background(), "c1", client.GenerateRequest{Message: "hi", ModelID: "m1"})
	require.NoError(t, err)
	defer sess.Cancel()

	gw.mu.Lock()
	defer gw.mu.Unlock()
	require.Len(t, gw.generated, 1)
	require.Equal(t, "c1", gw.generated[0].ConversationID)
}

func TestStartGeneration_ClearsPreviousError(t *testing.T) {
	gw := &fakeGateway{generateResp: client.GenerateResponse{OK: true, ConversationID: "c1"}}
	svc := newTestService(t, gw, Config{PollInterval: time.Hour})
	svc.View().Select("c1")
	svc.View().ErrorRaised("earlier failure")

	sess, err := svc.StartGeneration(context.Background(), "c1", client.GenerateRequest{Message: "hi", ModelID: "m1"})
	require.NoError(t, err)
	defer sess.Cancel()

	require.Empty(t, svc.View().Snapshot().LastError)
}

func TestBackgroundSessionDoesNotClobberForegroundView(t *testing.T) {
	gw := &fakeGateway{generateResp: client.GenerateResponse{OK: true, ConversationID: "c1"}}
	gw.onGetConversation = stillGenerating("c1")
	gw.onListMessages = func(int) ([]client.Message, error) {
		return []client.Message{{ID: "m1", ConversationID: "c1", Role: client.RoleUser, Content: "hi"}}, nil
	}
	svc := newTestService(t, gw, Config{})
	svc.View().Select("c1")

	sess, err := svc.StartGeneration(context.Background(), "c1", client.GenerateRequest{Message: "hi", ModelID: "m1"})
	require.NoError(t, err)
	defer sess.Cancel()

	// Navigate away while the session keeps polling.
	svc.View().Select("c2")

	require.Eventually(t, func() bool { return gw.messageCalls() >= 2 }, 5*time.Second, testPollInterval)

	snap := svc.View().Snapshot()
	require.Equal(t, "c2", snap.ConversationID)
	require.Empty(t, snap.Messages)
	require.False(t, snap.Generating)
}

func TestSelectConversation_LoadsMessagesOnce(t *testing.T) {
	gw := &fakeGateway{}
	gw.onListMessages = func(int) ([]client.Message, error) {
		return []client.Message{{ID: "m1", ConversationID: "c1", Role: client.RoleUser, Content: "hi"}}, nil
	}
	svc := newTestService(t, gw, Config{PollInterval: time.Hour})

	require.NoError(t, svc.SelectConversation(context.Background(), "c1"))

	snap := svc.View().Snapshot()
	require.Equal(t, "c1", snap.ConversationID)
	require.Len(t, snap.Messages, 1)
	require.False(t, snap.Loading)
	require.False(t, snap.Generating)
	require.Equal(t, 1, gw.messageCalls())
}

func TestSelectConversation_ReattachesToLiveSession(t *testing.T) {
	gw := &fakeGateway{generateResp: client.GenerateResponse{OK: true, ConversationID: "c1"}}
	gw.onListMessages = func(int) ([]client.Message, error) { return nil, nil }
	svc := newTestService(t, gw, Config{PollInterval: time.Hour})
	svc.View().Select("c1")

	sess, err := svc.StartGeneration(context.Background(), "c1", client.GenerateRequest{Message: "hi", ModelID: "m1"})
	require.NoError(t, err)
	defer sess.Cancel()

	// Away and back: the still-running session shows as generating again,
	// without a second submit or a second polling loop.
	require.NoError(t, svc.SelectConversation(context.Background(), "c2"))
	require.NoError(t, svc.SelectConversation(context.Background(), "c1"))

	snap := svc.View().Snapshot()
	require.True(t, snap.Generating)
	gw.mu.Lock()
	generated := len(gw.generated)
	gw.mu.Unlock()
	require.Equal(t, 1, generated)
	require.Equal(t, StatusAwaitingReply, sess.Status())
}

func TestSelectConversation_LoadFailureSurfacesError(t *testing.T) {
	gw := &fakeGateway{}
	gw.onListMessages = func(int) ([]client.Message, error) {
		return nil, errors.New("boom")
	}
	svc := newTestService(t, gw, Config{PollInterval: time.Hour})

	require.Error(t, svc.SelectConversation(context.Background(), "c1"))

	snap := svc.View().Snapshot()
	require.Contains(t, snap.LastError, "boom")
	require.False(t, snap.Loading)
}

func TestCancelGeneration_StopsSessionAndNotifiesServer(t *testing.T) {
	gw := &fakeGateway{generateResp: client.GenerateResponse{OK: true, ConversationID: "c1"}}
	svc := newTestService(t, gw, Config{PollInterval: time.Hour})
	svc.View().Select("c1")

	sess, err := svc.StartGeneration(context.Background(), "c1", client.GenerateRequest{Message: "hi", ModelID: "m1"})
	require.NoError(t, err)

	svc.CancelGeneration(context.Background(), "c1")

	require.Equal(t, StatusCancelled, sess.Status())
	require.False(t, svc.View().Snapshot().Generating)
	_, ok := svc.ActiveSession("c1")
	require.False(t, ok)

	gw.mu.Lock()
	defer gw.mu.Unlock()
	require.Equal(t, 1, gw.cancelCalls)
}

func TestDeleteConversation_StopsSessionAndDeselects(t *testing.T) {
	gw := &fakeGateway{generateResp: client.GenerateResponse{OK: true, ConversationID: "c1"}}
	gw.conversations = []client.Conversation{{ID: "c1", Title: "Doomed"}}
	svc := newTestService(t, gw, Config{PollInterval: time.Hour})
	require.NoError(t, svc.Conversations().Load(context.Background()))
	svc.View().Select("c1")

	sess, err := svc.StartGeneration(context.Background(), "c1", client.GenerateRequest{Message: "hi", ModelID: "m1"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteConversation(context.Background(), "c1"))

	require.Equal(t, StatusCancelled, sess.Status())
	_, ok := svc.Conversations().Get("c1")
	require.False(t, ok)
	require.Empty(t, svc.View().Snapshot().ConversationID)
}

func TestClose_StopsAllSessions(t *testing.T) {
	gw := &fakeGateway{generateResp: client.GenerateResponse{OK: true, ConversationID: "c1"}}
	svc := newTestService(t, gw, Config{PollInterval: time.Hour})
	svc.View().Select("c1")

	sess, err := svc.StartGeneration(context.Background(), "c1", client.GenerateRequest{Message: "hi", ModelID: "m1"})
	require.NoError(t, err)

	require.NoError(t, svc.Close())
	require.Equal(t, StatusCancelled, sess.Status())
}

func TestRegistry_ReleaseIgnoresSupersededSession(t *testing.T) {
	gw := &fakeGateway{}
	view := NewViewState()
	t.Cleanup(func() { _ = view.Close() })

	r := NewRegistry()
	old := newSession(gw, view, nil, Config{})
	replacement := newSession(gw, view, nil, Config{})

	r.Replace("c1", old)
	r.Replace("c1", replacement)

	// The superseded session retiring itself must not evict its replacement.
	r.release("c1", old)
	live, ok := r.Get("c1")
	require.True(t, ok)
	require.Same(t, replacement, live)

	r.release("c1", replacement)
	_, ok = r.Get("c1")
	require.False(t, ok)
}
