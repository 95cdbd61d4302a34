package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/nanochat/nanochat-desktop/pkg/client"
)

// fakeGateway scripts the remote API per call. The per-call hooks receive a
// 1-based call number so tests can vary responses tick by tick.
type fakeGateway struct {
	mu sync.Mutex

	generateResp client.GenerateResponse
	generateErr  error
	generated    []client.GenerateRequest

	onListMessages    func(call int) ([]client.Message, error)
	onGetConversation func(call int) (client.Conversation, error)

	listMessagesCalls    int
	getConversationCalls int
	listConvsCalls       int
	cancelCalls          int

	conversations []client.Conversation
}

func (f *fakeGateway) Generate(_ context.Context, req client.GenerateRequest) (client.GenerateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generated = append(f.generated, req)
	if f.generateErr != nil {
		return client.GenerateResponse{}, f.generateErr
	}
	return f.generateResp, nil
}

func (f *fakeGateway) ListMessages(_ context.Context, _ string) ([]client.Message, error) {
	f.mu.Lock()
	f.listMessagesCalls++
	call := f.listMessagesCalls
	hook := f.onListMessages
	f.mu.Unlock()
	if hook == nil {
		return nil, nil
	}
	return hook(call)
}

func (f *fakeGateway) GetConversation(_ context.Context, id string) (client.Conversation, error) {
	f.mu.Lock()
	f.getConversationCalls++
	call := f.getConversationCalls
	hook := f.onGetConversation
	f.mu.Unlock()
	if hook == nil {
		return client.Conversation{ID: id, Generating: true}, nil
	}
	return hook(call)
}

func (f *fakeGateway) CancelGeneration(_ context.Context, _ string) (client.CancelResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelCalls++
	return client.CancelResponse{OK: true, Cancelled: true}, nil
}

func (f *fakeGateway) ListConversations(_ context.Context, _ *string) ([]client.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listConvsCalls++
	return append([]client.Conversation(nil), f.conversations...), nil
}

func (f *fakeGateway) messageCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listMessagesCalls
}

func stillGenerating(id string) func(int) (client.Conversation, error) {
	return func(int) (client.Conversation, error) {
		return client.Conversation{ID: id, Generating: true}, nil
	}
}

const testPollInterval = 2 * time.Millisecond

func newTestService(t *testing.T, gw Gateway, cfg Config) *Service {
	t.Helper()
	if cfg.PollInterval == 0 {
		cfg.PollInterval = testPollInterval
	}
	svc, err := NewService(ServiceConfig{Gateway: gw, Config: cfg})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func waitTerminal(t *testing.T, sess *Session) {
	t.Helper()
	select {
	case <-sess.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("session did not reach a terminal status, still %s", sess.Status())
	}
}

func TestStartGeneration_GeneratingTrueBeforeFirstTick(t *testing.T) {
	gw := &fakeGateway{generateResp: client.GenerateResponse{OK: true, ConversationID: "c1"}}
	// A poll interval long enough that no tick fires during the test.
	svc := newTestService(t, gw, Config{PollInterval: time.Hour})

	svc.View().Select("c1")
	require.False(t, svc.View().Snapshot().Generating)

	sess, err := svc.StartGeneration(context.Background(), "c1", client.GenerateRequest{Message: "hi", ModelID: "m1"})
	require.NoError(t, err)
	defer sess.Cancel()

	require.True(t, svc.View().Snapshot().Generating)
	require.Equal(t, StatusAwaitingReply, sess.Status())
	require.Zero(t, gw.messageCalls())
}

func TestSession_CompletesWhenServerReportsNotGenerating(t *testing.T) {
	gw := &fakeGateway{generateResp: client.GenerateResponse{OK: true, ConversationID: "c1"}}
	gw.onGetConversation = func(int) (client.Conversation, error) {
		return client.Conversation{ID: "c1", Title: "First", Generating: false}, nil
	}
	// No assistant content at all: the flag alone must complete the session.
	gw.onListMessages = func(int) ([]client.Message, error) {
		return []client.Message{{ID: "m1", Role: client.RoleUser, Content: "hi"}}, nil
	}
	svc := newTestService(t, gw, Config{})
	svc.View().Select("c1")

	sess, err := svc.StartGeneration(context.Background(), "c1", client.GenerateRequest{Message: "hi", ModelID: "m1"})
	require.NoError(t, err)
	waitTerminal(t, sess)

	require.Equal(t, StatusCompleted, sess.Status())
	require.False(t, svc.View().Snapshot().Generating)
}

func TestSession_CompletesOnFirstNonEmptyAssistantContent(t *testing.T) {
	gw := &fakeGateway{generateResp: client.GenerateResponse{OK: true, ConversationID: "c1"}}
	gw.onGetConversation = stillGenerating("c1")
	gw.onListMessages = func(call int) ([]client.Message, error) {
		switch {
		case call == 1:
			return []client.Message{{ID: "m1", Role: client.RoleUser, Content: "hi"}}, nil
		case call == 2:
			// Row exists but content is still being written: not done yet.
			return []client.Message{
				{ID: "m1", Role: client.RoleUser, Content: "hi"},
				{ID: "m2", Role: client.RoleAssistant, Content: ""},
			}, nil
		default:
			return []client.Message{
				{ID: "m1", Role: client.RoleUser, Content: "hi"},
				{ID: "m2", Role: client.RoleAssistant, Content: "hello"},
			}, nil
		}
	}
	svc := newTestService(t, gw, Config{})
	svc.View().Select("c1")

	sess, err := svc.StartGeneration(context.Background(), "c1", client.GenerateRequest{Message: "hi", ModelID: "m1"})
	require.NoError(t, err)
	waitTerminal(t, sess)

	require.Equal(t, StatusCompleted, sess.Status())
	require.Equal(t, 3, gw.messageCalls())

	snap := svc.View().Snapshot()
	require.False(t, snap.Generating)
	require.Len(t, snap.Messages, 2)
	require.Equal(t, "hello", snap.Messages[1].Content)
}

func TestSession_RenderedContentCountsAsReply(t *testing.T) {
	gw := &fakeGateway{generateResp: client.GenerateResponse{OK: true, ConversationID: "c1"}}
	gw.onGetConversation = stillGenerating("c1")
	gw.onListMessages = func(int) ([]client.Message, error) {
		return []client.Message{{ID: "m2", Role: client.RoleAssistant, ContentHTML: "<p>hello</p>"}}, nil
	}
	svc := newTestService(t, gw, Config{})
	svc.View().Select("c1")

	sess, err := svc.StartGeneration(context.Background(), "c1", client.GenerateRequest{Message: "hi", ModelID: "m1"})
	require.NoError(t, err)
	waitTerminal(t, sess)
	require.Equal(t, StatusCompleted, sess.Status())
}

func TestSession_TimesOutAfterExactlyMaxPolls(t *testing.T) {
	gw := &fakeGateway{generateResp: client.GenerateResponse{OK: true, ConversationID: "c1"}}
	gw.onGetConversation = stillGenerating("c1")
	gw.onListMessages = func(int) ([]client.Message, error) {
		return []client.Message{{ID: "m1", Role: client.RoleUser, Content: "hi"}}, nil
	}
	svc := newTestService(t, gw, Config{MaxPolls: 5})
	svc.View().Select("c1")

	sess, err := svc.StartGeneration(context.Background(), "c1", client.GenerateRequest{Message: "hi", ModelID: "m1"})
	require.NoError(t, err)
	waitTerminal(t, sess)

	require.Equal(t, StatusTimedOut, sess.Status())
	require.Equal(t, 5, gw.messageCalls())
	require.False(t, svc.View().Snapshot().Generating)
	// Timed out is not failed: no error surfaces.
	require.Empty(t, svc.View().Snapshot().LastError)
}

func TestSession_SubmitFailureIsTerminal(t *testing.T) {
	gw := &fakeGateway{generateErr: errors.New("connection refused")}
	svc := newTestService(t, gw, Config{})
	svc.View().Select("c1")

	sess, err := svc.StartGeneration(context.Background(), "c1", client.GenerateRequest{Message: "hi", ModelID: "m1"})
	require.Error(t, err)
	require.Equal(t, StatusFailed, sess.Status())

	snap := svc.View().Snapshot()
	require.False(t, snap.Generating)
	require.Contains(t, snap.LastError, "connection refused")
	// The polling phase is never entered.
	time.Sleep(5 * testPollInterval)
	require.Zero(t, gw.messageCalls())
}

func TestSession_SingleFailedTickDoesNotStopPolling(t *testing.T) {
	gw := &fakeGateway{generateResp: client.GenerateResponse{OK: true, ConversationID: "c1"}}
	gw.onGetConversation = stillGenerating("c1")
	gw.onListMessages = func(call int) ([]client.Message, error) {
		if call == 1 {
			return nil, errors.New("transient network error")
		}
		return []client.Message{{ID: "m2", Role: client.RoleAssistant, Content: "hello"}}, nil
	}
	svc := newTestService(t, gw, Config{})
	svc.View().Select("c1")

	sess, err := svc.StartGeneration(context.Background(), "c1", client.GenerateRequest{Message: "hi", ModelID: "m1"})
	require.NoError(t, err)
	waitTerminal(t, sess)

	require.Equal(t, StatusCompleted, sess.Status())
	require.GreaterOrEqual(t, gw.messageCalls(), 2)
	// Transient tick failures are swallowed, not surfaced.
	require.Empty(t, svc.View().Snapshot().LastError)
}

func TestSession_SummaryFetchFailureFallsBackToContentDetection(t *testing.T) {
	gw := &fakeGateway{generateResp: client.GenerateResponse{OK: true, ConversationID: "c1"}}
	gw.onGetConversation = func(int) (client.Conversation, error) {
		return client.Conversation{}, errors.New("conversation not found")
	}
	gw.onListMessages = func(call int) ([]client.Message, error) {
		if call < 2 {
			return nil, nil
		}
		return []client.Message{{ID: "m2", Role: client.RoleAssistant, Content: "hello"}}, nil
	}
	svc := newTestService(t, gw, Config{})
	svc.View().Select("c1")

	sess, err := svc.StartGeneration(context.Background(), "c1", client.GenerateRequest{Message: "hi", ModelID: "m1"})
	require.NoError(t, err)
	waitTerminal(t, sess)
	require.Equal(t, StatusCompleted, sess.Status())
}

func TestSession_CancelDuringInFlightTickPublishesNothing(t *testing.T) {
	release := make(chan struct{})
	fetching := make(chan struct{}, 1)
	gw := &fakeGateway{generateResp: client.GenerateResponse{OK: true, ConversationID: "c1"}}
	gw.onGetConversation = stillGenerating("c1")
	gw.onListMessages = func(int) ([]client.Message, error) {
		select {
		case fetching <- struct{}{}:
		default:
		}
		<-release
		return []client.Message{{ID: "m2", Role: client.RoleAssistant, Content: "late"}}, nil
	}
	svc := newTestService(t, gw, Config{})
	svc.View().Select("c1")

	sess, err := svc.StartGeneration(context.Background(), "c1", client.GenerateRequest{Message: "hi", ModelID: "m1"})
	require.NoError(t, err)

	// Wait until a tick is blocked inside the fetch, then cancel.
	select {
	case <-fetching:
	case <-time.After(5 * time.Second):
		t.Fatal("no tick started")
	}
	sess.Cancel()
	require.Equal(t, StatusCancelled, sess.Status())
	require.False(t, svc.View().Snapshot().Generating)

	// Let the in-flight tick resolve; its result must be dropped.
	close(release)
	time.Sleep(10 * testPollInterval)
	snap := svc.View().Snapshot()
	require.Empty(t, snap.Messages)
	require.False(t, snap.Generating)
}

func TestSession_CancelIsIdempotent(t *testing.T) {
	gw := &fakeGateway{generateResp: client.GenerateResponse{OK: true, ConversationID: "c1"}}
	svc := newTestService(t, gw, Config{PollInterval: time.Hour})
	svc.View().Select("c1")

	sess, err := svc.StartGeneration(context.Background(), "c1", client.GenerateRequest{Message: "hi", ModelID: "m1"})
	require.NoError(t, err)

	sess.Cancel()
	sess.Cancel()
	require.Equal(t, StatusCancelled, sess.Status())
}

func TestSession_NewConversationNotifiedExactlyOnce(t *testing.T) {
	gw := &fakeGateway{generateResp: client.GenerateResponse{OK: true, ConversationID: "c-new"}}
	gw.onGetConversation = func(int) (client.Conversation, error) {
		return client.Conversation{ID: "c-new", Generating: false}, nil
	}
	svc := newTestService(t, gw, Config{})

	var mu sync.Mutex
	var created []string
	svc.OnNewConversation(func(id string) {
		mu.Lock()
		created = append(created, id)
		mu.Unlock()
	})

	sess, err := svc.StartGeneration(context.Background(), "", client.GenerateRequest{Message: "hi", ModelID: "m1"})
	require.NoError(t, err)
	require.Equal(t, "c-new", sess.ConversationID())
	waitTerminal(t, sess)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"c-new"}, created)

	// The view bound itself to the created conversation.
	require.Equal(t, "c-new", svc.View().Snapshot().ConversationID)
}

func TestSession_CompletionTriggersConversationListRefresh(t *testing.T) {
	gw := &fakeGateway{generateResp: client.GenerateResponse{OK: true, ConversationID: "c1"}}
	gw.conversations = []client.Conversation{{ID: "c1", Title: "Greeting"}}
	gw.onGetConversation = func(int) (client.Conversation, error) {
		return client.Conversation{ID: "c1", Title: "Greeting", Generating: false}, nil
	}
	svc := newTestService(t, gw, Config{})
	svc.View().Select("c1")

	sess, err := svc.StartGeneration(context.Background(), "c1", client.GenerateRequest{Message: "hi", ModelID: "m1"})
	require.NoError(t, err)
	waitTerminal(t, sess)
	require.Equal(t, StatusCompleted, sess.Status())

	require.Eventually(t, func() bool {
		gw.mu.Lock()
		defer gw.mu.Unlock()
		return gw.listConvsCalls >= 1
	}, 5*time.Second, testPollInterval)

	require.Eventually(t, func() bool {
		_, ok := svc.Conversations().Get("c1")
		return ok
	}, 5*time.Second, testPollInterval)
}

// Full walkthrough: new conversation, assistant row appears empty, then the
// content lands.
func TestGenerationScenario_NewConversationThreeTicks(t *testing.T) {
	userMsg := client.Message{ID: "m1", ConversationID: "c1", Role: client.RoleUser, Content: "hi"}
	emptyReply := client.Message{ID: "m2", ConversationID: "c1", Role: client.RoleAssistant, Content: ""}
	fullReply := client.Message{ID: "m2", ConversationID: "c1", Role: client.RoleAssistant, Content: "hello"}

	gw := &fakeGateway{generateResp: client.GenerateResponse{OK: true, ConversationID: "c1"}}
	gw.onGetConversation = stillGenerating("c1")
	gw.onListMessages = func(call int) ([]client.Message, error) {
		switch {
		case call == 1:
			return []client.Message{userMsg}, nil
		case call == 2:
			return []client.Message{userMsg, emptyReply}, nil
		default:
			return []client.Message{userMsg, fullReply}, nil
		}
	}
	svc := newTestService(t, gw, Config{})

	sess, err := svc.StartGeneration(context.Background(), "", client.GenerateRequest{Message: "hi", ModelID: "m1"})
	require.NoError(t, err)
	require.Equal(t, "c1", sess.ConversationID())
	waitTerminal(t, sess)

	require.Equal(t, StatusCompleted, sess.Status())
	require.Equal(t, 3, gw.messageCalls())

	snap := svc.View().Snapshot()
	require.Equal(t, "c1", snap.ConversationID)
	require.False(t, snap.Generating)
	require.Len(t, snap.Messages, 2)
	require.Equal(t, "hello", snap.Messages[1].Content)
}
