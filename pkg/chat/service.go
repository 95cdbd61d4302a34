// Package chat tracks in-flight reply generations against a NanoChat server.
// The server's generate endpoint is fire-and-forget and there is no push
// channel, so each send is tracked by a polling session that watches the read
// endpoints until the reply materializes. The package owns the conversation
// view state the UI renders from and guarantees at most one live session per
// conversation.
package chat

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nanochat/nanochat-desktop/pkg/client"
)

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Gateway Gateway
	// Cache is optional; nil disables local persistence of summaries.
	Cache SummaryCache
	// Config tunes the polling loop of every session the service starts.
	Config Config
}

// Service is the surface the UI talks to: start and cancel generations,
// switch the viewed conversation, and subscribe to view-state events.
type Service struct {
	gw       Gateway
	cfg      Config
	view     *ViewState
	list     *ConversationList
	registry *Registry
	logger   zerolog.Logger

	mu        sync.Mutex
	onCreated func(conversationID string)
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Gateway == nil {
		return nil, errors.New("chat service: gateway is nil")
	}
	return &Service{
		gw:       cfg.Gateway,
		cfg:      cfg.Config.withDefaults(),
		view:     NewViewState(),
		list:     NewConversationList(cfg.Gateway, cfg.Cache),
		registry: NewRegistry(),
		logger:   log.With().Str("component", "chat").Logger(),
	}, nil
}

// View returns the subscribable view state.
func (svc *Service) View() *ViewState { return svc.view }

// Conversations returns the sidebar list store.
func (svc *Service) Conversations() *ConversationList { return svc.list }

// Subscribe returns the stream of view-state events.
func (svc *Service) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return svc.view.Subscribe(ctx)
}

// OnNewConversation registers a callback fired exactly once whenever a send
// makes the server create a new conversation.
func (svc *Service) OnNewConversation(fn func(conversationID string)) {
	svc.mu.Lock()
	svc.onCreated = fn
	svc.mu.Unlock()
}

// StartGeneration submits a send for the given conversation (empty ID lets
// the server create one) and returns the session tracking the reply. Any
// session already tracking the same conversation is cancelled first; waiting
// for the reply means watching the session's Done channel or the view events.
func (svc *Service) StartGeneration(ctx context.Context, conversationID string, req client.GenerateRequest) (*Session, error) {
	req.ConversationID = conversationID

	// A send is the explicit user action that clears a lingering error.
	svc.view.ErrorCleared()

	sess := newSession(svc.gw, svc.view, svc.list, svc.cfg)
	sess.onFinished = func(s *Session) {
		if id := s.ConversationID(); id != "" {
			svc.registry.release(id, s)
		}
	}
	sess.onCreated = func(id string) {
		svc.registry.Replace(id, sess)
		svc.mu.Lock()
		fn := svc.onCreated
		svc.mu.Unlock()
		if fn != nil {
			fn(id)
		}
	}

	if conversationID != "" {
		// Supersede any active session before the new one starts polling.
		svc.registry.Replace(conversationID, sess)
	}

	if err := sess.Begin(ctx, req); err != nil {
		return sess, err
	}
	return sess, nil
}

// CancelGeneration cancels the local session for a conversation and asks the
// server, best-effort, to stop generating.
func (svc *Service) CancelGeneration(ctx context.Context, conversationID string) {
	svc.registry.Stop(conversationID)
	if _, err := svc.gw.CancelGeneration(ctx, conversationID); err != nil {
		svc.logger.Warn().Err(err).Str("conv_id", conversationID).Msg("remote cancel failed")
	}
}

// SelectConversation switches the viewed conversation: the snapshot resets,
// messages are loaded once (no polling), and if a session is already tracking
// this conversation the view re-attaches to it instead of restarting it.
func (svc *Service) SelectConversation(ctx context.Context, conversationID string) error {
	svc.view.Select(conversationID)
	if conversationID == "" {
		return nil
	}

	if sess, ok := svc.registry.Get(conversationID); ok && !sess.Status().Terminal() {
		svc.view.GeneratingChanged(conversationID, true)
	}

	messages, err := svc.gw.ListMessages(ctx, conversationID)
	if err != nil {
		svc.view.ErrorRaised(err.Error())
		return err
	}
	svc.view.MessagesUpdated(conversationID, messages)
	return nil
}

// DeleteConversation removes a conversation remotely and locally. An active
// session for it is cancelled first.
func (svc *Service) DeleteConversation(ctx context.Context, conversationID string) error {
	svc.registry.Stop(conversationID)
	type deleter interface {
		DeleteConversation(ctx context.Context, conversationID string) error
	}
	if d, ok := svc.gw.(deleter); ok {
		if err := d.DeleteConversation(ctx, conversationID); err != nil {
			svc.view.ErrorRaised(err.Error())
			return err
		}
	}
	svc.list.Remove(ctx, conversationID)
	if svc.view.Snapshot().ConversationID == conversationID {
		svc.view.Select("")
	}
	return nil
}

// ClearError clears the user-visible error. This is the only way it clears.
func (svc *Service) ClearError() { svc.view.ErrorCleared() }

// ActiveSession returns the live session for a conversation, if any.
func (svc *Service) ActiveSession(conversationID string) (*Session, bool) {
	sess, ok := svc.registry.Get(conversationID)
	if !ok || sess.Status().Terminal() {
		return nil, false
	}
	return sess, true
}

// Close cancels every session and closes the event stream.
func (svc *Service) Close() error {
	svc.registry.StopAll()
	return svc.view.Close()
}
