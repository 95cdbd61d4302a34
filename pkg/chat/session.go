package chat

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/nanochat/nanochat-desktop/pkg/client"
)

const (
	// DefaultPollInterval is the delay between polls for the reply.
	DefaultPollInterval = 500 * time.Millisecond
	// DefaultMaxPolls bounds the polling loop (180 * 500ms = 90s ceiling).
	DefaultMaxPolls = 180
)

// Config tunes the polling loop. Zero values fall back to the defaults; tests
// shrink the interval to keep runs fast.
type Config struct {
	PollInterval time.Duration
	MaxPolls     int
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxPolls <= 0 {
		c.MaxPolls = DefaultMaxPolls
	}
	return c
}

// Session tracks one in-flight generation for a conversation. The server's
// generate endpoint only acknowledges the request, so the session polls the
// read endpoints until the reply materializes, the server clears its
// generating flag, or the poll ceiling is reached.
//
// Lifecycle: submitting -> awaiting_reply -> completed | timed_out | failed |
// cancelled. Once terminal, a session never mutates the view state again;
// a tick still in flight when Cancel returns re-checks liveness before
// publishing and drops its result.
type Session struct {
	gw   Gateway
	view *ViewState
	list *ConversationList
	cfg  Config

	// onCreated fires exactly once when the server assigned a fresh
	// conversation ID, after the view was bound to it.
	onCreated func(conversationID string)
	// onFinished retires the session from its registry.
	onFinished func(*Session)

	logger zerolog.Logger

	mu             sync.Mutex
	conversationID string
	status         Status
	polls          int
	stopTick       context.CancelFunc
	done           chan struct{}

	finishOnce sync.Once
}

func newSession(gw Gateway, view *ViewState, list *ConversationList, cfg Config) *Session {
	return &Session{
		gw:     gw,
		view:   view,
		list:   list,
		cfg:    cfg.withDefaults(),
		status: StatusSubmitting,
		done:   make(chan struct{}),
		logger: log.With().Str("component", "chat").Logger(),
	}
}

// ConversationID returns the bound conversation ID, empty until the server
// acknowledged a request that created a new conversation.
func (s *Session) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Done closes when the session reaches a terminal status.
func (s *Session) Done() <-chan struct{} { return s.done }

// Begin submits the generation request and, on success, starts the polling
// loop. A submit failure is terminal: the error is surfaced to the view state
// and no polling happens. Begin does not wait for the reply; watch Done or
// the view-state events for progress.
func (s *Session) Begin(ctx context.Context, req client.GenerateRequest) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Generating flips before the submit call so observers see the send
	// immediately, mirroring the order the UI depends on.
	s.view.GeneratingChanged(req.ConversationID, true)

	resp, err := s.gw.Generate(ctx, req)
	if err != nil {
		s.mu.Lock()
		if s.status.Terminal() {
			s.mu.Unlock()
			return err
		}
		s.status = StatusFailed
		convID := req.ConversationID
		s.conversationID = convID
		close(s.done)
		s.mu.Unlock()

		s.logger.Error().Err(err).Str("conv_id", req.ConversationID).Msg("generation submit failed")
		s.view.ErrorRaised(err.Error())
		s.view.GeneratingChanged(convID, false)
		s.finish()
		return err
	}

	convID := resp.ConversationID
	if convID == "" {
		convID = req.ConversationID
	}
	if convID == "" {
		err := errors.New("server did not return a conversation id")
		s.mu.Lock()
		if !s.status.Terminal() {
			s.status = StatusFailed
			close(s.done)
		}
		s.mu.Unlock()
		s.view.ErrorRaised(err.Error())
		s.view.GeneratingChanged("", false)
		s.finish()
		return err
	}
	created := req.ConversationID == ""

	s.mu.Lock()
	if s.status.Terminal() {
		// Cancelled while the submit was in flight.
		s.mu.Unlock()
		return nil
	}
	s.conversationID = convID
	s.status = StatusAwaitingReply
	tickCtx, cancel := context.WithCancel(context.Background())
	s.stopTick = cancel
	s.mu.Unlock()

	if created {
		s.view.Bind(convID)
		if s.onCreated != nil {
			s.onCreated(convID)
		}
		// Binding leaves the generating flag untouched; make sure the new
		// conversation carries it.
		s.view.GeneratingChanged(convID, true)
	}

	s.logger.Debug().
		Str("conv_id", convID).
		Dur("poll_interval", s.cfg.PollInterval).
		Int("max_polls", s.cfg.MaxPolls).
		Msg("generation acknowledged, polling for reply")

	go s.poll(tickCtx)
	return nil
}

// Cancel moves any non-terminal state to cancelled and tears the timer down
// before returning, so no further tick can fire. Cancelling a terminal
// session is a no-op.
func (s *Session) Cancel() {
	s.mu.Lock()
	if s.status.Terminal() {
		s.mu.Unlock()
		return
	}
	s.status = StatusCancelled
	if s.stopTick != nil {
		s.stopTick()
	}
	convID := s.conversationID
	close(s.done)
	s.mu.Unlock()

	s.logger.Debug().Str("conv_id", convID).Msg("generation cancelled")
	s.view.GeneratingChanged(convID, false)
	s.finish()
}

func (s *Session) poll(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.tick(ctx) {
				return
			}
		}
	}
}

// tick runs one polling iteration and reports whether the loop should stop.
func (s *Session) tick(ctx context.Context) bool {
	s.mu.Lock()
	if s.status != StatusAwaitingReply {
		s.mu.Unlock()
		return true
	}
	s.polls++
	poll := s.polls
	convID := s.conversationID
	s.mu.Unlock()

	// Fire both fetches concurrently. The summary fetch is best-effort: its
	// failure degrades to "generating state unknown" and must not disturb
	// the messages fetch.
	var (
		messages []client.Message
		msgErr   error
		summary  *client.Conversation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := s.gw.ListMessages(gctx, convID)
		if err != nil {
			msgErr = err
			return nil
		}
		messages = m
		return nil
	})
	g.Go(func() error {
		conv, err := s.gw.GetConversation(gctx, convID)
		if err != nil {
			s.logger.Debug().Err(err).Str("conv_id", convID).Int("poll", poll).Msg("conversation summary not available yet")
			return nil
		}
		summary = &conv
		return nil
	})
	_ = g.Wait()

	if msgErr != nil {
		// Transient failures never abort tracking; only the poll ceiling can
		// end an unproductive loop.
		s.logger.Warn().Err(msgErr).Str("conv_id", convID).Int("poll", poll).Msg("poll tick failed, will retry")
	}

	next := StatusAwaitingReply
	switch {
	case summary != nil && !summary.Generating:
		next = StatusCompleted
	case msgErr == nil && assistantReplyArrived(messages):
		next = StatusCompleted
	case poll >= s.cfg.MaxPolls:
		next = StatusTimedOut
	}

	s.mu.Lock()
	if s.status != StatusAwaitingReply {
		// Cancelled or superseded while the fetches were in flight; drop the
		// results on the floor.
		s.mu.Unlock()
		return true
	}
	terminal := next.Terminal()
	if terminal {
		s.status = next
		if s.stopTick != nil {
			s.stopTick()
		}
		close(s.done)
	}
	s.mu.Unlock()

	// Publish every fetched snapshot, complete or not, so partial server-side
	// writes show up as they arrive.
	if msgErr == nil {
		s.view.MessagesUpdated(convID, messages)
	}
	if summary != nil && s.list != nil {
		s.list.ApplyUpdate(*summary)
	}

	if !terminal {
		return false
	}

	s.view.GeneratingChanged(convID, false)
	switch next {
	case StatusCompleted:
		s.logger.Debug().Str("conv_id", convID).Int("poll", poll).Msg("generation completed")
		if s.list != nil {
			// One authoritative refresh of the summaries for list views.
			go func() { _ = s.list.Load(context.Background()) }()
		}
	case StatusTimedOut:
		s.logger.Warn().Str("conv_id", convID).Int("poll", poll).Msg("gave up polling, generation may still be running remotely")
	}
	s.finish()
	return true
}

func (s *Session) finish() {
	s.finishOnce.Do(func() {
		if s.onFinished != nil {
			s.onFinished(s)
		}
	})
}

// assistantReplyArrived reports whether the most recent assistant message has
// observable content. Assistant rows are created before their content is
// written, so a bare row is not enough.
func assistantReplyArrived(messages []client.Message) bool {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == client.RoleAssistant {
			return messages[i].HasContent()
		}
	}
	return false
}
