package tui

import (
	"github.com/ThreeDotsLabs/watermill/message"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/nanochat/nanochat-desktop/pkg/chat"
)

// viewEventMsg wraps a chat view-state event for the bubbletea update loop.
type viewEventMsg struct {
	event chat.Event
}

// sendFailedMsg reports a submit that failed before polling started.
type sendFailedMsg struct {
	err error
}

// conversationsLoadedMsg signals that the sidebar list changed.
type conversationsLoadedMsg struct{}

// ViewForwardFunc turns watermill view-state messages into bubbletea messages
// and injects them into the program.
func ViewForwardFunc(p *tea.Program) func(msg *message.Message) error {
	return func(msg *message.Message) error {
		msg.Ack()

		ev, err := chat.EventFromMessage(msg)
		if err != nil {
			log.Error().Err(err).Str("payload", string(msg.Payload)).Msg("failed to parse view event")
			return err
		}
		p.Send(viewEventMsg{event: ev})
		return nil
	}
}

// forward pumps the subscription channel through fn until the channel closes.
func forward(ch <-chan *message.Message, fn func(*message.Message) error) {
	for msg := range ch {
		if err := fn(msg); err != nil {
			log.Warn().Err(err).Msg("view event dropped")
		}
	}
}
