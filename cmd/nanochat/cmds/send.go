package cmds

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nanochat/nanochat-desktop/pkg/chat"
	"github.com/nanochat/nanochat-desktop/pkg/client"
)

func newSendCommand() *cobra.Command {
	var (
		conversationID string
		modelID        string
		webSearch      bool
		temporary      bool
		raw            bool
	)

	cmd := &cobra.Command{
		Use:   "send [message]",
		Short: "Send a message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cfg, err := newClient()
			if err != nil {
				return err
			}
			svc, err := newService(c, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			if modelID == "" {
				models := chat.NewModels(c)
				if err := models.Load(cmd.Context()); err != nil {
					return errors.Wrap(err, "could not pick a model, pass --model")
				}
				selected, ok := models.Selected()
				if !ok {
					return errors.New("no enabled models, pass --model")
				}
				modelID = selected.ModelID
			}

			req := client.GenerateRequest{
				Message:          strings.Join(args, " "),
				ModelID:          modelID,
				WebSearchEnabled: webSearch,
				Temporary:        temporary,
			}
			sess, err := svc.StartGeneration(cmd.Context(), conversationID, req)
			if err != nil {
				return err
			}

			select {
			case <-sess.Done():
			case <-cmd.Context().Done():
				sess.Cancel()
				return cmd.Context().Err()
			}

			switch sess.Status() {
			case chat.StatusCompleted:
			case chat.StatusTimedOut:
				return errors.New("timed out waiting for the reply, it may still be generating server-side")
			default:
				return errors.Errorf("generation did not complete: %s", sess.Status())
			}

			reply, err := lastAssistantMessage(cmd, c, sess.ConversationID())
			if err != nil {
				return err
			}
			return printReply(cmd, reply, raw)
		},
	}

	cmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "continue an existing conversation")
	cmd.Flags().StringVarP(&modelID, "model", "m", "", "model to use (defaults to the pinned model)")
	cmd.Flags().BoolVar(&webSearch, "web-search", false, "enable web search")
	cmd.Flags().BoolVar(&temporary, "temporary", false, "do not keep the conversation")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the reply without markdown rendering")
	return cmd
}

func lastAssistantMessage(cmd *cobra.Command, c *client.Client, conversationID string) (client.Message, error) {
	messages, err := c.ListMessages(cmd.Context(), conversationID)
	if err != nil {
		return client.Message{}, err
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == client.RoleAssistant && messages[i].HasContent() {
			return messages[i], nil
		}
	}
	return client.Message{}, errors.New("the reply is not visible yet")
}

func printReply(cmd *cobra.Command, msg client.Message, raw bool) error {
	if raw || msg.Content == "" {
		fmt.Fprintln(cmd.OutOrStdout(), msg.Content)
		return nil
	}
	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), msg.Content)
		return nil
	}
	out, err := renderer.Render(msg.Content)
	if err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), msg.Content)
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
