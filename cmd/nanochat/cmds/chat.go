package cmds

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/nanochat/nanochat-desktop/pkg/chat"
	"github.com/nanochat/nanochat-desktop/pkg/tui"
)

func newChatCommand() *cobra.Command {
	var conversationID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the interactive chat UI",
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

			models := chat.NewModels(c)
			if err := models.Load(cmd.Context()); err != nil {
				log.Warn().Err(err).Msg("could not load model list")
			}

			if conversationID != "" {
				if err := svc.SelectConversation(cmd.Context(), conversationID); err != nil {
					log.Warn().Err(err).Str("conv_id", conversationID).Msg("could not open conversation")
				}
			}

			return tui.Run(cmd.Context(), svc, models)
		},
	}

	cmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "open a specific conversation")
	return cmd
}
