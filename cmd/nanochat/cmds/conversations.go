package cmds

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nanochat/nanochat-desktop/pkg/client"
)

func newConversationsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"convs"},
		Short:   "Manage conversations",
	}
	cmd.AddCommand(
		newConversationsListCommand(),
		newConversationsShowCommand(),
		newConversationsDeleteCommand(),
		newConversationsPinCommand(),
		newConversationsRenameCommand(),
	)
	return cmd
}

func newConversationsListCommand() *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := newClient()
			if err != nil {
				return err
			}
			var filter *string
			if projectID != "" {
				filter = &projectID
			}
			conversations, err := c.ListConversations(cmd.Context(), filter)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tPINNED\tUPDATED")
			for _, conv := range conversations {
				pinned := ""
				if conv.Pinned {
					pinned = "*"
				}
				title := conv.Title
				if conv.Generating {
					title += " (generating)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", conv.ID, title, pinned, conv.UpdatedAt)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "only conversations in this project")
	return cmd
}

func newConversationsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <conversation-id>",
		Short: "Print a conversation's messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := newClient()
			if err != nil {
				return err
			}
			messages, err := c.ListMessages(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, msg := range messages {
				switch msg.Role {
				case client.RoleUser:
					fmt.Fprintf(cmd.OutOrStdout(), "## You\n\n%s\n\n", msg.Content)
				case client.RoleAssistant:
					if err := printReply(cmd, msg, false); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout())
				}
			}
			return nil
		},
	}
}

func newConversationsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <conversation-id>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := newClient()
			if err != nil {
				return err
			}
			if err := c.DeleteConversation(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func newConversationsPinCommand() *cobra.Command {
	var unpin bool

	cmd := &cobra.Command{
		Use:   "pin <conversation-id>",
		Short: "Pin a conversation to the top of the list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := newClient()
			if err != nil {
				return err
			}
			return c.SetConversationPinned(cmd.Context(), args[0], !unpin)
		},
	}

	cmd.Flags().BoolVar(&unpin, "unpin", false, "remove the pin instead")
	return cmd
}

func newConversationsRenameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <conversation-id> <title>",
		Short: "Rename a conversation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := newClient()
			if err != nil {
				return err
			}
			return c.UpdateConversationTitle(cmd.Context(), args[0], args[1])
		},
	}
}
