package cmds

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newModelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage the model registry",
	}
	cmd.AddCommand(
		newModelsListCommand(),
		newModelsEnableCommand(true),
		newModelsEnableCommand(false),
		newModelsPinCommand(),
	)
	return cmd
}

func newModelsListCommand() *cobra.Command {
	var enabledOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List models",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := newClient()
			if err != nil {
				return err
			}
			models, err := c.ListModels(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tPROVIDER\tENABLED\tPINNED")
			for _, model := range models {
				if enabledOnly && !model.Enabled {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%v\t%v\n", model.ModelID, model.Provider, model.Enabled, model.Pinned)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&enabledOnly, "enabled", false, "only enabled models")
	return cmd
}

func newModelsEnableCommand(enable bool) *cobra.Command {
	use, short := "enable", "Enable a model"
	if !enable {
		use, short = "disable", "Disable a model"
	}
	return &cobra.Command{
		Use:   use + " <provider> <model-id>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := newClient()
			if err != nil {
				return err
			}
			return c.SetModelEnabled(cmd.Context(), args[0], args[1], enable)
		},
	}
}

func newModelsPinCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pin <provider> <model-id>",
		Short: "Toggle a model's pin (the pinned model is the default)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := newClient()
			if err != nil {
				return err
			}
			return c.ToggleModelPinned(cmd.Context(), args[0], args[1])
		},
	}
}
