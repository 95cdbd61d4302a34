// Package cmds holds the nanochat subcommands.
package cmds

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/nanochat/nanochat-desktop/pkg/chat"
	"github.com/nanochat/nanochat-desktop/pkg/client"
	"github.com/nanochat/nanochat-desktop/pkg/config"
	"github.com/nanochat/nanochat-desktop/pkg/persistence/convcache"
)

// configPath is set by the root command's --config flag.
var configPath *string

// Register attaches all subcommands to the root.
func Register(root *cobra.Command, configFlag *string) {
	configPath = configFlag
	root.AddCommand(
		newChatCommand(),
		newSendCommand(),
		newConversationsCommand(),
		newModelsCommand(),
		newProjectsCommand(),
		newConfigCommand(),
	)
}

func loadConfig() (*config.Config, error) {
	path := ""
	if configPath != nil {
		path = *configPath
	}
	return config.Load(path)
}

func newClient() (*client.Client, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	c, err := client.New(cfg.ServerURL, cfg.APIKey)
	if err != nil {
		return nil, nil, err
	}
	return c, cfg, nil
}

// newService builds the chat service with the local summary cache. A cache
// failure degrades to no persistence instead of blocking the client.
func newService(c *client.Client, cfg *config.Config) (*chat.Service, error) {
	var cache chat.SummaryCache
	if dir, err := config.Dir(); err == nil {
		if err := os.MkdirAll(dir, 0o750); err == nil {
			store, storeErr := convcache.New(filepath.Join(dir, "conversations.db"))
			if storeErr != nil {
				log.Warn().Err(storeErr).Msg("conversation cache unavailable, continuing without it")
			} else {
				cache = store
			}
		}
	}

	svc, err := chat.NewService(chat.ServiceConfig{
		Gateway: c,
		Cache:   cache,
		Config: chat.Config{
			PollInterval: cfg.PollInterval(),
			MaxPolls:     cfg.MaxPolls,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not build chat service")
	}
	return svc, nil
}
