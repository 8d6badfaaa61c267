// Package configcmder provides the config command for managing persistent
// docsearch configuration stored in the .docsearch/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent docsearch configuration.

Configuration is stored as config.toml in the .docsearch/ directory and
provides default values for command flags. CLI flags always take precedence
over config file values.

Keys use dotted notation matching the TOML section structure:
  storage.sqlite_path,
  vector_store.provider, vector_store.target, vector_store.collection,
  vector_store.conflict,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  generation.enabled, generation.provider, generation.target,
  generation.model, generation.max_content_chars,
  api.listen, client.api_target,
  timeouts.embed, timeouts.store, timeouts.generate,
  events.provider, events.brokers, events.topic

Use subcommands to get, set, or list configuration values:
  docsearch config set <key> <value>    Set a configuration value
  docsearch config get <key>            Get a configuration value
  docsearch config list                 List all configuration values

Examples:
  docsearch config set vector_store.provider qdrant
  docsearch config set embedding.model nomic-embed-text
  docsearch config get generation.provider
  docsearch config list`

const configShortDesc string = "Manage persistent docsearch configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
