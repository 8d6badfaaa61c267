// Package initcmder provides the init command for initializing a local
// .docsearch directory in the current working directory.
package initcmder

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/docsearch/pkg/cliui"
	"github.com/papercomputeco/docsearch/pkg/config"
)

const (
	dirName = ".docsearch"
)

const initLongDesc string = `Initialize a new .docsearch/ directory in the current working directory.

Creates a local .docsearch/ directory that takes precedence over the default
~/.docsearch/ directory for configuration, credentials and the SQLite
document store.

With --preset, a config.toml is written for the chosen provider stack:
  ollama     local embeddings and generation (default stack)
  openai     OpenAI embeddings and generation
  anthropic  local embeddings, Anthropic generation

Examples:
  docsearch init
  docsearch init --preset openai`

const initShortDesc string = "Initialize a local .docsearch/ directory"

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd.OutOrStdout(), preset)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "", "Write config.toml for a provider preset ("+strings.Join(config.ValidPresetNames(), ", ")+")")

	return cmd
}

func runInit(out io.Writer, preset string) error {
	var cfg *config.Config
	if preset != "" {
		var err error
		cfg, err = config.PresetConfig(preset)
		if err != nil {
			return err
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		fmt.Fprintf(out, "Already initialized: %s\n", dir)
	default:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .docsearch directory: %w", err)
		}
		fmt.Fprintf(out, "%s Initialized .docsearch directory: %s\n", cliui.SuccessMark, dir)
	}

	if cfg == nil {
		return nil
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s Wrote %s preset to %s\n", cliui.SuccessMark, cliui.NameStyle.Render(preset), cfger.GetTarget())
	return nil
}
