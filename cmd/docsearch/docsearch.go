// Package docsearchcmder is the root docsearch command.
package docsearchcmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/docsearch/cmd/docsearch/auth"
	configcmder "github.com/papercomputeco/docsearch/cmd/docsearch/config"
	initcmder "github.com/papercomputeco/docsearch/cmd/docsearch/init"
	ingestcmder "github.com/papercomputeco/docsearch/cmd/docsearch/ingest"
	searchcmder "github.com/papercomputeco/docsearch/cmd/docsearch/search"
	servecmder "github.com/papercomputeco/docsearch/cmd/docsearch/serve"
	versioncmder "github.com/papercomputeco/docsearch/cmd/version"
)

const docsearchLongDesc string = `docsearch ingests document text, embeds it and answers questions with the
closest stored document.

Run the server, then talk to it:
  docsearch serve                  Run the API (and MCP) server
  docsearch serve --watch ./docs   Also ingest text files dropped into ./docs
  docsearch ingest notes.txt       Ingest a text file
  docsearch search "question"      Find the closest document
  docsearch search "question" --answer
                                   Also generate an answer from it`

const docsearchShortDesc string = "docsearch - embed, store and retrieve documents"

func NewDocsearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "docsearch",
		Short:        docsearchShortDesc,
		Long:         docsearchLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .docsearch/ config directory")

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
