// Package searchcmder provides the search command for querying stored
// documents.
package searchcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	apisearch "github.com/papercomputeco/docsearch/api/search"
	"github.com/papercomputeco/docsearch/pkg/cliui"
	"github.com/papercomputeco/docsearch/pkg/config"
)

var (
	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// previewWidth is the number of terminal cells shown per preview line.
const previewWidth = 80

type searchCommander struct {
	query  string
	topK   int
	answer bool
	quiet  bool

	apiTarget string
}

const searchLongDesc string = `Search stored documents via the docsearch API.

By default the single closest document is returned with its cosine
similarity score. Add --answer to have the server generate an answer from
that document; if generation fails the match is still shown with a warning.

Use --top to list the k closest documents with a preview of each instead.
Use --quiet to print only document ids, one per line.

Example:
  docsearch search "when do we meet"
  docsearch search "when do we meet" --answer
  docsearch search "quarterly revenue" --top 5
  docsearch search "quarterly revenue" --top 3 --quiet`

const searchShortDesc string = "Search stored documents"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.ClientFlags, []string{config.FlagAPITarget})
			cmder.apiTarget = v.GetString("client.api_target")

			if cmder.topK < 0 {
				return fmt.Errorf("--top must be positive, got %d", cmder.topK)
			}
			if cmder.answer && cmder.topK > 0 {
				return errors.New("--answer cannot be combined with --top")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVarP(&cmder.topK, "top", "k", 0, "List the k closest documents instead of the best match")
	cmd.Flags().BoolVar(&cmder.answer, "answer", false, "Generate an answer from the best match")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only document ids, one per line (for piping)")
	config.AddStringFlag(cmd, config.ClientFlags, config.FlagAPITarget, &cmder.apiTarget)

	return cmd
}

func (c *searchCommander) run(ctx context.Context, out io.Writer) error {
	if c.topK > 0 {
		return c.runSearch(ctx, out)
	}
	return c.runRetrieve(ctx, out)
}

func (c *searchCommander) runRetrieve(ctx context.Context, out io.Writer) error {
	output, err := RetrieveAPI(ctx, c.apiTarget, c.query, c.answer)
	if err != nil {
		return err
	}

	if output.Match == nil {
		if !c.quiet {
			fmt.Fprintln(out, "No matching document found.")
		}
		return nil
	}

	if c.quiet {
		fmt.Fprintln(out, output.Match.ID)
		return nil
	}

	fmt.Fprintf(out, "\n%s %s\n\n",
		headerStyle.Render("Best match for:"),
		idStyle.Render(fmt.Sprintf("%q", output.Query)),
	)
	fmt.Fprintf(out, "  %s  %s\n",
		idStyle.Render(output.Match.ID),
		scoreStyle.Render(fmt.Sprintf("score: %.4f", output.Match.Score)),
	)

	if output.Answer != "" {
		rendered, err := cliui.RenderMarkdown(output.Answer)
		if err != nil {
			rendered = output.Answer + "\n"
		}
		fmt.Fprintf(out, "\n%s\n%s", headerStyle.Render("Answer"), rendered)
	}

	for _, w := range output.Warnings {
		fmt.Fprintf(out, "\n  %s %s\n", warnStyle.Render("!"), dimStyle.Render(w))
	}

	fmt.Fprintln(out)
	return nil
}

func (c *searchCommander) runSearch(ctx context.Context, out io.Writer) error {
	output, err := SearchAPI(ctx, c.apiTarget, c.query, c.topK)
	if err != nil {
		return err
	}

	if output.Count == 0 {
		if !c.quiet {
			fmt.Fprintln(out, "No results found.")
		}
		return nil
	}

	if c.quiet {
		for _, result := range output.Results {
			fmt.Fprintln(out, result.ID)
		}
		return nil
	}

	fmt.Fprintf(out, "\n%s %s\n\n",
		headerStyle.Render("Search Results for:"),
		idStyle.Render(fmt.Sprintf("%q", output.Query)),
	)

	for i, result := range output.Results {
		printResult(out, i+1, result)
	}

	return nil
}

func printResult(out io.Writer, rank int, result apisearch.SearchResult) {
	fmt.Fprintf(out, "  %s  %s  %s\n",
		rankStyle.Render(fmt.Sprintf("#%d", rank)),
		scoreStyle.Render(fmt.Sprintf("score: %.4f", result.Score)),
		idStyle.Render(result.ID),
	)

	preview := strings.TrimSpace(result.Preview)
	if preview == "" {
		fmt.Fprintf(out, "  %s\n\n", dimStyle.Render("(empty document)"))
		return
	}
	fmt.Fprintf(out, "  %s\n\n", previewStyle.Render(cliui.Truncate(preview, previewWidth)))
}
