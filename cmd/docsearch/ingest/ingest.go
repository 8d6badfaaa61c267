// Package ingestcmder provides the ingest command, which sends a text file
// to a running docsearch server.
package ingestcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/docsearch/api"
	"github.com/papercomputeco/docsearch/pkg/cliui"
	"github.com/papercomputeco/docsearch/pkg/config"
	"github.com/papercomputeco/docsearch/pkg/ingest"
	"github.com/papercomputeco/docsearch/pkg/llm"
)

// requestTimeout covers embedding on the server side.
const requestTimeout = 2 * time.Minute

type ingestCommander struct {
	path      string
	id        string
	apiTarget string
}

const ingestLongDesc string = `Ingest a document into a running docsearch server.

The file must contain already-extracted text (convert PDFs and other formats
first). The document id defaults to the file name without its extension;
ingesting the same id again replaces the stored document unless the server
runs with --conflict reject. Use "-" to read from stdin, which requires --id.

Examples:
  docsearch ingest notes.txt
  docsearch ingest report.txt --id q3-report
  pdftotext paper.pdf - | docsearch ingest - --id paper`

const ingestShortDesc string = "Ingest a text document"

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.ClientFlags, []string{config.FlagAPITarget})
			cmder.apiTarget = v.GetString("client.api_target")
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.path = args[0]
			return cmder.run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&cmder.id, "id", "", "Document id (default: file name without extension)")
	config.AddStringFlag(cmd, config.ClientFlags, config.FlagAPITarget, &cmder.apiTarget)

	return cmd
}

func (c *ingestCommander) run(ctx context.Context, stdin io.Reader, out io.Writer) error {
	text, id, err := c.read(stdin)
	if err != nil {
		return err
	}

	msg := fmt.Sprintf("Ingesting %s %s",
		cliui.NameStyle.Render(id),
		cliui.DimStyle.Render(fmt.Sprintf("%d bytes", len(text))),
	)
	return cliui.Step(out, msg, func() error {
		return IngestAPI(ctx, c.apiTarget, id, text)
	})
}

func (c *ingestCommander) read(stdin io.Reader) (text, id string, err error) {
	id = strings.TrimSpace(c.id)

	var data []byte
	if c.path == "-" {
		if id == "" {
			return "", "", errors.New("--id is required when reading from stdin")
		}
		data, err = io.ReadAll(stdin)
	} else {
		if id == "" {
			id = ingest.IDFromName(c.path)
		}
		data, err = os.ReadFile(c.path)
	}
	if err != nil {
		return "", "", fmt.Errorf("reading document: %w", err)
	}
	if id == "" {
		return "", "", fmt.Errorf("cannot derive a document id from %q; pass --id", c.path)
	}

	return string(data), id, nil
}

// IngestAPI posts a document to the docsearch API.
func IngestAPI(ctx context.Context, apiTarget, id, text string) error {
	ingestURL, err := url.Parse(apiTarget)
	if err != nil {
		return fmt.Errorf("invalid API target URL: %w", err)
	}
	ingestURL.Path = "/v1/documents"

	body, err := json.Marshal(api.IngestRequest{ID: id, Text: text})
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ingestURL.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating ingest request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to docsearch API at %s: %w", apiTarget, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		var errResp llm.ErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("ingest failed (HTTP %d): %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("ingest failed (HTTP %d): %s", resp.StatusCode, string(respBody))
	}

	return nil
}
