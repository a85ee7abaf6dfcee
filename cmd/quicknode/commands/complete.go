package commands

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/benvon/quicknode/internal/models"
	"github.com/benvon/quicknode/internal/quickinput"
	"github.com/spf13/cobra"
)

func newCompleteCmd(opts *options) *cobra.Command {
	var (
		cursor int
		kind   string
		query  string
	)

	cmd := &cobra.Command{
		Use:   "complete [text...]",
		Short: "Suggest completions for the token before the cursor",
		Long: `Suggest completions for the token being typed before the cursor.
The cursor is a byte offset and defaults to the end of the text.
With --kind, list the candidates of one pattern kind filtered by --query instead.
With only --query, search every candidate table, grouped by section.`,
		Example: `  quicknode complete "Review PR ^to"
  quicknode complete --cursor 9 "Call ^tom and more"
  quicknode complete --kind color --query bl
  quicknode complete --query urgent`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if kind != "" {
				return completeKind(cmd, opts, kind, query)
			}
			if query != "" && len(args) == 0 {
				return searchCompletions(cmd, opts, query)
			}

			text := strings.Join(args, " ")
			if cursor < 0 {
				cursor = len(text)
			}
			if cursor > len(text) {
				return fmt.Errorf("cursor %d is past the end of the text (%d bytes)", cursor, len(text))
			}

			var out quickinput.CompletionResult
			if opts.remote() {
				client, err := opts.apiClient(cmd.Context())
				if err != nil {
					return err
				}
				req := models.CompletionRequest{Text: text, Cursor: &cursor}
				if err := client.do(cmd.Context(), http.MethodPost, "/completions", req, &out); err != nil {
					return err
				}
			} else if result := quickinput.UniversalCompletionSource(text, cursor); result != nil {
				out = *result
			} else {
				out = quickinput.CompletionResult{From: cursor, Options: []quickinput.CompletionItem{}}
			}

			return opts.print(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().IntVar(&cursor, "cursor", -1, "Cursor byte offset (default: end of text)")
	cmd.Flags().StringVar(&kind, "kind", "", "List candidates of one pattern kind (date, priority, assignee, status, tag, color, fontSize, checkbox)")
	cmd.Flags().StringVar(&query, "query", "", "Filter for --kind, or a search across all kinds on its own")

	return cmd
}

func completeKind(cmd *cobra.Command, opts *options, kind, query string) error {
	if !quickinput.IsValidKind(kind) {
		return fmt.Errorf("unknown pattern kind %q", kind)
	}

	var out []quickinput.CompletionItem
	if opts.remote() {
		client, err := opts.apiClient(cmd.Context())
		if err != nil {
			return err
		}
		path := "/completions/" + url.PathEscape(kind) + "?" + url.Values{"q": {query}}.Encode()
		if err := client.do(cmd.Context(), http.MethodGet, path, nil, &out); err != nil {
			return err
		}
	} else {
		out = quickinput.GetCompletionsForPattern(quickinput.PatternKind(kind), query)
	}
	if out == nil {
		out = []quickinput.CompletionItem{}
	}

	return opts.print(cmd.OutOrStdout(), out)
}

func searchCompletions(cmd *cobra.Command, opts *options, query string) error {
	var out []quickinput.CompletionItem
	if opts.remote() {
		client, err := opts.apiClient(cmd.Context())
		if err != nil {
			return err
		}
		path := "/completions?" + url.Values{"q": {query}}.Encode()
		if err := client.do(cmd.Context(), http.MethodGet, path, nil, &out); err != nil {
			return err
		}
	} else {
		out = quickinput.SearchCompletions(query)
	}
	if out == nil {
		out = []quickinput.CompletionItem{}
	}

	return opts.print(cmd.OutOrStdout(), out)
}
