package commands

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/benvon/quicknode/internal/models"
	"github.com/spf13/cobra"
)

// maxInputBytes matches the API's quick-input limit
const maxInputBytes = 10000

func newParseCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [text...]",
		Short: "Parse quick input into content, metadata and patterns",
		Long:  "Parse quick input. Arguments are joined with spaces; with no arguments the text is read from stdin.",
		Example: `  quicknode parse "Ship release #high ^friday @sam [launch]"
  echo "Call Bob ^tomorrow" | quicknode parse -o yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := inputText(cmd, args)
			if err != nil {
				return err
			}

			var out models.ParseResponse
			if opts.remote() {
				client, err := opts.apiClient(cmd.Context())
				if err != nil {
					return err
				}
				if err := client.do(cmd.Context(), http.MethodPost, "/parse", models.ParseRequest{Text: text}, &out); err != nil {
					return err
				}
			} else {
				parser, err := opts.parser()
				if err != nil {
					return err
				}
				out = models.NewParseResponse(parser.ParseInput(text))
			}

			return opts.print(cmd.OutOrStdout(), out)
		},
	}
	return cmd
}

// inputText joins args, or reads stdin when there are none. The text is otherwise
// passed through untouched so pattern offsets match what the user typed.
func inputText(cmd *cobra.Command, args []string) (string, error) {
	var text string
	if len(args) > 0 {
		text = strings.Join(args, " ")
	} else {
		raw, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), maxInputBytes+1))
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		text = strings.TrimRight(string(raw), "\r\n")
	}

	if len(text) > maxInputBytes {
		return "", fmt.Errorf("input exceeds %d bytes", maxInputBytes)
	}
	return text, nil
}
