package commands

import (
	"net/http"

	"github.com/benvon/quicknode/internal/quickinput"
	"github.com/spf13/cobra"
)

func newPaletteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "palette",
		Short: "List the node color palette",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out []quickinput.CompletionItem
			if opts.remote() {
				client, err := opts.apiClient(cmd.Context())
				if err != nil {
					return err
				}
				if err := client.do(cmd.Context(), http.MethodGet, "/palette", nil, &out); err != nil {
					return err
				}
			} else {
				out = quickinput.ColorPalette()
			}
			return opts.print(cmd.OutOrStdout(), out)
		},
	}
}
