package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/benvon/quicknode/internal/quickinput"
	"github.com/spf13/cobra"
)

// options are the persistent flags shared by every command
type options struct {
	output       string
	server       string
	timezone     string
	tokenURL     string
	clientID     string
	clientSecret string
	scopes       string

	// now overrides the clock in tests
	now func() time.Time
}

// NewRootCmd creates the quicknode command tree
func NewRootCmd() *cobra.Command {
	return newRootCmd(&options{now: time.Now})
}

func newRootCmd(opts *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "quicknode",
		Short:         "Parse and complete mind-map quick input",
		Long:          "CLI for the quick-input parser. Runs locally, or against a quicknode API with --server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := newFormatter(opts.output); err != nil {
				return err
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.output, "output", "o", "json", "Output format: json or yaml")
	flags.StringVar(&opts.server, "server", os.Getenv("QUICKNODE_SERVER"), "quicknode API base URL; parses locally when empty")
	flags.StringVar(&opts.timezone, "timezone", envOr("QUICKNODE_TIMEZONE", "Local"), "Time zone for relative dates in local mode")
	flags.StringVar(&opts.tokenURL, "token-url", os.Getenv("QUICKNODE_TOKEN_URL"), "OAuth2 token endpoint for --server")
	flags.StringVar(&opts.clientID, "client-id", os.Getenv("QUICKNODE_CLIENT_ID"), "OAuth2 client ID for --server")
	flags.StringVar(&opts.clientSecret, "client-secret", os.Getenv("QUICKNODE_CLIENT_SECRET"), "OAuth2 client secret for --server")
	flags.StringVar(&opts.scopes, "scopes", os.Getenv("QUICKNODE_SCOPES"), "Comma-separated OAuth2 scopes")

	rootCmd.AddCommand(newParseCmd(opts))
	rootCmd.AddCommand(newCompleteCmd(opts))
	rootCmd.AddCommand(newPaletteCmd(opts))
	rootCmd.AddCommand(newCheckAuthCmd(opts))

	return rootCmd
}

// parser builds a local parser in the configured time zone
func (o *options) parser() (*quickinput.Parser, error) {
	loc, err := time.LoadLocation(o.timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load time zone %q: %w", o.timezone, err)
	}
	return quickinput.NewParser(quickinput.WithClock(o.now), quickinput.WithLocation(loc)), nil
}

// remote reports whether commands should call the API
func (o *options) remote() bool {
	return o.server != ""
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
