package commands

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/benvon/quicknode/internal/services/oidc"
	"github.com/spf13/cobra"
)

func newCheckAuthCmd(opts *options) *cobra.Command {
	var jwksURL string

	cmd := &cobra.Command{
		Use:   "check-auth",
		Short: "Test JWKS and OAuth2 client-credentials settings",
		Long:  "Fetch the JWKS the API verifies tokens against, and obtain a client-credentials token with the configured client.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			checked := false

			if jwksURL != "" {
				checked = true
				fmt.Fprintf(out, "Testing JWKS endpoint: %s\n", jwksURL)
				manager := oidc.NewJWKSManager(oidc.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}))
				set, err := manager.GetJWKS(cmd.Context(), jwksURL)
				if err != nil {
					return fmt.Errorf("failed to fetch JWKS: %w", err)
				}
				if set.Len() == 0 {
					return fmt.Errorf("JWKS at %s contains no keys", jwksURL)
				}
				fmt.Fprintf(out, "✓ JWKS endpoint is accessible (%d keys)\n", set.Len())
			}

			if opts.tokenURL != "" || opts.clientID != "" {
				checked = true
				fmt.Fprintf(out, "Testing token endpoint: %s\n", opts.tokenURL)
				client, err := oidc.NewClient(oidc.ClientConfig{
					TokenURL:     opts.tokenURL,
					ClientID:     opts.clientID,
					ClientSecret: opts.clientSecret,
					Scopes:       oidc.ParseScopes(opts.scopes),
				})
				if err != nil {
					return fmt.Errorf("failed to configure OAuth2 client: %w", err)
				}
				token, err := client.Token(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to obtain token: %w", err)
				}
				fmt.Fprintf(out, "✓ Obtained %s token", token.Type())
				if !token.Expiry.IsZero() {
					fmt.Fprintf(out, " (expires %s)", token.Expiry.UTC().Format(time.RFC3339))
				}
				fmt.Fprintln(out)
			}

			if !checked {
				return errors.New("nothing to check: set --jwks-url or --token-url and --client-id")
			}
			fmt.Fprintln(out, "✓ auth configuration test passed")
			return nil
		},
	}

	cmd.Flags().StringVar(&jwksURL, "jwks-url", os.Getenv("JWKS_URL"), "JWKS URL the API verifies tokens against")

	return cmd
}
