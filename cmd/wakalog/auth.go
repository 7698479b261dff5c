package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ConfabulousDev/wakalog/internal/wakatime"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize with WakaTime via OAuth",
	Long: `Prints the WakaTime authorization URL and waits on the local redirect
listener for the callback, then exchanges the code and prints the tokens.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RequireOAuth(); err != nil {
			return err
		}

		flow, err := wakatime.NewOAuthFlow(cfg.OAuthClientID, cfg.OAuthClientSecret, cfg.OAuthRedirectAddr)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Open this URL in your browser:")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "  "+flow.AuthURL())
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Waiting for the redirect on %s ...\n", cfg.OAuthRedirectAddr)

		token, err := flow.Wait(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "access_token:  %s\n", token.AccessToken)
		if token.RefreshToken != "" {
			fmt.Fprintf(out, "refresh_token: %s\n", token.RefreshToken)
		}
		if !token.Expiry.IsZero() {
			fmt.Fprintf(out, "expires:       %s\n", token.Expiry.Format("2006-01-02 15:04:05 MST"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
}
