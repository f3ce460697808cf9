package main

import (
	"io"
	"net/http"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/httpwalk/httpwalk/pkg/client"
)

var (
	fetchMethod string
	fetchManual bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch URL",
	Short: "Perform one orchestrated request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		opts := &client.RequestOptions{Method: fetchMethod}
		if fetchManual {
			opts.Redirect = client.RedirectManual
		}

		resp, err := c.Fetch(cmd.Context(), args[0], opts)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		log.Info().
			Str("url", args[0]).
			Int("status", resp.StatusCode).
			Msg("Fetch complete")

		_, err = io.Copy(os.Stdout, resp.Body)
		return err
	},
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchMethod, "method", "X", http.MethodGet, "HTTP method")
	fetchCmd.Flags().BoolVar(&fetchManual, "manual-redirects", false, "intercept redirects with the redirect policy")
}
