package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/httpwalk/httpwalk/pkg/paginate"
)

var paginateMaxPages int

var paginateCmd = &cobra.Command{
	Use:   "paginate URL",
	Short: "Walk rel=\"next\" links page by page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		pcfg := cfg.paginateConfig()
		if cmd.Flags().Changed("max-pages") {
			pcfg.MaxPages = paginateMaxPages
		}
		p, err := paginate.New(c, pcfg)
		if err != nil {
			return err
		}

		pages, walkErr := p.FetchAll(cmd.Context(), args[0], nil)
		for _, resp := range pages {
			if _, err := io.Copy(os.Stdout, resp.Body); err != nil {
				resp.Body.Close()
				return err
			}
			resp.Body.Close()
			fmt.Println()
		}
		if walkErr != nil {
			return walkErr
		}

		log.Info().
			Str("url", args[0]).
			Int("pages", len(pages)).
			Msg("Pagination complete")
		return nil
	},
}

func init() {
	paginateCmd.Flags().IntVar(&paginateMaxPages, "max-pages", paginate.Unlimited, "maximum pages to fetch (-1 = unlimited)")
}
