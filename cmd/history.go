package cmd

import (
	"errors"
	"fmt"
	"time"

	"bookfetch/internal/ledger"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show which release populated each target directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Ledger.Path == "" {
				return errors.New("ledger.path is not configured")
			}
			l, err := ledger.Open(cfg.Ledger.Path)
			if err != nil {
				return err
			}
			defer l.Close()

			recs, err := l.List()
			if err != nil {
				return err
			}
			for _, r := range recs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s/%s\t%s\t%s\t%s\n",
					r.TargetDir, r.Owner, r.Project, r.Tag, r.Asset, r.FetchedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
}
