package cmd

import (
	"context"
	"fmt"
	"time"

	"bookfetch/config"

	"github.com/spf13/cobra"
)

var (
	fetchOwner   string
	fetchProject string
	fetchTarget  string
	fetchAsset   string
	fetchClean   bool
	fetchTimeout time.Duration
)

func newFetchBookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the newest release archive of one project into a directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if fetchTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, fetchTimeout)
				defer cancel()
			}

			book := config.Book{
				Owner:         fetchOwner,
				Project:       fetchProject,
				TargetDir:     fetchTarget,
				ExpectedAsset: fetchAsset,
				Clean:         fetchClean,
			}
			if err := book.Validate(); err != nil {
				return err
			}

			f, closeFn, err := newFetcher(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := f.Fetch(ctx, requestFor(book))
			if err != nil {
				return err
			}

			switch {
			case res.Skipped:
				fmt.Fprintf(cmd.OutOrStdout(), "Unchanged: %s (%s)\n", res.TargetDir, res.Tag)
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "Fetched: %s %s -> %s\n", res.Tag, res.Asset, res.TargetDir)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&fetchOwner, "owner", "", "Release owner (required)")
	cmd.Flags().StringVar(&fetchProject, "project", "", "Release project (required)")
	cmd.Flags().StringVar(&fetchTarget, "target", "", "Directory to unpack into (required)")
	cmd.Flags().StringVar(&fetchAsset, "asset", "", "Expected asset filename (optional; first asset otherwise)")
	cmd.Flags().BoolVar(&fetchClean, "clean", false, "Remove the target directory before unpacking")
	cmd.Flags().DurationVar(&fetchTimeout, "timeout", 0, "Overall time limit (0 means none)")

	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}
