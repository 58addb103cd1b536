package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	listOwner   string
	listProject string
)

func newListReleasesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "releases",
		Short: "List releases and their assets, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			src, err := newSource(cfg)
			if err != nil {
				return err
			}
			rels, err := src.ListReleases(ctx, listOwner, listProject)
			if err != nil {
				return err
			}

			for _, r := range rels {
				names := make([]string, 0, len(r.Assets))
				for _, a := range r.Assets {
					names = append(names, a.Name)
				}
				tag := r.Tag
				if r.Prerelease {
					tag += " (prerelease)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", tag, strings.Join(names, ","))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&listOwner, "owner", "", "Release owner (required)")
	cmd.Flags().StringVar(&listProject, "project", "", "Release project (required)")

	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}
