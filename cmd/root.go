package cmd

import (
	"os"

	"bookfetch/config"
	"bookfetch/internal/fetcher"
	"bookfetch/internal/logger"
	"bookfetch/tui"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	cfgFile string
	cfg     *config.Config

	forceTUI bool
	noTUI    bool
)

var rootCmd = &cobra.Command{
	Use:   "bookfetch",
	Short: "Fetch the latest release archive of documentation books into build directories.",
	Long: `bookfetch downloads the newest release asset of each configured book,
unpacks it into the book's target directory, and removes the archive.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.Init(cfgFile)
		if err := config.BindFlags(cmd.Root().PersistentFlags()); err != nil {
			return err
		}
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		logger.SetLevel(cfg.LogLevel)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		f, closeFn, err := newFetcher(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		reqs := make([]fetcher.Request, 0, len(cfg.Books))
		for _, b := range cfg.Books {
			reqs = append(reqs, requestFor(b))
		}

		if interactive() {
			_, err = tui.Run(cmd.Context(), f, reqs)
			return err
		}
		_, err = f.FetchAll(cmd.Context(), reqs)
		return err
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Log.Error("bookfetch failed", "err", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default ./bookfetch.yaml)")
	pf.String("log-level", "", "Log level: debug | info | warn | error")
	pf.String("token", "", "GitHub token (optional; overrides config and GITHUB_TOKEN)")
	pf.String("policy", "", "Newest release policy: listing | semver")
	pf.String("cache", "", "Archive cache backend: none | local | s3 | gcs")
	pf.String("ledger", "", "Path of the fetch ledger database (empty disables it)")
	pf.String("api-url", "", "GitHub API base URL")

	rootCmd.Flags().BoolVar(&forceTUI, "tui", false, "Always show the progress TUI")
	rootCmd.Flags().BoolVar(&noTUI, "no-tui", false, "Never show the progress TUI")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newFetchBookCmd())
	rootCmd.AddCommand(newListReleasesCmd())
	rootCmd.AddCommand(newHistoryCmd())
}

func interactive() bool {
	switch {
	case noTUI:
		return false
	case forceTUI:
		return true
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}
