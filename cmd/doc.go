// Package cmd defines the Cobra command tree for the application.
// The root command fetches every configured book, with a progress TUI when
// attached to a terminal, and subcommands fetch a single book, list a
// project's releases, or show the fetch ledger.
package cmd
