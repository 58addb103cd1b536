// Package ghrel provides the GitHub release utilities used by the CLI and TUI.
// It lists a repository's releases through the GitHub REST API and downloads a
// release asset by owner/project/tag/asset name from the public download host,
// with optional token-based authentication.
package ghrel
