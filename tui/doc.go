// Package tui implements the Bubble Tea progress view for interactive runs.
// It shows one row per configured book with the stage the fetch has reached,
// a spinner while work is in flight, and the final status or error.
package tui
