// Command devalang-render is a minimal demonstration CLI for the render
// pipeline: it loads a JSON-encoded statement program (or a built-in
// fixture), renders it to a WAV file, and shows a live progress view
// while the render runs in the background.
//
// The command-tree shape uses github.com/spf13/cobra — a dependency
// this project's go.mod declares but never wires into a flag-based
// main.go — giving it the home it never had. The live progress view is
// modeled on a small tea.Program-driven progress dialog pattern
// (tea.Program driving a small bubbletea model with a bubbles/progress
// bar and a go-colorful gradient).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "devalang-render",
		Short: "Render a devalang statement program to a WAV file",
	}
	root.AddCommand(newRenderCommand())
	root.AddCommand(newDemoCommand())
	return root
}
