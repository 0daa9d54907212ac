package main

import (
	"context"
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/devalang/core/internal/engine"
	"github.com/devalang/core/internal/sampleprovider"
	"github.com/devalang/core/internal/statement"
)

var rootCtx = context.Background()

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

func newRenderCommand() *cobra.Command {
	var (
		programPath string
		outPath     string
		sampleRate  int
		channels    int
		bankDir     string
		projectRoot string
		noTUI       bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a JSON-encoded statement program to WAV",
		RunE: func(cmd *cobra.Command, args []string) error {
			program, err := loadProgram(programPath)
			if err != nil {
				return fmt.Errorf("load program: %w", err)
			}

			opts := engine.DefaultOptions(outPath)
			opts.SampleRate = sampleRate
			opts.Channels = channels

			fs := sampleprovider.NewFilesystem(projectRoot)
			if bankDir != "" {
				if _, err := fs.LoadBankManifest(bankDir); err != nil {
					return fmt.Errorf("load bank manifest: %w", err)
				}
			}
			opts.Samples = fs

			return runRender(rootCtx, program, opts, noTUI)
		},
	}

	cmd.Flags().StringVar(&programPath, "program", "", "path to a JSON-encoded statement program (required)")
	cmd.Flags().StringVar(&outPath, "out", "out.wav", "output WAV file path")
	cmd.Flags().IntVar(&sampleRate, "sample-rate", 44100, "output sample rate")
	cmd.Flags().IntVar(&channels, "channels", 2, "output channel count")
	cmd.Flags().StringVar(&bankDir, "bank-dir", "", "directory containing a bank.toml to load")
	cmd.Flags().StringVar(&projectRoot, "project-root", ".", "root directory plain sample paths are resolved against")
	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "disable the live progress view")
	_ = cmd.MarkFlagRequired("program")

	return cmd
}

func newDemoCommand() *cobra.Command {
	var outPath string
	var noTUI bool

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Render a small built-in fixture program to WAV",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.DefaultOptions(outPath)
			return runRender(rootCtx, fixtureProgram(), opts, noTUI)
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "demo.wav", "output WAV file path")
	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "disable the live progress view")
	return cmd
}

func loadProgram(path string) ([]statement.Statement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var program []statement.Statement
	if err := jsonCodec.Unmarshal(data, &program); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return program, nil
}

func runRender(ctx context.Context, program []statement.Statement, opts engine.Options, noTUI bool) error {
	if noTUI {
		result, diags, err := engine.Render(ctx, program, opts)
		for _, d := range diags {
			fmt.Fprintln(os.Stderr, d.Error())
		}
		if err != nil {
			return err
		}
		fmt.Printf("wrote %s (%.2fs)\n", result.OutputPath, result.DurationSeconds)
		return nil
	}
	return runWithProgressView(ctx, program, opts)
}
