package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/wippyai/anyfile/wasm"
)

func bootstrapCmd() *cli.Command {
	var (
		output string
		pages  uint32
	)

	return &cli.Command{
		Name:  "bootstrap",
		Usage: "Write the minimal bootstrap WebAssembly module",
		Description: "The module exports an empty main function. With --memory it also\n" +
			"exports a memory of the given initial page count.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output .wasm path",
				Required:    true,
				Destination: &output,
			},
			&cli.Uint32Flag{
				Name:        "memory",
				Usage:       "export a memory with this many 64 KiB pages",
				Destination: &pages,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 0 {
				return fmt.Errorf("bootstrap: unexpected arguments")
			}
			m := wasm.Minimal()
			if cmd.IsSet("memory") {
				if pages > wasm.MaxPages {
					return fmt.Errorf("bootstrap: --memory %d exceeds %d pages", pages, wasm.MaxPages)
				}
				m = wasm.WithMemory(pages)
			}
			if err := m.Validate(); err != nil {
				return err
			}
			out := m.Encode()
			if err := os.WriteFile(output, out, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			log.Debug("bootstrap module written", zap.String("output", output), zap.Int("size", len(out)))
			_, _ = fmt.Fprintf(stdout(cmd), "Wrote %s (%d bytes)\n", output, len(out))
			return nil
		},
	}
}
