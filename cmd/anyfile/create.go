package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/wippyai/anyfile"
	"github.com/wippyai/anyfile/container"
	"github.com/wippyai/anyfile/metadata"
	"github.com/wippyai/anyfile/wasm"
)

func createCmd() *cli.Command {
	var (
		output       string
		name         string
		description  string
		metadataFile string
		withID       bool
	)

	return &cli.Command{
		Name:      "create",
		Usage:     "Pack a data file and a WebAssembly module into an .any container",
		ArgsUsage: "DATA [WASM]",
		Description: "WASM defaults to the built-in minimal bootstrap module.\n" +
			"--metadata merges a YAML or JSON mapping over the generated keys.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output .any path",
				Required:    true,
				Destination: &output,
			},
			&cli.StringFlag{
				Name:        "name",
				Aliases:     []string{"n"},
				Usage:       "display name (defaults to the data file name)",
				Destination: &name,
			},
			&cli.StringFlag{
				Name:        "description",
				Aliases:     []string{"d"},
				Usage:       "free-form description",
				Destination: &description,
			},
			&cli.StringFlag{
				Name:        "metadata",
				Usage:       "YAML or JSON file with extra metadata",
				Destination: &metadataFile,
			},
			&cli.BoolFlag{
				Name:        "id",
				Usage:       "add a random UUID under the id key",
				Destination: &withID,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() < 1 || args.Len() > 2 {
				return fmt.Errorf("create: expected DATA [WASM], got %d arguments", args.Len())
			}
			dataPath := args.Get(0)

			payload, err := os.ReadFile(dataPath)
			if err != nil {
				return fmt.Errorf("read data: %w", err)
			}

			module := wasm.Minimal().Encode()
			wasmPath := "built-in bootstrap"
			if args.Len() == 2 {
				wasmPath = args.Get(1)
				if module, err = os.ReadFile(wasmPath); err != nil {
					return fmt.Errorf("read wasm: %w", err)
				}
				if !wasm.IsModule(module) {
					log.Warn("module does not start with the WebAssembly preamble", zap.String("path", wasmPath))
					_, _ = fmt.Fprintf(stderr(cmd), "warning: %s does not look like a WebAssembly module\n", wasmPath)
				}
			}

			doc := container.Describe(name, description, filepath.Base(dataPath), payload)
			if metadataFile != "" {
				raw, err := os.ReadFile(metadataFile)
				if err != nil {
					return fmt.Errorf("read metadata: %w", err)
				}
				extra, err := metadata.DecodeYAML(raw)
				if err != nil {
					return fmt.Errorf("metadata %s: %w", metadataFile, err)
				}
				doc.Merge(extra)
			}
			if withID {
				doc.Set("id", metadata.String(uuid.NewString()))
			}

			c := container.Create(module, payload, &doc)
			if err := anyfile.WriteFile(output, c); err != nil {
				return err
			}
			size, _ := c.Size()

			log.Info("container created",
				zap.String("output", output),
				zap.Int("size", size),
				zap.String("module", wasmPath))

			w := stdout(cmd)
			fmt.Fprintf(w, "Created: %s\n", output)
			fmt.Fprintf(w, "  Size: %d bytes\n", size)
			fmt.Fprintf(w, "  Data: %d bytes\n", len(payload))
			fmt.Fprintf(w, "  WASM: %d bytes\n", len(module))
			return nil
		},
	}
}
