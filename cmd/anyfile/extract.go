package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/anyfile"
	"github.com/wippyai/anyfile/container"
	"github.com/wippyai/anyfile/loader"
)

const defaultExtractName = "output.bin"

func extractCmd() *cli.Command {
	var (
		output string
		force  bool
	)

	return &cli.Command{
		Name:      "extract",
		Usage:     "Write the payload of an .any file",
		ArgsUsage: "FILE",
		Description: "The output defaults to the original_filename metadata entry, then output.bin.\n" +
			"Use -o - to write to stdout.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output path, - for stdout",
				Destination: &output,
			},
			&cli.BoolFlag{
				Name:        "force",
				Usage:       "write binary data to a terminal",
				Destination: &force,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("extract: expected FILE")
			}
			path := cmd.Args().First()

			c, err := readContainer(path)
			if err != nil {
				return err
			}
			payload, err := runOperation(ctx, cmd, c, loader.OpExtract)
			if err != nil {
				return err
			}

			if output == "-" {
				w := stdout(cmd)
				if isTerminal(w) && !force {
					return errors.New("extract: refusing to write binary payload to a terminal; use --force or -o FILE")
				}
				_, err := w.Write(payload)
				return err
			}

			dest := output
			if dest == "" {
				dest = defaultOutputName(c)
			}
			if err := os.WriteFile(dest, payload, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			log.Info("payload extracted", zap.String("output", dest), zap.Int("size", len(payload)))

			w := stdout(cmd)
			fmt.Fprintf(w, "Extracted to: %s\n", dest)
			fmt.Fprintf(w, "  Size: %d bytes\n", len(payload))
			return nil
		},
	}
}

func runCmd() *cli.Command {
	var output string

	return &cli.Command{
		Name:      "run",
		Usage:     "Run a loader operation (info, extract) and print its result",
		ArgsUsage: "FILE OPERATION",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "write the result to a file instead of stdout",
				Destination: &output,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return fmt.Errorf("run: expected FILE OPERATION")
			}
			c, err := readContainer(cmd.Args().Get(0))
			if err != nil {
				return err
			}
			result, err := runOperation(ctx, cmd, c, loader.Operation(cmd.Args().Get(1)))
			if err != nil {
				return err
			}
			if output != "" {
				return os.WriteFile(output, result, 0o644)
			}
			_, err = stdout(cmd).Write(result)
			return err
		},
	}
}

func readContainer(path string) (*container.Container, error) {
	return anyfile.ReadFile(path, container.WithStrict(settings.Strict))
}

// runOperation dispatches op through a loader backed by a fresh engine.
// Engine warnings go to stderr and never fail the command.
func runOperation(ctx context.Context, cmd *cli.Command, c *container.Container, op loader.Operation) ([]byte, error) {
	var eng loader.Engine
	if op == loader.OpExtract {
		e, err := newEngine(ctx)
		if err != nil {
			return nil, err
		}
		defer e.Close(ctx)
		eng = e
	}

	r := loader.New(eng,
		loader.WithLogger(log),
		loader.WithStrict(settings.Strict),
		loader.WithStageTimeout(settings.StageTimeout),
		loader.WithWarningHandler(func(err error) {
			_, _ = fmt.Fprintf(stderr(cmd), "warning: %v\n", err)
		}))
	return r.RunContainer(ctx, c, op)
}

// defaultOutputName uses the base of original_filename so a crafted entry
// cannot point outside the working directory.
func defaultOutputName(c *container.Container) string {
	name, ok := c.OriginalFilename()
	if !ok {
		return defaultExtractName
	}
	base := filepath.Base(filepath.Clean(name))
	if base == "." || base == ".." || base == string(filepath.Separator) {
		return defaultExtractName
	}
	return base
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
