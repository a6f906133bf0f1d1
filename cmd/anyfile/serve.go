package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/wippyai/anyfile/server"
)

func serveCmd() *cli.Command {
	var (
		addr    string
		maxBody int64
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the info and extract operations over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address (default from config)",
				Destination: &addr,
			},
			&cli.Int64Flag{
				Name:        "max-body",
				Usage:       "largest accepted container in bytes (default from config)",
				Destination: &maxBody,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if !cmd.IsSet("addr") {
				addr = settings.ServerAddress
			}
			if !cmd.IsSet("max-body") {
				maxBody = settings.MaxBodyBytes
			}
			if maxBody <= 0 {
				return fmt.Errorf("serve: --max-body must be positive, got %d", maxBody)
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			eng, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close(context.Background())

			srv := server.New(server.Config{
				Engine:       eng,
				Logger:       log,
				MaxBodyBytes: maxBody,
				StageTimeout: settings.StageTimeout,
				Strict:       settings.Strict,
			})
			_, _ = fmt.Fprintf(stderr(cmd), "listening on %s\n", addr)
			return srv.Start(ctx, addr)
		},
	}
}
