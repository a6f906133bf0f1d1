package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/anyfile/config"
	"github.com/wippyai/anyfile/engine"
	"github.com/wippyai/anyfile/loader"
	"github.com/wippyai/anyfile/server"
)

var (
	configPath string
	logLevel   string
	strict     bool

	// resolved in setup
	settings config.Config
	log      = zap.NewNop()
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "anyfile",
		Usage: "Create, inspect and unpack .any self-describing containers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Usage:       "path to config.toml",
				Destination: &configPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Value:       config.DefaultLogLevel,
				Destination: &logLevel,
			},
			&cli.BoolFlag{
				Name:        "strict",
				Usage:       "reject bytes after the metadata region",
				Destination: &strict,
			},
		},
		Before: setup,
		After: func(ctx context.Context, cmd *cli.Command) error {
			_ = log.Sync()
			return nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			createCmd(),
			infoCmd(),
			extractCmd(),
			runCmd(),
			inspectCmd(),
			serveCmd(),
			bootstrapCmd(),
		},
	}
}

// setup loads the config file, applies global flag overrides and installs
// the logger in every package that logs.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	} else if _, err := os.Stat(path); err != nil {
		return ctx, fmt.Errorf("config: %w", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return ctx, err
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = logLevel
	}
	if cmd.IsSet("strict") {
		cfg.Strict = strict
	}
	if err := cfg.Validate(); err != nil {
		return ctx, err
	}

	lvl, _ := cfg.Level()
	l, err := newLogger(lvl, stderr(cmd))
	if err != nil {
		return ctx, fmt.Errorf("init logger: %w", err)
	}

	settings = cfg
	log = l
	engine.SetLogger(l)
	loader.SetLogger(l)
	server.SetLogger(l)
	return ctx, nil
}

// newLogger builds a console logger writing to w.
func newLogger(lvl zapcore.Level, w io.Writer) (*zap.Logger, error) {
	if w == nil {
		return nil, errors.New("no log writer")
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(zapcore.AddSync(w)),
		zap.NewAtomicLevelAt(lvl),
	)
	return zap.New(core), nil
}

// newEngine creates a wazero engine honoring the configured memory limit.
func newEngine(ctx context.Context) (*engine.WazeroEngine, error) {
	return engine.NewWazeroEngine(ctx, &engine.Config{MemoryLimitPages: settings.MemoryLimitPages})
}

func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func stderr(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}
