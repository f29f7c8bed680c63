// Command doorwatch bridges door sensor readings to live status pages and
// hosts a console reflector for the stream.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"go.uber.org/zap"

	"doorwatch/internal/config"
	"doorwatch/internal/logging"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	root := newRootCommand(&cfg)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ParseAndRun(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "doorwatch: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand(cfg *config.Config) *ffcli.Command {
	fs := flag.NewFlagSet("doorwatch", flag.ContinueOnError)
	root := &ffcli.Command{
		Name:       "doorwatch",
		ShortUsage: "doorwatch <subcommand> [flags]",
		ShortHelp:  "Live door status bridge and watcher",
		FlagSet:    fs,
		Subcommands: []*ffcli.Command{
			newServeCommand(cfg),
			newWatchCommand(cfg),
			newPublishCommand(cfg),
			newTokenCommand(cfg),
		},
	}
	root.Exec = func(context.Context, []string) error {
		fmt.Fprintln(fs.Output(), ffcli.DefaultUsageFunc(root))
		return flag.ErrHelp
	}
	return root
}

// newFlagSet returns a flag set carrying the logging flags every subcommand
// shares.
func newFlagSet(name string, cfg *config.Config) *flag.FlagSet {
	fs := flag.NewFlagSet("doorwatch "+name, flag.ContinueOnError)
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: json or console")
	return fs
}

// envOptions map flags such as -http-addr to HTTP_ADDR.
func envOptions() []ff.Option {
	return []ff.Option{ff.WithEnvVarNoPrefix()}
}

func newLogger(cfg *config.Config, command string) (*zap.Logger, error) {
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("command", command)), nil
}

func noArgs(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %q", args)
	}
	return nil
}
