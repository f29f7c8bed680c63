package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/peterbourgon/ff/v3/ffcli"

	"doorwatch/internal/auth"
	"doorwatch/internal/config"
)

var tokenArgs struct {
	subject string
	ttl     time.Duration
}

func newTokenCommand(cfg *config.Config) *ffcli.Command {
	fs := newFlagSet("token", cfg)
	fs.StringVar(&cfg.SecretKey, "secret-key", cfg.SecretKey, "HS256 signing key shared with serve")
	fs.StringVar(&tokenArgs.subject, "subject", "watcher", "token subject")
	fs.DurationVar(&tokenArgs.ttl, "ttl", 24*time.Hour, "token lifetime")
	return &ffcli.Command{
		Name:       "token",
		ShortUsage: "doorwatch token [flags]",
		ShortHelp:  "Mint a stream token for watchers and browsers",
		FlagSet:    fs,
		Options:    envOptions(),
		Exec: func(ctx context.Context, args []string) error {
			if err := noArgs(args); err != nil {
				return err
			}
			return runToken(cfg, os.Stdout)
		},
	}
}

func runToken(cfg *config.Config, out io.Writer) error {
	if cfg.SecretKey == "" {
		return errors.New("config: SECRET_KEY is required")
	}
	token, err := auth.IssueToken([]byte(cfg.SecretKey), tokenArgs.subject, tokenArgs.ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
