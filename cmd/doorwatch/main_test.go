package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"testing"

	"doorwatch/internal/config"
)

func TestHelpReturnsErrHelp(t *testing.T) {
	for _, args := range [][]string{
		{},
		{"-h"},
		{"serve", "-h"},
		{"watch", "-help"},
	} {
		cfg := config.Default()
		root := newRootCommand(&cfg)
		root.FlagSet.SetOutput(io.Discard)
		for _, sub := range root.Subcommands {
			sub.FlagSet.SetOutput(io.Discard)
		}
		err := root.ParseAndRun(context.Background(), args)
		if !errors.Is(err, flag.ErrHelp) {
			t.Fatalf("%q: expected flag.ErrHelp, got %v", args, err)
		}
	}
}

func TestUnknownFlagIsAnError(t *testing.T) {
	cfg := config.Default()
	root := newRootCommand(&cfg)
	for _, sub := range root.Subcommands {
		sub.FlagSet.SetOutput(io.Discard)
	}
	err := root.ParseAndRun(context.Background(), []string{"token", "-bogus"})
	if err == nil || errors.Is(err, flag.ErrHelp) {
		t.Fatalf("expected parse error, got %v", err)
	}
}
