package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"doorwatch/internal/config"
	doors "doorwatch/internal/doors/domain"
	"doorwatch/internal/doors/interfaces/wsclient"
	"doorwatch/internal/observability/metrics"
	"doorwatch/internal/page"
	"doorwatch/internal/reflector"
)

const loopCapacity = 64

var watchArgs struct {
	metricsAddr string
}

func newWatchCommand(cfg *config.Config) *ffcli.Command {
	fs := newFlagSet("watch", cfg)
	fs.StringVar(&cfg.Stream.URL, "stream-url", cfg.Stream.URL, "websocket URL of the bridge")
	fs.StringVar(&cfg.Stream.Token, "stream-token", cfg.Stream.Token, "bearer token for the bridge")
	fs.DurationVar(&cfg.Stream.ReconnectInterval, "stream-reconnect-interval", cfg.Stream.ReconnectInterval, "pause between redials; 0 disables redialing")
	fs.StringVar(&watchArgs.metricsAddr, "metrics-addr", "", "serve /metrics on this address; empty disables")
	return &ffcli.Command{
		Name:       "watch",
		ShortUsage: "doorwatch watch [flags]",
		ShortHelp:  "Reflect the live door stream in the terminal",
		LongHelp: strings.TrimSpace(`
Connects to the bridge websocket and reflects door updates into a status
view. Commands are read from stdin, one per line:

    pause | resume | stop | clear
    export <file.csv|file.xlsx|file.pdf|file.html>
    quit
`),
		FlagSet: fs,
		Options: envOptions(),
		Exec: func(ctx context.Context, args []string) error {
			if err := noArgs(args); err != nil {
				return err
			}
			return runWatch(ctx, cfg, os.Stdin, os.Stdout)
		},
	}
}

func runWatch(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	if err := cfg.ValidateWatch(); err != nil {
		return err
	}
	logger, err := newLogger(cfg, "watch")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	metrics.Init()

	client, err := wsclient.New(ctx, cfg.Stream.URL,
		wsclient.WithToken(cfg.Stream.Token),
		wsclient.WithReconnectInterval(cfg.Stream.ReconnectInterval),
		wsclient.WithLogger(logger))
	if err != nil {
		return err
	}
	doc := page.NewDoorPage()
	r, err := reflector.New(page.NewDoorView(doc), client, reflector.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := r.Bind(doc); err != nil {
		return err
	}

	loop := reflector.NewLoop(loopCapacity, logger)
	c := &console{doc: doc, loop: loop, out: out, logger: logger.Named("console"), quit: cancel}
	client.SetEvents(c.wrap(loop.Events(r)))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := loop.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	if watchArgs.metricsAddr != "" {
		server := newMetricsServer(gctx, watchArgs.metricsAddr)
		g.Go(func() error {
			logger.Info("metrics listening", zap.String("addr", watchArgs.metricsAddr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("watch: metrics listen: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}
	loop.Post(func() {
		r.Start()
		c.render()
	})
	// Reads from stdin cannot be interrupted; the reader is left behind on exit.
	go c.readCommands(in)

	err = g.Wait()
	client.Close()
	return err
}

func newMetricsServer(ctx context.Context, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

// console owns the terminal side of the watcher. Everything except
// readCommands runs on the loop goroutine.
type console struct {
	doc    *page.Document
	loop   *reflector.Loop
	out    io.Writer
	logger *zap.Logger
	quit   context.CancelFunc
}

func (c *console) render() {
	fmt.Fprintln(c.out)
	if err := c.doc.RenderText(c.out); err != nil {
		c.logger.Warn("render", zap.Error(err))
	}
}

func (c *console) readCommands(in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "" {
			continue
		}
		cmd, err := parseCommand(scanner.Text())
		if err != nil {
			if !c.loop.Post(func() { fmt.Fprintln(c.out, err) }) {
				return
			}
			continue
		}
		if cmd.quit {
			c.quit()
			return
		}
		if !c.loop.Post(func() { c.apply(cmd) }) {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		c.logger.Warn("read commands", zap.Error(err))
	}
}

func (c *console) apply(cmd consoleCommand) {
	switch {
	case cmd.button != "":
		if err := c.doc.Click(cmd.button); err != nil {
			c.logger.Warn("click", zap.String("id", cmd.button), zap.Error(err))
			return
		}
		c.render()
	case cmd.exportPath != "":
		if err := c.export(cmd.exportPath); err != nil {
			fmt.Fprintf(c.out, "export failed: %v\n", err)
			return
		}
		fmt.Fprintf(c.out, "exported %d rows to %s\n", len(c.doc.LogRows()), cmd.exportPath)
	}
}

func (c *console) export(path string) (err error) {
	format, err := page.FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return c.doc.ExportLog(f, format)
}

// wrap re-renders after each stream event reaches the reflector.
func (c *console) wrap(events wsclient.Events) wsclient.Events {
	return renderingEvents{inner: events, console: c}
}

type renderingEvents struct {
	inner   wsclient.Events
	console *console
}

func (e renderingEvents) Connected() {
	e.inner.Connected()
	e.console.loop.Post(e.console.render)
}

func (e renderingEvents) Disconnected() {
	e.inner.Disconnected()
	e.console.loop.Post(e.console.render)
}

func (e renderingEvents) Update(update doors.DoorUpdate) {
	e.inner.Update(update)
	e.console.loop.Post(e.console.render)
}

type consoleCommand struct {
	button     string
	exportPath string
	quit       bool
}

var commandButtons = map[string]string{
	"pause":  page.IDPauseButton,
	"resume": page.IDResumeButton,
	"stop":   page.IDStopButton,
	"clear":  page.IDClearButton,
}

func parseCommand(line string) (consoleCommand, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return consoleCommand{}, errors.New("empty command")
	}
	name := strings.ToLower(fields[0])
	if id, ok := commandButtons[name]; ok {
		if len(fields) != 1 {
			return consoleCommand{}, fmt.Errorf("%s takes no arguments", name)
		}
		return consoleCommand{button: id}, nil
	}
	switch name {
	case "export":
		if len(fields) != 2 {
			return consoleCommand{}, errors.New("usage: export <file>")
		}
		return consoleCommand{exportPath: fields[1]}, nil
	case "quit", "exit", "q":
		return consoleCommand{quit: true}, nil
	default:
		return consoleCommand{}, fmt.Errorf("unknown command %q", fields[0])
	}
}
