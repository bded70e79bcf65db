package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mixbah/pdfi/internal/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	defaultServerURL = "http://localhost:8080"
	defaultTimeout   = 5 * time.Minute
)

const usage = `usage: pdfi [flags] <command> [args]

commands:
  process FILE...        summarize PDFs and images
  history                list processed documents
  delete ID...           delete history entries
  clear                  delete the whole history
  export                 download the history as XLSX
  download ID            print or save a stored summary

flags:
`

type app struct {
	server  string
	timeout time.Duration
	logger  *zap.Logger
	http    *http.Client
	stdout  io.Writer
	stderr  io.Writer
}

func main() {
	_ = godotenv.Load(".env")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) int {
	flags := flag.NewFlagSet("pdfi", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprint(stderr, usage)
		flags.PrintDefaults()
	}

	server := flags.String("server", envOr("PDFI_SERVER_URL", defaultServerURL), "summarizer server base URL")
	logLevel := flags.String("log-level", envOr("PDFI_LOG_LEVEL", "warn"), "log level")
	timeout := flags.Duration("timeout", defaultTimeout, "timeout of one command")
	if err := flags.Parse(args); err != nil {
		return 2
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return 2
	}

	zlog, err := logger.NewConsole(*logLevel)
	if err != nil {
		fmt.Fprintf(stderr, "create logger: %v\n", err)
		return 1
	}
	defer func() { _ = zlog.Sync() }()

	a := &app{
		server:  *server,
		timeout: *timeout,
		logger:  zlog,
		http:    &http.Client{},
		stdout:  stdout,
		stderr:  stderr,
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	command, rest := flags.Arg(0), flags.Args()[1:]
	if err := a.dispatch(ctx, command, rest); err != nil {
		if errors.Is(err, errUsage) {
			flags.Usage()
			return 2
		}
		fmt.Fprintf(stderr, "pdfi %s: %v\n", command, err)
		return 1
	}

	return 0
}

var errUsage = errors.New("usage")

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "process":
		return a.process(ctx, args)
	case "history":
		return a.history(ctx, args)
	case "delete":
		return a.delete(ctx, args)
	case "clear":
		return a.clear(ctx, args)
	case "export":
		return a.export(ctx, args)
	case "download":
		return a.download(ctx, args)
	default:
		return errUsage
	}
}

func envOr(key string, def string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return def
}
