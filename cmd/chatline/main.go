// Command chatline is the offline companion of the chat server: it checks
// configuration files and runs the text tools and the chat pipeline from a
// terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/teilomillet/chatline/config"
	chaterrors "github.com/teilomillet/chatline/errors"
	"github.com/teilomillet/chatline/generation"
	"github.com/teilomillet/chatline/internal/util"
	"github.com/teilomillet/chatline/server/processing"
	"github.com/teilomillet/chatline/storage"
	"github.com/teilomillet/chatline/textutil"
	"go.uber.org/zap"
)

const Version = "v0.1.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	configFile string
	validate   bool
	version    bool
	classify   string
	clean      string
	prompt     string
	ask        string
	copy       bool
	history    bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fset := flag.NewFlagSet("chatline", flag.ContinueOnError)
	fset.SetOutput(stderr)

	var o options
	fset.StringVar(&o.configFile, "config", "chatline.yaml", "Path to configuration file")
	fset.BoolVar(&o.validate, "validate", false, "Validate configuration and exit")
	fset.BoolVar(&o.version, "version", false, "Print version and exit")
	fset.StringVar(&o.classify, "classify", "", "Print the category of a message")
	fset.StringVar(&o.clean, "clean", "", "Clean a raw model response")
	fset.StringVar(&o.prompt, "prompt", "", "Prompt to strip from the -clean input")
	fset.StringVar(&o.ask, "ask", "", "Send a message through the chat pipeline")
	fset.BoolVar(&o.copy, "copy", false, "Copy the -ask or -clean output to the clipboard")
	fset.BoolVar(&o.history, "history", false, "Print the stored chat history")

	if err := fset.Parse(args); err != nil {
		return nil, err
	}
	return &o, nil
}

// run executes the command line and returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if o.version {
		fmt.Fprintf(stdout, "chatline %s\n", Version)
		return 0
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(stderr, "Failed to load .env: %v\n", err)
		return 1
	}

	cfg, err := loadConfig(o.configFile)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}

	if o.validate {
		fmt.Fprintln(stdout, "Configuration is valid")
		return 0
	}

	logger, err := config.NewLogger(cfg.Logging, cfg.Dev.Debug)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	switch {
	case o.classify != "":
		category := textutil.NewClassifier(cfg.Keywords()).Classify(o.classify)
		fmt.Fprintln(stdout, category)

	case o.clean != "":
		cleaned := textutil.NewCleaner().Clean(o.clean, o.prompt)
		fmt.Fprintln(stdout, cleaned)
		copyOutput(o.copy, cleaned, stderr)

	case o.ask != "":
		return ask(cfg, logger, o, stdout, stderr)

	case o.history:
		return printHistory(cfg, stdout, stderr)

	default:
		fmt.Fprintln(stderr, "Nothing to do: use -ask, -classify, -clean, -history or -validate")
		return 2
	}
	return 0
}

// loadConfig reads path, falling back to the defaults when the file does
// not exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config.DefaultConfig(), nil
	}
	return cfg, err
}

func ask(cfg *config.Config, logger *zap.Logger, o *options, stdout, stderr io.Writer) int {
	store, err := storage.Open(cfg.Storage)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to open storage: %v\n", err)
		return 1
	}
	defer store.Close()

	gen, err := generation.New(cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create generator: %v\n", err)
		return 1
	}
	client := generation.NewClient(gen, cfg, logger, nil)
	slots := storage.NewSlots(store, cfg.Storage, logger)

	proc, err := processing.NewProcessor(cfg, client, logger, processing.WithHistory(slots))
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create processor: %v\n", err)
		return 1
	}

	ctx := context.Background()
	if cfg.Server.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Server.RequestTimeout)
		defer cancel()
	}

	resp, err := proc.ProcessRequest(ctx, &processing.Request{
		Message:   o.ask,
		RequestID: util.GenerateID("cli"),
	})
	if err != nil {
		var chatErr *chaterrors.ChatError
		if chaterrors.As(err, &chatErr) && chatErr.Type == chaterrors.ValidationError {
			fmt.Fprintln(stderr, chatErr.Message)
		} else {
			fmt.Fprintln(stderr, proc.UserMessage(err))
		}
		return 1
	}

	fmt.Fprintln(stdout, resp.Content)
	copyOutput(o.copy, resp.Content, stderr)
	return 0
}

func printHistory(cfg *config.Config, stdout, stderr io.Writer) int {
	store, err := storage.Open(cfg.Storage)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to open storage: %v\n", err)
		return 1
	}
	defer store.Close()

	history := storage.NewSlots(store, cfg.Storage, zap.NewNop()).History(context.Background())
	if len(history) == 0 {
		fmt.Fprintln(stdout, "No chat history")
		return 0
	}

	now := time.Now()
	for _, e := range history {
		fmt.Fprintf(stdout, "[%s, %s] (%s)\n> %s\n%s\n\n",
			util.FormatTimestamp(e.Timestamp), util.RelativeTime(e.Timestamp, now),
			e.Category, e.Message, e.Response)
	}
	return 0
}

func copyOutput(enabled bool, text string, stderr io.Writer) {
	if enabled && !util.CopyToClipboard(text) {
		fmt.Fprintln(stderr, "Clipboard is not available")
	}
}
