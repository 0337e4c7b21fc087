package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/streamchat/chat"
	"github.com/tailored-agentic-units/streamchat/observability"
	"github.com/tailored-agentic-units/streamchat/transport"
)

const cliObserver = "streamchat-cli"

type options struct {
	configFile string
	url        string
	transport  string
	sessionID  string
	prompt     string
	logFormat  string
	eventLog   string
	verbose    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "streamchat",
		Short: "Chat with a streaming conversation server",
		Long: `streamchat sends each message to a chat server and prints the reply as it
streams in. With --prompt it sends a single message and exits; otherwise it
reads one message per line from stdin.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "Path to a JSON, YAML, or TOML config file")
	flags.StringVar(&opts.url, "url", "", "Server endpoint (overrides config)")
	flags.StringVar(&opts.transport, "transport", "", "Wire variant: sse, connect, or websocket (overrides config)")
	flags.StringVar(&opts.sessionID, "session-id", "", "Session identifier sent with each message (overrides config)")
	flags.StringVarP(&opts.prompt, "prompt", "p", "", "Send a single message and exit")
	flags.StringVar(&opts.logFormat, "log-format", formatText, "Log format: text, json, or console")
	flags.StringVar(&opts.eventLog, "event-log", "", "Append every controller event as JSON lines to this file")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging to stderr")

	return cmd
}

func run(ctx context.Context, opts options, in io.Reader, out, errOut io.Writer) error {
	cfg, err := chat.LoadConfig(opts.configFile)
	if err != nil {
		return err
	}

	if opts.url != "" {
		cfg.Transport.URL = opts.url
	}
	if opts.transport != "" {
		cfg.Transport.Kind = transport.Kind(opts.transport)
	}
	if opts.sessionID != "" {
		cfg.Session.ID = opts.sessionID
	}

	observer, err := newObserver(opts.logFormat, opts.verbose, errOut)
	if err != nil {
		return err
	}

	events, closeEvents, err := openEventLog(opts.eventLog)
	if err != nil {
		return err
	}
	defer closeEvents()

	observability.RegisterObserver(cliObserver, observability.NewMultiObserver(observer, events))
	cfg.Observer = cliObserver

	controller, err := chat.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create controller: %w", err)
	}
	defer controller.Close()

	printer := newReplyPrinter(out)
	printer.OnTurnsChanged(controller.Store().Turns())
	unsubscribe := controller.Store().Subscribe(printer)
	defer unsubscribe()

	if opts.prompt != "" {
		res, err := send(ctx, controller, opts.prompt)
		if err != nil {
			return err
		}
		return res.Err
	}

	return repl(ctx, controller, in, out)
}

// repl submits one message per input line until EOF or /quit.
func repl(ctx context.Context, controller *chat.Controller, in io.Reader, out io.Writer) error {
	interactive := false
	if f, ok := in.(*os.File); ok {
		interactive = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Fprint(out, "> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		}

		if _, err := send(ctx, controller, line); err != nil {
			return err
		}
	}
}

// send submits text and waits for the reply to finish streaming. Transport
// failures are already visible in the reply content and are only returned
// through the Result.
func send(ctx context.Context, controller *chat.Controller, text string) (chat.Result, error) {
	ex, err := controller.Submit(ctx, text)
	if err != nil {
		return chat.Result{}, err
	}

	res, err := ex.Wait(ctx)
	if err != nil {
		return chat.Result{}, err
	}
	if errors.Is(res.Err, chat.ErrAbandoned) {
		return res, context.Cause(ctx)
	}
	return res, nil
}
