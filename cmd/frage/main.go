// Command frage sends a chat completion to an OpenAI-compatible backend
// and prints the assistant text. Streaming is the default; tokens appear
// on stdout as the backend produces them.
//
// Usage:
//
//	frage [flags] <prompt...>
//	echo "prompt" | frage [flags]
//
// Configuration is loaded from frage.yaml (or -config) with FRAGE_*
// environment overrides; see pkg/config.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/frage-dev/frage/pkg/api"
	"github.com/frage-dev/frage/pkg/chat"
	"github.com/frage-dev/frage/pkg/config"
	"github.com/frage-dev/frage/pkg/debug"
	"github.com/frage-dev/frage/pkg/observability"
	"github.com/frage-dev/frage/pkg/record"
	"github.com/frage-dev/frage/pkg/record/memory"
	"github.com/frage-dev/frage/pkg/record/postgres"
)

func main() {
	if err := run(); err != nil {
		slog.Error("frage failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  = flag.String("config", "", "path to config file")
		model       = flag.String("model", "", "model override")
		system      = flag.String("system", "", "system instruction")
		maxTokens   = flag.Int("max-tokens", 0, "completion length limit override")
		temperature = flag.Float64("temperature", -1, "sampling temperature override")
		noStream    = flag.Bool("no-stream", false, "wait for the full response instead of streaming")
		listModels  = flag.Bool("models", false, "list available models and exit")
		history     = flag.Int("history", 0, "print the N most recent recorded exchanges and exit")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	debug.Init(cfg.Logging.Debug, cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rec, err := newRecorder(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating recorder: %w", err)
	}
	if rec != nil {
		defer rec.Close()
	}

	if *history > 0 {
		if rec == nil {
			return errors.New("no recorder configured")
		}
		return printHistory(ctx, rec, *history)
	}

	client := chat.New(cfg.Backend.URL, cfg.Credentials(),
		chat.WithTimeout(cfg.Backend.Timeout),
		chat.WithDefaults(cfg.ClientDefaults()),
		chat.WithObserver(observability.NewObserver(nil)),
	)
	defer client.Close()

	if *listModels {
		return printModels(ctx, client)
	}

	prompt, err := readPrompt(flag.Args())
	if err != nil {
		return err
	}

	var messages []api.Message
	if *system != "" {
		messages = append(messages, api.SystemText(*system))
	}
	messages = append(messages, api.UserText(prompt))

	overrides := &chat.Params{Model: *model}
	if *maxTokens > 0 {
		overrides.MaxTokens = maxTokens
	}
	if *temperature >= 0 {
		overrides.Temperature = temperature
	}

	ex := &record.Exchange{
		ID:        record.NewExchangeID(),
		CreatedAt: time.Now().UTC(),
		Model:     chosenModel(cfg, *model),
		Messages:  messages,
		Streamed:  !*noStream,
	}

	if *noStream {
		err = complete(ctx, client, messages, overrides, ex)
	} else {
		err = stream(ctx, client, messages, overrides, ex)
	}

	if rec != nil {
		if err != nil {
			ex.Error = err.Error()
		}
		if saveErr := rec.Save(context.Background(), ex); saveErr != nil {
			slog.Warn("recording exchange failed", "error", saveErr)
		}
	}

	return err
}

func complete(ctx context.Context, client *chat.Client, messages []api.Message, overrides *chat.Params, ex *record.Exchange) error {
	resp, err := client.Complete(ctx, messages, overrides)
	if err != nil {
		return err
	}

	text := resp.Choices[0].Message.Content
	fmt.Println(text)

	ex.Model = resp.Model
	ex.Response = text
	ex.FinishReason = resp.Choices[0].FinishReason
	ex.Usage = resp.Usage
	return nil
}

func stream(ctx context.Context, client *chat.Client, messages []api.Message, overrides *chat.Params, ex *record.Exchange) error {
	events, err := client.Stream(ctx, messages, overrides)
	if err != nil {
		return err
	}

	var text strings.Builder
	for ev := range events {
		if ev.Err != nil {
			ex.Response = text.String()
			return ev.Err
		}
		delta := ev.Chunk.DeltaContent()
		fmt.Print(delta)
		text.WriteString(delta)

		if ev.Chunk.Model != "" {
			ex.Model = ev.Chunk.Model
		}
		for _, choice := range ev.Chunk.Choices {
			if choice.FinishReason != nil {
				ex.FinishReason = *choice.FinishReason
			}
		}
	}
	fmt.Println()

	ex.Response = text.String()
	return nil
}

func printModels(ctx context.Context, client *chat.Client) error {
	models, err := client.ListModels(ctx)
	if err != nil {
		return err
	}
	for _, m := range models {
		fmt.Println(m.ID)
	}
	return nil
}

func printHistory(ctx context.Context, rec record.Recorder, limit int) error {
	exchanges, err := rec.List(ctx, limit)
	if err != nil {
		return err
	}
	for _, ex := range exchanges {
		status := ex.FinishReason
		if ex.Error != "" {
			status = "error: " + debug.Truncate(ex.Error, 60)
		}
		fmt.Printf("%s  %s  %s  [%s]\n",
			ex.CreatedAt.Format(time.RFC3339), ex.ID, ex.Model, status)
		fmt.Printf("  %s\n", debug.Truncate(ex.Response, 120))
	}
	return nil
}

// newRecorder builds the configured recorder, or nil for type "none".
func newRecorder(ctx context.Context, cfg *config.Config) (record.Recorder, error) {
	switch cfg.Recorder.Type {
	case "memory":
		return memory.New(cfg.Recorder.MaxSize), nil
	case "postgres":
		return postgres.New(ctx, postgres.Config{
			DSN:            cfg.Recorder.Postgres.DSN,
			MaxConns:       cfg.Recorder.Postgres.MaxConns,
			MigrateOnStart: cfg.Recorder.Postgres.MigrateOnStart,
		})
	default:
		return nil, nil
	}
}

// readPrompt takes the prompt from argv, or stdin when no args are given.
func readPrompt(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading prompt from stdin: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", errors.New("no prompt given (pass as arguments or on stdin)")
	}
	return prompt, nil
}

func chosenModel(cfg *config.Config, override string) string {
	if override != "" {
		return override
	}
	return cfg.Defaults.Model
}
