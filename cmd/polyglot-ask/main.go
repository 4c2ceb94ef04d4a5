package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"polyglot/internal/app"
	"polyglot/internal/catalog"
	"polyglot/internal/config"
	"polyglot/internal/pipeline"

	flag "github.com/spf13/pflag"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("polyglot-ask", flag.ContinueOnError)
	fs.SetOutput(stderr)
	question := fs.StringP("question", "q", "", "typed question; wins over the transcript when non-empty")
	audio := fs.StringP("audio", "a", "", "path to a recorded question")
	language := fs.StringP("language", "l", catalog.DefaultLanguage, "reply language")
	modelLabel := fs.StringP("model", "m", catalog.DefaultModelLabel, "model label from the catalog")
	catalogFile := fs.String("catalog", "", "YAML catalog file (overrides CATALOG_FILE)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := app.LoadDotEnv(); err != nil {
		fmt.Fprintf(stderr, "config error: %v\n", err)
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "config error: %v\n", err)
		return 1
	}
	if *catalogFile != "" {
		cfg.CatalogFile = *catalogFile
	}

	logger := app.NewLogger(stderr, cfg.LogLevel)
	components, err := app.Build(cfg, logger, nil)
	if err != nil {
		fmt.Fprintf(stderr, "startup error: %v\n", err)
		return 1
	}

	lang, ok := components.Catalog.Language(*language)
	if !ok {
		fmt.Fprintf(stderr, "unsupported language %q\n", *language)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := components.Pipeline.Run(ctx, pipeline.Request{
		AudioPath:      *audio,
		Text:           *question,
		TargetLanguage: lang.Name,
		ModelLabel:     *modelLabel,
	})
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	printResult(stdout, result)
	return 0
}

func printResult(w io.Writer, result pipeline.Result) {
	if result.EmptyInput {
		fmt.Fprintln(w, "no question: type one with --question or record one with --audio")
		return
	}
	if result.Transcript != "" {
		fmt.Fprintf(w, "transcript: %s\n", result.Transcript)
	}
	fmt.Fprintf(w, "model: %s\n", result.ModelID)
	fmt.Fprintf(w, "reply:\n%s\n", result.Reply)
	if result.Audio != nil {
		fmt.Fprintf(w, "audio: %s\n", result.Audio.Path)
	}
}
