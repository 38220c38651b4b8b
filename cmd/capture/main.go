package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/eleven-am/menu-capture/internal/bootstrap"
	"github.com/eleven-am/menu-capture/internal/capture"
	"github.com/eleven-am/menu-capture/internal/completion"
	"github.com/eleven-am/menu-capture/internal/dto"
	"github.com/eleven-am/menu-capture/internal/imaging"
	"github.com/eleven-am/menu-capture/internal/relay"
	"github.com/eleven-am/menu-capture/internal/shared"
	"github.com/eleven-am/menu-capture/internal/workspace"
)

func main() {
	message := flag.String("m", "", "additional context for the menu")
	verbose := flag.Bool("v", false, "log to stderr")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-m message] [-v] <image path>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := bootstrap.LoadConfig()

	level := slog.LevelError
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	root, err := workspace.NewRoot(cfg.WorkspaceRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid workspace root: %v\n", err)
		os.Exit(1)
	}

	preprocessor := imaging.NewPreprocessor(imaging.Config{
		Quality:      cfg.ImageQuality,
		MaxDimension: cfg.ImageMaxDimension,
		MaxPixels:    cfg.ImageMaxPixels,
	}, imaging.NewArtifactWriter(cfg.LogRoot), logger)

	client := completion.NewClient(completion.Config{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.OpenAIModel,
		MaxTokens:   cfg.OpenAIMaxTokens,
		Temperature: cfg.OpenAITemperature,
		Timeout:     cfg.CompletionTimeout,
	}, logger)

	service := capture.NewService(root, preprocessor, client, nil, nil, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pending, err := service.Open(ctx, dto.CaptureRequest{
		TargetPath:  flag.Arg(0),
		UserMessage: *message,
	}, shared.ModeStream)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed: %v\n", err)
		os.Exit(1)
	}

	out := bufio.NewWriter(os.Stdout)
	session, err := relay.New(logger).Pump(ctx, pending.Stream, relay.NewWriterSink(out), func() { pending.Stream.Close() })
	service.Finish(ctx, pending, session, err)
	fmt.Fprintln(os.Stdout)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Stream aborted: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Artifact: %s\n", pending.Image.ArtifactPath)
}
