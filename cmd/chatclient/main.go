package main

import (
	"bufio"
	"chat-hub/client"
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/view"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL    string `envconfig:"CHAT_SERVER_URL" default:"ws://localhost:8080/chat/ws"`
	Name         string `envconfig:"CHAT_NAME" required:"true"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"INFO"`
	Colours      bool   `envconfig:"CHAT_COLOURS" default:"true"`
	TimelineSize int    `envconfig:"CHAT_TIMELINE_SIZE" default:"200"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Load configuration from environment variables.
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Establish the WebSocket connection and join.
	c, err := client.Dial(ctx, log, config.ServerURL, config.TimelineSize)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		log.Info("Closing connection...")
		_ = c.Close()
	}()

	renderer := view.NewRenderer(os.Stdout, config.Colours)
	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx, client.Handler{
			OnEvent:        func(e event.Event) { renderer.Event(e) },
			OnParticipants: func(ids []domain.Identity) { renderer.Participants(ids) },
			OnError:        renderer.Error,
		})
	}()

	if err := c.Join(config.Name); err != nil {
		return exitRuntime, err
	}
	fmt.Printf(">>> Connected to %s as %s (/who lists participants, Ctrl+C to quit)\n",
		config.ServerURL, config.Name)

	// 4. Stdin loop. Lines become send commands until stdin or the socket closes.
	lines := make(chan string)
	go readLines(os.Stdin, lines)
	for {
		select {
		case <-ctx.Done():
			return exitOK, nil
		case err := <-done:
			if err != nil {
				return exitRuntime, err
			}
			return exitOK, nil
		case line, ok := <-lines:
			if !ok {
				return exitOK, nil
			}
			if err := dispatch(c, line); err != nil {
				return exitRuntime, err
			}
		}
	}
}

type commander interface {
	Send(text string) error
	RequestParticipants() error
}

func dispatch(c commander, line string) error {
	switch strings.TrimSpace(line) {
	case "/who":
		return c.RequestParticipants()
	default:
		return c.Send(line)
	}
}

func readLines(r io.Reader, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
}
