// cmd/chat is a terminal chat client for the social API.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/saberactivo/social/internal/client"
	"github.com/saberactivo/social/internal/session"
	"github.com/sirupsen/logrus"
)

func main() {
	server := flag.String("server", envOr("SOCIAL_SERVER_URL", "http://localhost:8080"), "API base URL")
	verbose := flag.Bool("v", false, "log debug output to stderr")
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	sess := &session.State{}
	c, err := client.New(*server, sess, logger)
	if err != nil {
		logger.Fatalf("client: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := newREPL(c, sess, os.Stdout, logger)
	defer r.Close()

	fmt.Fprintf(os.Stdout, "connected to %s, type /help for commands\n", *server)
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok || !r.Handle(ctx, line) {
				return
			}
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
