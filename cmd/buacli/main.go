// Command buacli runs a single natural-language browser task to completion
// and reports the outcome via its exit code: 0 task succeeded, 1 task
// failed, 2 launch/transport failure, 3 cancelled.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/anxuanzi/bua-go"
	"github.com/anxuanzi/bua-go/bruntime/errs"
)

const (
	exitSuccess       = 0
	exitTaskFailed    = 1
	exitLaunchFailure = 2
	exitCancelled     = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	task := flag.String("task", "", "natural-language task for the agent to perform (required)")
	startURL := flag.String("url", "", "URL to navigate to before starting the task")
	headless := flag.Bool("headless", true, "run the browser headless")
	profile := flag.String("profile", "", "named profile directory to persist the session under")
	model := flag.String("model", bua.ModelGemini3Flash, "model ID to drive the agent loop")
	debug := flag.Bool("debug", false, "enable verbose logging")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall task timeout")
	flag.Parse()

	if *task == "" {
		fmt.Fprintln(os.Stderr, "buacli: -task is required")
		return exitLaunchFailure
	}

	_ = godotenv.Load()
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "buacli: GOOGLE_API_KEY environment variable is required")
		return exitLaunchFailure
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	app, err := bua.New(bua.Config{
		APIKey:      apiKey,
		Model:       *model,
		ProfileName: *profile,
		Headless:    *headless,
		Debug:       *debug,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "buacli: failed to create agent: %v\n", err)
		return exitLaunchFailure
	}
	defer app.Close()

	if err := app.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "buacli: failed to start browser: %v\n", err)
		return exitLaunchFailure
	}

	if *startURL != "" {
		if err := app.Navigate(ctx, *startURL); err != nil {
			fmt.Fprintf(os.Stderr, "buacli: failed to navigate to %s: %v\n", *startURL, err)
			return exitLaunchFailure
		}
	}

	result, err := app.Run(ctx, *task)
	if err != nil {
		return exitCodeForError(err)
	}

	if !result.Success {
		fmt.Fprintf(os.Stderr, "buacli: task failed after %d steps: %s\n", len(result.Steps), result.Error)
		return exitTaskFailed
	}

	fmt.Printf("%v\n", result.Data)
	return exitSuccess
}

func exitCodeForError(err error) int {
	var cancelled *errs.CancelledError
	if errors.Is(err, context.Canceled) || errors.As(err, &cancelled) {
		return exitCancelled
	}

	var browserErr *errs.BrowserError
	if errors.As(err, &browserErr) && !errs.IsRecoverable(browserErr) {
		return exitLaunchFailure
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return exitTaskFailed
	}

	fmt.Fprintf(os.Stderr, "buacli: %v\n", err)
	return exitTaskFailed
}
