// Package main provides a standalone probe for container health checks
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/recipesimplifier/api/internal/infrastructure/config"
	"github.com/recipesimplifier/api/pkg/logger"
)

const (
	exitCodeSuccess = 0
	exitCodeFailure = 1
	exitCodeError   = 2
)

type options struct {
	URL        string
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
	ConfigPath string
	Verbose    bool
}

type probeResponse struct {
	Status string `json:"status"`
	Checks []struct {
		Name    string `json:"name"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"checks"`
}

func main() {
	opts := options{}
	flag.StringVar(&opts.URL, "url", "", "readiness URL (default derived from config)")
	flag.DurationVar(&opts.Timeout, "timeout", 10*time.Second, "request timeout")
	flag.IntVar(&opts.Retries, "retry", 0, "number of retries on failure")
	flag.DurationVar(&opts.RetryDelay, "retry-delay", time.Second, "delay between retries")
	flag.StringVar(&opts.ConfigPath, "config", "", "configuration file path")
	flag.BoolVar(&opts.Verbose, "verbose", false, "log every check")
	flag.Parse()

	level := "warn"
	if opts.Verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Config{Level: level, Format: "console", Service: "health-check"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(exitCodeError)
	}
	defer func() { _ = log.Sync() }()

	if opts.URL == "" {
		cfg, err := config.Load(opts.ConfigPath)
		if err != nil {
			log.Error("Failed to load configuration", zap.Error(err))
			os.Exit(exitCodeError)
		}
		opts.URL = fmt.Sprintf("http://127.0.0.1:%d%s", cfg.Server.Port, cfg.Monitoring.ReadinessPath)
	}

	os.Exit(run(opts, log))
}

func run(opts options, log *zap.Logger) int {
	client := &http.Client{Timeout: opts.Timeout}

	var lastErr error
	for attempt := 0; attempt <= opts.Retries; attempt++ {
		if attempt > 0 {
			time.Sleep(opts.RetryDelay)
		}

		resp, err := probe(client, opts.URL)
		if err != nil {
			lastErr = err
			log.Debug("Probe failed", zap.Int("attempt", attempt+1), zap.Error(err))
			continue
		}

		for _, check := range resp.Checks {
			log.Debug("Check",
				zap.String("name", check.Name),
				zap.String("status", check.Status),
				zap.String("message", check.Message))
		}
		if resp.Status == "unhealthy" {
			log.Warn("Service is unhealthy", zap.String("url", opts.URL))
			return exitCodeFailure
		}
		return exitCodeSuccess
	}

	log.Error("Service unreachable", zap.String("url", opts.URL), zap.Error(lastErr))
	return exitCodeFailure
}

func probe(client *http.Client, url string) (*probeResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	res, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var body probeResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("invalid health response (HTTP %d): %w", res.StatusCode, err)
	}
	if res.StatusCode != http.StatusOK && body.Status == "" {
		body.Status = "unhealthy"
	}
	return &body, nil
}
