// Package app wires the verification sidecar together: it builds the key
// source and Authenticator from Config, serves HTTP and gRPC, and shuts
// everything down on SIGINT/SIGTERM.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/guardian/panda-go/internal/config"
	"github.com/guardian/panda-go/internal/grpcx"
	"github.com/guardian/panda-go/internal/httpx"
	"github.com/guardian/panda-go/internal/keysource"
	"github.com/guardian/panda-go/internal/logging"
	"github.com/guardian/panda-go/internal/metrics"
	"github.com/guardian/panda-go/internal/panda"
)

// logOutput is where the JSON logger writes.
var logOutput io.Writer = os.Stdout

// newS3Source is swapped in tests.
var newS3Source = func(ctx context.Context, opts keysource.S3Options) (panda.KeySource, error) {
	return keysource.NewS3Source(ctx, opts)
}

type App struct {
	config        *config.Config
	logger        logging.Logger
	registry      *prometheus.Registry
	authenticator *panda.Authenticator
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(logOutput, c.LogLevel)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	source, err := newKeySource(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("key source init error: %w", err)
	}

	validate := panda.AllowAll
	if c.RequireGuardianUser {
		validate = panda.GuardianValidation
	}

	auth, err := panda.NewAuthenticator(ctx, panda.Options{
		CookieName: c.CookieName,
		Source:     source,
		Validate:   validate,
		CacheTTL:   c.KeyCacheTTL,
		Logger:     logger,
		Metrics:    metrics.New(registry),
	})
	if err != nil {
		return nil, fmt.Errorf("authenticator init error: %w", err)
	}

	return &App{config: c, logger: logger, registry: registry, authenticator: auth}, nil
}

// newKeySource prefers a local settings file over S3.
func newKeySource(ctx context.Context, c *config.Config) (panda.KeySource, error) {
	if c.PublicKeyFile != "" {
		return keysource.FileSource{Path: c.PublicKeyFile}, nil
	}
	return newS3Source(ctx, keysource.S3Options{
		Location:        c.Location(),
		BaseEndpoint:    c.S3BaseEndpoint,
		AccessKeyID:     c.S3AccessKeyID,
		SecretAccessKey: c.S3SecretAccessKey,
	})
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	h := httpx.New(app.authenticator, app.registry, app.logger)
	s := httpx.NewServer(app.config.HTTPAddr, h, app.logger)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := grpcx.NewServer(app.config.GRPCAddr, app.authenticator, app.logger)
	s.Register(grpcx.RegisterIdentityService)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled, a signal arrives or a server fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "cookie", app.authenticator.CookieName())

	app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.config.GRPCAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	app.authenticator.Stop()
	app.logger.Info(context.WithoutCancel(ctx), "App stopped")
}
