package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-publish-agent/authflow"
	"github.com/jrsteele09/go-publish-agent/authflow/authflowrepo"
	"github.com/jrsteele09/go-publish-agent/credentials"
	"github.com/jrsteele09/go-publish-agent/internal/config"
	"github.com/jrsteele09/go-publish-agent/internal/logger"
	"github.com/jrsteele09/go-publish-agent/provider"
	"github.com/jrsteele09/go-publish-agent/publisher"
	"github.com/jrsteele09/go-publish-agent/schedule"
	"github.com/jrsteele09/go-publish-agent/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 5 * time.Second
	watchDebounce   = 500 * time.Millisecond
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server and the scheduler",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

type agent struct {
	httpServer *http.Server
	engine     *schedule.Engine
	watcher    *schedule.Watcher
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("panic", fmt.Sprint(r)).Str("stack", string(debug.Stack())).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	env, err := config.NewEnvVars()
	if err != nil {
		return err
	}
	logger.New(env.GetAppName(), env.IsDev())

	c, err := config.New()
	if err != nil {
		return err
	}
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newAgent(ctx, c)
	if err != nil {
		return err
	}

	active := a.engine.Start()
	log.Info().Int("triggers", active).Str("file", c.GetScheduleFile()).Msg("Scheduler started")
	if a.watcher != nil {
		go func() {
			if err := a.watcher.Run(ctx); err != nil {
				log.Error().Err(err).Msg("Schedule watcher stopped")
			}
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- listenAndServe(a.httpServer)
	}()

	select {
	case err := <-serverErr:
		returnError = err
	case <-waitForStopSignal():
	}

	cancel()
	a.engine.Stop(shutdownTimeout)
	if err := shutdown(a.httpServer); err != nil && returnError == nil {
		returnError = err
	}
	log.Info().Msg("Server stopped")
	return returnError
}

// newAgent wires every component from the configuration.
func newAgent(ctx context.Context, c config.Config) (*agent, error) {
	timeout := c.GetHTTPTimeout()
	if err := os.MkdirAll(c.GetDataFolder(), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data folder: %w", err)
	}

	store := newTokenStore(c)

	oauthClient := provider.New(c, timeout)
	if issuer := c.GetIssuerURL(); issuer != "" {
		if err := oauthClient.Discover(ctx, issuer); err != nil {
			return nil, err
		}
	}
	manager := credentials.NewManager(store, oauthClient, c.GetEncryptionKey(), credentials.WithTimeout(2*timeout))

	posts := publisher.NewService(
		publisher.NewTextGenerator(c.GetContentAPIURL(), c.GetContentAPIKey(), c.GetMaxPostLength(), timeout),
		publisher.NewPostClient(c.GetPostAPIURL(), timeout),
		manager,
		publisher.WithAttempts(c.GetPublishAttempts()),
	)

	engine := schedule.NewEngine(
		schedule.NewFileStore(c.GetScheduleFile()),
		schedule.NewRegistry(log.Logger),
		posts.Publish,
		schedule.WithJobTimeout(c.GetJobTimeout()),
		schedule.WithLogger(log.Logger),
	)

	flow := authflow.NewFlow(
		oauthClient,
		authflow.NewSessionCodec(c.GetSessionSigningKey(), c.GetPKCESessionTTL()),
		authflowrepo.NewInMemoryRepo(),
	)

	handler, err := server.New(c, server.Deps{
		Scheduler:   engine,
		Login:       flow,
		Credentials: manager,
		Poster:      posts,
		Content:     publisher.NewContentClient(c.GetContentAPIURL(), c.GetContentAPIKey(), timeout),
	})
	if err != nil {
		return nil, err
	}

	a := &agent{
		httpServer: &http.Server{
			Addr:              c.GetPort(),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		engine: engine,
	}
	if c.GetWatchSchedule() {
		a.watcher = schedule.NewWatcher(c.GetScheduleFile(), engine, watchDebounce)
	}
	return a, nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
