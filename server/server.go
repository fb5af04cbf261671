// Package server exposes the operator HTTP surface: login, credential confirmation,
// schedule management, the webhook receiver and the dashboard pages.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-publish-agent/authflow"
	"github.com/jrsteele09/go-publish-agent/internal/config"
	"github.com/jrsteele09/go-publish-agent/publisher"
	"github.com/jrsteele09/go-publish-agent/schedule"
	"github.com/jrsteele09/go-publish-agent/tokenstore"
	"github.com/rs/zerolog/log"
)

// Scheduler is the part of *schedule.Engine the handlers use.
type Scheduler interface {
	Document() (schedule.Document, error)
	Triggers() []schedule.TriggerInfo
	UpdateConfig(cfg schedule.Config) error
	UpsertTimeEntry(oldTime, timeKey string, entry schedule.Entry) error
	DeleteTimeEntry(timeKey string) error
	Fire(ctx context.Context, timeKey string) error
}

// LoginFlow is implemented by *authflow.Flow.
type LoginFlow interface {
	Initiate(redirectURI string) (authflow.Initiation, error)
	Complete(ctx context.Context, params authflow.CallbackParams, sessionCookie, redirectURI string) (tokenstore.Pair, error)
}

// Credentials is implemented by *credentials.Manager.
type Credentials interface {
	Save(pair tokenstore.Pair) error
	HasCredentials() bool
}

// Poster is implemented by *publisher.Service.
type Poster interface {
	PostText(ctx context.Context, source, text string) (publisher.Post, error)
}

// ContentAPI is implemented by *publisher.ContentClient.
type ContentAPI interface {
	ConnectedWebhook(ctx context.Context) (string, error)
	RegisterWebhook(ctx context.Context, url string) (json.RawMessage, error)
	Categories(ctx context.Context) ([]publisher.Category, error)
	Subscribe(ctx context.Context, ids []int) (json.RawMessage, error)
}

type Deps struct {
	Scheduler   Scheduler
	Login       LoginFlow
	Credentials Credentials
	Poster      Poster
	Content     ContentAPI
}

type Server struct {
	env       string
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	templates *template.Template

	scheduler   Scheduler
	login       LoginFlow
	credentials Credentials
	poster      Poster
	content     ContentAPI
}

func New(cfg config.Config, deps Deps) (*Server, error) {
	tmpl, err := ParseTemplates()
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse templates: %w", err)
	}

	s := &Server{
		env:         cfg.GetEnv(),
		mux:         http.NewServeMux(),
		config:      cfg,
		templates:   tmpl,
		scheduler:   deps.Scheduler,
		login:       deps.Login,
		credentials: deps.Credentials,
		poster:      deps.Poster,
		content:     deps.Content,
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colouredMethod(method), path)
}

func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
