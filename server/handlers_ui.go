package server

import (
	"net/http"

	"github.com/jrsteele09/go-publish-agent/internal/utils"
	"github.com/jrsteele09/go-publish-agent/publisher"
	"github.com/jrsteele09/go-publish-agent/schedule"
	"github.com/rs/zerolog/log"
)

type pageData struct {
	Title   string
	AppName string
}

func (s *Server) pageData(title string) pageData {
	return pageData{Title: title, AppName: s.config.GetAppName()}
}

type dashboardPage struct {
	pageData
	Document       schedule.Document
	Times          []string
	Triggers       []schedule.TriggerInfo
	HasCredentials bool
	Error          string
}

type liveNewsPage struct {
	pageData
	WebhookURL      string
	Categories      []publisher.Category
	SubscribedCount int
	Error           string
}

// DashboardHandler renders the schedule document and the active triggers.
func (s *Server) DashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := dashboardPage{
			pageData:       s.pageData("Schedule"),
			Triggers:       s.scheduler.Triggers(),
			HasCredentials: s.credentials.HasCredentials(),
		}

		doc, err := s.scheduler.Document()
		if err != nil {
			log.Error().Err(err).Msg("Failed to read schedule for dashboard")
			page.Error = "The schedule file could not be read: " + err.Error()
			doc = schedule.EmptyDocument()
		}
		page.Document = doc
		page.Times = utils.SortedKeys(doc.Schedule)

		s.render(w, http.StatusOK, "dashboard.html", page)
	}
}

// LiveNewsHandler renders the content-API categories and the connected webhook.
// Upstream failures are shown on the page.
func (s *Server) LiveNewsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := liveNewsPage{pageData: s.pageData("Live news")}

		webhook, err := s.content.ConnectedWebhook(r.Context())
		if err != nil {
			log.Warn().Err(err).Msg("Failed to fetch connected webhook")
			page.Error = "Failed to load data from the content API."
		}
		page.WebhookURL = webhook

		categories, err := s.content.Categories(r.Context())
		if err != nil {
			log.Warn().Err(err).Msg("Failed to fetch categories")
			page.Error = "Failed to load data from the content API."
		}
		page.Categories = categories
		for _, c := range categories {
			if c.IsSubscribed {
				page.SubscribedCount++
			}
		}

		s.render(w, http.StatusOK, "live_news.html", page)
	}
}
