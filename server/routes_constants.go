package server

import "github.com/jrsteele09/go-publish-agent/authflow"

// Route path constants
const (
	// Pages
	RouteDashboard = "/{$}"
	RouteLiveNews  = "/live-news"

	// Login
	RouteLogin         = "/api/login"
	RouteLoginCallback = authflow.CallbackPath

	// Credentials
	RouteTokens      = "/api/tokens"
	RouteTokenStatus = "/api/tokens/status"

	// Schedule
	RouteSchedule       = "/api/schedule"
	RouteScheduleConfig = "/api/schedule/config"
	RouteScheduleTime   = "/api/schedule/time"
	RouteScheduleFire   = "/api/schedule/fire"

	// Webhook and content subscriptions
	RouteWebhook           = "/api/webhook"
	RouteWebhookRegister   = "/api/webhook/register"
	RouteWebhookLiveNews   = "/api/webhook/live-news"
	RouteCategorySubscribe = "/api/webhook/categories/subscribe"

	// System
	RouteMetrics = "/metrics"
	RouteHealth  = "/healthz"
)
