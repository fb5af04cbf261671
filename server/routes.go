package server

import "github.com/prometheus/client_golang/prometheus/promhttp"

func (s *Server) initRoutes() {
	// Pages
	s.RegisterRouteHandler("GET "+RouteDashboard, ChainMiddleware(s.DashboardHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteLiveNews, ChainMiddleware(s.LiveNewsHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteWebhookLiveNews, ChainMiddleware(s.LiveNewsHandler(), s.HTMLMiddleWare()...))

	// Login
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteLoginCallback, ChainMiddleware(s.CallbackHandler(), s.HTMLMiddleWare()...))

	// Credentials
	s.RegisterRouteHandler("POST "+RouteTokens, ChainMiddleware(s.SaveTokensHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteTokenStatus, ChainMiddleware(s.TokenStatusHandler(), s.APIMiddleware(s.RequireSecret())...))

	// Schedule
	s.RegisterRouteHandler("GET "+RouteSchedule, ChainMiddleware(s.GetScheduleHandler(), s.APIMiddleware(s.RequireSecret())...))
	s.RegisterRouteHandler("PATCH "+RouteScheduleConfig, ChainMiddleware(s.UpdateScheduleConfigHandler(), s.APIMiddleware(s.RequireSecret())...))
	s.RegisterRouteHandler("PATCH "+RouteScheduleTime, ChainMiddleware(s.UpsertScheduleTimeHandler(), s.APIMiddleware(s.RequireSecret())...))
	s.RegisterRouteHandler("DELETE "+RouteScheduleTime, ChainMiddleware(s.DeleteScheduleTimeHandler(), s.APIMiddleware(s.RequireSecret())...))
	s.RegisterRouteHandler("POST "+RouteScheduleFire, ChainMiddleware(s.FireScheduleHandler(), s.APIMiddleware(s.RequireSecret())...))

	// Webhook
	s.RegisterRouteHandler("POST "+RouteWebhook, ChainMiddleware(s.WebhookHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteWebhookRegister, ChainMiddleware(s.RegisterWebhookHandler(), s.APIMiddleware(s.RequireSecret())...))
	s.RegisterRouteHandler("POST "+RouteCategorySubscribe, ChainMiddleware(s.SubscribeCategoriesHandler(), s.APIMiddleware(s.RequireSecret())...))

	// CORS preflight for every API route
	s.RegisterRouteHandler("OPTIONS /api/", ChainMiddleware(noContent, s.APIMiddleware()...))

	// System
	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.Handler())
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))
}
