package api

import (
	"github.com/go-chi/chi/v5"
)

// setupAPIRoutes sets up API v1 routes
func (s *RESTServer) setupAPIRoutes(r chi.Router) {
	// Health check
	r.Get("/health", s.HandleHealth)
	r.Get("/", s.HandleRoot)

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.HandleLogin)
		r.Post("/refresh", s.HandleRefresh)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		// Users
		r.Route("/users", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListUsers)
			r.Post("/", s.HandleCreateUser)
			r.Get("/me", s.HandleGetCurrentUser)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.HandleGetUser)
				r.Put("/", s.HandleUpdateUser)
				r.Delete("/", s.HandleDeleteUser)
			})
		})

		// Guided credential setup
		r.Route("/setup", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleSetupStatus)
			r.Post("/start", s.HandleSetupStart)
			r.Post("/step", s.HandleSetupStep)
			r.Post("/cancel", s.HandleSetupCancel)
		})

		// Direct credential management
		r.Route("/credentials", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Put("/", s.HandlePutCredentials)
			r.Get("/status", s.HandleCredentialStatus)
			r.Delete("/", s.HandleDeleteCredentials)
		})

		// Location monitoring
		r.Route("/locations/{customerID}/{locationID}", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleLocationOverview)
			r.Get("/health", s.HandleLocationHealth)
			r.Get("/uptime", s.HandleLocationUptime)
			r.Get("/wan", s.HandleLocationWAN)
			r.Get("/nodes", s.HandleLocationNodes)
			r.Get("/devices", s.HandleLocationDevices)
			r.Get("/wifi", s.HandleLocationWiFi)
			r.Get("/reports", s.HandleLocationReports)
		})

		// Node lookup and customer search
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/nodes/{nodeID}", s.HandleNodeDetails)
			r.Get("/customers", s.HandleSearchCustomers)
		})

		// Event log access
		r.Route("/events", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListEvents)
		})
	})
}
