package api

import (
	"github.com/gorilla/mux"

	"github.com/guildops/recruit/internal/application"
	"github.com/guildops/recruit/internal/booking"
	"github.com/guildops/recruit/internal/config"
	"github.com/guildops/recruit/internal/db"
	"github.com/guildops/recruit/internal/files"
	"github.com/guildops/recruit/internal/repository/sqlite"
)

func SetupRoutes(cfg *config.Config, version, buildTime string, conn *db.DB, store files.Store, queue Queue) *mux.Router {
	if queue == nil {
		queue = nopQueue{}
	}

	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	// Repository
	repo := sqlite.New(conn)

	engine := booking.NewEngine(conn, logger)
	appSvc := application.NewService(repo, repo, repo, repo, repo, store, logger)

	// Create handlers
	systemHandler := &SystemHandler{}
	authHandler := NewAuthHandler(repo, cfg.JWTSecret, cfg.TokenDuration, cfg.IsAdminEmail)
	cyclesHandler := NewCyclesHandler(repo, queue)
	slotsHandler := NewSlotsHandler(repo, repo, queue)
	bookingsHandler := NewBookingsHandler(engine, repo, repo, repo, queue)
	applicationsHandler := NewApplicationsHandler(appSvc, repo, queue)
	reviewsHandler := NewReviewsHandler(repo, repo, repo, repo, repo, repo, queue)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	r.HandleFunc("/v1/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/v1/auth/signin", authHandler.Signin).Methods("POST")
	r.HandleFunc("/v1/cycles/active", cyclesHandler.ActiveCycle).Methods("GET")

	// API v1 Protected routes
	apiV1 := r.PathPrefix("/v1").Subrouter()
	apiV1.Use(JWTAuthMiddlewareWithSecret(cfg.JWTSecret))

	// Auth endpoints
	authV1 := apiV1.PathPrefix("/auth").Subrouter()
	authV1.HandleFunc("/signout", authHandler.Signout).Methods("POST")

	// Slot browsing and host views
	apiV1.HandleFunc("/slots", slotsHandler.ListSlots).Methods("GET")
	apiV1.HandleFunc("/slots/mine", slotsHandler.MySlots).Methods("GET")
	apiV1.HandleFunc("/slots/{id}/bookings", bookingsHandler.SlotBookings).Methods("GET")

	// Booking endpoints
	apiV1.HandleFunc("/bookings", bookingsHandler.Book).Methods("POST")
	apiV1.HandleFunc("/bookings", bookingsHandler.MyBookings).Methods("GET")
	apiV1.HandleFunc("/bookings/{id}/cancel", bookingsHandler.Cancel).Methods("POST")

	// Application endpoints
	apiV1.HandleFunc("/applications/me", applicationsHandler.MyApplication).Methods("GET")
	apiV1.HandleFunc("/applications/me", applicationsHandler.Save).Methods("PUT")
	apiV1.HandleFunc("/applications/me/files/{key}", applicationsHandler.UploadFile).Methods("POST")
	apiV1.HandleFunc("/applications/me/submit", applicationsHandler.Submit).Methods("POST")

	// Host referral endpoint; host authorization happens in the handler
	apiV1.HandleFunc("/referrals", reviewsHandler.UpsertReferral).Methods("PUT")

	// Admin endpoints
	admin := apiV1.PathPrefix("/admin").Subrouter()
	admin.Use(RequireAdmin)

	admin.HandleFunc("/cycles", cyclesHandler.CreateCycle).Methods("POST")
	admin.HandleFunc("/cycles", cyclesHandler.ListCycles).Methods("GET")
	admin.HandleFunc("/cycles/{id}", cyclesHandler.UpdateCycle).Methods("PUT")
	admin.HandleFunc("/cycles/{id}/activate", cyclesHandler.ActivateCycle).Methods("POST")

	admin.HandleFunc("/slots", slotsHandler.CreateSlot).Methods("POST")
	admin.HandleFunc("/slots/{id}", slotsHandler.DeleteSlot).Methods("DELETE")

	admin.HandleFunc("/applications", applicationsHandler.ListApplications).Methods("GET")
	admin.HandleFunc("/applications/{id}/stage", applicationsHandler.SetStage).Methods("PUT")
	admin.HandleFunc("/applications/{id}/summary", applicationsHandler.Summary).Methods("GET")

	admin.HandleFunc("/reviews", reviewsHandler.UpsertReview).Methods("PUT")
	admin.HandleFunc("/whitelist", reviewsHandler.AddWhitelisted).Methods("POST")

	return r
}
