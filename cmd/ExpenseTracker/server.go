package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sebuszqo/ExpenseTracker/internal/auth"
	"github.com/sebuszqo/ExpenseTracker/internal/finance/interfaces"
	"github.com/sebuszqo/ExpenseTracker/internal/respond"
	"go.uber.org/zap"
)

const apiVersion = "1.0.0"

type healthChecker interface {
	Health(ctx context.Context) map[string]string
}

type Server struct {
	router             chi.Router
	log                *zap.Logger
	db                 healthChecker
	corsOrigins        []string
	authHandler        *auth.Handler
	authService        auth.Service
	transactionHandler *interfaces.TransactionHandler
	categoryHandler    *interfaces.CategoryHandler
}

func NewServer(
	log *zap.Logger,
	db healthChecker,
	corsOrigins []string,
	authHandler *auth.Handler,
	authService auth.Service,
	transactionHandler *interfaces.TransactionHandler,
	categoryHandler *interfaces.CategoryHandler,
) *Server {
	return &Server{
		router:             chi.NewRouter(),
		log:                log,
		db:                 db,
		corsOrigins:        corsOrigins,
		authHandler:        authHandler,
		authService:        authService,
		transactionHandler: transactionHandler,
		categoryHandler:    categoryHandler,
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) RegisterRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(notFoundHandler)
	r.MethodNotAllowed(methodNotAllowedHandler)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/auth/sessionLogin", s.authHandler.HandleSessionLogin)
		r.Post("/auth/sessionLogout", s.authHandler.HandleSessionLogout)
		r.Get("/categories/system", s.categoryHandler.GetSystemCategories)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authService.SessionMiddleware())

			r.Get("/auth/me", s.authHandler.HandleGetMe)

			r.Get("/categories", s.categoryHandler.GetUserCategories)
			r.Post("/categories", s.categoryHandler.CreateCategory)

			r.Route("/transactions", func(r chi.Router) {
				r.Get("/", s.transactionHandler.GetUserTransactions)
				r.Post("/", s.transactionHandler.CreateTransaction)
				r.Get("/summary", s.transactionHandler.GetTransactionSummary)
				r.Get("/breakdown", s.transactionHandler.GetTransactionBreakdown)
				r.Put("/{id}", s.transactionHandler.UpdateTransaction)
				r.Delete("/{id}", s.transactionHandler.DeleteTransaction)
			})
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	database := map[string]string{"status": "unknown"}
	if s.db != nil {
		database = s.db.Health(r.Context())
	}

	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Expense Tracker API is running!",
		"version": apiVersion,
		"endpoints": map[string]string{
			"auth":         "/api/auth",
			"categories":   "/api/categories",
			"transactions": "/api/transactions",
		},
		"database": database,
	})
}

func notFoundHandler(w http.ResponseWriter, _ *http.Request) {
	respond.Error(w, http.StatusNotFound, "Route not found")
}

func methodNotAllowedHandler(w http.ResponseWriter, _ *http.Request) {
	respond.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
