/**
 * @description
 * HTTP router setup for the ledger service using go-chi/chi. Public auth
 * routes, owner-scoped account routes, admin routes and the biometric demo
 * routes are grouped by the middleware they need.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Tokens         TokenParser
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// NewRouter creates a new Chi router and registers all routes.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	auth := AuthMiddleware(opts.Tokens)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", h.handleSignup)
			r.Post("/login", h.handleLogin)
			r.Post("/login/verify", h.handleLoginVerify)
			r.With(auth).Get("/me", h.handleMe)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth)

			r.Post("/otp/request", h.handleRequestOTP)
			r.Post("/otp/verify", h.handleVerifyOTP)

			r.Route("/accounts/{id}", func(r chi.Router) {
				r.Get("/", h.handleGetAccount)
				r.Post("/add-funds", h.handleAddFunds)
				r.Post("/transfer", h.handleTransfer)
				r.Get("/beneficiaries", h.handleListBeneficiaries)
				r.Post("/beneficiaries", h.handleAddBeneficiary)
				r.Delete("/beneficiaries/{accountNumber}", h.handleRemoveBeneficiary)
				r.Get("/transactions", h.handleListTransactions)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(AdminMiddleware)
				r.Get("/stats", h.handleAdminStats)
				r.Get("/users", h.handleAdminListUsers)
				r.Get("/transactions", h.handleAdminListTransactions)
				r.Get("/charts", h.handleAdminCharts)
				r.Get("/suspicious", h.handleAdminSuspicious)
				r.Put("/users/{id}/freeze", h.handleAdminFreeze)
				r.Put("/users/{id}/unfreeze", h.handleAdminUnfreeze)
				r.Delete("/users/{id}", h.handleAdminDelete)
			})
		})

		r.Route("/webauthn", func(r chi.Router) {
			if h.webauthn == nil {
				r.HandleFunc("/*", demoDisabled)
				return
			}
			r.With(auth).Post("/register/options", h.handleWebAuthnRegisterOptions)
			r.With(auth).Post("/register/verify", h.handleWebAuthnRegisterVerify)
			r.Post("/login/options", h.handleWebAuthnLoginOptions)
			r.Post("/login/verify", h.handleWebAuthnLoginVerify)
		})
	})

	return r
}
