package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"

	"kosh/internal/config"
	"kosh/internal/db"
	"kosh/internal/middleware"
	"kosh/internal/money"
	"kosh/internal/store"
	"kosh/internal/websocket"
)

type Handler struct {
	txRunner     db.TxRunner
	cfg          config.Config
	users        UserStore
	accounts     AccountStore
	admin        AdminStore
	audit        AuditStore
	ledger       LedgerService
	dashboard    DashboardService
	coach        Coach
	hub          *websocket.Hub
	withholdRate decimal.Decimal
}

// New wires the HTTP layer. coach may be nil, in which case the chat route
// reports the assistant as unavailable.
func New(txRunner db.TxRunner, cfg config.Config, users UserStore, accounts AccountStore, admin AdminStore, audit AuditStore, ledger LedgerService, dashboard DashboardService, coach Coach, hub *websocket.Hub) *Handler {
	rate, err := money.ParseRate(cfg.TaxWithholdRate)
	if err != nil {
		rate = decimal.Zero
	}
	return &Handler{
		txRunner:     txRunner,
		cfg:          cfg,
		users:        users,
		accounts:     accounts,
		admin:        admin,
		audit:        audit,
		ledger:       ledger,
		dashboard:    dashboard,
		coach:        coach,
		hub:          hub,
		withholdRate: rate,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.Origins(),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authed := middleware.Auth(h.cfg.JWTSecret)
	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(authed).Get("/me", h.Me)
	})
	router.Route("/user", func(r chi.Router) {
		r.Use(authed)
		r.Get("/details", h.UserDetails)
		r.Patch("/update", h.UpdateUser)
		r.Post("/withdraw-tax", h.WithdrawTax)
		r.Delete("/", h.DeleteUser)
	})
	router.Route("/wallet", func(r chi.Router) {
		r.Use(authed)
		r.Post("/income", h.RegisterIncome)
		r.Get("/topups", h.ListTopUps)
	})
	router.Route("/savings", func(r chi.Router) {
		r.Use(authed)
		r.Post("/", h.CreateCampaign)
		r.Get("/active", h.ActiveCampaign)
		r.Get("/history", h.CampaignHistory)
		r.Patch("/{id}/contribute", h.Contribute)
		r.Patch("/{id}/payout", h.Payout)
		r.Get("/{id}/contributions", h.Contributions)
	})
	router.With(authed).Get("/dashboard", h.Dashboard)
	router.Route("/ai", func(r chi.Router) {
		r.Use(authed)
		r.Get("/actions", h.Actions)
		r.Post("/chat", h.Chat)
	})
	router.Get("/ws/wallet", h.WSWallet)

	router.Route("/admin", func(r chi.Router) {
		r.Use(authed)
		r.With(middleware.RequireAdmin(h.admin, store.RoleCanViewAudit)).Get("/accounts", h.AdminListAccounts)
		r.With(middleware.RequireAdmin(h.admin, store.RoleCanViewAudit)).Get("/audit", h.ListAuditLogs)
		r.With(middleware.RequireAdmin(h.admin, "")).Post("/promote", h.PromoteAdmin)
		r.With(middleware.RequireAdmin(h.admin, "")).Post("/roles/grant", h.GrantRole)
	})

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
