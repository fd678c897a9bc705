package router

import (
	"log"
	"net/http"
	"strings"

	"github.com/comanda-pos/api/internal/config"
	"github.com/comanda-pos/api/internal/database"
	"github.com/comanda-pos/api/internal/handler"
	mw "github.com/comanda-pos/api/internal/middleware"
	"github.com/comanda-pos/api/internal/service"
	"github.com/comanda-pos/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication and role-based middleware as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(cfg.AllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/tabs", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Services share one notifier so every settlement mutation reaches
	// the connected terminals.
	notifier := ws.NewTabNotifier(hub)

	settlementService := service.NewSettlementService(pool, func(db database.DBTX) service.SettlementStore {
		return database.New(db)
	}, notifier)
	defaultTax, err := decimal.NewFromString(cfg.ServiceTaxPct)
	if err != nil {
		log.Printf("ERROR: invalid SERVICE_TAX_PERCENT %q, using %s", cfg.ServiceTaxPct, service.DefaultServiceTaxPercent)
		defaultTax = service.DefaultServiceTaxPercent
	}
	tabService := service.NewTabService(pool, func(db database.DBTX) service.TabStore {
		return database.New(db)
	}, defaultTax)
	itemService := service.NewItemService(pool, func(db database.DBTX) service.ItemStore {
		return database.New(db)
	}, notifier)
	debtService := service.NewDebtService(pool, func(db database.DBTX) service.DebtStore {
		return database.New(db)
	}, notifier)
	creditService := service.NewCreditService(pool, func(db database.DBTX) service.CreditStore {
		return database.New(db)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Manager-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole("OWNER", "MANAGER"))

			userHandler := handler.NewUserHandler(queries)
			r.Route("/users", userHandler.RegisterRoutes)

			reportHandler := handler.NewReportHandler(queries)
			r.Route("/reports", reportHandler.RegisterRoutes)
		})

		// Tables
		tableHandler := handler.NewTableHandler(queries)
		r.Route("/tables", tableHandler.RegisterRoutes)

		// Products
		productHandler := handler.NewProductHandler(queries)
		r.Route("/products", productHandler.RegisterRoutes)

		// Customers (incl. store credit and fiado history)
		customerHandler := handler.NewCustomerHandler(queries, creditService)
		r.Route("/customers", customerHandler.RegisterRoutes)

		// Tabs with nested items and payments
		tabHandler := handler.NewTabHandler(tabService, settlementService, queries)
		r.Route("/tabs", func(r chi.Router) {
			tabHandler.RegisterRoutes(r)

			r.Route("/{id}/items", func(r chi.Router) {
				itemHandler := handler.NewItemHandler(itemService)
				itemHandler.RegisterRoutes(r)
			})

			r.Route("/{id}/payments", func(r chi.Router) {
				paymentHandler := handler.NewPaymentHandler(settlementService, queries)
				paymentHandler.RegisterRoutes(r)
			})
		})

		// Debt collections
		debtHandler := handler.NewDebtHandler(debtService, queries)
		r.Route("/debts", debtHandler.RegisterRoutes)
	})

	log.Println("Router initialized with all handlers")
	return r
}
