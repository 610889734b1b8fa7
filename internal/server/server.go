package server

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/dukerupert/larder/internal/config"
	"github.com/dukerupert/larder/internal/handler"
	"github.com/dukerupert/larder/internal/middleware"
	"github.com/dukerupert/larder/internal/pantry"
	"github.com/dukerupert/larder/internal/shopping"
	"github.com/dukerupert/larder/internal/store"
	ws "github.com/dukerupert/larder/internal/websocket"
)

type Server struct {
	db         *sql.DB
	hub        *ws.Hub
	users      *store.UserStore
	shopping   *shopping.Service
	pantry     *pantry.Service
	shoppingH  *handler.ShoppingHandler
	pantryH    *handler.PantryHandler
	loginGuard *middleware.LoginGuard
	proxies    middleware.TrustedProxies
	origins    []string
	logger     *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	proxies, err := middleware.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, err
	}
	hub := ws.NewHub(logger)

	userStore := store.NewUserStore(db)
	eventStore := store.NewScanEventStore(db)
	listStore := store.NewShoppingListStore(db)
	inventoryStore := store.NewInventoryStore(db)
	locationStore := store.NewLocationStore(db)

	shoppingSvc := shopping.NewService(eventStore, listStore, cfg.Prediction.Policy(), hub, logger.With("component", "shopping"))
	pantrySvc := pantry.NewService(inventoryStore, eventStore, locationStore, hub, cfg.Prediction.DefaultLowStockThreshold, logger.With("component", "pantry"))

	return &Server{
		db:         db,
		hub:        hub,
		users:      userStore,
		shopping:   shoppingSvc,
		pantry:     pantrySvc,
		shoppingH:  handler.NewShoppingHandler(shoppingSvc, logger.With("component", "shopping_handler")),
		pantryH:    handler.NewPantryHandler(pantrySvc, logger.With("component", "pantry_handler")),
		loginGuard: middleware.NewLoginGuard(cfg.Auth.MaxFailures, cfg.Auth.FailureWindow),
		proxies:    proxies,
		origins:    cfg.Server.AllowedOrigins,
		logger:     logger,
	}, nil
}

func (s *Server) LoginGuard() *middleware.LoginGuard {
	return s.loginGuard
}

func (s *Server) Shopping() *shopping.Service {
	return s.shopping
}

func (s *Server) Pantry() *pantry.Service {
	return s.pantry
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()
	outerMux.HandleFunc("GET /health", s.healthHandler)

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireUser(s.users, s.loginGuard, s.proxies, s.logger.With("component", "auth"))
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.proxies, s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/scan-in", s.pantryH.ScanIn)
	mux.HandleFunc("POST /api/scan-out", s.pantryH.ScanOut)
	mux.HandleFunc("GET /api/inventory", s.pantryH.List)
	mux.HandleFunc("PUT /api/inventory/{id}", s.pantryH.Update)
	mux.HandleFunc("GET /api/inventory/status", s.pantryH.Status)

	mux.HandleFunc("GET /api/locations", s.pantryH.ListLocations)
	mux.HandleFunc("POST /api/locations", s.pantryH.CreateLocation)

	mux.HandleFunc("GET /api/predictions", s.shoppingH.Predictions)

	mux.HandleFunc("GET /api/shopping-list", s.shoppingH.List)
	mux.HandleFunc("POST /api/shopping-list", s.shoppingH.Add)
	mux.HandleFunc("GET /api/shopping-list/history", s.shoppingH.History)
	mux.HandleFunc("POST /api/shopping-list/{id}/promote", s.shoppingH.Promote)
	mux.HandleFunc("POST /api/shopping-list/{id}/purchase", s.shoppingH.Purchase)
	mux.HandleFunc("DELETE /api/shopping-list/{id}", s.shoppingH.Delete)

	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.origins, s.logger.With("component", "websocket")))
}
