package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/Sankethhn/Farmlink/internal/model"
)

// Config carries router dependencies.
type Config struct {
	DB          *sql.DB
	JWTSecret   string
	TokenExpiry time.Duration
	MediaDir    string
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(cfg Config) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: cfg.DB, JWTSecret: cfg.JWTSecret, TokenExpiry: cfg.TokenExpiry}
	productsHandler := &ProductsHandler{DB: cfg.DB, MediaDir: cfg.MediaDir}
	ordersHandler := &OrdersHandler{DB: cfg.DB}
	analyticsHandler := &AnalyticsHandler{DB: cfg.DB}

	requireFarmer := RequireRole(model.RoleFarmer)
	requireBusiness := RequireRole(model.RoleBusiness)

	// Public.
	mux.HandleFunc("GET /{$}", root)
	mux.HandleFunc("GET /health", health)
	mux.HandleFunc("POST /auth/login", authHandler.Login)
	mux.HandleFunc("POST /auth/register", authHandler.Register)

	// Authenticated.
	mux.Handle("GET /auth/me", RequireAuth(http.HandlerFunc(authHandler.Me)))

	// Products: browsing is open, mutations are farmer-scoped.
	mux.HandleFunc("GET /products", productsHandler.List)
	mux.HandleFunc("GET /products/{id}", productsHandler.Get)
	mux.Handle("POST /products", requireFarmer(http.HandlerFunc(productsHandler.Create)))
	mux.Handle("POST /products/upload", requireFarmer(http.HandlerFunc(productsHandler.CreateWithImage)))
	mux.Handle("PUT /products/{id}", requireFarmer(http.HandlerFunc(productsHandler.Update)))
	mux.Handle("DELETE /products/{id}", requireFarmer(http.HandlerFunc(productsHandler.Delete)))
	mux.Handle("GET /farmers/products", requireFarmer(http.HandlerFunc(productsHandler.FarmerProducts)))

	// Orders: placement is business-only; listing, status updates and
	// deletion are open to both parties (ownership checked in the store).
	mux.Handle("POST /orders", requireBusiness(http.HandlerFunc(ordersHandler.Create)))
	mux.Handle("GET /orders", RequireAuth(http.HandlerFunc(ordersHandler.List)))
	mux.Handle("PATCH /orders/{id}", RequireAuth(http.HandlerFunc(ordersHandler.UpdateStatus)))
	mux.Handle("DELETE /orders/{id}", RequireAuth(http.HandlerFunc(ordersHandler.Delete)))

	// Analytics.
	mux.Handle("GET /analytics/dashboard", requireFarmer(http.HandlerFunc(analyticsHandler.Dashboard)))

	// Uploaded product images.
	if cfg.MediaDir != "" {
		mux.Handle("GET /media/", cacheControl(http.StripPrefix("/media/",
			http.FileServer(http.Dir(cfg.MediaDir)))))
	}

	return LoggingMiddleware(Authenticate(cfg.JWTSecret)(mux))
}

func root(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{
		"message": "FarmLink API is running",
		"version": "1.1.0",
	})
}

func health(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

// cacheControl marks media responses as cacheable; stored filenames are
// random so content never changes under a URL.
func cacheControl(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
