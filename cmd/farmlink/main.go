package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/Sankethhn/Farmlink/internal/api"
	"github.com/Sankethhn/Farmlink/internal/auth"
	"github.com/Sankethhn/Farmlink/internal/db"
	"github.com/Sankethhn/Farmlink/internal/model"
	"github.com/Sankethhn/Farmlink/internal/store"
)

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. INFO/WARN go to stdout, ERROR goes
// to stderr. If logPath is non-empty, all levels are also written to that file.
// Returns a cleanup function that closes the log file (if opened).
func setupLogger(logPath string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var cleanup func()

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	handler := &levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

// envDefault returns the environment value for key, or fallback when unset.
func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// A .env file, if present, supplies defaults (flags still win).
	_ = godotenv.Load()

	fs := flag.NewFlagSet("farmlink", flag.ContinueOnError)

	var dbPath string
	fs.StringVar(&dbPath, "db", envDefault("FARMLINK_DB", "farmlink.sqlite3"), "")
	fs.StringVar(&dbPath, "d", envDefault("FARMLINK_DB", "farmlink.sqlite3"), "")

	var addr string
	fs.StringVar(&addr, "addr", envDefault("FARMLINK_ADDR", ":8000"), "")
	fs.StringVar(&addr, "a", envDefault("FARMLINK_ADDR", ":8000"), "")

	var mediaDir string
	fs.StringVar(&mediaDir, "media", envDefault("MEDIA_ROOT", "media"), "")
	fs.StringVar(&mediaDir, "m", envDefault("MEDIA_ROOT", "media"), "")

	var logPath string
	fs.StringVar(&logPath, "log", envDefault("FARMLINK_LOG", ""), "")
	fs.StringVar(&logPath, "l", envDefault("FARMLINK_LOG", ""), "")

	var seed bool
	fs.BoolVar(&seed, "seed", envDefault("FARMLINK_SEED", "true") == "true", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: farmlink [flags]

Flags:
  -d, -db <path>          SQLite database path (default: farmlink.sqlite3)
  -a, -addr <host:port>   listen address (default: :8000)
  -m, -media <dir>        uploaded image directory (default: media)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -seed                   create demo accounts on an empty database (default: true)
  -h, -help               show this help and exit

Environment (or .env): FARMLINK_DB, FARMLINK_ADDR, MEDIA_ROOT, FARMLINK_LOG,
FARMLINK_SEED, SECRET_KEY, ACCESS_TOKEN_EXPIRE_MINUTES.
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	// Set up structured logging: INFO/WARN → stdout, ERROR → stderr.
	// Optionally also write to a log file.
	closeLog, err := setupLogger(logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	if err := os.MkdirAll(mediaDir, 0755); err != nil {
		slog.Error("failed to create media directory", "error", err)
		os.Exit(1)
	}

	// Open database and ensure the schema exists (idempotent).
	database, err := db.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.EnsureSchema(database); err != nil {
		slog.Error("failed to ensure database schema", "error", err)
		os.Exit(1)
	}

	slog.Info("database ready", "path", dbPath)

	ctx := context.Background()

	if seed {
		if err := seedDefaultData(ctx, database); err != nil {
			slog.Error("failed to seed demo data", "error", err)
			os.Exit(1)
		}
	}

	// Token signing secret: SECRET_KEY env override, otherwise persisted
	// in the settings table (auto-generated on first run).
	jwtSecret := os.Getenv("SECRET_KEY")
	if jwtSecret == "" {
		jwtSecret, err = store.GetJWTSecret(ctx, database)
		if err != nil {
			slog.Error("failed to get JWT secret", "error", err)
			os.Exit(1)
		}
	}

	tokenExpiry := auth.DefaultTokenExpiry
	if v := os.Getenv("ACCESS_TOKEN_EXPIRE_MINUTES"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes <= 0 {
			slog.Error("invalid ACCESS_TOKEN_EXPIRE_MINUTES", "value", v)
			os.Exit(1)
		}
		tokenExpiry = time.Duration(minutes) * time.Minute
	}

	router := api.NewRouter(api.Config{
		DB:          database,
		JWTSecret:   jwtSecret,
		TokenExpiry: tokenExpiry,
		MediaDir:    mediaDir,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped, closing database")
}

// seedDefaultData creates demo accounts and sample produce on an empty
// database so the frontend has something to show out of the box.
func seedDefaultData(ctx context.Context, database *sql.DB) error {
	n, err := store.CountUsers(ctx, database)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	hash := func(password string) (string, error) {
		h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		return string(h), err
	}

	farmerHash, err := hash("farmer123")
	if err != nil {
		return fmt.Errorf("hashing demo password: %w", err)
	}
	businessHash, err := hash("business123")
	if err != nil {
		return fmt.Errorf("hashing demo password: %w", err)
	}

	farmer, err := store.CreateUser(ctx, database, "farmer@example.com", farmerHash,
		"John Farmer", model.RoleFarmer, "+1234567890", "123 Farm Road, Rural County")
	if err != nil {
		return fmt.Errorf("creating demo farmer: %w", err)
	}

	_, err = store.CreateUser(ctx, database, "business@example.com", businessHash,
		"Fresh Market", model.RoleBusiness, "+1987654321", "456 Market Street, Business District")
	if err != nil {
		return fmt.Errorf("creating demo business: %w", err)
	}

	samples := []struct {
		name, description, unit, category string
		quantity, price                   float64
		organic                           bool
	}{
		{"Organic Apples", "Fresh organic apples from our orchard", "kg", "Fruits", 500, 2.5, true},
		{"Fresh Tomatoes", "Vine-ripened tomatoes", "kg", "Vegetables", 300, 1.8, false},
		{"Whole Wheat", "Organically grown whole wheat", "kg", "Grains", 1000, 0.8, true},
	}
	for _, s := range samples {
		if _, err := store.CreateProduct(ctx, database, farmer.ID, s.name, s.description,
			s.quantity, s.price, s.unit, s.organic, s.category, ""); err != nil {
			return fmt.Errorf("creating demo product %q: %w", s.name, err)
		}
	}

	slog.Info("seeded demo accounts", "farmer", "farmer@example.com", "business", "business@example.com")
	return nil
}
