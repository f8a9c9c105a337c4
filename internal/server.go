package internal

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"asset-inventory-api/internal/auth"
	"asset-inventory-api/internal/config"
	"asset-inventory-api/internal/handlers"
	"asset-inventory-api/internal/schema"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
)

type Server struct {
	DB         *sql.DB
	Pool       *pgxpool.Pool
	Router     *chi.Mux
	JWTManager *auth.JWTManager
	Metrics    *Metrics
	Log        *logrus.Logger
}

func NewServer(cfg *config.Config, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("failed to open database connection")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.WithError(err).Fatal("database ping failed")
	}

	// Separate pgxpool for the importer's transactional batches
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("failed to create pgxpool")
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTExpiry)

	s := &Server{
		DB:         db,
		Pool:       pool,
		Router:     chi.NewRouter(),
		JWTManager: jwtManager,
		Metrics:    NewMetrics(),
		Log:        log,
	}

	// Middleware must precede route registration on a chi mux
	if cfg.MetricsOn {
		s.Router.Use(s.Metrics.Middleware())
	}

	// Public routes, no auth
	s.Router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	s.Router.Get("/dbping", func(w http.ResponseWriter, r *http.Request) {
		if err := s.DB.PingContext(r.Context()); err != nil {
			http.Error(w, "db: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		if _, err := w.Write([]byte("db: ok")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	s.Router.Post("/auth/login", s.loginUser)
	s.Router.Post("/auth/register", s.registerUser)

	if cfg.MetricsOn {
		s.Router.Get("/metrics", s.Metrics.Handler().ServeHTTP)
	}

	s.Router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.JWTManager))
		s.mountProtectedRoutes(r, cfg)
	})

	return s
}

// Close properly shuts down the server and cleans up resources
func (s *Server) Close(ctx context.Context) error {
	if s.Pool != nil {
		s.Pool.Close()
	}
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// mountProtectedRoutes mounts all routes that require authentication. Reads
// are open to every role, writes need manager or admin, deletes and user
// management need admin.
func (s *Server) mountProtectedRoutes(r chi.Router, cfg *config.Config) {
	write := auth.MustRole(auth.RoleAdmin, auth.RoleManager)
	admin := auth.MustRole(auth.RoleAdmin)

	for _, ent := range schema.All() {
		base := "/" + ent.Kind
		r.Get(base, s.listEntity(ent))
		r.Get(base+"/{id}", s.getEntity(ent))
		r.Post(base, write(s.createEntity(ent)).ServeHTTP)
		r.Put(base+"/{id}", write(s.updateEntity(ent)).ServeHTTP)
		r.Delete(base+"/{id}", admin(s.deleteEntity(ent)).ServeHTTP)
	}

	// Dashboard
	r.Get("/dashboard/summary", s.getDashboardSummary)

	// CSV import - manager or admin
	importsHandler := handlers.NewImportsHandler(s.Pool, cfg.MaxUploadBytes, s.Log)
	r.Post("/imports/{kind}", write(http.HandlerFunc(importsHandler.UploadCSV)).ServeHTTP)

	// Exports - any authenticated role
	exportsHandler := handlers.NewExportsHandler(s.DB, s.Log)
	r.Get("/exports/csv", exportsHandler.ExportAllCSV)
	r.Get("/exports/csv/{kind}", exportsHandler.ExportKindCSV)
	r.Get("/exports/xlsx", exportsHandler.ExportXLSX)

	// User management - admin only
	r.Post("/users", admin(http.HandlerFunc(s.createUser)).ServeHTTP)
	r.Get("/users", admin(http.HandlerFunc(s.listUsers)).ServeHTTP)
	r.Get("/users/{id}", admin(http.HandlerFunc(s.getUser)).ServeHTTP)
	r.Put("/users/{id}", admin(http.HandlerFunc(s.updateUser)).ServeHTTP)
	r.Delete("/users/{id}", admin(http.HandlerFunc(s.deleteUser)).ServeHTTP)

	// Self-service routes
	r.Get("/auth/profile", s.getUserProfile)
	r.Put("/auth/change-password", s.changePassword)
}
