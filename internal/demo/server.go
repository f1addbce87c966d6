package demo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	material "github.com/goliatone/go-material"
	"github.com/goliatone/go-material/pkg/apidoc"
	"github.com/goliatone/go-material/pkg/auth"
	"github.com/goliatone/go-material/pkg/config"
	"github.com/goliatone/go-material/pkg/frontend"
	"github.com/goliatone/go-material/pkg/metrics"
	"github.com/goliatone/go-material/pkg/store/memory"
	"github.com/goliatone/go-material/pkg/store/sqlstore"
)

const (
	LogoutURL      = "/accounts/logout/"
	MetricsPath    = "/metrics"
	OpenAPIPath    = "/openapi.json"
	StaticPrefix   = "/static/"
	SiteTitle      = "Material demo"
	defaultVersion = "0.1.0"

	shutdownTimeout = 10 * time.Second
)

// Open builds the app over the configured store. Without a DSN the records
// live in memory. The returned func releases the store.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*App, func() error, error) {
	if cfg.DSN == "" {
		logger.Info("demo: using the in-memory store")
		return New(MemoryManagers(memory.NewDB())), func() error { return nil }, nil
	}

	store, err := sqlstore.Open(ctx, cfg.DSN, sqlstore.WithLogger(logger.Named("sql")))
	if err != nil {
		return nil, nil, err
	}
	if err := Migrate(ctx, store.DB()); err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	app := New(SQLManagers(store))
	app.sql = store
	return app, store.Close, nil
}

// Server is the assembled demo site.
type Server struct {
	App      *App
	Site     *frontend.Frontend
	Metrics  *metrics.Metrics
	Sessions *auth.SessionAuthenticator
	Logger   *zap.Logger
	handler  http.Handler
}

// NewServer mounts the demo viewsets, the sign in pages, the metrics and
// OpenAPI endpoints and the static assets.
func NewServer(ctx context.Context, cfg config.Config, app *App, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	renderer, err := material.NewRenderer(
		material.WithTemplatesDir(cfg.TemplatesDir),
		material.WithOverlays(TemplatesFS()),
		material.WithStaticURL(StaticPrefix),
		material.WithSiteTitle(SiteTitle),
	)
	if err != nil {
		return nil, fmt.Errorf("demo: renderer: %w", err)
	}

	key := []byte(cfg.Session.Key)
	if len(key) == 0 {
		logger.Warn("demo: no session key configured, sessions end with the process")
		key = []byte(uuid.NewString() + uuid.NewString())
	}
	sessions := auth.NewCookieAuthenticator(cfg.Session.Name, app.LookupUser, key)

	router := mux.NewRouter()
	reg := metrics.New()
	site := frontend.New(
		frontend.WithRouter(router),
		frontend.WithRenderer(renderer),
		frontend.WithAuthenticator(sessions),
		frontend.WithLoginURL(cfg.LoginURL),
		frontend.WithLogger(logger),
		frontend.WithMetrics(reg),
	)
	if err := app.Register(site); err != nil {
		return nil, err
	}

	doc, err := apidoc.Build(ctx, site,
		apidoc.WithTitle(SiteTitle),
		apidoc.WithVersion(defaultVersion),
	)
	if err != nil {
		return nil, err
	}

	accounts := &Accounts{
		App:       app,
		Sessions:  sessions,
		Renderer:  renderer,
		Logger:    logger.Named("accounts"),
		LoginURL:  site.Options().LoginURL,
		LogoutURL: LogoutURL,
	}
	router.HandleFunc(accounts.LoginURL, accounts.Login).Methods(http.MethodGet, http.MethodPost).Name("accounts:login")
	router.HandleFunc(LogoutURL, accounts.Logout).Methods(http.MethodPost).Name("accounts:logout")
	router.Handle(MetricsPath, reg.Handler()).Methods(http.MethodGet)
	router.Handle(OpenAPIPath, apidoc.Handler(doc)).Methods(http.MethodGet)
	router.PathPrefix(StaticPrefix).Handler(material.StaticHandler(StaticPrefix))

	index := auth.Middleware(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := auth.UserFrom(r.Context())
		accounts.render(w, IndexTemplate, map[string]any{
			"entries":    indexEntries(site),
			"logout_url": LogoutURL,
			"user": map[string]any{
				"username":         user.Username(),
				"is_authenticated": user.IsAuthenticated(),
			},
		})
	}))
	router.Handle("/", index).Methods(http.MethodGet)

	return &Server{
		App:      app,
		Site:     site,
		Metrics:  reg,
		Sessions: sessions,
		Logger:   logger,
		handler:  site.Handler(),
	}, nil
}

// Handler is the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.handler}
	errc := make(chan error, 1)
	go func() {
		s.Logger.Info("demo: listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.Logger.Info("demo: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type indexEntry struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

func indexEntries(site *frontend.Frontend) []indexEntry {
	mounts := site.Mounts()
	out := make([]indexEntry, 0, len(mounts))
	for _, mount := range mounts {
		out = append(out, indexEntry{
			Label: mount.ViewSet.Model.Meta().VerboseNamePlural,
			URL:   mount.Prefix + "/",
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}
