// Package frontend is the site registry: it mounts model viewsets under URL
// prefixes on a gorilla/mux router and resolves their route names.
package frontend

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/goliatone/go-material/pkg/auth"
	"github.com/goliatone/go-material/pkg/logging"
	"github.com/goliatone/go-material/pkg/metrics"
	"github.com/goliatone/go-material/pkg/render/template"
	"github.com/goliatone/go-material/pkg/views"
	"github.com/goliatone/go-material/pkg/viewset"
)

// DefaultLoginURL is where anonymous users are sent.
const DefaultLoginURL = "/accounts/login/"

var (
	// ErrNoRoute is returned by Reverse for unknown names.
	ErrNoRoute = errors.New("frontend: no such route")
	// ErrDuplicate is returned when a viewset's routes are already mounted.
	ErrDuplicate = errors.New("frontend: route already registered")
)

// Options configures a Frontend.
type Options struct {
	Router        *mux.Router
	Renderer      template.Renderer
	Authenticator auth.Authenticator
	LoginURL      string
	Logger        *zap.Logger
	Metrics       *metrics.Metrics
}

type OptionFn func(*Options)

// NewOptions applies fns over the defaults.
func NewOptions(fns ...OptionFn) Options {
	opts := Options{}
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(&opts)
	}
	if opts.Router == nil {
		opts.Router = mux.NewRouter()
	}
	if strings.TrimSpace(opts.LoginURL) == "" {
		opts.LoginURL = DefaultLoginURL
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return opts
}

func WithRouter(r *mux.Router) OptionFn {
	return func(o *Options) {
		o.Router = r
	}
}

func WithRenderer(r template.Renderer) OptionFn {
	return func(o *Options) {
		o.Renderer = r
	}
}

func WithAuthenticator(a auth.Authenticator) OptionFn {
	return func(o *Options) {
		o.Authenticator = a
	}
}

func WithLoginURL(url string) OptionFn {
	return func(o *Options) {
		o.LoginURL = url
	}
}

func WithLogger(l *zap.Logger) OptionFn {
	return func(o *Options) {
		o.Logger = l
	}
}

func WithMetrics(m *metrics.Metrics) OptionFn {
	return func(o *Options) {
		o.Metrics = m
	}
}

// Mount records one registered viewset.
type Mount struct {
	Prefix  string
	ViewSet *viewset.ModelViewSet
	Routes  []viewset.Route
}

// Frontend owns the router every viewset is mounted on.
type Frontend struct {
	opts Options

	mu     sync.RWMutex
	mounts []Mount
}

// New builds a Frontend.
func New(fns ...OptionFn) *Frontend {
	return &Frontend{opts: NewOptions(fns...)}
}

// Router returns the underlying router for extra routes.
func (f *Frontend) Router() *mux.Router { return f.opts.Router }

// Options returns the resolved options.
func (f *Frontend) Options() Options { return f.opts }

// Register mounts vs under prefix, like including the viewset's urls.
func (f *Frontend) Register(prefix string, vs *viewset.ModelViewSet) error {
	if vs == nil {
		return errors.New("frontend: nil viewset")
	}
	prefix = "/" + strings.Trim(strings.TrimSpace(prefix), "/")

	var observer views.SaveObserver
	if f.opts.Metrics != nil {
		observer = f.opts.Metrics
	}
	routes, err := vs.Routes(viewset.Env{
		Renderer: f.opts.Renderer,
		Logger:   f.opts.Logger.Named(vs.Model.Meta().Label()),
		Observer: observer,
	})
	if err != nil {
		return fmt.Errorf("frontend: register %s: %w", prefix, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, route := range routes {
		if f.opts.Router.Get(route.Name) != nil {
			return fmt.Errorf("%w: %s", ErrDuplicate, route.Name)
		}
	}

	sub := f.opts.Router
	if prefix != "/" {
		sub = sub.PathPrefix(prefix).Subrouter()
	}
	for _, route := range routes {
		sub.Handle(route.Path, f.wrap(route)).Name(route.Name)
	}
	vs.Bind(f)
	f.mounts = append(f.mounts, Mount{Prefix: prefix, ViewSet: vs, Routes: routes})

	f.opts.Logger.Debug("frontend: mounted viewset",
		zap.String("model", vs.Model.Meta().Label()),
		zap.String("prefix", prefix),
		zap.Int("routes", len(routes)),
	)
	return nil
}

func (f *Frontend) wrap(route viewset.Route) http.Handler {
	methods := make(handlers.MethodHandler, len(route.Methods))
	for _, method := range route.Methods {
		methods[method] = route.Handler
	}
	var h http.Handler = methods
	h = auth.LoginRequired(f.opts.LoginURL)(h)
	h = auth.Middleware(f.opts.Authenticator)(h)
	if f.opts.Metrics != nil {
		h = f.opts.Metrics.Middleware(h)
	}
	return logging.Middleware(f.opts.Logger)(h)
}

// Handler is the site entry point. POST forms may tunnel PUT through the
// "_method" field.
func (f *Frontend) Handler() http.Handler {
	return handlers.HTTPMethodOverrideHandler(f.opts.Router)
}

// Mounts lists registered viewsets ordered by prefix.
func (f *Frontend) Mounts() []Mount {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := append([]Mount(nil), f.mounts...)
	sort.Slice(out, func(i, j int) bool { return out[i].Prefix < out[j].Prefix })
	return out
}

// Reverse builds the path of a named route, filling "pk" when given.
func (f *Frontend) Reverse(name string, pk ...int64) (string, error) {
	route := f.opts.Router.Get(name)
	if route == nil {
		return "", fmt.Errorf("%w: %s", ErrNoRoute, name)
	}
	var pairs []string
	if len(pk) > 0 {
		pairs = append(pairs, "pk", strconv.FormatInt(pk[0], 10))
	}
	u, err := route.URLPath(pairs...)
	if err != nil {
		return "", fmt.Errorf("frontend: reverse %s: %w", name, err)
	}
	return u.Path, nil
}
