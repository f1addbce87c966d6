package views

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/goliatone/go-material/pkg/auth"
	"github.com/goliatone/go-material/pkg/model"
	"github.com/goliatone/go-material/pkg/render/template"
)

// Route identifies one of the routes a viewset mounts.
type Route string

const (
	RouteList   Route = "list"
	RouteAdd    Route = "add"
	RouteChange Route = "change"
	RouteDelete Route = "delete"
	RouteDetail Route = "detail"
)

// PKVar is the mux variable holding the primary key.
const PKVar = "pk"

// ViewSet is the back-reference views hold to the registry that built them.
type ViewSet interface {
	HasPerm(user auth.User) bool
	Reverse(route Route, pk ...int64) (string, error)
}

// SaveObserver is notified of every composite save attempt.
type SaveObserver interface {
	ObserveSave(label string, err error)
}

// Env carries what every view class is constructed with.
type Env struct {
	Model    model.Model
	ViewSet  ViewSet
	Renderer template.Renderer
	Logger   *zap.Logger
	Observer SaveObserver
}

// Class constructs a view for one route.
type Class func(env Env) http.Handler

func (e Env) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e Env) meta() model.Meta {
	if e.Model == nil {
		return model.Meta{}
	}
	return e.Model.Meta()
}

func (e Env) reverse(route Route, pk ...int64) string {
	if e.ViewSet == nil {
		return ""
	}
	u, err := e.ViewSet.Reverse(route, pk...)
	if err != nil {
		return ""
	}
	return u
}

// viewsetPerm applies the viewset-level check, allowing when there is no
// viewset.
func (e Env) viewsetPerm(user auth.User) bool {
	if e.ViewSet == nil {
		return true
	}
	return e.ViewSet.HasPerm(user)
}

// ViewContext is exposed to templates as "view".
type ViewContext struct {
	AppLabel          string `json:"app_label"`
	ModelName         string `json:"model_name"`
	VerboseName       string `json:"verbose_name"`
	VerboseNamePlural string `json:"verbose_name_plural"`
	ListURL           string `json:"list_url,omitempty"`
	AddURL            string `json:"add_url,omitempty"`
	ChangeURL         string `json:"change_url,omitempty"`
	DeleteURL         string `json:"delete_url,omitempty"`
	DetailURL         string `json:"detail_url,omitempty"`
}

func (e Env) viewContext(obj model.Record) ViewContext {
	meta := e.meta()
	vc := ViewContext{
		AppLabel:          meta.AppLabel,
		ModelName:         meta.ModelName,
		VerboseName:       meta.VerboseName,
		VerboseNamePlural: meta.VerboseNamePlural,
		ListURL:           e.reverse(RouteList),
		AddURL:            e.reverse(RouteAdd),
	}
	if obj != nil {
		vc.ChangeURL = e.reverse(RouteChange, obj.PrimaryKey())
		vc.DeleteURL = e.reverse(RouteDelete, obj.PrimaryKey())
		vc.DetailURL = e.reverse(RouteDetail, obj.PrimaryKey())
	}
	return vc
}

func (e Env) baseContext(r *http.Request, obj model.Record) map[string]any {
	user := auth.UserFrom(r.Context())
	ctx := map[string]any{
		"view":         e.viewContext(obj),
		"user":         map[string]any{"username": user.Username(), "is_authenticated": user.IsAuthenticated()},
		"request_path": r.URL.Path,
	}
	if obj != nil {
		ctx["object"] = model.Values(obj)
		ctx["object_repr"] = model.Display(e.meta(), obj)
	}
	return ctx
}

// candidates lists "<app>/<model><suffix>.html" first, then the extra names.
func (e Env) candidates(explicit string, suffixes []string, fallback string) []string {
	if explicit != "" {
		return []string{explicit}
	}
	meta := e.meta()
	out := make([]string, 0, len(suffixes)+1)
	for _, suffix := range suffixes {
		out = append(out, meta.AppLabel+"/"+meta.ModelName+suffix+".html")
	}
	return append(out, fallback)
}

func (e Env) render(w http.ResponseWriter, r *http.Request, candidates []string, data map[string]any, status int) {
	if e.Renderer == nil {
		e.fail(w, r, model.Improperly("%s view has no renderer", e.meta().Label()))
		return
	}
	out, err := template.RenderFirst(e.Renderer, candidates, data)
	if err != nil {
		e.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(out))
}

func (e Env) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusOf(err)
	fields := []zap.Field{
		zap.String("model", e.meta().Label()),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	}
	switch {
	case status >= http.StatusInternalServerError:
		e.logger().Error("views: request failed", fields...)
	case status == http.StatusForbidden:
		e.logger().Warn("views: permission denied", fields...)
	default:
		e.logger().Debug("views: request rejected", fields...)
	}
	http.Error(w, http.StatusText(status), status)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// IsAjax reports an XMLHttpRequest that is not a PJAX navigation.
func IsAjax(r *http.Request) bool {
	return r.Header.Get("X-Requested-With") == "XMLHttpRequest" && r.Header.Get("X-PJAX") == ""
}

// objectFromRequest loads the record named by the pk route variable.
func (e Env) objectFromRequest(r *http.Request) (model.Record, error) {
	if e.Model == nil {
		return nil, model.Improperly("view has no model")
	}
	raw := mux.Vars(r)[PKVar]
	pk, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, StatusError{Code: http.StatusNotFound, Err: err}
	}
	return e.Model.Manager().Get(r.Context(), pk)
}
