package views

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/goliatone/go-material/pkg/auth"
	"github.com/goliatone/go-material/pkg/model"
)

const DeleteTemplate = "material/frontend/views/delete.html"

// DeleteView asks for confirmation on GET and deletes on POST.
type DeleteView struct {
	Env

	SuccessURL   string
	TemplateName string
	PermFunc     PermFunc
}

func NewDeleteView(env Env) *DeleteView {
	return &DeleteView{Env: env}
}

// Delete returns the class building delete views customised by fns.
func Delete(fns ...func(*DeleteView)) Class {
	return func(env Env) http.Handler {
		v := NewDeleteView(env)
		for _, fn := range fns {
			if fn != nil {
				fn(v)
			}
		}
		return v
	}
}

func (v *DeleteView) hasPerm(user auth.User, obj model.Record) bool {
	if v.PermFunc != nil {
		return v.PermFunc(user, obj)
	}
	return v.viewsetPerm(user)
}

func (v *DeleteView) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	obj, err := v.objectFromRequest(r)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	if !v.hasPerm(auth.UserFrom(r.Context()), obj) {
		v.fail(w, r, ErrPermissionDenied)
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		data := v.baseContext(r, obj)
		v.render(w, r, v.candidates(v.TemplateName, []string{"_confirm_delete"}, DeleteTemplate), data, http.StatusOK)
	case http.MethodPost, http.MethodDelete:
		mgr := v.Model.Manager()
		err := mgr.Atomic(r.Context(), func(ctx context.Context) error {
			return mgr.Delete(ctx, obj)
		})
		if v.Observer != nil {
			v.Observer.ObserveSave(v.meta().Label(), err)
		}
		if err != nil {
			v.logger().Error("views: delete failed",
				zap.String("model", v.meta().Label()),
				zap.Int64("pk", obj.PrimaryKey()),
				zap.Error(err),
			)
			v.fail(w, r, err)
			return
		}
		target := v.SuccessURL
		if target == "" {
			target = v.reverse(RouteList)
		}
		http.Redirect(w, r, target, http.StatusFound)
	default:
		v.fail(w, r, ErrMethodNotAllowed)
	}
}
