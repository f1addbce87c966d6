package viewset

// Option is a viewset setting that may be left unset. The zero value is
// unset, so a view class default wins unless the integrator called Set.
type Option[T any] struct {
	value T
	set   bool
}

// Set returns an Option holding v.
func Set[T any](v T) Option[T] {
	return Option[T]{value: v, set: true}
}

// Get returns the value and whether it was set.
func (o Option[T]) Get() (T, bool) { return o.value, o.set }

func (o Option[T]) IsSet() bool { return o.set }

// Or returns the value, or fallback when unset.
func (o Option[T]) Or(fallback T) T {
	if !o.set {
		return fallback
	}
	return o.value
}

// Policy controls how options reach the views a viewset builds.
type Policy int

const (
	// PropagateSet injects an option only when the viewset set it and the
	// view supports it.
	PropagateSet Policy = iota
	// PropagateAlways injects list_display into every list view, falling
	// back to "__str__" when unset.
	PropagateAlways
)

func (p Policy) String() string {
	switch p {
	case PropagateAlways:
		return "always"
	default:
		return "set"
	}
}
