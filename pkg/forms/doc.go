// Package forms binds submitted url.Values to typed, validated data.
//
// A Spec lists the fields of one form. Spec.New produces a Form that is
// either unbound (rendered from initial values) or bound to submitted data.
// FormSetSpec and InlineSpec build ordered collections of forms sharing a
// prefix, driven by a management form that carries the row counts. Inline
// formsets additionally load and persist child records linked to a parent
// through a foreign key column.
//
// Field names on the wire follow the "<prefix>-<name>" convention; rows of a
// formset use "<prefix>-<index>-<name>". Messages that do not belong to a
// single field are stored under NonFieldErrors ("__all__").
package forms
