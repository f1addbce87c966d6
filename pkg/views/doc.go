// Package views provides the generic model views: a datatable list view,
// create and update views that save a primary form together with extra
// forms, formsets and inline formsets, plus delete and detail views.
//
// A view is built from a Class (a constructor taking an Env) once per route
// and then serves every request; per-request state never lives on the view.
// Views call back into their ViewSet for permission checks, extra list
// columns and URL reversing.
package views
