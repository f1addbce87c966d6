// Package model defines the persistence contracts the views are written
// against: records, models with a default manager, query sets and atomic
// scopes. Storage backends live under pkg/store.
package model
