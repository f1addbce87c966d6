// Package template defines the renderer contract views depend on, plus
// candidate selection so a view can offer several template names and render
// the first one that exists.
package template
