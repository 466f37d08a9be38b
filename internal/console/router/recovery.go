package router

import (
	"errors"
	"strings"

	"github.com/rs/zerolog"
)

// ErrStaleBundle means the running console no longer matches what is
// installed, so a view could not be loaded. Reloading fixes it.
var ErrStaleBundle = errors.New("console binary changed on disk")

// staleMarkers are messages that mean the same thing when an error carries
// no sentinel. Matching is case-sensitive.
var staleMarkers = []string{
	"Failed to fetch dynamically imported module",
	"Loading chunk",
	"Loading CSS chunk",
}

// IsStaleBundle reports whether err is a stale-bundle failure.
func IsStaleBundle(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrStaleBundle) {
		return true
	}
	msg := err.Error()
	for _, marker := range staleMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Reloader restarts the console from scratch.
type Reloader interface {
	Reload() error
}

// ReloaderFunc adapts a function to Reloader.
type ReloaderFunc func() error

func (f ReloaderFunc) Reload() error { return f() }

// Recovery reloads the console when a navigation fails on a stale bundle.
type Recovery struct {
	Reloader Reloader
	Logger   zerolog.Logger
}

// Handle is an ErrorHandler. It claims stale-bundle errors and leaves every
// other error to the caller.
func (rc *Recovery) Handle(err error, to *Route) bool {
	if !IsStaleBundle(err) {
		return false
	}

	event := rc.Logger.Warn().Err(err)
	if to != nil {
		event = event.Str("route", to.Name)
	}
	event.Msg("Stale console detected, reloading")

	if err := rc.Reloader.Reload(); err != nil {
		rc.Logger.Error().Err(err).Msg("Failed to reload console")
		return false
	}
	return true
}

// Install registers rc on r.
func (rc *Recovery) Install(r *Router) {
	r.OnError(rc.Handle)
}
