// Package stage holds readiness reporting shared by the pipeline components
// (transcoder, status store, notifier) and surfaced by status endpoints.
package stage

import "strings"

// Health summarizes the readiness of one pipeline component.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: strings.TrimSpace(detail)}
}

func (h Health) String() string {
	state := "ready"
	if !h.Ready {
		state = "not ready"
	}
	if h.Detail == "" {
		return h.Name + ": " + state
	}
	return h.Name + ": " + state + " (" + h.Detail + ")"
}

// AllReady reports whether every component is ready.
func AllReady(checks []Health) bool {
	for _, check := range checks {
		if !check.Ready {
			return false
		}
	}
	return true
}
