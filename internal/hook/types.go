// Package hook runs external programs when a comparison run finishes.
//
// A hook lives in its own directory under the hook dir, described by a
// hook.json manifest. The executable receives a Request as JSON on stdin and
// answers with a Response on stdout.
package hook

import "encoding/json"

// ManifestFile is the manifest name looked up in every hook directory.
const ManifestFile = "hook.json"

// Manifest describes a hook's metadata and the events it handles.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Events      []string        `json:"events"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Request is written to a hook's stdin.
type Request struct {
	Event   string          `json:"event"`
	Config  json.RawMessage `json:"config,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// Response is read from a hook's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Hook is a discovered hook with its manifest and location.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Handles reports whether the hook subscribes to event. A manifest without
// events receives all of them.
func (h *Hook) Handles(event string) bool {
	if len(h.Manifest.Events) == 0 {
		return true
	}
	for _, e := range h.Manifest.Events {
		if e == event {
			return true
		}
	}
	return false
}
