// Package main provides a hook that appends comparison events to a JSON
// lines file.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Request represents the input from the hook executor.
type Request struct {
	Event   string          `json:"event"`
	Config  json.RawMessage `json:"config"`
	Payload json.RawMessage `json:"payload"`
}

// Response represents the output to the hook executor.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Config selects the log file. Relative paths resolve against the hook dir.
type Config struct {
	Path string `json:"path"`
}

type entry struct {
	Time    string          `json:"time"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(fmt.Errorf("failed to decode request: %w", err))
		return
	}

	cfg := Config{Path: "events.jsonl"}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeResponse(fmt.Errorf("failed to parse config: %w", err))
			return
		}
	}

	writeResponse(appendEntry(cfg.Path, entry{
		Time:    time.Now().UTC().Format(time.RFC3339),
		Event:   req.Event,
		Payload: req.Payload,
	}))
}

func appendEntry(path string, e entry) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(e); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeResponse writes a success response, or a failure carrying err.
func writeResponse(err error) {
	resp := Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
