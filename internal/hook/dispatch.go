package hook

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
)

// Dispatcher delivers events to every hook that handles them.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
}

// NewDispatcher creates a Dispatcher over discovered hooks.
func NewDispatcher(m *Manager, e *Executor) *Dispatcher {
	return &Dispatcher{manager: m, executor: e}
}

// Notify runs the matching hooks one after another and returns how many
// succeeded. Failures are logged and do not stop later hooks.
func (d *Dispatcher) Notify(ctx context.Context, event string, payload any) (int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("encode payload: %w", err)
	}

	ok := 0
	for _, h := range d.manager.List() {
		if !h.Handles(event) {
			continue
		}

		resp, err := d.executor.Execute(ctx, h, &Request{
			Event:   event,
			Config:  h.Manifest.Config,
			Payload: data,
		})
		switch {
		case err != nil:
			log.Printf("Hook %s: %v", h.Manifest.Name, err)
		case !resp.Success:
			log.Printf("Hook %s reported failure: %s", h.Manifest.Name, resp.Error)
		default:
			ok++
		}
	}
	return ok, nil
}
