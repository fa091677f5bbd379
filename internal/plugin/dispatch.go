package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/ayusman/irplan/internal/geometry"
)

// Binding names one plugin action to run for a category.
type Binding struct {
	PluginName string
	ActionName string
	Config     json.RawMessage
}

// Dispatcher runs the actions bound to a recognized gesture.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
}

// NewDispatcher creates a Dispatcher over m and e.
func NewDispatcher(m *Manager, e *Executor) *Dispatcher {
	return &Dispatcher{manager: m, executor: e}
}

// Run executes every binding in order for category and returns the number
// that succeeded. Failures are logged and do not stop later bindings.
func (d *Dispatcher) Run(ctx context.Context, category string, pointer *geometry.Point2D, bindings []Binding) int {
	ok := 0
	for _, b := range bindings {
		if err := d.runOne(ctx, category, pointer, b); err != nil {
			log.Printf("plugin: %s/%s for %s: %v", b.PluginName, b.ActionName, category, err)
			continue
		}
		ok++
	}
	return ok
}

func (d *Dispatcher) runOne(ctx context.Context, category string, pointer *geometry.Point2D, b Binding) error {
	p, err := d.manager.Get(b.PluginName)
	if err != nil {
		return err
	}
	if !p.Supports(b.ActionName) {
		return fmt.Errorf("action %q not supported", b.ActionName)
	}

	config := b.Config
	if len(config) == 0 {
		config = json.RawMessage("{}")
	}

	resp, err := d.executor.Execute(ctx, p, &Request{
		Action:    b.ActionName,
		Gesture:   category,
		Config:    config,
		Params:    json.RawMessage("{}"),
		Pointer:   pointer,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("plugin reported failure: %s", resp.Error)
	}
	return nil
}
