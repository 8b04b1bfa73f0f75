// Package match tracks the match currently being recorded.
package match

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"

	"github.com/abporter521/CS3500-TankWars/pkg/core"
)

// Context holds the current match.
type Context struct {
	mu    deadlock.RWMutex
	match *core.Match
}

// NewContext creates a Context with a placeholder match.
func NewContext() *Context {
	return &Context{match: &core.Match{ServerName: "No match running"}}
}

// Begin stamps m with a fresh UUID and start time and makes it current.
func (c *Context) Begin(m core.Match, start time.Time) core.Match {
	m.UUID = uuid.NewString()
	m.StartTime = start
	m.EndTime = time.Time{}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.match = &m
	return m
}

// End sets the end time of the current match and returns a copy of it.
func (c *Context) End(end time.Time) core.Match {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.match.EndTime = end
	return *c.match
}

// Get returns a copy of the current match.
func (c *Context) Get() core.Match {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return *c.match
}

// SetID records the storage-assigned id of the current match.
func (c *Context) SetID(id uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.match.ID = id
}

// LogAttrs is a logging.ContextProvider adding the match UUID to records.
func (c *Context) LogAttrs(context.Context) []slog.Attr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.match.UUID == "" {
		return nil
	}
	return []slog.Attr{slog.String("match", c.match.UUID)}
}
