// Package middleware provides the query handler chain.
package middleware

import (
	"context"
	"errors"
	"sync"

	"github.com/semihalev/zlog/v2"

	"github.com/opelnic/dockerdns/config"
)

// Handler interface
type Handler interface {
	Name() string
	ServeDNS(context.Context, *Chain)
}

type middleware struct {
	mu sync.RWMutex

	handlers []handler
}

type handler struct {
	name string
	new  func(*config.Config) Handler
}

var m middleware
var chainHandlers []Handler
var alreadySetup bool

// Register a middleware
func Register(name string, new func(*config.Config) Handler) {
	zlog.Debug("Register middleware", "name", name)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler{name: name, new: new})
}

// Setup handlers
func Setup(cfg *config.Config) error {
	if cfg == nil {
		return errors.New("set config first")
	}

	if alreadySetup {
		return errors.New("setup already done")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, handler := range m.handlers {
		chainHandlers = append(chainHandlers, handler.new(cfg))
	}

	alreadySetup = true

	return nil
}

// Handlers return registered handlers
func Handlers() []Handler {
	return chainHandlers
}

// List return names of handlers
func List() (list []string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, handler := range m.handlers {
		list = append(list, handler.name)
	}

	return list
}

// Get return a handler by name
func Get(name string) Handler {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i, handler := range m.handlers {
		if handler.name == name {
			if len(chainHandlers) <= i {
				return nil
			}
			return chainHandlers[i]
		}
	}

	return nil
}
