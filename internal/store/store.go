// Package store routes a connection string to the backend that serves it.
//
// Backends register an OpenFunc for one or more URL schemes from their init
// functions; import internal/store/all to enable every built-in backend.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/importer/internal/core"
)

// Config describes the store a run writes to.
type Config struct {
	URL            string        // full connection string including scheme
	Table          string        // destination table, default "products"
	ConnectTimeout time.Duration // bounds opening the connection, 0 for none
}

// OpenFunc opens a single-connection Store for cfg.
type OpenFunc func(ctx context.Context, cfg Config) (core.Store, error)

var (
	registry   = make(map[string]OpenFunc)
	registryMu sync.RWMutex
)

// Register makes a backend available for scheme (without "://").
// Panics if the scheme is already registered.
func Register(scheme string, fn OpenFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()

	scheme = strings.ToLower(scheme)
	if _, exists := registry[scheme]; exists {
		panic(fmt.Sprintf("store scheme already registered: %s", scheme))
	}
	registry[scheme] = fn
}

// Schemes returns the registered schemes, sorted.
func Schemes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]string, 0, len(registry))
	for s := range registry {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Scheme extracts the scheme of a connection string: the text before "://",
// or before ":" for the short "sqlite:path" form.
func Scheme(url string) string {
	if i := strings.Index(url, "://"); i > 0 {
		return strings.ToLower(url[:i])
	}
	if i := strings.Index(url, ":"); i > 0 {
		return strings.ToLower(url[:i])
	}
	return ""
}

// Open dispatches cfg to the backend registered for its scheme.
func Open(ctx context.Context, cfg Config) (core.Store, error) {
	if cfg.Table == "" {
		cfg.Table = "products"
	}

	scheme := Scheme(cfg.URL)

	registryMu.RLock()
	fn, ok := registry[scheme]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unsupported connection string scheme %q (registered: %s)",
			scheme, strings.Join(Schemes(), ", "))
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	return fn(ctx, cfg)
}

// Connector adapts Open to core.Connector.
func Connector(cfg Config) core.Connector {
	return func(ctx context.Context) (core.Store, error) {
		return Open(ctx, cfg)
	}
}

// TrimScheme returns url without its "scheme://" or "scheme:" prefix.
func TrimScheme(url string) string {
	if i := strings.Index(url, "://"); i > 0 {
		return url[i+3:]
	}
	if i := strings.Index(url, ":"); i > 0 {
		return url[i+1:]
	}
	return url
}
