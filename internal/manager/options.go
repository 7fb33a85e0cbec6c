package manager

import (
	"log/slog"

	"github.com/roach88/stash/internal/backend"
	"github.com/roach88/stash/internal/codec"
)

type options struct {
	backends   []backend.Backend
	serializer codec.Serializer
	table      SyncTable
	logger     *slog.Logger
	init       any
}

// Option configures a Manager.
type Option func(*options)

// WithBackends sets the backend priority list. primary is the only backend
// written to; fallbacks are consulted, in order, for lookups and LoadAll.
func WithBackends(primary backend.Backend, fallbacks ...backend.Backend) Option {
	return func(o *options) {
		o.backends = append([]backend.Backend{primary}, fallbacks...)
	}
}

// WithSerializer sets the payload codec. Defaults to codec.JSON.
func WithSerializer(s codec.Serializer) Option {
	return func(o *options) {
		o.serializer = s
	}
}

// WithSyncTable sets the table used by deferred syncs, LoadAll and Renumber.
func WithSyncTable(t SyncTable) Option {
	return func(o *options) {
		o.table = t
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithInit registers a hook run on every new record, created or loaded,
// before it is populated. Hosts use it to hand records pointers they need
// during Sync, such as their own manager.
//
// The hook's parameter type must match the manager's record type; New
// panics otherwise.
func WithInit[T Record](fn func(T)) Option {
	return func(o *options) {
		o.init = fn
	}
}
