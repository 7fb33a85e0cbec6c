package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/stash/internal/backend"
	"github.com/roach88/stash/internal/backend/filestore"
	"github.com/roach88/stash/internal/backend/s3store"
	"github.com/roach88/stash/internal/backend/sqlite"
	"github.com/roach88/stash/internal/codec"
	"github.com/roach88/stash/internal/config"
	"github.com/roach88/stash/internal/document"
	"github.com/roach88/stash/internal/manager"
)

// Stack is the backend priority list a configuration describes.
type Stack struct {
	Backends   []backend.Backend
	Serializer codec.Serializer
	Table      manager.SyncTable
	logger     *slog.Logger
}

// OpenStack opens every configured backend in priority order. On failure
// the backends opened so far are closed.
func OpenStack(cfg *config.Config, logger *slog.Logger) (*Stack, error) {
	serializer, err := codec.ByFormat(cfg.Serializer)
	if err != nil {
		return nil, err
	}

	s := &Stack{Serializer: serializer, Table: cfg.Sync, logger: logger}
	for i, bc := range cfg.Backends {
		b, err := OpenBackend(bc, serializer)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("backends[%d] (%s): %w", i, bc.Type, err)
		}
		logger.Debug("backend opened", "index", i, "type", bc.Type, "path", bc.Path, "bucket", bc.Bucket)
		s.Backends = append(s.Backends, b)
	}
	return s, nil
}

// OpenBackend opens one backend. File backends name their records with
// the serializer's extension.
func OpenBackend(bc config.BackendConfig, serializer codec.Serializer) (backend.Backend, error) {
	switch bc.Type {
	case config.BackendMemory:
		return backend.NewMemory(), nil
	case config.BackendFile:
		return filestore.Open(bc.Path, serializer.Extension())
	case config.BackendSQLite:
		return sqlite.Open(bc.Path)
	case config.BackendS3:
		return s3store.Open(s3store.Options{
			Bucket:   bc.Bucket,
			Prefix:   bc.Prefix,
			Region:   bc.Region,
			Endpoint: bc.Endpoint,
		})
	default:
		return nil, fmt.Errorf("unknown backend type %q", bc.Type)
	}
}

// Manager returns a document manager for kind over the stack.
func (s *Stack) Manager(kind string) *document.Manager {
	opts := []manager.Option{
		manager.WithSerializer(s.Serializer),
		manager.WithSyncTable(s.Table),
		manager.WithLogger(s.logger),
	}
	if len(s.Backends) > 0 {
		opts = append(opts, manager.WithBackends(s.Backends[0], s.Backends[1:]...))
	}
	return document.NewManager(kind, opts...)
}

// Close closes every backend and joins the errors.
func (s *Stack) Close() error {
	var errs []error
	for _, b := range s.Backends {
		if err := b.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", b.Name(), err))
		}
	}
	s.Backends = nil
	return errors.Join(errs...)
}

// openManager loads the config, opens the stack and builds a manager for
// kind. The caller must close the returned stack.
func (o *RootOptions) openManager(kind string) (*document.Manager, *Stack, error) {
	if kind == "" {
		return nil, nil, NewExitError(ExitCommandError, "kind must not be empty")
	}
	stack, err := o.openStack()
	if err != nil {
		return nil, nil, err
	}
	return stack.Manager(kind), stack, nil
}

// openStack opens the configured backend stack.
func (o *RootOptions) openStack() (*Stack, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	stack, err := OpenStack(cfg, o.logger())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open backends", err)
	}
	return stack, nil
}

// closeStack closes s, logging failures.
func (o *RootOptions) closeStack(s *Stack) {
	if err := s.Close(); err != nil {
		o.logger().Error("error closing backends", "error", err)
	}
}
