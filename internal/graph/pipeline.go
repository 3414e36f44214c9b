package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/graphql-go/graphql"

	"github.com/sakif/linkboard/internal/apperror"
	"github.com/sakif/linkboard/internal/cache"
)

// errFault is what GraphQL sees for a field that failed on infrastructure.
// The cause is logged, never sent to the client.
var errFault = errors.New("internal error")

const defaultCacheWriteTimeout = 5 * time.Second

// Pipeline resolves registered fields. One Pipeline serves every request.
type Pipeline struct {
	cache             cache.Cache
	logger            *slog.Logger
	cacheWriteTimeout time.Duration

	// writes tracks background cache writes so shutdown can wait for them.
	writes sync.WaitGroup
}

func NewPipeline(c cache.Cache, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		cache:             c,
		logger:            logger,
		cacheWriteTimeout: defaultCacheWriteTimeout,
	}
}

// Wait blocks until every background cache write has finished.
func (p *Pipeline) Wait() {
	p.writes.Wait()
}

// resolver adapts e to graphql-go.
func (p *Pipeline) resolver(e *entry) graphql.FieldResolveFn {
	return func(params graphql.ResolveParams) (any, error) {
		raw := params.Args
		if st, ok := stateFrom(params.Context); ok {
			raw = restoreNulls(raw, params.Info.FieldASTs, st.variables)
		}
		return p.run(params.Context, e, raw, requestedPaths(params.Info))
	}
}

// run takes one field resolution through every pipeline state.
func (p *Pipeline) run(ctx context.Context, e *entry, raw map[string]any, paths []string) (any, error) {
	st, ok := stateFrom(ctx)
	if !ok {
		return nil, fmt.Errorf("graph: field %s resolved outside a request", e.opts.Name)
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	logger := p.logger.With(slog.String("field", e.opts.Name))

	// Bound
	args, bindErr := e.bind(raw)

	// CacheCheck
	var cacheKey string
	if bindErr == nil && e.opts.CacheExpiry > 0 {
		cacheKey = CacheKey(e.opts.Name, paths, raw)
		cached, hit, err := p.cache.Get(ctx, cacheKey)
		if err != nil {
			return p.fault(st, logger, fmt.Errorf("reading cache: %w", err))
		}
		if hit {
			result, err := e.decode(cached)
			if err == nil {
				logger.Debug("cache hit", slog.String("key", cacheKey))
				return result, nil
			}
			logger.Warn("ignoring undecodable cache entry",
				slog.String("key", cacheKey),
				slog.String("error", err.Error()),
			)
		}
	}

	// Validating
	scope := newScope(st)
	defer scope.rollback()

	if e.opts.RequireUser && !scope.Authenticated() {
		return p.rejectOrFault(st, logger, apperror.AuthRequired())
	}
	if bindErr != nil {
		return p.rejectOrFault(st, logger, bindErr)
	}
	if err := e.authorize(ctx, scope, args); err != nil {
		scope.rollback()
		return p.rejectOrFault(st, logger, err)
	}

	// Resolving
	result, err := e.resolve(ctx, scope, args)
	if err != nil {
		scope.rollback()
		return p.rejectOrFault(st, logger, err)
	}
	if err := scope.commit(); err != nil {
		return p.fault(st, logger, err)
	}

	// Caching
	if cacheKey != "" {
		p.writeCache(logger, cacheKey, result, e.opts.CacheExpiry)
	}

	return result, nil
}

// rejectOrFault unwraps a ValidationError into the field's result exactly
// once. Every other error is a fault.
func (p *Pipeline) rejectOrFault(st *requestState, logger *slog.Logger, err error) (any, error) {
	if verr, ok := apperror.AsValidation(err); ok {
		if apperror.IsAuthError(verr) {
			logger.Debug("anonymous caller rejected")
		} else {
			logger.Debug("request rejected", slog.String("reason", verr.Error()))
		}
		return verr.Result, nil
	}
	return p.fault(st, logger, err)
}

func (p *Pipeline) fault(st *requestState, logger *slog.Logger, err error) (any, error) {
	logger.Error("field resolution failed", slog.String("error", err.Error()))
	st.recordFault(err)
	return nil, errFault
}

// writeCache stores result in the background. The write outlives the
// request, so it gets its own deadline instead of the request's context.
// Failures are only logged.
func (p *Pipeline) writeCache(logger *slog.Logger, key string, result any, ttl time.Duration) {
	payload, err := json.Marshal(result)
	if err != nil {
		logger.Warn("cannot encode result for cache", slog.String("error", err.Error()))
		return
	}

	p.writes.Add(1)
	go func() {
		defer p.writes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.cacheWriteTimeout)
		defer cancel()

		if err := p.cache.Set(ctx, key, payload, ttl); err != nil {
			logger.Warn("cache write failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}()
}
