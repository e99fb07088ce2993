package paramcache

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultMaxAge is the freshness window applied when Config.MaxAge is nil.
const DefaultMaxAge = time.Hour

// Config holds construction-time settings for a ParameterCache.
type Config struct {
	// WithDecryption is forwarded verbatim on every batch fetch.
	// A nil pointer means true.
	WithDecryption *bool
	// MaxAge is the freshness window after a fully successful reload.
	// A nil pointer means DefaultMaxAge. A zero duration is a sentinel
	// meaning "never trust the cache": every call reloads.
	MaxAge *time.Duration
	// Clock overrides the time source used for freshness decisions.
	// A nil value means time.Now. Intended for tests.
	Clock func() time.Time
}

// LoadOptions controls a single Load/Reload/Get/GetAll call.
type LoadOptions struct {
	// IgnoreCache forces a full reload cycle even when the cache is fresh.
	IgnoreCache bool
}

// ParameterCache maps local aliases to remote parameter paths and serves
// values from an in-memory store, reloading the full path set in batches of
// at most MaxParametersPerRequest once the freshness window lapses.
//
// A ParameterCache is NOT safe for concurrent use. Two callers reloading at
// once may both reset the load state and issue overlapping batches; the value
// store converges because per-path writes are idempotent, but redundant
// remote calls are possible and the freshness timestamp belongs to whichever
// cycle finishes last. Callers needing stricter guarantees must serialize
// access themselves.
type ParameterCache struct {
	store  ParameterStore
	logger zerolog.Logger

	withDecryption bool
	maxAge         time.Duration

	aliases map[string]string
	paths   []string // distinct remote paths, sorted for stable batches
	values  map[string]Value
	loaded  map[string]bool

	// lastLoad is zero until the first cycle completes in full. It is only
	// advanced when every path has been loaded, never per batch.
	lastLoad time.Time
	now      func() time.Time
}

// New creates a ParameterCache over the given alias to path mapping. The
// mapping is copied; later mutation of the argument has no effect. No remote
// call is made here. The store is first contacted by Load/Get/GetAll.
func New(aliases map[string]string, store ParameterStore, cfg *Config, logger zerolog.Logger) (*ParameterCache, error) {
	if store == nil {
		return nil, fmt.Errorf("parameter store cannot be nil")
	}

	c := &ParameterCache{
		store:          store,
		logger:         logger.With().Str("component", "ParameterCache").Logger(),
		withDecryption: true,
		maxAge:         DefaultMaxAge,
		aliases:        make(map[string]string, len(aliases)),
		values:         make(map[string]Value),
		loaded:         make(map[string]bool),
		now:            time.Now,
	}
	if cfg != nil {
		if cfg.WithDecryption != nil {
			c.withDecryption = *cfg.WithDecryption
		}
		if cfg.MaxAge != nil {
			if *cfg.MaxAge < 0 {
				return nil, fmt.Errorf("max age must not be negative, got %s", *cfg.MaxAge)
			}
			c.maxAge = *cfg.MaxAge
		}
		if cfg.Clock != nil {
			c.now = cfg.Clock
		}
	}

	for alias, path := range aliases {
		if alias == "" || path == "" {
			return nil, fmt.Errorf("alias and path must be non-empty, got %q -> %q", alias, path)
		}
		c.aliases[alias] = path
		if _, seen := c.values[path]; !seen {
			c.values[path] = Value{}
			c.loaded[path] = false
			c.paths = append(c.paths, path)
		}
	}
	sort.Strings(c.paths)

	c.logger.Debug().
		Int("alias_count", len(c.aliases)).
		Int("path_count", len(c.paths)).
		Dur("max_age", c.maxAge).
		Msg("ParameterCache initialized.")
	return c, nil
}

// Load refreshes the cache if it is stale, honouring the freshness window.
func (c *ParameterCache) Load(ctx context.Context) error {
	return c.Reload(ctx, LoadOptions{})
}

// Reload refreshes the cache. When the freshness timestamp is within MaxAge
// and opts.IgnoreCache is false it returns immediately without any remote
// call. Otherwise it resets the load state for every path, previously loaded
// ones included, and re-fetches the full set in batches.
func (c *ParameterCache) Reload(ctx context.Context, opts LoadOptions) error {
	if !opts.IgnoreCache && c.maxAge != 0 && c.cacheAge() <= c.maxAge {
		return nil
	}

	for _, path := range c.paths {
		c.loaded[path] = false
	}
	return c.loadPending(ctx)
}

// Get reloads per opts and returns the cached value for alias. An alias
// outside the configured mapping returns ErrUnknownAlias before any remote
// call is attempted.
func (c *ParameterCache) Get(ctx context.Context, alias string, opts LoadOptions) (Value, error) {
	path, ok := c.aliases[alias]
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrUnknownAlias, alias)
	}
	if err := c.Reload(ctx, opts); err != nil {
		return Value{}, err
	}
	return c.values[path], nil
}

// GetAll reloads per opts and returns every alias mapped to its current
// cached value. Aliases whose paths the remote store never returned map to
// an absent Value.
func (c *ParameterCache) GetAll(ctx context.Context, opts LoadOptions) (map[string]Value, error) {
	if err := c.Reload(ctx, opts); err != nil {
		return nil, err
	}
	all := make(map[string]Value, len(c.aliases))
	for alias, path := range c.aliases {
		all[alias] = c.values[path]
	}
	return all, nil
}

// cacheAge returns the whole-second age of the cache, rounded to nearest.
// A cache that never completed a cycle is reported as just past MaxAge.
func (c *ParameterCache) cacheAge() time.Duration {
	if c.lastLoad.IsZero() {
		return c.maxAge + time.Second
	}
	seconds := math.Round(c.now().Sub(c.lastLoad).Seconds())
	return time.Duration(seconds) * time.Second
}

// loadPending fetches every not-yet-loaded path in capped batches until none
// remain, then stamps the freshness timestamp. A fetch error propagates
// unchanged in meaning: the in-flight batch stays unloaded and the timestamp
// is not advanced, so the next reload retries the same paths.
func (c *ParameterCache) loadPending(ctx context.Context) error {
	cycleLogger := c.logger.With().Str("cycle_id", uuid.NewString()).Logger()

	calls := 0
	for {
		batch := c.pendingBatch()
		if len(batch) == 0 {
			c.lastLoad = c.now()
			cycleLogger.Debug().Int("batch_calls", calls).Msg("Reload cycle complete.")
			return nil
		}

		resp, err := c.store.GetParameters(ctx, BatchRequest{
			Names:          batch,
			WithDecryption: c.withDecryption,
		})
		if err != nil {
			cycleLogger.Error().Err(err).Int("batch_size", len(batch)).Msg("Batch fetch failed.")
			return fmt.Errorf("get parameters batch: %w", err)
		}
		calls++

		for _, p := range resp.Parameters {
			c.values[p.Name] = Value{raw: p.Value, present: true}
		}
		// Every requested path counts as loaded, returned or not. The remote
		// store drops unknown names silently; retrying them within this cycle
		// would never terminate.
		for _, name := range batch {
			c.loaded[name] = true
		}
	}
}

// pendingBatch selects up to MaxParametersPerRequest paths whose load state
// is false, in stable sorted order.
func (c *ParameterCache) pendingBatch() []string {
	var batch []string
	for _, path := range c.paths {
		if c.loaded[path] {
			continue
		}
		batch = append(batch, path)
		if len(batch) == MaxParametersPerRequest {
			break
		}
	}
	return batch
}
