package deps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-notes2pdf/internal/cliexec"
	"github.com/alnah/go-notes2pdf/internal/envbuild"
	"github.com/alnah/go-notes2pdf/internal/pathsec"
	"github.com/alnah/go-notes2pdf/internal/resolver"
	"github.com/alnah/go-notes2pdf/internal/version"
)

// DefaultCacheTTL is how long a check result is reused.
const DefaultCacheTTL = 30 * time.Second

// cacheSize bounds the result cache; one entry per tool is the steady state.
const cacheSize = 16

type cacheEntry struct {
	result      Result
	fingerprint string
	expires     time.Time
}

// Checker resolves and probes tools. It is safe for concurrent use.
type Checker struct {
	runner   Runner
	resolver *resolver.Resolver
	builder  envbuild.Builder
	environ  func() []string
	logger   hclog.Logger
	policy   Policy
	ttl      time.Duration
	now      func() time.Time

	cache *lru.Cache
}

// Option configures a Checker.
type Option func(*Checker)

// WithLogger sets the logger for check traces.
func WithLogger(l hclog.Logger) Option {
	return func(c *Checker) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithPolicy sets the below-minimum policy. The default is PolicyStrict.
func WithPolicy(p Policy) Option {
	return func(c *Checker) { c.policy = p }
}

// WithCacheTTL sets how long results are reused. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Checker) { c.ttl = ttl }
}

// WithBuilder replaces the environment builder.
func WithBuilder(b envbuild.Builder) Option {
	return func(c *Checker) { c.builder = b }
}

// NewChecker creates a Checker that spawns tools through runner.
func NewChecker(runner Runner, opts ...Option) (*Checker, error) {
	if runner == nil {
		return nil, errors.New("deps: runner is nil")
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating dependency cache: %w", err)
	}

	c := &Checker{
		runner:  runner,
		builder: envbuild.NewBuilder(),
		environ: os.Environ,
		logger:  hclog.NewNullLogger(),
		policy:  PolicyStrict,
		ttl:     DefaultCacheTTL,
		now:     time.Now,
		cache:   cache,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.resolver = resolver.New(runner, c.builder)
	return c, nil
}

// Policy returns the below-minimum policy in use.
func (c *Checker) Policy() Policy { return c.policy }

// Invalidate drops every cached result. Call it when settings change.
func (c *Checker) Invalidate() {
	c.cache.Purge()
	c.logger.Debug("dependency cache invalidated")
}

// Check resolves and probes one tool.
func (c *Checker) Check(ctx context.Context, tool Tool, s Settings) Result {
	spec, ok := specs[tool]
	if !ok {
		res := Result{Tool: tool}
		res.fail(fmt.Errorf("%w: %d", ErrUnknownTool, int(tool)))
		return res
	}

	key := spec.Name
	fp := s.fingerprint() + "|" + c.policy.String()
	if cached, ok := c.lookup(key, fp); ok {
		c.logger.Trace("dependency cache hit", "tool", spec.Name)
		return cached
	}

	res := c.probe(ctx, spec, s)

	// A canceled probe says nothing about the tool.
	if res.Kind != KindCanceled {
		c.store(key, fp, res)
	}
	return res
}

func (c *Checker) probe(ctx context.Context, spec Spec, s Settings) Result {
	minimum := strings.TrimSpace(s.MinVersion)
	if minimum == "" {
		minimum = spec.MinimumVersion
	}
	base := Result{Tool: spec.Tool, Optional: spec.Optional, MinVersion: minimum}

	if !version.Valid(minimum) {
		base.fail(fmt.Errorf("%w: %q", ErrInvalidMinVer, minimum))
		return base
	}
	if err := pathsec.ExecutablePathError(s.CustomPath); err != nil {
		base.ExecutablePath = s.CustomPath
		base.fail(fmt.Errorf("custom path: %w", err))
		return base
	}

	resolved := c.resolver.Resolve(ctx, s.CustomPath, spec.Name, s.AdditionalPaths)
	// Conversions spawn from a work directory, so a relative path must be
	// anchored here, where it was probed.
	if resolved.Via == resolver.ViaUserPath && !filepath.IsAbs(resolved.Path) {
		if abs, err := filepath.Abs(resolved.Path); err == nil {
			resolved.Path = abs
		}
	}
	env := c.builder.Build(envbuild.FromEnviron(c.environ()), s.AdditionalPaths, s.CustomEnv)

	res := CheckDependency(ctx, c.runner, spec.Name, resolved.Path, spec.VersionArgs, spec.VersionPattern, ProbeOptions{
		Env:        env,
		Timeout:    s.Timeout,
		MinVersion: minimum,
		Policy:     c.policy,
	})
	res.Tool = spec.Tool
	res.Optional = spec.Optional
	res.ResolvedVia = resolved.Via

	c.logger.Debug("dependency checked",
		"tool", spec.Name,
		"path", resolved.Path,
		"via", resolved.Via,
		"available", res.Available,
		"version", res.Version,
		"kind", res.Kind,
	)
	if res.Warning != "" {
		c.logger.Warn("outdated dependency", "tool", spec.Name, "version", res.Version, "minimum", minimum)
	}
	return res
}

// CheckAll checks every tool concurrently. Tools missing from settings use
// zero Settings.
func (c *Checker) CheckAll(ctx context.Context, settings map[Tool]Settings) *Report {
	var (
		mu      sync.Mutex
		results = make(map[Tool]Result, len(specs))
		g       errgroup.Group
	)
	for _, tool := range Tools() {
		g.Go(func() error {
			res := c.Check(ctx, tool, settings[tool])
			mu.Lock()
			results[tool] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // checks record failures in their Result

	return newReport(results)
}

func (c *Checker) lookup(key, fp string) (Result, bool) {
	if c.ttl <= 0 {
		return Result{}, false
	}
	v, ok := c.cache.Get(key)
	if !ok {
		return Result{}, false
	}
	entry, ok := v.(cacheEntry)
	if !ok || entry.fingerprint != fp || !c.now().Before(entry.expires) {
		c.cache.Remove(key)
		return Result{}, false
	}
	return entry.result, true
}

func (c *Checker) store(key, fp string, res Result) {
	if c.ttl <= 0 {
		return
	}
	c.cache.Add(key, cacheEntry{result: res, fingerprint: fp, expires: c.now().Add(c.ttl)})
}

var _ Runner = (*cliexec.Executor)(nil)
