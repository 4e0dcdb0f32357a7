// Package runner parses a set of sources with a set of tools in parallel and
// collects one result per (source, tool) pair.
package runner

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"

	"github.com/newhook/harvest/internal/cache"
	"github.com/newhook/harvest/internal/issue"
	"github.com/newhook/harvest/internal/logging"
	"github.com/newhook/harvest/internal/parser"
	"github.com/newhook/harvest/internal/report"
	"github.com/newhook/harvest/internal/tools"
	"golang.org/x/sync/errgroup"
)

// ErrNoTool is recorded on a result when no tool recognizes a source.
var ErrNoTool = errors.New("no tool recognizes this input")

var errNoDigest = errors.New("source has no content digest")

// Options configures a Runner.
type Options struct {
	// Tools are the tool ids to run on every source. When empty, tools are
	// detected per source.
	Tools []string
	// MinSeverity drops issues below this severity from the results.
	MinSeverity issue.Severity
	// Concurrency bounds the number of parses running at once.
	// Zero means the number of CPUs.
	Concurrency int
	// Clean strips CI decorations from every line for all tools.
	Clean bool
	// Cache, when set, is consulted before parsing and filled afterwards.
	Cache *cache.ReportCache
}

// Result is the outcome of parsing one source with one tool.
type Result struct {
	Source string
	Tool   string
	// Report is nil when Err is a structural failure. A cancelled parse
	// leaves a partial report together with the error.
	Report *report.Report
	Err    error
	// Cached is true when the report came from the cache.
	Cached bool
}

// Runner parses sources with the tools of a registry.
type Runner struct {
	reg  *tools.Registry
	opts Options
}

// New returns a runner over reg.
func New(reg *tools.Registry, opts Options) *Runner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.NumCPU()
	}
	return &Runner{reg: reg, opts: opts}
}

type job struct {
	src    parser.Source
	engine *parser.Engine
}

// Run parses every source with its tools and returns the results in input
// order: by source, then by tool. A failure to read one source is recorded
// on its results and does not stop the others. Cancellation of ctx stops the
// run; results gathered so far are returned with the context error.
func (r *Runner) Run(ctx context.Context, sources []parser.Source) ([]Result, error) {
	log := logging.WithGroup("runner")

	var explicit []*parser.Engine
	if len(r.opts.Tools) > 0 {
		var err error
		explicit, err = r.reg.Engines(r.opts.Tools)
		if err != nil {
			return nil, err
		}
	}

	var jobs []job
	var results []Result
	for _, src := range sources {
		if parser.SingleUse(src) {
			buffered, err := buffer(src)
			if err != nil {
				log.Warn("failed to buffer source", "source", src.Name(), "error", err)
				results = append(results, Result{Source: src.Name(), Err: err})
				jobs = append(jobs, job{src: src})
				continue
			}
			src = buffered
		}
		if r.opts.Clean {
			src = Clean(src)
		}
		engines := explicit
		if engines == nil {
			engines = r.reg.Detect(src)
		}
		if len(engines) == 0 {
			log.Warn("no tool detected", "source", src.Name())
			results = append(results, Result{Source: src.Name(), Err: ErrNoTool})
			jobs = append(jobs, job{src: src})
			continue
		}
		for _, e := range engines {
			results = append(results, Result{Source: src.Name(), Tool: e.ID()})
			jobs = append(jobs, job{src: src, engine: e})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)

	for i, j := range jobs {
		if j.engine == nil {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return err
			}
			rep, cached, err := r.parse(gctx, j)
			results[i].Report = rep
			results[i].Cached = cached
			results[i].Err = err
			if err != nil && rep != nil && rep.Cancelled() {
				return err
			}
			if err != nil {
				log.Warn("parse failed", "source", j.src.Name(), "tool", j.engine.ID(), "error", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("run cancelled: %w", err)
	}
	return results, nil
}

func (r *Runner) parse(ctx context.Context, j job) (*report.Report, bool, error) {
	key, keyed := r.cacheKey(j)
	if keyed {
		if rep, ok := r.opts.Cache.Get(ctx, key, j.src.Name()); ok {
			logging.DebugContext(ctx, "report cache hit", "source", j.src.Name(), "tool", j.engine.ID())
			return rep.Filter(r.opts.MinSeverity), true, nil
		}
	}

	rep, err := j.engine.Parse(ctx, j.src)
	if err != nil {
		if rep != nil {
			rep = rep.Filter(r.opts.MinSeverity)
		}
		return rep, false, err
	}
	if keyed {
		r.opts.Cache.Put(ctx, key, rep)
	}
	return rep.Filter(r.opts.MinSeverity), false, nil
}

// cacheKey derives the cache key of a job. Sources without a digest, such
// as unbuffered readers, are not cached.
func (r *Runner) cacheKey(j job) (cache.Key, bool) {
	if r.opts.Cache == nil {
		return "", false
	}
	d, ok := j.src.(parser.Digester)
	if !ok {
		return "", false
	}
	digest, err := d.Digest()
	if err != nil {
		logging.Debug("source not cacheable", "source", j.src.Name(), "error", err)
		return "", false
	}
	cfg := j.engine.Config()
	variant := strconv.FormatBool(r.opts.Clean) + "/" + strconv.FormatBool(cfg.Clean)
	if cfg.Pattern != nil {
		variant += "/" + cfg.Pattern.String()
	}
	return cache.NewKey(digest, j.engine.ID(), variant), true
}
