// Package slicer ties the pipeline together: it parses a source file with
// the front-end for its language, builds the control skeleton, adds data
// dependences, checks the graph and answers slice requests against it.
package slicer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/sunxfancy/cpp-slicer/pkg/cache"
	"github.com/sunxfancy/cpp-slicer/pkg/cdg"
	"github.com/sunxfancy/cpp-slicer/pkg/dfg"
	"github.com/sunxfancy/cpp-slicer/pkg/frontend"
	"github.com/sunxfancy/cpp-slicer/pkg/frontend/csrc"
	"github.com/sunxfancy/cpp-slicer/pkg/frontend/gosrc"
	"github.com/sunxfancy/cpp-slicer/pkg/pdg"
)

// ErrTargetNotFound reports that no statement occupies the requested
// position. It never fails a run: the slice is simply empty.
var ErrTargetNotFound = errors.New("no statement at target position")

// Options configures an Engine.
type Options struct {
	// Analysis tunes the data-dependence fixed point.
	Analysis dfg.Options
	// CacheSize bounds the number of parsed files kept (0 means unlimited).
	CacheSize int
	// Parallelism bounds concurrent targets in SliceMany (<= 0 means 4).
	Parallelism int
}

// DefaultOptions returns the options used by the command line.
func DefaultOptions() Options {
	return Options{
		Analysis:    dfg.DefaultOptions(),
		CacheSize:   64,
		Parallelism: 4,
	}
}

// Engine runs slice requests. It is safe for concurrent use; every request
// builds its own graph and only parsed units are shared.
type Engine struct {
	opts    Options
	sources *cache.SourceCache
	parsers map[frontend.Language]frontend.Parser
}

// New creates an engine.
func New(opts Options) *Engine {
	if opts.Parallelism <= 0 {
		opts.Parallelism = 4
	}
	return &Engine{
		opts:    opts,
		sources: cache.NewSourceCache(opts.CacheSize),
		parsers: map[frontend.Language]frontend.Parser{
			frontend.LanguageC:   csrc.New(frontend.LanguageC),
			frontend.LanguageCPP: csrc.New(frontend.LanguageCPP),
			frontend.LanguageGo:  gosrc.New(),
		},
	}
}

// CacheStats reports parse cache usage.
func (e *Engine) CacheStats() cache.Stats {
	return e.sources.Stats()
}

// CacheHitRate reports the parse cache hit rate.
func (e *Engine) CacheHitRate() float64 {
	return e.sources.HitRate()
}

// CachedPaths lists the files with a parsed unit in the cache, most
// recently used first.
func (e *Engine) CachedPaths() []string {
	return e.sources.Paths()
}

// Load reads and parses the file at path. The parsed unit is reused while
// the file's content is unchanged.
func (e *Engine) Load(ctx context.Context, path string) (*frontend.Unit, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return e.LoadSource(ctx, path, src)
}

// LoadSource parses src as the content of path.
func (e *Engine) LoadSource(ctx context.Context, path string, src []byte) (*frontend.Unit, error) {
	key := path
	if abs, err := filepath.Abs(path); err == nil {
		key = abs
	}
	if unit, ok := e.sources.Lookup(key, src); ok {
		return unit, nil
	}

	lang, err := frontend.DetectLanguage(path)
	if err != nil {
		return nil, err
	}
	parser, ok := e.parsers[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %s", frontend.ErrUnsupportedLanguage, lang)
	}

	ctx, span := startParseSpan(ctx, path, string(lang))
	defer span.End()

	unit, err := parser.Parse(ctx, path, src)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("slicer.function_count", len(unit.Functions)))
	e.sources.Store(key, src, unit)
	return unit, nil
}

// Analysis is the finished dependence graph of one function.
type Analysis struct {
	Function *frontend.Function
	Graph    *pdg.Graph
	Stats    dfg.Stats

	build *cdg.Result
}

// Analyze loads path and builds the graph of the named function.
func (e *Engine) Analyze(ctx context.Context, path, function string) (*Analysis, error) {
	unit, err := e.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	return e.AnalyzeUnit(ctx, unit, function)
}

// AnalyzeUnit builds the graph of the named function of an already parsed
// unit. Every call returns a fresh graph.
func (e *Engine) AnalyzeUnit(ctx context.Context, unit *frontend.Unit, function string) (*Analysis, error) {
	fn, err := unit.Function(function)
	if err != nil {
		return nil, err
	}

	ctx, span := startBuildSpan(ctx, function)
	defer span.End()
	start := time.Now()

	a, err := e.build(fn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build failed")
		recordBuildMetrics(ctx, time.Since(start), 0, 0, false)
		return nil, err
	}

	control, data := a.Graph.EdgeCount()
	setBuildSpanResult(span, a.Graph.Len(), control+data, a.Stats)
	recordBuildMetrics(ctx, time.Since(start), a.Graph.Len(), control+data, true)
	return a, nil
}

func (e *Engine) build(fn *frontend.Function) (*Analysis, error) {
	res, err := cdg.Build(fn)
	if err != nil {
		return nil, fmt.Errorf("building control dependences of %s: %w", fn.Name, err)
	}
	stats, err := dfg.Analyze(res.Graph, e.opts.Analysis)
	if err != nil {
		return nil, fmt.Errorf("analyzing data dependences of %s: %w", fn.Name, err)
	}
	if err := res.Graph.Verify(); err != nil {
		return nil, fmt.Errorf("verifying graph of %s: %w", fn.Name, err)
	}
	return &Analysis{Function: fn, Graph: res.Graph, Stats: stats, build: res}, nil
}

// Locate returns the node of the statement at line:column.
func (a *Analysis) Locate(line, column int) (pdg.NodeID, error) {
	stmt, ok := a.Function.Locate(line, column)
	if !ok {
		return 0, fmt.Errorf("%w: %s at %d:%d", ErrTargetNotFound, a.Function.Name, line, column)
	}
	id, ok := a.build.NodeFor(stmt)
	if !ok {
		return 0, fmt.Errorf("%w: %s at %d:%d", ErrTargetNotFound, a.Function.Name, line, column)
	}
	return id, nil
}

// Target is one slice request.
type Target struct {
	Line      int           `json:"line"`
	Column    int           `json:"column"`
	Direction pdg.Direction `json:"direction"`
}

func (t Target) String() string {
	return fmt.Sprintf("%d:%d %s", t.Line, t.Column, t.Direction)
}

// Result is the outcome of one slice request. When Found is false the slice
// is empty and Graph carries no marks.
type Result struct {
	Target Target
	Found  bool
	Seed   pdg.NodeID
	Nodes  []pdg.NodeID
	Graph  *pdg.Graph
}

// Slice clears any previous marks and slices from the statement at the
// target. A position matching no statement gives an empty result.
func (a *Analysis) Slice(ctx context.Context, target Target) *Result {
	a.Graph.ResetAll()
	res := &Result{Target: target, Graph: a.Graph, Nodes: []pdg.NodeID{}}

	seed, err := a.Locate(target.Line, target.Column)
	if err != nil {
		recordSliceMetrics(ctx, target.Direction, 0, false)
		return res
	}

	_, span := startSliceSpan(ctx, a.Function.Name, target)
	defer span.End()

	res.Found = true
	res.Seed = seed
	res.Nodes = a.Graph.Slice(seed, target.Direction)
	span.SetAttributes(attribute.Int("slicer.slice_size", len(res.Nodes)))
	recordSliceMetrics(ctx, target.Direction, len(res.Nodes), true)
	return res
}

// SliceAt builds the graph of function in path and slices it once.
func (e *Engine) SliceAt(ctx context.Context, path, function string, target Target) (*Result, error) {
	a, err := e.Analyze(ctx, path, function)
	if err != nil {
		return nil, err
	}
	return a.Slice(ctx, target), nil
}

// SliceMany slices function in path once per target. Targets run
// concurrently, each on its own graph; results keep the order of targets.
func (e *Engine) SliceMany(ctx context.Context, path, function string, targets []Target) ([]*Result, error) {
	unit, err := e.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	if _, err := unit.Function(function); err != nil {
		return nil, err
	}

	results := make([]*Result, len(targets))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Parallelism)
	for i, target := range targets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			a, err := e.AnalyzeUnit(ctx, unit, function)
			if err != nil {
				return fmt.Errorf("target %s: %w", target, err)
			}
			results[i] = a.Slice(ctx, target)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
