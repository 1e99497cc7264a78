package slicer

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/sunxfancy/cpp-slicer/pkg/dfg"
	"github.com/sunxfancy/cpp-slicer/pkg/pdg"
)

// Package-level tracer and meter for slicing operations.
var (
	tracer = otel.Tracer("cpp-slicer.slicer")
	meter  = otel.Meter("cpp-slicer.slicer")
)

var (
	buildLatency metric.Float64Histogram
	buildTotal   metric.Int64Counter
	graphNodes   metric.Int64Histogram
	graphEdges   metric.Int64Histogram
	sliceSize    metric.Int64Histogram
	sliceTotal   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		buildLatency, err = meter.Float64Histogram(
			"slicer_build_duration_seconds",
			metric.WithDescription("Duration of dependence graph builds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		buildTotal, err = meter.Int64Counter(
			"slicer_build_total",
			metric.WithDescription("Total number of dependence graph builds"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		graphNodes, err = meter.Int64Histogram(
			"slicer_graph_nodes",
			metric.WithDescription("Number of nodes per graph"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		graphEdges, err = meter.Int64Histogram(
			"slicer_graph_edges",
			metric.WithDescription("Number of control and data edges per graph"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		sliceSize, err = meter.Int64Histogram(
			"slicer_slice_size",
			metric.WithDescription("Number of nodes in a computed slice"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		sliceTotal, err = meter.Int64Counter(
			"slicer_slice_total",
			metric.WithDescription("Total number of slice requests"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordBuildMetrics(ctx context.Context, duration time.Duration, nodeCount, edgeCount int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("success", success))
	buildLatency.Record(ctx, duration.Seconds(), attrs)
	buildTotal.Add(ctx, 1, attrs)

	if success {
		graphNodes.Record(ctx, int64(nodeCount))
		graphEdges.Record(ctx, int64(edgeCount))
	}
}

func recordSliceMetrics(ctx context.Context, dir pdg.Direction, size int, found bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("direction", dir.String()),
		attribute.Bool("found", found),
	)
	sliceTotal.Add(ctx, 1, attrs)
	if found {
		sliceSize.Record(ctx, int64(size), attrs)
	}
}

func startParseSpan(ctx context.Context, path, language string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Engine.Parse",
		trace.WithAttributes(
			attribute.String("slicer.path", path),
			attribute.String("slicer.language", language),
		),
	)
}

func startBuildSpan(ctx context.Context, function string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Engine.Build",
		trace.WithAttributes(attribute.String("slicer.function", function)),
	)
}

func setBuildSpanResult(span trace.Span, nodeCount, edgeCount int, stats dfg.Stats) {
	span.SetAttributes(
		attribute.Int("slicer.node_count", nodeCount),
		attribute.Int("slicer.edge_count", edgeCount),
		attribute.Int("slicer.loops", stats.Loops),
		attribute.Int("slicer.max_loop_iterations", stats.MaxIterations),
	)
}

func startSliceSpan(ctx context.Context, function string, target Target) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Analysis.Slice",
		trace.WithAttributes(
			attribute.String("slicer.function", function),
			attribute.Int("slicer.line", target.Line),
			attribute.Int("slicer.column", target.Column),
			attribute.String("slicer.direction", target.Direction.String()),
		),
	)
}
