package healthcheck

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sunxfancy/cpp-slicer/internal/config"
	"github.com/sunxfancy/cpp-slicer/pkg/dfg"
	"github.com/sunxfancy/cpp-slicer/pkg/frontend"
	"github.com/sunxfancy/cpp-slicer/pkg/neo4jexport"
	"github.com/sunxfancy/cpp-slicer/pkg/pdg"
	"github.com/sunxfancy/cpp-slicer/pkg/slicer"
)

// Status values reported for a component.
const (
	StatusReady   = "ready"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// ComponentStatus represents the health of one component.
type ComponentStatus struct {
	Name   string
	Detail string
	Status string // "ready", "error" or "skipped"
	Error  string
}

// HealthCheckResult contains the full health check output for display.
type HealthCheckResult struct {
	EffectivePath  string
	EffectiveScope string // "global", "project" or "" for defaults
	Frontends      []ComponentStatus
	Neo4j          ComponentStatus
}

// Failed reports whether any component is in error.
func (r *HealthCheckResult) Failed() bool {
	for _, f := range r.Frontends {
		if f.Status == StatusError {
			return true
		}
	}
	return r.Neo4j.Status == StatusError
}

// PingFunc checks a Neo4j connection.
type PingFunc func(ctx context.Context, cfg neo4jexport.Config) error

// Options tunes Check.
type Options struct {
	// CheckNeo4j enables the Neo4j connectivity probe.
	CheckNeo4j bool
	// Ping replaces neo4jexport.Ping.
	Ping PingFunc
	// Timeout bounds the Neo4j probe (default 3s).
	Timeout time.Duration
}

// probe is a minimal program per language, sliced from the statement at
// line 3 column 2 to exercise the whole pipeline.
type probe struct {
	path string
	src  string
	want int
}

var probes = []probe{
	{path: "probe.c", src: "int main(void) {\n\tint a = 1;\n\treturn a;\n}\n", want: 2},
	{path: "probe.cpp", src: "int main() {\n\tauto a = 1;\n\treturn a;\n}\n", want: 2},
	{path: "probe.go", src: "package probe\nfunc main() {\n\ta := 1\n\tprintln(a)\n}\n", want: 1},
}

// Check performs a health check against the given config.
// effectivePath is the config file actually in use (empty for defaults).
func Check(ctx context.Context, cfg *config.Config, effectivePath string, opts Options) (*HealthCheckResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	result := &HealthCheckResult{
		EffectivePath:  effectivePath,
		EffectiveScope: scopeFromPath(effectivePath),
	}

	engine := slicer.New(slicer.Options{
		Analysis: dfg.Options{
			KillInBranches:    cfg.KillInBranches,
			MaxLoopIterations: cfg.MaxLoopIterations,
			MaxLoopDepth:      cfg.MaxLoopDepth,
		},
	})
	for _, p := range probes {
		result.Frontends = append(result.Frontends, checkFrontend(ctx, engine, p))
	}

	result.Neo4j = ComponentStatus{Name: "neo4j", Detail: cfg.Neo4j.URI, Status: StatusSkipped}
	if opts.CheckNeo4j {
		result.Neo4j = checkNeo4j(ctx, cfg.Neo4j, opts)
	}
	return result, nil
}

// scopeFromPath determines "global" or "project" scope from a config file path.
// Returns empty string if path is empty.
func scopeFromPath(path string) string {
	if path == "" {
		return ""
	}

	globalDir := filepath.Dir(config.GlobalConfigFilePath())
	if strings.HasPrefix(path, globalDir) {
		return "global"
	}

	return "project"
}

// checkFrontend parses a probe program and slices it.
func checkFrontend(ctx context.Context, engine *slicer.Engine, p probe) ComponentStatus {
	lang, _ := frontend.DetectLanguage(p.path)
	status := ComponentStatus{Name: string(lang), Detail: p.path}

	unit, err := engine.LoadSource(ctx, p.path, []byte(p.src))
	if err != nil {
		status.Status = StatusError
		status.Error = err.Error()
		return status
	}
	a, err := engine.AnalyzeUnit(ctx, unit, "main")
	if err != nil {
		status.Status = StatusError
		status.Error = err.Error()
		return status
	}

	res := a.Slice(ctx, slicer.Target{Line: 3, Column: 2, Direction: pdg.Backward})
	statements := 0
	for _, id := range res.Nodes {
		if a.Graph.Node(id).Kind != pdg.KindCompound {
			statements++
		}
	}
	if !res.Found || statements != p.want {
		status.Status = StatusError
		status.Error = fmt.Sprintf("probe slice has %d statements, want %d", statements, p.want)
		return status
	}

	status.Status = StatusReady
	return status
}

// checkNeo4j verifies the configured server is reachable. It does NOT write
// anything.
func checkNeo4j(ctx context.Context, cfg config.Neo4jConfig, opts Options) ComponentStatus {
	status := ComponentStatus{Name: "neo4j", Detail: cfg.URI}

	if cfg.URI == "" {
		status.Status = StatusError
		status.Error = "neo4j URI is not configured"
		return status
	}

	ping := opts.Ping
	if ping == nil {
		ping = neo4jexport.Ping
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := ping(ctx, neo4jexport.Config{
		URI:      cfg.URI,
		User:     cfg.User,
		Password: cfg.Password,
		Database: cfg.Database,
	})
	if err != nil {
		status.Status = StatusError
		status.Error = fmt.Sprintf("cannot reach neo4j at %s: %v", cfg.URI, err)
		return status
	}

	status.Status = StatusReady
	return status
}

// DefaultEffectivePath returns the config file Load would read, or "" when
// only defaults apply.
func DefaultEffectivePath() string {
	for _, p := range config.ProjectConfigFilePaths() {
		if fileExists(p) {
			return p
		}
	}
	if p := config.GlobalConfigFilePath(); fileExists(p) {
		return p
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
