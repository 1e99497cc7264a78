// Package server implements the persistent mode: one textual command per
// input line, each processed to completion before the next is read. A bad
// request prints a diagnostic and never ends the session.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sunxfancy/cpp-slicer/internal/log"
	"github.com/sunxfancy/cpp-slicer/pkg/pdg"
	"github.com/sunxfancy/cpp-slicer/pkg/render"
	"github.com/sunxfancy/cpp-slicer/pkg/slicer"
)

var (
	// ErrUnknownCommand is returned for a command name with no handler.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrUsage is returned when a command's arguments are malformed.
	ErrUsage = errors.New("usage")
)

const maxLineSize = 1 << 20

// Command is one parsed input line.
type Command struct {
	ID   string
	Name string
	Args []string
}

// ParseCommand splits a line into a command name and its arguments.
func ParseCommand(line string) Command {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}
	}
	return Command{Name: strings.ToLower(fields[0]), Args: fields[1:]}
}

// handler runs one command. stop ends the session.
type handler func(ctx context.Context, cmd Command, out io.Writer) (stop bool, err error)

// Options configures a Server.
type Options struct {
	// Path is the source file every command reads. It is re-read per
	// request, so edits between commands are picked up.
	Path   string
	Format render.Format
	Logger log.Logger
}

// Server answers commands against one source file.
type Server struct {
	engine   *slicer.Engine
	path     string
	format   render.Format
	logger   log.Logger
	handlers map[string]handler
}

// New creates a server.
func New(engine *slicer.Engine, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	format := opts.Format
	if format == "" {
		format = render.FormatDump
	}
	s := &Server{
		engine: engine,
		path:   opts.Path,
		format: format,
		logger: logger,
	}
	s.handlers = map[string]handler{
		"slice": s.handleSlice,
		"dump":  s.handleDump,
		"deps":  s.handleDeps,
		"vars":  s.handleVars,
		"stats": s.handleStats,
		"help":  s.handleHelp,
		"exit":  handleExit,
		"quit":  handleExit,
	}
	return s
}

// Serve reads commands from in until exit, end of input or cancellation.
// Results and diagnostics go to out; per-request logs go to the logger.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	reader := bufio.NewReaderSize(in, 64*1024)

	s.logger.Info("serving", "path", s.path, "format", s.format)
	for {
		line, err := readLine(reader)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		switch {
		case errors.Is(err, errLineTooLong):
			fmt.Fprintf(out, "error: %v\n", err)
			s.logger.Warn("request rejected", "err", err, "limit", maxLineSize)
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return fmt.Errorf("reading commands: %w", err)
		}

		cmd := ParseCommand(line)
		if cmd.Name == "" {
			continue
		}
		cmd.ID = uuid.NewString()

		if stop := s.dispatch(ctx, cmd, out); stop {
			s.logger.Info("session ended", "request_id", cmd.ID)
			return nil
		}
	}
}

var errLineTooLong = errors.New("line too long")

// readLine returns the next line without its terminator. A line longer than
// maxLineSize is consumed to its end and reported as errLineTooLong. io.EOF
// is returned only once no input is left.
func readLine(r *bufio.Reader) (string, error) {
	var (
		buf     []byte
		tooLong bool
	)
	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLong {
			if len(buf)+len(chunk) > maxLineSize+1 {
				tooLong, buf = true, nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if tooLong {
				return "", errLineTooLong
			}
			if len(buf) == 0 {
				return "", io.EOF
			}
		case err != nil:
			return "", err
		}
		if tooLong {
			return "", errLineTooLong
		}
		return strings.TrimRight(string(buf), "\r\n"), nil
	}
}

// dispatch runs one command and reports its failure, if any. Failures are
// scoped to the request.
func (s *Server) dispatch(ctx context.Context, cmd Command, out io.Writer) bool {
	logger := s.logger.With("request_id", cmd.ID, "command", cmd.Name)
	start := time.Now()

	stop, err := s.handleCommand(ctx, cmd, out)
	if err == nil {
		logger.Debug("request done", "duration", time.Since(start))
		return stop
	}

	switch {
	case errors.Is(err, ErrUnknownCommand):
		fmt.Fprintf(out, "Unknown command: %s\n", cmd.Name)
		logger.Warn("unknown command")
	case errors.Is(err, pdg.ErrInvariant):
		fmt.Fprintf(out, "internal error (request %s): %v\n", cmd.ID, err)
		logger.Error("request failed", "category", "internal", "err", err)
	default:
		fmt.Fprintf(out, "error: %v\n", err)
		logger.Warn("request failed", "err", err)
	}
	return stop
}

func (s *Server) handleCommand(ctx context.Context, cmd Command, out io.Writer) (stop bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			stop = false
			err = fmt.Errorf("%w: panic while handling %s: %v", pdg.ErrInvariant, cmd.Name, r)
		}
	}()

	h, ok := s.handlers[cmd.Name]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Name)
	}
	return h(ctx, cmd, out)
}

func handleExit(context.Context, Command, io.Writer) (bool, error) {
	return true, nil
}

func (s *Server) handleHelp(_ context.Context, _ Command, out io.Writer) (bool, error) {
	fmt.Fprint(out, `Commands:
  slice <function> <line> <column> [backward|forward]  slice from the statement at line:column
  dump <function>                                      print the dependence graph
  deps <function> <line> <column>                      immediate dependences of one statement
  vars <function>                                      variables and the statements referencing them
  stats                                                parse cache usage
  help                                                 show this help
  exit | quit                                          end the session
`)
	return false, nil
}

func (s *Server) handleSlice(ctx context.Context, cmd Command, out io.Writer) (bool, error) {
	const usage = "slice <function> <line> <column> [backward|forward]"
	if len(cmd.Args) < 3 || len(cmd.Args) > 4 {
		return false, fmt.Errorf("%w: %s", ErrUsage, usage)
	}
	line, column, err := position(cmd.Args[1], cmd.Args[2])
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrUsage, usage, err)
	}
	target := slicer.Target{Line: line, Column: column}
	if len(cmd.Args) == 4 {
		if target.Direction, err = pdg.ParseDirection(cmd.Args[3]); err != nil {
			return false, fmt.Errorf("%w: %s: %v", ErrUsage, usage, err)
		}
	}

	function := cmd.Args[0]
	fmt.Fprintf(out, "Slicing %s at %d:%d\n", function, line, column)

	a, err := s.engine.Analyze(ctx, s.path, function)
	if err != nil {
		return false, err
	}
	res := a.Slice(ctx, target)
	if !res.Found {
		fmt.Fprintf(out, "No statement at %d:%d in %s; slice is empty\n", line, column, function)
		return false, nil
	}
	return false, render.Write(out, res.Graph, s.format)
}

func (s *Server) handleDump(ctx context.Context, cmd Command, out io.Writer) (bool, error) {
	if len(cmd.Args) != 1 {
		return false, fmt.Errorf("%w: dump <function>", ErrUsage)
	}
	a, err := s.engine.Analyze(ctx, s.path, cmd.Args[0])
	if err != nil {
		return false, err
	}
	return false, render.Write(out, a.Graph, s.format)
}

func (s *Server) handleDeps(ctx context.Context, cmd Command, out io.Writer) (bool, error) {
	const usage = "deps <function> <line> <column>"
	if len(cmd.Args) != 3 {
		return false, fmt.Errorf("%w: %s", ErrUsage, usage)
	}
	line, column, err := position(cmd.Args[1], cmd.Args[2])
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrUsage, usage, err)
	}

	a, err := s.engine.Analyze(ctx, s.path, cmd.Args[0])
	if err != nil {
		return false, err
	}
	id, err := a.Locate(line, column)
	if errors.Is(err, slicer.ErrTargetNotFound) {
		fmt.Fprintf(out, "No statement at %d:%d in %s\n", line, column, cmd.Args[0])
		return false, nil
	}
	if err != nil {
		return false, err
	}

	n := a.Graph.Node(id)
	deps := a.Graph.Dependencies(id)
	fmt.Fprintf(out, "#%d %s: %s\n", n.ID, n.Kind, n.SourceText())
	fmt.Fprintf(out, "  control in:  %s\n", controlList(deps.ControlIn))
	fmt.Fprintf(out, "  control out: %s\n", controlList(deps.ControlOut))
	fmt.Fprintf(out, "  data in:     %s\n", idList(deps.DataIn))
	fmt.Fprintf(out, "  data out:    %s\n", idList(deps.DataOut))
	return false, nil
}

func (s *Server) handleVars(ctx context.Context, cmd Command, out io.Writer) (bool, error) {
	if len(cmd.Args) != 1 {
		return false, fmt.Errorf("%w: vars <function>", ErrUsage)
	}
	a, err := s.engine.Analyze(ctx, s.path, cmd.Args[0])
	if err != nil {
		return false, err
	}
	for _, name := range a.Graph.Variables() {
		fmt.Fprintf(out, "%s: %s\n", name, idList(a.Graph.NodesReferencing(name)))
	}
	return false, nil
}

func (s *Server) handleStats(_ context.Context, _ Command, out io.Writer) (bool, error) {
	stats := s.engine.CacheStats()
	fmt.Fprintf(out, "cache: %d units, %d hits, %d misses, %d stale, hit rate %.1f%%\n",
		stats.Length, stats.HitCount, stats.MissCount, stats.StaleCount, 100*s.engine.CacheHitRate())
	for _, path := range s.engine.CachedPaths() {
		fmt.Fprintf(out, "  %s\n", path)
	}
	return false, nil
}

func position(lineArg, columnArg string) (int, int, error) {
	line, err := strconv.Atoi(lineArg)
	if err != nil || line <= 0 {
		return 0, 0, fmt.Errorf("invalid line %q", lineArg)
	}
	column, err := strconv.Atoi(columnArg)
	if err != nil || column <= 0 {
		return 0, 0, fmt.Errorf("invalid column %q", columnArg)
	}
	return line, column, nil
}

func controlList(edges []pdg.ControlEdge) string {
	if len(edges) == 0 {
		return "-"
	}
	parts := make([]string, len(edges))
	for i, e := range edges {
		parts[i] = fmt.Sprintf("#%d [%s]", e.Node, e.Label)
	}
	return strings.Join(parts, " ")
}

func idList(ids []pdg.NodeID) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("#%d", id)
	}
	return strings.Join(parts, " ")
}
