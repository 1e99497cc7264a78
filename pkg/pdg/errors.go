package pdg

import "errors"

// ErrInvariant indicates a graph that violates its structural invariants:
// asymmetric edges, ids out of order, an edge shape a kind does not allow,
// or an analysis that failed to converge. It is fatal to the run that
// produced the graph and to nothing else.
var ErrInvariant = errors.New("internal error")
