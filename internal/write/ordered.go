package write

import (
	"context"

	"github.com/anchorhq/anchor/internal/graph"
	"github.com/anchorhq/anchor/internal/query"
)

// Operation is one file write in a graph-ordered batch. Symbol, when set,
// ties the operation to a graph symbol so its dependencies are written
// before it.
type Operation struct {
	Path    string
	Content string
	Symbol  string
}

// OpResult is the per-file outcome of one ordered-write operation.
type OpResult struct {
	Path  string
	Error string
}

// OrderedResult reports the computed write order and per-file results.
type OrderedResult struct {
	Order   []string
	Results []OpResult
}

// PlanOrder computes the dependency order for a batch without executing
// it, so callers can consult the graph under their own read lock and run
// the file writes outside it. The result indexes into ops.
func PlanOrder(g *graph.Graph, ops []Operation) []int {
	return topoOrder(g, ops)
}

// Ordered executes a batch of create/overwrite operations in dependency
// order: each symbol-tagged operation is written after every operation its
// symbol depends on through the graph. Kahn's algorithm produces the
// order; nodes left over from a cycle are appended in input order.
func (s *Service) Ordered(ctx context.Context, g *graph.Graph, ops []Operation) OrderedResult {
	return s.Execute(ctx, ops, topoOrder(g, ops))
}

// Execute runs ops in the given order (indices into ops).
func (s *Service) Execute(ctx context.Context, ops []Operation, order []int) OrderedResult {
	result := OrderedResult{Order: make([]string, 0, len(order))}
	for _, i := range order {
		op := ops[i]
		result.Order = append(result.Order, op.Path)
		r := OpResult{Path: op.Path}
		if err := s.CreateFile(ctx, op.Path, op.Content); err != nil {
			r.Error = err.Error()
		}
		result.Results = append(result.Results, r)
	}
	return result
}

// topoOrder returns indices into ops, dependencies first. An edge runs from
// each operation to every operation whose symbol depends on it, so a
// dependency reaches in-degree zero before its dependents.
func topoOrder(g *graph.Graph, ops []Operation) []int {
	bySymbol := make(map[string]int)
	for i, op := range ops {
		if op.Symbol != "" {
			bySymbol[op.Symbol] = i
		}
	}

	dependents := make([][]int, len(ops)) // dependency -> dependent indices
	indegree := make([]int, len(ops))
	for i, op := range ops {
		if op.Symbol == "" {
			continue
		}
		for _, rel := range query.Dependencies(g, op.Symbol) {
			j, ok := bySymbol[rel.Name]
			if !ok || j == i {
				continue
			}
			dependents[j] = append(dependents[j], i)
			indegree[i]++
		}
	}

	var queue []int
	for i := range ops {
		if indegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	var order []int
	done := make([]bool, len(ops))
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		order = append(order, i)
		done[i] = true
		for _, dep := range dependents[i] {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	// Cycle leftovers keep their input order.
	for i := range ops {
		if !done[i] {
			order = append(order, i)
		}
	}
	return order
}
