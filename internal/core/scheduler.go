package core

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"facetkit/internal/types"
)

// Reference is a directed edge: From depends on To, so To builds first.
type Reference[N comparable] struct {
	From        N
	To          N
	Type        types.ReferenceType
	RuntimePath string
}

// Scheduler computes build orders. It keeps no state between calls and is
// safe to use concurrently on independent graphs.
type Scheduler[N comparable] struct{}

func NewScheduler[N comparable]() Scheduler[N] {
	return Scheduler[N]{}
}

type visitState int

const (
	unvisited visitState = iota
	onStack
	finished
)

// Schedule returns nodes ordered so every dependency precedes its
// dependents. Traversal starts from seed, then the remaining nodes in input
// order, and follows edges in input order, so the same input always yields
// the same order. A cycle fails the whole call with *CyclicDependencyError.
func (s Scheduler[N]) Schedule(ctx context.Context, nodes []N, edges []Reference[N], seed []N) ([]N, error) {
	known := make(map[N]bool, len(nodes))
	for _, node := range nodes {
		known[node] = true
	}
	adjacency := make(map[N][]N, len(nodes))
	for _, edge := range edges {
		if !known[edge.From] || !known[edge.To] {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("reference %v -> %v names an unknown component", edge.From, edge.To))
		}
		adjacency[edge.From] = append(adjacency[edge.From], edge.To)
	}
	roots := make([]N, 0, len(seed)+len(nodes))
	for _, node := range seed {
		if !known[node] {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("seed names an unknown component: %v", node))
		}
		roots = append(roots, node)
	}
	roots = append(roots, nodes...)

	t := traversal[N]{
		ctx:       ctx,
		adjacency: adjacency,
		state:     make(map[N]visitState, len(nodes)),
		position:  map[N]int{},
		order:     make([]N, 0, len(nodes)),
	}
	for _, root := range roots {
		if t.state[root] == finished {
			continue
		}
		if err := t.visit(root); err != nil {
			return nil, err
		}
	}
	log.Ctx(ctx).Debug().
		Int("components", len(t.order)).
		Int("references", len(edges)).
		Msg("build order computed")
	return t.order, nil
}

type traversal[N comparable] struct {
	ctx       context.Context
	adjacency map[N][]N
	state     map[N]visitState
	position  map[N]int
	stack     []N
	order     []N
}

func (t *traversal[N]) visit(node N) error {
	if err := t.ctx.Err(); err != nil {
		return err
	}
	switch t.state[node] {
	case finished:
		return nil
	case onStack:
		cycle := append([]N(nil), t.stack[t.position[node]:]...)
		return &CyclicDependencyError[N]{Cycle: cycle}
	}
	t.state[node] = onStack
	t.position[node] = len(t.stack)
	t.stack = append(t.stack, node)
	for _, dependency := range t.adjacency[node] {
		if err := t.visit(dependency); err != nil {
			return err
		}
	}
	t.stack = t.stack[:len(t.stack)-1]
	delete(t.position, node)
	t.state[node] = finished
	t.order = append(t.order, node)
	return nil
}
