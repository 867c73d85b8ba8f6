package app

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"facetkit/internal/core"
)

// Schedule orders the components of a reference graph so every component
// comes after the components it references. Seed entries given in the
// request replace the graph file's seed.
func (s Service) Schedule(ctx context.Context, req ScheduleRequest) (ScheduleResult, error) {
	path := strings.TrimSpace(req.GraphPath)
	if path == "" {
		return ScheduleResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("component graph path is required")
	}
	graph, err := s.Graphs.LoadGraph(path)
	if err != nil {
		return ScheduleResult{}, err
	}
	edges := make([]core.Reference[string], 0, len(graph.References))
	for _, ref := range graph.References {
		edges = append(edges, core.Reference[string]{
			From:        ref.From,
			To:          ref.To,
			Type:        ref.Type,
			RuntimePath: ref.RuntimePath,
		})
	}
	seed := graph.Seed
	if custom := trimAll(req.Seed); len(custom) > 0 {
		seed = custom
	}

	start := s.now()
	order, err := core.NewScheduler[string]().Schedule(ctx, graph.Components, edges, seed)
	elapsed := s.now().Sub(start)
	s.Metrics.ObserveSchedule(elapsed, err)
	if err != nil {
		return ScheduleResult{}, err
	}
	return ScheduleResult{Order: order, Elapsed: elapsed}, nil
}
