package adapters

import (
	"fmt"
	"os"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"facetkit/internal/ports"
	"facetkit/internal/types"
)

type ComponentGraphFileAdapter struct{}

func NewComponentGraphFileAdapter() ComponentGraphFileAdapter {
	return ComponentGraphFileAdapter{}
}

func (a ComponentGraphFileAdapter) LoadGraph(path string) (types.ComponentGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.ComponentGraph{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("component graph file not found").
			WithCause(err)
	}
	var graph types.ComponentGraph
	if err := yaml.Unmarshal(data, &graph); err != nil {
		return types.ComponentGraph{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse component graph yaml").
			WithCause(err)
	}
	for i, ref := range graph.References {
		switch ref.Type {
		case "":
			graph.References[i].Type = types.ReferenceUses
		case types.ReferenceUses, types.ReferenceConsumes:
		default:
			return types.ComponentGraph{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("unknown reference type %q from %s", ref.Type, ref.From))
		}
	}
	return graph, nil
}

var _ ports.ComponentGraphPort = ComponentGraphFileAdapter{}
