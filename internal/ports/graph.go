package ports

import "facetkit/internal/types"

type ComponentGraphPort interface {
	LoadGraph(path string) (types.ComponentGraph, error)
}
