package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facetkit/internal/types"
)

func TestComponentGraphFileAdapter(t *testing.T) {
	graph, err := NewComponentGraphFileAdapter().LoadGraph("../../fixtures/graph.yaml")
	require.NoError(t, err)

	assert.Len(t, graph.Components, 5)
	require.Len(t, graph.References, 4)
	assert.Equal(t, types.ReferenceUses, graph.References[0].Type)
	assert.Equal(t, types.ReferenceConsumes, graph.References[1].Type)
	assert.Equal(t, "lib", graph.References[1].RuntimePath)
	assert.Equal(t, []string{"shop-docs"}, graph.Seed)
}

func TestComponentGraphFileAdapterRejectsUnknownType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.yaml")
	content := "components: [a, b]\nreferences:\n  - from: a\n    to: b\n    type: embeds\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := NewComponentGraphFileAdapter().LoadGraph(path)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}
