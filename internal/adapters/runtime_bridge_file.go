package adapters

import (
	"fmt"
	"os"
	"sort"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"facetkit/internal/ports"
	"facetkit/internal/types"
)

// runtimeBridgeFile is a yaml map from runtime name to its stub.
type runtimeBridgeFile struct {
	Runtimes map[string]types.RuntimeStub `yaml:"runtimes"`
}

// RuntimeBridgeFileAdapter exports runtimes defined in a separate file,
// such as one generated from installed server definitions.
type RuntimeBridgeFileAdapter struct {
	Path   string
	cached runtimeBridgeFile
	loaded bool
}

func NewRuntimeBridgeFileAdapter(path string) *RuntimeBridgeFileAdapter {
	return &RuntimeBridgeFileAdapter{Path: path}
}

func (a *RuntimeBridgeFileAdapter) ExportedRuntimeNames() ([]string, error) {
	file, err := a.load()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(file.Runtimes))
	for name := range file.Runtimes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (a *RuntimeBridgeFileAdapter) Bridge(name string) (types.RuntimeStub, error) {
	file, err := a.load()
	if err != nil {
		return types.RuntimeStub{}, err
	}
	stub, ok := file.Runtimes[name]
	if !ok {
		return types.RuntimeStub{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("runtime not exported: %s", name))
	}
	return stub, nil
}

func (a *RuntimeBridgeFileAdapter) load() (runtimeBridgeFile, error) {
	if a.loaded {
		return a.cached, nil
	}
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return runtimeBridgeFile{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("runtime bridge file not found").
			WithCause(err)
	}
	var file runtimeBridgeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return runtimeBridgeFile{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid runtime bridge format").
			WithCause(err)
	}
	a.cached = file
	a.loaded = true
	return file, nil
}

var _ ports.RuntimeBridgePort = (*RuntimeBridgeFileAdapter)(nil)
