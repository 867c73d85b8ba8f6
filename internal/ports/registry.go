package ports

import "facetkit/internal/types"

// RegistrySourcePort supplies capability, group and runtime definitions.
// The collections are read once at startup and are order independent.
type RegistrySourcePort interface {
	LoadCategories() ([]types.CategoryDef, error)
	LoadCapabilities() ([]types.CapabilityDef, error)
	LoadGroups() ([]types.GroupDef, error)
	LoadRuntimes() ([]types.RuntimeDef, error)
	LoadPresets() ([]types.PresetDef, error)
}

// RuntimeBridgePort exposes runtimes defined outside the descriptors.
type RuntimeBridgePort interface {
	ExportedRuntimeNames() ([]string, error)
	Bridge(name string) (types.RuntimeStub, error)
}
