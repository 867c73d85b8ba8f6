package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"facetkit/internal/ports"
	"facetkit/internal/types"
)

// Category groups related capabilities for display. It has no effect on
// rule evaluation.
type Category struct {
	id           string
	label        string
	description  string
	capabilities []*Capability
}

// ID, Label and Description return the values declared in the registry.
func (c *Category) ID() string          { return c.id }
func (c *Category) Label() string       { return c.label }
func (c *Category) Description() string { return c.description }

// Capabilities returns the members of the category ordered by id.
func (c *Category) Capabilities() []*Capability {
	return append([]*Capability(nil), c.capabilities...)
}

// Capability is a facet a project can have, in one of several versions.
type Capability struct {
	id             string
	label          string
	description    string
	category       *Category
	comparator     VersionComparator
	versions       []*CapabilityVersion
	byVersion      map[string]*CapabilityVersion
	defaultVersion *CapabilityVersion
}

func (c *Capability) ID() string                    { return c.id }
func (c *Capability) Label() string                 { return c.label }
func (c *Capability) Description() string           { return c.description }
func (c *Capability) Category() *Category           { return c.category }
func (c *Capability) Comparator() VersionComparator { return c.comparator }

// Versions returns every declared version in declaration order, including
// versions the comparator cannot parse.
func (c *Capability) Versions() []*CapabilityVersion {
	return append([]*CapabilityVersion(nil), c.versions...)
}

// Version looks up a declared version by its exact string.
func (c *Capability) Version(version string) (*CapabilityVersion, bool) {
	cv, ok := c.byVersion[version]
	return cv, ok
}

func (c *Capability) HasVersion(version string) bool {
	_, ok := c.byVersion[version]
	return ok
}

// DefaultVersion is the registry-declared default, or nil.
func (c *Capability) DefaultVersion() *CapabilityVersion {
	return c.defaultVersion
}

// LatestVersion returns the highest declared version. It fails if the
// comparator cannot order every version.
func (c *Capability) LatestVersion() (*CapabilityVersion, error) {
	return LatestVersion(c.versions)
}

func (c *Capability) SortedVersions(ascending bool) ([]*CapabilityVersion, error) {
	return SortedVersions(c.versions, ascending)
}

func (c *Capability) String() string {
	return c.id
}

// CapabilityVersion is one installable version of a capability together
// with the rules it declares.
type CapabilityVersion struct {
	capability *Capability
	version    string
	requires   []Expr
	conflicts  []Expr
	groups     []*Group
}

func (v *CapabilityVersion) Capability() *Capability { return v.capability }
func (v *CapabilityVersion) Version() string         { return v.version }

// Requires returns the top-level requires rules in declaration order. All
// of them must hold.
func (v *CapabilityVersion) Requires() []Expr {
	return append([]Expr(nil), v.requires...)
}

// Conflicts returns the conflicts rules in declaration order.
func (v *CapabilityVersion) Conflicts() []Expr {
	return append([]Expr(nil), v.conflicts...)
}

// Groups returns the groups cv belongs to, in the order it joined them.
func (v *CapabilityVersion) Groups() []*Group {
	return append([]*Group(nil), v.groups...)
}

func (v *CapabilityVersion) String() string {
	return v.capability.id + "@" + v.version
}

// Group is a named set of capability versions used as a rule target.
type Group struct {
	id          string
	label       string
	description string
	members     []*CapabilityVersion
	memberSet   versionSet
}

func (g *Group) ID() string          { return g.id }
func (g *Group) Label() string       { return g.label }
func (g *Group) Description() string { return g.description }

// Members returns the group's versions in the order they were added.
func (g *Group) Members() []*CapabilityVersion {
	return append([]*CapabilityVersion(nil), g.members...)
}

func (g *Group) Contains(cv *CapabilityVersion) bool {
	return g.memberSet.has(cv)
}

func (g *Group) add(cv *CapabilityVersion) {
	if g.memberSet.has(cv) {
		return
	}
	g.memberSet[cv] = struct{}{}
	g.members = append(g.members, cv)
	cv.groups = append(cv.groups, g)
}

// RuntimeComponent is one type/version part of a runtime, e.g. tomcat 9.
type RuntimeComponent struct {
	Type    string
	Version string
}

// Runtime is an execution environment that supplies default capability
// versions and decides which capability versions it supports.
type Runtime struct {
	name       string
	components []RuntimeComponent
	properties map[string]string
	defaults   map[*Capability]*CapabilityVersion
	supports   []Expr
}

func (r *Runtime) Name() string { return r.name }

func (r *Runtime) Components() []RuntimeComponent {
	return append([]RuntimeComponent(nil), r.components...)
}

// Property returns a free-form runtime property such as "vendor".
func (r *Runtime) Property(key string) (string, bool) {
	value, ok := r.properties[key]
	return value, ok
}

// DefaultVersion returns the runtime's default version for capability.
func (r *Runtime) DefaultVersion(capability *Capability) (*CapabilityVersion, bool) {
	cv, ok := r.defaults[capability]
	return cv, ok
}

// DefaultVersions returns all runtime defaults ordered by capability id.
func (r *Runtime) DefaultVersions() []*CapabilityVersion {
	out := make([]*CapabilityVersion, 0, len(r.defaults))
	for _, cv := range r.defaults {
		out = append(out, cv)
	}
	sortVersions(out)
	return out
}

// Supports reports whether the runtime can host cv. A runtime that
// declares no supported capabilities accepts everything.
func (r *Runtime) Supports(cv *CapabilityVersion) bool {
	if len(r.supports) == 0 {
		return true
	}
	for _, rule := range r.supports {
		if rule.Matches(cv) {
			return true
		}
	}
	return false
}

func (r *Runtime) String() string {
	return r.name
}

// Preset is a named template configuration declared in the registry.
type Preset struct {
	id          string
	label       string
	description string
	versions    []*CapabilityVersion
}

func (p *Preset) ID() string          { return p.id }
func (p *Preset) Label() string       { return p.label }
func (p *Preset) Description() string { return p.description }

// Versions returns the versions the preset installs.
func (p *Preset) Versions() []*CapabilityVersion {
	return append([]*CapabilityVersion(nil), p.versions...)
}

// Registry is an immutable snapshot of known capabilities, groups,
// runtimes and presets. It has no mutation API after NewRegistry returns
// and is safe for concurrent readers.
type Registry struct {
	categories   map[string]*Category
	capabilities map[string]*Capability
	groups       map[string]*Group
	runtimes     map[string]*Runtime
	presets      map[string]*Preset
}

// Capability looks up a capability by id.
func (r *Registry) Capability(id string) (*Capability, bool) {
	c, ok := r.capabilities[id]
	return c, ok
}

// Capabilities returns all capabilities ordered by id.
func (r *Registry) Capabilities() []*Capability {
	out := make([]*Capability, 0, len(r.capabilities))
	for _, id := range sortedKeys(r.capabilities) {
		out = append(out, r.capabilities[id])
	}
	return out
}

// Versions returns the versions of the capability with id, or nil.
func (r *Registry) Versions(id string) []*CapabilityVersion {
	c, ok := r.capabilities[id]
	if !ok {
		return nil
	}
	return c.Versions()
}

// CapabilityVersion looks up "id" at an exact version string.
func (r *Registry) CapabilityVersion(id string, version string) (*CapabilityVersion, bool) {
	c, ok := r.capabilities[id]
	if !ok {
		return nil, false
	}
	return c.Version(version)
}

func (r *Registry) Category(id string) (*Category, bool) {
	c, ok := r.categories[id]
	return c, ok
}

// Categories returns all categories ordered by id.
func (r *Registry) Categories() []*Category {
	out := make([]*Category, 0, len(r.categories))
	for _, id := range sortedKeys(r.categories) {
		out = append(out, r.categories[id])
	}
	return out
}

// Group looks up a group by id. Groups declared only through a version's
// groups list are included.
func (r *Registry) Group(id string) (*Group, bool) {
	g, ok := r.groups[id]
	return g, ok
}

// Groups returns all groups ordered by id.
func (r *Registry) Groups() []*Group {
	out := make([]*Group, 0, len(r.groups))
	for _, id := range sortedKeys(r.groups) {
		out = append(out, r.groups[id])
	}
	return out
}

// Runtime looks up a runtime by name, whether it came from the registry
// source or a runtime bridge.
func (r *Registry) Runtime(name string) (*Runtime, bool) {
	rt, ok := r.runtimes[name]
	return rt, ok
}

// Runtimes returns all runtimes ordered by name.
func (r *Registry) Runtimes() []*Runtime {
	out := make([]*Runtime, 0, len(r.runtimes))
	for _, name := range sortedKeys(r.runtimes) {
		out = append(out, r.runtimes[name])
	}
	return out
}

// Preset looks up a preset by id.
func (r *Registry) Preset(id string) (*Preset, bool) {
	p, ok := r.presets[id]
	return p, ok
}

// Presets returns all presets ordered by id.
func (r *Registry) Presets() []*Preset {
	out := make([]*Preset, 0, len(r.presets))
	for _, id := range sortedKeys(r.presets) {
		out = append(out, r.presets[id])
	}
	return out
}

// NewRegistry loads all definitions from source, plus any runtimes exported
// by bridges, and compiles them into an immutable Registry. Any dangling
// reference fails the whole load.
func NewRegistry(ctx context.Context, source ports.RegistrySourcePort, bridges ...ports.RuntimeBridgePort) (*Registry, error) {
	if source == nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("registry requires a definition source")
	}
	categories, err := source.LoadCategories()
	if err != nil {
		return nil, err
	}
	capabilities, err := source.LoadCapabilities()
	if err != nil {
		return nil, err
	}
	groups, err := source.LoadGroups()
	if err != nil {
		return nil, err
	}
	runtimes, err := source.LoadRuntimes()
	if err != nil {
		return nil, err
	}
	for _, bridge := range bridges {
		bridged, err := bridgeRuntimes(bridge)
		if err != nil {
			return nil, err
		}
		runtimes = append(runtimes, bridged...)
	}
	presets, err := source.LoadPresets()
	if err != nil {
		return nil, err
	}

	b := registryBuilder{
		registry: &Registry{
			categories:   map[string]*Category{},
			capabilities: map[string]*Capability{},
			groups:       map[string]*Group{},
			runtimes:     map[string]*Runtime{},
			presets:      map[string]*Preset{},
		},
	}
	if err := b.addCategories(categories); err != nil {
		return nil, err
	}
	if err := b.addCapabilities(ctx, capabilities); err != nil {
		return nil, err
	}
	if err := b.addGroups(capabilities, groups); err != nil {
		return nil, err
	}
	if err := b.compileRules(capabilities); err != nil {
		return nil, err
	}
	if err := b.addRuntimes(runtimes); err != nil {
		return nil, err
	}
	if err := b.addPresets(presets); err != nil {
		return nil, err
	}
	log.Ctx(ctx).Debug().
		Int("capabilities", len(b.registry.capabilities)).
		Int("groups", len(b.registry.groups)).
		Int("runtimes", len(b.registry.runtimes)).
		Msg("registry loaded")
	return b.registry, nil
}

func bridgeRuntimes(bridge ports.RuntimeBridgePort) ([]types.RuntimeDef, error) {
	names, err := bridge.ExportedRuntimeNames()
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	out := make([]types.RuntimeDef, 0, len(names))
	for _, name := range names {
		stub, err := bridge.Bridge(name)
		if err != nil {
			return nil, err
		}
		out = append(out, types.RuntimeDef{
			Name:       name,
			Components: stub.Components,
			Properties: stub.Properties,
		})
	}
	return out, nil
}

type registryBuilder struct {
	registry *Registry
}

func (b registryBuilder) addCategories(defs []types.CategoryDef) error {
	for _, def := range defs {
		id := strings.TrimSpace(def.ID)
		if id == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("category id must not be empty")
		}
		if _, exists := b.registry.categories[id]; exists {
			return errbuilder.New().
				WithCode(errbuilder.CodeAlreadyExists).
				WithMsg(fmt.Sprintf("duplicate category: %s", id))
		}
		b.registry.categories[id] = &Category{id: id, label: def.Label, description: def.Description}
	}
	return nil
}

func (b registryBuilder) addCapabilities(ctx context.Context, defs []types.CapabilityDef) error {
	for _, def := range defs {
		id := strings.TrimSpace(def.ID)
		if id == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("capability id must not be empty")
		}
		if _, exists := b.registry.capabilities[id]; exists {
			return errbuilder.New().
				WithCode(errbuilder.CodeAlreadyExists).
				WithMsg(fmt.Sprintf("duplicate capability: %s", id))
		}
		comparator, err := NewVersionComparator(def.Comparator)
		if err != nil {
			return err
		}
		capability := &Capability{
			id:          id,
			label:       def.Label,
			description: def.Description,
			comparator:  comparator,
			byVersion:   map[string]*CapabilityVersion{},
		}
		if def.Category != "" {
			category, ok := b.registry.categories[def.Category]
			if !ok {
				return errbuilder.New().
					WithCode(errbuilder.CodeInvalidArgument).
					WithMsg(fmt.Sprintf("capability %s references unknown category %s", id, def.Category))
			}
			capability.category = category
			category.capabilities = append(category.capabilities, capability)
		}
		for _, versionDef := range def.Versions {
			version := strings.TrimSpace(versionDef.Version)
			if version == "" {
				return errbuilder.New().
					WithCode(errbuilder.CodeInvalidArgument).
					WithMsg(fmt.Sprintf("capability %s declares an empty version", id))
			}
			if _, exists := capability.byVersion[version]; exists {
				return errbuilder.New().
					WithCode(errbuilder.CodeAlreadyExists).
					WithMsg(fmt.Sprintf("duplicate version %s@%s", id, version))
			}
			if err := comparator.Validate(version); err != nil {
				log.Ctx(ctx).Warn().Str("capability", id).Str("version", version).Msg("version cannot be ordered")
			}
			cv := &CapabilityVersion{capability: capability, version: version}
			capability.versions = append(capability.versions, cv)
			capability.byVersion[version] = cv
		}
		if def.DefaultVersion != "" {
			cv, ok := capability.byVersion[def.DefaultVersion]
			if !ok {
				return errbuilder.New().
					WithCode(errbuilder.CodeInvalidArgument).
					WithMsg(fmt.Sprintf("capability %s default version %s is not declared", id, def.DefaultVersion))
			}
			capability.defaultVersion = cv
		}
		sortCategoryMembers(capability.category)
		b.registry.capabilities[id] = capability
	}
	for _, capability := range b.registry.capabilities {
		for _, cv := range capability.versions {
			assert.NotEmpty(ctx, cv.version, "capability version must be set")
		}
	}
	return nil
}

func sortCategoryMembers(category *Category) {
	if category == nil {
		return
	}
	sort.Slice(category.capabilities, func(i, j int) bool {
		return category.capabilities[i].id < category.capabilities[j].id
	})
}

func (b registryBuilder) addGroups(capabilities []types.CapabilityDef, defs []types.GroupDef) error {
	for _, def := range defs {
		id := strings.TrimSpace(def.ID)
		if id == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("group id must not be empty")
		}
		if _, exists := b.registry.groups[id]; exists {
			return errbuilder.New().
				WithCode(errbuilder.CodeAlreadyExists).
				WithMsg(fmt.Sprintf("duplicate group: %s", id))
		}
		group := &Group{id: id, label: def.Label, description: def.Description, memberSet: versionSet{}}
		b.registry.groups[id] = group
		for _, member := range def.Members {
			versions, err := b.selectVersions(member)
			if err != nil {
				return err
			}
			for _, cv := range versions {
				group.add(cv)
			}
		}
	}
	// Versions may also declare their own group membership; such groups
	// need no separate definition.
	for _, def := range capabilities {
		capability := b.registry.capabilities[strings.TrimSpace(def.ID)]
		for _, versionDef := range def.Versions {
			cv := capability.byVersion[strings.TrimSpace(versionDef.Version)]
			for _, raw := range versionDef.Groups {
				groupID := strings.TrimSpace(raw)
				if groupID == "" {
					return errbuilder.New().
						WithCode(errbuilder.CodeInvalidArgument).
						WithMsg(fmt.Sprintf("empty group id on %s", cv))
				}
				group, ok := b.registry.groups[groupID]
				if !ok {
					group = &Group{id: groupID, label: groupID, memberSet: versionSet{}}
					b.registry.groups[groupID] = group
				}
				group.add(cv)
			}
		}
	}
	return nil
}

func (b registryBuilder) compileRules(defs []types.CapabilityDef) error {
	for _, def := range defs {
		capability := b.registry.capabilities[strings.TrimSpace(def.ID)]
		for _, versionDef := range def.Versions {
			cv := capability.byVersion[strings.TrimSpace(versionDef.Version)]
			for _, rule := range versionDef.Requires {
				expr, err := b.compile(rule)
				if err != nil {
					return errbuilder.New().
						WithCode(errbuilder.CodeInvalidArgument).
						WithMsg(fmt.Sprintf("invalid requires rule on %s", cv)).
						WithCause(err)
				}
				cv.requires = append(cv.requires, expr)
			}
			for _, rule := range versionDef.Conflicts {
				expr, err := b.compile(rule)
				if err != nil {
					return errbuilder.New().
						WithCode(errbuilder.CodeInvalidArgument).
						WithMsg(fmt.Sprintf("invalid conflicts rule on %s", cv)).
						WithCause(err)
				}
				cv.conflicts = append(cv.conflicts, expr)
			}
		}
	}
	return nil
}

func (b registryBuilder) compile(def types.ConstraintDef) (Expr, error) {
	set := 0
	for _, present := range []bool{def.Capability != "", def.Group != "", len(def.All) > 0, len(def.Any) > 0} {
		if present {
			set++
		}
	}
	if set != 1 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("constraint must set exactly one of capability, group, all or any")
	}
	switch {
	case def.Capability != "":
		ref := def.Capability
		if def.Version != "" {
			ref += "@" + def.Version
		}
		versions, err := b.selectVersions(ref)
		if err != nil {
			return nil, err
		}
		return leafExpr{label: ref, members: newVersionSet(versions)}, nil
	case def.Group != "":
		group, ok := b.registry.groups[def.Group]
		if !ok {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("unknown group: %s", def.Group))
		}
		return leafExpr{label: "group:" + group.id, members: group.memberSet}, nil
	case len(def.All) > 0:
		children, err := b.compileAll(def.All)
		if err != nil {
			return nil, err
		}
		return allExpr{children: children}, nil
	default:
		children, err := b.compileAll(def.Any)
		if err != nil {
			return nil, err
		}
		return anyExpr{children: children}, nil
	}
}

func (b registryBuilder) compileAll(defs []types.ConstraintDef) ([]Expr, error) {
	out := make([]Expr, 0, len(defs))
	for _, def := range defs {
		expr, err := b.compile(def)
		if err != nil {
			return nil, err
		}
		out = append(out, expr)
	}
	return out, nil
}

// selectVersions resolves a "capability@expr" reference to the declared
// versions it matches. Range bounds must parse with the capability's
// comparator; declared versions it cannot order only match exact terms.
func (b registryBuilder) selectVersions(ref string) ([]*CapabilityVersion, error) {
	id, expr, err := ParseCapabilityRef(ref)
	if err != nil {
		return nil, err
	}
	capability, ok := b.registry.capabilities[id]
	if !ok {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown capability: %s", id))
	}
	if err := expr.ValidateBounds(capability.comparator); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid reference: %s", ref)).
			WithCause(err)
	}
	var out []*CapabilityVersion
	for _, cv := range capability.versions {
		matched, _ := expr.Matches(capability.comparator, cv.version)
		if matched {
			out = append(out, cv)
		}
	}
	return out, nil
}

func (b registryBuilder) addRuntimes(defs []types.RuntimeDef) error {
	for _, def := range defs {
		name := strings.TrimSpace(def.Name)
		if name == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("runtime name must not be empty")
		}
		if _, exists := b.registry.runtimes[name]; exists {
			return errbuilder.New().
				WithCode(errbuilder.CodeAlreadyExists).
				WithMsg(fmt.Sprintf("duplicate runtime: %s", name))
		}
		runtime := &Runtime{
			name:       name,
			properties: map[string]string{},
			defaults:   map[*Capability]*CapabilityVersion{},
		}
		for key, value := range def.Properties {
			runtime.properties[key] = value
		}
		for _, component := range def.Components {
			runtime.components = append(runtime.components, RuntimeComponent{Type: component.Type, Version: component.Version})
			for _, capabilityID := range sortedKeys(component.DefaultFacets) {
				version := component.DefaultFacets[capabilityID]
				cv, ok := b.registry.CapabilityVersion(capabilityID, version)
				if !ok {
					return errbuilder.New().
						WithCode(errbuilder.CodeInvalidArgument).
						WithMsg(fmt.Sprintf("runtime %s defaults to unknown version %s@%s", name, capabilityID, version))
				}
				if existing, ok := runtime.defaults[cv.capability]; ok && existing != cv {
					return errbuilder.New().
						WithCode(errbuilder.CodeInvalidArgument).
						WithMsg(fmt.Sprintf("runtime %s declares conflicting defaults for %s", name, capabilityID))
				}
				runtime.defaults[cv.capability] = cv
			}
			for _, ref := range component.Supports {
				versions, err := b.selectVersions(ref)
				if err != nil {
					return err
				}
				runtime.supports = append(runtime.supports, leafExpr{label: ref, members: newVersionSet(versions)})
			}
		}
		b.registry.runtimes[name] = runtime
	}
	return nil
}

func (b registryBuilder) addPresets(defs []types.PresetDef) error {
	for _, def := range defs {
		id := strings.TrimSpace(def.ID)
		if id == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("preset id must not be empty")
		}
		if _, exists := b.registry.presets[id]; exists || id == MinimalPresetID || id == DefaultPresetID {
			return errbuilder.New().
				WithCode(errbuilder.CodeAlreadyExists).
				WithMsg(fmt.Sprintf("duplicate preset: %s", id))
		}
		preset := &Preset{id: id, label: def.Label, description: def.Description}
		for _, ref := range def.Facets {
			capabilityID, version, found := strings.Cut(ref, "@")
			if !found {
				return errbuilder.New().
					WithCode(errbuilder.CodeInvalidArgument).
					WithMsg(fmt.Sprintf("preset %s facet %s must name a version", id, ref))
			}
			cv, ok := b.registry.CapabilityVersion(strings.TrimSpace(capabilityID), strings.TrimSpace(version))
			if !ok {
				return errbuilder.New().
					WithCode(errbuilder.CodeInvalidArgument).
					WithMsg(fmt.Sprintf("preset %s references unknown version %s", id, ref))
			}
			preset.versions = append(preset.versions, cv)
		}
		sortVersions(preset.versions)
		b.registry.presets[id] = preset
	}
	return nil
}

// sortVersions orders by capability id, then by version string.
func sortVersions(versions []*CapabilityVersion) {
	sort.SliceStable(versions, func(i, j int) bool {
		if versions[i].capability.id != versions[j].capability.id {
			return versions[i].capability.id < versions[j].capability.id
		}
		return versions[i].version < versions[j].version
	})
}

func sortedKeys[V any](values map[string]V) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
