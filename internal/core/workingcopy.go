package core

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"facetkit/internal/ports"
	"facetkit/internal/types"
)

// Action is one staged change. Config is an opaque payload for whatever
// external operation realizes the action; the core never reads it.
type Action[C any] struct {
	Type       types.ActionType
	Capability *Capability
	Version    *CapabilityVersion
	Origin     types.ActionOrigin
	Config     C

	// set for installs replayed by Merge, which replace any other version
	// of the same capability
	replace bool
}

// NewInstallAction, NewUninstallAction and NewChangeVersionAction build
// user-origin actions; set Origin afterwards for automatic changes.
func NewInstallAction[C any](cv *CapabilityVersion, config C) Action[C] {
	return Action[C]{Type: types.ActionInstall, Version: cv, Capability: capabilityOf(cv), Origin: types.OriginUser, Config: config}
}

func NewUninstallAction[C any](capability *Capability, config C) Action[C] {
	return Action[C]{Type: types.ActionUninstall, Capability: capability, Origin: types.OriginUser, Config: config}
}

func NewChangeVersionAction[C any](cv *CapabilityVersion, config C) Action[C] {
	return Action[C]{Type: types.ActionChangeVersion, Version: cv, Capability: capabilityOf(cv), Origin: types.OriginUser, Config: config}
}

func capabilityOf(cv *CapabilityVersion) *Capability {
	if cv == nil {
		return nil
	}
	return cv.capability
}

// Target returns the capability the action applies to.
func (a Action[C]) Target() *Capability {
	if a.Capability != nil {
		return a.Capability
	}
	return capabilityOf(a.Version)
}

func (a Action[C]) String() string {
	switch {
	case a.Version != nil:
		return fmt.Sprintf("%s %s", a.Type, a.Version)
	case a.Target() != nil:
		return fmt.Sprintf("%s %s", a.Type, a.Target().id)
	default:
		return string(a.Type)
	}
}

// ChangeEvent is delivered to listeners after every successful mutation.
type ChangeEvent struct {
	ID          uuid.UUID
	WorkingCopy uuid.UUID
	Kind        types.ChangeKind
	Prior       Configuration
	Current     Configuration
}

func (e ChangeEvent) Diff() ConfigurationDiff {
	return DiffConfigurations(e.Prior, e.Current)
}

// Listener observes a working copy. Returned errors and panics are logged
// and never reach the caller of the mutation.
type Listener func(ctx context.Context, event ChangeEvent) error

type listenerEntry struct {
	id int
	fn Listener
}

type WorkingCopyOption func(*workingCopyOptions)

type workingCopyOptions struct {
	engine ConstraintEngine
	policy ports.ActionPolicyPort
}

func WithConstraintEngine(engine ConstraintEngine) WorkingCopyOption {
	return func(o *workingCopyOptions) {
		o.engine = engine
	}
}

func WithActionPolicy(policy ports.ActionPolicyPort) WorkingCopyOption {
	return func(o *workingCopyOptions) {
		o.policy = policy
	}
}

// WorkingCopy stages actions against a base configuration and applies
// them atomically on Commit. It is meant for a single editing session and
// is not safe for concurrent mutation.
type WorkingCopy[C any] struct {
	id       uuid.UUID
	registry *Registry
	engine   ConstraintEngine
	policy   ports.ActionPolicyPort

	base    Configuration
	pending []Action[C]

	fixed       map[string]bool
	runtimes    []*Runtime
	primary     *Runtime
	fixedSet    bool
	runtimesSet bool

	current    Configuration
	violations []Violation
	terminal   types.WorkingCopyState

	listeners    []listenerEntry
	nextListener int
}

func NewWorkingCopy[C any](ctx context.Context, registry *Registry, base Configuration, opts ...WorkingCopyOption) *WorkingCopy[C] {
	options := workingCopyOptions{engine: NewConstraintEngine()}
	for _, opt := range opts {
		opt(&options)
	}
	w := &WorkingCopy[C]{
		id:       uuid.New(),
		registry: registry,
		engine:   options.engine,
		policy:   options.policy,
		base:     base,
	}
	w.resetOverrides()
	w.recompute(ctx)
	return w
}

func (w *WorkingCopy[C]) ID() uuid.UUID           { return w.id }
func (w *WorkingCopy[C]) Base() Configuration     { return w.base }
func (w *WorkingCopy[C]) Current() Configuration  { return w.current }
func (w *WorkingCopy[C]) IsValid() bool           { return len(w.violations) == 0 }
func (w *WorkingCopy[C]) Violations() []Violation { return append([]Violation(nil), w.violations...) }
func (w *WorkingCopy[C]) Pending() []Action[C]    { return append([]Action[C](nil), w.pending...) }
func (w *WorkingCopy[C]) IsDirty() bool           { return w.State() == types.StateDirty }
func (w *WorkingCopy[C]) Registry() *Registry     { return w.registry }

func (w *WorkingCopy[C]) State() types.WorkingCopyState {
	if w.terminal != "" {
		return w.terminal
	}
	if len(w.pending) > 0 || w.fixedSet || w.runtimesSet {
		return types.StateDirty
	}
	return types.StateClean
}

// AddListener registers l and returns a function that unregisters it.
func (w *WorkingCopy[C]) AddListener(l Listener) func() {
	id := w.nextListener
	w.nextListener++
	w.listeners = append(w.listeners, listenerEntry{id: id, fn: l})
	return func() {
		for i, entry := range w.listeners {
			if entry.id == id {
				w.listeners = append(w.listeners[:i:i], w.listeners[i+1:]...)
				return
			}
		}
	}
}

// Stage appends action and revalidates. Constraint violations do not fail
// staging; they are kept as advisory state until Commit. Errors mean the
// action itself is unusable and leave the copy unchanged.
func (w *WorkingCopy[C]) Stage(ctx context.Context, action Action[C]) error {
	if err := w.editable(); err != nil {
		return err
	}
	if err := w.checkAction(action, w.current); err != nil {
		return err
	}
	prior := w.current
	w.pending = append(w.pending, action)
	w.recompute(ctx)
	w.notify(ctx, types.ChangeStaged, prior)
	return nil
}

func (w *WorkingCopy[C]) checkAction(action Action[C], current Configuration) error {
	target := action.Target()
	if target == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("%s action has no target capability", action.Type))
	}
	switch action.Type {
	case types.ActionInstall, types.ActionChangeVersion:
		if action.Version == nil || action.Version.capability != target {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("%s action on %s needs a version of that capability", action.Type, target.id))
		}
	case types.ActionUninstall:
	default:
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown action type: %s", action.Type))
	}
	if action.Type != types.ActionInstall {
		if _, installed := current.Version(target.id); !installed {
			return errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg(fmt.Sprintf("cannot %s %s: capability is not installed", action.Type, target.id))
		}
	}
	return w.checkPolicy(action)
}

// checkPolicy runs the action policy against this copy's fixed flags.
func (w *WorkingCopy[C]) checkPolicy(action Action[C]) error {
	if w.policy == nil {
		return nil
	}
	origin := action.Origin
	if origin == "" {
		origin = types.OriginUser
	}
	target := action.Target()
	return w.policy.CheckAction(action.Type, origin, target.id, w.fixed[target.id])
}

// Revert drops pending actions and overrides, returning to the base.
func (w *WorkingCopy[C]) Revert(ctx context.Context) error {
	if err := w.editable(); err != nil {
		return err
	}
	prior := w.current
	w.pending = nil
	w.resetOverrides()
	w.recompute(ctx)
	w.notify(ctx, types.ChangeReverted, prior)
	return nil
}

// Merge replays other's pending actions after this copy's own. For every
// capability other touches, this copy's pending actions on it are dropped,
// so the later write wins. Every replayed action must pass this copy's
// action policy; if one fails nothing is merged. other is not modified.
func (w *WorkingCopy[C]) Merge(ctx context.Context, other *WorkingCopy[C]) error {
	if err := w.editable(); err != nil {
		return err
	}
	if other == nil || other == w {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("cannot merge a working copy into itself")
	}
	if err := other.editable(); err != nil {
		return err
	}
	for _, action := range other.pending {
		if err := w.checkPolicy(action); err != nil {
			return err
		}
	}
	touched := map[*Capability]bool{}
	for _, action := range other.pending {
		touched[action.Target()] = true
	}
	pending := make([]Action[C], 0, len(w.pending)+len(other.pending))
	for _, action := range w.pending {
		if !touched[action.Target()] {
			pending = append(pending, action)
		}
	}
	for _, action := range other.pending {
		action.replace = true
		pending = append(pending, action)
	}

	prior := w.current
	w.pending = pending
	if other.fixedSet {
		w.fixed = copyFlags(other.fixed)
		w.fixedSet = true
	}
	if other.runtimesSet {
		w.runtimes = append([]*Runtime(nil), other.runtimes...)
		w.primary = other.primary
		w.runtimesSet = true
	}
	w.recompute(ctx)
	w.notify(ctx, types.ChangeMerged, prior)
	return nil
}

// Commit returns the derived configuration and makes the copy inert. With
// violations it returns a *ValidationError and changes nothing.
func (w *WorkingCopy[C]) Commit(ctx context.Context) (Configuration, error) {
	if err := w.editable(); err != nil {
		return Configuration{}, err
	}
	if len(w.violations) > 0 {
		return Configuration{}, &ValidationError{Violations: w.Violations()}
	}
	prior := w.base
	w.base = w.current
	w.pending = nil
	w.fixedSet = false
	w.runtimesSet = false
	w.terminal = types.StateCommitted
	log.Ctx(ctx).Debug().
		Str("working_copy", w.id.String()).
		Int("installed", len(w.base.installed)).
		Msg("working copy committed")
	w.notify(ctx, types.ChangeCommitted, prior)
	return w.base, nil
}

// Dispose discards the copy. It is safe to call more than once.
func (w *WorkingCopy[C]) Dispose() {
	if w.terminal == "" {
		w.terminal = types.StateDisposed
	}
	w.pending = nil
	w.listeners = nil
}

// Clone copies base, pending actions and overrides into a new working copy
// with a new id and no listeners.
func (w *WorkingCopy[C]) Clone(ctx context.Context) (*WorkingCopy[C], error) {
	if err := w.editable(); err != nil {
		return nil, err
	}
	clone := &WorkingCopy[C]{
		id:          uuid.New(),
		registry:    w.registry,
		engine:      w.engine,
		policy:      w.policy,
		base:        w.base,
		pending:     append([]Action[C](nil), w.pending...),
		fixed:       copyFlags(w.fixed),
		runtimes:    append([]*Runtime(nil), w.runtimes...),
		primary:     w.primary,
		fixedSet:    w.fixedSet,
		runtimesSet: w.runtimesSet,
	}
	clone.recompute(ctx)
	return clone, nil
}

// AvailableVersions lists versions of capability supported by every
// targeted runtime, in declaration order.
func (w *WorkingCopy[C]) AvailableVersions(capability string) []*CapabilityVersion {
	c, ok := w.registry.Capability(capability)
	if !ok {
		return nil
	}
	var out []*CapabilityVersion
	for _, cv := range c.versions {
		if w.supported(cv) {
			out = append(out, cv)
		}
	}
	return out
}

func (w *WorkingCopy[C]) supported(cv *CapabilityVersion) bool {
	for _, runtime := range w.runtimes {
		if !runtime.Supports(cv) {
			return false
		}
	}
	return true
}

func (w *WorkingCopy[C]) HighestAvailableVersion(capability string) (*CapabilityVersion, error) {
	available := w.AvailableVersions(capability)
	if len(available) == 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("no available versions of %s", capability))
	}
	return LatestVersion(available)
}

// SetFixed replaces the fixed capability set.
func (w *WorkingCopy[C]) SetFixed(ctx context.Context, capabilities []string) error {
	if err := w.editable(); err != nil {
		return err
	}
	fixed := map[string]bool{}
	for _, id := range capabilities {
		if _, ok := w.registry.Capability(id); !ok {
			return errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("unknown capability: %s", id))
		}
		fixed[id] = true
	}
	prior := w.current
	w.fixed = fixed
	w.fixedSet = true
	w.recompute(ctx)
	w.notify(ctx, types.ChangeFixed, prior)
	return nil
}

// SetTargetedRuntimes replaces the targeted runtimes. The primary runtime
// is kept only if it is still targeted.
func (w *WorkingCopy[C]) SetTargetedRuntimes(ctx context.Context, names []string) error {
	if err := w.editable(); err != nil {
		return err
	}
	runtimes, err := w.registry.lookupRuntimes(names)
	if err != nil {
		return err
	}
	primary := w.primary
	if primary != nil && !containsRuntime(runtimes, primary) {
		primary = nil
	}
	w.setRuntimes(ctx, runtimes, primary)
	return nil
}

func (w *WorkingCopy[C]) AddTargetedRuntime(ctx context.Context, name string) error {
	if err := w.editable(); err != nil {
		return err
	}
	runtime, ok := w.registry.Runtime(name)
	if !ok {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("unknown runtime: %s", name))
	}
	if containsRuntime(w.runtimes, runtime) {
		return nil
	}
	w.setRuntimes(ctx, append(append([]*Runtime(nil), w.runtimes...), runtime), w.primary)
	return nil
}

func (w *WorkingCopy[C]) RemoveTargetedRuntime(ctx context.Context, name string) error {
	if err := w.editable(); err != nil {
		return err
	}
	var runtimes []*Runtime
	removed := false
	for _, runtime := range w.runtimes {
		if runtime.name == name {
			removed = true
			continue
		}
		runtimes = append(runtimes, runtime)
	}
	if !removed {
		return nil
	}
	primary := w.primary
	if primary != nil && primary.name == name {
		primary = nil
	}
	w.setRuntimes(ctx, runtimes, primary)
	return nil
}

// SetPrimaryRuntime selects one of the targeted runtimes. An empty name
// clears it.
func (w *WorkingCopy[C]) SetPrimaryRuntime(ctx context.Context, name string) error {
	if err := w.editable(); err != nil {
		return err
	}
	if name == "" {
		w.setRuntimes(ctx, w.runtimes, nil)
		return nil
	}
	for _, runtime := range w.runtimes {
		if runtime.name == name {
			w.setRuntimes(ctx, w.runtimes, runtime)
			return nil
		}
	}
	return errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(fmt.Sprintf("runtime %s is not targeted", name))
}

func (w *WorkingCopy[C]) setRuntimes(ctx context.Context, runtimes []*Runtime, primary *Runtime) {
	prior := w.current
	w.runtimes = runtimes
	w.primary = primary
	w.runtimesSet = true
	w.recompute(ctx)
	w.notify(ctx, types.ChangeRuntimes, prior)
}

// PendingAction returns the last pending action on capability.
func (w *WorkingCopy[C]) PendingAction(capability string) (Action[C], bool) {
	for i := len(w.pending) - 1; i >= 0; i-- {
		if target := w.pending[i].Target(); target != nil && target.id == capability {
			return w.pending[i], true
		}
	}
	return Action[C]{}, false
}

// SetActionConfig replaces the payload of the last pending action on
// capability.
func (w *WorkingCopy[C]) SetActionConfig(capability string, config C) error {
	if err := w.editable(); err != nil {
		return err
	}
	for i := len(w.pending) - 1; i >= 0; i-- {
		if target := w.pending[i].Target(); target != nil && target.id == capability {
			w.pending[i].Config = config
			return nil
		}
	}
	return errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(fmt.Sprintf("no pending action on %s", capability))
}

// ApplyPreset stages the actions that turn the current installed set into
// preset's. Either all actions are staged or none.
func (w *WorkingCopy[C]) ApplyPreset(ctx context.Context, preset Configuration, config C) error {
	if err := w.editable(); err != nil {
		return err
	}
	diff := DiffConfigurations(w.current, preset)
	var actions []Action[C]
	for _, cv := range diff.Uninstalled {
		actions = append(actions, NewUninstallAction(cv.capability, config))
	}
	for _, change := range diff.Changed {
		actions = append(actions, NewChangeVersionAction(change.To, config))
	}
	for _, cv := range diff.Installed {
		actions = append(actions, NewInstallAction(cv, config))
	}
	for _, action := range actions {
		if err := w.checkAction(action, w.current); err != nil {
			return err
		}
	}
	if len(actions) == 0 {
		return nil
	}
	prior := w.current
	w.pending = append(w.pending, actions...)
	w.recompute(ctx)
	w.notify(ctx, types.ChangeStaged, prior)
	return nil
}

func (w *WorkingCopy[C]) editable() error {
	if w.terminal == "" {
		return nil
	}
	return errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(fmt.Sprintf("working copy %s is %s", w.id, w.terminal))
}

func (w *WorkingCopy[C]) resetOverrides() {
	w.fixed = copyFlags(w.base.fixed)
	w.runtimes = append([]*Runtime(nil), w.base.targetedRuntimes...)
	w.primary = w.base.primaryRuntime
	w.fixedSet = false
	w.runtimesSet = false
}

// recompute folds pending actions into the base and revalidates.
func (w *WorkingCopy[C]) recompute(ctx context.Context) {
	installed := w.base.Installed()
	for _, action := range w.pending {
		installed = foldAction(installed, action)
	}
	fixed := make([]*Capability, 0, len(w.fixed))
	for _, id := range sortedKeys(w.fixed) {
		if capability, ok := w.registry.Capability(id); ok {
			fixed = append(fixed, capability)
		}
	}
	primary := w.primary
	if primary != nil && !containsRuntime(w.runtimes, primary) {
		primary = nil
	}
	// runtimes and primary are kept consistent by the setters, so this
	// cannot fail.
	current, _ := NewConfiguration(installed, fixed, w.runtimes, primary)
	w.current = current
	w.violations = w.engine.ValidateConfiguration(ctx, current)
}

func foldAction[C any](installed []*CapabilityVersion, action Action[C]) []*CapabilityVersion {
	target := action.Target()
	switch action.Type {
	case types.ActionInstall:
		for _, cv := range installed {
			if cv == action.Version {
				return installed
			}
		}
		if action.replace {
			installed = withoutCapability(installed, target)
		}
		return append(installed, action.Version)
	case types.ActionUninstall:
		return withoutCapability(installed, target)
	case types.ActionChangeVersion:
		return append(withoutCapability(installed, target), action.Version)
	default:
		return installed
	}
}

func withoutCapability(installed []*CapabilityVersion, capability *Capability) []*CapabilityVersion {
	out := make([]*CapabilityVersion, 0, len(installed))
	for _, cv := range installed {
		if cv.capability != capability {
			out = append(out, cv)
		}
	}
	return out
}

func (w *WorkingCopy[C]) notify(ctx context.Context, kind types.ChangeKind, prior Configuration) {
	event := ChangeEvent{
		ID:          uuid.New(),
		WorkingCopy: w.id,
		Kind:        kind,
		Prior:       prior,
		Current:     w.current,
	}
	listeners := append([]listenerEntry(nil), w.listeners...)
	for i, entry := range listeners {
		if err := invokeListener(ctx, entry.fn, event); err != nil {
			log.Ctx(ctx).Warn().
				Err(err).
				Int("listener", i).
				Str("event", string(kind)).
				Msg("working copy listener failed")
		}
	}
}

func invokeListener(ctx context.Context, l Listener, event ChangeEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return l(ctx, event)
}

func copyFlags(flags map[string]bool) map[string]bool {
	out := make(map[string]bool, len(flags))
	for key, value := range flags {
		out[key] = value
	}
	return out
}

func containsRuntime(runtimes []*Runtime, runtime *Runtime) bool {
	for _, candidate := range runtimes {
		if candidate == runtime {
			return true
		}
	}
	return false
}

