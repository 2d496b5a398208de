package stage

import (
	"go.uber.org/fx"
)

// Stage labels a step of the task lifecycle.
type Stage string

const (
	Draft      Stage = "draft"
	Published  Stage = "published"
	Collecting Stage = "collecting"
	Evaluating Stage = "evaluating"
	InProgress Stage = "in_progress"
	Reviewing  Stage = "reviewing"
	Publishing Stage = "publishing"
	Completed  Stage = "completed"
	Cancelled  Stage = "cancelled"
	Expired    Stage = "expired"
	Archived   Stage = "archived"
)

// Role labels the relationship of an actor to a task.
type Role string

const (
	RoleSupplier Role = "supplier"
	RoleCreator  Role = "creator"
	RoleMedia    Role = "media"
)

// OverrideReason is a recognized justification for a transition outside the
// forward table. Each reason is bound to exactly one (from, to) pair.
type OverrideReason string

const (
	OverrideUrgentTaskSkip         OverrideReason = "urgent_task_skip"
	OverridePreApprovedContentSkip OverrideReason = "pre_approved_content_skip"
	OverrideContentRevision        OverrideReason = "content_revision_required"
	OverridePublishFailureRevert   OverrideReason = "publish_failure_revert"
)

// Definition is the static description of a single stage.
type Definition struct {
	Name           Stage
	Order          int // 1-based position on the forward path, 0 for branch stages
	EditableBy     []Role
	ForwardTargets []Stage
	RequiredFields []string
	Terminal       bool
}

type overridePair struct {
	From Stage
	To   Stage
}

// Registry is the load-once lookup table for stage definitions, forward
// transitions and override reasons. It has no mutable state.
type Registry struct {
	defs      map[Stage]Definition
	overrides map[OverrideReason]overridePair
	ordered   []Stage
}

var Module = fx.Module("stage.registry",
	fx.Provide(NewRegistry),
)

func NewRegistry() *Registry {
	draftFields := []string{"title", "description", "requirements", "budget", "deadline"}

	defs := []Definition{
		{
			Name:           Draft,
			Order:          1,
			EditableBy:     []Role{RoleSupplier},
			ForwardTargets: []Stage{Published, Cancelled},
			RequiredFields: draftFields,
		},
		{
			Name:           Published,
			Order:          2,
			EditableBy:     []Role{RoleSupplier},
			ForwardTargets: []Stage{Collecting, Evaluating, InProgress, Cancelled, Expired},
			RequiredFields: draftFields,
		},
		{
			Name:           Collecting,
			Order:          3,
			EditableBy:     []Role{RoleSupplier},
			ForwardTargets: []Stage{Evaluating, InProgress, Cancelled, Expired},
		},
		{
			Name:           Evaluating,
			Order:          4,
			EditableBy:     []Role{RoleSupplier},
			ForwardTargets: []Stage{InProgress, Cancelled, Expired},
		},
		{
			Name:           InProgress,
			Order:          5,
			EditableBy:     []Role{RoleSupplier},
			ForwardTargets: []Stage{Reviewing, Cancelled},
		},
		{
			Name:           Reviewing,
			Order:          6,
			EditableBy:     []Role{RoleSupplier, RoleCreator},
			ForwardTargets: []Stage{Publishing, Cancelled},
		},
		{
			Name:           Publishing,
			Order:          7,
			EditableBy:     []Role{RoleSupplier},
			ForwardTargets: []Stage{Completed, Cancelled},
		},
		{
			Name:           Completed,
			Order:          8,
			EditableBy:     []Role{RoleSupplier},
			ForwardTargets: []Stage{Archived},
			Terminal:       true,
		},
		{
			Name:           Cancelled,
			EditableBy:     []Role{RoleSupplier},
			ForwardTargets: []Stage{Archived},
			Terminal:       true,
		},
		{
			Name:           Expired,
			EditableBy:     []Role{RoleSupplier},
			ForwardTargets: []Stage{Archived},
			Terminal:       true,
		},
		{
			Name:       Archived,
			EditableBy: []Role{RoleSupplier},
			Terminal:   true,
		},
	}

	r := &Registry{
		defs: make(map[Stage]Definition, len(defs)),
		overrides: map[OverrideReason]overridePair{
			OverrideUrgentTaskSkip:         {From: Draft, To: InProgress},
			OverridePreApprovedContentSkip: {From: InProgress, To: Publishing},
			OverrideContentRevision:        {From: Reviewing, To: InProgress},
			OverridePublishFailureRevert:   {From: Publishing, To: Reviewing},
		},
	}

	for _, def := range defs {
		r.defs[def.Name] = def
		r.ordered = append(r.ordered, def.Name)
	}

	return r
}

// IsKnown reports whether name is a registered stage.
func (r *Registry) IsKnown(name Stage) bool {
	_, ok := r.defs[name]
	return ok
}

// Definition returns the static definition for a stage. Asking for an
// unknown stage is a programming error and panics.
func (r *Registry) Definition(name Stage) Definition {
	def, ok := r.defs[name]
	if !ok {
		panic("stage: unknown stage " + string(name))
	}
	return def
}

// Stages lists all registered stage names in declaration order.
func (r *Registry) Stages() []Stage {
	out := make([]Stage, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// AllowedForwardTargets returns the stages reachable by a normal transition.
func (r *Registry) AllowedForwardTargets(from Stage) []Stage {
	def := r.Definition(from)
	out := make([]Stage, len(def.ForwardTargets))
	copy(out, def.ForwardTargets)
	return out
}

// IsForwardTarget reports whether from -> to is a normal transition.
func (r *Registry) IsForwardTarget(from, to Stage) bool {
	for _, target := range r.Definition(from).ForwardTargets {
		if target == to {
			return true
		}
	}
	return false
}

// EditableBy returns the roles permitted to edit task content in a stage.
func (r *Registry) EditableBy(name Stage) []Role {
	def := r.Definition(name)
	out := make([]Role, len(def.EditableBy))
	copy(out, def.EditableBy)
	return out
}

// RequiredFields returns the field-completeness checklist for a stage.
func (r *Registry) RequiredFields(name Stage) []string {
	def := r.Definition(name)
	out := make([]string, len(def.RequiredFields))
	copy(out, def.RequiredFields)
	return out
}

// OverrideTarget resolves a recognized override reason to its permitted
// (from, to) pair. Unrecognized reasons return ok=false.
func (r *Registry) OverrideTarget(reason OverrideReason) (from, to Stage, ok bool) {
	pair, ok := r.overrides[reason]
	if !ok {
		return "", "", false
	}
	return pair.From, pair.To, true
}

// Order returns the 1-based position of a stage on the forward path, or 0
// for branch stages.
func (r *Registry) Order(name Stage) int {
	return r.Definition(name).Order
}

// ForwardStageCount is the number of stages on the forward path.
func (r *Registry) ForwardStageCount() int {
	count := 0
	for _, def := range r.defs {
		if def.Order > 0 {
			count++
		}
	}
	return count
}

// ProgressPercent derives the dashboard progress for a stage. A manual
// override recorded on the current stage record wins when present.
func (r *Registry) ProgressPercent(name Stage, override *int) int {
	if override != nil {
		return clampPercent(*override)
	}
	order := r.Order(name)
	if order == 0 {
		return 0
	}
	return order * 100 / r.ForwardStageCount()
}

// IsTerminal reports whether a stage ends the forward lifecycle.
func (r *Registry) IsTerminal(name Stage) bool {
	return r.Definition(name).Terminal
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
