// Package declare builds mapper tables from source models. The Engine owns
// an arena of declarations keyed by model ID, so every model is declared at
// most once per process and relationship cycles terminate.
package declare

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/conduit-lang/schemabridge/internal/orm/analyze"
	"github.com/conduit-lang/schemabridge/internal/orm/mapper"
	"github.com/conduit-lang/schemabridge/internal/orm/source"
	"github.com/conduit-lang/schemabridge/internal/orm/typemap"
)

// ErrUnresolvedRelationTarget is reported for relationships whose target
// could not be declared
var ErrUnresolvedRelationTarget = mapper.ErrUnresolvedRelationTarget

// State is the declaration state of a model
type State int

const (
	StateUnseen State = iota
	StateInProgress
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInProgress:
		return "in_progress"
	case StateDone:
		return "done"
	default:
		return "unseen"
	}
}

type entry struct {
	model *source.Model
	state State
	table *mapper.Table
}

// Omission records a field or relationship left out of a declared table
type Omission struct {
	Model        string
	Table        string
	Field        string
	Kind         source.Kind
	Relationship bool
	Reason       error
}

// Declaration pairs a source model with its declared table
type Declaration struct {
	Model *source.Model
	Table *mapper.Table
}

// Config configures an Engine
type Config struct {
	// Registry is the type mapping table; nil means the default table
	Registry *typemap.Registry

	// Metadata receives the declared tables; nil creates a new one
	Metadata *mapper.Metadata

	// Policy is the missing-mapping policy and must be set
	Policy Policy

	Logger *zap.Logger
}

// Engine declares mapper tables from source models
type Engine struct {
	metadata *mapper.Metadata
	analyzer *analyze.Analyzer
	policy   Policy
	logger   *zap.Logger

	// mu serializes top-level declarations and guards the fields below
	mu        sync.Mutex
	arena     map[string]*entry
	order     []string
	omissions []Omission
}

// run is the state of one top-level Declare call
type run struct {
	ctx     context.Context
	dialect mapper.Dialect
	backRef BackRefKind
	created []string
}

// checkpoint is the extent of a run's side effects at one point
type checkpoint struct {
	created   int
	omissions int
}

func (e *Engine) checkpoint(r *run) checkpoint {
	return checkpoint{created: len(r.created), omissions: len(e.omissions)}
}

// NewEngine creates an engine
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metadata := cfg.Metadata
	if metadata == nil {
		metadata = mapper.NewMetadata(logger)
	}

	return &Engine{
		metadata: metadata,
		analyzer: analyze.New(cfg.Registry),
		policy:   cfg.Policy,
		logger:   logger,
		arena:    make(map[string]*entry),
	}, nil
}

// Metadata returns the registry of declared tables
func (e *Engine) Metadata() *mapper.Metadata {
	return e.metadata
}

// Registry returns the type mapping table
func (e *Engine) Registry() *typemap.Registry {
	return e.analyzer.Registry()
}

// Policy returns the missing-mapping policy
func (e *Engine) Policy() Policy {
	return e.policy
}

// Declare declares a model (and the models its relationships need) for a
// dialect and returns its table. Repeated calls return the same table.
// Relationship targets are configured before Declare returns.
func (e *Engine) Declare(ctx context.Context, model *source.Model, dialect mapper.Dialect, backRef BackRefKind) (*mapper.Table, error) {
	if model == nil {
		return nil, fmt.Errorf("model cannot be nil")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	r := &run{ctx: ctx, dialect: dialect, backRef: backRef}
	mark := e.checkpoint(r)
	table, err := e.declare(r, model)
	if err != nil {
		e.rollback(r, mark)
		return nil, err
	}

	if err := e.metadata.Configure(); err != nil {
		e.logger.Warn("relationships omitted while configuring",
			zap.String("model", model.String()),
			zap.Error(err))
	}
	return table, nil
}

// declare runs the state machine for one model
func (e *Engine) declare(r *run, model *source.Model) (*mapper.Table, error) {
	if err := r.ctx.Err(); err != nil {
		return nil, err
	}

	if ent, ok := e.arena[model.ID]; ok {
		// a model still in progress is part of a cycle; its columns already
		// exist and relationships refer to it by name
		return ent.table, nil
	}

	desc, err := e.analyzer.Model(model)
	if err != nil {
		return nil, err
	}

	table := mapper.NewTable(desc.Table)
	table.SourceID = model.ID
	table.Module = model.Module
	if err := e.metadata.Add(table); err != nil {
		return nil, fmt.Errorf("declaring %s: %w", model, err)
	}
	ent := &entry{model: model, state: StateInProgress, table: table}
	e.arena[model.ID] = ent
	e.order = append(e.order, model.ID)
	r.created = append(r.created, model.ID)

	columns := make(map[string]*mapper.Column, len(desc.Fields))
	for _, fd := range desc.Fields {
		if !fd.HasColumn() {
			continue
		}
		col, err := e.column(r, model, table, fd)
		if err != nil {
			return nil, err
		}
		if col == nil {
			continue
		}
		if err := table.AddColumn(col); err != nil {
			return nil, fmt.Errorf("declaring %s: %w", model, err)
		}
		columns[fd.Name] = col
	}

	for _, fd := range desc.Fields {
		if fd.Relation == nil {
			if !fd.HasColumn() && fd.Problem != nil {
				e.omitRelationship(model, table, fd.Name, fd.Kind, fd.Problem)
			}
			continue
		}
		col := columns[fd.Name]
		if fd.HasColumn() && col == nil {
			continue
		}
		if err := e.relationship(r, model, table, fd, col); err != nil {
			return nil, err
		}
	}

	ent.state = StateDone
	e.logger.Debug("declared table",
		zap.String("model", model.String()),
		zap.String("table", table.Name),
		zap.Int("columns", len(table.Columns())),
		zap.Int("relationships", len(table.Relationships())))
	return table, nil
}

// column builds the column of a field, or returns nil when the field is
// omitted
func (e *Engine) column(r *run, model *source.Model, table *mapper.Table, fd *analyze.FieldDescriptor) (*mapper.Column, error) {
	typ, err := e.columnType(r, model, table, fd)
	if err != nil || typ == nil {
		return nil, err
	}

	col := &mapper.Column{
		Name:          fd.Column,
		Type:          typ,
		PrimaryKey:    fd.PrimaryKey,
		Unique:        fd.Unique,
		Nullable:      fd.Nullable,
		AutoIncrement: fd.AutoIncrement,
		Default:       fd.Default,
	}
	if fd.ForeignKey != nil {
		col.ForeignKey = &mapper.ForeignKey{
			Column:   fd.ForeignKey.Column,
			OnDelete: fd.ForeignKey.OnDelete,
		}
	}
	return col, nil
}

func (e *Engine) columnType(r *run, model *source.Model, table *mapper.Table, fd *analyze.FieldDescriptor) (mapper.ColumnType, error) {
	if fd.Problem != nil {
		if !errors.Is(fd.Problem, typemap.ErrUnmappedFieldKind) {
			e.logger.Warn("omitting field",
				zap.String("model", model.String()),
				zap.String("field", fd.Name),
				zap.Error(fd.Problem))
			e.record(model, table, fd.Name, fd.Kind, false, fd.Problem)
			return nil, nil
		}
		return e.missing(r, model, table, fd, fd.Problem)
	}

	ctor, opts, ok := fd.TypeFor(r.dialect)
	if !ok {
		return e.missing(r, model, table, fd,
			fmt.Errorf("%w: %s for dialect %s", typemap.ErrUnmappedFieldKind, fd.Kind, r.dialect))
	}
	typ, err := ctor(opts)
	if err != nil {
		return e.missing(r, model, table, fd,
			fmt.Errorf("%w: %s for dialect %s: %v", typemap.ErrUnmappedFieldKind, fd.Kind, r.dialect, err))
	}
	return typ, nil
}

// missing applies the missing-mapping policy
func (e *Engine) missing(r *run, model *source.Model, table *mapper.Table, fd *analyze.FieldDescriptor, cause error) (mapper.ColumnType, error) {
	fields := []zap.Field{
		zap.String("model", model.String()),
		zap.String("field", fd.Name),
		zap.String("kind", fd.Kind.String()),
		zap.String("dialect", r.dialect.String()),
	}

	switch e.policy.Action {
	case ActionRaise:
		return nil, fmt.Errorf("declaring %s.%s: %w", model, fd.Name, cause)
	case ActionFallback:
		typ, err := e.fallback(r, fd)
		if err != nil {
			return nil, fmt.Errorf("declaring %s.%s: fallback %s: %w", model, fd.Name, e.policy.Fallback, err)
		}
		e.logger.Info("field mapped with fallback kind",
			append(fields, zap.String("fallback", e.policy.Fallback.String()))...)
		return typ, nil
	case ActionSkip:
		e.logger.Debug("skipped field without a type mapping", fields...)
	default:
		e.logger.Warn("skipped field without a type mapping; register an alias or set aliases", fields...)
	}
	e.record(model, table, fd.Name, fd.Kind, false, cause)
	return nil, nil
}

func (e *Engine) fallback(r *run, fd *analyze.FieldDescriptor) (mapper.ColumnType, error) {
	ctor, opts, err := e.Registry().Resolve(e.policy.Fallback, r.dialect, fd.Source)
	if err != nil {
		return nil, err
	}
	return ctor(opts)
}

// relationship declares the relationship of a field. Failures to resolve
// the target are contained to the relationship.
func (e *Engine) relationship(r *run, model *source.Model, table *mapper.Table, fd *analyze.FieldDescriptor, col *mapper.Column) error {
	rel := fd.Relation

	var secondary *mapper.Table
	if rel.Secondary != nil {
		t, err := e.declareRelated(r, rel.Secondary)
		if err != nil {
			return e.unresolved(r, model, table, fd, col, err)
		}
		secondary = t
	}

	target, err := e.declareRelated(r, rel.TargetModel)
	if err != nil {
		return e.unresolved(r, model, table, fd, col, err)
	}

	relationship := &mapper.Relationship{
		Name:   rel.LogicalName,
		Target: target.Name,
	}

	if secondary != nil {
		localRef, err1 := table.C(rel.LocalKey)
		throughLocal, err2 := secondary.C(rel.ThroughLocal)
		remoteRef, err3 := target.C(rel.RemoteKey)
		throughRemote, err4 := secondary.C(rel.ThroughRemote)
		if err := multierr.Combine(err1, err2, err3, err4); err != nil {
			e.omitRelationship(model, table, rel.LogicalName, fd.Kind, err)
			return nil
		}
		relationship.Secondary = secondary
		relationship.PrimaryJoin = &mapper.JoinCondition{Left: localRef, Right: throughLocal}
		relationship.SecondaryJoin = &mapper.JoinCondition{Left: remoteRef, Right: throughRemote}
		relationship.UseList = true
	} else {
		relationship.ForeignKeys = []*mapper.Column{col}
		if col.ForeignKey != nil {
			relationship.PrimaryJoin = &mapper.JoinCondition{
				Left:  col.Ref(),
				Right: mapper.ColumnRef{Table: target.Name, Column: col.ForeignKey.TargetColumn()},
			}
		}
	}

	if back := strings.TrimRight(rel.BackRef, "+"); back != "" {
		switch r.backRef {
		case BackRefBackref:
			relationship.BackRef = back
		case BackRefBackPopulates:
			relationship.BackPopulates = back
		}
	}

	if err := table.AddRelationship(relationship); err != nil {
		e.omitRelationship(model, table, rel.LogicalName, fd.Kind, err)
	}
	return nil
}

// declareRelated declares a related model; on failure everything created
// by the nested declaration is rolled back
func (e *Engine) declareRelated(r *run, model *source.Model) (*mapper.Table, error) {
	mark := e.checkpoint(r)
	t, err := e.declare(r, model)
	if err != nil {
		e.rollback(r, mark)
		return nil, err
	}
	return t, nil
}

// unresolved handles a relationship whose target or secondary could not be
// declared. Cancellation and raised missing mappings propagate.
func (e *Engine) unresolved(r *run, model *source.Model, table *mapper.Table, fd *analyze.FieldDescriptor, col *mapper.Column, err error) error {
	if r.ctx.Err() != nil {
		return err
	}
	if e.policy.Action == ActionRaise && errors.Is(err, typemap.ErrUnmappedFieldKind) {
		return err
	}
	if col != nil {
		col.ForeignKey = nil
	}
	e.omitRelationship(model, table, fd.Relation.LogicalName, fd.Kind,
		fmt.Errorf("%w: %s: %v", ErrUnresolvedRelationTarget, fd.Relation.Target, err))
	return nil
}

func (e *Engine) omitRelationship(model *source.Model, table *mapper.Table, name string, kind source.Kind, cause error) {
	e.logger.Warn("omitting relationship",
		zap.String("model", model.String()),
		zap.String("relationship", name),
		zap.Error(cause))
	e.record(model, table, name, kind, true, cause)
}

func (e *Engine) record(model *source.Model, table *mapper.Table, name string, kind source.Kind, relationship bool, cause error) {
	e.omissions = append(e.omissions, Omission{
		Model:        model.String(),
		Table:        table.Name,
		Field:        name,
		Kind:         kind,
		Relationship: relationship,
		Reason:       cause,
	})
}

// rollback forgets every model created by the run since mark, along with
// the omissions recorded for them
func (e *Engine) rollback(r *run, mark checkpoint) {
	if mark.omissions < len(e.omissions) {
		e.omissions = e.omissions[:mark.omissions]
	}
	if mark.created >= len(r.created) {
		return
	}
	removed := make(map[string]bool, len(r.created)-mark.created)
	for _, id := range r.created[mark.created:] {
		if ent, ok := e.arena[id]; ok {
			e.metadata.Remove(ent.table.Name)
			delete(e.arena, id)
		}
		removed[id] = true
	}
	r.created = r.created[:mark.created]

	kept := e.order[:0]
	for _, id := range e.order {
		if !removed[id] {
			kept = append(kept, id)
		}
	}
	e.order = kept
}

// Declared returns the table and state of a model ID
func (e *Engine) Declared(id string) (*mapper.Table, State) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent, ok := e.arena[id]
	if !ok {
		return nil, StateUnseen
	}
	return ent.table, ent.state
}

// Declarations returns every completed declaration in declaration order
func (e *Engine) Declarations() []Declaration {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Declaration, 0, len(e.order))
	for _, id := range e.order {
		ent := e.arena[id]
		if ent.state != StateDone {
			continue
		}
		out = append(out, Declaration{Model: ent.model, Table: ent.table})
	}
	return out
}

// Omissions returns the fields and relationships left out so far
func (e *Engine) Omissions() []Omission {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Omission, len(e.omissions))
	copy(out, e.omissions)
	return out
}

// Reset forgets all declarations (useful for testing)
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.arena = make(map[string]*entry)
	e.order = nil
	e.omissions = nil
	e.metadata.Clear()
}
