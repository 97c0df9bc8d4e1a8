package transfer

import (
	"context"
	"fmt"

	"github.com/conduit-lang/schemabridge/internal/orm/declare"
	"github.com/conduit-lang/schemabridge/internal/orm/mapper"
	"github.com/conduit-lang/schemabridge/internal/orm/source"
)

// Options control a transfer
type Options struct {
	Dialect mapper.Dialect
	BackRef declare.BackRefKind

	// NameFormatter formats published names; nil means CamelCase
	NameFormatter NameFormatter
}

// Transfer declares every public, non-abstract model of module and
// publishes every declared table belonging to the module into ns. Through
// tables of the module are published as well.
func Transfer(ctx context.Context, engine *declare.Engine, module *source.Module, ns *Namespace, opts Options) error {
	if module == nil {
		return fmt.Errorf("module cannot be nil")
	}
	format := opts.NameFormatter
	if format == nil {
		format = CamelCase
	}

	for _, model := range module.Models() {
		if _, err := engine.Declare(ctx, model, opts.Dialect, opts.BackRef); err != nil {
			return fmt.Errorf("transfer %s: %w", module.Name, err)
		}
	}

	for _, d := range engine.Declarations() {
		if d.Model.Module != module.Name {
			continue
		}
		ns.Set(format(d.Model.Name), d.Table)
	}
	return nil
}
