package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/schemabridge/internal/cli/config"
	"github.com/conduit-lang/schemabridge/internal/orm/declare"
	"github.com/conduit-lang/schemabridge/internal/orm/mapper"
	"github.com/conduit-lang/schemabridge/internal/orm/source"
	"github.com/conduit-lang/schemabridge/internal/orm/typemap"
)

// project is the state shared by commands that work on a manifest
type project struct {
	config  *config.Config
	logger  *zap.Logger
	modules []*source.Module
	engine  *declare.Engine
	dialect mapper.Dialect
	backRef declare.BackRefKind
}

// loadProject loads configuration and the manifest named by args[0], the
// --manifest flag or the configuration, in that order. dialectOverride
// replaces the configured dialect when set.
func loadProject(args []string, dialectOverride string) (*project, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := cfg.Logger()
	if err != nil {
		return nil, err
	}

	path := manifestPath
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		path = cfg.Manifest
	}
	if path == "" {
		return nil, fmt.Errorf("no manifest given: pass a path, --manifest or set manifest in schemabridge.yml")
	}

	modules, err := source.LoadManifest(path)
	if err != nil {
		return nil, err
	}

	dialect, err := cfg.TargetDialect()
	if err != nil {
		return nil, err
	}
	if dialectOverride != "" {
		if dialect, err = mapper.ParseDialect(dialectOverride); err != nil {
			return nil, err
		}
	}

	backRef, err := cfg.BackRef()
	if err != nil {
		return nil, err
	}

	engine, err := newEngine(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &project{
		config:  cfg,
		logger:  logger,
		modules: modules,
		engine:  engine,
		dialect: dialect,
		backRef: backRef,
	}, nil
}

func newEngine(cfg *config.Config, logger *zap.Logger) (*declare.Engine, error) {
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}

	registry := typemap.NewDefaultRegistry()
	if err := cfg.ApplyAliases(registry); err != nil {
		return nil, fmt.Errorf("aliases: %w", err)
	}

	return declare.NewEngine(declare.Config{
		Registry: registry,
		Policy:   policy,
		Logger:   logger,
	})
}

// models returns every model of the manifest in module order
func (p *project) models() []*source.Model {
	var models []*source.Model
	for _, module := range p.modules {
		models = append(models, module.Models()...)
	}
	return models
}

// declareAll declares every model. step, when set, is called after each
// model is declared.
func (p *project) declareAll(ctx context.Context, step func(model *source.Model)) error {
	for _, model := range p.models() {
		if _, err := p.engine.Declare(ctx, model, p.dialect, p.backRef); err != nil {
			return err
		}
		if step != nil {
			step(model)
		}
	}
	return nil
}

// reportOmissions prints recorded omissions to stderr
func (p *project) reportOmissions(cmd *cobra.Command) {
	for _, o := range p.engine.Omissions() {
		what := "field"
		if o.Relationship {
			what = "relationship"
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s.%s: %s %s omitted: %v\n", o.Model, o.Field, o.Kind, what, o.Reason)
	}
}
