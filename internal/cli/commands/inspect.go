package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/schemabridge/internal/cli/ui"
	"github.com/conduit-lang/schemabridge/internal/orm/declare"
	"github.com/conduit-lang/schemabridge/internal/orm/mapper"
)

var (
	inspectModel   string
	inspectDialect string
)

// NewInspectCommand creates the inspect command
func NewInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [manifest]",
		Short: "Show the tables declared for a manifest",
		Long: `Declare every model of the manifest and list the resulting tables.

With --model, show the columns and relationships of one model. The model
is named as "Model" or "module.Model".`,
		Args: cobra.MaximumNArgs(1),
		RunE: runInspect,
	}

	cmd.Flags().StringVar(&inspectModel, "model", "", "Show details for one model")
	cmd.Flags().StringVarP(&inspectDialect, "dialect", "d", "", "Target dialect (overrides configuration)")

	return cmd
}

func runInspect(cmd *cobra.Command, args []string) error {
	p, err := loadProject(args, inspectDialect)
	if err != nil {
		return err
	}
	defer p.logger.Sync() //nolint:errcheck

	if err := p.declareAll(cmd.Context(), nil); err != nil {
		return err
	}
	p.reportOmissions(cmd)

	declarations := p.engine.Declarations()
	if inspectModel == "" {
		renderDeclarations(cmd, declarations)
		return nil
	}

	var names []string
	for _, d := range declarations {
		if d.Model.Name == inspectModel || d.Model.ID == inspectModel {
			renderTable(cmd, d, p.dialect)
			return nil
		}
		names = append(names, d.Model.Name)
	}

	ui.ModelNotFound(inspectModel, names, color.NoColor).Write(cmd.ErrOrStderr())
	return fmt.Errorf("model %s not found", inspectModel)
}

func renderDeclarations(cmd *cobra.Command, declarations []declare.Declaration) {
	table := ui.NewTable(cmd.OutOrStdout(), color.NoColor, "MODEL", "TABLE", "COLUMNS", "RELATIONSHIPS")
	for _, d := range declarations {
		table.AddRow(
			d.Model.ID,
			d.Table.Name,
			strconv.Itoa(len(d.Table.Columns())),
			strconv.Itoa(len(d.Table.Relationships())),
		)
	}
	table.Render()
}

func renderTable(cmd *cobra.Command, d declare.Declaration, dialect mapper.Dialect) {
	out := cmd.OutOrStdout()

	header := ui.NewSection(out, d.Model.ID, color.NoColor)
	header.AddLine("table:   %s", d.Table.Name)
	header.AddLine("dialect: %s", dialect)
	header.Render()

	columns := ui.NewTable(out, color.NoColor, "COLUMN", "TYPE", "NULL", "KEY", "REFERENCES")
	for _, c := range d.Table.Columns() {
		typ, err := c.Type.Compile(dialect)
		if err != nil {
			typ = c.Type.TypeName()
		}
		null := ""
		if c.Nullable {
			null = "yes"
		}
		references := ""
		if c.ForeignKey != nil {
			references = c.ForeignKey.Column
		}
		columns.AddRow(c.Name, typ, null, columnKey(c), references)
	}
	columns.Render()
	fmt.Fprintln(out)

	relationships := ui.NewSection(out, "Relationships", color.NoColor)
	for _, r := range d.Table.Relationships() {
		relationships.AddLine("%s", describeRelationship(r))
	}
	relationships.Render()
}

func columnKey(c *mapper.Column) string {
	var keys []string
	if c.PrimaryKey {
		keys = append(keys, "PK")
	}
	if c.ForeignKey != nil {
		keys = append(keys, "FK")
	}
	if c.Unique && !c.PrimaryKey {
		keys = append(keys, "UNIQUE")
	}
	return strings.Join(keys, ",")
}

func describeRelationship(r *mapper.Relationship) string {
	arity := "one"
	if r.UseList {
		arity = "many"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s → %s (%s)", r.Name, r.Target, arity)
	if r.Secondary != nil {
		fmt.Fprintf(&b, " via %s", r.Secondary.Name)
	}
	switch {
	case r.BackPopulates != "":
		fmt.Fprintf(&b, " back_populates=%s", r.BackPopulates)
	case r.BackRef != "":
		fmt.Fprintf(&b, " backref=%s", r.BackRef)
	}
	if r.Reverse {
		b.WriteString(" [reverse]")
	}
	return b.String()
}
