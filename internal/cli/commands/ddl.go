package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	ddlDialect string
)

// NewDDLCommand creates the ddl command
func NewDDLCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ddl [manifest]",
		Short: "Print CREATE TABLE statements for a manifest",
		Long: `Declare every model of the manifest and print the CREATE TABLE
statements for the target dialect in dependency order.

Fields whose kind has no mapping are handled according to the configured
missing policy; omitted fields are reported on stderr.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runDDL,
	}

	cmd.Flags().StringVarP(&ddlDialect, "dialect", "d", "", "Target dialect (overrides configuration)")

	return cmd
}

func runDDL(cmd *cobra.Command, args []string) error {
	p, err := loadProject(args, ddlDialect)
	if err != nil {
		return err
	}
	defer p.logger.Sync() //nolint:errcheck

	if err := p.declareAll(cmd.Context(), nil); err != nil {
		return err
	}
	p.reportOmissions(cmd)

	statements, err := p.engine.Metadata().CreateAllSQL(p.dialect)
	if err != nil {
		return fmt.Errorf("failed to render DDL: %w", err)
	}

	out := cmd.OutOrStdout()
	for i, stmt := range statements {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "%s;\n", strings.TrimSuffix(stmt, ";"))
	}
	return nil
}
