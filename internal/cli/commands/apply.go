package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/schemabridge/internal/cli/ui"
	"github.com/conduit-lang/schemabridge/internal/orm/session"
	"github.com/conduit-lang/schemabridge/internal/orm/source"
)

var (
	applyYes     bool
	applyVerbose bool
)

// confirm asks before tables are created; replaced in tests
var confirm = func(message string) (bool, error) {
	ok := false
	prompt := &survey.Confirm{
		Message: message,
		Default: false,
	}
	if err := survey.AskOne(prompt, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

// categorizeDatabaseError returns a user-friendly error message based on the database error
// In verbose mode, it returns the full error; otherwise, it returns a categorized message
func categorizeDatabaseError(err error, verbose bool) string {
	if verbose {
		return err.Error()
	}

	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "syntax") {
		return "SQL syntax error - use --verbose for details"
	}
	if strings.Contains(errStr, "already exists") {
		return "table already exists - use --verbose for details"
	}
	if strings.Contains(errStr, "does not exist") || strings.Contains(errStr, "no such table") {
		return "referenced table does not exist - use --verbose for details"
	}
	if strings.Contains(errStr, "permission denied") || strings.Contains(errStr, "access denied") {
		return "permission denied - check database user privileges"
	}

	return "create failed - use --verbose for details"
}

// NewApplyCommand creates the apply command
func NewApplyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply [manifest]",
		Short: "Create the declared tables in a database",
		Long: `Declare every model of the manifest and create the tables in the
configured database inside a single transaction.

The database is read from database.dialect and database.dsn in
schemabridge.yml, SCHEMABRIDGE_DATABASE_DSN or DATABASE_URL. The target
dialect defaults to the database's dialect.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runApply,
	}

	cmd.Flags().BoolVarP(&applyYes, "yes", "y", false, "Do not ask for confirmation")
	cmd.Flags().BoolVarP(&applyVerbose, "verbose", "v", false, "Show detailed error messages")

	return cmd
}

func runApply(cmd *cobra.Command, args []string) error {
	p, err := loadProject(args, "")
	if err != nil {
		return err
	}
	defer p.logger.Sync() //nolint:errcheck

	dsn := p.config.DatabaseDSN()
	if p.config.Database.Dialect == "" || dsn == "" {
		return fmt.Errorf("database.dialect and database.dsn are required")
	}

	out := cmd.OutOrStdout()
	progress := ui.NewProgress(out, len(p.models()), color.NoColor)
	err = p.declareAll(cmd.Context(), func(model *source.Model) {
		progress.Step(model.Name)
	})
	progress.Finish()
	if err != nil {
		return err
	}
	p.reportOmissions(cmd)

	tables := p.engine.Metadata().Len()
	if !applyYes {
		ok, err := confirm(fmt.Sprintf("Create %d tables?", tables))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Aborted")
			return nil
		}
	}

	db, err := session.Open(cmd.Context(), session.Config{
		Driver: p.config.Database.Dialect,
		DSN:    dsn,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	executor := session.NewExecutor(db, p.dialect, p.logger)
	if err := executor.CreateAll(cmd.Context(), p.engine.Metadata()); err != nil {
		var execErr *session.DialectExecutionError
		if errors.As(err, &execErr) {
			return fmt.Errorf("%s", categorizeDatabaseError(execErr, applyVerbose))
		}
		return err
	}

	ui.Success(out, color.NoColor, "Created %d tables", tables)
	return nil
}
