package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/schemabridge/internal/cli/ui"
	"github.com/conduit-lang/schemabridge/internal/orm/transfer"
)

// NewNamespacesCommand creates the namespaces command
func NewNamespacesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "namespaces [manifest]",
		Short: "Autoload a namespace of declared tables per manifest module",
		Long: `Treat every manifest module as a host application and publish a
"<module>.<autoload.module_name>" namespace holding its declared tables.

Modules that fail to declare are reported and do not stop the others.
autoload.options in schemabridge.yml control the dialect, back reference
style and member naming.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runNamespaces,
	}
}

func runNamespaces(cmd *cobra.Command, args []string) error {
	p, err := loadProject(args, "")
	if err != nil {
		return err
	}
	defer p.logger.Sync() //nolint:errcheck

	autoload, err := p.config.TransferOptions()
	if err != nil {
		return err
	}

	apps := transfer.NewAppRegistry()
	for _, module := range p.modules {
		if err := apps.Register(transfer.App{Name: module.Name, Models: module}); err != nil {
			return err
		}
	}

	// Start honours autoload.startup_delay and the command's context
	report := <-transfer.NewAutoloader(apps, p.engine, autoload, p.logger).Start(cmd.Context())
	if err := cmd.Context().Err(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, path := range apps.Namespaces() {
		ns, _ := apps.Namespace(path)
		table := ui.NewTable(out, color.NoColor, "NAME", "TABLE", "MODEL")
		for _, name := range ns.Names() {
			t, _ := ns.Get(name)
			table.AddRow(name, t.Name, t.SourceID)
		}

		section := ui.NewSection(out, path, color.NoColor)
		section.AddLine("%d tables", ns.Len())
		section.Render()
		table.Render()
		fmt.Fprintln(out)
	}

	if len(report.Failed) == 0 {
		ui.Success(out, color.NoColor, "Published %d namespaces", len(report.Loaded))
		return nil
	}

	failed := make([]string, 0, len(report.Failed))
	for app := range report.Failed {
		failed = append(failed, app)
	}
	sort.Strings(failed)
	for _, app := range failed {
		ui.Message{
			Level:   ui.LevelWarning,
			Context: app,
			Problem: report.Failed[app].Error(),
			NoColor: color.NoColor,
		}.Write(cmd.ErrOrStderr())
	}
	return fmt.Errorf("%d of %d modules failed: %s", len(failed), len(p.modules), strings.Join(failed, ", "))
}
