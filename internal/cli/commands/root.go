package commands

import (
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

var (
	configPath   string
	manifestPath string
	noColor      bool
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "schemabridge",
		Short: "Translate model metadata into relational table declarations",
		Long: color.CyanString(`schemabridge - model metadata to table declarations

schemabridge reads model definitions from a manifest and declares the
equivalent tables, columns and relationships for a target SQL dialect.

Features:
  • Type mapping for the standard field kinds and custom aliases
  • Foreign keys, one-to-one and many-to-many relationships
  • Configurable handling of unmapped field kinds
  • DDL for PostgreSQL, MySQL, SQLite, Oracle, SQL Server and Firebird
  • Per-module namespaces of declared tables`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to schemabridge.yml (default: nearest in parent directories)")
	rootCmd.PersistentFlags().StringVarP(&manifestPath, "manifest", "m", "", "Path to the model manifest (default: manifest from config)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable coloured output")

	// Add subcommands
	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewDDLCommand())
	rootCmd.AddCommand(NewApplyCommand())
	rootCmd.AddCommand(NewInspectCommand())
	rootCmd.AddCommand(NewNamespacesCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the schemabridge version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			titleColor := color.New(color.FgCyan, color.Bold)
			valueColor := color.New(color.FgWhite)
			out := cmd.OutOrStdout()

			titleColor.Fprint(out, "schemabridge version: ")
			valueColor.Fprintln(out, Version)

			titleColor.Fprint(out, "Git commit: ")
			valueColor.Fprintln(out, GitCommit)

			titleColor.Fprint(out, "Build date: ")
			valueColor.Fprintln(out, BuildDate)

			titleColor.Fprint(out, "Go version: ")
			valueColor.Fprintln(out, goVer)
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
