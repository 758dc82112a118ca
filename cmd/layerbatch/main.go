package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jo-hoe/layerbatch/internal/batch"
	"github.com/jo-hoe/layerbatch/internal/core"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "layerbatch",
		Short:         "Batch process the layers of image files with configurable procedures",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the config file (default ./config.yaml)")

	cmd.AddCommand(newRunCmd(&configPath))
	cmd.AddCommand(newCommandsCmd())

	return cmd
}

// loadConfig reads the given config file. Without an explicit path it
// falls back to ./config.yaml and runs with defaults when that does not
// exist either.
func loadConfig(path string) (*core.ServiceConfig, error) {
	if path != "" {
		return core.LoadConfig(path)
	}

	defaultPath := filepath.Join(".", "config.yaml")
	if _, err := os.Stat(defaultPath); os.IsNotExist(err) {
		return &core.ServiceConfig{}, nil
	}
	return core.LoadConfig(defaultPath)
}

func newRunCmd(configPath *string) *cobra.Command {
	var dryRun bool
	var outputDir string
	var fileExtension string
	var filenamePattern string

	runCmd := &cobra.Command{
		Use:   "run <source>",
		Short: "Process a file or directory with the configured pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if outputDir != "" {
				config.Output.Directory = outputDir
			}
			if fileExtension != "" {
				config.Output.FileExtension = fileExtension
			}
			if filenamePattern != "" {
				config.Output.FilenamePattern = filenamePattern
			}

			options, err := core.BatchOptions(config, args[0])
			if err != nil {
				return err
			}
			if dryRun {
				// Compute the final names without touching any pixels or
				// files.
				options.IsPreview = true
				options.ProcessNames = true
			}

			batcher, err := batch.NewBatcher(options)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := batcher.Run(ctx); err != nil {
				return err
			}

			if dryRun {
				printPreview(cmd, batcher)
			} else {
				printSummary(cmd, batcher)
			}
			return nil
		},
	}
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "list the final file names without writing any files")
	runCmd.Flags().StringVar(&outputDir, "output-dir", "", "override the configured output directory")
	runCmd.Flags().StringVar(&fileExtension, "file-extension", "", "override the configured output file extension")
	runCmd.Flags().StringVar(&filenamePattern, "filename-pattern", "", "override the configured filename pattern")

	return runCmd
}

func printPreview(cmd *cobra.Command, batcher *batch.Batcher) {
	out := cmd.OutOrStdout()
	outputDir := batcher.OutputDirectory()
	if outputDir == "" {
		outputDir = "."
	}

	items := batcher.MatchingItems()
	fmt.Fprintf(out, "%d items would be exported to %s:\n", len(items), outputDir)
	for _, item := range items {
		components := make([]string, 0, len(item.Parents())+1)
		for _, parent := range item.Parents() {
			components = append(components, parent.Name)
		}
		components = append(components, item.Name)
		fmt.Fprintf(out, "  %s\n", filepath.Join(components...))
	}
}

func printSummary(cmd *cobra.Command, batcher *batch.Batcher) {
	out := cmd.OutOrStdout()

	files := batcher.ExportedFiles()
	fmt.Fprintf(out, "Exported %d of %d items\n", len(files), len(batcher.MatchingItems()))
	for _, path := range files {
		fmt.Fprintf(out, "  %s\n", path)
	}

	skipped := 0
	for _, messages := range batcher.SkippedActions() {
		skipped += len(messages)
	}
	if skipped > 0 {
		fmt.Fprintf(out, "Skipped %d items\n", skipped)
	}
}

func newCommandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "List the registered procedures and constraints",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, "Procedures:")
			for _, name := range batch.DefaultProcedures.RegisteredNames() {
				spec, _ := batch.DefaultProcedures.Spec(name)
				display := spec.DisplayName
				if spec.NameOnly {
					display += " (name only)"
				}
				fmt.Fprintf(out, "  %-32s %s\n", name, display)
			}

			fmt.Fprintln(out, "Constraints:")
			for _, name := range batch.DefaultConstraints.RegisteredNames() {
				spec, _ := batch.DefaultConstraints.Spec(name)
				fmt.Fprintf(out, "  %-32s %s\n", name, spec.DisplayName)
			}
			return nil
		},
	}
}
