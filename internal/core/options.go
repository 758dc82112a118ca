package core

import (
	"fmt"

	"github.com/jo-hoe/layerbatch/internal/batch"
	"github.com/jo-hoe/layerbatch/internal/export"
	"github.com/jo-hoe/layerbatch/internal/itemtree"
	"github.com/jo-hoe/layerbatch/internal/source"

	// Register the built-in procedures and constraints in the default
	// registries.
	_ "github.com/jo-hoe/layerbatch/internal/builtin"
)

// BatchOptions assembles the options for running the configured actions
// against the source at sourcePath.
func BatchOptions(config *ServiceConfig, sourcePath string) (batch.Options, error) {
	canvas, err := source.Load(sourcePath, source.LoadOptions{})
	if err != nil {
		return batch.Options{}, err
	}

	tree := itemtree.NewTree()
	if err := tree.Add(canvas.Nodes(), nil, nil); err != nil {
		return batch.Options{}, fmt.Errorf("failed to build item tree: %w", err)
	}

	procedures, err := procedureList(config.Procedures)
	if err != nil {
		return batch.Options{}, err
	}
	constraints, err := constraintList(config.Constraints)
	if err != nil {
		return batch.Options{}, err
	}

	options := batch.Options{
		Tree:            tree,
		Canvas:          canvas,
		Procedures:      procedures,
		Constraints:     constraints,
		OutputDirectory: config.Output.Directory,
		FileExtension:   config.Output.FileExtension,
		FilenamePattern: config.Output.FilenamePattern,
	}

	if config.Output.OverwriteMode != "" {
		mode, err := export.ParseOverwriteMode(config.Output.OverwriteMode)
		if err != nil {
			return batch.Options{}, err
		}
		options.OverwriteMode = mode
	}
	if config.Output.ExportMode != "" {
		mode, err := batch.ParseExportMode(config.Output.ExportMode)
		if err != nil {
			return batch.Options{}, err
		}
		options.ExportMode = mode
	}

	return options, nil
}

func procedureList(configs []ActionConfig) (*batch.ActionList, error) {
	list := batch.NewActionList()
	for _, config := range configs {
		action, err := batch.NewProcedure(batch.DefaultProcedures, config.Name, config.Params)
		if err != nil {
			return nil, err
		}
		action.Enabled = config.IsEnabled()
		list.Add(action)
	}
	return list, nil
}

func constraintList(configs []ActionConfig) (*batch.ActionList, error) {
	list := batch.NewActionList()
	for _, config := range configs {
		action, err := batch.NewConstraint(batch.DefaultConstraints, config.Name, config.Params)
		if err != nil {
			return nil, err
		}
		action.Enabled = config.IsEnabled()
		list.Add(action)
	}
	return list, nil
}
