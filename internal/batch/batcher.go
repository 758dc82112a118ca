// Package batch runs configurable pipelines of procedures and constraints
// over item trees, renaming and exporting the processed items.
package batch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jo-hoe/layerbatch/internal/export"
	"github.com/jo-hoe/layerbatch/internal/invoke"
	"github.com/jo-hoe/layerbatch/internal/itemtree"
	"github.com/jo-hoe/layerbatch/internal/progress"
	"github.com/jo-hoe/layerbatch/internal/source"
)

// Hook groups invoked around item processing. Commands added to these
// groups through the initial invoker run at the corresponding points of a
// run.
const (
	BeforeProcessItemsGroup         = "before_process_items"
	BeforeProcessItemsContentsGroup = "before_process_items_contents"
	AfterProcessItemsGroup          = "after_process_items"
	AfterProcessItemsContentsGroup  = "after_process_items_contents"
	BeforeProcessItemGroup          = "before_process_item"
	BeforeProcessItemContentsGroup  = "before_process_item_contents"
	AfterProcessItemGroup           = "after_process_item"
	AfterProcessItemContentsGroup   = "after_process_item_contents"
	// CleanupContentsGroup runs at the end of a run even when the run
	// failed.
	CleanupContentsGroup = "cleanup_contents"
)

// ParamAlsoApplyToParentFolders is the constraint parameter that makes a
// constraint match an item only if all its parent folders match as well.
const ParamAlsoApplyToParentFolders = "also_apply_to_parent_folders"

// batcherArgPosition is where the batcher is spliced into the arguments
// of every invoked action.
var batcherArgPosition = 0

// Options configure a Batcher.
type Options struct {
	// Tree holds the items to process. Required.
	Tree *itemtree.Tree
	// Canvas provides the dimensions and the name of the source the tree
	// was built from. Optional for trees without pixel contents.
	Canvas *source.Canvas

	Procedures  *ActionList
	Constraints *ActionList

	// ProcedureRegistry resolves procedure names during pipeline
	// assembly. Defaults to DefaultProcedures.
	ProcedureRegistry *ProcedureRegistry
	// ConstraintRegistry resolves constraint names. Defaults to
	// DefaultConstraints.
	ConstraintRegistry *ConstraintRegistry

	// EditMode processes the items in place instead of exporting copies.
	// The default rename and export steps are not added.
	EditMode bool

	OutputDirectory string
	// FileExtension is the default output file extension without a
	// leading period. Defaults to "png".
	FileExtension string
	// FilenamePattern renames exported items, e.g. "image[001]".
	// Defaults to "[name]".
	FilenamePattern string

	// OverwriteMode resolves conflicts with existing files when no
	// chooser is set.
	OverwriteMode export.Mode
	// OverwriteChooser overrides OverwriteMode with an interactive
	// decision per conflicting file.
	OverwriteChooser export.OverwriteChooser

	// ExportMode selects what each exported file contains.
	ExportMode ExportMode

	Progress progress.Updater

	// InitialInvoker carries externally added commands into every run,
	// e.g. commands in the hook groups.
	InitialInvoker *invoke.Invoker

	// IsPreview marks preview runs. Actions disabled for previews are
	// skipped and item names are not written back to the source layers.
	IsPreview bool

	// ProcessContents, ProcessNames and ProcessExport select which parts
	// of the pipeline run. When none of them is set, all three are
	// enabled.
	ProcessContents bool
	ProcessNames    bool
	ProcessExport   bool
}

// ItemMessage pairs an item with the message an action reported for it.
type ItemMessage struct {
	Item    *itemtree.Item
	Message string
}

// Batcher runs the configured procedures and constraints over an item
// tree and exports the results.
//
// A Batcher is not safe for concurrent use; a run must finish before the
// next one starts. Stop may be called from other goroutines.
type Batcher struct {
	tree   *itemtree.Tree
	canvas *source.Canvas

	procedures  *ActionList
	constraints *ActionList

	procedureRegistry  *ProcedureRegistry
	constraintRegistry *ConstraintRegistry

	editMode bool

	outputDirectory string
	fileExtension   string
	filenamePattern string

	overwriteMode    export.Mode
	overwriteChooser export.OverwriteChooser
	exportMode       ExportMode

	progress progress.Updater

	initialInvoker *invoke.Invoker
	invoker        *invoke.Invoker

	isPreview       bool
	processContents bool
	processNames    bool
	processExport   bool

	currentItem         *itemtree.Item
	currentLayer        *source.Layer
	currentCanvasWidth  int
	currentCanvasHeight int
	currentProcedure    *Action
	lastConstraint      *Action

	matchingItems  []*itemtree.Item
	exportedItems  []*itemtree.Item
	exportedFiles  []string
	skippedActions map[string][]ItemMessage
	failedActions  map[string][]ItemMessage

	stopped atomic.Bool
}

// NewBatcher creates a batcher from the given options.
func NewBatcher(options Options) (*Batcher, error) {
	if options.Tree == nil {
		return nil, fmt.Errorf("item tree cannot be nil")
	}

	if options.Procedures == nil {
		options.Procedures = NewActionList()
	}
	if options.Constraints == nil {
		options.Constraints = NewActionList()
	}
	if options.ProcedureRegistry == nil {
		options.ProcedureRegistry = DefaultProcedures
	}
	if options.ConstraintRegistry == nil {
		options.ConstraintRegistry = DefaultConstraints
	}
	if options.FileExtension == "" {
		options.FileExtension = "png"
	}
	if options.FilenamePattern == "" {
		options.FilenamePattern = "[name]"
	}
	if options.OverwriteChooser == nil {
		options.OverwriteChooser = export.NewNoninteractiveChooser(options.OverwriteMode)
	}
	if options.Progress == nil {
		options.Progress = progress.NewLogUpdater()
	}
	if !options.ProcessContents && !options.ProcessNames && !options.ProcessExport {
		options.ProcessContents = true
		options.ProcessNames = true
		options.ProcessExport = true
	}

	return &Batcher{
		tree:               options.Tree,
		canvas:             options.Canvas,
		procedures:         options.Procedures,
		constraints:        options.Constraints,
		procedureRegistry:  options.ProcedureRegistry,
		constraintRegistry: options.ConstraintRegistry,
		editMode:           options.EditMode,
		outputDirectory:    options.OutputDirectory,
		fileExtension:      options.FileExtension,
		filenamePattern:    options.FilenamePattern,
		overwriteMode:      options.OverwriteMode,
		overwriteChooser:   options.OverwriteChooser,
		exportMode:         options.ExportMode,
		progress:           options.Progress,
		initialInvoker:     options.InitialInvoker,
		isPreview:          options.IsPreview,
		processContents:    options.ProcessContents,
		processNames:       options.ProcessNames,
		processExport:      options.ProcessExport,
	}, nil
}

// Run processes all items matching the constraints. It returns an error
// wrapping ErrCancelled when the run was stopped early and an ActionError
// when an action failed.
func (b *Batcher) Run(ctx context.Context) (runErr error) {
	start := time.Now()
	b.stopped.Store(false)

	if err := b.prepare(); err != nil {
		return fmt.Errorf("failed to set up batch pipeline: %w", err)
	}

	slog.Info("starting batch run",
		"num_items", len(b.matchingItems),
		"edit_mode", b.editMode,
		"is_preview", b.isPreview)

	defer func() {
		b.cleanupContents()
		if runErr == nil {
			slog.Info("batch run completed",
				"duration_ms", time.Since(start).Milliseconds(),
				"num_exported", len(b.exportedItems))
		}
	}()

	return b.processItems(ctx)
}

// Stop makes a running batch finish after the current item.
func (b *Batcher) Stop() {
	b.stopped.Store(true)
}

// prepare resets the run state and assembles a fresh pipeline.
func (b *Batcher) prepare() error {
	b.invoker = invoke.New()
	b.tree.ResetFilter()

	for _, item := range b.tree.List(itemtree.ListOptions{
		Unfiltered:      true,
		WithFolders:     true,
		WithEmptyGroups: true,
	}) {
		item.Reset()
	}

	b.currentItem = nil
	b.currentLayer = nil
	b.currentProcedure = nil
	b.lastConstraint = nil
	b.exportedItems = nil
	b.exportedFiles = nil
	b.skippedActions = make(map[string][]ItemMessage)
	b.failedActions = make(map[string][]ItemMessage)

	if err := b.addActions(); err != nil {
		return err
	}
	if err := b.addNameOnlyActions(); err != nil {
		return err
	}
	if err := b.setConstraints(); err != nil {
		return err
	}

	b.matchingItems = b.tree.List(itemtree.ListOptions{})
	return nil
}

// addActions assembles the main pipeline in the order the original
// configuration lists the actions.
func (b *Batcher) addActions() error {
	slog.Debug("assembling batch pipeline",
		"num_procedures", b.procedures.Len(),
		"num_constraints", b.constraints.Len())

	b.invoker.AddForeach(b.syncWorkingState, &invoke.AddOptions{
		Groups: []string{DefaultProceduresGroup},
	})

	if b.initialInvoker != nil {
		b.invoker.AddInvoker(b.initialInvoker, &invoke.AddOptions{
			Groups: b.initialInvoker.ListGroups(true),
		})
	}

	if b.addDefaultRename() {
		action := defaultProcedureAction(RenameProcedureName, "Rename", DefaultProceduresGroup)
		b.invoker.Add(b.wrapAction(action, NewRenameStep(b.filenamePattern, true, false)), &invoke.AddOptions{
			Groups: action.Groups,
		})
	}

	for _, action := range b.procedures.Walk() {
		if !b.isEnabled(action) {
			continue
		}
		command, err := b.procedureRegistry.Create(action.OrigName, action.Params)
		if err != nil {
			return err
		}
		b.invoker.Add(b.wrapAction(action, command), &invoke.AddOptions{
			Groups: action.Groups,
		})
	}

	if b.addDefaultExport() {
		action := defaultProcedureAction(ExportProcedureName, "Export", DefaultProceduresGroup)
		b.invoker.Add(b.wrapAction(action, NewExportStep(b.defaultExportOptions())), &invoke.AddOptions{
			Groups: action.Groups,
		})
	}

	for _, action := range b.constraints.Walk() {
		if !b.isEnabled(action) {
			continue
		}
		predicate, err := b.constraintRegistry.Create(action.OrigName, action.Params)
		if err != nil {
			return err
		}
		b.invoker.Add(b.wrapAction(action, b.constraintCommand(action, predicate)), &invoke.AddOptions{
			Groups: action.Groups,
		})
	}

	return nil
}

// addNameOnlyActions mirrors the name-affecting part of the pipeline into
// the name-only group, used by name previews.
func (b *Batcher) addNameOnlyActions() error {
	if b.addDefaultRename() {
		action := defaultProcedureAction(RenameProcedureName, "Rename", NameOnlyGroup)
		b.invoker.Add(b.wrapAction(action, NewRenameStep(b.filenamePattern, true, false)), &invoke.AddOptions{
			Groups: action.Groups,
		})
	}

	for _, action := range b.procedures.Walk() {
		if !b.isEnabled(action) || !action.HasTag(TagNameOnly) {
			continue
		}
		command, err := b.procedureRegistry.Create(action.OrigName, action.Params)
		if err != nil {
			return err
		}
		b.invoker.Add(b.wrapAction(action, command), &invoke.AddOptions{
			Groups: []string{NameOnlyGroup},
		})
	}

	if b.addDefaultExport() {
		action := defaultProcedureAction(ExportProcedureName, "Export", NameOnlyGroup)
		b.invoker.Add(b.wrapAction(action, NewExportStep(b.defaultExportOptions())), &invoke.AddOptions{
			Groups: action.Groups,
		})
	}

	return nil
}

// defaultProcedureAction describes the implicit rename and export steps
// so their skip and failure bookkeeping matches configured actions.
func defaultProcedureAction(name, displayName string, groups ...string) *Action {
	return &Action{
		Name:               name,
		OrigName:           name,
		DisplayName:        displayName,
		Enabled:            true,
		EnabledForPreviews: true,
		Tags:               []string{TagProcedure, TagNameOnly},
		Groups:             groups,
	}
}

func (b *Batcher) addDefaultRename() bool {
	return !b.editMode && !b.hasEnabledAction(RenameProcedureName)
}

func (b *Batcher) addDefaultExport() bool {
	return !b.editMode && !b.hasEnabledAction(ExportProcedureName)
}

func (b *Batcher) defaultExportOptions() ExportOptions {
	return ExportOptions{
		OutputDirectory: b.outputDirectory,
		FileExtension:   b.fileExtension,
		Mode:            b.exportMode,
	}
}

func (b *Batcher) hasEnabledAction(origName string) bool {
	for _, action := range b.procedures.Walk() {
		if action.OrigName == origName && b.isEnabled(action) {
			return true
		}
	}
	return false
}

func (b *Batcher) isEnabled(action *Action) bool {
	if b.isPreview {
		return action.Enabled && action.EnabledForPreviews
	}
	return action.Enabled
}

// wrapAction surrounds an action command with state tracking, logging and
// the skip and failure bookkeeping.
func (b *Batcher) wrapAction(action *Action, command invoke.Command) invoke.Command {
	return func(args invoke.Args, kwargs invoke.Kwargs) error {
		if action.HasTag(TagProcedure) {
			b.currentProcedure = action
		}

		itemName := ""
		if b.currentItem != nil {
			itemName = b.currentItem.Name
		}
		slog.Debug("executing action", "action", action.Name, "item", itemName)

		err := command(args, kwargs)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrCancelled) {
			return err
		}
		if errors.Is(err, ErrSkipAction) {
			slog.Debug("action skipped", "action", action.Name, "item", itemName, "reason", err)
			b.skippedActions[action.Name] = append(b.skippedActions[action.Name],
				ItemMessage{Item: b.currentItem, Message: err.Error()})
			return nil
		}

		slog.Error("action failed", "action", action.Name, "item", itemName, "error", err)
		b.failedActions[action.Name] = append(b.failedActions[action.Name],
			ItemMessage{Item: b.currentItem, Message: err.Error()})
		return &ActionError{ActionName: action.Name, ItemName: itemName, Err: err}
	}
}

// constraintCommand returns the command that installs a constraint rule
// into the tree filter when the constraint group is invoked.
func (b *Batcher) constraintCommand(action *Action, predicate ConstraintFunc) invoke.Command {
	alsoParents := GetBoolParam(action.Params, ParamAlsoApplyToParentFolders, false)

	return func(args invoke.Args, kwargs invoke.Kwargs) error {
		batcher, err := BatcherFromArgs(args)
		if err != nil {
			return err
		}
		batcher.lastConstraint = action

		batcher.tree.Filter().AddRule(func(item *itemtree.Item, _ ...any) bool {
			if !predicate(batcher, item) {
				return false
			}
			if alsoParents {
				for _, parent := range item.Parents() {
					if !predicate(batcher, parent) {
						return false
					}
				}
			}
			return true
		})
		return nil
	}
}

// setConstraints installs the filter rules of all enabled constraints.
// Constraints are invoked once per run, before any item is processed.
func (b *Batcher) setConstraints() error {
	return b.invoker.Invoke([]string{DefaultConstraintsGroup}, &invoke.InvokeOptions{
		Args:     invoke.Args{b},
		Position: &batcherArgPosition,
	})
}

func (b *Batcher) processItems(ctx context.Context) error {
	b.progress.Reset(len(b.matchingItems))

	if err := b.invokeHooks(BeforeProcessItemsGroup); err != nil {
		return err
	}
	if b.processContents {
		if err := b.invokeHooks(BeforeProcessItemsContentsGroup); err != nil {
			return err
		}
	}

	for i, item := range b.matchingItems {
		if err := ctx.Err(); err != nil {
			slog.Info("batch run cancelled", "reason", err)
			return fmt.Errorf("%w: %v", ErrCancelled, err)
		}
		if b.stopped.Load() {
			slog.Info("batch run cancelled", "reason", "stopped by user")
			return fmt.Errorf("%w: stopped by user", ErrCancelled)
		}

		slog.Debug("processing item", "index", i, "item", item.OrigName())
		if err := b.processItem(item); err != nil {
			return err
		}

		if err := b.progress.Advance(1); err != nil {
			slog.Warn("failed to update progress", "error", err)
		}
	}

	if b.processContents {
		if err := b.invokeHooks(AfterProcessItemsContentsGroup); err != nil {
			return err
		}
	}
	return b.invokeHooks(AfterProcessItemsGroup)
}

func (b *Batcher) processItem(item *itemtree.Item) error {
	b.currentItem = item
	item.Name = item.OrigName()

	if err := b.progress.SetText(fmt.Sprintf("Processing %q", item.Name)); err != nil {
		slog.Warn("failed to update progress", "error", err)
	}

	if b.isPreview && b.processNames {
		if err := b.invokeHooks(BeforeProcessItemGroup, item); err != nil {
			return err
		}
		if err := b.invokeGroup(NameOnlyGroup); err != nil {
			return err
		}
		if err := b.invokeHooks(AfterProcessItemGroup, item); err != nil {
			return err
		}
	}

	if !b.processContents {
		return nil
	}

	working, err := b.newWorkingLayer(item)
	if err != nil {
		return &ActionError{ActionName: "process_item", ItemName: item.Name, Err: err}
	}
	b.currentLayer = working
	b.currentCanvasWidth, b.currentCanvasHeight = b.sourceCanvasSize(working)

	if err := b.invokeHooks(BeforeProcessItemGroup, item); err != nil {
		return err
	}
	if err := b.invokeHooks(BeforeProcessItemContentsGroup, item); err != nil {
		return err
	}

	if err := b.invokeGroup(DefaultProceduresGroup); err != nil {
		return err
	}

	if err := b.invokeHooks(AfterProcessItemContentsGroup, item); err != nil {
		return err
	}
	if err := b.invokeHooks(AfterProcessItemGroup, item); err != nil {
		return err
	}

	b.currentLayer = nil
	return nil
}

// newWorkingLayer prepares the layer the procedures operate on. Outside
// edit mode this is a copy with the layer opacity folded into the pixel
// data; group items are flattened to a single canvas-sized layer.
func (b *Batcher) newWorkingLayer(item *itemtree.Item) (*source.Layer, error) {
	raw, ok := item.Node().(*source.Layer)
	if !ok {
		return nil, fmt.Errorf("item %q has no layer contents", item.Name)
	}
	if b.editMode {
		return raw, nil
	}

	if raw.IsGroup() {
		width, height := b.sourceCanvasSize(raw)
		flattened, err := source.RenderLayer(raw, width, height)
		if err != nil {
			return nil, err
		}
		return source.NewLayer(item.Name, flattened), nil
	}

	img, err := raw.Image()
	if err != nil {
		return nil, err
	}
	flat := image.NewRGBA(image.Rect(0, 0, raw.Width(), raw.Height()))
	source.CompositeOver(flat, img, 0, 0, raw.Opacity())

	working := source.NewLayer(item.Name, flat)
	working.SetOffset(raw.OffsetX(), raw.OffsetY())
	return working, nil
}

// sourceCanvasSize returns the canvas dimensions, falling back to the
// given layer for trees built without a canvas.
func (b *Batcher) sourceCanvasSize(layer *source.Layer) (int, int) {
	if b.canvas != nil {
		return b.canvas.Width, b.canvas.Height
	}
	if layer != nil {
		return layer.OffsetX() + layer.Width(), layer.OffsetY() + layer.Height()
	}
	return 0, 0
}

// cleanupContents runs the cleanup hooks. It is called even when the run
// failed.
func (b *Batcher) cleanupContents() {
	if !b.processContents {
		return
	}
	if err := b.invokeHooks(CleanupContentsGroup); err != nil {
		slog.Error("cleanup failed", "error", err)
	}
}

func (b *Batcher) invokeGroup(group string) error {
	return b.invoker.Invoke([]string{group}, &invoke.InvokeOptions{
		Args:     invoke.Args{b},
		Position: &batcherArgPosition,
	})
}

func (b *Batcher) invokeHooks(group string, args ...any) error {
	return b.invoker.Invoke([]string{group}, &invoke.InvokeOptions{
		Args:     append(invoke.Args{b}, args...),
		Position: &batcherArgPosition,
	})
}

// syncWorkingState propagates the working item name to the working layer
// after every action in the procedures group.
func (b *Batcher) syncWorkingState(args invoke.Args, kwargs invoke.Kwargs) (invoke.Release, error) {
	return func() error {
		if b.currentLayer != nil && b.currentItem != nil {
			b.currentLayer.SetName(b.currentItem.Name)
		}
		return nil
	}, nil
}

// BatcherFromArgs extracts the batcher the invoker splices into every
// action invocation.
func BatcherFromArgs(args invoke.Args) (*Batcher, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("expected the batcher as the first argument")
	}
	batcher, ok := args[0].(*Batcher)
	if !ok {
		return nil, fmt.Errorf("expected the batcher as the first argument, got %T", args[0])
	}
	return batcher, nil
}

// Tree returns the item tree being processed.
func (b *Batcher) Tree() *itemtree.Tree {
	return b.tree
}

// Canvas returns the source canvas, or nil for trees without one.
func (b *Batcher) Canvas() *source.Canvas {
	return b.canvas
}

// Procedures returns the configured procedure list.
func (b *Batcher) Procedures() *ActionList {
	return b.procedures
}

// Constraints returns the configured constraint list.
func (b *Batcher) Constraints() *ActionList {
	return b.constraints
}

// Invoker returns the invoker of the current pipeline. It is replaced on
// every run.
func (b *Batcher) Invoker() *invoke.Invoker {
	return b.invoker
}

// EditMode reports whether items are processed in place.
func (b *Batcher) EditMode() bool {
	return b.editMode
}

// OutputDirectory returns the directory exported files are written to.
func (b *Batcher) OutputDirectory() string {
	return b.outputDirectory
}

// FilenamePattern returns the pattern used by the default rename step.
func (b *Batcher) FilenamePattern() string {
	return b.filenamePattern
}

// FileExtension returns the default output file extension.
func (b *Batcher) FileExtension() string {
	return b.fileExtension
}

// OverwriteChooser returns the chooser deciding conflicts with existing
// files.
func (b *Batcher) OverwriteChooser() export.OverwriteChooser {
	return b.overwriteChooser
}

// OverwriteMode returns the configured overwrite mode.
func (b *Batcher) OverwriteMode() export.Mode {
	return b.overwriteMode
}

// IsPreview reports whether this is a preview run.
func (b *Batcher) IsPreview() bool {
	return b.isPreview
}

// ProcessContents reports whether pixel contents are processed.
func (b *Batcher) ProcessContents() bool {
	return b.processContents
}

// ProcessNames reports whether item names are processed.
func (b *Batcher) ProcessNames() bool {
	return b.processNames
}

// ProcessExport reports whether files are written.
func (b *Batcher) ProcessExport() bool {
	return b.processExport
}

// CurrentItem returns the item currently being processed.
func (b *Batcher) CurrentItem() *itemtree.Item {
	return b.currentItem
}

// CurrentLayer returns the working layer of the current item, or nil
// outside contents processing.
func (b *Batcher) CurrentLayer() *source.Layer {
	return b.currentLayer
}

// CurrentProcedure returns the procedure currently being executed.
func (b *Batcher) CurrentProcedure() *Action {
	return b.currentProcedure
}

// LastConstraint returns the most recently installed constraint.
func (b *Batcher) LastConstraint() *Action {
	return b.lastConstraint
}

// CurrentCanvasSize returns the working canvas dimensions of the current
// item. Procedures such as use_layer_size may change them.
func (b *Batcher) CurrentCanvasSize() (int, int) {
	return b.currentCanvasWidth, b.currentCanvasHeight
}

// SetCurrentCanvasSize resizes the working canvas of the current item.
func (b *Batcher) SetCurrentCanvasSize(width, height int) {
	b.currentCanvasWidth = width
	b.currentCanvasHeight = height
}

// MatchingItems returns the items matching the constraints of the current
// run.
func (b *Batcher) MatchingItems() []*itemtree.Item {
	return b.matchingItems
}

// CanvasName returns the name of the source canvas or file.
func (b *Batcher) CanvasName() string {
	if b.canvas == nil {
		return ""
	}
	return b.canvas.Name
}

// CanvasWidth returns the width of the source canvas.
func (b *Batcher) CanvasWidth() int {
	if b.canvas == nil {
		return 0
	}
	return b.canvas.Width
}

// CanvasHeight returns the height of the source canvas.
func (b *Batcher) CanvasHeight() int {
	if b.canvas == nil {
		return 0
	}
	return b.canvas.Height
}

// ExportedItems returns the items exported so far, in export order.
func (b *Batcher) ExportedItems() []*itemtree.Item {
	return b.exportedItems
}

// ExportedFiles returns the paths of the files written so far, in export
// order. The paths include any renaming applied to resolve overwrite
// conflicts.
func (b *Batcher) ExportedFiles() []string {
	return b.exportedFiles
}

// SkippedActions returns the items skipped per action name. The result
// is valid until the next run.
func (b *Batcher) SkippedActions() map[string][]ItemMessage {
	return b.skippedActions
}

// FailedActions returns the items that failed per action name. The
// result is valid until the next run.
func (b *Batcher) FailedActions() map[string][]ItemMessage {
	return b.failedActions
}

func (b *Batcher) addExportedItem(item *itemtree.Item) {
	b.exportedItems = append(b.exportedItems, item)
}

func (b *Batcher) addExportedFile(path string) {
	b.exportedFiles = append(b.exportedFiles, path)
}
