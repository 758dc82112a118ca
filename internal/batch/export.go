package batch

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jo-hoe/layerbatch/internal/export"
	"github.com/jo-hoe/layerbatch/internal/invoke"
	"github.com/jo-hoe/layerbatch/internal/itemtree"
	"github.com/jo-hoe/layerbatch/internal/pathutil"
	"github.com/jo-hoe/layerbatch/internal/renamer"
	"github.com/jo-hoe/layerbatch/internal/source"
)

// ExportMode selects what each exported file contains.
type ExportMode int

const (
	// ExportEachLayer writes one file per processed item.
	ExportEachLayer ExportMode = iota
	// ExportEachTopLevelLayerOrGroup merges the items of each top-level
	// layer or group into one file.
	ExportEachTopLevelLayerOrGroup
	// ExportEntireImageAtOnce merges all processed items into a single
	// file.
	ExportEntireImageAtOnce
)

func (m ExportMode) String() string {
	switch m {
	case ExportEachLayer:
		return "each_layer"
	case ExportEachTopLevelLayerOrGroup:
		return "each_top_level_layer_or_group"
	case ExportEntireImageAtOnce:
		return "entire_image_at_once"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// ParseExportMode returns the export mode with the given name.
func ParseExportMode(name string) (ExportMode, error) {
	switch name {
	case "each_layer":
		return ExportEachLayer, nil
	case "each_top_level_layer_or_group":
		return ExportEachTopLevelLayerOrGroup, nil
	case "entire_image_at_once":
		return ExportEntireImageAtOnce, nil
	default:
		return ExportEachLayer, fmt.Errorf("unknown export mode: %s", name)
	}
}

// ExportOptions configure an export step. Empty OutputDirectory and
// FileExtension inherit the batcher settings when the step first runs.
type ExportOptions struct {
	OutputDirectory string
	FileExtension   string
	Mode            ExportMode

	// SingleImageFilenamePattern names the file written by
	// ExportEntireImageAtOnce. Defaults to "[image name]".
	SingleImageFilenamePattern string

	// UseFileExtensionInItemName exports an item under the extension its
	// name already carries, if that extension is known to work.
	UseFileExtensionInItemName bool

	ConvertFileExtensionToLowercase bool

	// PreserveLayerName restores the item name after the file was
	// written, so the export does not leak into later renames.
	PreserveLayerName bool
}

type exportStatus int

const (
	statusNotExported exportStatus = iota
	statusExported
	statusUseDefaultExtension
)

// exportStep writes processed items to files. One step instance keeps its
// uniquification state, extension bookkeeping and accumulated layers for
// the whole run.
type exportStep struct {
	options ExportOptions

	resolved         bool
	outputDirectory  string
	defaultExtension string

	properties       *export.FileExtensionProperties
	uniquifier       *renamer.ItemUniquifier
	processedParents map[*itemtree.Item]struct{}

	accumulated        []*source.Layer
	singleImageRenamer *renamer.ItemRenamer
}

// canvasNode stands in for the whole canvas when it is exported as a
// single item.
type canvasNode struct {
	name string
}

func (n canvasNode) Name() string              { return n.name }
func (n canvasNode) IsGroup() bool             { return false }
func (n canvasNode) Children() []itemtree.Node { return nil }

// NewExportStep returns the command exporting each processed item
// according to the given options.
func NewExportStep(options ExportOptions) invoke.Command {
	if options.SingleImageFilenamePattern == "" {
		options.SingleImageFilenamePattern = "[image name]"
	}
	step := &exportStep{
		options:          options,
		properties:       export.NewFileExtensionProperties(),
		uniquifier:       renamer.NewItemUniquifier(),
		processedParents: make(map[*itemtree.Item]struct{}),
	}
	return step.run
}

func (s *exportStep) run(args invoke.Args, kwargs invoke.Kwargs) error {
	batcher, err := BatcherFromArgs(args)
	if err != nil {
		return err
	}
	s.resolve(batcher)

	item := batcher.CurrentItem()
	itemToProcess := item
	currentExtension := s.defaultExtension

	switch s.options.Mode {
	case ExportEntireImageAtOnce:
		if batcher.ProcessExport() {
			if err := s.accumulate(batcher); err != nil {
				return err
			}
		}
		if batcher.Tree().Next(item, itemtree.ListOptions{}) != nil {
			return nil
		}
		itemToProcess = s.newSingleImageItem(batcher)
	case ExportEachTopLevelLayerOrGroup:
		if batcher.ProcessExport() {
			if err := s.accumulate(batcher); err != nil {
				return err
			}
		}
		if next := batcher.Tree().Next(item, itemtree.ListOptions{}); next != nil {
			if topLevelItem(next) == topLevelItem(item) {
				return nil
			}
		}
		itemToProcess = topLevelItem(item)
	}

	if s.options.PreserveLayerName {
		itemToProcess.PushState()
	}

	if batcher.ProcessNames() {
		if s.options.UseFileExtensionInItemName {
			currentExtension = s.currentFileExtension(itemToProcess)
		}
		if s.options.ConvertFileExtensionToLowercase {
			currentExtension = strings.ToLower(currentExtension)
		}
		s.processParentNames(itemToProcess)
		s.processItemName(itemToProcess, currentExtension, false)
	}

	if batcher.ProcessExport() {
		overwriteMode, status, err := s.exportItem(batcher, itemToProcess)
		if err != nil {
			return err
		}
		if status == statusUseDefaultExtension {
			// The extension was marked unusable. Fall back to the default
			// extension and export once more.
			if batcher.ProcessNames() {
				s.processItemName(itemToProcess, currentExtension, true)
			}
			overwriteMode, _, err = s.exportItem(batcher, itemToProcess)
			if err != nil {
				return err
			}
		}

		if overwriteMode != export.ModeSkip {
			s.properties.Get(pathutil.FileExtension(itemToProcess.Name)).ProcessedCount++
			batcher.addExportedItem(itemToProcess)
		}
	}

	if s.options.PreserveLayerName {
		itemToProcess.PopState()
	}

	s.syncSourceName(batcher, itemToProcess)

	if s.options.Mode != ExportEachLayer {
		s.accumulated = nil
	}
	return nil
}

// resolve fills in settings only known once the batcher is available.
func (s *exportStep) resolve(batcher *Batcher) {
	if s.resolved {
		return
	}
	s.resolved = true

	s.outputDirectory = s.options.OutputDirectory
	if s.outputDirectory == "" {
		s.outputDirectory = batcher.OutputDirectory()
	}
	s.defaultExtension = s.options.FileExtension
	if s.defaultExtension == "" {
		s.defaultExtension = batcher.FileExtension()
	}
	if s.options.Mode == ExportEntireImageAtOnce {
		s.singleImageRenamer = renamer.New(batcher, s.options.SingleImageFilenamePattern)
	}
}

// accumulate collects the working layer of the current item for the
// merged export modes.
func (s *exportStep) accumulate(batcher *Batcher) error {
	layer := batcher.CurrentLayer()
	if layer == nil {
		raw, ok := batcher.CurrentItem().Node().(*source.Layer)
		if !ok {
			return fmt.Errorf("item %q has no layer contents", batcher.CurrentItem().Name)
		}
		layer = raw
	}
	s.accumulated = append(s.accumulated, layer)
	return nil
}

// newSingleImageItem creates the standalone item exported by
// ExportEntireImageAtOnce.
func (s *exportStep) newSingleImageItem(batcher *Batcher) *itemtree.Item {
	name := batcher.CanvasName()
	if name == "" {
		name = "Untitled"
	}
	item := itemtree.NewItem(canvasNode{name: name}, itemtree.TypeItem)
	if s.singleImageRenamer != nil {
		item.Name = s.singleImageRenamer.Rename(item)
	} else {
		item.Name = batcher.CurrentItem().Name
	}
	return item
}

func topLevelItem(item *itemtree.Item) *itemtree.Item {
	if item != nil && len(item.Parents()) > 0 {
		return item.Parents()[0]
	}
	return item
}

// currentFileExtension returns the extension in the item name if it is
// usable, the default extension otherwise.
func (s *exportStep) currentFileExtension(item *itemtree.Item) string {
	extension := pathutil.FileExtension(item.Name)
	if extension != "" && s.properties.Get(extension).Valid {
		return extension
	}
	return s.defaultExtension
}

// processParentNames sanitizes and uniquifies the parent folder names,
// each folder once per run.
func (s *exportStep) processParentNames(item *itemtree.Item) {
	for _, parent := range item.Parents() {
		if _, done := s.processedParents[parent]; done {
			continue
		}
		parent.Name = pathutil.SanitizeFilename(parent.Name)
		s.uniquifier.Uniquify(parent, nil)
		s.processedParents[parent] = struct{}{}
	}
}

// processItemName appends or replaces the file extension, sanitizes the
// name and makes it unique among its siblings. The uniquifying suffix is
// inserted before the extension.
func (s *exportStep) processItemName(item *itemtree.Item, currentExtension string, forceDefaultExtension bool) {
	if forceDefaultExtension {
		item.Name = pathutil.ReplaceExtension(item.Name, s.defaultExtension, true)
	} else if currentExtension == s.defaultExtension {
		item.Name += "." + s.defaultExtension
	} else {
		item.Name = pathutil.ReplaceExtension(item.Name, currentExtension, true)
	}

	item.Name = pathutil.SanitizeFilename(item.Name)

	position := uniquePosition(item.Name, pathutil.FileExtension(item.Name))
	s.uniquifier.Uniquify(item, &position)
}

// uniquePosition returns where a uniquifying suffix is inserted so the
// file extension stays at the end.
func uniquePosition(name, fileExtension string) int {
	return len(name) - len("."+fileExtension)
}

// exportItem resolves the output path, handles conflicts with existing
// files and writes the rendered image.
func (s *exportStep) exportItem(batcher *Batcher, item *itemtree.Item) (export.Mode, exportStatus, error) {
	outputPath := s.itemFilepath(item)
	fileExtension := pathutil.FileExtension(item.Name)
	position := uniquePosition(outputPath, fileExtension)

	overwriteMode, outputPath, err := export.HandleOverwrite(outputPath, batcher.OverwriteChooser(), &position)
	if err != nil {
		return overwriteMode, statusNotExported, &ExportError{
			Message: err.Error(), ItemName: item.Name, FileExtension: s.defaultExtension, Err: err}
	}

	if err := batcher.progress.SetText(fmt.Sprintf("Saving %q", outputPath)); err != nil {
		slog.Warn("failed to update progress", "error", err)
	}

	if overwriteMode == export.ModeCancel {
		return overwriteMode, statusNotExported, ErrCancelled
	}
	if overwriteMode == export.ModeSkip {
		slog.Debug("skipping existing file", "path", outputPath)
		return overwriteMode, statusNotExported, nil
	}

	dirpath := filepath.Dir(outputPath)
	if err := os.MkdirAll(dirpath, 0o755); err != nil {
		return overwriteMode, statusNotExported, &InvalidOutputDirectoryError{
			Dirpath: dirpath, ItemName: item.Name, Err: err}
	}

	img, err := s.renderImage(batcher)
	if err != nil {
		return overwriteMode, statusNotExported, &ExportError{
			Message: err.Error(), ItemName: item.Name, FileExtension: s.defaultExtension, Err: err}
	}

	if err := export.WriteFile(outputPath, img, fileExtension); err != nil {
		if fileExtension != s.defaultExtension {
			slog.Warn("file extension is not usable, falling back to the default",
				"file_extension", fileExtension,
				"default_file_extension", s.defaultExtension,
				"error", err)
			s.properties.Get(fileExtension).Valid = false
			return overwriteMode, statusUseDefaultExtension, nil
		}
		return overwriteMode, statusNotExported, &ExportError{
			Message: err.Error(), ItemName: item.Name, FileExtension: s.defaultExtension, Err: err}
	}
	batcher.addExportedFile(outputPath)

	slog.Debug("exported item", "item", item.Name, "path", outputPath)
	return overwriteMode, statusExported, nil
}

// itemFilepath returns <output directory>/<parent names>/<item name>,
// with the output directory made absolute.
func (s *exportStep) itemFilepath(item *itemtree.Item) string {
	dirpath, err := filepath.Abs(s.outputDirectory)
	if err != nil {
		dirpath = s.outputDirectory
	}

	components := make([]string, 0, len(item.Parents())+1)
	components = append(components, dirpath)
	for _, parent := range item.Parents() {
		components = append(components, parent.Name)
	}
	components = append(components, item.Name)
	return filepath.Join(components...)
}

// renderImage composes the image written to the output file.
func (s *exportStep) renderImage(batcher *Batcher) (image.Image, error) {
	if s.options.Mode == ExportEachLayer {
		layer := batcher.CurrentLayer()
		if layer == nil {
			raw, ok := batcher.CurrentItem().Node().(*source.Layer)
			if !ok {
				return nil, fmt.Errorf("item %q has no layer contents", batcher.CurrentItem().Name)
			}
			layer = raw
		}
		img, err := layer.Image()
		if err != nil {
			return nil, err
		}

		width, height := batcher.CurrentCanvasSize()
		if width <= 0 || height <= 0 {
			width = layer.OffsetX() + layer.Width()
			height = layer.OffsetY() + layer.Height()
		}
		dst := image.NewRGBA(image.Rect(0, 0, width, height))
		source.CompositeOver(dst, img, layer.OffsetX(), layer.OffsetY(), layer.Opacity())
		return dst, nil
	}

	// Merged modes size the output to fit all accumulated layers.
	var bounds image.Rectangle
	for _, layer := range s.accumulated {
		bounds = bounds.Union(image.Rect(
			layer.OffsetX(),
			layer.OffsetY(),
			layer.OffsetX()+layer.Width(),
			layer.OffsetY()+layer.Height()))
	}
	if bounds.Empty() {
		width, height := batcher.CurrentCanvasSize()
		bounds = image.Rect(0, 0, width, height)
	}

	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for i := len(s.accumulated) - 1; i >= 0; i-- {
		layer := s.accumulated[i]
		img, err := layer.Image()
		if err != nil {
			return nil, err
		}
		source.CompositeOver(dst, img,
			layer.OffsetX()-bounds.Min.X, layer.OffsetY()-bounds.Min.Y, layer.Opacity())
	}
	return dst, nil
}

// syncSourceName writes the processed name back to the source layer.
func (s *exportStep) syncSourceName(batcher *Batcher, itemToProcess *itemtree.Item) {
	if batcher.CurrentItem() != itemToProcess || !batcher.ProcessNames() || batcher.IsPreview() {
		return
	}
	if layer, ok := batcher.CurrentItem().Node().(*source.Layer); ok {
		layer.SetName(batcher.CurrentItem().Name)
	}
}
