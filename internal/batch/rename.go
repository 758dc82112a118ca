package batch

import (
	"github.com/jo-hoe/layerbatch/internal/invoke"
	"github.com/jo-hoe/layerbatch/internal/itemtree"
	"github.com/jo-hoe/layerbatch/internal/renamer"
	"github.com/jo-hoe/layerbatch/internal/source"
)

// renameStep renames items according to a filename pattern. One step
// instance keeps its numbering fields and the set of already renamed
// folders for the whole run.
type renameStep struct {
	pattern       string
	renameItems   bool
	renameFolders bool

	renamer        *renamer.ItemRenamer
	renamedParents map[*itemtree.Item]struct{}
}

// NewRenameStep returns the command renaming each processed item with the
// given pattern. With renameFolders the parent folders of processed items
// are renamed as well, each folder once per run.
func NewRenameStep(pattern string, renameItems, renameFolders bool) invoke.Command {
	step := &renameStep{
		pattern:        pattern,
		renameItems:    renameItems,
		renameFolders:  renameFolders,
		renamedParents: make(map[*itemtree.Item]struct{}),
	}
	return step.run
}

func (s *renameStep) run(args invoke.Args, kwargs invoke.Kwargs) error {
	batcher, err := BatcherFromArgs(args)
	if err != nil {
		return err
	}
	if s.renamer == nil {
		s.renamer = renamer.New(batcher, s.pattern)
	}

	item := batcher.CurrentItem()
	if s.renameItems {
		item.Name = s.renamer.Rename(item)
	}
	if s.renameFolders {
		for _, parent := range item.Parents() {
			if _, done := s.renamedParents[parent]; done {
				continue
			}
			parent.Name = s.renamer.Rename(parent)
			s.renamedParents[parent] = struct{}{}
		}
	}

	if !batcher.ProcessNames() || batcher.IsPreview() {
		return nil
	}

	// Write the new names back to the source layers. Folder names are only
	// written back in edit mode, since exporting places items in directories
	// named after the renamed folder items instead.
	if s.renameItems {
		if layer, ok := item.Node().(*source.Layer); ok {
			layer.SetName(item.Name)
		}
	}
	if s.renameFolders && batcher.EditMode() {
		for _, parent := range item.Parents() {
			if layer, ok := parent.Node().(*source.Layer); ok {
				layer.SetName(parent.Name)
			}
		}
	}
	return nil
}
