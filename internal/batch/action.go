package batch

import (
	"fmt"
	"slices"
)

// Tags attached to actions.
const (
	TagProcedure  = "procedure"
	TagConstraint = "constraint"
	// TagNameOnly marks actions that only affect item names.
	TagNameOnly = "name"
)

// Invoker groups the batcher assembles its pipeline in.
const (
	DefaultProceduresGroup  = "default_procedures"
	DefaultConstraintsGroup = "default_constraints"
	// NameOnlyGroup holds the subset of the pipeline that only affects
	// item names, invoked during name previews.
	NameOnlyGroup = "name"
)

// Names of the built-in procedures the batcher adds by default when the
// user configured no enabled procedure of the same kind.
const (
	RenameProcedureName = "rename"
	ExportProcedureName = "export"
)

// Action is one configured step of a batch pipeline, either a procedure
// or a constraint.
type Action struct {
	// Name is unique within an ActionList, e.g. "scale_2" for a second
	// scale procedure.
	Name string
	// OrigName is the registry name the action was created from.
	OrigName string
	// DisplayName is the human readable name, uniquified like Name but
	// with a " (2)" suffix.
	DisplayName string

	Enabled bool
	// EnabledForPreviews controls whether the action also runs during
	// preview passes.
	EnabledForPreviews bool

	// Params holds the configured parameters passed to the registry
	// factory.
	Params map[string]any

	Tags   []string
	Groups []string
}

// HasTag reports whether the action carries the given tag.
func (a *Action) HasTag(tag string) bool {
	return slices.Contains(a.Tags, tag)
}

// NewProcedure creates an enabled action for a registered procedure. The
// registry provides the display name and tags.
func NewProcedure(registry *ProcedureRegistry, name string, params map[string]any) (*Action, error) {
	spec, exists := registry.Spec(name)
	if !exists {
		return nil, fmt.Errorf("unknown procedure: %s", name)
	}

	tags := []string{TagProcedure}
	if spec.NameOnly {
		tags = append(tags, TagNameOnly)
	}
	return &Action{
		Name:               name,
		OrigName:           name,
		DisplayName:        spec.DisplayName,
		Enabled:            true,
		EnabledForPreviews: true,
		Params:             params,
		Tags:               tags,
		Groups:             []string{DefaultProceduresGroup},
	}, nil
}

// NewConstraint creates an enabled action for a registered constraint.
func NewConstraint(registry *ConstraintRegistry, name string, params map[string]any) (*Action, error) {
	spec, exists := registry.Spec(name)
	if !exists {
		return nil, fmt.Errorf("unknown constraint: %s", name)
	}

	return &Action{
		Name:               name,
		OrigName:           name,
		DisplayName:        spec.DisplayName,
		Enabled:            true,
		EnabledForPreviews: true,
		Params:             params,
		Tags:               []string{TagConstraint},
		Groups:             []string{DefaultConstraintsGroup},
	}, nil
}

// ActionList is an ordered collection of actions with unique names.
type ActionList struct {
	actions []*Action
}

// NewActionList creates a list containing the given actions.
func NewActionList(actions ...*Action) *ActionList {
	list := &ActionList{}
	for _, action := range actions {
		list.Add(action)
	}
	return list
}

// Add appends an action to the list. If its name or display name is
// already taken, the action is renamed: "scale" becomes "scale_2" and
// "Scale" becomes "Scale (2)". The possibly renamed action is returned.
func (l *ActionList) Add(action *Action) *Action {
	if action.OrigName == "" {
		action.OrigName = action.Name
	}
	action.Name = l.uniquifyName(action.Name)
	if action.DisplayName != "" {
		action.DisplayName = l.uniquifyDisplayName(action.DisplayName)
	}
	l.actions = append(l.actions, action)
	return action
}

// Walk returns the actions in order.
func (l *ActionList) Walk() []*Action {
	return slices.Clone(l.actions)
}

// Get returns the action with the given unique name.
func (l *ActionList) Get(name string) (*Action, bool) {
	index := l.Index(name)
	if index < 0 {
		return nil, false
	}
	return l.actions[index], true
}

// Index returns the position of the named action, or -1 if there is no
// such action.
func (l *ActionList) Index(name string) int {
	for i, action := range l.actions {
		if action.Name == name {
			return i
		}
	}
	return -1
}

// Len returns the number of actions in the list.
func (l *ActionList) Len() int {
	return len(l.actions)
}

// Reorder moves the named action to the given position. Negative
// positions count from the end, -1 being the last position.
func (l *ActionList) Reorder(name string, position int) error {
	index := l.Index(name)
	if index < 0 {
		return fmt.Errorf("action %s not found", name)
	}

	action := l.actions[index]
	l.actions = slices.Delete(l.actions, index, index+1)

	if position < 0 {
		position = len(l.actions) + position + 1
		if position < 0 {
			position = 0
		}
	}
	if position > len(l.actions) {
		position = len(l.actions)
	}
	l.actions = slices.Insert(l.actions, position, action)
	return nil
}

// Remove deletes the named action from the list.
func (l *ActionList) Remove(name string) error {
	index := l.Index(name)
	if index < 0 {
		return fmt.Errorf("action %s not found", name)
	}
	l.actions = slices.Delete(l.actions, index, index+1)
	return nil
}

// Clear removes all actions.
func (l *ActionList) Clear() {
	l.actions = nil
}

func (l *ActionList) uniquifyName(name string) string {
	if l.Index(name) < 0 {
		return name
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", name, i)
		if l.Index(candidate) < 0 {
			return candidate
		}
	}
}

func (l *ActionList) uniquifyDisplayName(displayName string) string {
	taken := func(candidate string) bool {
		for _, action := range l.actions {
			if action.DisplayName == candidate {
				return true
			}
		}
		return false
	}

	if !taken(displayName) {
		return displayName
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s (%d)", displayName, i)
		if !taken(candidate) {
			return candidate
		}
	}
}
