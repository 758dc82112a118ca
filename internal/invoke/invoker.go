package invoke

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
)

type kind int

const (
	kindCommand kind = iota
	kindForeach
	kindInvoker
)

// entry is the internal record behind a command ID. The same entry is
// shared by every group the ID belongs to.
type entry struct {
	id      int
	groups  map[string]struct{}
	kind    kind
	command Command
	foreach Foreach
	invoker *Invoker
	args    Args
	kwargs  Kwargs
	key     any
}

// Invoker invokes sequences of commands registered under named groups.
//
// An Invoker is not safe for concurrent use by multiple goroutines.
// Mutating the command lists from within invoked commands is supported:
// Invoke iterates a snapshot of the invoked group, skipping entries that
// were removed before being reached.
type Invoker struct {
	commands        map[string][]*entry
	foreachCommands map[string][]*entry
	funcCounts      map[kind]map[string]map[any]int
	entries         map[int]*entry
	groupOrder      []string
}

// New creates an empty Invoker.
func New() *Invoker {
	return &Invoker{
		commands:        make(map[string][]*entry),
		foreachCommands: make(map[string][]*entry),
		funcCounts: map[kind]map[string]map[any]int{
			kindCommand: make(map[string]map[any]int),
			kindForeach: make(map[string]map[any]int),
			kindInvoker: make(map[string]map[any]int),
		},
		entries: make(map[int]*entry),
	}
}

// Add registers a regular command and returns its ID. With
// AddOptions.IgnoreIfExists set and the command already present in one of
// the target groups, nothing is added and 0 is returned.
func (inv *Invoker) Add(command Command, opts *AddOptions) int {
	o := addOptions(opts)
	if o.IgnoreIfExists && inv.Contains(command, o.Groups, false) {
		return 0
	}
	it := &entry{
		id:      nextCommandID(),
		groups:  make(map[string]struct{}),
		kind:    kindCommand,
		command: command,
		args:    o.Args,
		kwargs:  o.Kwargs,
		key:     identityKey(command),
	}
	for _, group := range inv.resolveGroups(o.Groups) {
		inv.addEntryToGroup(it, group, o.Position)
	}
	return it.id
}

// AddForeach registers a for-each command and returns its ID. For-each
// commands wrap every regular command in their groups: all of them are set
// up in registration order before the wrapped command runs and released in
// reverse order afterwards. They do not wrap nested invoker entries.
func (inv *Invoker) AddForeach(command Foreach, opts *AddOptions) int {
	o := addOptions(opts)
	if o.IgnoreIfExists && inv.Contains(command, o.Groups, true) {
		return 0
	}
	it := &entry{
		id:      nextCommandID(),
		groups:  make(map[string]struct{}),
		kind:    kindForeach,
		foreach: command,
		args:    o.Args,
		kwargs:  o.Kwargs,
		key:     identityKey(command),
	}
	for _, group := range inv.resolveGroups(o.Groups) {
		inv.addEntryToGroup(it, group, o.Position)
	}
	return it.id
}

// AddInvoker registers another invoker as a command and returns the ID.
// When reached during invocation, the nested invoker is invoked with the
// group currently being processed and the same invocation-time arguments.
func (inv *Invoker) AddInvoker(sub *Invoker, opts *AddOptions) int {
	o := addOptions(opts)
	if o.IgnoreIfExists && inv.Contains(sub, o.Groups, false) {
		return 0
	}
	it := &entry{
		id:      nextCommandID(),
		groups:  make(map[string]struct{}),
		kind:    kindInvoker,
		invoker: sub,
		key:     sub,
	}
	for _, group := range inv.resolveGroups(o.Groups) {
		inv.addEntryToGroup(it, group, o.Position)
	}
	return it.id
}

// AddToGroups adds an existing command to more groups. Groups the command
// is already in are left untouched. position follows AddOptions.Position.
func (inv *Invoker) AddToGroups(commandID int, groups []string, position *int) error {
	it, ok := inv.entries[commandID]
	if !ok {
		return fmt.Errorf("command with ID %d does not exist", commandID)
	}
	for _, group := range inv.resolveGroups(groups) {
		if _, in := it.groups[group]; !in {
			inv.addEntryToGroup(it, group, position)
		}
	}
	return nil
}

// Invoke invokes the commands in the specified groups in order. A nil
// groups argument invokes the default group; the single element AllGroups
// invokes every existing group. A named top-level group that does not exist
// is created empty.
//
// The first failing command aborts the invocation and its error is
// returned; for-each releases that are active at that point run first.
func (inv *Invoker) Invoke(groups []string, opts *InvokeOptions) error {
	o := invokeOptions(opts)
	for _, group := range inv.resolveGroups(groups) {
		if !inv.groupExists(group) {
			inv.initGroup(group)
		}
		// Commands may be removed during invocation, so iterate a snapshot
		// and check each entry against the live list when reached.
		items := slices.Clone(inv.commands[group])
		for _, it := range items {
			if !slices.Contains(inv.commands[group], it) {
				continue
			}
			var err error
			switch {
			case it.kind == kindInvoker:
				err = it.invoker.Invoke([]string{group}, opts)
			case len(inv.foreachCommands[group]) > 0:
				err = inv.invokeWithForeach(it, group, o)
			default:
				err = invokeEntry(it, o)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (inv *Invoker) invokeWithForeach(it *entry, group string, o *InvokeOptions) error {
	var releases []Release
	var err error
	for _, fe := range slices.Clone(inv.foreachCommands[group]) {
		release, setupErr := fe.foreach(spliceArgs(fe.args, o.Args, o.Position), mergeKwargs(fe.kwargs, o.Kwargs))
		if setupErr != nil || release == nil {
			err = &ContractError{Err: setupErr}
			break
		}
		releases = append(releases, release)
	}
	if err == nil {
		err = invokeEntry(it, o)
	}
	for i := len(releases) - 1; i >= 0; i-- {
		if releaseErr := releases[i](); releaseErr != nil {
			err = errors.Join(err, releaseErr)
		}
	}
	return err
}

func invokeEntry(it *entry, o *InvokeOptions) error {
	return it.command(spliceArgs(it.args, o.Args, o.Position), mergeKwargs(it.kwargs, o.Kwargs))
}

// Contains reports whether the given command function (or *Invoker) is
// registered in at least one of the specified groups. The same function
// registered with different arguments counts as present.
func (inv *Invoker) Contains(command any, groups []string, foreach bool) bool {
	counts := inv.funcCounts[inv.kindOf(command, foreach)]
	key := identityKey(command)
	for _, group := range inv.resolveGroups(groups) {
		if counts[group][key] > 0 {
			return true
		}
	}
	return false
}

// Find returns the IDs under which the given command function (or
// *Invoker) is registered in the specified groups, in group and list
// order. Nonexistent groups are skipped.
func (inv *Invoker) Find(command any, groups []string, foreach bool) []int {
	k := inv.kindOf(command, foreach)
	lists := inv.entryLists(k)
	key := identityKey(command)
	var ids []int
	for _, group := range inv.resolveGroups(groups) {
		if !inv.groupExists(group) {
			continue
		}
		for _, it := range lists[group] {
			if it.kind == k && it.key == key {
				ids = append(ids, it.id)
			}
		}
	}
	return ids
}

// HasCommand reports whether the command with the given ID exists in at
// least one of the specified groups.
func (inv *Invoker) HasCommand(commandID int, groups []string) bool {
	it, ok := inv.entries[commandID]
	if !ok {
		return false
	}
	for _, group := range inv.resolveGroups(groups) {
		if _, in := it.groups[group]; in {
			return true
		}
	}
	return false
}

// Get returns the command registered under the given ID.
func (inv *Invoker) Get(commandID int) (CommandEntry, bool) {
	it, ok := inv.entries[commandID]
	if !ok {
		return CommandEntry{}, false
	}
	return it.view(), true
}

// Position returns the invocation position of the command with the given
// ID within the group. An empty group means the default group.
func (inv *Invoker) Position(commandID int, group string) (int, error) {
	if group == "" {
		group = DefaultGroup
	}
	it, ok := inv.entries[commandID]
	if !ok {
		return 0, fmt.Errorf("command with ID %d does not exist", commandID)
	}
	if _, in := it.groups[group]; !in {
		return 0, fmt.Errorf("command with ID %d is not in group %q", commandID, group)
	}
	i := slices.Index(inv.entryLists(it.kind)[group], it)
	if i < 0 {
		return 0, fmt.Errorf("command with ID %d is not in group %q", commandID, group)
	}
	return i, nil
}

// ListCommands returns the commands of a group in the order they would be
// invoked, or false if the group does not exist. With foreach set, the
// group's for-each commands are returned instead.
func (inv *Invoker) ListCommands(group string, foreach bool) ([]CommandEntry, bool) {
	if group == "" {
		group = DefaultGroup
	}
	if !inv.groupExists(group) {
		return nil, false
	}
	list := inv.commands[group]
	if foreach {
		list = inv.foreachCommands[group]
	}
	out := make([]CommandEntry, 0, len(list))
	for _, it := range list {
		out = append(out, it.view())
	}
	return out, true
}

// ListGroups returns all groups in creation order. With includeEmpty set
// to false, groups without commands are omitted.
func (inv *Invoker) ListGroups(includeEmpty bool) []string {
	if includeEmpty {
		return slices.Clone(inv.groupOrder)
	}
	var out []string
	for _, group := range inv.groupOrder {
		if len(inv.commands[group]) > 0 || len(inv.foreachCommands[group]) > 0 {
			out = append(out, group)
		}
	}
	return out
}

// Reorder moves the command with the given ID to the specified position in
// the group. Position 0 is the front; negative positions count from the
// end (-1 moves to the last position). An empty group means the default
// group.
func (inv *Invoker) Reorder(commandID int, position int, group string) error {
	if group == "" {
		group = DefaultGroup
	}
	it, ok := inv.entries[commandID]
	if !ok {
		return fmt.Errorf("command with ID %d does not exist", commandID)
	}
	if !inv.groupExists(group) {
		return fmt.Errorf("group %q does not exist", group)
	}
	if _, in := it.groups[group]; !in {
		return fmt.Errorf("command with ID %d is not in group %q", commandID, group)
	}
	lists := inv.entryLists(it.kind)
	list := lists[group]
	i := slices.Index(list, it)
	list = slices.Delete(list, i, i+1)
	if position < 0 {
		position = max(len(list)+position+1, 0)
	}
	if position > len(list) {
		position = len(list)
	}
	lists[group] = slices.Insert(list, position, it)
	return nil
}

// Remove removes the command with the given ID from the specified groups.
// Groups the command is not in are left untouched. Removing a command from
// its last group deletes it entirely. An unknown ID is an error unless
// ignoreIfNotExists is set; an unknown group is always an error.
func (inv *Invoker) Remove(commandID int, groups []string, ignoreIfNotExists bool) error {
	it, ok := inv.entries[commandID]
	if !ok {
		if ignoreIfNotExists {
			return nil
		}
		return fmt.Errorf("command with ID %d does not exist", commandID)
	}
	for _, group := range inv.resolveGroups(groups) {
		if !inv.groupExists(group) {
			return fmt.Errorf("group %q does not exist", group)
		}
		if _, in := it.groups[group]; in {
			inv.removeEntry(it, group)
			if _, still := inv.entries[commandID]; !still {
				break
			}
		}
	}
	return nil
}

// RemoveGroups removes the specified groups along with their commands,
// including for-each commands. Nonexistent groups are ignored.
func (inv *Invoker) RemoveGroups(groups []string) {
	for _, group := range inv.resolveGroups(groups) {
		if !inv.groupExists(group) {
			continue
		}
		for _, it := range slices.Clone(inv.commands[group]) {
			inv.removeEntry(it, group)
		}
		for _, it := range slices.Clone(inv.foreachCommands[group]) {
			inv.removeEntry(it, group)
		}
		delete(inv.commands, group)
		delete(inv.foreachCommands, group)
		for _, counts := range inv.funcCounts {
			delete(counts, group)
		}
		inv.groupOrder = slices.DeleteFunc(inv.groupOrder, func(g string) bool {
			return g == group
		})
	}
}

func (inv *Invoker) addEntryToGroup(it *entry, group string, position *int) {
	inv.initGroup(group)
	lists := inv.entryLists(it.kind)
	if position == nil {
		lists[group] = append(lists[group], it)
	} else {
		lists[group] = insertClamped(lists[group], *position, it)
	}
	counts := inv.funcCounts[it.kind]
	if counts[group] == nil {
		counts[group] = make(map[any]int)
	}
	counts[group][it.key]++
	it.groups[group] = struct{}{}
	inv.entries[it.id] = it
}

func (inv *Invoker) removeEntry(it *entry, group string) {
	lists := inv.entryLists(it.kind)
	if i := slices.Index(lists[group], it); i >= 0 {
		lists[group] = slices.Delete(lists[group], i, i+1)
	}
	if m := inv.funcCounts[it.kind][group]; m != nil {
		m[it.key]--
		if m[it.key] <= 0 {
			delete(m, it.key)
		}
	}
	delete(it.groups, group)
	if len(it.groups) == 0 {
		delete(inv.entries, it.id)
	}
}

func (inv *Invoker) initGroup(group string) {
	if !inv.groupExists(group) {
		inv.commands[group] = nil
		inv.foreachCommands[group] = nil
		inv.groupOrder = append(inv.groupOrder, group)
	}
}

func (inv *Invoker) groupExists(group string) bool {
	_, ok := inv.commands[group]
	return ok
}

func (inv *Invoker) resolveGroups(groups []string) []string {
	if groups == nil {
		return []string{DefaultGroup}
	}
	if len(groups) == 1 && groups[0] == AllGroups {
		return inv.ListGroups(true)
	}
	return groups
}

func (inv *Invoker) entryLists(k kind) map[string][]*entry {
	if k == kindForeach {
		return inv.foreachCommands
	}
	return inv.commands
}

func (inv *Invoker) kindOf(command any, foreach bool) kind {
	if foreach {
		return kindForeach
	}
	if _, ok := command.(*Invoker); ok {
		return kindInvoker
	}
	return kindCommand
}

func (it *entry) view() CommandEntry {
	return CommandEntry{
		ID:      it.id,
		Command: it.command,
		Foreach: it.foreach,
		Invoker: it.invoker,
		Args:    it.args,
		Kwargs:  it.kwargs,
	}
}

// identityKey yields a comparable identity for command payloads: the code
// pointer for functions, the instance for invokers. Closures created from
// the same function literal therefore share one identity.
func identityKey(v any) any {
	if sub, ok := v.(*Invoker); ok {
		return sub
	}
	return reflect.ValueOf(v).Pointer()
}

func insertClamped(list []*entry, position int, it *entry) []*entry {
	if position < 0 {
		position += len(list)
		if position < 0 {
			position = 0
		}
	}
	if position > len(list) {
		position = len(list)
	}
	return slices.Insert(list, position, it)
}

// spliceArgs inserts invocation-time arguments into a static argument
// list. A nil position appends; negative positions count from the end.
func spliceArgs(static, additional Args, position *int) Args {
	if len(additional) == 0 && position == nil {
		return slices.Clone(static)
	}
	p := len(static)
	if position != nil {
		p = *position
		if p < 0 {
			p += len(static)
			if p < 0 {
				p = 0
			}
		}
		if p > len(static) {
			p = len(static)
		}
	}
	out := make(Args, 0, len(static)+len(additional))
	out = append(out, static[:p]...)
	out = append(out, additional...)
	out = append(out, static[p:]...)
	return out
}

// mergeKwargs copies static keyword arguments and applies invocation-time
// overrides by key.
func mergeKwargs(static, additional Kwargs) Kwargs {
	merged := make(Kwargs, len(static)+len(additional))
	for k, v := range static {
		merged[k] = v
	}
	for k, v := range additional {
		merged[k] = v
	}
	return merged
}

func addOptions(opts *AddOptions) *AddOptions {
	if opts == nil {
		return &AddOptions{}
	}
	return opts
}

func invokeOptions(opts *InvokeOptions) *InvokeOptions {
	if opts == nil {
		return &InvokeOptions{}
	}
	return opts
}
