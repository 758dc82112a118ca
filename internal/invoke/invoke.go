// Package invoke provides a generic, ordered command-invocation engine.
// Commands are grouped under named groups, can be added, removed and
// reordered by stable integer IDs while invocation is running, and can be
// wrapped by "for-each" commands acting as scoped resources around every
// command in a group. Invokers nest: an Invoker can be added to another
// Invoker as a command.
package invoke

import (
	"fmt"
	"sync/atomic"
)

const (
	// DefaultGroup is the group commands are added to and invoked from when
	// no groups are specified.
	DefaultGroup = "default"

	// AllGroups, passed as the only element of a groups argument, resolves
	// to all groups existing in the invoker at that moment.
	AllGroups = "all"
)

// Args holds positional arguments passed to a command.
type Args []any

// Kwargs holds keyword arguments passed to a command. Keyword arguments
// supplied at invocation time override statically registered ones by key.
type Kwargs map[string]any

// Command is a regular command payload.
type Command func(args Args, kwargs Kwargs) error

// Release is the teardown half of a for-each command. Releases run in
// reverse order of setup once the wrapped command returns, on success and
// on failure alike.
type Release func() error

// Foreach is a for-each command payload: a scoped wrapper invoked around
// every regular command in a group. Setup code runs in the function body;
// teardown code goes into the returned Release. Returning a nil Release is
// a contract violation reported as ContractError.
type Foreach func(args Args, kwargs Kwargs) (Release, error)

// ContractError reports a for-each command that did not behave as a scoped
// wrapper: its setup failed or it returned no release function. It is
// distinct from errors returned by regular commands.
type ContractError struct {
	Err error
}

func (e *ContractError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("for-each command is not a scoped wrapper: %v", e.Err)
	}
	return "for-each command returned no release function"
}

func (e *ContractError) Unwrap() error {
	return e.Err
}

// AddOptions controls how a command is registered.
type AddOptions struct {
	// Groups the command is added to. nil means the default group; the
	// single element AllGroups means all currently existing groups. Groups
	// are created automatically when they do not exist.
	Groups []string
	// Args are positional arguments passed on every invocation.
	Args Args
	// Kwargs are keyword arguments passed on every invocation.
	Kwargs Kwargs
	// IgnoreIfExists skips the addition if the same function or invoker is
	// already registered in at least one of the target groups. The same
	// function with different arguments still counts as present.
	IgnoreIfExists bool
	// Position is the insertion index within each group. nil appends; a
	// negative value counts from the end.
	Position *int
}

// InvokeOptions carries invocation-time arguments applied to every command
// in the invoked groups, including for-each commands and nested invokers.
type InvokeOptions struct {
	// Args are spliced into each command's static argument list.
	Args Args
	// Kwargs override statically registered keyword arguments by key.
	Kwargs Kwargs
	// Position is the splice index for Args within the static argument
	// list. nil appends; a negative value counts from the end.
	Position *int
}

// CommandEntry is a read-only view of a registered command. Exactly one of
// Command, Foreach and Invoker is set.
type CommandEntry struct {
	ID      int
	Command Command
	Foreach Foreach
	Invoker *Invoker
	Args    Args
	Kwargs  Kwargs
}

// WithInit returns a command that calls initialize once before the first
// call to process, and process on every call. A failing initialize is
// retried on the next call.
func WithInit(initialize, process Command) Command {
	initialized := false
	return func(args Args, kwargs Kwargs) error {
		if !initialized {
			if initialize != nil {
				if err := initialize(args, kwargs); err != nil {
					return err
				}
			}
			initialized = true
		}
		if process == nil {
			return nil
		}
		return process(args, kwargs)
	}
}

// Command IDs are unique within the process and never reused, including
// across Invoker instances.
var commandIDCounter atomic.Int64

func nextCommandID() int {
	return int(commandIDCounter.Add(1))
}
