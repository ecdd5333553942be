// Package access defines the permission model consumed by the dispatch core:
// groups that gate handler execution, and the validator capability that
// answers membership questions. The membership resolution logic itself is
// supplied by the application; this package only defines the contract and
// enforces the fail-closed policy around it.
package access

import (
	"context"
	"fmt"
)

// Group identifies a permission level a user must hold to use a handler.
// The meaning of a group is defined entirely by the application's Validator;
// the dispatch core only carries groups around and names them in denial
// messages.
type Group interface {
	// GroupID uniquely identifies the group to the validator.
	GroupID() string
}

// NamedGroup is a Group with a user-facing display name. Denial messages for
// named groups tell the user which group they are missing; unnamed groups
// get a generic message.
type NamedGroup interface {
	Group

	// Name returns the display name of the group.
	Name() string
}

// Anyone is the unrestricted group. Handlers gated on it (or on a nil group)
// skip the access check entirely.
var Anyone Group = anyone{}

type anyone struct{}

func (anyone) GroupID() string { return "everyone" }

// Validator answers whether the invoking user of one event holds a given
// group. A validator is bound to a single event context; it should not be
// shared across dispatches.
//
// Implementations should never report membership they are not sure of.
// Callers treat any error as a denial, so an implementation that cannot
// resolve membership must return an error or false, never (true, nil).
type Validator interface {
	Belongs(ctx context.Context, group Group) (bool, error)
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(ctx context.Context, group Group) (bool, error)

func (f ValidatorFunc) Belongs(ctx context.Context, group Group) (bool, error) {
	return f(ctx, group)
}

// Fixed returns a Validator that always gives the same answer, for wiring
// unrestricted deployments and tests.
func Fixed(allow bool) Validator {
	return ValidatorFunc(func(context.Context, Group) (bool, error) {
		return allow, nil
	})
}

// Check runs an access check fail-closed: a false result or any error from
// the validator is a denial, returned as *Error carrying the group so the
// caller can name it to the user. A nil return means access is granted.
//
// Nil groups and Anyone are unrestricted and always pass.
func Check(ctx context.Context, v Validator, group Group) error {
	if group == nil || group == Anyone {
		return nil
	}
	ok, err := v.Belongs(ctx, group)
	if err != nil {
		// Ambiguous result: deny, but keep the cause for the logs.
		return &Error{Group: group, cause: err}
	}
	if !ok {
		return &Error{Group: group}
	}
	return nil
}

// Error indicates that an access check failed. It is an expected, user-facing
// condition: the dispatch boundary converts it into a single private denial
// reply rather than treating it as a handler failure.
type Error struct {
	// Group is the group that was required for access.
	Group Group

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("access denied (group %s): %v", e.Group.GroupID(), e.cause)
	}
	return fmt.Sprintf("access denied (group %s)", e.Group.GroupID())
}

func (e *Error) Unwrap() error { return e.cause }
