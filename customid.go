package interact

import "strings"

// Separator is the reserved character between the handler ID and the
// argument string in a custom identifier. Handler IDs must not contain it;
// argument strings may.
const Separator = ':'

// MakeID assembles a custom identifier in the format expected by a component
// manager. The separator is always present, even for empty args, so that
// SplitID(MakeID(id, args)) returns (id, args) for any id that does not
// contain the separator.
func MakeID(id, args string) string {
	return id + string(Separator) + args
}

// SplitID decodes a raw custom identifier into a handler ID and an argument
// string. Only the first separator splits; everything after it is the
// argument string, which may itself contain separators. A raw identifier
// with no separator decodes to (raw, "").
//
// Composed schemes that embed a sub-grammar in the argument string must use
// a bounded split on their trailing free-form segment; see the paginate
// package for one such scheme.
func SplitID(raw string) (id, args string) {
	if i := strings.IndexByte(raw, Separator); i >= 0 {
		return raw[:i], raw[i+1:]
	}
	return raw, ""
}
