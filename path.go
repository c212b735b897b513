package state

import (
	"fmt"
	"strconv"
	"strings"
)

// PathError reports a malformed path string.
type PathError struct {
	Path   string
	Reason string
}

func (e *PathError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("state: invalid path %q: %s", e.Path, e.Reason)
}

// Segment is one resolved step of a path: a map key or a sequence index.
// Numeric segments carry both representations so resolution can follow the
// shape of the container it lands on.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// ParsePath splits a dot/bracket path such as "a.b[2].c" into ordered
// segments. Bracketed indices must be non-negative integers; bare numeric
// segments double as indices when they land on a sequence.
func ParsePath(path string) ([]Segment, error) {
	if path == "" {
		return nil, &PathError{Path: path, Reason: "empty path"}
	}

	var segs []Segment
	i := 0
	expectSegment := true
	for i < len(path) {
		switch path[i] {
		case '[':
			end := strings.IndexByte(path[i+1:], ']')
			if end < 0 {
				return nil, &PathError{Path: path, Reason: "unterminated index"}
			}
			raw := path[i+1 : i+1+end]
			if !isDigits(raw) {
				return nil, &PathError{Path: path, Reason: fmt.Sprintf("index %q is not a non-negative integer", raw)}
			}
			idx, err := strconv.Atoi(raw)
			if err != nil {
				return nil, &PathError{Path: path, Reason: fmt.Sprintf("index %q is not a non-negative integer", raw)}
			}
			segs = append(segs, Segment{Key: raw, Index: idx, IsIndex: true})
			i += end + 2
			expectSegment = false
			if i < len(path) && path[i] != '.' && path[i] != '[' {
				return nil, &PathError{Path: path, Reason: fmt.Sprintf("unexpected %q after index", path[i])}
			}
		case '.':
			if expectSegment {
				return nil, &PathError{Path: path, Reason: "empty segment"}
			}
			expectSegment = true
			i++
		default:
			j := i
			for j < len(path) && path[j] != '.' && path[j] != '[' {
				j++
			}
			raw := path[i:j]
			seg := Segment{Key: raw}
			if isDigits(raw) {
				if idx, err := strconv.Atoi(raw); err == nil {
					seg.Index = idx
					seg.IsIndex = true
				}
			}
			segs = append(segs, seg)
			i = j
			expectSegment = false
		}
	}
	if expectSegment {
		return nil, &PathError{Path: path, Reason: "empty segment"}
	}
	if len(segs) == 0 {
		return nil, &PathError{Path: path, Reason: "no segments"}
	}
	return segs, nil
}

func isDigits(raw string) bool {
	if raw == "" {
		return false
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return false
		}
	}
	return true
}

// readPath resolves segs against root. Missing intermediates and shape
// mismatches report ok=false; readPath never fails.
func readPath(root any, segs []Segment) (any, bool) {
	node := root
	for _, seg := range segs {
		switch cur := node.(type) {
		case map[string]any:
			next, ok := cur[seg.Key]
			if !ok {
				return nil, false
			}
			node = next
		case []any:
			if !seg.IsIndex || seg.Index >= len(cur) {
				return nil, false
			}
			node = cur[seg.Index]
		default:
			return nil, false
		}
	}
	return node, true
}

// writeCopy returns a new root with value placed at segs. Containers along
// the ancestor chain are shallow-copied; every other subtree is shared with
// the input, which is never mutated. Missing intermediates are created as a
// sequence when the following segment is numeric, otherwise as a map, and
// sequence writes past the end grow the sequence with nils.
func writeCopy(root any, segs []Segment, value any) any {
	if len(segs) == 0 {
		return value
	}
	seg, rest := segs[0], segs[1:]
	switch cur := root.(type) {
	case map[string]any:
		next := make(map[string]any, len(cur)+1)
		for k, v := range cur {
			next[k] = v
		}
		next[seg.Key] = writeCopy(cur[seg.Key], rest, value)
		return next
	case []any:
		if seg.IsIndex {
			size := len(cur)
			if seg.Index+1 > size {
				size = seg.Index + 1
			}
			next := make([]any, size)
			copy(next, cur)
			var child any
			if seg.Index < len(cur) {
				child = cur[seg.Index]
			}
			next[seg.Index] = writeCopy(child, rest, value)
			return next
		}
		// A key segment over a sequence replaces it with a map.
		return map[string]any{seg.Key: writeCopy(nil, rest, value)}
	default:
		if seg.IsIndex {
			next := make([]any, seg.Index+1)
			next[seg.Index] = writeCopy(nil, rest, value)
			return next
		}
		return map[string]any{seg.Key: writeCopy(nil, rest, value)}
	}
}
