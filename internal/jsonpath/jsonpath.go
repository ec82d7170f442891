// Package jsonpath locates values inside decoded JSON documents using
// ordered sequences of object keys and array indices.
package jsonpath

import (
	"strconv"
	"strings"
)

type stepKind int

const (
	stepKey stepKind = iota
	stepIndex
)

// Step is a single traversal step: an object key or an array index.
type Step struct {
	key  string
	idx  int
	kind stepKind
}

// Key builds a step that descends into an object by key.
func Key(name string) Step {
	return Step{key: name, kind: stepKey}
}

// Index builds a step that descends into an array by position.
func Index(i int) Step {
	return Step{idx: i, kind: stepIndex}
}

// IsIndex reports whether the step addresses an array position.
func (s Step) IsIndex() bool {
	return s.kind == stepIndex
}

// Index returns the array position for index steps.
func (s Step) Index() int {
	return s.idx
}

// Key returns the object key for key steps.
func (s Step) Key() string {
	return s.key
}

func (s Step) String() string {
	if s.kind == stepIndex {
		return strconv.Itoa(s.idx)
	}
	return s.key
}

// Path is an ordered traversal into a JSON document. An empty Path
// addresses the whole document.
type Path []Step

// Parse converts a dotted selector ("resources.memory.free",
// "0.hashrate.1") into a Path. Purely numeric segments become index
// steps; everything else is an object key.
func Parse(selector string) Path {
	if selector == "" {
		return Path{}
	}
	segments := strings.Split(selector, ".")
	path := make(Path, 0, len(segments))
	for _, seg := range segments {
		if i, err := strconv.Atoi(seg); err == nil && seg == strconv.Itoa(i) && i >= 0 {
			path = append(path, Index(i))
			continue
		}
		path = append(path, Key(seg))
	}
	return path
}

// String renders the path as a dotted selector.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}

// Resolve walks the path against a decoded JSON document
// (map[string]any / []any as produced by encoding/json). A missing
// key, a wrong-typed container or an out-of-range index is a miss,
// never an error. An empty path returns the document itself.
func (p Path) Resolve(doc any) (any, bool) {
	if doc == nil {
		return nil, false
	}
	cur := doc
	for _, step := range p {
		switch container := cur.(type) {
		case map[string]any:
			if step.IsIndex() {
				return nil, false
			}
			v, ok := container[step.Key()]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			if !step.IsIndex() {
				return nil, false
			}
			i := step.Index()
			if i < 0 || i >= len(container) {
				return nil, false
			}
			cur = container[i]
		default:
			return nil, false
		}
	}
	return cur, true
}
