// Package graph holds the dependency extraction core: class identities,
// typed edges, the append-only edge set and the visitor that produces them
// from syntax tree traversals.
package graph

import "strings"

// Separator joins namespace segments in a fully qualified class name.
const Separator = `\`

// placeholderName cannot collide with a real PHP class name: name segments
// never contain angle brackets.
const placeholderName = "<pending>"

// Class is an immutable class identity wrapping the normalized fully
// qualified name. Two Class values compare equal exactly when their
// normalized names match.
type Class struct {
	name string
}

// NewClass builds a Class from name segments, dropping empty segments.
func NewClass(parts ...string) Class {
	segs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			segs = append(segs, p)
		}
	}
	return Class{name: strings.Join(segs, Separator)}
}

// ParseClass builds a Class from a joined name like "App\Domain\User".
// A leading separator is ignored.
func ParseClass(name string) Class {
	return NewClass(strings.Split(name, Separator)...)
}

// Placeholder is the sentinel identity a visitor holds before it has seen a
// file's class declaration. It is never equal to any real class.
func Placeholder() Class {
	return Class{name: placeholderName}
}

// IsPlaceholder reports whether c is the placeholder sentinel.
func (c Class) IsPlaceholder() bool {
	return c.name == placeholderName
}

// String returns the fully qualified name.
func (c Class) String() string {
	return c.name
}
