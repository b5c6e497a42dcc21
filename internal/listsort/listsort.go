// Package listsort orders in-memory lists by a dotted field path, toggling
// direction when the same key is selected twice.
package listsort

import (
	"cmp"
	"reflect"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// Sorter keeps the current {key, direction} selection. It is not safe for
// concurrent use because the collator keeps internal buffers.
type Sorter[T any] struct {
	key      string
	dir      Direction
	collator *collate.Collator
}

// New returns a Sorter comparing strings with the collation rules of tag.
func New[T any](tag language.Tag) *Sorter[T] {
	return &Sorter[T]{collator: collate.New(tag, collate.IgnoreCase)}
}

// NewSpanish is New with the Spanish collation.
func NewSpanish[T any]() *Sorter[T] {
	return New[T](language.Spanish)
}

// Select toggles the direction when key is already selected and resets it
// to ascending otherwise.
func (s *Sorter[T]) Select(key string) {
	if key == s.key {
		if s.dir == Ascending {
			s.dir = Descending
		} else {
			s.dir = Ascending
		}
		return
	}
	s.key, s.dir = key, Ascending
}

// Set forces a selection, e.g. one parsed from a query parameter.
func (s *Sorter[T]) Set(key string, dir Direction) {
	s.key, s.dir = key, dir
}

func (s *Sorter[T]) State() (string, Direction) {
	return s.key, s.dir
}

// Apply returns a stably sorted copy of items. items is not modified.
func (s *Sorter[T]) Apply(items []T) []T {
	out := slices.Clone(items)
	if s.key == "" {
		return out
	}
	slices.SortStableFunc(out, func(a, b T) int {
		va, _ := Lookup(a, s.key)
		vb, _ := Lookup(b, s.key)
		c := s.compare(va, vb)
		if s.dir == Descending {
			return -c
		}
		return c
	})
	return out
}

// Sort selects key and applies the resulting order.
func (s *Sorter[T]) Sort(items []T, key string) []T {
	s.Select(key)
	return s.Apply(items)
}

// ParseParam reads "key" as ascending and "-key" as descending.
func ParseParam(p string) (string, Direction) {
	p = strings.TrimSpace(p)
	if rest, ok := strings.CutPrefix(p, "-"); ok {
		return rest, Descending
	}
	return p, Ascending
}

// compare orders strings by collation and numbers numerically.
// Every other pairing compares equal.
func (s *Sorter[T]) compare(a, b any) int {
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return s.collator.CompareString(as, bs)
		}
		return 0
	}
	an, ok := number(a)
	if !ok {
		return 0
	}
	bn, ok := number(b)
	if !ok {
		return 0
	}
	return cmp.Compare(an, bn)
}

func number(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// Lookup resolves a dot-separated path through maps with string keys,
// structs (json tag first, then field name) and pointers.
func Lookup(item any, path string) (any, bool) {
	cur := reflect.ValueOf(item)
	for _, part := range strings.Split(path, ".") {
		cur = indirect(cur)
		if !cur.IsValid() {
			return nil, false
		}
		switch cur.Kind() {
		case reflect.Map:
			if cur.Type().Key().Kind() != reflect.String {
				return nil, false
			}
			cur = cur.MapIndex(reflect.ValueOf(part).Convert(cur.Type().Key()))
		case reflect.Struct:
			cur = structField(cur, part)
		default:
			return nil, false
		}
		if !cur.IsValid() {
			return nil, false
		}
	}
	cur = indirect(cur)
	if !cur.IsValid() || !cur.CanInterface() {
		return nil, false
	}
	return cur.Interface(), true
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func structField(v reflect.Value, name string) reflect.Value {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if tag == name {
			return v.Field(i)
		}
	}
	if f, ok := t.FieldByName(name); ok && f.IsExported() {
		return v.FieldByIndex(f.Index)
	}
	return reflect.Value{}
}
