package vorm

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
)

// Accessor reads and writes one property of a struct T.
type Accessor[T any] struct {
	Get func(*T) any
	Set func(*T, any) error
}

// Accessors maps property names to the accessors of a struct T. Build it
// once per type, next to the entity registration:
//
//	var userFields = vorm.Accessors[User]{
//		"id":   vorm.Field(func(u *User) *int64 { return &u.ID }),
//		"name": vorm.Field(func(u *User) *string { return &u.Name }),
//	}
type Accessors[T any] map[string]Accessor[T]

// Field returns the accessor of the struct field addressed by ptr. Values
// written through it are converted to V when their type differs, so an
// int64 column can back an int field.
func Field[T, V any](ptr func(*T) *V) Accessor[T] {
	return Accessor[T]{
		Get: func(t *T) any { return *ptr(t) },
		Set: func(t *T, v any) error {
			out, err := convert[V](v)
			if err != nil {
				return err
			}
			*ptr(t) = out
			return nil
		},
	}
}

// Bind copies the properties of src into e with Entity.Set, so only
// changed values become dirty.
func Bind[T any](e *Entity, a Accessors[T], src *T) *Entity {
	for _, p := range slices.Sorted(maps.Keys(a)) {
		e.Set(p, a[p].Get(src))
	}
	return e
}

// Load copies the properties of e into dst. Properties e does not hold
// are left untouched.
func Load[T any](e *Entity, a Accessors[T], dst *T) error {
	for _, p := range slices.Sorted(maps.Keys(a)) {
		v, ok := e.Lookup(p)
		if !ok {
			continue
		}
		if err := a[p].Set(dst, v); err != nil {
			return fmt.Errorf("vorm: load %s.%s: %w", e.meta.Name(), p, err)
		}
	}
	return nil
}

// convert converts a scanned value to V. Nil converts to the zero value.
func convert[V any](v any) (V, error) {
	var zero V
	if v == nil {
		return zero, nil
	}
	if out, ok := v.(V); ok {
		return out, nil
	}
	rv, t := reflect.ValueOf(v), reflect.TypeFor[V]()
	if t.Kind() == reflect.Pointer {
		// Nullable fields: convert to the element type and take its address.
		if !convertible(rv, t.Elem()) {
			return zero, fmt.Errorf("cannot convert %T to %s", v, t)
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(rv.Convert(t.Elem()))
		return p.Interface().(V), nil
	}
	if !convertible(rv, t) {
		return zero, fmt.Errorf("cannot convert %T to %s", v, t)
	}
	return rv.Convert(t).Interface().(V), nil
}

// convertible reports whether v converts to t without changing its
// meaning. Numbers never convert to or from strings.
func convertible(v reflect.Value, t reflect.Type) bool {
	isString := func(k reflect.Kind) bool { return k == reflect.String }
	if isString(v.Kind()) != isString(t.Kind()) && !isBytes(v.Type()) && !isBytes(t) {
		return false
	}
	return v.CanConvert(t)
}

func isBytes(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8
}
