package utils

// Optional holds a value that may be absent. The zero value is absent.
type Optional[T any] struct {
	value T
	set   bool
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// None returns an absent Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the held value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsSome reports whether a value is present.
func (o Optional[T]) IsSome() bool {
	return o.set
}

// Take returns the held value and leaves the Optional absent.
func (o *Optional[T]) Take() (T, bool) {
	v, ok := o.value, o.set
	*o = Optional[T]{}
	return v, ok
}
