package history

import "github.com/google/go-cmp/cmp"

// StructuralEqual returns an EqualFunc that compares snapshots with cmp.Equal.
// cmp panics on unexported fields unless opts handle them.
func StructuralEqual[S any](opts ...cmp.Option) EqualFunc[S] {
	return func(a, b S) bool {
		return cmp.Equal(a, b, opts...)
	}
}

// Diff returns a human-readable report of the differences between two
// snapshots, or "" when they are equal.
func Diff[S any](a, b S, opts ...cmp.Option) string {
	return cmp.Diff(a, b, opts...)
}
