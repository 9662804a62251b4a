package models

// AddUnique appends v when it is not already present. The boolean reports
// whether the slice changed.
func AddUnique[T comparable](set []T, v T) ([]T, bool) {
	for _, existing := range set {
		if existing == v {
			return set, false
		}
	}
	return append(set, v), true
}

// RemoveValue drops every occurrence of v while keeping the order of the
// remaining entries.
func RemoveValue[T comparable](set []T, v T) ([]T, bool) {
	out := set[:0:0]
	for _, existing := range set {
		if existing != v {
			out = append(out, existing)
		}
	}
	if len(out) == len(set) {
		return set, false
	}
	return out, true
}

// Contains reports whether v is present.
func Contains[T comparable](set []T, v T) bool {
	for _, existing := range set {
		if existing == v {
			return true
		}
	}
	return false
}
