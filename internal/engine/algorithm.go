package engine

import "strings"

// Algorithm is the closed set of sorting algorithms the engine can run.
type Algorithm uint8

const (
	Bubble Algorithm = iota + 1
	Quick
	Merge
	Heap
)

var algorithmNames = map[Algorithm]string{
	Bubble: "bubble",
	Quick:  "quick",
	Merge:  "merge",
	Heap:   "heap",
}

func (a Algorithm) String() string {
	if name, ok := algorithmNames[a]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether a is one of the supported algorithms.
func (a Algorithm) Valid() bool {
	_, ok := sorters[a]
	return ok
}

// ParseAlgorithm maps a wire token to an Algorithm. Matching ignores case and
// surrounding whitespace.
func ParseAlgorithm(name string) (Algorithm, error) {
	token := strings.ToLower(strings.TrimSpace(name))
	for a, n := range algorithmNames {
		if n == token {
			return a, nil
		}
	}
	return 0, &UnsupportedAlgorithmError{Name: name}
}

// Algorithms returns every supported algorithm in a fixed order.
func Algorithms() []Algorithm {
	return []Algorithm{Bubble, Quick, Merge, Heap}
}
