package sources

import "fmt"

// Depth controls how many items a search asks for.
type Depth string

const (
	DepthQuick   Depth = "quick"
	DepthDefault Depth = "default"
	DepthDeep    Depth = "deep"
)

// Counts is the item-count range requested from a search model.
type Counts struct {
	Min int
	Max int
}

// ParseDepth resolves the --quick/--deep flags.
func ParseDepth(quick, deep bool) (Depth, error) {
	switch {
	case quick && deep:
		return "", fmt.Errorf("cannot use both --quick and --deep")
	case quick:
		return DepthQuick, nil
	case deep:
		return DepthDeep, nil
	}
	return DepthDefault, nil
}

// Valid reports whether d is a known depth.
func (d Depth) Valid() bool {
	switch d {
	case DepthQuick, DepthDefault, DepthDeep:
		return true
	}
	return false
}

// RedditCounts returns the Reddit thread range for the depth.
func (d Depth) RedditCounts() Counts {
	switch d {
	case DepthQuick:
		return Counts{Min: 8, Max: 12}
	case DepthDeep:
		return Counts{Min: 50, Max: 70}
	}
	return Counts{Min: 20, Max: 30}
}

// XCounts returns the X post range for the depth.
func (d Depth) XCounts() Counts {
	switch d {
	case DepthQuick:
		return Counts{Min: 8, Max: 12}
	case DepthDeep:
		return Counts{Min: 40, Max: 60}
	}
	return Counts{Min: 15, Max: 25}
}
