package models

// DefaultLimit bounds a fetch whenever the caller gives no usable limit.
const DefaultLimit = 10

// Filter bounds and narrows a relay query.
type Filter struct {
	Limit   int
	Kinds   []int
	Authors []string
	Since   *int64 // unix seconds, inclusive lower bound
	Until   *int64 // unix seconds, inclusive upper bound
}

// EffectiveLimit returns Limit, or DefaultLimit when Limit is zero or negative.
func (f Filter) EffectiveLimit() int {
	if f.Limit <= 0 {
		return DefaultLimit
	}
	return f.Limit
}
