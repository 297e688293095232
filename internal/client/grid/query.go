package grid

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/tidwall/gjson"
)

// Sort directions.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// SortDescriptor orders by one field. An empty Dir disables the key.
type SortDescriptor struct {
	Field string `json:"field"`
	Dir   string `json:"dir,omitempty"`
}

// Operator is a leaf comparison.
type Operator string

const (
	OpEq             Operator = "eq"
	OpNeq            Operator = "neq"
	OpLt             Operator = "lt"
	OpLte            Operator = "lte"
	OpGt             Operator = "gt"
	OpGte            Operator = "gte"
	OpContains       Operator = "contains"
	OpDoesNotContain Operator = "doesnotcontain"
	OpStartsWith     Operator = "startswith"
	OpEndsWith       Operator = "endswith"
	OpIsNull         Operator = "isnull"
	OpIsNotNull      Operator = "isnotnull"
	OpIsEmpty        Operator = "isempty"
	OpIsNotEmpty     Operator = "isnotempty"
)

var knownOperators = map[Operator]struct{}{
	OpEq: {}, OpNeq: {}, OpLt: {}, OpLte: {}, OpGt: {}, OpGte: {},
	OpContains: {}, OpDoesNotContain: {}, OpStartsWith: {}, OpEndsWith: {},
	OpIsNull: {}, OpIsNotNull: {}, OpIsEmpty: {}, OpIsNotEmpty: {},
}

// Logic joins the children of a CompositeFilter.
type Logic string

const (
	LogicAnd Logic = "and"
	LogicOr  Logic = "or"
)

// Filter is a node of a filter tree.
type Filter interface {
	Matches(row Row) bool
	validate() error
}

// FilterDescriptor compares one field against Value. String comparisons
// ignore case unless IgnoreCase is explicitly false.
type FilterDescriptor struct {
	Field      string   `json:"field"`
	Operator   Operator `json:"operator"`
	Value      any      `json:"value,omitempty"`
	IgnoreCase *bool    `json:"ignoreCase,omitempty"`
}

// CompositeFilter combines child filters with Logic. An empty Logic means
// "and"; a composite without children matches every row.
type CompositeFilter struct {
	Logic   Logic    `json:"logic"`
	Filters []Filter `json:"filters"`
}

// And builds an "and" composite.
func And(filters ...Filter) *CompositeFilter {
	return &CompositeFilter{Logic: LogicAnd, Filters: filters}
}

// Or builds an "or" composite.
func Or(filters ...Filter) *CompositeFilter {
	return &CompositeFilter{Logic: LogicOr, Filters: filters}
}

// QueryState is the caller-controlled view of a grid.
type QueryState struct {
	Sort   []SortDescriptor `json:"sort,omitempty"`
	Filter *CompositeFilter `json:"filter,omitempty"`
	Skip   int              `json:"skip"`
	Take   int              `json:"take"`
}

// Validate checks the filter tree and the paging window.
func (s QueryState) Validate() error {
	if s.Skip < 0 {
		return fmt.Errorf("skip must not be negative, got %d", s.Skip)
	}
	for _, sd := range s.Sort {
		if sd.Field == "" {
			return fmt.Errorf("sort descriptor without field")
		}
		if sd.Dir != "" && sd.Dir != SortAsc && sd.Dir != SortDesc {
			return fmt.Errorf("sort %s: unknown direction %q", sd.Field, sd.Dir)
		}
	}
	if s.Filter != nil {
		return s.Filter.validate()
	}
	return nil
}

// Toggles enables the individual Process stages.
type Toggles struct {
	Sort   bool
	Filter bool
	Page   bool
}

// Result is the visible slice and the row count before paging.
type Result struct {
	Data  []Row
	Total int
}

// Process applies filter, sort and paging, in that order, skipping disabled
// stages. It does not modify rows; the returned Data shares the Row maps.
// A Take of zero or less means no limit.
func Process(rows []Row, state QueryState, t Toggles) Result {
	data := slices.Clone(rows)
	if data == nil {
		data = []Row{}
	}

	if t.Filter && state.Filter != nil {
		data = slices.DeleteFunc(data, func(r Row) bool { return !state.Filter.Matches(r) })
	}

	if t.Sort {
		if keys := activeSort(state.Sort); len(keys) > 0 {
			slices.SortStableFunc(data, func(a, b Row) int {
				for _, k := range keys {
					c := compareValues(a[k.Field], b[k.Field])
					if k.Dir == SortDesc {
						c = -c
					}
					if c != 0 {
						return c
					}
				}
				return 0
			})
		}
	}

	total := len(data)

	if t.Page {
		skip := min(max(state.Skip, 0), len(data))
		data = data[skip:]
		if state.Take > 0 && state.Take < len(data) {
			data = data[:state.Take]
		}
	}

	return Result{Data: data, Total: total}
}

func activeSort(sort []SortDescriptor) []SortDescriptor {
	keys := make([]SortDescriptor, 0, len(sort))
	for _, s := range sort {
		if s.Dir == SortAsc || s.Dir == SortDesc {
			keys = append(keys, s)
		}
	}
	return keys
}

// Matches reports whether row satisfies the tree.
func (c *CompositeFilter) Matches(row Row) bool {
	if c == nil || len(c.Filters) == 0 {
		return true
	}
	if c.Logic == LogicOr {
		for _, f := range c.Filters {
			if f.Matches(row) {
				return true
			}
		}
		return false
	}
	for _, f := range c.Filters {
		if !f.Matches(row) {
			return false
		}
	}
	return true
}

func (c *CompositeFilter) validate() error {
	if c == nil {
		return nil
	}
	switch c.Logic {
	case "", LogicAnd, LogicOr:
	default:
		return fmt.Errorf("unknown filter logic %q", c.Logic)
	}
	for _, f := range c.Filters {
		if f == nil {
			return fmt.Errorf("nil filter")
		}
		if err := f.validate(); err != nil {
			return err
		}
	}
	return nil
}

// UnmarshalJSON decodes children as composites when they carry a
// "filters" key and as descriptors otherwise.
func (c *CompositeFilter) UnmarshalJSON(b []byte) error {
	var raw struct {
		Logic   Logic             `json:"logic"`
		Filters []json.RawMessage `json:"filters"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	c.Logic = Logic(strings.ToLower(string(raw.Logic)))
	c.Filters = make([]Filter, 0, len(raw.Filters))
	for _, r := range raw.Filters {
		if gjson.GetBytes(r, "filters").Exists() {
			child := &CompositeFilter{}
			if err := json.Unmarshal(r, child); err != nil {
				return err
			}
			c.Filters = append(c.Filters, child)
			continue
		}
		var fd FilterDescriptor
		if err := json.Unmarshal(r, &fd); err != nil {
			return err
		}
		c.Filters = append(c.Filters, fd)
	}
	return nil
}

func (f FilterDescriptor) ignoreCase() bool {
	return f.IgnoreCase == nil || *f.IgnoreCase
}

func (f FilterDescriptor) validate() error {
	if f.Field == "" {
		return fmt.Errorf("filter without field")
	}
	if _, ok := knownOperators[f.Operator]; !ok {
		return fmt.Errorf("filter %s: unknown operator %q", f.Field, f.Operator)
	}
	return nil
}

// Matches evaluates the comparison against row[f.Field]. Unknown operators
// match nothing.
func (f FilterDescriptor) Matches(row Row) bool {
	v := row[f.Field]

	switch f.Operator {
	case OpIsNull:
		return v == nil
	case OpIsNotNull:
		return v != nil
	case OpIsEmpty:
		s, ok := v.(string)
		return ok && s == ""
	case OpIsNotEmpty:
		s, ok := v.(string)
		return !ok || s != ""

	case OpContains, OpDoesNotContain, OpStartsWith, OpEndsWith:
		have, want := toString(v), toString(f.Value)
		if f.ignoreCase() {
			have, want = strings.ToLower(have), strings.ToLower(want)
		}
		switch f.Operator {
		case OpContains:
			return strings.Contains(have, want)
		case OpDoesNotContain:
			return !strings.Contains(have, want)
		case OpStartsWith:
			return strings.HasPrefix(have, want)
		default:
			return strings.HasSuffix(have, want)
		}

	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte:
		c, ok := compareToFilter(v, f.Value, f.ignoreCase())
		if !ok {
			return f.Operator == OpNeq
		}
		switch f.Operator {
		case OpEq:
			return c == 0
		case OpNeq:
			return c != 0
		case OpLt:
			return c < 0
		case OpLte:
			return c <= 0
		case OpGt:
			return c > 0
		default:
			return c >= 0
		}
	}
	return false
}
