package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/eumgrid/internal/client/grid"
	"github.com/dmitrijs2005/eumgrid/internal/common"
	"github.com/dmitrijs2005/eumgrid/internal/dateutil"
)

// parseSort turns "field[:asc|desc]" arguments into sort descriptors.
func parseSort(specs []string) ([]grid.SortDescriptor, error) {
	out := make([]grid.SortDescriptor, 0, len(specs))
	for _, s := range specs {
		field, dir, _ := strings.Cut(s, ":")
		if field == "" {
			return nil, fmt.Errorf("%w: sort %q has no field", common.ErrValidation, s)
		}
		dir = strings.ToLower(dir)
		if dir == "" {
			dir = grid.SortAsc
		}
		if dir != grid.SortAsc && dir != grid.SortDesc {
			return nil, fmt.Errorf("%w: sort %q: direction must be asc or desc", common.ErrValidation, s)
		}
		out = append(out, grid.SortDescriptor{Field: field, Dir: dir})
	}
	return out, nil
}

// parseFilter decodes a composite filter. A bare descriptor object is
// wrapped in an "and" composite.
func parseFilter(s string) (*grid.CompositeFilter, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &probe); err != nil {
		return nil, fmt.Errorf("%w: filter: %w", common.ErrValidation, err)
	}
	if _, ok := probe["filters"]; !ok {
		var fd grid.FilterDescriptor
		if err := json.Unmarshal([]byte(s), &fd); err != nil {
			return nil, fmt.Errorf("%w: filter: %w", common.ErrValidation, err)
		}
		return grid.And(fd), nil
	}

	cf := &grid.CompositeFilter{}
	if err := json.Unmarshal([]byte(s), cf); err != nil {
		return nil, fmt.Errorf("%w: filter: %w", common.ErrValidation, err)
	}
	return cf, nil
}

// expandParams replaces date macros with YYYYMMDD values:
//
//	@today  @first (first weekday of the month)  @last (last day of the month)
//	@days:N  @months:N  @years:N  (N units ago)
//
// Anything else is passed through unchanged.
func expandParams(args []string, h dateutil.Helpers) ([]any, error) {
	out := make([]any, len(args))
	for i, a := range args {
		v, err := expandParam(a, h)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func expandParam(a string, h dateutil.Helpers) (string, error) {
	if !strings.HasPrefix(a, "@") {
		return a, nil
	}
	name, arg, hasArg := strings.Cut(a[1:], ":")

	var n int
	if hasArg {
		var err error
		if n, err = strconv.Atoi(arg); err != nil {
			return "", fmt.Errorf("%w: parameter %q: %w", common.ErrValidation, a, err)
		}
	}

	switch name {
	case "today":
		return h.Today(), nil
	case "first":
		return h.FirstWeekdayOfMonth(time.Time{}), nil
	case "last":
		return h.LastDayOfMonth(time.Time{}), nil
	case "days":
		return h.DaysAgo(n), nil
	case "months":
		return h.MonthsAgo(n), nil
	case "years":
		return h.YearsAgo(n), nil
	}
	return a, nil
}

// splitTypes accepts "S,S" as well as repeated --types flags.
func splitTypes(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, t := range strings.Split(s, ",") {
			if t = strings.TrimSpace(t); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}
