package dashboard

import (
	"sort"
	"strings"

	"github.com/outofoffice3/org-guardrails/internal/shared"
)

// AllOption selects every value of a column.
const AllOption = "All"

// FilterDef is a multiselect filter over one column.  Key is the query parameter name.
type FilterDef struct {
	Column string `json:"column"`
	Label  string `json:"label"`
	Key    string `json:"key"`
}

// FilterView is the state of one filter after it has been applied.
type FilterView struct {
	FilterDef
	Options  []string `json:"options"`
	Selected []string `json:"selected"`
}

// IsSelected reports whether option is part of the selection.
func (v FilterView) IsSelected(option string) bool {
	for _, selected := range v.Selected {
		if selected == option {
			return true
		}
	}
	return false
}

// DefaultFilters are applied in order, each narrowing what the next one sees.
var DefaultFilters = []FilterDef{
	{Column: shared.ColumnCompliance, Label: "Compliance Status", Key: "compliance"},
	{Column: shared.ColumnAccountId, Label: "Account ID", Key: "accountId"},
	{Column: shared.ColumnControlName, Label: "Control Name", Key: "controlName"},
	{Column: shared.ColumnResourceType, Label: "Resource Type", Key: "resourceType"},
}

// NormalizeSelection turns an empty selection into All and drops All when other values
// are selected.  Duplicates and blanks are removed.
func NormalizeSelection(selected []string) []string {
	values := make([]string, 0, len(selected))
	seen := make(map[string]struct{}, len(selected))
	for _, value := range selected {
		value = strings.TrimSpace(value)
		if value == "" || value == AllOption {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		values = append(values, value)
	}
	if len(values) == 0 {
		return []string{AllOption}
	}
	return values
}

// Options returns All followed by the sorted unique non empty values of column.
func Options(table Table, column int) []string {
	seen := make(map[string]struct{})
	values := []string{}
	for _, row := range table.Rows {
		value := row[column]
		if value == "" {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		values = append(values, value)
	}
	sort.Strings(values)
	return append([]string{AllOption}, values...)
}

// ApplyFilters narrows table with each filter whose column is present.  Options for a filter
// come from the rows left by the filters before it.
func ApplyFilters(table Table, filters []FilterDef, selections map[string][]string) (Table, []FilterView) {
	views := make([]FilterView, 0, len(filters))
	current := table
	for _, def := range filters {
		column, ok := current.ColumnIndex(def.Column)
		if !ok {
			continue
		}
		view := FilterView{
			FilterDef: def,
			Options:   Options(current, column),
			Selected:  NormalizeSelection(selections[def.Key]),
		}
		views = append(views, view)
		if view.IsSelected(AllOption) {
			continue
		}

		keep := make(map[string]struct{}, len(view.Selected))
		for _, value := range view.Selected {
			keep[value] = struct{}{}
		}
		rows := make([][]string, 0, len(current.Rows))
		for _, row := range current.Rows {
			if _, ok := keep[row[column]]; ok {
				rows = append(rows, row)
			}
		}
		current = Table{Columns: current.Columns, Rows: rows}
	}
	return current, views
}
