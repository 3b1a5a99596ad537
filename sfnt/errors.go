package sfnt

import "fmt"

// FontError is an error encountered while reading or editing a font table.
type FontError struct {
	Table   Tag    // the table where the error occurred
	Section string // specific section within the table, e.g. "LookupList"
	Issue   string // human-readable description of the issue
}

// Error implements the error interface.
func (e FontError) Error() string {
	return fmt.Sprintf("%s/%s: %s", e.Table, e.Section, e.Issue)
}

func errTable(table Tag, section, issue string) error {
	return FontError{Table: table, Section: section, Issue: issue}
}

func errTablef(table Tag, section, format string, v ...any) error {
	return FontError{Table: table, Section: section, Issue: fmt.Sprintf(format, v...)}
}
