// Package formatters holds helpers for rendering column values in
// human-friendly form. Each has a Func-typed counterpart so it can be set
// directly on a table view's Formatters map.
package formatters

import (
	"html/template"
	"time"
)

// Func formats a single field value for display.
type Func func(value any) any

const datetimeLayout = "02/01/2006 at 03:04PM MST"

// Bool renders true as yes and anything else as no.
func Bool(value any, yes, no string) string {
	if b, ok := value.(bool); ok && b {
		return yes
	}
	if b, ok := value.(*bool); ok && b != nil && *b {
		return yes
	}
	return no
}

// BoolAdmin renders booleans as bootstrap icons for admin tables.
func BoolAdmin(value any) template.HTML {
	return template.HTML(Bool(value, `<i class="icon-ok"></i>`, `<i class="icon-remove"></i>`))
}

// Datetime renders t in UTC, e.g. "11/04/2014 at 10:49AM UTC". Zero times
// render as the empty string.
func Datetime(value any) string {
	var t time.Time
	switch v := value.(type) {
	case time.Time:
		t = v
	case *time.Time:
		if v == nil {
			return ""
		}
		t = *v
	default:
		return ""
	}
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(datetimeLayout)
}

// YesNo is Bool with the default labels, as a Func.
func YesNo(value any) any { return Bool(value, "Yes", "No") }

// BoolIcons is BoolAdmin as a Func.
func BoolIcons(value any) any { return BoolAdmin(value) }

// DatetimeUTC is Datetime as a Func.
func DatetimeUTC(value any) any { return Datetime(value) }

// FuncMap exposes the formatters to html/template.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"bool_formatter":       func(v any) string { return Bool(v, "Yes", "No") },
		"bool_admin_formatter": BoolAdmin,
		"datetime_formatter":   Datetime,
	}
}
