package workbook

import (
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const isoDate = "2006-01-02"

// DateLocale carries the date conventions of one export or import.
type DateLocale struct {
	// DisplayLayout is the Go layout users type dates in, e.g. "02/01/2006".
	DisplayLayout string
	// NumFmt is the spreadsheet number format matching DisplayLayout.
	NumFmt   string
	Location *time.Location
}

func DefaultDateLocale() DateLocale {
	return DateLocale{DisplayLayout: "02/01/2006", NumFmt: "dd/mm/yyyy", Location: time.UTC}
}

var layoutNumFmt = strings.NewReplacer("2006", "yyyy", "01", "mm", "02", "dd")

// WithLayout returns l with layout as display layout and the matching number
// format. An empty layout leaves l unchanged.
func (l DateLocale) WithLayout(layout string) DateLocale {
	if layout == "" {
		return l
	}
	l.DisplayLayout = layout
	l.NumFmt = layoutNumFmt.Replace(layout)
	return l
}

func (l DateLocale) loc() *time.Location {
	if l.Location == nil {
		return time.UTC
	}
	return l.Location
}

func (l DateLocale) layouts() []string {
	out := []string{isoDate, time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05"}
	if l.DisplayLayout != "" {
		out = append(out, l.DisplayLayout)
	}
	return out
}

// ParseDate accepts ISO dates, RFC3339 timestamps and the locale display
// layout as text, and Excel serials as numbers. Digits typed as text are not
// serials. The result is truncated to midnight UTC.
func (l DateLocale) ParseDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return dateOnly(t.In(l.loc())), true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return dateOnly(t.In(l.loc())), true
	case float64:
		return excelSerial(t)
	case int:
		return excelSerial(float64(t))
	case int64:
		return excelSerial(float64(t))
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range l.layouts() {
			if parsed, err := time.ParseInLocation(layout, s, l.loc()); err == nil {
				return dateOnly(parsed), true
			}
		}
	}
	return time.Time{}, false
}

// FormatISO renders v as YYYY-MM-DD when it parses as a date, else returns v untouched.
func (l DateLocale) FormatISO(v any) any {
	if t, ok := l.ParseDate(v); ok {
		return t.Format(isoDate)
	}
	return v
}

func excelSerial(f float64) (time.Time, bool) {
	if f < 1 {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return time.Time{}, false
	}
	return dateOnly(t), true
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
