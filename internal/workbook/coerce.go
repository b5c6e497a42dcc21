package workbook

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Coerce converts a raw cell value to the Go value the backend expects for dt.
// Values that do not parse are returned unchanged.
func (l DateLocale) Coerce(dt Datatype, v any) any {
	switch dt {
	case Entero:
		if n, ok := toInt(v); ok {
			return n
		}
	case Decimal, Porcentaje:
		if f, ok := toFloat(v); ok {
			return f
		}
	case Fecha:
		if t, ok := l.ParseDate(v); ok {
			return t
		}
	case TrueFalse:
		return toBool(v)
	case TextoCorto, TextoLargo, Link:
		return l.toText(v)
	case FechaRango:
		if pair, ok := asPair(v); ok {
			return pair
		}
	}
	return v
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return integral(n)
	case string:
		s := strings.TrimSpace(n)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return integral(f)
		}
	}
	return 0, false
}

func integral(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func toBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.ToLower(strings.TrimSpace(b)) == "si"
	}
	return false
}

func (l DateLocale) toText(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(s, 10)
	case int:
		return strconv.Itoa(s)
	case bool:
		if s {
			return "Si"
		}
		return "No"
	case time.Time:
		return s.Format(isoDate)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}

// asPair accepts a two-element slice or its JSON text.
func asPair(v any) ([]any, bool) {
	switch p := v.(type) {
	case []any:
		if len(p) == 2 {
			return p, true
		}
	case []string:
		if len(p) == 2 {
			return []any{p[0], p[1]}, true
		}
	case string:
		var out []any
		if err := json.Unmarshal([]byte(strings.TrimSpace(p)), &out); err == nil && len(out) == 2 {
			return out, true
		}
	}
	return nil, false
}
