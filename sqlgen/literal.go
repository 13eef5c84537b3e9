package sqlgen

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatValue renders v as a SQL literal: NULL, bare numbers, 1/0 for
// booleans, 'YYYY-MM-DD' for times and single-quoted text with embedded
// quotes doubled.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if t {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return "'" + t.Format("2006-01-02") + "'"
	case string:
		return "'" + strings.ReplaceAll(t, "'", "''") + "'"
	default:
		return "'" + strings.ReplaceAll(fmt.Sprint(t), "'", "''") + "'"
	}
}

// Inline substitutes each '?' placeholder outside quotes with its literal.
// The result is for display only and is never executed.
func Inline(sql string, args []any) string {
	var sb strings.Builder
	n := 0
	var quote rune
	for _, r := range sql {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '[':
			quote = ']'
		case r == '?' && n < len(args):
			sb.WriteString(FormatValue(args[n]))
			n++
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
