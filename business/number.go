package business

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Number decodes a JSON number or a numeric string. HTML forms send
// select values as strings. Set is false when the field was absent,
// null or empty.
type Number struct {
	Value float64
	Set   bool
}

// Num builds a set Number.
func Num(v float64) Number { return Number{Value: v, Set: true} }

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = Number{}
		return nil
	}
	s := string(b)
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = Number{}
			return nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("número inválido %q", s)
	}
	*n = Number{Value: f, Set: true}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Set {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Int returns the value truncated to int64.
func (n Number) Int() int64 { return int64(n.Value) }

// arg returns the value for binding, nil when unset.
func (n Number) arg() any {
	if !n.Set {
		return nil
	}
	return n.Value
}

// intArg is arg for integer columns.
func (n Number) intArg() any {
	if !n.Set || n.Value == 0 {
		return nil
	}
	return n.Int()
}
