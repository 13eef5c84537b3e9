// intent.go defines the structured intent the model must return and the
// strict parser that accepts it.
//
// The model is asked for JSON but routinely wraps it in prose or code
// fences, uses single quotes or leaves keys bare. ParseIntent extracts
// the first object, tolerates those slips, and then validates the
// result into a closed set of actions.
package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Action is the closed set of things an intent can ask for.
type Action string

const (
	ActionSelect    Action = "select"
	ActionInsert    Action = "insert"
	ActionUpdate    Action = "update"
	ActionDelete    Action = "delete"
	ActionNone      Action = "none"
	ActionWebSearch Action = "web_search"
)

// IsDBAction reports whether the action runs SQL.
func (a Action) IsDBAction() bool {
	switch a {
	case ActionSelect, ActionInsert, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

func (a Action) valid() bool {
	return a.IsDBAction() || a == ActionNone || a == ActionWebSearch
}

// Intent is what a user message asks the database to do.
type Intent struct {
	Action    Action         `json:"action"`
	Table     string         `json:"table,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Condition string         `json:"condition,omitempty"`
	Fields    []string       `json:"fields,omitempty"`
	Limit     int            `json:"limit,omitempty"`
}

// None is the intent for messages that need no database action.
func None() Intent { return Intent{Action: ActionNone} }

var ErrNoJSON = errors.New("no JSON found in AI response")

// ParseIntent extracts and validates an Intent from a model reply.
func ParseIntent(response string) (Intent, error) {
	jsonStr := extractJSON(response)
	if jsonStr == "" {
		return Intent{}, ErrNoJSON
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		if err2 := json.Unmarshal([]byte(loosen(jsonStr)), &raw); err2 != nil {
			return Intent{}, fmt.Errorf("failed to parse intent JSON: %w", err)
		}
	}
	return intentFrom(raw)
}

func intentFrom(raw map[string]any) (Intent, error) {
	action, _ := raw["action"].(string)
	in := Intent{Action: Action(strings.ToLower(strings.TrimSpace(action)))}
	if !in.Action.valid() {
		return Intent{}, fmt.Errorf("unknown action %q", action)
	}
	if !in.Action.IsDBAction() {
		return Intent{Action: in.Action}, nil
	}

	table, _ := raw["table"].(string)
	in.Table = strings.TrimSpace(table)
	if in.Table == "" {
		return Intent{}, fmt.Errorf("%s intent without table", in.Action)
	}

	if c, ok := raw["condition"]; ok && c != nil {
		s, ok := c.(string)
		if !ok {
			return Intent{}, fmt.Errorf("condition must be a string")
		}
		in.Condition = strings.TrimSpace(s)
	}

	if d, ok := raw["data"]; ok && d != nil {
		m, ok := d.(map[string]any)
		if !ok {
			return Intent{}, fmt.Errorf("data must be an object")
		}
		in.Data = m
	}

	switch f := raw["fields"].(type) {
	case nil:
	case string:
		for _, part := range strings.Split(f, ",") {
			if part = strings.TrimSpace(part); part != "" {
				in.Fields = append(in.Fields, part)
			}
		}
	case []any:
		for _, v := range f {
			s, ok := v.(string)
			if !ok {
				return Intent{}, fmt.Errorf("fields must be strings")
			}
			in.Fields = append(in.Fields, strings.TrimSpace(s))
		}
	default:
		return Intent{}, fmt.Errorf("fields must be a list")
	}

	switch l := raw["limit"].(type) {
	case nil:
	case float64:
		in.Limit = int(l)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(l))
		if err != nil {
			return Intent{}, fmt.Errorf("limit %q is not a number", l)
		}
		in.Limit = n
	default:
		return Intent{}, fmt.Errorf("limit must be a number")
	}
	if in.Limit < 0 {
		in.Limit = 0
	}
	return in, nil
}

// extractJSON finds the first {...} JSON object in the text,
// handling markdown code fences and surrounding narrative.
func extractJSON(text string) string {
	if idx := strings.Index(text, "```json"); idx >= 0 {
		start := idx + len("```json")
		end := strings.Index(text[start:], "```")
		if end >= 0 {
			text = text[start : start+end]
		}
	} else if idx := strings.Index(text, "```"); idx >= 0 {
		start := idx + len("```")
		end := strings.Index(text[start:], "```")
		if end >= 0 && strings.HasPrefix(strings.TrimSpace(text[start:start+end]), "{") {
			text = text[start : start+end]
		}
	}

	// Braces inside string literals must not change the depth.
	depth := 0
	start := -1
	var quote rune
	escaped := false
	for i, ch := range text {
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == quote:
				quote = 0
			}
			continue
		}
		switch ch {
		case '"', '\'':
			if depth > 0 {
				quote = ch
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

var (
	singleQuoted  = regexp.MustCompile(`'((?:[^'\\]|\\.)*)'`)
	bareKey       = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// loosen repairs the common ways models break JSON: single-quoted
// strings, unquoted keys and trailing commas. Single-quoted strings are
// only rewritten outside double-quoted ones so apostrophes in values such
// as "nombre LIKE '%x%'" survive.
func loosen(s string) string {
	var sb strings.Builder
	inDouble := false
	last := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			inDouble = !inDouble
		case '\'':
			if inDouble {
				continue
			}
			loc := singleQuoted.FindStringSubmatchIndex(s[i:])
			if loc == nil || loc[0] != 0 {
				continue
			}
			inner := s[i+loc[2] : i+loc[3]]
			sb.WriteString(s[last:i])
			sb.WriteString(strconv.Quote(strings.ReplaceAll(inner, `\'`, `'`)))
			i += loc[1] - 1
			last = i + 1
		}
	}
	sb.WriteString(s[last:])
	out := bareKey.ReplaceAllString(sb.String(), `$1"$2":`)
	return trailingComma.ReplaceAllString(out, "$1")
}
