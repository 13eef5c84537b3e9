package sqlgen

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/mvrodados/mvrodados/db"
)

// ErrInvalidCondition is returned for WHERE fragments outside the
// supported grammar:
//
//	expr      = term { OR term }
//	term      = factor { AND factor }
//	factor    = NOT factor | "(" expr ")" | predicate
//	predicate = column ( cmp literal
//	                   | [NOT] LIKE literal
//	                   | IS [NOT] NULL
//	                   | [NOT] IN "(" literal { "," literal } ")"
//	                   | [NOT] BETWEEN literal AND literal )
//	cmp       = "=" | "<>" | "!=" | "<" | "<=" | ">" | ">="
var ErrInvalidCondition = errors.New("condición inválida")

// Where is a validated condition: SQL with '?' placeholders and its args.
type Where struct {
	SQL  string
	Args []any
}

// ParseCondition validates input against table's columns and returns it
// rewritten with quoted identifiers and bound literals.
func ParseCondition(input, table string, schema db.SchemaMap, dialect db.Dialect) (*Where, error) {
	toks, err := tokenize(input)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, fmt.Errorf("%w: vacía", ErrInvalidCondition)
	}
	p := &condParser{toks: toks, table: table, schema: schema, dialect: dialect}
	sql, err := p.expr()
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, fmt.Errorf("%w: %q inesperado", ErrInvalidCondition, p.peek().text)
	}
	return &Where{SQL: sql, Args: p.args}, nil
}

type tokKind int

const (
	tokIdent tokKind = iota
	tokQuotedIdent
	tokString
	tokNumber
	tokOp
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokKind
	text string
}

func tokenize(s string) ([]token, error) {
	var toks []token
	rs := []rune(s)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case r == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case r == ',':
			toks = append(toks, token{tokComma, ","})
			i++
		case r == '\'':
			var sb strings.Builder
			j := i + 1
			closed := false
			for j < len(rs) {
				if rs[j] == '\'' {
					if j+1 < len(rs) && rs[j+1] == '\'' {
						sb.WriteRune('\'')
						j += 2
						continue
					}
					closed = true
					j++
					break
				}
				sb.WriteRune(rs[j])
				j++
			}
			if !closed {
				return nil, fmt.Errorf("%w: texto sin cerrar", ErrInvalidCondition)
			}
			toks = append(toks, token{tokString, sb.String()})
			i = j
		case r == '[' || r == '"':
			end := ']'
			if r == '"' {
				end = '"'
			}
			j := i + 1
			for j < len(rs) && rs[j] != end {
				j++
			}
			if j >= len(rs) {
				return nil, fmt.Errorf("%w: identificador sin cerrar", ErrInvalidCondition)
			}
			toks = append(toks, token{tokQuotedIdent, string(rs[i+1 : j])})
			i = j + 1
		case strings.ContainsRune("=<>!", r):
			j := i + 1
			if j < len(rs) && strings.ContainsRune("=>", rs[j]) {
				j++
			}
			op := string(rs[i:j])
			switch op {
			case "=", "<>", "!=", "<", "<=", ">", ">=":
			default:
				return nil, fmt.Errorf("%w: operador %q", ErrInvalidCondition, op)
			}
			toks = append(toks, token{tokOp, op})
			i = j
		case unicode.IsDigit(r) || (r == '-' && i+1 < len(rs) && unicode.IsDigit(rs[i+1])):
			j := i + 1
			for j < len(rs) && (unicode.IsDigit(rs[j]) || rs[j] == '.') {
				j++
			}
			toks = append(toks, token{tokNumber, string(rs[i:j])})
			i = j
		case unicode.IsLetter(r) || r == '_':
			j := i + 1
			for j < len(rs) && (unicode.IsLetter(rs[j]) || unicode.IsDigit(rs[j]) || rs[j] == '_' || rs[j] == '.') {
				j++
			}
			toks = append(toks, token{tokIdent, string(rs[i:j])})
			i = j
		default:
			return nil, fmt.Errorf("%w: carácter %q", ErrInvalidCondition, r)
		}
	}
	return toks, nil
}

type condParser struct {
	toks    []token
	pos     int
	table   string
	schema  db.SchemaMap
	dialect db.Dialect
	args    []any
}

func (p *condParser) done() bool { return p.pos >= len(p.toks) }

func (p *condParser) peek() token {
	if p.done() {
		return token{kind: -1}
	}
	return p.toks[p.pos]
}

func (p *condParser) keyword(word string) bool {
	t := p.peek()
	if t.kind == tokIdent && strings.EqualFold(t.text, word) {
		p.pos++
		return true
	}
	return false
}

func (p *condParser) expect(kind tokKind, what string) error {
	if p.peek().kind != kind {
		return fmt.Errorf("%w: se esperaba %s", ErrInvalidCondition, what)
	}
	p.pos++
	return nil
}

func (p *condParser) expr() (string, error) {
	left, err := p.term()
	if err != nil {
		return "", err
	}
	for p.keyword("OR") {
		right, err := p.term()
		if err != nil {
			return "", err
		}
		left = left + " OR " + right
	}
	return left, nil
}

func (p *condParser) term() (string, error) {
	left, err := p.factor()
	if err != nil {
		return "", err
	}
	for p.keyword("AND") {
		right, err := p.factor()
		if err != nil {
			return "", err
		}
		left = left + " AND " + right
	}
	return left, nil
}

func (p *condParser) factor() (string, error) {
	if p.keyword("NOT") {
		inner, err := p.factor()
		if err != nil {
			return "", err
		}
		return "NOT " + inner, nil
	}
	if p.peek().kind == tokLParen {
		p.pos++
		inner, err := p.expr()
		if err != nil {
			return "", err
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			return "", err
		}
		return "(" + inner + ")", nil
	}
	return p.predicate()
}

func (p *condParser) predicate() (string, error) {
	col, err := p.column()
	if err != nil {
		return "", err
	}

	if t := p.peek(); t.kind == tokOp {
		p.pos++
		op := t.text
		if op == "!=" {
			op = "<>"
		}
		if err := p.literal(); err != nil {
			return "", err
		}
		return col + " " + op + " ?", nil
	}

	if p.keyword("IS") {
		if p.keyword("NOT") {
			if !p.keyword("NULL") {
				return "", fmt.Errorf("%w: se esperaba NULL", ErrInvalidCondition)
			}
			return col + " IS NOT NULL", nil
		}
		if !p.keyword("NULL") {
			return "", fmt.Errorf("%w: se esperaba NULL", ErrInvalidCondition)
		}
		return col + " IS NULL", nil
	}

	not := ""
	if p.keyword("NOT") {
		not = "NOT "
	}
	switch {
	case p.keyword("LIKE"):
		if err := p.literal(); err != nil {
			return "", err
		}
		return col + " " + not + "LIKE ?", nil
	case p.keyword("IN"):
		if err := p.expect(tokLParen, "("); err != nil {
			return "", err
		}
		marks := []string{}
		for {
			if err := p.literal(); err != nil {
				return "", err
			}
			marks = append(marks, "?")
			if p.peek().kind == tokComma {
				p.pos++
				continue
			}
			break
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			return "", err
		}
		return col + " " + not + "IN (" + strings.Join(marks, ", ") + ")", nil
	case p.keyword("BETWEEN"):
		if err := p.literal(); err != nil {
			return "", err
		}
		if !p.keyword("AND") {
			return "", fmt.Errorf("%w: BETWEEN sin AND", ErrInvalidCondition)
		}
		if err := p.literal(); err != nil {
			return "", err
		}
		return col + " " + not + "BETWEEN ? AND ?", nil
	}
	return "", fmt.Errorf("%w: falta operador después de %s", ErrInvalidCondition, col)
}

// column consumes an identifier and returns it quoted. A "table." prefix
// naming the same table is accepted and dropped.
func (p *condParser) column() (string, error) {
	t := p.peek()
	if t.kind != tokIdent && t.kind != tokQuotedIdent {
		return "", fmt.Errorf("%w: se esperaba una columna", ErrInvalidCondition)
	}
	name := t.text
	if t.kind == tokIdent {
		if isReserved(name) {
			return "", fmt.Errorf("%w: se esperaba una columna, no %s", ErrInvalidCondition, name)
		}
		if i := strings.LastIndex(name, "."); i >= 0 {
			if !strings.EqualFold(name[:i], p.table) {
				return "", fmt.Errorf("%w: tabla %s", ErrInvalidCondition, name[:i])
			}
			name = name[i+1:]
		}
	}
	col, err := p.schema.ResolveColumn(p.table, name)
	if err != nil {
		return "", err
	}
	p.pos++
	return p.dialect.Quote(col.Name), nil
}

func (p *condParser) literal() error {
	t := p.peek()
	switch t.kind {
	case tokString:
		p.args = append(p.args, t.text)
	case tokNumber:
		if n, err := strconv.ParseInt(t.text, 10, 64); err == nil {
			p.args = append(p.args, n)
		} else if f, err := strconv.ParseFloat(t.text, 64); err == nil {
			p.args = append(p.args, f)
		} else {
			return fmt.Errorf("%w: número %q", ErrInvalidCondition, t.text)
		}
	case tokIdent:
		switch strings.ToUpper(t.text) {
		case "TRUE":
			p.args = append(p.args, int64(1))
		case "FALSE":
			p.args = append(p.args, int64(0))
		default:
			return fmt.Errorf("%w: se esperaba un valor, no %s", ErrInvalidCondition, t.text)
		}
	default:
		return fmt.Errorf("%w: se esperaba un valor", ErrInvalidCondition)
	}
	p.pos++
	return nil
}

var reserved = map[string]bool{
	"AND": true, "OR": true, "NOT": true, "LIKE": true, "IS": true, "NULL": true,
	"IN": true, "BETWEEN": true, "TRUE": true, "FALSE": true,
	"SELECT": true, "UNION": true, "DROP": true, "EXEC": true,
}

func isReserved(word string) bool { return reserved[strings.ToUpper(word)] }
