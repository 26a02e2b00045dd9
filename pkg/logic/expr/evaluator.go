package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Context is the data an expression may read. Identifiers resolve against
// Data unless prefixed with `row.`; a leading `data.` is accepted and
// stripped.
type Context struct {
	Data map[string]any
	Row  map[string]any
}

// Evaluator evaluates the restricted boolean grammar used by
// `conditional.expression` and `expression` triggers. It never executes user
// code: the grammar only reads values and compares them.
//
// Supported forms:
//   - truthiness checks: `enabled`, `!enabled`
//   - comparisons against literals: `role == "admin"`, `age >= 18`, `count != 3`
//   - comparisons against other fields: `data.total > data.limit`
//   - boolean composition with `&&`, `||` and parentheses
//
// Parsed programs are cached per source string.
type Evaluator struct {
	cache sync.Map
}

// New constructs an evaluator.
func New() *Evaluator { return &Evaluator{} }

// Eval parses (or reuses) rule and evaluates it. Blank rules are true.
func (e *Evaluator) Eval(rule string, ctx Context) (bool, error) {
	program, err := e.Compile(rule)
	if err != nil {
		return false, err
	}
	return program.Eval(ctx)
}

// Program is a parsed expression.
type Program struct {
	root exprNode
}

// Eval evaluates the program against ctx.
func (p *Program) Eval(ctx Context) (bool, error) {
	if p == nil || p.root == nil {
		return true, nil
	}
	return p.root.eval(ctx)
}

// Compile parses rule without evaluating it.
func (e *Evaluator) Compile(rule string) (*Program, error) {
	trimmed := strings.TrimSpace(rule)
	if cached, ok := e.cache.Load(trimmed); ok {
		return cached.(*Program), nil
	}
	program, err := compile(trimmed)
	if err != nil {
		return nil, err
	}
	e.cache.Store(trimmed, program)
	return program, nil
}

func compile(rule string) (*Program, error) {
	if rule == "" {
		return &Program{}, nil
	}
	tokens, err := tokenize(rule)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return &Program{}, nil
	}
	root, err := parseExpression(tokens)
	if err != nil {
		return nil, err
	}
	return &Program{root: root}, nil
}

type tokenKind int

const (
	tokenIdentifier tokenKind = iota
	tokenString
	tokenNumber
	tokenBool
	tokenNull
	tokenEq
	tokenNeq
	tokenLt
	tokenLte
	tokenGt
	tokenGte
	tokenAnd
	tokenOr
	tokenNot
	tokenLParen
	tokenRParen
)

var operatorText = map[tokenKind]string{
	tokenEq:  "==",
	tokenNeq: "!=",
	tokenLt:  "<",
	tokenLte: "<=",
	tokenGt:  ">",
	tokenGte: ">=",
}

type token struct {
	kind tokenKind
	raw  string
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isDelimiter(ch byte) bool {
	return isSpace(ch) || strings.IndexByte("()!=&|<>", ch) >= 0
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0

	peek := func(offset int) byte {
		if i+offset >= len(input) {
			return 0
		}
		return input[i+offset]
	}

	for i < len(input) {
		ch := input[i]
		if isSpace(ch) {
			i++
			continue
		}

		switch ch {
		case '(':
			i++
			tokens = append(tokens, token{kind: tokenLParen, raw: "("})
		case ')':
			i++
			tokens = append(tokens, token{kind: tokenRParen, raw: ")"})
		case '!':
			i++
			if peek(0) != '=' {
				tokens = append(tokens, token{kind: tokenNot, raw: "!"})
				continue
			}
			i++
			if peek(0) == '=' {
				i++
			}
			tokens = append(tokens, token{kind: tokenNeq, raw: "!="})
		case '=':
			if peek(1) != '=' {
				return nil, errors.New("logic/expr: unexpected '='; use '=='")
			}
			i += 2
			if peek(0) == '=' {
				i++
			}
			tokens = append(tokens, token{kind: tokenEq, raw: "=="})
		case '<', '>':
			i++
			kind := tokenLt
			if ch == '>' {
				kind = tokenGt
			}
			if peek(0) == '=' {
				i++
				kind++
			}
			tokens = append(tokens, token{kind: kind, raw: operatorText[kind]})
		case '&':
			if peek(1) != '&' {
				return nil, errors.New("logic/expr: unexpected '&'; use '&&'")
			}
			i += 2
			tokens = append(tokens, token{kind: tokenAnd, raw: "&&"})
		case '|':
			if peek(1) != '|' {
				return nil, errors.New("logic/expr: unexpected '|'; use '||'")
			}
			i += 2
			tokens = append(tokens, token{kind: tokenOr, raw: "||"})
		case '"', '\'':
			value, next, err := readString(input, i)
			if err != nil {
				return nil, err
			}
			i = next
			tokens = append(tokens, token{kind: tokenString, raw: value})
		default:
			start := i
			for i < len(input) && !isDelimiter(input[i]) {
				i++
			}
			raw := input[start:i]
			switch strings.ToLower(raw) {
			case "true", "false":
				tokens = append(tokens, token{kind: tokenBool, raw: strings.ToLower(raw)})
			case "null", "nil", "undefined":
				tokens = append(tokens, token{kind: tokenNull, raw: "null"})
			case "and":
				tokens = append(tokens, token{kind: tokenAnd, raw: "&&"})
			case "or":
				tokens = append(tokens, token{kind: tokenOr, raw: "||"})
			case "not":
				tokens = append(tokens, token{kind: tokenNot, raw: "!"})
			default:
				if looksLikeNumber(raw) {
					tokens = append(tokens, token{kind: tokenNumber, raw: raw})
				} else {
					tokens = append(tokens, token{kind: tokenIdentifier, raw: raw})
				}
			}
		}
	}

	return tokens, nil
}

// readString scans a quoted literal starting at input[start] and returns its
// unquoted value and the index after the closing quote.
func readString(input string, start int) (string, int, error) {
	quote := input[start]
	escaped := false
	for i := start + 1; i < len(input); i++ {
		c := input[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c != quote {
			continue
		}
		body := input[start+1 : i]
		if quote == '\'' {
			body = strings.ReplaceAll(strings.ReplaceAll(body, `\'`, `'`), `"`, `\"`)
		}
		value, err := strconv.Unquote(`"` + body + `"`)
		if err != nil {
			return "", 0, fmt.Errorf("logic/expr: invalid string literal: %w", err)
		}
		return value, i + 1, nil
	}
	return "", 0, errors.New("logic/expr: unterminated string literal")
}

func looksLikeNumber(raw string) bool {
	if raw == "" || strings.IndexByte("0123456789+-.", raw[0]) < 0 {
		return false
	}
	_, err := strconv.ParseFloat(raw, 64)
	return err == nil
}

type exprNode interface {
	eval(ctx Context) (bool, error)
}

type exprOr struct {
	left  exprNode
	right exprNode
}

func (n exprOr) eval(ctx Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || ok {
		return ok, err
	}
	return n.right.eval(ctx)
}

type exprAnd struct {
	left  exprNode
	right exprNode
}

func (n exprAnd) eval(ctx Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || !ok {
		return false, err
	}
	return n.right.eval(ctx)
}

type exprNot struct {
	inner exprNode
}

func (n exprNot) eval(ctx Context) (bool, error) {
	ok, err := n.inner.eval(ctx)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

type operandKind int

const (
	operandString operandKind = iota
	operandNumber
	operandBool
	operandNull
	operandRef
)

type operand struct {
	kind operandKind
	raw  string
	num  float64
}

func (o operand) resolve(ctx Context) any {
	switch o.kind {
	case operandRef:
		value, _ := lookup(ctx, o.raw)
		return value
	case operandNumber:
		return o.num
	case operandBool:
		return o.raw == "true"
	case operandNull:
		return nil
	default:
		return o.raw
	}
}

type exprCompare struct {
	identifier string
	op         tokenKind
	right      operand
}

func (n exprCompare) eval(ctx Context) (bool, error) {
	value, _ := lookup(ctx, n.identifier)

	switch n.right.kind {
	case operandNull:
		switch n.op {
		case tokenEq:
			return value == nil, nil
		case tokenNeq:
			return value != nil, nil
		}
		return false, fmt.Errorf("logic/expr: unsupported operator %q for null literal", operatorText[n.op])
	case operandBool:
		want := n.right.raw == "true"
		got, _ := coerceBool(value)
		switch n.op {
		case tokenEq:
			return got == want, nil
		case tokenNeq:
			return got != want, nil
		}
		return false, fmt.Errorf("logic/expr: unsupported operator %q for bool literal", operatorText[n.op])
	}

	other := n.right.resolve(ctx)
	if left, ok := coerceNumber(value); ok {
		if right, ok := coerceNumber(other); ok {
			return compareNumbers(n.op, left, right), nil
		}
	}
	if n.op != tokenEq && n.op != tokenNeq && (value == nil || other == nil) {
		return false, nil
	}
	return compareStrings(n.op, coerceString(value), coerceString(other)), nil
}

func compareNumbers(op tokenKind, left, right float64) bool {
	switch op {
	case tokenEq:
		return left == right
	case tokenNeq:
		return left != right
	case tokenLt:
		return left < right
	case tokenLte:
		return left <= right
	case tokenGt:
		return left > right
	case tokenGte:
		return left >= right
	}
	return false
}

func compareStrings(op tokenKind, left, right string) bool {
	switch op {
	case tokenEq:
		return left == right
	case tokenNeq:
		return left != right
	case tokenLt:
		return left < right
	case tokenLte:
		return left <= right
	case tokenGt:
		return left > right
	case tokenGte:
		return left >= right
	}
	return false
}

type exprTruthy struct {
	identifier string
}

func (n exprTruthy) eval(ctx Context) (bool, error) {
	value, ok := lookup(ctx, n.identifier)
	if !ok {
		return false, nil
	}
	return truthy(value), nil
}

type tokenStream struct {
	tokens []token
	pos    int
}

func parseExpression(tokens []token) (exprNode, error) {
	stream := &tokenStream{tokens: tokens}
	node, err := parseOr(stream)
	if err != nil {
		return nil, err
	}
	if stream.pos < len(stream.tokens) {
		return nil, fmt.Errorf("logic/expr: unexpected token %q", stream.tokens[stream.pos].raw)
	}
	return node, nil
}

func parseOr(stream *tokenStream) (exprNode, error) {
	left, err := parseAnd(stream)
	if err != nil {
		return nil, err
	}
	for stream.match(tokenOr) {
		right, err := parseAnd(stream)
		if err != nil {
			return nil, err
		}
		left = exprOr{left: left, right: right}
	}
	return left, nil
}

func parseAnd(stream *tokenStream) (exprNode, error) {
	left, err := parseUnary(stream)
	if err != nil {
		return nil, err
	}
	for stream.match(tokenAnd) {
		right, err := parseUnary(stream)
		if err != nil {
			return nil, err
		}
		left = exprAnd{left: left, right: right}
	}
	return left, nil
}

func parseUnary(stream *tokenStream) (exprNode, error) {
	if stream.match(tokenNot) {
		inner, err := parseUnary(stream)
		if err != nil {
			return nil, err
		}
		return exprNot{inner: inner}, nil
	}
	return parsePrimary(stream)
}

func parsePrimary(stream *tokenStream) (exprNode, error) {
	if stream.match(tokenLParen) {
		inner, err := parseOr(stream)
		if err != nil {
			return nil, err
		}
		if !stream.match(tokenRParen) {
			return nil, errors.New("logic/expr: missing closing ')'")
		}
		return inner, nil
	}

	ident, ok := stream.consume(tokenIdentifier)
	if !ok {
		if stream.pos >= len(stream.tokens) {
			return nil, errors.New("logic/expr: empty expression")
		}
		return nil, fmt.Errorf("logic/expr: expected identifier, got %q", stream.tokens[stream.pos].raw)
	}

	for _, op := range []tokenKind{tokenEq, tokenNeq, tokenLt, tokenLte, tokenGt, tokenGte} {
		if !stream.match(op) {
			continue
		}
		right, err := stream.consumeOperand()
		if err != nil {
			return nil, err
		}
		return exprCompare{identifier: ident.raw, op: op, right: right}, nil
	}

	return exprTruthy{identifier: ident.raw}, nil
}

func (s *tokenStream) match(kind tokenKind) bool {
	_, ok := s.consume(kind)
	return ok
}

func (s *tokenStream) consume(kind tokenKind) (token, bool) {
	if s.pos >= len(s.tokens) || s.tokens[s.pos].kind != kind {
		return token{}, false
	}
	out := s.tokens[s.pos]
	s.pos++
	return out, true
}

func (s *tokenStream) consumeOperand() (operand, error) {
	if s.pos >= len(s.tokens) {
		return operand{}, errors.New("logic/expr: missing operand")
	}
	tok := s.tokens[s.pos]
	s.pos++
	switch tok.kind {
	case tokenString:
		return operand{kind: operandString, raw: tok.raw}, nil
	case tokenNumber:
		num, err := strconv.ParseFloat(tok.raw, 64)
		if err != nil {
			return operand{}, fmt.Errorf("logic/expr: invalid number literal %q", tok.raw)
		}
		return operand{kind: operandNumber, raw: tok.raw, num: num}, nil
	case tokenBool:
		return operand{kind: operandBool, raw: tok.raw}, nil
	case tokenNull:
		return operand{kind: operandNull, raw: "null"}, nil
	case tokenIdentifier:
		if isReference(tok.raw) {
			return operand{kind: operandRef, raw: tok.raw}, nil
		}
		// Bare words are compared as strings so `role == admin` still works.
		return operand{kind: operandString, raw: tok.raw}, nil
	default:
		return operand{}, fmt.Errorf("logic/expr: expected operand, got %q", tok.raw)
	}
}

func isReference(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.HasPrefix(lower, "data.") || strings.HasPrefix(lower, "row.")
}

func lookup(ctx Context, key string) (any, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false
	}
	lower := strings.ToLower(key)
	switch {
	case strings.HasPrefix(lower, "row."):
		return lookupMap(ctx.Row, key[len("row."):])
	case strings.HasPrefix(lower, "data."):
		return lookupMap(ctx.Data, key[len("data."):])
	}
	return lookupMap(ctx.Data, key)
}

func lookupMap(values map[string]any, path string) (any, bool) {
	if len(values) == 0 || path == "" {
		return nil, false
	}

	// Exact match first so flat keys containing dots still resolve.
	if v, ok := values[path]; ok {
		return v, true
	}

	var current any = values
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			return nil, false
		}
		typed, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		next, ok := typed[part]
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return strings.TrimSpace(v) != ""
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	}
	if n, ok := coerceNumber(value); ok {
		return n != 0
	}
	return true
}

func coerceBool(value any) (bool, bool) {
	if value == nil {
		return false, false
	}
	if s, ok := value.(string); ok {
		parsed, err := strconv.ParseBool(strings.TrimSpace(s))
		if err == nil {
			return parsed, true
		}
	}
	return truthy(value), true
}

func coerceNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func coerceString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(value)
	}
}
