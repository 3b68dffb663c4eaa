package tools

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// DivisionByZeroError reports a zero divisor in /, // or %.
type DivisionByZeroError struct {
	Expression string
}

func (e *DivisionByZeroError) Error() string { return "division by zero" }

// InvalidExpressionError reports an expression that cannot be parsed
// or contains anything beyond numbers, parentheses and the whitelisted
// operators.
type InvalidExpressionError struct {
	Reason string
}

func (e *InvalidExpressionError) Error() string { return e.Reason }

// Calculate evaluates a restricted arithmetic expression. Supported:
// numeric literals, parentheses, binary + - * / // % ** and unary +/-.
// The expression is parsed into a small AST and only those node kinds
// are evaluated; identifiers and calls are rejected by the tokenizer,
// so no arbitrary code can run.
func Calculate(expression string) (float64, error) {
	if strings.TrimSpace(expression) == "" {
		return 0, &InvalidExpressionError{Reason: "expression cannot be empty"}
	}
	tokens, err := tokenize(expression)
	if err != nil {
		return 0, err
	}
	p := &parser{tokens: tokens}
	root, err := p.parseExpression()
	if err != nil {
		return 0, err
	}
	if !p.atEnd() {
		return 0, &InvalidExpressionError{Reason: fmt.Sprintf("unexpected %q", p.peek().text)}
	}
	value, err := eval(root)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(value) {
		return 0, &InvalidExpressionError{Reason: "expression has no real result"}
	}
	return value, nil
}

// ===== AST =====

type exprNode interface{ isExpr() }

type numberNode struct{ value float64 }

type unaryNode struct {
	op      string // "+" or "-"
	operand exprNode
}

type binaryNode struct {
	op          string // "+" "-" "*" "/" "//" "%" "**"
	left, right exprNode
}

func (numberNode) isExpr() {}
func (unaryNode) isExpr()  {}
func (binaryNode) isExpr() {}

// ===== Tokenizer =====

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokOp
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	runes := []rune(input)
	i := 0
	for i < len(runes) {
		c := runes[i]
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "("})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")"})
			i++
		case c == '+' || c == '-' || c == '%':
			tokens = append(tokens, token{kind: tokOp, text: string(c)})
			i++
		case c == '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				tokens = append(tokens, token{kind: tokOp, text: "**"})
				i += 2
			} else {
				tokens = append(tokens, token{kind: tokOp, text: "*"})
				i++
			}
		case c == '/':
			if i+1 < len(runes) && runes[i+1] == '/' {
				tokens = append(tokens, token{kind: tokOp, text: "//"})
				i += 2
			} else {
				tokens = append(tokens, token{kind: tokOp, text: "/"})
				i++
			}
		case unicode.IsDigit(c) || c == '.':
			start := i
			seenDot := false
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.') {
				if runes[i] == '.' {
					if seenDot {
						return nil, &InvalidExpressionError{Reason: fmt.Sprintf("invalid number at %q", string(runes[start:i+1]))}
					}
					seenDot = true
				}
				i++
			}
			text := string(runes[start:i])
			value, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, &InvalidExpressionError{Reason: fmt.Sprintf("invalid number %q", text)}
			}
			tokens = append(tokens, token{kind: tokNumber, text: text, num: value})
		case unicode.IsLetter(c) || c == '_':
			return nil, &InvalidExpressionError{Reason: fmt.Sprintf("identifiers are not allowed: %q", string(c))}
		default:
			return nil, &InvalidExpressionError{Reason: fmt.Sprintf("unsupported character %q", string(c))}
		}
	}
	tokens = append(tokens, token{kind: tokEOF})
	return tokens, nil
}

// ===== Parser =====
//
// Grammar, lowest to highest precedence:
//
//	expression := term (("+" | "-") term)*
//	term       := unary (("*" | "/" | "//" | "%") unary)*
//	unary      := ("+" | "-") unary | power
//	power      := primary ("**" unary)?        right-associative
//	primary    := NUMBER | "(" expression ")"
//
// Unary minus binds looser than "**" so -2**2 evaluates to -4, and the
// exponent admits a sign so 2**-1 evaluates to 0.5.

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) atEnd() bool { return p.peek().kind == tokEOF }

func (p *parser) takeOp(ops ...string) (string, bool) {
	t := p.peek()
	if t.kind != tokOp {
		return "", false
	}
	for _, op := range ops {
		if t.text == op {
			p.pos++
			return op, true
		}
	}
	return "", false
}

func (p *parser) parseExpression() (exprNode, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.takeOp("+", "-")
		if !ok {
			return left, nil
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) parseTerm() (exprNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.takeOp("*", "/", "//", "%")
		if !ok {
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) parseUnary() (exprNode, error) {
	if op, ok := p.takeOp("+", "-"); ok {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: op, operand: operand}, nil
	}
	return p.parsePower()
}

func (p *parser) parsePower() (exprNode, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if _, ok := p.takeOp("**"); ok {
		exponent, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return binaryNode{op: "**", left: base, right: exponent}, nil
	}
	return base, nil
}

func (p *parser) parsePrimary() (exprNode, error) {
	t := p.peek()
	switch t.kind {
	case tokNumber:
		p.pos++
		return numberNode{value: t.num}, nil
	case tokLParen:
		p.pos++
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, &InvalidExpressionError{Reason: "missing closing parenthesis"}
		}
		p.pos++
		return inner, nil
	case tokEOF:
		return nil, &InvalidExpressionError{Reason: "unexpected end of expression"}
	default:
		return nil, &InvalidExpressionError{Reason: fmt.Sprintf("unexpected %q", t.text)}
	}
}

// ===== Evaluation =====

func eval(n exprNode) (float64, error) {
	switch node := n.(type) {
	case numberNode:
		return node.value, nil

	case unaryNode:
		v, err := eval(node.operand)
		if err != nil {
			return 0, err
		}
		if node.op == "-" {
			return -v, nil
		}
		return v, nil

	case binaryNode:
		left, err := eval(node.left)
		if err != nil {
			return 0, err
		}
		right, err := eval(node.right)
		if err != nil {
			return 0, err
		}
		switch node.op {
		case "+":
			return left + right, nil
		case "-":
			return left - right, nil
		case "*":
			return left * right, nil
		case "/":
			if right == 0 {
				return 0, &DivisionByZeroError{}
			}
			return left / right, nil
		case "//":
			if right == 0 {
				return 0, &DivisionByZeroError{}
			}
			return math.Floor(left / right), nil
		case "%":
			if right == 0 {
				return 0, &DivisionByZeroError{}
			}
			return floorMod(left, right), nil
		case "**":
			if left == 0 && right < 0 {
				return 0, &DivisionByZeroError{}
			}
			return math.Pow(left, right), nil
		}
	}
	return 0, &InvalidExpressionError{Reason: "unsupported expression node"}
}

// floorMod gives the remainder the sign of the divisor, matching
// floored division.
func floorMod(a, b float64) float64 {
	r := math.Mod(a, b)
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}
	return r
}
