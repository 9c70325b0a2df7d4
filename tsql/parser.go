package tsql

import (
	"fmt"
	"strings"

	"github.com/hollowloop/dvsql/dvtypes"
)

// Parser builds a Statement AST from a token stream produced by Lexer.
type Parser struct {
	lex  *Lexer
	cur  Token
	peek Token
}

// NewParser creates a Parser over the given source text.
func NewParser(input string) *Parser {
	p := &Parser{lex: NewLexer(input)}
	p.advance()
	p.advance()
	return p
}

func (p *Parser) advance() {
	p.cur = p.peek
	p.peek = p.lex.NextToken()
}

// parserState snapshots both the cached lookahead tokens and the
// underlying lexer's scan position, so backtracking (used for the small
// number of ambiguous productions below) replays rather than drops tokens.
type parserState struct {
	lexPos, lexLine, lexCol int
	cur, peek                Token
}

func (p *Parser) snapshot() parserState {
	return parserState{lexPos: p.lex.pos, lexLine: p.lex.line, lexCol: p.lex.column, cur: p.cur, peek: p.peek}
}

func (p *Parser) restore(s parserState) {
	p.lex.pos, p.lex.line, p.lex.column = s.lexPos, s.lexLine, s.lexCol
	p.cur, p.peek = s.cur, s.peek
}

func (p *Parser) errorf(format string, args ...any) error {
	return &dvtypes.QueryParseError{Line: p.cur.Line, Column: p.cur.Column, Message: fmt.Sprintf(format, args...)}
}

func (p *Parser) expect(t TokenType) (Token, error) {
	if p.cur.Type != t {
		return Token{}, p.errorf("unexpected token %q", p.cur.Literal)
	}
	tok := p.cur
	p.advance()
	return tok, nil
}

// ParseStatement parses exactly one statement from the input.
func (p *Parser) ParseStatement() (Statement, error) {
	switch p.cur.Type {
	case TokenSelect:
		return p.parseSelectStatement()
	case TokenUpdate:
		return p.parseUpdateStatement()
	case TokenDelete:
		return p.parseDeleteStatement()
	case TokenInsert:
		return p.parseInsertStatement()
	default:
		return nil, p.errorf("expected SELECT, UPDATE, DELETE, or INSERT, got %q", p.cur.Literal)
	}
}

func identText(tok Token) string { return tok.Literal }

func (p *Parser) parseIdentifier() (string, error) {
	if p.cur.Type != TokenIdent && p.cur.Type != TokenQuotedIdent {
		return "", p.errorf("expected identifier, got %q", p.cur.Literal)
	}
	name := identText(p.cur)
	p.advance()
	return name, nil
}

func (p *Parser) parseDottedIdentifier() ([]string, error) {
	first, err := p.parseIdentifier()
	if err != nil {
		return nil, err
	}
	parts := []string{first}
	for p.cur.Type == TokenDot {
		p.advance()
		if p.cur.Type == TokenStar {
			parts = append(parts, "*")
			p.advance()
			break
		}
		next, err := p.parseIdentifier()
		if err != nil {
			return nil, err
		}
		parts = append(parts, next)
	}
	return parts, nil
}

// ---- SELECT ----

func (p *Parser) parseSelectStatement() (*SelectStatement, error) {
	spec, err := p.parseQuerySpecification()
	if err != nil {
		return nil, err
	}
	return &SelectStatement{Spec: spec}, nil
}

func (p *Parser) parseQuerySpecification() (*QuerySpecification, error) {
	if _, err := p.expect(TokenSelect); err != nil {
		return nil, err
	}
	spec := &QuerySpecification{}
	if p.cur.Type == TokenDistinct {
		spec.Distinct = true
		p.advance()
	}
	if p.cur.Type == TokenTop {
		top, err := p.parseTopSpec()
		if err != nil {
			return nil, err
		}
		spec.Top = top
	}
	elements, err := p.parseSelectElements()
	if err != nil {
		return nil, err
	}
	spec.SelectElements = elements

	if p.cur.Type == TokenFrom {
		p.advance()
		ref, err := p.parseTableReference()
		if err != nil {
			return nil, err
		}
		spec.From = ref
	}
	if p.cur.Type == TokenWhere {
		p.advance()
		where, err := p.parseBooleanExpr()
		if err != nil {
			return nil, err
		}
		spec.Where = where
	}
	if p.cur.Type == TokenGroup {
		p.advance()
		if _, err := p.expect(TokenBy); err != nil {
			return nil, err
		}
		items, err := p.parseScalarExprList()
		if err != nil {
			return nil, err
		}
		spec.GroupBy = items
	}
	if p.cur.Type == TokenHaving {
		p.advance()
		having, err := p.parseBooleanExpr()
		if err != nil {
			return nil, err
		}
		spec.Having = having
	}
	if p.cur.Type == TokenOrder {
		p.advance()
		if _, err := p.expect(TokenBy); err != nil {
			return nil, err
		}
		items, err := p.parseOrderByList()
		if err != nil {
			return nil, err
		}
		spec.OrderBy = items
	}
	if p.cur.Type == TokenOffset {
		p.advance()
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRows); err != nil {
			return nil, err
		}
		spec.Offset = &n
		if p.cur.Type == TokenFetch {
			p.advance()
			if _, err := p.expect(TokenNext); err != nil {
				return nil, err
			}
			m, err := p.parseIntLiteral()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenRows); err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenOnly); err != nil {
				return nil, err
			}
			spec.Fetch = &m
		}
	}
	return spec, nil
}

func (p *Parser) parseTopSpec() (*TopSpec, error) {
	p.advance() // TOP
	paren := false
	if p.cur.Type == TokenLParen {
		paren = true
		p.advance()
	}
	n, err := p.parseIntLiteral()
	if err != nil {
		return nil, err
	}
	if paren {
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
	}
	top := &TopSpec{Value: n}
	if p.cur.Type == TokenPercent {
		top.Percent = true
		p.advance()
	}
	if p.cur.Type == TokenWith {
		p.advance()
		if _, err := p.expect(TokenTies); err != nil {
			return nil, err
		}
		top.WithTies = true
	}
	return top, nil
}

func (p *Parser) parseIntLiteral() (int, error) {
	if p.cur.Type != TokenInt {
		return 0, p.errorf("expected integer, got %q", p.cur.Literal)
	}
	n := 0
	for _, r := range p.cur.Literal {
		n = n*10 + int(r-'0')
	}
	p.advance()
	return n, nil
}

func (p *Parser) parseSelectElements() ([]SelectElement, error) {
	var elements []SelectElement
	for {
		el, err := p.parseSelectElement()
		if err != nil {
			return nil, err
		}
		elements = append(elements, el)
		if p.cur.Type != TokenComma {
			break
		}
		p.advance()
	}
	return elements, nil
}

func (p *Parser) parseSelectElement() (SelectElement, error) {
	if p.cur.Type == TokenStar {
		p.advance()
		return SelectElement{Star: true}, nil
	}
	if (p.cur.Type == TokenIdent || p.cur.Type == TokenQuotedIdent) && p.peek.Type == TokenDot {
		save := p.snapshot()
		qualifier := identText(p.cur)
		p.advance()
		p.advance()
		if p.cur.Type == TokenStar {
			p.advance()
			return SelectElement{Star: true, StarQualifier: qualifier}, nil
		}
		p.restore(save)
	}
	expr, err := p.parseScalarExpr()
	if err != nil {
		return SelectElement{}, err
	}
	el := SelectElement{Expr: expr}
	if p.cur.Type == TokenAs {
		p.advance()
		alias, err := p.parseIdentifier()
		if err != nil {
			return SelectElement{}, err
		}
		el.Alias = alias
	} else if p.cur.Type == TokenIdent || p.cur.Type == TokenQuotedIdent {
		alias, err := p.parseIdentifier()
		if err != nil {
			return SelectElement{}, err
		}
		el.Alias = alias
	}
	return el, nil
}

func (p *Parser) parseScalarExprList() ([]ScalarExpr, error) {
	var items []ScalarExpr
	for {
		e, err := p.parseScalarExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, e)
		if p.cur.Type != TokenComma {
			break
		}
		p.advance()
	}
	return items, nil
}

func (p *Parser) parseOrderByList() ([]OrderByElement, error) {
	var items []OrderByElement
	for {
		e, err := p.parseScalarExpr()
		if err != nil {
			return nil, err
		}
		el := OrderByElement{Expr: e}
		if p.cur.Type == TokenAsc {
			p.advance()
		} else if p.cur.Type == TokenDesc {
			el.Descending = true
			p.advance()
		}
		items = append(items, el)
		if p.cur.Type != TokenComma {
			break
		}
		p.advance()
	}
	return items, nil
}

// ---- FROM / JOIN ----

func (p *Parser) parseTableReference() (TableReference, error) {
	left, err := p.parseTablePrimary()
	if err != nil {
		return nil, err
	}
	for {
		kind, ok, err := p.tryParseJoinKeyword()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		right, err := p.parseTablePrimary()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenOn); err != nil {
			return nil, err
		}
		on, err := p.parseBooleanExpr()
		if err != nil {
			return nil, err
		}
		left = &QualifiedJoin{Left: left, Right: right, Kind: kind, On: on}
	}
	return left, nil
}

func (p *Parser) tryParseJoinKeyword() (JoinKind, bool, error) {
	switch p.cur.Type {
	case TokenJoin:
		p.advance()
		return JoinInnerKind, true, nil
	case TokenInner:
		p.advance()
		if _, err := p.expect(TokenJoin); err != nil {
			return 0, false, err
		}
		return JoinInnerKind, true, nil
	case TokenLeft:
		p.advance()
		if p.cur.Type == TokenOuter {
			p.advance()
		}
		if _, err := p.expect(TokenJoin); err != nil {
			return 0, false, err
		}
		return JoinLeftOuterKind, true, nil
	default:
		return 0, false, nil
	}
}

func (p *Parser) parseTablePrimary() (TableReference, error) {
	if p.cur.Type == TokenLParen {
		p.advance()
		ref, err := p.parseTableReference()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return ref, nil
	}
	name, err := p.parseIdentifier()
	if err != nil {
		return nil, err
	}
	ref := &NamedTableReference{Name: name}
	if p.cur.Type == TokenAs {
		p.advance()
		alias, err := p.parseIdentifier()
		if err != nil {
			return nil, err
		}
		ref.Alias = alias
	} else if p.cur.Type == TokenIdent || p.cur.Type == TokenQuotedIdent {
		alias, err := p.parseIdentifier()
		if err != nil {
			return nil, err
		}
		ref.Alias = alias
	}
	if p.cur.Type == TokenWith {
		p.advance()
		if _, err := p.expect(TokenLParen); err != nil {
			return nil, err
		}
		for {
			hint, err := p.parseIdentifier()
			if err != nil {
				return nil, err
			}
			ref.Hints = append(ref.Hints, hint)
			if p.cur.Type != TokenComma {
				break
			}
			p.advance()
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
	} else if p.cur.Type == TokenNoLock {
		ref.Hints = append(ref.Hints, "NOLOCK")
		p.advance()
	}
	return ref, nil
}

// ---- boolean expressions ----

func (p *Parser) parseBooleanExpr() (BooleanExpr, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (BooleanExpr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &LogicalExpr{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (BooleanExpr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenAnd {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &LogicalExpr{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (BooleanExpr, error) {
	if p.cur.Type == TokenNot {
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &NotExpr{Operand: operand}, nil
	}
	return p.parsePredicate()
}

func (p *Parser) parsePredicate() (BooleanExpr, error) {
	if p.cur.Type == TokenLParen {
		save := p.snapshot()
		p.advance()
		inner, err := p.parseBooleanExpr()
		if err == nil && p.cur.Type == TokenRParen {
			p.advance()
			return &ParenExpr{Inner: inner}, nil
		}
		p.restore(save)
	}

	left, err := p.parseScalarExpr()
	if err != nil {
		return nil, err
	}

	not := false
	if p.cur.Type == TokenNot {
		not = true
		p.advance()
	}

	switch p.cur.Type {
	case TokenIs:
		p.advance()
		innerNot := false
		if p.cur.Type == TokenNot {
			innerNot = true
			p.advance()
		}
		if _, err := p.expect(TokenNull); err != nil {
			return nil, err
		}
		return &IsNullExpr{Operand: left, Not: innerNot != not}, nil
	case TokenLike:
		p.advance()
		pattern, err := p.parseScalarExpr()
		if err != nil {
			return nil, err
		}
		return &LikeExpr{Operand: left, Pattern: pattern, Not: not}, nil
	case TokenIn:
		p.advance()
		if _, err := p.expect(TokenLParen); err != nil {
			return nil, err
		}
		if p.cur.Type == TokenSelect {
			return nil, &dvtypes.UnsupportedSubqueryError{Fragment: "IN (SELECT ...)"}
		}
		values, err := p.parseScalarExprList()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return &InExpr{Operand: left, Values: values, Not: not}, nil
	}

	if not {
		return nil, p.errorf("expected IS, LIKE, or IN after NOT")
	}

	op, ok := comparisonOp(p.cur.Type)
	if !ok {
		return nil, p.errorf("expected comparison operator, got %q", p.cur.Literal)
	}
	p.advance()
	right, err := p.parseScalarExpr()
	if err != nil {
		return nil, err
	}
	return &Comparison{Op: op, Left: left, Right: right}, nil
}

func comparisonOp(t TokenType) (string, bool) {
	switch t {
	case TokenEqual:
		return "=", true
	case TokenNotEqual:
		return "<>", true
	case TokenLess:
		return "<", true
	case TokenLessEqual:
		return "<=", true
	case TokenGreater:
		return ">", true
	case TokenGreaterEqual:
		return ">=", true
	}
	return "", false
}

// ---- scalar expressions ----

func (p *Parser) parseScalarExpr() (ScalarExpr, error) {
	return p.parseAdditive()
}

func (p *Parser) parseAdditive() (ScalarExpr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenPlus || p.cur.Type == TokenMinus {
		op := p.cur.Literal
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (ScalarExpr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenStar || p.cur.Type == TokenSlash || p.cur.Type == TokenPercentOp {
		op := p.cur.Literal
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (ScalarExpr, error) {
	switch p.cur.Type {
	case TokenMinus, TokenPlus, TokenBitNot:
		op := p.cur.Literal
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: op, Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (ScalarExpr, error) {
	switch p.cur.Type {
	case TokenInt:
		lit := &Literal{Kind: LiteralInt, Text: p.cur.Literal}
		p.advance()
		return lit, nil
	case TokenFloat:
		lit := &Literal{Kind: LiteralFloat, Text: p.cur.Literal}
		p.advance()
		return lit, nil
	case TokenString:
		lit := &Literal{Kind: LiteralString, Text: p.cur.Literal}
		p.advance()
		return lit, nil
	case TokenNull:
		p.advance()
		return &Literal{Kind: LiteralNull}, nil
	case TokenTrue:
		p.advance()
		return &Literal{Kind: LiteralBool, Bool: true}, nil
	case TokenFalse:
		p.advance()
		return &Literal{Kind: LiteralBool, Bool: false}, nil
	case TokenLParen:
		p.advance()
		inner, err := p.parseScalarExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return inner, nil
	case TokenCase:
		return p.parseCaseExpr()
	case TokenIdent, TokenQuotedIdent:
		return p.parseIdentifierOrCall()
	}
	return nil, p.errorf("unexpected token %q in expression", p.cur.Literal)
}

var datePartFunctions = map[string]bool{
	"dateadd": true, "datediff": true, "datepart": true,
}

func (p *Parser) parseIdentifierOrCall() (ScalarExpr, error) {
	name := identText(p.cur)
	p.advance()
	if p.cur.Type != TokenLParen {
		parts := []string{name}
		for p.cur.Type == TokenDot {
			p.advance()
			next, err := p.parseIdentifier()
			if err != nil {
				return nil, err
			}
			parts = append(parts, next)
		}
		return &ColumnRef{Parts: parts}, nil
	}
	p.advance() // consume '('
	call := &FunctionCall{Name: name}
	if datePartFunctions[strings.ToLower(name)] {
		part, err := p.parseIdentifier()
		if err != nil {
			return nil, err
		}
		call.DatePart = part
		if p.cur.Type == TokenComma {
			p.advance()
		}
	} else if strings.ToLower(name) == "count" && p.cur.Type == TokenStar {
		p.advance()
		call.Star = true
	} else if p.cur.Type == TokenDistinct {
		p.advance()
		call.Distinct = true
	}
	if p.cur.Type != TokenRParen {
		args, err := p.parseScalarExprList()
		if err != nil {
			return nil, err
		}
		call.Args = args
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return call, nil
}

func (p *Parser) parseCaseExpr() (ScalarExpr, error) {
	p.advance() // CASE
	if p.cur.Type == TokenWhen {
		return p.parseSearchedCase()
	}
	input, err := p.parseScalarExpr()
	if err != nil {
		return nil, err
	}
	sc := &SimpleCase{Input: input}
	for p.cur.Type == TokenWhen {
		p.advance()
		value, err := p.parseScalarExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenThen); err != nil {
			return nil, err
		}
		result, err := p.parseScalarExpr()
		if err != nil {
			return nil, err
		}
		sc.WhenClauses = append(sc.WhenClauses, SimpleWhen{Value: value, Result: result})
	}
	if p.cur.Type == TokenElse {
		p.advance()
		elseExpr, err := p.parseScalarExpr()
		if err != nil {
			return nil, err
		}
		sc.Else = elseExpr
	}
	if _, err := p.expect(TokenEnd); err != nil {
		return nil, err
	}
	return sc, nil
}

func (p *Parser) parseSearchedCase() (ScalarExpr, error) {
	sc := &SearchedCase{}
	for p.cur.Type == TokenWhen {
		p.advance()
		cond, err := p.parseBooleanExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenThen); err != nil {
			return nil, err
		}
		result, err := p.parseScalarExpr()
		if err != nil {
			return nil, err
		}
		sc.WhenClauses = append(sc.WhenClauses, SearchedWhen{Cond: cond, Result: result})
	}
	if p.cur.Type == TokenElse {
		p.advance()
		elseExpr, err := p.parseScalarExpr()
		if err != nil {
			return nil, err
		}
		sc.Else = elseExpr
	}
	if _, err := p.expect(TokenEnd); err != nil {
		return nil, err
	}
	return sc, nil
}

// ---- UPDATE / DELETE / INSERT ----

func (p *Parser) parseUpdateStatement() (*UpdateStatement, error) {
	p.advance() // UPDATE
	name, err := p.parseIdentifier()
	if err != nil {
		return nil, err
	}
	table := NamedTableReference{Name: name}
	if p.cur.Type == TokenAs {
		p.advance()
		alias, err := p.parseIdentifier()
		if err != nil {
			return nil, err
		}
		table.Alias = alias
	} else if p.cur.Type == TokenIdent {
		alias, err := p.parseIdentifier()
		if err != nil {
			return nil, err
		}
		table.Alias = alias
	}
	if _, err := p.expect(TokenSet); err != nil {
		return nil, err
	}
	var sets []SetClause
	for {
		col, err := p.parseIdentifier()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenEqual); err != nil {
			return nil, err
		}
		value, err := p.parseScalarExpr()
		if err != nil {
			return nil, err
		}
		sets = append(sets, SetClause{Column: col, Value: value})
		if p.cur.Type != TokenComma {
			break
		}
		p.advance()
	}
	stmt := &UpdateStatement{Table: table, Set: sets}
	if p.cur.Type == TokenWhere {
		p.advance()
		where, err := p.parseBooleanExpr()
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}
	return stmt, nil
}

func (p *Parser) parseDeleteStatement() (*DeleteStatement, error) {
	p.advance() // DELETE
	if p.cur.Type == TokenFrom {
		p.advance()
	}
	name, err := p.parseIdentifier()
	if err != nil {
		return nil, err
	}
	table := NamedTableReference{Name: name}
	if p.cur.Type == TokenAs {
		p.advance()
		alias, err := p.parseIdentifier()
		if err != nil {
			return nil, err
		}
		table.Alias = alias
	} else if p.cur.Type == TokenIdent {
		alias, err := p.parseIdentifier()
		if err != nil {
			return nil, err
		}
		table.Alias = alias
	}
	stmt := &DeleteStatement{Table: table}
	if p.cur.Type == TokenWhere {
		p.advance()
		where, err := p.parseBooleanExpr()
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}
	return stmt, nil
}

func (p *Parser) parseInsertStatement() (*InsertStatement, error) {
	p.advance() // INSERT
	if p.cur.Type == TokenInto {
		p.advance()
	}
	name, err := p.parseIdentifier()
	if err != nil {
		return nil, err
	}
	stmt := &InsertStatement{Table: NamedTableReference{Name: name}}
	if p.cur.Type == TokenLParen {
		p.advance()
		for {
			col, err := p.parseIdentifier()
			if err != nil {
				return nil, err
			}
			stmt.Columns = append(stmt.Columns, col)
			if p.cur.Type != TokenComma {
				break
			}
			p.advance()
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
	}
	if p.cur.Type == TokenValues {
		p.advance()
		var rows [][]ScalarExpr
		for {
			if _, err := p.expect(TokenLParen); err != nil {
				return nil, err
			}
			row, err := p.parseScalarExprList()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenRParen); err != nil {
				return nil, err
			}
			rows = append(rows, row)
			if p.cur.Type != TokenComma {
				break
			}
			p.advance()
		}
		stmt.Source = &InsertValuesSource{Rows: rows}
		return stmt, nil
	}
	if p.cur.Type == TokenSelect {
		sel, err := p.parseSelectStatement()
		if err != nil {
			return nil, err
		}
		stmt.Source = &InsertSelectSource{Select: sel}
		return stmt, nil
	}
	return nil, p.errorf("expected VALUES or SELECT in INSERT statement")
}

// ParseQuery is the package entry point: parse a single T-SQL statement.
func ParseQuery(text string) (Statement, error) {
	p := NewParser(text)
	stmt, err := p.ParseStatement()
	if err != nil {
		return nil, err
	}
	if p.cur.Type == TokenSemicolon {
		p.advance()
	}
	if p.cur.Type != TokenEOF {
		return nil, p.errorf("unexpected trailing input %q", p.cur.Literal)
	}
	return stmt, nil
}
