package compiler

import (
	"github.com/qalam-lang/qalam/internal/bytecode"
	"github.com/qalam-lang/qalam/internal/token"
)

// precedence is the Pratt binding ladder, loosest first.
type precedence int

const (
	precNone precedence = iota
	precAssignment
	precOr
	precAnd
	precEquality
	precComparison
	precTerm
	precFactor
	precUnary
	precCall
	precPrimary
)

func (p *parser) expression() *Error {
	return p.parsePrecedence(precAssignment)
}

// parsePrecedence drives the Pratt loop. canAssign is handed to the rules
// so '=' is only accepted where an assignment may start.
func (p *parser) parsePrecedence(prec precedence) *Error {
	p.advance()
	prefix := p.prefixRule(p.prev().Type)
	if prefix == nil {
		return p.errorAtPrev(Parse, "Expected expression.")
	}

	canAssign := prec <= precAssignment
	if err := prefix(canAssign); err != nil {
		return err
	}

	for prec <= p.precedenceOf(p.cur().Type) {
		p.advance()
		infix := p.infixRule(p.prev().Type)
		if infix == nil {
			return p.errorAtPrev(Parse, "Invalid binary operator.")
		}
		if err := infix(canAssign); err != nil {
			return err
		}
	}

	if canAssign && p.match(token.Equal) {
		return p.errorAtPrev(Semantic, "Invalid assignment target.")
	}
	return nil
}

func (p *parser) prefixRule(ty token.Type) func(bool) *Error {
	switch ty {
	case token.LeftParen:
		return p.grouping
	case token.Minus, token.Bang:
		return p.unary
	case token.Number:
		return p.number
	case token.String:
		return p.stringLiteral
	case token.Nil, token.True, token.False:
		return p.literal
	case token.Identifier:
		return p.variable
	case token.This:
		return p.this
	case token.Super:
		return p.super
	case token.LeftBracket:
		if p.ext.Lists {
			return p.listLiteral
		}
	case token.Lambda:
		if p.ext.Lambdas {
			return p.lambda
		}
	}
	return nil
}

func (p *parser) infixRule(ty token.Type) func(bool) *Error {
	switch ty {
	case token.Minus, token.Plus, token.Slash, token.Star,
		token.BangEqual, token.EqualEqual,
		token.Greater, token.GreaterEqual, token.Less, token.LessEqual:
		return p.binary
	case token.And:
		return p.and
	case token.Or:
		return p.or
	case token.LeftParen:
		return p.call
	case token.Dot:
		return p.dot
	case token.LeftBracket:
		if p.ext.Lists {
			return p.subscript
		}
	}
	return nil
}

func (p *parser) precedenceOf(ty token.Type) precedence {
	switch ty {
	case token.Or:
		return precOr
	case token.And:
		return precAnd
	case token.BangEqual, token.EqualEqual:
		return precEquality
	case token.Greater, token.GreaterEqual, token.Less, token.LessEqual:
		return precComparison
	case token.Minus, token.Plus:
		return precTerm
	case token.Slash, token.Star:
		return precFactor
	case token.LeftParen, token.Dot:
		return precCall
	case token.LeftBracket:
		if p.ext.Lists {
			return precCall
		}
	}
	return precNone
}

func (p *parser) grouping(bool) *Error {
	if err := p.expression(); err != nil {
		return err
	}
	return p.consume(token.RightParen, "Expected ')' after expression.")
}

func (p *parser) number(bool) *Error {
	idx := p.chunk().AddNumber(p.prev().Num)
	p.emitConstantOp(bytecode.OpConstant, idx)
	return nil
}

func (p *parser) stringLiteral(bool) *Error {
	idx := p.chunk().AddString(p.prev().Text)
	p.emitConstantOp(bytecode.OpConstant, idx)
	return nil
}

func (p *parser) literal(bool) *Error {
	switch p.prev().Type {
	case token.Nil:
		p.emit(bytecode.OpNil)
	case token.True:
		p.emit(bytecode.OpTrue)
	case token.False:
		p.emit(bytecode.OpFalse)
	}
	return nil
}

func (p *parser) variable(canAssign bool) *Error {
	return p.namedVariable(p.prev().Text, canAssign)
}

func (p *parser) unary(bool) *Error {
	op := p.prev().Type
	if err := p.parsePrecedence(precUnary); err != nil {
		return err
	}
	switch op {
	case token.Minus:
		p.emit(bytecode.OpNegate)
	case token.Bang:
		p.emit(bytecode.OpNot)
	}
	return nil
}

func (p *parser) binary(bool) *Error {
	op := p.prev().Type
	if err := p.parsePrecedence(p.precedenceOf(op) + 1); err != nil {
		return err
	}
	switch op {
	case token.Plus:
		p.emit(bytecode.OpAdd)
	case token.Minus:
		p.emit(bytecode.OpSubtract)
	case token.Star:
		p.emit(bytecode.OpMultiply)
	case token.Slash:
		p.emit(bytecode.OpDivide)
	case token.EqualEqual:
		p.emit(bytecode.OpEqual)
	case token.BangEqual:
		p.emit(bytecode.OpEqual)
		p.emit(bytecode.OpNot)
	case token.Greater:
		p.emit(bytecode.OpGreater)
	case token.GreaterEqual:
		p.emit(bytecode.OpLess)
		p.emit(bytecode.OpNot)
	case token.Less:
		p.emit(bytecode.OpLess)
	case token.LessEqual:
		p.emit(bytecode.OpGreater)
		p.emit(bytecode.OpNot)
	}
	return nil
}

func (p *parser) and(bool) *Error {
	endJump := p.emitJump(bytecode.OpJumpIfFalse)
	p.emit(bytecode.OpPop)
	if err := p.parsePrecedence(precAnd); err != nil {
		return err
	}
	return p.patchJump(endJump)
}

func (p *parser) or(bool) *Error {
	elseJump := p.emitJump(bytecode.OpJumpIfFalse)
	endJump := p.emitJump(bytecode.OpJump)
	if err := p.patchJump(elseJump); err != nil {
		return err
	}
	p.emit(bytecode.OpPop)
	if err := p.parsePrecedence(precOr); err != nil {
		return err
	}
	return p.patchJump(endJump)
}

func (p *parser) call(bool) *Error {
	argc, err := p.argumentList()
	if err != nil {
		return err
	}
	p.emit(bytecode.OpCall)
	p.emitByte(byte(argc))
	return nil
}

func (p *parser) argumentList() (int, *Error) {
	argc := 0
	if !p.check(token.RightParen) {
		for {
			if err := p.expression(); err != nil {
				return 0, err
			}
			if argc >= 255 {
				return 0, p.errorAtCurrent(Parse, "Cannot have more than 255 arguments.")
			}
			argc++
			if !p.match(token.Comma) {
				break
			}
		}
	}
	if err := p.consume(token.RightParen, "Expected ')' after arguments."); err != nil {
		return 0, err
	}
	return argc, nil
}

func (p *parser) dot(canAssign bool) *Error {
	if err := p.consume(token.Identifier, "Expected property name after '.'."); err != nil {
		return err
	}
	nameConst := p.identifierConstant(p.prev().Text)

	switch {
	case canAssign && p.match(token.Equal):
		if err := p.expression(); err != nil {
			return err
		}
		p.emitConstantOp(bytecode.OpSetProperty, nameConst)
	case p.match(token.LeftParen):
		argc, err := p.argumentList()
		if err != nil {
			return err
		}
		p.emitConstantOp(bytecode.OpInvoke, nameConst)
		p.emitByte(byte(argc))
	default:
		p.emitConstantOp(bytecode.OpGetProperty, nameConst)
	}
	return nil
}

func (p *parser) subscript(canAssign bool) *Error {
	if err := p.expression(); err != nil {
		return err
	}
	if err := p.consume(token.RightBracket, "Expected ']' after subscript."); err != nil {
		return err
	}
	if canAssign && p.match(token.Equal) {
		if err := p.expression(); err != nil {
			return err
		}
		p.emit(bytecode.OpSetItem)
	} else {
		p.emit(bytecode.OpSubscript)
	}
	return nil
}

func (p *parser) listLiteral(bool) *Error {
	count := 0
	if !p.check(token.RightBracket) {
		for {
			if err := p.expression(); err != nil {
				return err
			}
			if count >= 0xffff {
				return p.errorAtCurrent(Parse, "Too many elements in list literal.")
			}
			count++
			if !p.match(token.Comma) {
				break
			}
		}
	}
	if err := p.consume(token.RightBracket, "Expected ']' after list literal."); err != nil {
		return err
	}
	p.emit(bytecode.OpBuildList)
	p.emitU16(count)
	return nil
}

func (p *parser) this(bool) *Error {
	if p.class == nil {
		return p.errorAtPrev(Semantic, "Cannot use 'this' outside of class.")
	}
	return p.namedVariable("this", false)
}

func (p *parser) super(bool) *Error {
	if p.class == nil {
		return p.errorAtPrev(Semantic, "Can't use 'super' outside of a class.")
	}
	if !p.class.hasSuperclass {
		return p.errorAtPrev(Semantic, "Can't use 'super' in a class with no superclass.")
	}

	if err := p.consume(token.Dot, "Expected '.' after 'super'."); err != nil {
		return err
	}
	if err := p.consume(token.Identifier, "Expected superclass method name."); err != nil {
		return err
	}
	nameConst := p.identifierConstant(p.prev().Text)

	if err := p.namedVariable("this", false); err != nil {
		return err
	}
	if p.match(token.LeftParen) {
		argc, err := p.argumentList()
		if err != nil {
			return err
		}
		if err := p.namedVariable("super", false); err != nil {
			return err
		}
		p.emitConstantOp(bytecode.OpSuperInvoke, nameConst)
		p.emitByte(byte(argc))
	} else {
		if err := p.namedVariable("super", false); err != nil {
			return err
		}
		p.emitConstantOp(bytecode.OpGetSuper, nameConst)
	}
	return nil
}

func (p *parser) lambda(bool) *Error {
	return p.function(kindLambda, "lambda")
}
