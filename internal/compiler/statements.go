package compiler

import (
	"github.com/qalam-lang/qalam/internal/bytecode"
	"github.com/qalam-lang/qalam/internal/token"
)

func (p *parser) declaration() *Error {
	switch {
	case p.match(token.Class):
		return p.classDeclaration()
	case p.match(token.Fun):
		return p.funDeclaration()
	case p.match(token.Var):
		return p.varDeclaration()
	default:
		return p.statement()
	}
}

func (p *parser) statement() *Error {
	switch {
	case p.match(token.Print):
		return p.printStatement()
	case p.match(token.If):
		return p.ifStatement()
	case p.match(token.While):
		return p.whileStatement()
	case p.match(token.For):
		return p.forStatement()
	case p.match(token.Return):
		return p.returnStatement()
	case p.match(token.LeftBrace):
		p.beginScope()
		if err := p.block(); err != nil {
			return err
		}
		p.endScope()
		return nil
	default:
		return p.expressionStatement()
	}
}

func (p *parser) block() *Error {
	for !p.check(token.RightBrace) && !p.check(token.EOF) {
		if err := p.declaration(); err != nil {
			return err
		}
	}
	return p.consume(token.RightBrace, "Expected '}' after block.")
}

func (p *parser) varDeclaration() *Error {
	global, err := p.parseVariable("Expected variable name.")
	if err != nil {
		return err
	}
	if p.match(token.Equal) {
		if err := p.expression(); err != nil {
			return err
		}
	} else {
		p.emit(bytecode.OpNil)
	}
	if err := p.consume(token.Semicolon, "Expected ';' after variable declaration."); err != nil {
		return err
	}
	p.defineVariable(global)
	return nil
}

func (p *parser) funDeclaration() *Error {
	global, err := p.parseVariable("Expected function name.")
	if err != nil {
		return err
	}
	name := p.prev().Text
	// A function may refer to itself recursively, so it counts as
	// initialized before its body is compiled.
	p.markInitialized()
	if err := p.function(kindFunction, name); err != nil {
		return err
	}
	p.defineVariable(global)
	return nil
}

// function compiles a parameter list and body in a fresh compiler and
// emits the CLOSURE instruction with the child's upvalue descriptors.
func (p *parser) function(kind funcKind, name string) *Error {
	p.compiler = newFuncCompiler(p.compiler, name, kind)
	p.beginScope()

	if err := p.consume(token.LeftParen, "Expected '(' after function name."); err != nil {
		return err
	}
	if !p.check(token.RightParen) {
		for {
			if p.compiler.function.Arity >= 255 {
				return p.errorAtCurrent(Parse, "Cannot have more than 255 parameters.")
			}
			p.compiler.function.Arity++
			if _, err := p.parseVariable("Expected parameter name."); err != nil {
				return err
			}
			p.markInitialized()
			if !p.match(token.Comma) {
				break
			}
		}
	}
	if err := p.consume(token.RightParen, "Expected ')' after parameters."); err != nil {
		return err
	}
	if err := p.consume(token.LeftBrace, "Expected '{' before function body."); err != nil {
		return err
	}
	if err := p.block(); err != nil {
		return err
	}

	fn, upvalues := p.endCompiler()
	idx := p.chunk().AddConstant(fn)
	p.emitConstantOp(bytecode.OpClosure, idx)
	for _, uv := range upvalues {
		if uv.isLocal {
			p.emitByte(1)
		} else {
			p.emitByte(0)
		}
		p.emitByte(uv.index)
	}
	return nil
}

func (p *parser) classDeclaration() *Error {
	if err := p.consume(token.Identifier, "Expected class name."); err != nil {
		return err
	}
	className := p.prev().Text
	nameConst := p.identifierConstant(className)
	if err := p.declareVariable(); err != nil {
		return err
	}
	p.emitConstantOp(bytecode.OpClass, nameConst)
	p.defineVariable(nameConst)

	cc := &classCompiler{enclosing: p.class}
	p.class = cc
	defer func() { p.class = cc.enclosing }()

	if p.match(token.Less) {
		if err := p.consume(token.Identifier, "Expected superclass name."); err != nil {
			return err
		}
		superName := p.prev().Text
		if superName == className {
			return p.errorAtPrev(Semantic, "A class cannot inherit from itself.")
		}
		if err := p.namedVariable(superName, false); err != nil {
			return err
		}

		// The superclass value stays on the stack for the whole class
		// body as a synthetic "super" local, so methods can capture it.
		p.beginScope()
		if err := p.addLocal("super"); err != nil {
			return err
		}
		p.defineVariable(0)

		if err := p.namedVariable(className, false); err != nil {
			return err
		}
		p.emit(bytecode.OpInherit)
		cc.hasSuperclass = true
	}

	if err := p.namedVariable(className, false); err != nil {
		return err
	}
	if err := p.consume(token.LeftBrace, "Expected '{' before class body."); err != nil {
		return err
	}
	for !p.check(token.RightBrace) && !p.check(token.EOF) {
		if err := p.method(); err != nil {
			return err
		}
	}
	if err := p.consume(token.RightBrace, "Expected '}' after class body."); err != nil {
		return err
	}
	p.emit(bytecode.OpPop)

	if cc.hasSuperclass {
		p.endScope()
	}
	return nil
}

func (p *parser) method() *Error {
	if err := p.consume(token.Identifier, "Expected method name."); err != nil {
		return err
	}
	name := p.prev().Text
	nameConst := p.identifierConstant(name)

	kind := kindMethod
	if name == initNameFor(p.dialect) {
		kind = kindInitializer
	}
	if err := p.function(kind, name); err != nil {
		return err
	}
	p.emitConstantOp(bytecode.OpMethod, nameConst)
	return nil
}

func (p *parser) printStatement() *Error {
	if err := p.expression(); err != nil {
		return err
	}
	if err := p.consume(token.Semicolon, "Expected ';' after value."); err != nil {
		return err
	}
	p.emit(bytecode.OpPrint)
	p.emit(bytecode.OpPop)
	return nil
}

func (p *parser) expressionStatement() *Error {
	if err := p.expression(); err != nil {
		return err
	}
	if err := p.consume(token.Semicolon, "Expected ';' after expression."); err != nil {
		return err
	}
	p.emit(bytecode.OpPop)
	return nil
}

func (p *parser) returnStatement() *Error {
	if p.compiler.kind == kindScript {
		return p.errorAtPrev(Semantic, "Cannot return from top-level code.")
	}
	if p.match(token.Semicolon) {
		p.emitReturn()
		return nil
	}
	if p.compiler.kind == kindInitializer {
		return p.errorAtPrev(Semantic, "Cannot return a value from an initializer.")
	}
	if err := p.expression(); err != nil {
		return err
	}
	if err := p.consume(token.Semicolon, "Expected ';' after return value."); err != nil {
		return err
	}
	p.emit(bytecode.OpReturn)
	return nil
}

func (p *parser) ifStatement() *Error {
	if err := p.consume(token.LeftParen, "Expected '(' after 'if'."); err != nil {
		return err
	}
	if err := p.expression(); err != nil {
		return err
	}
	if err := p.consume(token.RightParen, "Expected ')' after condition."); err != nil {
		return err
	}

	// JUMP_IF_FALSE leaves the condition on the stack; both arms pop it
	// explicitly so heights agree at the merge point.
	thenJump := p.emitJump(bytecode.OpJumpIfFalse)
	p.emit(bytecode.OpPop)
	if err := p.statement(); err != nil {
		return err
	}

	elseJump := p.emitJump(bytecode.OpJump)
	if err := p.patchJump(thenJump); err != nil {
		return err
	}
	p.emit(bytecode.OpPop)

	if p.match(token.Else) {
		if err := p.statement(); err != nil {
			return err
		}
	}
	return p.patchJump(elseJump)
}

func (p *parser) whileStatement() *Error {
	loopStart := len(p.chunk().Code)
	if err := p.consume(token.LeftParen, "Expected '(' after 'while'."); err != nil {
		return err
	}
	if err := p.expression(); err != nil {
		return err
	}
	if err := p.consume(token.RightParen, "Expected ')' after condition."); err != nil {
		return err
	}

	exitJump := p.emitJump(bytecode.OpJumpIfFalse)
	p.emit(bytecode.OpPop)
	if err := p.statement(); err != nil {
		return err
	}
	if err := p.emitLoop(loopStart); err != nil {
		return err
	}

	if err := p.patchJump(exitJump); err != nil {
		return err
	}
	p.emit(bytecode.OpPop)
	return nil
}

// forStatement desugars into an enclosing scope holding the initializer, a
// while over the condition and the increment appended after the body.
func (p *parser) forStatement() *Error {
	p.beginScope()
	if err := p.consume(token.LeftParen, "Expected '(' after 'for'."); err != nil {
		return err
	}

	switch {
	case p.match(token.Semicolon):
		// No initializer.
	case p.match(token.Var):
		if err := p.varDeclaration(); err != nil {
			return err
		}
	default:
		if err := p.expressionStatement(); err != nil {
			return err
		}
	}

	loopStart := len(p.chunk().Code)
	exitJump := -1
	if !p.match(token.Semicolon) {
		if err := p.expression(); err != nil {
			return err
		}
		if err := p.consume(token.Semicolon, "Expected ';' after loop condition."); err != nil {
			return err
		}
		exitJump = p.emitJump(bytecode.OpJumpIfFalse)
		p.emit(bytecode.OpPop)
	}

	if !p.match(token.RightParen) {
		bodyJump := p.emitJump(bytecode.OpJump)
		incrementStart := len(p.chunk().Code)
		if err := p.expression(); err != nil {
			return err
		}
		p.emit(bytecode.OpPop)
		if err := p.consume(token.RightParen, "Expected ')' after for clauses."); err != nil {
			return err
		}
		if err := p.emitLoop(loopStart); err != nil {
			return err
		}
		loopStart = incrementStart
		if err := p.patchJump(bodyJump); err != nil {
			return err
		}
	}

	if err := p.statement(); err != nil {
		return err
	}
	if err := p.emitLoop(loopStart); err != nil {
		return err
	}

	if exitJump != -1 {
		if err := p.patchJump(exitJump); err != nil {
			return err
		}
		p.emit(bytecode.OpPop)
	}
	p.endScope()
	return nil
}
