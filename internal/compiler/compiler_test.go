package compiler_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qalam-lang/qalam/internal/bytecode"
	"github.com/qalam-lang/qalam/internal/compiler"
	"github.com/qalam-lang/qalam/internal/config"
)

func compile(code string, ext config.Extensions) (*bytecode.Function, *compiler.Error) {
	return compiler.Compile(code, config.Latin, ext)
}

func checkCompiles(t *testing.T, code string) *bytecode.Function {
	t.Helper()
	fn, err := compile(code, config.Extensions{Lists: true, Lambdas: true})
	require.Nil(t, err, "unexpected compile error: %v", err)
	return fn
}

func checkError(t *testing.T, code string, kind compiler.ErrorKind, prefix string) {
	t.Helper()
	_, err := compile(code, config.Extensions{Lists: true, Lambdas: true})
	require.NotNil(t, err, "expected a compile error")
	assert.Equal(t, kind, err.Kind)
	assert.True(t, strings.HasPrefix(err.What, prefix),
		"want prefix %q, got %q", prefix, err.What)
}

func TestCompilesExpressions(t *testing.T) {
	checkCompiles(t, "print 42 * 12;")
	checkCompiles(t, "print -2 * 3 + (-4 / 2);")
	checkCompiles(t, "printLine(1 < 2 and 3 >= 2 or !false);")
}

func TestCompilesVarDeclarations(t *testing.T) {
	checkCompiles(t, "var x = 2;")
	checkCompiles(t, "var x;")
	checkCompiles(t, "var x; print x * 2 + x;")
}

func TestCompilesControlFlowAndFunctions(t *testing.T) {
	checkCompiles(t, "if (1 < 2) { print 1; } else { print 2; }")
	checkCompiles(t, "while (true) { print 1; }")
	checkCompiles(t, "for (var i = 0; i < 10; i = i + 1) { print i; }")
	checkCompiles(t, "for (;;) {}")
	checkCompiles(t, "fun f(a, b) { return a + b; } f(1, 2);")
	checkCompiles(t, "class A { init() {} m() { return this; } }")
	checkCompiles(t, "class A {} class B < A { m() { return super.m; } }")
}

func TestTopLevelFunctionShape(t *testing.T) {
	fn := checkCompiles(t, "var x = 1;")
	assert.Equal(t, "", fn.Name)
	assert.Equal(t, 0, fn.Arity)
	assert.Equal(t, 0, fn.UpvalueCount)
}

func TestThisOutsideClass(t *testing.T) {
	checkError(t, "print this;", compiler.Semantic, "Cannot use 'this' outside of class")
	checkError(t, "fun foo() { print this; }", compiler.Semantic, "Cannot use 'this' outside of class")
}

func TestSelfInheritance(t *testing.T) {
	checkError(t, "class A < A {}", compiler.Semantic, "A class cannot inherit from itself.")
}

func TestSuperOutsideClass(t *testing.T) {
	checkError(t, "fun f() { super.bar(); }", compiler.Semantic, "Can't use 'super' outside of a class")
}

func TestSuperWithoutSuperclass(t *testing.T) {
	checkError(t, "class Foo { bar() { super.bar(); } }", compiler.Semantic,
		"Can't use 'super' in a class with no superclass")
}

func TestInvalidAssignmentTargetGlobals(t *testing.T) {
	checkError(t, "var x = 2;\nvar y = 3;\nx * y = 5;", compiler.Semantic, "Invalid assignment target")
}

func TestInvalidAssignmentTargetLocals(t *testing.T) {
	checkError(t, "{\n var x = 2;\n var y = 3;\n x * y = 5;\n}", compiler.Semantic,
		"Invalid assignment target")
}

func TestRedeclarationOfLocal(t *testing.T) {
	checkError(t, "{\n var x = 2;\n var x = 3;\n}", compiler.Semantic, "Redeclaration of variable")
}

func TestShadowingInInnerScopeIsAllowed(t *testing.T) {
	checkCompiles(t, "{\n var x = 2;\n {\n var x = 3;\n }\n}")
}

func TestReadInOwnInitializer(t *testing.T) {
	checkError(t, "{\n var a = 1;\n {\n var a = a;\n }\n}", compiler.Semantic,
		"Cannot read local variable in its own initializer.")
}

func TestReturnAtTopLevel(t *testing.T) {
	checkError(t, "return 5;", compiler.Semantic, "Cannot return from top-level code.")
}

func TestReturnValueFromInitializer(t *testing.T) {
	checkError(t, "class A { init() { return 5; } }", compiler.Semantic,
		"Cannot return a value from an initializer.")
	checkCompiles(t, "class A { init() { return; } }")
}

func TestTooManyArguments(t *testing.T) {
	code := "fun f() {} f(" + strings.Repeat("1,", 255) + "1);"
	checkError(t, code, compiler.Parse, "Cannot have more than 255 arguments.")
}

func TestTooManyParameters(t *testing.T) {
	params := make([]string, 256)
	for i := range params {
		params[i] = "p" + strings.Repeat("q", i/26) + string(rune('a'+i%26))
	}
	code := "fun f(" + strings.Join(params, ",") + ") {}"
	checkError(t, code, compiler.Parse, "Cannot have more than 255 parameters.")
}

func TestExpectedExpression(t *testing.T) {
	checkError(t, "print +;", compiler.Parse, "Expected expression.")
}

func TestMissingSemicolon(t *testing.T) {
	checkError(t, "var x = 1", compiler.Parse, "Expected ';' after variable declaration.")
}

func TestLexicalErrorSurfaces(t *testing.T) {
	_, err := compile("var @ = 1;", config.Extensions{})
	require.NotNil(t, err)
	assert.Equal(t, compiler.Lexical, err.Kind)
}

func TestErrorsCarryPosition(t *testing.T) {
	_, err := compile("var x = 2;\nvar y = 3;\nx * y = 5;", config.Extensions{})
	require.NotNil(t, err)
	assert.Equal(t, 3, err.Line)
}

func TestListsGatedByExtension(t *testing.T) {
	_, err := compile("var xs = [1, 2];", config.Extensions{})
	require.NotNil(t, err)
	assert.Equal(t, compiler.Parse, err.Kind)

	_, err = compile("var xs = [1, 2];", config.Extensions{Lists: true})
	assert.Nil(t, err)
}

func TestLambdasGatedByExtension(t *testing.T) {
	_, err := compile("var f = lambda (x) { return x; };", config.Extensions{})
	require.NotNil(t, err)

	_, err = compile("var f = lambda (x) { return x; };", config.Extensions{Lambdas: true})
	assert.Nil(t, err)
}

func TestArabicInitializerName(t *testing.T) {
	_, err := compiler.Compile(`
صنف ا {
  تهيئة() {
    رد ٥؛
  }
}
`, config.Arabic, config.Extensions{})
	require.NotNil(t, err)
	assert.Equal(t, compiler.Semantic, err.Kind)
	assert.Contains(t, err.What, "initializer")
}

// Compiling the same source twice yields byte-identical disassembly; the
// listing is a stable golden surface.
func TestDisassemblyIsDeterministic(t *testing.T) {
	src := `
fun adder(n) {
  return lambda (x) { return x + n; };
}
var add2 = adder(2);
printLine(add2(40));
`
	a := checkCompiles(t, src)
	b := checkCompiles(t, src)
	assert.Equal(t,
		bytecode.Disassemble(a.Chunk, "script"),
		bytecode.Disassemble(b.Chunk, "script"))
}

func TestDisassemblyShape(t *testing.T) {
	fn := checkCompiles(t, "var x = 2; printLine(x);")
	dis := bytecode.Disassemble(fn.Chunk, "script")
	assert.Contains(t, dis, "== script ==")
	assert.Contains(t, dis, "DEFINE_GLOBAL")
	assert.Contains(t, dis, `"x"`)
	assert.Contains(t, dis, "GET_GLOBAL")
	assert.Contains(t, dis, "CALL")
	assert.Contains(t, dis, "RETURN")
}

func TestClosureDisassemblyListsCaptures(t *testing.T) {
	fn := checkCompiles(t, `
fun outer() {
  var x = 1;
  fun inner() { return x; }
  return inner;
}
`)
	dis := bytecode.Disassemble(fn.Chunk, "script")
	assert.Contains(t, dis, "CLOSURE")
	assert.Contains(t, dis, "local 1")
	assert.Contains(t, dis, "== inner ==")
	assert.Contains(t, dis, "GET_UPVALUE")
}
