package lexer

import (
	"github.com/qalam-lang/qalam/internal/config"
	"github.com/qalam-lang/qalam/internal/token"
)

var latinKeywords = map[string]token.Type{
	"and":    token.And,
	"class":  token.Class,
	"else":   token.Else,
	"false":  token.False,
	"for":    token.For,
	"fun":    token.Fun,
	"if":     token.If,
	"nil":    token.Nil,
	"or":     token.Or,
	"print":  token.Print,
	"return": token.Return,
	"super":  token.Super,
	"this":   token.This,
	"true":   token.True,
	"var":    token.Var,
	"while":  token.While,
	"lambda": token.Lambda,
}

// arabicKeywords maps every accepted spelling, including hamza variants,
// onto the same token type. print is not a keyword in the Arabic dialect;
// printing goes through the native functions.
var arabicKeywords = map[string]token.Type{
	"و":       token.And,
	"صنف":     token.Class,
	"غير_ذلك": token.Else,
	"خطا":     token.False,
	"خطأ":     token.False,
	"من":      token.For,
	"دالة":    token.Fun,
	"اذا_كان": token.If,
	"إذا_كان": token.If,
	"عدم":     token.Nil,
	"او":      token.Or,
	"أو":      token.Or,
	"رد":      token.Return,
	"اساس":    token.Super,
	"أساس":    token.Super,
	"هذا":     token.This,
	"صح":      token.True,
	"دع":      token.Var,
	"طالما":   token.While,
	"لامدا":   token.Lambda,
}

func keywordsFor(d config.Dialect) map[string]token.Type {
	if d == config.Arabic {
		return arabicKeywords
	}
	return latinKeywords
}
