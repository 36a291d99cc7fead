package vm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qalam-lang/qalam/internal/config"
)

func checkArabicOutput(t *testing.T, code string, expected []string) {
	t.Helper()
	out, err := evaluate(t, code, config.Arabic, config.Extensions{Lists: true})
	require.NoError(t, err)
	assert.Equal(t, expected, out)
}

func TestArabicArithmetic(t *testing.T) {
	checkArabicOutput(t, `اطبع_سطر(٢ + ٣)؛`, []string{"٥"})
	checkArabicOutput(t, `اطبع_سطر(٦ \ ٢)؛`, []string{"٣"})
	checkArabicOutput(t, `اطبع_سطر(٥ − ٢)؛`, []string{"٣"})
	checkArabicOutput(t, `اطبع_سطر(٣٫٥ + ١)؛`, []string{"٤٫٥"})
}

func TestArabicVariables(t *testing.T) {
	checkArabicOutput(t, `
دع س = ٢؛
دع ص = ٣؛
اطبع_سطر(س * ص + ٤)؛
`, []string{"١٠"})
}

func TestArabicLiterals(t *testing.T) {
	checkArabicOutput(t, `اطبع_سطر(صح)؛`, []string{"صحيح"})
	checkArabicOutput(t, `اطبع_سطر(خطا)؛`, []string{"خطا"})
	checkArabicOutput(t, `اطبع_سطر(عدم)؛`, []string{"عدم"})
	checkArabicOutput(t, `اطبع_سطر("مرحبا")؛`, []string{"مرحبا"})
}

func TestArabicIfElse(t *testing.T) {
	checkArabicOutput(t, `
اذا_كان (١ < ٢) {
  اطبع_سطر("نعم")؛
} غير_ذلك {
  اطبع_سطر("لا")؛
}
`, []string{"نعم"})

	// The hamza spelling variant is the same keyword.
	checkArabicOutput(t, `
إذا_كان (٢ < ١) {
  اطبع_سطر("نعم")؛
} غير_ذلك {
  اطبع_سطر("لا")؛
}
`, []string{"لا"})
}

func TestArabicWhile(t *testing.T) {
	checkArabicOutput(t, `
دع ا = ٠؛
طالما (ا < ٥) {
  ا = ا + ١؛
}
اطبع_سطر(ا)؛
`, []string{"٥"})
}

func TestArabicFunctions(t *testing.T) {
	checkArabicOutput(t, `
دالة جمع(ا، ب) {
  رد ا + ب؛
}
اطبع_سطر(جمع(٢، ٣))؛
`, []string{"٥"})
}

func TestArabicRecursion(t *testing.T) {
	checkArabicOutput(t, `
دالة مضروب(ن) {
  اذا_كان (ن <= ١) رد ١؛
  رد ن * مضروب(ن − ١)؛
}
اطبع_سطر(مضروب(١٠))؛
`, []string{"٣٦٢٨٨٠٠"})
}

func TestArabicClassWithConstructor(t *testing.T) {
	checkArabicOutput(t, `
صنف حيوان {
  تهيئة(اسم) {
    هذا.اسم = اسم؛
  }
  قل() {
    اطبع_سطر(هذا.اسم)؛
  }
}
دع ح = حيوان("قط")؛
ح.قل()؛
`, []string{"قط"})
}

func TestArabicInheritance(t *testing.T) {
	checkArabicOutput(t, `
صنف اب {
  كلم() {
    رد "اب"؛
  }
}
صنف ابن < اب {}
اطبع_سطر(ابن().كلم())؛
`, []string{"اب"})
}

func TestArabicSuperInvoke(t *testing.T) {
	checkArabicOutput(t, `
صنف اول {
  نفذ() {
    اطبع_سطر("اول")؛
  }
}
صنف ثاني < اول {
  نفذ() {
    اساس.نفذ()؛
    اطبع_سطر("ثاني")؛
  }
}
ثاني().نفذ()؛
`, []string{"اول", "ثاني"})
}

func TestArabicLists(t *testing.T) {
	checkArabicOutput(t, `
دع عناصر = [١، ٢، ٣]؛
اطبع_سطر(عناصر)؛
اطبع_سطر(عناصر[٠])؛
`, []string{"[١, ٢, ٣]", "١"})
}

func TestArabicComment(t *testing.T) {
	checkArabicOutput(t, `
\\ تعليق لا يؤثر
اطبع_سطر(١)؛
`, []string{"١"})
}

func TestArabicLatinPunctuationAccepted(t *testing.T) {
	// The ASCII comma, semicolon and hyphen still work in the Arabic
	// dialect alongside their Arabic aliases.
	checkArabicOutput(t, `
دالة طرح(ا, ب) { رد ا - ب; }
اطبع_سطر(طرح(٥, ٢));
`, []string{"٣"})
}
