package arabic_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qalam-lang/qalam/internal/arabic"
)

func TestIsDigit(t *testing.T) {
	assert.True(t, arabic.IsDigit('٢'))
	assert.True(t, arabic.IsDigit('٣'))
	assert.False(t, arabic.IsDigit('3'))
	assert.False(t, arabic.IsDigit('س'))
}

func TestDigitToLatin(t *testing.T) {
	c, ok := arabic.DigitToLatin('٢')
	assert.True(t, ok)
	assert.Equal(t, '2', c)

	c, ok = arabic.DigitToLatin('٫')
	assert.True(t, ok)
	assert.Equal(t, '.', c)

	_, ok = arabic.DigitToLatin('x')
	assert.False(t, ok)
}

func TestIsNumber(t *testing.T) {
	for _, bad := range []string{"", "٫٣", "٣٫", "٣٫٣٫", "٣٫٫٣", "abc"} {
		assert.False(t, arabic.IsNumber(bad), "%q", bad)
	}
	for _, good := range []string{"٣", "٣٣", "٣٫٣"} {
		assert.True(t, arabic.IsNumber(good), "%q", good)
	}
}

func TestToLatinNumber(t *testing.T) {
	s, ok := arabic.ToLatinNumber("٣")
	assert.True(t, ok)
	assert.Equal(t, "3", s)

	s, ok = arabic.ToLatinNumber("٣٣")
	assert.True(t, ok)
	assert.Equal(t, "33", s)

	s, ok = arabic.ToLatinNumber("٣٫٣")
	assert.True(t, ok)
	assert.Equal(t, "3.3", s)

	_, ok = arabic.ToLatinNumber("٣٫")
	assert.False(t, ok)
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "٣", arabic.FormatNumber(3))
	assert.Equal(t, "٣٣", arabic.FormatNumber(33))
	assert.Equal(t, "٣٫٣", arabic.FormatNumber(3.3))
	assert.Equal(t, "-٥", arabic.FormatNumber(-5))
	assert.Equal(t, arabic.Infinity, arabic.FormatNumber(math.Inf(1)))
}
