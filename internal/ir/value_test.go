package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		tok  string
		want Value
	}{
		{"42", Int(42)},
		{"-7", Int(-7)},
		{" 3 ", Int(3)},
		{"foo", Atom("foo")},
		{"3.5", Atom("3.5")},
		{"9223372036854775808", Atom("9223372036854775808")},
	}
	for _, tt := range tests {
		t.Run(tt.tok, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseValue(tt.tok))
		})
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(Int(1), Int(1)))
	assert.False(t, Equal(Int(1), Int(2)))
	assert.True(t, Equal(Atom("a"), Atom("a")))
	assert.False(t, Equal(Int(1), Atom("1")), "kinds never mix")
	assert.False(t, Equal(nil, nil))
}

func TestCompare(t *testing.T) {
	c, err := Compare(Int(1), Int(2))
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	c, err = Compare(Int(-1), Int(-1))
	require.NoError(t, err)
	assert.Equal(t, 0, c)

	c, err = Compare(Atom("b"), Atom("a"))
	require.NoError(t, err)
	assert.Equal(t, 1, c)

	_, err = Compare(Int(1), Atom("a"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `cannot compare int 1 with atom "a"`)
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "-12", Int(-12).String())
	assert.Equal(t, "red", Atom("red").String())
}
