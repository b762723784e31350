package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func typeString(e *Editor, s string) {
	for _, r := range s {
		e.Apply(Rune(r))
	}
}

func TestTypeAndCommit(t *testing.T) {
	var e Editor
	typeString(&e, "hello")
	assert.Equal(t, "hello", e.Text())
	assert.Equal(t, 5, e.Cursor())

	line, ok := e.Apply(Key{Kind: KeyEnter})
	assert.True(t, ok)
	assert.Equal(t, "hello", line)
	assert.Empty(t, e.Text())
	assert.Equal(t, 0, e.Cursor())
}

func TestEmptyCommitIsIgnored(t *testing.T) {
	var e Editor
	_, ok := e.Apply(Key{Kind: KeyEnter})
	assert.False(t, ok)
}

func TestInsertAtCursor(t *testing.T) {
	var e Editor
	typeString(&e, "hllo")
	e.Apply(Key{Kind: KeyLeft})
	e.Apply(Key{Kind: KeyLeft})
	e.Apply(Key{Kind: KeyLeft})
	typeString(&e, "e")
	assert.Equal(t, "hello", e.Text())
	assert.Equal(t, 2, e.Cursor())
}

func TestBackspace(t *testing.T) {
	var e Editor
	e.Apply(Key{Kind: KeyBackspace})
	assert.Equal(t, 0, e.Cursor())

	typeString(&e, "abc")
	e.Apply(Key{Kind: KeyLeft})
	e.Apply(Key{Kind: KeyBackspace})
	assert.Equal(t, "ac", e.Text())
	assert.Equal(t, 1, e.Cursor())
}

func TestCursorBounds(t *testing.T) {
	var e Editor
	typeString(&e, "ab")
	e.Apply(Key{Kind: KeyRight})
	assert.Equal(t, 2, e.Cursor())
	for i := 0; i < 5; i++ {
		e.Apply(Key{Kind: KeyLeft})
	}
	assert.Equal(t, 0, e.Cursor())
}

func TestRecallLastLine(t *testing.T) {
	var e Editor
	e.Apply(Key{Kind: KeyUp})
	assert.Empty(t, e.Text())

	typeString(&e, "again")
	e.Apply(Key{Kind: KeyEnter})
	typeString(&e, "draft")
	e.Apply(Key{Kind: KeyUp})
	assert.Equal(t, "again", e.Text())
	assert.Equal(t, 5, e.Cursor())
}

func TestNewlineAndControlRunes(t *testing.T) {
	var e Editor
	typeString(&e, "a")
	e.Apply(Key{Kind: KeyNewline})
	e.Apply(Rune('\t'))
	e.Apply(Rune('\x07'))
	typeString(&e, "b")
	assert.Equal(t, "a\n\tb", e.Text())
}

func TestUnicode(t *testing.T) {
	var e Editor
	typeString(&e, "ツa")
	e.Apply(Key{Kind: KeyLeft})
	e.Apply(Key{Kind: KeyBackspace})
	assert.Equal(t, "a", e.Text())
}
