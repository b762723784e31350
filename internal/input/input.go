// Package input holds the line editor behind the input view: a rune
// buffer, a cursor offset and the last committed line for recall.
package input

import "unicode"

// KeyKind classifies a key event.
type KeyKind int

const (
	KeyNone KeyKind = iota
	KeyRune
	KeyEnter
	KeyBackspace
	KeyLeft
	KeyRight
	KeyUp
	// KeyNewline inserts a literal line break into the buffer.
	KeyNewline
	KeyQuit
	KeyResize
)

// Key is one classified key event.
type Key struct {
	Kind KeyKind
	Rune rune
}

// Rune returns a printable-character key.
func Rune(r rune) Key { return Key{Kind: KeyRune, Rune: r} }

// Editor is the InputBuffer: text plus a cursor offset in 0..len.
type Editor struct {
	buf    []rune
	cursor int
	last   string
}

// Buffer returns the current text.
func (e *Editor) Buffer() []rune { return e.buf }

// Cursor returns the cursor offset.
func (e *Editor) Cursor() int { return e.cursor }

// Text returns the buffer as a string.
func (e *Editor) Text() string { return string(e.buf) }

// Apply edits the buffer for k. When k commits a non-empty line, Apply
// returns it, remembers it for KeyUp and starts a fresh buffer.
func (e *Editor) Apply(k Key) (line string, committed bool) {
	switch k.Kind {
	case KeyEnter:
		line = string(e.buf)
		e.Reset()
		if line == "" {
			return "", false
		}
		e.last = line
		return line, true
	case KeyNewline:
		e.insert('\n')
	case KeyBackspace:
		if e.cursor > 0 {
			e.buf = append(e.buf[:e.cursor-1], e.buf[e.cursor:]...)
			e.cursor--
		}
	case KeyLeft:
		if e.cursor > 0 {
			e.cursor--
		}
	case KeyRight:
		if e.cursor < len(e.buf) {
			e.cursor++
		}
	case KeyUp:
		e.buf = []rune(e.last)
		e.cursor = len(e.buf)
	case KeyRune:
		if k.Rune == '\t' || unicode.IsPrint(k.Rune) {
			e.insert(k.Rune)
		}
	}
	return "", false
}

// Reset clears the buffer and moves the cursor home.
func (e *Editor) Reset() {
	e.buf = nil
	e.cursor = 0
}

func (e *Editor) insert(r rune) {
	e.buf = append(e.buf, 0)
	copy(e.buf[e.cursor+1:], e.buf[e.cursor:])
	e.buf[e.cursor] = r
	e.cursor++
}
