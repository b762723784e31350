// Package render computes what the log view and the input view show.
//
// Everything here is pure arithmetic over runes and terminal columns: hard
// wrapping, skipping the oldest wrapped rows so the newest fit a viewport,
// and placing the cursor inside a scrolled multi-line input box. The
// terminal package only copies the results onto the screen.
package render

import "github.com/mattn/go-runewidth"

// CellWidth is the number of terminal columns r occupies when drawn. Wide
// runes take two; runes that would otherwise take none, such as control
// characters and combining marks, take one.
func CellWidth(r rune) int {
	return max(runewidth.RuneWidth(r), 1)
}

// Columns is the drawn width of rs.
func Columns(rs []rune) int {
	n := 0
	for _, r := range rs {
		n += CellWidth(r)
	}
	return n
}

// Wrap hard-wraps line into chunks of at most width columns. For text of
// single-column runes that is ceil(len/width) chunks of width runes, the
// last one possibly shorter. A wide rune that does not fit the rest of a
// row starts the next one. An empty line yields no chunks. Concatenating
// the chunks reconstructs line.
func Wrap(line string, width int) []string {
	return wrapRunes([]rune(line), width)
}

func wrapRunes(rs []rune, width int) []string {
	spans := wrapSpans(rs, width)
	out := make([]string, len(spans))
	for i, sp := range spans {
		out[i] = string(rs[sp.start:sp.end])
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// span is a half-open rune range of one wrapped row.
type span struct{ start, end int }

func wrapSpans(rs []rune, width int) []span {
	if width <= 0 || len(rs) == 0 {
		return nil
	}
	var out []span
	start, col := 0, 0
	for i, r := range rs {
		w := CellWidth(r)
		if col+w > width && i > start {
			out = append(out, span{start, i})
			start, col = i, 0
		}
		col += w
	}
	return append(out, span{start, len(rs)})
}

// WrappedCount is ceil(length/width) using truncating integer division: the
// row count of length single-column runes.
func WrappedCount(length, width int) int {
	if width <= 0 {
		return 0
	}
	return (length + width - 1) / width
}

// LogView returns the rows to draw, top aligned, for a viewport of width
// columns and height rows. When the wrapped rows of all lines exceed
// height, the oldest rows are skipped, possibly part way through a line,
// so that exactly the last height rows remain.
func LogView(lines []string, width, height int) []string {
	if width <= 0 || height <= 0 || len(lines) == 0 {
		return nil
	}

	var all []string
	for _, l := range lines {
		all = append(all, Wrap(l, width)...)
	}
	return all[max(len(all)-height, 0):]
}

// PromptMargin is the number of columns reserved for the prompt glyph.
const PromptMargin = 2

// Prompt is drawn at the start of the first input row.
const Prompt = "> "

// InputView is the visible state of the input box.
type InputView struct {
	// Rows are the visible chunks, oldest first.
	Rows []string
	// CursorRow and CursorCol locate the cursor inside the box. CursorCol
	// includes PromptMargin.
	CursorRow int
	CursorCol int
	// Scrolled is the number of chunks hidden above the first row.
	Scrolled int
}

// Input lays out buf with the cursor at offset cursor (0..len(buf)) in a box
// maxLines rows tall with width text columns per row.
//
// The buffer is hard-wrapped as by Wrap. When the cursor sits at the end of
// a buffer whose last row is exactly full, one empty row is added so the
// cursor row is part of the view; otherwise a full final row never gets an
// empty successor. A cursor on a row boundary belongs to the later row.
// When more rows exist than maxLines only the last maxLines are shown,
// unless the cursor has moved above them, in which case the window starts
// at the cursor row.
func Input(buf []rune, cursor, width, maxLines int) InputView {
	if width <= 0 || maxLines <= 0 {
		return InputView{}
	}
	cursor = max(0, min(cursor, len(buf)))

	spans := wrapSpans(buf, width)
	if len(spans) == 0 {
		spans = []span{{0, 0}}
	}
	if last := spans[len(spans)-1]; cursor == len(buf) && Columns(buf[last.start:last.end]) >= width {
		spans = append(spans, span{len(buf), len(buf)})
	}
	cursorLine := 0
	for i, sp := range spans {
		if sp.start <= cursor {
			cursorLine = i
		}
	}

	start := max(len(spans)-maxLines, 0)
	if cursorLine < start {
		// Cursor moved above the tail window; scroll up to it.
		start = cursorLine
	}
	visible := spans[start:min(start+maxLines, len(spans))]
	rows := make([]string, len(visible))
	for i, sp := range visible {
		rows[i] = string(buf[sp.start:sp.end])
	}
	return InputView{
		Rows:      rows,
		CursorRow: cursorLine - start,
		CursorCol: Columns(buf[spans[cursorLine].start:cursor]) + PromptMargin,
		Scrolled:  start,
	}
}

// Layout is the screen geometry derived from the terminal size.
type Layout struct {
	Cols, Rows int

	// Log view occupies rows [0, LogHeight) and LogWidth columns.
	LogWidth  int
	LogHeight int
	// SeparatorRow holds the rule between the views.
	SeparatorRow int
	// Input view occupies InputLines rows starting at InputTop; each row
	// holds InputWidth text columns after the prompt margin.
	InputTop   int
	InputLines int
	InputWidth int
}

// InputLines is the height of the input box.
const InputLines = 3

// NewLayout derives the view geometry for a cols x rows terminal. Sizes are
// clamped to zero on terminals too small to hold a view.
func NewLayout(cols, rows int) Layout {
	return Layout{
		Cols:         cols,
		Rows:         rows,
		LogWidth:     max(cols, 0),
		LogHeight:    max(rows-InputLines-1, 0),
		SeparatorRow: max(rows-InputLines-1, 0),
		InputTop:     max(rows-InputLines, 0),
		InputLines:   min(InputLines, max(rows, 0)),
		InputWidth:   max(cols-PromptMargin-1, 0),
	}
}
