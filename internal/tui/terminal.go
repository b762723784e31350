// Package tui draws the chat log and input box on a tcell screen and turns
// terminal events into editor keys.
package tui

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Operative-001/vchat/internal/input"
	"github.com/Operative-001/vchat/internal/render"
	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"
)

// ErrClosed is returned by ReadKey after Close.
var ErrClosed = errors.New("tui: terminal closed")

const (
	separatorRune = '_'
	// newlineGlyph stands in for a literal newline inside a row.
	newlineGlyph = '↵'
)

// Terminal implements relay.Display and relay.KeySource on a tcell screen.
// Draw calls may come from any goroutine.
type Terminal struct {
	screen tcell.Screen
	log    *zap.Logger

	mu     sync.Mutex
	lines  []string
	buf    []rune
	cursor int

	events    chan tcell.Event
	quit      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Open initialises the process terminal.
func Open(logger *zap.Logger) (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("tui: new screen: %w", err)
	}
	return New(screen, logger)
}

// New takes ownership of screen, initialises it and starts pumping its
// events. Close releases it.
func New(screen tcell.Screen, logger *zap.Logger) (*Terminal, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("tui: init screen: %w", err)
	}
	screen.SetStyle(tcell.StyleDefault)
	screen.Clear()

	t := &Terminal{
		screen: screen,
		log:    logger,
		events: make(chan tcell.Event, 16),
		quit:   make(chan struct{}),
	}
	t.wg.Add(1)
	go t.pump()
	return t, nil
}

func (t *Terminal) pump() {
	defer t.wg.Done()
	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return
		}
		if _, ok := ev.(*tcell.EventInterrupt); ok {
			continue
		}
		select {
		case t.events <- ev:
		case <-t.quit:
			return
		}
	}
}

// ReadKey blocks until a key event arrives, the terminal is closed or ctx is
// done. Events that do not map to an editor key are skipped.
func (t *Terminal) ReadKey(ctx context.Context) (input.Key, error) {
	for {
		select {
		case <-ctx.Done():
			return input.Key{}, ctx.Err()
		case <-t.quit:
			return input.Key{}, ErrClosed
		case ev := <-t.events:
			k := t.classify(ev)
			if k.Kind != input.KeyNone {
				return k, nil
			}
		}
	}
}

func (t *Terminal) classify(ev tcell.Event) input.Key {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		t.screen.Sync()
		t.mu.Lock()
		t.paintLog()
		t.paintInput()
		t.screen.Show()
		t.mu.Unlock()
		return input.Key{Kind: input.KeyResize}
	case *tcell.EventKey:
		return KeyOf(ev)
	}
	return input.Key{}
}

// KeyOf maps a tcell key event to an editor key. Unmapped keys yield
// KeyNone.
func KeyOf(ev *tcell.EventKey) input.Key {
	switch ev.Key() {
	case tcell.KeyEnter:
		return input.Key{Kind: input.KeyEnter}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return input.Key{Kind: input.KeyBackspace}
	case tcell.KeyLeft:
		return input.Key{Kind: input.KeyLeft}
	case tcell.KeyRight:
		return input.Key{Kind: input.KeyRight}
	case tcell.KeyUp:
		return input.Key{Kind: input.KeyUp}
	case tcell.KeyCtrlN:
		return input.Key{Kind: input.KeyNewline}
	case tcell.KeyCtrlC, tcell.KeyEscape:
		return input.Key{Kind: input.KeyQuit}
	case tcell.KeyTab:
		return input.Rune('\t')
	case tcell.KeyRune:
		return input.Rune(ev.Rune())
	}
	return input.Key{}
}

// DrawLog repaints the log view and the separator from a log snapshot.
func (t *Terminal) DrawLog(lines []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = lines
	t.paintLog()
	t.screen.Show()
}

// DrawInput repaints the input box and places the cursor.
func (t *Terminal) DrawInput(buf []rune, cursor int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf[:0], buf...)
	t.cursor = cursor
	t.paintInput()
	t.screen.Show()
}

func (t *Terminal) layout() render.Layout {
	return render.NewLayout(t.screen.Size())
}

func (t *Terminal) paintLog() {
	l := t.layout()
	style := tcell.StyleDefault
	rows := render.LogView(t.lines, l.LogWidth, l.LogHeight)
	for y := 0; y < l.LogHeight; y++ {
		t.clearRow(y, l.Cols)
		if y < len(rows) {
			t.drawText(0, y, l.Cols, rows[y], style)
		}
	}
	if l.Rows > l.InputLines {
		for x := 0; x < l.Cols; x++ {
			t.screen.SetContent(x, l.SeparatorRow, separatorRune, nil, style.Dim(true))
		}
	}
}

func (t *Terminal) paintInput() {
	l := t.layout()
	style := tcell.StyleDefault
	view := render.Input(t.buf, t.cursor, l.InputWidth, l.InputLines)
	for i := 0; i < l.InputLines; i++ {
		y := l.InputTop + i
		t.clearRow(y, l.Cols)
		if i == 0 {
			t.drawText(0, y, l.Cols, render.Prompt, style.Bold(true))
		}
		if i < len(view.Rows) {
			t.drawText(render.PromptMargin, y, l.Cols, view.Rows[i], style)
		}
	}
	if len(view.Rows) == 0 {
		t.screen.HideCursor()
		return
	}
	t.screen.ShowCursor(view.CursorCol, l.InputTop+view.CursorRow)
}

func (t *Terminal) clearRow(y, cols int) {
	for x := 0; x < cols; x++ {
		t.screen.SetContent(x, y, ' ', nil, tcell.StyleDefault)
	}
}

// drawText draws s from column x, stopping before maxX. Rows come from the
// render package already wrapped to the view width, so the stop only
// applies to a rune wider than the whole view.
func (t *Terminal) drawText(x, y, maxX int, s string, style tcell.Style) {
	for _, r := range s {
		w := render.CellWidth(r)
		if x+w > maxX {
			return
		}
		t.screen.SetContent(x, y, glyph(r), nil, style)
		x += w
	}
}

func glyph(r rune) rune {
	switch r {
	case '\n':
		return newlineGlyph
	case '\t':
		return ' '
	}
	return r
}

// Close restores the terminal. It is safe to call more than once.
func (t *Terminal) Close() {
	t.closeOnce.Do(func() {
		close(t.quit)
		// Wake a PollEvent that would otherwise block until the next key.
		if err := t.screen.PostEvent(tcell.NewEventInterrupt(nil)); err != nil {
			t.log.Debug("terminal wake event dropped", zap.Error(err))
		}
		t.screen.Fini()
		t.wg.Wait()
	})
}
