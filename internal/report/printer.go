package report

import (
	"io"
	"strings"
	"sync"
)

// Printer writes report lines to a shared stream. Each call is a single
// Write under a lock, so lines from concurrent slots never interleave.
type Printer struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

// NewPrinter returns a Printer writing to w, coloured when color is set.
func NewPrinter(w io.Writer, color bool) *Printer {
	return &Printer{w: w, color: color}
}

// Print writes l and, for a skipped test, the skip reason line after it.
func (p *Printer) Print(l Line, skipReason string) error {
	var b strings.Builder
	b.WriteString(l.Render(p.color))
	b.WriteByte('\n')
	if skipReason != "" {
		b.WriteString("Skip reason: " + skipReason + "\n")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := io.WriteString(p.w, b.String())
	return err
}
