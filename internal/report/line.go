// Package report renders the one-line verdict printed for every test.
//
// A line is built from plain segments first; width is measured on that plain
// text and colour is applied last, so escape sequences never count toward
// the 120 visible columns.
package report

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/morikuni/aec"
)

// Width is the visible width of every rendered line.
const Width = 120

const fill = "."

// Line is everything shown for one finished test.
type Line struct {
	Path        string // as displayed, usually relative to the test root
	NumProcs    int
	Annotations []string // in the order they were recorded
	Passed      bool
	Elapsed     float64 // seconds
}

type segment struct {
	text  string
	style aec.ANSI // nil: unstyled
}

// segments lays the status block out right to left of the dots:
// process badge, annotations (latest first), verdict, elapsed time.
func (l Line) segments() []segment {
	segs := make([]segment, 0, len(l.Annotations)+3)
	segs = append(segs, segment{fmt.Sprintf("[%02d]", l.NumProcs), aec.YellowF})
	// Reverse on purpose: each annotation is prepended to the status text.
	for i := len(l.Annotations) - 1; i >= 0; i-- {
		segs = append(segs, segment{"[" + l.Annotations[i] + "]", aec.CyanF})
	}
	if l.Passed {
		segs = append(segs, segment{"Passed", aec.GreenF})
	} else {
		segs = append(segs, segment{"Failed", aec.RedF})
	}
	segs = append(segs, segment{fmt.Sprintf(" %.1fs", l.Elapsed), nil})
	return segs
}

// Render returns the line without a trailing newline. With color set the
// badge, annotations and verdict carry ANSI colours.
func (l Line) Render(color bool) string {
	segs := l.segments()

	visible := utf8.RuneCountInString(l.Path)
	for _, s := range segs {
		visible += utf8.RuneCountInString(s.text)
	}

	var b strings.Builder
	b.WriteString(l.Path)
	if pad := Width - visible; pad > 0 {
		b.WriteString(strings.Repeat(fill, pad))
	}
	for _, s := range segs {
		if color && s.style != nil {
			b.WriteString(s.style.Apply(s.text))
			continue
		}
		b.WriteString(s.text)
	}
	return b.String()
}

// String renders the line without colour.
func (l Line) String() string {
	return l.Render(false)
}
