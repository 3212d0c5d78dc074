package report

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strconv"
)

// elapsedRe matches the timing line a simulation prints on exit, e.g.
// "Elapsed execution time: 01:02:03.5" or "Elapsed execution time: 1,2:3".
var elapsedRe = regexp.MustCompile(
	`Elapsed execution time:\s*(\d+(?:\.\d*)?)\s*[,:]\s*(\d+(?:\.\d*)?)\s*[,:]\s*(\d+(?:\.\d*)?)`)

// ParseElapsed returns the elapsed seconds reported by the first matching
// line of r, or 0 when there is none.
func ParseElapsed(r io.Reader) float64 {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		m := elapsedRe.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		h, errH := strconv.ParseFloat(m[1], 64)
		mi, errM := strconv.ParseFloat(m[2], 64)
		s, errS := strconv.ParseFloat(m[3], 64)
		if errH != nil || errM != nil || errS != nil {
			continue
		}
		return h*3600 + mi*60 + s
	}
	return 0
}

// ElapsedFromFile is ParseElapsed over a captured output file.
// A missing or unreadable file reports 0.
func ElapsedFromFile(path string) float64 {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()
	return ParseElapsed(f)
}
