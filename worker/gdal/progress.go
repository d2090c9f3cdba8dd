package gdal

import (
	"regexp"
	"strconv"
	"strings"

	"rasterTiler/worker/tiler"
)

// GDAL tools print progress as "0...10...20...[...]100 - done." chunks;
// gdal2tiles additionally announces its base/overview tile phases. The
// matching below is deliberately narrow: lines that fit neither pattern are
// dropped.
var (
	percentRe = regexp.MustCompile(`(\d{1,3})(?:\.\.\.|%| - done)`)
	phaseRe   = regexp.MustCompile(`Generating (Base|Overview) Tiles`)
	zoomRe    = regexp.MustCompile(`(?i)zoom\s+(?:level\s+)?(\d{1,2})`)
)

// lineParser turns free-text engine output into ProgressObserver calls for
// one stage of one run.
type lineParser struct {
	stage    string
	observer tiler.ProgressObserver
	last     int
}

func newLineParser(stage string, observer tiler.ProgressObserver) *lineParser {
	return &lineParser{stage: stage, observer: observer, last: -1}
}

func (p *lineParser) Line(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	if m := phaseRe.FindStringSubmatch(line); m != nil {
		p.observer.Note(p.stage, strings.ToLower(m[1])+" tiles")
		return
	}

	if m := zoomRe.FindStringSubmatch(line); m != nil {
		p.observer.Note(p.stage, "zoom "+m[1])
		return
	}

	matches := percentRe.FindAllStringSubmatch(line, -1)
	if len(matches) == 0 {
		return
	}

	// A single line can carry several markers; only the furthest one counts.
	percent, err := strconv.Atoi(matches[len(matches)-1][1])
	if err != nil || percent < 0 || percent > 100 {
		return
	}
	if percent <= p.last {
		return
	}
	p.last = percent
	p.observer.Progress(p.stage, percent)
}
