package display

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"fsinv/internal/inv"
)

const (
	defaultBarWidth = 30
	defaultInterval = 100 * time.Millisecond
)

// ProgressRenderer draws a single self-overwriting progress line. Updates
// arriving faster than the refresh interval are dropped, except the first
// update of a stage and the one that completes it.
type ProgressRenderer struct {
	w        io.Writer
	style    styler
	width    int
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	last    time.Time
	stage   inv.Stage
	drawn   bool
	lastLen int
}

// NewProgressRenderer creates a renderer writing to w. When w is not a
// terminal the renderer draws nothing.
func NewProgressRenderer(w io.Writer) *ProgressRenderer {
	return newProgressRenderer(w, IsTerminal(w), IsTerminal(w))
}

func newProgressRenderer(w io.Writer, enabled, colorOutput bool) *ProgressRenderer {
	if !enabled {
		w = nil
	}
	return &ProgressRenderer{
		w:        w,
		style:    styler{enabled: colorOutput},
		width:    defaultBarWidth,
		interval: defaultInterval,
		now:      time.Now,
	}
}

// Func returns the renderer as a progress listener, or nil when it is
// disabled so the scan skips reporting entirely.
func (r *ProgressRenderer) Func() inv.ProgressFunc {
	if r.w == nil {
		return nil
	}
	return r.Update
}

// Update draws p if the refresh interval has passed.
func (r *ProgressRenderer) Update(p inv.Progress) {
	if r.w == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	newStage := p.Stage != r.stage
	finished := p.Total > 0 && p.Processed >= p.Total
	if !newStage && !finished && now.Sub(r.last) < r.interval {
		return
	}
	if newStage && r.drawn {
		fmt.Fprintln(r.w)
		r.lastLen = 0
	}
	r.stage = p.Stage
	r.last = now

	line := r.Render(p)
	pad := ""
	if n := len(line); n < r.lastLen {
		pad = strings.Repeat(" ", r.lastLen-n)
	}
	fmt.Fprintf(r.w, "\r%s%s", line, pad)
	r.lastLen = len(line)
	r.drawn = true
}

// Finish ends the progress line.
func (r *ProgressRenderer) Finish() {
	if r.w == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.drawn {
		fmt.Fprintln(r.w)
		r.drawn = false
	}
}

// Render formats p as a bar with a percentage and counts.
func (r *ProgressRenderer) Render(p inv.Progress) string {
	perc := 0
	if p.Total > 0 {
		perc = min(max(p.Processed*100/p.Total, 0), 100)
	}
	filled := perc * r.width / 100

	bar := strings.Repeat("=", filled) + strings.Repeat(" ", r.width-filled)
	if perc == 100 {
		bar = r.style.green(bar)
	} else {
		bar = r.style.cyan(bar)
	}
	return fmt.Sprintf("%-6s [%s] %3d%% %d/%d", stageLabel(p.Stage), bar, perc, p.Processed, p.Total)
}

func stageLabel(s inv.Stage) string {
	switch s {
	case inv.StageWalk:
		return "walk"
	case inv.StageHash:
		return "hash"
	case inv.StageAccess:
		return "acl"
	default:
		return string(s)
	}
}
