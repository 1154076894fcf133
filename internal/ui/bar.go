package ui

import (
	"fmt"
	"io"
	"time"

	bubblesprogress "github.com/charmbracelet/bubbles/progress"

	"vidgrab/internal/progress"
	"vidgrab/internal/util/format"
)

const (
	redrawInterval = 100 * time.Millisecond
	plainInterval  = 5 * time.Second
)

// ProgressWriter is a progress.Sink that renders to a writer. On a terminal
// it redraws a single line in place: a bar when the total is known, a byte
// counter otherwise. Elsewhere it prints a plain line every tenth of the
// total, or every few seconds when the total is unknown.
type ProgressWriter struct {
	progress.Counter

	w           io.Writer
	interactive bool
	bar         bubblesprogress.Model
	styles      Styles

	lastDraw time.Time
	lastStep int64
	started  bool
}

func NewProgressWriter(w io.Writer, interactive bool) *ProgressWriter {
	return &ProgressWriter{
		w:           w,
		interactive: interactive,
		bar:         bubblesprogress.New(bubblesprogress.WithDefaultGradient(), bubblesprogress.WithWidth(40), bubblesprogress.WithoutPercentage()),
		styles:      defaultStyles(),
	}
}

func (p *ProgressWriter) Start(total int64) {
	p.Counter.Start(total)
	p.started = true
	p.lastStep = 0
	p.lastDraw = time.Time{}
	if p.interactive {
		p.draw()
	}
}

func (p *ProgressWriter) Advance(n int64) {
	p.Counter.Advance(n)
	if p.interactive {
		if p.now().Sub(p.lastDraw) >= redrawInterval {
			p.draw()
		}
		return
	}
	p.plainTick()
}

func (p *ProgressWriter) Finish(err error) {
	if !p.started {
		return
	}
	p.started = false
	s := p.Snapshot()
	if p.interactive {
		p.draw()
		fmt.Fprintln(p.w)
	}
	if err != nil {
		fmt.Fprintln(p.w, p.styles.Error.Render(fmt.Sprintf("transfer stopped after %s", format.HumanizeBytes(s.Done))))
		return
	}
	if !p.interactive {
		fmt.Fprintf(p.w, "downloaded %s in %s\n", format.HumanizeBytes(s.Done), s.Elapsed.Round(time.Millisecond))
	}
}

func (p *ProgressWriter) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *ProgressWriter) draw() {
	p.lastDraw = p.now()
	fmt.Fprintf(p.w, "\r%s\x1b[K", p.line(p.Snapshot()))
}

func (p *ProgressWriter) line(s progress.Snapshot) string {
	rate := format.HumanizeRate(s.BytesPerSecond())
	if pct := s.Percent(); pct >= 0 {
		return fmt.Sprintf("%s %5.1f%% %s / %s %s",
			p.bar.ViewAs(pct/100),
			pct,
			format.HumanizeBytes(s.Done),
			format.HumanizeBytes(s.Total),
			p.styles.Faint.Render(rate))
	}
	return fmt.Sprintf("%s downloaded %s", format.HumanizeBytes(s.Done), p.styles.Faint.Render(rate))
}

func (p *ProgressWriter) plainTick() {
	s := p.Snapshot()
	if s.Total > 0 {
		step := s.Done * 10 / s.Total
		if step > p.lastStep && step < 10 {
			p.lastStep = step
			fmt.Fprintf(p.w, "downloaded %d%% (%s / %s)\n", step*10, format.HumanizeBytes(s.Done), format.HumanizeBytes(s.Total))
		}
		return
	}
	now := p.now()
	if p.lastDraw.IsZero() {
		p.lastDraw = now
		return
	}
	if now.Sub(p.lastDraw) >= plainInterval {
		p.lastDraw = now
		fmt.Fprintf(p.w, "downloaded %s\n", format.HumanizeBytes(s.Done))
	}
}
