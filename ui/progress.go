package ui

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/progress"
)

// CountProgress renders a progress bar for a known number of items
// from a background goroutine
type CountProgress struct {
	label   string
	out     io.Writer
	prog    progress.Model
	total   atomic.Int64
	current atomic.Int64
	done    chan struct{}
	stopped chan struct{}
}

// NewCountProgress returns a bar labeled label writing to out.
func NewCountProgress(out io.Writer, label string) *CountProgress {
	return &CountProgress{
		label:   label,
		out:     out,
		prog:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Update records progress. It is safe to call from several goroutines.
func (p *CountProgress) Update(done, total int) {
	p.total.Store(int64(total))
	p.current.Store(int64(done))
}

// Start begins rendering.
func (p *CountProgress) Start() {
	go p.render()
}

// Stop renders the final state and waits for the render loop to exit.
func (p *CountProgress) Stop() {
	close(p.done)
	<-p.stopped
}

func (p *CountProgress) percent() float64 {
	total := p.total.Load()
	if total == 0 {
		return 0
	}
	return float64(p.current.Load()) / float64(total)
}

func (p *CountProgress) line() string {
	return fmt.Sprintf("\r%s %s %d/%d", p.label, p.prog.ViewAs(p.percent()), p.current.Load(), p.total.Load())
}

func (p *CountProgress) render() {
	defer close(p.stopped)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			fmt.Fprintf(p.out, "%s\n", p.line())
			return
		case <-ticker.C:
			if p.current.Load() > 0 {
				fmt.Fprint(p.out, p.line())
			}
		}
	}
}
