package trainer

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/schollz/progressbar/v3"
)

// Callback observes the training loop. Methods are called from the
// goroutine running Fit.
type Callback interface {
	OnPhaseStart(phase Phase, epoch, batches int)
	OnBatchEnd(phase Phase, epoch int, m StepMetrics)
	OnPhaseEnd(s Summary)
	OnFitEnd(s State)
}

// LogCallback writes a structured log line per phase and every Every
// training steps
type LogCallback struct {
	Logger *log.Logger
	Every  int
}

func (c *LogCallback) OnPhaseStart(phase Phase, epoch, batches int) {
	c.Logger.Debug("phase started", "phase", phase, "epoch", epoch, "batches", batches)
}

func (c *LogCallback) OnBatchEnd(phase Phase, epoch int, m StepMetrics) {
	if phase != PhaseTrain || c.Every <= 0 || m.GlobalStep%c.Every != 0 {
		return
	}
	c.Logger.Info("step", "epoch", epoch, "step", m.GlobalStep, "loss", fmt.Sprintf("%.4f", m.Loss))
}

func (c *LogCallback) OnPhaseEnd(s Summary) {
	c.Logger.Info(string(s.Phase)+" done",
		"epoch", s.Epoch,
		"batches", s.Batches,
		"loss", fmt.Sprintf("%.4f", s.MeanLoss),
		"acc", fmt.Sprintf("%.3f", s.Accuracy))
}

func (c *LogCallback) OnFitEnd(s State) {
	c.Logger.Info("fit finished", "epochs", s.Epoch, "steps", s.GlobalStep)
}

// ProgressCallback draws a progress bar per phase
type ProgressCallback struct {
	Writer io.Writer
	bar    *progressbar.ProgressBar
}

// NewProgressCallback draws to w.
func NewProgressCallback(w io.Writer) *ProgressCallback {
	return &ProgressCallback{Writer: w}
}

func (c *ProgressCallback) OnPhaseStart(phase Phase, epoch, batches int) {
	c.bar = progressbar.NewOptions(batches,
		progressbar.OptionSetWriter(c.Writer),
		progressbar.OptionSetDescription(fmt.Sprintf("%-8s epoch %d", phase, epoch)),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(c.Writer) }),
	)
}

func (c *ProgressCallback) OnBatchEnd(phase Phase, epoch int, m StepMetrics) {
	if c.bar == nil {
		return
	}
	c.bar.Describe(fmt.Sprintf("%-8s epoch %d loss %.4f", phase, epoch, m.Loss))
	_ = c.bar.Add(1)
}

func (c *ProgressCallback) OnPhaseEnd(Summary) {
	if c.bar != nil {
		_ = c.bar.Finish()
		c.bar = nil
	}
}

func (c *ProgressCallback) OnFitEnd(State) {}
