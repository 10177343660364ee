package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/lepinkainen/vidtrain/trainer"
)

// Sender is the part of tea.Program the training callback needs
type Sender interface {
	Send(msg tea.Msg)
}

// TrainingCallback forwards training events to a running TUI
type TrainingCallback struct {
	Program Sender
}

func (c TrainingCallback) OnPhaseStart(phase trainer.Phase, epoch, batches int) {
	c.Program.Send(PhaseStartedMsg{Phase: phase, Epoch: epoch, Batches: batches})
}

func (c TrainingCallback) OnBatchEnd(phase trainer.Phase, epoch int, m trainer.StepMetrics) {
	c.Program.Send(BatchDoneMsg{Phase: phase, Epoch: epoch, Metrics: m})
}

func (c TrainingCallback) OnPhaseEnd(s trainer.Summary) {
	c.Program.Send(PhaseDoneMsg{Summary: s})
}

// OnFitEnd is a no-op; the caller sends FitDoneMsg with the result of Fit.
func (c TrainingCallback) OnFitEnd(trainer.State) {}
