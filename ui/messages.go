package ui

import "github.com/lepinkainen/vidtrain/trainer"

// TUI message types sent by the training loop
type PhaseStartedMsg struct {
	Phase   trainer.Phase
	Epoch   int
	Batches int
}

type BatchDoneMsg struct {
	Phase   trainer.Phase
	Epoch   int
	Metrics trainer.StepMetrics
}

type PhaseDoneMsg struct {
	Summary trainer.Summary
}

// FitDoneMsg is sent once Fit returns, with its error if any
type FitDoneMsg struct {
	State trainer.State
	Err   error
}
