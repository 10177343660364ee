package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/lepinkainen/vidtrain/trainer"
)

// SummaryEntry is one finished phase in the history list
type SummaryEntry struct {
	Summary trainer.Summary
}

func (s SummaryEntry) FilterValue() string { return string(s.Summary.Phase) }
func (s SummaryEntry) Title() string {
	return fmt.Sprintf("%s epoch %d", s.Summary.Phase, s.Summary.Epoch+1)
}
func (s SummaryEntry) Description() string {
	return fmt.Sprintf("loss %.4f  acc %.3f  (%d batches)", s.Summary.MeanLoss, s.Summary.Accuracy, s.Summary.Batches)
}

// TrainingModel is the TUI shown while a model trains
type TrainingModel struct {
	// Training state
	maxEpochs int
	phase     trainer.Phase
	epoch     int
	batch     int
	batches   int
	lastLoss  float32
	step      int
	entries   []SummaryEntry

	// UI components
	epochProgress progress.Model
	phaseProgress progress.Model
	history       list.Model

	// Layout
	width  int
	height int

	// Control state
	cancel   func()
	quitting bool
	done     bool
	err      error

	// Version for display
	Version string
}

// NewTrainingModel creates the TUI model. cancel is called when the user
// quits before training ends.
func NewTrainingModel(maxEpochs int, version string, cancel func()) TrainingModel {
	history := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	history.Title = "Finished phases"
	history.SetShowHelp(false)

	return TrainingModel{
		maxEpochs:     maxEpochs,
		epochProgress: progress.New(progress.WithDefaultGradient()),
		phaseProgress: progress.New(progress.WithDefaultGradient()),
		history:       history,
		cancel:        cancel,
		Version:       version,
	}
}

// Init implements tea.Model
func (m TrainingModel) Init() tea.Cmd {
	return nil
}

// Err returns the error training finished with.
func (m TrainingModel) Err() error {
	return m.err
}

// Update implements tea.Model
func (m TrainingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if !m.done && m.cancel != nil {
				m.cancel()
			}
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.history.SetSize(msg.Width-4, msg.Height/2)

	case PhaseStartedMsg:
		m.phase = msg.Phase
		m.epoch = msg.Epoch
		m.batch = 0
		m.batches = msg.Batches

	case BatchDoneMsg:
		m.batch = msg.Metrics.Batch
		m.lastLoss = msg.Metrics.Loss
		m.step = msg.Metrics.GlobalStep

	case PhaseDoneMsg:
		m.entries = append(m.entries, SummaryEntry{Summary: msg.Summary})
		items := make([]list.Item, len(m.entries))
		for i := range m.entries {
			// newest first
			items[i] = m.entries[len(m.entries)-1-i]
		}
		m.history.SetItems(items)

	case FitDoneMsg:
		m.done = true
		m.err = msg.Err
		m.step = msg.State.GlobalStep
		if msg.Err == nil {
			m.epoch = msg.State.Epoch
		}
		return m, tea.Quit
	}

	return m, nil
}

// View implements tea.Model
func (m TrainingModel) View() string {
	if m.quitting && !m.done {
		return "Stopping training...\n"
	}

	header := HeaderStyle.Render(fmt.Sprintf("vidtrain %s", m.Version))

	epochPercent := 0.0
	if m.maxEpochs > 0 {
		epochPercent = float64(m.epoch) / float64(m.maxEpochs)
	}
	if m.done {
		epochPercent = 1
	}
	epochView := fmt.Sprintf("Epochs: %s (%d/%d)", m.epochProgress.ViewAs(epochPercent), min(m.epoch+1, m.maxEpochs), m.maxEpochs)

	phasePercent := 0.0
	if m.batches > 0 {
		phasePercent = float64(m.batch) / float64(m.batches)
	}
	phaseView := fmt.Sprintf("%-8s %s (%d/%d)  step %d  loss %s",
		m.phase,
		m.phaseProgress.ViewAs(phasePercent),
		m.batch, m.batches, m.step,
		MetricStyle.Render(fmt.Sprintf("%.4f", m.lastLoss)))

	status := ProcessingStyle.Render("Training...")
	switch {
	case m.done && m.err != nil:
		status = ErrorStyle.Render(fmt.Sprintf("❌ %v", m.err))
	case m.done:
		status = SuccessStyle.Render("✅ Training complete")
	}

	sections := []string{
		header,
		epochView,
		phaseView,
		status,
		m.history.View(),
		MutedStyle.Render("Controls: [q] Stop"),
	}

	return strings.Join(sections, "\n\n")
}
