package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Match is a training video that looks like the group's test video
type Match struct {
	Path     string
	Distance int
}

// LeakGroup is a test video and the training videos within the hash
// distance threshold of it
type LeakGroup struct {
	TestVideo string
	Matches   []Match
	// Selected marks entries for the exclusion list; index 0 is the test
	// video, index i+1 is Matches[i]
	Selected []bool
}

func (g LeakGroup) paths() []string {
	paths := []string{g.TestVideo}
	for _, m := range g.Matches {
		paths = append(paths, m.Path)
	}
	return paths
}

// ExportCompleteMsg reports the result of writing the exclusion list
type ExportCompleteMsg struct {
	Path  string
	Count int
	Err   error
}

// LeakageModel lets the user review cross-split near duplicates and
// export the videos to exclude
type LeakageModel struct {
	// Data
	groups       []LeakGroup
	currentGroup int
	currentFile  int
	outputPath   string

	// UI state
	width  int
	height int

	// Interaction state
	confirmingExport bool
	pendingExport    []string
	lastExport       string
	showHelp         bool

	// Control state
	quitting bool
}

// NewLeakageModel creates the review model. Confirmed selections are
// written to outputPath, one path per line.
func NewLeakageModel(groups []LeakGroup, outputPath string) LeakageModel {
	for i := range groups {
		groups[i].Selected = make([]bool, len(groups[i].Matches)+1)
	}
	return LeakageModel{
		groups:     groups,
		outputPath: outputPath,
		showHelp:   true,
	}
}

// Init implements tea.Model
func (m LeakageModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m LeakageModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.confirmingExport {
			return m.handleConfirmationInput(msg)
		}
		return m.handleNormalInput(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case ExportCompleteMsg:
		if msg.Err != nil {
			m.lastExport = ErrorStyle.Render(fmt.Sprintf("❌ Export failed: %v", msg.Err))
		} else {
			m.lastExport = SuccessStyle.Render(fmt.Sprintf("✅ Wrote %d path(s) to %s", msg.Count, msg.Path))
		}
		m.pendingExport = nil
	}

	return m, nil
}

func (m LeakageModel) handleNormalInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit
	}
	if len(m.groups) == 0 {
		return m, nil
	}

	group := &m.groups[m.currentGroup]
	switch msg.String() {
	case "h", "?":
		m.showHelp = !m.showHelp

	case "up", "k":
		if m.currentFile > 0 {
			m.currentFile--
		}

	case "down", "j":
		if m.currentFile < len(group.Selected)-1 {
			m.currentFile++
		}

	case "left", "p":
		if m.currentGroup > 0 {
			m.currentGroup--
			m.currentFile = 0
		}

	case "right", "n", "s":
		if m.currentGroup < len(m.groups)-1 {
			m.currentGroup++
			m.currentFile = 0
		}

	case " ":
		group.Selected[m.currentFile] = !group.Selected[m.currentFile]

	case "t": // select the test video only
		for i := range group.Selected {
			group.Selected[i] = i == 0
		}

	case "c":
		for i := range group.Selected {
			group.Selected[i] = false
		}

	case "enter":
		return m.handleExportCommand()
	}

	return m, nil
}

func (m LeakageModel) handleConfirmationInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.confirmingExport = false
		return m, m.executeExportCommand()

	case "n", "N", "ctrl+c", "esc":
		m.confirmingExport = false
		m.pendingExport = nil
	}

	return m, nil
}

// Selected returns every selected path across all groups, without repeats.
func (m LeakageModel) Selected() []string {
	seen := make(map[string]bool)
	var selected []string
	for _, group := range m.groups {
		for i, path := range group.paths() {
			if group.Selected[i] && !seen[path] {
				seen[path] = true
				selected = append(selected, path)
			}
		}
	}
	return selected
}

func (m LeakageModel) handleExportCommand() (tea.Model, tea.Cmd) {
	selected := m.Selected()
	if len(selected) == 0 {
		return m, nil
	}
	m.pendingExport = selected
	m.confirmingExport = true
	return m, nil
}

func (m LeakageModel) executeExportCommand() tea.Cmd {
	paths, out := m.pendingExport, m.outputPath
	return func() tea.Msg {
		content := strings.Join(paths, "\n") + "\n"
		if err := os.WriteFile(out, []byte(content), 0644); err != nil {
			return ExportCompleteMsg{Path: out, Err: err}
		}
		return ExportCompleteMsg{Path: out, Count: len(paths)}
	}
}

// View implements tea.Model
func (m LeakageModel) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	if len(m.groups) == 0 {
		style := SuccessStyle.MarginTop(2).MarginLeft(2)
		return style.Render("✅ No test video has a near duplicate in the training split.\n\nPress 'q' to quit.")
	}
	if m.confirmingExport {
		return m.renderConfirmationDialog()
	}
	return m.renderMainView()
}

func (m LeakageModel) renderConfirmationDialog() string {
	var content strings.Builder

	content.WriteString(HeaderStyle.Render("Confirm Export"))
	content.WriteString("\n\n")
	content.WriteString(fmt.Sprintf("Write %d path(s) to %s?\n\n", len(m.pendingExport), m.outputPath))
	for _, file := range m.pendingExport {
		content.WriteString(fmt.Sprintf("  • %s\n", file))
	}
	content.WriteString("\n")
	content.WriteString(WarningStyle.Render("An existing file is overwritten."))
	content.WriteString("\n\n")
	content.WriteString("Press 'y' to confirm, 'n' to cancel")

	return content.String()
}

func (m LeakageModel) renderMainView() string {
	var content strings.Builder

	header := fmt.Sprintf("Split leakage review (test video %d of %d)", m.currentGroup+1, len(m.groups))
	content.WriteString(HeaderStyle.Render(header))
	content.WriteString("\n\n")

	group := m.groups[m.currentGroup]
	content.WriteString(InfoStyle.Render(fmt.Sprintf("%d training video(s) within threshold", len(group.Matches))))
	content.WriteString("\n\n")
	content.WriteString(m.renderFileList(group))
	content.WriteString("\n")

	if m.lastExport != "" {
		content.WriteString(m.lastExport)
		content.WriteString("\n\n")
	}

	if m.showHelp {
		content.WriteString(m.renderHelp())
	} else {
		content.WriteString("Press 'h' for help")
	}

	return content.String()
}

func (m LeakageModel) renderFileList(group LeakGroup) string {
	var content strings.Builder
	paths := group.paths()
	display := optimizePaths(paths)

	for i, path := range paths {
		var line strings.Builder
		if group.Selected[i] {
			line.WriteString("[✓] ")
		} else {
			line.WriteString("[ ] ")
		}

		name := filepath.Base(path)
		style := lipgloss.NewStyle()
		if group.Selected[i] {
			style = SuccessStyle
		}
		if i == m.currentFile {
			style = style.Reverse(true)
		}
		line.WriteString(style.Render(name))

		if i == 0 {
			line.WriteString(MutedStyle.Render(" test"))
		} else {
			line.WriteString(MutedStyle.Render(fmt.Sprintf(" train, distance %d", group.Matches[i-1].Distance)))
		}
		line.WriteString(fmt.Sprintf(" (%s)", display[i]))
		content.WriteString(line.String())
		content.WriteString("\n")
	}

	return content.String()
}

// optimizePaths drops the directory prefix shared by all paths, keeping
// one level of it for context
func optimizePaths(paths []string) []string {
	if len(paths) <= 1 {
		return paths
	}

	components := make([][]string, len(paths))
	shortest := -1
	for i, path := range paths {
		components[i] = strings.Split(filepath.Clean(path), string(filepath.Separator))
		if shortest < 0 || len(components[i]) < shortest {
			shortest = len(components[i])
		}
	}

	common := 0
	for common < shortest {
		first := components[0][common]
		match := true
		for _, c := range components[1:] {
			if c[common] != first {
				match = false
				break
			}
		}
		if !match {
			break
		}
		common++
	}

	result := make([]string, len(paths))
	for i, c := range components {
		start := max(common-1, 0)
		if start >= len(c) {
			result[i] = paths[i]
			continue
		}
		result[i] = filepath.Join(c[start:]...)
		if start > 0 {
			result[i] = "..." + string(filepath.Separator) + result[i]
		}
	}
	return result
}

func (m LeakageModel) renderHelp() string {
	help := []string{
		"",
		"Navigation:",
		"  ↑/↓ or j/k   Move within the group",
		"  ←/→ or p/n   Previous/Next test video",
		"",
		"Selection:",
		"  Space        Toggle selection",
		"  t            Select only the test video",
		"  c            Clear selections in group",
		"",
		"Actions:",
		"  Enter        Export selected paths from all groups (with confirmation)",
		"  h/?          Toggle this help",
		"  q            Quit",
		"",
	}
	return strings.Join(help, "\n")
}
