// Package tui runs a workout session in the terminal.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/claude/repcoach/internal/workout"
)

// WeightStep is the change applied by the + and - keys.
const WeightStep = 2.5

// tickMsg is sent once a second while the session runs.
type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Model is the bubbletea model for one workout session.
type Model struct {
	name    string
	session *workout.Session

	notice      string
	err         string
	confirmQuit bool
	cancelled   bool
}

// New creates a model that performs s.
func New(name string, s *workout.Session) Model {
	return Model{name: name, session: s}
}

// Init starts the one-second clock.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Summary returns the finished session's summary, or false when the session
// was cancelled or the program exited early.
func (m Model) Summary() (*workout.Summary, bool) {
	return m.session.Summary()
}

// Cancelled reports whether the performer discarded the session.
func (m Model) Cancelled() bool { return m.cancelled }

// Update handles ticks and key presses.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if m.finished() {
			return m, nil
		}
		m.session.TickClock()
		if m.session.TickRest() {
			m.notice = "Rest over. Next set!"
		}
		return m, tickCmd()

	case tea.KeyMsg:
		return m.handleKey(msg.String())
	}
	return m, nil
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	if key == "ctrl+c" || (key == "q" && m.confirmQuit) {
		_ = m.session.Cancel()
		m.cancelled = true
		return m, tea.Quit
	}
	if key == "q" {
		m.confirmQuit = true
		m.notice = "Press q again to discard this workout."
		return m, nil
	}
	m.confirmQuit = false
	m.notice, m.err = "", ""

	var err error
	switch key {
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		_, err = m.session.ToggleSetComplete(int(key[0] - '0'))
	case "x", "c":
		// Completes the lowest open set; the only way past set 9.
		if n := m.session.CurrentSet(); n > 0 {
			_, err = m.session.ToggleSetComplete(n)
		} else {
			m.notice = "All sets done. Press n for the next exercise."
		}
	case "+", "=":
		_, err = m.session.AdjustWeight(WeightStep)
	case "-":
		_, err = m.session.AdjustWeight(-WeightStep)
	case "s":
		err = m.session.SkipRest()
	case "p", " ":
		_, err = m.session.TogglePause()
	case "n", "enter":
		var sum *workout.Summary
		sum, err = m.session.Advance()
		if err == nil && sum != nil {
			return m, tea.Quit
		}
	}
	if err != nil {
		m.err = err.Error()
	}
	return m, nil
}

func (m Model) finished() bool {
	st := m.session.State()
	return st == workout.StateFinished || st == workout.StateCancelled
}

// View renders the session.
func (m Model) View() string {
	if sum, ok := m.session.Summary(); ok {
		return m.summaryView(sum)
	}
	if m.cancelled {
		return "Workout discarded.\n"
	}

	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n\n")

	if ex, ok := m.session.Current(); ok {
		b.WriteString(boxStyle.Render(m.exerciseView(ex)))
		b.WriteString("\n")
		if next := m.nextUp(); next != "" {
			b.WriteString(helpStyle.Render("Next: " + next))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	switch {
	case m.err != "":
		b.WriteString(errorStyle.Render(m.err))
		b.WriteString("\n")
	case m.notice != "":
		b.WriteString(m.notice)
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("1-9 toggle set · x next set · +/- weight · s skip rest · p pause · n next · q quit"))
	b.WriteString("\n")
	return b.String()
}

func (m Model) header() string {
	status := clockStyle.Render(formatClock(m.session.Elapsed()))
	if rest, ok := m.session.RestRemaining(); ok {
		status += "  " + restStyle.Render("REST "+formatClock(rest))
	}
	if m.session.Paused() {
		status += "  " + pausedStyle.Render("PAUSED")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		titleStyle.Render(m.name), "  ", status, "  ", progressBar(m.session.Progress(), 20))
}

func (m Model) exerciseView(ex workout.Exercise) string {
	i := m.session.CurrentIndex()
	done := make(map[int]bool)
	for _, n := range m.session.CompletedSets(i) {
		done[n] = true
	}
	next := m.session.CurrentSet()

	sets := make([]string, 0, ex.TargetSets)
	for n := 1; n <= ex.TargetSets; n++ {
		label := fmt.Sprintf("[%d]", n)
		switch {
		case done[n]:
			sets = append(sets, doneSetStyle.Render("[✓]"))
		case n == next:
			sets = append(sets, nextSetStyle.Render(label))
		default:
			sets = append(sets, openSetStyle.Render(label))
		}
	}

	lines := []string{
		sectionStyle.Render(strings.ToUpper(string(ex.Section))) + "  " +
			helpStyle.Render(fmt.Sprintf("exercise %d of %d", i+1, len(m.session.Exercises()))),
		nameStyle.Render(ex.Name),
		fmt.Sprintf("%d × %d reps  @ %s", ex.TargetSets, ex.TargetReps, formatWeight(m.session.WorkingWeight(i))),
		strings.Join(sets, " "),
	}
	if ex.Notes != "" {
		lines = append(lines, helpStyle.Render(ex.Notes))
	}
	if ex.VideoURL != "" {
		lines = append(lines, helpStyle.Render(ex.VideoURL))
	}
	return strings.Join(lines, "\n")
}

func (m Model) nextUp() string {
	exercises := m.session.Exercises()
	i := m.session.CurrentIndex() + 1
	if i >= len(exercises) {
		return ""
	}
	return exercises[i].Name
}

func (m Model) summaryView(sum *workout.Summary) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.name + " complete"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Time %s · %d/%d sets\n\n", formatClock(sum.DurationSeconds), sum.CompletedSets(), sum.TotalSets())
	for _, r := range sum.Exercises {
		mark := doneSetStyle.Render("✓")
		if !r.FullyCompleted {
			mark = openSetStyle.Render("·")
		}
		fmt.Fprintf(&b, "%s %-24s %d/%d @ %s\n", mark, r.Name, r.CompletedSets, r.TargetSets, formatWeight(r.WeightUsed))
	}
	return b.String()
}

// formatClock formats seconds as M:SS, or H:MM:SS from an hour up.
func formatClock(sec int) string {
	if sec < 0 {
		sec = 0
	}
	h, m, s := sec/3600, sec%3600/60, sec%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func formatWeight(w float64) string {
	if w == 0 {
		return "bodyweight"
	}
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", w), "0"), ".") + " kg"
}

func progressBar(frac float64, width int) string {
	filled := int(frac*float64(width) + 0.5)
	filled = min(max(filled, 0), width)
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + fmt.Sprintf("] %3.0f%%", frac*100)
}
