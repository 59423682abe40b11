package cmd

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/lumenlauncher/lumen/internal/query"
)

const interactiveStream = "interactive"

var (
	promptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// NewInteractiveCmd creates the live query prompt. Every keystroke
// submits a new query session; superseded sessions are cancelled by the
// dispatcher and only the freshest ranked list is rendered.
func NewInteractiveCmd() *cobra.Command {
	var paths []string

	cmd := &cobra.Command{
		Use:   "interactive",
		Short: "Type-ahead query prompt over the scanned catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngine(cmd.Context(), paths)
			if err != nil {
				return err
			}
			defer eng.close()

			m := newInteractiveModel(eng)
			p := tea.NewProgram(m, tea.WithContext(cmd.Context()))
			_, err = p.Run()
			return err
		},
	}

	cmd.Flags().StringSliceVar(&paths, "path", nil, "Additional directories to scan")

	return cmd
}

type resultsMsg query.Result

type interactiveModel struct {
	eng      *engine
	input    textinput.Model
	results  query.Result
	selected int
	maxShow  int
}

func newInteractiveModel(eng *engine) interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "type to search"
	ti.PromptStyle = promptStyle
	ti.Focus()

	return interactiveModel{
		eng:     eng,
		input:   ti,
		maxShow: 15,
	}
}

// listenResults waits for the next published ranked list.
func listenResults(ch <-chan query.Result) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-ch
		if !ok {
			return nil
		}
		return resultsMsg(res)
	}
}

func (m interactiveModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.submit(""),
		listenResults(m.eng.dispatcher.Results(interactiveStream)),
	)
}

func (m interactiveModel) submit(text string) tea.Cmd {
	return func() tea.Msg {
		// Submit only errors once the dispatcher is closed, and by then
		// the prompt is already shutting down.
		_, _ = m.eng.dispatcher.Submit(interactiveStream, text)
		return nil
	}
}

func (m interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyUp:
			if m.selected > 0 {
				m.selected--
			}
			return m, nil
		case tea.KeyDown:
			if m.selected < len(m.results.Matches)-1 {
				m.selected++
			}
			return m, nil
		}

		before := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if after := m.input.Value(); after != before {
			m.selected = 0
			return m, tea.Batch(cmd, m.submit(after))
		}
		return m, cmd

	case resultsMsg:
		m.results = query.Result(msg)
		if m.selected >= len(m.results.Matches) {
			m.selected = 0
		}
		return m, listenResults(m.eng.dispatcher.Results(interactiveStream))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m interactiveModel) View() string {
	s := m.input.View() + "\n\n"

	shown := m.results.Matches
	if len(shown) > m.maxShow {
		shown = shown[:m.maxShow]
	}
	for i, res := range shown {
		line := highlighted(res)
		if i == m.selected {
			line = selectedStyle.Render(line)
		}
		s += "  " + line + "\n"
	}

	stats := m.eng.metrics.Snapshot()
	s += "\n" + dimStyle.Render(fmt.Sprintf(
		"%d items · %d queries · %d superseded · esc to quit",
		m.eng.store.Len(), stats.TotalQueries, stats.Cancelled))
	return s
}
