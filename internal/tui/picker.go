package tui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrCanceled is returned when the user dismisses a prompt.
var ErrCanceled = errors.New("selection canceled")

// pickerModel is a multi-select list. Every choice starts selected.
type pickerModel struct {
	title    string
	choices  []Choice
	cursor   int
	selected []bool
	help     help.Model

	done     bool
	canceled bool
}

func newPickerModel(title string, choices []Choice) pickerModel {
	selected := make([]bool, len(choices))
	for i := range selected {
		selected[i] = true
	}
	return pickerModel{
		title:    title,
		choices:  choices,
		selected: selected,
		help:     help.New(),
	}
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.done {
		return m, nil
	}
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit), key.Matches(msg, keys.Back):
			m.done = true
			m.canceled = true
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.choices)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.Toggle):
			if len(m.choices) > 0 {
				m.selected[m.cursor] = !m.selected[m.cursor]
			}
		case key.Matches(msg, keys.ToggleAll):
			all := !m.allSelected()
			for i := range m.selected {
				m.selected[i] = all
			}
		case key.Matches(msg, keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, keys.Enter):
			// An empty selection takes the highlighted choice.
			if len(m.choices) > 0 && len(m.chosen()) == 0 {
				m.selected[m.cursor] = true
			}
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m pickerModel) allSelected() bool {
	for _, s := range m.selected {
		if !s {
			return false
		}
	}
	return true
}

// chosen returns the indexes of the selected choices in order.
func (m pickerModel) chosen() []int {
	var out []int
	for i, s := range m.selected {
		if s {
			out = append(out, i)
		}
	}
	return out
}

func (m pickerModel) View() string {
	if m.done {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(m.title) + "\n\n")
	for i, c := range m.choices {
		check := "[ ]"
		if m.selected[i] {
			check = checkedStyle.Render("[x]")
		}
		cursor := "  "
		title := normalItemStyle.Render(c.Title)
		if i == m.cursor {
			cursor = selectedItemStyle.Render("> ")
			title = selectedItemStyle.Render(c.Title)
		}
		sb.WriteString(cursor + check + " " + title)
		if c.Description != "" {
			sb.WriteString("  " + mutedStyle.Render(c.Description))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(helpStyle.Render(m.help.View(pickerHelpKeyMap{})) + "\n")
	return sb.String()
}

// Pick shows choices under title and returns the indexes the user kept.
func Pick(in io.Reader, out io.Writer, title string, choices []Choice) ([]int, error) {
	p := tea.NewProgram(newPickerModel(title, choices), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("running picker: %w", err)
	}
	m, ok := final.(pickerModel)
	if !ok || m.canceled {
		return nil, ErrCanceled
	}
	return m.chosen(), nil
}
