package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/redpkg/codec"
	"github.com/wippyai/redpkg/dump"
	"github.com/wippyai/redpkg/query"
	"github.com/wippyai/redpkg/registry"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	classStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateChunks modelState = iota
	stateFields
	stateQuery
)

type interactiveModel struct {
	err      error
	pkg      *codec.Package
	reg      *registry.Registry
	filename string
	filter   string
	chunks   []dump.ChunkDoc
	visible  []int
	input    textinput.Model
	selected int
	offset   int
	height   int
	state    modelState
}

func newInteractiveModel(filename string, pkg *codec.Package, reg *registry.Registry) *interactiveModel {
	ti := textinput.New()
	ti.Prompt = "query: "
	ti.Placeholder = `class == "entMeshComponent"`
	ti.Width = 60

	return &interactiveModel{
		pkg:      pkg,
		reg:      reg,
		filename: filename,
		input:    ti,
		height:   20,
		state:    stateChunks,
	}
}

type loadedMsg struct {
	err    error
	chunks []dump.ChunkDoc
}

type filteredMsg struct {
	err     error
	filter  string
	visible []int
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadChunks
}

func (m *interactiveModel) loadChunks() tea.Msg {
	chunks := make([]dump.ChunkDoc, len(m.pkg.Chunks))
	for i := range chunks {
		cd, err := dump.Chunk(m.pkg, m.reg, i)
		if err != nil {
			return loadedMsg{err: err}
		}
		chunks[i] = cd
	}
	return loadedMsg{chunks: chunks}
}

func (m *interactiveModel) applyFilter() tea.Msg {
	src := strings.TrimSpace(m.input.Value())
	if src == "" {
		return filteredMsg{visible: allIndices(len(m.pkg.Chunks))}
	}
	f, err := query.Compile(src)
	if err != nil {
		return filteredMsg{err: err}
	}
	visible, err := f.Select(m.pkg, m.reg)
	if err != nil {
		return filteredMsg{err: err}
	}
	return filteredMsg{filter: src, visible: visible}
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if msg.Height > 8 {
			m.height = msg.Height - 8
		}

	case tea.KeyMsg:
		if m.state == stateQuery {
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "enter":
				m.input.Blur()
				m.state = stateChunks
				return m, m.applyFilter
			case "esc":
				m.input.Blur()
				m.state = stateChunks
				return m, nil
			}
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.state == stateChunks && m.selected > 0 {
				m.selected--
				m.scroll()
			}

		case "down", "j":
			if m.state == stateChunks && m.selected < len(m.visible)-1 {
				m.selected++
				m.scroll()
			}

		case "/":
			if m.state == stateChunks {
				m.err = nil
				m.state = stateQuery
				return m, m.input.Focus()
			}

		case "enter":
			switch m.state {
			case stateChunks:
				if len(m.visible) > 0 {
					m.state = stateFields
				}
			case stateFields:
				m.state = stateChunks
			}

		case "esc":
			switch m.state {
			case stateFields:
				m.state = stateChunks
			case stateChunks:
				if m.filter != "" {
					m.input.SetValue("")
					return m, m.applyFilter
				}
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.chunks = msg.chunks
		m.visible = allIndices(len(msg.chunks))

	case filteredMsg:
		m.err = msg.err
		if msg.err == nil {
			m.filter = msg.filter
			m.visible = msg.visible
			m.selected = 0
			m.offset = 0
		}
	}

	return m, nil
}

// scroll keeps the selection inside the visible window.
func (m *interactiveModel) scroll() {
	if m.selected < m.offset {
		m.offset = m.selected
	}
	if m.selected >= m.offset+m.height {
		m.offset = m.selected - m.height + 1
	}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.chunks == nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.chunks == nil {
		return "Loading package..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("redpkg"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	fmt.Fprintf(&b, "  v%d, %d imports, %d names\n\n", m.pkg.Version, len(m.pkg.Imports), len(m.pkg.Names))

	switch m.state {
	case stateChunks, stateQuery:
		if m.filter != "" {
			fmt.Fprintf(&b, "%d of %d chunks match %s\n\n", len(m.visible), len(m.chunks), typeStyle.Render(m.filter))
		}
		end := min(m.offset+m.height, len(m.visible))
		for i := m.offset; i < end; i++ {
			c := m.chunks[m.visible[i]]
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + strings.TrimSpace(dump.ChunkLabel(c))))
			} else {
				b.WriteString("  " + m.formatChunk(c))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		if m.state == stateQuery {
			b.WriteString(m.input.View())
			b.WriteString("\n")
			b.WriteString(helpStyle.Render("enter apply • esc cancel"))
		} else {
			if m.err != nil {
				b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
				b.WriteString("\n")
			}
			b.WriteString(helpStyle.Render("↑/↓ select • enter fields • / query • q quit"))
		}

	case stateFields:
		c := m.chunks[m.visible[m.selected]]
		b.WriteString(m.formatChunk(c))
		b.WriteString("\n\n")
		for _, f := range c.Fields {
			fmt.Fprintf(&b, "  %s: %s = %s\n", f.Name, typeStyle.Render(f.Type), valueStyle.Render(dump.Format(f.Value)))
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter back • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatChunk(c dump.ChunkDoc) string {
	s := fmt.Sprintf("[%d] %s", c.Index, classStyle.Render(c.Type))
	if c.Root != nil {
		s += typeStyle.Render(fmt.Sprintf(" root=%d", *c.Root))
	}
	if c.Dynamic {
		s += helpStyle.Render(" (dynamic)")
	}
	return s
}

func runInteractive(filename string, pkg *codec.Package, reg *registry.Registry) error {
	p := tea.NewProgram(newInteractiveModel(filename, pkg, reg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
