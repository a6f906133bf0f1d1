package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tetratelabs/wazero/api"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/wippyai/anyfile/engine"
	"github.com/wippyai/anyfile/loader"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	// title, blank line, help line and a margin
	chromeLines = 4
)

type inspectState int

const (
	stateOverview inspectState = iota
	stateSelectFunc
	stateInputArgs
	stateShowResult
)

type inspectModel struct {
	err      error
	eng      *engine.WazeroEngine
	report   *infoReport
	module   []byte
	filename string
	result   string
	funcs    []engine.Function
	inputs   []textinput.Model
	overview viewport.Model
	selected int
	focusIdx int
	state    inspectState
	loaded   bool
}

type inspectLoadedMsg struct {
	err    error
	report *infoReport
	module []byte
	funcs  []engine.Function
}

type callResultMsg struct {
	err    error
	result string
}

func inspectCmd() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Browse an .any file and call its module exports interactively",
		ArgsUsage: "FILE",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("inspect: expected FILE")
			}
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return errors.New("inspect: stdout is not a terminal; use info instead")
			}
			eng, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close(ctx)

			w, h, err := term.GetSize(int(os.Stdout.Fd()))
			if err != nil {
				w, h = defaultWidth, defaultHeight
			}
			m := newInspectModel(eng, cmd.Args().First(), w, h)
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}
}

func newInspectModel(eng *engine.WazeroEngine, filename string, width, height int) *inspectModel {
	return &inspectModel{
		eng:      eng,
		filename: filename,
		overview: viewport.New(width, max(height-chromeLines, 1)),
		state:    stateOverview,
	}
}

func (m *inspectModel) Init() tea.Cmd {
	return m.load
}

func (m *inspectModel) load() tea.Msg {
	report, err := loadInfo(m.filename)
	if err != nil {
		return inspectLoadedMsg{err: err}
	}
	c, err := readContainer(m.filename)
	if err != nil {
		return inspectLoadedMsg{err: err}
	}
	msg := inspectLoadedMsg{report: report, module: c.Module}
	// A module that does not compile still leaves the overview usable.
	if funcs, err := m.eng.Functions(context.Background(), c.Module); err == nil {
		msg.funcs = funcs
	}
	return msg
}

func (m *inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.overview.Width = msg.Width
		m.overview.Height = max(msg.Height-chromeLines, 1)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateInputArgs {
				return m, tea.Quit
			}

		case "tab":
			switch m.state {
			case stateOverview:
				if len(m.funcs) > 0 {
					m.state = stateSelectFunc
				}
				return m, nil
			case stateSelectFunc:
				m.state = stateOverview
				return m, nil
			case stateInputArgs:
				if len(m.inputs) > 1 {
					m.inputs[m.focusIdx].Blur()
					m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
					m.inputs[m.focusIdx].Focus()
				}
				return m, nil
			}

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
				return m, nil
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.funcs)-1 {
				m.selected++
				return m, nil
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callFunction
				}
				m.state = stateInputArgs
				return m, nil
			case stateInputArgs:
				return m, m.callFunction
			case stateShowResult:
				m.resetResult()
				return m, nil
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectFunc
				m.inputs = nil
				return m, nil
			case stateShowResult:
				m.resetResult()
				return m, nil
			}
		}

	case inspectLoadedMsg:
		m.loaded = true
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.report = msg.report
		m.module = msg.module
		m.funcs = msg.funcs
		m.overview.SetContent(renderOverview(msg.report, msg.funcs))

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
		return m, nil
	}

	switch m.state {
	case stateOverview:
		var cmd tea.Cmd
		m.overview, cmd = m.overview.Update(msg)
		return m, cmd
	case stateInputArgs:
		cmds := make([]tea.Cmd, 0, len(m.inputs))
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

func (m *inspectModel) resetResult() {
	m.state = stateSelectFunc
	m.result = ""
	m.err = nil
}

func (m *inspectModel) prepareInputs() {
	f := m.funcs[m.selected]
	m.inputs = make([]textinput.Model, len(f.Params))
	for i, p := range f.Params {
		ti := textinput.New()
		ti.Placeholder = api.ValueTypeName(p)
		ti.Prompt = fmt.Sprintf("arg%d: ", i)
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *inspectModel) callFunction() tea.Msg {
	f := m.funcs[m.selected]
	params := make([]uint64, len(m.inputs))
	for i, input := range m.inputs {
		v, err := engine.ParseParam(f.Params[i], input.Value())
		if err != nil {
			return callResultMsg{err: err}
		}
		params[i] = v
	}

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout())
	defer cancel()
	results, err := m.eng.Call(ctx, m.module, f.Name, params...)
	if err != nil {
		return callResultMsg{err: err}
	}
	return callResultMsg{result: formatResults(f, results)}
}

// callTimeout bounds one interactive call, start function included.
func callTimeout() time.Duration {
	if settings.StageTimeout > 0 {
		return settings.StageTimeout
	}
	return loader.DefaultStageTimeout
}

func formatResults(f engine.Function, results []uint64) string {
	if len(results) == 0 {
		return "(no results)"
	}
	out := make([]string, len(results))
	for i, v := range results {
		t := api.ValueTypeI64
		if i < len(f.Results) {
			t = f.Results[i]
		}
		out[i] = engine.FormatResult(t, v)
	}
	return strings.Join(out, ", ")
}

func (m *inspectModel) View() string {
	if !m.loaded {
		return "Loading " + m.filename + "..."
	}
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("anyfile"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	switch m.state {
	case stateOverview:
		b.WriteString(m.overview.View())
		b.WriteString("\n")
		help := "↑/↓ scroll • q quit"
		if len(m.funcs) > 0 {
			help = "↑/↓ scroll • tab functions • q quit"
		}
		b.WriteString(helpStyle.Render(help))

	case stateSelectFunc:
		b.WriteString("Select a function to call:\n\n")
		for i, f := range m.funcs {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + f.Signature()))
			} else {
				b.WriteString("  " + formatFunc(f))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • tab overview • q quit"))

	case stateInputArgs:
		f := m.funcs[m.selected]
		fmt.Fprintf(&b, "Calling %s\n\n", funcStyle.Render(f.Name))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(api.ValueTypeName(f.Params[i])))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		f := m.funcs[m.selected]
		fmt.Fprintf(&b, "Result of %s:\n\n", funcStyle.Render(f.Name))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func formatFunc(f engine.Function) string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = typeStyle.Render(api.ValueTypeName(p))
	}
	var results string
	if len(f.Results) > 0 {
		rs := make([]string, len(f.Results))
		for i, r := range f.Results {
			rs[i] = typeStyle.Render(api.ValueTypeName(r))
		}
		results = " -> " + strings.Join(rs, ", ")
	}
	return funcStyle.Render(f.Name) + "(" + strings.Join(params, ", ") + ")" + results
}

// renderOverview is the scrollable body of the overview screen: the info
// text followed by the module exports.
func renderOverview(r *infoReport, funcs []engine.Function) string {
	var b bytes.Buffer
	if err := writeInfoText(&b, r); err != nil {
		return errorStyle.Render(err.Error())
	}
	b.WriteString("\nExports:\n")
	if len(funcs) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, f := range funcs {
		b.WriteString("  " + formatFunc(f) + "\n")
	}
	return b.String()
}
