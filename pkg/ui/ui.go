package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/healthbot/pkg/assistant"
	"github.com/go-go-golems/healthbot/pkg/conversation"
	"github.com/go-go-golems/healthbot/pkg/prompts"
	"github.com/google/uuid"
	"github.com/muesli/reflow/wordwrap"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type errMsg error

// states:
// - user input
// - user moving around messages
// - waiting for the assistant to reply
// - showing error

type State string

const (
	StateUserInput    State = "user_input"
	StateMovingAround State = "moving_around"
	StateWaiting      State = "waiting"
	StateError        State = "error"
)

// StreamCompletionMsg carries a streamed chunk of the reply being generated.
type StreamCompletionMsg struct {
	Delta string
}

// StreamResetMsg discards the streamed text, sent when the provider fails
// after having streamed part of a reply.
type StreamResetMsg struct{}

// TurnDoneMsg is sent once Submit returns.
type TurnDoneMsg struct {
	Reply *assistant.Reply
	Err   error
}

type refreshMessageMsg struct {
	GoToBottom bool
}

type Options struct {
	// GlamourStyle is a glamour standard style name, or "auto".
	GlamourStyle string
	Placeholder  string
	Title        string
	Disclaimer   string
}

type model struct {
	orchestrator *assistant.Orchestrator
	conv         *conversation.Conversation
	ctx          context.Context
	// cancels the turn in flight, nil when idle
	cancel context.CancelFunc

	viewport viewport.Model
	textArea textarea.Model
	help     help.Model

	renderer     *glamour.TermRenderer
	glamourStyle string

	title      string
	disclaimer string

	// index into the visible messages, always valid when there are messages
	selectedIdx int
	err         error
	keyMap      KeyMap
	style       *Style
	width       int
	height      int

	currentResponse string
	emergencies     map[uuid.UUID]bool

	state        State
	quitReceived bool
}

func InitialModel(ctx context.Context, orchestrator *assistant.Orchestrator, conv *conversation.Conversation, options Options) model {
	if options.Placeholder == "" {
		options.Placeholder = prompts.InputPlaceholder
	}
	if options.Title == "" {
		options.Title = "🩺 " + prompts.DefaultAssistantName
	}
	if options.Disclaimer == "" {
		options.Disclaimer = prompts.Disclaimer
	}
	if options.GlamourStyle == "" {
		options.GlamourStyle = "dark"
	}

	ret := model{
		orchestrator: orchestrator,
		conv:         conv,
		ctx:          ctx,
		style:        DefaultStyles(),
		keyMap:       DefaultKeyMap,
		viewport:     viewport.New(0, 0),
		help:         help.New(),
		glamourStyle: options.GlamourStyle,
		title:        options.Title,
		disclaimer:   options.Disclaimer,
		emergencies:  map[uuid.UUID]bool{},
	}

	ret.textArea = textarea.New()
	ret.textArea.Placeholder = options.Placeholder
	ret.textArea.Focus()
	ret.state = StateUserInput

	ret.selectedIdx = len(conv.Visible()) - 1

	ret.viewport.SetContent(ret.messageView())
	ret.viewport.YPosition = 0
	ret.viewport.GotoBottom()

	ret.updateKeyBindings()

	return ret
}

func (m model) Init() tea.Cmd {
	return textarea.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keyMap.UnfocusMessage):
			if m.state == StateUserInput {
				m.textArea.Blur()
				m.state = StateMovingAround
				m.updateKeyBindings()
			}

		case key.Matches(msg, m.keyMap.Quit):
			if !m.quitReceived {
				m.quitReceived = true
				// on first quit, cancel the turn in flight and wait for it to be recorded
				if m.cancel != nil {
					m.cancel()
					return m, nil
				}
			}
			return m, tea.Quit

		case key.Matches(msg, m.keyMap.FocusMessage):
			if m.state == StateMovingAround {
				cmd = m.textArea.Focus()
				cmds = append(cmds, cmd)

				m.state = StateUserInput
				m.updateKeyBindings()
			}

		case key.Matches(msg, m.keyMap.SelectNextMessage):
			if m.selectedIdx < len(m.conv.Visible())-1 {
				m.selectedIdx++
				m.viewport.SetContent(m.messageView())
			}

		case key.Matches(msg, m.keyMap.SelectPrevMessage):
			if m.selectedIdx > 0 {
				m.selectedIdx--
				m.viewport.SetContent(m.messageView())
			}

		case key.Matches(msg, m.keyMap.SubmitMessage):
			if m.state == StateUserInput {
				cmds = append(cmds, m.submit())
			}

		case key.Matches(msg, m.keyMap.CancelCompletion):
			if m.state == StateWaiting && m.cancel != nil {
				m.cancel()
			}

		case key.Matches(msg, m.keyMap.DismissError):
			if m.state == StateError {
				m.err = nil
				m.state = StateUserInput
				cmds = append(cmds, m.textArea.Focus())
				m.updateKeyBindings()
				m.recomputeSize()
			}

		case key.Matches(msg, m.keyMap.CopyToClipboard):
			visible := m.conv.Visible()
			if m.selectedIdx >= 0 && m.selectedIdx < len(visible) {
				cmds = append(cmds, copyToClipboard(visible[m.selectedIdx].Content))
			}

		case key.Matches(msg, m.keyMap.CopyLastResponseToClipboard):
			if reply, ok := m.conv.LastReply(); ok {
				cmds = append(cmds, copyToClipboard(reply.Content))
			}

		case key.Matches(msg, m.keyMap.Help):
			m.help.ShowAll = !m.help.ShowAll
			m.recomputeSize()

		default:
			switch m.state {
			case StateUserInput:
				m.textArea, cmd = m.textArea.Update(msg)
				cmds = append(cmds, cmd)
			case StateMovingAround, StateWaiting, StateError:
				m.viewport, cmd = m.viewport.Update(msg)
				cmds = append(cmds, cmd)
			}
			return m, tea.Batch(cmds...)
		}

		return m, tea.Batch(cmds...)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.renderer = m.newRenderer()

		m.recomputeSize()

	case errMsg:
		m.err = msg
		m.state = StateError
		m.textArea.Blur()
		m.updateKeyBindings()
		m.recomputeSize()
		return m, nil

	case StreamCompletionMsg:
		m.currentResponse += msg.Delta
		m.recomputeSize()

	case StreamResetMsg:
		m.currentResponse = ""
		m.recomputeSize()

	case TurnDoneMsg:
		cmd = m.finishTurn(msg)
		cmds = append(cmds, cmd)

	case refreshMessageMsg:
		m.viewport.SetContent(m.messageView())
		if msg.GoToBottom {
			m.viewport.GotoBottom()
		}

	default:
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *model) updateKeyBindings() {
	m.keyMap.CopyToClipboard.SetEnabled(m.state == StateMovingAround)
	m.keyMap.CopyLastResponseToClipboard.SetEnabled(true)

	m.keyMap.SelectNextMessage.SetEnabled(m.state == StateMovingAround)
	m.keyMap.SelectPrevMessage.SetEnabled(m.state == StateMovingAround)
	m.keyMap.FocusMessage.SetEnabled(m.state == StateMovingAround)
	m.keyMap.UnfocusMessage.SetEnabled(m.state == StateUserInput)
	m.keyMap.SubmitMessage.SetEnabled(m.state == StateUserInput)

	m.keyMap.DismissError.SetEnabled(m.state == StateError)
	m.keyMap.CancelCompletion.SetEnabled(m.state == StateWaiting)
}

func (m *model) newRenderer() *glamour.TermRenderer {
	w, _ := m.style.SelectedMessage.GetFrameSize()
	wrap := m.width - w - 2
	if wrap < 10 {
		wrap = 10
	}

	styleOption := glamour.WithStandardStyle(m.glamourStyle)
	if m.glamourStyle == "auto" {
		styleOption = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(styleOption, glamour.WithWordWrap(wrap))
	if err != nil {
		log.Warn().Err(err).Msg("could not create markdown renderer")
		return nil
	}
	return r
}

func (m *model) recomputeSize() {
	headerHeight := lipgloss.Height(m.headerView())
	textAreaHeight := lipgloss.Height(m.textAreaView())
	helpViewHeight := lipgloss.Height(m.help.View(m.keyMap))

	newHeight := m.height - textAreaHeight - headerHeight - helpViewHeight
	if newHeight < 0 {
		newHeight = 0
	}
	m.viewport.Width = m.width
	m.viewport.Height = newHeight
	m.viewport.YPosition = headerHeight + 1

	h, _ := m.style.SelectedMessage.GetFrameSize()
	m.textArea.SetWidth(m.width - h)

	m.viewport.SetContent(m.messageView())
	m.viewport.GotoBottom()
}

func (m model) headerView() string {
	title := m.style.Header.Render(m.title)
	disclaimer := m.renderMarkdown(m.disclaimer)
	return title + "\n" + m.style.Disclaimer.Render(strings.TrimSpace(disclaimer))
}

func (m model) renderMarkdown(text string) string {
	w, _ := m.style.SelectedMessage.GetFrameSize()
	width := m.width - w - m.style.SelectedMessage.GetHorizontalPadding()
	if m.renderer != nil {
		out, err := m.renderer.Render(text)
		if err == nil {
			return strings.Trim(out, "\n")
		}
		log.Debug().Err(err).Msg("could not render markdown")
	}
	if width <= 0 {
		return text
	}
	return wordwrap.String(text, width)
}

func roleLabel(role conversation.Role) string {
	switch role {
	case conversation.RoleUser:
		return "You"
	case conversation.RoleAssistant:
		return "Assistant"
	default:
		return string(role)
	}
}

func (m model) messageView() string {
	ret := ""
	padding := m.style.SelectedMessage.GetHorizontalPadding()

	for idx, message := range m.conv.Visible() {
		v := fmt.Sprintf("%s:\n%s", roleLabel(message.Role), m.renderMarkdown(message.Content))

		style := m.style.UnselectedMessage
		switch {
		case idx == m.selectedIdx && m.state == StateMovingAround:
			style = m.style.SelectedMessage
		case m.emergencies[message.ID]:
			style = m.style.EmergencyMessage
		}
		if m.width > padding {
			style = style.Width(m.width - padding)
		}
		ret += style.Render(v)
		ret += "\n"
	}

	return ret
}

func (m model) textAreaView() string {
	w, _ := m.style.SelectedMessage.GetFrameSize()
	padding := m.style.SelectedMessage.GetHorizontalPadding()

	if m.err != nil {
		v := wordwrap.String(m.err.Error(), max(m.width-w, 1))
		return m.style.EmergencyMessage.Render(v)
	}

	if m.state == StateWaiting {
		v := m.style.Status.Render("Assistant is typing...")
		if m.currentResponse != "" {
			v = wordwrap.String(m.currentResponse, max(m.width-w-padding, 1))
		}
		style := m.style.SelectedMessage
		if m.width > padding {
			style = style.Width(m.width - padding)
		}
		return style.Render(v)
	}

	v := m.textArea.View()
	switch m.state {
	case StateUserInput:
		v = m.style.FocusedMessage.Render(v)
	case StateMovingAround, StateWaiting:
		v = m.style.UnselectedMessage.Render(v)
	case StateError:
	}

	return v
}

func (m model) View() string {
	return m.headerView() + "\n" + m.viewport.View() + "\n" + m.textAreaView() + "\n" + m.help.View(m.keyMap)
}

func (m *model) submit() tea.Cmd {
	if m.cancel != nil {
		return func() tea.Msg {
			return errMsg(errors.New("a reply is already being generated"))
		}
	}

	text := m.textArea.Value()
	if strings.TrimSpace(text) == "" {
		// blank input is ignored, keep prompting
		m.textArea.SetValue("")
		return nil
	}

	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	m.state = StateWaiting
	m.currentResponse = ""
	m.textArea.Blur()
	m.textArea.SetValue("")
	m.updateKeyBindings()

	orchestrator, conv := m.orchestrator, m.conv

	return tea.Batch(
		func() tea.Msg {
			defer cancel()
			reply, err := orchestrator.Submit(ctx, conv, text)
			return TurnDoneMsg{Reply: reply, Err: err}
		},
		func() tea.Msg {
			return refreshMessageMsg{GoToBottom: true}
		},
	)
}

func (m *model) finishTurn(msg TurnDoneMsg) tea.Cmd {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.currentResponse = ""

	if msg.Reply != nil && msg.Reply.Kind == assistant.ReplyKindEmergency {
		m.emergencies[msg.Reply.Message.ID] = true
	}

	m.selectedIdx = len(m.conv.Visible()) - 1
	m.state = StateUserInput
	cmd := m.textArea.Focus()
	m.updateKeyBindings()
	m.recomputeSize()

	if m.quitReceived {
		return tea.Quit
	}

	if msg.Err != nil {
		return func() tea.Msg {
			return errMsg(msg.Err)
		}
	}

	return tea.Batch(cmd, func() tea.Msg {
		return refreshMessageMsg{GoToBottom: true}
	})
}

func copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		if err := clipboard.WriteAll(text); err != nil {
			return errMsg(errors.Wrap(err, "could not copy to clipboard"))
		}
		return nil
	}
}
