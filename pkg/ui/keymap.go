package ui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	SelectPrevMessage key.Binding
	SelectNextMessage key.Binding
	UnfocusMessage    key.Binding
	FocusMessage      key.Binding
	SubmitMessage     key.Binding
	ScrollUp          key.Binding
	ScrollDown        key.Binding
	CancelCompletion  key.Binding
	DismissError      key.Binding

	CopyToClipboard             key.Binding
	CopyLastResponseToClipboard key.Binding

	Help key.Binding
	Quit key.Binding
}

var DefaultKeyMap = KeyMap{
	SelectPrevMessage: key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "previous message")),
	SelectNextMessage: key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "next message")),
	UnfocusMessage:    key.NewBinding(key.WithKeys("esc", "ctrl+g"), key.WithHelp("esc", "browse messages")),
	FocusMessage:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "write message")),
	SubmitMessage:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "send")),
	ScrollUp:          key.NewBinding(key.WithKeys("shift+pgup"), key.WithHelp("shift+pgup", "scroll up")),
	ScrollDown:        key.NewBinding(key.WithKeys("shift+pgdown"), key.WithHelp("shift+pgdown", "scroll down")),
	CancelCompletion:  key.NewBinding(key.WithKeys("esc", "ctrl+g"), key.WithHelp("esc", "cancel")),
	DismissError:      key.NewBinding(key.WithKeys("esc", "ctrl+g"), key.WithHelp("esc", "dismiss")),

	CopyToClipboard:             key.NewBinding(key.WithKeys("alt+c"), key.WithHelp("alt+c", "copy message")),
	CopyLastResponseToClipboard: key.NewBinding(key.WithKeys("alt+l"), key.WithHelp("alt+l", "copy last reply")),

	Help: key.NewBinding(key.WithKeys("alt+h"), key.WithHelp("alt+h", "help")),
	Quit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.SubmitMessage, k.UnfocusMessage, k.FocusMessage, k.CancelCompletion, k.DismissError, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.SubmitMessage, k.UnfocusMessage, k.FocusMessage},
		{k.SelectPrevMessage, k.SelectNextMessage, k.ScrollUp, k.ScrollDown},
		{k.CopyToClipboard, k.CopyLastResponseToClipboard},
		{k.CancelCompletion, k.DismissError, k.Help, k.Quit},
	}
}
