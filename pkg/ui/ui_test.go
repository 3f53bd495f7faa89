package ui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/healthbot/pkg/assistant"
	"github.com/go-go-golems/healthbot/pkg/conversation"
	"github.com/go-go-golems/healthbot/pkg/prompts"
	"github.com/go-go-golems/healthbot/pkg/provider"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T, reply string) (model, *conversation.Conversation) {
	t.Helper()
	conv, err := conversation.New("system prompt", prompts.Greeting)
	require.NoError(t, err)

	p := provider.ProviderFunc(func(ctx context.Context, history []conversation.ChatMessage) (string, error) {
		return reply, nil
	})
	o := assistant.New(p, assistant.WithLogger(zerolog.Nop()))

	m := InitialModel(context.Background(), o, conv, Options{})
	// no renderer, so that views hold plain text
	m.width = 80
	m.height = 40
	m.recomputeSize()
	return m, conv
}

// runTurn executes the commands returned by submit until the turn is done.
func runTurn(t *testing.T, cmd tea.Cmd) TurnDoneMsg {
	t.Helper()
	require.NotNil(t, cmd)
	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)
	for _, c := range batch {
		if c == nil {
			continue
		}
		if done, ok := c().(TurnDoneMsg); ok {
			return done
		}
	}
	t.Fatal("no TurnDoneMsg produced")
	return TurnDoneMsg{}
}

func TestBlankInputIsIgnored(t *testing.T) {
	m, conv := newTestModel(t, "unused")
	before := conv.Len()

	m.textArea.SetValue("   ")
	assert.Nil(t, m.submit())
	assert.Equal(t, StateUserInput, m.state)
	assert.Equal(t, before, conv.Len())
}

func TestSubmitRecordsTurn(t *testing.T) {
	m, conv := newTestModel(t, "Stay hydrated.")
	before := conv.Len()

	m.textArea.SetValue("Tips for a cold?")
	cmd := m.submit()
	assert.Equal(t, StateWaiting, m.state)
	assert.Equal(t, "", m.textArea.Value())

	done := runTurn(t, cmd)
	require.NoError(t, done.Err)
	assert.Equal(t, assistant.ReplyKindGenerated, done.Reply.Kind)

	updated, _ := m.Update(done)
	m = updated.(model)
	assert.Equal(t, StateUserInput, m.state)
	assert.Nil(t, m.cancel)
	assert.Equal(t, before+2, conv.Len())
	assert.Contains(t, m.messageView(), "Tips for a cold?")
}

func TestEmergencyRepliesAreMarked(t *testing.T) {
	m, _ := newTestModel(t, "unused")

	m.textArea.SetValue("sudden severe headache")
	done := runTurn(t, m.submit())
	require.Equal(t, assistant.ReplyKindEmergency, done.Reply.Kind)

	updated, _ := m.Update(done)
	m = updated.(model)
	assert.True(t, m.emergencies[done.Reply.Message.ID])
}

func TestStreamedTextIsShownWhileWaiting(t *testing.T) {
	m, _ := newTestModel(t, "unused")
	m.state = StateWaiting

	updated, _ := m.Update(StreamCompletionMsg{Delta: "Rest "})
	updated, _ = updated.(model).Update(StreamCompletionMsg{Delta: "well."})
	m = updated.(model)
	assert.Equal(t, "Rest well.", m.currentResponse)
	assert.Contains(t, m.textAreaView(), "Rest well.")

	updated, _ = m.Update(StreamResetMsg{})
	assert.Equal(t, "", updated.(model).currentResponse)
}
