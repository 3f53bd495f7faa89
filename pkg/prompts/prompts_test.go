package prompts

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSystemPromptDefaults(t *testing.T) {
	s, err := RenderSystemPrompt(SystemPromptData{})
	require.NoError(t, err)

	assert.Contains(t, s, "AI-powered Health AI Assistant chatbot")
	assert.Contains(t, s, "educational purposes only")
	assert.NotContains(t, s, "Always answer in")
}

func TestRenderSystemPromptWithLanguage(t *testing.T) {
	s, err := RenderSystemPrompt(SystemPromptData{AssistantName: "Nurse Bot", Language: "german"})
	require.NoError(t, err)

	assert.Contains(t, s, "AI-powered Nurse Bot chatbot")
	assert.Contains(t, s, "6) Always answer in German.")
}

func TestRenderRejectsBrokenTemplate(t *testing.T) {
	_, err := Render("broken", "{{ .AssistantName ", SystemPromptData{})
	require.Error(t, err)
}

func TestErrorReply(t *testing.T) {
	assert.Equal(t,
		"⚠️ Could not reach the assistant: request timed out",
		ErrorReply("", errors.New("request timed out")))
	assert.Equal(t, "oops: boom", ErrorReply("oops: ", errors.New("boom")))
	assert.Equal(t, "⚠️ Could not reach the assistant", ErrorReply("", nil))
}
