// Package prompts holds the fixed texts of the health assistant: the system
// instructions, the greeting, the disclaimer and the replies the orchestrator
// produces without calling a model.
package prompts

import (
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/pkg/errors"
)

const DefaultAssistantName = "Health AI Assistant"

// SystemPromptTemplate is rendered with SystemPromptData.
const SystemPromptTemplate = `You are an AI-powered {{ .AssistantName }} chatbot designed to provide users with reliable, empathetic, and easy-to-understand health information.
Your goals are:
1) Ask users about their symptoms, health goals, or concerns in a friendly and supportive way.
2) Provide clear explanations of possible causes, prevention tips, and general health advice.
3) Suggest lifestyle changes, nutrition tips, exercise ideas, and mental wellness practices.
4) When the user's issue seems urgent or severe, recommend that they consult a certified healthcare professional immediately.
5) Keep responses short, conversational, and tailored to the user's needs.
{{- if .Language }}
6) Always answer in {{ .Language | title }}.
{{- end }}
Always state clearly that you are for educational purposes only and not a substitute for professional medical advice.
`

const Greeting = "Hi! I'm your Health AI assistant. How can I help you today?"

const Disclaimer = "⚠️ This chatbot provides **educational health information only**. " +
	"Not a substitute for medical advice. For emergencies, call your local emergency number."

// EmergencyReply is returned verbatim whenever the safety filter fires.
const EmergencyReply = "🚨 This sounds serious. Please seek **immediate medical attention**."

// ErrorReplyPrefix starts every reply that stands in for a failed provider call.
const ErrorReplyPrefix = "⚠️ Could not reach the assistant: "

const InputPlaceholder = "Describe your symptoms or health goal..."

type SystemPromptData struct {
	AssistantName string
	Language      string
}

// RenderSystemPrompt renders SystemPromptTemplate. An empty AssistantName
// falls back to DefaultAssistantName.
func RenderSystemPrompt(data SystemPromptData) (string, error) {
	return Render("system-prompt", SystemPromptTemplate, data)
}

// Render executes a text template with the sprig function map.
func Render(name string, text string, data SystemPromptData) (string, error) {
	if data.AssistantName == "" {
		data.AssistantName = DefaultAssistantName
	}

	tmpl, err := template.New(name).Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return "", errors.Wrapf(err, "could not parse %s template", name)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", errors.Wrapf(err, "could not render %s template", name)
	}
	return b.String(), nil
}

// ErrorReply formats the reply that replaces a failed provider call.
func ErrorReply(prefix string, cause error) string {
	if prefix == "" {
		prefix = ErrorReplyPrefix
	}
	if cause == nil {
		return strings.TrimRight(prefix, ": ")
	}
	return prefix + cause.Error()
}
