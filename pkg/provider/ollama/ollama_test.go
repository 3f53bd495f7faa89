package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-go-golems/healthbot/pkg/conversation"
	"github.com/go-go-golems/healthbot/pkg/events"
	"github.com/go-go-golems/healthbot/pkg/provider"
	"github.com/go-go-golems/healthbot/pkg/settings"
	"github.com/jmorganca/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var history = []conversation.ChatMessage{
	{Role: conversation.RoleSystem, Content: "You are a health assistant."},
	{Role: conversation.RoleUser, Content: "Is coffee bad for me?"},
}

func ollamaSettings(stream bool) *settings.Settings {
	s := settings.NewSettings()
	apiType := settings.ApiTypeOllama
	engine := "llama3"
	s.Chat.ApiType = &apiType
	s.Chat.Engine = &engine
	s.Chat.Stream = stream
	return s
}

func TestGenerateStreaming(t *testing.T) {
	var got struct {
		Model    string                 `json:"model"`
		Stream   bool                   `json:"stream"`
		Options  map[string]interface{} `json:"options"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, delta := range []string{"In ", "moderation, ", "no."} {
			_, _ = fmt.Fprintf(w, "{\"model\":\"llama3\",\"message\":{\"role\":\"assistant\",\"content\":%q},\"done\":false}\n", delta)
		}
		_, _ = fmt.Fprint(w, "{\"model\":\"llama3\",\"done\":true}\n")
	}))
	defer server.Close()
	t.Setenv("OLLAMA_HOST", server.URL)

	p, err := New(ollamaSettings(true))
	require.NoError(t, err)

	sink := events.NewCollectingSink()
	text, err := p.Generate(events.WithEventSinks(context.Background(), sink), history)
	require.NoError(t, err)

	assert.Equal(t, "In moderation, no.", text)
	assert.Equal(t, "llama3", got.Model)
	assert.True(t, got.Stream)
	assert.InDelta(t, 0.4, got.Options["temperature"], 0.0001)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, []events.EventType{
		events.EventTypePartialCompletion,
		events.EventTypePartialCompletion,
		events.EventTypePartialCompletion,
		events.EventTypeFinal,
	}, sink.Types())
}

func TestGenerateEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "{\"model\":\"llama3\",\"done\":true}\n")
	}))
	defer server.Close()
	t.Setenv("OLLAMA_HOST", server.URL)

	p, err := New(ollamaSettings(false))
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), history)
	require.Error(t, err)
	assert.Equal(t, provider.KindMalformed, provider.KindOf(err))
}

func TestMessageContent(t *testing.T) {
	assert.Equal(t, "", messageContent(nil))
	assert.Equal(t, "", messageContent((*api.Message)(nil)))
	assert.Equal(t, "hi", messageContent(&api.Message{Content: "hi"}))
	assert.Equal(t, "hi", messageContent(api.Message{Content: "hi"}))
}
