package openai

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
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var history = []conversation.ChatMessage{
	{Role: conversation.RoleSystem, Content: "You are a health assistant."},
	{Role: conversation.RoleUser, Content: "Tips for better sleep?"},
}

func newSettings(t *testing.T, url string, stream bool) *settings.Settings {
	t.Helper()
	s := settings.NewSettings()
	s.SetAPIKey(settings.ApiTypeOpenAI, "sk-test")
	s.SetBaseURL(settings.ApiTypeOpenAI, url+"/v1")
	s.Chat.Stream = stream
	userAgent := "healthbot-test"
	s.Client.UserAgent = &userAgent
	return s
}

type capturedRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	Stream      bool    `json:"stream"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func TestGenerateBlocking(t *testing.T) {
	var got capturedRequest
	var auth, ua string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		ua = r.Header.Get("User-Agent")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"id":"c1","object":"chat.completion","model":"gpt-4o-mini","choices":[{"index":0,"message":{"role":"assistant","content":"Keep a regular schedule."},"finish_reason":"stop"}]}`)
	}))
	defer server.Close()

	p, err := New(newSettings(t, server.URL, false))
	require.NoError(t, err)

	sink := events.NewCollectingSink()
	ctx := events.WithEventSinks(context.Background(), sink)
	text, err := p.Generate(ctx, history)
	require.NoError(t, err)

	assert.Equal(t, "Keep a regular schedule.", text)
	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "healthbot-test", ua)
	assert.Equal(t, settings.DefaultEngine, got.Model)
	assert.InDelta(t, 0.4, got.Temperature, 0.0001)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "Tips for better sleep?", got.Messages[1].Content)
	assert.Equal(t, []events.EventType{events.EventTypeFinal}, sink.Types())
}

func TestGenerateStreaming(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, delta := range []string{"Keep ", "a regular ", "schedule."} {
			_, _ = fmt.Fprintf(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", delta)
		}
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	p, err := New(newSettings(t, server.URL, true))
	require.NoError(t, err)

	conversationID := uuid.New()
	sink := events.NewCollectingSink()
	ctx := events.WithEventSinks(context.Background(), sink)
	ctx = events.WithEventMetadata(ctx, events.EventMetadata{ConversationID: conversationID})

	text, err := p.Generate(ctx, history)
	require.NoError(t, err)
	assert.Equal(t, "Keep a regular schedule.", text)

	evs := sink.Events()
	require.Len(t, evs, 4)
	last, ok := evs[2].(*events.EventPartialCompletion)
	require.True(t, ok)
	assert.Equal(t, "schedule.", last.Delta)
	assert.Equal(t, "Keep a regular schedule.", last.Completion)
	assert.Equal(t, conversationID, last.Metadata().ConversationID)
	assert.Equal(t, settings.DefaultEngine, last.Metadata().Model)
	assert.Equal(t, events.EventTypeFinal, evs[3].Type())
}

func TestGenerateErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   provider.Kind
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"Incorrect API key","type":"invalid_request_error"}}`, provider.KindAuth},
		{"server error", http.StatusServiceUnavailable, `{"error":{"message":"overloaded","type":"server_error"}}`, provider.KindNetwork},
		{"no choices", http.StatusOK, `{"id":"c1","object":"chat.completion","choices":[]}`, provider.KindMalformed},
		{"empty content", http.StatusOK, `{"id":"c1","choices":[{"index":0,"message":{"role":"assistant","content":"  "}}]}`, provider.KindMalformed},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(c.status)
				_, _ = fmt.Fprint(w, c.body)
			}))
			defer server.Close()

			p, err := New(newSettings(t, server.URL, false))
			require.NoError(t, err)

			_, err = p.Generate(context.Background(), history)
			require.Error(t, err)
			assert.Equal(t, c.kind, provider.KindOf(err))
		})
	}
}

func TestGenerateUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	p, err := New(newSettings(t, url, false))
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), history)
	require.Error(t, err)
	assert.Equal(t, provider.KindNetwork, provider.KindOf(err))
}

func TestNewRejectsIncompleteSettings(t *testing.T) {
	_, err := New(settings.NewSettings())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai-api-key")

	s := settings.NewSettings()
	apiType := settings.ApiTypeOllama
	s.Chat.ApiType = &apiType
	_, err = New(s)
	require.Error(t, err)
}
