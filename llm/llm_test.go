package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// chatServer answers every chat completion with reply and hands the decoded
// request body to inspect.
func chatServer(t *testing.T, reply string, inspect func(r *http.Request, body map[string]interface{})) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if inspect != nil {
			inspect(r, body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cmpl-1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"` + reply + `"},"finish_reason":"stop"}]}`))
	}))
}

func TestAzureOpenAILLM(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		l := NewAzureOpenAILLM(WithAzureLogger(discardLogger()))
		assert.Equal(t, DefaultAzureAPIVersion, l.apiVersion)
	})

	t.Run("complete sends deployment and max tokens", func(t *testing.T) {
		srv := chatServer(t, "Uber reported revenue", func(r *http.Request, body map[string]interface{}) {
			assert.Contains(t, r.URL.Path, "/openai/deployments/AIHackathonLLM2/chat/completions")
			assert.Equal(t, DefaultAzureAPIVersion, r.URL.Query().Get("api-version"))
			assert.Equal(t, "test-key", r.Header.Get("api-key"))
			assert.EqualValues(t, 2048, body["max_tokens"])
		})
		defer srv.Close()

		l := NewAzureOpenAILLM(
			WithAzureEndpoint(srv.URL),
			WithAzureAPIKey("test-key"),
			WithAzureDeployment("AIHackathonLLM2"),
			WithAzureMaxTokens(2048),
			WithAzureLogger(discardLogger()),
		)
		assert.Equal(t, "AIHackathonLLM2", l.Deployment())

		out, err := l.Complete(context.Background(), "What was revenue?")
		require.NoError(t, err)
		assert.Equal(t, "Uber reported revenue", out)
	})

	t.Run("chat forwards messages", func(t *testing.T) {
		srv := chatServer(t, "ok", func(r *http.Request, body map[string]interface{}) {
			msgs, ok := body["messages"].([]interface{})
			require.True(t, ok)
			assert.Len(t, msgs, 2)
		})
		defer srv.Close()

		l := NewAzureOpenAILLM(WithAzureEndpoint(srv.URL), WithAzureDeployment("d"), WithAzureLogger(discardLogger()))
		out, err := l.Chat(context.Background(), []ChatMessage{
			NewSystemMessage("be brief"),
			NewUserMessage("hello"),
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", out)
	})

	t.Run("service error is wrapped", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
		}))
		defer srv.Close()

		l := NewAzureOpenAILLM(WithAzureEndpoint(srv.URL), WithAzureDeployment("d"), WithAzureLogger(discardLogger()))
		_, err := l.Complete(context.Background(), "q")
		require.Error(t, err)
		assert.True(t, strings.HasPrefix(err.Error(), "azure openai completion failed"))
	})
}

func TestOpenAILLM(t *testing.T) {
	t.Run("complete", func(t *testing.T) {
		srv := chatServer(t, "answer", func(r *http.Request, body map[string]interface{}) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			assert.Equal(t, "gpt-4o-mini", body["model"])
		})
		defer srv.Close()

		l := NewOpenAILLM(srv.URL, "gpt-4o-mini", "key", WithOpenAILogger(discardLogger()))
		out, err := l.Complete(context.Background(), "q")
		require.NoError(t, err)
		assert.Equal(t, "answer", out)
	})

	t.Run("no choices", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
		}))
		defer srv.Close()

		l := NewOpenAILLM(srv.URL, "m", "key", WithOpenAILogger(discardLogger()))
		_, err := l.Complete(context.Background(), "q")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNoChoices))
	})
}

func TestMockLLM(t *testing.T) {
	m := NewMockLLM("fixed")
	out, err := m.Complete(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "fixed", out)

	_, _ = m.Chat(context.Background(), []ChatMessage{NewUserMessage("p2")})
	assert.Equal(t, []string{"p1", "p2"}, m.Prompts())

	failing := NewMockLLMWithError(errors.New("boom"))
	_, err = failing.Complete(context.Background(), "p")
	assert.EqualError(t, err, "boom")
}
