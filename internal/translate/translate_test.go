package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jav-tidy/javtidy/internal/config"
)

func TestNewReturnsNilWhenDisabled(t *testing.T) {
	tr, err := New(config.TranslateConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, tr)
}

func TestNewRequiresAPIKeyWhenEnabled(t *testing.T) {
	_, err := New(config.TranslateConfig{Enabled: true})
	require.Error(t, err)
}

func TestTranslateEmptyPlotIsNoOp(t *testing.T) {
	tr := NewWithBaseURL("key", "http://unused.invalid/v1", "gpt-test", "English")
	out, err := tr.Translate(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestTranslateReturnsModelResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "test",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-test",
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]string{
						"role":    "assistant",
						"content": "translated plot",
					},
				},
			},
		})
	}))
	defer server.Close()

	tr := NewWithBaseURL("key", server.URL+"/v1", "gpt-test", "English")
	out, err := tr.Translate(context.Background(), "plot in another language")
	require.NoError(t, err)
	assert.Equal(t, "translated plot", out)
}
