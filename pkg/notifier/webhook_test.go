package notifier_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venturahq/tramite/pkg/notifier"
)

func TestWebhookPost(t *testing.T) {
	var got notifier.WebhookPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		err := json.NewDecoder(r.Body).Decode(&got)
		require.NoError(t, err)

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	transport := notifier.NewHTTPWebhook(server.URL)
	require.NotNil(t, transport)

	err := transport.Post(context.Background(), notifier.WebhookPayload{
		Name:  "Rui Alves",
		Phone: "11988887777",
		Task:  "Análise",
		Link:  "https://panel.example.com/processes/3/stages/7",
	})
	require.NoError(t, err)

	assert.Equal(t, "Rui Alves", got.Name)
	assert.Equal(t, "Análise", got.Task)

	// Every delivery carries a fresh id for receiver-side deduplication.
	assert.NotEmpty(t, got.DeliveryID)
}

func TestWebhookPost_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	transport := notifier.NewHTTPWebhook(server.URL)

	err := transport.Post(context.Background(), notifier.WebhookPayload{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestWebhookDisabledWithoutURL(t *testing.T) {
	assert.Nil(t, notifier.NewHTTPWebhook(""))
}
