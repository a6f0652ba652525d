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

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"local number gains country code", "11988887777", "5511988887777"},
		{"formatting characters dropped", "(11) 98888-7777", "5511988887777"},
		{"already country coded", "5511988887777", "5511988887777"},
		{"country code with plus", "+5511988887777", "5511988887777"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, notifier.NormalizePhone(tt.input))
		})
	}
}

func TestWhatsAppSendTemplate(t *testing.T) {
	var (
		gotPath string
		gotAuth string
		gotBody map[string]any
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")

		err := json.NewDecoder(r.Body).Decode(&gotBody)
		require.NoError(t, err)

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	transport := notifier.NewWhatsAppTemplate(notifier.WhatsAppConfig{
		Token:         "token-123",
		PhoneNumberID: "5550001111",
		TemplateName:  "nova_tarefa",
		BaseURL:       server.URL,
	})
	require.NotNil(t, transport)

	err := transport.SendTemplate(context.Background(),
		"(11) 98888-7777",
		[]string{"Rui", "Análise", "Locação"},
		[]string{"processes/3/stages/7"},
	)
	require.NoError(t, err)

	assert.Equal(t, "/5550001111/messages", gotPath)
	assert.Equal(t, "Bearer token-123", gotAuth)
	assert.Equal(t, "whatsapp", gotBody["messaging_product"])
	assert.Equal(t, "5511988887777", gotBody["to"])

	template, ok := gotBody["template"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "nova_tarefa", template["name"])

	components, ok := template["components"].([]any)
	require.True(t, ok)
	require.Len(t, components, 2)
}

func TestWhatsAppSendTemplate_APIFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"bad template"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	transport := notifier.NewWhatsAppTemplate(notifier.WhatsAppConfig{
		Token:         "token-123",
		PhoneNumberID: "5550001111",
		TemplateName:  "nova_tarefa",
		BaseURL:       server.URL,
	})

	err := transport.SendTemplate(context.Background(), "11988887777", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestWhatsAppDisabledWithoutToken(t *testing.T) {
	assert.Nil(t, notifier.NewWhatsAppTemplate(notifier.WhatsAppConfig{}))
}
