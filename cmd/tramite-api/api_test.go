package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/venturahq/tramite/pkg/models"
	"github.com/venturahq/tramite/pkg/persistence"
	"github.com/venturahq/tramite/pkg/persistence/memory"
)

func setupTestApp(t *testing.T) (*fiber.App, persistence.Persistence) {
	t.Helper()

	p := memory.NewPersistence()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.DefaultCost)
	require.NoError(t, err)

	admin := &models.User{
		Name:         "Admin",
		Email:        "admin@example.com",
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	}
	require.NoError(t, p.Users().Create(context.Background(), admin))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	api := NewAPI(logger, p, nil, nil, nil, "test-secret")

	return api.App(), p
}

func login(t *testing.T, app *fiber.App) string {
	t.Helper()

	return loginAs(t, app, "admin@example.com", "secret123")
}

func loginAs(t *testing.T, app *fiber.App, email, password string) string {
	t.Helper()

	body := bytes.NewBufferString(`{"email":"` + email + `","password":"` + password + `"}`)

	req := httptest.NewRequest(http.MethodPost, "/login", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Token string `json:"token"`
	}

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.NotEmpty(t, payload.Token)

	return payload.Token
}

func authedRequest(t *testing.T, app *fiber.App, token, method, target, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Authorization", "Bearer "+token)

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func TestAPI_RootEndpoint(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Tramite API", string(body))
}

func TestAPI_Liveness(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_Login_InvalidCredentials(t *testing.T) {
	app, _ := setupTestApp(t)

	body := bytes.NewBufferString(`{"email":"admin@example.com","password":"wrong"}`)

	req := httptest.NewRequest(http.MethodPost, "/login", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_Login_RejectsMalformedBody(t *testing.T) {
	app, _ := setupTestApp(t)

	body := bytes.NewBufferString(`{"email":"not-an-email"}`)

	req := httptest.NewRequest(http.MethodPost, "/login", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_ProtectedRoutesRequireToken(t *testing.T) {
	app, _ := setupTestApp(t)

	for _, target := range []string{"/processes", "/users", "/dashboard", "/process-types"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)

		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, target)

		_ = resp.Body.Close()
	}
}

func TestAPI_ProcessLifecycle(t *testing.T) {
	app, _ := setupTestApp(t)
	token := login(t, app)

	createBody := `{
		"client": {"name": "Maria Silva", "phone": "11999990000"},
		"process": {"name": "Locação Rua das Flores 100", "type_id": 1},
		"stages": [
			{"name": "Documentação"},
			{"name": "Análise"},
			{"name": "Contrato"}
		]
	}`

	resp := authedRequest(t, app, token, http.MethodPost, "/processes", createBody)

	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		ProcessID int64 `json:"process_id"`
	}

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotZero(t, created.ProcessID)

	listResp := authedRequest(t, app, token, http.MethodGet, "/processes", "")

	defer func() { _ = listResp.Body.Close() }()

	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var summaries []map[string]any

	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "Documentação", summaries[0]["current_stage"])

	stagesResp := authedRequest(t, app, token, http.MethodGet,
		"/processes/"+itoa(created.ProcessID)+"/stages", "")

	defer func() { _ = stagesResp.Body.Close() }()

	require.Equal(t, http.StatusOK, stagesResp.StatusCode)

	var checklist struct {
		Stages []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"stages"`
	}

	require.NoError(t, json.NewDecoder(stagesResp.Body).Decode(&checklist))
	require.Len(t, checklist.Stages, 15)
	assert.Equal(t, "in_progress", checklist.Stages[0].Status)
	assert.Equal(t, "pending", checklist.Stages[1].Status)

	dashboardResp := authedRequest(t, app, token, http.MethodGet, "/dashboard", "")

	defer func() { _ = dashboardResp.Body.Close() }()

	require.Equal(t, http.StatusOK, dashboardResp.StatusCode)

	deleteResp := authedRequest(t, app, token, http.MethodDelete,
		"/processes/"+itoa(created.ProcessID), "")

	defer func() { _ = deleteResp.Body.Close() }()

	require.Equal(t, http.StatusOK, deleteResp.StatusCode)

	missingResp := authedRequest(t, app, token, http.MethodGet,
		"/processes/"+itoa(created.ProcessID), "")

	defer func() { _ = missingResp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, missingResp.StatusCode)
}

func TestAPI_FinalizeTask(t *testing.T) {
	app, p := setupTestApp(t)
	token := login(t, app)

	created, err := p.Processes().Upsert(context.Background(), models.ProcessUpsert{
		Client:  models.ClientInput{Name: "Maria Silva", Phone: "11999990000"},
		Process: models.ProcessInput{Name: "Locação Rua das Flores 100", TypeID: 1},
		Stages: []models.StageInput{
			{Name: "Documentação"},
			{Name: "Análise"},
		},
	})
	require.NoError(t, err)

	detail, err := p.Processes().GetByID(context.Background(), created.ProcessID)
	require.NoError(t, err)

	resp := authedRequest(t, app, token, http.MethodPut,
		"/tasks/"+itoa(detail.Stages[0].ID)+"/finalize", "")

	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Activated *models.Stage `json:"activated"`
	}

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.NotNil(t, result.Activated)
	assert.Equal(t, "Análise", result.Activated.Name)

	missing := authedRequest(t, app, token, http.MethodPut, "/tasks/999/finalize", "")

	defer func() { _ = missing.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestAPI_UserCRUD(t *testing.T) {
	app, _ := setupTestApp(t)
	token := login(t, app)

	createResp := authedRequest(t, app, token, http.MethodPost, "/users",
		`{"name": "Bia Costa", "email": "bia@example.com", "password": "secret123"}`)

	defer func() { _ = createResp.Body.Close() }()

	require.Equal(t, http.StatusCreated, createResp.StatusCode)

	var created models.User

	require.NoError(t, json.NewDecoder(createResp.Body).Decode(&created))
	assert.Equal(t, models.RoleStaff, created.Role)

	// The password hash never leaves the backend.
	raw := authedRequest(t, app, token, http.MethodGet, "/users/"+itoa(created.ID), "")

	defer func() { _ = raw.Body.Close() }()

	body, err := io.ReadAll(raw.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "password")

	conflictResp := authedRequest(t, app, token, http.MethodPost, "/users",
		`{"name": "Dup", "email": "bia@example.com", "password": "secret123"}`)

	defer func() { _ = conflictResp.Body.Close() }()

	assert.Equal(t, http.StatusConflict, conflictResp.StatusCode)

	invalidResp := authedRequest(t, app, token, http.MethodPost, "/users",
		`{"name": "No Email", "password": "secret123"}`)

	defer func() { _ = invalidResp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, invalidResp.StatusCode)

	deleteResp := authedRequest(t, app, token, http.MethodDelete, "/users/"+itoa(created.ID), "")

	defer func() { _ = deleteResp.Body.Close() }()

	assert.Equal(t, http.StatusNoContent, deleteResp.StatusCode)
}

func TestAPI_AccountManagementRequiresAdmin(t *testing.T) {
	app, p := setupTestApp(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.DefaultCost)
	require.NoError(t, err)

	staff := &models.User{
		Name:         "Bia Costa",
		Email:        "bia@example.com",
		PasswordHash: string(hash),
		Role:         models.RoleStaff,
	}
	require.NoError(t, p.Users().Create(context.Background(), staff))

	token := loginAs(t, app, "bia@example.com", "secret123")

	createResp := authedRequest(t, app, token, http.MethodPost, "/users",
		`{"name": "Caio Dias", "email": "caio@example.com", "password": "secret123"}`)

	defer func() { _ = createResp.Body.Close() }()

	assert.Equal(t, http.StatusForbidden, createResp.StatusCode)

	deleteResp := authedRequest(t, app, token, http.MethodDelete, "/users/"+itoa(staff.ID), "")

	defer func() { _ = deleteResp.Body.Close() }()

	assert.Equal(t, http.StatusForbidden, deleteResp.StatusCode)

	resetResp := authedRequest(t, app, token, http.MethodPost, "/users/reset-password",
		`{"email": "bia@example.com", "password": "changed456"}`)

	defer func() { _ = resetResp.Body.Close() }()

	assert.Equal(t, http.StatusForbidden, resetResp.StatusCode)

	// Reads stay open to any logged-in user.
	listResp := authedRequest(t, app, token, http.MethodGet, "/users/staff", "")

	defer func() { _ = listResp.Body.Close() }()

	assert.Equal(t, http.StatusOK, listResp.StatusCode)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
