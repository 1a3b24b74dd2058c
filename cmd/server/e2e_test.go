//go:build e2e

// Сквозные тесты против запущенного сервера: go test -tags e2e ./cmd/server
// Для сценария покупки нужен администратор, созданный через cmd/admin create-admin,
// его учётные данные передаются в E2E_ADMIN_EMAIL и E2E_ADMIN_PASSWORD.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseURL() string {
	if u := os.Getenv("E2E_BASE_URL"); u != "" {
		return u
	}
	return "http://localhost:8080"
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type authData struct {
	Token string `json:"token"`
	User  struct {
		ID int64 `json:"id"`
	} `json:"user"`
}

func call(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, baseURL()+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "request should not error")
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env), "decoding response should succeed")
	return resp.StatusCode, env
}

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@e2e.test", prefix, time.Now().UnixNano())
}

func register(t *testing.T, role string) authData {
	t.Helper()
	status, env := call(t, "POST", "/api/auth/register", "", map[string]string{
		"email": uniqueEmail(role), "password": "password123", "name": "E2E " + role, "role": role,
	})
	require.Equal(t, http.StatusCreated, status, env.Error)

	var auth authData
	require.NoError(t, json.Unmarshal(env.Data, &auth))
	require.NotEmpty(t, auth.Token, "token should be obtained")
	return auth
}

func login(t *testing.T, email, password string) string {
	t.Helper()
	status, env := call(t, "POST", "/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, status, env.Error)
	var auth authData
	require.NoError(t, json.Unmarshal(env.Data, &auth))
	return auth.Token
}

// сценарий с регистрацией и получением профиля
func TestRegisterAndMe(t *testing.T) {
	viewer := register(t, "viewer")

	status, env := call(t, "GET", "/api/me", viewer.Token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
}

// сценарий с безуспешной аутентификацией пользователя
func TestLoginInvalid(t *testing.T) {
	status, env := call(t, "POST", "/api/auth/login", "", map[string]string{"email": "", "password": ""})
	assert.Equal(t, http.StatusBadRequest, status, "expected 400 for invalid auth")
	assert.False(t, env.Success)
}

func TestAdminRoutesForbiddenForViewer(t *testing.T) {
	viewer := register(t, "viewer")
	status, _ := call(t, "GET", "/api/admin/stats", viewer.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

// полный сценарий: художник выставляет работу, админ одобряет, покупатель заказывает и отменяет
func TestOrderLifecycle(t *testing.T) {
	adminEmail, adminPassword := os.Getenv("E2E_ADMIN_EMAIL"), os.Getenv("E2E_ADMIN_PASSWORD")
	if adminEmail == "" {
		t.Skip("E2E_ADMIN_EMAIL is not set")
	}
	adminToken := login(t, adminEmail, adminPassword)

	artist := register(t, "artist")
	status, env := call(t, "POST", "/api/artists/profile", artist.Token, map[string]string{"tribe": "Warli", "location": "Dahanu"})
	require.Equal(t, http.StatusCreated, status, env.Error)

	status, env = call(t, "POST", "/api/artworks", artist.Token, map[string]any{
		"title": "Harvest Dance", "tribe": "Warli", "category": "painting", "price": "1500.00", "stock_quantity": 1,
	})
	require.Equal(t, http.StatusCreated, status, env.Error)
	var artwork struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &artwork))

	viewer := register(t, "viewer")

	// до верификации работы нет в каталоге
	status, _ = call(t, "GET", fmt.Sprintf("/api/artworks/%d", artwork.ID), viewer.Token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, env = call(t, "POST", fmt.Sprintf("/api/admin/artworks/%d/verify", artwork.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, status, env.Error)

	order := map[string]any{"artwork_id": artwork.ID, "quantity": 1, "delivery_address": "12 MG Road, Pune"}
	status, env = call(t, "POST", "/api/orders", viewer.Token, order)
	require.Equal(t, http.StatusCreated, status, env.Error)
	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	// единственный экземпляр уже продан
	status, _ = call(t, "POST", "/api/orders", viewer.Token, order)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = call(t, "POST", fmt.Sprintf("/api/orders/%d/pay", created.ID), viewer.Token, map[string]string{"phone": "9876543210"})
	require.Equal(t, http.StatusOK, status, env.Error)

	status, env = call(t, "POST", fmt.Sprintf("/api/orders/%d/cancel", created.ID), viewer.Token, nil)
	require.Equal(t, http.StatusOK, status, env.Error)

	// после отмены экземпляр снова доступен
	status, env = call(t, "POST", "/api/orders", viewer.Token, order)
	assert.Equal(t, http.StatusCreated, status, env.Error)
}
