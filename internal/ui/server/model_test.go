package server

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/lakeconsole/internal/keys"
	"github.com/nhle/lakeconsole/internal/model"
)

func newTestModel(t *testing.T, check Checker) (Model, string, *string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	var stored string
	cfg := model.AppConfig{Server: model.ServerConfig{BaseURL: "http://old:8080", TimeoutSec: 30}}
	m := New(cfg, path, "old-token", keys.DefaultKeyMap(), 100, 40).
		WithChecker(check).
		WithTokenSaver(func(token string) (string, error) {
			stored = token
			return "keyring:test", nil
		})
	return m, path, &stored
}

func TestValidateAndSaveStoresKeyAndConfig(t *testing.T) {
	var gotURL, gotToken string
	m, path, stored := newTestModel(t, func(_ context.Context, baseURL, token string) (string, error) {
		gotURL, gotToken = baseURL, token
		return "v1.0.0", nil
	})
	m.fb.baseURL = "http://devlake:8080/ "
	m.fb.apiKey = "new-token"

	msg := m.validateAndSave()().(ValidateResultMsg)

	require.NoError(t, msg.Err)
	assert.Equal(t, "http://devlake:8080", gotURL)
	assert.Equal(t, "new-token", gotToken)
	assert.Equal(t, "new-token", *stored)
	assert.Equal(t, "v1.0.0", msg.Version)
	assert.Equal(t, "keyring:test", msg.Config.Server.TokenRef)

	loaded, err := model.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://devlake:8080", loaded.Server.BaseURL)
	assert.Equal(t, "keyring:test", loaded.Server.TokenRef)
}

func TestValidateAndSaveKeepsTokenWhenBlank(t *testing.T) {
	var gotToken string
	m, _, stored := newTestModel(t, func(_ context.Context, _, token string) (string, error) {
		gotToken = token
		return "v1", nil
	})

	msg := m.validateAndSave()().(ValidateResultMsg)

	require.NoError(t, msg.Err)
	assert.Equal(t, "old-token", gotToken)
	assert.Equal(t, "old-token", msg.Token)
	assert.Empty(t, *stored)
}

func TestValidateAndSaveFailureWritesNothing(t *testing.T) {
	m, path, stored := newTestModel(t, func(context.Context, string, string) (string, error) {
		return "", errors.New("connection refused")
	})
	m.fb.apiKey = "new-token"

	msg := m.validateAndSave()().(ValidateResultMsg)

	require.Error(t, msg.Err)
	assert.Empty(t, *stored)
	assert.NoFileExists(t, path)
}

func TestResultSuccessEmitsSavedMsg(t *testing.T) {
	m, _, _ := newTestModel(t, nil)
	m.mode = ModeValidating

	m, _ = m.Update(ValidateResultMsg{
		Version: "v1",
		Config:  model.AppConfig{Server: model.ServerConfig{BaseURL: "http://new"}},
		Token:   "tok",
	})
	require.Equal(t, ModeValidateResult, m.Mode())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	saved, ok := cmd().(ServerSavedMsg)
	require.True(t, ok)
	assert.Equal(t, "http://new", saved.Config.Server.BaseURL)
	assert.Equal(t, "tok", saved.Token)
}

func TestStaleValidateResultIgnored(t *testing.T) {
	m, _, _ := newTestModel(t, nil)

	m, _ = m.Update(ValidateResultMsg{Err: errors.New("late")})

	assert.Equal(t, ModeForm, m.Mode())
}

func TestValidateURL(t *testing.T) {
	assert.NoError(t, validateURL("http://localhost:8080"))
	assert.Error(t, validateURL(""))
	assert.Error(t, validateURL("localhost"))
}
