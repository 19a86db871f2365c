package erp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupUpdate(t *testing.T, m SetupModel, msg tea.Msg) (SetupModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(SetupModel)
	require.True(t, ok)
	return out, cmd
}

func fillSetup(m SetupModel, values map[string]string) SetupModel {
	for i, f := range setupFields {
		m.inputs[i].SetValue(values[f.key])
	}
	return m
}

func TestSaveConfigFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)

	err := SaveConfigFile(path, map[string]string{
		"ERP_URL":           "https://erp.example.com",
		"ERP_API_KEY":       "abc123",
		"ERP_API_SECRET":    "p@ss word",
		"ERP_PAYMOB_MODULE": "custom_app.api",
	})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	config, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://erp.example.com", config.ERPURL)
	assert.Equal(t, "p@ss word", config.APISecret)
	assert.Equal(t, "custom_app.api", config.PaymobModule)
}

func TestValidateConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "token good:secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
				"exc_type":  "AuthenticationError",
				"exception": "frappe.exceptions.AuthenticationError",
			})
			return
		}
		writeJSON(w, http.StatusOK, message("clerk@example.com"))
	}))
	defer srv.Close()

	user, mode, err := validateConnection(context.Background(), map[string]string{
		"ERP_URL":        srv.URL,
		"ERP_API_KEY":    "good",
		"ERP_API_SECRET": "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "clerk@example.com", user)
	assert.Equal(t, "internet", mode)

	_, _, err = validateConnection(context.Background(), map[string]string{
		"ERP_URL":        srv.URL,
		"ERP_API_KEY":    "bad",
		"ERP_API_SECRET": "secret",
	})
	require.Error(t, err)
	assert.Equal(t, "authentication failed: invalid API key or secret", err.Error())
}

func TestSetupWizard_RequiresFields(t *testing.T) {
	m := NewSetupTUI(filepath.Join(t.TempDir(), ConfigFileName))
	assert.Equal(t, SetupWelcome, m.step)

	m, _ = setupUpdate(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, SetupForm, m.step)

	m = fillSetup(m, map[string]string{"ERP_URL": "https://erp.example.com/", "ERP_API_KEY": "abc"})
	m, _ = setupUpdate(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, SetupForm, m.step, "secret is still missing")
	assert.Equal(t, 2, m.focusIndex)

	m = fillSetup(m, map[string]string{
		"ERP_URL":        "https://erp.example.com/",
		"ERP_API_KEY":    "abc",
		"ERP_API_SECRET": "xyz",
	})
	m, cmd := setupUpdate(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, SetupValidating, m.step)
	assert.NotNil(t, cmd)

	assert.Equal(t, map[string]string{
		"ERP_URL":        "https://erp.example.com",
		"ERP_API_KEY":    "abc",
		"ERP_API_SECRET": "xyz",
	}, m.values())
}

func TestSetupWizard_SavesAfterValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	m := NewSetupTUI(path)
	m, _ = setupUpdate(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	m.step = SetupForm
	m = fillSetup(m, map[string]string{
		"ERP_URL":        "https://erp.example.com",
		"ERP_API_KEY":    "abc",
		"ERP_API_SECRET": "xyz",
	})

	m, _ = setupUpdate(t, m, setupValidateMsg{err: assert.AnError})
	assert.Equal(t, SetupError, m.step)
	m, _ = setupUpdate(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, SetupForm, m.step)

	m.step = SetupValidating
	m, _ = setupUpdate(t, m, setupValidateMsg{user: "clerk@example.com", mode: "internet"})
	assert.Equal(t, SetupSuccess, m.step)
	assert.Contains(t, m.View(), "clerk@example.com")

	m, cmd := setupUpdate(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	saved, ok := cmd().(setupSaveMsg)
	require.True(t, ok)
	require.NoError(t, saved.err)

	m, cmd = setupUpdate(t, m, saved)
	assert.True(t, m.saved)
	assert.NotNil(t, cmd)

	config, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", config.APIKey)
}
