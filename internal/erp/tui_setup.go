package erp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
)

// ConfigFileName is the file written by the setup wizard
const ConfigFileName = ".erp-config"

// SetupStep represents the current step in the setup wizard
type SetupStep int

const (
	SetupWelcome SetupStep = iota
	SetupForm
	SetupValidating
	SetupSuccess
	SetupError
)

// setupField describes one input of the wizard form
type setupField struct {
	key         string // config key written to the file
	label       string
	placeholder string
	hint        string
	required    bool
	secret      bool
}

var setupFields = []setupField{
	{key: "ERP_URL", label: "ERPNext URL", placeholder: "https://your-erp.example.com", hint: "Example: https://erp.mycompany.com", required: true},
	{key: "ERP_API_KEY", label: "API Key", placeholder: "API Key from User Settings > API Access", hint: "Find in: User Settings > API Access", required: true},
	{key: "ERP_API_SECRET", label: "API Secret", placeholder: "API Secret (generated with the key)", hint: "Generated with API Key", required: true, secret: true},
	{key: "ERP_VPN", label: "VPN/Direct URL", placeholder: "http://192.168.1.100:8000", hint: "Direct connection tried first"},
	{key: "NGINX_COOKIE", label: "Nginx Cookie", placeholder: "Cookie value for reverse proxy", hint: "For reverse proxy authentication", secret: true},
	{key: "ERP_PAYMOB_MODULE", label: "Paymob API module", placeholder: DefaultPaymobModule, hint: "Leave empty for the default app path"},
}

// SetupModel is the model for the setup wizard
type SetupModel struct {
	step       SetupStep
	inputs     []textinput.Model
	focusIndex int
	width      int
	height     int
	err        error
	spinner    spinner.Model
	path       string
	user       string // Authenticated username after validation
	mode       string // Connection mode after validation
	saved      bool
}

// Setup wizard styles
var (
	setupTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1).
			MarginBottom(1)

	setupBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(1, 2).
			Width(64)

	setupLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	setupHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)
)

type setupValidateMsg struct {
	user string
	mode string
	err  error
}

type setupSaveMsg struct {
	err error
}

// NewSetupTUI creates a setup wizard that writes its result to path
func NewSetupTUI(path string) SetupModel {
	inputs := make([]textinput.Model, len(setupFields))
	for i, f := range setupFields {
		inputs[i] = textinput.New()
		inputs[i].Placeholder = f.placeholder
		inputs[i].CharLimit = 256
		inputs[i].Width = 54
		if f.secret {
			inputs[i].EchoMode = textinput.EchoPassword
		}
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	return SetupModel{
		step:    SetupWelcome,
		inputs:  inputs,
		spinner: s,
		path:    path,
	}
}

func (m SetupModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "esc":
			if m.step == SetupValidating {
				return m, nil
			}
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "tab", "down":
			if m.step == SetupForm {
				m.focusIndex = (m.focusIndex + 1) % len(m.inputs)
				return m, m.updateInputFocus()
			}

		case "shift+tab", "up":
			if m.step == SetupForm {
				m.focusIndex = (m.focusIndex - 1 + len(m.inputs)) % len(m.inputs)
				return m, m.updateInputFocus()
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case setupValidateMsg:
		if msg.err != nil {
			m.step = SetupError
			m.err = msg.err
			return m, nil
		}
		m.step = SetupSuccess
		m.user = msg.user
		m.mode = msg.mode
		return m, nil

	case setupSaveMsg:
		if msg.err != nil {
			m.step = SetupError
			m.err = msg.err
			return m, nil
		}
		m.saved = true
		return m, tea.Quit
	}

	if m.step == SetupForm {
		return m, m.updateInputs(msg)
	}
	return m, nil
}

func (m SetupModel) handleEnter() (tea.Model, tea.Cmd) {
	switch m.step {
	case SetupWelcome:
		m.step = SetupForm
		m.focusIndex = 0
		return m, m.updateInputFocus()

	case SetupForm:
		for i, f := range setupFields {
			if f.required && strings.TrimSpace(m.inputs[i].Value()) == "" {
				m.focusIndex = i
				return m, m.updateInputFocus()
			}
		}
		m.step = SetupValidating
		return m, tea.Batch(m.spinner.Tick, m.validateCredentials())

	case SetupSuccess:
		return m, m.saveConfig()

	case SetupError:
		m.step = SetupForm
		m.err = nil
		return m, m.updateInputFocus()
	}
	return m, nil
}

func (m *SetupModel) updateInputFocus() tea.Cmd {
	cmds := make([]tea.Cmd, len(m.inputs))
	for i := range m.inputs {
		if i == m.focusIndex {
			cmds[i] = m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
	return tea.Batch(cmds...)
}

func (m *SetupModel) updateInputs(msg tea.Msg) tea.Cmd {
	cmds := make([]tea.Cmd, len(m.inputs))
	for i := range m.inputs {
		m.inputs[i], cmds[i] = m.inputs[i].Update(msg)
	}
	return tea.Batch(cmds...)
}

// values returns the non-empty form values keyed by config name
func (m SetupModel) values() map[string]string {
	out := map[string]string{}
	for i, f := range setupFields {
		v := strings.TrimSpace(m.inputs[i].Value())
		if f.key == "ERP_URL" || f.key == "ERP_VPN" {
			v = strings.TrimSuffix(v, "/")
		}
		if v != "" {
			out[f.key] = v
		}
	}
	return out
}

func (m SetupModel) validateCredentials() tea.Cmd {
	values := m.values()
	return func() tea.Msg {
		user, mode, err := validateConnection(context.Background(), values)
		return setupValidateMsg{user: user, mode: mode, err: err}
	}
}

// validateConnection authenticates with the entered credentials the same
// way the client does at startup, VPN first.
func validateConnection(ctx context.Context, values map[string]string) (string, string, error) {
	config := &Config{
		ERPURL:          values["ERP_URL"],
		ERPVPN:          values["ERP_VPN"],
		APIKey:          values["ERP_API_KEY"],
		APISecret:       values["ERP_API_SECRET"],
		NginxCookie:     values["NGINX_COOKIE"],
		NginxCookieName: "auth_cookie",
	}
	client := NewClient(config, nil)
	client.DetectConnection()

	user, err := client.GetLoggedUser(ctx)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == 401 || apiErr.StatusCode == 403) {
			return "", "", fmt.Errorf("authentication failed: invalid API key or secret")
		}
		return "", "", err
	}
	return user, client.Mode, nil
}

func (m SetupModel) saveConfig() tea.Cmd {
	values := m.values()
	path := m.path
	return func() tea.Msg {
		return setupSaveMsg{SaveConfigFile(path, values)}
	}
}

// SaveConfigFile writes values as a dotenv file readable only by the owner
func SaveConfigFile(path string, values map[string]string) error {
	if err := godotenv.Write(values, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return os.Chmod(path, 0600)
}

func (m SetupModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	switch m.step {
	case SetupWelcome:
		return m.renderWelcome()
	case SetupForm:
		return m.renderForm()
	case SetupValidating:
		return m.renderValidating()
	case SetupSuccess:
		return m.renderSuccess()
	case SetupError:
		return m.renderError()
	}
	return ""
}

func (m SetupModel) renderWelcome() string {
	var sb strings.Builder

	sb.WriteString(setupTitleStyle.Render("  Paymob CLI setup  "))
	sb.WriteString("\n\n")
	sb.WriteString(`No configuration file found.
Let's connect to the ERPNext site running the Paymob integration.

You'll need:
  * Your ERPNext URL
  * API Key & Secret (User Settings > API Access)

`)
	sb.WriteString(helpStyle.Render("[Enter] Continue    [Esc] Cancel"))

	return setupBoxStyle.Render(sb.String())
}

func (m SetupModel) renderForm() string {
	var sb strings.Builder

	sb.WriteString(setupTitleStyle.Render("  Connection  "))
	sb.WriteString("\n\n")

	for i, f := range setupFields {
		label := f.label
		if f.required {
			label += " *"
		}
		sb.WriteString(setupLabelStyle.Render(label))
		if !f.required {
			sb.WriteString(" " + setupHintStyle.Render("(optional)"))
		}
		sb.WriteString("\n" + m.inputs[i].View() + "\n")
		sb.WriteString(setupHintStyle.Render(f.hint) + "\n\n")
	}

	sb.WriteString(helpStyle.Render("[Tab] Next field    [Enter] Submit    [Esc] Cancel"))

	return setupBoxStyle.Render(sb.String())
}

func (m SetupModel) renderValidating() string {
	var sb strings.Builder

	sb.WriteString(setupTitleStyle.Render("  Validating  "))
	sb.WriteString("\n\n")
	sb.WriteString(m.spinner.View() + " Testing connection to ERPNext...\n\n")
	sb.WriteString(fmt.Sprintf("URL: %s\n", m.inputs[0].Value()))
	sb.WriteString(fmt.Sprintf("API Key: %s...\n", maskKey(m.inputs[1].Value())))

	return setupBoxStyle.Render(sb.String())
}

func (m SetupModel) renderSuccess() string {
	var sb strings.Builder

	sb.WriteString(successStyle.Render("  Connected  "))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("Connected as: %s\n", setupLabelStyle.Render(m.user)))
	if m.mode == "vpn" {
		sb.WriteString("Mode: " + vpnStyle.Render("VPN direct"))
	} else {
		sb.WriteString("Mode: " + internetStyle.Render("Internet"))
	}
	sb.WriteString("\n\n")
	sb.WriteString(helpStyle.Render(fmt.Sprintf("[Enter] Save to %s and start", m.path)))

	return setupBoxStyle.Render(sb.String())
}

func (m SetupModel) renderError() string {
	var sb strings.Builder

	sb.WriteString(errorStyle.Render("  Connection Failed  "))
	sb.WriteString("\n\n")
	if m.err != nil {
		sb.WriteString(fmt.Sprintf("Error: %s\n\n", m.err.Error()))
	}
	sb.WriteString("Please check:\n")
	sb.WriteString("  * URL is correct and reachable\n")
	sb.WriteString("  * API Key and Secret are valid\n")
	sb.WriteString("  * Your ERPNext instance is running\n\n")
	sb.WriteString(helpStyle.Render("[Enter] Try again    [Esc] Cancel"))

	return setupBoxStyle.Render(sb.String())
}

// RunSetupTUI runs the setup wizard and reports whether a config was saved
func RunSetupTUI() (bool, error) {
	p := tea.NewProgram(NewSetupTUI(ConfigFileName), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return false, err
	}
	m, ok := final.(SetupModel)
	return ok && m.saved, nil
}
