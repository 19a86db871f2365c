package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Colors for terminal output
const (
	Red    = "\033[0;31m"
	Green  = "\033[0;32m"
	Yellow = "\033[1;33m"
	Blue   = "\033[0;34m"
	Cyan   = "\033[0;36m"
	Reset  = "\033[0m"
)

const (
	// DefaultPaymobModule is the dotted path of the paymob_integration API module
	DefaultPaymobModule = "paymob_integration.paymob_integration.api"
	// DefaultAdminRole gates the connection test and setup actions
	DefaultAdminRole = "System Manager"
)

// Config holds the CLI configuration
type Config struct {
	ERPVPN          string
	ERPURL          string
	APIKey          string
	APISecret       string
	NginxCookie     string
	NginxCookieName string // Cookie name for reverse proxy auth (default: "auth_cookie")
	Brand           string // CLI branding shown in TUI (default: "Paymob CLI")
	PaymobModule    string
	AdminRole       string
	LogLevel        string
	LogFormat       string
	LogFile         string
}

// Client handles API requests
type Client struct {
	Config     *Config
	HTTPClient *http.Client
	ActiveURL  string
	Mode       string // "vpn" or "internet"
	Logger     *zap.Logger
}

// configPaths lists the places .erp-config is looked up, in order
func configPaths() []string {
	return []string{
		".erp-config",
		"../.erp-config",
		filepath.Join(filepath.Dir(os.Args[0]), ".erp-config"),
		filepath.Join(filepath.Dir(os.Args[0]), "..", ".erp-config"),
	}
}

// LoadConfig finds and reads the .erp-config file
func LoadConfig() (*Config, error) {
	for _, p := range configPaths() {
		if _, err := os.Stat(p); err == nil {
			return LoadConfigFile(p)
		}
	}
	return nil, ErrConfigNotFound
}

// LoadConfigFile reads a dotenv style config file. Variables set in the
// process environment take precedence over the file.
func LoadConfigFile(path string) (*Config, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open config: %w", err)
	}

	get := func(key string) string {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v
		}
		return strings.TrimSpace(values[key])
	}

	config := &Config{
		ERPVPN:          strings.TrimSuffix(get("ERP_VPN"), "/"),
		ERPURL:          strings.TrimSuffix(get("ERP_URL"), "/"),
		APIKey:          get("ERP_API_KEY"),
		APISecret:       get("ERP_API_SECRET"),
		NginxCookie:     get("NGINX_COOKIE"),
		NginxCookieName: "auth_cookie",
		Brand:           "Paymob CLI",
		PaymobModule:    DefaultPaymobModule,
		AdminRole:       DefaultAdminRole,
		LogLevel:        get("ERP_LOG_LEVEL"),
		LogFormat:       get("ERP_LOG_FORMAT"),
		LogFile:         get("ERP_LOG_FILE"),
	}
	if v := get("NGINX_COOKIE_NAME"); v != "" {
		config.NginxCookieName = v
	}
	if v := get("ERP_BRAND"); v != "" {
		config.Brand = v
	}
	if v := get("ERP_PAYMOB_MODULE"); v != "" {
		config.PaymobModule = strings.TrimSuffix(v, ".")
	}
	if v := get("ERP_ADMIN_ROLE"); v != "" {
		config.AdminRole = v
	}

	if config.ERPURL == "" || config.APIKey == "" || config.APISecret == "" {
		return nil, fmt.Errorf("missing required config: ERP_URL, ERP_API_KEY, ERP_API_SECRET")
	}

	return config, nil
}

// NewClient creates a new API client
func NewClient(config *Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		Config: config,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		ActiveURL: config.ERPURL,
		Mode:      "internet",
		Logger:    logger,
	}
}

// DetectConnection tries VPN first, falls back to internet
func (c *Client) DetectConnection() {
	if c.Config.ERPVPN != "" {
		req, err := http.NewRequest("GET", c.Config.ERPVPN+"/api/method/frappe.auth.get_logged_user", nil)
		if err != nil {
			c.Logger.Warn("invalid VPN URL, using internet", zap.String("url", c.Config.ERPVPN), zap.Error(err))
			c.Mode = "internet"
			c.ActiveURL = c.Config.ERPURL
			return
		}
		c.authorize(req, false)

		client := &http.Client{Timeout: 2 * time.Second}
		resp, err := client.Do(req)
		if err == nil && resp.StatusCode == 200 {
			resp.Body.Close()
			c.Mode = "vpn"
			c.ActiveURL = c.Config.ERPVPN
			c.Logger.Debug("using VPN connection", zap.String("url", c.ActiveURL))
			return
		}
		if resp != nil {
			resp.Body.Close()
		}
		c.Logger.Debug("VPN unreachable, falling back to internet", zap.Error(err))
	}

	c.Mode = "internet"
	c.ActiveURL = c.Config.ERPURL
}

func (c *Client) authorize(req *http.Request, cookie bool) {
	req.Header.Set("Authorization", fmt.Sprintf("token %s:%s", c.Config.APIKey, c.Config.APISecret))
	req.Header.Set("Accept", "application/json")
	if cookie && c.Mode == "internet" && c.Config.NginxCookie != "" {
		req.AddCookie(&http.Cookie{Name: c.Config.NginxCookieName, Value: c.Config.NginxCookie})
	}
}

// envelope is the common shape of Frappe responses
type envelope struct {
	Data           json.RawMessage `json:"data"`
	Message        json.RawMessage `json:"message"`
	Exception      string          `json:"exception"`
	ExcType        string          `json:"exc_type"`
	ServerMessages string          `json:"_server_messages"`
}

// do sends a request and returns the decoded envelope. Exception envelopes
// and non-2xx statuses become *APIError.
func (c *Client) do(ctx context.Context, method, fullURL string, body interface{}) (*envelope, []byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req, true)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.Logger.Warn("request failed", zap.String("method", method), zap.String("url", fullURL), zap.Error(err))
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.Logger.Debug("request done",
		zap.String("method", method),
		zap.String("url", fullURL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		if resp.StatusCode >= 300 {
			return nil, nil, &APIError{StatusCode: resp.StatusCode, Endpoint: fullURL, Message: strings.TrimSpace(string(respBody))}
		}
		return nil, nil, fmt.Errorf("failed to parse response: %s", string(respBody))
	}

	if env.Exception != "" || resp.StatusCode >= 300 {
		msg := serverMessages(env.ServerMessages)
		if msg == "" {
			msg = env.Exception
		}
		apiErr := &APIError{StatusCode: resp.StatusCode, Endpoint: fullURL, ExcType: env.ExcType, Message: msg}
		c.Logger.Warn("server returned error", zap.Int("status", resp.StatusCode), zap.String("exc_type", env.ExcType), zap.String("message", msg))
		return nil, nil, apiErr
	}

	return &env, respBody, nil
}

// Request makes an API request against /api/resource
func (c *Client) Request(method, endpoint string, body interface{}) (map[string]interface{}, error) {
	return c.RequestContext(context.Background(), method, endpoint, body)
}

// RequestContext is Request with a caller supplied context
func (c *Client) RequestContext(ctx context.Context, method, endpoint string, body interface{}) (map[string]interface{}, error) {
	fullURL := fmt.Sprintf("%s/api/resource/%s", c.ActiveURL, endpoint)
	_, raw, err := c.do(ctx, method, fullURL, body)
	if err != nil {
		return nil, err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %s", string(raw))
	}
	return result, nil
}

// GetDoc loads a single document and decodes it into out
func (c *Client) GetDoc(ctx context.Context, doctype, name string, out interface{}) error {
	fullURL := fmt.Sprintf("%s/api/resource/%s/%s", c.ActiveURL, url.PathEscape(doctype), url.PathEscape(name))
	env, _, err := c.do(ctx, "GET", fullURL, nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%s %s not found: %w", doctype, name, err)
		}
		return err
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("%s %s not found", doctype, name)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", doctype, err)
	}
	return nil
}

// Call invokes a whitelisted server method with POST and decodes the
// "message" field of the response into out (which may be nil).
func (c *Client) Call(ctx context.Context, method string, args map[string]interface{}, out interface{}) error {
	if args == nil {
		args = map[string]interface{}{}
	}
	return c.callMethod(ctx, "POST", method, args, out)
}

func (c *Client) callMethod(ctx context.Context, httpMethod, method string, args map[string]interface{}, out interface{}) error {
	fullURL := fmt.Sprintf("%s/api/method/%s", c.ActiveURL, method)
	var body interface{}
	if args != nil {
		body = args
	}

	c.Logger.Info("calling server method", zap.String("method", method))
	env, _, err := c.do(ctx, httpMethod, fullURL, body)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if out == nil || len(env.Message) == 0 || string(env.Message) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Message, out); err != nil {
		return fmt.Errorf("%s: unexpected response: %w", method, err)
	}
	return nil
}

// GetLoggedUser returns the user the API key belongs to
func (c *Client) GetLoggedUser(ctx context.Context) (string, error) {
	var user string
	if err := c.callMethod(ctx, "GET", "frappe.auth.get_logged_user", nil, &user); err != nil {
		return "", err
	}
	if user == "" {
		return "", fmt.Errorf("authentication failed: empty user")
	}
	return user, nil
}

// RoleSet is the set of roles held by a user
type RoleSet map[string]struct{}

// NewRoleSet builds a RoleSet from role names
func NewRoleSet(roles ...string) RoleSet {
	rs := RoleSet{}
	for _, r := range roles {
		if r != "" {
			rs[r] = struct{}{}
		}
	}
	return rs
}

// Has reports whether the set holds role. Administrator holds every role.
func (rs RoleSet) Has(role string) bool {
	if _, ok := rs["Administrator"]; ok {
		return true
	}
	_, ok := rs[role]
	return ok
}

// GetRoles loads the roles of user from its User document
func (c *Client) GetRoles(ctx context.Context, user string) (RoleSet, error) {
	if user == "Administrator" {
		return NewRoleSet("Administrator"), nil
	}

	var doc struct {
		Roles []struct {
			Role string `json:"role"`
		} `json:"roles"`
	}
	if err := c.GetDoc(ctx, "User", user, &doc); err != nil {
		return nil, fmt.Errorf("failed to load roles for %s: %w", user, err)
	}

	rs := RoleSet{}
	for _, r := range doc.Roles {
		if r.Role != "" {
			rs[r.Role] = struct{}{}
		}
	}
	return rs, nil
}

// CurrentRoles resolves the logged user and their roles. Failure to read
// the User document degrades to an empty set so admin-only actions stay hidden.
func (c *Client) CurrentRoles(ctx context.Context) (string, RoleSet, error) {
	user, err := c.GetLoggedUser(ctx)
	if err != nil {
		return "", nil, err
	}
	roles, err := c.GetRoles(ctx, user)
	if err != nil {
		c.Logger.Warn("cannot read user roles", zap.String("user", user), zap.Error(err))
		return user, RoleSet{}, nil
	}
	return user, roles, nil
}

// CmdPing tests the connection
func (c *Client) CmdPing() error {
	fmt.Printf("%sTesting connection to ERP...%s\n", Blue, Reset)

	c.DetectConnection()

	user, err := c.GetLoggedUser(context.Background())
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	fmt.Printf("%s✓ Connection successful%s\n", Green, Reset)
	fmt.Printf("  Authenticated as: %s%s%s\n", Yellow, user, Reset)
	if c.Mode == "vpn" {
		fmt.Printf("  Mode: %sVPN direct%s (%s)\n", Cyan, Reset, c.ActiveURL)
	} else {
		fmt.Printf("  Mode: %sInternet%s (%s)\n", Yellow, Reset, c.ActiveURL)
	}
	return nil
}

// CmdConfig shows current configuration
func (c *Client) CmdConfig() error {
	fmt.Printf("%sCurrent configuration:%s\n", Blue, Reset)
	if c.Config.ERPVPN != "" {
		fmt.Printf("  VPN URL: %s\n", c.Config.ERPVPN)
	} else {
		fmt.Printf("  VPN URL: %snot configured%s\n", Yellow, Reset)
	}
	fmt.Printf("  Internet URL: %s\n", c.Config.ERPURL)
	fmt.Printf("  API Key: %s...\n", maskKey(c.Config.APIKey))
	fmt.Printf("  API Secret: ****\n")

	if c.Config.NginxCookie != "" {
		fmt.Printf("  Nginx Cookie: configured\n")
	} else {
		fmt.Printf("  Nginx Cookie: %snot configured%s (needed for internet mode)\n", Yellow, Reset)
	}

	fmt.Printf("  Paymob module: %s\n", c.Config.PaymobModule)
	fmt.Printf("  Admin role: %s\n", c.Config.AdminRole)

	fmt.Println()
	c.DetectConnection()
	if c.Mode == "vpn" {
		fmt.Printf("  Active mode: %sVPN direct%s\n", Cyan, Reset)
	} else {
		fmt.Printf("  Active mode: %sInternet%s\n", Yellow, Reset)
	}
	fmt.Printf("  Active URL: %s\n", c.ActiveURL)

	return nil
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:8]
}
