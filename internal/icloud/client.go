// Package icloud implements a session-cookie HTTP client for the iCloud web
// API. It handles account sign-in, 2FA validation, session persistence, and
// lookup of per-service endpoints (calendar, reminders, findme).
package icloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const setupEndpoint = "https://setup.icloud.com/setup/ws/1"

const sessionFileName = "session.json"

// Sentinel errors for common API error classes.
var (
	ErrUnauthorized = errors.New("unauthorized")
	Err2FARequired  = errors.New("two-factor authentication required")
	ErrNoService    = errors.New("service not available for this account")
)

type webService struct {
	URL    string `json:"url"`
	Status string `json:"status"`
}

// savedCookie is the JSON form of a session cookie.
type savedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain"`
	Path     string    `json:"path"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure"`
	HTTPOnly bool      `json:"http_only"`
}

// sessionState is persisted under the session dir between runs.
type sessionState struct {
	AppleID     string                `json:"apple_id"`
	ClientID    string                `json:"client_id"`
	DSID        string                `json:"dsid,omitempty"`
	TrustToken  string                `json:"trust_token,omitempty"`
	WebServices map[string]webService `json:"webservices,omitempty"`
	Cookies     []savedCookie         `json:"cookies,omitempty"`
}

// Client talks to the iCloud web API on behalf of one Apple ID.
type Client struct {
	HTTP *http.Client

	appleID     string
	clientID    string
	dsid        string
	trustToken  string
	webServices map[string]webService
	sessionPath string
	requires2FA bool
}

// New creates a client for appleID, restoring any session persisted under
// sessionDir.
func New(appleID, sessionDir string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	c := &Client{
		HTTP:        &http.Client{Jar: jar, Timeout: 45 * time.Second},
		appleID:     appleID,
		clientID:    "auth-" + uuid.NewString(),
		webServices: make(map[string]webService),
		sessionPath: filepath.Join(sessionDir, sessionFileName),
	}
	c.loadSession()
	return c, nil
}

// AppleID returns the account this client is bound to.
func (c *Client) AppleID() string {
	return c.appleID
}

// DSID returns the directory services identifier assigned at sign-in.
func (c *Client) DSID() string {
	return c.dsid
}

// Requires2FA reports whether the last sign-in demanded a 2FA code.
func (c *Client) Requires2FA() bool {
	return c.requires2FA
}

type loginResponse struct {
	DSInfo struct {
		DSID json.Number `json:"dsid"`
	} `json:"dsInfo"`
	WebServices          map[string]webService `json:"webservices"`
	HSAChallengeRequired bool                  `json:"hsaChallengeRequired"`
	HSATrustedBrowser    bool                  `json:"hsaTrustedBrowser"`
}

// SignIn authenticates with the account password. On success the session
// cookies and service catalog are stored; a 2FA challenge leaves the client
// in a state where Requires2FA reports true.
func (c *Client) SignIn(ctx context.Context, password string) error {
	body := map[string]any{
		"apple_id":       c.appleID,
		"password":       password,
		"extended_login": true,
	}
	if c.trustToken != "" {
		body["trust_token"] = c.trustToken
	}

	var resp loginResponse
	if err := c.post(ctx, setupEndpoint+"/accountLogin", body, &resp); err != nil {
		return err
	}

	c.applyLogin(&resp)
	return c.SaveSession()
}

// ValidateSession checks that the persisted session is still accepted and
// refreshes the service catalog. Returns ErrUnauthorized when the session
// has expired.
func (c *Client) ValidateSession(ctx context.Context) error {
	var resp loginResponse
	if err := c.post(ctx, setupEndpoint+"/validate", nil, &resp); err != nil {
		return err
	}
	c.applyLogin(&resp)
	if c.requires2FA {
		return Err2FARequired
	}
	return c.SaveSession()
}

// Validate2FACode submits a trusted-device verification code.
func (c *Client) Validate2FACode(ctx context.Context, code string) error {
	body := map[string]any{
		"securityCode": map[string]string{"code": code},
	}
	var resp struct {
		Success bool `json:"success"`
	}
	if err := c.post(ctx, setupEndpoint+"/validateVerificationCode", body, &resp); err != nil {
		return err
	}
	c.requires2FA = false
	return c.SaveSession()
}

// TrustSession asks the server to trust this session so future sign-ins
// skip 2FA. The trust token is persisted with the session.
func (c *Client) TrustSession(ctx context.Context) error {
	var resp struct {
		TrustToken string `json:"trustToken"`
	}
	if err := c.post(ctx, setupEndpoint+"/trust", nil, &resp); err != nil {
		return err
	}
	if resp.TrustToken != "" {
		c.trustToken = resp.TrustToken
	}
	return c.SaveSession()
}

func (c *Client) applyLogin(resp *loginResponse) {
	if resp.DSInfo.DSID != "" {
		c.dsid = resp.DSInfo.DSID.String()
	}
	if len(resp.WebServices) > 0 {
		c.webServices = resp.WebServices
	}
	c.requires2FA = resp.HSAChallengeRequired && !resp.HSATrustedBrowser
}

// ServiceURL returns the endpoint for a named web service (for example
// "calendar", "reminders", "findme").
func (c *Client) ServiceURL(name string) (string, error) {
	ws, ok := c.webServices[name]
	if !ok || ws.URL == "" {
		return "", fmt.Errorf("%s: %w", name, ErrNoService)
	}
	return ws.URL, nil
}

// SetServiceURL overrides the endpoint for a named web service.
func (c *Client) SetServiceURL(name, rawURL string) {
	c.webServices[name] = webService{URL: rawURL, Status: "active"}
}

// Get issues a GET against an absolute service URL with the given query
// parameters and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values, out any) error {
	return c.do(ctx, http.MethodGet, rawURL, params, nil, out)
}

// Post issues a JSON POST against an absolute service URL.
func (c *Client) Post(ctx context.Context, rawURL string, body, out any) error {
	return c.do(ctx, http.MethodPost, rawURL, nil, body, out)
}

func (c *Client) post(ctx context.Context, rawURL string, body, out any) error {
	return c.do(ctx, http.MethodPost, rawURL, nil, body, out)
}

func (c *Client) do(ctx context.Context, method, rawURL string, params url.Values, body, out any) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	q := u.Query()
	q.Set("clientId", c.clientID)
	if c.dsid != "" {
		q.Set("dsid", c.dsid)
	}
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Origin", "https://www.icloud.com")
	req.Header.Set("Referer", "https://www.icloud.com/")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s %s: %w", method, u.Path, ErrUnauthorized)
	case resp.StatusCode == 421:
		return fmt.Errorf("%s %s: %w", method, u.Path, Err2FARequired)
	case resp.StatusCode >= 400:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, u.Path, resp.StatusCode, bytes.TrimSpace(data))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// SaveSession persists the session (cookies, dsid, service catalog, trust
// token) under the session dir.
func (c *Client) SaveSession() error {
	state := sessionState{
		AppleID:     c.appleID,
		ClientID:    c.clientID,
		DSID:        c.dsid,
		TrustToken:  c.trustToken,
		WebServices: c.webServices,
	}

	home, _ := url.Parse("https://www.icloud.com")
	setup, _ := url.Parse(setupEndpoint)
	seen := make(map[string]bool)
	for _, u := range []*url.URL{setup, home} {
		for _, ck := range c.HTTP.Jar.Cookies(u) {
			if seen[ck.Name] {
				continue
			}
			seen[ck.Name] = true
			state.Cookies = append(state.Cookies, savedCookie{
				Name:     ck.Name,
				Value:    ck.Value,
				Domain:   ".icloud.com",
				Path:     "/",
				Expires:  ck.Expires,
				Secure:   true,
				HTTPOnly: ck.HttpOnly,
			})
		}
	}

	if err := os.MkdirAll(filepath.Dir(c.sessionPath), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.sessionPath), "session-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, c.sessionPath)
}

func (c *Client) loadSession() {
	data, err := os.ReadFile(c.sessionPath)
	if err != nil {
		return
	}
	var state sessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return
	}
	if state.AppleID != c.appleID {
		return // session belongs to a different account
	}

	if state.ClientID != "" {
		c.clientID = state.ClientID
	}
	c.dsid = state.DSID
	c.trustToken = state.TrustToken
	if len(state.WebServices) > 0 {
		c.webServices = state.WebServices
	}

	home, _ := url.Parse("https://www.icloud.com")
	cookies := make([]*http.Cookie, 0, len(state.Cookies))
	for _, sc := range state.Cookies {
		cookies = append(cookies, &http.Cookie{
			Name:     sc.Name,
			Value:    sc.Value,
			Domain:   sc.Domain,
			Path:     sc.Path,
			Expires:  sc.Expires,
			Secure:   sc.Secure,
			HttpOnly: sc.HTTPOnly,
		})
	}
	c.HTTP.Jar.SetCookies(home, cookies)
}

// HasSession reports whether a persisted session file exists.
func (c *Client) HasSession() bool {
	_, err := os.Stat(c.sessionPath)
	return err == nil
}

// ClearSession removes the persisted session file.
func (c *Client) ClearSession() error {
	err := os.Remove(c.sessionPath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
