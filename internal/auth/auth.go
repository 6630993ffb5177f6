// Package auth manages the iCloud login lifecycle: password and 2FA
// prompts, the stored web session, and app-specific IMAP credentials.
// Secrets live in the OS keychain, never on disk.
package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
	"golang.org/x/term"

	"github.com/jfarrell/icloud-cli/internal/config"
	"github.com/jfarrell/icloud-cli/internal/icloud"
	"github.com/jfarrell/icloud-cli/internal/services/notes"
)

const (
	keyringService     = "icloud-cli"
	keyringIMAPService = "icloud-cli-imap"
)

// ErrNotLoggedIn indicates no valid session exists.
var ErrNotLoggedIn = errors.New("not logged in, run login first")

// Manager owns authentication state for one configured account.
type Manager struct {
	cfg *config.Config

	in  io.Reader
	out io.Writer

	// readPassword is swapped in tests; the default reads from the
	// terminal with echo disabled.
	readPassword func(prompt string) (string, error)
}

func NewManager(cfg *config.Config) *Manager {
	m := &Manager{cfg: cfg, in: os.Stdin, out: os.Stdout}
	m.readPassword = m.terminalPassword
	return m
}

func (m *Manager) terminalPassword(prompt string) (string, error) {
	fmt.Fprint(m.out, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(m.out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

func (m *Manager) readLine(prompt string) (string, error) {
	fmt.Fprint(m.out, prompt)
	r := bufio.NewReader(m.in)
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Login signs in to iCloud, prompting for the password (falling back to a
// stored one) and for a 2FA code when the account requires it. The resulting
// session is persisted so later commands run without prompts.
func (m *Manager) Login(ctx context.Context, appleID string) error {
	if appleID == "" {
		appleID = m.cfg.Auth.AppleID
	}
	if appleID == "" {
		var err error
		appleID, err = m.readLine("Apple ID: ")
		if err != nil {
			return err
		}
	}
	if appleID == "" {
		return errors.New("apple id is required")
	}

	client, err := icloud.New(appleID, m.cfg.Auth.SessionDir)
	if err != nil {
		return err
	}

	password, err := keyring.Get(keyringService, appleID)
	if err != nil {
		password, err = m.readPassword("Password: ")
		if err != nil {
			return err
		}
	}
	if password == "" {
		return errors.New("password is required")
	}

	if err := client.SignIn(ctx, password); err != nil {
		return err
	}

	if client.Requires2FA() {
		code, err := m.readLine("Enter the 2FA code sent to your devices: ")
		if err != nil {
			return err
		}
		if err := client.Validate2FACode(ctx, code); err != nil {
			return fmt.Errorf("2fa verification: %w", err)
		}
		if err := client.TrustSession(ctx); err != nil {
			return fmt.Errorf("trust session: %w", err)
		}
	}

	if err := client.SaveSession(); err != nil {
		return err
	}
	if err := keyring.Set(keyringService, appleID, password); err != nil {
		fmt.Fprintf(m.out, "Warning: could not store password in keychain: %v\n", err)
	}

	m.cfg.Auth.AppleID = appleID
	return m.cfg.Save()
}

// Logout clears the stored session and keychain entries.
func (m *Manager) Logout() error {
	appleID := m.cfg.Auth.AppleID
	if appleID == "" {
		return ErrNotLoggedIn
	}

	client, err := icloud.New(appleID, m.cfg.Auth.SessionDir)
	if err != nil {
		return err
	}
	if err := client.ClearSession(); err != nil {
		return err
	}

	if err := keyring.Delete(keyringService, appleID); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("remove keychain entry: %w", err)
	}
	if err := keyring.Delete(keyringIMAPService, appleID); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("remove imap keychain entry: %w", err)
	}
	return nil
}

// Status describes the stored authentication state.
type Status struct {
	AppleID        string `json:"apple_id"`
	SessionValid   bool   `json:"session_valid"`
	IMAPConfigured bool   `json:"imap_configured"`
}

// Status reports the account, session validity, and IMAP setup without
// prompting.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	st := &Status{AppleID: m.cfg.Auth.AppleID}
	if st.AppleID == "" {
		return st, nil
	}

	client, err := icloud.New(st.AppleID, m.cfg.Auth.SessionDir)
	if err != nil {
		return nil, err
	}
	if client.HasSession() {
		st.SessionValid = client.ValidateSession(ctx) == nil
	}

	if _, err := keyring.Get(keyringIMAPService, st.AppleID); err == nil {
		st.IMAPConfigured = true
	}
	return st, nil
}

// Client returns a signed-in API client, revalidating the stored session.
func (m *Manager) Client(ctx context.Context) (*icloud.Client, error) {
	appleID := m.cfg.Auth.AppleID
	if appleID == "" {
		return nil, ErrNotLoggedIn
	}

	client, err := icloud.New(appleID, m.cfg.Auth.SessionDir)
	if err != nil {
		return nil, err
	}
	if !client.HasSession() {
		return nil, ErrNotLoggedIn
	}
	if err := client.ValidateSession(ctx); err != nil {
		if errors.Is(err, icloud.ErrUnauthorized) {
			return nil, fmt.Errorf("%w: session expired", ErrNotLoggedIn)
		}
		return nil, err
	}
	return client, nil
}

// SetupIMAP prompts for and stores an app-specific password for Notes
// access over IMAP.
func (m *Manager) SetupIMAP() error {
	appleID := m.cfg.Auth.AppleID
	if appleID == "" {
		return ErrNotLoggedIn
	}

	fmt.Fprintln(m.out, "Notes access requires an app-specific password.")
	fmt.Fprintln(m.out, "Generate one at https://appleid.apple.com under Sign-In and Security.")
	password, err := m.readPassword("App-specific password: ")
	if err != nil {
		return err
	}
	if password == "" {
		return errors.New("password is required")
	}

	if err := keyring.Set(keyringIMAPService, appleID, password); err != nil {
		return fmt.Errorf("store imap password: %w", err)
	}
	return nil
}

// IMAPCredentials returns stored IMAP credentials for the notes service.
// It satisfies notes.CredentialsFunc.
func (m *Manager) IMAPCredentials() (notes.Credentials, error) {
	appleID := m.cfg.Auth.AppleID
	if appleID == "" {
		return notes.Credentials{}, notes.ErrNoCredentials
	}
	password, err := keyring.Get(keyringIMAPService, appleID)
	if err != nil {
		return notes.Credentials{}, notes.ErrNoCredentials
	}
	return notes.Credentials{Username: appleID, Password: password}, nil
}
