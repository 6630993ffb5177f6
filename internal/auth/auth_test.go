package auth

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"

	"github.com/jfarrell/icloud-cli/internal/config"
	"github.com/jfarrell/icloud-cli/internal/services/notes"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Load(filepath.Join(dir, "config.toml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Auth.SessionDir = filepath.Join(dir, "session")
	cfg.Sync.CacheDir = filepath.Join(dir, "cache")
	return cfg
}

func TestIMAPCredentials(t *testing.T) {
	keyring.MockInit()

	cfg := testConfig(t)
	m := NewManager(cfg)

	// No account configured.
	if _, err := m.IMAPCredentials(); !errors.Is(err, notes.ErrNoCredentials) {
		t.Fatalf("err = %v, want ErrNoCredentials", err)
	}

	// Account configured but no stored password.
	cfg.Auth.AppleID = "user@example.com"
	if _, err := m.IMAPCredentials(); !errors.Is(err, notes.ErrNoCredentials) {
		t.Fatalf("err = %v, want ErrNoCredentials", err)
	}

	if err := keyring.Set("icloud-cli-imap", "user@example.com", "app-pass"); err != nil {
		t.Fatalf("seed keyring: %v", err)
	}
	creds, err := m.IMAPCredentials()
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}
	if creds.Username != "user@example.com" || creds.Password != "app-pass" {
		t.Errorf("creds = %+v", creds)
	}
}

func TestSetupIMAP(t *testing.T) {
	keyring.MockInit()

	cfg := testConfig(t)
	m := NewManager(cfg)
	m.out = &strings.Builder{}

	if err := m.SetupIMAP(); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("err = %v, want ErrNotLoggedIn", err)
	}

	cfg.Auth.AppleID = "user@example.com"
	m.readPassword = func(prompt string) (string, error) { return "abcd-efgh-ijkl-mnop", nil }
	if err := m.SetupIMAP(); err != nil {
		t.Fatalf("setup: %v", err)
	}

	stored, err := keyring.Get("icloud-cli-imap", "user@example.com")
	if err != nil || stored != "abcd-efgh-ijkl-mnop" {
		t.Fatalf("stored = %q, err = %v", stored, err)
	}
}

func TestSetupIMAPRejectsEmpty(t *testing.T) {
	keyring.MockInit()

	cfg := testConfig(t)
	cfg.Auth.AppleID = "user@example.com"
	m := NewManager(cfg)
	m.out = &strings.Builder{}
	m.readPassword = func(prompt string) (string, error) { return "", nil }

	if err := m.SetupIMAP(); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestClientWithoutSession(t *testing.T) {
	cfg := testConfig(t)
	m := NewManager(cfg)

	if _, err := m.Client(context.Background()); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("err = %v, want ErrNotLoggedIn", err)
	}

	cfg.Auth.AppleID = "user@example.com"
	if _, err := m.Client(context.Background()); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("err = %v, want ErrNotLoggedIn", err)
	}
}

func TestStatusNoAccount(t *testing.T) {
	keyring.MockInit()

	m := NewManager(testConfig(t))
	st, err := m.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.AppleID != "" || st.SessionValid || st.IMAPConfigured {
		t.Errorf("status = %+v", st)
	}
}

func TestLogoutClearsKeyring(t *testing.T) {
	keyring.MockInit()

	cfg := testConfig(t)
	m := NewManager(cfg)

	if err := m.Logout(); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("err = %v, want ErrNotLoggedIn", err)
	}

	cfg.Auth.AppleID = "user@example.com"
	keyring.Set("icloud-cli", "user@example.com", "secret")
	keyring.Set("icloud-cli-imap", "user@example.com", "app-pass")

	if err := m.Logout(); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := keyring.Get("icloud-cli", "user@example.com"); !errors.Is(err, keyring.ErrNotFound) {
		t.Errorf("password still stored: %v", err)
	}
	if _, err := keyring.Get("icloud-cli-imap", "user@example.com"); !errors.Is(err, keyring.ErrNotFound) {
		t.Errorf("imap password still stored: %v", err)
	}
}
