package browser

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// ErrManagerClosed is returned when a closed manager is used.
var ErrManagerClosed = errors.New("browser manager is closed")

// Manager owns the Chrome process for the duration of a run: it launches
// a local headless Chrome (or connects to a remote one), hands out the
// Rod browser handle, and tears everything down on Close.
//
// Design decision: We run one Chrome process per invocation rather than
// a long-lived pool because:
//  1. A capture run is a bounded batch job, not a daemon
//  2. A fresh process per run avoids cache and cookie bleed between runs
//  3. Crash recovery degenerates to "rerun the command"
type Manager struct {
	// remoteURL is the WebSocket URL of an external Chrome instance.
	// Empty means launch a local Chrome via the launcher.
	remoteURL string

	logger *slog.Logger

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithRemoteURL connects to an already running Chrome at the given
// WebSocket URL instead of launching one.
func WithRemoteURL(url string) ManagerOption {
	return func(m *Manager) { m.remoteURL = url }
}

// WithManagerLogger sets the logger. Defaults to slog.Default().
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a browser manager. Call Start to get a browser.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start launches Chrome (or connects to the remote instance) and returns
// the Rod browser handle.
func (m *Manager) Start() (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrManagerClosed
	}
	if m.browser != nil {
		return m.browser, nil
	}

	var wsURL string
	if m.remoteURL != "" {
		wsURL = m.remoteURL
		m.logger.Info("connecting to remote browser", slog.String("url", wsURL))
	} else {
		l := launcher.New().
			Headless(true).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		wsURL = u
		m.lnch = l
		m.logger.Debug("launched local chrome", slog.String("url", wsURL))
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	// Self-signed certificates are common on staging hosts.
	if err := b.IgnoreCertErrors(true); err != nil {
		m.logger.Warn("ignore cert errors failed", slog.String("error", err.Error()))
	}

	m.browser = b
	return b, nil
}

// Close shuts down Chrome. Safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			m.logger.Warn("browser close failed", slog.String("error", err.Error()))
		}
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	return nil
}
