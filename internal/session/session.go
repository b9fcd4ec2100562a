// Package session holds the server's in-memory state: issued auth
// tokens, the live scan progress, and merchants marked for
// cancellation. Everything here is lost on restart on purpose; durable
// state lives in the record store and the alert config file.
package session

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"sort"
	"sync"
)

// ScanState is a snapshot of the current (or last) scan.
type ScanState struct {
	Running   bool
	Current   int
	Total     int
	RecentLog string
	Error     string
	Done      bool
}

// Manager guards all mutable server state behind one mutex.
type Manager struct {
	mu       sync.Mutex
	password string
	tokens   map[string]struct{}
	scan     ScanState
	marked   map[string]struct{}
}

// NewManager creates a manager that accepts the given shared password.
func NewManager(password string) *Manager {
	return &Manager{
		password: password,
		tokens:   make(map[string]struct{}),
		marked:   make(map[string]struct{}),
	}
}

// Login exchanges the shared password for a bearer token.
func (m *Manager) Login(password string) (string, bool) {
	if subtle.ConstantTimeCompare([]byte(password), []byte(m.password)) != 1 {
		return "", false
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", false
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	m.mu.Lock()
	m.tokens[token] = struct{}{}
	m.mu.Unlock()
	return token, true
}

// Authorized reports whether the token was issued by Login.
func (m *Manager) Authorized(token string) bool {
	if token == "" {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tokens[token]
	return ok
}

// StartScan claims the scan slot. Returns false if a scan is already running.
func (m *Manager) StartScan() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scan.Running {
		return false
	}
	m.scan = ScanState{Running: true, Total: 100, RecentLog: "Connecting to IMAP server..."}
	return true
}

// UpdateProgress records scan progress for the /api/progress endpoint.
func (m *Manager) UpdateProgress(current, total int, recentLog string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scan.Current = current
	if total < 1 {
		total = 1
	}
	m.scan.Total = total
	if recentLog != "" {
		m.scan.RecentLog = recentLog
	}
}

// FinishScan releases the scan slot, recording success or failure.
func (m *Manager) FinishScan(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scan.Running = false
	if err != nil {
		m.scan.Error = err.Error()
		return
	}
	m.scan.Done = true
}

// Scan returns a copy of the current scan state.
func (m *Manager) Scan() ScanState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scan
}

// Mark toggles a merchant's marked-for-cancellation flag.
func (m *Manager) Mark(merchant string, mark bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mark {
		m.marked[merchant] = struct{}{}
	} else {
		delete(m.marked, merchant)
	}
}

// IsMarked reports whether the merchant is marked for cancellation.
func (m *Manager) IsMarked(merchant string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.marked[merchant]
	return ok
}

// Marked returns the marked merchants in sorted order.
func (m *Manager) Marked() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.marked))
	for merchant := range m.marked {
		out = append(out, merchant)
	}
	sort.Strings(out)
	return out
}
