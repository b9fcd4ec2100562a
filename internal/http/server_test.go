package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"subtrack/internal/core"
	"subtrack/internal/notify"
	"subtrack/internal/session"
	"subtrack/internal/store"
)

type memStore struct {
	mu      sync.Mutex
	records []core.ChargeRecord
}

func (m *memStore) Append(ctx context.Context, rec core.ChargeRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ID == rec.ID {
			return false, nil
		}
	}
	m.records = append(m.records, rec)
	return true, nil
}

func (m *memStore) List(ctx context.Context) ([]core.ChargeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.ChargeRecord, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *memStore) IDs(ctx context.Context) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make(map[string]struct{}, len(m.records))
	for _, r := range m.records {
		ids[r.ID] = struct{}{}
	}
	return ids, nil
}

func (m *memStore) Close() error { return nil }

type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) Send(text string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, text)
	return nil
}

type serverFixture struct {
	srv       *Server
	store     *memStore
	sessions  *session.Manager
	sender    *fakeSender
	scans     []string
	scanErr   error
	dir       string
	token     string
	notifyErr error
}

func newFixture(t *testing.T) *serverFixture {
	t.Helper()
	dir := t.TempDir()

	f := &serverFixture{
		store:    &memStore{},
		sessions: session.NewManager("hunter2"),
		sender:   &fakeSender{},
		dir:      dir,
	}
	f.srv = NewServer(Options{
		Addr:     ":0",
		Store:    f.store,
		Sessions: f.sessions,
		StartScan: func(ctx context.Context, email, password string) error {
			if f.scanErr != nil {
				return f.scanErr
			}
			f.scans = append(f.scans, email)
			return nil
		},
		ReportPath:     filepath.Join(dir, "report.json"),
		AlertsPath:     filepath.Join(dir, "alerts.json"),
		ScanSchedule:   "0 8 * * 1",
		RemindSchedule: "0 9 * * *",
		NotifierFunc: func(cfg *notify.AlertConfig) (notify.Sender, error) {
			if f.notifyErr != nil {
				return nil, f.notifyErr
			}
			return f.sender, nil
		},
	})
	f.srv.now = func() time.Time {
		return time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	}

	token, ok := f.sessions.Login("hunter2")
	if !ok {
		t.Fatal("login failed")
	}
	f.token = token
	return f
}

func (f *serverFixture) request(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+f.token)
	w := httptest.NewRecorder()
	f.srv.Server.Handler.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func (f *serverFixture) writeReport(t *testing.T, report core.Report) {
	t.Helper()
	if err := store.SaveReport(filepath.Join(f.dir, "report.json"), report); err != nil {
		t.Fatalf("save report: %v", err)
	}
}

func strPtr(s string) *string { return &s }

func sampleReport() core.Report {
	report := core.EmptyReport(time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC))
	report.TotalRecords = 4
	report.Merchants = []core.MerchantSummary{
		{
			Merchant:    "Netflix",
			Category:    "Streaming",
			ChargeCount: 6,
			Currency:    "USD",
			Frequency:   core.Monthly,
			MonthlyCost: 15.49,
			LastCharge:  strPtr("2025-06-02"),
			NextRenewal: strPtr("2025-07-02"),
		},
		{
			Merchant:    "Dusty Gym",
			Category:    "Fitness",
			ChargeCount: 2,
			Currency:    "USD",
			Frequency:   core.Monthly,
			MonthlyCost: 40,
			LastCharge:  strPtr("2025-02-10"),
			NextRenewal: strPtr("2025-03-12"),
			IsForgotten: true,
		},
	}
	return report
}

func TestLogin(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"password":"hunter2"}`))
	w := httptest.NewRecorder()
	f.srv.Server.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decodeBody(t, w)
	if body["status"] != "success" {
		t.Errorf("status = %v, want success", body["status"])
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Error("expected a token in the response")
	}
	if !f.sessions.Authorized(token) {
		t.Error("returned token is not authorized")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"password":"nope"}`))
	w := httptest.NewRecorder()
	f.srv.Server.Handler.ServeHTTP(w, req)

	body := decodeBody(t, w)
	if body["status"] != "error" {
		t.Errorf("status = %v, want error", body["status"])
	}
	if body["message"] != "Wrong password." {
		t.Errorf("message = %v", body["message"])
	}
}

func TestAPIRequiresBearerToken(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/api/report", "/api/progress", "/api/scheduler/status"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		f.srv.Server.Handler.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s without token: status = %d, want 401", path, w.Code)
		}

		req = httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer forged-token")
		w = httptest.NewRecorder()
		f.srv.Server.Handler.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s with forged token: status = %d, want 401", path, w.Code)
		}
	}
}

func TestReportNotFound(t *testing.T) {
	f := newFixture(t)

	w := f.request(t, http.MethodGet, "/api/report", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decodeBody(t, w)
	if _, ok := body["error"]; !ok {
		t.Errorf("expected error key in %v", body)
	}
}

func TestReportReturnsSnapshot(t *testing.T) {
	f := newFixture(t)
	f.writeReport(t, sampleReport())

	w := f.request(t, http.MethodGet, "/api/report", nil)
	var report core.Report
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.TotalRecords != 4 {
		t.Errorf("TotalRecords = %d, want 4", report.TotalRecords)
	}
	if len(report.Merchants) != 2 {
		t.Fatalf("merchants = %d, want 2", len(report.Merchants))
	}
	if report.Merchants[0].Merchant != "Netflix" {
		t.Errorf("first merchant = %q", report.Merchants[0].Merchant)
	}
}

func TestConnectStartsScan(t *testing.T) {
	f := newFixture(t)

	w := f.request(t, http.MethodPost, "/api/connect", map[string]string{
		"email": "me@gmail.com", "password": "app-password",
	})
	body := decodeBody(t, w)
	if body["status"] != "success" {
		t.Fatalf("status = %v, body = %v", body["status"], body)
	}
	if body["message"] != "Scan started." {
		t.Errorf("message = %v", body["message"])
	}
	if len(f.scans) != 1 || f.scans[0] != "me@gmail.com" {
		t.Errorf("scans = %v", f.scans)
	}

	// Credentials survive for scheduled scans
	cfg := notify.LoadAlertConfig(filepath.Join(f.dir, "alerts.json"))
	if cfg.EmailAddr != "me@gmail.com" || cfg.AppPassword != "app-password" {
		t.Errorf("saved credentials = %q / %q", cfg.EmailAddr, cfg.AppPassword)
	}
}

func TestConnectRefusesConcurrentScan(t *testing.T) {
	f := newFixture(t)

	f.request(t, http.MethodPost, "/api/connect", map[string]string{
		"email": "me@gmail.com", "password": "pw",
	})
	w := f.request(t, http.MethodPost, "/api/connect", map[string]string{
		"email": "me@gmail.com", "password": "pw",
	})
	body := decodeBody(t, w)
	if body["status"] != "error" {
		t.Fatalf("status = %v, want error", body["status"])
	}
	if body["message"] != "A scan is already running." {
		t.Errorf("message = %v", body["message"])
	}
	if len(f.scans) != 1 {
		t.Errorf("scans = %v, want one", f.scans)
	}
}

func TestConnectReleasesSlotOnLaunchFailure(t *testing.T) {
	f := newFixture(t)
	f.scanErr = errors.New("amqp down")

	w := f.request(t, http.MethodPost, "/api/connect", map[string]string{
		"email": "me@gmail.com", "password": "pw",
	})
	body := decodeBody(t, w)
	if body["status"] != "error" {
		t.Fatalf("status = %v, want error", body["status"])
	}

	f.scanErr = nil
	w = f.request(t, http.MethodPost, "/api/connect", map[string]string{
		"email": "me@gmail.com", "password": "pw",
	})
	body = decodeBody(t, w)
	if body["status"] != "success" {
		t.Errorf("retry after failed launch: status = %v", body["status"])
	}
}

func TestConnectQueuedScanReleasesSlot(t *testing.T) {
	f := newFixture(t)
	var published int
	f.srv.startScan = QueueScanStarter(f.sessions, func(ctx context.Context) error {
		published++
		return nil
	})

	w := f.request(t, http.MethodPost, "/api/connect", map[string]string{
		"email": "me@gmail.com", "password": "pw",
	})
	if body := decodeBody(t, w); body["status"] != "success" {
		t.Fatalf("status = %v, body = %v", body["status"], body)
	}
	if published != 1 {
		t.Fatalf("published = %d, want 1", published)
	}

	// The scan runs in another process, so the local slot must free up
	// as soon as the request is on the queue.
	if scan := f.sessions.Scan(); scan.Running || !scan.Done {
		t.Fatalf("scan state after publish = %+v, want released", scan)
	}
	w = f.request(t, http.MethodGet, "/api/progress", nil)
	if body := decodeBody(t, w); body["status"] != "done" {
		t.Errorf("progress status = %v, want done", body["status"])
	}

	w = f.request(t, http.MethodPost, "/api/connect", map[string]string{
		"email": "me@gmail.com", "password": "pw",
	})
	if body := decodeBody(t, w); body["status"] != "success" {
		t.Errorf("second connect refused: %v", body)
	}
	if published != 2 {
		t.Errorf("published = %d, want 2", published)
	}
}

func TestConnectQueuedScanPublishFailure(t *testing.T) {
	f := newFixture(t)
	f.srv.startScan = QueueScanStarter(f.sessions, func(ctx context.Context) error {
		return errors.New("broker unreachable")
	})

	w := f.request(t, http.MethodPost, "/api/connect", map[string]string{
		"email": "me@gmail.com", "password": "pw",
	})
	if body := decodeBody(t, w); body["status"] != "error" {
		t.Fatalf("status = %v, want error", body["status"])
	}
	if scan := f.sessions.Scan(); scan.Running {
		t.Fatal("failed publish left the scan slot claimed")
	}
}

func TestConnectMissingCredentials(t *testing.T) {
	f := newFixture(t)

	w := f.request(t, http.MethodPost, "/api/connect", map[string]string{"email": "me@gmail.com"})
	body := decodeBody(t, w)
	if body["status"] != "error" {
		t.Errorf("status = %v, want error", body["status"])
	}
	if len(f.scans) != 0 {
		t.Errorf("scan started without credentials")
	}
}

func TestProgressLifecycle(t *testing.T) {
	f := newFixture(t)

	f.sessions.StartScan()

	w := f.request(t, http.MethodGet, "/api/progress", nil)
	body := decodeBody(t, w)
	if body["status"] != "scanning" {
		t.Fatalf("status = %v, want scanning", body["status"])
	}

	f.sessions.UpdateProgress(12, 80, "Processing email 12 of 80")
	w = f.request(t, http.MethodGet, "/api/progress", nil)
	body = decodeBody(t, w)
	if body["processed"] != float64(12) || body["total"] != float64(80) {
		t.Errorf("progress = %v/%v", body["processed"], body["total"])
	}
	if body["recent_log"] != "Processing email 12 of 80" {
		t.Errorf("recent_log = %v", body["recent_log"])
	}

	f.sessions.FinishScan(nil)
	w = f.request(t, http.MethodGet, "/api/progress", nil)
	body = decodeBody(t, w)
	if body["status"] != "done" {
		t.Errorf("status = %v, want done", body["status"])
	}
}

func TestProgressReportsFailure(t *testing.T) {
	f := newFixture(t)

	f.sessions.StartScan()
	f.sessions.FinishScan(errors.New("IMAP login failed"))

	w := f.request(t, http.MethodGet, "/api/progress", nil)
	body := decodeBody(t, w)
	if body["status"] != "error" {
		t.Fatalf("status = %v, want error", body["status"])
	}
	if body["message"] != "IMAP login failed" {
		t.Errorf("message = %v", body["message"])
	}
}

func TestCancelScan(t *testing.T) {
	f := newFixture(t)

	w := f.request(t, http.MethodPost, "/api/cancel", nil)
	body := decodeBody(t, w)
	if body["status"] != "success" {
		t.Errorf("status = %v, want success", body["status"])
	}
}

func TestAddSubscription(t *testing.T) {
	f := newFixture(t)

	w := f.request(t, http.MethodPost, "/api/subscriptions/add", map[string]any{
		"merchant": "Figma", "amount": 12.0, "currency": "USD",
		"frequency": "monthly", "date": "2025-06-15",
	})
	body := decodeBody(t, w)
	if body["status"] != "success" {
		t.Fatalf("body = %v", body)
	}
	if body["message"] != "Added Figma (USD 12.00/monthly)." {
		t.Errorf("message = %v", body["message"])
	}

	recs, _ := f.store.List(context.Background())
	if len(recs) != 1 {
		t.Fatalf("records = %d, want 1", len(recs))
	}
	rec := recs[0]
	if rec.Source != "manual" || rec.SourceEmail != "manual" {
		t.Errorf("provenance = %q / %q", rec.Source, rec.SourceEmail)
	}
	if rec.ID != core.ManualRecordID("Figma", 12.0, "2025-06-15") {
		t.Errorf("ID = %q", rec.ID)
	}
	if rec.FrequencyOverride != "monthly" {
		t.Errorf("FrequencyOverride = %q", rec.FrequencyOverride)
	}

	// The report snapshot is rebuilt right away
	report, err := store.LoadReport(filepath.Join(f.dir, "report.json"))
	if err != nil {
		t.Fatalf("report after add: %v", err)
	}
	if len(report.Merchants) != 1 || report.Merchants[0].Merchant != "Figma" {
		t.Errorf("report merchants = %+v", report.Merchants)
	}
}

func TestAddSubscriptionDefaults(t *testing.T) {
	f := newFixture(t)

	w := f.request(t, http.MethodPost, "/api/subscriptions/add", map[string]any{
		"merchant": "Notion", "amount": 8.0,
	})
	body := decodeBody(t, w)
	if body["status"] != "success" {
		t.Fatalf("body = %v", body)
	}

	recs, _ := f.store.List(context.Background())
	if recs[0].Currency != "USD" {
		t.Errorf("Currency = %q, want USD", recs[0].Currency)
	}
	if recs[0].FrequencyOverride != "monthly" {
		t.Errorf("FrequencyOverride = %q, want monthly", recs[0].FrequencyOverride)
	}
	if recs[0].Date != "2025-06-30" {
		t.Errorf("Date = %q, want today", recs[0].Date)
	}
}

func TestAddSubscriptionRequiresMerchant(t *testing.T) {
	f := newFixture(t)

	w := f.request(t, http.MethodPost, "/api/subscriptions/add", map[string]any{"amount": 5.0})
	body := decodeBody(t, w)
	if body["status"] != "error" {
		t.Fatalf("status = %v, want error", body["status"])
	}
	if body["message"] != "Service name is required." {
		t.Errorf("message = %v", body["message"])
	}
}

func TestCancellationInfo(t *testing.T) {
	f := newFixture(t)
	f.writeReport(t, sampleReport())
	f.sessions.Mark("Dusty Gym", true)

	w := f.request(t, http.MethodGet, "/api/cancellation", nil)
	body := decodeBody(t, w)

	subs, ok := body["subscriptions"].([]any)
	if !ok || len(subs) != 2 {
		t.Fatalf("subscriptions = %v", body["subscriptions"])
	}
	if body["marked_count"] != float64(1) {
		t.Errorf("marked_count = %v, want 1", body["marked_count"])
	}

	netflix := subs[0].(map[string]any)
	if netflix["has_direct_link"] != true {
		t.Errorf("Netflix should have a direct cancellation link")
	}
	gym := subs[1].(map[string]any)
	if gym["has_direct_link"] != false {
		t.Errorf("unknown merchant should fall back to search")
	}
	url, _ := gym["cancel_url"].(string)
	if !strings.Contains(url, "google.com/search") || !strings.Contains(url, "cancel+subscription") {
		t.Errorf("fallback url = %q", url)
	}
	if gym["marked"] != true {
		t.Errorf("Dusty Gym should be marked")
	}
}

func TestMarkCancellationToggle(t *testing.T) {
	f := newFixture(t)

	w := f.request(t, http.MethodPost, "/api/cancellation/mark", map[string]any{
		"merchant": "Netflix", "mark": true,
	})
	body := decodeBody(t, w)
	marked, _ := body["marked"].([]any)
	if len(marked) != 1 || marked[0] != "Netflix" {
		t.Fatalf("marked = %v", marked)
	}

	w = f.request(t, http.MethodPost, "/api/cancellation/mark", map[string]any{
		"merchant": "Netflix", "mark": false,
	})
	body = decodeBody(t, w)
	marked, _ = body["marked"].([]any)
	if len(marked) != 0 {
		t.Errorf("marked after unmark = %v", marked)
	}
}

func TestHealthScores(t *testing.T) {
	f := newFixture(t)
	f.writeReport(t, sampleReport())

	w := f.request(t, http.MethodGet, "/api/health-score", nil)
	body := decodeBody(t, w)
	subs, ok := body["subscriptions"].([]any)
	if !ok || len(subs) != 2 {
		t.Fatalf("subscriptions = %v", body["subscriptions"])
	}

	// Worst score first: the forgotten gym beats Netflix
	first := subs[0].(map[string]any)
	if first["merchant"] != "Dusty Gym" {
		t.Errorf("first merchant = %v, want Dusty Gym", first["merchant"])
	}
}

func TestAlertsConfigRoundTrip(t *testing.T) {
	f := newFixture(t)

	w := f.request(t, http.MethodGet, "/api/alerts/config", nil)
	body := decodeBody(t, w)
	if body["telegram_configured"] != false {
		t.Errorf("telegram_configured = %v, want false", body["telegram_configured"])
	}
	if body["last_scan"] != "Never" {
		t.Errorf("last_scan = %v, want Never", body["last_scan"])
	}

	w = f.request(t, http.MethodPost, "/api/alerts/config", map[string]string{
		"telegram_token": "123:abc", "telegram_chat_id": "42",
	})
	if body := decodeBody(t, w); body["status"] != "success" {
		t.Fatalf("save failed: %v", body)
	}

	w = f.request(t, http.MethodGet, "/api/alerts/config", nil)
	body = decodeBody(t, w)
	if body["telegram_configured"] != true {
		t.Errorf("telegram_configured = %v, want true", body["telegram_configured"])
	}
	if body["telegram_chat_id"] != "42" {
		t.Errorf("telegram_chat_id = %v", body["telegram_chat_id"])
	}
	if _, leaked := body["telegram_token"]; leaked {
		t.Error("token must not be echoed back")
	}

	// Empty token in an update keeps the stored one
	f.request(t, http.MethodPost, "/api/alerts/config", map[string]string{
		"telegram_token": "", "telegram_chat_id": "", "whatsapp_number": "+15551234",
	})
	cfg := notify.LoadAlertConfig(filepath.Join(f.dir, "alerts.json"))
	if cfg.TelegramToken != "123:abc" || cfg.TelegramChatID != "42" {
		t.Errorf("empty update clobbered credentials: %+v", cfg)
	}
	if cfg.WhatsappNumber != "+15551234" {
		t.Errorf("WhatsappNumber = %q", cfg.WhatsappNumber)
	}
}

func TestAlertsTest(t *testing.T) {
	f := newFixture(t)

	// No credentials yet
	w := f.request(t, http.MethodPost, "/api/alerts/test", nil)
	body := decodeBody(t, w)
	if body["status"] != "error" {
		t.Fatalf("status without config = %v, want error", body["status"])
	}

	f.request(t, http.MethodPost, "/api/alerts/config", map[string]string{
		"telegram_token": "123:abc", "telegram_chat_id": "42",
	})
	w = f.request(t, http.MethodPost, "/api/alerts/test", nil)
	body = decodeBody(t, w)
	if body["status"] != "success" {
		t.Fatalf("status = %v, body = %v", body["status"], body)
	}
	if len(f.sender.sent) != 1 || !strings.Contains(f.sender.sent[0], "Test message received") {
		t.Errorf("sent = %v", f.sender.sent)
	}
}

func TestAlertsTestSendFailure(t *testing.T) {
	f := newFixture(t)
	f.request(t, http.MethodPost, "/api/alerts/config", map[string]string{
		"telegram_token": "123:abc", "telegram_chat_id": "42",
	})
	f.sender.err = errors.New("bad token")

	w := f.request(t, http.MethodPost, "/api/alerts/test", nil)
	body := decodeBody(t, w)
	if body["status"] != "error" {
		t.Errorf("status = %v, want error", body["status"])
	}
}

func TestSchedulerStatus(t *testing.T) {
	f := newFixture(t)
	cfg := &notify.AlertConfig{
		TelegramToken:  "123:abc",
		TelegramChatID: "42",
		EmailAddr:      "me@gmail.com",
		AppPassword:    "pw",
		LastScan:       "2025-06-29T08:00:00Z",
	}
	if err := notify.SaveAlertConfig(filepath.Join(f.dir, "alerts.json"), cfg); err != nil {
		t.Fatal(err)
	}

	w := f.request(t, http.MethodGet, "/api/scheduler/status", nil)
	body := decodeBody(t, w)
	if body["last_scan"] != "2025-06-29T08:00:00Z" {
		t.Errorf("last_scan = %v", body["last_scan"])
	}
	if body["weekly_scan"] != "0 8 * * 1" {
		t.Errorf("weekly_scan = %v", body["weekly_scan"])
	}
	if body["daily_reminders"] != "0 9 * * *" {
		t.Errorf("daily_reminders = %v", body["daily_reminders"])
	}
	if body["telegram_configured"] != true || body["credentials_saved"] != true {
		t.Errorf("flags = %v / %v", body["telegram_configured"], body["credentials_saved"])
	}
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		f.srv.Server.Handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, w.Code)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"password":"x"}`))
	w := httptest.NewRecorder()
	f.srv.Server.Handler.ServeHTTP(w, req)

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}

func TestReportCacheInvalidatedByManualAdd(t *testing.T) {
	f := newFixture(t)
	f.writeReport(t, sampleReport())

	// Prime the cache
	f.request(t, http.MethodGet, "/api/report", nil)

	f.request(t, http.MethodPost, "/api/subscriptions/add", map[string]any{
		"merchant": "Figma", "amount": 12.0, "date": "2025-06-15",
	})

	w := f.request(t, http.MethodGet, "/api/report", nil)
	var report core.Report
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, m := range report.Merchants {
		if m.Merchant == "Figma" {
			found = true
		}
	}
	if !found {
		t.Errorf("stale report served after manual add: %+v", report.Merchants)
	}
}

func TestLRUCache(t *testing.T) {
	c := newLRUCache[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	if _, ok := c.Get("a"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Errorf("Get(c) = %v, %v", v, ok)
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	c := newLRUCache[string](4, 10*time.Millisecond)
	c.Set("k", "v")
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expired entry still served")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()

	for i := 0; i < 60; i++ {
		if !rl.allow("10.0.0.1") {
			t.Fatalf("request %d rejected early", i+1)
		}
	}
	if rl.allow("10.0.0.1") {
		t.Error("request 61 should be rejected")
	}
	if !rl.allow("10.0.0.2") {
		t.Error("other clients are not affected")
	}
}
