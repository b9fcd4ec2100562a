package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"subtrack/internal/analysis"
	"subtrack/internal/core"
	applog "subtrack/internal/log"
	"subtrack/internal/notify"
	"subtrack/internal/store"
)

const reportCacheKey = "report"

type loginRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token, ok := s.sessions.Login(req.Password)
	if !ok {
		statusError(w, "Wrong password.")
		return
	}
	statusSuccess(w, map[string]any{"token": token})
}

func (s *Server) loadReport() (core.Report, error) {
	if cached, ok := s.reportCache.Get(reportCacheKey); ok {
		return cached, nil
	}
	report, err := store.LoadReport(s.reportPath)
	if err != nil {
		return core.Report{}, err
	}
	s.reportCache.Set(reportCacheKey, report)
	return report, nil
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.loadReport()
	if errors.Is(err, store.ErrNoReport) {
		writeJSON(w, http.StatusOK, map[string]string{
			"error": "Report not found. Please run a scan first.",
		})
		return
	}
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Report load failed", applog.FieldError, err.Error())
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var creds credentials
	if !decodeJSON(w, r, &creds) {
		return
	}
	if creds.Email == "" || creds.Password == "" {
		statusError(w, "Email and app password are required.")
		return
	}

	if !s.sessions.StartScan() {
		statusError(w, "A scan is already running.")
		return
	}

	// Save credentials so scheduled scans can reuse them
	cfg := notify.LoadAlertConfig(s.alertsPath)
	cfg.EmailAddr = creds.Email
	cfg.AppPassword = creds.Password
	if err := notify.SaveAlertConfig(s.alertsPath, cfg); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Saving credentials failed", applog.FieldError, err.Error())
	}

	if err := s.startScan(r.Context(), creds.Email, creds.Password); err != nil {
		s.sessions.FinishScan(err)
		statusError(w, fmt.Sprintf("Could not start scan: %v", err))
		return
	}
	s.reportCache.Delete(reportCacheKey)
	statusSuccess(w, map[string]any{"message": "Scan started."})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	state := s.sessions.Scan()
	switch {
	case state.Error != "":
		writeJSON(w, http.StatusOK, map[string]string{"status": "error", "message": state.Error})
	case state.Done && !state.Running:
		writeJSON(w, http.StatusOK, map[string]string{"status": "done"})
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "scanning",
			"processed":  state.Current,
			"total":      state.Total,
			"recent_log": state.RecentLog,
		})
	}
}

func (s *Server) handleCancelScan(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	statusSuccess(w, nil)
}

type manualSubscription struct {
	Merchant  string  `json:"merchant"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Frequency string  `json:"frequency"`
	Date      string  `json:"date"`
}

func (s *Server) handleAddSubscription(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var sub manualSubscription
	if !decodeJSON(w, r, &sub) {
		return
	}
	if sub.Currency == "" {
		sub.Currency = "USD"
	}
	if sub.Frequency == "" {
		sub.Frequency = string(core.Monthly)
	}

	merchant := sanitizeInput(sub.Merchant)
	if merchant == "" {
		statusError(w, "Service name is required.")
		return
	}

	date := sub.Date
	if date == "" {
		date = s.now().UTC().Format(core.DateLayout)
	}

	amount := core.Round2(sub.Amount)
	rec := core.ChargeRecord{
		ID:                core.ManualRecordID(merchant, sub.Amount, date),
		Merchant:          merchant,
		Amount:            &amount,
		Currency:          sub.Currency,
		Date:              date,
		Status:            core.StatusActive,
		Subject:           "Manual entry: " + merchant,
		SourceEmail:       "manual",
		Source:            "manual",
		FrequencyOverride: sub.Frequency,
		ParsedAt:          s.now().UTC().Format(time.RFC3339),
	}
	if err := rec.Validate(); err != nil {
		statusError(w, err.Error())
		return
	}

	if _, err := s.recordStore.Append(r.Context(), rec); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Manual record append failed", applog.FieldError, err.Error())
		writeError(w, http.StatusInternalServerError, "could not save subscription")
		return
	}
	s.structured.LogChargeRecorded(r.Context(), merchant, amount, rec.Currency, rec.ID)

	// Refresh the report so the new entry shows up immediately
	analyzer := analysis.New(s.recordStore)
	analyzer.Now = s.now
	report, err := analyzer.Run(r.Context())
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Analysis after manual add failed", applog.FieldError, err.Error())
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}
	if err := store.SaveReport(s.reportPath, report); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Report save failed", applog.FieldError, err.Error())
		writeError(w, http.StatusInternalServerError, "could not save report")
		return
	}
	s.reportCache.Delete(reportCacheKey)

	statusSuccess(w, map[string]any{
		"message": fmt.Sprintf("Added %s (%s %.2f/%s).", merchant, sub.Currency, sub.Amount, sub.Frequency),
	})
}

func (s *Server) handleCancellationInfo(w http.ResponseWriter, r *http.Request) {
	report, err := s.loadReport()
	if err != nil && !errors.Is(err, store.ErrNoReport) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type cancellationEntry struct {
		Merchant      string  `json:"merchant"`
		Category      string  `json:"category"`
		Currency      string  `json:"currency"`
		MonthlyCost   float64 `json:"monthly_cost"`
		Frequency     string  `json:"frequency"`
		CancelURL     string  `json:"cancel_url"`
		HasDirectLink bool    `json:"has_direct_link"`
		Marked        bool    `json:"marked"`
	}

	result := []cancellationEntry{}
	for _, m := range report.Merchants {
		cancelURL, direct := analysis.CancellationLink(m.Merchant)
		if !direct {
			cancelURL = "https://www.google.com/search?q=" + url.QueryEscape(m.Merchant+" cancel subscription")
		}
		result = append(result, cancellationEntry{
			Merchant:      m.Merchant,
			Category:      m.Category,
			Currency:      m.Currency,
			MonthlyCost:   m.MonthlyCost,
			Frequency:     string(m.Frequency),
			CancelURL:     cancelURL,
			HasDirectLink: direct,
			Marked:        s.sessions.IsMarked(m.Merchant),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"subscriptions": result,
		"marked_count":  len(s.sessions.Marked()),
	})
}

type markCancellation struct {
	Merchant string `json:"merchant"`
	Mark     bool   `json:"mark"`
}

func (s *Server) handleMarkCancellation(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req markCancellation
	if !decodeJSON(w, r, &req) {
		return
	}
	s.sessions.Mark(req.Merchant, req.Mark)
	statusSuccess(w, map[string]any{"marked": s.sessions.Marked()})
}

func (s *Server) handleHealthScores(w http.ResponseWriter, r *http.Request) {
	report, err := s.loadReport()
	if err != nil && !errors.Is(err, store.ErrNoReport) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	scores := analysis.HealthScores(report, s.now())
	writeJSON(w, http.StatusOK, map[string]any{"subscriptions": scores})
}

type alertConfigUpdate struct {
	TelegramToken  string `json:"telegram_token"`
	TelegramChatID string `json:"telegram_chat_id"`
	WhatsappNumber string `json:"whatsapp_number"`
}

func (s *Server) handleAlertsConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cfg := notify.LoadAlertConfig(s.alertsPath)
		lastScan := cfg.LastScan
		if lastScan == "" {
			lastScan = "Never"
		}
		// Tokens are never echoed back
		writeJSON(w, http.StatusOK, map[string]any{
			"telegram_configured": cfg.TelegramToken != "",
			"telegram_chat_id":    cfg.TelegramChatID,
			"whatsapp_number":     cfg.WhatsappNumber,
			"last_scan":           lastScan,
		})
	case http.MethodPost:
		var update alertConfigUpdate
		if !decodeJSON(w, r, &update) {
			return
		}
		cfg := notify.LoadAlertConfig(s.alertsPath)
		if v := sanitizeInput(update.TelegramToken); v != "" {
			cfg.TelegramToken = v
		}
		if v := sanitizeInput(update.TelegramChatID); v != "" {
			cfg.TelegramChatID = v
		}
		cfg.WhatsappNumber = sanitizeInput(update.WhatsappNumber)
		if err := notify.SaveAlertConfig(s.alertsPath, cfg); err != nil {
			writeError(w, http.StatusInternalServerError, "could not save configuration")
			return
		}
		statusSuccess(w, map[string]any{"message": "Alert configuration saved."})
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleAlertsTest(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	cfg := notify.LoadAlertConfig(s.alertsPath)
	if !cfg.TelegramConfigured() {
		statusError(w, "No Telegram credentials configured.")
		return
	}

	sender, err := s.notifierFactory(cfg)
	if err != nil {
		statusError(w, "Failed to send. Check your token and chat ID.")
		return
	}
	if err := sender.Send("✅ *SubTrack* — Test message received! Alerts are working."); err != nil {
		statusError(w, "Failed to send. Check your token and chat ID.")
		return
	}
	statusSuccess(w, map[string]any{"message": "Test message sent!"})
}

func (s *Server) handleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	cfg := notify.LoadAlertConfig(s.alertsPath)
	lastScan := cfg.LastScan
	if lastScan == "" {
		lastScan = "Never"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"last_scan":           lastScan,
		"weekly_scan":         s.scanSchedule,
		"daily_reminders":     s.remindSchedule,
		"telegram_configured": cfg.TelegramConfigured(),
		"credentials_saved":   cfg.EmailAddr != "",
	})
}
