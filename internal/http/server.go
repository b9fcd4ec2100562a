// Package http serves the JSON API: auth, report access, scan control,
// cancellation assistant, health scores, alert configuration and
// scheduler status.
package http

import (
	"container/list"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"subtrack/internal/core"
	applog "subtrack/internal/log"
	"subtrack/internal/notify"
	"subtrack/internal/session"
	"subtrack/internal/store"
)

// LRU cache with TTL and size-based eviction
type lruCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
}

type cacheItem[T any] struct {
	key       string
	data      T
	expiresAt time.Time
}

func newLRUCache[T any](maxSize int, ttl time.Duration) *lruCache[T] {
	return &lruCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
	}
}

func (c *lruCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, exists := c.items[key]
	if !exists {
		return zero, false
	}

	item := elem.Value.(*cacheItem[T])

	// Check if expired
	if time.Now().After(item.expiresAt) {
		c.removeElement(elem)
		return zero, false
	}

	// Move to front (most recently used)
	c.lru.MoveToFront(elem)
	return item.data, true
}

func (c *lruCache[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item := &cacheItem[T]{
		key:       key,
		data:      data,
		expiresAt: time.Now().Add(c.ttl),
	}

	if elem, exists := c.items[key]; exists {
		elem.Value = item
		c.lru.MoveToFront(elem)
		return
	}

	elem := c.lru.PushFront(item)
	c.items[key] = elem

	// Evict if over capacity
	if c.lru.Len() > c.maxSize {
		oldest := c.lru.Back()
		if oldest != nil {
			c.removeElement(oldest)
		}
	}
}

func (c *lruCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		c.removeElement(elem)
	}
}

func (c *lruCache[T]) removeElement(elem *list.Element) {
	item := elem.Value.(*cacheItem[T])
	delete(c.items, item.key)
	c.lru.Remove(elem)
}

// Simple in-memory rate limiter
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

// startCleanup runs periodic cleanup to remove stale client entries
func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// stop gracefully shuts down the rate limiter cleanup goroutine
func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// ScanStarter kicks off a background scan for the given mailbox
// credentials. The server does not care whether that happens in-process
// or over AMQP.
type ScanStarter func(ctx context.Context, email, password string) error

// QueueScanStarter builds the ScanStarter for the AMQP deployment mode:
// the scan is handed to an external worker process, so the local scan
// slot is released as soon as the publish succeeds. The worker reports
// completion over Telegram, not through /api/progress.
func QueueScanStarter(sessions *session.Manager, publish func(ctx context.Context) error) ScanStarter {
	return func(ctx context.Context, email, password string) error {
		if err := publish(ctx); err != nil {
			return err
		}
		sessions.UpdateProgress(0, 1, "Scan queued for the background worker.")
		sessions.FinishScan(nil)
		return nil
	}
}

// Server is the API server. Report reads are cached briefly since the
// report file only changes when a scan or manual entry completes.
type Server struct {
	http.Server
	recordStore    store.RecordStore
	sessions       *session.Manager
	startScan      ScanStarter
	reportPath     string
	alertsPath     string
	scanSchedule   string
	remindSchedule string
	rateLimiter    *rateLimiter
	reportCache    *lruCache[core.Report]
	shutdownOnce   sync.Once

	logger     *applog.Logger
	structured *applog.StructuredLogger

	// notifierFactory builds the Telegram sender for /api/alerts/test;
	// swapped out in tests.
	notifierFactory func(cfg *notify.AlertConfig) (notify.Sender, error)

	now func() time.Time
}

// Options carries the dependencies NewServer needs.
type Options struct {
	Addr           string
	Store          store.RecordStore
	Sessions       *session.Manager
	StartScan      ScanStarter
	ReportPath     string
	AlertsPath     string
	ScanSchedule   string
	RemindSchedule string
	Logger         *applog.Logger
	NotifierFunc   func(cfg *notify.AlertConfig) (notify.Sender, error)
}

// NewServer configures routes, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    opts.Addr,
			Handler: mux,
		},
		recordStore:     opts.Store,
		sessions:        opts.Sessions,
		startScan:       opts.StartScan,
		reportPath:      opts.ReportPath,
		alertsPath:      opts.AlertsPath,
		scanSchedule:    opts.ScanSchedule,
		remindSchedule:  opts.RemindSchedule,
		rateLimiter:     newRateLimiter(),
		reportCache:     newLRUCache[core.Report](4, 30*time.Second),
		logger:          opts.Logger,
		notifierFactory: opts.NotifierFunc,
		now:             time.Now,
	}
	if s.logger == nil {
		s.logger = applog.New(applog.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(applog.ComponentHTTP)
	s.structured = applog.NewStructuredLogger(s.logger)
	if s.notifierFactory == nil {
		s.notifierFactory = func(cfg *notify.AlertConfig) (notify.Sender, error) {
			return notify.NewNotifier(cfg.TelegramToken, cfg.TelegramChatID, s.logger)
		}
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)
	mux.HandleFunc("/auth/login", s.withCommon(s.handleLogin))

	mux.HandleFunc("/api/report", s.withAuth(s.handleReport))
	mux.HandleFunc("/api/connect", s.withAuth(s.handleConnect))
	mux.HandleFunc("/api/progress", s.withAuth(s.handleProgress))
	mux.HandleFunc("/api/cancel", s.withAuth(s.handleCancelScan))
	mux.HandleFunc("/api/subscriptions/add", s.withAuth(s.handleAddSubscription))
	mux.HandleFunc("/api/cancellation", s.withAuth(s.handleCancellationInfo))
	mux.HandleFunc("/api/cancellation/mark", s.withAuth(s.handleMarkCancellation))
	mux.HandleFunc("/api/health-score", s.withAuth(s.handleHealthScores))
	mux.HandleFunc("/api/alerts/config", s.withAuth(s.handleAlertsConfig))
	mux.HandleFunc("/api/alerts/test", s.withAuth(s.handleAlertsTest))
	mux.HandleFunc("/api/scheduler/status", s.withAuth(s.handleSchedulerStatus))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withCommon adds security headers, rate limiting, and request logging.
func (s *Server) withCommon(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		ctx = context.WithValue(ctx, applog.LoggerContextKey, s.logger)
		r = r.WithContext(ctx)

		// Rate limit mutating requests
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		s.structured.LogHTTPEnd(ctx, r, rw.statusCode, duration.Milliseconds())
	}
}

// withAuth requires a bearer token issued by /auth/login.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return s.withCommon(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if !s.sessions.Authorized(token) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

type contextKey string

const requestIDKey contextKey = "request_id"

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
