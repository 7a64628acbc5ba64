package services

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"voxsearch/internal/logger"
)

// maxCapturedExchanges bounds the in-memory trace kept by the debug transport.
const maxCapturedExchanges = 32

// sensitiveHeaders are masked before an exchange is stored or logged.
var sensitiveHeaders = []string{"Authorization", "Api-Key", "X-Api-Key", "X-Goog-Api-Key"}

// HTTPExchange is one captured provider round trip.
type HTTPExchange struct {
	Method      string
	URL         string
	Headers     http.Header
	RequestBody string
	StatusCode  int
	Body        string
	Err         string
	Duration    time.Duration
}

// DebugTransportService traces provider HTTP traffic with credentials masked.
// It is wired into the keyword service when debug logging is enabled.
type DebugTransportService struct {
	initialized bool
	mutex       sync.RWMutex
	exchanges   []HTTPExchange
}

// NewDebugTransportService creates a new DebugTransportService instance.
func NewDebugTransportService() *DebugTransportService {
	return &DebugTransportService{}
}

// Name returns the service name "debug_transport" for registration.
func (d *DebugTransportService) Name() string {
	return "debug_transport"
}

// Initialize sets up the DebugTransportService for operation.
func (d *DebugTransportService) Initialize() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.exchanges = nil
	d.initialized = true
	logger.ServiceOperation("debug_transport", "initialize", "completed")
	return nil
}

// CreateTransport wraps base, or http.DefaultTransport when base is nil.
func (d *DebugTransportService) CreateTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if !d.initialized {
		logger.Error("Debug transport service not initialized")
		return base
	}
	return &debugTransport{base: base, service: d}
}

// Exchanges returns a copy of the captured round trips, oldest first.
func (d *DebugTransportService) Exchanges() []HTTPExchange {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	out := make([]HTTPExchange, len(d.exchanges))
	copy(out, d.exchanges)
	return out
}

// ClearExchanges drops the captured trace.
func (d *DebugTransportService) ClearExchanges() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.exchanges = nil
}

func (d *DebugTransportService) record(exchange HTTPExchange) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.exchanges = append(d.exchanges, exchange)
	if len(d.exchanges) > maxCapturedExchanges {
		d.exchanges = d.exchanges[len(d.exchanges)-maxCapturedExchanges:]
	}
}

type debugTransport struct {
	base    http.RoundTripper
	service *DebugTransportService
}

// RoundTrip implements http.RoundTripper. Capture failures never fail the request.
func (dt *debugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	exchange := HTTPExchange{
		Method:  req.Method,
		URL:     maskURL(req.URL.String(), req.URL.Query().Get("key")),
		Headers: sanitizeHeaders(req.Header),
	}

	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			logger.Error("Failed to capture request", "error", err)
		}
		req.Body = io.NopCloser(bytes.NewReader(body))
		exchange.RequestBody = truncateBody(string(body))
	}

	resp, err := dt.base.RoundTrip(req)
	exchange.Duration = time.Since(start)

	if err != nil {
		exchange.Err = err.Error()
		dt.finish(exchange)
		return resp, err
	}

	exchange.StatusCode = resp.StatusCode
	if resp.Body != nil {
		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			logger.Error("Failed to capture response", "error", readErr)
		}
		resp.Body = io.NopCloser(bytes.NewReader(body))
		exchange.Body = truncateBody(string(body))
	}

	dt.finish(exchange)
	return resp, nil
}

func (dt *debugTransport) finish(exchange HTTPExchange) {
	dt.service.record(exchange)
	logger.Debug("provider exchange",
		"method", exchange.Method,
		"url", exchange.URL,
		"status", exchange.StatusCode,
		"duration", exchange.Duration,
		"error", exchange.Err)
}

func sanitizeHeaders(headers http.Header) http.Header {
	clean := headers.Clone()
	for _, name := range sensitiveHeaders {
		values := clean.Values(name)
		if len(values) == 0 {
			continue
		}
		if token, ok := strings.CutPrefix(values[0], "Bearer "); ok {
			clean.Set(name, "Bearer "+MaskSecret(token))
		} else {
			clean.Set(name, MaskSecret(values[0]))
		}
	}
	return clean
}

func maskURL(raw, key string) string {
	if key == "" {
		return raw
	}
	return strings.ReplaceAll(raw, key, MaskSecret(key))
}
