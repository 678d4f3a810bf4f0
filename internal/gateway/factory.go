package gateway

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/paymux/gateway/internal/domain"
)

// Adapter types recognised in gateways_config.adapter_type.
const (
	AdapterMock     = "mock"
	AdapterRazorpay = "razorpay"
)

// Factory builds and caches one adapter per gateway id.
type Factory struct {
	mu       sync.Mutex
	adapters map[string]Adapter
	client   *http.Client
	creds    RazorpayCredentials
	log      *slog.Logger
}

func NewFactory(client *http.Client, creds RazorpayCredentials, log *slog.Logger) *Factory {
	if log == nil {
		log = slog.Default()
	}
	return &Factory{
		adapters: make(map[string]Adapter),
		client:   client,
		creds:    creds,
		log:      log,
	}
}

// AdapterFor resolves the adapter for one gateway config. Unknown
// adapter types fall back to the mock so a misconfigured row degrades
// loudly in logs instead of panicking a request.
func (f *Factory) AdapterFor(cfg domain.GatewayConfig) Adapter {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.adapters[cfg.GatewayID]; ok {
		return a
	}

	var a Adapter
	switch cfg.AdapterType {
	case AdapterRazorpay:
		a = NewRazorpayAdapter(f.client, f.creds, f.log)
	case AdapterMock:
		a = NewMockAdapter(cfg.MockBehavior)
	default:
		f.log.Warn("unknown adapter type, using mock", "gateway", cfg.GatewayID, "adapter_type", cfg.AdapterType)
		a = NewMockAdapter(cfg.MockBehavior)
	}
	f.adapters[cfg.GatewayID] = a
	return a
}
