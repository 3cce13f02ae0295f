package calendar

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/api/option"

	"github.com/LamPham123/CalPal.ai/internal/availability"
	"github.com/LamPham123/CalPal.ai/internal/google"
	"github.com/LamPham123/CalPal.ai/internal/instrumentation"
)

// Provider serves busy data for Google accounts. The participant ID is the
// account name whose token the TokenProvider holds.
type Provider struct {
	ctx     context.Context
	tokens  google.TokenProvider
	opts    []option.ClientOption
	metrics *instrumentation.Metrics

	mu      sync.Mutex
	clients map[string]*Client
}

// NewProvider returns a Provider. ctx outlives individual requests and is
// used for token refreshes.
func NewProvider(ctx context.Context, tokens google.TokenProvider, metrics *instrumentation.Metrics, opts ...option.ClientOption) *Provider {
	return &Provider{
		ctx:     ctx,
		tokens:  tokens,
		opts:    opts,
		metrics: metrics,
		clients: make(map[string]*Client),
	}
}

// Client returns the cached client for account, creating it on first use.
func (p *Provider) Client(account string) (*Client, error) {
	if account == "" {
		account = google.DefaultAccount
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[account]; ok {
		return c, nil
	}
	if !p.tokens.HasTokenForAccount(account) {
		return nil, fmt.Errorf("%w for account %s", google.ErrNoToken, account)
	}
	c, err := NewClient(p.ctx, account, p.tokens, p.opts...)
	if err != nil {
		return nil, err
	}
	c.SetMetrics(p.metrics)
	p.clients[account] = c
	return c, nil
}

// Forget drops the cached client for account, e.g. after a new token was saved.
func (p *Provider) Forget(account string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.clients, account)
}

// BusyIntervals implements availability.BusyProvider.
func (p *Provider) BusyIntervals(ctx context.Context, participantID string, window availability.Window) ([]availability.Interval, error) {
	c, err := p.Client(participantID)
	if err != nil {
		return nil, err
	}
	return c.BusyIntervals(ctx, window)
}

var _ availability.BusyProvider = (*Provider)(nil)
