package caldav

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/LamPham123/CalPal.ai/internal/availability"
)

// ErrUnknownAccount is returned for a participant with no configured account.
var ErrUnknownAccount = errors.New("unknown caldav account")

// Provider serves busy data for "caldav:<name>" participants. The router
// strips the scheme, so participant IDs arrive as the bare account name.
type Provider struct {
	clients map[string]*Client
}

// NewProvider returns a Provider over the given clients.
func NewProvider(clients ...*Client) *Provider {
	p := &Provider{clients: make(map[string]*Client, len(clients))}
	for _, c := range clients {
		p.clients[c.Name()] = c
	}
	return p
}

// Accounts returns the configured account names in sorted order.
func (p *Provider) Accounts() []string {
	names := make([]string, 0, len(p.clients))
	for name := range p.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Client returns the client for name.
func (p *Provider) Client(name string) (*Client, error) {
	c, ok := p.clients[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownAccount, name)
	}
	return c, nil
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
