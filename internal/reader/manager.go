package reader

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// Manager runs one Client per configured reader.
type Manager struct {
	clients []*Client
}

func NewManager(targets []Target, cfg Config, decoder Decoder, sink Emitter, opts ...Option) (*Manager, error) {
	clients := make([]*Client, 0, len(targets))
	for _, target := range targets {
		c, err := NewClient(target, cfg, decoder, sink, opts...)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return &Manager{clients: clients}, nil
}

func (m *Manager) Clients() []*Client {
	return m.clients
}

// Statuses reports every client in configuration order.
func (m *Manager) Statuses() []Status {
	out := make([]Status, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, c.Status())
	}
	return out
}

// Run blocks until every client has stopped. Clients that give up do not
// stop the others; their errors are joined.
func (m *Manager) Run(ctx context.Context) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, c := range m.clients {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			if err := c.Run(ctx); err != nil {
				log.Error().Err(err).Str("reader", c.target.Name).Msg("reader.Manager client stopped")
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(c)
	}
	wg.Wait()
	return errors.Join(errs...)
}
