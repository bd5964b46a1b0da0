package linkstore

import (
	"context"
	"strings"
	"sync"
	"time"
)

type linkKey struct {
	wallet   string
	provider string
}

// Memory keeps links in process. Links are lost on restart.
type Memory struct {
	mu    sync.RWMutex
	links map[linkKey]Link
}

func NewMemory() *Memory {
	return &Memory{links: make(map[linkKey]Link)}
}

func (m *Memory) Upsert(ctx context.Context, link Link) (Link, error) {
	if err := ctx.Err(); err != nil {
		return Link{}, err
	}
	link, err := prepare(link, time.Now())
	if err != nil {
		return Link{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.links[linkKey{link.Wallet, link.Provider}]; ok {
		link.ID = existing.ID
	}
	m.links[linkKey{link.Wallet, link.Provider}] = link
	return link, nil
}

func (m *Memory) Get(ctx context.Context, wallet, provider string) (Link, error) {
	if err := ctx.Err(); err != nil {
		return Link{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	link, ok := m.links[linkKey{strings.TrimSpace(wallet), strings.TrimSpace(provider)}]
	if !ok {
		return Link{}, ErrNotFound
	}
	return link, nil
}

func (m *Memory) ListByWallet(ctx context.Context, wallet string) ([]Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	wallet = strings.TrimSpace(wallet)
	var out []Link
	for k, link := range m.links {
		if k.wallet == wallet {
			out = append(out, link)
		}
	}
	sortByProvider(out)
	return out, nil
}

func (*Memory) Close() error {
	return nil
}
