// Package linkstore persists which external accounts a wallet has linked.
package linkstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=store.go Store

var ErrNotFound = errors.New("link not found")

// Link ties one provider account to a wallet. A wallet has at most one link
// per provider.
type Link struct {
	ID             string    `json:"id"`
	Wallet         string    `json:"wallet"`
	Provider       string    `json:"provider"`
	ProviderUserID string    `json:"provider_user_id"`
	Username       string    `json:"username,omitempty"`
	DisplayName    string    `json:"display_name,omitempty"`
	LinkedAt       time.Time `json:"linked_at"`
}

type Store interface {
	// Upsert creates or replaces the link for (wallet, provider). The ID of
	// an existing link is kept.
	Upsert(ctx context.Context, link Link) (Link, error)
	Get(ctx context.Context, wallet, provider string) (Link, error)
	// ListByWallet returns the wallet's links ordered by provider.
	ListByWallet(ctx context.Context, wallet string) ([]Link, error)
	Close() error
}

const (
	DriverNone   = "none"
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

type Config struct {
	Driver         string `json:"driver" env:"DRIVER"`
	SQLitePath     string `json:"sqlite_path" env:"SQLITE_PATH"`
	RedisAddr      string `json:"redis_addr" env:"REDIS_ADDR"`
	RedisUsername  string `json:"redis_username" env:"REDIS_USERNAME"`
	RedisPassword  string `json:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB        int    `json:"redis_db" env:"REDIS_DB"`
	RedisKeyPrefix string `json:"redis_key_prefix" env:"REDIS_KEY_PREFIX"`
}

func (c Config) Validate() error {
	switch c.Driver {
	case "", DriverNone, DriverMemory:
		return nil
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return errors.New("sqlite store requires a path")
		}
		return nil
	case DriverRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return errors.New("redis store requires an address")
		}
		return nil
	default:
		return fmt.Errorf("unknown store driver %q", c.Driver)
	}
}

// Open returns the configured store, or nil when storage is disabled.
func Open(ctx context.Context, cfg Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverSQLite:
		return OpenSQLite(cfg.SQLitePath)
	case DriverRedis:
		return OpenRedis(ctx, cfg)
	default:
		return nil, nil
	}
}

// prepare validates a link and fills the defaults shared by every driver.
func prepare(link Link, now time.Time) (Link, error) {
	link.Wallet = strings.TrimSpace(link.Wallet)
	link.Provider = strings.TrimSpace(link.Provider)
	link.ProviderUserID = strings.TrimSpace(link.ProviderUserID)
	switch {
	case link.Wallet == "":
		return Link{}, errors.New("wallet is required")
	case link.Provider == "":
		return Link{}, errors.New("provider is required")
	case link.ProviderUserID == "":
		return Link{}, errors.New("provider user id is required")
	}
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	if link.LinkedAt.IsZero() {
		link.LinkedAt = now
	}
	link.LinkedAt = link.LinkedAt.UTC().Truncate(time.Millisecond)
	return link, nil
}

func sortByProvider(links []Link) {
	sort.Slice(links, func(i, j int) bool { return links[i].Provider < links[j].Provider })
}
