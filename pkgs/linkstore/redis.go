package linkstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisKeyPrefix = "lnl:"
	redisDialTimeout      = 5 * time.Second
	redisReadTimeout      = 3 * time.Second
	redisWriteTimeout     = 3 * time.Second
)

// Redis keeps one hash per wallet, keyed by provider, holding JSON links.
type Redis struct {
	client    redis.UniversalClient
	keyPrefix string
}

// OpenRedis connects to the configured server and pings it.
func OpenRedis(ctx context.Context, cfg Config) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Username:     cfg.RedisUsername,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  redisDialTimeout,
		ReadTimeout:  redisReadTimeout,
		WriteTimeout: redisWriteTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisWithClient(client, cfg.RedisKeyPrefix), nil
}

// NewRedisWithClient wraps an existing client, e.g. one pointed at miniredis.
func NewRedisWithClient(client redis.UniversalClient, keyPrefix string) *Redis {
	if keyPrefix == "" {
		keyPrefix = defaultRedisKeyPrefix
	}
	return &Redis{client: client, keyPrefix: keyPrefix}
}

func (r *Redis) walletKey(wallet string) string {
	return r.keyPrefix + "links:" + wallet
}

// upsertLinkScript writes the link JSON in ARGV[2] under field ARGV[1],
// keeping the id of a link already stored there. Returns the stored id.
var upsertLinkScript = redis.NewScript(`
local link = cjson.decode(ARGV[2])
local current = redis.call('HGET', KEYS[1], ARGV[1])
if current then
	local existing = cjson.decode(current)
	if existing.id and existing.id ~= '' then
		link.id = existing.id
	end
end
redis.call('HSET', KEYS[1], ARGV[1], cjson.encode(link))
return link.id
`)

func (r *Redis) Upsert(ctx context.Context, link Link) (Link, error) {
	link, err := prepare(link, time.Now())
	if err != nil {
		return Link{}, err
	}
	data, err := json.Marshal(link)
	if err != nil {
		return Link{}, fmt.Errorf("marshal link: %w", err)
	}
	id, err := upsertLinkScript.Run(ctx, r.client, []string{r.walletKey(link.Wallet)}, link.Provider, data).Text()
	if err != nil {
		return Link{}, fmt.Errorf("store link: %w", err)
	}
	link.ID = id
	return link, nil
}

func (r *Redis) Get(ctx context.Context, wallet, provider string) (Link, error) {
	wallet, provider = strings.TrimSpace(wallet), strings.TrimSpace(provider)
	data, err := r.client.HGet(ctx, r.walletKey(wallet), provider).Bytes()
	if errors.Is(err, redis.Nil) {
		return Link{}, ErrNotFound
	}
	if err != nil {
		return Link{}, fmt.Errorf("get link: %w", err)
	}
	var link Link
	if err := json.Unmarshal(data, &link); err != nil {
		return Link{}, fmt.Errorf("decode link: %w", err)
	}
	return link, nil
}

func (r *Redis) ListByWallet(ctx context.Context, wallet string) ([]Link, error) {
	wallet = strings.TrimSpace(wallet)
	fields, err := r.client.HGetAll(ctx, r.walletKey(wallet)).Result()
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	out := make([]Link, 0, len(fields))
	for provider, data := range fields {
		var link Link
		if err := json.Unmarshal([]byte(data), &link); err != nil {
			return nil, fmt.Errorf("decode %s link: %w", provider, err)
		}
		out = append(out, link)
	}
	sortByProvider(out)
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
