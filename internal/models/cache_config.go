package models

// CacheConfig enables the optional Redis read-through cache for landing-page
// lookups. Credit balances are never cached.
type CacheConfig struct {
	RedisURL   string `json:"redis_url" yaml:"redis_url"`
	TTLSeconds int    `json:"ttl_seconds,omitzero" yaml:"ttl_seconds"`
}
