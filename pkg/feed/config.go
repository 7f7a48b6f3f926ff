package feed

import "time"

// Config holds environment-driven feed settings.
type Config struct {
	RedisEnabled bool          `env:"FEED_REDIS_ENABLED" envDefault:"false"`
	RedisChannel string        `env:"FEED_REDIS_CHANNEL" envDefault:"hapticqueue:events"`
	MaxClients   int           `env:"FEED_MAX_CLIENTS" envDefault:"200"`
	WriteTimeout time.Duration `env:"FEED_WRITE_TIMEOUT" envDefault:"5s"`
	SendBuffer   int           `env:"FEED_SEND_BUFFER" envDefault:"64"`
}
