// Package redis opens the go-redis client used by the feed relay.
//
// Connect pings until the server answers or the retry budget runs out, so the
// daemon fails fast on a wrong REDIS_URL instead of silently dropping feed
// events later. Healthcheck plugs into /healthz.
package redis
