// Package feed streams queue and pattern events to live observers: browser
// overlays over websocket (Hub) and other daemon instances over Redis pub/sub
// (RedisRelay). Forward wires a queue and an executor to any number of sinks.
package feed
