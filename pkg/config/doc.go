// Package config loads typed settings from environment variables.
//
// Each component of the service declares its own struct with `env` tags
// (queue.Config, pattern.Config, device.Config, feed.Config and so on) and
// main loads them through Load. Values come from the process environment,
// optionally seeded from a .env file via godotenv, and are parsed with
// caarlos0/env. A parsed struct is cached per type, so repeated loads in
// different packages agree on the same values.
//
//	var qcfg queue.Config
//	config.MustLoad(&qcfg)
//
// Tests that change the environment call Reset before loading again.
package config
