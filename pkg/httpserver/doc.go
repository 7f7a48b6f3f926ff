// Package httpserver runs an http.Handler until a context is cancelled and
// then shuts it down gracefully. Run fits errgroup:
//
//	srv := httpserver.NewFromConfig(router, cfg, httpserver.WithLogger(log))
//	g.Go(srv.Run(ctx))
//
// HealthHandler builds a JSON readiness endpoint from named checks.
package httpserver
