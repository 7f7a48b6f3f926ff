// Package httpapi exposes the queue manager and the pattern executor over HTTP.
//
// Routes:
//
//	POST   /commands                  enqueue a single command
//	DELETE /commands/{id}             cancel a pending command
//	GET    /queue/status              queue counters and flags
//	GET    /queue/stats               aggregated statistics
//	GET    /queue/items               pending items in dispatch order
//	GET    /queue/items/{id}          one item, pending or historical
//	POST   /queue/pause               stop dispatching
//	POST   /queue/resume              resume dispatching
//	GET    /patterns                  registered patterns
//	POST   /patterns/{name}/execute   start a pattern execution
//	GET    /executions                running executions
//	GET    /executions/{id}           one execution
//	DELETE /executions/{id}           cancel an execution
//	GET    /healthz                   readiness
//	GET    /metrics                   Prometheus exposition (optional)
//	GET    /ws                        live event feed (optional)
//
// Errors are returned as {"error":{"code":"...","message":"..."}}. POST /commands
// always answers with the enqueue result shape so clients can read the
// rejection reason from the same fields as a success.
//
//	api, err := httpapi.New(q, executor, library,
//		httpapi.WithLogger(log),
//		httpapi.WithMetricsHandler(collector.Handler()),
//		httpapi.WithFeedHandler(hub),
//	)
//	srv := httpserver.New(api.Handler())
package httpapi
