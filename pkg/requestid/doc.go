// Package requestid tags incoming HTTP requests with a correlation identifier.
//
// The middleware reuses a well-formed X-Request-ID header sent by the client
// or generates a fresh UUID. The chosen value is stored in the request context,
// echoed in the response header and can be injected into every log record via
// LogExtractor. The HTTP API copies it into queue item metadata so a command
// can be traced from the request through dispatch.
//
//	r := chi.NewRouter()
//	r.Use(requestid.Middleware())
//
//	log := logger.New(logger.WithContextExtractors(requestid.LogExtractor()))
package requestid
