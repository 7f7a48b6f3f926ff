// Package clientip resolves the address of the caller behind reverse proxies.
//
// Headers are consulted in order (CF-Connecting-IP, X-Forwarded-For,
// X-Real-IP by default) and the first one holding a valid address wins;
// otherwise the connection's RemoteAddr is used. Only enable forwarding
// headers your proxy actually sets.
//
// The HTTP API uses the resolved address to tag queue items and as the rate
// limit key for requests that do not name a user.
package clientip
