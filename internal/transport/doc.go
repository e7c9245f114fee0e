// Package transport is the single HTTP gateway to the crawler backend. It
// attaches the bearer token, decodes the {success,data,message,error}
// envelope and turns every failure into an error that wraps one of the
// package's sentinels, so callers can branch with errors.Is.
package transport
