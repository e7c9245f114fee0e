// Package service exposes the backend's REST endpoints as typed, stateless
// calls. Every method issues exactly one transport request and returns the
// transport error unchanged, so callers can match transport sentinels.
package service
