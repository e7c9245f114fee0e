// Package api hosts the local status server started by the serve command.
// Notable routes:
//   - GET /healthz / readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/state/... for read-only snapshots of the console containers and
//     the push channels being watched.
package api
