// Package api hosts the HTTP server, middleware, and REST handlers for the
// lead service. Notable routes:
//   - POST /api/v1/leads/analyze runs an analysis and stores the lead.
//   - PATCH /api/v1/leads/{id}/continue flags a lead for follow-up.
//   - GET /api/v1/leads and /api/v1/leads/{id} read stored leads.
//   - GET /healthz and /readyz for probes, GET /metrics for Prometheus.
//
// Every lead route answers with a JSON envelope carrying a top-level
// "success" boolean.
package api
