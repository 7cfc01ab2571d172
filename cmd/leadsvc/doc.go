// Package main hosts the lead service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes POST /api/v1/leads/analyze,
//     PATCH /api/v1/leads/{id}/continue, lead reads, health probes and /metrics on
//     a chi router with CORS, request ids, timing, zap request logs and panic
//     recovery.
//   - Pipeline: internal/lead.Service analyzes the submitted URL through the
//     PageSpeed Insights client, then inserts the lead. A failed analysis is
//     stored as null scores plus an error payload rather than failing the request.
//   - Persistence: internal/storage/postgres keeps leads in a pgx pool. Scores
//     are stored 0-100 and returned 0-1. The embedded schema is applied at
//     startup when db.auto_migrate is set.
//   - Configuration: Viper reads LEADS_* variables, an optional config file and
//     a .env file; PORT, DATABASE_URL, ALLOWED_ORIGIN and PAGESPEED_API_KEY are
//     honored for older deployments.
//
// Operational notes:
//   - The analyze route is rate limited per client IP to protect the PageSpeed
//     quota. Disable with LEADS_RATELIMIT_ENABLED=false. Clients are keyed by
//     the TCP peer; set LEADS_SERVER_TRUST_PROXY=true only behind a proxy that
//     overwrites X-Forwarded-For.
//   - Without a PageSpeed key every lead is stored with null scores.
//   - SIGINT/SIGTERM drain the HTTP server, then close the pool once.
//
// Usage:
//
//	leadsvc -config config.yaml
package main
