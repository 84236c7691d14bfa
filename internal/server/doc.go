// Package server provides the admin HTTP surface for the import pipeline.
//
// # Routes
//
//	POST /api/import-jobs              start a job for {"playlist_url": ...}; 202 with the job id
//	GET  /api/import-jobs              every job, newest first
//	GET  /api/import-jobs/{id}         one job; 404 when unknown
//	POST /api/import-jobs/{id}/cancel  200 when the job was running, 409 otherwise
//	GET  /api/import-logs              scheduled run logs (?limit=, default 50)
//	POST /api/import-logs/run          start a scheduled run now; 409 while one is running
//	GET  /api/provider-stats           aggregator statistics snapshot
//	GET  /metrics                      Prometheus exposition
//	GET  /health                       liveness
//
// Routing uses chi with request IDs, panic recovery and debug-level request logging.
//
// # Metrics
//
// Provider counters are CounterFuncs over the aggregator's statistics, so each scrape reads the
// live snapshot. Per-provider series carry a constant provider label.
package server
