// Package http implements the HTTP handlers of the ALTUM web service.
// Handlers stay thin: they decode and validate requests, delegate to the
// services and render either JSON or an RFC 7807 problem.
//
// # Request Flow
//
//	HTTP Request → Chi Router → Middleware → Handler → Service → leveling
//	                                              ↓
//	HTTP Response ← Handler ← Outcome ←──────────┘
//
// # Endpoints
//
//	POST /api/leveling/compute    JSON line, returns the compensated table
//	POST /api/leveling/batch      several JSON lines, results in request order
//	POST /api/leveling/upload     multipart field book workbook
//	POST /api/leveling/export     same as upload, returns xlsx or csv
//	GET  /api/leveling/template   blank field book workbook
//
// A line whose arithmetic check fails, or that has invalid rows, is answered
// with a 422 problem carrying the diagnostics. A line without distance is
// answered with 200, status zero_distance and a warning.
package http
