// Package services implements the business logic layer of ALTUM.
// It sits between the HTTP handlers and the leveling engine, so that request
// limits, tracing and metrics live in one place.
//
// # Services
//
//	- LevelingService: computes single lines and batches, imports field books
//	  from uploaded workbooks and exports results as xlsx or csv
//	- HealthService: liveness, readiness and version information
//
// Services receive their logger, tracer and instruments by injection:
//
//	svc := services.NewLevelingService(cfg.Leveling, providers.Tracer, metrics, logger)
//	outcome, err := svc.Compute(ctx, survey)
//
// Closure failures return the partial outcome together with the error, so
// callers can still report the reduced rows.
package services
