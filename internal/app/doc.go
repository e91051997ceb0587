// Package app wires the ALTUM leveling server together: services, the chi
// router with its middleware chain, and the HTTP server lifecycle.
//
// # Middleware order
//
//	RequestID → RealIP → SecurityHeaders → ErrorMiddleware → OTel → CORS
//
// API routes additionally pass through the rate limiter and the request
// timeout. /metrics is mounted outside that group so scrapes are never
// throttled.
//
// # Usage
//
//	app, err := app.NewApplication(cfg, logger, providers)
//	if err != nil {
//	    return err
//	}
//	return app.Run(ctx)
//
// Run returns after SIGINT, SIGTERM or cancellation of ctx, once in-flight
// requests have drained and telemetry has been flushed. The package never
// calls os.Exit.
package app
