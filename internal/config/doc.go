// Package config loads ALTUM configuration.
//
// # Configuration Sources
//
// Values are resolved in the following order, later sources winning:
//
//	1. Defaults (Default)
//	2. A YAML file: config.yaml or configs/config.yaml
//	3. A .env file in the working directory
//	4. Environment variables
//
// # Environment Variables
//
// All environment variables follow the pattern ALTUM_<SECTION>_<FIELD>:
//
//	ALTUM_SERVER_PORT=8080
//	ALTUM_LOGGING_LEVEL=debug
//	ALTUM_LEVELING_DEFAULT_START_ELEVATION=725.000
//	ALTUM_LEVELING_MAX_UPLOAD_BYTES=10485760
//	ALTUM_TELEMETRY_TRACE_EXPORTER=stdout
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
