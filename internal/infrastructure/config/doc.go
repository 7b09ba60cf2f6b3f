// Package config loads and validates tradegate configuration.
//
// Configuration comes from a YAML file with hardcoded defaults underneath
// and TRADEGATE_* environment variables on top. The resulting Config is
// loaded once at startup and treated as immutable for the process lifetime;
// no component re-reads configuration at runtime.
//
// Secrets (the JWT signing key, the MQTT password) should be supplied via
// environment variables rather than committed to the YAML file.
package config
