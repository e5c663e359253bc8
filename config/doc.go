// Package config loads the service configuration.
//
// Values are layered: built-in defaults, then an optional YAML file named by
// TOKENGATE_CONFIG_FILE, then TOKENGATE_* environment variables. The signing
// secret and store DSN are finally passed through a secret.Resolver, so they
// may be written as ${VAR}, secretref:env:NAME or secretref:file:/path.
//
// The loaded Config is validated once at startup and treated as immutable.
package config
