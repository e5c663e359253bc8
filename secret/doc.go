// Package secret resolves configuration values that name a secret instead
// of containing it, such as the token signing key or a database password.
//
// A value of the form "secretref:<provider>:<ref>" is replaced by what the
// provider returns. References may also appear inline, for example inside a
// DSN: "postgres://gate:secretref:env:PGPASSWORD@db/gate". Values are
// expanded with ExpandEnvStrict first, so "${VAR}" must be set.
//
// Two providers are built in: "env" reads an environment variable and
// "file" reads a file with its trailing newline trimmed. Others are added
// by registering a ProviderFactory with DefaultRegistry.
package secret
