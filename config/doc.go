// Package config resolves runtime configuration for mesh agents.
//
// Every lookup follows the same priority chain: environment variable,
// then caller-supplied parameter, then built-in default. Empty values are
// treated as absent and fall through to the next source. The exact
// environment variable names are part of the external contract shared by
// all language SDKs.
//
// Sensitive values (registry and Redis URLs) are redacted before they
// reach logs; see Redact.
package config
