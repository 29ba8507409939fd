// Package main provides sessiond, an HTTP server exposing the session engine
// and the account endpoints built on it.
//
// Usage:
//
//	sessiond serve --config sessiond.yaml
//	sessiond serve --dev
//	sessiond version
//
// Settings come from the YAML file and APP_* environment variables; see
// internal/confloader. In --dev mode Redis is replaced by an in-process
// miniredis and users live in memory.
package main
