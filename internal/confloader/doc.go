// Package confloader loads sessiond server settings.
//
// Sources are applied in order, later ones winning: built-in defaults, an
// optional YAML file, then APP_* environment variables. Keys are flat, so
// APP_REDIS_URI maps to redis_uri in the file.
package confloader
