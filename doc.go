// Package goSession implements token-based HTTP sessions backed by Redis.
//
// A request carrying "Authorization: Bearer <token>" is resolved against the
// session record store; requests without a usable token get a freshly minted
// session. Expiry slides forward on activity (throttled), and the record is
// written back only when its content hash changed during the request.
//
// # Architecture
//
// The package is organized around an [Engine] created via a [Builder]:
//
//	engine, err := goSession.New().
//	    WithConfig(goSession.DefaultConfig()).
//	    WithRedis(redisClient).
//	    WithUserDirectory(directory).
//	    Build()
//
// Sub-packages:
//
//   - session: record store, payload model, JSON codec, change detector
//   - middleware: lifecycle middleware, staleness signal, authentication gate
//   - account: user record and directory contract
//   - password: Argon2id hashing with legacy HMAC verification
//   - storage/memory, storage/mongodb: directory implementations
//   - metrics/export: Prometheus and OpenTelemetry exporters
//
// # Request pipeline
//
//	Middleware() -> RenewSignal() -> [RequireUser() | RequireUserOrBearer()] -> handler
//
// The direct-bearer group (Config.Gate.DirectBearerPrefix) skips Middleware():
// it is resolved read-only by RequireUserOrBearer and never renewed or persisted.
//
// # Concurrency
//
// Concurrent requests on one token each read, mutate and write a private copy
// of the record. The last writer wins; there is no merge and no locking.
package goSession
