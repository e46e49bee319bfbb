// Package cluster implements the driver/worker communication protocol:
// worker registration, driver-to-worker broadcasts, and the shared
// PostJSON/GetJSON helpers everything else in the process is built on.
//
// # Architecture
//
//	               ┌──────────────┐
//	               │    Driver    │
//	               │              │
//	               │ - Tracker    │
//	               │ - Monitor    │
//	               └──────┬───────┘
//	                      │
//	      ┌───────────────┼───────────────┐
//	      │               │               │
//	┌─────▼─────┐   ┌─────▼─────┐   ┌─────▼─────┐
//	│ Worker 1  │   │ Worker 2  │   │ Worker 3  │
//	│ shuffle   │   │ shuffle   │   │ shuffle   │
//	│ server    │   │ server    │   │ server    │
//	└───────────┘   └───────────┘   └───────────┘
//
// # Protocol
//
// Worker registration (POST /register): a worker announces its id and its
// shuffle server's URI when it starts up; the driver records it so later
// map-output locations can be attributed to a live worker.
//
// Broadcast (POST /broadcast): the driver pushes a path-addressed payload
// to every registered worker — used sparingly, since most cross-process
// communication for a running job goes through the shuffle fetch protocol
// in internal/shuffle instead.
//
// Every exchange uses encoding/json over net/http via PostJSON/GetJSON; no
// separate wire codec exists in this codebase.
package cluster
