// Package env assembles flint's per-process environment: the map-output
// tracker, the cache tracker, the shuffle substrate, and the host table a
// driver or worker process needs before it can run any RDD.
//
// Construction happens once per process, eagerly, in New: a driver needs
// its worker monitor running and a worker needs its shuffle server
// listening before either can do anything useful, so there is no benefit
// to deferring either past process startup.
package env
