// Package stores contains backing stores for visitor and robot logs.
//
// Redis and Memory are shared caches which support expiration. File
// keeps a snapshot in a flat file without expiration: an in-process
// snapshot of geolib is what actually lives and gets reloaded.
package stores
