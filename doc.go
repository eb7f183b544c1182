// Whereabouts is a service which answers a question "where is this
// user?".
//
// A location can come from 2 sources: a textual address which user
// typed somewhere (street, city, zipcode etc) or an IP address of a
// visitor. Textual address is more precise so it is always tried
// first. If geocoding gives nothing, IP geolocation is used.
//
// Tool itself is organized into 3 logical parts:
//
// Geolib
//
// geolib is a main package of the application which contains
// LocationResolver and the rest of the logic: visitor location log,
// robot log, traffic classification and session memoization. It has
// its own API and can act as http.Handler.
//
// Providers
//
// This package has implementations of geocoding and IP geolocation
// collaborators: remote geocoder, MaxMind web service and local
// GeoIP2 databases.
//
// Stores
//
// Backing stores for visitor and robot logs: in-memory, file and
// Redis.
//
// A main package itself is an example of how to wire all of them.
// Resulting binary starts http server and you can use it in your
// infrastructure as is.
package main
