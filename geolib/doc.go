// This package provides a set of structs and functions which are used
// to find out where a person is: by textual address fragments or by IP
// address.
//
// geolib is core of the whereabouts project. The rest of the
// application is an example on how to use this library: how to
// implement collaborators, how to persist logs, how to pass parameters
// from HTTP requests.
//
// LocationResolver is a main entity of geolib. It is a waterfall: if
// there is enough text, it asks a geocoding service first, retries with
// a simplified query and falls back to IP geolocation. Each result has
// an AccuracySource which ranks how trustworthy the coordinate is.
//
// Anonymous visitors are recorded into VisitorLocationStore: a bounded
// log where the most recent visitor goes first. Robots and the server
// itself are not recorded, TrafficClassifier tells them apart.
package geolib
