// Package http is the status server of the toolkit: a chi router exposing
// dataset inspection, record lookup, signal samples and background
// pipeline runs, plus health, version, Prometheus metrics and a websocket
// progress feed.
//
// Handlers stay thin. They parse the request, call a service and map
// service errors onto RFC 7807 problems through the middleware package.
//
// # Routes
//
//	GET  /health                     liveness and connected clients
//	GET  /version                    build information
//	GET  /metrics                    Prometheus exposition (when enabled)
//	GET  /ws                         pipeline progress feed
//	GET  /api/dataset                record counts of the dataset root
//	GET  /api/records/{ecgID}        labelled metadata of one record
//	GET  /api/records/{ecgID}/signal one lead of the record's waveform
//	POST /api/pipeline               start the export pipeline
//	GET  /api/pipeline/{id}          live state of a pipeline run
package http
