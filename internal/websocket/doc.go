// Package websocket broadcasts operation progress to connected clients.
//
// A Hub owns the client set and fans every message out to all of them.
// Clients connect through Hub.ServeHTTP; each gets a read pump, which only
// watches for disconnects and heartbeats, and a write pump that drains the
// client's send buffer and keeps the connection alive with pings.
//
// Messages are JSON objects with a type, a data payload and an RFC 3339
// timestamp:
//
//	{"type":"operation:progress","data":{"step":"labels","status":"completed",...},"timestamp":"..."}
package websocket
