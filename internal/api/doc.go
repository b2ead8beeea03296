// Package api implements propertyd's HTTP REST API and core-event
// WebSocket stream.
//
// Routes (under /api/v1 unless noted):
//
//	GET    /health                              liveness plus dependency checks
//	GET    /classes, /classes/{name}            registered classes
//	GET    /objects                             root objects
//	POST   /objects                             create {name, class}
//	GET    /objects/{id}                        summary plus serialized snapshot
//	PUT    /objects/{id}                        apply a snapshot (update)
//	DELETE /objects/{id}
//	POST   /objects/{id}/clone                  {name}
//	POST   /objects/{id}/freeze
//	POST   /objects/{id}/begin-update, /end-update
//	PUT    /objects/{id}/order                  {names}
//	GET    /objects/{id}/properties             visible properties with values
//	GET    /objects/{id}/properties/{path}      value (PUT sets, DELETE clears)
//	GET    /objects/{id}/properties/{path}/selection
//	GET    /objects/{id}/properties/{path}/history
//	GET    /objects/{id}/descriptors            every descriptor
//	POST   /objects/{id}/descriptors            add a property definition
//	DELETE /objects/{id}/descriptors/{name}
//	GET    /ws                                  core-event stream
//	GET    /metrics                             Prometheus (root, no auth)
//
// {id} accepts a registry ID or name. Errors are returned as
// {"error":{"code":"NotFound","message":"..."}} with the HTTP status derived
// from the error's status code.
//
// With security.auth_enabled every /api/v1 route except /health needs a
// bearer token; its subject and groups become the permission user that
// reads and writes are checked against and snapshots are filtered for.
package api
