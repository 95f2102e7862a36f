// Package api provides the HTTP REST API and WebSocket server for
// tadolink.
//
// It exposes the latest home snapshot, per-room and per-device reads,
// and heating control operations (manual control, boost, resume,
// open-window, offsets, presence) to dashboards and scripts.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// # Routes
//
//	GET  /api/v1/health                        liveness, no auth
//	POST /api/v1/auth/login                    JWT issuance
//	POST /api/v1/auth/ws-ticket                single-use WebSocket ticket
//	GET  /api/v1/status                        poll status and last error
//	GET  /api/v1/snapshot                      full home snapshot
//	GET  /api/v1/rooms                         all rooms
//	GET  /api/v1/rooms/{id}                    one room
//	PUT  /api/v1/rooms/{id}/manual-control     manual setpoint or off
//	DELETE /api/v1/rooms/{id}/manual-control   resume schedule
//	POST /api/v1/rooms/{id}/boost              boost one room
//	PUT  /api/v1/rooms/{id}/open-window        open-window activation
//	POST /api/v1/boost                         boost all rooms
//	POST /api/v1/resume                        resume all schedules
//	GET  /api/v1/devices                       all devices
//	GET  /api/v1/devices/{serial}              one device
//	PUT  /api/v1/devices/{serial}/offset       one offset write
//	POST /api/v1/offsets                       batch offset writes
//	PUT  /api/v1/presence                      HOME or AWAY
//	POST /api/v1/refresh                       trigger an early poll
//	GET  /api/v1/ws                            WebSocket, ticket auth
//
// All routes below /auth/login require a Bearer JWT except /health.
//
// Thread Safety: All methods are safe for concurrent use from multiple
// goroutines.
package api
