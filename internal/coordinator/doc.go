// Package coordinator drives the poll/normalize/publish cycle that keeps
// a locally consistent snapshot of one home's rooms and devices.
//
// # Architecture
//
//	┌────────────────────────────────────────────────────────────┐
//	│                       Coordinator                          │
//	│                                                            │
//	│  timer ──┐                                                 │
//	│          ├──► cycle: presence ► geofence ► rooms ► devices │
//	│  manual ─┘           ► normalize ► offset sync ► publish   │
//	│                                        │                   │
//	│                                        ▼                   │
//	│                              Snapshot (immutable)          │
//	│                                        │                   │
//	│               subscribers ◄────────────┘                   │
//	└────────────────────────────────────────────────────────────┘
//
// One cycle runs at a time. The timer and on-demand refresh requests
// share a coalescing trigger: a refresh already in flight absorbs any
// trigger that arrives while it runs. A failed cycle leaves the
// previously published snapshot visible (stale but valid) and records
// the error; consumers are never handed partial data.
//
// # Snapshot Model
//
// Snapshots are rebuilt from scratch every cycle and never mutated after
// publication. Rooms embed their member devices, and the same *Device
// values appear in the flat serial index, so room-reachable devices and
// index-reachable devices are always the same objects.
//
// # Offset Sync
//
// When enabled, the controller compares an external reference
// temperature per configured room against the device's raw measurement,
// rounds the difference to one decimal, clamps it to a safety range,
// and writes it only when it moves beyond a hysteresis deadband. Writes
// are batched and best-effort; a single unreachable device never fails
// the cycle.
package coordinator
