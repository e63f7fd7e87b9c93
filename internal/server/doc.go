// Package server exposes the console's HTTP surface: REST endpoints for
// queue and table management, the per-queue WebSocket message stream, and
// the operational endpoints (health, metrics, version).
package server
