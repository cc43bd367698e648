// Package server exposes the flow engine over HTTP and streams flow
// lifecycle events over WebSocket connections
package server
