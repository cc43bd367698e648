// Package api defines the core data types for the agent flow engine
//
// This package contains the shared types used across the engine, store,
// sweeper, and HTTP surface: the flow record, its statuses, identifier
// types, and request/response messages
package api
