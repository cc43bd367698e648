// Package drover identifies the agent flow engine service
package drover

const (
	// Name is the service name reported in logs
	Name = "drover"

	// Version is the service version reported in logs
	Version = "0.2.0"
)
