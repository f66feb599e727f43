// Package core defines the shared data model of the tool-orchestration
// engine: conversation messages, provider descriptors, tools, per-turn
// tool-call state and progress events. The package is pure data plus a few
// small helpers; it performs no I/O and has no dependency on any transport
// or model provider.
package core
