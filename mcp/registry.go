// Package mcp connects the engine to external MCP tool providers. It covers
// two concerns: converting raw provider configuration into typed connection
// descriptors (registry adapter, pure transformation) and holding live
// provider connections with list-tools / call-tool operations (provider
// client, built on mark3labs/mcp-go).
package mcp

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/zerolxy612/lexiAI-sub001/core"
	"github.com/zerolxy612/lexiAI-sub001/internal/util"
)

// ServerConfig is the raw provider record as it arrives from configuration.
// Env, Headers and Reconnect may arrive as JSON-encoded strings and are
// parsed during descriptor construction.
type ServerConfig struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Type      string   `json:"type"` // stdio | sse | streamableHttp
	Command   string   `json:"command,omitempty"`
	Args      []string `json:"args,omitempty"`
	Env       string   `json:"env,omitempty"`
	URL       string   `json:"url,omitempty"`
	Headers   string   `json:"headers,omitempty"`
	Reconnect string   `json:"reconnect,omitempty"`
}

// BuildDescriptor converts a raw provider record into a typed connection
// descriptor, parsing the JSON-encoded parameter fields. It performs no I/O.
func BuildDescriptor(cfg ServerConfig) (core.ProviderDescriptor, error) {
	desc := core.ProviderDescriptor{
		ID:      cfg.ID,
		Name:    cfg.Name,
		Command: cfg.Command,
		Args:    cfg.Args,
		URL:     cfg.URL,
	}

	if desc.ID == "" {
		desc.ID = util.NewID()
	}
	if desc.Name == "" {
		desc.Name = deriveName(cfg.URL, cfg.Command)
	}

	switch core.TransportKind(cfg.Type) {
	case core.TransportStdio:
		desc.Transport = core.TransportStdio
		if cfg.Command == "" {
			return core.ProviderDescriptor{}, fmt.Errorf("stdio provider %s: command is required", desc.Name)
		}
	case core.TransportSSE:
		desc.Transport = core.TransportSSE
	case core.TransportStreamableHTTP:
		desc.Transport = core.TransportStreamableHTTP
	case "":
		desc.Transport = transportForURL(cfg.URL)
	default:
		return core.ProviderDescriptor{}, fmt.Errorf("provider %s: unknown transport type %q", desc.Name, cfg.Type)
	}

	if desc.Transport != core.TransportStdio && cfg.URL == "" {
		return core.ProviderDescriptor{}, fmt.Errorf("%s provider %s: url is required", desc.Transport, desc.Name)
	}

	if cfg.Env != "" {
		if err := json.Unmarshal([]byte(cfg.Env), &desc.Env); err != nil {
			return core.ProviderDescriptor{}, fmt.Errorf("provider %s: invalid env payload: %w", desc.Name, err)
		}
	}
	if cfg.Headers != "" {
		if err := json.Unmarshal([]byte(cfg.Headers), &desc.Headers); err != nil {
			return core.ProviderDescriptor{}, fmt.Errorf("provider %s: invalid headers payload: %w", desc.Name, err)
		}
	}
	if cfg.Reconnect != "" {
		if err := json.Unmarshal([]byte(cfg.Reconnect), &desc.Reconnect); err != nil {
			return core.ProviderDescriptor{}, fmt.Errorf("provider %s: invalid reconnect payload: %w", desc.Name, err)
		}
	}

	return desc, nil
}

// DescriptorFromURL builds a descriptor for an HTTP-based provider endpoint.
// Endpoints whose path ends in /sse use the SSE transport; everything else
// uses streamable HTTP.
func DescriptorFromURL(rawURL string) core.ProviderDescriptor {
	return core.ProviderDescriptor{
		ID:        util.NewID(),
		Name:      deriveName(rawURL, ""),
		Transport: transportForURL(rawURL),
		URL:       rawURL,
	}
}

// ParseServerList splits a comma-separated endpoint list into descriptors.
// Empty entries are skipped.
func ParseServerList(list string) []core.ProviderDescriptor {
	var descriptors []core.ProviderDescriptor
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		descriptors = append(descriptors, DescriptorFromURL(entry))
	}
	return descriptors
}

func transportForURL(rawURL string) core.TransportKind {
	if strings.HasSuffix(strings.TrimRight(rawURL, "/"), "/sse") {
		return core.TransportSSE
	}
	return core.TransportStreamableHTTP
}

// deriveName produces a human-readable provider name from the endpoint host
// or the command basename.
func deriveName(rawURL, command string) string {
	if rawURL != "" {
		if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
			return u.Host
		}
		return rawURL
	}
	if command != "" {
		parts := strings.Split(command, "/")
		return parts[len(parts)-1]
	}
	return "provider-" + util.ShortID(8)
}
