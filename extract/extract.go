// Package extract parses free-form model output for embedded tool-invocation
// directives. The delimiter syntax is kept literal for interoperability with
// the system prompt format; the parser is isolated behind the Extractor type
// so the syntax can be swapped without touching the turn loop.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/zerolxy612/lexiAI-sub001/core"
	"github.com/zerolxy612/lexiAI-sub001/logging"
)

// toolUsePattern matches one delimited tool-use block. (?s) lets the
// arguments payload span lines.
var toolUsePattern = regexp.MustCompile(`(?s)<tool_use>\s*<name>(.*?)</name>\s*<arguments>(.*?)</arguments>\s*</tool_use>`)

// Options configures an Extractor.
type Options struct {
	Logger logging.Logger
}

// Extractor scans model output for tool-use blocks and resolves them against
// a known tool set. It holds no per-call state and is safe for concurrent
// use.
type Extractor struct {
	*core.LoggerAdapter
}

// New constructs an Extractor.
func New(optFns ...func(o *Options)) *Extractor {
	opts := Options{}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Extractor{LoggerAdapter: core.NewLoggerAdapter(opts.Logger)}
}

// Extract returns one ToolCallRequest per well-formed tool-use block whose
// name resolves to a known tool, in left-to-right order of appearance.
//
// Behavior guarantees:
//   - Arguments are parsed as JSON when possible; on parse failure the raw
//     argument text is kept verbatim rather than failing the extraction.
//   - Names with no exact id match in knownTools are logged and excluded.
//     They are never invoked and never fail the caller.
//   - The scan makes forward progress even on zero-width matches, so
//     degenerate input terminates in bounded time.
func (e *Extractor) Extract(modelOutput string, knownTools []core.Tool) []core.ToolCallRequest {
	byID := make(map[string]core.Tool, len(knownTools))
	for _, t := range knownTools {
		byID[t.ID] = t
	}

	var requests []core.ToolCallRequest

	pos := 0
	for pos <= len(modelOutput) {
		loc := toolUsePattern.FindStringSubmatchIndex(modelOutput[pos:])
		if loc == nil {
			break
		}

		raw := modelOutput[pos+loc[0] : pos+loc[1]]
		name := strings.TrimSpace(modelOutput[pos+loc[2] : pos+loc[3]])
		argsText := strings.TrimSpace(modelOutput[pos+loc[4] : pos+loc[5]])

		// Forward progress guard: a zero-width match must still advance the
		// scan position.
		advance := loc[1]
		if advance <= 0 {
			advance = 1
		}
		pos += advance

		if _, ok := byID[name]; !ok {
			e.LogWarn("extract.unknown_tool", "name", name)
			continue
		}

		requests = append(requests, core.ToolCallRequest{
			Seq:       len(requests),
			ToolID:    name,
			Arguments: parseArguments(argsText),
			Raw:       raw,
		})
	}

	return requests
}

// parseArguments attempts to decode the argument text as structured data
// (object, array or primitive). Unparseable payloads are passed through as
// the raw string; whether providers handle non-JSON argument strings
// gracefully is up to the provider.
func parseArguments(text string) any {
	if text == "" {
		return map[string]any{}
	}

	var parsed any
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return text
	}

	return parsed
}
