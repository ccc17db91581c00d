// Package deps checks that the external tools an export needs are installed,
// runnable and recent enough, and explains how to install them when they are
// not.
//
// Each supported tool is described by a Spec in a closed table keyed by Tool.
// The probing algorithm is shared; only the Spec differs.
package deps

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Sentinel errors for dependency checks.
var (
	ErrNotFound      = errors.New("executable not found")
	ErrVersionParse  = errors.New("could not determine version")
	ErrBelowMinimum  = errors.New("version below minimum")
	ErrUnknownTool   = errors.New("unknown tool")
	ErrInvalidMinVer = errors.New("invalid minimum version")
)

// DefaultProbeTimeout bounds a single version probe.
const DefaultProbeTimeout = 10 * time.Second

// Tool identifies a supported external tool.
type Tool int

// Supported tools.
const (
	ToolPandoc Tool = iota
	ToolTypst
	ToolRasterizer
)

// Tools returns every supported tool in display order.
func Tools() []Tool {
	return []Tool{ToolPandoc, ToolTypst, ToolRasterizer}
}

func (t Tool) String() string {
	if s, ok := specs[t]; ok {
		return s.Name
	}
	return fmt.Sprintf("tool(%d)", int(t))
}

// MarshalText encodes the tool as its executable name.
func (t Tool) MarshalText() ([]byte, error) {
	if _, ok := specs[t]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTool, int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText accepts the names understood by ParseTool.
func (t *Tool) UnmarshalText(b []byte) error {
	parsed, err := ParseTool(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTool maps a tool name to a Tool. "rasterizer" is accepted as an alias
// for pdftocairo.
func ParseTool(name string) (Tool, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "pandoc":
		return ToolPandoc, nil
	case "typst":
		return ToolTypst, nil
	case "pdftocairo", "rasterizer":
		return ToolRasterizer, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTool, name)
}

// Spec describes how to find and probe one tool.
type Spec struct {
	Tool           Tool
	Name           string         // default executable name
	Purpose        string         // one-line description for reports
	MinimumVersion string         // oldest supported release
	VersionArgs    []string       // arguments that print the version
	VersionPattern *regexp.Regexp // tool specific, tried before the generic patterns
	Optional       bool           // export still works without it
}

var specs = map[Tool]Spec{
	ToolPandoc: {
		Tool:           ToolPandoc,
		Name:           "pandoc",
		Purpose:        "converts Markdown to Typst markup",
		MinimumVersion: "3.0.0",
		VersionArgs:    []string{"--version"},
		VersionPattern: regexp.MustCompile(`(?m)^pandoc(?:\.exe)?\s+(\d+(?:\.\d+)+)`),
	},
	ToolTypst: {
		Tool:           ToolTypst,
		Name:           "typst",
		Purpose:        "compiles Typst markup to PDF",
		MinimumVersion: "0.13.0",
		VersionArgs:    []string{"--version"},
		VersionPattern: regexp.MustCompile(`(?m)^typst\s+(\d+(?:\.\d+)+)`),
	},
	ToolRasterizer: {
		Tool:           ToolRasterizer,
		Name:           "pdftocairo",
		Purpose:        "renders embedded PDF pages as images",
		MinimumVersion: "0.86.0",
		VersionArgs:    []string{"-v"},
		VersionPattern: regexp.MustCompile(`pdftocairo version\s+(\d+(?:\.\d+)+)`),
		Optional:       true,
	},
}

// SpecFor returns the spec of t. It panics on an unknown tool, which can
// only come from a programming error since Tool values are closed.
func SpecFor(t Tool) Spec {
	s, ok := specs[t]
	if !ok {
		panic(fmt.Sprintf("deps: no spec for %v", t))
	}
	return s
}

// Settings are the user-configurable knobs for one tool.
type Settings struct {
	CustomPath      string            // explicit path or bare name, empty = default name
	MinVersion      string            // overrides Spec.MinimumVersion when set
	Timeout         time.Duration     // probe timeout, zero = DefaultProbeTimeout
	AdditionalPaths []string          // extra search directories
	CustomEnv       map[string]string // merged into the child environment last
}

// fingerprint identifies the settings for cache invalidation.
func (s Settings) fingerprint() string {
	return fmt.Sprintf("%q|%q|%s|%q|%v", s.CustomPath, s.MinVersion, s.Timeout, s.AdditionalPaths, s.CustomEnv)
}

// ErrorKind classifies a failed check for presentation.
type ErrorKind string

// Failure kinds, one per error class.
const (
	KindNone         ErrorKind = ""
	KindValidation   ErrorKind = "validation"
	KindNotFound     ErrorKind = "not-found"
	KindSpawn        ErrorKind = "spawn"
	KindExitCode     ErrorKind = "exit-code"
	KindTimeout      ErrorKind = "timeout"
	KindCanceled     ErrorKind = "canceled"
	KindVersionParse ErrorKind = "version-parse"
	KindBelowMinimum ErrorKind = "below-minimum"
)

// Result is the availability of one tool.
type Result struct {
	Tool           Tool      `json:"tool"`
	Available      bool      `json:"isAvailable"`
	Optional       bool      `json:"optional,omitempty"`
	ExecutablePath string    `json:"executablePath,omitempty"`
	ResolvedVia    string    `json:"resolvedVia,omitempty"`
	Version        string    `json:"version,omitempty"`
	MinVersion     string    `json:"minVersion,omitempty"`
	Error          string    `json:"error,omitempty"`
	Warning        string    `json:"warning,omitempty"`
	Kind           ErrorKind `json:"kind,omitempty"`
	Err            error     `json:"-"`
}

// fail records err on r.
func (r *Result) fail(err error) {
	r.Available = false
	r.Err = err
	r.Error = err.Error()
	r.Kind = kindOf(err)
}

// Report aggregates the results of CheckAll.
type Report struct {
	Results           map[Tool]Result `json:"results"`
	AllAvailable      bool            `json:"allAvailable"`
	RequiredAvailable bool            `json:"requiredAvailable"`
}

// Ordered returns the results in Tools() order.
func (r *Report) Ordered() []Result {
	out := make([]Result, 0, len(r.Results))
	for _, t := range Tools() {
		if res, ok := r.Results[t]; ok {
			out = append(out, res)
		}
	}
	return out
}

// MissingRequired lists required tools that are unavailable.
func (r *Report) MissingRequired() []Tool {
	var out []Tool
	for _, res := range r.Ordered() {
		if !res.Available && !res.Optional {
			out = append(out, res.Tool)
		}
	}
	return out
}

func newReport(results map[Tool]Result) *Report {
	rep := &Report{Results: results, AllAvailable: true, RequiredAvailable: true}
	for _, res := range results {
		if res.Available {
			continue
		}
		rep.AllAvailable = false
		if !res.Optional {
			rep.RequiredAvailable = false
		}
	}
	return rep
}
