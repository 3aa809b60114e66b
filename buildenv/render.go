package buildenv

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/goccy/go-json"
	"github.com/goccy/go-yaml"
	"github.com/jedib0t/go-pretty/v6/table"
)

// ProgNameVar is the template variable holding the output name.
const ProgNameVar = "PROGNAME"

// Snapshot is the serializable result of a build environment.
type Snapshot struct {
	ProgName string            `json:"prog_name"         yaml:"prog_name"`
	Defines  []Define          `json:"defines"           yaml:"defines"`
	Options  map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
}

// Snapshot captures the current output name, definitions and
// options.
func (en *Env) Snapshot() Snapshot {
	return Snapshot{
		ProgName: en.outputName,
		Defines:  en.Defines(),
		Options:  en.Options(),
	}
}

// CPPFlags renders every definition as a -D compiler flag.
func (en *Env) CPPFlags() []string {
	flags := make([]string, 0, len(en.defines))
	for _, de := range en.defines {
		flags = append(flags, de.Flag())
	}

	return flags
}

// ErrUnquotable reports a linker flag value that holds both quote
// characters, which the go command's flag parser cannot represent.
var ErrUnquotable = errors.New("value cannot be quoted for -ldflags")

// LDFlags renders a Go linker flag that sets the string variable
// symbol (for example "main.firmwareVersion") to the output name.
// The assignment is quoted the way the go command splits -ldflags:
// single or double quotes, no escapes.
func (en *Env) LDFlags(symbol string) (string, error) {
	const errCtx = "rendering ldflags"

	arg := symbol + "=" + en.outputName

	switch {
	case !strings.ContainsAny(arg, " \t\n\r'\""):
	case !strings.Contains(arg, "'"):
		arg = "'" + arg + "'"
	case !strings.Contains(arg, `"`):
		arg = `"` + arg + `"`
	default:
		return "", fmt.Errorf("%s: %w: %s", errCtx, ErrUnquotable, arg)
	}

	return "-X " + arg, nil
}

// Vars returns the template context: every option, every
// definition key mapped to its macro text, and PROGNAME.
func (en *Env) Vars() map[string]any {
	vars := make(map[string]any, len(en.options)+len(en.defines)+1)

	for key, val := range en.options {
		vars[key] = val
	}

	for _, de := range en.defines {
		vars[de.Key] = de.Macro()
	}

	vars[ProgNameVar] = en.outputName

	return vars
}

// WriteJSON writes the snapshot as indented JSON.
func (en *Env) WriteJSON(out io.Writer) error {
	const errCtx = "writing json"

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if err := enc.Encode(en.Snapshot()); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// WriteYAML writes the snapshot as YAML.
func (en *Env) WriteYAML(out io.Writer) error {
	const errCtx = "writing yaml"

	buf, err := yaml.Marshal(en.Snapshot())
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if _, err := out.Write(buf); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// WriteTable prints the output name, definitions and options as a
// table.
func (en *Env) WriteTable(out io.Writer) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.AppendHeader(table.Row{"Kind", "Key", "Value"})
	tw.AppendRow(table.Row{"output", ProgNameVar, en.outputName})

	for _, de := range en.defines {
		tw.AppendRow(table.Row{"define", de.Key, de.Value})
	}

	for _, key := range slices.Sorted(maps.Keys(en.options)) {
		tw.AppendRow(table.Row{"option", key, en.options[key]})
	}

	tw.SetStyle(table.StyleRounded)
	tw.Render()
}
