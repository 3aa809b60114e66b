package buildenv

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ErrConfigurationMissing is returned by GetOption for options
// that were never set.
var ErrConfigurationMissing = errors.New("configuration missing")

// Define is a single preprocessor definition.
type Define struct {
	Key   string `json:"key"   yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Flag renders the definition as one shell word, as expected in
// CPPFLAGS or a Makefile recipe. The value is the macro text, so
// the shell sees "-DKEY=" followed by the C literal. Words holding
// characters outside a conservative safe set are single-quoted.
func (de Define) Flag() string {
	if de.Value == "" {
		return shellQuote("-D" + de.Key)
	}

	return shellQuote("-D" + de.Key + "=" + de.Macro())
}

// Macro returns the text the macro expands to once the shell has
// removed backslash escapes from the flag value.
func (de Define) Macro() string {
	return strings.ReplaceAll(de.Value, `\"`, `"`)
}

// Env is an in-memory build environment.
type Env struct {
	options    map[string]string
	outputName string
	defines    []Define
}

// New returns an Env seeded with a copy of options.
func New(options map[string]string) *Env {
	en := &Env{options: make(map[string]string, len(options))}
	maps.Copy(en.options, options)

	return en
}

// Set assigns a project option.
func (en *Env) Set(key string, value string) {
	en.options[key] = value
}

// GetOption returns the project option named key.
func (en *Env) GetOption(key string) (string, error) {
	val, ok := en.options[key]
	if !ok {
		return "", fmt.Errorf(
			"%w: option %q is not set",
			ErrConfigurationMissing, key,
		)
	}

	return val, nil
}

// SetOutputName replaces the output artifact base name.
func (en *Env) SetOutputName(value string) {
	en.outputName = value
}

// AppendCompileDefinition adds a definition. A definition with the
// same key is replaced in place so repeated stamping does not
// accumulate duplicates.
func (en *Env) AppendCompileDefinition(key string, value string) {
	idx := slices.IndexFunc(en.defines, func(de Define) bool {
		return de.Key == key
	})
	if idx >= 0 {
		en.defines[idx].Value = value

		return
	}

	en.defines = append(en.defines, Define{Key: key, Value: value})
}

// OutputName returns the output artifact base name, empty when it
// was never set.
func (en *Env) OutputName() string {
	return en.outputName
}

// Defines returns a copy of the compile definitions in insertion
// order.
func (en *Env) Defines() []Define {
	return slices.Clone(en.defines)
}

// Options returns a copy of the project options.
func (en *Env) Options() map[string]string {
	return maps.Clone(en.options)
}

func isShellSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}

	return strings.ContainsRune("@%+=:,./_-", r)
}

// shellQuote returns word unchanged when every rune is safe, and
// single-quoted otherwise.
func shellQuote(word string) string {
	if word != "" && strings.IndexFunc(word, func(r rune) bool {
		return !isShellSafe(r)
	}) < 0 {
		return word
	}

	return "'" + strings.ReplaceAll(word, "'", `'\''`) + "'"
}
