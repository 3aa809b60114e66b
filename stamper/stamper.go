package stamper

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// OptionName is the project option holding the firmware name.
	OptionName = "custom_firmware_name"
	// OptionVersion is the project option holding the firmware
	// version.
	OptionVersion = "custom_firmware_version"
	// DefineName is the compile definition receiving the quoted
	// name@version string.
	DefineName = "FIRMWARE_VERSION"
	// Separator joins name and version.
	Separator = "@"
)

// ErrInvalidConfiguration reports option values that cannot be
// combined unambiguously.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Environment is the host build environment the stamper reads
// options from and writes its results into.
type Environment interface {
	// GetOption returns the named project option. It fails when
	// the option is not set.
	GetOption(key string) (string, error)
	// SetOutputName replaces the build output artifact base name.
	SetOutputName(value string)
	// AppendCompileDefinition registers a preprocessor definition.
	AppendCompileDefinition(key string, value string)
}

// NameVersion joins name and version with Separator. Neither
// value may contain the separator itself.
func NameVersion(name string, version string) (string, error) {
	if strings.Contains(name, Separator) ||
		strings.Contains(version, Separator) {
		return "", fmt.Errorf(
			"%w: '%s' and '%s' may not contain '%s' characters",
			ErrInvalidConfiguration,
			OptionName, OptionVersion, Separator,
		)
	}

	return name + Separator + version, nil
}

// QuoteDefine wraps value in backslash-escaped double quotes so
// that, once the definition passes through the compiler command
// line, the macro expands to a C string literal.
func QuoteDefine(value string) string {
	return `\"` + value + `\"`
}

// Stamp reads the firmware name and version from env, sets the
// output name to "name@version" and appends the FIRMWARE_VERSION
// definition. Errors from env are returned unchanged. env is left
// untouched when validation fails.
func Stamp(env Environment) (string, error) {
	const errCtx = "stamping firmware version"

	name, err := env.GetOption(OptionName)
	if err != nil {
		return "", err
	}

	version, err := env.GetOption(OptionVersion)
	if err != nil {
		return "", err
	}

	nameVersion, err := NameVersion(name, version)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	env.SetOutputName(nameVersion)
	env.AppendCompileDefinition(DefineName, QuoteDefine(nameVersion))

	return nameVersion, nil
}
