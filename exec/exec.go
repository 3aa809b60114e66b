// Package exec runs the downstream build command with the stamped
// values exported in its environment.
package exec

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/byte4ever/firmware_stamp/buildenv"
	"github.com/byte4ever/firmware_stamp/stamper"
)

// CPPFlagsVar is the exported variable carrying the -D flags.
const CPPFlagsVar = "CPPFLAGS"

// StampEnv returns base extended with PROGNAME, FIRMWARE_VERSION
// (the macro text) and CPPFLAGS carrying the shell-quoted -D flags. Existing
// PROGNAME and FIRMWARE_VERSION entries are replaced; an existing
// CPPFLAGS value is kept and the flags appended to it.
func StampEnv(en *buildenv.Env, base []string) []string {
	flags := strings.Join(en.CPPFlags(), " ")

	var (
		env      []string
		cppflags string
		macro    string
	)

	for _, de := range en.Defines() {
		if de.Key == stamper.DefineName {
			macro = de.Macro()
		}
	}

	for _, kv := range base {
		key, val, _ := strings.Cut(kv, "=")

		switch key {
		case buildenv.ProgNameVar, stamper.DefineName:
			continue
		case CPPFlagsVar:
			cppflags = val

			continue
		}

		env = append(env, kv)
	}

	if cppflags != "" && flags != "" {
		cppflags += " "
	}

	return append(
		env,
		buildenv.ProgNameVar+"="+en.OutputName(),
		stamper.DefineName+"="+macro,
		CPPFlagsVar+"="+cppflags+flags,
	)
}

// Run executes the named command in dir with the given
// environment, streaming its output to stdout and stderr. Pass
// empty dir to use the current working directory.
func Run(
	ctx context.Context,
	dir string,
	env []string,
	stdout io.Writer,
	stderr io.Writer,
	name string,
	arg ...string,
) error {
	const errCtx = "executing command"

	slog.Info(
		"executing",
		"cmd", name,
		"args", strings.Join(arg, " "),
	)

	cmd := exec.CommandContext(ctx, name, arg...)
	cmd.Dir = dir
	cmd.Env = env
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf(
			"%s: %s %s: %w",
			errCtx, name, strings.Join(arg, " "), err,
		)
	}

	return nil
}
