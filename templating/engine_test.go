package templating_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/firmware_stamp/templating"
)

// writeTemp creates a temporary file with content and
// returns its path.
func writeTemp(
	tb testing.TB,
	dir string,
	name string,
	content string,
) string {
	tb.Helper()

	pa := filepath.Join(dir, name)
	require.NoError(tb, os.WriteFile(pa, []byte(content), 0o600))

	return pa
}

func TestExpand_unknown_tags_preserved(t *testing.T) {
	t.Parallel()

	tplPath := writeTemp(
		t, t.TempDir(), "tpl.txt",
		"fw={{PROGNAME}} keep={{UNKNOWN}}",
	)

	var buf bytes.Buffer

	en := templating.Engine{}
	err := en.Expand(
		tplPath,
		map[string]any{"PROGNAME": "firmware@1.0.0"},
		&buf,
	)

	require.NoError(t, err)
	assert.Equal(t, "fw=firmware@1.0.0 keep={{UNKNOWN}}", buf.String())
}

func TestExpand_custom_tags(t *testing.T) {
	t.Parallel()

	tplPath := writeTemp(t, t.TempDir(), "tpl.txt", "Hello <%name%>!")

	var buf bytes.Buffer

	en := templating.Engine{StartTag: "<%", EndTag: "%>"}
	err := en.Expand(tplPath, map[string]any{"name": "World"}, &buf)

	require.NoError(t, err)
	assert.Equal(t, "Hello World!", buf.String())
}

func TestExpand_template_file(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tplPath := writeTemp(
		t, dir, "version.h.in",
		"#define FW {{FIRMWARE_VERSION}}\n",
	)

	var buf bytes.Buffer

	en := templating.Engine{}
	err := en.Expand(
		tplPath,
		map[string]any{"FIRMWARE_VERSION": `"firmware@1.0.0"`},
		&buf,
	)

	require.NoError(t, err)
	assert.Equal(t, "#define FW \"firmware@1.0.0\"\n", buf.String())
}

func TestExpand_default_header(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	en := templating.Engine{}
	err := en.Expand(
		"",
		map[string]any{
			"PROGNAME": "firmware@1.0.0",
			templating.DefinesVar: templating.DefineLines(
				[]templating.Macro{
					{Name: "FIRMWARE_VERSION", Body: `"firmware@1.0.0"`},
				},
			),
		},
		&buf,
	)

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "// Firmware: firmware@1.0.0\n")
	assert.Contains(
		t, buf.String(),
		"#define FIRMWARE_VERSION \"firmware@1.0.0\"\n",
	)
	assert.Contains(t, buf.String(), "#ifndef FWSTAMP_FIRMWARE_VERSION_H")
}

func TestExpand_missing_template_file(t *testing.T) {
	t.Parallel()

	en := templating.Engine{}

	err := en.Expand(
		"/nonexistent/template.txt", nil, &bytes.Buffer{},
	)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "expanding template")
}

func TestFormatString(t *testing.T) {
	t.Parallel()

	got := templating.FormatString(
		"build {PROGNAME} as {UNKNOWN}",
		map[string]any{"PROGNAME": "firmware@1.0.0"},
	)

	assert.Equal(t, "build firmware@1.0.0 as {UNKNOWN}", got)
}

func TestDefineLines(t *testing.T) {
	t.Parallel()

	got := templating.DefineLines([]templating.Macro{
		{Name: "DEBUG"},
		{Name: "FIRMWARE_VERSION", Body: `"a@b"`},
	})

	assert.Equal(
		t,
		"#define DEBUG\n#define FIRMWARE_VERSION \"a@b\"\n",
		got,
	)
}

func FuzzFormatString(f *testing.F) {
	f.Add("Hello {name}!", "name", "World")
	f.Add("{", "k", "v")
	f.Add("}", "k", "v")
	f.Add("{a} and {b}", "a", "{nested}")

	f.Fuzz(func(t *testing.T, format, key, val string) {
		// We only verify it does not panic.
		_ = templating.FormatString(format, map[string]any{key: val})
	})
}
