package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	tessera "github.com/itsatony/go-tessera"
	"github.com/itsatony/go-tessera/library/basic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test templates, keyed by name
var testTemplates = map[string]string{
	"greeting":    "Hello ${name|World}!\n",
	"list":        "% each items=${args} var=a index=i {\n${i}=${a}\n% }\n",
	"nested/card": "% @greeting name=${who}\n",
	"broken":      "% if test=true {\nunclosed\n",
	"unknown":     "% frobnicate\n",
}

// setupTemplateDir writes the test templates to a temp directory
func setupTemplateDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, text := range testTemplates {
		path := filepath.Join(dir, filepath.FromSlash(name)+tessera.TemplateFileExt)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(text), FilePermissions))
	}
	return dir
}

func runCLI(args []string, stdin string) (int, string, string) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	code := run(args, strings.NewReader(stdin), stdout, stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Dispatch(t *testing.T) {
	t.Run("no args shows help", func(t *testing.T) {
		code, stdout, _ := runCLI(nil, "")
		assert.Equal(t, ExitCodeSuccess, code)
		assert.Contains(t, stdout, CLIName)
		assert.Contains(t, stdout, CmdNameRender)
	})

	t.Run("help for command", func(t *testing.T) {
		code, stdout, _ := runCLI([]string{CmdNameHelp, CmdNameRender}, "")
		assert.Equal(t, ExitCodeSuccess, code)
		assert.Contains(t, stdout, VarArgs)
	})

	t.Run("unknown command", func(t *testing.T) {
		code, stdout, _ := runCLI([]string{"frobnicate"}, "")
		assert.Equal(t, ExitCodeUsageError, code)
		assert.Contains(t, stdout, ErrMsgUnknownCommand)
	})
}

func TestRender(t *testing.T) {
	dir := setupTemplateDir(t)

	t.Run("renders template", func(t *testing.T) {
		code, stdout, stderr := runCLI([]string{CmdNameRender, "-d", dir, "greeting"}, "")
		assert.Equal(t, ExitCodeSuccess, code, stderr)
		assert.Equal(t, "Hello World!\n", stdout)
		assert.Empty(t, stderr)
	})

	t.Run("positional args become a list", func(t *testing.T) {
		code, stdout, stderr := runCLI([]string{CmdNameRender, "-d", dir, "list", "x", "y"}, "")
		assert.Equal(t, ExitCodeSuccess, code, stderr)
		assert.Equal(t, "0=x\n1=y\n", stdout)
	})

	t.Run("inline data", func(t *testing.T) {
		code, stdout, _ := runCLI([]string{CmdNameRender, "-d", dir, "--data", `{"name":"Alice"}`, "greeting"}, "")
		assert.Equal(t, ExitCodeSuccess, code)
		assert.Equal(t, "Hello Alice!\n", stdout)
	})

	t.Run("data from stdin", func(t *testing.T) {
		code, stdout, _ := runCLI([]string{CmdNameRender, "-d", dir, "-f", "-", "greeting"}, `{"name":"Bob"}`)
		assert.Equal(t, ExitCodeSuccess, code)
		assert.Equal(t, "Hello Bob!\n", stdout)
	})

	t.Run("nested template with include", func(t *testing.T) {
		code, stdout, _ := runCLI([]string{CmdNameRender, "-d", dir, "--data", `{"who":"Eve"}`, "nested/card"}, "")
		assert.Equal(t, ExitCodeSuccess, code)
		assert.Equal(t, "Hello Eve!\n", stdout)
	})

	t.Run("output file", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "out.txt")
		code, stdout, _ := runCLI([]string{CmdNameRender, "-d", dir, "-o", out, "greeting"}, "")
		require.Equal(t, ExitCodeSuccess, code)
		assert.Empty(t, stdout)
		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, "Hello World!\n", string(data))
	})

	t.Run("missing template name", func(t *testing.T) {
		code, _, stderr := runCLI([]string{CmdNameRender, "-d", dir}, "")
		assert.Equal(t, ExitCodeUsageError, code)
		assert.Contains(t, stderr, ErrMsgMissingTemplate)
	})

	t.Run("invalid json", func(t *testing.T) {
		code, _, stderr := runCLI([]string{CmdNameRender, "-d", dir, "--data", "{", "greeting"}, "")
		assert.Equal(t, ExitCodeInputError, code)
		assert.Contains(t, stderr, ErrMsgInvalidJSON)
	})

	failures := []struct {
		name     string
		template string
	}{
		{"missing template", "absent"},
		{"parse error", "broken"},
		{"unknown action", "unknown"},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runCLI([]string{CmdNameRender, "-d", dir, tt.template}, "")
			assert.Equal(t, ExitCodeError, code)
			assert.Empty(t, stdout)
			assert.Contains(t, stderr, ErrMsgRenderFailed)
			assert.Equal(t, 1, strings.Count(stderr, "\n"), "diagnostic must be one line")
		})
	}

	t.Run("bad template dir", func(t *testing.T) {
		code, _, stderr := runCLI([]string{CmdNameRender, "-d", filepath.Join(dir, "nope"), "greeting"}, "")
		assert.Equal(t, ExitCodeError, code)
		assert.Contains(t, stderr, ErrMsgEngineFailed)
	})
}

func TestRender_ConfigFile(t *testing.T) {
	dir := setupTemplateDir(t)
	cfgPath := filepath.Join(t.TempDir(), "tessera.yaml")
	cfg := "template_dir: " + dir + "\nmax_include_depth: 4\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), FilePermissions))

	code, stdout, stderr := runCLI([]string{CmdNameRender, "-c", cfgPath, "greeting"}, "")
	assert.Equal(t, ExitCodeSuccess, code, stderr)
	assert.Equal(t, "Hello World!\n", stdout)

	t.Run("missing config", func(t *testing.T) {
		code, _, stderr := runCLI([]string{CmdNameRender, "-c", cfgPath + ".missing", "greeting"}, "")
		assert.Equal(t, ExitCodeError, code)
		assert.Contains(t, stderr, ErrMsgEngineFailed)
	})
}

func TestRender_Verbose(t *testing.T) {
	dir := setupTemplateDir(t)
	code, stdout, stderr := runCLI([]string{CmdNameRender, "-v", "-d", dir, "greeting"}, "")
	assert.Equal(t, ExitCodeSuccess, code)
	assert.Equal(t, "Hello World!\n", stdout)
	assert.Contains(t, stderr, tessera.LogMsgRenderStart)
}

func TestCheck(t *testing.T) {
	dir := setupTemplateDir(t)

	t.Run("valid templates", func(t *testing.T) {
		code, stdout, _ := runCLI([]string{CmdNameCheck, "-d", dir, "greeting", "list"}, "")
		assert.Equal(t, ExitCodeSuccess, code)
		assert.Contains(t, stdout, "greeting: "+CheckTextOK)
		assert.Contains(t, stdout, "2 template(s), 0 failed")
	})

	t.Run("invalid template", func(t *testing.T) {
		code, stdout, stderr := runCLI([]string{CmdNameCheck, "-d", dir, "greeting", "broken"}, "")
		assert.Equal(t, ExitCodeValidationError, code)
		assert.Contains(t, stdout, "1 failed")
		assert.Contains(t, stderr, ErrMsgCheckFailed)
	})

	t.Run("no templates", func(t *testing.T) {
		code, _, _ := runCLI([]string{CmdNameCheck, "-d", dir}, "")
		assert.Equal(t, ExitCodeUsageError, code)
	})
}

func TestVersion(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		code, stdout, _ := runCLI([]string{CmdNameVersion}, "")
		assert.Equal(t, ExitCodeSuccess, code)
		assert.True(t, strings.HasPrefix(stdout, CLIName+" "))
		assert.Contains(t, stdout, "library: "+basic.LibraryName)
	})

	t.Run("json", func(t *testing.T) {
		code, stdout, _ := runCLI([]string{CmdNameVersion, "-F", OutputFormatJSON}, "")
		require.Equal(t, ExitCodeSuccess, code)
		var report versionReport
		require.NoError(t, json.Unmarshal([]byte(stdout), &report))
		assert.NotEmpty(t, report.GoVersion)
		assert.NotEmpty(t, report.Version)
		assert.Equal(t, basic.LibraryName, report.Library)
		assert.Contains(t, report.Contributions, basic.ContribIndent)
		assert.True(t, sort.StringsAreSorted(report.Actions))
	})

	t.Run("bad format", func(t *testing.T) {
		code, _, stderr := runCLI([]string{CmdNameVersion, "-F", "xml"}, "")
		assert.Equal(t, ExitCodeUsageError, code)
		assert.Contains(t, stderr, ErrMsgInvalidFormat)
		assert.Contains(t, stderr, "xml")
	})
}
