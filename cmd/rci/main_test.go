package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/rci/internal/catalog"
	"github.com/standardbeagle/rci/internal/debug"
	"github.com/standardbeagle/rci/internal/units"
	"github.com/standardbeagle/rci/internal/version"
)

const collectionRules = `
[[rule]]
name = "prefer-isempty"
description = "Use isEmpty() instead of comparing size() to zero"
severity = "info"
tags = ["collections"]
requires = [["size"], ["length"]]

[[rule]]
name = "stream-foreach"
description = "Iterate directly instead of stream().forEach()"
requires = [["forEach", "stream"]]
`

const stringRules = `
[[rule]]
name = "prefer-isblank"
severity = "error"
requires = [["isEmpty", "trim"]]
`

const manifest = `
[[unit]]
path = "src/Orders.java"
identifiers = ["size", "stream", "forEach"]

[[unit]]
path = "src/Names.java"
identifiers = ["trim", "isEmpty"]

[[unit]]
path = "src/generated/Dto.java"
identifiers = ["size"]

[[unit]]
path = "src/Plain.java"
identifiers = ["get"]
`

// setupProject lays out a project with two catalog files and a unit manifest
func setupProject(t *testing.T, configKDL string) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"rules/collections.toml": collectionRules,
		"rules/strings/str.toml": stringRules,
		"units.toml":             manifest,
	}
	if configKDL != "" {
		files[".rci.kdl"] = configKDL
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	// Keep cli.Exit from terminating the test binary
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(append([]string{"rci"}, args...))
	return out.String(), err
}

func TestQueryCommand(t *testing.T) {
	root := setupProject(t, "")

	out, err := runApp(t, "--root", root, "query", "stream", "size", "forEach")
	require.NoError(t, err)
	assert.Contains(t, out, "prefer-isempty\tinfo\t")
	assert.Contains(t, out, "stream-foreach\twarning\t")
	assert.NotContains(t, out, "prefer-isblank")
}

func TestQueryCommand_JSON(t *testing.T) {
	root := setupProject(t, "")

	out, err := runApp(t, "-r", root, "query", "--json", "trim", "isEmpty")
	require.NoError(t, err)

	var rules []catalog.Rule
	require.NoError(t, json.Unmarshal([]byte(out), &rules))
	require.Len(t, rules, 1)
	assert.Equal(t, "prefer-isblank", rules[0].Name)
	assert.Equal(t, catalog.SeverityError, rules[0].Severity)
	assert.Equal(t, filepath.Join("rules", "strings", "str.toml"), rules[0].Source)
}

func TestQueryCommand_NoArgs(t *testing.T) {
	root := setupProject(t, "")
	_, err := runApp(t, "--root", root, "query")
	assert.Error(t, err)
}

func TestScanCommand(t *testing.T) {
	root := setupProject(t, "")

	out, err := runApp(t, "--root", root, "scan", "--workers", "2", filepath.Join(root, "units.toml"))
	require.NoError(t, err)
	assert.Contains(t, out, "src/Orders.java: prefer-isempty, stream-foreach\n")
	assert.Contains(t, out, "src/Names.java: prefer-isblank\n")
	assert.Contains(t, out, "src/generated/Dto.java: prefer-isempty\n")
	assert.NotContains(t, out, "src/Plain.java")
	assert.Contains(t, out, "3/4 units have candidate rules")
}

func TestScanCommand_UnitFilterFromConfig(t *testing.T) {
	root := setupProject(t, `
units {
    exclude "**/generated/**"
}
`)

	out, err := runApp(t, "--root", root, "scan", "--json", filepath.Join(root, "units.toml"))
	require.NoError(t, err)

	var resp struct {
		Results []units.Result `json:"results"`
		Summary units.Summary  `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Results, 3)
	assert.Equal(t, "src/Orders.java", resp.Results[0].Unit)
	assert.Equal(t, "src/Names.java", resp.Results[1].Unit)
	assert.Equal(t, "src/Plain.java", resp.Results[2].Unit)
	assert.Equal(t, 2, resp.Summary.UnitsWithRules)
	assert.Equal(t, 1, resp.Summary.RuleUnits["prefer-isempty"])
}

func TestExplainCommand(t *testing.T) {
	root := setupProject(t, "")

	out, err := runApp(t, "--root", root, "explain", "prefer-isempty")
	require.NoError(t, err)
	assert.Contains(t, out, "Rule:     prefer-isempty\n")
	assert.Contains(t, out, "Tags:     collections\n")
	assert.Contains(t, out, "  {length}\n")
	assert.Contains(t, out, "  {size}\n")
}

func TestExplainCommand_Unknown(t *testing.T) {
	root := setupProject(t, "")

	_, err := runApp(t, "--root", root, "explain", "prefer-isempt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did you mean prefer-isempty")
}

func TestStatsCommand(t *testing.T) {
	root := setupProject(t, "")

	out, err := runApp(t, "--root", root, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Rules:        3\n")
	assert.Contains(t, out, "Combinations: 4\n")
	assert.Contains(t, out, "Max depth:    2\n")
	assert.Contains(t, out, "  error    1\n")
	assert.Contains(t, out, "Version:      "+version.FullInfo()+"\n")
	assert.Contains(t, out, "Build ID:     "+version.BuildID()+"\n")
}

func TestCheckCommand(t *testing.T) {
	root := setupProject(t, "")

	out, err := runApp(t, "--root", root, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "OK: 3 rules from 2 catalog files")
}

func TestCheckCommand_AllDisabled(t *testing.T) {
	root := setupProject(t, `
catalog {
    disable "prefer-isempty" "stream-foreach" "prefer-isblank"
}
`)

	_, err := runApp(t, "--root", root, "check")
	assert.ErrorIs(t, err, catalog.ErrNoRules)
}

func TestCheckCommand_BadCatalog(t *testing.T) {
	root := setupProject(t, "")
	require.NoError(t, os.WriteFile(filepath.Join(root, "rules", "bad.toml"),
		[]byte("[[rule]]\nname = \"stream-foreach\"\nrequires = [[\"x\"]]\n"), 0644))

	_, err := runApp(t, "--root", root, "check")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate rule name")
}

func TestExplicitConfigFile(t *testing.T) {
	root := setupProject(t, "")
	cfgPath := filepath.Join(t.TempDir(), "custom.kdl")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
catalog {
    include "rules/strings/*.toml"
}
`), 0644))

	out, err := runApp(t, "--root", root, "--config", cfgPath, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "OK: 1 rules from 1 catalog files")
}

func TestMissingCatalog(t *testing.T) {
	_, err := runApp(t, "--root", t.TempDir(), "stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no catalog files")
}

func TestOpenDebugLog_MCPMode(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	prevDebug, prevMode := debug.EnableDebug, debug.MCPMode
	t.Cleanup(func() {
		debug.EnableDebug = prevDebug
		debug.SetMCPMode(prevMode)
		debug.SetDebugOutput(nil)
	})
	debug.EnableDebug = "true"
	debug.SetMCPMode(true)

	var errOut bytes.Buffer
	closeLog, err := openDebugLog(&errOut)
	require.NoError(t, err)
	debug.LogMCP("serving %d tools\n", 5)
	closeLog()

	path := strings.TrimSpace(strings.TrimPrefix(errOut.String(), "debug log: "))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[DEBUG:MCP] serving 5 tools")
}
