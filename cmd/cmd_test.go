// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCommand runs the root command with the given args, capturing
// combined output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeFragment(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fragment.js")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, Version)
}

func TestAnalyzeCommand_WritesJSONReport(t *testing.T) {
	fragment := writeFragment(t, `db.execute("SELECT * FROM users WHERE id = " + req.query.id);`)
	reportPath := filepath.Join(t.TempDir(), "report.json")

	_, err := executeCommand(t, "analyze", fragment, "--format", "json", "--output", reportPath)
	require.NoError(t, err)

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)

	var report map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, "taintcore", report["tool"])
	assert.Equal(t, fragment, report["target"])

	findings, ok := report["findings"].([]interface{})
	require.True(t, ok, "report should contain findings")
	require.Len(t, findings, 1)
	finding := findings[0].(map[string]interface{})
	assert.Equal(t, "Critical", finding["severity"])
}

func TestAnalyzeCommand_ASTRecognizer(t *testing.T) {
	fragment := writeFragment(t, `const id = req.query.id; eval(id);`)
	reportPath := filepath.Join(t.TempDir(), "report.json")

	_, err := executeCommand(t, "analyze", fragment, "-r", "ast", "-o", reportPath)
	require.NoError(t, err)

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "DYNAMIC_CODE_EXEC")
}

func TestAnalyzeCommand_UnknownRecognizer(t *testing.T) {
	fragment := writeFragment(t, `const x = 1;`)

	_, err := executeCommand(t, "analyze", fragment, "-r", "quantum")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown recognizer")
}

func TestAnalyzeCommand_RequiresExactlyOneArg(t *testing.T) {
	_, err := executeCommand(t, "analyze")
	require.Error(t, err)
}

func TestAnalyzeCommand_MissingFile(t *testing.T) {
	_, err := executeCommand(t, "analyze", filepath.Join(t.TempDir(), "nope.js"), "-r", "regex")
	require.Error(t, err)
}
