package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scifig/domain/analysis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTrial(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("score,arm\n")
	for i := 1; i <= 12; i++ {
		arm := "A"
		if i > 6 {
			arm = "B"
		}
		fmt.Fprintf(&b, "%d,%s\n", i, arm)
	}
	path := filepath.Join(t.TempDir(), "trial.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "disabled")
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAnalyzeJSON(t *testing.T) {
	out, err := execute(t, "analyze", "--file", writeTrial(t), "--outcome", "score", "--group", "arm")
	require.NoError(t, err)

	var outcome analysis.AnalysisOutcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcome))
	assert.Equal(t, analysis.StatusCompleted, outcome.Status)
	assert.Equal(t, analysis.TestMannWhitney, outcome.FinalResult.Test)
}

func TestAnalyzeMarkdown(t *testing.T) {
	out, err := execute(t, "analyze", "-f", writeTrial(t), "-o", "score", "-g", "arm", "--format", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "Mann-Whitney U test")
}

func TestAnalyzeFailureReturnsError(t *testing.T) {
	out, err := execute(t, "analyze", "--file", writeTrial(t), "--outcome", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis failed")
	assert.Contains(t, out, `"status": "failed"`)
}

func TestAnalyzeUnknownFormat(t *testing.T) {
	_, err := execute(t, "analyze", "--file", writeTrial(t), "--outcome", "score", "--group", "arm", "--format", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestRecommend(t *testing.T) {
	out, err := execute(t, "recommend", "--file", writeTrial(t), "--outcome", "score", "--group", "arm")
	require.NoError(t, err)

	var body struct {
		Recommendation analysis.Recommendation `json:"recommendation"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, analysis.TestMannWhitney, body.Recommendation.Primary)
}

func TestAssumptions(t *testing.T) {
	out, err := execute(t, "assumptions", "--file", writeTrial(t), "--outcome", "score", "--group", "arm")
	require.NoError(t, err)

	var checks analysis.Assumptions
	require.NoError(t, json.Unmarshal([]byte(out), &checks))
	assert.NotEmpty(t, checks)
}

func TestMissingFile(t *testing.T) {
	_, err := execute(t, "analyze", "--file", filepath.Join(t.TempDir(), "nope.csv"), "--outcome", "score")
	assert.Error(t, err)
}

func TestAnalyzeHelpListsTestKinds(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"analyze", "--help"})
	require.NoError(t, cmd.Execute())

	for _, k := range analysis.AllTestKinds() {
		assert.Contains(t, out.String(), string(k))
	}
}
