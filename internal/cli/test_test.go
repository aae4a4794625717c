package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const harnessScenarios = "../harness/testdata/scenarios"

const failingScenario = `name: wrong_amount
description: expects the wrong discount
promotions:
  - id: flat
    name: flat
    times: 1
    then:
      - action: createOrderDiscount
        discount: "100"
facts:
  items: []
expect:
  discounts:
    - promotionId: flat
      type: orderDiscount
      centAmount: -999
`

func TestTest_AllPass(t *testing.T) {
	out, err := execute(t, "test", harnessScenarios)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ shoes_trainers")
	assert.Contains(t, out, "✓ unknown_action")
	assert.Contains(t, out, "Test Summary: 4 passed, 0 failed, 4 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTest_Filter(t *testing.T) {
	out, err := execute(t, "test", harnessScenarios, "--filter", "shoes*", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, "shoes_trainers", resp.Data.Scenarios[0].Name)
}

func TestTest_Failure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "wrong_amount.yaml", failingScenario)

	out, err := execute(t, "test", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 1, resp.Data.Failed)
	require.NotEmpty(t, resp.Data.Scenarios[0].Errors)
	assert.Contains(t, resp.Data.Scenarios[0].Errors[0], "discounts mismatch")
}

func TestTest_LoadError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", "name: broken\n")

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTest_UpdateThenCompareGolden(t *testing.T) {
	dir := t.TempDir()
	src, err := os.ReadFile(filepath.Join(harnessScenarios, "shoes_trainers.yaml"))
	require.NoError(t, err)
	writeFile(t, dir, "shoes_trainers.yaml", string(src))

	_, err = execute(t, "test", dir, "--update")
	require.NoError(t, err)

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "shoes_trainers.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile("../harness/testdata/golden/shoes_trainers.golden")
	require.NoError(t, err)
	assert.Equal(t, string(want), string(golden))

	out, err := execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed")

	writeFile(t, dir, "golden/shoes_trainers.golden", `{"scenario":"stale"}`)
	out, err = execute(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "outcome does not match golden file")
}

func TestTest_SpecsBasePath(t *testing.T) {
	dir := t.TempDir()
	src, err := os.ReadFile(filepath.Join(harnessScenarios, "spec_file_chain.yaml"))
	require.NoError(t, err)
	writeFile(t, dir, "scenarios/spec_file_chain.yaml", string(src))

	_, err = execute(t, "test", filepath.Join(dir, "scenarios"))
	require.Error(t, err, "promotion file paths resolve against the scenario directory by default")

	out, err := execute(t, "test", filepath.Join(dir, "scenarios"), "--specs", harnessScenarios)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ spec_file_chain")
}

func TestTest_NoScenarios(t *testing.T) {
	out, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)
}

func TestTest_MissingDirectory(t *testing.T) {
	_, err := execute(t, "test", "testdata/no-such-dir")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestFindScenarioFiles_SkipsGolden(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "")
	writeFile(t, dir, "nested/b.yml", "")
	writeFile(t, dir, "golden/a.yaml", "")
	writeFile(t, dir, "notes.txt", "")

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yaml"),
		filepath.Join(dir, "nested", "b.yml"),
	}, files)

	_, err = findScenarioFiles(dir, "[")
	require.Error(t, err)
}
