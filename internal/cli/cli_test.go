package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlAnalysis = `id: an-yaml
name: support
agent_data:
  agents:
    - id: triage
      name: Triage
      tools:
        - lookup
        - name: escalate
      model_config:
        model: gpt-4o
    - id: resolver
      name: Resolver
  tools:
    - id: lookup
      name: lookup
    - id: escalate
      name: escalate
  relationships:
    - id: r1
      from_agent_id: triage
      to_agent_id: resolver
      type: sequential
test_cases:
  - id: tc1
    session_id: s1
    highlight_elements: [triage]
`

type cliEnv struct {
	dir    string
	config string
	db     string
}

func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	cfgPath := filepath.Join(dir, "config.toml")
	body := "[server]\nexport_dir = \"" + filepath.ToSlash(filepath.Join(dir, "exports")) + "\"\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))
	return cliEnv{dir: dir, config: cfgPath, db: filepath.Join(dir, "scope.db")}
}

func (e cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", e.config, "--db", e.db}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestImportListAndSummary(t *testing.T) {
	env := newCLIEnv(t)
	file := filepath.Join(env.dir, "support.yaml")
	require.NoError(t, os.WriteFile(file, []byte(yamlAnalysis), 0o644))

	out, err := env.run(t, "import", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported support (an-yaml): 2 agents, 2 tools, 1 relationships, 1 tests")

	out, err = env.run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "an-yaml")
	assert.Contains(t, out, "2 agents, 1 tests")

	out, err = env.run(t, "summary", "an-yaml", "--cost", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "Triage")
	assert.Contains(t, out, "COST/DAY")
	assert.Contains(t, out, "vs neutral")
	assert.Contains(t, out, "+100.0%", "cost divides by the inverted cost factor")
}

func TestImportBareAgentDataJSON(t *testing.T) {
	env := newCLIEnv(t)
	file := filepath.Join(env.dir, "bare.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"agents":[{"id":"solo"}],"tools":[],"relationships":[]}`), 0o644))

	out, err := env.run(t, "import", file, "--id", "an-bare")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported bare (an-bare): 1 agents")

	empty := filepath.Join(env.dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"name":"nothing"}`), 0o644))
	_, err = env.run(t, "import", empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no agents found")
}

func TestResultRunningAndRender(t *testing.T) {
	env := newCLIEnv(t)
	file := filepath.Join(env.dir, "support.yaml")
	require.NoError(t, os.WriteFile(file, []byte(yamlAnalysis), 0o644))
	_, err := env.run(t, "import", file)
	require.NoError(t, err)

	out, err := env.run(t, "running", "an-yaml", "s1-tc1")
	require.NoError(t, err)
	assert.Contains(t, out, "Running s1-tc1")

	_, err = env.run(t, "result", "an-yaml", "--test", "tc1", "--status", "bogus")
	require.Error(t, err)

	out, err = env.run(t, "result", "an-yaml", "--test", "tc1", "--session", "s1", "--status", "failed", "--issue", "no refund branch")
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded failed for s1-tc1")

	out, err = env.run(t, "render", "an-yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote an-yaml/scene.svg")
	svg, err := os.ReadFile(filepath.Join(env.dir, "exports", "an-yaml", "scene.svg"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(svg), "<svg"))

	out, err = env.run(t, "render", "an-yaml", "--format", "json", "--out", "reports/frame.json")
	require.NoError(t, err)
	assert.Contains(t, out, "reports/frame.json")

	_, err = env.run(t, "render", "an-yaml", "--out", "../escape.svg")
	require.Error(t, err)

	_, err = env.run(t, "summary", "missing")
	require.Error(t, err)
}
