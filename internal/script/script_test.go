package script

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/clocksmith/benzo/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keys(steps []Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Key
	}
	return out
}

func TestSortSteps_NumericOrder(t *testing.T) {
	steps := []Step{{Key: "step10"}, {Key: "intro"}, {Key: "step2"}, {Key: "step1"}, {Key: "7"}}
	SortSteps(steps)
	assert.Equal(t, []string{"step1", "step2", "7", "step10", "intro"}, keys(steps))
}

func TestParseStep(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		command Command
		message string
		params  string
	}{
		{"command then message", `{"reset": null, "message": "hi"}`, CmdReset, "hi", "null"},
		{"message first", `{"message": "hi", "add_node": {"nodeId": "a"}}`, CmdAddNode, "hi", `{"nodeId": "a"}`},
		{"message inside params", `{"connect_nodes": {"node1": "a", "node2": "b", "message": "link"}}`, CmdConnectNodes, "link", ""},
		{"message only", `{"message": "just text"}`, CmdMessageOnly, "just text", ""},
		{"first command wins", `{"straighten_path": null, "compress_path": null}`, CmdStraightenPath, "", "null"},
		{"empty", `{}`, "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := ParseStep("k", json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.command, st.Command)
			assert.Equal(t, tt.message, st.Message)
			if tt.params != "" {
				assert.Equal(t, tt.params, string(st.Params))
			}
		})
	}
}

func TestParseJSON_SingleScriptSortsSteps(t *testing.T) {
	lib, err := ParseJSON("demo", []byte(`{
		"step10": {"message": "ten"},
		"step2": {"message": "two"},
		"step1": {"reset": {}}
	}`))
	require.NoError(t, err)
	require.Contains(t, lib, "demo")
	assert.Equal(t, []string{"step1", "step2", "step10"}, keys(lib["demo"].Steps))
}

func TestParseJSON_Library(t *testing.T) {
	lib, err := ParseJSON("ignored", []byte(`{
		"a": {"1": {"reset": null}},
		"b": {"1": {"message": "x"}, "2": {"add_triangular_grid": 2}}
	}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, lib.Names())
	assert.Equal(t, 2, lib["b"].Len())
}

func TestParseJSON_UnknownCommandsStayOneScript(t *testing.T) {
	lib, err := ParseJSON("odd", []byte(`{
		"step1": {"teleport": {"to": "mars"}},
		"step2": {"levitate": {}}
	}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"odd"}, lib.Names())
	require.Equal(t, 2, lib["odd"].Len())
	assert.Equal(t, Command("teleport"), lib["odd"].Steps[0].Command)

	s := NewSession(nil, WithLibrary(lib))
	rep, err := s.LoadScript(context.Background(), "odd")
	require.NoError(t, err)
	require.NotNil(t, rep)
	assert.ErrorIs(t, rep.Err, ErrUnknownCommand)
}

func TestParseJSON_LibraryWithNumberedNames(t *testing.T) {
	lib, err := ParseJSON("ignored", []byte(`{
		"demo1": {"1": {"reset": null}},
		"demo2": {"1": {"message": "hi"}}
	}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"demo1", "demo2"}, lib.Names())
}

func TestParseJSON_NonObjectStepIsKeptWithoutCommand(t *testing.T) {
	lib, err := ParseJSON("s", []byte(`{"1": {"reset": null}, "2": "oops"}`))
	require.NoError(t, err)
	assert.Equal(t, Command(""), lib["s"].Steps[1].Command)
}

func TestParseYAML_PreservesCommandOrder(t *testing.T) {
	lib, err := ParseYAML("y", []byte(`
"2":
  message: second
  select_path: [a, b]
"1":
  add_node:
    nodeId: a
    data: {title: A, time_estimate: 2}
`))
	require.NoError(t, err)
	s := lib["y"]
	require.Equal(t, 2, s.Len())
	assert.Equal(t, CmdAddNode, s.Steps[0].Command)
	assert.Equal(t, CmdSelectPath, s.Steps[1].Command)
	assert.Equal(t, "second", s.Steps[1].Message)
	assert.JSONEq(t, `["a","b"]`, string(s.Steps[1].Params))
}

func TestParseHCL(t *testing.T) {
	src := `
script "rings" {
  step "2" {
    command = "add_circular_rings"
    params  = { ringSizes = [3, 5] }
  }
  step "1" {
    message = "hello"
  }
}
step "1" {
  command = "reset"
}
`
	lib, err := ParseHCL("top", "test.hcl", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"rings", "top"}, lib.Names())

	rings := lib["rings"]
	require.Equal(t, 2, rings.Len())
	assert.Equal(t, CmdMessageOnly, rings.Steps[0].Command)
	assert.Equal(t, CmdAddCircularRings, rings.Steps[1].Command)
	assert.JSONEq(t, `{"ringSizes":[3,5]}`, string(rings.Steps[1].Params))
	assert.Nil(t, lib["top"].Steps[0].Params)
}

func TestParseHCL_SyntaxError(t *testing.T) {
	_, err := ParseHCL("x", "bad.hcl", []byte(`step "1" {`))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "mine.yml")
	require.NoError(t, os.WriteFile(p, []byte("\"1\":\n  reset: null\n"), 0o644))

	lib, err := LoadFile(p)
	require.NoError(t, err)
	assert.Contains(t, lib, "mine")

	bad := filepath.Join(dir, "mine.txt")
	require.NoError(t, os.WriteFile(bad, []byte("x"), 0o644))
	_, err = LoadFile(bad)
	assert.Error(t, err)

	lib, err = LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"mine"}, lib.Names())
}

func TestBuiltin(t *testing.T) {
	lib := Builtin()
	assert.Equal(t, []string{"design_cuj", "feedback_demo", "ring_demo", "simple"}, lib.Names())
	assert.Equal(t, 4, lib["simple"].Len())
	assert.Equal(t, 13, lib["ring_demo"].Len())
	assert.Equal(t, 49, lib["design_cuj"].Len())

	delete(lib, "simple")
	assert.Contains(t, Builtin(), "simple")
}

func TestBuiltin_PlayCleanly(t *testing.T) {
	for _, name := range Builtin().Names() {
		t.Run(name, func(t *testing.T) {
			var skipped []StepReport
			s := NewSession(nil, WithStepHook(func(r StepReport) {
				if r.Skipped() {
					skipped = append(skipped, r)
				}
			}))
			_, err := s.LoadScript(context.Background(), name)
			require.NoError(t, err)
			for {
				rep, err := s.StepForward(context.Background())
				require.NoError(t, err)
				if rep == nil {
					break
				}
			}
			assert.Empty(t, skipped)
		})
	}
}

func TestBuiltin_DesignCujCompressesRings(t *testing.T) {
	s := NewSession(nil)
	_, err := s.LoadScript(context.Background(), "design_cuj")
	require.NoError(t, err)
	for {
		rep, _ := s.StepForward(context.Background())
		if rep == nil {
			break
		}
	}
	store := s.Store()
	e, ok := store.Edge("node-0", "compressed_node_0_to_node_5")
	require.True(t, ok)
	assert.InDelta(t, 5*3.75, e.Weight, 1e-9)
	assert.Equal(t, graph.EdgeCompressed, e.Type)
	assert.True(t, store.Has("compressed_start_project_to_end_project"))
	assert.False(t, store.Has("start"))
}
