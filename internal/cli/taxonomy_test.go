package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/csom/internal/testutil"
)

const marketingManifest = `groups: [{
	name: "Marketing"
	termSets: [{name: "Regions"}]
}]
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taxonomy.cue")
	writeFile(t, path, content)
	return path
}

func TestTaxonomyApply_DryRun(t *testing.T) {
	p := testutil.NewScriptedPoster()
	opts := newTestOptions(t, p)
	opts.SiteURL = ""
	path := writeManifest(t, marketingManifest)

	out, err := execute(t, opts, "--format", "json", "taxonomy", "apply", path, "--dry-run")
	require.NoError(t, err)
	assert.Empty(t, p.Requests())

	steps, ok := decodeResponse(t, out).Data.([]any)
	require.True(t, ok)
	require.Len(t, steps, 2)
	assert.Equal(t, map[string]any{"kind": "group", "path": "Marketing", "id": firstGuid}, steps[0])
	assert.Equal(t, map[string]any{
		"kind": "termSet",
		"path": "Marketing/Regions",
		"id":   "00000000-0000-4000-8000-000000000002",
	}, steps[1])
}

func TestTaxonomyApply(t *testing.T) {
	p := testutil.NewScriptedPoster(groupCreated(), termSetCreated())
	opts := newTestOptions(t, p)
	path := writeManifest(t, marketingManifest)

	out, err := execute(t, opts, "taxonomy", "apply", path)
	require.NoError(t, err)
	assert.Contains(t, out, "2 of 2 objects created")

	bodies := p.Bodies()
	require.Len(t, bodies, 2)
	assert.Contains(t, bodies[0], `<Parameter Type="String">Marketing</Parameter><Parameter Type="Guid">{`+firstGuid+`}</Parameter>`)
	assert.Contains(t, bodies[1], `Name="GetById"><Parameters><Parameter Type="Guid">{`+firstGuid+`}</Parameter>`)
	assert.Contains(t, bodies[1], `<Parameter Type="Guid">{00000000-0000-4000-8000-000000000002}</Parameter>`)
}

func TestTaxonomyApply_StopsAtFailure(t *testing.T) {
	p := testutil.NewScriptedPoster(groupCreated(), duplicateName())
	opts := newTestOptions(t, p)
	path := writeManifest(t, marketingManifest)

	out, err := execute(t, opts, "--format", "json", "taxonomy", "apply", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "BUSINESS_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, `termSet "Marketing/Regions"`)

	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(2), data["total"])
	assert.Len(t, data["applied"], 1)
}

func TestTaxonomyApply_InvalidManifest(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		wantCode string
	}{
		{"unknown field", "groups: [{name: \"A\", colour: \"red\"}]\n", "INVALID_MANIFEST"},
		{"duplicate group", "groups: [{name: \"A\"}, {name: \"a\"}]\n", "INVALID_MANIFEST"},
		{"bad name", "groups: [{name: \"A|B\"}]\n", "INVALID_ARGUMENT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testutil.NewScriptedPoster()
			opts := newTestOptions(t, p)
			path := writeManifest(t, tt.manifest)

			out, err := execute(t, opts, "--format", "json", "taxonomy", "apply", path)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Empty(t, p.Requests())

			resp := decodeResponse(t, out)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestTaxonomyApply_MissingFile(t *testing.T) {
	opts := newTestOptions(t, testutil.NewScriptedPoster())
	_, err := execute(t, opts, "taxonomy", "apply", filepath.Join(t.TempDir(), "nope.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
