package report_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/relplan/relplan/internal/change"
	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/internal/graph"
	"github.com/relplan/relplan/internal/manifest"
	"github.com/relplan/relplan/internal/policy"
	"github.com/relplan/relplan/internal/registry"
	"github.com/relplan/relplan/internal/report"
	"github.com/relplan/relplan/internal/workspace"
	"github.com/relplan/relplan/pkg/log"
	"github.com/relplan/relplan/test/helpers"
)

type diffVCS struct {
	files []string
}

func (vcs diffVCS) Resolve(_ context.Context, ref string) (string, error) {
	return "sha-" + ref, nil
}

func (vcs diffVCS) Diff(context.Context, string, string) ([]string, error) {
	return vcs.files, nil
}

func (vcs diffVCS) WorktreeChanges(context.Context) ([]string, error) {
	return nil, nil
}

func existing(refs ...string) registry.Client {
	set := make(map[string]bool, len(refs))
	for _, ref := range refs {
		set[ref] = true
	}

	return registry.ClientFunc(func(_ context.Context, name, version string) (bool, error) {
		return set[name+"@"+version], nil
	})
}

// scenarioReport runs the whole pipeline over the scenario repository with standalone changed.
func scenarioReport(t *testing.T) *report.WorkspaceReport {
	t.Helper()

	l := log.Discard()

	scan, err := workspace.Scan(t.Context(), l, helpers.ScenarioDir(t), workspace.DefaultOptions())
	require.NoError(t, err)

	g, err := graph.Build(l, scan.Packages, graph.Options{})
	require.NoError(t, err)

	changeSet, err := change.Detect(t.Context(), l, g, diffVCS{files: []string{"standalone/src/lib.txt"}}, change.Request{BaseRef: "main"})
	require.NoError(t, err)

	clients := &registry.Set{
		Sources: map[string]registry.Client{
			"internal": existing("standalone@0.4.0.203"),
		},
		Container: existing("ghcr.io/acme/foo@1.3.44.203"),
		Binary:    existing("foo/nightly/foo-x86_64-unknown-linux-gnu@1.3.44.203"),
		Language: registry.ClientFunc(func(_ context.Context, name, _ string) (bool, error) {
			if name == "@acme/bar_nested" {
				return false, errors.New(registry.UnavailableError{Registry: "language", Err: errors.New("timeout")})
			}

			return true, nil
		}),
	}

	opts := policy.DefaultOptions()
	opts.Mode = policy.ModeNightly
	opts.Now = func() time.Time { return time.Date(2024, time.July, 22, 9, 30, 0, 0, time.UTC) }

	planner, err := policy.NewPlanner(clients, nil, opts)
	require.NoError(t, err)

	plan, err := planner.Plan(t.Context(), l, g, changeSet)
	require.NoError(t, err)

	return report.Assemble(scan, g, changeSet, plan)
}

func TestAssemble(t *testing.T) {
	t.Parallel()

	doc := scenarioReport(t)

	assert.Equal(t, report.SchemaVersion, doc.SchemaVersion)
	assert.Equal(t, []string{"bar", "bar_nested", "baz_member1", "foo", "foo_member1", "skipped", "standalone"}, doc.Names())
	require.NotNil(t, doc.GeneratedAt)

	require.NotNil(t, doc.Change)
	assert.Equal(t, "diff", doc.Change.Mode)
	assert.Equal(t, "sha-main", doc.Change.BaseCommit)
	assert.Equal(t, "HEAD", doc.Change.HeadRef)
	assert.Equal(t, []string{"standalone/src/lib.txt"}, doc.Change.Files)

	standalone := doc.Package("standalone")
	require.NotNil(t, standalone)
	assert.True(t, standalone.Changed)
	assert.True(t, standalone.DirectlyChanged)
	assert.False(t, standalone.DependenciesChanged)
	assert.Equal(t, "published", standalone.Decisions[manifest.ChannelSource].Status)
	assert.False(t, standalone.ShouldPublish)

	member := doc.Package("foo_member1")
	require.NotNil(t, member)
	assert.Equal(t, "member", member.Role)
	assert.Equal(t, "foo", member.Workspace)
	assert.True(t, member.Changed)
	assert.False(t, member.DirectlyChanged)
	assert.True(t, member.DependenciesChanged)
	assert.Equal(t, []string{"standalone"}, member.Dependencies)
	assert.Greater(t, member.Position, doc.Package("standalone").Position)
	assert.Equal(t, "1.3.44", member.DeclaredVersion)
	assert.Equal(t, "1.3.44.203", member.Version)
	assert.Equal(t, "nightly", member.Mode)
	assert.True(t, member.ShouldPublish)

	foo := doc.Package("foo")
	require.NotNil(t, foo)
	assert.False(t, foo.Changed)
	assert.Equal(t, "published", foo.Decisions[manifest.ChannelContainer].Status)

	binary := foo.Decisions[manifest.ChannelBinary]
	assert.Equal(t, "publish", binary.Status)
	require.NotNil(t, binary.AlreadyPublished)
	assert.False(t, *binary.AlreadyPublished)
	assert.Len(t, binary.Artifacts, 2)
	assert.Equal(t, []policy.Artifact{{Name: "foo/nightly/foo-x86_64-pc-windows-msvc", Version: "1.3.44.203"}}, binary.Missing)

	nested := doc.Package("bar_nested")
	require.NotNil(t, nested)
	language := nested.Decisions[manifest.ChannelLanguage]
	assert.Equal(t, "unknown", language.Status)
	assert.Nil(t, language.AlreadyPublished)
	assert.False(t, language.ShouldPublish)
	require.NotNil(t, language.Error)
	assert.Equal(t, string(errors.KindRegistryUnavailable), language.Error.Kind)

	skipped := doc.Package("skipped")
	require.NotNil(t, skipped)
	assert.True(t, skipped.Excluded)
	assert.Empty(t, skipped.Decisions)
	assert.False(t, skipped.ShouldPublish)

	require.Len(t, doc.Errors, 1)
	assert.Equal(t, "bar_nested", doc.Errors[0].Package)
	assert.Equal(t, "language", doc.Errors[0].Channel)
	assert.Equal(t, []errors.Kind{errors.KindRegistryUnavailable}, doc.ErrorKinds())

	var virtual *report.WorkspaceEntry
	for i := range doc.Workspaces {
		if doc.Workspaces[i].Path == "baz" {
			virtual = &doc.Workspaces[i]
		}
	}

	require.NotNil(t, virtual)
	assert.True(t, virtual.Virtual)
	assert.Empty(t, virtual.Root)
	assert.Equal(t, []string{"baz_member1"}, virtual.Members)
}

func TestAssembleWithoutPlan(t *testing.T) {
	t.Parallel()

	scan := &workspace.Result{
		Errors: []*workspace.ScanError{
			{Path: "broken/release.hcl", Err: errors.New(workspace.MemberNotFoundError{Root: "broken", Member: "missing"})},
		},
	}

	doc := report.Assemble(scan, nil, nil, nil)

	assert.Nil(t, doc.GeneratedAt)
	assert.Nil(t, doc.Change)
	assert.NotNil(t, doc.Packages)
	assert.NotNil(t, doc.Workspaces)
	require.Len(t, doc.Errors, 1)
	assert.Equal(t, string(errors.KindMemberNotFound), doc.Errors[0].Kind)
	assert.Equal(t, "broken/release.hcl", doc.Errors[0].Path)

	var buf bytes.Buffer
	require.NoError(t, doc.WriteJSON(&buf))
	require.NoError(t, report.ValidateJSON(buf.Bytes()))
}

func TestJSONMatchesSchema(t *testing.T) {
	t.Parallel()

	doc := scenarioReport(t)

	var buf bytes.Buffer
	require.NoError(t, doc.WriteJSON(&buf))

	require.NoError(t, report.ValidateJSON(buf.Bytes()))
	assert.Contains(t, buf.String(), `"already_published": null`)
	assert.Contains(t, buf.String(), `"schema_version": "1"`)

	parsed, err := report.ParseJSON(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, doc.Names(), parsed.Names())
}

func TestValidateJSONRejectsInvalidDocuments(t *testing.T) {
	t.Parallel()

	err := report.ValidateJSON([]byte(`{"schema_version": "1", "workspaces": [], "packages": [{"name": 42}]}`))
	require.Error(t, err)

	var schemaErr report.SchemaValidationError
	require.ErrorAs(t, err, &schemaErr)
	assert.NotEmpty(t, schemaErr.Problems)
}

func TestUnknownFieldsAreTolerated(t *testing.T) {
	t.Parallel()

	data := []byte(`{"schema_version": "1", "workspaces": [], "packages": [], "future_field": {"a": 1}}`)

	require.NoError(t, report.ValidateJSON(data))

	doc, err := report.ParseJSON(data)
	require.NoError(t, err)
	assert.Empty(t, doc.Packages)
}

func TestWriteYAML(t *testing.T) {
	t.Parallel()

	doc := scenarioReport(t)

	var buf bytes.Buffer
	require.NoError(t, doc.WriteYAML(&buf))

	var decoded struct {
		SchemaVersion string `yaml:"schema_version"`
		Packages      []struct {
			Name string `yaml:"name"`
		} `yaml:"packages"`
	}

	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "1", decoded.SchemaVersion)
	assert.Len(t, decoded.Packages, 7)
	assert.Equal(t, "bar", decoded.Packages[0].Name)
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	doc := scenarioReport(t)

	var buf bytes.Buffer
	require.NoError(t, doc.WriteCSV(&buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	// bar, bar_nested, baz_member1, foo (two channels), foo_member1, skipped, standalone
	require.Len(t, records, 9)
	assert.Equal(t, "Package", records[0][0])

	var fooRows [][]string
	for _, record := range records[1:] {
		if record[0] == "foo" {
			fooRows = append(fooRows, record)
		}
	}

	require.Len(t, fooRows, 2)
	assert.Equal(t, []string{"foo", "foo", "foo", "1.3.44.203", "false", "container", "published", "true", "false", ""}, fooRows[0])
	assert.Equal(t, []string{"foo", "foo", "foo", "1.3.44.203", "false", "binary", "publish", "false", "true", ""}, fooRows[1])

	for _, record := range records[1:] {
		if record[0] == "bar_nested" {
			assert.Equal(t, []string{"unknown", "", "false", "registry_unavailable"}, record[6:])
		}
	}
}

func TestWriteSummary(t *testing.T) {
	t.Parallel()

	doc := scenarioReport(t)

	summary := doc.Summarize()
	assert.Equal(t, report.Summary{Packages: 7, Publish: 3, Published: 2, Unknown: 1, Excluded: 1}, summary)

	var buf bytes.Buffer
	require.NoError(t, doc.WriteSummary(&buf, report.NewColorizer(false)))

	output := buf.String()
	assert.Contains(t, output, "❯❯ Release Plan  7 packages")
	assert.NotContains(t, output, "\x1b[")

	rows := map[string][]string{}

	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 7 {
			rows[fields[1]] = fields
		}
	}

	assert.Equal(t, []string{"Workspace", "Package", "Version", "source", "container", "binary", "language"}, rows["Package"])
	assert.Equal(t, []string{"foo", "foo", "1.3.44.203", "-", "published", "publish", "-"}, rows["foo"])
	assert.Equal(t, []string{"standalone", "standalone*", "0.4.0.203", "published", "-", "-", "-"}, rows["standalone*"])
	assert.Equal(t, []string{"bar/bar_nested", "bar_nested", "0.1.0.203", "-", "-", "-", "unknown"}, rows["bar_nested"])
	assert.Equal(t, []string{"skipped", "skipped", "9.9.9", "excluded", "excluded", "excluded", "excluded"}, rows["skipped"])
}

func TestWriteSummaryColors(t *testing.T) {
	t.Parallel()

	doc := scenarioReport(t)

	var buf bytes.Buffer
	require.NoError(t, doc.WriteSummary(&buf, report.NewColorizer(true)))

	assert.Contains(t, buf.String(), "\x1b[")
}

func TestWriteToFile(t *testing.T) {
	t.Parallel()

	doc := scenarioReport(t)
	path := filepath.Join(t.TempDir(), "out", "report.json")

	require.NoError(t, doc.WriteToFile(path, report.FormatJSON, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, report.ValidateJSON(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input    string
		expected report.Format
		wantErr  bool
	}{
		{input: "", expected: report.FormatJSON},
		{input: "yaml", expected: report.FormatYAML},
		{input: "CSV", expected: report.FormatCSV},
		{input: "text", expected: report.FormatText},
		{input: "xml", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()

			format, err := report.ParseFormat(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.KindConfig, errors.KindOf(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expected, format)
		})
	}
}

func TestWriteSchema(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, report.WriteSchema(&buf))

	assert.Contains(t, buf.String(), `"schema_version"`)
	assert.Contains(t, buf.String(), `"already_published"`)
}
