package manifest_test

import (
	"testing"

	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/internal/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePackage(t *testing.T) {
	t.Parallel()

	content := `
package "foo_member1" {
  version = "2.0.1-rc.1"
}

dependency "standalone" {}

dependency "test_helpers" {
  kind = "dev"
}

publish {
  source {
    registries = ["internal"]
  }
  language {
    scope = "acme"
  }
}
`

	file, err := manifest.NewParser().ParseBytes([]byte(content), "foo/foo_member1/release.hcl")
	require.NoError(t, err)
	assert.True(t, file.HasPackage)
	assert.False(t, file.HasWorkspace)

	ws, err := file.DecodeWorkspace()
	require.NoError(t, err)
	assert.Nil(t, ws)

	pkg, err := file.DecodePackage(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "foo_member1", pkg.Name)
	assert.Equal(t, "2.0.1-rc.1", pkg.RawVersion())
	assert.Equal(t, []manifest.Dependency{
		{Name: "standalone", Kind: manifest.DependencyNormal},
		{Name: "test_helpers", Kind: manifest.DependencyDev},
	}, pkg.Dependencies)
	assert.Equal(t, []manifest.Channel{manifest.ChannelSource, manifest.ChannelLanguage}, pkg.Publish.Channels())
	assert.Equal(t, []string{"internal"}, pkg.Publish.Source.Registries)
	assert.True(t, pkg.Publish.Declares(manifest.ChannelLanguage))
	assert.False(t, pkg.Publish.Declares(manifest.ChannelContainer))
}

func TestParseWorkspaceVariables(t *testing.T) {
	t.Parallel()

	root := `
workspace {
  version = "1.3.44"
  members = ["foo_member1"]

  publish {
    container {
      repository = "ghcr.io/acme"
    }
  }
}
`
	member := `
package "foo_member1" {
  version = workspace.version
}

publish {
  container {
    image = "member-image"
  }
}
`

	parser := manifest.NewParser()

	rootFile, err := parser.ParseBytes([]byte(root), "foo/release.hcl")
	require.NoError(t, err)
	assert.False(t, rootFile.HasPackage)
	assert.True(t, rootFile.HasWorkspace)

	ws, err := rootFile.DecodeWorkspace()
	require.NoError(t, err)
	assert.Equal(t, "1.3.44", ws.Version)
	assert.Equal(t, []string{"foo_member1"}, ws.Members)

	memberFile, err := parser.ParseBytes([]byte(member), "foo/foo_member1/release.hcl")
	require.NoError(t, err)

	pkg, err := memberFile.DecodePackage(&manifest.WorkspaceVars{Path: "foo", Version: ws.Version}, ws.Publish)
	require.NoError(t, err)
	assert.Equal(t, "1.3.44", pkg.RawVersion())
	assert.Equal(t, "ghcr.io/acme", pkg.Publish.Container.Repository)
	assert.Equal(t, "member-image", pkg.Publish.Container.Image)

	// defaults never add channels to a member
	assert.Nil(t, pkg.Publish.Source)

	_, err = memberFile.DecodePackage(nil, nil)
	require.Error(t, err)
	assert.Equal(t, errors.KindManifestParse, errors.KindOf(err))
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		content string
	}{
		{"syntax", `package "x" {`},
		{"empty", `# nothing here`},
		{"missing version", `package "x" {}`},
		{"two part version", `package "x" { version = "1.2" }`},
		{"prefixed version", `package "x" { version = "v1.2.3" }`},
		{"bad dependency kind", "package \"x\" {\n version = \"1.0.0\"\n}\ndependency \"y\" {\n kind = \"optional\"\n}\n"},
		{"unknown variable", `package "x" { version = workspace.version }`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			file, err := manifest.NewParser().ParseBytes([]byte(tc.content), "x/release.hcl")
			if err == nil {
				_, err = file.DecodePackage(nil, nil)
			}

			require.Error(t, err)

			var parseErr manifest.ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, "x/release.hcl", parseErr.Path)
			assert.Equal(t, errors.KindManifestParse, errors.KindOf(err))
		})
	}
}

func TestParseVersion(t *testing.T) {
	t.Parallel()

	for _, valid := range []string{"0.0.1", "1.3.44", "1.0.0-alpha.1", "1.0.0+build.5", "10.20.30-rc.1+meta"} {
		_, err := manifest.ParseVersion(valid)
		require.NoError(t, err, valid)
	}

	for _, invalid := range []string{"", "1", "1.2", "1.2.3.4", "a.b.c", "1..3"} {
		_, err := manifest.ParseVersion(invalid)
		require.Error(t, err, invalid)
	}
}

func TestParseChannel(t *testing.T) {
	t.Parallel()

	channel, err := manifest.ParseChannel("Container")
	require.NoError(t, err)
	assert.Equal(t, manifest.ChannelContainer, channel)

	_, err = manifest.ParseChannel("ftp")
	require.Error(t, err)
}
