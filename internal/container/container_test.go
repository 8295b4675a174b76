package container

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"popdash/adapters/excel"
	"popdash/adapters/postgres"
	"popdash/adapters/remote"
	"popdash/app"
	"popdash/domain/dataset"
	"popdash/internal/config"
	"popdash/internal/errors"
	"popdash/internal/testkit"
)

func testConfig() *config.Config {
	return &config.Config{
		Data:    config.DataConfig{FetchTimeout: time.Second, MaxUploadMB: 1},
		Logging: config.LoggingConfig{Level: "ERROR"},
	}
}

func writeProfiles(t *testing.T, dir string) *config.ProfileSet {
	t.Helper()
	csvPath := filepath.Join(dir, "age.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(testkit.AgeGroupCSV()), 0o644))

	set, err := config.ParseProfiles([]byte(`
profiles:
  - name: age
    title: Age groups
    source: {kind: file, path: ` + csvPath + `}
    period_index: 0
    row_filter: {column: region, value: X}
    blocklist: [total]
  - name: remote
    source: {kind: url, url: "https://example.org/age.csv"}
  - name: warehouse
    source: {kind: postgres, query: "SELECT * FROM population"}
`))
	require.NoError(t, err)
	return set
}

func TestSourceForEachKind(t *testing.T) {
	c, err := New(testConfig(), writeProfiles(t, t.TempDir()))
	require.NoError(t, err)

	for name, want := range map[string]interface{}{
		"age":       &excel.DataReader{},
		"remote":    &remote.URLSource{},
		"warehouse": &postgres.QuerySource{},
	} {
		p, err := c.Profile(name)
		require.NoError(t, err)
		src, err := c.SourceFor(p)
		require.NoError(t, err)
		assert.IsType(t, want, src, name)
	}

	assert.True(t, c.NeedsDatabase())
}

func TestRunProfile(t *testing.T) {
	c, err := New(testConfig(), writeProfiles(t, t.TempDir()))
	require.NoError(t, err)

	result, p, err := c.RunProfile(context.Background(), "age", nil)
	require.NoError(t, err)
	assert.Equal(t, "Age groups", p.Title)
	assert.Equal(t, []string{"0-14", "15-64", "65+"}, result.Categories)
	assert.Len(t, result.Records, 9)

	result, _, err = c.RunProfile(context.Background(), "age", func(r *app.Request) {
		sel := dataset.NewSelection("65+")
		r.Selection = &sel
	})
	require.NoError(t, err)
	assert.Len(t, result.Filtered, 3)
}

func TestRunProfileErrors(t *testing.T) {
	c, err := New(testConfig(), writeProfiles(t, t.TempDir()))
	require.NoError(t, err)

	_, _, err = c.RunProfile(context.Background(), "missing", nil)
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))

	// No database was opened, so the postgres source fails to load
	_, _, err = c.RunProfile(context.Background(), "warehouse", nil)
	assert.Equal(t, errors.CodeDataSource, errors.GetCode(err))
}

func TestInitWithDatabaseRequiresURL(t *testing.T) {
	c, err := New(testConfig(), writeProfiles(t, t.TempDir()))
	require.NoError(t, err)

	err = c.InitWithDatabase(context.Background())
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))

	empty, err := New(testConfig(), nil)
	require.NoError(t, err)
	assert.NoError(t, empty.InitWithDatabase(context.Background()))
	assert.NoError(t, empty.Close())
}
