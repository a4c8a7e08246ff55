package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/commit-karma/internal/model"
	sqliteRepo "github.com/sakif/commit-karma/internal/repository/sqlite"
)

// seed writes a small store to a temp file and returns its path.
func seed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "karma.db")
	db, err := sqliteRepo.New(path)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	for i, kind := range []model.Kind{model.KindComment, model.KindComment, model.KindReview} {
		require.NoError(t, db.Upsert(ctx, &model.Interaction{
			Kind: kind, State: model.StateActive, RepositoryID: 1, Number: 1,
			ExternalID: int64(i + 1), UserID: 42, UserLogin: "dana", Score: kind.Score(),
		}))
	}
	require.NoError(t, db.Install(ctx, &model.Installation{
		InstallationID: 900, TargetID: 5, TargetType: "Organization", RepositoryID: 7, RepositoryName: "karma",
	}))
	return path
}

func TestRun_Karma(t *testing.T) {
	path := seed(t)
	var stdout, stderr bytes.Buffer

	err := run(context.Background(), []string{"karma", "--user", "42", "--driver", "sqlite", "--db", path}, &stdout, &stderr)
	require.NoError(t, err)

	out := stdout.String()
	assert.Contains(t, out, "user 42: good karma! (success)")
	assert.Contains(t, out, "| Comments | 2 | 2 |")
	assert.Contains(t, out, "| Reviews | 1 | 2.5 |")
	assert.Contains(t, out, "|       |       | 4.5 |")
}

func TestRun_KarmaJSON(t *testing.T) {
	path := seed(t)
	var stdout bytes.Buffer

	err := run(context.Background(), []string{"karma", "--user=42", "--driver=sqlite", "--db=" + path, "--json"}, &stdout, &bytes.Buffer{})
	require.NoError(t, err)

	var got model.Karma
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	assert.Equal(t, 4.5, got.Score)
	assert.Equal(t, 2, got.Kinds[model.KindComment])
}

func TestRun_Installation(t *testing.T) {
	path := seed(t)
	var stdout bytes.Buffer

	err := run(context.Background(), []string{"installation", "--repo", "7", "--driver", "sqlite", "--db", path}, &stdout, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "installation  900")
	assert.Contains(t, stdout.String(), "repository    7 (karma)")

	err = run(context.Background(), []string{"installation", "--repo", "8", "--driver", "sqlite", "--db", path}, &stdout, &bytes.Buffer{})
	assert.ErrorContains(t, err, "not found")
}

func TestRun_BadInvocations(t *testing.T) {
	tests := [][]string{
		{},
		{"launch"},
		{"karma"},
		{"installation", "--repo", "-3"},
		{"karma", "--user", "abc"},
	}
	for _, args := range tests {
		err := run(context.Background(), args, &bytes.Buffer{}, &bytes.Buffer{})
		assert.Error(t, err, "%v", args)
	}
}
