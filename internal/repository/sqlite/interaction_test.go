package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/commit-karma/internal/apperror"
	"github.com/sakif/commit-karma/internal/model"
)

// upsertTestInteraction writes an interaction scored from the kind table and
// fails the test on error.
func upsertTestInteraction(t *testing.T, db *DB, kind model.Kind, state model.State, repo, number, externalID, userID int64) *model.Interaction {
	t.Helper()
	in := &model.Interaction{
		Kind:         kind,
		State:        state,
		RepositoryID: repo,
		Number:       number,
		ExternalID:   externalID,
		UserID:       userID,
		UserLogin:    "user",
		Score:        kind.Score(),
	}
	if err := db.Upsert(context.Background(), in); err != nil {
		t.Fatalf("failed to upsert test interaction: %v", err)
	}
	return in
}

func countInteractions(t *testing.T, db *DB) int {
	t.Helper()
	var n int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM interactions`).Scan(&n); err != nil {
		t.Fatalf("counting interactions: %v", err)
	}
	return n
}

// =========================================================================
// UPSERT TESTS
// =========================================================================

func TestUpsert_Insert(t *testing.T) {
	db := newTestDB(t)

	in := &model.Interaction{
		Kind:         model.KindPullRequest,
		State:        model.StateActive,
		RepositoryID: 100,
		Number:       7,
		ExternalID:   5001,
		UserID:       1,
		UserLogin:    "octocat",
		Score:        -5,
	}
	if err := db.Upsert(context.Background(), in); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if in.ID == "" {
		t.Error("Upsert() did not set ID")
	}
	if in.Timestamp.IsZero() {
		t.Error("Upsert() did not set Timestamp")
	}

	got, err := db.SearchOne(context.Background(), model.KindPullRequest, 5001)
	if err != nil {
		t.Fatalf("SearchOne() error = %v", err)
	}
	if got.ID != in.ID {
		t.Errorf("ID = %q, want %q", got.ID, in.ID)
	}
	if got.Number != 7 || got.RepositoryID != 100 || got.UserID != 1 {
		t.Errorf("key fields = (%d, %d, %d), want (100, 7, 1)", got.RepositoryID, got.Number, got.UserID)
	}
	if got.Score != -5 {
		t.Errorf("Score = %v, want -5", got.Score)
	}
	if got.State != model.StateActive {
		t.Errorf("State = %q, want %q", got.State, model.StateActive)
	}
	if got.UserLogin != "octocat" {
		t.Errorf("UserLogin = %q, want %q", got.UserLogin, "octocat")
	}
}

func TestUpsert_Idempotent(t *testing.T) {
	db := newTestDB(t)

	first := upsertTestInteraction(t, db, model.KindComment, model.StateActive, 100, 3, 9001, 2)
	second := upsertTestInteraction(t, db, model.KindComment, model.StateActive, 100, 3, 9001, 2)

	if first.ID != second.ID {
		t.Errorf("second Upsert() id = %q, want %q", second.ID, first.ID)
	}
	if n := countInteractions(t, db); n != 1 {
		t.Errorf("row count = %d, want 1", n)
	}

	karma, err := db.CalculateKarma(context.Background(), 2)
	if err != nil {
		t.Fatalf("CalculateKarma() error = %v", err)
	}
	if karma.Score != 1 {
		t.Errorf("Score = %v, want 1 (redelivery must not double count)", karma.Score)
	}
}

func TestUpsert_OverwritesMutableFields(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	orig := upsertTestInteraction(t, db, model.KindComment, model.StateActive, 100, 3, 9001, 2)

	update := &model.Interaction{
		Kind:         model.KindComment,
		State:        model.StateDeleted,
		RepositoryID: 100,
		Number:       3,
		ExternalID:   9001,
		UserID:       2,
		UserLogin:    "renamed",
		Score:        1,
	}
	if err := db.Upsert(ctx, update); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if update.ID != orig.ID {
		t.Errorf("ID changed from %q to %q", orig.ID, update.ID)
	}

	got, err := db.SearchOne(ctx, model.KindComment, 9001)
	if err != nil {
		t.Fatalf("SearchOne() error = %v", err)
	}
	if got.State != model.StateDeleted {
		t.Errorf("State = %q, want %q", got.State, model.StateDeleted)
	}
	if got.UserLogin != "renamed" {
		t.Errorf("UserLogin = %q, want %q", got.UserLogin, "renamed")
	}
	if n := countInteractions(t, db); n != 1 {
		t.Errorf("row count = %d, want 1 (soft delete keeps the row)", n)
	}
}

func TestUpsert_DistinctKeys(t *testing.T) {
	db := newTestDB(t)

	// Same external id, different users: two rows.
	upsertTestInteraction(t, db, model.KindReview, model.StateActive, 100, 7, 77, 1)
	upsertTestInteraction(t, db, model.KindReview, model.StateActive, 100, 7, 77, 2)
	// Same everything but kind: another row.
	upsertTestInteraction(t, db, model.KindComment, model.StateActive, 100, 7, 77, 1)

	if n := countInteractions(t, db); n != 3 {
		t.Errorf("row count = %d, want 3", n)
	}
}

// =========================================================================
// SEARCH TESTS
// =========================================================================

func TestSearchOne_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.SearchOne(context.Background(), model.KindPullRequest, 404)
	if err == nil {
		t.Fatal("SearchOne() should fail for an unknown pull request")
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("SearchOne() error = %v, want ErrNotFound", err)
	}
}

func TestSearchOne_FiltersByKind(t *testing.T) {
	db := newTestDB(t)

	upsertTestInteraction(t, db, model.KindComment, model.StateActive, 100, 7, 55, 1)

	if _, err := db.SearchOne(context.Background(), model.KindPullRequest, 55); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("SearchOne(pull_request) error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// KARMA TESTS
// =========================================================================

func TestCalculateKarma_SumsActiveByKind(t *testing.T) {
	db := newTestDB(t)

	upsertTestInteraction(t, db, model.KindComment, model.StateActive, 100, 1, 11, 5)
	upsertTestInteraction(t, db, model.KindComment, model.StateActive, 100, 2, 12, 5)
	upsertTestInteraction(t, db, model.KindReview, model.StateActive, 100, 2, 13, 5)

	karma, err := db.CalculateKarma(context.Background(), 5)
	if err != nil {
		t.Fatalf("CalculateKarma() error = %v", err)
	}

	if karma.Score != 4.5 {
		t.Errorf("Score = %v, want 4.5", karma.Score)
	}
	if karma.Kinds[model.KindComment] != 2 {
		t.Errorf("Kinds[comment] = %d, want 2", karma.Kinds[model.KindComment])
	}
	if karma.Kinds[model.KindReview] != 1 {
		t.Errorf("Kinds[review] = %d, want 1", karma.Kinds[model.KindReview])
	}
	if len(karma.Kinds) != 2 {
		t.Errorf("Kinds = %v, want only comment and review", karma.Kinds)
	}
}

func TestCalculateKarma_IgnoresDeletedAndOtherUsers(t *testing.T) {
	db := newTestDB(t)

	upsertTestInteraction(t, db, model.KindPullRequest, model.StateActive, 100, 1, 21, 5)
	upsertTestInteraction(t, db, model.KindComment, model.StateDeleted, 100, 1, 22, 5)
	upsertTestInteraction(t, db, model.KindReview, model.StateActive, 100, 1, 23, 6)

	karma, err := db.CalculateKarma(context.Background(), 5)
	if err != nil {
		t.Fatalf("CalculateKarma() error = %v", err)
	}

	if karma.Score != -5 {
		t.Errorf("Score = %v, want -5", karma.Score)
	}
	if _, ok := karma.Kinds[model.KindComment]; ok {
		t.Error("deleted comment should not be counted")
	}
}

func TestCalculateKarma_StoredScoreWins(t *testing.T) {
	db := newTestDB(t)

	// A row written under an older score table keeps its score.
	in := &model.Interaction{
		Kind: model.KindReview, State: model.StateActive,
		RepositoryID: 1, Number: 1, ExternalID: 1, UserID: 8,
		UserLogin: "old", Score: 3,
	}
	if err := db.Upsert(context.Background(), in); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	karma, err := db.CalculateKarma(context.Background(), 8)
	if err != nil {
		t.Fatalf("CalculateKarma() error = %v", err)
	}
	if karma.Score != 3 {
		t.Errorf("Score = %v, want 3", karma.Score)
	}
}

func TestCalculateKarma_UnknownUser(t *testing.T) {
	db := newTestDB(t)

	karma, err := db.CalculateKarma(context.Background(), 12345)
	if err != nil {
		t.Fatalf("CalculateKarma() error = %v", err)
	}
	if karma.Score != 0 || len(karma.Kinds) != 0 {
		t.Errorf("CalculateKarma() = %+v, want empty snapshot", karma)
	}
}

// =========================================================================
// UNKNOWN KIND TESTS
// =========================================================================

// insertRawKind writes a row whose kind no current Kind constant names.
func insertRawKind(t *testing.T, db *DB, kind string, externalID, userID int64) {
	t.Helper()
	_, err := db.conn.Exec(
		`INSERT INTO interactions (id, kind, state, repository_id, number, external_id, user_id, user_login, score)
		 VALUES (?, ?, 'active', 1, 1, ?, ?, 'legacy', 1)`,
		"raw-"+kind, kind, externalID, userID,
	)
	if err != nil {
		t.Fatalf("inserting raw row: %v", err)
	}
}

func TestSearchOne_RejectsUnknownStoredKind(t *testing.T) {
	db := newTestDB(t)
	insertRawKind(t, db, "star", 77, 3)

	if _, err := db.SearchOne(context.Background(), model.Kind("star"), 77); err == nil {
		t.Fatal("SearchOne() error = nil, want unknown kind error")
	}
}

func TestCalculateKarma_RejectsUnknownStoredKind(t *testing.T) {
	db := newTestDB(t)
	upsertTestInteraction(t, db, model.KindIssue, model.StateActive, 1, 2, 10, 3)
	insertRawKind(t, db, "star", 77, 3)

	if _, err := db.CalculateKarma(context.Background(), 3); err == nil {
		t.Fatal("CalculateKarma() error = nil, want unknown kind error")
	}
}
