// Package model defines the data structures used throughout the application.
package model

import (
	"fmt"
	"time"
)

// Kind classifies a scored contribution.
type Kind string

const (
	KindPullRequest Kind = "pull_request"
	KindIssue       Kind = "issue"
	KindComment     Kind = "comment"
	KindReview      Kind = "review"
	KindMerged      Kind = "merged"
)

// Kinds lists every Kind in report order.
var Kinds = []Kind{KindPullRequest, KindIssue, KindComment, KindReview, KindMerged}

// Score returns the points assigned to an interaction of this kind when it is
// written. Stored rows keep the score they were written with.
func (k Kind) Score() float64 {
	switch k {
	case KindPullRequest:
		return -5
	case KindIssue:
		return -5
	case KindComment:
		return 1
	case KindReview:
		return 2.5
	case KindMerged:
		return 10
	default:
		return 0
	}
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindPullRequest, KindIssue, KindComment, KindReview, KindMerged:
		return true
	default:
		return false
	}
}

// ParseKind converts a stored or user-supplied string into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("model: unknown interaction kind %q", s)
	}
	return k, nil
}

// State is the soft-delete flag shared by interactions and installations.
// Rows are never physically removed.
type State string

const (
	StateActive  State = "active"
	StateDeleted State = "deleted"
)

// Interaction is one scored GitHub activity attributed to a user.
//
// The natural key is (Kind, RepositoryID, Number, ExternalID, UserID).
// ExternalID is GitHub's id for the pull request, comment or review.
type Interaction struct {
	ID           string    `json:"id"           db:"id"`
	Kind         Kind      `json:"kind"         db:"kind"`
	State        State     `json:"state"        db:"state"`
	RepositoryID int64     `json:"repositoryId" db:"repository_id"`
	Number       int64     `json:"number"       db:"number"`
	ExternalID   int64     `json:"externalId"   db:"external_id"`
	UserID       int64     `json:"userId"       db:"user_id"`
	UserLogin    string    `json:"userLogin"    db:"user_login"`
	Score        float64   `json:"score"        db:"score"`
	Timestamp    time.Time `json:"timestamp"    db:"ts"`
}
