// Package event turns raw GitHub webhook bodies into typed, validated records.
//
// Every supported X-GitHub-Event value has one record type. The records are
// flat: they carry only the ids, logins and commit shas the rest of the
// application needs, so nothing downstream ever touches the raw payload.
//
// Parse is the only entry point:
//
//	ev, err := event.Parse(r.Header.Get("X-GitHub-Event"), body)
//	switch ev := ev.(type) {
//	case *event.PullRequest: ...
//	}
package event

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/commit-karma/internal/apperror"
)

// Name is an X-GitHub-Event header value.
type Name string

const (
	NameInstallation             Name = "installation"
	NameInstallationRepositories Name = "installation_repositories"
	NameIssueComment             Name = "issue_comment"
	NamePullRequest              Name = "pull_request"
	NamePullRequestReview        Name = "pull_request_review"
	NamePullRequestReviewComment Name = "pull_request_review_comment"
	NameCheckSuite               Name = "check_suite"
	NameCheckRun                 Name = "check_run"
)

// Actions the dispatcher branches on.
const (
	ActionDeleted     = "deleted"
	ActionRequested   = "requested"
	ActionRerequested = "rerequested"
	ActionCompleted   = "completed"
)

// Event is implemented only by the record types in this package.
type Event interface {
	Name() Name
	ActionName() string
	sealed()
}

// Repository is one entry of an installation's repository list.
type Repository struct {
	ID   int64  `json:"id"   validate:"required"`
	Name string `json:"name" validate:"required"`
}

type Installation struct {
	Action         string       `validate:"required"`
	InstallationID int64        `validate:"required"`
	TargetID       int64        `validate:"required"`
	TargetType     string       `validate:"required,oneof=User Organization Enterprise"`
	Repositories   []Repository `validate:"dive"`
}

type InstallationRepositories struct {
	Action         string       `validate:"required"`
	InstallationID int64        `validate:"required"`
	TargetID       int64        `validate:"required"`
	TargetType     string       `validate:"required,oneof=User Organization Enterprise"`
	Added          []Repository `validate:"dive"`
	Removed        []Repository `validate:"dive"`
}

type IssueComment struct {
	Action           string `validate:"required"`
	RepositoryID     int64  `validate:"required"`
	Number           int64  `validate:"required"`
	IssueUserID      int64  `validate:"required"`
	CommentID        int64  `validate:"required"`
	CommentUserID    int64  `validate:"required"`
	CommentUserLogin string `validate:"required"`
}

// SelfAuthored reports a comment on the commenter's own issue.
func (e *IssueComment) SelfAuthored() bool { return e.IssueUserID == e.CommentUserID }

// PullRequest is any pull_request action. InstallationID is zero when the
// payload carries no installation.
type PullRequest struct {
	Action          string `validate:"required"`
	InstallationID  int64
	RepositoryID    int64  `validate:"required"`
	RepositoryName  string `validate:"required"`
	RepositoryOwner string `validate:"required"`
	PullRequestID   int64  `validate:"required"`
	Number          int64  `validate:"required"`
	UserID          int64  `validate:"required"`
	UserLogin       string `validate:"required"`
	HeadSHA         string `validate:"required,len=40,hexadecimal"`
}

type PullRequestReview struct {
	Action            string `validate:"required"`
	RepositoryID      int64  `validate:"required"`
	Number            int64  `validate:"required"`
	PullRequestUserID int64  `validate:"required"`
	ReviewID          int64  `validate:"required"`
	ReviewUserID      int64  `validate:"required"`
	ReviewUserLogin   string `validate:"required"`
}

// SelfAuthored reports a review of the reviewer's own pull request.
func (e *PullRequestReview) SelfAuthored() bool { return e.PullRequestUserID == e.ReviewUserID }

type PullRequestReviewComment struct {
	Action            string `validate:"required"`
	RepositoryID      int64  `validate:"required"`
	Number            int64  `validate:"required"`
	PullRequestUserID int64  `validate:"required"`
	CommentID         int64  `validate:"required"`
	CommentUserID     int64  `validate:"required"`
	CommentUserLogin  string `validate:"required"`
}

func (e *PullRequestReviewComment) SelfAuthored() bool {
	return e.PullRequestUserID == e.CommentUserID
}

// SuitePullRequest is one pull request attached to a check suite.
type SuitePullRequest struct {
	ID      int64  `validate:"required"`
	Number  int64  `validate:"required"`
	HeadSHA string `validate:"required,len=40,hexadecimal"`
}

type CheckSuite struct {
	Action          string `validate:"required"`
	InstallationID  int64
	RepositoryID    int64              `validate:"required"`
	RepositoryName  string             `validate:"required"`
	RepositoryOwner string             `validate:"required"`
	PullRequests    []SuitePullRequest `validate:"dive"`
}

// CheckRun events are accepted and ignored; this app creates check runs itself.
type CheckRun struct {
	Action string
}

func (*Installation) Name() Name             { return NameInstallation }
func (*InstallationRepositories) Name() Name { return NameInstallationRepositories }
func (*IssueComment) Name() Name             { return NameIssueComment }
func (*PullRequest) Name() Name              { return NamePullRequest }
func (*PullRequestReview) Name() Name        { return NamePullRequestReview }
func (*PullRequestReviewComment) Name() Name { return NamePullRequestReviewComment }
func (*CheckSuite) Name() Name               { return NameCheckSuite }
func (*CheckRun) Name() Name                 { return NameCheckRun }

func (e *Installation) ActionName() string             { return e.Action }
func (e *InstallationRepositories) ActionName() string { return e.Action }
func (e *IssueComment) ActionName() string             { return e.Action }
func (e *PullRequest) ActionName() string              { return e.Action }
func (e *PullRequestReview) ActionName() string        { return e.Action }
func (e *PullRequestReviewComment) ActionName() string { return e.Action }
func (e *CheckSuite) ActionName() string               { return e.Action }
func (e *CheckRun) ActionName() string                 { return e.Action }

func (*Installation) sealed()             {}
func (*InstallationRepositories) sealed() {}
func (*IssueComment) sealed()             {}
func (*PullRequest) sealed()              {}
func (*PullRequestReview) sealed()        {}
func (*PullRequestReviewComment) sealed() {}
func (*CheckSuite) sealed()               {}
func (*CheckRun) sealed()                 {}

// validate is safe for concurrent use and caches struct metadata, so one
// instance serves every delivery.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Parse normalizes body according to the event name.
//
// Unknown names fail with apperror.ErrNotImplemented. Bodies that are not
// JSON, have mistyped fields, or lack a required field fail with
// apperror.ErrSchemaValidation.
func Parse(name string, body []byte) (Event, error) {
	var ev Event
	switch Name(name) {
	case NameInstallation:
		ev = &Installation{}
	case NameInstallationRepositories:
		ev = &InstallationRepositories{}
	case NameIssueComment:
		ev = &IssueComment{}
	case NamePullRequest:
		ev = &PullRequest{}
	case NamePullRequestReview:
		ev = &PullRequestReview{}
	case NamePullRequestReviewComment:
		ev = &PullRequestReviewComment{}
	case NameCheckSuite:
		ev = &CheckSuite{}
	case NameCheckRun:
		ev = &CheckRun{}
	default:
		return nil, apperror.NotImplemented(fmt.Sprintf("%s %s not implemented", name, peekAction(body)))
	}

	if err := decode(ev, body); err != nil {
		return nil, schemaError(name, err)
	}
	if _, ok := ev.(*CheckRun); ok {
		return ev, nil
	}
	if err := validate.Struct(ev); err != nil {
		return nil, schemaError(name, err)
	}
	return ev, nil
}

// peekAction reads the top-level action for error messages. It never fails.
func peekAction(body []byte) string {
	var head struct {
		Action string `json:"action"`
	}
	_ = json.Unmarshal(body, &head)
	return head.Action
}

// schemaError converts decoder and validator failures into a SchemaValidation
// error naming the offending field.
func schemaError(name string, err error) error {
	var (
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
		fieldErrs validator.ValidationErrors
	)
	switch {
	case errors.As(err, &typeErr):
		return apperror.SchemaValidation(name, typeErr.Field)
	case errors.As(err, &syntaxErr):
		return apperror.SchemaValidation(name, "body")
	case errors.As(err, &fieldErrs) && len(fieldErrs) > 0:
		return apperror.SchemaValidation(name, fieldErrs[0].Namespace())
	default:
		return apperror.SchemaValidation(name, err.Error())
	}
}
