// Package eventtest builds GitHub webhook bodies for tests. The shapes follow
// GitHub's documented payloads, trimmed to the fields the normalizer reads
// plus a few it must ignore.
package eventtest

import (
	"encoding/json"
)

// SHA is a syntactically valid commit sha.
const SHA = "0123456789abcdef0123456789abcdef01234567"

type User struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Type  string `json:"type,omitempty"`
}

type Repo struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name,omitempty"`
	Owner    *User  `json:"owner,omitempty"`
}

type Installation struct {
	ID         int64  `json:"id"`
	TargetID   int64  `json:"target_id,omitempty"`
	TargetType string `json:"target_type,omitempty"`
}

// PR describes a pull request as embedded in pull_request, review and
// check_suite payloads.
type PR struct {
	ID     int64
	Number int64
	User   User
	SHA    string
}

func (p PR) wire() map[string]any {
	return map[string]any{
		"id":     p.ID,
		"number": p.Number,
		"state":  "open",
		"user":   p.User,
		"head":   map[string]any{"ref": "feature", "sha": p.SHA},
	}
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func repository(repo Repo) Repo {
	if repo.Owner == nil {
		repo.Owner = &User{ID: 1, Login: "owner", Type: "Organization"}
	}
	return repo
}

// InstallationEvent builds an installation payload listing repos.
func InstallationEvent(action string, inst Installation, repos ...Repo) []byte {
	return mustJSON(map[string]any{
		"action":       action,
		"installation": inst,
		"repositories": repos,
		"sender":       User{ID: 1, Login: "owner"},
	})
}

func InstallationRepositoriesEvent(action string, inst Installation, added, removed []Repo) []byte {
	if added == nil {
		added = []Repo{}
	}
	if removed == nil {
		removed = []Repo{}
	}
	return mustJSON(map[string]any{
		"action":               action,
		"installation":         inst,
		"repository_selection": "selected",
		"repositories_added":   added,
		"repositories_removed": removed,
	})
}

// IssueCommentEvent builds an issue_comment payload: commenter comments on
// issue #number opened by issueAuthor.
func IssueCommentEvent(action string, repo Repo, number int64, issueAuthor User, commentID int64, commenter User) []byte {
	return mustJSON(map[string]any{
		"action":       action,
		"installation": Installation{ID: 900},
		"repository":   repository(repo),
		"issue": map[string]any{
			"number": number,
			"title":  "something is broken",
			"user":   issueAuthor,
		},
		"comment": map[string]any{
			"id":   commentID,
			"body": "+1",
			"user": commenter,
		},
	})
}

// PullRequestEvent builds a pull_request payload. installationID 0 leaves the
// installation object out.
func PullRequestEvent(action string, installationID int64, repo Repo, pr PR) []byte {
	body := map[string]any{
		"action":       action,
		"number":       pr.Number,
		"repository":   repository(repo),
		"pull_request": pr.wire(),
	}
	if installationID != 0 {
		body["installation"] = Installation{ID: installationID}
	}
	return mustJSON(body)
}

func PullRequestReviewEvent(action string, repo Repo, pr PR, reviewID int64, reviewer User) []byte {
	return mustJSON(map[string]any{
		"action":       action,
		"installation": Installation{ID: 900},
		"repository":   repository(repo),
		"pull_request": pr.wire(),
		"review": map[string]any{
			"id":    reviewID,
			"state": "approved",
			"user":  reviewer,
		},
	})
}

func PullRequestReviewCommentEvent(action string, repo Repo, pr PR, commentID int64, commenter User) []byte {
	return mustJSON(map[string]any{
		"action":       action,
		"installation": Installation{ID: 900},
		"repository":   repository(repo),
		"pull_request": pr.wire(),
		"comment": map[string]any{
			"id":   commentID,
			"body": "nit",
			"user": commenter,
		},
	})
}

// CheckSuiteEvent builds a check_suite payload. installationID 0 leaves the
// installation object out.
func CheckSuiteEvent(action string, installationID int64, repo Repo, prs ...PR) []byte {
	wired := make([]map[string]any, 0, len(prs))
	for _, pr := range prs {
		w := pr.wire()
		delete(w, "user")
		wired = append(wired, w)
	}
	body := map[string]any{
		"action":     action,
		"repository": repository(repo),
		"check_suite": map[string]any{
			"id":            4242,
			"head_sha":      SHA,
			"status":        "queued",
			"pull_requests": wired,
		},
	}
	if installationID != 0 {
		body["installation"] = Installation{ID: installationID}
	}
	return mustJSON(body)
}

func CheckRunEvent(action string) []byte {
	return mustJSON(map[string]any{
		"action":    action,
		"check_run": map[string]any{"id": 1, "name": "commit-karma"},
	})
}
