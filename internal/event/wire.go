package event

import "encoding/json"

// The wire types mirror the parts of GitHub's payloads that are read.
// Everything else in the body is ignored by encoding/json.

type wireUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
}

type wireRepository struct {
	ID    int64    `json:"id"`
	Name  string   `json:"name"`
	Owner wireUser `json:"owner"`
}

type wireInstallation struct {
	ID         int64  `json:"id"`
	TargetID   int64  `json:"target_id"`
	TargetType string `json:"target_type"`
}

type wireHead struct {
	SHA string `json:"sha"`
}

type wirePullRequest struct {
	ID     int64    `json:"id"`
	Number int64    `json:"number"`
	User   wireUser `json:"user"`
	Head   wireHead `json:"head"`
}

type wireIssue struct {
	Number int64    `json:"number"`
	User   wireUser `json:"user"`
}

type wireComment struct {
	ID   int64    `json:"id"`
	User wireUser `json:"user"`
}

type wireCheckSuite struct {
	ID           int64             `json:"id"`
	PullRequests []wirePullRequest `json:"pull_requests"`
}

// decode fills ev from body. Each case unmarshals the GitHub shape and
// flattens it into the record.
func decode(ev Event, body []byte) error {
	switch ev := ev.(type) {
	case *Installation:
		var p struct {
			Action       string           `json:"action"`
			Installation wireInstallation `json:"installation"`
			Repositories []Repository     `json:"repositories"`
		}
		if err := json.Unmarshal(body, &p); err != nil {
			return err
		}
		*ev = Installation{
			Action:         p.Action,
			InstallationID: p.Installation.ID,
			TargetID:       p.Installation.TargetID,
			TargetType:     p.Installation.TargetType,
			Repositories:   p.Repositories,
		}

	case *InstallationRepositories:
		var p struct {
			Action       string           `json:"action"`
			Installation wireInstallation `json:"installation"`
			Added        []Repository     `json:"repositories_added"`
			Removed      []Repository     `json:"repositories_removed"`
		}
		if err := json.Unmarshal(body, &p); err != nil {
			return err
		}
		*ev = InstallationRepositories{
			Action:         p.Action,
			InstallationID: p.Installation.ID,
			TargetID:       p.Installation.TargetID,
			TargetType:     p.Installation.TargetType,
			Added:          p.Added,
			Removed:        p.Removed,
		}

	case *IssueComment:
		var p struct {
			Action     string         `json:"action"`
			Issue      wireIssue      `json:"issue"`
			Comment    wireComment    `json:"comment"`
			Repository wireRepository `json:"repository"`
		}
		if err := json.Unmarshal(body, &p); err != nil {
			return err
		}
		*ev = IssueComment{
			Action:           p.Action,
			RepositoryID:     p.Repository.ID,
			Number:           p.Issue.Number,
			IssueUserID:      p.Issue.User.ID,
			CommentID:        p.Comment.ID,
			CommentUserID:    p.Comment.User.ID,
			CommentUserLogin: p.Comment.User.Login,
		}

	case *PullRequest:
		var p struct {
			Action       string           `json:"action"`
			Installation wireInstallation `json:"installation"`
			Repository   wireRepository   `json:"repository"`
			PullRequest  wirePullRequest  `json:"pull_request"`
		}
		if err := json.Unmarshal(body, &p); err != nil {
			return err
		}
		*ev = PullRequest{
			Action:          p.Action,
			InstallationID:  p.Installation.ID,
			RepositoryID:    p.Repository.ID,
			RepositoryName:  p.Repository.Name,
			RepositoryOwner: p.Repository.Owner.Login,
			PullRequestID:   p.PullRequest.ID,
			Number:          p.PullRequest.Number,
			UserID:          p.PullRequest.User.ID,
			UserLogin:       p.PullRequest.User.Login,
			HeadSHA:         p.PullRequest.Head.SHA,
		}

	case *PullRequestReview:
		var p struct {
			Action      string          `json:"action"`
			Repository  wireRepository  `json:"repository"`
			PullRequest wirePullRequest `json:"pull_request"`
			Review      wireComment     `json:"review"`
		}
		if err := json.Unmarshal(body, &p); err != nil {
			return err
		}
		*ev = PullRequestReview{
			Action:            p.Action,
			RepositoryID:      p.Repository.ID,
			Number:            p.PullRequest.Number,
			PullRequestUserID: p.PullRequest.User.ID,
			ReviewID:          p.Review.ID,
			ReviewUserID:      p.Review.User.ID,
			ReviewUserLogin:   p.Review.User.Login,
		}

	case *PullRequestReviewComment:
		var p struct {
			Action      string          `json:"action"`
			Repository  wireRepository  `json:"repository"`
			PullRequest wirePullRequest `json:"pull_request"`
			Comment     wireComment     `json:"comment"`
		}
		if err := json.Unmarshal(body, &p); err != nil {
			return err
		}
		*ev = PullRequestReviewComment{
			Action:            p.Action,
			RepositoryID:      p.Repository.ID,
			Number:            p.PullRequest.Number,
			PullRequestUserID: p.PullRequest.User.ID,
			CommentID:         p.Comment.ID,
			CommentUserID:     p.Comment.User.ID,
			CommentUserLogin:  p.Comment.User.Login,
		}

	case *CheckSuite:
		var p struct {
			Action       string           `json:"action"`
			Installation wireInstallation `json:"installation"`
			Repository   wireRepository   `json:"repository"`
			CheckSuite   wireCheckSuite   `json:"check_suite"`
		}
		if err := json.Unmarshal(body, &p); err != nil {
			return err
		}
		prs := make([]SuitePullRequest, 0, len(p.CheckSuite.PullRequests))
		for _, pr := range p.CheckSuite.PullRequests {
			prs = append(prs, SuitePullRequest{ID: pr.ID, Number: pr.Number, HeadSHA: pr.Head.SHA})
		}
		*ev = CheckSuite{
			Action:          p.Action,
			InstallationID:  p.Installation.ID,
			RepositoryID:    p.Repository.ID,
			RepositoryName:  p.Repository.Name,
			RepositoryOwner: p.Repository.Owner.Login,
			PullRequests:    prs,
		}

	case *CheckRun:
		var p struct {
			Action string `json:"action"`
		}
		if err := json.Unmarshal(body, &p); err != nil {
			return err
		}
		ev.Action = p.Action
	}
	return nil
}
