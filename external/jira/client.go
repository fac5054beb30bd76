package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/foxseedlab/taskbot/internal/tracker"
)

const (
	apiPrefix          = "/rest/api/2/"
	searchMaxResults   = 50
	maxErrorBodyLength = 512
)

type Client struct {
	baseURL   string
	token     string
	issueType string
	http      *http.Client
}

func NewClient(baseURL, token, issueType string, timeout time.Duration) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		issueType: issueType,
		http:      &http.Client{Timeout: timeout},
	}
}

func (c *Client) ListProjects(ctx context.Context) ([]tracker.Project, error) {
	var projects []tracker.Project
	if err := c.do(ctx, http.MethodGet, "project", nil, nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

type createIssueRequest struct {
	Fields createIssueFields `json:"fields"`
}

type createIssueFields struct {
	Project     keyRef  `json:"project"`
	Summary     string  `json:"summary"`
	Description string  `json:"description"`
	IssueType   nameRef `json:"issuetype"`
}

type keyRef struct {
	Key string `json:"key"`
}

type nameRef struct {
	Name string `json:"name"`
}

type createIssueResponse struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

func (c *Client) CreateIssue(ctx context.Context, projectKey, title, description string) (tracker.CreatedIssue, error) {
	body := createIssueRequest{Fields: createIssueFields{
		Project:     keyRef{Key: projectKey},
		Summary:     title,
		Description: description,
		IssueType:   nameRef{Name: c.issueType},
	}}
	var resp createIssueResponse
	if err := c.do(ctx, http.MethodPost, "issue", nil, body, &resp); err != nil {
		return tracker.CreatedIssue{}, err
	}
	if resp.Key == "" {
		return tracker.CreatedIssue{}, fmt.Errorf("%w: create response carries no issue key", tracker.ErrRejected)
	}
	return tracker.CreatedIssue{ID: resp.ID, Key: resp.Key, Link: c.browseURL(resp.Key)}, nil
}

type searchResponse struct {
	Issues []struct {
		ID     string `json:"id"`
		Key    string `json:"key"`
		Fields struct {
			Summary string `json:"summary"`
		} `json:"fields"`
	} `json:"issues"`
}

// FindIssueLink runs a text search on the summary, newest first so a fresh
// issue stays on the first page, and keeps only exact title matches, since
// "~" is a fuzzy match. The newest match by id wins; an older
// issue with the same attributed title can still be returned.
func (c *Client) FindIssueLink(ctx context.Context, projectKey, title string) (string, error) {
	q := url.Values{}
	q.Set("jql", fmt.Sprintf(`project = "%s" AND summary ~ "%s" ORDER BY id DESC`, escapeJQL(projectKey), escapeJQL(title)))
	q.Set("fields", "summary")
	q.Set("maxResults", fmt.Sprint(searchMaxResults))

	var resp searchResponse
	if err := c.do(ctx, http.MethodGet, "search", q, nil, &resp); err != nil {
		return "", err
	}
	matches := make([]tracker.Issue, 0, len(resp.Issues))
	for _, is := range resp.Issues {
		if is.Fields.Summary != title {
			continue
		}
		matches = append(matches, tracker.Issue{ID: is.ID, Key: is.Key, Title: is.Fields.Summary})
	}
	latest, ok := tracker.LatestIssue(matches)
	if !ok {
		return "", nil
	}
	return c.browseURL(latest.Key), nil
}

func (c *Client) browseURL(issueKey string) string {
	return c.baseURL + "/browse/" + issueKey
}

func escapeJQL(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body, out any) error {
	target := c.baseURL + apiPrefix + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", tracker.ErrUnavailable, method, endpoint, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLength))
		cause := fmt.Errorf("%s returned status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(snippet)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return errors.Join(tracker.ErrUnavailable, cause)
		}
		return errors.Join(tracker.ErrRejected, cause)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %w", tracker.ErrUnavailable, endpoint, err)
	}
	return nil
}
