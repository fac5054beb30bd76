package jira

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/foxseedlab/taskbot/internal/tracker"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, string) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer pat" {
			t.Errorf("unexpected authorization header: %q", got)
		}
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return NewClient(server.URL, "pat", "Task", time.Second), server.URL
}

func TestListProjects(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/2/project" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`[{"id":"42","key":"ALPHA","name":"Alpha","projectTypeKey":"software"},{"id":"43","key":"BETA","name":"Beta"}]`))
	})

	projects, err := c.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []tracker.Project{{Key: "ALPHA", Name: "Alpha", ID: "42"}, {Key: "BETA", Name: "Beta", ID: "43"}}
	if len(projects) != len(want) || projects[0] != want[0] || projects[1] != want[1] {
		t.Fatalf("unexpected projects: %+v", projects)
	}
}

func TestListProjects_ServerErrorIsTransient(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	if _, err := c.ListProjects(context.Background()); !errors.Is(err, tracker.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestCreateIssue(t *testing.T) {
	var got createIssueRequest
	c, base := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/rest/api/2/issue" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"10009","key":"ALPHA-9","self":"x"}`))
	})

	created, err := c.CreateIssue(context.Background(), "ALPHA", "(from alice) Fix login", "Button unresponsive on submit")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Fields.Project.Key != "ALPHA" || got.Fields.Summary != "(from alice) Fix login" ||
		got.Fields.Description != "Button unresponsive on submit" || got.Fields.IssueType.Name != "Task" {
		t.Fatalf("unexpected request body: %+v", got)
	}
	if created.Key != "ALPHA-9" || created.Link != base+"/browse/ALPHA-9" {
		t.Fatalf("unexpected created issue: %+v", created)
	}
}

func TestCreateIssue_RejectedFields(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":{"summary":"You must specify a summary of the issue."}}`))
	})
	_, err := c.CreateIssue(context.Background(), "ALPHA", "", "")
	if !errors.Is(err, tracker.ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestFindIssueLink_HighestIDAmongExactMatches(t *testing.T) {
	c, base := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/2/search" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		wantJQL := `project = "ALPHA" AND summary ~ "(from a) X" ORDER BY id DESC`
		if got := r.URL.Query().Get("jql"); got != wantJQL {
			t.Errorf("unexpected jql: %q", got)
		}
		_, _ = w.Write([]byte(`{"issues":[
			{"id":"5","key":"ALPHA-5","fields":{"summary":"(from a) X"}},
			{"id":"9","key":"ALPHA-9","fields":{"summary":"(from a) X"}},
			{"id":"12","key":"ALPHA-12","fields":{"summary":"(from a) X and more"}}
		]}`))
	})

	link, err := c.FindIssueLink(context.Background(), "ALPHA", "(from a) X")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if link != base+"/browse/ALPHA-9" {
		t.Fatalf("unexpected link: %s", link)
	}
}

func TestFindIssueLink_NoMatch(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"issues":[]}`))
	})
	link, err := c.FindIssueLink(context.Background(), "ALPHA", "(from a) X")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if link != "" {
		t.Fatalf("expected absent link, got %q", link)
	}
}

func TestEscapeJQL(t *testing.T) {
	got := escapeJQL(`say "hi" \ bye`)
	want := `say \"hi\" \\ bye`
	if got != want {
		t.Fatalf("unexpected escape: %q", got)
	}
}
