package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/taxdesk/portal-client/internal/api"
	"github.com/taxdesk/portal-client/internal/config"
	"github.com/taxdesk/portal-client/internal/models"
	"github.com/taxdesk/portal-client/internal/ratelimit"
	"github.com/taxdesk/portal-client/internal/services"
)

func TestReportAssignmentTimeoutIsNotAFailure(t *testing.T) {
	var out bytes.Buffer
	timeout := &services.TimeoutError{DocumentID: 7, AssignmentID: "asg-3", Attempts: 30}

	err := reportAssignment(&out, nil, timeout)

	if !errors.Is(err, ErrOutcomeUnknown) {
		t.Fatalf("reportAssignment() = %v, want ErrOutcomeUnknown", err)
	}
	if ExitCode(err) != ExitOutcomeUnknown {
		t.Errorf("ExitCode() = %d, want %d", ExitCode(err), ExitOutcomeUnknown)
	}
	got := out.String()
	if strings.Count(got, "asg-3") != 1 || !strings.Contains(got, "has not failed") {
		t.Errorf("expected the still-processing notice once, got %q", got)
	}
	if strings.Contains(got+err.Error(), "failed to") {
		t.Errorf("timeout reported as a failure: %q / %v", got, err)
	}
}

func TestReportAssignmentOutcomes(t *testing.T) {
	var out bytes.Buffer
	rejected := &api.RemoteRejection{Op: "assign document", Message: "Signer has no email on file."}

	err := reportAssignment(&out, nil, rejected)
	if err == nil || err.Error() != "failed to assign document: Signer has no email on file." {
		t.Errorf("rejection error = %v", err)
	}
	if ExitCode(err) != ExitFailure {
		t.Errorf("ExitCode() = %d, want %d", ExitCode(err), ExitFailure)
	}

	out.Reset()
	result := &services.AssignmentResult{DocumentID: 7, AssignmentID: "asg-4", Attempts: 2}
	if err := reportAssignment(&out, result, nil); err != nil {
		t.Fatalf("reportAssignment() error = %v", err)
	}
	if !strings.Contains(out.String(), "Assignment ID: asg-4") {
		t.Errorf("unexpected output %q", out.String())
	}
	if ExitCode(nil) != ExitOK {
		t.Error("ExitCode(nil) must be 0")
	}
}

func newBrowseAgainst(t *testing.T, handler nethttp.Handler) *services.BrowseService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.NewConfig()
	cfg.PortalURL = srv.URL
	cfg.APIToken = "test-token"
	client, err := api.NewClient(cfg,
		api.WithRetryPolicy(0, 0, 0),
		api.WithRateLimiter(ratelimit.NewRateLimiter(1000, 1000)),
	)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return services.NewBrowseService(client, nil, services.BrowseServiceConfig{})
}

func TestRefreshAfterAssignmentDefaultsToCurrentFolder(t *testing.T) {
	var (
		mu      sync.Mutex
		browsed []string
	)
	record := func(s string) {
		mu.Lock()
		browsed = append(browsed, s)
		mu.Unlock()
	}
	r := chi.NewRouter()
	r.Get("/api/documents/folders/browse/", func(w nethttp.ResponseWriter, req *nethttp.Request) {
		record("folders:" + req.URL.Query().Get("folder_id"))
		w.Write([]byte(`{"folders": [], "breadcrumbs": []}`))
	})
	r.Get("/api/documents/files/browse/", func(w nethttp.ResponseWriter, req *nethttp.Request) {
		record("files:" + req.URL.Query().Get("folder_id"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"documents": []map[string]interface{}{{"id": 7, "file_name": "1040.pdf", "status": "completed", "folder": nil}},
		})
	})
	browse := newBrowseAgainst(t, r)

	var out bytes.Buffer
	refreshAfterAssignment(context.Background(), &out, browse, nil, 7)

	if len(browsed) != 2 {
		t.Fatalf("expected one folders and one files fetch, got %v", browsed)
	}
	for _, b := range browsed {
		if !strings.HasSuffix(b, ":") {
			t.Errorf("expected a root browse, got %s", b)
		}
	}
	if !strings.Contains(out.String(), "Document status: completed") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestRefreshAfterAssignmentUsesGivenFolder(t *testing.T) {
	var folderIDs []string
	r := chi.NewRouter()
	r.Get("/api/documents/folders/browse/", func(w nethttp.ResponseWriter, req *nethttp.Request) {
		folderIDs = append(folderIDs, req.URL.Query().Get("folder_id"))
		w.Write([]byte(`{"folders": [], "breadcrumbs": [{"id": 42, "title": "2024"}]}`))
	})
	r.Get("/api/documents/files/browse/", func(w nethttp.ResponseWriter, req *nethttp.Request) {
		w.Write([]byte(`{"documents": []}`))
	})
	browse := newBrowseAgainst(t, r)

	folder := models.RefTo(42)
	var out bytes.Buffer
	refreshAfterAssignment(context.Background(), &out, browse, &folder, 7)

	if len(folderIDs) != 1 || folderIDs[0] != "42" {
		t.Errorf("browsed folders %v, want [42]", folderIDs)
	}
	if out.Len() != 0 {
		t.Errorf("document not listed, expected no status line, got %q", out.String())
	}
}
