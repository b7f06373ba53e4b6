package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/edustack/valsync/internal/models"
	"github.com/edustack/valsync/internal/testutil"
)

func TestSubmitSendsWellFormedRequest(t *testing.T) {
	var (
		gotMethod  string
		gotPath    string
		gotKey     string
		gotCT      string
		gotPayload models.ValidationRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotKey = r.Header.Get("Idempotency-Key")
		gotCT = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	gw := NewHTTPGateway(server.URL+"/", nil) // trailing slash must be tolerated
	req := testutil.SampleRequest("vr_1", "rc_42")

	if err := gw.Submit(context.Background(), req); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("expected POST, got %s", gotMethod)
	}
	if want := "/validations/report-card/rc_42/validate"; gotPath != want {
		t.Errorf("expected path %s, got %s", want, gotPath)
	}
	if gotKey != "vr_1" {
		t.Errorf("expected Idempotency-Key vr_1, got %q", gotKey)
	}
	if gotCT != "application/json" {
		t.Errorf("expected JSON content type, got %q", gotCT)
	}
	if gotPayload.ID != "vr_1" || gotPayload.ItemID != "rc_42" || gotPayload.Actor.UserID == "" {
		t.Errorf("request body incomplete: %+v", gotPayload)
	}
}

func TestSubmitClassifiesResponses(t *testing.T) {
	cases := []struct {
		name          string
		status        int
		wantErr       bool
		wantPermanent bool
	}{
		{"200 ok", http.StatusOK, false, false},
		{"201 created", http.StatusCreated, false, false},
		{"409 conflict is permanent", http.StatusConflict, true, true},
		{"422 unprocessable is permanent", http.StatusUnprocessableEntity, true, true},
		{"400 bad request is transient", http.StatusBadRequest, true, false},
		{"500 server error is transient", http.StatusInternalServerError, true, false},
		{"503 unavailable is transient", http.StatusServiceUnavailable, true, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(c.status)
				w.Write([]byte("detail"))
			}))
			defer server.Close()

			gw := NewHTTPGateway(server.URL, nil)
			err := gw.Submit(context.Background(), testutil.SampleRequest("vr_1", "rc_1"))

			if !c.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var gwErr *Error
			if !errors.As(err, &gwErr) {
				t.Fatalf("expected *Error, got %T: %v", err, err)
			}
			if gwErr.StatusCode != c.status {
				t.Errorf("expected status %d, got %d", c.status, gwErr.StatusCode)
			}
			if gwErr.Permanent != c.wantPermanent {
				t.Errorf("expected permanent=%v, got %v", c.wantPermanent, gwErr.Permanent)
			}
			if gwErr.Message != "detail" {
				t.Errorf("expected error body captured, got %q", gwErr.Message)
			}
		})
	}
}

func TestSubmitRespectsContextCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	gw := NewHTTPGateway(server.URL, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := gw.Submit(ctx, testutil.SampleRequest("vr_1", "rc_1"))
	if err == nil {
		t.Fatal("expected an error when the context deadline fires")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
}

func TestSubmitConnectionRefusedIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing listening anymore

	gw := NewHTTPGateway(server.URL, nil)
	err := gw.Submit(context.Background(), testutil.SampleRequest("vr_1", "rc_1"))
	if err == nil {
		t.Fatal("expected a transport error")
	}
	var gwErr *Error
	if errors.As(err, &gwErr) {
		t.Errorf("transport failures must not be classified permanent: %v", err)
	}
}

func TestErrorString(t *testing.T) {
	e := &Error{StatusCode: 409, Permanent: true, Message: "already validated"}
	got := e.Error()
	if got == "" {
		t.Fatal("expected a non-empty error string")
	}
}
