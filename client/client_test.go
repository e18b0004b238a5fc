package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	portfolio_contact "github.com/nazarhussain/portfolio-contact/internal"
	"github.com/nazarhussain/portfolio-contact/internal/ratestore"
)

type countingIndicator struct {
	busy, idle        int
	busyDuringRequest bool
}

func (c *countingIndicator) Busy() { c.busy++ }
func (c *countingIndicator) Idle() { c.idle++ }

func validForm() Form {
	return Form{
		FirstName:   "Jane",
		LastName:    "Doe",
		Email:       "jane@example.com",
		InquiryType: "film-project",
		Subject:     "A new film",
		Message:     "Would love to talk about a role.",
		Privacy:     true,
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Form)
		want   string
	}{
		{"first name", func(f *Form) { f.FirstName = "  " }, "Please fill in the first name field."},
		{"last name", func(f *Form) { f.LastName = "" }, "Please fill in the last name field."},
		{"inquiry type", func(f *Form) { f.InquiryType = "" }, "Please fill in the inquiry type field."},
		{"first missing wins", func(f *Form) { f.Subject = ""; f.Message = "" }, "Please fill in the subject field."},
		{"email format", func(f *Form) { f.Email = "jane@example" }, invalidEmailMessage},
		{"email spaces", func(f *Form) { f.Email = "ja ne@example.com" }, invalidEmailMessage},
		{"privacy", func(f *Form) { f.Privacy = false }, privacyMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := validForm()
			tc.mutate(&f)
			err := f.Validate()
			if err == nil || err.Error() != tc.want {
				t.Fatalf("expected %q, got %v", tc.want, err)
			}
			if !IsValidation(err) {
				t.Fatal("expected a validation error")
			}
		})
	}

	if err := validForm().Validate(); err != nil {
		t.Fatalf("valid form rejected: %v", err)
	}
}

func TestSubmitValidationSendsNothing(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	ind := &countingIndicator{}
	c := New(srv.URL)
	c.Indicator = ind

	f := validForm()
	f.Privacy = false
	res, err := c.Submit(context.Background(), f)
	if err == nil || res.Success || res.Message != privacyMessage {
		t.Fatalf("unexpected result %+v, err %v", res, err)
	}
	if hits.Load() != 0 {
		t.Fatal("no request should be sent when local validation fails")
	}
	if ind.busy != 1 || ind.idle != 1 {
		t.Fatalf("indicator not reset: busy=%d idle=%d", ind.busy, ind.idle)
	}
}

func TestSubmitPostsOnce(t *testing.T) {
	var hits atomic.Int32
	ind := &countingIndicator{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		ind.busyDuringRequest = ind.busy == 1 && ind.idle == 0
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if r.PostForm.Get("privacy") != "on" || r.PostForm.Has("newsletter") {
			t.Errorf("unexpected checkbox values %v", r.PostForm)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"success":false,"message":"Please wait before submitting another message.","data":null,"timestamp":"2026-10-16 12:00:00"}`)
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.Indicator = ind
	res, err := c.Submit(context.Background(), validForm())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Success || res.Status != http.StatusTooManyRequests || res.Message != "Please wait before submitting another message." {
		t.Fatalf("unexpected result %+v", res)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected exactly one request, got %d", hits.Load())
	}
	if !ind.busyDuringRequest || ind.idle != 1 {
		t.Fatalf("indicator not busy during request or not reset: %+v", ind)
	}
}

func TestSubmitFallbackMessages(t *testing.T) {
	for _, tc := range []struct {
		body string
		want string
	}{
		{`{"success":true,"message":""}`, DefaultSuccessMessage},
		{`{"success":false}`, DefaultErrorMessage},
	} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, tc.body)
		}))
		res, err := New(srv.URL).Submit(context.Background(), validForm())
		srv.Close()
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if res.Message != tc.want {
			t.Fatalf("expected %q, got %q", tc.want, res.Message)
		}
	}
}

func TestSubmitTransportAndDecodeErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "<html>bad gateway</html>")
	}))
	defer srv.Close()

	ind := &countingIndicator{}
	c := New(srv.URL)
	c.Indicator = ind
	res, err := c.Submit(context.Background(), validForm())
	if err == nil || res.Success || res.Message != DefaultErrorMessage || res.Status != http.StatusBadGateway {
		t.Fatalf("unexpected decode failure result %+v, err %v", res, err)
	}

	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()
	c.Endpoint = deadURL
	res, err = c.Submit(context.Background(), validForm())
	if err == nil || res.Message != DefaultErrorMessage || res.Status != 0 {
		t.Fatalf("unexpected transport failure result %+v, err %v", res, err)
	}
	if ind.busy != 2 || ind.idle != 2 {
		t.Fatalf("indicator not reset on failures: busy=%d idle=%d", ind.busy, ind.idle)
	}
}

func TestSubmitAgainstHandler(t *testing.T) {
	dir := t.TempDir()
	cfg := portfolio_contact.DefaultConfig()
	cfg.AdminEmail = "admin@example.com"
	cfg.FromAddr = "noreply@example.com"
	cfg.Location = time.UTC
	cfg.LogDir = dir

	store, err := ratestore.NewFile(filepath.Join(dir, "rate_limit.json"))
	if err != nil {
		t.Fatal(err)
	}
	journal, err := portfolio_contact.NewJournal(dir, true, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	h, err := portfolio_contact.NewHandler(cfg, portfolio_contact.Deps{
		Mailer:  portfolio_contact.LogMailer{},
		Limiter: portfolio_contact.NewLimiter(store, cfg.RateLimitWindow),
		Journal: journal,
	})
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(h)
	defer srv.Close()

	c := New(srv.URL)
	res, err := c.Submit(context.Background(), validForm())
	if err != nil || !res.Success || res.Status != http.StatusOK {
		t.Fatalf("first submission: %+v, %v", res, err)
	}

	res, err = c.Submit(context.Background(), validForm())
	if err != nil || res.Success || res.Status != http.StatusTooManyRequests {
		t.Fatalf("second submission should be rate limited: %+v, %v", res, err)
	}
}
