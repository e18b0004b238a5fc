// Package client submits the portfolio contact form the way the site's
// browser form does: local checks first, then one POST, no retries.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

const (
	DefaultSuccessMessage = "Thank you for your message. We will get back to you soon!"
	DefaultErrorMessage   = "There was an error sending your message. Please try again."

	invalidEmailMessage = "Please enter a valid email address."
	privacyMessage      = "Please agree to the privacy policy and terms of service."
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Form mirrors the fields of the contact form.
type Form struct {
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	Company     string
	InquiryType string
	Subject     string
	Message     string
	Privacy     bool
	Newsletter  bool
}

// ValidationError is returned by Validate; its message is shown to the user as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validate runs the checks the page performs before sending anything and
// returns the first failure.
func (f Form) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"firstName", f.FirstName},
		{"lastName", f.LastName},
		{"email", f.Email},
		{"inquiryType", f.InquiryType},
		{"subject", f.Subject},
		{"message", f.Message},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{
				Field:   r.name,
				Message: fmt.Sprintf("Please fill in the %s field.", humanize(r.name)),
			}
		}
	}
	if !emailRegex.MatchString(f.Email) {
		return &ValidationError{Field: "email", Message: invalidEmailMessage}
	}
	if !f.Privacy {
		return &ValidationError{Field: "privacy", Message: privacyMessage}
	}
	return nil
}

// Values encodes the form the way a browser posts it. Unchecked boxes are omitted.
func (f Form) Values() url.Values {
	v := url.Values{}
	v.Set("firstName", f.FirstName)
	v.Set("lastName", f.LastName)
	v.Set("email", f.Email)
	v.Set("phone", f.Phone)
	v.Set("company", f.Company)
	v.Set("inquiryType", f.InquiryType)
	v.Set("subject", f.Subject)
	v.Set("message", f.Message)
	if f.Privacy {
		v.Set("privacy", "on")
	}
	if f.Newsletter {
		v.Set("newsletter", "on")
	}
	return v
}

// humanize turns "inquiryType" into "inquiry type".
func humanize(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Result is the envelope the contact endpoint answers with.
type Result struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
	// Status is the HTTP status code, zero when no response arrived.
	Status int `json:"-"`
}

// Indicator is the submit control: busy while a submission is in flight.
type Indicator interface {
	Busy()
	Idle()
}

type noopIndicator struct{}

func (noopIndicator) Busy() {}
func (noopIndicator) Idle() {}

type Client struct {
	Endpoint   string
	HTTPClient *http.Client
	Indicator  Indicator
	Logger     *slog.Logger
}

func New(endpoint string) *Client {
	return &Client{
		Endpoint:   endpoint,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Submit validates f and, if it passes, posts it once. The returned Result
// is always non-nil and carries the message to display; err is set for
// local validation, transport and decode failures.
func (c *Client) Submit(ctx context.Context, f Form) (*Result, error) {
	ind := c.Indicator
	if ind == nil {
		ind = noopIndicator{}
	}
	ind.Busy()
	defer ind.Idle()

	if err := f.Validate(); err != nil {
		return &Result{Success: false, Message: err.Error()}, err
	}

	res, err := c.post(ctx, f.Values())
	if err != nil {
		c.logger().Error("contact form submission failed", "endpoint", c.Endpoint, "err", err)
		return &Result{Success: false, Message: DefaultErrorMessage, Status: statusOf(res)}, err
	}
	if res.Message == "" {
		if res.Success {
			res.Message = DefaultSuccessMessage
		} else {
			res.Message = DefaultErrorMessage
		}
	}
	return res, nil
}

func (c *Client) post(ctx context.Context, form url.Values) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	res := &Result{Status: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(res); err != nil {
		return res, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	return res, nil
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func statusOf(r *Result) int {
	if r == nil {
		return 0
	}
	return r.Status
}

// IsValidation reports whether err came from local form checks.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
