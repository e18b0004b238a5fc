package portfolio_contact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Form field names as posted by the site.
const (
	FieldFirstName   = "firstName"
	FieldLastName    = "lastName"
	FieldEmail       = "email"
	FieldPhone       = "phone"
	FieldCompany     = "company"
	FieldInquiryType = "inquiryType"
	FieldSubject     = "subject"
	FieldMessage     = "message"
	FieldNewsletter  = "newsletter"
	FieldPrivacy     = "privacy"
	FieldWebsite     = "website" // honeypot, hidden from humans
)

// RequiredFields are checked in this order; the first gap is reported.
var RequiredFields = []string{
	FieldFirstName, FieldLastName, FieldEmail, FieldInquiryType,
	FieldSubject, FieldMessage, FieldPrivacy,
}

// Submission is one sanitized contact-form payload.
type Submission struct {
	ID          string
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	Company     string
	InquiryType string
	Subject     string
	Message     string
	Newsletter  bool
	Honeypot    string

	IP         string
	UserAgent  string
	ReceivedAt time.Time

	subjectLen int
	messageLen int
}

func (s *Submission) FullName() string {
	return s.FirstName + " " + s.LastName
}

// payload is the raw field set of a request. A key is present when the
// field was posted at all, which is what makes a checkbox "checked".
type payload map[string]string

func (p payload) filled(field string) bool {
	return strings.TrimSpace(p[field]) != ""
}

func (p payload) has(field string) bool {
	_, ok := p[field]
	return ok
}

// readPayload decodes a form-encoded, multipart or (when allowed) JSON body.
func readPayload(w http.ResponseWriter, r *http.Request, maxBytes int64, allowJSON bool) (payload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case ct == "application/json" && allowJSON:
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, bodyError(err)
		}
		return payloadFromJSON(raw)
	case ct == "multipart/form-data":
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			return nil, bodyError(err)
		}
	default:
		if err := r.ParseForm(); err != nil {
			return nil, bodyError(err)
		}
	}

	p := payload{}
	for k, vs := range r.PostForm {
		if len(vs) > 0 {
			p[k] = vs[0]
		}
	}
	return p, nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return wrapFailure(KindPayloadTooLarge, err)
	}
	return wrapFailure(KindBadPayload, err)
}

// payloadFromJSON flattens a JSON object into form semantics: strings and
// numbers are kept as text, true becomes "1", and false or null leave the
// field out.
func payloadFromJSON(raw []byte) (payload, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, wrapFailure(KindBadPayload, fmt.Errorf("bad json: %w", err))
	}
	p := payload{}
	for k, v := range obj {
		switch val := v.(type) {
		case string:
			p[k] = val
		case json.Number:
			p[k] = val.String()
		case bool:
			if val {
				p[k] = "1"
			}
		case nil:
		default:
			return nil, wrapFailure(KindBadPayload, fmt.Errorf("field %q: unsupported json type %T", k, v))
		}
	}
	return p, nil
}

// newSubmission checks required fields and sanitizes everything that will be
// used later on.
func newSubmission(p payload) (*Submission, error) {
	for _, f := range RequiredFields {
		if !p.filled(f) {
			return nil, missingField(f)
		}
	}
	return &Submission{
		FirstName:   sanitize(p[FieldFirstName]),
		LastName:    sanitize(p[FieldLastName]),
		Email:       sanitize(p[FieldEmail]),
		Phone:       sanitize(p[FieldPhone]),
		Company:     sanitize(p[FieldCompany]),
		InquiryType: sanitize(p[FieldInquiryType]),
		Subject:     sanitize(p[FieldSubject]),
		Message:     sanitize(p[FieldMessage]),
		Newsletter:  p.has(FieldNewsletter),
		Honeypot:    strings.TrimSpace(p[FieldWebsite]),
		subjectLen:  utf8.RuneCountInString(strings.TrimSpace(p[FieldSubject])),
		messageLen:  utf8.RuneCountInString(strings.TrimSpace(p[FieldMessage])),
	}, nil
}

// logRecord is the submissions-log view of a Submission: no message body.
type logRecord struct {
	ID            string `json:"id"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Company       string `json:"company"`
	InquiryType   string `json:"inquiryType"`
	Subject       string `json:"subject"`
	MessageLength int    `json:"messageLength"`
	Newsletter    bool   `json:"newsletter"`
	IP            string `json:"ip"`
	UserAgent     string `json:"userAgent"`
}

func (s *Submission) logRecord() logRecord {
	return logRecord{
		ID:            s.ID,
		FirstName:     s.FirstName,
		LastName:      s.LastName,
		Email:         s.Email,
		Phone:         s.Phone,
		Company:       s.Company,
		InquiryType:   s.InquiryType,
		Subject:       s.Subject,
		MessageLength: len(s.Message),
		Newsletter:    s.Newsletter,
		IP:            s.IP,
		UserAgent:     s.UserAgent,
	}
}

func retryAfterHeader(d time.Duration) string {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
