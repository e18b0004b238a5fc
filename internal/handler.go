package portfolio_contact

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Deps are the collaborators of a Handler. Mailer, Limiter and Journal are
// required; Now and NewID default to the wall clock and random UUIDs.
type Deps struct {
	Mailer  Mailer
	Limiter *Limiter
	Journal *Journal
	Now     func() time.Time
	NewID   func() string
}

// Handler processes contact-form submissions.
type Handler struct {
	cfg     *Config
	mailer  Mailer
	limiter *Limiter
	journal *Journal
	tpl     *templates
	now     func() time.Time
	newID   func() string
}

func NewHandler(cfg *Config, deps Deps) (*Handler, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if deps.Mailer == nil || deps.Limiter == nil || deps.Journal == nil {
		return nil, errors.New("mailer, limiter and journal are required")
	}
	if cfg.Location == nil {
		c := *cfg
		c.Location = time.Local
		cfg = &c
	}
	tpl, err := parseTemplates(cfg)
	if err != nil {
		return nil, err
	}
	h := &Handler{
		cfg:     cfg,
		mailer:  deps.Mailer,
		limiter: deps.Limiter,
		journal: deps.Journal,
		tpl:     tpl,
		now:     deps.Now,
		newID:   deps.NewID,
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.newID == nil {
		h.newID = uuid.NewString
	}
	return h, nil
}

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleMethodNotAllowed answers routes that exist under another method with
// the JSON envelope.
func HandleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeResult(w, http.StatusMethodNotAllowed, false,
		"Method not allowed.", time.Now())
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.cors(w, r) {
		h.fail(w, r, reject(KindOriginForbidden))
		return
	}
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	s, err := h.process(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	recordSubmission("accepted")
	LoggerFromContext(r.Context()).Info("submission accepted",
		"submission_id", s.ID,
		"inquiry_type", s.InquiryType,
		"newsletter", s.Newsletter,
		"ip", s.IP,
	)
	w.Header().Set("X-Submission-ID", s.ID)
	writeResult(w, http.StatusOK, true, h.cfg.SuccessMessage, h.now().In(h.cfg.Location))
}

// process runs the submission pipeline; the first failing step ends it.
func (h *Handler) process(w http.ResponseWriter, r *http.Request) (*Submission, error) {
	ctx := r.Context()
	log := LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		return nil, reject(KindMethodNotAllowed)
	}

	p, err := readPayload(w, r, int64(h.cfg.MaxBodyKB)*1024, h.cfg.AllowJSON)
	if err != nil {
		return nil, err
	}

	s, err := newSubmission(p)
	if err != nil {
		return nil, err
	}
	s.ID = h.newID()
	s.IP = h.clientIP(r)
	s.UserAgent = r.UserAgent()
	s.ReceivedAt = h.now()

	if err := h.cfg.checkSubmission(s); err != nil {
		return nil, err
	}

	if err := h.limiter.Allow(ctx, s.IP, s.ReceivedAt); err != nil {
		return nil, err
	}

	admin, err := h.adminEmail(s)
	if err != nil {
		return nil, wrapFailure(KindGeneralError, err)
	}
	err = h.mailer.Send(ctx, admin)
	recordEmail("admin", err)
	if err != nil {
		return nil, wrapFailure(KindEmailSendFailure, fmt.Errorf("admin notification for %s: %w", s.ID, err))
	}

	reply, err := h.autoReply(s)
	if err == nil {
		err = h.mailer.Send(ctx, reply)
		recordEmail("auto_reply", err)
	}
	if err != nil {
		log.Warn("auto-reply not sent", "submission_id", s.ID, "to", s.Email, "err", err)
		h.journalError(log, fmt.Sprintf("Warning: Failed to send auto-reply email to %s: %v", s.Email, err))
	}

	if err := h.journal.Submission(s.ReceivedAt, s); err != nil {
		log.Error("submission log write failed", "submission_id", s.ID, "err", err)
	}
	if s.Newsletter {
		newsletterSignupsTotal.Inc()
		if err := h.journal.Newsletter(s.ReceivedAt, s); err != nil {
			log.Error("newsletter log write failed", "submission_id", s.ID, "err", err)
		}
	}
	return s, nil
}

// fail converts err into the JSON error response.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	log := LoggerFromContext(r.Context())

	se := asSubmissionError(err)
	recordSubmission(string(se.Kind))

	if se.Kind.Rejection() {
		log.Info("submission rejected", "kind", se.Kind, "field", se.Field)
	} else {
		log.Error("submission failed", "kind", se.Kind, "err", se.Err)
		h.journalError(log, "Contact form error: "+se.Error())
	}

	switch se.Kind {
	case KindRateLimited:
		w.Header().Set("Retry-After", retryAfterHeader(se.RetryAfter))
	case KindMethodNotAllowed:
		w.Header().Set("Allow", "POST, OPTIONS")
	}

	msg := se.Message
	if msg == "" {
		msg = h.cfg.message(se.Kind)
	}
	writeResult(w, se.Kind.Status(), false, msg, h.now().In(h.cfg.Location))
}

func (h *Handler) journalError(log *slog.Logger, msg string) {
	if err := h.journal.Error(h.now(), msg); err != nil {
		log.Error("error log write failed", "err", err)
	}
}

// cors sets the allow-origin header and reports whether the request origin
// may use the endpoint. Requests without an Origin header are not browser
// cross-origin calls and always pass.
func (h *Handler) cors(w http.ResponseWriter, r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if slices.Contains(h.cfg.AllowedOrigins, "*") {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		return true
	}
	if origin == "" {
		return true
	}
	if slices.Contains(h.cfg.AllowedOrigins, origin) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Vary", "Origin")
		return true
	}
	return false
}

// proxyHeaders are consulted in order when TrustProxyHeaders is set.
var proxyHeaders = []string{"CF-Connecting-IP", "X-Forwarded-For", "X-Real-IP"}

// publicIP rejects addresses that can only belong to a proxy hop or a
// spoofed header: private, loopback, link-local, multicast and unspecified.
func publicIP(ip net.IP) bool {
	return ip != nil &&
		!ip.IsPrivate() &&
		!ip.IsLoopback() &&
		!ip.IsLinkLocalUnicast() &&
		!ip.IsMulticast() &&
		!ip.IsUnspecified()
}

func (h *Handler) clientIP(r *http.Request) string {
	if h.cfg.TrustProxyHeaders {
		for _, hdr := range proxyHeaders {
			v := r.Header.Get(hdr)
			if v == "" {
				continue
			}
			first, _, _ := strings.Cut(v, ",")
			if ip := net.ParseIP(strings.TrimSpace(first)); publicIP(ip) {
				return ip.String()
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		return "unknown"
	}
	return host
}
