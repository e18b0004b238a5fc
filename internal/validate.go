package portfolio_contact

import (
	"regexp"
	"strings"
)

var (
	emailRegex = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$")
	phoneRegex = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)
	phoneStrip = regexp.MustCompile(`[^\d+]`)

	markup = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#039;",
	)
)

// sanitize trims and entity-escapes markup characters.
func sanitize(s string) string {
	return markup.Replace(strings.TrimSpace(s))
}

func isValidEmail(s string) bool {
	if len(s) > 254 || !emailRegex.MatchString(s) {
		return false
	}
	local := s[:strings.LastIndexByte(s, '@')]
	if len(local) > 64 || strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") || strings.Contains(local, "..") {
		return false
	}
	return true
}

// isValidPhone accepts an empty value or up to 16 digits with an optional
// leading plus once spaces, dashes and brackets are removed.
func isValidPhone(s string) bool {
	if s == "" {
		return true
	}
	return phoneRegex.MatchString(phoneStrip.ReplaceAllString(s, ""))
}

// spamKeyword returns the first keyword found in the lower-cased text.
func spamKeyword(text string, keywords []string) (string, bool) {
	text = strings.ToLower(text)
	for _, k := range keywords {
		k = strings.ToLower(k)
		if k != "" && strings.Contains(text, k) {
			return k, true
		}
	}
	return "", false
}

// checkSubmission runs the content checks on a sanitized submission, in order.
func (c *Config) checkSubmission(s *Submission) error {
	if !isValidEmail(s.Email) {
		return &SubmissionError{Kind: KindInvalidEmail, Field: FieldEmail}
	}
	if !isValidPhone(s.Phone) {
		return &SubmissionError{Kind: KindInvalidPhone, Field: FieldPhone}
	}
	if _, ok := c.InquiryLabel(s.InquiryType); !ok {
		return &SubmissionError{Kind: KindInvalidInquiryType, Field: FieldInquiryType}
	}
	if s.subjectLen > c.MaxSubjectLength {
		return &SubmissionError{Kind: KindSubjectTooLong, Field: FieldSubject}
	}
	if s.messageLen > c.MaxMessageLength {
		return &SubmissionError{Kind: KindMessageTooLong, Field: FieldMessage}
	}
	if s.Honeypot != "" {
		return &SubmissionError{Kind: KindSpamDetected, Field: FieldWebsite}
	}
	if c.SpamFilter {
		if _, hit := spamKeyword(s.Message+" "+s.Subject, c.SpamKeywords); hit {
			return reject(KindSpamDetected)
		}
	}
	return nil
}
