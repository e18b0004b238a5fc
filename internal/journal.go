package portfolio_contact

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	SubmissionsLog = "contact_submissions.log"
	NewsletterLog  = "newsletter_signups.log"
	ErrorsLog      = "errors.log"
)

const timestampLayout = "2006-01-02 15:04:05"

// Journal appends timestamped lines to the submissions, newsletter and
// error logs. A disabled journal accepts every call and writes nothing.
type Journal struct {
	mu      sync.Mutex
	dir     string
	enabled bool
	loc     *time.Location
}

func NewJournal(dir string, enabled bool, loc *time.Location) (*Journal, error) {
	if loc == nil {
		loc = time.Local
	}
	if enabled {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("log dir: %w", err)
		}
	}
	return &Journal{dir: dir, enabled: enabled, loc: loc}, nil
}

func (j *Journal) Path(name string) string {
	return filepath.Join(j.dir, name)
}

func (j *Journal) stamp(at time.Time) string {
	return at.In(j.loc).Format(timestampLayout)
}

// Submission appends "<ts> - <json>" for an accepted submission.
func (j *Journal) Submission(at time.Time, s *Submission) error {
	raw, err := json.Marshal(s.logRecord())
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}
	return j.append(SubmissionsLog, fmt.Sprintf("%s - %s\n", j.stamp(at), raw))
}

// Newsletter appends "<ts> - <email> - <first> <last>".
func (j *Journal) Newsletter(at time.Time, s *Submission) error {
	return j.append(NewsletterLog, fmt.Sprintf("%s - %s - %s\n", j.stamp(at), s.Email, s.FullName()))
}

// Error appends "[<ts>] <msg>".
func (j *Journal) Error(at time.Time, msg string) error {
	return j.append(ErrorsLog, fmt.Sprintf("[%s] %s\n", j.stamp(at), msg))
}

func (j *Journal) append(name, line string) error {
	if !j.enabled {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.OpenFile(j.Path(name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("append %s: %w", name, err)
	}
	return f.Close()
}

// Rotate moves every log whose last write is older than maxAge to
// "<name>.backup.YYYY-MM-DD" and leaves an empty file in its place.
// It returns the backup paths created.
func (j *Journal) Rotate(now time.Time, maxAge time.Duration) ([]string, error) {
	if !j.enabled {
		return nil, nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	cutoff := now.Add(-maxAge)
	var rotated []string
	var errs []error
	for _, name := range []string{SubmissionsLog, NewsletterLog, ErrorsLog} {
		path := j.Path(name)
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		backup := path + ".backup." + now.In(j.loc).Format("2006-01-02")
		if err := os.Rename(path, backup); err != nil {
			errs = append(errs, fmt.Errorf("rotate %s: %w", name, err))
			continue
		}
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			errs = append(errs, fmt.Errorf("recreate %s: %w", name, err))
		}
		rotated = append(rotated, backup)
	}
	return rotated, errors.Join(errs...)
}
