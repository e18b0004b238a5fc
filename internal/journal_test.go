package portfolio_contact

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestJournalLines(t *testing.T) {
	dir := t.TempDir()
	loc := time.FixedZone("PDT", -7*3600)
	j, err := NewJournal(dir, true, loc)
	if err != nil {
		t.Fatal(err)
	}
	at := time.Date(2026, 10, 16, 19, 30, 0, 0, time.UTC)

	if err := j.Error(at, "boom"); err != nil {
		t.Fatal(err)
	}
	if err := j.Error(at.Add(time.Second), "again"); err != nil {
		t.Fatal(err)
	}

	lines := readLines(t, j.Path(ErrorsLog))
	want := []string{"[2026-10-16 12:30:00] boom", "[2026-10-16 12:30:01] again"}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Fatalf("got %q want %q", lines, want)
	}
}

func TestJournalDisabled(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "never")
	j, err := NewJournal(dir, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := j.Submission(time.Now(), &Submission{}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("disabled journal must not create %s", dir)
	}
}

func TestJournalRotate(t *testing.T) {
	dir := t.TempDir()
	j, err := NewJournal(dir, true, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	// mtimes come from the wall clock, so rotation is judged against it too.
	now := time.Now().UTC()

	if err := j.Error(now, "old entry"); err != nil {
		t.Fatal(err)
	}
	if err := j.Newsletter(now, &Submission{Email: "a@example.com", FirstName: "A", LastName: "B"}); err != nil {
		t.Fatal(err)
	}
	old := now.Add(-31 * 24 * time.Hour)
	if err := os.Chtimes(j.Path(ErrorsLog), old, old); err != nil {
		t.Fatal(err)
	}

	rotated, err := j.Rotate(now, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	wantBackup := j.Path(ErrorsLog) + ".backup." + now.Format("2006-01-02")
	if len(rotated) != 1 || rotated[0] != wantBackup {
		t.Fatalf("unexpected rotation %v", rotated)
	}
	if lines := readLines(t, wantBackup); len(lines) != 1 || !strings.Contains(lines[0], "old entry") {
		t.Fatalf("backup contents %v", lines)
	}
	info, err := os.Stat(j.Path(ErrorsLog))
	if err != nil || info.Size() != 0 {
		t.Fatalf("expected fresh empty errors log, err=%v", err)
	}
	if lines := readLines(t, j.Path(NewsletterLog)); len(lines) != 1 {
		t.Fatal("recent log must not be rotated")
	}
}
