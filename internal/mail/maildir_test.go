package mail

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func newTestDirSource(t *testing.T) (*DirSource, string) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	dir := t.TempDir()
	return NewDirSource(log, dir), dir
}

func writeMailFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

const goodEML = "Message-ID: <abc123@mail.example.com>\r\n" +
	"From: automated@airbnb.com\r\n" +
	"Subject: Reservation confirmed\r\n" +
	"Date: Mon, 24 Aug 2026 10:00:00 +0000\r\n" +
	"\r\n" +
	"Guest: Jordan Lee\r\n"

func TestFetchUnseenReadsMailDir(t *testing.T) {
	s, dir := newTestDirSource(t)
	writeMailFile(t, dir, "001.eml", goodEML)
	writeMailFile(t, dir, "notes.txt", "not mail, wrong extension")

	msgs, err := s.FetchUnseen(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(msgs))
	}
	if msgs[0].ID != "abc123@mail.example.com" {
		t.Errorf("id = %q", msgs[0].ID)
	}
	if msgs[0].Subject != "Reservation confirmed" {
		t.Errorf("subject = %q", msgs[0].Subject)
	}
}

func TestFetchUnseenSkipsMalformedFile(t *testing.T) {
	s, dir := newTestDirSource(t)
	writeMailFile(t, dir, "000-broken.eml", "this is not an rfc822 message")
	writeMailFile(t, dir, "001.eml", goodEML)

	msgs, err := s.FetchUnseen(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want the readable one only", len(msgs))
	}
	if msgs[0].ID != "abc123@mail.example.com" {
		t.Errorf("id = %q, readable message lost", msgs[0].ID)
	}
}

func TestFetchUnseenDerivesIDWithoutHeader(t *testing.T) {
	s, dir := newTestDirSource(t)
	writeMailFile(t, dir, "001.eml",
		"Subject: A payout was sent\r\n\r\nYour payout of $50.00 is on its way.\r\n")

	msgs, err := s.FetchUnseen(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID == "" {
		t.Fatalf("msgs = %+v, want one message with a derived id", msgs)
	}
}
