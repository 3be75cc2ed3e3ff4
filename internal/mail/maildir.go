package mail

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	stdmail "net/mail"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DirSource reads .eml files dropped into a directory, typically by a
// fetchmail or procmail rule. Files are never moved or deleted; the email
// processing log is what prevents a message from being handled twice, so the
// same file can sit in the directory forever.
type DirSource struct {
	log *logrus.Logger
	dir string
}

func NewDirSource(log *logrus.Logger, dir string) *DirSource {
	return &DirSource{log: log, dir: dir}
}

func (s *DirSource) FetchUnseen(_ context.Context) ([]Message, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read mail dir %s: %w", s.dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".eml") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	msgs := make([]Message, 0, len(names))
	for _, name := range names {
		path := filepath.Join(s.dir, name)
		msg, err := readEML(path)
		if err != nil {
			// One malformed file must not block the rest of the inbox.
			s.log.WithError(err).WithField("file", path).Warn("skipping unreadable email file")
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func readEML(path string) (Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return Message{}, err
	}
	defer f.Close()

	parsed, err := stdmail.ReadMessage(f)
	if err != nil {
		return Message{}, err
	}
	body, err := io.ReadAll(parsed.Body)
	if err != nil {
		return Message{}, err
	}

	msg := Message{
		ID:      strings.Trim(parsed.Header.Get("Message-ID"), "<>"),
		From:    parsed.Header.Get("From"),
		Subject: parsed.Header.Get("Subject"),
		Body:    string(body),
	}
	if msg.ID == "" {
		// Header-less exports still need a stable identity for dedup.
		sum := sha256.Sum256([]byte(msg.Subject + "\x00" + msg.Body))
		msg.ID = hex.EncodeToString(sum[:16])
	}
	if t, err := parsed.Header.Date(); err == nil {
		msg.Received = t.UTC()
	} else {
		msg.Received = time.Now().UTC()
	}
	return msg, nil
}
