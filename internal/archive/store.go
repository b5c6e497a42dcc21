// Package archive keeps a copy of every uploaded workbook.
package archive

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Upload struct {
	PubTemID string
	Email    string
	FileName string
	Data     []byte
	At       time.Time
}

type Store interface {
	// Save stores u and returns its gs:// location, or "" when archiving is off.
	Save(ctx context.Context, u Upload) (string, error)
}

// New returns a GCS store for bucket, or a store that keeps nothing when
// bucket is empty.
func New(bucket string) Store {
	if strings.TrimSpace(bucket) == "" {
		return NopStore{}
	}
	return &GCSStore{Bucket: bucket}
}

type NopStore struct{}

func (NopStore) Save(context.Context, Upload) (string, error) { return "", nil }

type GCSStore struct {
	Bucket string
}

func (s *GCSStore) Save(ctx context.Context, u Upload) (string, error) {
	client, err := newGCSClientHook(ctx)
	if err != nil {
		return "", err
	}
	defer client.Close()

	name := ObjectName(u)
	w := client.Bucket(s.Bucket).Object(name).NewWriter(ctx, contentType(u.FileName))
	if _, err := w.Write(u.Data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return fmt.Sprintf("gs://%s/%s", s.Bucket, name), nil
}

func contentType(fileName string) string {
	if strings.EqualFold(path.Ext(fileName), ".xls") {
		return "application/vnd.ms-excel"
	}
	return xlsxContentType
}

var unsafePart = regexp.MustCompile(`[^a-z0-9_.@\-]`)

// SanitizePart lowercases s and keeps only characters safe in an object path.
func SanitizePart(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.ReplaceAll(s, " ", "_")
	s = unsafePart.ReplaceAllString(s, "")
	s = strings.Trim(s, ".")
	if s == "" {
		return "unknown"
	}
	return s
}

// ObjectName is uploads/<pubTemID>/<email>/<timestamp>_<file>.
func ObjectName(u Upload) string {
	at := u.At
	if at.IsZero() {
		at = time.Now()
	}
	return fmt.Sprintf("uploads/%s/%s/%s_%s",
		SanitizePart(u.PubTemID),
		SanitizePart(u.Email),
		at.UTC().Format("20060102T150405Z"),
		SanitizePart(path.Base(u.FileName)),
	)
}
