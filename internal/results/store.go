package results

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"medocr/internal/logger"
	"medocr/internal/storage"
)

// ErrNoResults is returned when the results prefix holds no tables yet.
var ErrNoResults = errors.New("no result tables under prefix")

const keyTimestampLayout = "20060102-150405"

// Store persists result tables to blob storage.
type Store struct {
	client storage.Client
	bucket string
	prefix string
	now    func() time.Time
	log    zerolog.Logger
}

// NewStore builds a Store writing under prefix in bucket.
func NewStore(client storage.Client, bucket, prefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
		now:    time.Now,
		log:    logger.WithComponent("results"),
	}
}

// WithClock replaces the time source used for result keys.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// UploadMedicationRow writes a single-row result table keyed by the
// source image's base name plus a UTC timestamp, and returns the key.
func (s *Store) UploadMedicationRow(ctx context.Context, baseName string, row Row) (string, error) {
	const op = "Store.UploadMedicationRow"

	key := fmt.Sprintf("%s%s_%s.csv", s.prefix, baseName, s.now().UTC().Format(keyTimestampLayout))
	if err := s.client.PutObject(ctx, s.bucket, key, EncodeMedicationTable(row), "text/csv"); err != nil {
		return "", fmt.Errorf("%s: failed to upload result table: %w", op, err)
	}

	s.log.Info().
		Str("bucket", s.bucket).
		Str("key", key).
		Msg("Result table uploaded")
	return key, nil
}

// LatestKey returns the most recently modified table key under the
// results prefix, following list pagination.
func (s *Store) LatestKey(ctx context.Context) (string, error) {
	const op = "Store.LatestKey"

	objects, err := s.client.ListObjects(ctx, s.bucket, s.prefix)
	if err != nil {
		return "", fmt.Errorf("%s: failed to list results: %w", op, err)
	}

	var newest storage.Object
	found := false
	for _, obj := range objects {
		if !strings.HasSuffix(strings.ToLower(obj.Key), ".csv") {
			continue
		}
		if !found || obj.LastModified.After(newest.LastModified) {
			newest = obj
			found = true
		}
	}
	if !found {
		return "", fmt.Errorf("%s: %w", op, ErrNoResults)
	}
	return newest.Key, nil
}

// UpdateExpiry sets the expiry column on the first row of the table at
// key, creating the column and the row when absent, and writes the
// table back in place.
func (s *Store) UpdateExpiry(ctx context.Context, key, expiry string) error {
	const op = "Store.UpdateExpiry"

	data, err := s.client.GetObject(ctx, s.bucket, key)
	if err != nil {
		return fmt.Errorf("%s: failed to download table: %w", op, err)
	}

	table, err := DecodeTable(data)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	col := table.ColumnIndex(ExpiryColumn)
	if col < 0 {
		col = table.AddColumn(ExpiryColumn)
	}
	if len(table.Rows) == 0 {
		table.Rows = append(table.Rows, make([]string, len(table.Columns)))
	}
	table.Set(0, col, expiry)

	if err := s.client.PutObject(ctx, s.bucket, key, table.Encode(), "text/csv"); err != nil {
		return fmt.Errorf("%s: failed to upload updated table: %w", op, err)
	}

	s.log.Info().
		Str("bucket", s.bucket).
		Str("key", key).
		Str("expiry", expiry).
		Msg("Expiry column updated")
	return nil
}
