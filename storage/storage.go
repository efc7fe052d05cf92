// Package storage handles persistence of notification suppression records.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"instock-notifier/pkg/stock"

	"cloud.google.com/go/storage"
	"github.com/codeGROOVE-dev/retry"
)

// ErrSuppressed is returned by Put when a conditional write finds a live record already present.
var ErrSuppressed = errors.New("storage: suppression already recorded")

// Key derives a stable, path-safe identifier for a (product URL, target) pair.
func Key(productURL, targetID string) string {
	h := sha256.New()
	h.Write([]byte(productURL))
	h.Write([]byte{0})
	h.Write([]byte(targetID))
	return hex.EncodeToString(h.Sum(nil))
}

// objectName is the local file or GCS object name for a suppression key.
func objectName(key string) string {
	return fmt.Sprintf("sup-%s.json", key)
}

// Store keeps suppression records as JSON objects in a GCS bucket or a local directory.
// Records whose SuppressedUntil has passed read as misses and are overwritten by the next Put.
type Store struct {
	client    *storage.Client
	logger    *slog.Logger
	now       func() time.Time
	localPath string
	bucket    string
}

// New creates a new storage handler. When localPath is set the bucket is ignored.
func New(client *storage.Client, bucket string, localPath string, logger *slog.Logger) *Store {
	return &Store{
		client:    client,
		logger:    logger,
		now:       time.Now,
		localPath: localPath,
		bucket:    bucket,
	}
}

// Get returns the live suppression for the pair, or nil if there is none.
func (s *Store) Get(ctx context.Context, productURL, targetID string) (*stock.Suppression, error) {
	name := objectName(Key(productURL, targetID))

	data, err := s.read(ctx, name)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var rec stock.Suppression
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal suppression: %w", err)
	}
	if !rec.SuppressedUntil.After(s.now()) {
		s.logger.Debug("Suppression expired", "key", name, "suppressed_until", rec.SuppressedUntil.Format(time.RFC3339))
		return nil, nil
	}
	return &rec, nil
}

// Put writes the suppression, replacing any previous record for the pair.
func (s *Store) Put(ctx context.Context, rec *stock.Suppression) error {
	name := objectName(Key(rec.ProductURL, rec.TargetID))
	s.logger.Debug("Saving suppression", "key", name, "url", rec.ProductURL, "target", rec.TargetID)

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal suppression: %w", err)
	}

	// Local filesystem storage
	if s.localPath != "" {
		filePath := filepath.Join(s.localPath, name)
		if err := os.WriteFile(filePath, data, 0o600); err != nil {
			return fmt.Errorf("write to local storage: %w", err)
		}
		s.logger.Debug("Suppression saved to local storage", "path", filePath)
		return nil
	}

	// Cloud Storage with retry logic for reliability
	err = retry.Do(
		func() error {
			w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
			w.ContentType = "application/json"
			if _, writeErr := w.Write(data); writeErr != nil {
				if closeErr := w.Close(); closeErr != nil {
					s.logger.Warn("Failed to close writer after error", "error", closeErr)
				}
				return fmt.Errorf("write to storage: %w", writeErr)
			}
			if closeErr := w.Close(); closeErr != nil {
				return fmt.Errorf("close storage writer: %w", closeErr)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(10*time.Second),
		retry.MaxJitter(time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, retryErr error) {
			s.logger.Info("Retrying save operation after error", "attempt", n, "key", name, "error", retryErr)
		}),
	)
	if err != nil {
		return fmt.Errorf("save after retries: %w", err)
	}

	s.logger.Debug("Suppression saved", "key", name)
	return nil
}

// Delete removes the record for the pair. A missing record is not an error.
func (s *Store) Delete(ctx context.Context, productURL, targetID string) error {
	name := objectName(Key(productURL, targetID))

	// Local filesystem storage
	if s.localPath != "" {
		if err := os.Remove(filepath.Join(s.localPath, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete from local storage: %w", err)
		}
		s.logger.Debug("Suppression deleted from local storage", "key", name)
		return nil
	}

	// Cloud Storage with retry logic for reliability
	err := retry.Do(
		func() error {
			delErr := s.client.Bucket(s.bucket).Object(name).Delete(ctx)
			if delErr != nil && !errors.Is(delErr, storage.ErrObjectNotExist) {
				return fmt.Errorf("delete from storage: %w", delErr)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(10*time.Second),
		retry.MaxJitter(time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, retryErr error) {
			s.logger.Info("Retrying delete operation after error", "attempt", n, "key", name, "error", retryErr)
		}),
	)
	if err != nil {
		return fmt.Errorf("delete after retries: %w", err)
	}

	s.logger.Debug("Suppression deleted", "key", name)
	return nil
}

// read returns the object's bytes, or nil if it does not exist.
func (s *Store) read(ctx context.Context, name string) ([]byte, error) {
	// Local filesystem storage
	if s.localPath != "" {
		data, err := os.ReadFile(filepath.Join(s.localPath, name))
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("read from local storage: %w", err)
		}
		return data, nil
	}

	// Cloud Storage with retry logic for reliability
	var data []byte
	notFound := false
	err := retry.Do(
		func() error {
			r, openErr := s.client.Bucket(s.bucket).Object(name).NewReader(ctx)
			if openErr != nil {
				// Don't retry on "not found" errors
				if errors.Is(openErr, storage.ErrObjectNotExist) {
					notFound = true
					return nil
				}
				return fmt.Errorf("open storage reader: %w", openErr)
			}
			defer func() {
				if closeErr := r.Close(); closeErr != nil {
					s.logger.Warn("Failed to close storage reader", "error", closeErr)
				}
			}()

			var readErr error
			data, readErr = io.ReadAll(r)
			if readErr != nil {
				return fmt.Errorf("read from storage: %w", readErr)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(10*time.Second),
		retry.MaxJitter(time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, retryErr error) {
			s.logger.Info("Retrying load operation after error", "attempt", n, "key", name, "error", retryErr)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("load after retries: %w", err)
	}
	if notFound {
		return nil, nil
	}
	return data, nil
}
