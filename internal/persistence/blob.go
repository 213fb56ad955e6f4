// Package persistence stores JSON blobs under fixed keys of the settings table.
package persistence

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
)

// Fixed settings keys
const (
	KeyPregeneration = "recommend.pregeneration"
	KeyCorpusStats   = "stats.corpus"
)

// KV is the settings table as seen by blob persistence.
type KV interface {
	GetSetting(ctx context.Context, key string) ([]byte, error)
	PutSetting(ctx context.Context, key string, value []byte) error
}

// SaveJSON encodes object and stores it under key, replacing any previous blob.
func SaveJSON(ctx context.Context, kv KV, key string, object interface{}) error {
	data, err := json.Marshal(object)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := kv.PutSetting(ctx, key, data); err != nil {
		return err
	}
	return nil
}

// LoadJSON decodes the blob under key into objectPointer. A missing key returns the
// store's not-found error unchanged so callers can treat it as a fresh start.
func LoadJSON(ctx context.Context, kv KV, key string, objectPointer interface{}) error {
	data, err := kv.GetSetting(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, objectPointer); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}
