// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package dedup provides the activity fingerprint and a Redis-backed seen
// filter. Two activities with the same fingerprint are the same occurrence;
// repeated syncs from the same external source must never duplicate billable
// time. The filter is a fast path only — the durable guarantee is the
// (user_id, content_hash) unique constraint in the activity store.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL is how long we remember a seen fingerprint. Source sync
	// lookback windows are at most a few days, so 7 days is safe.
	DefaultTTL = 7 * 24 * time.Hour

	// keyPrefix namespaces dedup keys in Redis.
	keyPrefix = "autotime:seen:"
)

// Fingerprint derives the stable deduplication key for an activity from its
// title, start time, and source system. The encoding is canonical: start
// times are normalised to UTC RFC 3339 and fields are NUL-separated so no
// two distinct triples collide on concatenation.
func Fingerprint(title string, start time.Time, source string) string {
	h := sha256.New()
	h.Write([]byte(title))
	h.Write([]byte{0})
	h.Write([]byte(start.UTC().Format(time.RFC3339)))
	h.Write([]byte{0})
	h.Write([]byte(source))
	return hex.EncodeToString(h.Sum(nil))
}

// Filter tracks which fingerprints have already been ingested for a user.
type Filter struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewFilter creates a dedup filter backed by Redis.
func NewFilter(rdb *redis.Client) *Filter {
	return &Filter{
		rdb: rdb,
		ttl: DefaultTTL,
	}
}

// Seen reports whether the fingerprint has already been marked for this
// user. It is read-only: checking never marks, so a failed insert after a
// check cannot poison later retries.
func (f *Filter) Seen(ctx context.Context, userID, fingerprint string) (bool, error) {
	n, err := f.rdb.Exists(ctx, f.key(userID, fingerprint)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup EXISTS: %w", err)
	}
	return n > 0, nil
}

// Mark records the fingerprint as ingested. Call it only once the activity
// row is durable in the store.
func (f *Filter) Mark(ctx context.Context, userID, fingerprint string) error {
	if err := f.rdb.Set(ctx, f.key(userID, fingerprint), 1, f.ttl).Err(); err != nil {
		return fmt.Errorf("dedup SET: %w", err)
	}
	return nil
}

func (f *Filter) key(userID, fingerprint string) string {
	return fmt.Sprintf("%s%s:%s", keyPrefix, userID, fingerprint)
}
