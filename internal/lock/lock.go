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

// Package lock provides a per-user processing lease in Redis. At most one
// processing run may hold a user's lease at a time; runs for different users
// are independent. The TTL bounds how long a crashed run can block its user.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrHeld is returned when another run already holds the user's lease.
var ErrHeld = errors.New("processing already in progress for user")

const keyPrefix = "autotime:lock:"

// releaseScript deletes the lease only if the caller still owns it, so an
// expired lease taken over by a successor is never deleted by the old holder.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript pushes the expiry out only while the caller still owns the
// lease. Returning 0 means the lease lapsed and may belong to a successor.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Lease is a held per-user lease. The holder extends it while work is in
// flight; the TTL is the backstop if the holder crashes.
type Lease interface {
	// Extend resets the expiry to the full TTL. It fails once the lease
	// has lapsed, at which point the holder must stop its run.
	Extend(ctx context.Context) error
	// Release frees the lease if still held. Best-effort.
	Release(ctx context.Context)
}

// UserLock hands out per-user leases.
type UserLock struct {
	rdb *redis.Client
	ttl time.Duration
}

// New creates a lease manager with the given TTL.
func New(rdb *redis.Client, ttl time.Duration) *UserLock {
	return &UserLock{rdb: rdb, ttl: ttl}
}

// Acquire takes the lease for userID.
func (l *UserLock) Acquire(ctx context.Context, userID string) (Lease, error) {
	key := keyPrefix + userID
	token := uuid.New().String()

	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("lock SETNX: %w", err)
	}
	if !ok {
		return nil, ErrHeld
	}

	return &userLease{rdb: l.rdb, key: key, token: token, ttl: l.ttl}, nil
}

type userLease struct {
	rdb   *redis.Client
	key   string
	token string
	ttl   time.Duration
}

func (l *userLease) Extend(ctx context.Context) error {
	n, err := extendScript.Run(ctx, l.rdb, []string{l.key}, l.token, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("lock PEXPIRE: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("lease for %s no longer held", l.key)
	}
	return nil
}

func (l *userLease) Release(ctx context.Context) {
	_ = releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Err()
}
