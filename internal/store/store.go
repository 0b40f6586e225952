// Matchengine - Hybrid Job-Candidate Recommendation Engine
// Copyright 2026 Hireloop
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hireloop/matchengine

// Package store persists user records, job records, and append-only
// interaction events in an embedded Badger key-value store, and
// implements the engine's DataProvider boundary on top of them.
//
// Key layout:
//
//	user:<userID>              -> profile.UserRecord (JSON)
//	job:<jobID>                -> profile.JobRecord (JSON)
//	event:<nanos>:<eventID>    -> profile.EventRecord (JSON), time-ordered
//	count:<userID>             -> uint64 interaction counter
package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/hireloop/matchengine/internal/profile"
	"github.com/hireloop/matchengine/internal/recommend"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("record not found")

const (
	userPrefix  = "user:"
	jobPrefix   = "job:"
	eventPrefix = "event:"
	countPrefix = "count:"
)

// Options configures a Store.
type Options struct {
	// Path is the on-disk directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in memory; data is lost on close.
	InMemory bool
}

// Store is the embedded record store. Safe for concurrent use.
type Store struct {
	db     *badger.DB
	logger zerolog.Logger
}

// Open opens or creates the store.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func Open(opts Options, logger zerolog.Logger) (*Store, error) {
	var badgerOpts badger.Options
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		badgerOpts = badger.DefaultOptions(opts.Path)
	}
	// Badger's own logger is noisy at INFO; everything worth surfacing
	// is logged here with context instead.
	badgerOpts = badgerOpts.WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}

	return &Store{
		db:     db,
		logger: logger.With().Str("component", "store").Logger(),
	}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunGC triggers one value-log garbage collection cycle. A rewrite-free
// cycle is not an error.
func (s *Store) RunGC() {
	if err := s.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		s.logger.Warn().Err(err).Msg("value log gc failed")
	}
}

// UpsertUser stores or replaces a user record.
func (s *Store) UpsertUser(ctx context.Context, record *profile.UserRecord) error {
	if record.UserID == "" {
		return fmt.Errorf("user record missing user_id")
	}
	record.UpdatedAt = time.Now()
	return s.put(ctx, userPrefix+record.UserID, record)
}

// GetUser fetches a user record. Returns ErrNotFound when absent.
func (s *Store) GetUser(ctx context.Context, userID string) (*profile.UserRecord, error) {
	var record profile.UserRecord
	if err := s.get(ctx, userPrefix+userID, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// UpsertJob stores or replaces a job record.
func (s *Store) UpsertJob(ctx context.Context, record *profile.JobRecord) error {
	if record.JobID == "" {
		return fmt.Errorf("job record missing job_id")
	}
	if record.PostedAt.IsZero() {
		record.PostedAt = time.Now()
	}
	return s.put(ctx, jobPrefix+record.JobID, record)
}

// GetJob fetches a job record. Returns ErrNotFound when absent.
func (s *Store) GetJob(ctx context.Context, jobID string) (*profile.JobRecord, error) {
	var record profile.JobRecord
	if err := s.get(ctx, jobPrefix+jobID, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// AppendEvent persists one interaction event and bumps the user's
// interaction counter in the same transaction.
func (s *Store) AppendEvent(ctx context.Context, record *profile.EventRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if record.EventID == "" || record.UserID == "" {
		return fmt.Errorf("event record missing identifiers")
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now()
	}

	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	key := eventKey(record.OccurredAt, record.EventID)
	countKey := []byte(countPrefix + record.UserID)

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, value); err != nil {
			return err
		}

		count := uint64(0)
		item, err := txn.Get(countKey)
		switch {
		case err == nil:
			if err := item.Value(func(v []byte) error {
				if len(v) == 8 {
					count = binary.BigEndian.Uint64(v)
				}
				return nil
			}); err != nil {
				return err
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, count+1)
		return txn.Set(countKey, buf)
	})
}

// FetchCandidate implements recommend.DataProvider.
func (s *Store) FetchCandidate(ctx context.Context, userID string) (*recommend.CandidateProfile, error) {
	record, err := s.GetUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("user %s: %w", userID, recommend.ErrCandidateNotFound)
	}
	if err != nil {
		return nil, err
	}
	return profile.Candidate(record), nil
}

// FetchActiveJobs implements recommend.DataProvider: up to limit active
// jobs, most recently posted first.
func (s *Store) FetchActiveJobs(ctx context.Context, limit int) ([]recommend.JobProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []profile.JobRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(jobPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var record profile.JobRecord
			if err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &record)
			}); err != nil {
				s.logger.Warn().Err(err).
					Str("key", string(it.Item().Key())).
					Msg("skipping undecodable job record")
				continue
			}
			if record.Active() {
				records = append(records, record)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan jobs: %w", err)
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].PostedAt.Equal(records[j].PostedAt) {
			return records[i].PostedAt.After(records[j].PostedAt)
		}
		return records[i].JobID < records[j].JobID
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	jobs := make([]recommend.JobProfile, 0, len(records))
	for i := range records {
		jobs = append(jobs, profile.Job(&records[i]))
	}
	return jobs, nil
}

// FetchInteractions implements recommend.DataProvider: events no older
// than sinceDays, converted to model interactions. Undecodable or
// unknown-type events are skipped.
func (s *Store) FetchInteractions(ctx context.Context, sinceDays int) ([]recommend.Interaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cutoff := time.Now().AddDate(0, 0, -sinceDays)
	seek := []byte(fmt.Sprintf("%s%020d", eventPrefix, cutoff.UnixNano()))

	var interactions []recommend.Interaction
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(eventPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(seek); it.Valid(); it.Next() {
			var record profile.EventRecord
			if err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &record)
			}); err != nil {
				s.logger.Warn().Err(err).
					Str("key", string(it.Item().Key())).
					Msg("skipping undecodable event record")
				continue
			}
			if in, ok := profile.Interaction(&record); ok {
				interactions = append(interactions, in)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan events: %w", err)
	}

	return interactions, nil
}

// CountUserInteractions implements recommend.DataProvider from the
// per-user counter maintained at ingest time.
func (s *Store) CountUserInteractions(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(countPrefix + userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			if len(v) == 8 {
				count = int(binary.BigEndian.Uint64(v))
			}
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("read interaction count: %w", err)
	}
	return count, nil
}

func (s *Store) put(ctx context.Context, key string, record interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (s *Store) get(ctx context.Context, key string, record interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, record)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return err
}

// eventKey builds a lexicographically time-ordered event key.
func eventKey(ts time.Time, eventID string) []byte {
	return []byte(eventPrefix + fmt.Sprintf("%020d", ts.UnixNano()) + ":" + eventID)
}
