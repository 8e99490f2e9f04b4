package repositories

import (
	"chat-hub/domain"
	"chat-hub/domain/event"
	"encoding/hex"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	eventPrefix    = "evt:"
	identityPrefix = "idn:"
	// 20 digits hold any uint64, so lexicographical order is sequence order.
	maxSequenceKey = "99999999999999999999"
)

// EventRepository archives appended events in badger.
//
// Two keys are written per event:
//   - "evt:{sequence}" for range reads in sequence order, used when a replay
//     reaches before the event log's retained window
//   - "idn:{hex identity}:{sequence}" for per-participant history
//
// Both keys expire after the configured TTL, which bounds the archive size.
type EventRepository struct {
	db          *badger.DB
	log         *slog.Logger
	limitEvents int
	ttl         time.Duration
}

// NewEventRepository caps every read at limitEvents, 0 means no cap.
func NewEventRepository(db *badger.DB, log *slog.Logger, limitEvents int) *EventRepository {
	return &EventRepository{db: db, log: log, limitEvents: limitEvents}
}

// OpenInMemory opens a badger instance that lives only as long as the process.
func OpenInMemory() (*badger.DB, error) {
	return badger.Open(badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.ERROR))
}

// WithTTL makes archived events expire after ttl, 0 keeps them for the process lifetime.
func (r *EventRepository) WithTTL(ttl time.Duration) *EventRepository {
	r.ttl = ttl
	return r
}

func eventKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", eventPrefix, seq))
}

func identityKeyPrefix(identity domain.Identity) []byte {
	return []byte(fmt.Sprintf("%s%s:", identityPrefix, hex.EncodeToString([]byte(identity))))
}

func (r *EventRepository) Store(e event.Event) error {
	value, err := EncodeEvent(e)
	if err != nil {
		return err
	}
	identityKey := append(identityKeyPrefix(e.Identity()), []byte(fmt.Sprintf("%020d", e.Sequence()))...)
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.SetEntry(r.entry(eventKey(e.Sequence()), value)); err != nil {
			return err
		}
		return txn.SetEntry(r.entry(identityKey, value))
	})
}

func (r *EventRepository) entry(key, value []byte) *badger.Entry {
	entry := badger.NewEntry(key, value)
	if r.ttl > 0 {
		entry = entry.WithTTL(r.ttl)
	}
	return entry
}

// Range returns archived events with sequence >= from, in sequence order.
func (r *EventRepository) Range(from uint64, limit int) ([]event.Event, error) {
	limit = r.cap(limit)
	var values [][]byte
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(eventPrefix)
		for it.Seek(eventKey(from)); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(values) == limit {
				break
			}
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			values = append(values, value)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decodeAll(values)
}

// History returns the latest events of one participant, oldest first.
// The identity index is walked backwards from the highest sequence.
func (r *EventRepository) History(identity domain.Identity, limit int) ([]event.Event, error) {
	limit = r.cap(limit)
	var values [][]byte
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := identityKeyPrefix(identity)
		seekKey := append(slices.Clone(prefix), []byte(maxSequenceKey)...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(values) == limit {
				r.log.Debug(fmt.Sprintf("Maximum of %d events reached", limit))
				break
			}
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			values = append(values, value)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(values)
	return decodeAll(values)
}

func (r *EventRepository) cap(limit int) int {
	if r.limitEvents > 0 && (limit <= 0 || limit > r.limitEvents) {
		return r.limitEvents
	}
	return limit
}

func decodeAll(values [][]byte) ([]event.Event, error) {
	events := make([]event.Event, 0, len(values))
	for _, value := range values {
		e, err := DecodeEvent(value)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}
