// Package archive persists decoded sessions in a local pebble store, so
// downloads can be decoded once and re-read later without the meter attached.
package archive

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"

	"github.com/ACascarino/pat/pkg/sss"
)

const (
	sessionPrefix = "session:"
	rowPrefix     = "row:"
)

// Session is the stored metadata for one decoded download.
type Session struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	Rows      int       `json:"rows"`
	Version   int       `json:"version"`
}

// Archive is a pebble-backed session store. Safe for use from one process at
// a time; pebble holds an exclusive lock on the directory.
type Archive struct {
	db *pebble.DB
}

// Open opens or creates the archive at path.
func Open(path string) (*Archive, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close releases the store.
func (a *Archive) Close() error {
	return a.db.Close()
}

func sessionKey(id string) []byte {
	return []byte(sessionPrefix + id)
}

// rowKey orders rows within a session by their decode sequence. The fixed
// width keeps lexicographic and numeric order identical.
func rowKey(id string, seq int) []byte {
	return []byte(fmt.Sprintf("%s%s:%08d", rowPrefix, id, seq))
}

// StoreSession drains the parser and writes all of its rows plus a session
// metadata record in one atomic batch. A fatal decode error abandons the
// whole batch: partial sessions are never stored.
func (a *Archive) StoreSession(source string, parser *sss.Parser) (*Session, error) {
	id := ksuid.New().String()
	batch := a.db.NewBatch()
	defer batch.Close()

	count := 0
	it := parser.Iterator()
	for it.Next() {
		data, err := json.Marshal(it.Row())
		if err != nil {
			return nil, fmt.Errorf("failed to serialize row: %w", err)
		}
		if err := batch.Set(rowKey(id, count), data, nil); err != nil {
			return nil, fmt.Errorf("failed to stage row: %w", err)
		}
		count++
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("decode failed, session not stored: %w", err)
	}

	session := &Session{
		ID:        id,
		Source:    source,
		CreatedAt: time.Now().UTC(),
		Rows:      count,
		Version:   int(parser.Version()),
	}
	meta, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize session: %w", err)
	}
	if err := batch.Set(sessionKey(id), meta, nil); err != nil {
		return nil, fmt.Errorf("failed to stage session: %w", err)
	}

	if err := a.db.Apply(batch, pebble.Sync); err != nil {
		return nil, fmt.Errorf("failed to commit session: %w", err)
	}
	return session, nil
}

// Sessions lists all stored sessions. KSUIDs sort by creation time, so the
// result is oldest first.
func (a *Archive) Sessions() ([]Session, error) {
	iter, err := a.db.NewIter(prefixIterOptions([]byte(sessionPrefix)))
	if err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}
	defer iter.Close()

	var sessions []Session
	for iter.First(); iter.Valid(); iter.Next() {
		var s Session
		if err := json.Unmarshal(iter.Value(), &s); err != nil {
			return nil, fmt.Errorf("corrupt session record %q: %w", iter.Key(), err)
		}
		sessions = append(sessions, s)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}
	return sessions, nil
}

// GetSession returns one session's metadata.
func (a *Archive) GetSession(id string) (*Session, error) {
	data, closer, err := a.db.Get(sessionKey(id))
	if err == pebble.ErrNotFound {
		return nil, fmt.Errorf("session %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	defer closer.Close()

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("corrupt session record: %w", err)
	}
	return &s, nil
}

// SessionRows returns a session's rows in decode order.
func (a *Archive) SessionRows(id string) ([]*sss.Row, error) {
	if _, err := a.GetSession(id); err != nil {
		return nil, err
	}

	iter, err := a.db.NewIter(prefixIterOptions([]byte(rowPrefix + id + ":")))
	if err != nil {
		return nil, fmt.Errorf("failed to scan rows: %w", err)
	}
	defer iter.Close()

	var rows []*sss.Row
	for iter.First(); iter.Valid(); iter.Next() {
		var row sss.Row
		if err := json.Unmarshal(iter.Value(), &row); err != nil {
			return nil, fmt.Errorf("corrupt row record %q: %w", iter.Key(), err)
		}
		rows = append(rows, &row)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to scan rows: %w", err)
	}
	return rows, nil
}

// DeleteSession removes a session and all of its rows in one batch.
func (a *Archive) DeleteSession(id string) error {
	if _, err := a.GetSession(id); err != nil {
		return err
	}

	prefix := []byte(rowPrefix + id + ":")
	batch := a.db.NewBatch()
	defer batch.Close()

	if err := batch.DeleteRange(prefix, keyUpperBound(prefix), nil); err != nil {
		return fmt.Errorf("failed to stage row deletion: %w", err)
	}
	if err := batch.Delete(sessionKey(id), nil); err != nil {
		return fmt.Errorf("failed to stage session deletion: %w", err)
	}
	if err := a.db.Apply(batch, pebble.Sync); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func prefixIterOptions(prefix []byte) *pebble.IterOptions {
	return &pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	}
}

func keyUpperBound(prefix []byte) []byte {
	upper := append([]byte(nil), prefix...)
	for i := len(upper) - 1; i >= 0; i-- {
		upper[i]++
		if upper[i] != 0 {
			return upper[:i+1]
		}
	}
	return nil // prefix is all 0xff, no upper bound
}
