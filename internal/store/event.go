package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/wave/internal/detector"
	"github.com/ayusman/wave/internal/gesture"
)

// Event is a recognized gesture stored in the database.
type Event struct {
	ID        string             `json:"id"`
	Gesture   gesture.Gesture    `json:"gesture"`
	Hand      detector.HandState `json:"hand"`
	TimeMs    uint32             `json:"time_ms"`
	CreatedAt time.Time          `json:"created_at"`
}

// MarshalJSON adds the numeric gesture code next to the gesture name.
func (e Event) MarshalJSON() ([]byte, error) {
	type event Event
	return json.Marshal(struct {
		event
		GestureCode int `json:"gesture_code"`
	}{event(e), int(e.Gesture)})
}

// EventFilter narrows EventRepository.List. The zero value lists every event.
type EventFilter struct {
	// Gesture limits the list to one gesture when not None.
	Gesture gesture.Gesture
	// Limit caps the number of events when > 0.
	Limit int
}

// EventRepository stores recognized gestures.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

const eventColumns = `id, gesture_code, hand_found, r, theta, phi, time_ms, created_at`

// Create inserts e. An empty ID is filled with a new UUID.
func (r *EventRepository) Create(e *Event) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO events (id, gesture, gesture_code, hand_found, r, theta, phi, time_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Gesture.String(), int(e.Gesture), e.Hand.Found,
		e.Hand.Pos.R, e.Hand.Pos.Theta, e.Hand.Pos.Phi, e.TimeMs, e.CreatedAt,
	)
	return err
}

// GetByID retrieves an event by its ID.
func (r *EventRepository) GetByID(id string) (*Event, error) {
	e, err := scanEvent(r.db.QueryRow(`SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// List retrieves events, newest first.
func (r *EventRepository) List(filter EventFilter) ([]*Event, error) {
	var (
		where []string
		args  []any
	)
	if filter.Gesture != gesture.None {
		where = append(where, "gesture_code = ?")
		args = append(args, int(filter.Gesture))
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// Count returns the number of stored events per gesture.
func (r *EventRepository) Count() (map[gesture.Gesture]int, error) {
	rows, err := r.db.Query(`SELECT gesture_code, COUNT(*) FROM events GROUP BY gesture_code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[gesture.Gesture]int)
	for rows.Next() {
		var code, n int
		if err := rows.Scan(&code, &n); err != nil {
			return nil, err
		}
		counts[gesture.Gesture(code)] = n
	}

	return counts, rows.Err()
}

// DeleteAll removes every event and returns how many were removed.
func (r *EventRepository) DeleteAll() (int64, error) {
	result, err := r.db.Exec(`DELETE FROM events`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*Event, error) {
	e := &Event{}
	var (
		code  int
		found bool
		pos   detector.Spherical
	)

	err := row.Scan(&e.ID, &code, &found, &pos.R, &pos.Theta, &pos.Phi, &e.TimeMs, &e.CreatedAt)
	if err != nil {
		return nil, err
	}

	e.Gesture = gesture.Gesture(code)
	if found {
		e.Hand = detector.HandFoundAt(pos)
	} else {
		e.Hand = detector.HandNotFound()
	}
	return e, nil
}
