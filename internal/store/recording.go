package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/wave/internal/detector"
)

// Recording is a named sequence of sensor measurements.
type Recording struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Frames    int       `json:"frames"`
	CreatedAt time.Time `json:"created_at"`
}

// RecordingRepository stores sensor recordings.
type RecordingRepository struct {
	db *sql.DB
}

// Recordings returns the recording repository for this store.
func (s *Store) Recordings() *RecordingRepository {
	return &RecordingRepository{db: s.db}
}

// Create inserts rec and its measurements in a single transaction. An empty
// ID is filled with a new UUID.
func (r *RecordingRepository) Create(rec *Recording, measurements []detector.SensorMeasurement) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	rec.Frames = len(measurements)
	rec.CreatedAt = time.Now()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO recordings (id, name, frames, created_at) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Frames, rec.CreatedAt,
	)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO recording_frames (recording_id, seq, time_ms, zones) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, m := range measurements {
		zones, err := json.Marshal(m.Zones)
		if err != nil {
			return fmt.Errorf("encode frame %d: %w", i, err)
		}
		if _, err := stmt.Exec(rec.ID, i, m.TimeMs, string(zones)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByID retrieves a recording without its frames.
func (r *RecordingRepository) GetByID(id string) (*Recording, error) {
	rec := &Recording{}
	err := r.db.QueryRow(
		`SELECT id, name, frames, created_at FROM recordings WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.Name, &rec.Frames, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// List retrieves all recordings without their frames, newest first.
func (r *RecordingRepository) List() ([]*Recording, error) {
	rows, err := r.db.Query(`SELECT id, name, frames, created_at FROM recordings ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*Recording
	for rows.Next() {
		rec := &Recording{}
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Frames, &rec.CreatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return recs, nil
}

// Frames returns the measurements of a recording in order.
func (r *RecordingRepository) Frames(id string) ([]detector.SensorMeasurement, error) {
	if _, err := r.GetByID(id); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(
		`SELECT time_ms, zones FROM recording_frames WHERE recording_id = ? ORDER BY seq`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []detector.SensorMeasurement
	for rows.Next() {
		var (
			m     detector.SensorMeasurement
			zones string
		)
		if err := rows.Scan(&m.TimeMs, &zones); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(zones), &m.Zones); err != nil {
			return nil, fmt.Errorf("decode frame: %w", err)
		}
		frames = append(frames, m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return frames, nil
}

// Delete removes a recording and its frames.
func (r *RecordingRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM recordings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}
