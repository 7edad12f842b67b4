package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ayusman/wave/internal/detector"
	"github.com/ayusman/wave/internal/gesture"
)

// Setting keys used by the application.
const (
	KeyRecognizerParams = "recognizer_params"
	KeySensorParams     = "sensor_params"
)

// SettingsRepository stores key-value settings.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Get returns the value stored under key.
func (r *SettingsRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (r *SettingsRepository) Set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// Delete removes key.
func (r *SettingsRepository) Delete(key string) error {
	result, err := r.db.Exec(`DELETE FROM settings WHERE key = ?`, key)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// SaveParams stores the recognizer and sensor parameters in one transaction.
func (r *SettingsRepository) SaveParams(params gesture.Params, sensor detector.SensorParams) error {
	p, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode recognizer params: %w", err)
	}
	sp, err := json.Marshal(sensor)
	if err != nil {
		return fmt.Errorf("encode sensor params: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for key, value := range map[string][]byte{KeyRecognizerParams: p, KeySensorParams: sp} {
		_, err := tx.Exec(
			`INSERT INTO settings (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, string(value),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadParams returns the parameters stored by SaveParams. Returns ErrNotFound
// if they were never saved.
func (r *SettingsRepository) LoadParams() (gesture.Params, detector.SensorParams, error) {
	var (
		params gesture.Params
		sensor detector.SensorParams
	)

	for key, dst := range map[string]any{KeyRecognizerParams: &params, KeySensorParams: &sensor} {
		value, err := r.Get(key)
		if err != nil {
			return params, sensor, err
		}
		if err := json.Unmarshal([]byte(value), dst); err != nil {
			return params, sensor, fmt.Errorf("decode %s: %w", key, err)
		}
	}

	return params, sensor, nil
}
