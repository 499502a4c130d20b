package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gridbeam/monome-core/internal/monome"
)

// Store implements monome.ProfileStore on top of SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a SQLite-backed profile store.
// The db parameter should be an open connection with the
// device_profiles migration applied.
func NewStore(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, ErrNilDB
	}
	return &Store{db: db}, nil
}

// Get returns the stored profile for a device, reporting whether one
// exists. Sighting-only rows (has_profile = 0) do not count.
func (s *Store) Get(ctx context.Context, deviceID string) (monome.DeviceProfile, bool, error) {
	query := `
		SELECT prefix, rotation
		FROM device_profiles
		WHERE device_id = ? AND has_profile = 1`

	var p monome.DeviceProfile
	err := s.db.QueryRowContext(ctx, query, deviceID).Scan(&p.Prefix, &p.Rotation)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return monome.DeviceProfile{}, false, nil
		}
		return monome.DeviceProfile{}, false, fmt.Errorf("querying profile: %w", err)
	}
	return p, true, nil
}

// Put stores a device's profile, replacing any previous one. Sighting
// columns on an existing row are left untouched.
func (s *Store) Put(ctx context.Context, deviceID string, p monome.DeviceProfile) error {
	now := timestamp()
	query := `
		INSERT INTO device_profiles (device_id, prefix, rotation, has_profile, first_seen, last_seen)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			prefix = excluded.prefix,
			rotation = excluded.rotation,
			has_profile = 1`

	if _, err := s.db.ExecContext(ctx, query, deviceID, p.Prefix, p.Rotation, now, now); err != nil {
		return fmt.Errorf("storing profile: %w", err)
	}
	return nil
}

// Record upserts sighting metadata for a device. An existing row keeps
// its profile columns and first_seen; everything the daemon learns
// about the hardware is refreshed.
func (s *Store) Record(ctx context.Context, info monome.Info) error {
	now := timestamp()
	query := `
		INSERT INTO device_profiles
			(device_id, device_type, kind, width, height, encoders, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			device_type = excluded.device_type,
			kind = excluded.kind,
			width = excluded.width,
			height = excluded.height,
			encoders = excluded.encoders,
			last_seen = excluded.last_seen`

	_, err := s.db.ExecContext(ctx, query,
		info.ID, info.Type, info.Kind.String(),
		info.Width, info.Height, info.Encoders,
		now, now,
	)
	if err != nil {
		return fmt.Errorf("recording sighting: %w", err)
	}
	return nil
}

// Sighting is one row of the device inventory.
type Sighting struct {
	DeviceID   string
	DeviceType string
	Kind       string
	Width      int
	Height     int
	Encoders   int
	HasProfile bool
	FirstSeen  time.Time
	LastSeen   time.Time
}

// Sightings returns every device ever recorded, most recently seen
// first.
func (s *Store) Sightings(ctx context.Context) ([]Sighting, error) {
	query := `
		SELECT device_id, device_type, kind, width, height, encoders,
			has_profile, first_seen, last_seen
		FROM device_profiles
		ORDER BY last_seen DESC, device_id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying sightings: %w", err)
	}
	defer rows.Close()

	var sightings []Sighting
	for rows.Next() {
		var sg Sighting
		var hasProfile int
		var firstSeen, lastSeen string
		if err := rows.Scan(&sg.DeviceID, &sg.DeviceType, &sg.Kind,
			&sg.Width, &sg.Height, &sg.Encoders,
			&hasProfile, &firstSeen, &lastSeen); err != nil {
			return nil, fmt.Errorf("scanning sighting row: %w", err)
		}
		sg.HasProfile = hasProfile != 0
		sg.FirstSeen, _ = time.Parse(time.RFC3339, firstSeen) //nolint:errcheck // Format is controlled
		sg.LastSeen, _ = time.Parse(time.RFC3339, lastSeen)   //nolint:errcheck // Format is controlled
		sightings = append(sightings, sg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sightings: %w", err)
	}
	return sightings, nil
}

// Forget deletes a device's row, profile and sighting both.
func (s *Store) Forget(ctx context.Context, deviceID string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM device_profiles WHERE device_id = ?", deviceID,
	); err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}
	return nil
}

// timestamp formats the current UTC time the way the schema stores it.
func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
