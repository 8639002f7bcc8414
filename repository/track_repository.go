package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"demodrop/model"
)

// ErrTrackNotFound is returned when no track matches a lookup.
var ErrTrackNotFound = errors.New("track not found")

// TrackRepository defines the interface for track metadata operations.
type TrackRepository interface {
	CreateTrack(track *model.Track) (int64, error)
	GetTracksByUserID(userID string) ([]*model.Track, error)
	GetTrackByDemoID(demoID string) (*model.Track, error)
	DeleteTracksByFilePath(filePath string) (int64, error)
	ListAllTracks() ([]*model.Track, error)
}

// sqlTrackRepository implements TrackRepository over a shared database/sql
// handle. A single mutex serializes every statement: the store is one
// embedded file with one writer, and exclusive access per statement is the
// contract the rest of the service assumes.
type sqlTrackRepository struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLTrackRepository wraps the given database handle.
func NewSQLTrackRepository(database *sql.DB) TrackRepository {
	return &sqlTrackRepository{db: database}
}

// CreateTrack inserts a new track row and sets its ID.
func (r *sqlTrackRepository) CreateTrack(track *model.Track) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `INSERT INTO tracks (artist, title, file_path, demo_id, user_id) VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.Exec(query, track.Artist, track.Title, track.FilePath, track.DemoID, track.UserID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert track %s: %w", track.DemoID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for track %s: %w", track.DemoID, err)
	}
	track.ID = id
	return id, nil
}

// GetTracksByUserID returns all tracks owned by userID in insertion order.
func (r *sqlTrackRepository) GetTracksByUserID(userID string) ([]*model.Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `SELECT id, artist, title, file_path, demo_id, user_id FROM tracks WHERE user_id = ? ORDER BY id`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks for user %s: %w", userID, err)
	}
	defer rows.Close()

	return scanTracks(rows)
}

// GetTrackByDemoID returns the track with the given demo identifier, or
// ErrTrackNotFound when no row matches.
func (r *sqlTrackRepository) GetTrackByDemoID(demoID string) (*model.Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `SELECT id, artist, title, file_path, demo_id, user_id FROM tracks WHERE demo_id = ?`
	row := r.db.QueryRow(query, demoID)

	track := &model.Track{}
	err := row.Scan(&track.ID, &track.Artist, &track.Title, &track.FilePath, &track.DemoID, &track.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTrackNotFound
		}
		return nil, fmt.Errorf("failed to scan track by demo ID %s: %w", demoID, err)
	}
	return track, nil
}

// DeleteTracksByFilePath removes every row referencing filePath and reports
// how many were removed. Zero rows is not an error.
func (r *sqlTrackRepository) DeleteTracksByFilePath(filePath string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.Exec(`DELETE FROM tracks WHERE file_path = ?`, filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tracks for file %s: %w", filePath, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted tracks for file %s: %w", filePath, err)
	}
	return affected, nil
}

// ListAllTracks returns every track row. Used by the orphan scan.
func (r *sqlTrackRepository) ListAllTracks() ([]*model.Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `SELECT id, artist, title, file_path, demo_id, user_id FROM tracks ORDER BY id`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query all tracks: %w", err)
	}
	defer rows.Close()

	return scanTracks(rows)
}

func scanTracks(rows *sql.Rows) ([]*model.Track, error) {
	tracks := make([]*model.Track, 0)
	for rows.Next() {
		track := &model.Track{}
		err := rows.Scan(&track.ID, &track.Artist, &track.Title, &track.FilePath, &track.DemoID, &track.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track row: %w", err)
		}
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during track rows iteration: %w", err)
	}
	return tracks, nil
}
