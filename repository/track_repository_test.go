package repository

import (
	"path/filepath"
	"testing"

	"demodrop/config"
	"demodrop/db"
	"demodrop/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) TrackRepository {
	t.Helper()

	cfg := &config.Config{
		DBDriver: "sqlite",
		DBPath:   filepath.Join(t.TempDir(), "tracks.db"),
	}
	database, err := db.Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.InitSchema(database, cfg.DBDriver))

	return NewSQLTrackRepository(database)
}

func TestCreateAndGetByDemoID(t *testing.T) {
	repo := newTestRepo(t)

	track := &model.Track{
		Artist:   "Jane",
		Title:    "Song",
		FilePath: "Song-abc.mp3",
		DemoID:   "abc",
		UserID:   "user-1",
	}
	id, err := repo.CreateTrack(track)
	require.NoError(t, err)
	assert.Equal(t, id, track.ID)
	assert.NotZero(t, id)

	got, err := repo.GetTrackByDemoID("abc")
	require.NoError(t, err)
	assert.Equal(t, "Jane", got.Artist)
	assert.Equal(t, "Song", got.Title)
	assert.Equal(t, "Song-abc.mp3", got.FilePath)
	assert.Equal(t, "user-1", got.UserID)
}

func TestGetByDemoIDNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetTrackByDemoID("missing")
	assert.ErrorIs(t, err, ErrTrackNotFound)
}

func TestGetTracksByUserIDInInsertionOrder(t *testing.T) {
	repo := newTestRepo(t)

	for i, demo := range []string{"d1", "d2", "d3"} {
		user := "alice"
		if i == 2 {
			user = "bob"
		}
		_, err := repo.CreateTrack(&model.Track{
			Title:    demo,
			FilePath: demo + ".mp3",
			DemoID:   demo,
			UserID:   user,
		})
		require.NoError(t, err)
	}

	tracks, err := repo.GetTracksByUserID("alice")
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "d1", tracks[0].DemoID)
	assert.Equal(t, "d2", tracks[1].DemoID)

	tracks, err = repo.GetTracksByUserID("nobody")
	require.NoError(t, err)
	assert.Empty(t, tracks)
}

func TestDeleteTracksByFilePath(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.CreateTrack(&model.Track{
		Title:    "Song",
		FilePath: "Song-d1.mp3",
		DemoID:   "d1",
		UserID:   "alice",
	})
	require.NoError(t, err)

	affected, err := repo.DeleteTracksByFilePath("Song-d1.mp3")
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	// Deleting an unknown path removes nothing and is not an error.
	affected, err = repo.DeleteTracksByFilePath("Song-d1.mp3")
	require.NoError(t, err)
	assert.Zero(t, affected)
}

func TestListAllTracks(t *testing.T) {
	repo := newTestRepo(t)

	for _, demo := range []string{"d1", "d2"} {
		_, err := repo.CreateTrack(&model.Track{
			Title:    demo,
			FilePath: demo + ".mp3",
			DemoID:   demo,
			UserID:   "u",
		})
		require.NoError(t, err)
	}

	tracks, err := repo.ListAllTracks()
	require.NoError(t, err)
	assert.Len(t, tracks, 2)
}

func TestCreateTrackDuplicateDemoID(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.CreateTrack(&model.Track{Title: "a", FilePath: "a.mp3", DemoID: "dup", UserID: "u"})
	require.NoError(t, err)

	_, err = repo.CreateTrack(&model.Track{Title: "b", FilePath: "b.mp3", DemoID: "dup", UserID: "u"})
	assert.Error(t, err)
}
