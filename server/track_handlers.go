package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"regexp"
	"strings"

	"demodrop/config"
	"demodrop/logger"
	"demodrop/model"
	"demodrop/repository"
	"demodrop/storage"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// APIHandler handles all API requests.
type APIHandler struct {
	trackRepo repository.TrackRepository
	store     *storage.AudioStore
	cfg       *config.Config
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(trackRepo repository.TrackRepository, store *storage.AudioStore, cfg *config.Config) *APIHandler {
	return &APIHandler{
		trackRepo: trackRepo,
		store:     store,
		cfg:       cfg,
	}
}

var nonAlphaNumeric = regexp.MustCompile(`[^a-zA-Z0-9_\-\.]`)
var multipleSpaces = regexp.MustCompile(`\s+`)

// sanitizeTitle strips path-hostile characters from a user-supplied title so
// it can be embedded in an on-disk filename. An empty result is fine: the
// demo id keeps the filename unique either way.
func sanitizeTitle(title string) string {
	base := strings.TrimSpace(title)
	base = multipleSpaces.ReplaceAllString(base, "_")
	base = nonAlphaNumeric.ReplaceAllString(base, "")

	maxLength := 100
	if len(base) > maxLength {
		base = base[:maxLength]
	}
	return base
}

type uploadResponse struct {
	Message string `json:"message"`
	DemoID  string `json:"demo_id"`
	FileURL string `json:"file_url"`
}

type trackResponse struct {
	Artist  string `json:"artist"`
	Title   string `json:"title"`
	FileURL string `json:"file_url"`
	DemoID  string `json:"demo_id"`
}

func newTrackResponse(t *model.Track) trackResponse {
	return trackResponse{
		Artist:  t.Artist,
		Title:   t.Title,
		FileURL: "/audio/" + t.FilePath,
		DemoID:  t.DemoID,
	}
}

// UploadTrackHandler ingests a multipart upload: scalar fields are buffered
// as they stream in, the file part streams chunk by chunk to a temp file,
// and the metadata row is inserted once the stream is drained. The temp file
// is renamed into place only after the insert succeeds, so a failure at any
// point leaves neither an orphaned row nor a stray final file.
func (h *APIHandler) UploadTrackHandler(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.cfg.MaxUploadSize {
		logger.Warn("Upload rejected, body too large",
			logger.Int64("contentLength", r.ContentLength),
			logger.Int64("maxSize", h.cfg.MaxUploadSize))
		http.Error(w, fmt.Sprintf("Request too large. Maximum size is %d MB", h.cfg.MaxUploadSize>>20), http.StatusRequestEntityTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadSize)

	if err := h.store.EnsureDir(); err != nil {
		logger.Error("Failed to create upload directory", logger.ErrorField(err))
		http.Error(w, "Failed to create upload directory", http.StatusInternalServerError)
		return
	}

	reader, err := r.MultipartReader()
	if err != nil {
		logger.Warn("Upload body is not multipart", logger.ErrorField(err))
		http.Error(w, "Expected a multipart/form-data body", http.StatusBadRequest)
		return
	}

	demoID := uuid.NewString()

	// Scalar metadata may arrive as query parameters or the user_id header;
	// multipart parts override them as they stream in, last value winning.
	query := r.URL.Query()
	userID := r.Header.Get("user_id")
	if v := query.Get("user_id"); v != "" {
		userID = v
	}
	artist := query.Get("artist")
	title := query.Get("title")

	var fileName string
	fileWritten := false

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Error("Failed to read multipart stream",
				logger.String("demoId", demoID),
				logger.ErrorField(err))
			h.failUploadStream(w, demoID, err, "Error reading upload stream")
			return
		}

		name := part.FormName()
		switch name {
		case "user_id", "artist", "title":
			value, rerr := io.ReadAll(part)
			part.Close()
			if rerr != nil {
				logger.Error("Failed to read form field",
					logger.String("field", name),
					logger.String("demoId", demoID),
					logger.ErrorField(rerr))
				h.failUploadStream(w, demoID, rerr, "Error reading upload stream")
				return
			}
			switch name {
			case "user_id":
				userID = string(value)
			case "artist":
				artist = string(value)
			case "title":
				title = string(value)
			}

		case "file":
			if fileWritten {
				// Only one file part is expected; extras are drained and
				// ignored.
				io.Copy(io.Discard, part)
				part.Close()
				continue
			}

			// The filename is fixed the moment the file part is seen, from
			// whatever title has streamed in so far.
			fileName = sanitizeTitle(title) + "-" + demoID + ".mp3"

			temp, terr := h.store.CreateTemp(demoID)
			if terr != nil {
				logger.Error("Failed to create file",
					logger.String("demoId", demoID),
					logger.ErrorField(terr))
				part.Close()
				http.Error(w, "Failed to create file", http.StatusInternalServerError)
				return
			}

			// io.Copy writes each chunk before reading the next, which is
			// exactly the in-order guarantee the ingest needs.
			_, cerr := io.Copy(temp, part)
			if cerr == nil {
				cerr = temp.Close()
			} else {
				temp.Close()
			}
			part.Close()
			if cerr != nil {
				logger.Error("Error writing file",
					logger.String("demoId", demoID),
					logger.String("file", fileName),
					logger.ErrorField(cerr))
				h.failUploadStream(w, demoID, cerr, "Error writing file")
				return
			}
			fileWritten = true

		default:
			// Unknown parts are drained so the stream stays aligned.
			io.Copy(io.Discard, part)
			part.Close()
		}
	}

	if !fileWritten {
		logger.Warn("Upload finished without a file part", logger.String("demoId", demoID))
		http.Error(w, "File upload failed: no file part in request", http.StatusBadRequest)
		return
	}

	track := &model.Track{
		Artist:   artist,
		Title:    title,
		FilePath: fileName,
		DemoID:   demoID,
		UserID:   userID,
	}
	if _, err := h.trackRepo.CreateTrack(track); err != nil {
		logger.Error("Failed to insert track",
			logger.String("demoId", demoID),
			logger.String("file", fileName),
			logger.ErrorField(err))
		h.cleanupTemp(demoID)
		http.Error(w, "Failed to insert track into database", http.StatusInternalServerError)
		return
	}

	if err := h.store.Commit(demoID, fileName); err != nil {
		// The row exists but the bytes never reached their final name; take
		// the row back out so no dangling record survives.
		logger.Error("Failed to commit uploaded file",
			logger.String("demoId", demoID),
			logger.String("file", fileName),
			logger.ErrorField(err))
		if _, derr := h.trackRepo.DeleteTracksByFilePath(fileName); derr != nil {
			logger.Error("Failed to remove track row after commit failure",
				logger.String("file", fileName),
				logger.ErrorField(derr))
		}
		h.cleanupTemp(demoID)
		http.Error(w, "Failed to store uploaded file", http.StatusInternalServerError)
		return
	}

	logger.Info("Track uploaded",
		logger.String("demoId", demoID),
		logger.String("file", fileName),
		logger.String("userId", userID))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(uploadResponse{
		Message: "File uploaded successfully",
		DemoID:  demoID,
		FileURL: "/audio/" + fileName,
	})
}

// failUploadStream discards the in-flight temp file and maps a mid-stream
// read failure to a response. A body with no declared Content-Length that
// blows through the size cap only surfaces here, as a MaxBytesError from
// the wrapped body, and gets the same 413 as a declared oversize length.
func (h *APIHandler) failUploadStream(w http.ResponseWriter, demoID string, err error, fallback string) {
	h.cleanupTemp(demoID)
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		http.Error(w, fmt.Sprintf("Request too large. Maximum size is %d MB", h.cfg.MaxUploadSize>>20), http.StatusRequestEntityTooLarge)
		return
	}
	http.Error(w, fallback, http.StatusInternalServerError)
}

func (h *APIHandler) cleanupTemp(demoID string) {
	if err := h.store.Discard(demoID); err != nil {
		logger.Warn("Failed to remove temp upload file",
			logger.String("demoId", demoID),
			logger.ErrorField(err))
	}
}

// GetTracksHandler returns every track owned by the user_id header.
func (h *APIHandler) GetTracksHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("user_id")
	if userID == "" {
		http.Error(w, "Missing user_id in headers", http.StatusBadRequest)
		return
	}

	tracks, err := h.trackRepo.GetTracksByUserID(userID)
	if err != nil {
		logger.Error("Failed to query tracks",
			logger.String("userId", userID),
			logger.ErrorField(err))
		http.Error(w, "Failed to query tracks", http.StatusInternalServerError)
		return
	}

	views := make([]trackResponse, 0, len(tracks))
	for _, t := range tracks {
		views = append(views, newTrackResponse(t))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(views)
}

// StreamAudioHandler serves a stored file by raw filename. It is a pure
// filesystem lookup: no metadata row is consulted and no ownership check is
// made.
func (h *APIHandler) StreamAudioHandler(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]
	if !storage.ValidName(filename) {
		http.Error(w, "Invalid filename", http.StatusBadRequest)
		return
	}
	h.serveAudio(w, filename)
}

// StreamDemoHandler serves a stored file by its public demo identifier.
func (h *APIHandler) StreamDemoHandler(w http.ResponseWriter, r *http.Request) {
	demoID := mux.Vars(r)["demo_id"]

	track, err := h.trackRepo.GetTrackByDemoID(demoID)
	if err != nil {
		if errors.Is(err, repository.ErrTrackNotFound) {
			http.Error(w, "Demo not found", http.StatusNotFound)
			return
		}
		logger.Error("Failed to look up demo",
			logger.String("demoId", demoID),
			logger.ErrorField(err))
		http.Error(w, "Failed to look up demo", http.StatusInternalServerError)
		return
	}

	h.serveAudio(w, track.FilePath)
}

func (h *APIHandler) serveAudio(w http.ResponseWriter, filename string) {
	f, err := h.store.Open(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		logger.Error("Failed to open audio file",
			logger.String("file", filename),
			logger.ErrorField(err))
		http.Error(w, "Failed to open file", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	if _, err := io.Copy(w, f); err != nil {
		// Headers are gone; all that is left is to log the broken stream.
		logger.Error("Error streaming audio file",
			logger.String("file", filename),
			logger.ErrorField(err))
	}
}

// DemoDetailsHandler returns the metadata record for a demo identifier.
func (h *APIHandler) DemoDetailsHandler(w http.ResponseWriter, r *http.Request) {
	demoID := mux.Vars(r)["demo_id"]

	track, err := h.trackRepo.GetTrackByDemoID(demoID)
	if err != nil {
		if errors.Is(err, repository.ErrTrackNotFound) {
			http.Error(w, "Demo not found", http.StatusNotFound)
			return
		}
		logger.Error("Failed to look up demo",
			logger.String("demoId", demoID),
			logger.ErrorField(err))
		http.Error(w, "Failed to look up demo", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(newTrackResponse(track))
}

// DeleteAudioHandler removes a stored file and every metadata row that
// references it. The file goes first: a record must never outlive its
// ability to be deleted, so a filesystem failure leaves the row intact,
// while a store failure after the file is gone is reported as an error and
// may leave a dangling row for the orphans command to reap.
func (h *APIHandler) DeleteAudioHandler(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]
	if !storage.ValidName(filename) {
		http.Error(w, "Invalid filename", http.StatusBadRequest)
		return
	}

	exists, err := h.store.Exists(filename)
	if err != nil {
		logger.Error("Failed to stat file",
			logger.String("file", filename),
			logger.ErrorField(err))
		http.Error(w, "Failed to check file", http.StatusInternalServerError)
		return
	}
	if !exists {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	if err := h.store.Remove(filename); err != nil {
		logger.Error("Failed to delete file",
			logger.String("file", filename),
			logger.ErrorField(err))
		http.Error(w, "Failed to delete file", http.StatusInternalServerError)
		return
	}

	if _, err := h.trackRepo.DeleteTracksByFilePath(filename); err != nil {
		logger.Error("Failed to delete track from database",
			logger.String("file", filename),
			logger.ErrorField(err))
		http.Error(w, "Failed to delete track from database", http.StatusInternalServerError)
		return
	}

	logger.Info("Track deleted", logger.String("file", filename))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "File and record deleted successfully")
}
