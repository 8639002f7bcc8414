package model

// Track represents one uploaded demo.
//
// FilePath is the filename inside the audio upload directory; callers only
// ever see it through the /audio/ URL. DemoID is the public, unguessable
// handle for sharing a single track and never changes after upload.
type Track struct {
	ID       int64
	Artist   string
	Title    string
	FilePath string
	DemoID   string
	UserID   string
}
