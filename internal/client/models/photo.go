package models

import "io"

// Photo belongs to exactly one campsite. The server removes photos when the
// parent campsite is deleted.
type Photo struct {
	ID           string `json:"id"`
	CampsiteID   string `json:"campsiteId"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// PhotoUpload describes a file about to be sent as multipart form data.
type PhotoUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}
