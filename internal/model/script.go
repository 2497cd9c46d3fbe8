package model

import "time"

// Script is an uploaded shell script. The content is kept both in the store
// (authoritative copy) and as a flat executable file under the scripts
// directory, filename = script name. Uploading an existing name overwrites
// the previous content rather than creating a duplicate.
type Script struct {
	ID         int64     `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	OwnerID    int64     `json:"owner_id" db:"owner_id"`
	Content    []byte    `json:"-" db:"content"`
	Path       string    `json:"path" db:"path"`
	Size       int64     `json:"size" db:"size"`
	UploadedAt time.Time `json:"uploaded_at" db:"uploaded_at"`
}
