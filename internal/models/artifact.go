package models

import "time"

// Artifact is a persisted generated or edited image. The id is assigned by
// the persistence layer; StorageURL is the durable public reference to the
// uploaded object.
type Artifact struct {
	ID         string
	OwnerID    string
	Prompt     string
	Bucket     string
	ObjectKey  string
	StorageURL string
	MIMEType   string
	SizeBytes  int64
	Signature  []byte
	CreatedAt  time.Time
}
