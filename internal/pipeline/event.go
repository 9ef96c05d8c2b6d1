// Package pipeline routes storage upload events to the medication and
// expiry-date extraction flows and shapes their responses.
package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoRecords is returned for events that carry no usable record.
var ErrNoRecords = errors.New("event has no records")

// Event is the storage notification payload delivered on object upload.
type Event struct {
	Records []Record `json:"Records"`
}

// Record is one notification record. Only the first record of an event
// is processed.
type Record struct {
	S3           RecordS3     `json:"s3"`
	UserIdentity UserIdentity `json:"userIdentity"`
}

// RecordS3 locates the uploaded object.
type RecordS3 struct {
	Bucket RecordBucket `json:"bucket"`
	Object RecordObject `json:"object"`
}

// RecordBucket names the bucket the object was uploaded to.
type RecordBucket struct {
	Name string `json:"name"`
}

// RecordObject names the uploaded key.
type RecordObject struct {
	Key string `json:"key"`
}

// UserIdentity identifies the uploader, used to skip self-triggered
// events.
type UserIdentity struct {
	PrincipalID string `json:"principalId"`
}

// ParseEvent decodes an upload event and validates it carries a bucket
// and key.
func ParseEvent(raw []byte) (*Event, error) {
	const op = "ParseEvent"

	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, fmt.Errorf("%s: failed to decode event: %w", op, err)
	}
	if len(event.Records) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNoRecords)
	}
	record := event.Records[0]
	if record.S3.Bucket.Name == "" || record.S3.Object.Key == "" {
		return nil, fmt.Errorf("%s: %w: missing bucket or key", op, ErrNoRecords)
	}
	return &event, nil
}
