// Package ids generates identifiers for ephemeral and queued records.
// Persistent rows use database identity columns instead.
package ids

import "github.com/segmentio/ksuid"

// New returns a time-sortable, globally unique id.
func New() string {
	return ksuid.New().String()
}
