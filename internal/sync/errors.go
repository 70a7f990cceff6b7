package sync

import (
	"fmt"
	"strings"
)

// DuplicateRemoteRecordError indicates the remote system already holds a
// record for the identifier being registered. It is a soft condition: the
// local mutation that triggered the sync stands, and callers surface this
// as a warning.
type DuplicateRemoteRecordError struct {
	RemoteMessage string
}

func (e *DuplicateRemoteRecordError) Error() string {
	return fmt.Sprintf("remote record already exists: %s", e.RemoteMessage)
}

// duplicateMarkers are substrings that identify a duplicate-key condition
// in the remote system's error text. The remote side reports these in
// Spanish with inconsistent phrasing.
var duplicateMarkers = []string{
	"duplic",
	"ya existe",
	"ya se encuentra",
}

// classifyRemoteError wraps a remote failure message as a typed error,
// detecting duplicate-record conditions by message text.
func classifyRemoteError(remoteMessage string) error {
	lower := strings.ToLower(remoteMessage)
	for _, marker := range duplicateMarkers {
		if strings.Contains(lower, marker) {
			return &DuplicateRemoteRecordError{RemoteMessage: remoteMessage}
		}
	}
	return fmt.Errorf("remote sync failed: %s", remoteMessage)
}
