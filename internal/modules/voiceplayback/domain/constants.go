package domain

import "time"

// Timeouts and limits governing the protocols in this package. Values
// mirror the magnitudes called for by the playback core; callers read
// these constants directly, and nothing injects other values.
const (
	ChangedTimeout                     = 200 * time.Millisecond
	PollEventTimeout                   = 30 * time.Second
	AlternateCastAckTimeout            = 250 * time.Millisecond
	InactivityTimeout                  = 10 * time.Minute
	RequestToSpeakTimeout              = 30 * time.Second
	ConnectionInfoTimeout              = 20 * time.Second
	DestructiveConfirmationTimeout     = 30 * time.Second
	BroadcastCapacity                  = 255
	MinVolume                          = 1
	MaxVolume                          = 1000
	DefaultVolume                      = 100
	PollButtonCustomIDLength           = 100
	pollButtonCustomIDAlphabet         = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)
