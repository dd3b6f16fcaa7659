package app

// Event names passed to the Emitter.
const (
	EventLiveTranscript = "live-transcript" // types.TranscriptEntry
	EventLiveStatus     = "live-status"     // types.LiveStatus
	EventLiveError      = "live-error"      // error
	EventLiveVAD        = "live-vad-update" // types.VoiceActivity
)

// Emitter receives application events. Implementations must not block.
type Emitter func(name string, data any)
