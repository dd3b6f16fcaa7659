package audiocapture

import (
	"time"

	"go.aimuz.me/nexus/pcm"
)

// VADEvent is a voice activity transition.
type VADEvent int

const (
	VADNone        VADEvent = iota // no transition
	VADSpeechStart                 // speech began
	VADSpeechEnd                   // silence outlasted the hangover
)

// VAD defaults.
const (
	DefaultVADThreshold = 0.02
	DefaultVADMinSpeech = 100 * time.Millisecond
	DefaultVADHangover  = 500 * time.Millisecond
)

// VAD detects local speech from frame RMS levels. Durations are measured in
// audio time, not wall time. A VAD is not safe for concurrent use.
type VAD struct {
	format    pcm.Format
	threshold float64
	minSpeech time.Duration
	hangover  time.Duration

	inSpeech bool
	voiced   time.Duration
	silence  time.Duration
}

// NewVAD creates a detector. Speech starts after minSpeech of frames above
// threshold and ends after hangover of frames below it.
func NewVAD(format pcm.Format, threshold float64, minSpeech, hangover time.Duration) *VAD {
	return &VAD{
		format:    format,
		threshold: threshold,
		minSpeech: minSpeech,
		hangover:  hangover,
	}
}

// NewDefaultVAD creates a detector with the default thresholds.
func NewDefaultVAD(format pcm.Format) *VAD {
	return NewVAD(format, DefaultVADThreshold, DefaultVADMinSpeech, DefaultVADHangover)
}

// Process consumes one frame and returns the transition it caused, if any,
// and the frame level.
func (v *VAD) Process(frame []int16) (VADEvent, float64) {
	level := pcm.RMS(frame)
	d := v.format.SampleDuration(len(frame))

	if level > v.threshold {
		v.silence = 0
		v.voiced += d
		if !v.inSpeech && v.voiced >= v.minSpeech {
			v.inSpeech = true
			return VADSpeechStart, level
		}
		return VADNone, level
	}

	if !v.inSpeech {
		v.voiced = 0
		return VADNone, level
	}
	v.silence += d
	if v.silence >= v.hangover {
		v.inSpeech = false
		v.voiced = 0
		v.silence = 0
		return VADSpeechEnd, level
	}
	return VADNone, level
}

// InSpeech reports whether a speech segment is open.
func (v *VAD) InSpeech() bool {
	return v.inSpeech
}

// Reset clears the detector state.
func (v *VAD) Reset() {
	v.inSpeech = false
	v.voiced = 0
	v.silence = 0
}
