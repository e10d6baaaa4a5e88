// SPDX-License-Identifier: EPL-2.0

package backend

// LoopInfinite as a Buffer.LoopCount loops the region until the buffer is
// flushed.
const LoopInfinite = 255

// MinFrequencyRatio and MaxFrequencyRatio bound the playback speed of a
// source voice.
const (
	MinFrequencyRatio float32 = 1.0 / 1024.0
	MaxFrequencyRatio float32 = 1024.0
)

// Speaker positions of a channel mask.
const (
	SpeakerFrontLeft uint32 = 1 << iota
	SpeakerFrontRight
	SpeakerFrontCenter
	SpeakerLowFrequency
	SpeakerBackLeft
	SpeakerBackRight
	SpeakerFrontLeftOfCenter
	SpeakerFrontRightOfCenter
	SpeakerBackCenter
	SpeakerSideLeft
	SpeakerSideRight
)

// Common channel masks.
const (
	MaskMono    = SpeakerFrontCenter
	MaskStereo  = SpeakerFrontLeft | SpeakerFrontRight
	MaskQuad    = SpeakerFrontLeft | SpeakerFrontRight | SpeakerBackLeft | SpeakerBackRight
	Mask5Point1 = SpeakerFrontLeft | SpeakerFrontRight | SpeakerFrontCenter |
		SpeakerLowFrequency | SpeakerBackLeft | SpeakerBackRight
	Mask7Point1Surround = Mask5Point1 | SpeakerSideLeft | SpeakerSideRight
)

// EffectKind names an effect slot of a voice effect chain.
type EffectKind int

const (
	EffectReverb EffectKind = iota
	EffectEQ
	EffectEcho
)

func (k EffectKind) String() string {
	switch k {
	case EffectReverb:
		return "reverb"
	case EffectEQ:
		return "eq"
	case EffectEcho:
		return "echo"
	}
	return "unknown"
}

// DefaultEffectChain is attached to every voice and bus.
var DefaultEffectChain = []EffectKind{EffectReverb, EffectEQ, EffectEcho}

// Format of the PCM a source voice consumes.
type Format struct {
	Channels   int
	SampleRate int
}

// PCM is read only interleaved float sample data shared between voices.
type PCM interface {
	// Channels of every frame.
	Channels() int
	// Frames currently known to exist. It may shrink while decoding.
	Frames() int
	// ReadFrames copies frames starting at frame into dst and returns the
	// number of frames copied. Frames not decoded yet read as silence.
	ReadFrames(dst []float32, frame int) int
}

// Buffer is a region of PCM submitted to a source voice.
type Buffer struct {
	PCM PCM

	// PlayBegin is the first frame played. PlayLength zero plays to the end.
	PlayBegin  uint32
	PlayLength uint32

	// LoopBegin and LoopLength describe the loop region, LoopCount the
	// number of repetitions. LoopCount zero disables looping.
	LoopBegin  uint32
	LoopLength uint32
	LoopCount  uint32
}

// Voice is the part shared by every node of the mix graph.
type Voice interface {
	SetVolume(volume float32) error
	Volume() float32

	// SetOutputMatrix sets the srcChannels x dstChannels gain matrix,
	// laid out row by destination: matrix[dst*srcChannels+src].
	SetOutputMatrix(srcChannels, dstChannels int, matrix []float32) error

	// InputChannels is the channel count the voice consumes.
	InputChannels() int

	EnableEffect(slot int) error
	DisableEffect(slot int) error
	SetEffectParameters(slot int, params any) error

	Destroy()
}

// SourceVoice plays submitted buffers into its destination.
type SourceVoice interface {
	Voice

	SubmitBuffer(buf Buffer) error
	Start() error
	Stop() error
	// FlushBuffers discards every pending buffer. One end notification is
	// queued per discarded buffer.
	FlushBuffers() error

	// SamplesPlayed is the number of source frames consumed since creation
	// or since the last natural end of stream.
	SamplesPlayed() uint64

	SetFrequencyRatio(ratio float32) error
	FrequencyRatio() float32
}

// VoiceOptions describe a new source voice.
type VoiceOptions struct {
	Format  Format
	Effects []EffectKind
	// OnBufferEnd is called on a backend goroutine, never from inside a call
	// made on the voice.
	OnBufferEnd func()
}

// Device is the native audio backend.
type Device interface {
	// Master is the mastering voice every submix ends in.
	Master() Voice
	// ChannelMask of the output device.
	ChannelMask() uint32
	// OutputChannels of the output device.
	OutputChannels() int
	SampleRate() int

	NewSourceVoice(dest Voice, opts VoiceOptions) (SourceVoice, error)
	NewSubmixVoice(channels, sampleRate int, effects []EffectKind) (Voice, error)

	StartEngine() error
	StopEngine()
	Close() error
}
