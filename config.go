// SPDX-License-Identifier: EPL-2.0

package audvox

import (
	"github.com/ik5/audvox/backend"
	"github.com/ik5/audvox/backend/soft"
	"github.com/ik5/audvox/engine"
)

// SinkKind selects where the mix goes.
type SinkKind int

const (
	SinkNull SinkKind = iota
	SinkWAV
	SinkOto
	SinkBeep
	SinkCustom
)

var sinkNames = map[SinkKind]string{
	SinkNull:   "null",
	SinkWAV:    "wav",
	SinkOto:    "oto",
	SinkBeep:   "beep",
	SinkCustom: "custom",
}

func (k SinkKind) String() string {
	if name, ok := sinkNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseSinkKind maps a name as printed by String back to its kind.
func ParseSinkKind(name string) (SinkKind, error) {
	for k, n := range sinkNames {
		if n == name && k != SinkCustom {
			return k, nil
		}
	}
	return 0, ErrUnknownSink
}

// Config describes the device and engine created by Open.
type Config struct {
	SampleRate  int
	Channels    int
	ChannelMask uint32

	Sink SinkKind
	// WAVPath is the file written by SinkWAV.
	WAVPath string
	// Custom is used with SinkCustom.
	Custom soft.Sink

	*engine.Options
}

// NewConfig returns a 48 kHz stereo configuration on the null sink.
func NewConfig() *Config {
	return &Config{
		SampleRate:  48000,
		Channels:    2,
		ChannelMask: backend.MaskStereo,
		Sink:        SinkNull,
		WAVPath:     "audvox.wav",
		Options:     engine.NewOptions(),
	}
}
