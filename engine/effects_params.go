// SPDX-License-Identifier: EPL-2.0

package engine

// ReverbParameters configure the reverb slot.
type ReverbParameters struct {
	WetDryMix float32 // [0, 100] percent

	ReflectionsDelay uint32 // [0, 300] ms
	ReverbDelay      uint8  // [0, 85] ms
	RearDelay        uint8
	SideDelay        uint8

	PositionLeft        uint8 // [0, 30]
	PositionRight       uint8
	PositionMatrixLeft  uint8
	PositionMatrixRight uint8
	EarlyDiffusion      uint8 // [0, 15]
	LateDiffusion       uint8
	LowEQGain           uint8 // [0, 12]
	LowEQCutoff         uint8 // [0, 9]
	HighEQGain          uint8 // [0, 8]
	HighEQCutoff        uint8 // [0, 14]

	RoomFilterFreq  float32 // [20, 20000] Hz
	RoomFilterMain  float32 // [-100, 0] dB
	RoomFilterHF    float32
	ReflectionsGain float32 // [-100, 20] dB
	ReverbGain      float32
	DecayTime       float32 // seconds
	Density         float32 // [0, 100] percent
	RoomSize        float32 // [1, 100] feet

	DisableLateField bool
}

// DefaultReverbParameters returns the reverb preset used when nothing else
// is configured.
func DefaultReverbParameters() ReverbParameters {
	return ReverbParameters{
		WetDryMix:           100,
		ReflectionsDelay:    5,
		ReverbDelay:         5,
		RearDelay:           5,
		SideDelay:           5,
		PositionLeft:        6,
		PositionRight:       6,
		PositionMatrixLeft:  27,
		PositionMatrixRight: 27,
		EarlyDiffusion:      8,
		LateDiffusion:       8,
		LowEQGain:           8,
		LowEQCutoff:         4,
		HighEQGain:          8,
		HighEQCutoff:        4,
		RoomFilterFreq:      5000,
		DecayTime:           1,
		Density:             100,
		RoomSize:            100,
	}
}

// EQParameters configure the four band equalizer slot.
type EQParameters struct {
	FrequencyCenter0 float32 // [20, 20000] Hz
	Gain0            float32 // [0.126, 7.94]
	Bandwidth0       float32 // [0.1, 2]
	FrequencyCenter1 float32
	Gain1            float32
	Bandwidth1       float32
	FrequencyCenter2 float32
	Gain2            float32
	Bandwidth2       float32
	FrequencyCenter3 float32
	Gain3            float32
	Bandwidth3       float32
}

// DefaultEQParameters returns a flat equalizer.
func DefaultEQParameters() EQParameters {
	return EQParameters{
		FrequencyCenter0: 100, Gain0: 1, Bandwidth0: 1,
		FrequencyCenter1: 800, Gain1: 1, Bandwidth1: 1,
		FrequencyCenter2: 2000, Gain2: 1, Bandwidth2: 1,
		FrequencyCenter3: 10000, Gain3: 1, Bandwidth3: 1,
	}
}

// EchoParameters configure the echo slot.
type EchoParameters struct {
	WetDryMix float32 // [0, 1]
	Feedback  float32 // [0, 1]
	Delay     float32 // [1, 3000] ms
}

// DefaultEchoParameters returns the echo preset.
func DefaultEchoParameters() EchoParameters {
	return EchoParameters{WetDryMix: 0.5, Feedback: 0.5, Delay: 500}
}

// effectParams is implemented by the three parameter structs so one fade
// path can animate any of them.
type effectParams interface {
	// lanes lists the animated values.
	lanes() []float32
	// withLanes returns a copy with the animated values replaced.
	withLanes(v []float32) effectParams
	// silent returns a copy producing no audible effect.
	silent() effectParams
}

func (p ReverbParameters) lanes() []float32 {
	return []float32{p.WetDryMix, p.RoomFilterFreq, p.RoomFilterMain, p.RoomFilterHF,
		p.ReflectionsGain, p.ReverbGain, p.DecayTime, p.Density, p.RoomSize}
}

func (p ReverbParameters) withLanes(v []float32) effectParams {
	p.WetDryMix, p.RoomFilterFreq, p.RoomFilterMain, p.RoomFilterHF = v[0], v[1], v[2], v[3]
	p.ReflectionsGain, p.ReverbGain, p.DecayTime, p.Density, p.RoomSize = v[4], v[5], v[6], v[7], v[8]
	return p
}

func (p ReverbParameters) silent() effectParams {
	p.WetDryMix = 0
	return p
}

func (p EQParameters) lanes() []float32 {
	return []float32{
		p.FrequencyCenter0, p.Gain0, p.Bandwidth0,
		p.FrequencyCenter1, p.Gain1, p.Bandwidth1,
		p.FrequencyCenter2, p.Gain2, p.Bandwidth2,
		p.FrequencyCenter3, p.Gain3, p.Bandwidth3,
	}
}

func (p EQParameters) withLanes(v []float32) effectParams {
	p.FrequencyCenter0, p.Gain0, p.Bandwidth0 = v[0], v[1], v[2]
	p.FrequencyCenter1, p.Gain1, p.Bandwidth1 = v[3], v[4], v[5]
	p.FrequencyCenter2, p.Gain2, p.Bandwidth2 = v[6], v[7], v[8]
	p.FrequencyCenter3, p.Gain3, p.Bandwidth3 = v[9], v[10], v[11]
	return p
}

func (p EQParameters) silent() effectParams {
	p.Gain0, p.Gain1, p.Gain2, p.Gain3 = 1, 1, 1, 1
	return p
}

func (p EchoParameters) lanes() []float32 {
	return []float32{p.WetDryMix, p.Feedback, p.Delay}
}

func (p EchoParameters) withLanes(v []float32) effectParams {
	p.WetDryMix, p.Feedback, p.Delay = v[0], v[1], v[2]
	return p
}

func (p EchoParameters) silent() effectParams {
	p.WetDryMix = 0
	return p
}
