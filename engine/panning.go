// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"math"

	"github.com/ik5/audvox/backend"
	"github.com/ik5/audvox/utils"
)

const (
	centerGain         = 0.707
	stereoCenterGain   = 0.5
	monoSurroundGain   = 0.5
	stereoSurroundGain = 0.35
)

// speakerLayout holds the destination channel index of each speaker, -1
// when the device has no such speaker.
type speakerLayout struct {
	left, right, center, lfe int
	backLeft, backRight      int
	sideLeft, sideRight      int
}

func layoutFromMask(mask uint32, channels int) speakerLayout {
	l := speakerLayout{-1, -1, -1, -1, -1, -1, -1, -1}

	index := 0
	for bit := uint32(1); bit != 0 && index < channels; bit <<= 1 {
		if mask&bit == 0 {
			continue
		}
		switch bit {
		case backend.SpeakerFrontLeft:
			l.left = index
		case backend.SpeakerFrontRight:
			l.right = index
		case backend.SpeakerFrontCenter:
			l.center = index
		case backend.SpeakerLowFrequency:
			l.lfe = index
		case backend.SpeakerBackLeft:
			l.backLeft = index
		case backend.SpeakerBackRight:
			l.backRight = index
		case backend.SpeakerSideLeft:
			l.sideLeft = index
		case backend.SpeakerSideRight:
			l.sideRight = index
		}
		index++
	}

	if l.left < 0 {
		l.left = 0
	}
	if l.right < 0 {
		if channels >= 2 {
			l.right = 1
		} else {
			l.right = l.left
		}
	}
	return l
}

// panGains maps panning in [-1, 1] to constant power left/right gains.
func panGains(panning float32) (left, right float32) {
	panning = clamp(panning, -1, 1)
	theta := (panning + 1) / 2 * (math.Pi / 2)
	return utils.FastCos(theta), utils.FastSin(theta)
}

// outputMatrix builds the srcChannels x dstChannels send matrix, laid out
// as matrix[dst*srcChannels+src]. Only mono and stereo sources are panned.
func outputMatrix(srcChannels, dstChannels int, mask uint32, panning float32) ([]float32, bool) {
	if srcChannels < 1 || srcChannels > 2 || dstChannels <= 0 {
		return nil, false
	}

	left, right := panGains(panning)
	l := layoutFromMask(mask, dstChannels)
	m := make([]float32, srcChannels*dstChannels)

	set := func(dst, src int, gain float32) {
		if dst >= 0 && dst < dstChannels {
			m[dst*srcChannels+src] = gain
		}
	}

	if srcChannels == 1 {
		set(l.left, 0, left)
		set(l.right, 0, right)
		set(l.center, 0, centerGain)
		set(l.backLeft, 0, monoSurroundGain*left)
		set(l.backRight, 0, monoSurroundGain*right)
		set(l.sideLeft, 0, monoSurroundGain*left)
		set(l.sideRight, 0, monoSurroundGain*right)
		return m, true
	}

	set(l.left, 0, left)
	set(l.right, 1, right)
	set(l.center, 0, stereoCenterGain)
	set(l.center, 1, stereoCenterGain)
	set(l.backLeft, 0, stereoSurroundGain*left)
	set(l.backRight, 1, stereoSurroundGain*right)
	set(l.sideLeft, 0, stereoSurroundGain*left)
	set(l.sideRight, 1, stereoSurroundGain*right)
	return m, true
}
