// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"testing"

	"github.com/ik5/audvox/backend"
	"github.com/stretchr/testify/assert"
)

func TestPanGains(t *testing.T) {
	tests := []struct {
		panning     float32
		left, right float32
	}{
		{-1, 1, 0},
		{0, 0.7071, 0.7071},
		{1, 0, 1},
		{-5, 1, 0},
		{5, 0, 1},
	}

	for _, tt := range tests {
		l, r := panGains(tt.panning)
		assert.InDelta(t, tt.left, l, 1e-2, "left at %v", tt.panning)
		assert.InDelta(t, tt.right, r, 1e-2, "right at %v", tt.panning)
	}

	l, r := panGains(0)
	assert.InDelta(t, l, r, 1e-4, "center is balanced")
}

func TestLayoutFromMask(t *testing.T) {
	stereo := layoutFromMask(backend.MaskStereo, 2)
	assert.Equal(t, 0, stereo.left)
	assert.Equal(t, 1, stereo.right)
	assert.Equal(t, -1, stereo.center)

	surround := layoutFromMask(backend.Mask7Point1Surround, 8)
	assert.Equal(t, 2, surround.center)
	assert.Equal(t, 3, surround.lfe)
	assert.Equal(t, 6, surround.sideLeft)
	assert.Equal(t, 7, surround.sideRight)

	mono := layoutFromMask(backend.MaskMono, 1)
	assert.Equal(t, 0, mono.center)
	assert.Equal(t, 0, mono.left)
	assert.Equal(t, 0, mono.right)

	truncated := layoutFromMask(backend.Mask5Point1, 2)
	assert.Equal(t, -1, truncated.center, "speakers past the channel count are ignored")
}

func TestOutputMatrix(t *testing.T) {
	_, ok := outputMatrix(3, 2, backend.MaskStereo, 0)
	assert.False(t, ok, "only mono and stereo sources")

	_, ok = outputMatrix(1, 0, backend.MaskStereo, 0)
	assert.False(t, ok)

	m, ok := outputMatrix(2, 2, backend.MaskStereo, 0)
	assert.True(t, ok)
	assert.InDelta(t, 0.7071, m[0], 1e-3)
	assert.Zero(t, m[1])
	assert.Zero(t, m[2])
	assert.InDelta(t, 0.7071, m[3], 1e-3)

	m, ok = outputMatrix(1, 1, backend.MaskMono, 0)
	assert.True(t, ok)
	assert.Equal(t, []float32{centerGain}, m)

	m, ok = outputMatrix(2, 6, backend.Mask5Point1, -1)
	assert.True(t, ok)
	assert.InDelta(t, 1, m[0*2+0], 1e-2)
	assert.InDelta(t, 0, m[1*2+1], 1e-2)
	assert.Equal(t, float32(stereoCenterGain), m[2*2+0])
	assert.Equal(t, float32(stereoCenterGain), m[2*2+1])
	assert.InDelta(t, stereoSurroundGain, m[4*2+0], 1e-2)
}
