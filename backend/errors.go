// SPDX-License-Identifier: EPL-2.0

package backend

import "errors"

var (
	ErrInvalidFormat  = errors.New("invalid voice format")
	ErrNoBuffer       = errors.New("buffer has no PCM data")
	ErrVoiceDestroyed = errors.New("voice destroyed")
	ErrInvalidMatrix  = errors.New("output matrix does not match channel counts")
	ErrInvalidSlot    = errors.New("effect slot out of range")
	ErrInvalidRegion  = errors.New("play region outside of PCM data")
)
