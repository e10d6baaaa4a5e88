// SPDX-License-Identifier: EPL-2.0

package audvox

import "errors"

var (
	ErrUnknownSink = errors.New("unknown sink")
	ErrNoWAVPath   = errors.New("wav sink needs an output path")
)
