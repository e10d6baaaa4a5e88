// SPDX-License-Identifier: EPL-2.0

package soft

import "errors"

var (
	ErrInvalidDestination = errors.New("destination voice does not belong to this device")
	ErrInvalidConfig      = errors.New("invalid device configuration")
	ErrDeviceClosed       = errors.New("device closed")
)
