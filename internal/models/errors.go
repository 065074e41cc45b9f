package models

import (
	"fmt"
)

// DepthError reports a decoded image whose intensity depth cannot be held
// in a GrayImage.
type DepthError struct {
	Levels int
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("image has %d intensity levels, only %d are supported", e.Levels, DefaultLevels)
}
