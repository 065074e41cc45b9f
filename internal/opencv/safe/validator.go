package safe

import (
	"fmt"
)

// MaxDimension bounds decoded image sides.
const MaxDimension = 32768

func ValidateMatForOperation(mat *Mat, operation string) error {
	if mat == nil {
		return fmt.Errorf("Mat is nil for operation: %s", operation)
	}

	if !mat.IsValid() {
		return fmt.Errorf("Mat is invalid for operation: %s", operation)
	}

	if mat.Empty() {
		return fmt.Errorf("Mat is empty for operation: %s", operation)
	}

	return ValidateDimensions(mat.Cols(), mat.Rows(), operation)
}

func ValidateDimensions(width, height int, operation string) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d for operation: %s", width, height, operation)
	}

	if width > MaxDimension || height > MaxDimension {
		return fmt.Errorf("dimensions %dx%d exceed maximum size for operation: %s", width, height, operation)
	}

	return nil
}

// ValidateGrayscaleSource checks that a Mat can be reduced to one 8-bit channel.
func ValidateGrayscaleSource(mat *Mat) error {
	if err := ValidateMatForOperation(mat, "grayscale conversion"); err != nil {
		return err
	}

	if !mat.Is8Bit() {
		return fmt.Errorf("unsupported MatType %d: only 8-bit images are supported", int(mat.Type()))
	}

	switch mat.Channels() {
	case 1, 3, 4:
		return nil
	default:
		return fmt.Errorf("unsupported channel count: %d", mat.Channels())
	}
}
