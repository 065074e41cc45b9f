package safe

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"gocv.io/x/gocv"
)

// Mat owns one gocv.Mat produced while decoding an image. Close is
// idempotent; a finalizer releases Mats that were never closed.
type Mat struct {
	mat    gocv.Mat
	closed atomic.Bool
	id     uint64
	tag    string
}

var nextMatID atomic.Uint64

// Adopt takes ownership of src; the caller must not close it afterwards.
// Empty sources are closed and rejected.
func Adopt(src gocv.Mat, tag string) (*Mat, error) {
	if src.Empty() || src.Rows() <= 0 || src.Cols() <= 0 {
		rows, cols := src.Rows(), src.Cols()
		src.Close()
		return nil, fmt.Errorf("%s: empty Mat (%dx%d)", tag, cols, rows)
	}

	m := &Mat{mat: src, id: nextMatID.Add(1), tag: tag}
	runtime.SetFinalizer(m, (*Mat).Close)
	return m, nil
}

func (m *Mat) IsValid() bool {
	return !m.closed.Load()
}

func (m *Mat) Empty() bool {
	return !m.IsValid() || m.mat.Empty()
}

func (m *Mat) Rows() int {
	if !m.IsValid() {
		return 0
	}
	return m.mat.Rows()
}

func (m *Mat) Cols() int {
	if !m.IsValid() {
		return 0
	}
	return m.mat.Cols()
}

func (m *Mat) Channels() int {
	if !m.IsValid() {
		return 0
	}
	return m.mat.Channels()
}

// Type reports -1 once the Mat is closed.
func (m *Mat) Type() gocv.MatType {
	if !m.IsValid() {
		return gocv.MatType(-1)
	}
	return m.mat.Type()
}

// Is8Bit reports whether every channel holds unsigned 8-bit samples.
func (m *Mat) Is8Bit() bool {
	switch m.Type() {
	case gocv.MatTypeCV8UC1, gocv.MatTypeCV8UC3, gocv.MatTypeCV8UC4:
		return true
	default:
		return false
	}
}

// Pixels returns a row-major copy of the samples.
func (m *Mat) Pixels() ([]byte, error) {
	if !m.IsValid() {
		return nil, fmt.Errorf("%s: Mat is closed", m.tag)
	}

	if m.mat.IsContinuous() {
		return m.mat.ToBytes(), nil
	}

	dense := m.mat.Clone()
	defer dense.Close()
	return dense.ToBytes(), nil
}

// GetMat exposes the wrapped Mat for OpenCV calls; it stays owned by m.
func (m *Mat) GetMat() gocv.Mat {
	return m.mat
}

func (m *Mat) ID() uint64 {
	return m.id
}

func (m *Mat) Tag() string {
	return m.tag
}

func (m *Mat) Close() {
	if m.closed.CompareAndSwap(false, true) {
		m.mat.Close()
		runtime.SetFinalizer(m, nil)
	}
}
