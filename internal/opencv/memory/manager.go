package memory

import (
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"texture-extractor/internal/opencv/safe"
)

// DefaultMaxBytes bounds the bytes held by live tracked Mats.
const DefaultMaxBytes int64 = 2 * 1024 * 1024 * 1024

// Manager accounts for the native Mats held by decoders across workers.
type Manager struct {
	allocations map[uint64]*AllocationRecord
	mu          sync.RWMutex
	stats       Stats
}

type AllocationRecord struct {
	Mat       *safe.Mat
	CreatedAt time.Time
	Size      int64
}

type Stats struct {
	TotalAllocated int64
	TotalReleased  int64
	ActiveMats     int64
	PeakActiveMats int64
	MaxAllowed     int64
}

// InUse is the number of bytes held by live tracked Mats.
func (s Stats) InUse() int64 {
	return s.TotalAllocated - s.TotalReleased
}

func NewManager(maxBytes int64) *Manager {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	return &Manager{
		allocations: make(map[uint64]*AllocationRecord),
		stats:       Stats{MaxAllowed: maxBytes},
	}
}

// Track registers mat. When the byte limit would be exceeded mat is closed
// and an error returned.
func (m *Manager) Track(mat *safe.Mat) error {
	if mat == nil || !mat.IsValid() {
		return fmt.Errorf("cannot track an invalid Mat")
	}

	size := int64(mat.Rows()) * int64(mat.Cols()) * int64(elemSize(mat.Type()))

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stats.InUse()+size > m.stats.MaxAllowed {
		mat.Close()
		return fmt.Errorf("memory limit exceeded: %d bytes in use, %d requested", m.stats.InUse(), size)
	}

	m.allocations[mat.ID()] = &AllocationRecord{
		Mat:       mat,
		CreatedAt: time.Now(),
		Size:      size,
	}
	m.stats.TotalAllocated += size
	m.stats.ActiveMats++
	if m.stats.ActiveMats > m.stats.PeakActiveMats {
		m.stats.PeakActiveMats = m.stats.ActiveMats
	}
	return nil
}

// Release closes mat and drops it from the books. Untracked Mats are
// closed as well.
func (m *Manager) Release(mat *safe.Mat) {
	if mat == nil {
		return
	}

	m.mu.Lock()
	record, exists := m.allocations[mat.ID()]
	if exists {
		delete(m.allocations, mat.ID())
		m.stats.TotalReleased += record.Size
		m.stats.ActiveMats--
	}
	m.mu.Unlock()

	mat.Close()
}

func (m *Manager) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// Cleanup closes every Mat still tracked and returns how many there were.
func (m *Manager) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for id, record := range m.allocations {
		record.Mat.Close()
		m.stats.TotalReleased += record.Size
		m.stats.ActiveMats--
		delete(m.allocations, id)
		count++
	}
	return count
}

func elemSize(matType gocv.MatType) int {
	switch matType {
	case gocv.MatTypeCV8UC1:
		return 1
	case gocv.MatTypeCV8UC3:
		return 3
	case gocv.MatTypeCV8UC4:
		return 4
	case gocv.MatTypeCV16UC1, gocv.MatTypeCV16SC1:
		return 2
	case gocv.MatTypeCV16UC3, gocv.MatTypeCV16SC3:
		return 6
	case gocv.MatTypeCV16UC4, gocv.MatTypeCV16SC4:
		return 8
	case gocv.MatTypeCV32FC1:
		return 4
	case gocv.MatTypeCV32FC3:
		return 12
	case gocv.MatTypeCV32FC4:
		return 16
	default:
		return 1
	}
}
