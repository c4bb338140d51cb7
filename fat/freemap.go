package fat

import (
	"github.com/boljen/go-bitmap"
)

// FreeMap is an in-memory cache of which clusters are free, layered on top
// of Engine. A linear scan of the on-disk FAT is the authoritative source
// of truth, and FreeMap never replaces it: the cache exists purely so
// repeated allocations on a long-lived mount don't each re-scan sectors
// already known to be full. A stale or not-yet-built map always falls back
// to Engine's real scan, so a bug in the cache can only cost performance,
// never correctness.
type FreeMap struct {
	engine *Engine
	bits   bitmap.Bitmap
	built  bool
}

// NewFreeMap wraps engine with an (unbuilt) free-cluster cache.
func NewFreeMap(engine *Engine) *FreeMap {
	return &FreeMap{engine: engine}
}

// Build performs the one-time linear scan of the active FAT needed to
// populate the bitmap. Safe to call more than once; later calls are no-ops
// until Invalidate is called.
func (m *FreeMap) Build() error {
	if m.built {
		return nil
	}

	total := m.engine.TotalClusters()
	bits := bitmap.NewSlice(int(total))

	perSector := m.engine.entriesPerSector()
	for sectorIndex := uint(0); sectorIndex < m.engine.boot.SectorsPerFAT; sectorIndex++ {
		sector := SectorID(uint(m.engine.boot.FirstFATSector) + sectorIndex)
		buf, err := m.engine.readSector(sector)
		if err != nil {
			return err
		}

		for j := uint(0); j < perSector; j++ {
			cluster := ClusterID(sectorIndex*perSector + j)
			if cluster < 2 || uint(cluster) >= total+2 {
				continue
			}

			occupied := m.engine.decodeEntry(buf, j*m.engine.entryLen) != 0
			bits.Set(int(uint(cluster)-2), occupied)
		}
	}

	m.bits = bits
	m.built = true
	return nil
}

// Invalidate discards the cache until the next Build: Allocate falls back
// directly to Engine's scan, and Free no longer tracks freed clusters.
func (m *FreeMap) Invalidate() {
	m.built = false
	m.bits = nil
}

// Allocate returns the first cluster the cache believes is free, verifying
// against the real FAT entry before handing it out. If the cache isn't
// built, finds no candidate, or the candidate turns out to already be
// occupied (the cache is only ever a hint), it falls back to Engine's own
// linear scan.
func (m *FreeMap) Allocate() (ClusterID, error) {
	if !m.built {
		return m.allocateAndTrack()
	}

	total := m.engine.TotalClusters()
	for i := 0; i < int(total); i++ {
		if m.bits.Get(i) {
			continue
		}

		cluster := ClusterID(uint(i) + 2)
		entry, err := m.engine.ReadEntry(cluster)
		if err != nil {
			return 0, err
		}
		if entry != 0 {
			// Cache is stale for this bit; keep looking, but record the
			// truth so we don't check it again.
			m.bits.Set(i, true)
			continue
		}

		if err := m.engine.WriteEntry(cluster, m.engine.endMarker); err != nil {
			return 0, err
		}
		m.bits.Set(i, true)
		return cluster, nil
	}

	return m.allocateAndTrack()
}

// allocateAndTrack delegates to Engine.AllocateCluster and, if the cache is
// built, marks the resulting cluster occupied so it stays consistent.
func (m *FreeMap) allocateAndTrack() (ClusterID, error) {
	cluster, err := m.engine.AllocateCluster()
	if err != nil {
		return 0, err
	}
	if m.built {
		m.bits.Set(int(uint(cluster)-2), true)
	}
	return cluster, nil
}

// Free frees the chain starting at first and, if the cache is built, marks
// every freed cluster as free in the bitmap.
func (m *FreeMap) Free(first ClusterID) error {
	freed, err := m.engine.FreeChain(first)
	if m.built {
		for _, cluster := range freed {
			m.bits.Set(int(uint(cluster)-2), false)
		}
	}
	return err
}
