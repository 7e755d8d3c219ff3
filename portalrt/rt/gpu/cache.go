package gpu

// MeshRetention is how many frames an unused mesh keeps its GPU buffers.
const MeshRetention = 120

// evictStale removes every entry whose stamp is older than frame-keep and
// hands it to drop. It returns the number of evicted entries.
func evictStale[K comparable, V any](m map[K]V, frame, keep uint64, stamp func(V) uint64, drop func(V)) int {
	if frame <= keep {
		return 0
	}
	oldest := frame - keep
	n := 0
	for k, v := range m {
		if stamp(v) < oldest {
			drop(v)
			delete(m, k)
			n++
		}
	}
	return n
}
