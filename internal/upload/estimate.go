package upload

import "math"

const (
	estimateChunkBytes        = 100 << 20 // 100 MiB
	estimateSecondsPerChunk   = 30
	estimateFloorSeconds      = 60
	estimateSecondsPerRuntime = 2
)

// EstimateProcessingSeconds computes the client-facing transcoding time hint:
// twice the runtime plus 30 seconds per started 100 MiB, never below 60. It
// is a monotone function of its inputs and purely a UX hint, not a
// scheduling contract.
func EstimateProcessingSeconds(durationSeconds float64, fileSizeBytes int64) int {
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	if fileSizeBytes < 0 {
		fileSizeBytes = 0
	}

	chunks := (fileSizeBytes + estimateChunkBytes - 1) / estimateChunkBytes
	estimate := int(math.Round(estimateSecondsPerRuntime*durationSeconds)) + int(chunks)*estimateSecondsPerChunk
	if estimate < estimateFloorSeconds {
		return estimateFloorSeconds
	}
	return estimate
}
