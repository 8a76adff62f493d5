package firmware

// ProgressCallback is called during long operations to report progress.
// current and total are byte counts, description is a human-readable phase name.
type ProgressCallback func(current, total int64, description string)

// TransferProgress tracks an image transfer to the target.
type TransferProgress struct {
	BytesSent   int64
	TotalBytes  int64
	ChunksSent  int
	TotalChunks int
	Phase       string // "resetting", "sending", "done"
}

// Percent returns the progress as a percentage (0.0 to 1.0).
func (p TransferProgress) Percent() float64 {
	if p.TotalBytes == 0 {
		return 0
	}
	return float64(p.BytesSent) / float64(p.TotalBytes)
}

// Chunks returns the number of chunkSize writes needed for total bytes.
func Chunks(total int64, chunkSize int) int {
	if chunkSize <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(chunkSize) - 1) / int64(chunkSize))
}
