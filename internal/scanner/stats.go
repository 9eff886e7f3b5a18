package scanner

// Statistics holds the monotonically increasing counters the scanner
// accumulates while it runs. BytesProcessed counts every byte the
// scanner has consumed from its buffer, whether emitted as part of a
// frame, folded into an invalid segment, or skipped as noise; bytes
// still buffered waiting for more data are not counted.
type Statistics struct {
	FramesFound     uint64 `json:"frames_found"`
	TimeFramesFound uint64 `json:"time_frames_found"`
	InvalidFrames   uint64 `json:"invalid_frames"`
	BytesProcessed  uint64 `json:"bytes_processed"`
}

// Add accumulates other into s. Used by the ingest server to aggregate
// per-connection statistics.
func (s *Statistics) Add(other Statistics) {
	s.FramesFound += other.FramesFound
	s.TimeFramesFound += other.TimeFramesFound
	s.InvalidFrames += other.InvalidFrames
	s.BytesProcessed += other.BytesProcessed
}
