package batch

// Failure records why a binary could not be analyzed
type Failure struct {
	Path string
	Err  error
}

// Summary counts the outcome of a batch
type Summary struct {
	Analyzed   int
	Succeeded  int
	Failed     int
	Skipped    int
	TotalBytes int64
	Failures   []Failure

	entropySum float64
}

func (s *Summary) succeed(size int64, entropy float64) {
	s.Succeeded++
	s.TotalBytes += size
	s.entropySum += entropy
}

func (s *Summary) fail(path string, err error) {
	s.Failed++
	s.Failures = append(s.Failures, Failure{Path: path, Err: err})
}

// MeanEntropy returns the average payload entropy of the succeeded binaries
func (s *Summary) MeanEntropy() float64 {
	if s.Succeeded == 0 {
		return 0
	}
	return s.entropySum / float64(s.Succeeded)
}
