// Package entropy measures the byte entropy of an application's executable payload.
package entropy

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"math"
)

// ErrPayloadNotFound is returned when the archive has no entry with the payload name
var ErrPayloadNotFound = errors.New("payload not found in archive")

// Counter accumulates byte frequencies
type Counter struct {
	counts [256]uint64
	total  uint64
}

// Write implements io.Writer
func (c *Counter) Write(p []byte) (int, error) {
	for _, b := range p {
		c.counts[b]++
	}
	c.total += uint64(len(p))
	return len(p), nil
}

// Total returns the number of bytes seen
func (c *Counter) Total() uint64 {
	return c.total
}

// Entropy returns the Shannon entropy of the bytes seen, in bits per byte.
// An empty stream has entropy 0.
func (c *Counter) Entropy() float64 {
	if c.total == 0 {
		return 0
	}
	total := float64(c.total)
	h := 0.0
	for _, n := range c.counts {
		if n == 0 {
			continue
		}
		p := float64(n) / total
		h -= p * math.Log2(p)
	}
	if h < 0 {
		return 0
	}
	return h
}

// Shannon returns the entropy of data
func Shannon(data []byte) float64 {
	var c Counter
	_, _ = c.Write(data)
	return c.Entropy()
}

// FromReader returns the entropy of everything read from r and the byte count
func FromReader(r io.Reader) (float64, int64, error) {
	var c Counter
	n, err := io.Copy(&c, r)
	if err != nil {
		return 0, n, fmt.Errorf("failed to read payload: %w", err)
	}
	return c.Entropy(), n, nil
}

// FromArchive returns the entropy of the archive entry named payload
func FromArchive(path, payload string) (float64, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open archive %s: %w", path, err)
	}
	defer archive.Close()

	for _, file := range archive.File {
		if file.Name != payload {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return 0, fmt.Errorf("failed to open %s in %s: %w", payload, path, err)
		}
		defer rc.Close()

		h, _, err := FromReader(rc)
		return h, err
	}
	return 0, fmt.Errorf("%w: %s in %s", ErrPayloadNotFound, payload, path)
}
