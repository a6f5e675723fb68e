package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// HashBackend derives vectors from the SHA-256 digest of the text. The first
// digest is the hash of the text itself; further blocks hash the text followed
// by a big-endian block counter. Each byte b becomes b/255, so components lie
// in [0, 1] and identical text always yields bit-identical vectors.
type HashBackend struct {
	dimension int
}

func NewHashBackend(dimension int) (*HashBackend, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("embedding: hash dimension must be positive, got %d", dimension)
	}
	return &HashBackend{dimension: dimension}, nil
}

func (h *HashBackend) Name() string { return "hash" }

func (h *HashBackend) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 0, h.dimension)

	digest := sha256.Sum256([]byte(text))
	block := digest[:]
	var counter [4]byte
	for n := uint32(1); ; n++ {
		for _, b := range block {
			if len(vec) == h.dimension {
				return vec, nil
			}
			vec = append(vec, float32(b)/255)
		}
		binary.BigEndian.PutUint32(counter[:], n)
		next := sha256.Sum256(append([]byte(text), counter[:]...))
		block = next[:]
	}
}
