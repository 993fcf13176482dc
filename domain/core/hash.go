package core

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strconv"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// Short returns the first 12 characters, enough to tell datasets apart in reports
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// DatasetHash fingerprints a loaded table
type DatasetHash Hash

func (h DatasetHash) String() string { return Hash(h).String() }
func (h DatasetHash) Short() string  { return Hash(h).Short() }

// ComputeDatasetHash hashes column names and values in order. Two tables with
// the same columns and bit-identical values hash the same.
func ComputeDatasetHash(columns []string, rows [][]float64, response []float64) DatasetHash {
	var data strings.Builder
	data.WriteString(strings.Join(columns, ","))
	data.WriteByte('\n')
	for i, row := range rows {
		for _, v := range row {
			data.WriteString(strconv.FormatUint(math.Float64bits(v), 16))
			data.WriteByte(',')
		}
		data.WriteString(strconv.FormatUint(math.Float64bits(response[i]), 16))
		data.WriteByte('\n')
	}
	return DatasetHash(NewHash([]byte(data.String())))
}
