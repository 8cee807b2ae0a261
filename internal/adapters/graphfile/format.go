// Package graphfile persists dependency graphs in the binary graph format.
//
// A file is the 18 byte magic "Sweet Build Graph\x00", a little-endian uint32
// version and the root target record. A record is
//
//	key       uint64  (session index, 1 for the root)
//	id        uint64 length + bytes
//	timestamp int64   (Unix nanoseconds, 0 when absent)
//	signature uint64
//	flags     uint32
//	children  uint64 count + inlined records
//	deps      uint64 count + keys
//	implicit  uint64 count + keys
//
// Ids are at most 64 KiB. Timestamps outside the Unix nanosecond range are
// clamped to it, and a timestamp at exactly the epoch is written as 1ns after
// it, since 0 means absent.
//
// Children are owned and written inline; dependency edges are written as
// keys and resolved after the whole tree has been read.
package graphfile

import (
	"encoding/binary"
	"math"
	"time"
)

const (
	// Magic identifies a graph file.
	Magic = "Sweet Build Graph\x00"

	// Version is the only format version this package reads and writes.
	Version uint32 = 1

	maxStringLen = 1 << 16
	maxCount     = 1 << 24
)

var order = binary.LittleEndian

var (
	minTime = time.Unix(0, math.MinInt64)
	maxTime = time.Unix(0, math.MaxInt64)
)

func encodeTime(t time.Time) int64 {
	switch {
	case t.IsZero():
		return 0
	case t.Before(minTime):
		return math.MinInt64
	case t.After(maxTime):
		return math.MaxInt64
	}
	if n := t.UnixNano(); n != 0 {
		return n
	}
	return 1
}

func decodeTime(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
