package pipeline

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// Job IDs are ULIDs: 26-character Crockford Base32 strings with a millisecond
// timestamp prefix, so listings sort by creation time. Generated locally to
// avoid an external dependency for 16 bytes of ID.

var (
	ulidMu  sync.Mutex
	lastTS  uint64
	lastSeq uint16
)

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// NewJobID returns a fresh, time-ordered job identifier.
func NewJobID() string {
	ulidMu.Lock()
	defer ulidMu.Unlock()

	ts := uint64(time.Now().UnixMilli())
	if ts == lastTS {
		lastSeq++
	} else {
		lastTS = ts
		lastSeq = 0
	}

	var b [16]byte
	// Timestamp in first 6 bytes (big-endian 48-bit).
	b[0] = byte(ts >> 40)
	b[1] = byte(ts >> 32)
	b[2] = byte(ts >> 24)
	b[3] = byte(ts >> 16)
	b[4] = byte(ts >> 8)
	b[5] = byte(ts)
	// Random in remaining 10 bytes.
	rand.Read(b[6:])
	// Embed sequence in bytes 6-7 to ensure uniqueness within same ms.
	binary.BigEndian.PutUint16(b[6:8], lastSeq)

	return encode(b)
}

// encode renders 128 bits as 26 Crockford Base32 characters. 26*5 = 130,
// so the first group carries two implicit zero bits.
func encode(b [16]byte) string {
	var out [26]byte
	bit := -2
	for i := range out {
		var v byte
		for j := bit; j < bit+5; j++ {
			v <<= 1
			if j >= 0 && b[j/8]>>(7-j%8)&1 == 1 {
				v |= 1
			}
		}
		out[i] = crockford[v]
		bit += 5
	}
	return string(out[:])
}
