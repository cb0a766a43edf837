package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/WatchJani/K-means/utils"
)

// Opcode : integer header of the message-passing transport
type Opcode int32

const (
	OpNumber    Opcode = 1
	OpKMeans    Opcode = 2
	OpLocation  Opcode = 3
	OpTerminate Opcode = 9
)

// message tags of the message-passing transport
const (
	TagCommand        = 0 // opcode, coordinator -> worker
	TagLength         = 1 // payload length, coordinator -> worker
	TagPayload        = 2 // payload chunks, coordinator -> worker
	TagResultLength   = 3 // response length, worker -> coordinator
	TagResult         = 4 // response chunks, worker -> coordinator
	TagBarrier        = 98
	TagBarrierRelease = 99
)

// MaxChunk is the largest buffer a single message carries; longer buffers are split
const MaxChunk = 512 * 1024

// Command returns the line protocol command matching the opcode
func (op Opcode) Command() Command {
	switch op {
	case OpNumber:
		return Number
	case OpKMeans:
		return KMeans
	case OpLocation:
		return Location
	case OpTerminate:
		return Terminate
	}
	return Command(fmt.Sprintf("%d", int32(op)))
}

// HasPayload reports whether the opcode is followed by a length-prefixed buffer
func (op Opcode) HasPayload() bool {
	return op == OpNumber || op == OpKMeans || op == OpLocation
}

// EncodeInt encodes a 4-byte big-endian integer message
func EncodeInt(v int32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(v))
	return buf
}

// DecodeInt decodes a 4-byte big-endian integer message
func DecodeInt(buf []byte) (int32, error) {
	if len(buf) != 4 {
		return 0, utils.Malformed(nil, "integer message of %d bytes", len(buf))
	}
	return int32(binary.BigEndian.Uint32(buf)), nil
}

// SplitChunks cuts a buffer into pieces of at most 'size' bytes; an empty buffer gives no chunk
func SplitChunks(data []byte, size int) [][]byte {
	if size <= 0 {
		size = MaxChunk
	}
	var chunks [][]byte
	for len(data) > 0 {
		n := min(size, len(data))
		chunks = append(chunks, data[:n])
		data = data[n:]
	}
	return chunks
}
