// Package pcm holds the bits shared by the codec backends: the recoverable
// decode-error sentinel and sample conversion to the 16-bit little-endian
// interleaved output format.
package pcm

import "errors"

// ErrDecode marks a recoverable decode error local to one packet.
// Re-exported as decoders.ErrDecode.
var ErrDecode = errors.New("decode error")

// To16 narrows a sample of the given source bit depth to 16 bits.
func To16(v int32, bitsPerSample int) int16 {
	switch {
	case bitsPerSample == 16:
		return int16(v)
	case bitsPerSample < 16:
		return int16(v << (16 - bitsPerSample))
	default:
		return int16(v >> (bitsPerSample - 16))
	}
}

// FloatTo16 converts a [-1, 1] float sample to 16 bits with clamping.
func FloatTo16(v float32) int16 {
	s := v * 32767
	if s > 32767 {
		s = 32767
	}
	if s < -32768 {
		s = -32768
	}
	return int16(s)
}

// AppendInt16LE appends one 16-bit sample in little-endian byte order.
func AppendInt16LE(dst []byte, s int16) []byte {
	return append(dst, byte(s), byte(s>>8))
}

// PutInt16LE stores one 16-bit sample in little-endian byte order.
func PutInt16LE(dst []byte, s int16) {
	dst[0] = byte(s)
	dst[1] = byte(s >> 8)
}
