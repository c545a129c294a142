package synth

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// PCMDuration returns the play time of a 16-bit mono payload at the
// pipeline sample rate.
func PCMDuration(dataLen int) time.Duration {
	samples := dataLen / (BitDepth / 8 * Channels)
	return time.Duration(float64(samples) / SampleRate * float64(time.Second))
}

// ValidatePCM checks that a payload is aligned to whole samples.
func ValidatePCM(data []byte) error {
	if len(data) == 0 {
		return errors.New("empty PCM data")
	}
	bytesPerSample := BitDepth / 8 * Channels
	if len(data)%bytesPerSample != 0 {
		return fmt.Errorf("PCM data length %d is not aligned to %d-byte samples",
			len(data), bytesPerSample)
	}
	return nil
}

// EncodeWAV wraps a PCM payload in a RIFF/WAVE container.
func EncodeWAV(pcm []byte) ([]byte, error) {
	if err := ValidatePCM(pcm); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	byteRate := SampleRate * Channels * BitDepth / 8
	blockAlign := Channels * BitDepth / 8

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm))) //nolint:errcheck // bytes.Buffer does not fail
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))         //nolint:errcheck
	binary.Write(&buf, binary.LittleEndian, uint16(1))          //nolint:errcheck // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(Channels))   //nolint:errcheck
	binary.Write(&buf, binary.LittleEndian, uint32(SampleRate)) //nolint:errcheck
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))   //nolint:errcheck
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign)) //nolint:errcheck
	binary.Write(&buf, binary.LittleEndian, uint16(BitDepth))   //nolint:errcheck

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcm))) //nolint:errcheck
	buf.Write(pcm)

	return buf.Bytes(), nil
}
