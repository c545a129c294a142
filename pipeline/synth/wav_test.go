package synth_test

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/storyvox/storyvox/pipeline/synth"
)

func TestPCMDuration(t *testing.T) {
	// One second of 16-bit mono audio at the pipeline sample rate.
	oneSecond := synth.SampleRate * 2
	if got := synth.PCMDuration(oneSecond); got != time.Second {
		t.Errorf("duration = %v, want 1s", got)
	}
	if got := synth.PCMDuration(oneSecond / 2); got != 500*time.Millisecond {
		t.Errorf("duration = %v, want 500ms", got)
	}
	if got := synth.PCMDuration(0); got != 0 {
		t.Errorf("duration = %v, want 0", got)
	}
}

func TestValidatePCM(t *testing.T) {
	if err := synth.ValidatePCM(nil); err == nil {
		t.Error("empty payload accepted")
	}
	if err := synth.ValidatePCM([]byte{1, 2, 3}); err == nil {
		t.Error("misaligned payload accepted")
	}
	if err := synth.ValidatePCM([]byte{1, 2, 3, 4}); err != nil {
		t.Errorf("aligned payload rejected: %v", err)
	}
}

func TestEncodeWAV(t *testing.T) {
	pcm := []byte{1, 0, 2, 0, 3, 0, 4, 0}
	wav, err := synth.EncodeWAV(pcm)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if len(wav) != 44+len(pcm) {
		t.Fatalf("container size = %d, want %d", len(wav), 44+len(pcm))
	}
	if !bytes.Equal(wav[0:4], []byte("RIFF")) || !bytes.Equal(wav[8:12], []byte("WAVE")) {
		t.Error("missing RIFF/WAVE markers")
	}
	if riffSize := binary.LittleEndian.Uint32(wav[4:8]); riffSize != uint32(36+len(pcm)) {
		t.Errorf("RIFF size = %d, want %d", riffSize, 36+len(pcm))
	}

	if !bytes.Equal(wav[12:16], []byte("fmt ")) {
		t.Error("missing fmt chunk")
	}
	if format := binary.LittleEndian.Uint16(wav[20:22]); format != 1 {
		t.Errorf("audio format = %d, want 1 (PCM)", format)
	}
	if channels := binary.LittleEndian.Uint16(wav[22:24]); channels != synth.Channels {
		t.Errorf("channels = %d, want %d", channels, synth.Channels)
	}
	if rate := binary.LittleEndian.Uint32(wav[24:28]); rate != synth.SampleRate {
		t.Errorf("sample rate = %d, want %d", rate, synth.SampleRate)
	}
	if depth := binary.LittleEndian.Uint16(wav[34:36]); depth != synth.BitDepth {
		t.Errorf("bit depth = %d, want %d", depth, synth.BitDepth)
	}

	if !bytes.Equal(wav[36:40], []byte("data")) {
		t.Error("missing data chunk")
	}
	if dataSize := binary.LittleEndian.Uint32(wav[40:44]); dataSize != uint32(len(pcm)) {
		t.Errorf("data size = %d, want %d", dataSize, len(pcm))
	}
	if !bytes.Equal(wav[44:], pcm) {
		t.Error("payload corrupted")
	}
}

func TestEncodeWAVRejectsBadPayload(t *testing.T) {
	if _, err := synth.EncodeWAV(nil); err == nil {
		t.Error("empty payload accepted")
	}
	if _, err := synth.EncodeWAV([]byte{1}); err == nil {
		t.Error("misaligned payload accepted")
	}
}
