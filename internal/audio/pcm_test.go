package audio

import (
	"testing"
)

func TestPCM16_RoundTrip(t *testing.T) {
	samples := []int16{0, 1000, -1000, 32767, -32768}

	data := EncodePCM16(samples)
	if len(data) != len(samples)*2 {
		t.Fatalf("Expected %d bytes, got %d", len(samples)*2, len(data))
	}
	if data[2] != 0xE8 || data[3] != 0x03 {
		t.Errorf("Expected little-endian 1000, got %#x %#x", data[2], data[3])
	}

	decoded, err := DecodePCM16(data)
	if err != nil {
		t.Fatalf("DecodePCM16: %v", err)
	}
	for i := range samples {
		if decoded[i] != samples[i] {
			t.Errorf("Expected sample %d to be %d, got %d", i, samples[i], decoded[i])
		}
	}
}

func TestDecodePCM16_OddLength(t *testing.T) {
	if _, err := DecodePCM16([]byte{1, 2, 3}); err == nil {
		t.Error("Expected error for odd length PCM data")
	}
}

func TestResample(t *testing.T) {
	samples := make([]int16, 4800) // 0.1 seconds at 48kHz
	for i := range samples {
		samples[i] = int16(i % 1000)
	}

	out := Resample(samples, 48000, 16000)
	if len(out) != 1600 {
		t.Errorf("Expected 1600 samples, got %d", len(out))
	}

	same := Resample(samples, 16000, 16000)
	if len(same) != len(samples) {
		t.Errorf("Expected no resampling for equal rates, got %d samples", len(same))
	}
}

func TestCalculateRMS(t *testing.T) {
	rms := CalculateRMS([]int16{1000, -1000, 2000, -2000})

	// sqrt((1000^2 + 1000^2 + 2000^2 + 2000^2) / 4)
	expected := 1581.14
	if rms < expected-1 || rms > expected+1 {
		t.Errorf("Expected RMS around %.2f, got %.2f", expected, rms)
	}
	if CalculateRMS(nil) != 0 {
		t.Error("Expected RMS of no samples to be 0")
	}
}
