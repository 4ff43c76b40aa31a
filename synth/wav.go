package synth

import (
	"fmt"
	"io"
	"os"

	wav "github.com/youpy/go-wav"
)

// WriteWAV encodes mono float32 samples as 16-bit PCM WAV.
func WriteWAV(w io.Writer, samples []float32, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrUnknownParam, sampleRate)
	}

	writer := wav.NewWriter(w, uint32(len(samples)), 1, uint32(sampleRate), 16)

	encoded := make([]wav.Sample, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int(s * 32767)
		encoded[i] = wav.Sample{Values: [2]int{v, v}}
	}

	if err := writer.WriteSamples(encoded); err != nil {
		return fmt.Errorf("failed to write WAV samples: %w", err)
	}
	return nil
}

// WriteWAVFile renders samples into a WAV file at path.
func WriteWAVFile(path string, samples []float32, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create WAV file: %w", err)
	}
	defer f.Close()

	return WriteWAV(f, samples, sampleRate)
}
