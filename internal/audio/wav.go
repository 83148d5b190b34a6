// Package audio reads, writes and concatenates the WAV clips that make up a
// lesson track.
package audio

import (
	"encoding/binary"
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Output format of every file this package writes.
const (
	SampleRate = 16000
	Channels   = 1
	BitDepth   = 16

	formatPCM = 1
)

func monoFormat() *goaudio.Format {
	return &goaudio.Format{NumChannels: Channels, SampleRate: SampleRate}
}

// WritePCM16 wraps raw 16 kHz mono little-endian 16-bit samples in a WAV file.
func WritePCM16(path string, pcm []byte) error {
	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	return writeSamples(path, samples)
}

// WriteSilence writes a WAV file holding the given number of seconds of silence.
func WriteSilence(path string, seconds int) error {
	if seconds < 0 {
		return fmt.Errorf("negative silence duration %d", seconds)
	}
	return writeSamples(path, make([]int, seconds*SampleRate))
}

func writeSamples(path string, samples []int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	enc := wav.NewEncoder(f, SampleRate, BitDepth, Channels, formatPCM)
	buf := &goaudio.IntBuffer{Format: monoFormat(), Data: samples, SourceBitDepth: BitDepth}
	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalize %s: %w", path, err)
	}
	return f.Close()
}

// Concat appends inputs, in order, into a new WAV file at dst. Inputs are
// converted to 16 kHz mono 16-bit when they differ. If an input cannot be
// read the error is returned and the partial dst is left on disk.
func Concat(dst string, inputs []string) error {
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	enc := wav.NewEncoder(f, SampleRate, BitDepth, Channels, formatPCM)

	for _, input := range inputs {
		samples, err := ReadSamples(input)
		if err != nil {
			enc.Close()
			f.Close()
			return err
		}
		buf := &goaudio.IntBuffer{Format: monoFormat(), Data: samples, SourceBitDepth: BitDepth}
		if err := enc.Write(buf); err != nil {
			enc.Close()
			f.Close()
			return fmt.Errorf("encode %s: %w", dst, err)
		}
	}

	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalize %s: %w", dst, err)
	}
	return f.Close()
}

// ReadSamples decodes a WAV file into 16 kHz mono 16-bit samples.
func ReadSamples(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("decode %s: missing format", path)
	}

	samples := toBitDepth16(buf.Data, int(dec.BitDepth))
	samples = downmix(samples, buf.Format.NumChannels)
	return resample(samples, buf.Format.SampleRate, SampleRate), nil
}

func toBitDepth16(samples []int, depth int) []int {
	switch depth {
	case 8:
		// 8-bit WAV is unsigned
		out := make([]int, len(samples))
		for i, s := range samples {
			out[i] = (s - 128) << 8
		}
		return out
	case 24:
		out := make([]int, len(samples))
		for i, s := range samples {
			out[i] = s >> 8
		}
		return out
	case 32:
		out := make([]int, len(samples))
		for i, s := range samples {
			out[i] = s >> 16
		}
		return out
	}
	return samples
}

func downmix(samples []int, channels int) []int {
	if channels <= 1 {
		return samples
	}
	out := make([]int, len(samples)/channels)
	for i := range out {
		sum := 0
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		out[i] = sum / channels
	}
	return out
}

// resample uses nearest-sample selection; clips are speech at similar rates.
func resample(samples []int, from, to int) []int {
	if from == to || from <= 0 || len(samples) == 0 {
		return samples
	}
	n := int(int64(len(samples)) * int64(to) / int64(from))
	out := make([]int, n)
	for i := range out {
		out[i] = samples[int(int64(i)*int64(from)/int64(to))]
	}
	return out
}
