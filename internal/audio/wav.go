// Package audio wraps raw PCM synthesis output into playable WAV files
// and concatenates per-chunk files into one continuous track.
package audio

import (
	"encoding/binary"
	"fmt"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Format describes the fixed PCM parameters of the synthesis output.
type Format struct {
	SampleRate  int
	NumChannels int
	BitDepth    int
}

// DefaultFormat matches the speech model's output: 24kHz mono 16-bit.
func DefaultFormat() Format {
	return Format{SampleRate: 24000, NumChannels: 1, BitDepth: 16}
}

// WriteWAV encodes raw little-endian 16-bit PCM bytes into a WAV file at
// path, preserving the given format parameters.
func WriteWAV(path string, pcm []byte, f Format) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav %s: %w", path, err)
	}
	defer out.Close()

	enc := wav.NewEncoder(out, f.SampleRate, f.BitDepth, f.NumChannels, 1)
	if err := enc.Write(pcmToBuffer(pcm, f)); err != nil {
		return fmt.Errorf("write wav %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav %s: %w", path, err)
	}
	return nil
}

// Combine concatenates the PCM payloads of the given WAV files, in order,
// into a single WAV at outPath. All inputs must share one format; the
// format of the first file is preserved.
func Combine(paths []string, outPath string) error {
	if len(paths) == 0 {
		return fmt.Errorf("combine wav: no input files")
	}

	var combined []int
	var format Format

	for i, path := range paths {
		data, f, err := readPCM(path)
		if err != nil {
			return err
		}
		if i == 0 {
			format = f
		}
		combined = append(combined, data...)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create wav %s: %w", outPath, err)
	}
	defer out.Close()

	enc := wav.NewEncoder(out, format.SampleRate, format.BitDepth, format.NumChannels, 1)
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: format.NumChannels, SampleRate: format.SampleRate},
		Data:           combined,
		SourceBitDepth: format.BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write wav %s: %w", outPath, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav %s: %w", outPath, err)
	}
	return nil
}

// NumFrames reports the number of PCM frames stored in a WAV file.
func NumFrames(path string) (int, error) {
	data, f, err := readPCM(path)
	if err != nil {
		return 0, err
	}
	return len(data) / f.NumChannels, nil
}

func readPCM(path string) ([]int, Format, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, Format{}, fmt.Errorf("open wav %s: %w", path, err)
	}
	defer in.Close()

	dec := wav.NewDecoder(in)
	if !dec.IsValidFile() {
		return nil, Format{}, fmt.Errorf("decode wav %s: not a valid wav file", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, Format{}, fmt.Errorf("decode wav %s: %w", path, err)
	}

	f := Format{
		SampleRate:  int(dec.SampleRate),
		NumChannels: int(dec.NumChans),
		BitDepth:    int(dec.BitDepth),
	}
	return buf.Data, f, nil
}

func pcmToBuffer(pcm []byte, f Format) *gaudio.IntBuffer {
	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
	}
	return &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: f.NumChannels, SampleRate: f.SampleRate},
		Data:           samples,
		SourceBitDepth: f.BitDepth,
	}
}
