package audio

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pcmBytes builds little-endian 16-bit samples ramping from seed.
func pcmBytes(frames int, seed int16) []byte {
	out := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(seed+int16(i)))
	}
	return out
}

func TestWriteWAVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "one.wav")

	f := DefaultFormat()
	require.NoError(t, WriteWAV(path, pcmBytes(100, 1000), f))

	data, got, err := readPCM(path)
	require.NoError(t, err)
	assert.Equal(t, f, got)
	require.Len(t, data, 100)
	assert.Equal(t, 1000, data[0])
	assert.Equal(t, 1099, data[99])
}

func TestCombinePreservesTotalFrames(t *testing.T) {
	dir := t.TempDir()
	f := DefaultFormat()

	inputs := []struct {
		name   string
		frames int
	}{
		{"a.wav", 100},
		{"b.wav", 200},
		{"c.wav", 50},
	}

	var paths []string
	for i, in := range inputs {
		p := filepath.Join(dir, in.name)
		require.NoError(t, WriteWAV(p, pcmBytes(in.frames, int16(i*1000)), f))
		paths = append(paths, p)
	}

	out := filepath.Join(dir, "combined.wav")
	require.NoError(t, Combine(paths, out))

	n, err := NumFrames(out)
	require.NoError(t, err)
	assert.Equal(t, 350, n)

	// payload is the byte-for-byte concatenation in input order
	data, got, err := readPCM(out)
	require.NoError(t, err)
	assert.Equal(t, f, got)

	offset := 0
	for i, in := range inputs {
		segment, _, err := readPCM(paths[i])
		require.NoError(t, err)
		assert.Equal(t, segment, data[offset:offset+in.frames], "segment %d out of order", i)
		offset += in.frames
	}
}

func TestCombineRejectsEmptyInput(t *testing.T) {
	err := Combine(nil, filepath.Join(t.TempDir(), "out.wav"))
	assert.Error(t, err)
}

func TestNumFramesMissingFile(t *testing.T) {
	_, err := NumFrames(filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)
}
