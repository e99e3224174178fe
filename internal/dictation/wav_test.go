package dictation

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeWAV(t *testing.T) {
	pcm := make([]byte, 8)
	for i, s := range []int16{0, 1000, -1000, 32767} {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}

	data, err := EncodeWAV(pcm, 16000)
	require.NoError(t, err)
	require.Len(t, data, 44+len(pcm))

	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, uint32(len(data)-8), binary.LittleEndian.Uint32(data[4:8]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[22:24]))
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(data[24:28]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(data[34:36]))
	assert.Equal(t, "data", string(data[36:40]))
	assert.Equal(t, uint32(len(pcm)), binary.LittleEndian.Uint32(data[40:44]))
	assert.Equal(t, pcm, data[44:])
}

func TestEncodeWAV_DropsOddByte(t *testing.T) {
	data, err := EncodeWAV([]byte{1, 0, 2}, 16000)
	require.NoError(t, err)
	assert.Len(t, data, 46)
}

func TestMemWriteSeeker(t *testing.T) {
	m := &memWriteSeeker{}
	_, _ = m.Write([]byte("abcdef"))
	_, err := m.Seek(2, 0)
	require.NoError(t, err)
	_, _ = m.Write([]byte("XY"))
	assert.Equal(t, "abXYef", string(m.buf))

	_, err = m.Seek(-1, 0)
	assert.Error(t, err)
}
