package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeImage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"f", "Zg  "},
		{"fo", "Zm8 "},
		{"foo", "Zm9v"},
		{"foob", "Zm9vYg  "},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := EncodeImage([]byte(tt.in))
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestEncodeImageLength(t *testing.T) {
	for n := 0; n < 50; n++ {
		img := bytes.Repeat([]byte{0xa5}, n)
		enc := EncodeImage(img)
		assert.Len(t, enc, 4*((n+2)/3))
		assert.NotContains(t, string(enc), "=")

		dec, err := DecodeImage(enc)
		require.NoError(t, err)
		assert.Equal(t, img, dec)
	}
}

func TestCommands(t *testing.T) {
	assert.Equal(t, []byte{0x20, 0x3e, 0x20, 'P', 'r', 'o', 'p', '_', 'T', 'x', 't', 0x20, '0', 0x20, '0', 0x20, '0', 0x20, '0', 0x20}, TextModeCommand)
	assert.Equal(t, byte(0x0d), ChipCheckCommand[len(ChipCheckCommand)-1])
	assert.Equal(t, " > > > Prop_Chk 0 0 0 0\r", string(ChipCheckCommand))
	assert.Equal(t, []byte{0x20, 0x7e, 0x0d}, Terminator)
}

func TestFrameImage(t *testing.T) {
	framed := FrameImage([]byte("fo"))
	assert.Equal(t, " > Prop_Txt 0 0 0 0 Zm8  ~\r", string(framed))
}
