package protocol

import (
	"bytes"
	"encoding/base64"
)

// Data-channel command vocabulary. The trailing bytes are part of the
// command: Prop_Txt ends with a space and no CR, Prop_Chk ends with CR.
var (
	TextModeCommand  = []byte(" > Prop_Txt 0 0 0 0 ")
	ChipCheckCommand = []byte(" > > > Prop_Chk 0 0 0 0\r")
	Terminator       = []byte{0x20, 0x7e, 0x0d}
)

// EncodeImage returns the standard base64 encoding of image with every
// padding '=' replaced by a space. The result is 4*ceil(n/3) bytes long.
func EncodeImage(image []byte) []byte {
	out := make([]byte, base64.StdEncoding.EncodedLen(len(image)))
	base64.StdEncoding.Encode(out, image)
	for i := len(out) - 1; i >= 0 && out[i] == '='; i-- {
		out[i] = ' '
	}
	return out
}

// DecodeImage reverses EncodeImage.
func DecodeImage(framed []byte) ([]byte, error) {
	fixed := bytes.Clone(framed)
	for i := len(fixed) - 1; i >= 0 && i >= len(fixed)-2 && fixed[i] == ' '; i-- {
		fixed[i] = '='
	}
	out := make([]byte, base64.StdEncoding.DecodedLen(len(fixed)))
	n, err := base64.StdEncoding.Decode(out, fixed)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

// FrameImage returns the complete text-mode byte stream for image:
// command, encoded image and terminator.
func FrameImage(image []byte) []byte {
	enc := EncodeImage(image)
	out := make([]byte, 0, len(TextModeCommand)+len(enc)+len(Terminator))
	out = append(out, TextModeCommand...)
	out = append(out, enc...)
	return append(out, Terminator...)
}
