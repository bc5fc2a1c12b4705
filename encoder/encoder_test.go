package encoder

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for op := 0; op <= 0xFF; op += 7 {
		for r1 := byte(0); r1 <= 3; r1++ {
			for r2 := byte(0); r2 <= 3; r2++ {
				for r3 := byte(0); r3 <= 3; r3++ {
					for _, imm := range []uint32{0, 1, 0x7FFFFF, 0x800000, 0xFFFFFF} {
						bytes := Encode(byte(op), r1, r2, r3, imm)
						got := Decode(bytes)

						require.Equal(t, byte(op), got.Opcode)
						require.Equal(t, byte(0), got.Rsv1)
						require.Equal(t, byte(0), got.Rsv2)
						require.Equal(t, int(r1)-1, got.Reg1)
						require.Equal(t, int(r2)-1, got.Reg2)
						require.Equal(t, int(r3)-1, got.Reg3)
						require.Equal(t, imm&0x00FFFFFF, got.ImmRaw)
					}
				}
			}
		}
	}
}

func TestSignExtension(t *testing.T) {
	cases := []struct {
		raw  uint32
		want int32
	}{
		{0x000000, 0},
		{0x000001, 1},
		{0x7FFFFF, 0x7FFFFF},
		{0x800000, -0x800000},
		{0xFFFFFF, -1},
	}

	for _, c := range cases {
		bytes := Encode(0, 0, 0, 0, c.raw)
		got := Decode(bytes)
		require.Equal(t, c.want, got.Imm, "raw=0x%06X", c.raw)
	}
}

func TestDecodeBytesRejectsShortInput(t *testing.T) {
	_, err := DecodeBytes([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestEncodeDecodedRegisterHelpers(t *testing.T) {
	bytes := EncodeDecoded(0x03, 0, 1, 2, 0)
	got := Decode(bytes)
	require.Equal(t, 0, got.Reg1)
	require.Equal(t, 1, got.Reg2)
	require.Equal(t, 2, got.Reg3)

	noregBytes := EncodeDecoded(0x00, -1, -1, -1, 0)
	noreg := Decode(noregBytes)
	require.Equal(t, -1, noreg.Reg1)
	require.Equal(t, -1, noreg.Reg2)
	require.Equal(t, -1, noreg.Reg3)
}
