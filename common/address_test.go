package common

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func TestDecodeAddress(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	addr, err := DecodeAddress(key.PublicKey().String())
	require.NoError(t, err)
	require.Equal(t, key.PublicKey(), addr)

	require.Equal(t, solana.SystemProgramID, MustDecodeAddress("11111111111111111111111111111111"))

	for _, s := range []string{"", "0", "111", "1" + key.PublicKey().String()} {
		_, err := DecodeAddress(s)
		require.Error(t, err, s)
	}

	require.Panics(t, func() { MustDecodeAddress("0") })
}
