package solana

import (
	"crypto/ed25519"
	"crypto/sha256"
	"hash"
	"testing"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProgramAddress(t *testing.T) {
	exceededSeed := make([]byte, maxSeedLength+1)
	maxSeed := make([]byte, maxSeedLength)

	// Typo is intentional; the expected outputs come from the Solana SDK tests.
	publicKey, err := base58.Decode("SeedPubey1111111111111111111111111111111111")
	require.NoError(t, err)
	programID, err := base58.Decode("BPFLoader1111111111111111111111111111111111")
	require.NoError(t, err)

	_, err = CreateProgramAddress(programID, exceededSeed)
	assert.Equal(t, ErrMaxSeedLengthExceeded, err)
	_, err = CreateProgramAddress(programID, []byte("short seed"), exceededSeed)
	assert.Equal(t, ErrMaxSeedLengthExceeded, err)

	_, err = CreateProgramAddress(programID, maxSeed)
	assert.NoError(t, err)

	cases := []struct {
		expected string
		input    [][]byte
	}{
		{
			expected: "3gF2KMe9KiC6FNVBmfg9i267aMPvK37FewCip4eGBFcT",
			input:    [][]byte{{}, {1}},
		},
		{
			expected: "7ytmC1nT1xY4RfxCV2ZgyA7UakC93do5ZdyhdF3EtPj7",
			input:    [][]byte{[]byte("☉")},
		},
		{
			expected: "HwRVBufQ4haG5XSgpspwKtNd3PC9GM9m1196uJW36vds",
			input:    [][]byte{[]byte("Talking"), []byte("Squirrels")},
		},
		{
			expected: "GUs5qLUfsEHkcMB9T38vjr18ypEhRuNWiePW2LoK4E3K",
			input:    [][]byte{publicKey},
		},
	}

	for _, tc := range cases {
		key, err := CreateProgramAddress(programID, tc.input...)
		assert.NoError(t, err)
		assert.Equal(t, tc.expected, base58.Encode(key))
	}
}

func TestCreateProgramAddress_TooManySeeds(t *testing.T) {
	programID, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	seeds := make([][]byte, maxSeeds+1)
	_, err = CreateProgramAddress(programID, seeds...)
	assert.Equal(t, ErrTooManySeeds, err)
}

type fixedHash struct {
	sumResult []byte
}

func (h *fixedHash) Write(p []byte) (int, error) { return len(p), nil }
func (h *fixedHash) Sum(b []byte) []byte         { return h.sumResult }
func (h *fixedHash) Reset()                      {}
func (h *fixedHash) Size() int                   { return sha256.Size }
func (h *fixedHash) BlockSize() int              { return sha256.BlockSize }

func TestCreateProgramAddress_OnCurve(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	programHashCtor = func() hash.Hash { return &fixedHash{sumResult: pub} }
	defer func() { programHashCtor = sha256.New }()

	programID, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	_, err = CreateProgramAddress(programID, []byte("Lil'"), []byte("Bits"))
	assert.Equal(t, ErrInvalidPublicKey, err)
}

func TestFindProgramAddress_Exhausted(t *testing.T) {
	// Every candidate hashes onto the curve, so no bump can succeed.
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	programHashCtor = func() hash.Hash { return &fixedHash{sumResult: pub} }
	defer func() { programHashCtor = sha256.New }()

	programID, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	_, _, err = FindProgramAddressAndBump(programID, []byte("seed"))
	require.Error(t, err)

	var derivationErr *DerivationError
	require.ErrorAs(t, err, &derivationErr)
	assert.ErrorIs(t, err, ErrDerivationFailed)
	assert.EqualValues(t, programID, derivationErr.Program)
}

func TestFindProgramAddress_InvalidProgram(t *testing.T) {
	_, _, err := FindProgramAddressAndBump(make([]byte, 31), []byte("seed"))

	var derivationErr *DerivationError
	assert.ErrorAs(t, err, &derivationErr)
}

func TestFindProgramAddress_Ref(t *testing.T) {
	references := []struct {
		programID string
		expected  string
	}{
		{
			programID: "4uQeVj5tqViQh7yWWGStvkEG1Zmhx6uasJtWCJziofM",
			expected:  "Bn9pAWUXWc5Kd849xTkQcHqiCbHUEizLFn4r5Cf8XYnd",
		},
		{
			programID: "8opHzTAnfzRpPEx21XtnrVTX28YQuCpAjcn1PczScKh",
			expected:  "oDvUHiiGdMo31xYzjefAzUekWH8EbCKrxgs2FkyTs1S",
		},
		{
			programID: "CiDwVBFgWV9E5MvXWoLgnEgn2hK7rJikbvfWavzAQz3",
			expected:  "B2vBn2bmF9GuaGkebrm8oUqDC34pE6m4bagjNcVE6msv",
		},
		{
			programID: "GcdayuLaLyrdmUu324nahyv33G5poQdLUEZ1nEytDeP",
			expected:  "2mN5Nfq9v1EwTV9FPTHPESZ3XiZce9wi5PQoULFuxvev",
		},
	}

	for _, r := range references {
		programID, err := base58.Decode(r.programID)
		require.NoError(t, err)

		actual, err := FindProgramAddress(programID, []byte("Lil'"), []byte("Bits"))
		require.NoError(t, err)
		assert.Equal(t, r.expected, base58.Encode(actual))
	}
}

func TestDerive_FactoryConfigFixture(t *testing.T) {
	programID, err := base58.Decode("CnfqUGYuKinSjAWU2abZBexMS3eHBG3vVKx9t5RR8mnu")
	require.NoError(t, err)

	first, err := Derive(programID, []byte("factory_config_v2"))
	require.NoError(t, err)
	second, err := Derive(programID, []byte("factory_config_v2"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "HfboSezvw4AUy13M852bberX184B59tmx4mGTHXiQzTy", base58.Encode(first.Address))
	assert.EqualValues(t, 255, first.Bump)
}

func TestDerive_MatchesSolanaGo(t *testing.T) {
	for i := 0; i < 50; i++ {
		programID, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		seed, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)

		actual, err := Derive(programID, []byte("sale_config"), seed)
		require.NoError(t, err)

		expected, bump, err := solanago.FindProgramAddress(
			[][]byte{[]byte("sale_config"), seed},
			solanago.PublicKeyFromBytes(programID),
		)
		require.NoError(t, err)

		assert.EqualValues(t, expected.Bytes(), actual.Address)
		assert.Equal(t, bump, actual.Bump)
	}
}
