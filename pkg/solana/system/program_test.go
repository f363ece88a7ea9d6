package system

import (
	"testing"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	assert.EqualValues(t, solanago.SystemProgramID.Bytes(), ProgramKey)
	assert.EqualValues(t, solanago.MustPublicKeyFromBase58("SysvarRent111111111111111111111111111111111").Bytes(), RentSysVar)
}
