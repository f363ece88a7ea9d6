package solana

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTransactionError(t *testing.T) {
	txErr, err := ParseTransactionError(nil)
	require.NoError(t, err)
	assert.Nil(t, txErr)

	txErr, err = ParseTransactionError(json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Nil(t, txErr)

	txErr, err = ParseTransactionError(json.RawMessage(`"BlockhashNotFound"`))
	require.NoError(t, err)
	assert.Equal(t, TransactionErrorBlockhashNotFound, txErr.Key)
	assert.Nil(t, txErr.Instruction)
	assert.Equal(t, "BlockhashNotFound", txErr.Error())
	assert.Equal(t, `"BlockhashNotFound"`, txErr.JSONString())

	txErr, err = ParseTransactionError(json.RawMessage(`{"InsufficientFundsForRent":{"account_index":2}}`))
	require.NoError(t, err)
	assert.EqualValues(t, "InsufficientFundsForRent", txErr.Key)
}

func TestParseTransactionError_Instruction(t *testing.T) {
	txErr, err := ParseTransactionError(json.RawMessage(`{"InstructionError":[0,{"Custom":6001}]}`))
	require.NoError(t, err)
	require.NotNil(t, txErr.Instruction)

	assert.Equal(t, TransactionErrorInstructionError, txErr.Key)
	assert.Equal(t, 0, txErr.Instruction.Index)
	require.NotNil(t, txErr.Instruction.CustomError())
	assert.EqualValues(t, 6001, *txErr.Instruction.CustomError())
	assert.Equal(t, "Error processing Instruction 0: custom program error: 0x1771", txErr.Error())

	var custom CustomError
	assert.ErrorAs(t, txErr, &custom)

	txErr, err = ParseTransactionError(json.RawMessage(`{"InstructionError":[1,"MissingRequiredSignature"]}`))
	require.NoError(t, err)
	assert.Equal(t, 1, txErr.Instruction.Index)
	assert.Nil(t, txErr.Instruction.CustomError())
	assert.Equal(t, "Error processing Instruction 1: MissingRequiredSignature", txErr.Error())
}

func TestParseTransactionError_Invalid(t *testing.T) {
	for _, raw := range []string{
		`{`,
		`12`,
		`{"a":1,"b":2}`,
		`{"InstructionError":[0]}`,
		`{"InstructionError":[0,{"Custom":"x"}]}`,
		`{"InstructionError":[0,12]}`,
	} {
		_, err := ParseTransactionError(json.RawMessage(raw))
		assert.Error(t, err, raw)
	}
}

func TestParseSimulationError(t *testing.T) {
	simErr, err := ParseSimulationError(nil)
	require.NoError(t, err)
	assert.Nil(t, simErr)

	simErr, err = ParseSimulationError(json.RawMessage(`{"err":null,"logs":[]}`))
	require.NoError(t, err)
	assert.Nil(t, simErr)

	data := json.RawMessage(`{
		"accounts": null,
		"err": {"InstructionError": [0, {"Custom": 1}]},
		"logs": ["Program CnfqUGYuKinSjAWU2abZBexMS3eHBG3vVKx9t5RR8mnu invoke [1]", "Program log: insufficient lamports"],
		"unitsConsumed": 4210
	}`)
	simErr, err = ParseSimulationError(data)
	require.NoError(t, err)
	require.NotNil(t, simErr)

	assert.Len(t, simErr.Logs, 2)
	assert.Equal(t, TransactionErrorInstructionError, simErr.Err.Key)
	assert.Equal(t, "transaction simulation failed: Error processing Instruction 0: custom program error: 0x1", simErr.Error())

	_, err = ParseSimulationError(json.RawMessage(`[1,2]`))
	assert.Error(t, err)
}
