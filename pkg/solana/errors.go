package solana

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

// TransactionErrorKey is the string key returned in a transaction error.
//
// Source: https://github.com/solana-labs/solana/blob/fc2bf2d3b669d1c6655ae48b0a05f470938f3676/sdk/src/transaction/mod.rs#L37
type TransactionErrorKey string

const (
	TransactionErrorAccountNotFound         TransactionErrorKey = "AccountNotFound"
	TransactionErrorInsufficientFundsForFee TransactionErrorKey = "InsufficientFundsForFee"
	TransactionErrorBlockhashNotFound       TransactionErrorKey = "BlockhashNotFound"
	TransactionErrorAlreadyProcessed        TransactionErrorKey = "AlreadyProcessed"
	TransactionErrorInstructionError        TransactionErrorKey = "InstructionError"
	TransactionErrorSignatureFailure        TransactionErrorKey = "SignatureFailure"
)

// CustomError is the numerical error returned by a non-system program.
type CustomError int

func (c CustomError) Error() string {
	return fmt.Sprintf("custom program error: 0x%x", int(c))
}

// InstructionError indicates an instruction returned an error in a transaction.
type InstructionError struct {
	Index int
	Err   error
}

func (i InstructionError) Error() string {
	return fmt.Sprintf("Error processing Instruction %d: %v", i.Index, i.Err)
}

func (i InstructionError) Unwrap() error {
	return i.Err
}

// CustomError returns the program error code, if the instruction failed with one.
func (i InstructionError) CustomError() *CustomError {
	ce, ok := i.Err.(CustomError)
	if ok {
		return &ce
	}

	return nil
}

// TransactionError is a parsed "err" value from the RPC API.
type TransactionError struct {
	Key         TransactionErrorKey
	Instruction *InstructionError
	raw         json.RawMessage
}

func (t *TransactionError) Error() string {
	if t.Instruction != nil {
		return t.Instruction.Error()
	}
	return string(t.Key)
}

func (t *TransactionError) Unwrap() error {
	if t.Instruction != nil {
		return t.Instruction
	}
	return nil
}

// JSONString returns the error as returned by the RPC node.
func (t *TransactionError) JSONString() string {
	return string(t.raw)
}

// SimulationError is the data attached to a failed preflight simulation.
type SimulationError struct {
	Err  *TransactionError
	Logs []string
}

func (s *SimulationError) Error() string {
	if s.Err == nil {
		return "transaction simulation failed"
	}
	return "transaction simulation failed: " + s.Err.Error()
}

func (s *SimulationError) Unwrap() error {
	if s.Err == nil {
		return nil
	}
	return s.Err
}

// ParseSimulationError parses the data field of a sendTransaction error
// raised during preflight. A nil error is returned when data carries no
// transaction error.
func ParseSimulationError(data json.RawMessage) (*SimulationError, error) {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, nil
	}

	var raw struct {
		Err  json.RawMessage `json:"err"`
		Logs []string        `json:"logs"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "unexpected simulation error format")
	}

	txErr, err := ParseTransactionError(raw.Err)
	if err != nil {
		return nil, err
	}
	if txErr == nil {
		return nil, nil
	}

	return &SimulationError{
		Err:  txErr,
		Logs: raw.Logs,
	}, nil
}

// ParseTransactionError parses the JSON error returned in the "err" field of
// various RPC methods.
func ParseTransactionError(raw json.RawMessage) (*TransactionError, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}

	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, errors.Wrap(err, "invalid transaction error json")
	}

	switch t := v.(type) {
	case string:
		return &TransactionError{Key: TransactionErrorKey(t), raw: raw}, nil
	case map[string]interface{}:
		if len(t) != 1 {
			return nil, errors.Errorf("invalid transaction error size: %d", len(t))
		}

		for k, inner := range t {
			if k != string(TransactionErrorInstructionError) {
				return &TransactionError{Key: TransactionErrorKey(k), raw: raw}, nil
			}

			ixErr, err := parseInstructionError(inner)
			if err != nil {
				return nil, errors.Wrap(err, "failed to parse instruction error")
			}

			return &TransactionError{
				Key:         TransactionErrorInstructionError,
				Instruction: ixErr,
				raw:         raw,
			}, nil
		}
	}

	return nil, errors.Errorf("unhandled transaction error type: %T", v)
}

func parseInstructionError(v interface{}) (*InstructionError, error) {
	values, ok := v.([]interface{})
	if !ok {
		return nil, errors.New("unexpected instruction error format")
	}
	if len(values) != 2 {
		return nil, errors.Errorf("invalid InstructionError tuple size: %d", len(values))
	}

	index, err := parseJSONNumber(values[0])
	if err != nil {
		return nil, err
	}

	e := &InstructionError{Index: index}

	switch t := values[1].(type) {
	case string:
		e.Err = errors.New(t)
	case map[string]interface{}:
		if len(t) != 1 {
			return nil, errors.Errorf("invalid instruction result size: %d", len(t))
		}

		for k, inner := range t {
			if k != "Custom" {
				e.Err = errors.New(k)
				break
			}

			code, err := parseJSONNumber(inner)
			if err != nil {
				return nil, errors.Wrap(err, "invalid custom error code")
			}
			e.Err = CustomError(code)
		}
	default:
		return nil, errors.Errorf("unhandled instruction error type: %T", t)
	}

	return e, nil
}

func parseJSONNumber(v interface{}) (int, error) {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, errors.Errorf("non int64 value: %v", v)
		}
		return int(n), nil
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, errors.Errorf("non numeric value: %v", v)
		}
		return int(n), nil
	case float64:
		return int(t), nil
	}

	return 0, errors.Errorf("non numeric value: %v", v)
}
