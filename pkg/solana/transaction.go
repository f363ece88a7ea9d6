package solana

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

const (
	// MaxTransactionSize taken from: https://github.com/solana-labs/solana/blob/39b3ac6a8d29e14faa1de73d8b46d390ad41797b/sdk/src/packet.rs#L9-L13
	MaxTransactionSize = 1232
)

var (
	ErrNotASigner = errors.New("account is not a required signer")
)

type Signature [ed25519.SignatureSize]byte
type Blockhash [sha256.Size]byte

func (s Signature) ToBase58() string {
	return base58.Encode(s[:])
}

func (b Blockhash) ToBase58() string {
	return base58.Encode(b[:])
}

type Header struct {
	NumSignatures     byte
	NumReadonlySigned byte
	NumReadOnly       byte
}

// Message is a legacy transaction message.
type Message struct {
	Header          Header
	Accounts        []ed25519.PublicKey
	RecentBlockhash Blockhash
	Instructions    []CompiledInstruction
}

// Transaction is a message plus one signature slot per required signer. A
// zero Signature marks a slot that has not been signed yet.
type Transaction struct {
	Signatures []Signature
	Message    Message
}

// NewTransaction compiles the instructions into a legacy message with payer
// as the fee payer.
func NewTransaction(payer ed25519.PublicKey, instructions ...Instruction) Transaction {
	accounts := []AccountMeta{
		{
			PublicKey:  payer,
			IsSigner:   true,
			IsWritable: true,
			isPayer:    true,
		},
	}

	for _, i := range instructions {
		accounts = append(accounts, AccountMeta{
			PublicKey: i.Program,
			isProgram: true,
		})
		accounts = append(accounts, i.Accounts...)
	}

	accounts = mergeAccounts(accounts)
	sort.Stable(accountOrder(accounts))

	var m Message
	for _, account := range accounts {
		m.Accounts = append(m.Accounts, account.PublicKey)

		switch {
		case account.IsSigner:
			m.Header.NumSignatures++
			if !account.IsWritable {
				m.Header.NumReadonlySigned++
			}
		case !account.IsWritable:
			m.Header.NumReadOnly++
		}
	}

	for _, i := range instructions {
		c := CompiledInstruction{
			ProgramIndex: byte(indexOf(m.Accounts, i.Program)),
			Data:         i.Data,
		}
		for _, a := range i.Accounts {
			c.Accounts = append(c.Accounts, byte(indexOf(m.Accounts, a.PublicKey)))
		}

		m.Instructions = append(m.Instructions, c)
	}

	return Transaction{
		Signatures: make([]Signature, m.Header.NumSignatures),
		Message:    m,
	}
}

// FeePayer returns the account paying for the transaction.
func (t *Transaction) FeePayer() ed25519.PublicKey {
	if len(t.Message.Accounts) == 0 {
		return nil
	}
	return t.Message.Accounts[0]
}

// Signature returns the fee payer signature, which identifies the transaction
// on chain.
func (t *Transaction) Signature() Signature {
	if len(t.Signatures) == 0 {
		return Signature{}
	}
	return t.Signatures[0]
}

// Signers returns the accounts required to sign, in signature slot order.
func (t *Transaction) Signers() []ed25519.PublicKey {
	n := int(t.Message.Header.NumSignatures)
	if n > len(t.Message.Accounts) {
		n = len(t.Message.Accounts)
	}
	return t.Message.Accounts[:n]
}

// IsSignedBy reports whether pub's signature slot is populated.
func (t *Transaction) IsSignedBy(pub ed25519.PublicKey) bool {
	index := indexOf(t.Signers(), pub)
	if index < 0 || index >= len(t.Signatures) {
		return false
	}
	return t.Signatures[index] != Signature{}
}

// MissingSigners returns required signers whose slots are still empty.
func (t *Transaction) MissingSigners() []ed25519.PublicKey {
	var missing []ed25519.PublicKey
	for i, signer := range t.Signers() {
		if i >= len(t.Signatures) || t.Signatures[i] == (Signature{}) {
			missing = append(missing, signer)
		}
	}
	return missing
}

// IsFullySigned reports whether every required signature is present.
func (t *Transaction) IsFullySigned() bool {
	return len(t.MissingSigners()) == 0
}

func (t *Transaction) SetBlockhash(bh Blockhash) {
	t.Message.RecentBlockhash = bh
}

// Sign fills the signature slots of the provided signers. Slots belonging to
// other signers are left untouched, so it can be used for partial signing.
// The blockhash must be set beforehand since it is part of the signed message.
func (t *Transaction) Sign(signers ...ed25519.PrivateKey) error {
	messageBytes := t.Message.Marshal()

	for _, s := range signers {
		pub := s.Public().(ed25519.PublicKey)

		index := indexOf(t.Signers(), pub)
		if index < 0 || index >= len(t.Signatures) {
			return errors.Wrapf(ErrNotASigner, "account %s", base58.Encode(pub))
		}

		copy(t.Signatures[index][:], ed25519.Sign(s, messageBytes))
	}

	return nil
}

// AddSignature places an externally produced signature into pub's slot after
// verifying it against the message.
func (t *Transaction) AddSignature(pub ed25519.PublicKey, sig Signature) error {
	index := indexOf(t.Signers(), pub)
	if index < 0 || index >= len(t.Signatures) {
		return errors.Wrapf(ErrNotASigner, "account %s", base58.Encode(pub))
	}

	if !ed25519.Verify(pub, t.Message.Marshal(), sig[:]) {
		return errors.Errorf("invalid signature for account %s", base58.Encode(pub))
	}

	t.Signatures[index] = sig
	return nil
}

// Clone returns a deep copy of the transaction.
func (t Transaction) Clone() Transaction {
	var clone Transaction
	if err := clone.Unmarshal(t.Marshal()); err != nil {
		// Marshal output always unmarshals; anything else is a programming error.
		panic(err)
	}
	return clone
}

func (t *Transaction) String() string {
	var sb strings.Builder
	sb.WriteString("Signatures:\n")
	for i, s := range t.Signatures {
		sb.WriteString(fmt.Sprintf("  %d: %s\n", i, s.ToBase58()))
	}
	sb.WriteString("Message:\n")
	sb.WriteString("  Header:\n")
	sb.WriteString(fmt.Sprintf("    NumSignatures: %d\n", t.Message.Header.NumSignatures))
	sb.WriteString(fmt.Sprintf("    NumReadOnly: %d\n", t.Message.Header.NumReadOnly))
	sb.WriteString(fmt.Sprintf("    NumReadOnlySigned: %d\n", t.Message.Header.NumReadonlySigned))
	sb.WriteString(fmt.Sprintf("  RecentBlockhash: %s\n", t.Message.RecentBlockhash.ToBase58()))
	sb.WriteString("  Accounts:\n")
	for i, a := range t.Message.Accounts {
		sb.WriteString(fmt.Sprintf("    %d: %s\n", i, base58.Encode(a)))
	}
	sb.WriteString("  Instructions:\n")
	for i, instruction := range t.Message.Instructions {
		sb.WriteString(fmt.Sprintf("    %d:\n", i))
		sb.WriteString(fmt.Sprintf("      ProgramIndex: %d\n", instruction.ProgramIndex))
		sb.WriteString(fmt.Sprintf("      Accounts: %v\n", instruction.Accounts))
		sb.WriteString(fmt.Sprintf("      Data: %v\n", instruction.Data))
	}
	return sb.String()
}

// mergeAccounts collapses duplicate keys, promoting the signer, writable and
// payer permissions of any duplicate onto the first occurrence.
func mergeAccounts(accounts []AccountMeta) []AccountMeta {
	merged := make([]AccountMeta, 0, len(accounts))

	for _, account := range accounts {
		existing := -1
		for j := range merged {
			if bytes.Equal(account.PublicKey, merged[j].PublicKey) {
				existing = j
				break
			}
		}

		if existing < 0 {
			merged = append(merged, account)
			continue
		}

		merged[existing].IsSigner = merged[existing].IsSigner || account.IsSigner
		merged[existing].IsWritable = merged[existing].IsWritable || account.IsWritable
		merged[existing].isPayer = merged[existing].isPayer || account.isPayer
	}

	return merged
}

func indexOf(slice []ed25519.PublicKey, item ed25519.PublicKey) int {
	for i, val := range slice {
		if bytes.Equal(val, item) {
			return i
		}
	}

	return -1
}
