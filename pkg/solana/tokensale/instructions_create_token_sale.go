package tokensale

import (
	"crypto/ed25519"

	"github.com/code-payments/post-minter/pkg/solana"
	"github.com/code-payments/post-minter/pkg/solana/binary"
	"github.com/code-payments/post-minter/pkg/solana/metaplex"
	"github.com/code-payments/post-minter/pkg/solana/system"
	"github.com/code-payments/post-minter/pkg/solana/token"
)

var CreateTokenSaleDiscriminator = binary.AnchorDiscriminator("global", "create_token_sale")

type CreateTokenSaleInstructionArgs struct {
	Name                    string
	Symbol                  string
	URI                     string
	InitialPurchaseLamports uint64
}

type CreateTokenSaleInstructionAccounts struct {
	Payer           ed25519.PublicKey
	FactoryConfig   ed25519.PublicKey
	Mint            ed25519.PublicKey
	SaleConfig      ed25519.PublicKey
	DevTokenAccount ed25519.PublicKey
	Metadata        ed25519.PublicKey
	MasterEdition   ed25519.PublicKey
	PriceCache      ed25519.PublicKey
}

// BuildInstructionPayload returns disc ‖ str(name) ‖ str(symbol) ‖ str(uri) ‖ u64(lamports).
// Strings are not truncated; length limits are the caller's concern.
func BuildInstructionPayload(disc [binary.DiscriminatorSize]byte, name, symbol, uri string, lamports uint64) []byte {
	var offset int

	data := make([]byte,
		binary.DiscriminatorSize+
			binary.EncodedStringSize(name)+
			binary.EncodedStringSize(symbol)+
			binary.EncodedStringSize(uri)+
			8,
	)

	offset += copy(data, disc[:])
	binary.PutString(data[offset:], name, &offset)
	binary.PutString(data[offset:], symbol, &offset)
	binary.PutString(data[offset:], uri, &offset)
	binary.PutUint64(data[offset:], lamports, &offset)

	return data
}

func NewCreateTokenSaleInstruction(
	program ed25519.PublicKey,
	accounts *CreateTokenSaleInstructionAccounts,
	args *CreateTokenSaleInstructionArgs,
) solana.Instruction {
	return solana.Instruction{
		Program: program,

		// Instruction args
		Data: BuildInstructionPayload(
			CreateTokenSaleDiscriminator,
			args.Name,
			args.Symbol,
			args.URI,
			args.InitialPurchaseLamports,
		),

		// Instruction accounts, in the order the program declares them
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Payer,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.FactoryConfig,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Mint,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.SaleConfig,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.DevTokenAccount,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Metadata,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.MasterEdition,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  metaplex.ProgramKey,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.PriceCache,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  system.ProgramKey,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  token.ProgramKey,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  token.AssociatedTokenAccountProgramKey,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  system.RentSysVar,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}
}
