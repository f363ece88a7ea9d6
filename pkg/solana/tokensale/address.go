package tokensale

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/post-minter/pkg/solana"
	"github.com/code-payments/post-minter/pkg/solana/metaplex"
	"github.com/code-payments/post-minter/pkg/solana/token"
)

var (
	FactoryConfigPrefix = []byte("factory_config_v2")
	SaleConfigPrefix    = []byte("sale_config")
	PriceCachePrefix    = []byte("price_cache")
)

func GetFactoryConfigAddress(program ed25519.PublicKey) (solana.DerivedAddress, error) {
	return solana.Derive(
		program,
		FactoryConfigPrefix,
	)
}

type GetSaleConfigAddressArgs struct {
	Payer ed25519.PublicKey
	Mint  ed25519.PublicKey
}

func GetSaleConfigAddress(program ed25519.PublicKey, args *GetSaleConfigAddressArgs) (solana.DerivedAddress, error) {
	return solana.Derive(
		program,
		SaleConfigPrefix,
		args.Payer,
		args.Mint,
	)
}

func GetPriceCacheAddress(program, factoryConfig ed25519.PublicKey) (solana.DerivedAddress, error) {
	return solana.Derive(
		program,
		PriceCachePrefix,
		factoryConfig,
	)
}

// DeriveCreateTokenSaleAccounts derives every program owned account needed
// to create a sale for mint, paid for and owned by payer.
func DeriveCreateTokenSaleAccounts(program, payer, mint ed25519.PublicKey) (*CreateTokenSaleInstructionAccounts, error) {
	factoryConfig, err := GetFactoryConfigAddress(program)
	if err != nil {
		return nil, errors.Wrap(err, "factory config")
	}

	saleConfig, err := GetSaleConfigAddress(program, &GetSaleConfigAddressArgs{
		Payer: payer,
		Mint:  mint,
	})
	if err != nil {
		return nil, errors.Wrap(err, "sale config")
	}

	devTokenAccount, err := token.GetAssociatedAccount(payer, mint)
	if err != nil {
		return nil, errors.Wrap(err, "dev token account")
	}

	metadata, err := metaplex.GetMetadataAddress(mint)
	if err != nil {
		return nil, errors.Wrap(err, "metadata")
	}

	masterEdition, err := metaplex.GetMasterEditionAddress(mint)
	if err != nil {
		return nil, errors.Wrap(err, "master edition")
	}

	priceCache, err := GetPriceCacheAddress(program, factoryConfig.Address)
	if err != nil {
		return nil, errors.Wrap(err, "price cache")
	}

	return &CreateTokenSaleInstructionAccounts{
		Payer:           payer,
		FactoryConfig:   factoryConfig.Address,
		Mint:            mint,
		SaleConfig:      saleConfig.Address,
		DevTokenAccount: devTokenAccount.Address,
		Metadata:        metadata.Address,
		MasterEdition:   masterEdition.Address,
		PriceCache:      priceCache.Address,
	}, nil
}
