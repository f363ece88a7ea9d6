package tokencreator

import (
	"strings"
	"unicode/utf8"

	"github.com/code-payments/post-minter/pkg/solana/metaplex"
)

const (
	defaultName        = "My Token"
	defaultSymbol      = "TKN"
	defaultDescription = "Token created from tweet"

	postNameLength   = 10
	postSymbolLength = 4
)

// Details are the user facing token attributes.
type Details struct {
	Name        string
	Symbol      string
	Description string
}

// DetailsFromPost derives token details from the text of a social media
// post. The name is the first 10 characters, and the symbol is the first 4
// characters upper cased with everything outside A-Z removed. The name is
// shortened further if needed to fit the on-chain byte limit.
func DetailsFromPost(text string) Details {
	d := Details{
		Name:        prefix(text, postNameLength),
		Description: text,
	}
	for len(d.Name) > metaplex.MaxNameLength {
		_, size := utf8.DecodeLastRuneInString(d.Name)
		d.Name = d.Name[:len(d.Name)-size]
	}

	d.Symbol = strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r
		}
		return -1
	}, strings.ToUpper(prefix(text, postSymbolLength)))

	if len(d.Name) == 0 {
		d.Name = defaultName
	}
	if len(d.Symbol) == 0 {
		d.Symbol = defaultSymbol
	}
	if len(d.Description) == 0 {
		d.Description = defaultDescription
	}

	return d
}

func prefix(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	var i int
	for j := range s {
		if i == n {
			return s[:j]
		}
		i++
	}
	return s
}
