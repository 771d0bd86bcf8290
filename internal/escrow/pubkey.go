package escrow

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// Pubkey é uma chave de 32 bytes; a forma textual é base58 (alfabeto Bitcoin).
type Pubkey [32]byte

// Address localiza um registro no store. Tem o mesmo formato de uma Pubkey.
type Address = Pubkey

// ParsePubkey decodifica uma chave base58.
func ParsePubkey(s string) (Pubkey, error) {
	var k Pubkey
	b, err := base58.Decode(s)
	if err != nil {
		return k, fmt.Errorf("decode pubkey %q: %w", s, err)
	}
	if len(b) != len(k) {
		return k, fmt.Errorf("pubkey %q: want 32 bytes, got %d", s, len(b))
	}
	copy(k[:], b)
	return k, nil
}

// MustPubkey é ParsePubkey para constantes; entra em pânico se inválida.
func MustPubkey(s string) Pubkey {
	k, err := ParsePubkey(s)
	if err != nil {
		panic(err)
	}
	return k
}

func (k Pubkey) String() string { return base58.Encode(k[:]) }

func (k Pubkey) IsZero() bool { return k == Pubkey{} }

func (k Pubkey) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Pubkey) UnmarshalText(b []byte) error {
	p, err := ParsePubkey(string(b))
	if err != nil {
		return err
	}
	*k = p
	return nil
}
