package escrow

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
)

const (
	maxSeeds      = 16
	maxSeedLength = 32
	pdaMarker     = "ProgramDerivedAddress"
)

// ErrInvalidSeeds indica seeds fora dos limites de derivação.
var ErrInvalidSeeds = errors.New("invalid seeds")

// Locator devolve o endereço único de um registro a partir dos seeds.
// O bump retornado é o salt usado na derivação.
type Locator interface {
	Locate(seeds ...[]byte) (Address, uint8, error)
}

// ProgramLocator deriva endereços fora da curva ed25519 a partir dos seeds e
// do programa dono, do mesmo jeito que program-derived addresses.
type ProgramLocator struct {
	Program Pubkey
}

func NewProgramLocator(program Pubkey) *ProgramLocator {
	return &ProgramLocator{Program: program}
}

// Locate percorre o bump de 255 até 0 e devolve o primeiro hash fora da curva.
func (l *ProgramLocator) Locate(seeds ...[]byte) (Address, uint8, error) {
	if len(seeds) > maxSeeds {
		return Address{}, 0, fmt.Errorf("%w: %d seeds", ErrInvalidSeeds, len(seeds))
	}
	for _, s := range seeds {
		if len(s) > maxSeedLength {
			return Address{}, 0, fmt.Errorf("%w: seed of %d bytes", ErrInvalidSeeds, len(s))
		}
	}

	for bump := 255; bump >= 0; bump-- {
		h := sha256.New()
		for _, s := range seeds {
			h.Write(s)
		}
		h.Write([]byte{byte(bump)})
		h.Write(l.Program[:])
		h.Write([]byte(pdaMarker))

		var addr Address
		copy(addr[:], h.Sum(nil))
		if !isOnCurve(addr[:]) {
			return addr, uint8(bump), nil
		}
	}
	return Address{}, 0, fmt.Errorf("%w: no viable bump", ErrInvalidSeeds)
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// seeds de cada tipo de registro
func raceSeeds(raceID string) [][]byte {
	return [][]byte{[]byte("race"), []byte(raceID)}
}

func betSeeds(raceID string, bettor Pubkey) [][]byte {
	return [][]byte{[]byte("bet"), []byte(raceID), bettor[:]}
}

func profileSeeds(wallet Pubkey) [][]byte {
	return [][]byte{[]byte("user"), wallet[:]}
}

func vaultSeeds(user Pubkey) [][]byte {
	return [][]byte{[]byte("vault"), user[:]}
}
