/*
Package identity generates the obfuscated family names given to subset
fonts.

Subset fonts must not expose the identity of the original (often
commercial) font, yet a package's subsets have to share one family name for
browsers to group their weights. SubsetName therefore derives a
pronounceable but meaningless name from a seed, which is the package id.

The algorithm is fixed, so names stay stable across releases:

▪︎ the key is SHA-256(seed), the nonce is 12 zero bytes,

▪︎ a ChaCha20 keystream over this key yields bytes k₀, k₁, …,

▪︎ two words are produced; each word takes one byte for its syllable count
(2 + k mod 3) and one byte per syllable, indexing a table of 64 syllables,

▪︎ words are capitalized and joined by a single space.
*/
package identity

import (
	"crypto/sha256"
	"strings"

	"golang.org/x/crypto/chacha20"
)

var syllables = [64]string{
	"ka", "ki", "ku", "ke", "ko", "sa", "si", "su",
	"se", "so", "ta", "ti", "tu", "te", "to", "na",
	"ni", "nu", "ne", "no", "ha", "hi", "hu", "he",
	"ho", "ma", "mi", "mu", "me", "mo", "ra", "ri",
	"ru", "re", "ro", "va", "vi", "vu", "ve", "vo",
	"da", "di", "du", "de", "do", "ba", "bi", "bu",
	"be", "bo", "za", "zi", "zu", "ze", "zo", "la",
	"li", "lu", "le", "lo", "ga", "gi", "gu", "go",
}

const words = 2

// keystream yields the bytes of a ChaCha20 keystream keyed by a seed.
type keystream struct {
	cipher *chacha20.Cipher
	buf    [64]byte
	pos    int
}

func newKeystream(seed string) *keystream {
	key := sha256.Sum256([]byte(seed))
	var nonce [chacha20.NonceSize]byte
	c, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		panic(err) // key and nonce sizes are constant
	}
	ks := &keystream{cipher: c}
	ks.refill()
	return ks
}

func (ks *keystream) refill() {
	clear(ks.buf[:])
	ks.cipher.XORKeyStream(ks.buf[:], ks.buf[:])
	ks.pos = 0
}

func (ks *keystream) next() int {
	if ks.pos == len(ks.buf) {
		ks.refill()
	}
	b := ks.buf[ks.pos]
	ks.pos++
	return int(b)
}

// SubsetName returns the obfuscated family name for seed. Equal seeds yield
// equal names.
func SubsetName(seed string) string {
	ks := newKeystream(seed)
	name := make([]string, words)
	for w := range name {
		var sb strings.Builder
		n := 2 + ks.next()%3
		for range n {
			sb.WriteString(syllables[ks.next()%len(syllables)])
		}
		word := sb.String()
		name[w] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(name, " ")
}
