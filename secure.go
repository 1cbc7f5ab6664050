// Copyright 2018 Johan Lindh. All rights reserved.
// Use of this source code is governed by the MIT license, see the LICENSE file.

package ajp

import (
	"crypto/rand"
	"crypto/subtle"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20"
)

// Secure transforms message payloads. Implementations decide the
// cipher, key exchange happens elsewhere.
type Secure interface {
	// Encrypt writes the ciphertext of src to dst and returns its length.
	Encrypt(dst, src []byte) (int, error)
	// Decrypt writes the plaintext of src to dst and returns its length.
	Decrypt(dst, src []byte) (int, error)
	// Seed returns the shared seed, or nil if there is none.
	Seed() []byte
}

// StreamSecure is a Secure using the ChaCha20 stream cipher. Every
// Encrypt draws a fresh random nonce and writes it in front of the
// ciphertext, so the payload grows by NonceOverhead bytes. The seed is
// shared with the peer for CPING and SHUTDOWN digests, it is not the nonce.
type StreamSecure struct {
	key  [chacha20.KeySize]byte
	seed [chacha20.NonceSize]byte
}

// NonceOverhead is the number of bytes StreamSecure adds to a payload.
const NonceOverhead = chacha20.NonceSize

// NewStreamSecure returns a StreamSecure given a 32-byte key and a 12-byte seed.
func NewStreamSecure(key, seed []byte) (*StreamSecure, error) {
	if len(key) != chacha20.KeySize {
		return nil, errors.Errorf("ajp: stream secure key must be %d bytes, got %d", chacha20.KeySize, len(key))
	}
	if len(seed) != chacha20.NonceSize {
		return nil, errors.Errorf("ajp: stream secure seed must be %d bytes, got %d", chacha20.NonceSize, len(seed))
	}
	s := &StreamSecure{}
	copy(s.key[:], key)
	copy(s.seed[:], seed)
	return s, nil
}

func (s *StreamSecure) xor(nonce, dst, src []byte) error {
	c, err := chacha20.NewUnauthenticatedCipher(s.key[:], nonce)
	if err != nil {
		return errors.WithStack(err)
	}
	c.XORKeyStream(dst[:len(src)], src)
	return nil
}

// Encrypt implements Secure. dst receives the nonce followed by the ciphertext.
func (s *StreamSecure) Encrypt(dst, src []byte) (int, error) {
	need := NonceOverhead + len(src)
	if len(dst) < need {
		return 0, overflow(need, len(dst))
	}
	nonce := dst[:NonceOverhead]
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return 0, errors.Wrap(err, "ajp: nonce")
	}
	if err := s.xor(nonce, dst[NonceOverhead:], src); err != nil {
		return 0, err
	}
	return need, nil
}

// Decrypt implements Secure.
func (s *StreamSecure) Decrypt(dst, src []byte) (int, error) {
	if len(src) < NonceOverhead {
		return 0, malformed("encrypted payload of %d bytes has no nonce", len(src))
	}
	n := len(src) - NonceOverhead
	if len(dst) < n {
		return 0, overflow(n, len(dst))
	}
	if err := s.xor(src[:NonceOverhead], dst, src[NonceOverhead:]); err != nil {
		return 0, err
	}
	return n, nil
}

// Seed implements Secure.
func (s *StreamSecure) Seed() []byte {
	seed := make([]byte, len(s.seed))
	copy(seed, s.seed[:])
	return seed
}

// SeedDigest returns the digest carried by shutdown messages, or nil
// if s is nil or has no seed.
func SeedDigest(s Secure) []byte {
	if s == nil {
		return nil
	}
	seed := s.Seed()
	if seed == nil {
		return nil
	}
	sum := blake2b.Sum256(seed)
	return sum[:]
}

// VerifySeedDigest returns true if digest matches the seed of s.
func VerifySeedDigest(s Secure, digest []byte) bool {
	want := SeedDigest(s)
	return want != nil && subtle.ConstantTimeCompare(want, digest) == 1
}
