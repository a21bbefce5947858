// Copyright 2025 The StarkEx DA Committee Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package signer signs availability claims with the committee member's
// secp256k1 private key, using RFC 6979 deterministic nonces so the same
// claim always produces the same signature.
package signer

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// Signer holds the committee member's private key in memory for the
// lifetime of the process. It is never persisted outside the configured
// file path it was loaded from.
type Signer struct {
	priv *secp256k1.PrivateKey
}

// Load reads a hex-encoded private key from path, stripping a single
// trailing newline, and constructs a Signer. The path must be absolute;
// callers enforce that at configuration time.
func Load(path string) (*Signer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("signer: reading private key file: %w", err)
	}
	return FromHex(strings.TrimRight(string(raw), "\n"))
}

// FromHex constructs a Signer directly from a hex-encoded private key,
// for tests and programmatic configuration.
func FromHex(hexKey string) (*Signer, error) {
	keyBytes, err := hex.DecodeString(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("signer: invalid private key hex: %w", err)
	}
	priv := secp256k1.PrivKeyFromBytes(keyBytes)
	return &Signer{priv: priv}, nil
}

// MemberAddress returns the hex-encoded public key identifying this
// signer to the gateway as the "member_key" of an approval request.
func (s *Signer) MemberAddress() string {
	return hex.EncodeToString(s.priv.PubKey().SerializeCompressed())
}

// Sign produces a deterministic ECDSA signature (RFC 6979 nonce) over a
// 32-byte claim hash, returned as the raw, fixed-width (R||S) encoding
// the gateway expects on the wire.
func (s *Signer) Sign(claimHash [32]byte) ([]byte, error) {
	sig := ecdsa.SignCompact(s.priv, claimHash[:], false)
	// SignCompact returns a 65-byte (recovery-id || R || S) encoding;
	// the gateway's wire format wants the bare 64-byte R||S signature.
	if len(sig) != 65 {
		return nil, fmt.Errorf("signer: unexpected signature length %d", len(sig))
	}
	return sig[1:], nil
}

// SignHex signs claimHash and hex-encodes the result, the form the
// gateway's approve_new_roots endpoint expects.
func (s *Signer) SignHex(claimHash [32]byte) (string, error) {
	sig, err := s.Sign(claimHash)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sig), nil
}
