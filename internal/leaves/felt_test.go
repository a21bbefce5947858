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

package leaves_test

import (
	"math/big"
	"testing"

	"github.com/starkware-libs/starkex-data-availability-committee/internal/leaves"
)

func TestFeltFromHexRoundTrip(t *testing.T) {
	f, err := leaves.FeltFromHex("0x1234abcd")
	if err != nil {
		t.Fatalf("FeltFromHex: %v", err)
	}
	if got, want := f.Hex(), "0x"+zeroPad("1234abcd"); got != want {
		t.Fatalf("Hex() = %s, want %s", got, want)
	}
}

func TestFeltFromHexWithoutPrefix(t *testing.T) {
	withPrefix, err := leaves.FeltFromHex("0xabc")
	if err != nil {
		t.Fatalf("FeltFromHex: %v", err)
	}
	withoutPrefix, err := leaves.FeltFromHex("abc")
	if err != nil {
		t.Fatalf("FeltFromHex: %v", err)
	}
	if withPrefix != withoutPrefix {
		t.Fatalf("hex decoding should be prefix-insensitive")
	}
}

func TestFeltFromHexRejectsOversizedValue(t *testing.T) {
	big := make([]byte, 0, 66)
	big = append(big, "0x"...)
	for i := 0; i < 64; i++ {
		big = append(big, 'f')
	}
	big = append(big, "ff"...) // 33 bytes, one over FeltSize
	if _, err := leaves.FeltFromHex(string(big)); err == nil {
		t.Fatalf("expected an error for an oversized field element")
	}
}

func TestFeltFromBigRejectsNegative(t *testing.T) {
	if _, err := leaves.FeltFromBig(big.NewInt(-1)); err == nil {
		t.Fatalf("expected an error for a negative field element")
	}
}

func TestFeltIsZero(t *testing.T) {
	var f leaves.Felt
	if !f.IsZero() {
		t.Fatalf("zero-valued Felt should report IsZero")
	}
	nonZero, _ := leaves.FeltFromHex("0x1")
	if nonZero.IsZero() {
		t.Fatalf("non-zero Felt should not report IsZero")
	}
}

func zeroPad(hexDigits string) string {
	out := make([]byte, 64)
	for i := range out {
		out[i] = '0'
	}
	copy(out[64-len(hexDigits):], hexDigits)
	return string(out)
}
