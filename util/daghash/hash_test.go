// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package daghash

import (
	"bytes"
	"math/big"
	"sort"
	"testing"
)

// TestHash tests the Hash API.
func TestHash(t *testing.T) {
	hashStr := "14a0810ac680a3eb3f82edc878cea25ec41d6b790744e5daeef"
	knownHash, err := NewHashFromStr(hashStr)
	if err != nil {
		t.Errorf("NewHashFromStr: %v", err)
	}

	buf := []byte{
		0x79, 0xa6, 0x1a, 0xdb, 0xc6, 0xe5, 0xa2, 0xe1,
		0x39, 0xd2, 0x71, 0x3a, 0x54, 0x6e, 0xc7, 0xc8,
		0x75, 0x63, 0x2e, 0x75, 0xf1, 0xdf, 0x9c, 0x3f,
		0xa6, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}

	hash, err := NewHash(buf)
	if err != nil {
		t.Errorf("NewHash: unexpected error %v", err)
	}

	// Ensure proper size and contents.
	if len(hash) != HashSize {
		t.Errorf("NewHash: hash length mismatch - got: %v, want: %v",
			len(hash), HashSize)
	}
	if !bytes.Equal(hash[:], buf) {
		t.Errorf("NewHash: hash contents mismatch - got: %v, want: %v",
			hash[:], buf)
	}

	// Two distinct hashes must not compare equal.
	if hash.IsEqual(knownHash) {
		t.Errorf("IsEqual: hash contents should not match - got: %v, want: %v",
			hash, knownHash)
	}

	// Set hash from byte slice and ensure contents match.
	err = hash.SetBytes(knownHash.CloneBytes())
	if err != nil {
		t.Errorf("SetBytes: %v", err)
	}
	if !hash.IsEqual(knownHash) {
		t.Errorf("IsEqual: hash contents mismatch - got: %v, want: %v",
			hash, knownHash)
	}

	// Ensure nil hashes are handled properly.
	if !(*Hash)(nil).IsEqual(nil) {
		t.Error("IsEqual: nil hashes should match")
	}
	if hash.IsEqual(nil) {
		t.Error("IsEqual: non-nil hash matches nil hash")
	}

	// Invalid size for SetBytes.
	err = hash.SetBytes([]byte{0x00})
	if err == nil {
		t.Errorf("SetBytes: failed to received expected err - got: nil")
	}

	// Invalid size for NewHash.
	invalidHash := make([]byte, HashSize+1)
	_, err = NewHash(invalidHash)
	if err == nil {
		t.Errorf("NewHash: failed to received expected err - got: nil")
	}
}

// TestHashString tests the stringized output for hashes. The string form is
// byte-reversed hex, matching how header hashes are displayed.
func TestHashString(t *testing.T) {
	wantStr := "000000000003ba27aa200b1cecaad478d2b00432346c3f1f3986da1afd33e506"
	hash := Hash([HashSize]byte{
		0x06, 0xe5, 0x33, 0xfd, 0x1a, 0xda, 0x86, 0x39,
		0x1f, 0x3f, 0x6c, 0x34, 0x32, 0x04, 0xb0, 0xd2,
		0x78, 0xd4, 0xaa, 0xec, 0x1c, 0x0b, 0x20, 0xaa,
		0x27, 0xba, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00,
	})

	hashStr := hash.String()
	if hashStr != wantStr {
		t.Errorf("String: wrong hash string - got %v, want %v",
			hashStr, wantStr)
	}

	// The string must round trip through NewHashFromStr.
	parsed, err := NewHashFromStr(hashStr)
	if err != nil {
		t.Fatalf("NewHashFromStr: %v", err)
	}
	if !parsed.IsEqual(&hash) {
		t.Errorf("NewHashFromStr: round trip mismatch - got %v, want %v",
			parsed, &hash)
	}
}

// TestNewHashFromStr executes tests against the NewHashFromStr function.
func TestNewHashFromStr(t *testing.T) {
	tests := []struct {
		in   string
		want Hash
		err  error
	}{
		// Empty string.
		{"", Hash{}, nil},

		// Single digit hash.
		{
			"1",
			Hash([HashSize]byte{
				0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
			}),
			nil,
		},

		// Hash string that is too long.
		{
			"01234567890123456789012345678901234567890123456789012345678912345",
			Hash{},
			ErrHashStrSize,
		},
	}

	for i, test := range tests {
		result, err := NewHashFromStr(test.in)
		if err != test.err {
			t.Errorf("NewHashFromStr #%d: expected error %v, got %v",
				i, test.err, err)
			continue
		}
		if err != nil {
			continue
		}
		if !test.want.IsEqual(result) {
			t.Errorf("NewHashFromStr #%d: got %v, want %v",
				i, result, test.want)
		}
	}

	// Non-hex characters surface a decode error.
	if _, err := NewHashFromStr("banana"); err == nil {
		t.Error("NewHashFromStr: accepted non-hex characters")
	}
}

// TestHashToBig ensures the big.Int form of a hash treats the bytes as
// little endian, so numeric comparison matches proof of work comparison.
func TestHashToBig(t *testing.T) {
	zero := &Hash{}
	if HashToBig(zero).Sign() != 0 {
		t.Error("HashToBig: zero hash is not numerically zero")
	}

	one := &Hash{0x01}
	if HashToBig(one).Cmp(big.NewInt(1)) != 0 {
		t.Error("HashToBig: little endian 1 did not convert to 1")
	}

	// The last byte is the most significant.
	var high Hash
	high[HashSize-1] = 0x01
	want := new(big.Int).Lsh(big.NewInt(1), uint(8*(HashSize-1)))
	if HashToBig(&high).Cmp(want) != 0 {
		t.Error("HashToBig: most significant byte misplaced")
	}
}

// TestHashCmpAndLess tests numeric ordering of hashes.
func TestHashCmpAndLess(t *testing.T) {
	low := &Hash{0x01}
	high := &Hash{0x02}

	if low.Cmp(high) >= 0 {
		t.Error("Cmp: 1 is not less than 2")
	}
	if high.Cmp(low) <= 0 {
		t.Error("Cmp: 2 is not greater than 1")
	}
	if low.Cmp(low) != 0 {
		t.Error("Cmp: hash does not equal itself")
	}

	if !Less(low, high) {
		t.Error("Less: 1 is not less than 2")
	}
	if Less(high, low) {
		t.Error("Less: 2 is less than 1")
	}
}

// TestSort ensures sorting hashes produces ascending numeric order
// regardless of the input order.
func TestSort(t *testing.T) {
	hashes := []*Hash{
		{0x03},
		{0x01},
		{0x04},
		{0x02},
	}
	Sort(hashes)

	if !sort.SliceIsSorted(hashes, func(i, j int) bool {
		return Less(hashes[i], hashes[j])
	}) {
		t.Errorf("Sort: hashes are not in ascending order: %v", hashes)
	}
	if hashes[0][0] != 0x01 || hashes[3][0] != 0x04 {
		t.Errorf("Sort: wrong order: %v", hashes)
	}
}

// TestAreEqual tests the AreEqual hash slice comparison.
func TestAreEqual(t *testing.T) {
	hash0, _ := NewHashFromStr("00")
	hash1, _ := NewHashFromStr("01")
	hash2, _ := NewHashFromStr("02")

	tests := []struct {
		name     string
		first    []*Hash
		second   []*Hash
		expected bool
	}{
		{"both empty", []*Hash{}, []*Hash{}, true},
		{"equal slices", []*Hash{hash0, hash1}, []*Hash{hash0, hash1}, true},
		{"different order", []*Hash{hash0, hash1}, []*Hash{hash1, hash0}, false},
		{"different lengths", []*Hash{hash0, hash1}, []*Hash{hash0}, false},
		{"different contents", []*Hash{hash0, hash1}, []*Hash{hash0, hash2}, false},
	}

	for _, test := range tests {
		if got := AreEqual(test.first, test.second); got != test.expected {
			t.Errorf("AreEqual %s: got %t, want %t",
				test.name, got, test.expected)
		}
	}
}
