// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"reflect"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"

	"github.com/dagnet/lightd/util/daghash"
)

func testTx() *MsgTx {
	prevOut := NewOutpoint(&daghash.TxID{0x01}, 1)
	txIn := NewTxIn(prevOut, []byte{0x04, 0x31, 0xdc, 0x00, 0x1b, 0x01, 0x62})
	txOut := NewTxOut(5000000000, []byte{0x41, 0x04, 0xd6, 0x4b, 0xdf, 0xd0, 0x9e, 0xb1, 0xc5, 0xfe})

	tx := &MsgTx{
		Version:   TxVersion,
		TxIn:      []*TxIn{txIn},
		TxOut:     []*TxOut{txOut},
		Timestamp: time.Unix(0x5fd23400, 0),
		Fee:       1000,
	}
	tx.Signature[0] = 0xab
	return tx
}

// TestTx tests the MsgTx API.
func TestTx(t *testing.T) {
	tx := NewMsgTx(TxVersion, nil, nil)
	if tx.Version != TxVersion {
		t.Errorf("NewMsgTx: wrong version - got %v, want %v",
			tx.Version, TxVersion)
	}

	// Timestamps carry millisecond precision, no finer.
	if tx.Timestamp.UnixNano()%int64(time.Millisecond) != 0 {
		t.Errorf("NewMsgTx: timestamp %v has sub-millisecond precision",
			tx.Timestamp)
	}

	prevOut := NewOutpoint(&daghash.TxID{0x05}, 2)
	txIn := NewTxIn(prevOut, nil)
	tx.AddTxIn(txIn)
	if !reflect.DeepEqual(tx.TxIn[0], txIn) {
		t.Errorf("AddTxIn: wrong input - got %v, want %v",
			spew.Sprint(tx.TxIn[0]), spew.Sprint(txIn))
	}

	txOut := NewTxOut(21, []byte{0x51})
	tx.AddTxOut(txOut)
	if !reflect.DeepEqual(tx.TxOut[0], txOut) {
		t.Errorf("AddTxOut: wrong output - got %v, want %v",
			spew.Sprint(tx.TxOut[0]), spew.Sprint(txOut))
	}
}

// TestTxSerialize tests that serializing a transaction and deserializing it
// back yields the original, and that the encoding length matches
// SerializeSize.
func TestTxSerialize(t *testing.T) {
	tx := testTx()

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if buf.Len() != tx.SerializeSize() {
		t.Fatalf("Serialize: wrote %d bytes, SerializeSize says %d",
			buf.Len(), tx.SerializeSize())
	}

	serialized, err := tx.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Equal(serialized, buf.Bytes()) {
		t.Fatal("Bytes and Serialize disagree")
	}

	var decoded MsgTx
	if err := decoded.Deserialize(bytes.NewReader(serialized)); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if !reflect.DeepEqual(&decoded, tx) {
		t.Errorf("Deserialize: transactions differ - got %v, want %v",
			spew.Sdump(&decoded), spew.Sdump(tx))
	}
}

// TestTxIDExcludesSignature ensures mutating the signature does not change
// the transaction ID, while mutating a fee does.
func TestTxIDExcludesSignature(t *testing.T) {
	tx := testTx()
	baseID := tx.TxID()

	tx.Signature[0] ^= 0xff
	if got := tx.TxID(); got != baseID {
		t.Errorf("TxID covers the signature: got %s, want %s", got, baseID)
	}

	tx.Fee++
	if got := tx.TxID(); got == baseID {
		t.Error("TxID ignored a fee change")
	}
}

// TestTxDeserializeErrors ensures oversized list counts and truncated inputs
// surface errors.
func TestTxDeserializeErrors(t *testing.T) {
	// A transaction claiming more inputs than the protocol allows.
	var buf bytes.Buffer
	if err := writeElement(&buf, int32(TxVersion)); err != nil {
		t.Fatalf("writeElement: %v", err)
	}
	if err := WriteVarInt(&buf, maxTxInPerMessage+1); err != nil {
		t.Fatalf("WriteVarInt: %v", err)
	}
	var decoded MsgTx
	err := decoded.Deserialize(bytes.NewReader(buf.Bytes()))
	var msgErr *MessageError
	if !errors.As(err, &msgErr) {
		t.Fatalf("Deserialize with an oversized input count: got %v, "+
			"want a MessageError", err)
	}

	// Truncated serializations at a few offsets.
	serialized, err := testTx().Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	for _, cut := range []int{0, 3, 5, len(serialized) - 1} {
		var tx MsgTx
		if err := tx.Deserialize(bytes.NewReader(serialized[:cut])); err == nil {
			t.Errorf("Deserialize of %d bytes did not error", cut)
		}
	}
}
