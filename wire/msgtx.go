// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"
	"time"

	"github.com/dagnet/lightd/util/daghash"
)

const (
	// TxVersion is the current latest supported transaction version.
	TxVersion int32 = 1

	// maxTxInPerMessage is the maximum number of transaction inputs a
	// deserialized transaction may contain.
	maxTxInPerMessage = 1 << 12

	// maxTxOutPerMessage is the maximum number of transaction outputs a
	// deserialized transaction may contain.
	maxTxOutPerMessage = 1 << 12

	// maxScriptSize is the maximum allowed length, in bytes, of an input
	// signature script or output public key script.
	maxScriptSize = 10000
)

// Outpoint defines a data type that is used to track previous transaction
// outputs.
type Outpoint struct {
	TxID  daghash.TxID
	Index uint32
}

// NewOutpoint returns a new transaction outpoint point with the provided
// transaction ID and index.
func NewOutpoint(txID *daghash.TxID, index uint32) *Outpoint {
	return &Outpoint{
		TxID:  *txID,
		Index: index,
	}
}

// TxIn defines a transaction input.
type TxIn struct {
	PreviousOutpoint Outpoint
	SignatureScript  []byte
	Sequence         uint64
}

// NewTxIn returns a new transaction input with the provided previous
// outpoint and signature script with a default sequence.
func NewTxIn(prevOut *Outpoint, signatureScript []byte) *TxIn {
	return &TxIn{
		PreviousOutpoint: *prevOut,
		SignatureScript:  signatureScript,
	}
}

// TxOut defines a transaction output.
type TxOut struct {
	Value        uint64
	ScriptPubKey []byte
}

// NewTxOut returns a new transaction output with the provided transaction
// value and public key script.
func NewTxOut(value uint64, scriptPubKey []byte) *TxOut {
	return &TxOut{
		Value:        value,
		ScriptPubKey: scriptPubKey,
	}
}

// MsgTx implements the light transaction the client relays and spot-checks.
// It is immutable once constructed; its identity is TxID.
type MsgTx struct {
	Version   int32
	TxIn      []*TxIn
	TxOut     []*TxOut
	Timestamp time.Time
	Fee       uint64

	// Signature covers TxID. It is excluded from the ID computation for
	// the same reason a header's signature is excluded from its hash.
	Signature [SchnorrSignatureSize]byte
}

// TxID generates the transaction ID of the tx - the double sha256 of the
// canonical serialization of every field except the signature.
func (msg *MsgTx) TxID() daghash.TxID {
	writer := daghash.NewDoubleHashWriter()
	_ = msg.serialize(writer, false)
	return daghash.TxID(writer.Finalize())
}

// AddTxIn adds a transaction input to the message.
func (msg *MsgTx) AddTxIn(ti *TxIn) {
	msg.TxIn = append(msg.TxIn, ti)
}

// AddTxOut adds a transaction output to the message.
func (msg *MsgTx) AddTxOut(to *TxOut) {
	msg.TxOut = append(msg.TxOut, to)
}

// Serialize encodes the transaction to w using the canonical encoding.
func (msg *MsgTx) Serialize(w io.Writer) error {
	return msg.serialize(w, true)
}

func (msg *MsgTx) serialize(w io.Writer, includeSignature bool) error {
	err := writeElement(w, msg.Version)
	if err != nil {
		return err
	}

	err = WriteVarInt(w, uint64(len(msg.TxIn)))
	if err != nil {
		return err
	}
	for _, ti := range msg.TxIn {
		err = writeTxIn(w, ti)
		if err != nil {
			return err
		}
	}

	err = WriteVarInt(w, uint64(len(msg.TxOut)))
	if err != nil {
		return err
	}
	for _, to := range msg.TxOut {
		err = writeTxOut(w, to)
		if err != nil {
			return err
		}
	}

	err = writeElements(w, int64Time(msg.Timestamp), msg.Fee)
	if err != nil {
		return err
	}

	if includeSignature {
		return writeElement(w, &msg.Signature)
	}
	return nil
}

// Deserialize decodes a transaction from r into the receiver using the
// canonical encoding.
func (msg *MsgTx) Deserialize(r io.Reader) error {
	err := readElement(r, &msg.Version)
	if err != nil {
		return err
	}

	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > maxTxInPerMessage {
		return messageError("MsgTx.Deserialize",
			errTooManyListItems("transaction inputs", count, maxTxInPerMessage))
	}
	msg.TxIn = make([]*TxIn, 0, count)
	for i := uint64(0); i < count; i++ {
		ti := &TxIn{}
		err = readTxIn(r, ti)
		if err != nil {
			return err
		}
		msg.TxIn = append(msg.TxIn, ti)
	}

	count, err = ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > maxTxOutPerMessage {
		return messageError("MsgTx.Deserialize",
			errTooManyListItems("transaction outputs", count, maxTxOutPerMessage))
	}
	msg.TxOut = make([]*TxOut, 0, count)
	for i := uint64(0); i < count; i++ {
		to := &TxOut{}
		err = readTxOut(r, to)
		if err != nil {
			return err
		}
		msg.TxOut = append(msg.TxOut, to)
	}

	return readElements(r, (*int64Time)(&msg.Timestamp), &msg.Fee, &msg.Signature)
}

// SerializeSize returns the number of bytes it would take to serialize the
// transaction.
func (msg *MsgTx) SerializeSize() int {
	// Version 4 bytes + Timestamp 8 bytes + Fee 8 bytes + Signature +
	// serialized varint sizes for the number of inputs and outputs.
	n := 4 + 8 + 8 + SchnorrSignatureSize +
		VarIntSerializeSize(uint64(len(msg.TxIn))) +
		VarIntSerializeSize(uint64(len(msg.TxOut)))

	for _, ti := range msg.TxIn {
		n += daghash.TxIDSize + 4 + 8 +
			VarIntSerializeSize(uint64(len(ti.SignatureScript))) +
			len(ti.SignatureScript)
	}
	for _, to := range msg.TxOut {
		n += 8 + VarIntSerializeSize(uint64(len(to.ScriptPubKey))) +
			len(to.ScriptPubKey)
	}
	return n
}

// Bytes returns the canonical serialization of the transaction.
func (msg *MsgTx) Bytes() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, msg.SerializeSize()))
	err := msg.Serialize(buf)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// NewMsgTx returns a new tx message with the provided version, inputs and
// outputs.
func NewMsgTx(version int32, txIn []*TxIn, txOut []*TxOut) *MsgTx {
	return &MsgTx{
		Version:   version,
		TxIn:      txIn,
		TxOut:     txOut,
		Timestamp: time.Unix(0, time.Now().UnixNano()/int64(time.Millisecond)*int64(time.Millisecond)),
	}
}

func readTxIn(r io.Reader, ti *TxIn) error {
	err := readElements(r, &ti.PreviousOutpoint.TxID, &ti.PreviousOutpoint.Index)
	if err != nil {
		return err
	}
	ti.SignatureScript, err = ReadVarBytes(r, maxScriptSize, "signature script")
	if err != nil {
		return err
	}
	return readElement(r, &ti.Sequence)
}

func writeTxIn(w io.Writer, ti *TxIn) error {
	err := writeElements(w, &ti.PreviousOutpoint.TxID, ti.PreviousOutpoint.Index)
	if err != nil {
		return err
	}
	err = WriteVarBytes(w, ti.SignatureScript)
	if err != nil {
		return err
	}
	return writeElement(w, ti.Sequence)
}

func readTxOut(r io.Reader, to *TxOut) error {
	err := readElement(r, &to.Value)
	if err != nil {
		return err
	}
	to.ScriptPubKey, err = ReadVarBytes(r, maxScriptSize, "script pub key")
	return err
}

func writeTxOut(w io.Writer, to *TxOut) error {
	err := writeElement(w, to.Value)
	if err != nil {
		return err
	}
	return WriteVarBytes(w, to.ScriptPubKey)
}
