package ledgerstate

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"unicode/utf8"
)

// wireEnvelope is the stored form of every entity:
//
//	{"class":"<type tag>","fields":{...},"checksum":"<hex sha256>"}
//
// The checksum covers the type tag and the raw field bytes.
type wireEnvelope struct {
	Class    string          `json:"class"`
	Fields   json.RawMessage `json:"fields"`
	Checksum string          `json:"checksum"`
}

// Envelope is a verified buffer whose fields are not yet bound to a concrete type.
type Envelope struct {
	Class  string
	fields json.RawMessage
}

// Encode serializes fields under the given type tag. fields must encode to a
// JSON object. Either the whole envelope is produced or a *SerializationError
// is returned.
func Encode(class string, fields any) ([]byte, error) {
	if class == "" || !utf8.ValidString(class) {
		return nil, &SerializationError{Class: class, Err: errors.New("type tag must be non-empty UTF-8")}
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, &SerializationError{Class: class, Err: err}
	}
	if len(raw) == 0 || raw[0] != '{' {
		return nil, &SerializationError{Class: class, Err: errors.New("fields must encode to an object")}
	}

	buf, err := json.Marshal(wireEnvelope{Class: class, Fields: raw, Checksum: checksum(class, raw)})
	if err != nil {
		return nil, &SerializationError{Class: class, Err: err}
	}
	return buf, nil
}

// Decode parses and verifies an envelope without knowing its concrete type.
// Any malformed, truncated or altered buffer yields a *DeserializationError.
func Decode(buf []byte) (*Envelope, error) {
	if len(buf) == 0 {
		return nil, &DeserializationError{Msg: "empty buffer"}
	}

	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.DisallowUnknownFields()
	var w wireEnvelope
	if err := dec.Decode(&w); err != nil {
		return nil, &DeserializationError{Msg: "malformed envelope", Err: err}
	}

	switch {
	case w.Class == "":
		return nil, &DeserializationError{Msg: "missing type tag"}
	case len(w.Fields) == 0 || w.Fields[0] != '{':
		return nil, &DeserializationError{Msg: "missing field object"}
	case w.Checksum == "":
		return nil, &DeserializationError{Msg: "missing checksum"}
	case w.Checksum != checksum(w.Class, w.Fields):
		return nil, &DeserializationError{Msg: "checksum mismatch"}
	}

	// Encode is deterministic, so anything it did not produce byte for byte
	// (case-folded member names, padding, trailing data) is rejected.
	canonical, err := json.Marshal(w)
	if err != nil || !bytes.Equal(canonical, buf) {
		return nil, &DeserializationError{Msg: "non-canonical encoding"}
	}

	return &Envelope{Class: w.Class, fields: w.Fields}, nil
}

// Expect returns a *TypeMismatchError unless the envelope carries class.
func (e *Envelope) Expect(class string) error {
	if e.Class != class {
		return &TypeMismatchError{Want: class, Got: e.Class}
	}
	return nil
}

// DecodeFields binds the field object to dst. Unknown fields are rejected.
func (e *Envelope) DecodeFields(dst any) error {
	dec := json.NewDecoder(bytes.NewReader(e.fields))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &DeserializationError{Msg: "decode " + e.Class + " fields", Err: err}
	}
	return nil
}

// Fields returns the generic field-value mapping.
func (e *Envelope) Fields() (map[string]any, error) {
	m := make(map[string]any)
	if err := json.Unmarshal(e.fields, &m); err != nil {
		return nil, &DeserializationError{Msg: "decode field map", Err: err}
	}
	return m, nil
}

func checksum(class string, fields []byte) string {
	h := sha256.New()
	h.Write([]byte(class))
	h.Write([]byte{0})
	h.Write(fields)
	return hex.EncodeToString(h.Sum(nil))
}
