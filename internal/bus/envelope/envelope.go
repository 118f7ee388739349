// Package envelope implements the versioned, signed wire format used by
// the pub/sub EventBus variant (spec §6).
package envelope

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"io"
	"time"

	"golang.org/x/crypto/hkdf"
)

// CurrentVersion is the only envelope version this build emits or accepts.
// Unknown versions fail closed.
const CurrentVersion uint16 = 1

var (
	ErrUnknownVersion = errors.New("envelope: unknown version")
	ErrBadMAC         = errors.New("envelope: MAC mismatch")
	ErrStale          = errors.New("envelope: timestamp outside skew window")
)

// Envelope is the wire-level structured-data frame.
type Envelope struct {
	Version   uint16
	TypeTag   string
	SourceId  string
	Timestamp int64 // ms
	Payload   []byte
	MAC       []byte
}

// Signer derives a per-version MAC key from the deployment shared secret
// via HKDF, so rotating the envelope version also rotates the effective
// key without a config change.
type Signer struct {
	key []byte
}

func NewSigner(sharedSecret []byte, version uint16) (*Signer, error) {
	info := make([]byte, 2)
	binary.BigEndian.PutUint16(info, version)
	r := hkdf.New(sha256.New, sharedSecret, nil, info)
	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return &Signer{key: key}, nil
}

// Seal builds a signed envelope for the given typed payload bytes.
func (s *Signer) Seal(typeTag, sourceId string, payload []byte, now time.Time) Envelope {
	env := Envelope{
		Version:   CurrentVersion,
		TypeTag:   typeTag,
		SourceId:  sourceId,
		Timestamp: now.UnixMilli(),
		Payload:   payload,
	}
	env.MAC = s.mac(env)
	return env
}

func (s *Signer) mac(env Envelope) []byte {
	h := hmac.New(sha256.New, s.key)
	binary.Write(h, binary.BigEndian, env.Version)
	h.Write([]byte(env.TypeTag))
	h.Write([]byte(env.SourceId))
	binary.Write(h, binary.BigEndian, env.Timestamp)
	h.Write(env.Payload)
	return h.Sum(nil)
}

// Verify checks version, MAC, and skew window. Receivers must drop (never
// crash) on any failure and increment a counter.
func (s *Signer) Verify(env Envelope, now time.Time, maxSkew time.Duration) error {
	if env.Version != CurrentVersion {
		return ErrUnknownVersion
	}
	want := s.mac(Envelope{
		Version:   env.Version,
		TypeTag:   env.TypeTag,
		SourceId:  env.SourceId,
		Timestamp: env.Timestamp,
		Payload:   env.Payload,
	})
	if !hmac.Equal(want, env.MAC) {
		return ErrBadMAC
	}
	age := now.Sub(time.UnixMilli(env.Timestamp))
	if age < 0 {
		age = -age
	}
	if age > maxSkew {
		return ErrStale
	}
	return nil
}
