// Package billingprovider integrates with the external billing provider:
// webhook signature verification on the inbound side. Subscription state
// itself only changes in response to verified provider events.
package billingprovider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingSignature   = errors.New("missing webhook signature header")
	ErrInvalidSignature   = errors.New("invalid webhook signature")
	ErrSignatureExpired   = errors.New("webhook signature timestamp outside tolerance")
	ErrMalformedSignature = errors.New("malformed webhook signature header")
)

// defaultTolerance bounds how old a signed webhook may be before it is
// rejected as a potential replay.
const defaultTolerance = 5 * time.Minute

// SignatureVerifier verifies provider webhook signatures.
// Header format: "t=<unix>,v1=<hex hmac>", signed payload: "<unix>.<body>".
type SignatureVerifier struct {
	secret    []byte
	tolerance time.Duration
}

// NewSignatureVerifier creates a verifier with the shared webhook secret.
func NewSignatureVerifier(secret string) *SignatureVerifier {
	return &SignatureVerifier{
		secret:    []byte(secret),
		tolerance: defaultTolerance,
	}
}

// NewSignatureVerifierWithTolerance creates a verifier with a custom replay window.
func NewSignatureVerifierWithTolerance(secret string, tolerance time.Duration) *SignatureVerifier {
	return &SignatureVerifier{
		secret:    []byte(secret),
		tolerance: tolerance,
	}
}

// Verify checks the signature header against the raw request body.
func (v *SignatureVerifier) Verify(payload []byte, header string, now time.Time) error {
	if header == "" {
		return ErrMissingSignature
	}

	timestamp, signatures, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	signedAt := time.Unix(timestamp, 0)
	age := now.Sub(signedAt)
	if age > v.tolerance || age < -v.tolerance {
		return fmt.Errorf("%w: signed at %s", ErrSignatureExpired, signedAt.UTC().Format(time.RFC3339))
	}

	expected := v.computeSignature(timestamp, payload)
	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}

	return ErrInvalidSignature
}

// Sign produces a signature header for the payload. Used by tests and the
// local provider simulator.
func (v *SignatureVerifier) Sign(payload []byte, now time.Time) string {
	timestamp := now.Unix()
	return fmt.Sprintf("t=%d,v1=%s", timestamp, v.computeSignature(timestamp, payload))
}

func (v *SignatureVerifier) computeSignature(timestamp int64, payload []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// parseSignatureHeader extracts the timestamp and all v1 signatures. Multiple
// v1 entries are legal during secret rotation.
func parseSignatureHeader(header string) (int64, []string, error) {
	var timestamp int64
	var signatures []string
	seenTimestamp := false

	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			return 0, nil, ErrMalformedSignature
		}

		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("%w: bad timestamp", ErrMalformedSignature)
			}
			timestamp = ts
			seenTimestamp = true
		case "v1":
			if value != "" {
				signatures = append(signatures, value)
			}
		}
	}

	if !seenTimestamp || len(signatures) == 0 {
		return 0, nil, ErrMalformedSignature
	}

	return timestamp, signatures, nil
}
