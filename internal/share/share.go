// Package share converts a workspace into an opaque URL-safe token and back.
package share

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/michaelbrown/playground/internal/piston"
	"github.com/michaelbrown/playground/internal/testcase"
)

// maxDecoded bounds the decompressed size of a token.
const maxDecoded = 1 << 20

var ErrInvalidToken = errors.New("invalid share token")

// State is the shareable part of a workspace.
type State struct {
	Code      string          `json:"code"`
	Language  piston.Language `json:"language"`
	TestCases []testcase.Case `json:"test_cases"`
}

// Validate checks the language and the case count.
func (s *State) Validate() error {
	if !s.Language.Valid() {
		return fmt.Errorf("%w: %q", piston.ErrInvalidLanguage, string(s.Language))
	}
	return testcase.Validate(s.TestCases)
}

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	decoder, _ = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecoded))
)

// Encode serialises s as JSON, compresses it and returns it base64url
// encoded without padding.
func Encode(s State) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshaling state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(encoder.EncodeAll(data, nil)), nil
}

// Decode reverses Encode. Any malformed token yields ErrInvalidToken; a
// well-formed token holding an invalid state yields the validation error.
func Decode(token string) (*State, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	data, err := decoder.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if len(data) > maxDecoded {
		return nil, fmt.Errorf("%w: state too large", ErrInvalidToken)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
