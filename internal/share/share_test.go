package share

import (
	"encoding/base64"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/michaelbrown/playground/internal/piston"
	"github.com/michaelbrown/playground/internal/testcase"
)

func TestEncodeDecode(t *testing.T) {
	in := State{
		Code:     "print(input()[::-1])",
		Language: piston.Python,
		TestCases: []testcase.Case{
			{Input: "abc", ExpectedOutput: "cba"},
			{Input: "line 1\nline 2", ExpectedOutput: "2 enil\n"},
		},
	}
	token, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.ContainsAny(token, "+/=") {
		t.Fatalf("token is not url safe: %s", token)
	}
	out, err := Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(*out, in) {
		t.Fatalf("round trip = %+v, want %+v", *out, in)
	}
}

func TestEncodeRejectsInvalidState(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  error
	}{
		{"bad language", State{Language: "go", TestCases: []testcase.Case{{}}}, piston.ErrInvalidLanguage},
		{"no cases", State{Language: piston.Cpp}, testcase.ErrLastCase},
		{"too many cases", State{Language: piston.Cpp, TestCases: make([]testcase.Case, 7)}, testcase.ErrTooManyCases},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Encode(tt.state); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"not base64", "%%%"},
		{"not zstd", base64.RawURLEncoding.EncodeToString([]byte("hello"))},
		{"not json", base64.RawURLEncoding.EncodeToString(encoder.EncodeAll([]byte("{"), nil))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestDecodeValidatesState(t *testing.T) {
	token := base64.RawURLEncoding.EncodeToString(encoder.EncodeAll([]byte(`{"code":"x","language":"ruby","test_cases":[{}]}`), nil))
	if _, err := Decode(token); !errors.Is(err, piston.ErrInvalidLanguage) {
		t.Fatalf("err = %v, want ErrInvalidLanguage", err)
	}
}
