package piston

import (
	"fmt"
	"path/filepath"
	"strings"
)

var templates = map[Language]string{
	Cpp: `#include <iostream>
using namespace std;

int main() {
    cout << "Hello, World!" << endl;
    return 0;
}`,
	Python: `print("Hello, World!")`,
}

// Languages returns the supported languages in display order.
func Languages() []Language {
	return []Language{Cpp, Python}
}

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	_, ok := templates[l]
	return ok
}

func (l Language) String() string {
	return string(l)
}

// ParseLanguage validates a user-supplied language name.
func ParseLanguage(s string) (Language, error) {
	l := Language(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidLanguage, s)
	}
	return l, nil
}

// Template returns the starter program for a language. Unknown languages
// fall back to the C++ template.
func Template(l Language) string {
	if t, ok := templates[l]; ok {
		return t
	}
	return templates[Cpp]
}

var extensions = map[string]Language{
	".py":  Python,
	".cpp": Cpp,
	".cc":  Cpp,
	".cxx": Cpp,
	".c++": Cpp,
}

// LanguageForFile guesses the language of a source file from its extension.
func LanguageForFile(name string) (Language, bool) {
	l, ok := extensions[strings.ToLower(filepath.Ext(name))]
	return l, ok
}
