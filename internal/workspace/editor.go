package workspace

import (
	"sync"

	"github.com/michaelbrown/playground/internal/piston"
)

// Editor is the code editing surface a workspace reads source from.
type Editor interface {
	Code() string
	// SetCode replaces the buffer contents with code written in lang.
	SetCode(lang piston.Language, code string)
	// SetLanguageMode switches syntax handling without touching the text.
	SetLanguageMode(lang piston.Language)
}

// Buffer is an in-memory Editor.
type Buffer struct {
	mu   sync.RWMutex
	code string
	mode piston.Language
}

func NewBuffer(lang piston.Language, code string) *Buffer {
	return &Buffer{code: code, mode: lang}
}

func (b *Buffer) Code() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.code
}

func (b *Buffer) SetCode(lang piston.Language, code string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.code = code
	b.mode = lang
}

func (b *Buffer) SetLanguageMode(lang piston.Language) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mode = lang
}

// Mode returns the language the buffer is highlighted as.
func (b *Buffer) Mode() piston.Language {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.mode
}
