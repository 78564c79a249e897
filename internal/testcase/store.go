// Package testcase holds the ordered, bounded list of stdin/expected-output
// pairs a program is checked against.
package testcase

import (
	"errors"
	"fmt"
	"sync"
)

// MaxCases is the largest number of test cases a store may hold.
const MaxCases = 6

var (
	ErrTooManyCases    = fmt.Errorf("at most %d test cases are allowed", MaxCases)
	ErrLastCase        = errors.New("at least one test case is required")
	ErrIndexOutOfRange = errors.New("test case index out of range")
)

// Case is one stdin/expected-output pair.
type Case struct {
	Input          string `json:"input" yaml:"input"`
	ExpectedOutput string `json:"expected_output" yaml:"expected_output"`
}

// Store is an ordered list of cases. Insertion order is display and
// execution order. A store always holds between 1 and MaxCases cases.
type Store struct {
	mu    sync.RWMutex
	cases []Case
}

// NewStore creates a store seeded with cases, or with a single empty case
// when none are given.
func NewStore(cases ...Case) (*Store, error) {
	s := &Store{}
	if len(cases) == 0 {
		s.cases = []Case{{}}
		return s, nil
	}
	if err := s.Replace(cases); err != nil {
		return nil, err
	}
	return s, nil
}

// Len returns the number of cases.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cases)
}

// Cases returns a copy of the cases in order.
func (s *Store) Cases() []Case {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Case, len(s.cases))
	copy(out, s.cases)
	return out
}

// Get returns the case at index i.
func (s *Store) Get(i int) (Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.cases) {
		return Case{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	return s.cases[i], nil
}

// Add appends a case and returns its index.
func (s *Store) Add(c Case) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.cases) >= MaxCases {
		return 0, ErrTooManyCases
	}
	s.cases = append(s.cases, c)
	return len(s.cases) - 1, nil
}

// Update replaces the case at index i.
func (s *Store) Update(i int, c Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.cases) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	s.cases[i] = c
	return nil
}

// Remove deletes the case at index i. Later cases shift down by one.
func (s *Store) Remove(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.cases) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	if len(s.cases) == 1 {
		return ErrLastCase
	}
	s.cases = append(s.cases[:i], s.cases[i+1:]...)
	return nil
}

// Replace swaps the whole list, e.g. when restoring shared state.
func (s *Store) Replace(cases []Case) error {
	if err := Validate(cases); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cases = append([]Case(nil), cases...)
	return nil
}

// Reset leaves a single empty case.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cases = []Case{{}}
}

// Validate checks that cases could be held by a Store.
func Validate(cases []Case) error {
	switch {
	case len(cases) == 0:
		return ErrLastCase
	case len(cases) > MaxCases:
		return ErrTooManyCases
	}
	return nil
}
