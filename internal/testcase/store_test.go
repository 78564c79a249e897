package testcase

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewStoreDefaultsToOneCase(t *testing.T) {
	s, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
}

func TestAddRejectsSeventhCase(t *testing.T) {
	s, _ := NewStore()
	for i := 1; i < MaxCases; i++ {
		idx, err := s.Add(Case{Input: "x"})
		if err != nil {
			t.Fatalf("Add #%d: %v", i, err)
		}
		if idx != i {
			t.Errorf("Add returned index %d, want %d", idx, i)
		}
	}
	if s.Len() != MaxCases {
		t.Fatalf("Len = %d, want %d", s.Len(), MaxCases)
	}
	if _, err := s.Add(Case{}); !errors.Is(err, ErrTooManyCases) {
		t.Fatalf("7th Add err = %v, want ErrTooManyCases", err)
	}
	if s.Len() != MaxCases {
		t.Errorf("Len after rejected add = %d", s.Len())
	}
}

func TestRemoveRejectsLastCase(t *testing.T) {
	s, _ := NewStore()
	if err := s.Remove(0); !errors.Is(err, ErrLastCase) {
		t.Fatalf("Remove last err = %v, want ErrLastCase", err)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestRemoveShiftsOrder(t *testing.T) {
	s, err := NewStore(Case{Input: "a"}, Case{Input: "b"}, Case{Input: "c"})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := s.Remove(1); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	got := s.Cases()
	if len(got) != 2 || got[0].Input != "a" || got[1].Input != "c" {
		t.Errorf("cases = %+v", got)
	}
	if err := s.Remove(5); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Remove(5) err = %v", err)
	}
}

func TestUpdateAndGet(t *testing.T) {
	s, _ := NewStore()
	if err := s.Update(0, Case{Input: "1 2", ExpectedOutput: "3"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	c, err := s.Get(0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if c.Input != "1 2" || c.ExpectedOutput != "3" {
		t.Errorf("case = %+v", c)
	}
	if err := s.Update(3, Case{}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Update(3) err = %v", err)
	}
}

func TestCasesReturnsCopy(t *testing.T) {
	s, _ := NewStore(Case{Input: "a"})
	got := s.Cases()
	got[0].Input = "mutated"
	if c, _ := s.Get(0); c.Input != "a" {
		t.Errorf("store mutated through Cases(): %+v", c)
	}
}

func TestReplaceValidates(t *testing.T) {
	s, _ := NewStore()
	if err := s.Replace(nil); !errors.Is(err, ErrLastCase) {
		t.Errorf("Replace(nil) err = %v", err)
	}
	if err := s.Replace(make([]Case, MaxCases+1)); !errors.Is(err, ErrTooManyCases) {
		t.Errorf("Replace(7) err = %v", err)
	}
	if _, err := NewStore(make([]Case, MaxCases+1)...); err == nil {
		t.Error("NewStore with 7 cases should fail")
	}
}

func TestLoadSuite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suite.yaml")
	data := `language: python
cases:
  - input: "1 2"
    expected_output: "3"
  - input: |
      5
      6
    expected_output: "11"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadSuite(path)
	if err != nil {
		t.Fatalf("LoadSuite: %v", err)
	}
	if s.Language != "python" || len(s.Cases) != 2 {
		t.Fatalf("suite = %+v", s)
	}
	if s.Cases[1].Input != "5\n6\n" {
		t.Errorf("multi-line input = %q", s.Cases[1].Input)
	}
}

func TestParseSuiteRejectsEmpty(t *testing.T) {
	if _, err := ParseSuite([]byte("language: cpp\n")); !errors.Is(err, ErrLastCase) {
		t.Errorf("err = %v, want ErrLastCase", err)
	}
}
