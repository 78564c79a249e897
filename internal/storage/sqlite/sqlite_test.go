package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/michaelbrown/playground/internal/piston"
	"github.com/michaelbrown/playground/internal/share"
	"github.com/michaelbrown/playground/internal/storage"
	"github.com/michaelbrown/playground/internal/testcase"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening memory db: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func pyState() share.State {
	return share.State{
		Code:     "print(int(input()) * 2)",
		Language: piston.Python,
		TestCases: []testcase.Case{
			{Input: "2", ExpectedOutput: "4"},
			{Input: "5", ExpectedOutput: "10"},
		},
	}
}

func newShare(t *testing.T, s *SQLiteStore, id string, state share.State) *storage.Share {
	t.Helper()
	sh := &storage.Share{ID: id, State: state}
	if err := s.CreateShare(context.Background(), sh); err != nil {
		t.Fatalf("CreateShare: %v", err)
	}
	return sh
}

func TestCreateAndGetShare(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	sh := &storage.Share{
		ID:    "abc12345-0000-0000-0000-000000000000",
		Title: "doubler",
		State: pyState(),
	}
	if err := s.CreateShare(ctx, sh); err != nil {
		t.Fatalf("CreateShare: %v", err)
	}
	if sh.Token == "" || sh.Language != piston.Python {
		t.Fatalf("CreateShare did not fill derived fields: %+v", sh)
	}

	got, err := s.GetShare(ctx, sh.ID)
	if err != nil {
		t.Fatalf("GetShare: %v", err)
	}
	if got.Title != "doubler" {
		t.Errorf("title = %q, want %q", got.Title, "doubler")
	}
	if got.State.Code != sh.State.Code || len(got.State.TestCases) != 2 {
		t.Errorf("state = %+v", got.State)
	}
	if got.State.TestCases[1].ExpectedOutput != "10" {
		t.Errorf("case 1 = %+v", got.State.TestCases[1])
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at should not be zero")
	}

	decoded, err := share.Decode(got.Token)
	if err != nil {
		t.Fatalf("stored token does not decode: %v", err)
	}
	if decoded.Code != sh.State.Code {
		t.Errorf("token code = %q", decoded.Code)
	}
}

func TestCreateShareRejectsInvalidState(t *testing.T) {
	s := testStore(t)
	err := s.CreateShare(context.Background(), &storage.Share{
		ID:    "bad",
		State: share.State{Language: piston.Python},
	})
	if !errors.Is(err, testcase.ErrLastCase) {
		t.Fatalf("err = %v, want ErrLastCase", err)
	}
}

func TestGetShareByPrefix(t *testing.T) {
	s := testStore(t)
	sh := newShare(t, s, "abc12345-0000-0000-0000-000000000000", pyState())

	got, err := s.GetShare(context.Background(), "abc12345")
	if err != nil {
		t.Fatalf("GetShare by prefix: %v", err)
	}
	if got.ID != sh.ID {
		t.Errorf("got ID %q, want %q", got.ID, sh.ID)
	}
}

func TestGetShareErrors(t *testing.T) {
	s := testStore(t)
	newShare(t, s, "abc00000", pyState())
	newShare(t, s, "abc11111", pyState())

	if _, err := s.GetShare(context.Background(), "abc"); !errors.Is(err, storage.ErrAmbiguous) {
		t.Fatalf("err = %v, want ErrAmbiguous", err)
	}
	if _, err := s.GetShare(context.Background(), "zzz"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListShares(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	cpp := share.State{Code: "int main(){}", Language: piston.Cpp, TestCases: []testcase.Case{{}}}
	newShare(t, s, "a1", pyState())
	newShare(t, s, "a2", cpp)
	newShare(t, s, "a3", pyState())

	all, err := s.ListShares(ctx, storage.ShareListOptions{})
	if err != nil {
		t.Fatalf("ListShares: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d shares, want 3", len(all))
	}
	if all[0].ID != "a3" || all[2].ID != "a1" {
		t.Errorf("order = %s, %s, %s; want newest first", all[0].ID, all[1].ID, all[2].ID)
	}

	py, err := s.ListShares(ctx, storage.ShareListOptions{Language: piston.Python})
	if err != nil {
		t.Fatalf("ListShares: %v", err)
	}
	if len(py) != 2 {
		t.Errorf("got %d python shares, want 2", len(py))
	}

	page, err := s.ListShares(ctx, storage.ShareListOptions{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("ListShares: %v", err)
	}
	if len(page) != 1 || page[0].ID != "a2" {
		t.Errorf("page = %+v", page)
	}
}

func TestDeleteShare(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	newShare(t, s, "del12345", pyState())

	if err := s.DeleteShare(ctx, "del1"); err != nil {
		t.Fatalf("DeleteShare: %v", err)
	}
	if _, err := s.GetShare(ctx, "del12345"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound after delete", err)
	}
	if err := s.DeleteShare(ctx, "del12345"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "playground.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	newShare(t, s, "keep", pyState())
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if _, err := s.GetShare(context.Background(), "keep"); err != nil {
		t.Fatalf("GetShare after reopen: %v", err)
	}
}
