package catalog

import (
	"errors"
	"strings"
	"testing"
)

func TestLibraryLookup(t *testing.T) {
	lib := NewLibrary()

	book, err := lib.Book("1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if book.Title != "Machine Learning Fundamentals" {
		t.Fatalf("unexpected title %q", book.Title)
	}

	if _, err := lib.Book("404"); !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("expected ErrBookNotFound, got %v", err)
	}

	books := lib.Books()
	if len(books) != 3 {
		t.Fatalf("catalog size %d, want 3", len(books))
	}
	if books[0].ID != "1" || books[2].ID != "3" {
		t.Fatal("catalog order not stable")
	}
}

func TestPageContent(t *testing.T) {
	lib := NewLibrary()
	book, err := lib.Book("2")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}

	seeded, err := book.PageContent(1)
	if err != nil {
		t.Fatalf("seeded page: %v", err)
	}
	if !strings.Contains(seeded, "assets and liabilities") {
		t.Fatal("seeded page content missing")
	}

	generated, err := book.PageContent(book.TotalPages)
	if err != nil {
		t.Fatalf("generated page: %v", err)
	}
	if !strings.Contains(generated, book.Title) {
		t.Fatalf("placeholder page should reference the title: %q", generated)
	}

	for _, page := range []int{0, -1, book.TotalPages + 1} {
		if _, err := book.PageContent(page); err == nil {
			t.Fatalf("page %d should be out of range", page)
		}
	}
}
