// Package catalog is the read-only book content supplier consumed by the
// reading core. Content is an external concern; this static library carries
// just enough material to drive reading sessions.
package catalog

import (
	"errors"
	"fmt"
)

// ErrBookNotFound indicates that the requested book is not in the catalog.
var ErrBookNotFound = errors.New("book not found")

// Book describes a readable title.
type Book struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	TotalPages int    `json:"total_pages"`

	pages []string
}

// PageContent returns the text of the given 1-based page. Pages beyond the
// seeded material are generated placeholders so every title is fully readable.
func (b *Book) PageContent(pageNumber int) (string, error) {
	if pageNumber < 1 || pageNumber > b.TotalPages {
		return "", fmt.Errorf("page %d out of range for %q", pageNumber, b.ID)
	}
	if pageNumber <= len(b.pages) {
		return b.pages[pageNumber-1], nil
	}
	return fmt.Sprintf("Page %d of %q. Continue reading to keep earning.", pageNumber, b.Title), nil
}

// Library is a fixed set of books.
type Library struct {
	books map[string]*Book
	order []string
}

// NewLibrary returns the built-in catalog.
func NewLibrary() *Library {
	lib := &Library{books: make(map[string]*Book)}
	for _, b := range seedBooks() {
		lib.books[b.ID] = b
		lib.order = append(lib.order, b.ID)
	}
	return lib
}

// Book looks up a title by ID.
func (l *Library) Book(id string) (*Book, error) {
	b, ok := l.books[id]
	if !ok {
		return nil, ErrBookNotFound
	}
	return b, nil
}

// Books lists all titles in catalog order.
func (l *Library) Books() []*Book {
	out := make([]*Book, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.books[id])
	}
	return out
}

func seedBooks() []*Book {
	return []*Book{
		{
			ID:         "1",
			Title:      "Machine Learning Fundamentals",
			Author:     "Dr. Sarah Chen",
			TotalPages: 15,
			pages: []string{
				"Machine learning represents a revolutionary approach to artificial intelligence that enables computers to learn and make intelligent decisions from data without being explicitly programmed for every specific task. At its core, machine learning involves algorithms that identify complex patterns within large datasets and use those patterns to make predictions about new, previously unseen data. The field has reshaped healthcare, finance, entertainment, transportation and manufacturing. There are three fundamental approaches: supervised learning, which uses labeled training data; unsupervised learning, which discovers hidden patterns in unlabeled data; and reinforcement learning, which learns through environmental interaction and feedback.",
				"Supervised learning stands as the most widely implemented type of machine learning, where algorithms learn from curated input-output pairs to make accurate predictions on new data. The approach requires datasets with known correct answers, called labels, which anchor the algorithm's learning process. Common applications include email spam detection, image recognition, medical diagnostic tools and financial risk assessment. The standard process splits available data into training and testing sets: the training set teaches the algorithm, while the testing set evaluates performance on unseen data. Key algorithms include linear regression, decision trees, random forests and neural networks.",
			},
		},
		{
			ID:         "2",
			Title:      "Personal Finance Mastery",
			Author:     "James Okafor",
			TotalPages: 12,
			pages: []string{
				"Building wealth begins with understanding the difference between assets and liabilities. An asset puts money in your pocket; a liability takes money out. The foundation of personal finance is spending less than you earn and investing the difference consistently over long periods, letting compound growth do the heavy lifting.",
			},
		},
		{
			ID:         "3",
			Title:      "The Science of Sleep",
			Author:     "Dr. Amara Nwosu",
			TotalPages: 10,
			pages: []string{
				"Sleep is not a passive state but an active biological process essential to memory consolidation, immune function and emotional regulation. Adults need seven to nine hours per night, cycling through light sleep, deep sleep and REM stages roughly every ninety minutes.",
			},
		},
	}
}
