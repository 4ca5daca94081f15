package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/example/bookbucks/internal/catalog"
	"github.com/example/bookbucks/internal/middleware"
	"github.com/example/bookbucks/internal/services"
)

// ReadingHandler exposes the reading state machine and the book catalog.
type ReadingHandler struct {
	reading *services.ReadingService
	library *catalog.Library
}

// NewReadingHandler constructs a ReadingHandler.
func NewReadingHandler(reading *services.ReadingService, library *catalog.Library) *ReadingHandler {
	return &ReadingHandler{reading: reading, library: library}
}

// ListBooks returns the catalog.
func (h *ReadingHandler) ListBooks(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.library.Books(),
	})
}

// GetPage returns one page of book content.
func (h *ReadingHandler) GetPage(c *fiber.Ctx) error {
	book, err := h.library.Book(c.Params("bookID"))
	if err != nil {
		return mapServiceError(err)
	}

	page, err := strconv.Atoi(c.Params("page"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid page number")
	}

	content, err := book.PageContent(page)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"book_id":     book.ID,
			"title":       book.Title,
			"author":      book.Author,
			"page":        page,
			"total_pages": book.TotalPages,
			"content":     content,
		},
	})
}

// Open enters a book at page one.
func (h *ReadingHandler) Open(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	view, err := h.reading.Open(userID, c.Params("bookID"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(fiber.Map{"success": true, "data": view})
}

// Start arms the reading timer for the current page.
func (h *ReadingHandler) Start(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	view, err := h.reading.Start(userID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(fiber.Map{"success": true, "data": view})
}

type activityRequest struct {
	PointerMoves int `json:"pointer_moves"`
	Keystrokes   int `json:"keystrokes"`
	FocusSeconds int `json:"focus_seconds"`
}

// RecordActivity accumulates interaction signals for the heuristic gate.
func (h *ReadingHandler) RecordActivity(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req activityRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.reading.RecordActivity(userID, req.PointerMoves, req.Keystrokes, req.FocusSeconds); err != nil {
		return mapServiceError(err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// Tick returns the countdown view for the current page.
func (h *ReadingHandler) Tick(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	view, err := h.reading.Tick(userID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(fiber.Map{"success": true, "data": view})
}

// Claim awards the page reward when the heuristic gate passes.
func (h *ReadingHandler) Claim(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	txn, err := h.reading.Claim(c.Context(), userID)
	if err != nil {
		return mapServiceError(err)
	}

	resp := fiber.Map{"success": true}
	if txn != nil {
		resp["transaction"] = txn
	}
	return c.JSON(resp)
}

// Advance moves to the next page, or finishes the book on the last one.
func (h *ReadingHandler) Advance(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	finished, err := h.reading.Advance(c.Context(), userID)
	if err != nil {
		return mapServiceError(err)
	}

	if finished {
		return c.JSON(fiber.Map{"success": true, "finished": true})
	}

	view, err := h.reading.Tick(userID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(fiber.Map{"success": true, "finished": false, "data": view})
}

// Previous moves back one page.
func (h *ReadingHandler) Previous(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	view, err := h.reading.Previous(userID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(fiber.Map{"success": true, "data": view})
}
