package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-bookstore.git/internal/books"
)

type BooksHandler struct {
	Repo *books.Repo
}

type CreateBookReq struct {
	Title        string  `json:"title"`
	CategoryID   int64   `json:"category_id"`
	Author       string  `json:"author"`
	Description  string  `json:"description"`
	PriceCents   int     `json:"price_cents"`
	Rating       float64 `json:"rating"`
	IconURL      string  `json:"icon_url"`
	CurrentStock int     `json:"current_stock"`
}

type CategoryReq struct {
	Name string `json:"name"`
}

func (h *BooksHandler) Register(r *chi.Mux) {
	r.Post("/books", h.createBook)
	r.Get("/books", h.listBooks)
	r.Get("/books/{id}", h.getBook)
	r.Patch("/books/{id}", h.updateBook)
	r.Delete("/books/{id}", h.removeBook)
	r.Post("/books/categories", h.createCategory)
	r.Get("/books/categories", h.listCategories)
	r.Patch("/books/categories/{id}", h.updateCategory)
}

func (h *BooksHandler) createBook(w http.ResponseWriter, r *http.Request) {
	var req CreateBookReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Title == "" || req.CategoryID == 0 || req.PriceCents < 0 || req.CurrentStock < 0 {
		writeError(w, http.StatusBadRequest, "missing fields")
		return
	}
	if req.Author == "" {
		req.Author = "anonymous"
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	book, err := h.Repo.CreateBook(ctx, &books.Book{
		Title:       req.Title,
		CategoryID:  req.CategoryID,
		Author:      req.Author,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Rating:      req.Rating,
		IconURL:     req.IconURL,
	}, req.CurrentStock)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

func (h *BooksHandler) listBooks(w http.ResponseWriter, r *http.Request) {
	q := books.Query{
		Title:  r.URL.Query().Get("title"),
		Author: r.URL.Query().Get("author"),
	}
	if v := r.URL.Query().Get("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid category_id")
			return
		}
		q.CategoryID = id
	}
	if v := r.URL.Query().Get("price"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid price")
			return
		}
		q.MaxPriceCents = &p
	}
	if v := r.URL.Query().Get("rating"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid rating")
			return
		}
		q.MinRating = &f
	}
	q.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	q.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Repo.FindBooks(ctx, q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if out == nil {
		out = []books.Book{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *BooksHandler) getBook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	book, err := h.Repo.FindBook(ctx, id)
	if err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *BooksHandler) updateBook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	book, err := h.Repo.FindBook(ctx, id)
	if err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}
	// Patch semantics: decode over the current row.
	if err := json.NewDecoder(r.Body).Decode(book); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	book.ID = id
	if err := h.Repo.UpdateBook(ctx, book); err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *BooksHandler) removeBook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Repo.RemoveBook(ctx, id); err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *BooksHandler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := h.Repo.CreateCategory(ctx, req.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *BooksHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Repo.ListCategories(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if out == nil {
		out = []books.Category{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *BooksHandler) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req CategoryReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Repo.UpdateCategory(ctx, id, req.Name); err != nil {
		writeError(w, statusFromError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
