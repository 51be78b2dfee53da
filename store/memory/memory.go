// Package memory keeps books, reviews and users in process memory. It honours the same
// contract as the MongoDB store, including the sparse unique ISBN index, and backs
// STORE_DRIVER=memory as well as the test suites.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kevinaaaquil/bookreviews/models"
	"github.com/kevinaaaquil/bookreviews/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	mu      sync.RWMutex
	books   map[primitive.ObjectID]models.Book
	reviews map[primitive.ObjectID]models.Review
	users   map[primitive.ObjectID]models.User
}

func New() *Store {
	return &Store{
		books:   make(map[primitive.ObjectID]models.Book),
		reviews: make(map[primitive.ObjectID]models.Review),
		users:   make(map[primitive.ObjectID]models.User),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Reset(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books = make(map[primitive.ObjectID]models.Book)
	s.reviews = make(map[primitive.ObjectID]models.Review)
	s.users = make(map[primitive.ObjectID]models.User)
	return nil
}

// isbnTaken must be called with mu held.
func (s *Store) isbnTaken(isbn string, except primitive.ObjectID) bool {
	if isbn == "" {
		return false
	}
	for id, b := range s.books {
		if id != except && b.ISBN == isbn {
			return true
		}
	}
	return false
}

func (s *Store) InsertBook(_ context.Context, book *models.Book) (primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isbnTaken(book.ISBN, primitive.NilObjectID) {
		return primitive.NilObjectID, store.ErrDuplicateKey
	}
	b := *book
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	s.books[b.ID] = b
	return b.ID, nil
}

func (s *Store) AllBooks(context.Context) ([]models.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	books := make([]models.Book, 0, len(s.books))
	for _, b := range s.books {
		books = append(books, b)
	}
	sort.Slice(books, func(i, j int) bool {
		if books[i].CreatedAt.Equal(books[j].CreatedAt) {
			return books[i].ID.Hex() > books[j].ID.Hex()
		}
		return books[i].CreatedAt.After(books[j].CreatedAt)
	})
	return books, nil
}

func (s *Store) BookByID(_ context.Context, id primitive.ObjectID) (*models.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

func (s *Store) UpdateBook(_ context.Context, id primitive.ObjectID, patch models.BookPatch) (*models.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if patch.ISBN != nil && s.isbnTaken(*patch.ISBN, id) {
		return nil, store.ErrDuplicateKey
	}
	b.Title = patch.Title
	b.Author = patch.Author
	if patch.Genre != nil {
		b.Genre = *patch.Genre
	}
	if patch.PublishedYear != nil {
		b.PublishedYear = *patch.PublishedYear
	}
	if patch.Summary != nil {
		b.Summary = *patch.Summary
	}
	if patch.ISBN != nil {
		b.ISBN = *patch.ISBN
	}
	s.books[id] = b
	return &b, nil
}

func (s *Store) DeleteBook(_ context.Context, id primitive.ObjectID) (*models.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(s.books, id)
	return &b, nil
}

func (s *Store) SetAverageRating(_ context.Context, id primitive.ObjectID, avg float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.books[id]; ok {
		b.AverageRating = avg
		s.books[id] = b
	}
	return nil
}

func (s *Store) SetBookCover(_ context.Context, id primitive.ObjectID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return store.ErrNotFound
	}
	b.CoverKey = key
	s.books[id] = b
	return nil
}

func (s *Store) InsertReview(_ context.Context, review *models.Review) (primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := *review
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	s.reviews[r.ID] = r
	return r.ID, nil
}

func (s *Store) ReviewByID(_ context.Context, id primitive.ObjectID) (*models.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reviews[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &r, nil
}

func (s *Store) ReviewsByBook(_ context.Context, bookID primitive.ObjectID) ([]models.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reviews := []models.Review{}
	for _, r := range s.reviews {
		if r.BookID == bookID {
			reviews = append(reviews, r)
		}
	}
	sort.Slice(reviews, func(i, j int) bool {
		if reviews[i].CreatedAt.Equal(reviews[j].CreatedAt) {
			return reviews[i].ID.Hex() < reviews[j].ID.Hex()
		}
		return reviews[i].CreatedAt.Before(reviews[j].CreatedAt)
	})
	return reviews, nil
}

func (s *Store) UpdateReview(_ context.Context, id primitive.ObjectID, rating int, comment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[id]
	if !ok {
		return store.ErrNotFound
	}
	r.Rating = rating
	r.Comment = comment
	s.reviews[id] = r
	return nil
}

func (s *Store) DeleteReview(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reviews[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.reviews, id)
	return nil
}

func (s *Store) DeleteReviewsByBook(_ context.Context, bookID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, r := range s.reviews {
		if r.BookID == bookID {
			delete(s.reviews, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) UpsertGoogleUser(_ context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if u.GoogleID == user.GoogleID {
			u.DisplayName = user.DisplayName
			u.FirstName = user.FirstName
			u.LastName = user.LastName
			u.Email = user.Email
			u.Image = user.Image
			s.users[id] = u
			return &u, nil
		}
	}
	u := *user
	u.ID = primitive.NewObjectID()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.users[u.ID] = u
	return &u, nil
}

func (s *Store) UserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) UsersByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var users []models.User
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}
