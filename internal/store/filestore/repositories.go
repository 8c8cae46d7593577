// internal/store/filestore/repositories.go
package filestore

import (
	"context"
	"slices"
	"strings"

	"librastore/internal/models"
	"librastore/internal/store"
)

type bookRepo struct{ s *Store }

func (r bookRepo) find(id int64) int {
	return slices.IndexFunc(r.s.data.Books, func(b *models.Book) bool { return b.ID == id })
}

func (r bookRepo) isbnTaken(isbn string, except int64) bool {
	return slices.ContainsFunc(r.s.data.Books, func(b *models.Book) bool {
		return b.ISBN == isbn && b.ID != except
	})
}

func (r bookRepo) Get(_ context.Context, id int64) (*models.Book, error) {
	var out *models.Book
	r.s.read(func() {
		if i := r.find(id); i >= 0 {
			out = r.s.data.Books[i].Clone()
		}
	})
	if out == nil {
		return nil, store.ErrNotFound
	}
	return out, nil
}

func (r bookRepo) FindByISBN(_ context.Context, isbn string) (*models.Book, error) {
	var out *models.Book
	r.s.read(func() {
		for _, b := range r.s.data.Books {
			if b.ISBN == isbn {
				out = b.Clone()
				return
			}
		}
	})
	if out == nil {
		return nil, store.ErrNotFound
	}
	return out, nil
}

func (r bookRepo) SearchTitle(_ context.Context, q string) ([]*models.Book, error) {
	needle := strings.ToLower(q)
	out := []*models.Book{}
	r.s.read(func() {
		for _, b := range r.s.data.Books {
			if strings.Contains(strings.ToLower(b.Title), needle) {
				out = append(out, b.Clone())
			}
		}
	})
	return out, nil
}

func (r bookRepo) List(context.Context) ([]*models.Book, error) {
	var out []*models.Book
	r.s.read(func() {
		out = make([]*models.Book, 0, len(r.s.data.Books))
		for _, b := range r.s.data.Books {
			out = append(out, b.Clone())
		}
	})
	return out, nil
}

func (r bookRepo) Insert(ctx context.Context, b *models.Book) error {
	return r.s.mutate(ctx, "books.insert", func() error {
		if r.find(b.ID) >= 0 || r.isbnTaken(b.ISBN, b.ID) {
			return store.ErrDuplicate
		}
		r.s.data.Books = append(r.s.data.Books, b.Clone())
		return nil
	})
}

func (r bookRepo) Update(ctx context.Context, b *models.Book) error {
	return r.s.mutate(ctx, "books.update", func() error {
		i := r.find(b.ID)
		if i < 0 {
			return store.ErrNotFound
		}
		if r.isbnTaken(b.ISBN, b.ID) {
			return store.ErrDuplicate
		}
		r.s.data.Books[i] = b.Clone()
		return nil
	})
}

func (r bookRepo) Delete(ctx context.Context, id int64) error {
	return r.s.mutate(ctx, "books.delete", func() error {
		i := r.find(id)
		if i < 0 {
			return store.ErrNotFound
		}
		r.s.data.Books = slices.Delete(r.s.data.Books, i, i+1)
		return nil
	})
}

func (r bookRepo) DeleteAll(ctx context.Context) error {
	return r.s.mutate(ctx, "books.delete_all", func() error {
		r.s.data.Books = []*models.Book{}
		return nil
	})
}

func (r bookRepo) DecrementStock(ctx context.Context, id int64, qty int) error {
	return r.s.mutate(ctx, "books.decrement_stock", func() error {
		i := r.find(id)
		if i < 0 {
			return store.ErrNotFound
		}
		b := r.s.data.Books[i]
		if b.Stock < qty {
			return store.ErrInsufficientStock
		}
		b.Stock -= qty
		return nil
	})
}

func (r bookRepo) IncrementStock(ctx context.Context, id int64, qty int) error {
	return r.s.mutate(ctx, "books.increment_stock", func() error {
		i := r.find(id)
		if i < 0 {
			return store.ErrNotFound
		}
		r.s.data.Books[i].Stock += qty
		return nil
	})
}

type userRepo struct{ s *Store }

func (r userRepo) find(id int64) int {
	return slices.IndexFunc(r.s.data.Users, func(u *models.User) bool { return u.ID == id })
}

func (r userRepo) first(match func(*models.User) bool) (*models.User, error) {
	var out *models.User
	r.s.read(func() {
		if i := slices.IndexFunc(r.s.data.Users, match); i >= 0 {
			out = r.s.data.Users[i].Clone()
		}
	})
	if out == nil {
		return nil, store.ErrNotFound
	}
	return out, nil
}

func (r userRepo) Get(_ context.Context, id int64) (*models.User, error) {
	return r.first(func(u *models.User) bool { return u.ID == id })
}

func (r userRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return r.first(func(u *models.User) bool { return u.Email == email })
}

func (r userRepo) FindByNationalID(_ context.Context, nationalID string) (*models.User, error) {
	return r.first(func(u *models.User) bool { return u.NationalID == nationalID })
}

func (r userRepo) List(_ context.Context, role models.Role) ([]*models.User, error) {
	out := []*models.User{}
	r.s.read(func() {
		for _, u := range r.s.data.Users {
			if u.Role.Matches(role) {
				out = append(out, u.Clone())
			}
		}
	})
	return out, nil
}

func (r userRepo) Insert(ctx context.Context, u *models.User) error {
	return r.s.mutate(ctx, "users.insert", func() error {
		dup := slices.ContainsFunc(r.s.data.Users, func(o *models.User) bool {
			return o.ID == u.ID || o.Email == u.Email
		})
		if dup {
			return store.ErrDuplicate
		}
		r.s.data.Users = append(r.s.data.Users, u.Clone())
		return nil
	})
}

func (r userRepo) Update(ctx context.Context, u *models.User) error {
	return r.s.mutate(ctx, "users.update", func() error {
		i := r.find(u.ID)
		if i < 0 {
			return store.ErrNotFound
		}
		if slices.ContainsFunc(r.s.data.Users, func(o *models.User) bool { return o.Email == u.Email && o.ID != u.ID }) {
			return store.ErrDuplicate
		}
		cur := r.s.data.Users[i]
		cur.NationalID = u.NationalID
		cur.Name = u.Name
		cur.Surnames = u.Surnames
		cur.Address = u.Address
		cur.Email = u.Email
		cur.Password = u.Password
		return nil
	})
}

func (r userRepo) Delete(ctx context.Context, id int64) error {
	return r.s.mutate(ctx, "users.delete", func() error {
		i := r.find(id)
		if i < 0 {
			return store.ErrNotFound
		}
		r.s.data.Users = slices.Delete(r.s.data.Users, i, i+1)
		return nil
	})
}

func (r userRepo) DeleteByRole(ctx context.Context, role models.Role) error {
	return r.s.mutate(ctx, "users.delete_by_role", func() error {
		r.s.data.Users = slices.DeleteFunc(r.s.data.Users, func(u *models.User) bool {
			return u.Role.Matches(role)
		})
		return nil
	})
}

func (r userRepo) SaveCart(ctx context.Context, clientID int64, cart *models.Cart, expectedVersion int64) (*models.Cart, error) {
	var saved *models.Cart
	err := r.s.mutate(ctx, "users.save_cart", func() error {
		i := r.find(clientID)
		if i < 0 || !r.s.data.Users[i].IsClient() {
			return store.ErrNotFound
		}
		u := r.s.data.Users[i]
		if u.Cart.Version != expectedVersion {
			return store.ErrVersionConflict
		}
		next := cart.Clone()
		next.Version = expectedVersion + 1
		u.Cart = next
		saved = next.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

type invoiceRepo struct{ s *Store }

func (r invoiceRepo) first(match func(*models.Invoice) bool) (*models.Invoice, error) {
	var out *models.Invoice
	r.s.read(func() {
		if i := slices.IndexFunc(r.s.data.Invoices, match); i >= 0 {
			out = r.s.data.Invoices[i].Clone()
		}
	})
	if out == nil {
		return nil, store.ErrNotFound
	}
	return out, nil
}

func (r invoiceRepo) filter(match func(*models.Invoice) bool) []*models.Invoice {
	out := []*models.Invoice{}
	r.s.read(func() {
		for _, inv := range r.s.data.Invoices {
			if match(inv) {
				out = append(out, inv.Clone())
			}
		}
	})
	return out
}

func (r invoiceRepo) Get(_ context.Context, id int64) (*models.Invoice, error) {
	return r.first(func(inv *models.Invoice) bool { return inv.ID == id })
}

func (r invoiceRepo) FindByNumber(_ context.Context, number int64) (*models.Invoice, error) {
	return r.first(func(inv *models.Invoice) bool { return inv.Number == number })
}

func (r invoiceRepo) ListByClient(_ context.Context, clientID int64) ([]*models.Invoice, error) {
	return r.filter(func(inv *models.Invoice) bool { return inv.Client.ID == clientID }), nil
}

func (r invoiceRepo) List(context.Context) ([]*models.Invoice, error) {
	return r.filter(func(*models.Invoice) bool { return true }), nil
}

func (r invoiceRepo) Insert(ctx context.Context, inv *models.Invoice) error {
	return r.s.mutate(ctx, "invoices.insert", func() error {
		dup := slices.ContainsFunc(r.s.data.Invoices, func(o *models.Invoice) bool {
			return o.ID == inv.ID || o.Number == inv.Number
		})
		if dup {
			return store.ErrDuplicate
		}
		r.s.data.Invoices = append(r.s.data.Invoices, inv.Clone())
		return nil
	})
}

func (r invoiceRepo) Delete(ctx context.Context, id int64) error {
	return r.s.mutate(ctx, "invoices.delete", func() error {
		i := slices.IndexFunc(r.s.data.Invoices, func(inv *models.Invoice) bool { return inv.ID == id })
		if i < 0 {
			return store.ErrNotFound
		}
		r.s.data.Invoices = slices.Delete(r.s.data.Invoices, i, i+1)
		return nil
	})
}

func (r invoiceRepo) DeleteAll(ctx context.Context) error {
	return r.s.mutate(ctx, "invoices.delete_all", func() error {
		r.s.data.Invoices = []*models.Invoice{}
		return nil
	})
}
