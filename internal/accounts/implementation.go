// internal/accounts/implementation.go
package accounts

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"librastore/internal/apperr"
	"librastore/internal/journal"
	"librastore/internal/models"
	"librastore/internal/store"
)

type service struct {
	store   store.Store
	journal journal.Journal
	logger  *zap.Logger
}

func NewService(st store.Store, j journal.Journal, logger *zap.Logger) Service {
	return &service{
		store:   st,
		journal: j,
		logger:  logger.Named("accounts"),
	}
}

func (s *service) Create(ctx context.Context, in UserInput) (*models.User, error) {
	role, err := in.validate()
	if err != nil {
		return nil, err
	}
	u := in.newUser(role)
	if err := s.checkUnique(ctx, u); err != nil {
		return nil, err
	}

	id, err := s.store.NextID(ctx, store.CollectionUsers)
	if err != nil {
		return nil, fmt.Errorf("allocate user id: %w", err)
	}
	u.ID = id

	if err := s.store.Users().Insert(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflictf("email %s is already registered", u.Email)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	s.record(ctx, u.ID, journal.UserRegistered, UserRegisteredEvent{ID: u.ID, Email: u.Email, Role: u.Role})
	s.logger.Info("user registered", zap.Int64("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

// checkUnique enforces unique email across all users and unique non-empty
// national id.
func (s *service) checkUnique(ctx context.Context, u *models.User) error {
	other, err := s.store.Users().FindByEmail(ctx, u.Email)
	switch {
	case err == nil && other.ID != u.ID:
		return apperr.Conflictf("email %s is already registered", u.Email)
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("look up email: %w", err)
	}

	if u.NationalID == "" {
		return nil
	}
	other, err = s.store.Users().FindByNationalID(ctx, u.NationalID)
	switch {
	case err == nil && other.ID != u.ID:
		return apperr.Conflictf("dni %s is already registered", u.NationalID)
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("look up dni: %w", err)
	}
	return nil
}

func (s *service) Get(ctx context.Context, role models.Role, id int64) (*models.User, error) {
	u, err := s.store.Users().Get(ctx, id)
	return s.scoped(u, err, role, fmt.Sprintf("%s %d not found", roleName(role), id))
}

func (s *service) GetByEmail(ctx context.Context, role models.Role, email string) (*models.User, error) {
	u, err := s.store.Users().FindByEmail(ctx, email)
	return s.scoped(u, err, role, fmt.Sprintf("%s with email %s not found", roleName(role), email))
}

func (s *service) GetByNationalID(ctx context.Context, role models.Role, nationalID string) (*models.User, error) {
	u, err := s.store.Users().FindByNationalID(ctx, nationalID)
	return s.scoped(u, err, role, fmt.Sprintf("%s with dni %s not found", roleName(role), nationalID))
}

// scoped turns a lookup into NotFound when the record is missing or belongs
// to the other role.
func (s *service) scoped(u *models.User, err error, role models.Role, msg string) (*models.User, error) {
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound(msg)
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !u.Role.Matches(role) {
		return nil, apperr.NotFound(msg)
	}
	return u, nil
}

func (s *service) List(ctx context.Context, role models.Role) ([]*models.User, error) {
	users, err := s.store.Users().List(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *service) Update(ctx context.Context, role models.Role, id int64, in UserInput) (*models.User, error) {
	u, err := s.Get(ctx, role, id)
	if err != nil {
		return nil, err
	}
	if err := in.merge(u); err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, u); err != nil {
		return nil, err
	}

	if err := s.store.Users().Update(ctx, u); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, apperr.NotFoundf("%s %d not found", roleName(role), id)
		case errors.Is(err, store.ErrDuplicate):
			return nil, apperr.Conflictf("email %s is already registered", u.Email)
		}
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}
	return u, nil
}

func (s *service) Delete(ctx context.Context, role models.Role, id int64) error {
	if _, err := s.Get(ctx, role, id); err != nil {
		return err
	}
	if err := s.store.Users().Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFoundf("%s %d not found", roleName(role), id)
		}
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	s.record(ctx, id, journal.UserRemoved, map[string]int64{"_id": id})
	return nil
}

func (s *service) Authenticate(ctx context.Context, role models.Role, email, password string) (*models.User, error) {
	u, err := s.GetByEmail(ctx, role, email)
	if err != nil {
		return nil, err
	}
	if u.Password != password {
		s.logger.Info("authentication failed", zap.Int64("user_id", u.ID))
		return nil, apperr.Authentication("wrong password")
	}
	return u, nil
}

// ReplaceAll removes every user of role and creates the inputs as that role.
// Users of the other role are kept. It stops at the first failing input.
func (s *service) ReplaceAll(ctx context.Context, role models.Role, inputs []UserInput) ([]*models.User, error) {
	if err := s.DeleteAll(ctx, role); err != nil {
		return nil, err
	}
	created := make([]*models.User, 0, len(inputs))
	for i, in := range inputs {
		in.Role = string(role)
		u, err := s.Create(ctx, in)
		if err != nil {
			return created, fmt.Errorf("%s %d: %w", roleName(role), i, err)
		}
		created = append(created, u)
	}
	return created, nil
}

func (s *service) DeleteAll(ctx context.Context, role models.Role) error {
	if err := s.store.Users().DeleteByRole(ctx, role); err != nil {
		return fmt.Errorf("delete %ss: %w", roleName(role), err)
	}
	return nil
}

func (s *service) record(ctx context.Context, id int64, eventType string, payload any) {
	e, err := journal.New(journal.User, id, eventType, payload)
	if err == nil {
		err = s.journal.Append(ctx, e)
	}
	if err != nil {
		s.logger.Warn("journal append failed",
			zap.String("event", eventType), zap.Int64("user_id", id), zap.Error(err))
	}
}
