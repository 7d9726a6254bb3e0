package user

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/attendance-management/internal"
	userDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/user"
)

// RepositoryAPI reports a missing row as ErrNotFound and a duplicate email as ErrEmailExists.
// Delete removes the user together with everything owned by the user in one transaction.
type RepositoryAPI interface {
	List(ctx context.Context, filter ListFilter) ([]*userDatamodel.User, int64, error)
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	Update(ctx context.Context, u *userDatamodel.User) error
	Delete(ctx context.Context, id int64) error
	ListByRole(ctx context.Context, role userDatamodel.Role) ([]*userDatamodel.User, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) List(ctx context.Context, filter ListFilter) (*ListResult, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, internal.NewInternalError("failed to get users", err)
	}

	users := make([]*User, 0, len(rows))
	for _, r := range rows {
		users = append(users, FromDataModel(r))
	}
	return &ListResult{Users: users, Total: total}, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	row, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, internal.ErrUserNotFound
	}
	if err != nil {
		s.logger.Error("failed to get user", "error", err, "user_id", id)
		return nil, internal.NewInternalError("failed to get user", err)
	}
	return FromDataModel(row), nil
}

func (s *Service) Update(ctx context.Context, id int64, dto UpdateDTO) (*User, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	row, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, internal.ErrUserNotFound
	}
	if err != nil {
		s.logger.Error("failed to get user", "error", err, "user_id", id)
		return nil, internal.NewInternalError("failed to update user", err)
	}

	if dto.Name != nil {
		row.Name = *dto.Name
	}
	if dto.Email != nil {
		row.Email = *dto.Email
	}
	if dto.Role != nil {
		row.Role = *dto.Role
	}

	if err := s.repo.Update(ctx, row); err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, internal.ErrEmailTaken
		}
		s.logger.Error("failed to update user", "error", err, "user_id", id)
		return nil, internal.NewInternalError("failed to update user", err)
	}

	s.logger.Info("user updated", "user_id", id, "role", row.Role)
	return FromDataModel(row), nil
}

// Delete removes the account and all of its attendance, sessions, reset codes and
// notifications. An admin cannot delete the account they are signed in with.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	if actorID == id {
		return internal.ErrCannotDeleteSelf
	}

	err := s.repo.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return internal.ErrUserNotFound
	}
	if err != nil {
		s.logger.Error("failed to delete user", "error", err, "user_id", id)
		return internal.NewInternalError("failed to delete user", err)
	}

	s.logger.Info("user deleted", "user_id", id, "deleted_by", actorID)
	return nil
}

// ListUserIDs returns the ids of every user with the role, or of every user when role is empty.
func (s *Service) ListUserIDs(ctx context.Context, role userDatamodel.Role) ([]int64, error) {
	rows, err := s.repo.ListByRole(ctx, role)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (s *Service) ListEmployees(ctx context.Context) ([]*User, error) {
	return s.listRole(ctx, userDatamodel.RoleEmployee)
}

func (s *Service) ListAdmins(ctx context.Context) ([]*User, error) {
	return s.listRole(ctx, userDatamodel.RoleAdmin)
}

func (s *Service) listRole(ctx context.Context, role userDatamodel.Role) ([]*User, error) {
	rows, err := s.repo.ListByRole(ctx, role)
	if err != nil {
		return nil, err
	}
	users := make([]*User, 0, len(rows))
	for _, r := range rows {
		users = append(users, FromDataModel(r))
	}
	return users, nil
}
