package user

import (
	"strings"

	"github.com/frahmantamala/attendance-management/internal"
	"github.com/frahmantamala/attendance-management/internal/core/common/validation"
	userDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/user"
)

type ListFilter struct {
	Page   int
	Limit  int
	Role   userDatamodel.Role
	Search string
}

func (f ListFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

func (f ListFilter) Validate() *internal.AppError {
	if f.Role != "" && !f.Role.Valid() {
		return internal.NewValidationFieldError("role", "role must be one of: admin, employee", internal.ErrCodeInvalidRole)
	}
	return nil
}

// UpdateDTO carries a partial update; nil fields are left untouched.
type UpdateDTO struct {
	Name  *string             `json:"name"`
	Email *string             `json:"email"`
	Role  *userDatamodel.Role `json:"role"`
}

func (d *UpdateDTO) Normalize() {
	if d.Name != nil {
		v := strings.TrimSpace(*d.Name)
		d.Name = &v
	}
	if d.Email != nil {
		v := strings.ToLower(strings.TrimSpace(*d.Email))
		d.Email = &v
	}
}

func (d UpdateDTO) Validate() *internal.AppError {
	validator := validation.NewValidator()
	if d.Name != nil {
		validator.Field("name", *d.Name).Required().MinLength(3).MaxLength(50)
	}
	if d.Email != nil {
		validator.Field("email", *d.Email).Required().Email()
	}
	if d.Role != nil {
		role := *d.Role
		validator.Field("role", string(role)).Custom(func(interface{}) *internal.AppError {
			if !role.Valid() {
				return internal.NewValidationFieldError("role", "role must be one of: admin, employee", internal.ErrCodeInvalidRole)
			}
			return nil
		})
	}
	return validator.Validate()
}
