package handlers

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/BradenHooton/usergate/internal/auth"
	"github.com/BradenHooton/usergate/internal/models"
)

const dateLayout = "2006-01-02"

// UserResponse is the public shape of a user. Password and OTP fields are
// never part of it.
type UserResponse struct {
	ID          int64  `json:"user_id"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	CreatedDate string `json:"createdDate"`
	UpdatedDate string `json:"updatedDate"`
}

func userModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:          user.ID,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Email:       user.Email,
		CreatedDate: formatDate(user.CreatedDate),
		UpdatedDate: formatDate(user.UpdatedDate),
	}
}

func usersToResponse(users []*models.User) []*UserResponse {
	out := make([]*UserResponse, len(users))
	for i, u := range users {
		out[i] = userModelToResponse(u)
	}
	return out
}

// LoginUserResponse is the identity returned next to a login token
type LoginUserResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type RoleResponse struct {
	ID          int64  `json:"role_id"`
	Name        string `json:"role_name"`
	CreatedDate string `json:"createdDate"`
	UpdatedDate string `json:"updatedDate"`
}

func roleModelToResponse(role *models.Role) *RoleResponse {
	return &RoleResponse{
		ID:          role.ID,
		Name:        role.Name,
		CreatedDate: formatDate(role.CreatedDate),
		UpdatedDate: formatDate(role.UpdatedDate),
	}
}

type UserRoleResponse struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"user_id"`
	RoleID      int64  `json:"role_id"`
	CreatedDate string `json:"createdDate"`
	UpdatedDate string `json:"updatedDate"`
}

type RoleSummaryResponse struct {
	ID   int64  `json:"role_id"`
	Name string `json:"role_name"`
}

type UserWithRolesResponse struct {
	*UserResponse
	Roles []RoleSummaryResponse `json:"roles"`
}

func usersWithRolesToResponse(list []*models.UserWithRoles) []*UserWithRolesResponse {
	out := make([]*UserWithRolesResponse, len(list))
	for i, uwr := range list {
		roles := make([]RoleSummaryResponse, len(uwr.Roles))
		for j, r := range uwr.Roles {
			roles[j] = RoleSummaryResponse{ID: r.ID, Name: r.Name}
		}
		out[i] = &UserWithRolesResponse{
			UserResponse: userModelToResponse(uwr.User),
			Roles:        roles,
		}
	}
	return out
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// otpCode accepts a reset code sent as a JSON string or number. Numbers are
// zero padded to six digits since clients may drop leading zeros.
type otpCode string

func (c *otpCode) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*c = otpCode(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil && i >= 0 && i < 1_000_000 {
		*c = otpCode(auth.FormatOTP(int(i)))
		return nil
	}
	*c = otpCode(n.String())
	return nil
}
