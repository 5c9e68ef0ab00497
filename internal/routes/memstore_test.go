package routes_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BradenHooton/usergate/internal/models"
)

// memStore backs the user, role and user_roles repositories with maps
type memStore struct {
	mu        sync.Mutex
	users     map[int64]*models.User
	roles     map[int64]*models.Role
	userRoles []*models.UserRole
	nextID    int64
}

func newMemStore() *memStore {
	return &memStore{
		users: map[int64]*models.User{},
		roles: map[int64]*models.Role{},
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func copyUser(u *models.User) *models.User {
	c := *u
	return &c
}

type memUsers struct{ *memStore }

func (s memUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return copyUser(u), nil
}

func (s memUsers) byEmail(email string) *models.User {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u
		}
	}
	return nil
}

func (s memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.byEmail(email); u != nil {
		return copyUser(u), nil
	}
	return nil, models.ErrNotFound
}

func (s memUsers) List(_ context.Context, limit, offset int) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := []*models.User{}
	for i, id := range ids {
		if i < offset || len(out) == limit {
			continue
		}
		out = append(out, copyUser(s.users[id]))
	}
	return out, nil
}

func (s memUsers) Create(_ context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byEmail(user.Email) != nil {
		return nil, models.ErrConflict
	}
	c := copyUser(user)
	c.ID = s.id()
	s.users[c.ID] = c
	return copyUser(c), nil
}

func (s memUsers) Update(_ context.Context, id int64, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if other := s.byEmail(user.Email); other != nil && other.ID != id {
		return nil, models.ErrConflict
	}
	u.FirstName, u.LastName, u.Email, u.UpdatedDate = user.FirstName, user.LastName, user.Email, user.UpdatedDate
	return copyUser(u), nil
}

func (s memUsers) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.users, id)
	kept := s.userRoles[:0]
	for _, ur := range s.userRoles {
		if ur.UserID != id {
			kept = append(kept, ur)
		}
	}
	s.userRoles = kept
	return nil
}

func (s memUsers) SetPasswordResetOTP(_ context.Context, id int64, code int, expires time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.ErrNotFound
	}
	u.PasswordResetOTP = &code
	u.PasswordResetOTPExpires = &expires
	return nil
}

func (s memUsers) ConsumePasswordReset(_ context.Context, email string, check func(*models.User) error, passwordHash string, now time.Time) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.byEmail(email)
	if u == nil {
		return nil, models.ErrNotFound
	}
	if err := check(copyUser(u)); err != nil {
		return nil, err
	}
	u.PasswordHash = passwordHash
	u.ClearPasswordResetOTP()
	u.Touch(now)
	return copyUser(u), nil
}

type memRoles struct{ *memStore }

func (s memRoles) Create(_ context.Context, role *models.Role) (*models.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.roles {
		if r.Name == role.Name {
			return nil, models.ErrConflict
		}
	}
	c := *role
	c.ID = s.id()
	s.roles[c.ID] = &c
	out := c
	return &out, nil
}

func (s memRoles) GetByID(_ context.Context, id int64) (*models.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roles[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (s memRoles) GetByName(_ context.Context, name string) (*models.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.roles {
		if r.Name == name {
			c := *r
			return &c, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s memRoles) List(_ context.Context) ([]*models.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Role, 0, len(s.roles))
	for _, r := range s.roles {
		c := *r
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s memRoles) Update(_ context.Context, id int64, role *models.Role) (*models.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roles[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	r.Name, r.UpdatedDate = role.Name, role.UpdatedDate
	c := *r
	return &c, nil
}

func (s memRoles) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.roles, id)
	kept := s.userRoles[:0]
	for _, ur := range s.userRoles {
		if ur.RoleID != id {
			kept = append(kept, ur)
		}
	}
	s.userRoles = kept
	return nil
}

type memUserRoles struct{ *memStore }

func (s memUserRoles) Create(_ context.Context, ur *models.UserRole) (*models.UserRole, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.userRoles {
		if existing.UserID == ur.UserID && existing.RoleID == ur.RoleID {
			return nil, models.ErrConflict
		}
	}
	c := *ur
	c.ID = s.id()
	s.userRoles = append(s.userRoles, &c)
	out := c
	return &out, nil
}

func (s memUserRoles) Exists(_ context.Context, userID, roleID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ur := range s.userRoles {
		if ur.UserID == userID && ur.RoleID == roleID {
			return true, nil
		}
	}
	return false, nil
}

func (s memUserRoles) UserHasRole(_ context.Context, userID int64, roleName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ur := range s.userRoles {
		if r, ok := s.roles[ur.RoleID]; ok && ur.UserID == userID && r.Name == roleName {
			return true, nil
		}
	}
	return false, nil
}

func (s memUserRoles) ListUsersWithRoles(_ context.Context) ([]*models.UserWithRoles, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.UserWithRoles, 0, len(s.users))
	for _, u := range s.users {
		uwr := &models.UserWithRoles{User: copyUser(u), Roles: []models.RoleSummary{}}
		for _, ur := range s.userRoles {
			if ur.UserID == u.ID {
				uwr.Roles = append(uwr.Roles, models.RoleSummary{ID: ur.RoleID, Name: s.roles[ur.RoleID].Name})
			}
		}
		out = append(out, uwr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].User.ID < out[j].User.ID })
	return out, nil
}
