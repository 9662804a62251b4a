package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tracker/internal/models"
	"tracker/internal/storage"
)

// ErrInvalidCredentials is returned by Authenticate for an unknown email or
// a wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Users manages accounts, credentials and back-references.
type Users struct {
	*deps
	hasher Hasher
}

// NewUser holds the fields accepted on registration.
type NewUser struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
}

// UserPatch lists the profile fields a partial update may change.
type UserPatch struct {
	Email    *string      `json:"email"`
	Username *string      `json:"username"`
	Role     *models.Role `json:"role"`
}

// PreferencesPatch is shallow-merged into the stored preferences.
type PreferencesPatch struct {
	Theme         *string `json:"theme"`
	Language      *string `json:"language"`
	NotifyEnabled *bool   `json:"notifyEnabled"`
}

func (u *Users) coll() storage.Collection[*models.User] {
	return u.store.Users()
}

// Register creates an account with a hashed password. Duplicate email or
// username fail with models.ErrConflict.
func (u *Users) Register(ctx context.Context, in NewUser) (*models.User, error) {
	if err := required("email", in.Email); err != nil {
		return nil, err
	}
	if err := required("password", in.Password); err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = models.RoleUser
	}
	if !in.Role.Valid() {
		return nil, invalid("unknown role %q", in.Role)
	}

	hash, err := u.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:        normalizeEmail(in.Email),
		PasswordHash: hash,
		Username:     strings.TrimSpace(in.Username),
		Role:         in.Role,
		ProjectIDs:   []string{},
		TaskIDs:      []string{},
		Preferences:  models.DefaultPreferences(),
	}
	user.Touch(u.now())

	if err := u.coll().Insert(ctx, user); err != nil {
		return nil, err
	}
	u.logger.Info().Str("user", user.ID).Str("email", user.Email).Msg("user registered")
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *Users) Get(ctx context.Context, id string) (*models.User, error) {
	return u.coll().Get(ctx, id)
}

func (u *Users) List(ctx context.Context) ([]*models.User, error) {
	return u.coll().Find(ctx, storage.Query{}.OrderBy("createdAt", false))
}

func (u *Users) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return u.coll().FindOne(ctx, storage.Where(storage.EqualTo("email", normalizeEmail(email))))
}

func (u *Users) Update(ctx context.Context, id string, patch UserPatch) (*models.User, error) {
	return mutate(ctx, u.deps, u.coll(), id, "update", func(user *models.User) (bool, error) {
		if patch.Email != nil {
			if err := required("email", *patch.Email); err != nil {
				return false, err
			}
			user.Email = normalizeEmail(*patch.Email)
		}
		if patch.Username != nil {
			user.Username = strings.TrimSpace(*patch.Username)
		}
		if patch.Role != nil {
			if !patch.Role.Valid() {
				return false, invalid("unknown role %q", *patch.Role)
			}
			user.Role = *patch.Role
		}
		return true, nil
	})
}

func (u *Users) Delete(ctx context.Context, id string) error {
	if err := u.coll().Delete(ctx, id); err != nil {
		return err
	}
	u.logger.Info().Str("user", id).Msg("user deleted")
	return nil
}

// ComparePassword checks candidate against the stored hash.
func (u *Users) ComparePassword(ctx context.Context, id, candidate string) (bool, error) {
	user, err := u.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return u.hasher.Compare(user.PasswordHash, candidate), nil
}

// Authenticate verifies the credentials and records the login time.
func (u *Users) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := u.FindByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !u.hasher.Compare(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u.UpdateLastLogin(ctx, user.ID)
}

// ChangePassword re-hashes and stores a new password.
func (u *Users) ChangePassword(ctx context.Context, id, password string) (*models.User, error) {
	if err := required("password", password); err != nil {
		return nil, err
	}
	hash, err := u.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return mutate(ctx, u.deps, u.coll(), id, "change_password", func(user *models.User) (bool, error) {
		user.PasswordHash = hash
		return true, nil
	})
}

func userProjects(u *models.User) *[]string { return &u.ProjectIDs }
func userTasks(u *models.User) *[]string    { return &u.TaskIDs }

func (u *Users) AddProject(ctx context.Context, userID, projectID string) (*models.User, error) {
	return toggleMember(ctx, u.deps, u.coll(), userID, "add_project", userProjects, projectID, true)
}

func (u *Users) RemoveProject(ctx context.Context, userID, projectID string) (*models.User, error) {
	return toggleMember(ctx, u.deps, u.coll(), userID, "remove_project", userProjects, projectID, false)
}

func (u *Users) AddTask(ctx context.Context, userID, taskID string) (*models.User, error) {
	return toggleMember(ctx, u.deps, u.coll(), userID, "add_task", userTasks, taskID, true)
}

func (u *Users) RemoveTask(ctx context.Context, userID, taskID string) (*models.User, error) {
	return toggleMember(ctx, u.deps, u.coll(), userID, "remove_task", userTasks, taskID, false)
}

// UpdatePreferences overwrites only the fields set in patch.
func (u *Users) UpdatePreferences(ctx context.Context, id string, patch PreferencesPatch) (*models.User, error) {
	return mutate(ctx, u.deps, u.coll(), id, "update_preferences", func(user *models.User) (bool, error) {
		if patch.Theme != nil {
			user.Preferences.Theme = *patch.Theme
		}
		if patch.Language != nil {
			user.Preferences.Language = *patch.Language
		}
		if patch.NotifyEnabled != nil {
			user.Preferences.NotifyEnabled = *patch.NotifyEnabled
		}
		return true, nil
	})
}

func (u *Users) UpdateLastLogin(ctx context.Context, id string) (*models.User, error) {
	return mutate(ctx, u.deps, u.coll(), id, "update_last_login", func(user *models.User) (bool, error) {
		now := u.now()
		user.LastLogin = &now
		return true, nil
	})
}
