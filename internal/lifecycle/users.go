package lifecycle

import (
	"context"
	"strings"

	"github.com/angelmondragon/plexo-core/internal/store"
	"github.com/angelmondragon/plexo-core/pkg/db/models"
	"github.com/angelmondragon/plexo-core/pkg/enums"
	pkgerrors "github.com/angelmondragon/plexo-core/pkg/errors"
	"github.com/angelmondragon/plexo-core/pkg/security"
)

// NormalizeEmail lowercases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterUser creates an account. A second registration with the same email
// fails with CONFLICT.
func (s *Service) RegisterUser(ctx context.Context, in RegisterInput) (models.User, error) {
	in, interest, err := in.Prepare()
	if err != nil {
		return models.User{}, err
	}

	hash, err := security.HashPassword(in.Password, s.password)
	if err != nil {
		return models.User{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := models.User{
		ID:           s.newID(),
		Email:        in.Email,
		PasswordHash: hash,
		Name:         in.Name,
		Bio:          in.Bio,
		Interest:     interest,
		Avatar:       in.Avatar,
		Rating:       s.defaultRating,
	}

	err = s.engine.Update(ctx, "register_user", func(tx *store.Tx) error {
		var existing models.User
		err := tx.GetByUniqueIndex(ctx, enums.CollectionUsers, store.IndexEmail, user.Email, &existing)
		switch {
		case err == nil:
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		case !pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
			return err
		}
		return tx.Put(ctx, &user)
	})
	if err != nil {
		return models.User{}, err
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID), "user registered")
	return user, nil
}

// SaveUser upserts the user record as given.
func (s *Service) SaveUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user is required")
	}
	user.Email = NormalizeEmail(user.Email)
	return s.engine.Put(ctx, user)
}

// UpdateProfile merges the non-nil fields of update into the stored user.
func (s *Service) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (models.User, error) {
	if err := update.Validate(); err != nil {
		return models.User{}, err
	}

	var user models.User
	err := s.engine.Update(ctx, "update_profile", func(tx *store.Tx) error {
		if err := tx.Get(ctx, enums.CollectionUsers, userID, &user); err != nil {
			return err
		}
		update.Apply(&user)
		return tx.Put(ctx, &user)
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// Authenticate checks a credential. Unknown emails are NOT_FOUND and wrong
// passwords UNAUTHORIZED.
func (s *Service) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	user, err := s.views.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return models.User{}, pkgerrors.New(pkgerrors.CodeNotFound, "no account for this email")
		}
		return models.User{}, err
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return models.User{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	if security.NeedsRehash(user.PasswordHash, s.password) {
		if hash, err := security.HashPassword(password, s.password); err == nil {
			user.PasswordHash = hash
			if err := s.engine.Put(ctx, &user); err != nil {
				s.logg.Warn(s.logg.WithUserID(ctx, user.ID), "password rehash not saved")
			}
		}
	}
	return user, nil
}
