package users

import (
	"context"
	"errors"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/tierbill/tierbill/internal/models"
)

// Store is the read-side contract this service needs from the identity
// system: look a user up, nothing more.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// FindByID returns nil when the user does not exist.
func (s *Store) FindByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

var Module = fx.Options(
	fx.Provide(NewStore),
)
