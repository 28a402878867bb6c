package repository

import (
	"errors"
	"quiz_backend/internal/model"
	"quiz_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.DB.Create(user).Error
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	if err := r.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NewNotFoundError("user", id)
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByUsername(username string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("username = ?", username).First(&user).Error
	return &user, err
}

// EnsureUser inserts the user unless a row with the same id or username exists.
// Accounts themselves live in the identity provider.
func (r *UserRepository) EnsureUser(user *model.User) error {
	return r.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(user).Error
}
