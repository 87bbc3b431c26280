package database

import (
	"context"
	"strings"
	"time"

	"github.com/thereayou/voxus-chat/internal/apperr"
	"github.com/thereayou/voxus-chat/internal/models"
)

func (d *Database) SaveUser(ctx context.Context, user *models.User) error {
	user.Username = strings.TrimSpace(user.Username)
	user.Email = strings.TrimSpace(strings.ToLower(user.Email))

	var taken int64
	err := d.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", user.Username, user.Email).
		Count(&taken).Error
	if err != nil {
		return translate("check user", err)
	}
	if taken > 0 {
		return apperr.Validation("username or email already exists")
	}

	return translate("save user", d.db.WithContext(ctx).Create(user).Error)
}

func (d *Database) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	user := models.User{}
	if err := d.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate("user", err)
	}
	return &user, nil
}

// FindUserByLogin looks a user up by username or email.
func (d *Database) FindUserByLogin(ctx context.Context, login string) (*models.User, error) {
	login = strings.TrimSpace(login)
	user := models.User{}
	err := d.db.WithContext(ctx).
		Where("username = ? OR email = ?", login, strings.ToLower(login)).
		First(&user).Error
	if err != nil {
		return nil, translate("user", err)
	}
	return &user, nil
}

// ListUsersExcept returns every user but the given one, ordered by username.
func (d *Database) ListUsersExcept(ctx context.Context, id uint64) ([]models.User, error) {
	var users []models.User
	err := d.db.WithContext(ctx).
		Where("id <> ?", id).
		Order("username ASC").
		Find(&users).Error
	if err != nil {
		return nil, translate("list users", err)
	}
	return users, nil
}

func (d *Database) UpdateLastSeen(ctx context.Context, id uint64) error {
	res := d.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("last_seen_at", time.Now().UTC())
	if res.Error != nil {
		return translate("update last seen", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("user")
	}
	return nil
}
