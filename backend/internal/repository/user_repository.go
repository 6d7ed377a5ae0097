package repository

import (
	"context"

	"lf-go-app/backend/internal/domain/user"

	"gorm.io/gorm"
)

// UserRepository 封装用户相关的数据访问方法，基于 GORM 实现。
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓储实例，接收共享的 *gorm.DB。
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create 写入用户记录。
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

// FindByID 根据主键查找用户。
func (r *UserRepository) FindByID(ctx context.Context, id uint) (*user.User, error) {
	var u user.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByEmail 通过邮箱查找用户，若不存在返回 gorm.ErrRecordNotFound。
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	var u user.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByUsername 通过用户名查找用户。
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	var u user.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// FindBySlug 通过派生 slug 查找用户。
func (r *UserRepository) FindBySlug(ctx context.Context, slug string) (*user.User, error) {
	var u user.User
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByExternalAuthID 通过身份提供方的 subject 标识查找用户。
func (r *UserRepository) FindByExternalAuthID(ctx context.Context, subject string) (*user.User, error) {
	var u user.User
	if err := r.db.WithContext(ctx).Where("external_auth_id = ?", subject).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// Update 按主键更新用户信息。
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	return r.db.WithContext(ctx).Save(u).Error
}

// UpdateSlug 回写派生 slug，通常在创建事务内紧随主键生成执行。
func (r *UserRepository) UpdateSlug(ctx context.Context, userID uint, slug string) error {
	result := r.db.WithContext(ctx).
		Model(&user.User{}).
		Where("id = ?", userID).
		Update("slug", slug)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListByIDs 批量查询用户并以主键为键返回，供作者摘要填充使用。
func (r *UserRepository) ListByIDs(ctx context.Context, ids []uint) (map[uint]*user.User, error) {
	result := make(map[uint]*user.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var users []user.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for i := range users {
		result[users[i].ID] = &users[i]
	}
	return result, nil
}
