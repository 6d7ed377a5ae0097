package user

import "time"

// UserStatus 表示账号的可用状态。
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

// User represents the persisted user entity in the system.
type User struct {
	ID             uint       `gorm:"primaryKey" json:"id"`                      // 自增主键
	Email          string     `gorm:"size:255;uniqueIndex" json:"email"`         // 登录邮箱（唯一）
	ExternalAuthID string     `gorm:"size:128;uniqueIndex" json:"-"`             // 身份提供方的 subject 标识（唯一）
	Username       string     `gorm:"size:64;uniqueIndex" json:"username"`       // 登录/展示用的唯一用户名（3-20 字符）
	DisplayName    string     `gorm:"size:128" json:"display_name"`              // 对外展示名称
	AvatarURL      string     `gorm:"size:512" json:"avatar_url"`                // 用户头像的公开访问地址
	Slug           string     `gorm:"size:255;uniqueIndex" json:"slug"`          // 由用户名派生的唯一 slug
	PasswordHash   string     `gorm:"size:255" json:"-"`                         // Bcrypt 生成的密码哈希
	IsAdmin        bool       `gorm:"default:false" json:"is_admin"`             // 管理员标记，仅限内部控制面
	Status         string     `gorm:"size:16;not null;default:'active';index" json:"status"` // active/suspended
	LastLoginAt    *time.Time `json:"last_login_at"`                             // 上次登录时间，可为空
	CreatedAt      time.Time  `json:"created_at"`                                // 创建时间戳（gorm 自动维护）
	UpdatedAt      time.Time  `json:"updated_at"`                                // 更新时间戳（gorm 自动维护）
}

// Brief 是嵌入到包、评论等资源里的作者摘要。
type Brief struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Slug        string `json:"slug,omitempty"`
}

// BriefOf 从完整用户记录提取公开摘要。
func BriefOf(u *User) *Brief {
	if u == nil {
		return nil
	}
	return &Brief{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		Slug:        u.Slug,
	}
}

// Follow 记录用户之间的有向关注边。
type Follow struct {
	FollowerID  uint      `gorm:"primaryKey;column:follower_id"`  // 发起关注的用户
	FollowingID uint      `gorm:"primaryKey;column:following_id"` // 被关注的用户
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName 返回关注关系使用的表名。
func (Follow) TableName() string {
	return "follows"
}
