package catalog

import (
	"time"

	userdomain "lf-go-app/backend/internal/domain/user"
)

// PackageStatus 表示包的发布生命周期：草稿仅作者可见，发布后公开。
const (
	PackageStatusDraft     = 0
	PackageStatusPublished = 1
)

// Category 是用于分类包的自引用层级节点，parentId 为空时是根节点。
type Category struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"size:128;not null" json:"name"`          // 展示名称
	Param     string     `gorm:"size:128;uniqueIndex" json:"param"`      // URL 片段（唯一）
	ParentID  *uint      `gorm:"index" json:"parent_id"`                 // 父分类，可为空
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Children  []Category `gorm:"foreignKey:ParentID" json:"children,omitempty"` // 仅用于根列表的一层子节点
}

// Package 表示用户提交的带版本的软件/内容条目。
type Package struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	Slug         string    `gorm:"size:255;uniqueIndex" json:"slug"`          // 由标题派生，带主键后缀保证唯一
	ShortSummary string    `gorm:"size:512" json:"short_summary"`
	Description  string    `gorm:"type:text" json:"description"`
	Changelog    string    `gorm:"type:text" json:"changelog"`
	CatID        uint      `gorm:"index;not null" json:"cat_id"`              // 所属分类
	UserID       uint      `gorm:"index;not null" json:"user_id"`             // 所有者
	Status       int       `gorm:"not null;default:0;index" json:"status"`    // 0=draft / 1=published
	RatingCount  int       `gorm:"not null;default:0" json:"rating_count"`    // 评分行数的聚合缓存
	RatingAvg    float64   `gorm:"not null;default:0" json:"rating_avg"`      // 平均分（两位小数），只能由聚合流程回写
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Owner    *userdomain.Brief `gorm:"-" json:"owner,omitempty"`    // 所有者摘要
	Category *Category         `gorm:"-" json:"category,omitempty"` // 所属分类
	Images   []Image           `gorm:"-" json:"images,omitempty"`
	Urls     []Url             `gorm:"-" json:"urls,omitempty"`
	Versions []Version         `gorm:"-" json:"versions,omitempty"`
	Comments []Comment         `gorm:"-" json:"comments,omitempty"` // 详情页携带的顶层评论及回复
}

// Version 是可被多个包引用的版本记录，也可独立存在。
type Version struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	PackageID     *uint     `gorm:"index" json:"package_id"`       // 归属包，共享版本时为空
	PlatformType  *int      `json:"platform_type"`                 // 平台枚举，可空
	VersionNumber string    `gorm:"size:64;not null" json:"version_number"`
	URL           string    `gorm:"size:512" json:"url"`
	CreatedAt     time.Time `json:"created_at"`
}

// PackageVersion 建立包与共享版本记录之间的连接（connect 而非 create）。
type PackageVersion struct {
	PackageID uint      `gorm:"primaryKey;column:package_id"`
	VersionID uint      `gorm:"primaryKey;column:version_id"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName 返回包-版本连接表名称。
func (PackageVersion) TableName() string {
	return "package_versions"
}

// Image 是包的媒体附件，由包级联持有。
type Image struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PackageID uint      `gorm:"index;not null" json:"package_id"`
	URL       string    `gorm:"size:512;not null" json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// Url 是包的出站链接（官网、源码等），由包级联持有。
type Url struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PackageID uint      `gorm:"index;not null" json:"package_id"`
	Name      string    `gorm:"size:128" json:"name"`
	URL       string    `gorm:"size:512;not null" json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// Rating 记录单个用户对单个包的打分，(userId, packageId) 复合唯一。
type Rating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:uk_ratings_user_package,priority:1" json:"user_id"`
	PackageID uint      `gorm:"not null;uniqueIndex:uk_ratings_user_package,priority:2;index" json:"package_id"`
	Score     int       `gorm:"not null" json:"score"` // 1-5
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Comment 是附加在包下的两层讨论：顶层评论与其直接回复。
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	PackageID uint      `gorm:"index;not null" json:"package_id"`
	ParentID  *uint     `gorm:"index" json:"parent_id"` // 为空即顶层评论
	CreatedAt time.Time `json:"created_at"`

	Author  *userdomain.Brief `gorm:"-" json:"author,omitempty"`
	IsMine  bool              `gorm:"-" json:"is_mine"`            // 当前查看者是否为作者
	Replies []Comment         `gorm:"-" json:"replies,omitempty"`  // 仅顶层评论携带
}

// Report 是只追加的举报记录，目标用户与目标包至少填一个。
type Report struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Reason       string    `gorm:"type:text;not null" json:"reason"`
	UserID       uint      `gorm:"index;not null" json:"user_id"` // 举报人
	TargetUserID *uint     `gorm:"index" json:"target_user_id"`
	PackageID    *uint     `gorm:"index" json:"package_id"`
	CreatedAt    time.Time `json:"created_at"`

	Reporter   *userdomain.Brief `gorm:"-" json:"reporter,omitempty"`
	TargetUser *userdomain.Brief `gorm:"-" json:"target_user,omitempty"`
}

// Carousel 是首页轮播位，引用分类、用户以及可选的包。
type Carousel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Summary   string    `gorm:"size:512" json:"summary"`
	ImageURL  string    `gorm:"size:512" json:"image_url"`
	CatID     uint      `gorm:"index;not null" json:"cat_id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	PackageID *uint     `gorm:"index" json:"package_id"`
	CreatedAt time.Time `json:"created_at"`
}

// AppUpdate 记录启动器各平台的更新通道。
type AppUpdate struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Platform    string    `gorm:"size:32;not null;index" json:"platform"`
	VersionName string    `gorm:"size:64;not null" json:"version_name"`
	VersionCode int       `gorm:"not null" json:"version_code"`
	IsForce     bool      `gorm:"not null;default:false" json:"is_force"`
	DownloadURL string    `gorm:"size:512;not null" json:"download_url"`
	Changelog   string    `gorm:"type:text" json:"changelog"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName 返回更新通道表名称。
func (AppUpdate) TableName() string {
	return "app_updates"
}
