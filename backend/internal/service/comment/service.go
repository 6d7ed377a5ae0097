package comment

import (
	"context"
	"errors"
	"strings"

	"lf-go-app/backend/internal/apperr"
	catalogdomain "lf-go-app/backend/internal/domain/catalog"
	userdomain "lf-go-app/backend/internal/domain/user"
	"lf-go-app/backend/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultCommentPageSize = 10
	maxCommentPageSize     = 60
)

// Config 描述评论服务的可配置参数。
type Config struct {
	DefaultPageSize int
	MaxPageSize     int
	MaxBodyLength   int
}

// Service 负责包下两层评论（顶层 + 回复）的业务逻辑。
type Service struct {
	comments        *repository.CommentRepository
	packages        *repository.PackageRepository
	users           *repository.UserRepository
	logger          *zap.SugaredLogger
	defaultPageSize int
	maxPageSize     int
	maxBodyLength   int
}

// NewService 创建评论服务实例。
func NewService(comments *repository.CommentRepository, packages *repository.PackageRepository, users *repository.UserRepository, logger *zap.SugaredLogger, cfg Config) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = defaultCommentPageSize
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = maxCommentPageSize
	}
	if cfg.DefaultPageSize > cfg.MaxPageSize {
		cfg.DefaultPageSize = cfg.MaxPageSize
	}
	return &Service{
		comments:        comments,
		packages:        packages,
		users:           users,
		logger:          logger,
		defaultPageSize: cfg.DefaultPageSize,
		maxPageSize:     cfg.MaxPageSize,
		maxBodyLength:   cfg.MaxBodyLength,
	}
}

// CreateInput 描述创建评论所需的字段。
type CreateInput struct {
	PackageID uint
	AuthorID  uint
	ParentID  *uint
	Content   string
}

// Create 创建顶层评论或回复。回复目标必须是同一个包下的顶层评论，
// 保证线程深度恒为两层（不允许回复回复）。
func (s *Service) Create(ctx context.Context, input CreateInput) (*catalogdomain.Comment, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, apperr.New(apperr.KindValidation, "评论内容不能为空")
	}
	if s.maxBodyLength > 0 && len([]rune(content)) > s.maxBodyLength {
		return nil, apperr.Newf(apperr.KindValidation, "评论长度不能超过 %d 个字符", s.maxBodyLength)
	}
	if input.PackageID == 0 || input.AuthorID == 0 {
		return nil, apperr.New(apperr.KindValidation, "缺少必要的评论上下文")
	}

	if _, err := s.packages.FindByID(ctx, input.PackageID, nil); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "目标包不存在")
		}
		return nil, err
	}

	if input.ParentID != nil && *input.ParentID != 0 {
		parent, err := s.comments.FindByID(ctx, *input.ParentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.New(apperr.KindValidation, "回复目标评论不存在")
			}
			return nil, err
		}
		if parent.PackageID != input.PackageID {
			return nil, apperr.New(apperr.KindValidation, "回复目标不属于该包")
		}
		if parent.ParentID != nil {
			return nil, apperr.New(apperr.KindValidation, "不支持回复一条回复")
		}
	} else {
		input.ParentID = nil
	}

	entity := &catalogdomain.Comment{
		Content:   content,
		UserID:    input.AuthorID,
		PackageID: input.PackageID,
		ParentID:  input.ParentID,
	}
	if err := s.comments.Create(ctx, entity); err != nil {
		return nil, err
	}

	entity.IsMine = true
	if author, err := s.users.FindByID(ctx, input.AuthorID); err == nil {
		entity.Author = userdomain.BriefOf(author)
	} else {
		s.logger.Warnw("attach comment author failed", "error", err, "user_id", input.AuthorID)
	}
	return entity, nil
}

// ListInput 描述评论列表查询参数。ViewerID 为零表示匿名查看。
type ListInput struct {
	PackageID uint
	Page      int
	Limit     int
	ViewerID  uint
}

// ListResult 封装评论列表的返回结构。
type ListResult struct {
	Items      []catalogdomain.Comment
	Page       int
	Limit      int
	Total      int64
	TotalPages int
}

// ListByPackage 返回包的顶层评论分页，每条顶层评论附带其全部回复（回复不独立分页）。
// 登录查看时为每条评论与回复标记 isMine。
func (s *Service) ListByPackage(ctx context.Context, input ListInput) (*ListResult, error) {
	if input.PackageID == 0 {
		return nil, apperr.New(apperr.KindValidation, "缺少包编号")
	}
	page := input.Page
	if page <= 0 {
		page = 1
	}
	limit := input.Limit
	if limit <= 0 {
		limit = s.defaultPageSize
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}

	roots, total, err := s.comments.ListTopLevel(ctx, repository.CommentListFilter{
		PackageID: input.PackageID,
		Limit:     limit,
		Offset:    (page - 1) * limit,
	})
	if err != nil {
		return nil, err
	}

	rootIDs := make([]uint, 0, len(roots))
	for _, root := range roots {
		rootIDs = append(rootIDs, root.ID)
	}
	replies, err := s.comments.ListReplies(ctx, rootIDs)
	if err != nil {
		return nil, err
	}

	if err := s.decorate(ctx, roots, replies, input.ViewerID); err != nil {
		s.logger.Warnw("attach comment authors failed", "error", err)
	}

	repliesByParent := make(map[uint][]catalogdomain.Comment, len(rootIDs))
	for _, reply := range replies {
		if reply.ParentID == nil {
			continue
		}
		repliesByParent[*reply.ParentID] = append(repliesByParent[*reply.ParentID], reply)
	}
	for i := range roots {
		roots[i].Replies = repliesByParent[roots[i].ID]
	}

	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return &ListResult{
		Items:      roots,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

// Delete 删除一条评论，仅作者本人可删。
// 按规则不级联回复：顶层评论被删后其回复成为孤儿，包级清除路径才做全量清理。
func (s *Service) Delete(ctx context.Context, requesterID, commentID uint) error {
	if commentID == 0 {
		return apperr.New(apperr.KindValidation, "缺少评论编号")
	}
	entity, err := s.comments.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.KindNotFound, "评论不存在")
		}
		return err
	}
	if entity.UserID != requesterID {
		return apperr.New(apperr.KindAuthorization, "只有评论作者可以删除该评论")
	}
	return s.comments.Delete(ctx, commentID)
}

// decorate 批量补齐作者摘要并标记 isMine。
func (s *Service) decorate(ctx context.Context, roots, replies []catalogdomain.Comment, viewerID uint) error {
	authorIDs := make([]uint, 0, len(roots)+len(replies))
	for _, c := range roots {
		authorIDs = append(authorIDs, c.UserID)
	}
	for _, c := range replies {
		authorIDs = append(authorIDs, c.UserID)
	}
	if len(authorIDs) == 0 {
		return nil
	}
	authors, err := s.users.ListByIDs(ctx, authorIDs)
	if err != nil {
		return err
	}
	apply := func(items []catalogdomain.Comment) {
		for i := range items {
			if author := authors[items[i].UserID]; author != nil {
				items[i].Author = userdomain.BriefOf(author)
			}
			items[i].IsMine = viewerID != 0 && items[i].UserID == viewerID
		}
	}
	apply(roots)
	apply(replies)
	return nil
}
