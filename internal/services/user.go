package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/data/db"
	"github.com/veldtops/fieldsuite-backend/internal/data/repos"
	domorg "github.com/veldtops/fieldsuite-backend/internal/domain/org"
	userdom "github.com/veldtops/fieldsuite-backend/internal/domain/user"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

// Profile is the authenticated user's own view: the account plus the
// organizations it belongs to.
type Profile struct {
	User          *userdom.User          `json:"user"`
	Organizations []*domorg.Organization `json:"organizations"`
}

type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
}

type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, in UpdateProfileInput) (*userdom.User, error)
	UploadAvatar(ctx context.Context, userID uuid.UUID, raw []byte) (*userdom.User, error)
	ResetAvatar(ctx context.Context, userID uuid.UUID) (*userdom.User, error)
}

type userService struct {
	db       *gorm.DB
	log      *logger.Logger
	userRepo repos.UserRepo
	orgRepo  repos.OrganizationRepo
	avatar   AvatarService
}

func NewUserService(gdb *gorm.DB, baseLog *logger.Logger, userRepo repos.UserRepo, orgRepo repos.OrganizationRepo, avatar AvatarService) UserService {
	return &userService{
		db:       gdb,
		log:      baseLog.With("service", "UserService"),
		userRepo: userRepo,
		orgRepo:  orgRepo,
		avatar:   avatar,
	}
}

func (s *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	dbc := dbctx.Context{Ctx: ctx}
	u, err := s.mustGet(dbc, userID)
	if err != nil {
		return nil, err
	}
	orgs, err := s.orgRepo.ListByUserID(dbc, userID)
	if err != nil {
		return nil, db.MapError("list user organizations", err)
	}
	return &Profile{User: u, Organizations: orgs}, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, in UpdateProfileInput) (*userdom.User, error) {
	var updated *userdom.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		u, err := s.mustGet(dbc, userID)
		if err != nil {
			return err
		}

		first, last := u.FirstName, u.LastName
		if in.FirstName != nil {
			first = strings.TrimSpace(*in.FirstName)
		}
		if in.LastName != nil {
			last = strings.TrimSpace(*in.LastName)
		}
		if first == "" || last == "" {
			return db.ValidationError("first and last name are required")
		}
		initialsChanged := u.Initials() != (&userdom.User{FirstName: first, LastName: last, Email: u.Email}).Initials()

		if err := s.userRepo.UpdateName(dbc, userID, first, last); err != nil {
			return db.MapError("update name", err)
		}
		u.FirstName, u.LastName = first, last

		// Generated avatars carry the initials; re-render when they move.
		if initialsChanged && s.avatar != nil {
			if err := s.avatar.CreateAndUploadUserAvatar(dbc, u); err != nil {
				s.log.Warn("avatar re-render failed (ignored)", "user_id", userID, "error", err)
			}
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *userService) UploadAvatar(ctx context.Context, userID uuid.UUID, raw []byte) (*userdom.User, error) {
	dbc := dbctx.Context{Ctx: ctx}
	u, err := s.mustGet(dbc, userID)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, db.ValidationError("empty avatar upload")
	}
	if err := s.avatar.CreateAndUploadUserAvatarFromImage(dbc, u, raw); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *userService) ResetAvatar(ctx context.Context, userID uuid.UUID) (*userdom.User, error) {
	dbc := dbctx.Context{Ctx: ctx}
	u, err := s.mustGet(dbc, userID)
	if err != nil {
		return nil, err
	}
	if err := s.avatar.CreateAndUploadUserAvatar(dbc, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *userService) mustGet(dbc dbctx.Context, userID uuid.UUID) (*userdom.User, error) {
	u, err := s.userRepo.GetByID(dbc, userID)
	if err != nil {
		return nil, db.MapError("fetch user", err)
	}
	if u == nil {
		return nil, db.NotFoundError("user not found")
	}
	return u, nil
}
