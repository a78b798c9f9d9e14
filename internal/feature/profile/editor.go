// Package profile 个人资料表单，保存后回写会话用户。
package profile

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"skilllink-client/internal/domain"
	"skilllink-client/internal/feature/notice"
)

const saveError = "Failed to update profile"

var ErrNotSignedIn = errors.New("not signed in")

type API interface {
	Update(ctx context.Context, userID int64, in domain.ProfileUpdate) (*domain.User, error)
}

// Session 由 *session.Session 实现
type Session interface {
	User() *domain.User
	SetUser(u domain.User)
}

type Editor struct {
	api      API
	sess     Session
	validate *validator.Validate
	log      *zap.Logger
}

func New(api API, sess Session, validate *validator.Validate, l *zap.Logger) *Editor {
	return &Editor{api: api, sess: sess, validate: validate, log: l}
}

// Form 以当前用户为初值；未登录为空表单
func (e *Editor) Form() domain.ProfileUpdate {
	u := e.sess.User()
	if u == nil {
		return domain.ProfileUpdate{}
	}
	return domain.ProfileUpdate{Name: u.Name, Bio: u.Bio, Skills: u.Skills, IsMentor: u.IsMentor}
}

// Save PUT /users/:id，成功后更新会话里的用户
func (e *Editor) Save(ctx context.Context, in domain.ProfileUpdate) (*domain.User, notice.Notice, error) {
	u := e.sess.User()
	if u == nil {
		return nil, notice.Failure(ErrNotSignedIn, saveError), ErrNotSignedIn
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Skills = strings.TrimSpace(in.Skills)
	if err := e.validate.Struct(in); err != nil {
		return nil, notice.Failure(err, saveError), err
	}
	updated, err := e.api.Update(ctx, u.ID, in)
	if err != nil {
		e.log.Warn("profile update failed", zap.Int64("user_id", u.ID), zap.Error(err))
		return nil, notice.Failure(err, saveError), err
	}
	e.sess.SetUser(*updated)
	return updated, notice.Success("Profile updated successfully."), nil
}
