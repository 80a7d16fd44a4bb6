package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkful/forkful-backend/internal/apperr"
	"github.com/forkful/forkful-backend/internal/models"
)

// UserService handles profiles, avatars and the follow relation.
type UserService struct {
	db       *gorm.DB
	images   ImageStore
	pageSize int
}

func NewUserService(db *gorm.DB, images ImageStore, pageSize int) *UserService {
	return &UserService{db: db, images: images, pageSize: pageSize}
}

// UserWithFlags is a user plus the per-viewer is_subscribed flag.
type UserWithFlags struct {
	models.User
	IsSubscribed bool
}

// AuthorPreview is a followed author with embedded recipe previews.
type AuthorPreview struct {
	models.User
	IsSubscribed bool
	Recipes      []models.Recipe
	RecipesCount int64
}

func (s *UserService) resolve(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}
	return &user, nil
}

// Get returns one user with the viewer's subscription flag.
func (s *UserService) Get(ctx context.Context, userID uuid.UUID, viewer *uuid.UUID) (*UserWithFlags, error) {
	user, err := s.resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := UserWithFlags{User: *user}
	if viewer != nil {
		if out.IsSubscribed, err = relationExists[models.Follow](ctx, s.db,
			"follower_id = ? AND author_id = ?", *viewer, userID); err != nil {
			return nil, err
		}
	}
	return &out, nil
}

// List returns a page of users ordered by username.
func (s *UserService) List(ctx context.Context, page, limit int, viewer *uuid.UUID) ([]UserWithFlags, int64, error) {
	if page < 1 {
		return nil, 0, apperr.Validation("page must be a positive integer")
	}
	if limit < 1 {
		limit = s.pageSize
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	err := s.db.WithContext(ctx).
		Order("username ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}

	out := make([]UserWithFlags, len(users))
	for i := range users {
		out[i] = UserWithFlags{User: users[i]}
	}
	if viewer != nil && len(users) > 0 {
		ids := make([]uuid.UUID, len(users))
		for i := range users {
			ids[i] = users[i].ID
		}
		var followed []uuid.UUID
		err := s.db.WithContext(ctx).Model(&models.Follow{}).
			Where("follower_id = ? AND author_id IN ?", *viewer, ids).
			Pluck("author_id", &followed).Error
		if err != nil {
			return nil, 0, err
		}
		set := make(map[uuid.UUID]bool, len(followed))
		for _, id := range followed {
			set[id] = true
		}
		for i := range out {
			out[i].IsSubscribed = set[out[i].ID]
		}
	}
	return out, total, nil
}

// Subscribe follows an author. Self-follows are a validation error
// regardless of prior state; duplicates are Conflict. Returns the author
// with recipe previews for the response.
func (s *UserService) Subscribe(ctx context.Context, followerID, authorID uuid.UUID, recipesLimit int) (*AuthorPreview, error) {
	if followerID == authorID {
		return nil, apperr.Validation("you cannot subscribe to yourself")
	}
	author, err := s.resolve(ctx, authorID)
	if err != nil {
		return nil, err
	}
	err = addRelation(ctx, s.db, &models.Follow{FollowerID: followerID, AuthorID: authorID},
		"you are already subscribed to this user")
	if err != nil {
		return nil, err
	}

	previews, err := s.buildPreviews(ctx, []models.User{*author}, recipesLimit)
	if err != nil {
		return nil, err
	}
	previews[0].IsSubscribed = true
	return &previews[0], nil
}

// Unsubscribe removes the follow row; an absent row is reported, not
// ignored.
func (s *UserService) Unsubscribe(ctx context.Context, followerID, authorID uuid.UUID) error {
	if _, err := s.resolve(ctx, authorID); err != nil {
		return err
	}
	return removeRelation[models.Follow](ctx, s.db, "you are not subscribed to this user",
		"follower_id = ? AND author_id = ?", followerID, authorID)
}

// Subscriptions lists the authors the user follows, with recipe previews and
// counts, paginated.
func (s *UserService) Subscriptions(ctx context.Context, userID uuid.UUID, page, limit, recipesLimit int) ([]AuthorPreview, int64, error) {
	if page < 1 {
		return nil, 0, apperr.Validation("page must be a positive integer")
	}
	if limit < 1 {
		limit = s.pageSize
	}

	followedBy := s.db.WithContext(ctx).Table("follows").Select("author_id").Where("follower_id = ?", userID)

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id IN (?)", followedBy).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var authors []models.User
	err := s.db.WithContext(ctx).
		Where("id IN (?)", followedBy).
		Order("username ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&authors).Error
	if err != nil {
		return nil, 0, err
	}

	previews, err := s.buildPreviews(ctx, authors, recipesLimit)
	if err != nil {
		return nil, 0, err
	}
	for i := range previews {
		previews[i].IsSubscribed = true
	}
	return previews, total, nil
}

// buildPreviews attaches recipe previews and counts to authors in two
// batched queries. A positive recipesLimit is applied per author inside the
// query, so capped previews never load an author's full recipe list.
func (s *UserService) buildPreviews(ctx context.Context, authors []models.User, recipesLimit int) ([]AuthorPreview, error) {
	previews := make([]AuthorPreview, len(authors))
	for i := range authors {
		previews[i] = AuthorPreview{User: authors[i], Recipes: []models.Recipe{}}
	}
	if len(authors) == 0 {
		return previews, nil
	}

	ids := make([]uuid.UUID, len(authors))
	index := make(map[uuid.UUID]int, len(authors))
	for i := range authors {
		ids[i] = authors[i].ID
		index[authors[i].ID] = i
	}

	var counts []struct {
		AuthorID uuid.UUID
		Total    int64
	}
	err := s.db.WithContext(ctx).Model(&models.Recipe{}).
		Select("author_id, COUNT(*) AS total").
		Where("author_id IN ?", ids).
		Group("author_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	for _, c := range counts {
		previews[index[c.AuthorID]].RecipesCount = c.Total
	}

	q := s.db.WithContext(ctx).Model(&models.Recipe{}).Where("author_id IN ?", ids)
	if recipesLimit > 0 {
		ranked := s.db.WithContext(ctx).Model(&models.Recipe{}).
			Select("recipes.*, ROW_NUMBER() OVER (PARTITION BY author_id ORDER BY created_at DESC, id DESC) AS author_rank").
			Where("author_id IN ?", ids)
		q = s.db.WithContext(ctx).Table("(?) AS ranked", ranked).
			Where("ranked.author_rank <= ?", recipesLimit)
	}
	var recipes []models.Recipe
	if err := q.Order("created_at DESC, id DESC").Find(&recipes).Error; err != nil {
		return nil, err
	}
	for _, recipe := range recipes {
		i := index[recipe.AuthorID]
		previews[i].Recipes = append(previews[i].Recipes, recipe)
	}
	return previews, nil
}

// SetAvatar stores the image and records its URL on the user.
func (s *UserService) SetAvatar(ctx context.Context, userID uuid.UUID, data []byte, contentType string) (string, error) {
	user, err := s.resolve(ctx, userID)
	if err != nil {
		return "", err
	}
	url, err := s.images.Upload(ctx, fmt.Sprintf("users/%s", userID), bytes.NewReader(data), contentType)
	if err != nil {
		return "", err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("avatar_url", url).Error; err != nil {
		return "", err
	}
	return url, nil
}

// DeleteAvatar removes the stored image and clears the URL.
func (s *UserService) DeleteAvatar(ctx context.Context, userID uuid.UUID) error {
	user, err := s.resolve(ctx, userID)
	if err != nil {
		return err
	}
	if user.AvatarURL != "" {
		if err := s.images.Delete(ctx, fmt.Sprintf("users/%s", userID)); err != nil {
			return err
		}
	}
	return s.db.WithContext(ctx).Model(user).Update("avatar_url", "").Error
}
