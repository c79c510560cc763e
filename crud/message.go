package crud

import (
	"context"
	"errors"
	"sort"

	"gorm.io/gorm"

	"poetryHub/domain"
	"poetryHub/errs"
)

// MessageService manages a user's notifications.
// It implements the domain.MessageService interface.
type MessageService struct {
	messageGorm
}

type messageGorm struct {
	db *gorm.DB
}

// NewMessageService returns an instance of MessageService.
func NewMessageService(db *gorm.DB) *MessageService {
	return &MessageService{
		messageGorm{
			db: db,
		},
	}
}

var _ domain.MessageService = &MessageService{}

// notify stores msg within tx. Nothing is stored when the actor is the recipient.
func notify(tx *gorm.DB, msg *domain.Message) error {
	if msg.UserID <= 0 {
		return nil
	}
	if msg.FromUserID != nil && *msg.FromUserID == msg.UserID {
		return nil
	}
	return tx.Create(msg).Error
}

// sortedKeys returns the ids set in m in ascending order.
func sortedKeys(m map[int64]bool) []int64 {
	out := make([]int64, 0, len(m))
	for k, ok := range m {
		if ok {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// List returns one page of the user's messages, newest first.
func (mg *messageGorm) List(ctx context.Context, userID int64, filter domain.MessageFilter) ([]domain.Message, int64, error) {
	if userID <= 0 {
		return nil, 0, errs.UserIdValid
	}
	page := filter.Page.Normalize()
	q := mg.db.WithContext(ctx).Model(&domain.Message{}).Where("user_id = ?", userID)
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.UnreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	messages := []domain.Message{}
	err := q.Order("created_at DESC").
		Order("id DESC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&messages).Error
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

// ByID returns one of the user's messages. Messages of other users are reported as missing.
func (mg *messageGorm) ByID(ctx context.Context, userID, id int64) (*domain.Message, error) {
	var msg domain.Message
	err := mg.db.WithContext(ctx).First(&msg, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Errorf(errs.ENOTFOUND, "The message does not exist.")
		}
		return nil, err
	}
	return &msg, nil
}

// MarkRead marks one of the user's messages as read.
func (mg *messageGorm) MarkRead(ctx context.Context, userID, id int64) error {
	res := mg.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.Errorf(errs.ENOTFOUND, "The message does not exist.")
	}
	return nil
}

// MarkAllRead marks the user's unread messages as read, only those of typ unless it is empty.
// It returns the number of messages changed.
func (mg *messageGorm) MarkAllRead(ctx context.Context, userID int64, typ domain.MessageType) (int64, error) {
	q := mg.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("user_id = ? AND is_read = ?", userID, false)
	if typ != "" {
		q = q.Where("type = ?", typ)
	}
	res := q.Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (mg *messageGorm) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := mg.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}

// Stats returns the number of unread messages per type. Every type is present.
func (mg *messageGorm) Stats(ctx context.Context, userID int64) (map[domain.MessageType]int64, error) {
	var rows []struct {
		Type  domain.MessageType
		Count int64
	}
	err := mg.db.WithContext(ctx).
		Model(&domain.Message{}).
		Select("type, COUNT(*) AS count").
		Where("user_id = ? AND is_read = ?", userID, false).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	stats := make(map[domain.MessageType]int64, len(domain.MessageTypes))
	for _, t := range domain.MessageTypes {
		stats[t] = 0
	}
	for _, r := range rows {
		stats[r.Type] = r.Count
	}
	return stats, nil
}

// Delete removes one of the user's messages for good.
func (mg *messageGorm) Delete(ctx context.Context, userID, id int64) error {
	res := mg.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Message{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.Errorf(errs.ENOTFOUND, "The message does not exist.")
	}
	return nil
}
