package service

import (
	"errors"
	"fmt"

	"github.com/Samurd/erp-elite24studio-next-sub000/internal/models"
	"github.com/Samurd/erp-elite24studio-next-sub000/internal/repository"
	"gorm.io/gorm"
)

type ReactionAction string

const (
	ReactionAdd    ReactionAction = "add"
	ReactionRemove ReactionAction = "remove"
)

// ReactionErrorKind distinguishes failure causes so callers are not stuck
// with an opaque error status.
type ReactionErrorKind string

const (
	ErrKindNotFound ReactionErrorKind = "not_found"
	ErrKindStore    ReactionErrorKind = "store"
)

type ReactionError struct {
	Kind ReactionErrorKind
	Err  error
}

func (e *ReactionError) Error() string {
	return fmt.Sprintf("reaction %s: %v", e.Kind, e.Err)
}

func (e *ReactionError) Unwrap() error { return e.Err }

type ReactionInput struct {
	MessageID uint           `json:"messageId"`
	UserID    string         `json:"userId"`
	Emoji     string         `json:"emoji"`
	Action    ReactionAction `json:"action"`
}

type ReactionResult struct {
	Status    string                 `json:"status"`
	MessageID uint                   `json:"messageId"`
	Reactions []models.ReactionGroup `json:"reactions"`
}

type ReactionService struct {
	reactionRepo repository.ReactionRepositoryInterface
}

func NewReactionService(reactionRepo repository.ReactionRepositoryInterface) *ReactionService {
	return &ReactionService{reactionRepo: reactionRepo}
}

// React applies the toggle semantics backed by the unique (message, user)
// index: add with no prior reaction inserts, add with the same emoji removes
// (toggle off), add with a different emoji updates in place, remove deletes
// if present. It returns the full regrouped reaction state for the message.
func (s *ReactionService) React(input ReactionInput) (*ReactionResult, error) {
	existing, err := s.reactionRepo.FindByMessageAndUser(input.MessageID, input.UserID)
	hasExisting := true
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ReactionError{Kind: ErrKindStore, Err: err}
		}
		hasExisting = false
	}

	switch input.Action {
	case ReactionAdd:
		switch {
		case !hasExisting:
			reaction := &models.MessageReaction{
				MessageID: input.MessageID,
				UserID:    input.UserID,
				Emoji:     input.Emoji,
			}
			if err := s.reactionRepo.Create(reaction); err != nil {
				return nil, &ReactionError{Kind: ErrKindStore, Err: err}
			}
		case existing.Emoji == input.Emoji:
			// Second click on the same emoji toggles it off
			if err := s.reactionRepo.Delete(existing.ID); err != nil {
				return nil, &ReactionError{Kind: ErrKindStore, Err: err}
			}
		default:
			// Different emoji replaces the existing row in place
			if err := s.reactionRepo.UpdateEmoji(existing.ID, input.Emoji); err != nil {
				return nil, &ReactionError{Kind: ErrKindStore, Err: err}
			}
		}
	case ReactionRemove:
		if hasExisting {
			if err := s.reactionRepo.Delete(existing.ID); err != nil {
				return nil, &ReactionError{Kind: ErrKindStore, Err: err}
			}
		}
	default:
		return nil, &ReactionError{Kind: ErrKindNotFound, Err: fmt.Errorf("unknown action %q", input.Action)}
	}

	rows, err := s.reactionRepo.ListForMessage(input.MessageID)
	if err != nil {
		return nil, &ReactionError{Kind: ErrKindStore, Err: err}
	}

	return &ReactionResult{
		Status:    "ok",
		MessageID: input.MessageID,
		Reactions: groupReactions(rows),
	}, nil
}

// groupReactions folds joined reaction rows into per-emoji aggregates in
// first-seen emoji order.
func groupReactions(rows []repository.ReactionRow) []models.ReactionGroup {
	groups := make([]models.ReactionGroup, 0)
	index := make(map[string]int)

	for _, row := range rows {
		name := "Unknown"
		if row.UserName != nil && *row.UserName != "" {
			name = *row.UserName
		}
		user := models.ReactionUser{ID: row.UserID, Name: name}

		if i, ok := index[row.Emoji]; ok {
			groups[i].Count++
			groups[i].Users = append(groups[i].Users, user)
			groups[i].UserIDs = append(groups[i].UserIDs, row.UserID)
			continue
		}

		index[row.Emoji] = len(groups)
		groups = append(groups, models.ReactionGroup{
			Emoji:   row.Emoji,
			Count:   1,
			Users:   []models.ReactionUser{user},
			UserIDs: []string{row.UserID},
		})
	}

	return groups
}
