package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "lifeslice/internal/errors"
	"lifeslice/internal/models"
)

const (
	linkCodeLength = 6
	linkCodeExpiry = 15 * time.Minute
)

const linkCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// telegramService handles Telegram linking and chat-command dispatch. The bot
// itself lives outside this process; it relays messages to the pipeline
// endpoints and sends our reply text back to the chat.
type telegramService struct {
	db         *gorm.DB
	slices     SliceServicer
	composites CompositeServicer
}

// NewTelegramService creates a new TelegramServicer.
func NewTelegramService(db *gorm.DB, slices SliceServicer, composites CompositeServicer) TelegramServicer {
	return &telegramService{db: db, slices: slices, composites: composites}
}

// GetLinkByUserID retrieves a Telegram link by user ID
func (s *telegramService) GetLinkByUserID(userID string) (*models.TelegramLink, error) {
	var link models.TelegramLink
	if err := s.db.Where("user_id = ?", userID).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &link, nil
}

// GetLinkByTelegramID retrieves a Telegram link by Telegram user ID
func (s *telegramService) GetLinkByTelegramID(telegramUserID int64) (*models.TelegramLink, error) {
	var link models.TelegramLink
	if err := s.db.Where("telegram_user_id = ? AND is_active = ?", telegramUserID, true).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &link, nil
}

// generateRandomCode returns a random code of the given length from the
// link-code alphabet (no ambiguous characters).
func generateRandomCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = linkCodeAlphabet[int(buf[i])%len(linkCodeAlphabet)]
	}
	return string(buf), nil
}

// GenerateLinkCode generates a new link code for a user
func (s *telegramService) GenerateLinkCode(userID string) (*models.TelegramLink, error) {
	// Check if user already has a link
	var existingLink models.TelegramLink
	dbErr := s.db.Where("user_id = ?", userID).First(&existingLink).Error

	code, err := generateRandomCode(linkCodeLength)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	expiresAt := time.Now().Add(linkCodeExpiry)

	if dbErr != nil {
		if errors.Is(dbErr, gorm.ErrRecordNotFound) {
			// Create new link record with pending code
			link := &models.TelegramLink{
				UserID:            userID,
				LinkCode:          code,
				LinkCodeExpiresAt: &expiresAt,
				IsActive:          false,
			}
			if err := s.db.Create(link).Error; err != nil {
				return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			return link, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, dbErr)
	}

	// Update existing link with new code
	existingLink.LinkCode = code
	existingLink.LinkCodeExpiresAt = &expiresAt

	if err := s.db.Save(&existingLink).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return &existingLink, nil
}

// CompleteLink completes the linking process by verifying the code
func (s *telegramService) CompleteLink(linkCode string, telegramUserID int64, username, firstName string) error {
	var link models.TelegramLink
	if err := s.db.Where("link_code = ?", linkCode).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrInvalidLinkCode
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// Check if code has expired
	if link.LinkCodeExpiresAt == nil || time.Now().After(*link.LinkCodeExpiresAt) {
		return apperrors.ErrLinkCodeExpired
	}

	// Check if this Telegram user is already linked to another account
	var existingLink models.TelegramLink
	err := s.db.Where("telegram_user_id = ? AND user_id != ?", telegramUserID, link.UserID).First(&existingLink).Error
	if err == nil {
		return apperrors.ErrTelegramAlreadyLinked
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// Update link with Telegram user info
	link.TelegramUserID = telegramUserID
	link.TelegramUsername = username
	link.TelegramFirstName = firstName
	link.LinkCode = ""
	link.LinkCodeExpiresAt = nil
	link.IsActive = true

	if err := s.db.Save(&link).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return nil
}

// UnlinkAccount unlinks a Telegram account from a user
func (s *telegramService) UnlinkAccount(userID string) error {
	result := s.db.Where("user_id = ?", userID).Delete(&models.TelegramLink{})
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

const helpText = `Commands:
/update <slug> <steps> - move a slice by signed steps (+2, -1)
/pct <slug> <percent> - change a slice by a percentage (-10)
/set <slug> <value> - set a slice to an absolute value
/done <slug> [key,key...] - check off composite components (all when omitted)
/status <slug> - show a slice's current state
/help - this message`

// HandleCommand parses one chat command from a linked Telegram user, dispatches
// it into the engine, and returns the reply text for the bot to send back.
func (s *telegramService) HandleCommand(telegramUserID int64, text string) (string, error) {
	link, err := s.GetLinkByTelegramID(telegramUserID)
	if err != nil {
		return "", err
	}

	now := time.Now()
	if err := s.db.Model(link).Updates(map[string]interface{}{
		"last_message_at": now,
		"message_count":   gorm.Expr("message_count + 1"),
	}).Error; err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return helpText, nil
	}

	switch fields[0] {
	case "/help", "/start":
		return helpText, nil

	case "/update":
		if len(fields) != 3 {
			return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "usage: /update <slug> <steps>")
		}
		steps, err := strconv.Atoi(fields[2])
		if err != nil {
			return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "steps must be a signed integer")
		}
		slice, err := s.slices.GetSliceBySlug(fields[1])
		if err != nil {
			return "", err
		}
		slice, err = s.slices.UpdateBySteps(slice.ID, steps, "telegram", false)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s is now %d (index %d)", slice.Slug, slice.CurrentValue, slice.CurrentIndex), nil

	case "/pct":
		if len(fields) != 3 {
			return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "usage: /pct <slug> <percent>")
		}
		pct, err := strconv.Atoi(strings.TrimSuffix(fields[2], "%"))
		if err != nil {
			return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "percent must be a signed integer")
		}
		slice, err := s.slices.GetSliceBySlug(fields[1])
		if err != nil {
			return "", err
		}
		slice, err = s.slices.UpdateByPercentage(slice.ID, pct, "telegram")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s is now %d (index %d)", slice.Slug, slice.CurrentValue, slice.CurrentIndex), nil

	case "/set":
		if len(fields) != 3 {
			return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "usage: /set <slug> <value>")
		}
		value, err := strconv.Atoi(fields[2])
		if err != nil {
			return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "value must be an integer")
		}
		slice, err := s.slices.GetSliceBySlug(fields[1])
		if err != nil {
			return "", err
		}
		slice, err = s.slices.UpdateToValue(slice.ID, value, "telegram")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s is now %d (index %d)", slice.Slug, slice.CurrentValue, slice.CurrentIndex), nil

	case "/done":
		if len(fields) < 2 {
			return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "usage: /done <slug> [key,key...]")
		}
		slice, err := s.slices.GetSliceBySlug(fields[1])
		if err != nil {
			return "", err
		}
		var keys []string
		if len(fields) >= 3 {
			keys = strings.Split(fields[2], ",")
		} else {
			for _, c := range slice.Components {
				keys = append(keys, c.Key)
			}
		}
		updated, err := s.composites.UpdateMultipleComponents(slice.ID, keys, "telegram")
		if err != nil {
			return "", err
		}
		slice, err = s.slices.GetSliceByID(slice.ID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("checked off %d component(s), %s is now %d", updated, slice.Slug, slice.CurrentValue), nil

	case "/status":
		if len(fields) != 2 {
			return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "usage: /status <slug>")
		}
		status, err := s.slices.GetSliceStatus(fields[1])
		if err != nil {
			return "", err
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%s: %d", status.Name, status.CurrentValue)
		if !status.IsComposite {
			fmt.Fprintf(&b, " (index %d)", status.CurrentIndex)
		}
		if status.LastUpdateAt != nil {
			fmt.Fprintf(&b, "\nlast update: %s", status.LastUpdateAt.Format(time.RFC822))
		}
		for _, c := range status.Components {
			fmt.Fprintf(&b, "\n- %s: %d/%d", c.Key, c.CurrentValue, c.MaxValue)
		}
		return b.String(), nil
	}

	return "", apperrors.ErrUnknownCommand
}
