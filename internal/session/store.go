package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hfenton/property_search/internal/models"
)

const (
	CookieName = "session"
	TTL        = 7 * 24 * time.Hour
)

var ErrNotFound = errors.New("session not found")

// Store keeps server-side sessions in the database. The cookie carries only
// the session id, signed with the session secret so a tampered id never
// reaches the store.
type Store struct {
	DB     *gorm.DB
	Secret []byte
}

func (s *Store) Create(ctx context.Context, userID uint) (string, error) {
	record := models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(TTL).Unix(),
	}
	if err := s.DB.WithContext(ctx).Create(&record).Error; err != nil {
		return "", err
	}
	return record.ID, nil
}

func (s *Store) Get(ctx context.Context, sid string) (*models.Session, error) {
	var record models.Session
	if err := s.DB.WithContext(ctx).Where("id = ?", sid).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if record.ExpiresAt < time.Now().Unix() {
		_ = s.Destroy(ctx, sid)
		return nil, ErrNotFound
	}
	return &record, nil
}

func (s *Store) Destroy(ctx context.Context, sid string) error {
	return s.DB.WithContext(ctx).Where("id = ?", sid).Delete(&models.Session{}).Error
}

// Sign produces the cookie value for a session id.
func (s *Store) Sign(sid string) string {
	return sid + "." + s.mac(sid)
}

// Verify splits and checks a cookie value, returning the session id.
func (s *Store) Verify(value string) (string, bool) {
	sid, sig, ok := strings.Cut(value, ".")
	if !ok || sid == "" {
		return "", false
	}
	if !hmac.Equal([]byte(sig), []byte(s.mac(sid))) {
		return "", false
	}
	return sid, true
}

func (s *Store) mac(sid string) string {
	h := hmac.New(sha256.New, s.Secret)
	h.Write([]byte(sid))
	return hex.EncodeToString(h.Sum(nil))
}
