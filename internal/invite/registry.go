package invite

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"gorm.io/gorm"

	"github.com/hfenton/property_search/internal/models"
)

const tokenLength = 30

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var (
	ErrNotFound    = errors.New("invitation token not found")
	ErrAlreadyUsed = errors.New("invitation token already used")
)

// Status is the three-way validity result. Callers need to tell a token
// that never existed apart from one that was already spent.
type Status int

const (
	StatusNotFound Status = iota
	StatusUsed
	StatusValid
)

// Registry stores invitation tokens and enforces at-most-once consumption
// through the used-token ledger.
type Registry struct {
	DB *gorm.DB
}

func (r *Registry) Create(ctx context.Context) (string, error) {
	token, err := randomToken(tokenLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate invitation token: %w", err)
	}
	record := models.InvitationToken{Token: token}
	if err := r.DB.WithContext(ctx).Create(&record).Error; err != nil {
		return "", fmt.Errorf("failed to store invitation token: %w", err)
	}
	return token, nil
}

func (r *Registry) Check(ctx context.Context, token string) (Status, error) {
	var record models.InvitationToken
	if err := r.DB.WithContext(ctx).Where("token = ?", token).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return StatusNotFound, nil
		}
		return StatusNotFound, err
	}

	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.UsedInvitationToken{}).
		Where("invitation_token_id = ?", record.ID).
		Count(&count).Error; err != nil {
		return StatusNotFound, err
	}
	if count > 0 {
		return StatusUsed, nil
	}
	return StatusValid, nil
}

// Consume spends the token. Exactly one of two concurrent consumers
// succeeds; the loser sees ErrAlreadyUsed from the ledger's unique key.
func (r *Registry) Consume(ctx context.Context, token string) error {
	return ConsumeTx(r.DB.WithContext(ctx), token)
}

// ConsumeTx is Consume running on a caller-supplied handle, so registration
// can spend the token inside the same transaction that inserts the user.
func ConsumeTx(db *gorm.DB, token string) error {
	var record models.InvitationToken
	if err := db.Where("token = ?", token).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	used := models.UsedInvitationToken{
		InvitationTokenID: record.ID,
		UsedAt:            time.Now(),
	}
	if err := db.Create(&used).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyUsed
		}
		return err
	}
	return nil
}

func randomToken(length int) (string, error) {
	out := make([]byte, length)
	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = tokenAlphabet[n.Int64()]
	}
	return string(out), nil
}
