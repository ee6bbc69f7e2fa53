package models

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null"     json:"username"`
	Email        string    `gorm:"uniqueIndex;not null"     json:"email"`
	Name         string    `gorm:"not null"                 json:"name"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Role         string    `gorm:"not null"                 json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type Role struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	RoleName    string `gorm:"uniqueIndex;not null"     json:"role_name"`
	Description string `json:"description"`
}

type InvitationToken struct {
	ID    uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Token string `gorm:"uniqueIndex;not null"     json:"token"`
}

// UsedInvitationToken is the consumption ledger. The unique index on
// InvitationTokenID is what makes consumption an atomic check-and-insert:
// the second of two racing consumers hits a duplicate-key error.
type UsedInvitationToken struct {
	ID                uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	InvitationTokenID uint      `gorm:"uniqueIndex;not null"     json:"invitation_token_id"`
	UsedAt            time.Time `json:"used_at"`
}

type Session struct {
	ID        string    `gorm:"primaryKey"     json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	ExpiresAt int64     `gorm:"not null"       json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type Property struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string    `gorm:"not null"                 json:"title"`
	Description string    `json:"description"`
	Address     string    `gorm:"not null"                 json:"address"`
	Postcode    string    `gorm:"index"                    json:"postcode"`
	Price       int64     `gorm:"not null"                 json:"price"`
	Bedrooms    int       `json:"bedrooms"`
	Bathrooms   int       `json:"bathrooms"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
