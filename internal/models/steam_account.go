package models

import "time"

// SteamAccount is the last known state of a Steam account driven by the
// service. Credentials are never stored here; passwords stay in memory.
type SteamAccount struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	Username    string     `json:"username" gorm:"size:64;uniqueIndex;not null"`
	SteamID     string     `json:"steam_id" gorm:"size:32;index"`
	WebAPIKey   string     `json:"-" gorm:"size:64"`
	HasAPIKey   bool       `json:"has_api_key"`
	LastCode    string     `json:"last_code" gorm:"size:32"`
	TradeCode   string     `json:"trade_code" gorm:"size:32"`
	Balance     *float64   `json:"balance"`
	BalanceRaw  string     `json:"balance_raw" gorm:"size:32"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// LoginAttempt records the outcome of one login call.
type LoginAttempt struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	AttemptID string    `json:"attempt_id" gorm:"size:36;uniqueIndex;not null"`
	Username  string    `json:"username" gorm:"size:64;index;not null"`
	Code      string    `json:"code" gorm:"size:32"`
	Challenge string    `json:"challenge" gorm:"size:16"`
	Error     string    `json:"error,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}
