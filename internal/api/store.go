package api

import (
	"context"
	"time"

	"steam-trader/internal/models"
	"steam-trader/internal/services/steamauth"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccountStore persists what the service learns about its accounts.
type AccountStore interface {
	RecordLogin(ctx context.Context, attempt models.LoginAttempt, account models.SteamAccount) error
	RecordTradeStatus(ctx context.Context, username string, status steamauth.TradeStatus) error
	RecordBalance(ctx context.Context, username string, balance steamauth.Balance) error
	ListAccounts(ctx context.Context) ([]models.SteamAccount, error)
}

type GormAccountStore struct {
	db *gorm.DB
}

func NewGormAccountStore(db *gorm.DB) *GormAccountStore {
	return &GormAccountStore{db: db}
}

// upsertAccount inserts account or, when the username exists, overwrites
// only columns (plus updated_at).
func upsertAccount(tx *gorm.DB, account *models.SteamAccount, columns ...string) *gorm.DB {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns(append(columns, "updated_at")),
	}).Create(account)
}

// loginColumns are the account columns a login attempt may overwrite. Only a
// successful login replaces the identity and key.
func loginColumns(account models.SteamAccount) []string {
	columns := []string{"last_code"}
	if account.LastLoginAt != nil {
		columns = append(columns, "steam_id", "web_api_key", "has_api_key", "last_login_at")
	}
	return columns
}

func (s *GormAccountStore) RecordLogin(ctx context.Context, attempt models.LoginAttempt, account models.SteamAccount) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&attempt).Error; err != nil {
			return err
		}
		return upsertAccount(tx, &account, loginColumns(account)...).Error
	})
}

func (s *GormAccountStore) RecordTradeStatus(ctx context.Context, username string, status steamauth.TradeStatus) error {
	account := models.SteamAccount{Username: username, TradeCode: status.Code.String()}
	return upsertAccount(s.db.WithContext(ctx), &account, "trade_code").Error
}

func (s *GormAccountStore) RecordBalance(ctx context.Context, username string, balance steamauth.Balance) error {
	amount := balance.Amount
	account := models.SteamAccount{Username: username, Balance: &amount, BalanceRaw: balance.Raw}
	return upsertAccount(s.db.WithContext(ctx), &account, "balance", "balance_raw").Error
}

func listAccounts(tx *gorm.DB, accounts *[]models.SteamAccount) *gorm.DB {
	return tx.Order("username").Find(accounts)
}

func (s *GormAccountStore) ListAccounts(ctx context.Context) ([]models.SteamAccount, error) {
	var accounts []models.SteamAccount
	err := listAccounts(s.db.WithContext(ctx), &accounts).Error
	return accounts, err
}

func accountFromLogin(c *steamauth.Client, res steamauth.AuthResult, now time.Time) models.SteamAccount {
	account := models.SteamAccount{
		Username: c.Username(),
		LastCode: res.Code.String(),
	}
	if res.Code == steamauth.LoginSuccess {
		key := c.APIKey().Value
		account.SteamID = c.Session().SteamID
		account.WebAPIKey = key
		account.HasAPIKey = key != ""
		account.LastLoginAt = &now
	}
	return account
}
