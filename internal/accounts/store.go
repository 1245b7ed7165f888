// Package accounts owns sign-up, login and the admin paths over user accounts.
// Balances and reward counters are never written here; see the ledger package.
package accounts

import (
	"context"     // Request context
	"crypto/rand" // Referral code generation
	"errors"      // Sentinel matching
	"fmt"         // Error wrapping
	"math/big"    // Uniform index into the alphabet
	"regexp"      // Email validation
	"strings"     // Normalisation

	"rewards_system/internal/domain" // Domain models
	"rewards_system/internal/utils"  // Cache and JWT helpers

	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Money
	"github.com/sirupsen/logrus"    // Logging
	"golang.org/x/crypto/bcrypt"    // Password hashing
	"gorm.io/gorm"                  // GORM ORM library
)

const (
	referralCodeLen      = 8
	referralCodeAttempts = 10
	referralAlphabet     = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // No 0/O or 1/I
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Store reads and writes accounts
type Store struct {
	db        *gorm.DB
	rdb       *redis.Client
	jwtSecret string
	bonusBase decimal.Decimal
}

// NewStore creates an account store. rdb may be nil.
func NewStore(db *gorm.DB, rdb *redis.Client, jwtSecret string, bonusBase decimal.Decimal) *Store {
	return &Store{db: db, rdb: rdb, jwtSecret: jwtSecret, bonusBase: bonusBase}
}

// RegisterInput is what a new user submits
type RegisterInput struct {
	Email        string
	Password     string
	ReferralCode string
}

// isValidPassword checks the password length is between 8 and 64 characters
func isValidPassword(password string) bool {
	return len(password) >= 8 && len(password) <= 64
}

// Register creates an account with a fresh referral code, linked to the referrer when a code is given
func (s *Store) Register(ctx context.Context, in RegisterInput) (*domain.Account, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !emailPattern.MatchString(email) || !isValidPassword(in.Password) {
		return nil, domain.ErrInvalidInput
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acc := domain.Account{
		Email:            email,
		Password:         string(hash),
		Role:             domain.RoleUser,
		Balance:          decimal.Zero,
		DailyBonusAmount: s.bonusBase,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&domain.Account{}).Where("email = ?", email).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return domain.ErrEmailTaken
		}
		if code := strings.ToUpper(strings.TrimSpace(in.ReferralCode)); code != "" {
			var referrer domain.Account
			if err := tx.Select("id").Where("referral_code = ?", code).First(&referrer).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return domain.ErrInvalidReferralCode
				}
				return err
			}
			acc.ReferredBy = &referrer.ID
		}
		code, err := s.freeReferralCode(tx)
		if err != nil {
			return err
		}
		acc.ReferralCode = code
		if err := tx.Create(&acc).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrEmailTaken // Lost a race on the unique email index
			}
			return err
		}
		return nil
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{"email": email, "error": err.Error()}).Warn("Registration failed")
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"account_id": acc.ID, "referred_by": acc.ReferredBy}).Info("Account registered")
	return &acc, nil
}

// freeReferralCode draws codes until one is not in use
func (s *Store) freeReferralCode(tx *gorm.DB) (string, error) {
	for i := 0; i < referralCodeAttempts; i++ {
		code, err := NewReferralCode()
		if err != nil {
			return "", err
		}
		var n int64
		if err := tx.Model(&domain.Account{}).Where("referral_code = ?", code).Count(&n).Error; err != nil {
			return "", err
		}
		if n == 0 {
			return code, nil
		}
	}
	return "", errors.New("could not allocate a unique referral code")
}

// NewReferralCode returns a random code from the unambiguous alphabet
func NewReferralCode() (string, error) {
	max := big.NewInt(int64(len(referralAlphabet)))
	b := make([]byte, referralCodeLen)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = referralAlphabet[n.Int64()]
	}
	return string(b), nil
}

// Login checks the credentials and issues a session token
func (s *Store) Login(ctx context.Context, email, password string) (*domain.Account, string, error) {
	var acc domain.Account
	if err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", domain.ErrInvalidCredentials
		}
		return nil, "", err
	}
	// Compare provided password with stored hash
	if err := bcrypt.CompareHashAndPassword([]byte(acc.Password), []byte(password)); err != nil {
		return nil, "", domain.ErrInvalidCredentials
	}
	token, err := utils.GenerateJWT(acc.ID, s.jwtSecret)
	if err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}
	return &acc, token, nil
}

// Get returns the account, served from redis when cached
func (s *Store) Get(ctx context.Context, id uint) (*domain.Account, error) {
	var acc domain.Account
	if found, err := utils.GetCache(ctx, s.rdb, utils.AccountKey(id), &acc); err == nil && found {
		return &acc, nil
	}
	if err := s.db.WithContext(ctx).First(&acc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	if err := utils.SetCache(ctx, s.rdb, utils.AccountKey(id), acc, utils.CacheTTL); err != nil {
		logrus.WithFields(logrus.Fields{"account_id": id, "error": err.Error()}).Debug("Account cache write failed")
	}
	return &acc, nil
}

// FindByEmail looks an account up by its login email
func (s *Store) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var acc domain.Account
	if err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return &acc, nil
}

// AccountPage is one page of the admin account listing
type AccountPage struct {
	Accounts []domain.Account `json:"accounts"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Total    int64            `json:"total"`
}

// List returns accounts ordered by id
func (s *Store) List(ctx context.Context, page, pageSize int) (*AccountPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	q := s.db.WithContext(ctx).Model(&domain.Account{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}
	var list []domain.Account
	if err := q.Order("id").Offset((page - 1) * pageSize).Limit(pageSize).Find(&list).Error; err != nil {
		return nil, err
	}
	return &AccountPage{Accounts: list, Page: page, PageSize: pageSize, Total: total}, nil
}

// Referral is an account the caller brought in, with what the referral paid so far
type Referral struct {
	AccountID uint            `json:"account_id"`
	Email     string          `json:"email"`
	JoinedAt  string          `json:"joined_at"`
	Rewarded  bool            `json:"rewarded"`
	Earned    decimal.Decimal `json:"earned"`
}

// Referrals lists the accounts referred by id
func (s *Store) Referrals(ctx context.Context, id uint) ([]Referral, error) {
	var referred []domain.Account
	if err := s.db.WithContext(ctx).Where("referred_by = ?", id).Order("id").Find(&referred).Error; err != nil {
		return nil, err
	}
	var rewards []domain.ReferralReward
	if err := s.db.WithContext(ctx).Where("referrer_id = ?", id).Find(&rewards).Error; err != nil {
		return nil, err
	}
	paid := make(map[uint]decimal.Decimal, len(rewards))
	for _, r := range rewards {
		paid[r.ReferredID] = r.ReferrerAmount
	}
	out := make([]Referral, 0, len(referred))
	for _, a := range referred {
		earned, ok := paid[a.ID]
		out = append(out, Referral{
			AccountID: a.ID,
			Email:     maskEmail(a.Email),
			JoinedAt:  a.CreatedAt.Format("2006-01-02"),
			Rewarded:  ok,
			Earned:    earned,
		})
	}
	return out, nil
}

// maskEmail keeps the first letter and the domain
func maskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 1 {
		return email
	}
	return email[:1] + strings.Repeat("*", at-1) + email[at:]
}

// SetRole changes the role of an account
func (s *Store) SetRole(ctx context.Context, id uint, role string) error {
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return domain.ErrInvalidInput
	}
	q := s.db.WithContext(ctx).Model(&domain.Account{}).Where("id = ?", id).Update("role", role)
	if q.Error != nil {
		return q.Error
	}
	if q.RowsAffected == 0 {
		return domain.ErrAccountNotFound
	}
	_ = utils.DeleteCache(ctx, s.rdb, utils.AccountKey(id))
	logrus.WithFields(logrus.Fields{"account_id": id, "role": role}).Info("Account role changed")
	return nil
}

// Delete removes the account and everything that references it
func (s *Store) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var acc domain.Account
		if err := tx.Select("id").First(&acc, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrAccountNotFound
			}
			return err
		}
		// Referred accounts stay, only the back-link goes
		if err := tx.Model(&domain.Account{}).Where("referred_by = ?", id).Update("referred_by", nil).Error; err != nil {
			return err
		}
		steps := []struct {
			model any
			where string
		}{
			{&domain.Investment{}, "account_id = ?"},
			{&domain.RewardClaim{}, "account_id = ?"},
			{&domain.ReferralReward{}, "referrer_id = ? OR referred_id = ?"},
			{&domain.Withdrawal{}, "account_id = ?"},
			{&domain.Operation{}, "account_id = ?"},
			{&domain.Transaction{}, "account_id = ?"},
		}
		for _, st := range steps {
			args := []any{id}
			if strings.Count(st.where, "?") == 2 {
				args = append(args, id)
			}
			if err := tx.Where(st.where, args...).Delete(st.model).Error; err != nil {
				return fmt.Errorf("delete %T: %w", st.model, err)
			}
		}
		return tx.Delete(&domain.Account{}, id).Error
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{"account_id": id, "error": err.Error()}).Error("Account deletion failed")
		return err
	}
	_ = utils.DeleteCache(ctx, s.rdb, utils.AccountKey(id))
	_ = utils.DeletePrefix(ctx, s.rdb, utils.HistoryPrefix(id))
	logrus.WithField("account_id", id).Info("Account deleted")
	return nil
}
