package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"rewards_system/internal/accounts"
	"rewards_system/internal/catalog"
	"rewards_system/internal/dbtest"
	"rewards_system/internal/domain"
	"rewards_system/internal/ledger"
	"rewards_system/internal/middleware"
	"rewards_system/internal/realtime"
	"rewards_system/internal/rewards"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

const testSecret = "api-test-secret"

type APITestSuite struct {
	suite.Suite
	db     *gorm.DB
	router *gin.Engine
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

func (s *APITestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.db = dbtest.Open(s.T())
	engine := ledger.NewEngine(s.db, nil, nil, 5)
	cat := catalog.NewStore(s.db, nil)
	svc := rewards.NewService(engine, cat, rewards.Settings{
		DailyBonusBase:     decimal.NewFromInt(10),
		DailyBonusStep:     decimal.NewFromInt(5),
		DailyBonusMaxSteps: 6,
		ReferrerBonus:      decimal.NewFromInt(50),
		ReferredBonus:      decimal.NewFromInt(20),
		MinWithdrawal:      decimal.NewFromInt(100),
	}, nil)
	r, err := NewRouter(Deps{
		DB:        s.db,
		JWTSecret: testSecret,
		Accounts:  accounts.NewStore(s.db, nil, testSecret, decimal.NewFromInt(10)),
		Catalog:   cat,
		Ledger:    engine,
		Rewards:   svc,
		Hub:       realtime.NewHub(nil, testSecret),
		Limiter:   middleware.NewRateLimiter(100, 100),
	})
	s.Require().NoError(err)
	s.router = r
}

type call struct {
	method  string
	path    string
	body    any
	token   string
	headers map[string]string
}

func (s *APITestSuite) do(c call) (int, map[string]any) {
	var buf bytes.Buffer
	if c.body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	out := map[string]any{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w.Code, out
}

// signup registers and logs in a fresh account, returning its id and token
func (s *APITestSuite) signup(referralCode string) (uint, string) {
	email := gofakeit.Email()
	code, _ := s.do(call{method: http.MethodPost, path: "/user", body: gin.H{
		"email": email, "password": "password123", "referral_code": referralCode,
	}})
	s.Require().Equal(http.StatusCreated, code)

	code, body := s.do(call{method: http.MethodPost, path: "/user/login", body: gin.H{"email": email, "password": "password123"}})
	s.Require().Equal(http.StatusOK, code)
	acc := body["account"].(map[string]any)
	return uint(acc["id"].(float64)), body["token"].(string)
}

func (s *APITestSuite) promote(id uint) {
	s.Require().NoError(s.db.Model(&domain.Account{}).Where("id = ?", id).Update("role", domain.RoleAdmin).Error)
}

func (s *APITestSuite) deposit(token, amount string) {
	code, _ := s.do(call{method: http.MethodPost, path: "/wallet/deposit", token: token, body: gin.H{"amount": amount, "method": "bkash"}})
	s.Require().Equal(http.StatusOK, code)
}

func (s *APITestSuite) TestRegisterAndLogin() {
	email := gofakeit.Email()
	code, _ := s.do(call{method: http.MethodPost, path: "/user", body: gin.H{"email": email, "password": "short"}})
	s.Equal(http.StatusBadRequest, code)

	code, _ = s.do(call{method: http.MethodPost, path: "/user", body: gin.H{"email": email, "password": "password123"}})
	s.Require().Equal(http.StatusCreated, code)

	code, body := s.do(call{method: http.MethodPost, path: "/user", body: gin.H{"email": email, "password": "password123"}})
	s.Equal(http.StatusConflict, code)
	s.Equal("email_taken", body["code"])

	code, body = s.do(call{method: http.MethodPost, path: "/user/login", body: gin.H{"email": email, "password": "wrong-password"}})
	s.Equal(http.StatusUnauthorized, code)
	s.Equal("invalid_credentials", body["code"])

	code, body = s.do(call{method: http.MethodGet, path: "/user", body: gin.H{"email": email, "password": "password123"}})
	s.Equal(http.StatusOK, code)
	s.NotEmpty(body["token"])

	code, body = s.do(call{method: http.MethodPost, path: "/user", body: gin.H{
		"email": gofakeit.Email(), "password": "password123", "referral_code": "NOPE2345",
	}})
	s.Equal(http.StatusBadRequest, code)
	s.Equal("invalid_referral_code", body["code"])
}

func (s *APITestSuite) TestWalletRequiresToken() {
	code, _ := s.do(call{method: http.MethodGet, path: "/wallet"})
	s.Equal(http.StatusUnauthorized, code)
}

func (s *APITestSuite) TestDepositIdempotencyKey() {
	id, token := s.signup("")
	headers := map[string]string{middleware.IdempotencyHeader: "dep-1"}

	code, body := s.do(call{method: http.MethodPost, path: "/wallet/deposit", token: token, headers: headers, body: gin.H{"amount": "250"}})
	s.Require().Equal(http.StatusOK, code)
	s.Equal(ledger.ClientOperationID(id, "dep-1"), body["operation_id"])

	code, body = s.do(call{method: http.MethodPost, path: "/wallet/deposit", token: token, headers: headers, body: gin.H{"amount": "250"}})
	s.Equal(http.StatusConflict, code)
	s.Equal("duplicate_operation", body["code"])

	code, body = s.do(call{method: http.MethodGet, path: "/wallet", token: token})
	s.Require().Equal(http.StatusOK, code)
	s.Equal("250", body["balance"])

	code, body = s.do(call{method: http.MethodGet, path: "/wallet/reconcile", token: token})
	s.Require().Equal(http.StatusOK, code)
	s.Equal(true, body["ok"])

	code, body = s.do(call{method: http.MethodGet, path: "/wallet/transactions", token: token})
	s.Require().Equal(http.StatusOK, code)
	s.Len(body["transactions"], 1)
}

func (s *APITestSuite) TestIdempotencyKeyIsPerAccount() {
	_, first := s.signup("")
	_, second := s.signup("")
	headers := map[string]string{middleware.IdempotencyHeader: "1"}

	for _, token := range []string{first, second} {
		code, body := s.do(call{method: http.MethodPost, path: "/wallet/deposit", token: token, headers: headers, body: gin.H{"amount": "40"}})
		s.Require().Equal(http.StatusOK, code, body)
		code, body = s.do(call{method: http.MethodGet, path: "/wallet", token: token})
		s.Require().Equal(http.StatusOK, code)
		s.Equal("40", body["balance"])
	}

	code, body := s.do(call{method: http.MethodPost, path: "/wallet/deposit", token: second, headers: headers, body: gin.H{"amount": "40"}})
	s.Equal(http.StatusConflict, code)
	s.Equal("duplicate_operation", body["code"])
}

func (s *APITestSuite) TestDailyBonusLocalizedError() {
	_, token := s.signup("")
	code, body := s.do(call{method: http.MethodPost, path: "/rewards/daily-bonus", token: token})
	s.Require().Equal(http.StatusOK, code)
	s.Equal("10", body["amount"])

	code, body = s.do(call{method: http.MethodPost, path: "/rewards/daily-bonus", token: token})
	s.Equal(http.StatusConflict, code)
	s.Equal("already_claimed_today", body["code"])
	s.Equal("Already claimed today, come back tomorrow", body["error"])

	code, body = s.do(call{method: http.MethodPost, path: "/rewards/daily-bonus", token: token, headers: map[string]string{"Accept-Language": "bn-BD,bn;q=0.9,en;q=0.5"}})
	s.Equal(http.StatusConflict, code)
	s.Equal("আজ ইতিমধ্যে নেওয়া হয়েছে, আগামীকাল আবার চেষ্টা করুন", body["error"])
}

func (s *APITestSuite) TestAdminRoutes() {
	adminID, adminToken := s.signup("")
	userID, userToken := s.signup("")

	code, _ := s.do(call{method: http.MethodGet, path: "/admin/users", token: adminToken})
	s.Equal(http.StatusForbidden, code)
	s.promote(adminID)

	code, body := s.do(call{method: http.MethodGet, path: "/admin/users", token: adminToken})
	s.Require().Equal(http.StatusOK, code)
	s.EqualValues(2, body["total"])

	code, body = s.do(call{method: http.MethodPost, path: "/admin/catalog/products", token: adminToken, body: gin.H{
		"name": "Headphones", "price": "40", "stock": 1, "active": true,
	}})
	s.Require().Equal(http.StatusCreated, code)
	productID := uint(body["id"].(float64))

	code, body = s.do(call{method: http.MethodGet, path: "/catalog/products"})
	s.Require().Equal(http.StatusOK, code)
	s.Len(body["products"], 1)

	s.deposit(userToken, "100")
	purchase := fmt.Sprintf("/shop/products/%d/purchase", productID)
	code, body = s.do(call{method: http.MethodPost, path: purchase, token: userToken})
	s.Require().Equal(http.StatusOK, code)
	s.EqualValues(0, body["stock_left"])

	code, body = s.do(call{method: http.MethodPost, path: purchase, token: userToken})
	s.Equal(http.StatusConflict, code)
	s.Equal("out_of_stock", body["code"])

	code, body = s.do(call{method: http.MethodGet, path: fmt.Sprintf("/admin/transactions?account_id=%d&type=purchase", userID), token: adminToken})
	s.Require().Equal(http.StatusOK, code)
	s.EqualValues(1, body["total"])

	code, _ = s.do(call{method: http.MethodDelete, path: fmt.Sprintf("/admin/users/%d", adminID), token: adminToken})
	s.Equal(http.StatusBadRequest, code)

	code, _ = s.do(call{method: http.MethodDelete, path: fmt.Sprintf("/admin/users/%d", userID), token: adminToken})
	s.Equal(http.StatusOK, code)
	code, _ = s.do(call{method: http.MethodGet, path: "/wallet", token: userToken})
	s.Equal(http.StatusNotFound, code)
}

func (s *APITestSuite) TestInvestAndWithdraw() {
	adminID, adminToken := s.signup("")
	s.promote(adminID)
	_, token := s.signup("")

	code, body := s.do(call{method: http.MethodPost, path: "/admin/catalog/packages", token: adminToken, body: gin.H{
		"name": "Starter", "min_amount": "100", "max_amount": "1000", "daily_return_pct": "2", "duration_days": 30, "active": true,
	}})
	s.Require().Equal(http.StatusCreated, code)
	pkgPath := fmt.Sprintf("/invest/packages/%d", uint(body["id"].(float64)))

	code, body = s.do(call{method: http.MethodPost, path: pkgPath, token: token})
	s.Equal(http.StatusUnprocessableEntity, code)
	s.Equal("insufficient_funds", body["code"])

	s.deposit(token, "500")
	code, body = s.do(call{method: http.MethodPost, path: pkgPath, token: token, body: gin.H{"amount": "2000"}})
	s.Equal(http.StatusBadRequest, code)
	s.Equal("invalid_amount", body["code"])

	code, _ = s.do(call{method: http.MethodPost, path: pkgPath, token: token, body: gin.H{"amount": "200"}})
	s.Require().Equal(http.StatusCreated, code)

	code, body = s.do(call{method: http.MethodGet, path: "/invest", token: token})
	s.Require().Equal(http.StatusOK, code)
	s.Len(body["investments"], 1)

	code, body = s.do(call{method: http.MethodPost, path: "/wallet/withdraw", token: token, body: gin.H{"amount": "150", "method": "nagad", "details": "01700000000"}})
	s.Require().Equal(http.StatusCreated, code)
	withdrawalID := uint(body["id"].(float64))

	code, body = s.do(call{method: http.MethodGet, path: "/admin/withdrawals", token: adminToken})
	s.Require().Equal(http.StatusOK, code)
	s.Len(body["withdrawals"], 1)

	code, _ = s.do(call{method: http.MethodPost, path: fmt.Sprintf("/admin/withdrawals/%d/resolve", withdrawalID), token: adminToken, body: gin.H{"approve": false}})
	s.Require().Equal(http.StatusOK, code)

	code, body = s.do(call{method: http.MethodGet, path: "/wallet", token: token})
	s.Require().Equal(http.StatusOK, code)
	s.Equal("300", body["balance"])

	code, _ = s.do(call{method: http.MethodPost, path: "/admin/settle", token: adminToken})
	s.Equal(http.StatusOK, code)
}

func (s *APITestSuite) TestPublicCatalogAndOps() {
	code, body := s.do(call{method: http.MethodGet, path: "/catalog/tasks?kind=weekly"})
	s.Equal(http.StatusBadRequest, code)
	s.Equal("invalid_input", body["code"])

	code, body = s.do(call{method: http.MethodGet, path: "/catalog/spin-wheel"})
	s.Require().Equal(http.StatusOK, code)
	s.EqualValues(rewards.DefaultWheel.TotalWeight(), body["total_weight"])

	code, _ = s.do(call{method: http.MethodGet, path: "/healthz"})
	s.Equal(http.StatusOK, code)

	code, _ = s.do(call{method: http.MethodGet, path: "/metrics"})
	s.Equal(http.StatusOK, code)

	code, _ = s.do(call{method: http.MethodPost, path: "/rewards/tasks/abc/complete", token: "x"})
	s.Equal(http.StatusUnauthorized, code)
}

func (s *APITestSuite) TestReferralsListing() {
	referrerID, referrerToken := s.signup("")
	var referrer domain.Account
	s.Require().NoError(s.db.First(&referrer, referrerID).Error)
	s.signup(referrer.ReferralCode)

	code, body := s.do(call{method: http.MethodGet, path: "/rewards/referrals", token: referrerToken})
	s.Require().Equal(http.StatusOK, code)
	s.Len(body["referrals"], 1)
}
