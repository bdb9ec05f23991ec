package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"steam-trader/internal/models"
	"steam-trader/internal/services/steamauth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestTimeout = 60 * time.Second

type APIHandler struct {
	store    AccountStore
	accounts *Registry
	hub      *Hub
	now      func() time.Time
}

func SetupRoutes(r *gin.RouterGroup, store AccountStore, accounts *Registry, hub *Hub) *APIHandler {
	handler := &APIHandler{
		store:    store,
		accounts: accounts,
		hub:      hub,
		now:      time.Now,
	}

	steam := r.Group("/steam")
	{
		steam.GET("/accounts", handler.ListAccounts)

		account := steam.Group("/accounts/:username")
		// 登录与会话
		account.POST("/login", handler.Login)
		account.GET("/session", handler.GetSession)
		account.GET("/session/verify", handler.VerifySession)
		account.GET("/apikey", handler.GetAPIKey)
		account.GET("/profile", handler.GetProfile)

		// 市场状态
		account.GET("/balance", handler.GetBalance)
		account.GET("/can-trade", handler.CanTrade)

		// 社区操作
		account.POST("/offers/accept", handler.AcceptOffer)
		account.GET("/offers", handler.ListOffers)
		account.POST("/report", handler.Report)
		account.POST("/group-invite", handler.InviteToGroup)
	}

	return handler
}

// withAccount runs fn against the username's client under its lock.
func (h *APIHandler) withAccount(c *gin.Context, fn func(ctx context.Context, client *steamauth.Client) error) {
	acc, err := h.accounts.Get(c.Param("username"))
	if err != nil {
		log.Printf("open account %s: %v", c.Param("username"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()
	if err := acc.Do(func(client *steamauth.Client) error { return fn(ctx, client) }); err != nil {
		respondError(c, err)
	}
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, steamauth.ErrNotLoggedIn):
		status = http.StatusUnauthorized
	case errors.Is(err, steamauth.ErrTransport), errors.Is(err, steamauth.ErrUnexpectedResponse):
		status = http.StatusBadGateway
	}
	log.Printf("steam request %s failed: %v", c.FullPath(), err)
	c.JSON(status, gin.H{"error": err.Error()})
}

type loginRequest struct {
	Password      string `json:"password"`
	CaptchaText   string `json:"captcha_text"`
	EmailCode     string `json:"email_code"`
	TwoFactorCode string `json:"two_factor_code"`
	APIKeyDomain  string `json:"api_key_domain"`
}

// Login 执行一次登录尝试，返回结果码以及需要用户补充的验证信息
func (h *APIHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	h.withAccount(c, func(ctx context.Context, client *steamauth.Client) error {
		if req.Password != "" {
			client.SetPassword(req.Password)
		}
		if req.CaptchaText != "" {
			client.SetCaptchaText(req.CaptchaText)
		}
		if req.EmailCode != "" {
			client.SetEmailCode(req.EmailCode)
		}
		if req.TwoFactorCode != "" {
			client.SetTwoFactorCode(req.TwoFactorCode)
		}
		if req.APIKeyDomain != "" {
			client.SetAPIKeyDomain(req.APIKeyDomain)
		}

		res, err := client.Login(ctx)
		if err != nil {
			res.Code = steamauth.LoginFail
		}
		attempt := models.LoginAttempt{
			AttemptID: uuid.NewString(),
			Username:  client.Username(),
			Code:      res.Code.String(),
			Challenge: client.Challenge().Kind.String(),
			CreatedAt: h.now(),
		}
		if err != nil {
			attempt.Error = err.Error()
		}
		if serr := h.store.RecordLogin(ctx, attempt, accountFromLogin(client, res, attempt.CreatedAt)); serr != nil {
			log.Printf("record login for %s: %v", client.Username(), serr)
		}
		if err != nil {
			return err
		}

		ch := client.Challenge()
		captchaURL := ""
		if ch.Kind == steamauth.ChallengeCaptcha {
			captchaURL = client.CaptchaURL()
		}
		h.hub.Broadcast(LoginEvent{
			AttemptID:  attempt.AttemptID,
			Username:   attempt.Username,
			Code:       res.Code,
			Challenge:  ch.Kind,
			CaptchaURL: captchaURL,
			Time:       attempt.CreatedAt,
		})

		c.JSON(http.StatusOK, gin.H{
			"attempt_id":    attempt.AttemptID,
			"code":          res.Code,
			"challenge":     ch.Kind,
			"captcha_url":   captchaURL,
			"steam_id_hint": ch.SteamIDHint,
			"session":       client.Session(),
			"has_api_key":   client.APIKey().Value != "",
		})
		return nil
	})
}

func (h *APIHandler) GetSession(c *gin.Context) {
	h.withAccount(c, func(ctx context.Context, client *steamauth.Client) error {
		c.JSON(http.StatusOK, gin.H{
			"username":  client.Username(),
			"logged_in": client.LoggedIn(),
			"session":   client.Session(),
			"challenge": client.Challenge().Kind,
		})
		return nil
	})
}

// VerifySession 通过市场页面确认会话仍然有效
func (h *APIHandler) VerifySession(c *gin.Context) {
	h.withAccount(c, func(ctx context.Context, client *steamauth.Client) error {
		ok, err := client.VerifySession(ctx)
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, gin.H{"logged_in": ok})
		return nil
	})
}

// GetAPIKey 返回已配置的 Web API key。登录后只申请一次，空值即最终结果。
func (h *APIHandler) GetAPIKey(c *gin.Context) {
	validate := c.Query("validate") == "1"
	h.withAccount(c, func(ctx context.Context, client *steamauth.Client) error {
		key := client.APIKey()
		if !key.Provisioned && client.LoggedIn() {
			var err error
			if key, err = client.EnsureAPIKey(ctx); err != nil {
				return err
			}
		}

		resp := gin.H{
			"api_key":     key.Value,
			"domain":      key.Domain,
			"available":   key.Value != "",
			"provisioned": key.Provisioned,
		}
		if validate && key.Value != "" {
			err := h.accounts.WebAPI(client).ValidateAPIKey(ctx)
			resp["valid"] = err == nil
			if err != nil {
				log.Printf("web api key for %s rejected: %v", client.Username(), err)
			}
		}
		c.JSON(http.StatusOK, resp)
		return nil
	})
}

// GetProfile 通过 Web API 读取当前账号的资料
func (h *APIHandler) GetProfile(c *gin.Context) {
	h.withAccount(c, func(ctx context.Context, client *steamauth.Client) error {
		session := client.Session()
		if !session.Authenticated() {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "account is not logged in"})
			return nil
		}
		webAPI := h.accounts.WebAPI(client)
		if webAPI.APIKey() == "" {
			c.JSON(http.StatusConflict, gin.H{"error": "account has no web api key"})
			return nil
		}
		user, err := webAPI.GetUserInfo(ctx, session.SteamID)
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, user)
		return nil
	})
}

// GetBalance 获取钱包余额
func (h *APIHandler) GetBalance(c *gin.Context) {
	h.withAccount(c, func(ctx context.Context, client *steamauth.Client) error {
		balance, ok, err := client.Balance(ctx)
		if err != nil {
			return err
		}
		if ok {
			if serr := h.store.RecordBalance(ctx, client.Username(), balance); serr != nil {
				log.Printf("record balance for %s: %v", client.Username(), serr)
			}
		}
		c.JSON(http.StatusOK, gin.H{"available": ok, "balance": balance})
		return nil
	})
}

func (h *APIHandler) CanTrade(c *gin.Context) {
	h.withAccount(c, func(ctx context.Context, client *steamauth.Client) error {
		status, err := client.CanTrade(ctx)
		if err != nil {
			return err
		}
		if serr := h.store.RecordTradeStatus(ctx, client.Username(), status); serr != nil {
			log.Printf("record trade status for %s: %v", client.Username(), serr)
		}
		c.JSON(http.StatusOK, status)
		return nil
	})
}

type acceptOfferRequest struct {
	TradeOfferID   string `json:"tradeofferid" binding:"required"`
	AccountIDOther uint32 `json:"accountid_other" binding:"required"`
}

// AcceptOffer 接受交易报价
func (h *APIHandler) AcceptOffer(c *gin.Context) {
	var req acceptOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tradeofferid and accountid_other are required"})
		return
	}
	h.withAccount(c, func(ctx context.Context, client *steamauth.Client) error {
		ok, err := client.AcceptTradeOffer(ctx, steamauth.TradeOffer{
			TradeOfferID:   req.TradeOfferID,
			AccountIDOther: req.AccountIDOther,
		})
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, gin.H{"accepted": ok})
		return nil
	})
}

// ListOffers 通过 Web API 查询当前账号的交易报价
func (h *APIHandler) ListOffers(c *gin.Context) {
	h.withAccount(c, func(ctx context.Context, client *steamauth.Client) error {
		webAPI := h.accounts.WebAPI(client)
		if webAPI.APIKey() == "" {
			c.JSON(http.StatusConflict, gin.H{"error": "account has no web api key"})
			return nil
		}
		params := map[string]string{
			"get_sent_offers":     c.DefaultQuery("sent", "0"),
			"get_received_offers": c.DefaultQuery("received", "1"),
			"active_only":         c.DefaultQuery("active_only", "1"),
		}
		resp, err := webAPI.GetTradeOffers(ctx, params)
		if err != nil {
			return err
		}
		c.Data(resp.StatusCode, "application/json; charset=utf-8", resp.Body)
		return nil
	})
}

type reportRequest struct {
	SteamID     string `json:"steam_id" binding:"required"`
	AbuseType   int    `json:"abuse_type"`
	Description string `json:"description"`
	AppID       string `json:"app_id"`
}

func (h *APIHandler) Report(c *gin.Context) {
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "steam_id is required"})
		return
	}
	if req.AbuseType == 0 {
		req.AbuseType = steamauth.DefaultAbuseType
	}
	h.withAccount(c, func(ctx context.Context, client *steamauth.Client) error {
		sent, err := client.ReportAbuse(ctx, req.SteamID, req.AbuseType, req.Description, req.AppID)
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, gin.H{"sent": sent})
		return nil
	})
}

type groupInviteRequest struct {
	GroupID string `json:"group_id" binding:"required"`
	SteamID string `json:"steam_id" binding:"required"`
}

// InviteToGroup 邀请用户加入群组
func (h *APIHandler) InviteToGroup(c *gin.Context) {
	var req groupInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "group_id and steam_id are required"})
		return
	}
	h.withAccount(c, func(ctx context.Context, client *steamauth.Client) error {
		res, err := client.InviteToGroup(ctx, req.GroupID, req.SteamID)
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, res)
		return nil
	})
}

func (h *APIHandler) ListAccounts(c *gin.Context) {
	accounts, err := h.store.ListAccounts(c.Request.Context())
	if err != nil {
		log.Printf("list accounts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts, "total": len(accounts)})
}
