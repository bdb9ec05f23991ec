package steamauth

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

// communityIDOffset converts a 32-bit account id into a 64-bit community id.
const communityIDOffset uint64 = 76561197960265728

// DefaultAbuseType is the report category used when none is given.
const DefaultAbuseType = 20

// ToCommunityID maps an account id (as found in trade offers) to the
// counterpart's community SteamID.
func ToCommunityID(accountID uint32) string {
	return strconv.FormatUint(uint64(accountID)+communityIDOffset, 10)
}

// TradeOffer is the part of a Web-API trade offer needed to accept it.
type TradeOffer struct {
	TradeOfferID   string `json:"tradeofferid"`
	AccountIDOther uint32 `json:"accountid_other"`
}

// AcceptTradeOffer accepts offer. It reports false when Steam did not hand
// back a trade id, including when the body could not be parsed.
func (c *Client) AcceptTradeOffer(ctx context.Context, offer TradeOffer) (bool, error) {
	if err := c.ensureSession(ctx, "accept_trade_offer"); err != nil {
		return false, err
	}

	offerPath := "/tradeoffer/" + offer.TradeOfferID + "/"
	body, err := c.send(ctx, request{
		method:   http.MethodPost,
		endpoint: offerPath + "accept",
		form: map[string]string{
			"sessionid":    c.session.SessionID,
			"serverid":     "1",
			"tradeofferid": offer.TradeOfferID,
			"partner":      ToCommunityID(offer.AccountIDOther),
		},
		headers: map[string]string{"Referer": c.cfg.CommunityURL + offerPath},
	})
	if err != nil {
		return false, err
	}

	var res map[string]json.RawMessage
	if err := json.Unmarshal(body, &res); err != nil {
		return false, nil
	}
	_, ok := res["tradeid"]
	return ok, nil
}

// reportSent is the loose success check for abuse reports. Steam answers a
// delivered report with pages containing either "sorry" or "error", so both
// count as sent. Whether "error" really means success is unconfirmed; keep
// the check as is until it has been verified against live responses.
func reportSent(body []byte) bool {
	lower := strings.ToLower(string(body))
	return strings.Contains(lower, "sorry") || strings.Contains(lower, "error")
}

// ReportAbuse files an abuse report against targetID. abuseType <= 0 uses
// DefaultAbuseType; appID may be empty.
func (c *Client) ReportAbuse(ctx context.Context, targetID string, abuseType int, description, appID string) (bool, error) {
	if err := c.ensureSession(ctx, "report_abuse"); err != nil {
		return false, err
	}
	if abuseType <= 0 {
		abuseType = DefaultAbuseType
	}

	body, err := c.send(ctx, request{
		method:   http.MethodPost,
		endpoint: "/actions/ReportAbuse/",
		query:    map[string]string{"l": "english"},
		form: map[string]string{
			"sessionid":        c.session.SessionID,
			"abuseID":          targetID,
			"eAbuseType":       strconv.Itoa(abuseType),
			"abuseDescription": description,
			"ingameAppID":      appID,
		},
	})
	if err != nil {
		return false, err
	}
	return reportSent(body), nil
}

// GroupInviteResult carries the decoded body for diagnostics.
type GroupInviteResult struct {
	OK       bool           `json:"ok"`
	Response map[string]any `json:"response"`
}

// InviteToGroup invites targetID into groupID.
func (c *Client) InviteToGroup(ctx context.Context, groupID, targetID string) (GroupInviteResult, error) {
	if err := c.ensureSession(ctx, "invite_to_group"); err != nil {
		return GroupInviteResult{}, err
	}

	body, err := c.send(ctx, request{
		method:   http.MethodPost,
		endpoint: "/actions/GroupInvite/",
		query:    map[string]string{"l": "english"},
		form: map[string]string{
			"sessionID": c.session.SessionID,
			"group":     groupID,
			"invitee":   targetID,
			"type":      "groupInvite",
			"json":      "1",
		},
	})
	if err != nil {
		return GroupInviteResult{}, err
	}

	var result GroupInviteResult
	if err := json.Unmarshal(body, &result.Response); err != nil {
		return result, nil
	}
	if status, ok := result.Response["results"].(string); ok && status == "OK" {
		result.OK = true
	}
	return result, nil
}

// Balance is the wallet balance shown on the market page.
type Balance struct {
	Raw    string  `json:"raw"`
	Amount float64 `json:"amount"`
}

var (
	walletBalanceMarker = regexp.MustCompile(`<span id="marketWalletBalanceAmount">(.+?)</span>`)
	leadingNumber       = regexp.MustCompile(`^[+-]?[0-9]*(\.[0-9]+)?`)
)

// parseBalance normalises "12,34€" style amounts. A decimal comma becomes a
// point, everything but digits, signs and points is dropped, and the longest
// numeric prefix is parsed.
func parseBalance(raw string) float64 {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == '+' || r == '-' {
			b.WriteRune(r)
		}
	}
	num := leadingNumber.FindString(b.String())
	amount, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	return amount
}

// Balance reads the wallet balance. ok is false when the market page does
// not show one; that is a soft failure, not an error.
func (c *Client) Balance(ctx context.Context) (balance Balance, ok bool, err error) {
	if err := c.ensureSession(ctx, "balance"); err != nil {
		return Balance{}, false, err
	}
	body, err := c.marketPage(ctx)
	if err != nil {
		return Balance{}, false, err
	}

	m := walletBalanceMarker.FindSubmatch(body)
	if m == nil {
		return Balance{}, false, nil
	}
	raw := strings.ReplaceAll(strings.TrimSpace(string(m[1])), ",", ".")
	return Balance{Raw: raw, Amount: parseBalance(raw)}, true, nil
}

// TradeStatus is the market trade eligibility. Every code is a normal
// outcome.
type TradeStatus struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

const (
	tradeWarningMarker = "market_warning_header"
	guardBanMarker     = "steam guard for 7 days"
)

func tradeStatusFromMarket(body []byte) TradeStatus {
	lower := strings.ToLower(string(body))
	if !strings.Contains(lower, tradeWarningMarker) {
		return TradeStatus{Code: CanTrade, Message: "This account can trade now."}
	}
	if strings.Contains(lower, guardBanMarker) {
		return TradeStatus{Code: Guard7DaysBan, Message: "Guard 7 days ban."}
	}
	return TradeStatus{Code: CantTrade, Message: "Unrecognized error."}
}

// CanTrade checks the market page for a trade restriction banner.
func (c *Client) CanTrade(ctx context.Context) (TradeStatus, error) {
	if err := c.ensureSession(ctx, "can_trade"); err != nil {
		return TradeStatus{}, err
	}
	body, err := c.marketPage(ctx)
	if err != nil {
		return TradeStatus{}, err
	}
	return tradeStatusFromMarket(body), nil
}

// VerifySession asks the market page whether the jar is really logged in,
// independent of the cached identity.
func (c *Client) VerifySession(ctx context.Context) (bool, error) {
	body, err := c.marketPage(ctx)
	if err != nil {
		return false, err
	}
	return strings.Contains(strings.ToLower(string(body)), "wallet balance"), nil
}

func (c *Client) marketPage(ctx context.Context) ([]byte, error) {
	return c.send(ctx, request{
		method:   http.MethodGet,
		endpoint: "/market/",
		query:    map[string]string{"l": "english"},
	})
}
