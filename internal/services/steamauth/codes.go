package steamauth

import "fmt"

// Code is the stable result vocabulary of the client. The numeric values are
// part of the public contract and must not be renumbered.
type Code int

const (
	BadRsa         Code = 2
	NeedCaptcha    Code = 3
	NeedEmail      Code = 4
	Need2FA        Code = 5
	BadCredentials Code = 6
	LoginSuccess   Code = 7
	LoginFail      Code = 8

	CantTrade     Code = 99
	CanTrade      Code = 100
	Guard7DaysBan Code = 101
)

var codeNames = map[Code]string{
	BadRsa:         "BadRsa",
	NeedCaptcha:    "NeedCaptcha",
	NeedEmail:      "NeedEmail",
	Need2FA:        "Need2FA",
	BadCredentials: "BadCredentials",
	LoginSuccess:   "LoginSuccess",
	LoginFail:      "LoginFail",
	CantTrade:      "CantTrade",
	CanTrade:       "CanTrade",
	Guard7DaysBan:  "Guard7DaysBan",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// MarshalText encodes the code by name so JSON payloads carry "NeedCaptcha"
// rather than 3.
func (c Code) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (c *Code) UnmarshalText(text []byte) error {
	for code, name := range codeNames {
		if name == string(text) {
			*c = code
			return nil
		}
	}
	return fmt.Errorf("unknown steamauth code %q", string(text))
}

// IsChallenge reports whether the code asks the caller for another proof.
func (c Code) IsChallenge() bool {
	return c == NeedCaptcha || c == NeedEmail || c == Need2FA
}
