package auth

import (
	"bytes"
	"encoding/json"
	"regexp"
)

// verificationCodePattern catches backends that ask for a second factor only
// in the message text.
var verificationCodePattern = regexp.MustCompile(`(?i)verification code`)

// flexString decodes a JSON string or number into a string.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// loginPayload lists every field name the login and verify endpoints have
// been seen to use.
type loginPayload struct {
	Requires2FA       *bool       `json:"requires2FA"`
	RequiresTwoFactor *bool       `json:"requiresTwoFactor"`
	UserID            *flexString `json:"userId"`
	UserIDSnake       *flexString `json:"user_id"`
	AccessToken       *string     `json:"accessToken"`
	Token             *string     `json:"token"`
	User              *User       `json:"user"`
	Message           *string     `json:"message"`
	Msg               *string     `json:"msg"`
	Description       *string     `json:"description"`
	Detail            *string     `json:"detail"`
}

type rawLoginResponse struct {
	loginPayload
	Data *loginPayload `json:"data"`
}

// normalizedLogin is the adapter's output. Nothing outside this file looks at
// raw payload field names.
type normalizedLogin struct {
	requires2FA bool
	userID      string
	accessToken string
	user        *User
	message     string
}

// pending reports whether the server asked for a second factor, explicitly or
// through the message text.
func (n normalizedLogin) pending() bool {
	return n.requires2FA || (n.message != "" && verificationCodePattern.MatchString(n.message))
}

// normalizeLogin merges the top level with the data envelope; fields in the
// envelope win.
func normalizeLogin(raw rawLoginResponse) normalizedLogin {
	merged := raw.loginPayload
	if raw.Data != nil {
		merged = merge(merged, *raw.Data)
	}

	var out normalizedLogin
	if flag := firstBool(merged.Requires2FA, merged.RequiresTwoFactor); flag != nil {
		out.requires2FA = *flag
	}
	if id := firstFlex(merged.UserID, merged.UserIDSnake); id != nil {
		out.userID = string(*id)
	}
	out.accessToken = firstString(merged.AccessToken, merged.Token)
	out.user = merged.User
	out.message = firstString(merged.Message, merged.Msg, merged.Description, merged.Detail)
	return out
}

func merge(base, over loginPayload) loginPayload {
	if over.Requires2FA != nil {
		base.Requires2FA = over.Requires2FA
	}
	if over.RequiresTwoFactor != nil {
		base.RequiresTwoFactor = over.RequiresTwoFactor
	}
	if over.UserID != nil {
		base.UserID = over.UserID
	}
	if over.UserIDSnake != nil {
		base.UserIDSnake = over.UserIDSnake
	}
	if over.AccessToken != nil {
		base.AccessToken = over.AccessToken
	}
	if over.Token != nil {
		base.Token = over.Token
	}
	if over.User != nil {
		base.User = over.User
	}
	if over.Message != nil {
		base.Message = over.Message
	}
	if over.Msg != nil {
		base.Msg = over.Msg
	}
	if over.Description != nil {
		base.Description = over.Description
	}
	if over.Detail != nil {
		base.Detail = over.Detail
	}
	return base
}

func firstBool(vals ...*bool) *bool {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstFlex(vals ...*flexString) *flexString {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

// firstString mirrors the nullish chain of the dashboard: the first present
// field wins even when it is empty.
func firstString(vals ...*string) string {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return ""
}
