package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// OTPTTL is how long an issued verification code stays valid.
const OTPTTL = 10 * time.Minute

const (
	otpMin  = 100000
	otpSpan = 900000
)

// ErrInvalidUserID signals an empty user id when issuing a code.
var ErrInvalidUserID = errors.New("auth: user id is required")

// TwoFactorCode is one issued verification code.
type TwoFactorCode struct {
	UserID    string
	Code      string
	ExpiresAt time.Time
	Used      bool
}

// CodeStore records issued verification codes.
type CodeStore interface {
	InsertTwoFactorCode(ctx context.Context, code TwoFactorCode) error
}

// OTPIssuer generates six digit verification codes and stores them for the
// API to check against.
type OTPIssuer struct {
	store CodeStore
	now   func() time.Time
	rand  io.Reader
}

// NewOTPIssuer returns an issuer writing to store.
func NewOTPIssuer(store CodeStore) *OTPIssuer {
	return &OTPIssuer{store: store, now: time.Now, rand: rand.Reader}
}

// WithClock overrides the clock used for expiry.
func (o *OTPIssuer) WithClock(now func() time.Time) *OTPIssuer {
	o.now = now
	return o
}

// GenerateOTP issues an unused code for userID that expires after OTPTTL and
// returns it.
func (o *OTPIssuer) GenerateOTP(ctx context.Context, userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", ErrInvalidUserID
	}

	n, err := rand.Int(o.rand, big.NewInt(otpSpan))
	if err != nil {
		return "", fmt.Errorf("auth: generate otp: %w", err)
	}
	code := strconv.FormatInt(otpMin+n.Int64(), 10)

	rec := TwoFactorCode{
		UserID:    userID,
		Code:      code,
		ExpiresAt: o.now().Add(OTPTTL).UTC(),
	}
	if err := o.store.InsertTwoFactorCode(ctx, rec); err != nil {
		return "", fmt.Errorf("auth: generate otp: %w", err)
	}
	return code, nil
}
