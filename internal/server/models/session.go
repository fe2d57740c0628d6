package models

import "strings"

// TokenKind selects the expiry and use-count policy attached to a session
// token at issuance.
type TokenKind string

const (
	// TokenKindSession expires after a fixed TTL and has unlimited uses.
	TokenKindSession TokenKind = "SESSION"
	// TokenKindDays expires after a caller-supplied number of days.
	TokenKindDays TokenKind = "DAYS"
	// TokenKindUses never expires on time but allows exactly N resolutions.
	TokenKindUses TokenKind = "USES"
	// TokenKindPermanent never expires and has unlimited uses.
	TokenKindPermanent TokenKind = "PERMANENT"
)

// ParseTokenKind maps a stored kind string back to a TokenKind, defaulting
// to TokenKindSession for blank or unknown values.
func ParseTokenKind(raw string) TokenKind {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(TokenKindDays):
		return TokenKindDays
	case string(TokenKindUses):
		return TokenKindUses
	case string(TokenKindPermanent):
		return TokenKindPermanent
	default:
		return TokenKindSession
	}
}

// Session is a bearer credential resolving to an owning account. Token is
// the lookup key. ExpiresAt of 0 means no absolute expiry; RemainingUses of
// -1 means not use-limited. Only the session service mutates these records.
type Session struct {
	Token         string    `json:"token"`
	AccountID     string    `json:"accountId"`
	CreatedAt     int64     `json:"createdAt"`
	ExpiresAt     int64     `json:"expiresAt"`
	Kind          TokenKind `json:"type"`
	RemainingUses int       `json:"remainingUses"`
}
