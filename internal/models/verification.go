package models

import "time"

type VerificationPurpose string

const (
	PurposeVerification   VerificationPurpose = "verification"
	PurposePasswordReset  VerificationPurpose = "passwordReset"
	PurposePasswordChange VerificationPurpose = "passwordChange"
)

// ParsePurpose accepts the purpose names clients send. The long form of the
// change purpose is kept for older mobile builds.
func ParsePurpose(s string) (VerificationPurpose, bool) {
	switch s {
	case string(PurposeVerification):
		return PurposeVerification, true
	case string(PurposePasswordReset):
		return PurposePasswordReset, true
	case string(PurposePasswordChange), "passwordChangeConfirmation":
		return PurposePasswordChange, true
	}
	return "", false
}

// PendingVerification is the single outstanding one-time code of a user.
// StagedPasswordHash is only set for PurposePasswordChange.
type PendingVerification struct {
	UserID             int64
	Purpose            VerificationPurpose
	CodeHash           []byte
	ExpiresAt          time.Time
	StagedPasswordHash []byte
	CreatedAt          time.Time
}

func (p PendingVerification) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}
