package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/apperr"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/config"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/mail"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/models"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/security"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/testfixtures"
)

func TestRegisterRejectsForeignDomainRegardlessOfPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, password := range []string{"", "x", testPassword, strings.Repeat("S3cure!", 10)} {
		_, err := f.auth.Register(ctx, RegisterInput{Username: "mallory", Email: "mallory@gmail.com", Password: password})
		if password == "" {
			requireKind(t, err, apperr.KindValidation)
			continue
		}
		appErr := requireKind(t, err, apperr.KindValidation)
		if appErr.Code != "invalid_email_domain" {
			t.Errorf("password %q: expected invalid_email_domain, got %s", password, appErr.Code)
		}
	}
	if n := len(f.mailer.Messages()); n != 0 {
		t.Fatalf("expected no mail, got %d", n)
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input RegisterInput
		code  string
	}{
		{"missing email", RegisterInput{Username: "amy", Password: testPassword}, "missing_fields"},
		{"short username", RegisterInput{Username: "am", Email: "amy@lpu.in", Password: testPassword}, "invalid_username"},
		{"short password", RegisterInput{Username: "amy", Email: "amy@lpu.in", Password: "12345"}, "weak_password"},
	}
	for _, tt := range tests {
		_, err := f.auth.Register(ctx, tt.input)
		appErr := requireKind(t, err, apperr.KindValidation)
		if appErr.Code != tt.code {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.code, appErr.Code)
		}
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.auth.Register(ctx, RegisterInput{Username: "amy", Email: "Amy@LPU.in", Password: testPassword})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.UserID == 0 || res.Message == "" {
		t.Fatalf("unexpected result %+v", res)
	}

	_, err = f.auth.Register(ctx, RegisterInput{Username: "amy2", Email: "amy@lpu.in", Password: testPassword})
	requireKind(t, err, apperr.KindConflict)
}

func TestLoginUnverifiedIsForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.auth.Register(ctx, RegisterInput{Username: "amy", Email: "amy@lpu.in", Password: testPassword}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	res, err := f.auth.Login(ctx, "amy@lpu.in", testPassword)
	requireKind(t, err, apperr.KindForbidden)
	if res.Token != "" {
		t.Fatal("unverified login must not issue a token")
	}

	_, err = f.auth.Login(ctx, "amy@lpu.in", "wrong-password")
	requireKind(t, err, apperr.KindUnauthorized)
	_, err = f.auth.Login(ctx, "nobody@lpu.in", testPassword)
	requireKind(t, err, apperr.KindUnauthorized)
}

func TestVerifyEmailAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.auth.Register(ctx, RegisterInput{Username: "amy", Email: "amy@lpu.in", Password: testPassword}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	code, _ := f.mailer.LastCode("amy@lpu.in", mail.KindVerification)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	appErr := requireKind(t, f.auth.VerifyEmail(ctx, "amy@lpu.in", wrong), apperr.KindValidation)
	if appErr.Code != "invalid_otp" {
		t.Fatalf("expected invalid_otp, got %s", appErr.Code)
	}

	if err := f.auth.VerifyEmail(ctx, "amy@lpu.in", code); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	// The code is single use.
	requireKind(t, f.auth.VerifyEmail(ctx, "amy@lpu.in", code), apperr.KindValidation)

	res, err := f.auth.Login(ctx, "AMY@lpu.in", testPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Token == "" || res.User.Email != "amy@lpu.in" || res.User.Username != "amy" {
		t.Fatalf("unexpected login result %+v", res)
	}
}

func TestExpiredOTPIsClearedAfterFirstAttempt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.auth.Register(ctx, RegisterInput{Username: "amy", Email: "amy@lpu.in", Password: testPassword}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	code, _ := f.mailer.LastCode("amy@lpu.in", mail.KindVerification)

	f.clock.Advance(10*time.Minute + time.Second)

	requireKind(t, f.auth.VerifyEmail(ctx, "amy@lpu.in", code), apperr.KindExpired)
	appErr := requireKind(t, f.auth.VerifyEmail(ctx, "amy@lpu.in", code), apperr.KindValidation)
	if appErr.Code != "invalid_otp" {
		t.Fatalf("expected invalid_otp on second attempt, got %s", appErr.Code)
	}

	user, err := f.store.Users().GetByEmail(ctx, "amy@lpu.in")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if user.Verified {
		t.Fatal("user must stay unverified")
	}
}

func TestPasswordChangeFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.registerVerified(t, "amy@lpu.in")

	requireKind(t, f.auth.InitiatePasswordChange(ctx, id.UserID, "wrong-pass", "newpass1"), apperr.KindUnauthorized)
	requireKind(t, f.auth.InitiatePasswordChange(ctx, id.UserID, testPassword, testPassword), apperr.KindValidation)
	requireKind(t, f.auth.InitiatePasswordChange(ctx, id.UserID, testPassword, "short"), apperr.KindValidation)

	if err := f.auth.InitiatePasswordChange(ctx, id.UserID, testPassword, "newpass1"); err != nil {
		t.Fatalf("InitiatePasswordChange: %v", err)
	}
	// The old password keeps working until the change is confirmed.
	if _, err := f.auth.Login(ctx, "amy@lpu.in", testPassword); err != nil {
		t.Fatalf("Login before confirmation: %v", err)
	}

	code, ok := f.mailer.LastCode("amy@lpu.in", mail.KindPasswordChangeConfirm)
	if !ok {
		t.Fatal("no confirmation code mailed")
	}
	if err := f.auth.ConfirmPasswordChange(ctx, "amy@lpu.in", code); err != nil {
		t.Fatalf("ConfirmPasswordChange: %v", err)
	}

	_, err := f.auth.Login(ctx, "amy@lpu.in", testPassword)
	requireKind(t, err, apperr.KindUnauthorized)
	if _, err := f.auth.Login(ctx, "amy@lpu.in", "newpass1"); err != nil {
		t.Fatalf("Login with new password: %v", err)
	}

	msgs := f.mailer.Messages()
	if last := msgs[len(msgs)-1]; last.Kind != mail.KindPasswordChanged {
		t.Fatalf("expected changed notice last, got %s", last.Kind)
	}
}

func TestForgotAndResetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.registerVerified(t, "amy@lpu.in")

	known, err := f.auth.ForgotPassword(ctx, "amy@lpu.in")
	if err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	before := len(f.mailer.Messages())
	unknown, err := f.auth.ForgotPassword(ctx, "ghost@lpu.in")
	if err != nil {
		t.Fatalf("ForgotPassword unknown: %v", err)
	}
	if known != unknown {
		t.Fatalf("responses differ: %q vs %q", known, unknown)
	}
	if len(f.mailer.Messages()) != before {
		t.Fatal("unknown email must not be mailed")
	}

	code, _ := f.mailer.LastCode("amy@lpu.in", mail.KindPasswordReset)
	requireKind(t, f.auth.ResetPassword(ctx, "amy@lpu.in", code, "123"), apperr.KindValidation)
	// A reset code cannot confirm a password change.
	requireKind(t, f.auth.ConfirmPasswordChange(ctx, "amy@lpu.in", code), apperr.KindValidation)

	if err := f.auth.ResetPassword(ctx, "amy@lpu.in", code, "brandnew"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if _, err := f.auth.Login(ctx, "amy@lpu.in", "brandnew"); err != nil {
		t.Fatalf("Login after reset: %v", err)
	}
	requireKind(t, f.auth.ResetPassword(ctx, "amy@lpu.in", code, "another1"), apperr.KindValidation)
}

func TestResendOTP(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appErr := requireKind(t, f.auth.ResendOTP(ctx, "ghost@lpu.in", "verification"), apperr.KindNotFound)
	if appErr.Code != "user_not_found" {
		t.Fatalf("unexpected code %s", appErr.Code)
	}

	if _, err := f.auth.Register(ctx, RegisterInput{Username: "amy", Email: "amy@lpu.in", Password: testPassword}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	first, _ := f.mailer.LastCode("amy@lpu.in", mail.KindVerification)

	requireKind(t, f.auth.ResendOTP(ctx, "amy@lpu.in", "bogus"), apperr.KindValidation)
	requireKind(t, f.auth.ResendOTP(ctx, "amy@lpu.in", "passwordReset"), apperr.KindValidation)

	// Resending after expiry issues a fresh, valid code.
	f.clock.Advance(11 * time.Minute)
	if err := f.auth.ResendOTP(ctx, "amy@lpu.in", "verification"); err != nil {
		t.Fatalf("ResendOTP: %v", err)
	}
	second, _ := f.mailer.LastCode("amy@lpu.in", mail.KindVerification)
	if first != second {
		requireKind(t, f.auth.VerifyEmail(ctx, "amy@lpu.in", first), apperr.KindValidation)
	}
	if err := f.auth.VerifyEmail(ctx, "amy@lpu.in", second); err != nil {
		t.Fatalf("VerifyEmail with resent code: %v", err)
	}

	appErr = requireKind(t, f.auth.ResendOTP(ctx, "amy@lpu.in", "verification"), apperr.KindValidation)
	if appErr.Code != "already_verified" {
		t.Fatalf("expected already_verified, got %s", appErr.Code)
	}
}

func TestResendOTPKeepsStagedPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.registerVerified(t, "amy@lpu.in")

	if err := f.auth.InitiatePasswordChange(ctx, id.UserID, testPassword, "newpass1"); err != nil {
		t.Fatalf("InitiatePasswordChange: %v", err)
	}
	if err := f.auth.ResendOTP(ctx, "amy@lpu.in", "passwordChangeConfirmation"); err != nil {
		t.Fatalf("ResendOTP: %v", err)
	}
	code, _ := f.mailer.LastCode("amy@lpu.in", mail.KindPasswordChangeConfirm)
	if err := f.auth.ConfirmPasswordChange(ctx, "amy@lpu.in", code); err != nil {
		t.Fatalf("ConfirmPasswordChange: %v", err)
	}
	if _, err := f.auth.Login(ctx, "amy@lpu.in", "newpass1"); err != nil {
		t.Fatalf("Login with staged password: %v", err)
	}
}

func TestResendOTPThrottled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.auth = NewAuthService(
		f.store,
		security.NewPasswordHasher(security.TestParams),
		security.NewTokenIssuer("test-secret", 0),
		f.mailer,
		testfixtures.Throttle{Deny: true},
		config.AuthConfig{UserDomains: []string{"lpu.in"}, OTPTTL: time.Minute},
		zerolog.Nop(),
	)
	if _, err := f.auth.Register(ctx, RegisterInput{Username: "amy", Email: "amy@lpu.in", Password: testPassword}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	requireKind(t, f.auth.ResendOTP(ctx, "amy@lpu.in", "verification"), apperr.KindTooManyRequests)
}

func TestChangeUsernameAndMe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.registerVerified(t, "amy@lpu.in")

	_, err := f.auth.ChangeUsername(ctx, id.UserID, "ab")
	requireKind(t, err, apperr.KindValidation)
	_, err = f.auth.ChangeUsername(ctx, id.UserID, "student")
	requireKind(t, err, apperr.KindValidation)

	updated, err := f.auth.ChangeUsername(ctx, id.UserID, "  amy-w  ")
	if err != nil {
		t.Fatalf("ChangeUsername: %v", err)
	}
	if updated.Username != "amy-w" {
		t.Fatalf("expected trimmed username, got %q", updated.Username)
	}

	me, err := f.auth.Me(ctx, id.UserID)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if me != updated {
		t.Fatalf("expected %+v, got %+v", updated, me)
	}
	_, err = f.auth.Me(ctx, 9999)
	requireKind(t, err, apperr.KindNotFound)
}

func TestAuthorizeRouteClasses(t *testing.T) {
	f := newFixture(t)
	user := f.registerVerified(t, "amy@lpu.in")
	admin := f.registerVerified(t, "warden@lpu.co.in")

	if user.Role != models.UserRoleUser || admin.Role != models.UserRoleAdmin {
		t.Fatalf("unexpected roles %s %s", user.Role, admin.Role)
	}

	issuer := security.NewTokenIssuer("test-secret", 0)
	userToken, _ := issuer.Issue(user.UserID, user.Email)
	adminToken, _ := issuer.Issue(admin.UserID, admin.Email)
	foreignToken, _ := issuer.Issue(42, "eve@gmail.com")
	forged, _ := security.NewTokenIssuer("other-secret", 0).Issue(admin.UserID, admin.Email)

	tests := []struct {
		name  string
		token string
		class RouteClass
		want  *apperr.Kind
	}{
		{"user on user route", userToken, ClassUser, nil},
		{"user on any route", userToken, ClassAny, nil},
		{"user on admin route", userToken, ClassAdmin, kindPtr(apperr.KindForbidden)},
		{"admin on admin route", adminToken, ClassAdmin, nil},
		{"admin on any route", adminToken, ClassAny, nil},
		{"admin on user route", adminToken, ClassUser, kindPtr(apperr.KindForbidden)},
		{"foreign domain", foreignToken, ClassAny, kindPtr(apperr.KindForbidden)},
		{"missing token", "", ClassAny, kindPtr(apperr.KindUnauthorized)},
		{"garbage token", "not-a-jwt", ClassAny, kindPtr(apperr.KindUnauthorized)},
		{"wrong signature", forged, ClassAdmin, kindPtr(apperr.KindUnauthorized)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := f.auth.Authorize(tt.token, tt.class)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				if id.UserID == 0 || id.Email == "" {
					t.Fatalf("empty identity %+v", id)
				}
				return
			}
			requireKind(t, err, *tt.want)
		})
	}
}

func kindPtr(k apperr.Kind) *apperr.Kind { return &k }
