package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/apperr"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/config"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/mail"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/models"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/repository"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/security"
)

const (
	minUsernameLength = 3
	minPasswordLength = 6

	forgotPasswordMessage = "If an account with that email exists, a password reset code has been sent."
)

var errInvalidOTP = apperr.Validation("invalid_otp", "invalid or incorrect verification code")

type AuthService struct {
	store    repository.Store
	hasher   *security.PasswordHasher
	tokens   *security.TokenIssuer
	mailer   Mailer
	throttle Throttler
	cfg      config.AuthConfig
	log      zerolog.Logger
	now      func() time.Time

	userDomains  map[string]struct{}
	adminDomains map[string]struct{}
}

func NewAuthService(
	store repository.Store,
	hasher *security.PasswordHasher,
	tokens *security.TokenIssuer,
	mailer Mailer,
	throttle Throttler,
	cfg config.AuthConfig,
	log zerolog.Logger,
) *AuthService {
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = 10 * time.Minute
	}
	return &AuthService{
		store:        store,
		hasher:       hasher,
		tokens:       tokens,
		mailer:       mailer,
		throttle:     throttle,
		cfg:          cfg,
		log:          log,
		now:          time.Now,
		userDomains:  domainSet(cfg.UserDomains),
		adminDomains: domainSet(cfg.AdminDomains),
	}
}

// WithClock replaces the time source. Tests use it to expire codes.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

func domainSet(domains []string) map[string]struct{} {
	set := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		set[strings.ToLower(d)] = struct{}{}
	}
	return set
}

func (s *AuthService) isUserDomain(email string) bool {
	_, ok := s.userDomains[emailDomain(email)]
	return ok
}

func (s *AuthService) isAdminDomain(email string) bool {
	_, ok := s.adminDomains[emailDomain(email)]
	return ok
}

func (s *AuthService) roleFor(email string) models.UserRole {
	if s.isAdminDomain(email) {
		return models.UserRoleAdmin
	}
	return models.UserRoleUser
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type RegisterResult struct {
	Message string `json:"message"`
	UserID  int64  `json:"userId"`
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (RegisterResult, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = normalizeEmail(input.Email)
	if input.Username == "" || input.Email == "" || input.Password == "" {
		return RegisterResult{}, apperr.Validation("missing_fields", "username, email and password are required")
	}
	if !s.isUserDomain(input.Email) && !s.isAdminDomain(input.Email) {
		return RegisterResult{}, apperr.Validation("invalid_email_domain", "registration is restricted to campus email addresses")
	}
	if len(input.Username) < minUsernameLength {
		return RegisterResult{}, apperr.Validation("invalid_username", "username must be at least 3 characters")
	}
	if len(input.Password) < minPasswordLength {
		return RegisterResult{}, apperr.Validation("weak_password", "password must be at least 6 characters")
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return RegisterResult{}, apperr.Internal(err)
	}
	code, codeHash, err := security.GenerateOTP()
	if err != nil {
		return RegisterResult{}, apperr.Internal(err)
	}

	now := s.now()
	var user models.User
	err = s.store.InTx(ctx, func(tx repository.Repos) error {
		var err error
		user, err = tx.Users().Create(ctx, models.User{
			Username:     input.Username,
			Email:        input.Email,
			PasswordHash: passwordHash,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			return err
		}
		return tx.Verifications().Put(ctx, models.PendingVerification{
			UserID:    user.ID,
			Purpose:   models.PurposeVerification,
			CodeHash:  codeHash,
			ExpiresAt: now.Add(s.cfg.OTPTTL),
			CreatedAt: now,
		})
	})
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return RegisterResult{}, apperr.Conflict("email_taken", "an account with this email already exists")
	}
	if err != nil {
		return RegisterResult{}, apperr.Internal(err)
	}

	s.log.Info().Int64("user_id", user.ID).Str("email", user.Email).Msg("user registered")
	s.sendCode(user.Email, mail.KindVerification, code)

	return RegisterResult{
		Message: "Registration successful. Check your email for the verification code.",
		UserID:  user.ID,
	}, nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, email, otp string) error {
	user, pending, err := s.checkOTP(ctx, email, otp, models.PurposeVerification)
	if err != nil {
		return err
	}

	err = s.store.InTx(ctx, func(tx repository.Repos) error {
		if err := tx.Verifications().Consume(ctx, user.ID, pending.CodeHash); err != nil {
			return err
		}
		return tx.Users().SetVerified(ctx, user.ID, s.now())
	})
	if errors.Is(err, repository.ErrNotFound) {
		return errInvalidOTP
	}
	if err != nil {
		return apperr.Internal(err)
	}

	s.log.Info().Int64("user_id", user.ID).Msg("email verified")
	return nil
}

type LoginResult struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	invalid := apperr.Unauthorized("invalid_credentials", "invalid email or password")

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return LoginResult{}, invalid
	}

	user, err := s.store.Users().GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return LoginResult{}, invalid
	}
	if err != nil {
		return LoginResult{}, apperr.Internal(err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", user.ID).Msg("stored password hash unreadable")
		return LoginResult{}, invalid
	}
	if !ok {
		return LoginResult{}, invalid
	}
	if !user.Verified {
		return LoginResult{}, apperr.Forbidden("email_not_verified", "verify your email address before logging in")
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return LoginResult{}, apperr.Internal(err)
	}
	return LoginResult{Token: token, User: user.Public()}, nil
}

func (s *AuthService) InitiatePasswordChange(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return apperr.Validation("missing_fields", "currentPassword and newPassword are required")
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.Unauthorized("user_not_found", "account no longer exists")
	}
	if err != nil {
		return apperr.Internal(err)
	}

	ok, err := s.hasher.Verify(currentPassword, user.PasswordHash)
	if err != nil {
		return apperr.Internal(err)
	}
	if !ok {
		return apperr.Unauthorized("invalid_password", "current password is incorrect")
	}
	if newPassword == currentPassword {
		return apperr.Validation("password_unchanged", "new password must differ from the current one")
	}
	if len(newPassword) < minPasswordLength {
		return apperr.Validation("weak_password", "password must be at least 6 characters")
	}

	staged, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperr.Internal(err)
	}
	code, err := s.stage(ctx, user.ID, models.PurposePasswordChange, staged)
	if err != nil {
		return err
	}

	s.sendCode(user.Email, mail.KindPasswordChangeConfirm, code)
	return nil
}

func (s *AuthService) ConfirmPasswordChange(ctx context.Context, email, otp string) error {
	user, pending, err := s.checkOTP(ctx, email, otp, models.PurposePasswordChange)
	if err != nil {
		return err
	}
	if len(pending.StagedPasswordHash) == 0 {
		return apperr.Internal(errors.New("password change verification without staged hash"))
	}

	if err := s.swapPassword(ctx, user.ID, pending.CodeHash, pending.StagedPasswordHash); err != nil {
		return err
	}

	s.log.Info().Int64("user_id", user.ID).Msg("password changed")
	s.mailer.Dispatch(mail.Message{To: user.Email, Kind: mail.KindPasswordChanged})
	return nil
}

// ForgotPassword answers identically whether or not the account exists.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)
	if email == "" {
		return "", apperr.Validation("missing_fields", "email is required")
	}

	user, err := s.store.Users().GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return forgotPasswordMessage, nil
	}
	if err != nil {
		return "", apperr.Internal(err)
	}

	code, err := s.stage(ctx, user.ID, models.PurposePasswordReset, nil)
	if err != nil {
		return "", err
	}
	s.sendCode(user.Email, mail.KindPasswordReset, code)
	return forgotPasswordMessage, nil
}

func (s *AuthService) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	if newPassword == "" {
		return apperr.Validation("missing_fields", "email, otp and newPassword are required")
	}
	if len(newPassword) < minPasswordLength {
		return apperr.Validation("weak_password", "password must be at least 6 characters")
	}

	user, pending, err := s.checkOTP(ctx, email, otp, models.PurposePasswordReset)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := s.swapPassword(ctx, user.ID, pending.CodeHash, hash); err != nil {
		return err
	}

	s.log.Info().Int64("user_id", user.ID).Msg("password reset")
	s.mailer.Dispatch(mail.Message{To: user.Email, Kind: mail.KindPasswordChanged})
	return nil
}

func (s *AuthService) ResendOTP(ctx context.Context, email, purpose string) error {
	email = normalizeEmail(email)
	if email == "" || purpose == "" {
		return apperr.Validation("missing_fields", "email and purpose are required")
	}
	p, ok := models.ParsePurpose(purpose)
	if !ok {
		return apperr.Validation("invalid_purpose", "unknown verification purpose")
	}

	user, err := s.store.Users().GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("user_not_found", "no account with this email")
	}
	if err != nil {
		return apperr.Internal(err)
	}

	var staged []byte
	switch p {
	case models.PurposeVerification:
		if user.Verified {
			return apperr.Validation("already_verified", "this account is already verified")
		}
	default:
		pending, err := s.store.Verifications().Get(ctx, user.ID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && pending.Purpose != p) {
			return apperr.Validation("nothing_pending", "there is no pending request for this purpose")
		}
		if err != nil {
			return apperr.Internal(err)
		}
		staged = pending.StagedPasswordHash
	}

	if s.throttle != nil {
		allowed, err := s.throttle.Allow(ctx, user.Email+":"+string(p))
		if err != nil {
			s.log.Warn().Err(err).Msg("resend throttle unavailable")
		} else if !allowed {
			return apperr.TooManyRequests("too_many_requests", "a code was sent recently, try again shortly")
		}
	}

	code, err := s.stage(ctx, user.ID, p, staged)
	if err != nil {
		return err
	}
	s.sendCode(user.Email, kindFor(p), code)
	return nil
}

func (s *AuthService) ChangeUsername(ctx context.Context, userID int64, username string) (models.PublicUser, error) {
	username = strings.TrimSpace(username)
	if len(username) < minUsernameLength {
		return models.PublicUser{}, apperr.Validation("invalid_username", "username must be at least 3 characters")
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.PublicUser{}, apperr.NotFound("user_not_found", "account no longer exists")
	}
	if err != nil {
		return models.PublicUser{}, apperr.Internal(err)
	}
	if user.Username == username {
		return models.PublicUser{}, apperr.Validation("username_unchanged", "new username must differ from the current one")
	}

	if err := s.store.Users().SetUsername(ctx, userID, username, s.now()); err != nil {
		return models.PublicUser{}, apperr.Internal(err)
	}
	user.Username = username
	return user.Public(), nil
}

func (s *AuthService) Me(ctx context.Context, userID int64) (models.PublicUser, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.PublicUser{}, apperr.NotFound("user_not_found", "account no longer exists")
	}
	if err != nil {
		return models.PublicUser{}, apperr.Internal(err)
	}
	return user.Public(), nil
}

// Authorize verifies a session token and checks that its email domain may
// use routes of the given class.
func (s *AuthService) Authorize(token string, class RouteClass) (models.Identity, error) {
	if token == "" {
		return models.Identity{}, apperr.Unauthorized("missing_token", "authentication required")
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return models.Identity{}, apperr.Unauthorized("invalid_token", "invalid or expired session")
	}

	email := normalizeEmail(claims.Email)
	var allowed bool
	switch class {
	case ClassUser:
		allowed = s.isUserDomain(email)
	case ClassAdmin:
		allowed = s.isAdminDomain(email)
	default:
		allowed = s.isUserDomain(email) || s.isAdminDomain(email)
	}
	if !allowed {
		return models.Identity{}, apperr.Forbidden("forbidden", "this account cannot access "+class.String()+" routes")
	}

	return models.Identity{UserID: claims.UserID, Email: email, Role: s.roleFor(email)}, nil
}

// checkOTP loads the user's pending code for purpose and compares it.
// An expired code is deleted before the error is returned.
func (s *AuthService) checkOTP(ctx context.Context, email, otp string, purpose models.VerificationPurpose) (models.User, models.PendingVerification, error) {
	email = normalizeEmail(email)
	otp = strings.TrimSpace(otp)
	if email == "" || otp == "" {
		return models.User{}, models.PendingVerification{}, apperr.Validation("missing_fields", "email and otp are required")
	}

	user, err := s.store.Users().GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return models.User{}, models.PendingVerification{}, errInvalidOTP
	}
	if err != nil {
		return models.User{}, models.PendingVerification{}, apperr.Internal(err)
	}

	pending, err := s.store.Verifications().Get(ctx, user.ID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && pending.Purpose != purpose) {
		return models.User{}, models.PendingVerification{}, errInvalidOTP
	}
	if err != nil {
		return models.User{}, models.PendingVerification{}, apperr.Internal(err)
	}

	if pending.Expired(s.now()) {
		if err := s.store.Verifications().Delete(ctx, user.ID); err != nil {
			s.log.Error().Err(err).Int64("user_id", user.ID).Msg("clear expired code failed")
		}
		return models.User{}, models.PendingVerification{}, apperr.Expired("otp_expired", "verification code has expired, request a new one")
	}
	if !security.MatchOTP(otp, pending.CodeHash) {
		return models.User{}, models.PendingVerification{}, errInvalidOTP
	}
	return user, pending, nil
}

// swapPassword redeems the code and stores hash in one transaction.
func (s *AuthService) swapPassword(ctx context.Context, userID int64, codeHash, hash []byte) error {
	err := s.store.InTx(ctx, func(tx repository.Repos) error {
		if err := tx.Verifications().Consume(ctx, userID, codeHash); err != nil {
			return err
		}
		return tx.Users().SetPassword(ctx, userID, hash, s.now())
	})
	if errors.Is(err, repository.ErrNotFound) {
		return errInvalidOTP
	}
	if err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// stage replaces the user's pending verification with a fresh code.
func (s *AuthService) stage(ctx context.Context, userID int64, purpose models.VerificationPurpose, staged []byte) (string, error) {
	code, codeHash, err := security.GenerateOTP()
	if err != nil {
		return "", apperr.Internal(err)
	}
	now := s.now()
	err = s.store.Verifications().Put(ctx, models.PendingVerification{
		UserID:             userID,
		Purpose:            purpose,
		CodeHash:           codeHash,
		ExpiresAt:          now.Add(s.cfg.OTPTTL),
		StagedPasswordHash: staged,
		CreatedAt:          now,
	})
	if err != nil {
		return "", apperr.Internal(err)
	}
	return code, nil
}

func (s *AuthService) sendCode(to string, kind mail.Kind, code string) {
	s.mailer.Dispatch(mail.Message{To: to, Kind: kind, Code: code, TTL: s.cfg.OTPTTL})
}

func kindFor(p models.VerificationPurpose) mail.Kind {
	switch p {
	case models.PurposePasswordReset:
		return mail.KindPasswordReset
	case models.PurposePasswordChange:
		return mail.KindPasswordChangeConfirm
	default:
		return mail.KindVerification
	}
}
