package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pmws/pmws/internal/limiter"
	"github.com/pmws/pmws/internal/notify"
	"github.com/pmws/pmws/internal/password"
	"github.com/pmws/pmws/internal/roles"
	"github.com/pmws/pmws/internal/shared"
	"github.com/pmws/pmws/internal/token"
)

// AttemptLimiter throttles repeated login failures and reset requests.
type AttemptLimiter interface {
	CheckLogin(ctx context.Context, identifier string) error
	RecordLoginFailure(ctx context.Context, identifier string) error
	ResetLogin(ctx context.Context, identifier string) error
	AllowReset(ctx context.Context, identifier string) error
}

// Renderer produces the reset-code notification bodies.
type Renderer interface {
	ResetCodeEmail(code string, ttl time.Duration) (string, error)
	ResetCodeSMS(code string, ttl time.Duration) (string, error)
}

// Config tunes the account lifecycle rules.
type Config struct {
	Support SupportContact
	// UniqueChecks rejects signups that reuse an email, identification
	// number or contact number before the transaction starts.
	UniqueChecks     bool
	AllowedPlatforms []string
}

// Option customises a Service.
type Option func(*Service)

// WithLimiter enables attempt limiting.
func WithLimiter(l AttemptLimiter) Option {
	return func(s *Service) { s.limiter = l }
}

// WithCodeGenerator replaces the reset-code source.
func WithCodeGenerator(fn func() (string, error)) Option {
	return func(s *Service) { s.newCode = fn }
}

// Service implements login, signup and the password reset lifecycle.
type Service struct {
	store     Store
	tokens    *token.Service
	hasher    password.Hasher
	sender    notify.Sender
	templates Renderer
	limiter   AttemptLimiter
	logger    *slog.Logger
	cfg       Config
	newCode   func() (string, error)
}

// NewService constructs a Service.
func NewService(store Store, tokens *token.Service, hasher password.Hasher, sender notify.Sender, templates Renderer, logger *slog.Logger, cfg Config, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:     store,
		tokens:    tokens,
		hasher:    hasher,
		sender:    sender,
		templates: templates,
		logger:    logger,
		cfg:       cfg,
		newCode:   ResetCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handshake accepts a connection from an allowed client platform.
func (s *Service) Handshake(platform string) error {
	platform = strings.ToLower(strings.TrimSpace(platform))
	if platform == "" || !slices.Contains(s.cfg.AllowedPlatforms, platform) {
		return shared.NewError(shared.KindForbidden, MsgUnauthorizedOperation, fmt.Errorf("platform %q not allowed", platform))
	}
	return nil
}

// Login verifies credentials and issues a session token. The password is
// checked before the account status flags.
func (s *Service) Login(ctx context.Context, identifier, plaintext, platform string) (*LoginResult, error) {
	logger := shared.LoggerWithRequest(ctx, s.logger).With(slog.String("username", identifier))

	if err := s.checkLogin(ctx, logger, identifier); err != nil {
		return nil, err
	}

	account, err := s.store.FindAccountByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.recordLoginFailure(ctx, logger, identifier)
		}
		return nil, s.lookupError(err, MsgLoginFailed)
	}

	if !s.hasher.Verify(plaintext, account.PasswordHash) {
		s.recordLoginFailure(ctx, logger, identifier)
		logger.InfoContext(ctx, "login rejected", slog.String("reason", "invalid password"))
		return nil, shared.NewError(shared.KindInvalidCredential, MsgInvalidPassword, nil)
	}

	switch {
	case !account.Approved:
		return nil, shared.NewError(shared.KindAccountNotApproved, s.cfg.Support.notApproved(), nil)
	case account.Suspended:
		return nil, shared.NewError(shared.KindAccountSuspended, s.cfg.Support.suspended(), nil)
	case account.Deleted:
		return nil, shared.NewError(shared.KindAccountDeleted, s.cfg.Support.deleted(), nil)
	}

	raw, expiresAt, err := s.tokens.IssueSession(token.Identity{
		AccountID:      account.ID,
		Username:       account.Username,
		Role:           account.Role,
		EmployeeRoleID: account.EmployeeRoleID,
		Platform:       platform,
	})
	if err != nil {
		return nil, shared.NewError(shared.KindInternal, MsgLoginFailed, err)
	}
	if s.limiter != nil {
		if err := s.limiter.ResetLogin(ctx, identifier); err != nil {
			logger.WarnContext(ctx, "reset login limiter", slog.Any("error", err))
		}
	}
	logger.InfoContext(ctx, "login succeeded", slog.Int64("account_id", account.ID), slog.String("role", account.Role.String()))
	return &LoginResult{Username: account.Username, Role: account.Role, Token: raw, ExpiresAt: expiresAt}, nil
}

// Signup registers a person and an unapproved account in one transaction.
// Only the Unregistered role may be requested.
func (s *Service) Signup(ctx context.Context, in SignupInput) (int64, error) {
	logger := shared.LoggerWithRequest(ctx, s.logger)

	if in.Role != roles.Unregistered {
		logger.WarnContext(ctx, "signup rejected", slog.Int("requested_role", int(in.Role)))
		return 0, shared.NewError(shared.KindUnauthorized, MsgUnauthorizedOperation, nil)
	}

	person := normalizePerson(in.Person)
	username := strings.TrimSpace(in.Username)
	if username == "" {
		username = person.IdentificationNumber
	}

	if s.cfg.UniqueChecks {
		if err := s.checkUnique(ctx, person); err != nil {
			return 0, err
		}
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return 0, shared.NewError(shared.KindSignupFailed, MsgSignupFailed, err)
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return 0, shared.NewError(shared.KindTransactionFailed, MsgSignupFailed, err)
	}

	personID, err := tx.CreatePerson(ctx, person)
	if err != nil {
		s.rollback(ctx, logger, tx)
		return 0, signupWriteError(err)
	}
	accountID, err := tx.CreateAccount(ctx, NewAccount{
		PersonID:     personID,
		Username:     username,
		PasswordHash: digest,
		Role:         roles.Unregistered,
	})
	if err != nil {
		s.rollback(ctx, logger, tx)
		return 0, signupWriteError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, shared.NewError(shared.KindTransactionFailed, MsgSignupFailed, err)
	}

	logger.InfoContext(ctx, "signup completed", slog.Int64("account_id", accountID), slog.String("username", username))
	return accountID, nil
}

func (s *Service) checkUnique(ctx context.Context, person Person) error {
	checks := []struct {
		field UniqueField
		value string
	}{
		{FieldEmail, person.Email},
		{FieldIdentificationNumber, person.IdentificationNumber},
		{FieldContactNumber, person.ContactNumber},
	}
	for _, c := range checks {
		if c.value == "" {
			continue
		}
		_, err := s.store.FindPersonByUniqueField(ctx, c.field, c.value)
		switch {
		case err == nil, errors.Is(err, shared.ErrAmbiguousRecord):
			return shared.NewError(shared.KindDuplicateIdentity, duplicateMessage(c.field), nil)
		case errors.Is(err, shared.ErrNotFound):
		default:
			return shared.NewError(shared.KindSignupFailed, MsgSignupFailed, err)
		}
	}
	return nil
}

func signupWriteError(err error) error {
	if errors.Is(err, shared.ErrDuplicate) {
		return shared.NewError(shared.KindDuplicateIdentity, MsgSignupFailed, err)
	}
	return shared.NewError(shared.KindSignupFailed, MsgSignupFailed, err)
}

// GenerateResetToken issues a reset token for identifier, stores it on the
// account and sends the plaintext code over channel. The returned token is
// the bearer credential for VerifyResetToken and ResetPassword.
func (s *Service) GenerateResetToken(ctx context.Context, identifier string, channel notify.Channel) (*ResetIssue, error) {
	logger := shared.LoggerWithRequest(ctx, s.logger).With(slog.String("username", identifier))

	if s.limiter != nil {
		if err := s.limiter.AllowReset(ctx, identifier); err != nil {
			if errors.Is(err, limiter.ErrRateLimited) {
				return nil, shared.NewError(shared.KindRateLimited, MsgTooManyAttempts, err)
			}
			logger.WarnContext(ctx, "reset limiter unavailable", slog.Any("error", err))
		}
	}

	account, err := s.store.FindAccountByIdentifier(ctx, identifier)
	if err != nil {
		return nil, s.lookupError(err, MsgResetTokenFailed)
	}

	code, err := s.newCode()
	if err != nil {
		return nil, shared.NewError(shared.KindResetIssuanceFailed, MsgResetTokenFailed, err)
	}
	raw, expiresAt, err := s.tokens.IssueReset(account.ID, account.Username, code)
	if err != nil {
		return nil, shared.NewError(shared.KindResetIssuanceFailed, MsgResetTokenFailed, err)
	}
	if err := s.store.UpdateAccountFields(ctx, account.ID, AccountUpdate{ResetToken: &raw, ModifiedBy: &account.ID}); err != nil {
		return nil, shared.NewError(shared.KindResetIssuanceFailed, MsgResetTokenFailed, err)
	}
	if err := s.dispatchCode(ctx, account, channel, code); err != nil {
		logger.ErrorContext(ctx, "reset code dispatch failed", slog.String("channel", string(channel)), slog.Any("error", err))
		return nil, shared.NewError(shared.KindResetIssuanceFailed, MsgResetTokenFailed, err)
	}

	logger.InfoContext(ctx, "reset token issued", slog.Int64("account_id", account.ID), slog.String("channel", string(channel)))
	return &ResetIssue{Token: raw, ExpiresAt: expiresAt}, nil
}

func (s *Service) dispatchCode(ctx context.Context, account *Account, channel notify.Channel, code string) error {
	ttl := s.tokens.ResetTTL()
	switch channel {
	case notify.ChannelSMS:
		if account.ContactNumber == "" {
			return errors.New("account has no contact number")
		}
		text, err := s.templates.ResetCodeSMS(code, ttl)
		if err != nil {
			return err
		}
		return s.sender.SendSMS(ctx, account.ContactNumber, text)
	case notify.ChannelEmail:
		if account.Email == "" {
			return errors.New("account has no email")
		}
		body, err := s.templates.ResetCodeEmail(code, ttl)
		if err != nil {
			return err
		}
		return s.sender.SendEmail(ctx, account.Email, notify.ResetCodeSubject, body)
	default:
		return fmt.Errorf("unsupported channel %q", channel)
	}
}

// VerifyResetToken checks the presented code against the bearer reset token
// and the token persisted on the account.
func (s *Service) VerifyResetToken(ctx context.Context, bearer *token.ResetClaims, presentedCode string) error {
	account, persisted, err := s.loadPersistedReset(ctx, bearer, MsgTokenVerificationFailed)
	if err != nil {
		return err
	}
	if !codesEqual(bearer.Code, persisted.Code) || !codesEqual(presentedCode, bearer.Code) {
		shared.LoggerWithRequest(ctx, s.logger).InfoContext(ctx, "reset code mismatch", slog.Int64("account_id", account.ID))
		return shared.NewError(shared.KindTokenVerificationFailed, MsgTokenVerificationFailed, nil)
	}
	return nil
}

// ResetPassword replaces the account password and consumes the reset token
// in one transaction.
func (s *Service) ResetPassword(ctx context.Context, bearer *token.ResetClaims, presentedCode, newPassword string) error {
	logger := shared.LoggerWithRequest(ctx, s.logger)

	account, persisted, err := s.loadPersistedReset(ctx, bearer, MsgResetPasswordFailed)
	if err != nil {
		return err
	}
	if !codesEqual(presentedCode, bearer.Code) ||
		!codesEqual(bearer.Code, persisted.Code) ||
		bearer.Username != persisted.Username ||
		bearer.AccountID != persisted.AccountID {
		return shared.NewError(shared.KindInvalidResetTokenOrIdentity, MsgResetTokenOrIdentity, nil)
	}

	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return shared.NewError(shared.KindResetPasswordFailed, MsgResetPasswordFailed, err)
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return shared.NewError(shared.KindTransactionFailed, MsgResetPasswordFailed, err)
	}
	// The token is consumed only if it is still the one that was verified.
	err = tx.UpdateAccountFields(ctx, account.ID, AccountUpdate{
		ClearResetToken:  true,
		ExpectResetToken: account.ResetToken,
		ModifiedBy:       &account.ID,
	})
	if err != nil {
		s.rollback(ctx, logger, tx)
		if errors.Is(err, shared.ErrNotFound) {
			logger.InfoContext(ctx, "reset token replaced or consumed concurrently", slog.Int64("account_id", account.ID))
			return shared.NewError(shared.KindInvalidResetTokenOrIdentity, MsgResetTokenOrIdentity, err)
		}
		return shared.NewError(shared.KindResetPasswordFailed, MsgResetPasswordFailed, err)
	}
	if err := tx.UpdateAccountFields(ctx, account.ID, AccountUpdate{PasswordHash: &digest, ModifiedBy: &account.ID}); err != nil {
		s.rollback(ctx, logger, tx)
		return shared.NewError(shared.KindResetPasswordFailed, MsgResetPasswordFailed, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return shared.NewError(shared.KindTransactionFailed, MsgResetPasswordFailed, err)
	}

	if s.limiter != nil {
		if err := s.limiter.ResetLogin(ctx, account.Username); err != nil {
			logger.WarnContext(ctx, "reset login limiter", slog.Any("error", err))
		}
	}
	logger.InfoContext(ctx, "password reset", slog.Int64("account_id", account.ID))
	return nil
}

func (s *Service) loadPersistedReset(ctx context.Context, bearer *token.ResetClaims, failMsg string) (*Account, *token.ResetClaims, error) {
	if bearer == nil {
		return nil, nil, shared.NewError(shared.KindUnauthenticated, MsgResetTokenInvalid, nil)
	}
	account, err := s.store.FindAccountByIdentifier(ctx, bearer.Username)
	if err != nil {
		return nil, nil, s.lookupError(err, failMsg)
	}
	if account.ResetToken == nil || *account.ResetToken == "" {
		return nil, nil, shared.NewError(shared.KindTokenInvalidOrExpired, MsgResetTokenInvalid, nil)
	}
	persisted, err := s.tokens.VerifyReset(*account.ResetToken)
	if err != nil {
		return nil, nil, shared.NewError(shared.KindTokenInvalidOrExpired, MsgResetTokenInvalid, err)
	}
	return account, persisted, nil
}

// statusChange describes one of the one-way account flag transitions.
type statusChange struct {
	action     string
	update     AccountUpdate
	already    func(*Account) bool
	alreadyMsg string
	failMsg    string
}

var (
	approveChange = statusChange{
		action:     "approve",
		update:     AccountUpdate{Approved: boolPtr(true)},
		already:    func(a *Account) bool { return a.Approved },
		alreadyMsg: MsgUserAlreadyApproved,
		failMsg:    MsgApproveFailed,
	}
	suspendChange = statusChange{
		action:     "suspend",
		update:     AccountUpdate{Suspended: boolPtr(true)},
		already:    func(a *Account) bool { return a.Suspended },
		alreadyMsg: MsgUserAlreadySuspended,
		failMsg:    MsgSuspendFailed,
	}
	deleteChange = statusChange{
		action:     "delete",
		update:     AccountUpdate{Deleted: boolPtr(true)},
		already:    func(a *Account) bool { return a.Deleted },
		alreadyMsg: MsgUserAlreadyDeleted,
		failMsg:    MsgDeleteFailed,
	}
)

// ApproveAccount marks an account approved.
func (s *Service) ApproveAccount(ctx context.Context, actorID, accountID int64) error {
	return s.setFlags(ctx, actorID, accountID, approveChange)
}

// SuspendAccount marks an account suspended.
func (s *Service) SuspendAccount(ctx context.Context, actorID, accountID int64) error {
	return s.setFlags(ctx, actorID, accountID, suspendChange)
}

// DeleteAccount marks an account deleted. Rows are never removed.
func (s *Service) DeleteAccount(ctx context.Context, actorID, accountID int64) error {
	return s.setFlags(ctx, actorID, accountID, deleteChange)
}

func (s *Service) setFlags(ctx context.Context, actorID, accountID int64, change statusChange) error {
	action, failMsg := change.action, change.failMsg
	account, err := s.store.FindAccountByID(ctx, accountID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return shared.NewError(shared.KindNotFound, failMsg, err)
	case err != nil:
		return shared.NewError(shared.KindInternal, failMsg, err)
	case change.already(account):
		return shared.NewError(shared.KindStatusUnchanged, change.alreadyMsg, nil)
	}

	update := change.update
	update.ModifiedBy = &actorID
	err = s.store.UpdateAccountFields(ctx, accountID, update)
	switch {
	case err == nil:
		shared.LoggerWithRequest(ctx, s.logger).InfoContext(ctx, "account status changed",
			slog.String("action", action),
			slog.Int64("account_id", accountID),
			slog.Int64("actor_id", actorID),
		)
		return nil
	case errors.Is(err, shared.ErrNotFound):
		return shared.NewError(shared.KindNotFound, failMsg, err)
	default:
		return shared.NewError(shared.KindInternal, failMsg, err)
	}
}

func (s *Service) lookupError(err error, failMsg string) error {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return shared.NewError(shared.KindNotFound, MsgNoUserFound, err)
	case errors.Is(err, shared.ErrAmbiguousRecord):
		return shared.NewError(shared.KindAmbiguousRecord, s.cfg.Support.multipleUsers(), err)
	default:
		return shared.NewError(shared.KindInternal, failMsg, err)
	}
}

func (s *Service) checkLogin(ctx context.Context, logger *slog.Logger, identifier string) error {
	if s.limiter == nil {
		return nil
	}
	err := s.limiter.CheckLogin(ctx, identifier)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, limiter.ErrRateLimited):
		logger.WarnContext(ctx, "login throttled")
		return shared.NewError(shared.KindRateLimited, MsgTooManyAttempts, err)
	default:
		logger.WarnContext(ctx, "login limiter unavailable", slog.Any("error", err))
		return nil
	}
}

func (s *Service) recordLoginFailure(ctx context.Context, logger *slog.Logger, identifier string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.RecordLoginFailure(ctx, identifier); err != nil {
		logger.WarnContext(ctx, "record login failure", slog.Any("error", err))
	}
}

func (s *Service) rollback(ctx context.Context, logger *slog.Logger, tx Tx) {
	if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil {
		logger.ErrorContext(ctx, "rollback failed", slog.Any("error", err))
	}
}

// ResetCode returns a random five digit code in [10000, 99999].
func ResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(90000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%05d", n.Int64()+10000), nil
}

func codesEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func normalizePerson(p Person) Person {
	title := cases.Title(language.Und)
	p.FirstName = title.String(strings.TrimSpace(p.FirstName))
	p.LastName = title.String(strings.TrimSpace(p.LastName))
	p.IdentificationNumber = strings.TrimSpace(p.IdentificationNumber)
	p.ContactNumber = strings.TrimSpace(p.ContactNumber)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.Apartment = strings.TrimSpace(p.Apartment)
	p.Building = strings.TrimSpace(p.Building)
	p.Street = strings.TrimSpace(p.Street)
	p.Region = strings.TrimSpace(p.Region)
	p.City = strings.TrimSpace(p.City)
	p.Country = strings.TrimSpace(p.Country)
	return p
}
