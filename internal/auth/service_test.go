package auth_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pmws/pmws/internal/auth"
	"github.com/pmws/pmws/internal/limiter"
	"github.com/pmws/pmws/internal/notify"
	"github.com/pmws/pmws/internal/password"
	"github.com/pmws/pmws/internal/roles"
	"github.com/pmws/pmws/internal/shared"
	"github.com/pmws/pmws/internal/token"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type sentMessage struct {
	channel notify.Channel
	to      string
	body    string
}

type recordingSender struct {
	sent []sentMessage
	err  error
}

func (r *recordingSender) SendEmail(_ context.Context, to, _, body string) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, sentMessage{channel: notify.ChannelEmail, to: to, body: body})
	return nil
}

func (r *recordingSender) SendSMS(_ context.Context, to, text string) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, sentMessage{channel: notify.ChannelSMS, to: to, body: text})
	return nil
}

type fixture struct {
	store   *memStore
	tokens  *token.Service
	hasher  password.Hasher
	sender  *recordingSender
	service *auth.Service
	codes   []string
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	tokenOpts []token.Option
	svcOpts   []auth.Option
	cfg       auth.Config
}

func withTokenClock(now func() time.Time) fixtureOption {
	return func(c *fixtureConfig) { c.tokenOpts = append(c.tokenOpts, token.WithClock(now)) }
}

func withServiceOption(opt auth.Option) fixtureOption {
	return func(c *fixtureConfig) { c.svcOpts = append(c.svcOpts, opt) }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	fc := fixtureConfig{cfg: auth.Config{
		Support:          auth.SupportContact{Email: "support@support.com", Phone: "+1234567890"},
		UniqueChecks:     true,
		AllowedPlatforms: []string{"web", "android", "ios"},
	}}
	for _, opt := range opts {
		opt(&fc)
	}
	tokens, err := token.NewService(token.Config{
		Secret:     testSecret,
		SessionTTL: 2 * time.Hour,
		ResetTTL:   time.Hour,
	}, fc.tokenOpts...)
	require.NoError(t, err)
	templates, err := notify.NewTemplates(notify.Branding{AppName: "PMWS"})
	require.NoError(t, err)

	f := &fixture{
		store:  newMemStore(),
		tokens: tokens,
		hasher: password.NewHasher(bcrypt.MinCost),
		sender: &recordingSender{},
	}
	svcOpts := append([]auth.Option{auth.WithCodeGenerator(f.nextCode)}, fc.svcOpts...)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.service = auth.NewService(f.store, tokens, f.hasher, f.sender, templates, logger, fc.cfg, svcOpts...)
	return f
}

// nextCode hands out queued codes, falling back to the real generator.
func (f *fixture) nextCode() (string, error) {
	if len(f.codes) == 0 {
		return auth.ResetCode()
	}
	code := f.codes[0]
	f.codes = f.codes[1:]
	return code, nil
}

type accountState struct {
	approved, suspended, deleted bool
}

func (f *fixture) seedAccount(t *testing.T, username, plaintext string, role roles.Role, st accountState) int64 {
	t.Helper()
	digest, err := f.hasher.Hash(plaintext)
	require.NoError(t, err)
	return f.store.seed(
		auth.Person{
			FirstName:            "Test",
			LastName:             "User",
			IdentificationNumber: username,
			Email:                username + "@example.com",
			ContactNumber:        "+1555" + username,
		},
		auth.Account{
			Username:     username,
			PasswordHash: digest,
			Role:         role,
			Approved:     st.approved,
			Suspended:    st.suspended,
			Deleted:      st.deleted,
		},
	)
}

var active = accountState{approved: true}

func requireKind(t *testing.T, err error, kind shared.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, shared.KindOf(err), "error: %v", err)
}

func TestLoginExample(t *testing.T) {
	f := newFixture(t)
	id := f.seedAccount(t, "12345", "secret", roles.Resident, active)

	res, err := f.service.Login(context.Background(), "12345", "secret", "web")
	require.NoError(t, err)
	assert.Equal(t, "12345", res.Username)
	assert.Equal(t, roles.Resident, res.Role)

	claims, err := f.tokens.VerifySession(res.Token)
	require.NoError(t, err)
	assert.Equal(t, roles.Resident, claims.Role)
	assert.Equal(t, id, claims.AccountID)
	assert.Equal(t, "web", claims.Platform)

	_, err = f.service.Login(context.Background(), "12345", "wrong", "web")
	requireKind(t, err, shared.KindInvalidCredential)
	assert.Equal(t, auth.MsgInvalidPassword, shared.UserSafeMessage(err))
}

func TestLoginSucceedsOnlyForMatchingPasswordAndActiveAccount(t *testing.T) {
	for _, correct := range []bool{true, false} {
		for _, approved := range []bool{true, false} {
			for _, suspended := range []bool{true, false} {
				for _, deleted := range []bool{true, false} {
					name := fmt.Sprintf("correct=%t/approved=%t/suspended=%t/deleted=%t", correct, approved, suspended, deleted)
					t.Run(name, func(t *testing.T) {
						f := newFixture(t)
						f.seedAccount(t, "user", "right-password", roles.Operating, accountState{approved, suspended, deleted})
						pw := "right-password"
						if !correct {
							pw = "wrong-password"
						}

						res, err := f.service.Login(context.Background(), "user", pw, "")
						if correct && approved && !suspended && !deleted {
							require.NoError(t, err)
							require.NotEmpty(t, res.Token)
							return
						}
						require.Nil(t, res)
						switch {
						case !correct:
							requireKind(t, err, shared.KindInvalidCredential)
						case !approved:
							requireKind(t, err, shared.KindAccountNotApproved)
						case suspended:
							requireKind(t, err, shared.KindAccountSuspended)
						default:
							requireKind(t, err, shared.KindAccountDeleted)
						}
					})
				}
			}
		}
	}
}

func TestLoginStatusMessagesCarrySupportContact(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "pending", "pw-pending", roles.Unregistered, accountState{})

	_, err := f.service.Login(context.Background(), "pending", "pw-pending", "web")
	requireKind(t, err, shared.KindAccountNotApproved)
	assert.Contains(t, shared.UserSafeMessage(err), "support@support.com")
	assert.Contains(t, shared.UserSafeMessage(err), "+1234567890")
}

func TestLoginLookupOutcomes(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "dup", "pw", roles.Resident, active)
	f.seedAccount(t, "dup", "pw", roles.Resident, active)

	_, err := f.service.Login(context.Background(), "nobody", "pw", "web")
	requireKind(t, err, shared.KindNotFound)

	_, err = f.service.Login(context.Background(), "dup", "pw", "web")
	requireKind(t, err, shared.KindAmbiguousRecord)
}

func TestLoginThrottledAfterRepeatedFailures(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	lim := limiter.New(client, limiter.Config{MaxLoginFailures: 3, LoginWindow: time.Minute})

	f := newFixture(t, withServiceOption(auth.WithLimiter(lim)))
	f.seedAccount(t, "target", "correct", roles.Resident, active)

	for i := 0; i < 3; i++ {
		_, err := f.service.Login(context.Background(), "target", "guess", "web")
		requireKind(t, err, shared.KindInvalidCredential)
	}
	_, err := f.service.Login(context.Background(), "target", "correct", "web")
	requireKind(t, err, shared.KindRateLimited)

	mr.FastForward(2 * time.Minute)
	_, err = f.service.Login(context.Background(), "target", "correct", "web")
	require.NoError(t, err)
}

func TestLoginFailsOpenWhenLimiterUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	lim := limiter.New(client, limiter.Config{MaxLoginFailures: 1, LoginWindow: time.Minute})
	mr.Close()

	f := newFixture(t, withServiceOption(auth.WithLimiter(lim)))
	f.seedAccount(t, "user", "pw", roles.Resident, active)

	_, err := f.service.Login(context.Background(), "user", "pw", "web")
	require.NoError(t, err)
}

func validSignup() auth.SignupInput {
	return auth.SignupInput{
		Person: auth.Person{
			FirstName:            "  jane ",
			LastName:             "doe",
			IdentificationNumber: "900100",
			ContactNumber:        "+15550100",
			Email:                "Jane@Example.com",
			IsApartment:          true,
			Apartment:            "4B",
			Street:               "Main",
			Region:               "North",
			City:                 "Springfield",
			Country:              "US",
		},
		Password: "long-enough",
		Role:     roles.Unregistered,
	}
}

func TestSignupRejectsEveryRoleButUnregistered(t *testing.T) {
	f := newFixture(t)
	for _, r := range []roles.Role{roles.Admin, roles.Management, roles.Operating, roles.Resident, roles.Registered, 0, 42} {
		_, err := f.service.Signup(context.Background(), auth.SignupInput{Role: r})
		requireKind(t, err, shared.KindUnauthorized)

		in := validSignup()
		in.Role = r
		_, err = f.service.Signup(context.Background(), in)
		requireKind(t, err, shared.KindUnauthorized)
	}
	assert.Zero(t, f.store.begins)
	assert.Empty(t, f.store.persons)
}

func TestSignupCreatesUnapprovedAccount(t *testing.T) {
	f := newFixture(t)

	id, err := f.service.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	acct := f.store.account(id)
	assert.Equal(t, "900100", acct.Username)
	assert.Equal(t, roles.Unregistered, acct.Role)
	assert.False(t, acct.Approved)
	assert.True(t, f.hasher.Verify("long-enough", acct.PasswordHash))

	person := f.store.persons[acct.PersonID]
	assert.Equal(t, "Jane", person.FirstName)
	assert.Equal(t, "Doe", person.LastName)
	assert.Equal(t, "jane@example.com", person.Email)
	assert.Equal(t, 1, f.store.commits)

	_, err = f.service.Login(context.Background(), "900100", "long-enough", "web")
	requireKind(t, err, shared.KindAccountNotApproved)
}

func TestSignupUsesSuppliedUsername(t *testing.T) {
	f := newFixture(t)
	in := validSignup()
	in.Username = "jane@example.com"

	id, err := f.service.Signup(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", f.store.account(id).Username)
}

func TestSignupDuplicateChecksReportEachField(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*auth.SignupInput)
		msg    string
	}{
		{"email", func(in *auth.SignupInput) { in.IdentificationNumber, in.ContactNumber = "1", "2" }, auth.MsgEmailTaken},
		{"identification", func(in *auth.SignupInput) { in.Email, in.ContactNumber = "other@example.com", "2" }, auth.MsgIdentificationTaken},
		{"contact", func(in *auth.SignupInput) { in.Email, in.IdentificationNumber = "other@example.com", "1" }, auth.MsgContactTaken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.service.Signup(context.Background(), validSignup())
			require.NoError(t, err)

			in := validSignup()
			tc.mutate(&in)
			_, err = f.service.Signup(context.Background(), in)
			requireKind(t, err, shared.KindDuplicateIdentity)
			assert.Equal(t, tc.msg, shared.UserSafeMessage(err))
			assert.Equal(t, 1, f.store.begins)
		})
	}
}

func TestSignupRollsBackWhenAccountInsertFails(t *testing.T) {
	f := newFixture(t)
	f.store.faults.createAccount = errors.New("connection reset")

	_, err := f.service.Signup(context.Background(), validSignup())
	requireKind(t, err, shared.KindSignupFailed)
	assert.Equal(t, auth.MsgSignupFailed, shared.UserSafeMessage(err))
	assert.Equal(t, 1, f.store.rollbacks)
	assert.Zero(t, f.store.commits)
	assert.Empty(t, f.store.persons)
	assert.Empty(t, f.store.accounts)
}

func TestSignupStoreUniqueViolationIsDuplicate(t *testing.T) {
	f := newFixture(t)
	f.store.faults.createAccount = fmt.Errorf("insert: %w", shared.ErrDuplicate)

	_, err := f.service.Signup(context.Background(), validSignup())
	requireKind(t, err, shared.KindDuplicateIdentity)
	assert.Equal(t, 1, f.store.rollbacks)
}

func TestSignupBeginFailure(t *testing.T) {
	f := newFixture(t)
	f.store.faults.begin = errors.New("pool exhausted")

	_, err := f.service.Signup(context.Background(), validSignup())
	requireKind(t, err, shared.KindTransactionFailed)
	assert.Zero(t, f.store.rollbacks)
}

func TestGenerateThenVerifyResetToken(t *testing.T) {
	f := newFixture(t)
	id := f.seedAccount(t, "12345", "secret", roles.Resident, active)
	f.codes = []string{"48213"}

	issue, err := f.service.GenerateResetToken(context.Background(), "12345", notify.ChannelEmail)
	require.NoError(t, err)

	persisted := f.store.account(id).ResetToken
	require.NotNil(t, persisted)
	assert.Equal(t, issue.Token, *persisted)

	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "12345@example.com", f.sender.sent[0].to)
	assert.Contains(t, f.sender.sent[0].body, "48213")

	bearer, err := f.tokens.VerifyReset(issue.Token)
	require.NoError(t, err)
	require.NoError(t, f.service.VerifyResetToken(context.Background(), bearer, "48213"))

	err = f.service.VerifyResetToken(context.Background(), bearer, "48214")
	requireKind(t, err, shared.KindTokenVerificationFailed)
	err = f.service.VerifyResetToken(context.Background(), bearer, "")
	requireKind(t, err, shared.KindTokenVerificationFailed)
}

func TestGeneratedCodesAreFiveDigits(t *testing.T) {
	pattern := regexp.MustCompile(`^[1-9][0-9]{4}$`)
	for i := 0; i < 200; i++ {
		code, err := auth.ResetCode()
		require.NoError(t, err)
		require.Regexp(t, pattern, code)
	}
}

func TestResetCodeBySMS(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "777", "pw", roles.Resident, active)
	f.codes = []string{"10001"}

	_, err := f.service.GenerateResetToken(context.Background(), "777", notify.ChannelSMS)
	require.NoError(t, err)
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, notify.ChannelSMS, f.sender.sent[0].channel)
	assert.Equal(t, "+1555777", f.sender.sent[0].to)
	assert.Contains(t, f.sender.sent[0].body, "10001")
}

func TestSecondResetTokenInvalidatesFirst(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "12345", "secret", roles.Resident, active)
	f.codes = []string{"11111", "22222"}

	first, err := f.service.GenerateResetToken(context.Background(), "12345", notify.ChannelEmail)
	require.NoError(t, err)
	second, err := f.service.GenerateResetToken(context.Background(), "12345", notify.ChannelEmail)
	require.NoError(t, err)

	firstBearer, err := f.tokens.VerifyReset(first.Token)
	require.NoError(t, err)
	err = f.service.VerifyResetToken(context.Background(), firstBearer, "11111")
	requireKind(t, err, shared.KindTokenVerificationFailed)

	secondBearer, err := f.tokens.VerifyReset(second.Token)
	require.NoError(t, err)
	require.NoError(t, f.service.VerifyResetToken(context.Background(), secondBearer, "22222"))

	err = f.service.ResetPassword(context.Background(), firstBearer, "11111", "new-password")
	requireKind(t, err, shared.KindInvalidResetTokenOrIdentity)
}

func TestGenerateResetTokenFailures(t *testing.T) {
	t.Run("unknown account", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.GenerateResetToken(context.Background(), "ghost", notify.ChannelEmail)
		requireKind(t, err, shared.KindNotFound)
		assert.Empty(t, f.sender.sent)
	})
	t.Run("persist failure", func(t *testing.T) {
		f := newFixture(t)
		f.seedAccount(t, "12345", "secret", roles.Resident, active)
		f.store.faults.update = func(auth.AccountUpdate) error { return errors.New("write failed") }

		_, err := f.service.GenerateResetToken(context.Background(), "12345", notify.ChannelEmail)
		requireKind(t, err, shared.KindResetIssuanceFailed)
		assert.Empty(t, f.sender.sent)
	})
	t.Run("dispatch failure", func(t *testing.T) {
		f := newFixture(t)
		f.seedAccount(t, "12345", "secret", roles.Resident, active)
		f.sender.err = errors.New("provider down")

		_, err := f.service.GenerateResetToken(context.Background(), "12345", notify.ChannelEmail)
		requireKind(t, err, shared.KindResetIssuanceFailed)
		assert.Equal(t, auth.MsgResetTokenFailed, shared.UserSafeMessage(err))
	})
}

func TestResetRequestsThrottled(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	lim := limiter.New(client, limiter.Config{MaxResetRequests: 2, ResetWindow: time.Minute})

	f := newFixture(t, withServiceOption(auth.WithLimiter(lim)))
	f.seedAccount(t, "12345", "secret", roles.Resident, active)

	for i := 0; i < 2; i++ {
		_, err := f.service.GenerateResetToken(context.Background(), "12345", notify.ChannelEmail)
		require.NoError(t, err)
	}
	_, err := f.service.GenerateResetToken(context.Background(), "12345", notify.ChannelEmail)
	requireKind(t, err, shared.KindRateLimited)
	assert.Len(t, f.sender.sent, 2)
}

func issueReset(t *testing.T, f *fixture, username, code string) *token.ResetClaims {
	t.Helper()
	f.codes = []string{code}
	issue, err := f.service.GenerateResetToken(context.Background(), username, notify.ChannelEmail)
	require.NoError(t, err)
	bearer, err := f.tokens.VerifyReset(issue.Token)
	require.NoError(t, err)
	return bearer
}

func TestResetPasswordConsumesToken(t *testing.T) {
	f := newFixture(t)
	id := f.seedAccount(t, "12345", "secret", roles.Resident, active)
	bearer := issueReset(t, f, "12345", "54321")

	require.NoError(t, f.service.ResetPassword(context.Background(), bearer, "54321", "brand-new-pass"))

	acct := f.store.account(id)
	assert.Nil(t, acct.ResetToken)
	assert.True(t, f.hasher.Verify("brand-new-pass", acct.PasswordHash))
	assert.Equal(t, 1, f.store.commits)

	_, err := f.service.Login(context.Background(), "12345", "brand-new-pass", "web")
	require.NoError(t, err)

	err = f.service.ResetPassword(context.Background(), bearer, "54321", "another-pass")
	requireKind(t, err, shared.KindTokenInvalidOrExpired)
	err = f.service.VerifyResetToken(context.Background(), bearer, "54321")
	requireKind(t, err, shared.KindTokenInvalidOrExpired)
}

func TestResetPasswordIsAtomic(t *testing.T) {
	f := newFixture(t)
	id := f.seedAccount(t, "12345", "secret", roles.Resident, active)
	bearer := issueReset(t, f, "12345", "54321")
	before := f.store.account(id)

	f.store.faults.update = func(u auth.AccountUpdate) error {
		if u.PasswordHash != nil {
			return errors.New("connection lost")
		}
		return nil
	}

	err := f.service.ResetPassword(context.Background(), bearer, "54321", "brand-new-pass")
	requireKind(t, err, shared.KindResetPasswordFailed)
	assert.Equal(t, auth.MsgResetPasswordFailed, shared.UserSafeMessage(err))

	after := f.store.account(id)
	assert.Equal(t, before.PasswordHash, after.PasswordHash)
	require.NotNil(t, after.ResetToken)
	assert.Equal(t, *before.ResetToken, *after.ResetToken)
	assert.Equal(t, 1, f.store.rollbacks)
	assert.Zero(t, f.store.commits)

	_, err = f.service.Login(context.Background(), "12345", "secret", "web")
	require.NoError(t, err)
}

func TestResetPasswordLosesToConcurrentReissue(t *testing.T) {
	f := newFixture(t)
	id := f.seedAccount(t, "12345", "secret", roles.Resident, active)
	bearer := issueReset(t, f, "12345", "54321")

	reissued, _, err := f.tokens.IssueReset(id, "12345", "11111")
	require.NoError(t, err)
	f.store.faults.beforeBegin = func(d *memData) {
		a := d.accounts[id]
		a.ResetToken = &reissued
		d.accounts[id] = a
	}

	err = f.service.ResetPassword(context.Background(), bearer, "54321", "brand-new-pass")
	requireKind(t, err, shared.KindInvalidResetTokenOrIdentity)
	assert.Equal(t, 1, f.store.rollbacks)
	assert.Zero(t, f.store.commits)

	after := f.store.account(id)
	require.NotNil(t, after.ResetToken)
	assert.Equal(t, reissued, *after.ResetToken)
	assert.True(t, f.hasher.Verify("secret", after.PasswordHash))
}

func TestResetTokenConsumedOnlyOnce(t *testing.T) {
	f := newFixture(t)
	id := f.seedAccount(t, "12345", "secret", roles.Resident, active)
	bearer := issueReset(t, f, "12345", "54321")

	// A second reset with the same bearer commits between this call's
	// verification and its transaction.
	f.store.faults.beforeBegin = func(d *memData) {
		f.store.faults.beforeBegin = nil
		a := d.accounts[id]
		a.ResetToken = nil
		d.accounts[id] = a
	}

	err := f.service.ResetPassword(context.Background(), bearer, "54321", "first-new-pass")
	requireKind(t, err, shared.KindInvalidResetTokenOrIdentity)
	assert.True(t, f.hasher.Verify("secret", f.store.account(id).PasswordHash))
}

func TestResetPasswordRejectsMismatchedCode(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "12345", "secret", roles.Resident, active)
	bearer := issueReset(t, f, "12345", "54321")

	err := f.service.ResetPassword(context.Background(), bearer, "99999", "brand-new-pass")
	requireKind(t, err, shared.KindInvalidResetTokenOrIdentity)
	assert.Zero(t, f.store.begins)
}

func TestResetPasswordWithoutPersistedToken(t *testing.T) {
	f := newFixture(t)
	id := f.seedAccount(t, "12345", "secret", roles.Resident, active)
	raw, _, err := f.tokens.IssueReset(id, "12345", "54321")
	require.NoError(t, err)
	bearer, err := f.tokens.VerifyReset(raw)
	require.NoError(t, err)

	err = f.service.ResetPassword(context.Background(), bearer, "54321", "brand-new-pass")
	requireKind(t, err, shared.KindTokenInvalidOrExpired)
	err = f.service.VerifyResetToken(context.Background(), bearer, "54321")
	requireKind(t, err, shared.KindTokenInvalidOrExpired)
}

func TestExpiredPersistedResetToken(t *testing.T) {
	now := time.Now()
	f := newFixture(t, withTokenClock(func() time.Time { return now }))
	f.seedAccount(t, "12345", "secret", roles.Resident, active)
	bearer := issueReset(t, f, "12345", "54321")

	now = now.Add(2 * time.Hour)
	err := f.service.VerifyResetToken(context.Background(), bearer, "54321")
	requireKind(t, err, shared.KindTokenInvalidOrExpired)
}

func TestAccountStatusTransitions(t *testing.T) {
	f := newFixture(t)
	id := f.seedAccount(t, "applicant", "pw", roles.Unregistered, accountState{})

	require.NoError(t, f.service.ApproveAccount(context.Background(), 1, id))
	_, err := f.service.Login(context.Background(), "applicant", "pw", "web")
	require.NoError(t, err)

	require.NoError(t, f.service.SuspendAccount(context.Background(), 1, id))
	_, err = f.service.Login(context.Background(), "applicant", "pw", "web")
	requireKind(t, err, shared.KindAccountSuspended)

	require.NoError(t, f.service.DeleteAccount(context.Background(), 1, id))
	acct := f.store.account(id)
	assert.True(t, acct.Approved)
	assert.True(t, acct.Suspended)
	assert.True(t, acct.Deleted)

	err = f.service.ApproveAccount(context.Background(), 1, 999)
	requireKind(t, err, shared.KindNotFound)
	assert.Equal(t, auth.MsgApproveFailed, shared.UserSafeMessage(err))
}

func TestRepeatedStatusTransitionsAreRejected(t *testing.T) {
	cases := map[string]struct {
		apply func(s *auth.Service, ctx context.Context, actor, id int64) error
		msg   string
	}{
		"approve": {(*auth.Service).ApproveAccount, auth.MsgUserAlreadyApproved},
		"suspend": {(*auth.Service).SuspendAccount, auth.MsgUserAlreadySuspended},
		"delete":  {(*auth.Service).DeleteAccount, auth.MsgUserAlreadyDeleted},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			id := f.seedAccount(t, "12345", "pw", roles.Resident, accountState{})
			updates := 0
			f.store.faults.update = func(auth.AccountUpdate) error {
				updates++
				return nil
			}

			require.NoError(t, tc.apply(f.service, context.Background(), 1, id))
			err := tc.apply(f.service, context.Background(), 1, id)
			requireKind(t, err, shared.KindStatusUnchanged)
			assert.Equal(t, tc.msg, shared.UserSafeMessage(err))
			assert.Equal(t, 1, updates)
		})
	}
}

func TestHandshake(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.service.Handshake("web"))
	require.NoError(t, f.service.Handshake(" iOS "))
	requireKind(t, f.service.Handshake(""), shared.KindForbidden)
	requireKind(t, f.service.Handshake("desktop"), shared.KindForbidden)
}
