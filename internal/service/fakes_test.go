package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Payphone-Digital/auth/internal/model"
)

// In-memory doubles for the narrow store interfaces. They mimic the gorm
// repositories closely enough for flow-level tests: missing rows surface
// gorm.ErrRecordNotFound, replace semantics drop prior rows per user.

type fakeUsers struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]*model.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[uint]*model.User)}
}

func (f *fakeUsers) GetByID(_ context.Context, id uint) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user, ok := f.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if strings.EqualFold(user.Email, email) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	user.ID = f.nextID
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUsers) MarkVerified(_ context.Context, id uint) error {
	return f.update(id, func(u *model.User) { u.Verified = true })
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id uint, hashedPassword string) error {
	return f.update(id, func(u *model.User) { u.Password = hashedPassword })
}

func (f *fakeUsers) UpdateLastActive(_ context.Context, id uint) error {
	return f.update(id, func(u *model.User) { u.LastActive = time.Now() })
}

func (f *fakeUsers) MigrateToProvider(_ context.Context, id uint, provider model.AuthProvider, externalID string, profile datatypes.JSON, avatarURL string) error {
	return f.update(id, func(u *model.User) {
		u.AuthProvider = provider
		u.ExternalID = &externalID
		u.ProviderProfile = profile
		u.AvatarURL = avatarURL
		u.Verified = true
	})
}

func (f *fakeUsers) RefreshProviderProfile(_ context.Context, id uint, profile datatypes.JSON, avatarURL string) error {
	return f.update(id, func(u *model.User) {
		u.ProviderProfile = profile
		u.AvatarURL = avatarURL
	})
}

func (f *fakeUsers) update(id uint, apply func(*model.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	apply(user)
	return nil
}

type fakeCodes struct {
	mu     sync.Mutex
	nextID uint
	codes  map[uint]*model.VerificationCode // keyed by record ID
}

func newFakeCodes() *fakeCodes {
	return &fakeCodes{codes: make(map[uint]*model.VerificationCode)}
}

func (f *fakeCodes) ReplaceForUser(_ context.Context, code *model.VerificationCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, existing := range f.codes {
		if existing.UserID == code.UserID {
			delete(f.codes, id)
		}
	}
	f.nextID++
	code.ID = f.nextID
	copied := *code
	f.codes[code.ID] = &copied
	return nil
}

func (f *fakeCodes) GetByCode(_ context.Context, code string) (*model.VerificationCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.codes {
		if existing.Code == code {
			copied := *existing
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCodes) GetLiveByUser(_ context.Context, userID uint) (*model.VerificationCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.codes {
		if existing.UserID == userID && !existing.Verified {
			copied := *existing
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCodes) ExistsByCode(ctx context.Context, code string) (bool, error) {
	_, err := f.GetByCode(ctx, code)
	return err == nil, nil
}

func (f *fakeCodes) MarkVerified(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	code, ok := f.codes[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	code.Verified = true
	return nil
}

type fakeResetTokens struct {
	mu     sync.Mutex
	nextID uint
	tokens map[uint]*model.PasswordResetToken

	// collaborators mutated inside CompleteReset, mirroring the
	// repository transaction
	users    *fakeUsers
	sessions *fakeSessions

	// beforeConsume, when set, runs before the conditional consume so a
	// test can interleave a competing write
	beforeConsume func()
}

func newFakeResetTokens(users *fakeUsers, sessions *fakeSessions) *fakeResetTokens {
	return &fakeResetTokens{
		tokens:   make(map[uint]*model.PasswordResetToken),
		users:    users,
		sessions: sessions,
	}
}

func (f *fakeResetTokens) ReplaceForUser(_ context.Context, token *model.PasswordResetToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, existing := range f.tokens {
		if existing.UserID == token.UserID {
			delete(f.tokens, id)
		}
	}
	f.nextID++
	token.ID = f.nextID
	copied := *token
	f.tokens[token.ID] = &copied
	return nil
}

func (f *fakeResetTokens) GetByToken(_ context.Context, token string) (*model.PasswordResetToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.tokens {
		if existing.Token == token {
			copied := *existing
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeResetTokens) ExistsByToken(ctx context.Context, token string) (bool, error) {
	_, err := f.GetByToken(ctx, token)
	return err == nil, nil
}

// CompleteReset mimics the repository transaction: the conditional consume
// commits together with the password update and session revocation, or not
// at all. An already-used token loses with gorm.ErrRecordNotFound.
func (f *fakeResetTokens) CompleteReset(ctx context.Context, tokenID, userID uint, hashedPassword string) error {
	if f.beforeConsume != nil {
		f.beforeConsume()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	token, ok := f.tokens[tokenID]
	if !ok || token.Used {
		return gorm.ErrRecordNotFound
	}
	if err := f.sessions.RevokeAll(ctx, userID); err != nil {
		return err
	}
	if err := f.users.UpdatePassword(ctx, userID, hashedPassword); err != nil {
		return err
	}
	token.Used = true
	return nil
}

func (f *fakeResetTokens) markUsed(id uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token, ok := f.tokens[id]; ok {
		token.Used = true
	}
}

type fakeSessions struct {
	mu        sync.Mutex
	tokens    map[string]*model.IssuedToken
	revokeErr error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{tokens: make(map[string]*model.IssuedToken)}
}

func (f *fakeSessions) RotateForLogin(_ context.Context, userID uint, accessToken, refreshToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revokeAllLocked(userID, "")
	f.tokens[accessToken] = &model.IssuedToken{Token: accessToken, UserID: userID, TokenType: model.TokenTypeAccess}
	f.tokens[refreshToken] = &model.IssuedToken{Token: refreshToken, UserID: userID, TokenType: model.TokenTypeRefresh}
	return nil
}

func (f *fakeSessions) RotateAccess(_ context.Context, userID uint, accessToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revokeAllLocked(userID, model.TokenTypeAccess)
	f.tokens[accessToken] = &model.IssuedToken{Token: accessToken, UserID: userID, TokenType: model.TokenTypeAccess}
	return nil
}

func (f *fakeSessions) RevokeAll(_ context.Context, userID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.revokeErr != nil {
		return f.revokeErr
	}
	f.revokeAllLocked(userID, "")
	return nil
}

func (f *fakeSessions) IsUsable(_ context.Context, token string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	issued, ok := f.tokens[token]
	return ok && issued.Usable()
}

func (f *fakeSessions) revokeAllLocked(userID uint, onlyType model.TokenType) {
	for _, issued := range f.tokens {
		if issued.UserID != userID {
			continue
		}
		if onlyType != "" && issued.TokenType != onlyType {
			continue
		}
		issued.Revoked = true
		issued.Expired = true
	}
}

// fakeNotifier records what was sent without sending anything.
type fakeNotifier struct {
	mu            sync.Mutex
	codesSent     []string
	welcomes      int
	resetTokens   []string
	passwordNotes int
}

func (f *fakeNotifier) VerificationCodeIssued(_ *model.User, code string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codesSent = append(f.codesSent, code)
}

func (f *fakeNotifier) AccountVerified(_ *model.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.welcomes++
}

func (f *fakeNotifier) PasswordResetRequested(_ *model.User, token string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetTokens = append(f.resetTokens, token)
}

func (f *fakeNotifier) PasswordChanged(_ *model.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.passwordNotes++
}

func (f *fakeNotifier) lastResetToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.resetTokens) == 0 {
		return ""
	}
	return f.resetTokens[len(f.resetTokens)-1]
}

func (f *fakeNotifier) lastCode() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.codesSent) == 0 {
		return ""
	}
	return f.codesSent[len(f.codesSent)-1]
}

// plainHasher avoids bcrypt cost in tests.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (plainHasher) Verify(hashedPassword, password string) bool {
	return hashedPassword == "hashed:"+password
}

// fakeGoogle returns a canned userinfo response.
type fakeGoogle struct {
	info *GoogleUserInfo
	err  error
}

func (f *fakeGoogle) FetchUserInfo(_ context.Context, _ string) (*GoogleUserInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.info, nil
}
