package usecase

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/halcyonsoft/halcyon/internal/core/domain"
	"github.com/halcyonsoft/halcyon/internal/core/port"
	"github.com/halcyonsoft/halcyon/internal/repository"
)

type fakeUserRepo struct {
	users map[string]*domain.User
}

func newFakeUserRepo(users ...domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]*domain.User)}
	for i := range users {
		user := users[i]
		repo.users[user.ID] = &user
	}
	return repo
}

func (r *fakeUserRepo) Create(_ context.Context, user domain.User) error {
	r.users[user.ID] = &user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	if user, ok := r.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByUserName(_ context.Context, userName string) (*domain.User, error) {
	for _, user := range r.users {
		if strings.EqualFold(user.UserName, userName) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) Search(_ context.Context, filter port.UserSearchFilter) ([]domain.User, int, error) {
	var matched []domain.User
	for _, user := range r.users {
		if filter.Email != "" && !strings.Contains(strings.ToLower(user.Email), strings.ToLower(filter.Email)) {
			continue
		}
		if filter.UserName != "" && !strings.Contains(strings.ToLower(user.UserName), strings.ToLower(filter.UserName)) {
			continue
		}
		matched = append(matched, *user)
	}
	sort.Slice(matched, func(i, j int) bool {
		less := matched[i].UserName < matched[j].UserName
		if filter.SortBy == port.UserSortByEmail {
			less = matched[i].Email < matched[j].Email
		}
		if filter.ReverseSort {
			return !less
		}
		return less
	})
	return matched, len(matched), nil
}

func (r *fakeUserRepo) Update(_ context.Context, user domain.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	r.users[user.ID] = &user
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, id, passwordHash string, changedAt time.Time) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.ModifiedAt = changedAt
	return nil
}

func (r *fakeUserRepo) UpdateEmail(_ context.Context, id, email string, confirmed bool, changedAt time.Time) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.Email = email
	user.EmailConfirmed = confirmed
	user.ModifiedAt = changedAt
	return nil
}

func (r *fakeUserRepo) SetLockoutEnd(_ context.Context, id string, lockoutEnd *time.Time) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.LockoutEnd = lockoutEnd
	return nil
}

func (r *fakeUserRepo) UpdateSettings(_ context.Context, id string, settings json.RawMessage) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.BrowserSettings = settings
	return nil
}

type fakeRoleRepo struct {
	roles   map[string]domain.Role
	members map[string]map[string]bool // role -> userID -> member
	users   *fakeUserRepo
}

func newFakeRoleRepo(users *fakeUserRepo, roles ...domain.Role) *fakeRoleRepo {
	repo := &fakeRoleRepo{
		roles:   make(map[string]domain.Role),
		members: make(map[string]map[string]bool),
		users:   users,
	}
	for _, role := range roles {
		repo.roles[role.Name] = role
	}
	return repo
}

func (r *fakeRoleRepo) List(_ context.Context) ([]domain.Role, error) {
	var roles []domain.Role
	for _, role := range r.roles {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles, nil
}

func (r *fakeRoleRepo) GetByName(_ context.Context, name string) (*domain.Role, error) {
	if role, ok := r.roles[name]; ok {
		return &role, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeRoleRepo) Create(_ context.Context, role domain.Role) error {
	r.roles[role.Name] = role
	return nil
}

func (r *fakeRoleRepo) Delete(_ context.Context, name string) error {
	if _, ok := r.roles[name]; !ok {
		return repository.ErrNotFound
	}
	delete(r.roles, name)
	delete(r.members, name)
	return nil
}

func (r *fakeRoleRepo) ListForUser(_ context.Context, userID string) ([]string, error) {
	var names []string
	for role, members := range r.members {
		if members[userID] {
			names = append(names, role)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (r *fakeRoleRepo) ListUsersInRole(_ context.Context, role string) ([]domain.User, error) {
	var users []domain.User
	for userID, member := range r.members[role] {
		if !member {
			continue
		}
		if user, ok := r.users.users[userID]; ok {
			users = append(users, *user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UserName < users[j].UserName })
	return users, nil
}

func (r *fakeRoleRepo) AssignUser(_ context.Context, userID, role string) error {
	if r.members[role] == nil {
		r.members[role] = make(map[string]bool)
	}
	r.members[role][userID] = true
	return nil
}

func (r *fakeRoleRepo) RemoveUser(_ context.Context, userID, role string) error {
	if !r.members[role][userID] {
		return repository.ErrNotFound
	}
	delete(r.members[role], userID)
	return nil
}

type fakeClaimRepo struct {
	claims map[string][]domain.Claim
	users  *fakeUserRepo
}

func newFakeClaimRepo(users *fakeUserRepo) *fakeClaimRepo {
	return &fakeClaimRepo{claims: make(map[string][]domain.Claim), users: users}
}

func (r *fakeClaimRepo) ListForUser(_ context.Context, userID string) ([]domain.Claim, error) {
	return r.claims[userID], nil
}

func (r *fakeClaimRepo) ListUsersWithClaim(_ context.Context, claim domain.Claim) ([]domain.User, error) {
	var users []domain.User
	for userID, claims := range r.claims {
		for _, candidate := range claims {
			if candidate == claim {
				if user, ok := r.users.users[userID]; ok {
					users = append(users, *user)
				}
			}
		}
	}
	return users, nil
}

func (r *fakeClaimRepo) Add(_ context.Context, userID string, claim domain.Claim) error {
	for _, existing := range r.claims[userID] {
		if existing == claim {
			return nil
		}
	}
	r.claims[userID] = append(r.claims[userID], claim)
	return nil
}

func (r *fakeClaimRepo) Remove(_ context.Context, userID string, claim domain.Claim) error {
	claims := r.claims[userID]
	for i, existing := range claims {
		if existing == claim {
			r.claims[userID] = append(claims[:i], claims[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeSessionRepo struct {
	sessions map[string]*domain.Session
}

func newFakeSessionRepo(sessions ...domain.Session) *fakeSessionRepo {
	repo := &fakeSessionRepo{sessions: make(map[string]*domain.Session)}
	for i := range sessions {
		session := sessions[i]
		repo.sessions[session.ID] = &session
	}
	return repo
}

func (r *fakeSessionRepo) Create(_ context.Context, session domain.Session) error {
	r.sessions[session.ID] = &session
	return nil
}

func (r *fakeSessionRepo) GetByID(_ context.Context, id string) (*domain.Session, error) {
	if session, ok := r.sessions[id]; ok {
		copied := *session
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeSessionRepo) GetByTokenHash(_ context.Context, tokenHash string) (*domain.Session, error) {
	for _, session := range r.sessions {
		if session.TokenHash == tokenHash {
			copied := *session
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeSessionRepo) ListActiveForUser(_ context.Context, userID string, at time.Time) ([]domain.Session, error) {
	var active []domain.Session
	for _, session := range r.sessions {
		if session.UserID == userID && session.IsActive(at) {
			active = append(active, *session)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ExpiresAt.After(active[j].ExpiresAt) })
	return active, nil
}

func (r *fakeSessionRepo) Touch(_ context.Context, id string, at time.Time, ip *string) error {
	session, ok := r.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	session.Touch(at, ip)
	return nil
}

func (r *fakeSessionRepo) Revoke(_ context.Context, id string) error {
	session, ok := r.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	session.Revoke()
	return nil
}

func (r *fakeSessionRepo) RevokeAllForUser(_ context.Context, userID, exceptID string) (int, error) {
	count := 0
	for _, session := range r.sessions {
		if session.UserID != userID || session.ID == exceptID || session.Revoked {
			continue
		}
		session.Revoke()
		count++
	}
	return count, nil
}

type fakeTokenRepo struct {
	tokens map[string]*domain.ActionToken // key: hash + "/" + purpose
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*domain.ActionToken)}
}

func tokenKey(hash string, purpose domain.TokenPurpose) string {
	return hash + "/" + string(purpose)
}

func (r *fakeTokenRepo) Create(_ context.Context, token domain.ActionToken) error {
	r.tokens[tokenKey(token.TokenHash, token.Purpose)] = &token
	return nil
}

func (r *fakeTokenRepo) Consume(_ context.Context, tokenHash string, purpose domain.TokenPurpose, at time.Time) (*domain.ActionToken, error) {
	token, ok := r.tokens[tokenKey(tokenHash, purpose)]
	if !ok || !token.IsUsable(at) {
		return nil, repository.ErrNotFound
	}
	used := at
	token.UsedAt = &used
	copied := *token
	return &copied, nil
}

func (r *fakeTokenRepo) ConsumeForUser(_ context.Context, tokenHash string, purpose domain.TokenPurpose, userID string, at time.Time) (*domain.ActionToken, error) {
	token, ok := r.tokens[tokenKey(tokenHash, purpose)]
	if !ok || token.UserID != userID || !token.IsUsable(at) {
		return nil, repository.ErrNotFound
	}
	used := at
	token.UsedAt = &used
	copied := *token
	return &copied, nil
}

type fakeNotificationRepo struct {
	notifications []*domain.Notification
	nextID        int64
	failFor       map[string]error // userID -> error on Create
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{nextID: 1, failFor: make(map[string]error)}
}

func (r *fakeNotificationRepo) Create(_ context.Context, notification domain.Notification) (int64, error) {
	if err, ok := r.failFor[notification.UserID]; ok {
		return 0, err
	}
	notification.ID = r.nextID
	r.nextID++
	r.notifications = append(r.notifications, &notification)
	return notification.ID, nil
}

func (r *fakeNotificationRepo) GetByID(_ context.Context, id int64) (*domain.Notification, error) {
	for _, notification := range r.notifications {
		if notification.ID == id {
			copied := *notification
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeNotificationRepo) Search(_ context.Context, userID string, filter port.NotificationSearchFilter) ([]domain.Notification, int, error) {
	var matched []domain.Notification
	for _, notification := range r.notifications {
		if notification.UserID != userID {
			continue
		}
		if filter.Status != nil {
			if notification.Status != *filter.Status {
				continue
			}
		} else if notification.Status == domain.NotificationStatusArchived {
			continue
		}
		if filter.Type != nil && notification.Type != *filter.Type {
			continue
		}
		if filter.SinceID != nil && notification.ID <= *filter.SinceID {
			continue
		}
		if filter.PriorToID != nil && notification.ID >= *filter.PriorToID {
			continue
		}
		matched = append(matched, *notification)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	return matched, len(matched), nil
}

func (r *fakeNotificationRepo) CountUnread(_ context.Context, userID string) (int, error) {
	count := 0
	for _, notification := range r.notifications {
		if notification.UserID == userID && notification.Status == domain.NotificationStatusUnread {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, id int64) error {
	for _, notification := range r.notifications {
		if notification.ID == id {
			notification.MarkRead()
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeNotificationRepo) MarkAllRead(_ context.Context, userID string) error {
	for _, notification := range r.notifications {
		if notification.UserID == userID {
			notification.MarkRead()
		}
	}
	return nil
}

type fakeAccountRepo struct {
	accounts map[int64]*domain.Account
	nextID   int64
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[int64]*domain.Account), nextID: 1}
}

func (r *fakeAccountRepo) Create(_ context.Context, account domain.Account) (int64, error) {
	account.ID = r.nextID
	r.nextID++
	r.accounts[account.ID] = &account
	return account.ID, nil
}

func (r *fakeAccountRepo) GetByID(_ context.Context, id int64) (*domain.Account, error) {
	if account, ok := r.accounts[id]; ok {
		copied := *account
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeAccountRepo) List(_ context.Context) ([]domain.Account, error) {
	var accounts []domain.Account
	for _, account := range r.accounts {
		accounts = append(accounts, *account)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

func (r *fakeAccountRepo) Update(_ context.Context, account domain.Account) error {
	if _, ok := r.accounts[account.ID]; !ok {
		return repository.ErrNotFound
	}
	r.accounts[account.ID] = &account
	return nil
}

func (r *fakeAccountRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.accounts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.accounts, id)
	return nil
}

type fakeCodeStore struct {
	codes map[string]string // purpose/identifier -> code
}

func newFakeCodeStore() *fakeCodeStore {
	return &fakeCodeStore{codes: make(map[string]string)}
}

func (s *fakeCodeStore) Store(_ context.Context, purpose, identifier, code string, _ time.Duration) error {
	s.codes[purpose+"/"+identifier] = code
	return nil
}

func (s *fakeCodeStore) Consume(_ context.Context, purpose, identifier, code string) (bool, error) {
	key := purpose + "/" + identifier
	stored, ok := s.codes[key]
	if !ok || stored != code {
		return false, nil
	}
	delete(s.codes, key)
	return true, nil
}

type sentMail struct {
	Kind  string
	To    string
	Token string
}

type fakeMailer struct {
	sent []sentMail
}

func (m *fakeMailer) SendEmailVerification(_ context.Context, to, token string) error {
	m.sent = append(m.sent, sentMail{Kind: "verification", To: to, Token: token})
	return nil
}

func (m *fakeMailer) SendEmailChange(_ context.Context, to, _, token string) error {
	m.sent = append(m.sent, sentMail{Kind: "email_change", To: to, Token: token})
	return nil
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, to, token string) error {
	m.sent = append(m.sent, sentMail{Kind: "password_reset", To: to, Token: token})
	return nil
}

func (m *fakeMailer) SendMagicLink(_ context.Context, to, token string) error {
	m.sent = append(m.sent, sentMail{Kind: "magic_link", To: to, Token: token})
	return nil
}

func (m *fakeMailer) SendTwoFactorCode(_ context.Context, to, code string) error {
	m.sent = append(m.sent, sentMail{Kind: "two_factor", To: to, Token: code})
	return nil
}

func (m *fakeMailer) lastOfKind(kind string) *sentMail {
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].Kind == kind {
			return &m.sent[i]
		}
	}
	return nil
}

type fakeEventPublisher struct {
	registered      []domain.UserRegisteredEvent
	passwordChanged []domain.PasswordChangedEvent
	sessionRevoked  []domain.SessionRevokedEvent
	lockChanged     []domain.UserLockedEvent
}

func (p *fakeEventPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	p.registered = append(p.registered, event)
	return nil
}

func (p *fakeEventPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.passwordChanged = append(p.passwordChanged, event)
	return nil
}

func (p *fakeEventPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	p.sessionRevoked = append(p.sessionRevoked, event)
	return nil
}

func (p *fakeEventPublisher) PublishUserLocked(_ context.Context, event domain.UserLockedEvent) error {
	p.lockChanged = append(p.lockChanged, event)
	return nil
}

type fakeSessionEstablisher struct {
	established []string // user IDs
}

func (f *fakeSessionEstablisher) EstablishSession(_ context.Context, user *domain.User, _ DeviceInfo) (*LoginResult, error) {
	f.established = append(f.established, user.ID)
	return &LoginResult{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().UTC().Add(time.Hour),
	}, nil
}

type fakeTokenIssuer struct {
	issued int
}

func (i *fakeTokenIssuer) IssueAccessToken(_ *domain.User, _ []string, _ []domain.Claim, _ string, _ time.Time) (string, error) {
	i.issued++
	return "access-token", nil
}

func (i *fakeTokenIssuer) AccessTokenTTL() time.Duration {
	return 15 * time.Minute
}
