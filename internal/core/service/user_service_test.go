package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/clubhub/user-service/internal/core/domain"
	"github.com/clubhub/user-service/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stubs
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	users     map[string]*domain.User
	saveErr   error // if set, Save returns this error
	deleteErr error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *stubUserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	for _, u := range r.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, u := range r.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubUserRepo) FindAll(_ context.Context) ([]*domain.User, error) {
	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		clone := *u
		out = append(out, &clone)
	}
	return out, nil
}

func (r *stubUserRepo) Save(_ context.Context, user *domain.User) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *stubUserRepo) Delete(_ context.Context, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

type stubIdentityProvider struct {
	nextID     string
	nextSecret string

	createErr error
	updateErr error
	resetErr  error
	deleteErr error

	createCalls int
	updateCalls []ports.IdentityUpdate
	resetCalls  []string // new secrets
	deleteCalls []string // ids
}

func newStubIdentityProvider() *stubIdentityProvider {
	return &stubIdentityProvider{
		nextID:     "a81bc81b-dead-4e5d-abff-90865d1e13b1",
		nextSecret: "Temp@Pass123",
	}
}

func (p *stubIdentityProvider) CreateIdentity(_ context.Context, _ ports.NewIdentity) (string, string, error) {
	p.createCalls++
	if p.createErr != nil {
		return "", "", p.createErr
	}
	return p.nextID, p.nextSecret, nil
}

func (p *stubIdentityProvider) UpdateIdentity(_ context.Context, _ string, in ports.IdentityUpdate) error {
	if p.updateErr != nil {
		return p.updateErr
	}
	p.updateCalls = append(p.updateCalls, in)
	return nil
}

func (p *stubIdentityProvider) ResetCredential(_ context.Context, _ string, newSecret string) error {
	if p.resetErr != nil {
		return p.resetErr
	}
	p.resetCalls = append(p.resetCalls, newSecret)
	return nil
}

func (p *stubIdentityProvider) DeleteIdentity(_ context.Context, id string) error {
	p.deleteCalls = append(p.deleteCalls, id)
	return p.deleteErr
}

type welcomeCall struct {
	to, username, password string
}

type stubNotifier struct {
	sendErr error
	calls   []welcomeCall
}

func (n *stubNotifier) SendWelcome(_ context.Context, to, username, tempPassword string) error {
	n.calls = append(n.calls, welcomeCall{to: to, username: username, password: tempPassword})
	return n.sendErr
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var discardLogger = zerolog.Nop()

var adminActor = domain.Principal{ID: "admin-id", Username: "root", Role: domain.RoleAdmin}

type fixture struct {
	repo     *stubUserRepo
	idp      *stubIdentityProvider
	notifier *stubNotifier
	svc      ports.UserService
}

func newFixture() *fixture {
	repo := newStubUserRepo()
	idp := newStubIdentityProvider()
	notifier := &stubNotifier{}
	return &fixture{
		repo:     repo,
		idp:      idp,
		notifier: notifier,
		svc:      NewUserService(repo, idp, notifier, discardLogger),
	}
}

func createInput(username, email string) ports.CreateUserInput {
	return ports.CreateUserInput{
		Username:  username,
		Email:     email,
		FirstName: "Alice",
		LastName:  "Doe",
		Role:      domain.RoleUser,
	}
}

func seedUser(repo *stubUserRepo, id, username, email string) *domain.User {
	created := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	u := &domain.User{
		ID:        id,
		Username:  username,
		Email:     email,
		FirstName: "Seed",
		LastName:  "User",
		Role:      domain.RoleUser,
		CreatedAt: created,
		UpdatedAt: created,
	}
	repo.users[id] = u
	return u
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestUserService_Create_Success(t *testing.T) {
	f := newFixture()

	user, err := f.svc.Create(context.Background(), adminActor, createInput("alice", "alice@example.com"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if user.ID != f.idp.nextID {
		t.Errorf("id must match identity provider id: want %q, got %q", f.idp.nextID, user.ID)
	}
	if user.CreatedAt.IsZero() || user.UpdatedAt.IsZero() {
		t.Error("timestamps must be set")
	}

	got, err := f.svc.Get(context.Background(), adminActor, user.ID)
	if err != nil {
		t.Fatalf("get after create: %v", err)
	}
	if *got != *user {
		t.Errorf("get after create must return an equal record:\n want %+v\n got  %+v", *user, *got)
	}
}

func TestUserService_Create_SendsGeneratedSecret(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), adminActor, createInput("alice", "alice@example.com"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.notifier.calls) != 1 {
		t.Fatalf("expected 1 welcome mail, got %d", len(f.notifier.calls))
	}
	call := f.notifier.calls[0]
	if call.to != "alice@example.com" || call.username != "alice" || call.password != f.idp.nextSecret {
		t.Errorf("unexpected welcome call: %+v", call)
	}
}

func TestUserService_Create_DuplicateUsername(t *testing.T) {
	f := newFixture()
	seedUser(f.repo, "existing-id", "alice", "old@example.com")

	_, err := f.svc.Create(context.Background(), adminActor, createInput("alice", "new@example.com"))
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	var ae *domain.AlreadyExistsError
	if !errors.As(err, &ae) || ae.Field != "username" {
		t.Errorf("expected username collision, got %v", err)
	}
	if f.idp.createCalls != 0 {
		t.Errorf("identity provider create must not be called, got %d calls", f.idp.createCalls)
	}
}

func TestUserService_Create_DuplicateEmail(t *testing.T) {
	f := newFixture()
	seedUser(f.repo, "existing-id", "bob", "alice@example.com")

	// Unused username passes the first check; the email check must still fail.
	_, err := f.svc.Create(context.Background(), adminActor, createInput("alice", "alice@example.com"))
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	var ae *domain.AlreadyExistsError
	if !errors.As(err, &ae) || ae.Field != "email" {
		t.Errorf("expected email collision, got %v", err)
	}
	if f.idp.createCalls != 0 {
		t.Errorf("identity provider create must not be called, got %d calls", f.idp.createCalls)
	}
}

func TestUserService_Create_IdentityProviderFailure(t *testing.T) {
	f := newFixture()
	f.idp.createErr = &domain.IdentityProviderError{Op: "create user", Err: errors.New("status 500")}

	_, err := f.svc.Create(context.Background(), adminActor, createInput("alice", "alice@example.com"))
	if !errors.Is(err, domain.ErrIdentityProvider) {
		t.Fatalf("expected identity provider error, got %v", err)
	}

	if len(f.repo.users) != 0 {
		t.Error("no local record may exist after a remote create failure")
	}
	if len(f.idp.deleteCalls) != 0 {
		t.Error("no compensation must run when the remote create itself failed")
	}
}

func TestUserService_Create_PersistFailureCompensates(t *testing.T) {
	f := newFixture()
	dbErr := errors.New("db unavailable")
	f.repo.saveErr = dbErr

	_, err := f.svc.Create(context.Background(), adminActor, createInput("alice", "alice@example.com"))

	// The caller must observe the original persistence error, not a wrapped one.
	if err != dbErr {
		t.Fatalf("expected the original persistence error, got %v", err)
	}
	if len(f.idp.deleteCalls) != 1 {
		t.Fatalf("expected exactly 1 compensating delete, got %d", len(f.idp.deleteCalls))
	}
	if f.idp.deleteCalls[0] != f.idp.nextID {
		t.Errorf("compensating delete must target the remote id %q, got %q", f.idp.nextID, f.idp.deleteCalls[0])
	}
	if len(f.notifier.calls) != 0 {
		t.Error("no welcome mail may be sent when persistence failed")
	}
}

func TestUserService_Create_CompensationErrorSwallowed(t *testing.T) {
	f := newFixture()
	dbErr := errors.New("db unavailable")
	f.repo.saveErr = dbErr
	f.idp.deleteErr = errors.New("keycloak down too")

	_, err := f.svc.Create(context.Background(), adminActor, createInput("alice", "alice@example.com"))
	if err != dbErr {
		t.Fatalf("compensation failure must not mask the persistence error, got %v", err)
	}
}

func TestUserService_Create_NotifierFailureIgnored(t *testing.T) {
	f := newFixture()
	f.notifier.sendErr = errors.New("smtp timeout")

	user, err := f.svc.Create(context.Background(), adminActor, createInput("alice", "alice@example.com"))
	if err != nil {
		t.Fatalf("notification failure must not fail the create: %v", err)
	}
	if _, ok := f.repo.users[user.ID]; !ok {
		t.Error("user must remain persisted despite the mail failure")
	}
}

// ---------------------------------------------------------------------------
// Get / List
// ---------------------------------------------------------------------------

func TestUserService_Get_NotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Get(context.Background(), adminActor, "missing-id")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserService_List(t *testing.T) {
	f := newFixture()
	seedUser(f.repo, "id-1", "alice", "alice@example.com")
	seedUser(f.repo, "id-2", "bob", "bob@example.com")

	users, err := f.svc.List(context.Background(), adminActor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("expected 2 users, got %d", len(users))
	}
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func strPtr(s string) *string { return &s }

func TestUserService_Update_NotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Update(context.Background(), adminActor, "missing-id", ports.UpdateUserInput{Email: strPtr("x@example.com")})
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if len(f.idp.updateCalls) != 0 {
		t.Error("no remote call may happen for an unknown id")
	}
}

func TestUserService_Update_PartialMerge(t *testing.T) {
	f := newFixture()
	seeded := seedUser(f.repo, "id-1", "alice", "alice@example.com")

	updated, err := f.svc.Update(context.Background(), adminActor, "id-1", ports.UpdateUserInput{
		Email: strPtr("new@example.com"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updated.Email != "new@example.com" {
		t.Errorf("email not applied: %q", updated.Email)
	}
	if updated.FirstName != seeded.FirstName || updated.LastName != seeded.LastName {
		t.Error("absent fields must stay unchanged")
	}
	if updated.Username != seeded.Username || updated.Role != seeded.Role {
		t.Error("username and role are immutable")
	}
	if !updated.UpdatedAt.After(seeded.UpdatedAt) {
		t.Error("UpdatedAt must be bumped")
	}

	// The same non-nil fields must have been pushed remotely first.
	if len(f.idp.updateCalls) != 1 {
		t.Fatalf("expected 1 remote update, got %d", len(f.idp.updateCalls))
	}
	remote := f.idp.updateCalls[0]
	if remote.Email == nil || *remote.Email != "new@example.com" || remote.FirstName != nil || remote.LastName != nil {
		t.Errorf("unexpected remote update payload: %+v", remote)
	}
}

func TestUserService_Update_AllNilFieldsOnlyBumpsTimestamp(t *testing.T) {
	f := newFixture()
	seeded := seedUser(f.repo, "id-1", "alice", "alice@example.com")

	updated, err := f.svc.Update(context.Background(), adminActor, "id-1", ports.UpdateUserInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updated.Email != seeded.Email || updated.FirstName != seeded.FirstName || updated.LastName != seeded.LastName {
		t.Error("all-nil update must leave mutable fields unchanged")
	}
	if !updated.UpdatedAt.After(seeded.UpdatedAt) {
		t.Error("UpdatedAt must still be bumped")
	}
}

func TestUserService_Update_RemoteFailureLeavesLocalUntouched(t *testing.T) {
	f := newFixture()
	seeded := seedUser(f.repo, "id-1", "alice", "alice@example.com")
	f.idp.updateErr = &domain.IdentityProviderError{Op: "update user", Err: errors.New("status 500")}

	_, err := f.svc.Update(context.Background(), adminActor, "id-1", ports.UpdateUserInput{Email: strPtr("new@example.com")})
	if !errors.Is(err, domain.ErrIdentityProvider) {
		t.Fatalf("expected identity provider error, got %v", err)
	}

	stored := f.repo.users["id-1"]
	if stored.Email != seeded.Email || !stored.UpdatedAt.Equal(seeded.UpdatedAt) {
		t.Error("local record must be untouched when the remote update fails")
	}
}

// ---------------------------------------------------------------------------
// ResetCredential
// ---------------------------------------------------------------------------

func TestUserService_ResetCredential_NotFound(t *testing.T) {
	f := newFixture()

	err := f.svc.ResetCredential(context.Background(), adminActor, "missing-id", "NewPass123!")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if len(f.idp.resetCalls) != 0 {
		t.Error("no remote call may happen for an unknown id")
	}
}

func TestUserService_ResetCredential_Delegates(t *testing.T) {
	f := newFixture()
	seedUser(f.repo, "id-1", "alice", "alice@example.com")

	if err := f.svc.ResetCredential(context.Background(), adminActor, "id-1", "NewPass123!"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.idp.resetCalls) != 1 || f.idp.resetCalls[0] != "NewPass123!" {
		t.Errorf("expected one reset with the new secret, got %v", f.idp.resetCalls)
	}
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

func TestUserService_Delete_NotFound(t *testing.T) {
	f := newFixture()

	err := f.svc.Delete(context.Background(), adminActor, "missing-id")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if len(f.idp.deleteCalls) != 0 {
		t.Error("no remote call may happen for an unknown id")
	}
}

func TestUserService_Delete_RemovesLocalThenRemote(t *testing.T) {
	f := newFixture()
	seedUser(f.repo, "id-1", "alice", "alice@example.com")

	if err := f.svc.Delete(context.Background(), adminActor, "id-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := f.repo.users["id-1"]; ok {
		t.Error("local record must be gone")
	}
	if len(f.idp.deleteCalls) != 1 || f.idp.deleteCalls[0] != "id-1" {
		t.Errorf("expected one remote delete for id-1, got %v", f.idp.deleteCalls)
	}
}

func TestUserService_Delete_RemoteFailureSwallowed(t *testing.T) {
	f := newFixture()
	seedUser(f.repo, "id-1", "alice", "alice@example.com")
	f.idp.deleteErr = errors.New("keycloak down")

	if err := f.svc.Delete(context.Background(), adminActor, "id-1"); err != nil {
		t.Fatalf("remote delete failure must not surface: %v", err)
	}
	if _, ok := f.repo.users["id-1"]; ok {
		t.Error("local delete must stand despite the remote failure")
	}
}

// ---------------------------------------------------------------------------
// End-to-end scenario
// ---------------------------------------------------------------------------

func TestUserService_Scenario_CreateDuplicateDeleteGet(t *testing.T) {
	f := newFixture()

	created, err := f.svc.Create(context.Background(), adminActor, createInput("alice", "alice@example.com"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = f.svc.Create(context.Background(), adminActor, createInput("alice", "other@example.com"))
	var ae *domain.AlreadyExistsError
	if !errors.As(err, &ae) || ae.Field != "username" || ae.Value != "alice" {
		t.Fatalf("expected AlreadyExists on username alice, got %v", err)
	}

	if err := f.svc.Delete(context.Background(), adminActor, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, err = f.svc.Get(context.Background(), adminActor, created.ID)
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound after delete, got %v", err)
	}
}
