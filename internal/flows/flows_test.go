package flows

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/account"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/storage/memory"
)

var (
	errNotReady     = errors.New("not ready")
	errBadRequest   = errors.New("bad request")
	errUnauthorized = errors.New("unauthorized")
	errInvalidCreds = errors.New("invalid credentials")
	errUserNotFound = errors.New("user not found")
	errExists       = errors.New("exists")
	errRateLimited  = errors.New("rate limited")
	errInvalidation = errors.New("invalidation failed")
)

var testErrors = Errors{
	EngineNotReady:            errNotReady,
	BadRequest:                errBadRequest,
	Unauthorized:              errUnauthorized,
	InvalidCredentials:        errInvalidCreds,
	UserNotFound:              errUserNotFound,
	AccountExists:             errExists,
	LoginRateLimited:          errRateLimited,
	SessionInvalidationFailed: errInvalidation,
}

type fakeSession struct {
	id         string
	user       *session.User
	destroyed  bool
	destroyErr error
}

func (s *fakeSession) ID() string              { return s.id }
func (s *fakeSession) User() *session.User     { return s.user }
func (s *fakeSession) SetUser(u *session.User) { s.user = u }
func (s *fakeSession) Destroy(context.Context) error {
	s.destroyed = true
	return s.destroyErr
}

type auditRecord struct {
	event   string
	success bool
	userID  string
	err     error
	meta    map[string]string
}

type recorder struct {
	mu      sync.Mutex
	metrics []int
	audits  []auditRecord
	warns   []string
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		MetricInc: func(id int) {
			r.mu.Lock()
			r.metrics = append(r.metrics, id)
			r.mu.Unlock()
		},
		EmitAudit: func(_ context.Context, event string, success bool, userID, _ string, err error, meta func() map[string]string) {
			rec := auditRecord{event: event, success: success, userID: userID, err: err}
			if meta != nil {
				rec.meta = meta()
			}
			r.mu.Lock()
			r.audits = append(r.audits, rec)
			r.mu.Unlock()
		},
		Warn: func(msg string, _ error) {
			r.mu.Lock()
			r.warns = append(r.warns, msg)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) last() auditRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.audits) == 0 {
		return auditRecord{}
	}
	return r.audits[len(r.audits)-1]
}

func plainVerify(pw, hash string) (bool, error) { return "plain:"+pw == hash, nil }

func seedUser(dir *memory.Directory, sessions ...string) *account.Record {
	return dir.Put(account.Record{
		FirstName:    "Ada",
		Email:        "ada@example.com",
		Status:       account.StatusActive,
		PasswordHash: "plain:secret",
		Sessions:     sessions,
		UpdatedAt:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	})
}

func loginDeps(dir account.Directory, live map[string]bool, rec *recorder) LoginDeps {
	return LoginDeps{
		Directory:      dir,
		VerifyPassword: plainVerify,
		LiveSessions: func(_ context.Context, tokens []string) ([]string, error) {
			var out []string
			for _, t := range tokens {
				if live[t] {
					out = append(out, t)
				}
			}
			return out, nil
		},
		Hooks:   rec.hooks(),
		Metrics: LoginMetrics{LoginSuccess: 1, LoginFailure: 2, LoginRateLimited: 3},
		Events:  LoginEvents{LoginSuccess: "login_success", LoginFailure: "login_failure", LoginRateLimited: "login_rate_limited"},
		Errors:  testErrors,
	}
}

func TestLoginPrunesDeadSessionsAndAttachesUser(t *testing.T) {
	dir := memory.NewDirectory()
	user := seedUser(dir, "dead", "alive")
	rec := &recorder{}
	sess := &fakeSession{id: "current"}

	res, err := RunLogin(context.Background(), sess, " ADA@example.com ", "secret", loginDeps(dir, map[string]bool{"alive": true}, rec))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Token != "current" || res.User.ID != user.ID {
		t.Fatalf("unexpected result %+v", res)
	}
	if sess.user == nil || sess.user.Email != "ada@example.com" {
		t.Fatalf("session user not attached: %+v", sess.user)
	}

	stored, _ := dir.FindByID(context.Background(), user.ID)
	if !slices.Equal(stored.Sessions, []string{"alive", "current"}) {
		t.Fatalf("unexpected session list %v", stored.Sessions)
	}
	if !stored.UpdatedAt.Equal(user.UpdatedAt) {
		t.Fatal("session list write must not bump updatedAt")
	}
	if got := rec.last(); got.event != "login_success" || !got.success {
		t.Fatalf("unexpected audit %+v", got)
	}
}

func TestLoginDoesNotDuplicateCurrentToken(t *testing.T) {
	dir := memory.NewDirectory()
	user := seedUser(dir, "current")
	sess := &fakeSession{id: "current"}

	if _, err := RunLogin(context.Background(), sess, "ada@example.com", "secret", loginDeps(dir, map[string]bool{"current": true}, &recorder{})); err != nil {
		t.Fatalf("login: %v", err)
	}
	stored, _ := dir.FindByID(context.Background(), user.ID)
	if !slices.Equal(stored.Sessions, []string{"current"}) {
		t.Fatalf("unexpected session list %v", stored.Sessions)
	}
}

func TestLoginKeepsListWhenPruningFails(t *testing.T) {
	dir := memory.NewDirectory()
	user := seedUser(dir, "maybe")
	rec := &recorder{}
	deps := loginDeps(dir, nil, rec)
	deps.LiveSessions = func(ctx context.Context, _ []string) ([]string, error) {
		// a concurrent login lands between the user lookup and the list write
		if err := dir.AddSession(ctx, user.ID, "other"); err != nil {
			t.Fatalf("add session: %v", err)
		}
		return nil, errors.New("redis down")
	}

	if _, err := RunLogin(context.Background(), &fakeSession{id: "current"}, "ada@example.com", "secret", deps); err != nil {
		t.Fatalf("login: %v", err)
	}
	stored, _ := dir.FindByID(context.Background(), user.ID)
	if !slices.Equal(stored.Sessions, []string{"maybe", "other", "current"}) {
		t.Fatalf("unexpected session list %v", stored.Sessions)
	}
	if len(rec.warns) != 1 {
		t.Fatalf("expected a warning, got %v", rec.warns)
	}
}

func TestLoginFailures(t *testing.T) {
	dir := memory.NewDirectory()
	seedUser(dir)

	cases := []struct {
		name     string
		email    string
		password string
		want     error
		reason   string
	}{
		{"missing email", "", "secret", errBadRequest, "missing_fields"},
		{"missing password", "ada@example.com", "", errBadRequest, "missing_fields"},
		{"unknown user", "bob@example.com", "secret", errUserNotFound, "user_not_found"},
		{"wrong password", "ada@example.com", "nope", errInvalidCreds, "password_mismatch"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &recorder{}
			sess := &fakeSession{id: "tok"}
			_, err := RunLogin(context.Background(), sess, tc.email, tc.password, loginDeps(dir, nil, rec))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if sess.user != nil {
				t.Fatal("failed login must not attach a user")
			}
			got := rec.last()
			if got.event != "login_failure" || got.meta["reason"] != tc.reason {
				t.Fatalf("unexpected audit %+v", got)
			}
		})
	}
}

func TestLoginRateLimiting(t *testing.T) {
	dir := memory.NewDirectory()
	seedUser(dir)
	rec := &recorder{}
	deps := loginDeps(dir, nil, rec)

	failures := 0
	deps.CheckLoginRate = func(context.Context, string, string) error {
		if failures >= 2 {
			return errors.New("limited")
		}
		return nil
	}
	deps.FailLoginRate = func(context.Context, string, string) error {
		failures++
		if failures >= 2 {
			return errors.New("limited")
		}
		return nil
	}
	reset := false
	deps.ResetLoginRate = func(context.Context, string, string) error {
		reset = true
		return nil
	}

	ctx := context.Background()
	if _, err := RunLogin(ctx, &fakeSession{id: "t"}, "ada@example.com", "bad", deps); !errors.Is(err, errInvalidCreds) {
		t.Fatalf("first failure: %v", err)
	}
	if _, err := RunLogin(ctx, &fakeSession{id: "t"}, "ada@example.com", "bad", deps); !errors.Is(err, errRateLimited) {
		t.Fatalf("second failure should exhaust budget: %v", err)
	}
	if _, err := RunLogin(ctx, &fakeSession{id: "t"}, "ada@example.com", "secret", deps); !errors.Is(err, errRateLimited) {
		t.Fatalf("limited login must be rejected before password check: %v", err)
	}
	if reset {
		t.Fatal("reset must only run after success")
	}

	failures = 0
	if _, err := RunLogin(ctx, &fakeSession{id: "t"}, "ada@example.com", "secret", deps); err != nil {
		t.Fatalf("login: %v", err)
	}
	if !reset {
		t.Fatal("expected throttle reset after success")
	}
}

func TestLoginUpgradesLegacyHash(t *testing.T) {
	dir := memory.NewDirectory()
	user := seedUser(dir)
	deps := loginDeps(dir, nil, &recorder{})
	deps.PasswordNeedsUpgrade = func(hash string) bool { return strings.HasPrefix(hash, "plain:") }
	deps.HashPassword = func(pw string) (string, error) { return "strong:" + pw, nil }

	if _, err := RunLogin(context.Background(), &fakeSession{id: "t"}, "ada@example.com", "secret", deps); err != nil {
		t.Fatalf("login: %v", err)
	}
	stored, _ := dir.FindByID(context.Background(), user.ID)
	if stored.PasswordHash != "strong:secret" {
		t.Fatalf("expected upgraded hash, got %q", stored.PasswordHash)
	}
}

func TestLoginNotReady(t *testing.T) {
	if _, err := RunLogin(context.Background(), &fakeSession{}, "a", "b", LoginDeps{Errors: testErrors}); !errors.Is(err, errNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	dir := memory.NewDirectory()
	user := seedUser(dir, "a", "current")
	rec := &recorder{}
	sess := &fakeSession{id: "current", user: account.Project(user)}

	deps := LogoutDeps{Directory: dir, Hooks: rec.hooks(), Events: LogoutEvents{Logout: "logout"}, Errors: testErrors}
	if err := RunLogout(context.Background(), sess, deps); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if !sess.destroyed {
		t.Fatal("session not destroyed")
	}
	stored, _ := dir.FindByID(context.Background(), user.ID)
	if !slices.Equal(stored.Sessions, []string{"a"}) {
		t.Fatalf("unexpected session list %v", stored.Sessions)
	}
	if rec.last().event != "logout" || !rec.last().success {
		t.Fatalf("unexpected audit %+v", rec.last())
	}
}

func TestLogoutUnknownUserStillDestroys(t *testing.T) {
	sess := &fakeSession{id: "current", user: &session.User{ID: "ghost"}}
	deps := LogoutDeps{Directory: memory.NewDirectory(), Errors: testErrors}

	if err := RunLogout(context.Background(), sess, deps); !errors.Is(err, errUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
	if !sess.destroyed {
		t.Fatal("session must be destroyed even for unknown users")
	}

	anon := &fakeSession{id: "anon"}
	if err := RunLogout(context.Background(), anon, deps); err != nil || !anon.destroyed {
		t.Fatalf("anonymous logout: err=%v destroyed=%v", err, anon.destroyed)
	}
}

func TestRenewUser(t *testing.T) {
	dir := memory.NewDirectory()
	user := seedUser(dir)
	deps := RenewDeps{Directory: dir, Errors: testErrors}

	if _, err := RunRenewUser(context.Background(), &fakeSession{id: "t"}, deps); !errors.Is(err, errUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	sess := &fakeSession{id: "t", user: &session.User{ID: user.ID, FirstName: "Old"}}
	u, err := RunRenewUser(context.Background(), sess, deps)
	if err != nil {
		t.Fatalf("renew: %v", err)
	}
	if u.FirstName != "Ada" || sess.user.FirstName != "Ada" {
		t.Fatalf("projection not refreshed: %+v", sess.user)
	}
	if !sess.user.UpdatedAt.Equal(user.UpdatedAt) {
		t.Fatal("projection must carry updatedAt")
	}

	gone := &fakeSession{id: "t", user: &session.User{ID: "missing"}}
	if _, err := RunRenewUser(context.Background(), gone, deps); !errors.Is(err, errUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
}

func signUpDeps(dir account.Directory, rec *recorder) SignUpDeps {
	return SignUpDeps{
		Directory: dir,
		HashPassword: func(pw string) (string, error) {
			if len(pw) < 4 {
				return "", errors.New("too short")
			}
			return "hashed:" + pw, nil
		},
		InvalidPassword: func(err error) bool { return err.Error() == "too short" },
		Hooks:           rec.hooks(),
		Metrics:         SignUpMetrics{SignUpSuccess: 10, SignUpDuplicate: 11},
		Events:          SignUpEvents{SignUpSuccess: "signup_success", SignUpFailure: "signup_failure"},
		Errors:          testErrors,
	}
}

func TestSignUp(t *testing.T) {
	dir := memory.NewDirectory()
	rec := &recorder{}
	deps := signUpDeps(dir, rec)

	pub, err := RunSignUp(context.Background(), SignUpInput{FirstName: " Ada ", Email: "Ada@Example.com", Password: "secret"}, deps)
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if pub.Email != "ada@example.com" || pub.FirstName != "Ada" || pub.Status != account.StatusActive {
		t.Fatalf("unexpected public record %+v", pub)
	}
	stored, _ := dir.FindByID(context.Background(), pub.ID)
	if stored.PasswordHash != "hashed:secret" {
		t.Fatalf("password not hashed: %q", stored.PasswordHash)
	}

	if _, err := RunSignUp(context.Background(), SignUpInput{FirstName: "B", Email: "ada@example.com", Password: "secret"}, deps); !errors.Is(err, errExists) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if !slices.Contains(rec.metrics, 11) {
		t.Fatal("duplicate metric not recorded")
	}
}

func TestSignUpValidation(t *testing.T) {
	deps := signUpDeps(memory.NewDirectory(), &recorder{})
	for _, in := range []SignUpInput{
		{Email: "a@b.c", Password: "secret"},
		{FirstName: "A", Password: "secret"},
		{FirstName: "A", Email: "a@b.c"},
		{FirstName: "A", Email: "a@b.c", Password: "abc"},
	} {
		if _, err := RunSignUp(context.Background(), in, deps); !errors.Is(err, errBadRequest) {
			t.Fatalf("input %+v: expected bad request, got %v", in, err)
		}
	}
}

type failingStore struct {
	destroyed []string
	fail      map[string]bool
}

func (f *failingStore) destroy(_ context.Context, token string) error {
	if f.fail[token] {
		return errors.New("redis down")
	}
	f.destroyed = append(f.destroyed, token)
	return nil
}

func TestRevokeUserSessions(t *testing.T) {
	dir := memory.NewDirectory()
	user := seedUser(dir, "a", "current", "b")
	store := &failingStore{}
	current := &fakeSession{id: "current", user: account.Project(user)}
	rec := &recorder{}

	deps := RevokeDeps{Directory: dir, DestroyToken: store.destroy, Hooks: rec.hooks(), Events: RevokeEvents{SessionsRevoked: "sessions_revoked"}, Errors: testErrors}
	n, err := RunRevokeUserSessions(context.Background(), user.ID, current, deps)
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 revoked, got %d", n)
	}
	if !current.destroyed {
		t.Fatal("current session must be destroyed through its handle")
	}
	if slices.Contains(store.destroyed, "current") {
		t.Fatal("current token must not be destroyed directly")
	}
	stored, _ := dir.FindByID(context.Background(), user.ID)
	if len(stored.Sessions) != 0 {
		t.Fatalf("expected empty session list, got %v", stored.Sessions)
	}
	if rec.last().meta["revoked"] != "3" {
		t.Fatalf("unexpected audit %+v", rec.last())
	}
}

func TestRevokeUserSessionsPartialFailure(t *testing.T) {
	dir := memory.NewDirectory()
	user := seedUser(dir, "a", "b")
	store := &failingStore{fail: map[string]bool{"b": true}}

	deps := RevokeDeps{Directory: dir, DestroyToken: store.destroy, Errors: testErrors}
	n, err := RunRevokeUserSessions(context.Background(), user.ID, nil, deps)
	if !errors.Is(err, errInvalidation) {
		t.Fatalf("expected invalidation failure, got %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 revoked, got %d", n)
	}
	stored, _ := dir.FindByID(context.Background(), user.ID)
	if !slices.Equal(stored.Sessions, []string{"b"}) {
		t.Fatalf("failed token must stay listed, got %v", stored.Sessions)
	}

	if _, err := RunRevokeUserSessions(context.Background(), "missing", nil, deps); !errors.Is(err, errUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
}
