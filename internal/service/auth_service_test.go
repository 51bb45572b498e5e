package service_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/atlaslabs/atlas-auth/internal/config"
	"github.com/atlaslabs/atlas-auth/internal/domain"
	"github.com/atlaslabs/atlas-auth/internal/jwt"
	"github.com/atlaslabs/atlas-auth/internal/password"
	"github.com/atlaslabs/atlas-auth/internal/service"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestService(users *memoryUserRepo, ttl time.Duration) *service.AuthService {
	codec := jwt.NewCodec(testSecret, ttl)
	cfg := config.Config{AccessTokenTTL: ttl}
	return service.NewAuthService(users, codec, cfg, zap.NewNop())
}

func TestRegisterIssuesValidToken(t *testing.T) {
	ctx := context.Background()
	users := newMemoryUserRepo()
	svc := newTestService(users, time.Hour)

	resp, err := svc.Register(ctx, "a@x.com", "pw1", "Alice")
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.Equal(t, "bearer", resp.TokenType)
	require.Equal(t, "a@x.com", resp.User.Email)
	require.NotNil(t, resp.User.Name)
	require.Equal(t, "Alice", *resp.User.Name)
	require.NotEmpty(t, resp.User.ID)

	stored, err := users.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.True(t, stored.IsActive)
	require.NotEqual(t, "pw1", stored.PasswordHash)
	require.True(t, password.Verify("pw1", stored.PasswordHash))
	require.False(t, stored.CreatedAt.IsZero())
	require.Equal(t, stored.CreatedAt, stored.UpdatedAt)

	// The token must resolve back to the same account.
	me, err := svc.Identify(ctx, "Bearer "+resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "a@x.com", me.Email)
}

func TestRegisterWithoutName(t *testing.T) {
	ctx := context.Background()
	users := newMemoryUserRepo()
	svc := newTestService(users, time.Hour)

	resp, err := svc.Register(ctx, "a@x.com", "pw1", "")
	require.NoError(t, err)
	require.Nil(t, resp.User.Name)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	ctx := context.Background()
	users := newMemoryUserRepo()
	svc := newTestService(users, time.Hour)

	_, err := svc.Register(ctx, "a@x.com", "pw1", "")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "a@x.com", "pw2", "")
	var authErr *service.AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, http.StatusConflict, authErr.Status)
	require.Equal(t, "email_taken", authErr.Code)
	require.Equal(t, 1, users.count())
}

func TestConcurrentRegistersSameEmail(t *testing.T) {
	// The store's uniqueness guarantee, not the advisory existence check,
	// decides the race: exactly one register may win.
	ctx := context.Background()
	users := newMemoryUserRepo()
	svc := newTestService(users, time.Hour)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Register(ctx, "race@x.com", "pw", "")
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		var authErr *service.AuthError
		require.ErrorAs(t, err, &authErr)
		require.Equal(t, http.StatusConflict, authErr.Status)
	}
	require.Equal(t, 1, successes)
	require.Equal(t, 1, users.count())
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	users := newMemoryUserRepo()
	svc := newTestService(users, time.Hour)

	_, err := svc.Register(ctx, "a@x.com", "pw1", "")
	require.NoError(t, err)

	_, wrongPassword := svc.Login(ctx, "a@x.com", "nope")
	_, unknownEmail := svc.Login(ctx, "nobody@x.com", "pw1")

	var first, second *service.AuthError
	require.ErrorAs(t, wrongPassword, &first)
	require.ErrorAs(t, unknownEmail, &second)
	require.Equal(t, first.Status, second.Status)
	require.Equal(t, first.Code, second.Code)
	require.Equal(t, first.Description, second.Description)
	require.Equal(t, http.StatusUnauthorized, first.Status)
}

func TestLoginSuccess(t *testing.T) {
	ctx := context.Background()
	users := newMemoryUserRepo()
	svc := newTestService(users, time.Hour)

	registered, err := svc.Register(ctx, "a@x.com", "pw1", "Alice")
	require.NoError(t, err)

	logged, err := svc.Login(ctx, "a@x.com", "pw1")
	require.NoError(t, err)
	require.Equal(t, registered.User.ID, logged.User.ID)
	require.NotEmpty(t, logged.AccessToken)
}

func TestIdentifyRejections(t *testing.T) {
	ctx := context.Background()
	users := newMemoryUserRepo()
	svc := newTestService(users, time.Hour)

	resp, err := svc.Register(ctx, "a@x.com", "pw1", "")
	require.NoError(t, err)

	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic " + resp.AccessToken,
		"no token":       "Bearer",
		"garbage token":  "Bearer not-a-token",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Identify(ctx, header)
			var authErr *service.AuthError
			require.ErrorAs(t, err, &authErr)
			require.Equal(t, http.StatusUnauthorized, authErr.Status)
		})
	}
}

func TestIdentifyExpiredToken(t *testing.T) {
	ctx := context.Background()
	users := newMemoryUserRepo()
	expired := newTestService(users, -30*time.Second)

	resp, err := expired.Register(ctx, "a@x.com", "pw1", "")
	require.NoError(t, err)

	_, err = expired.Identify(ctx, "Bearer "+resp.AccessToken)
	var authErr *service.AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, http.StatusUnauthorized, authErr.Status)
}

func TestAuditLogsCarryEnvironment(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	users := newMemoryUserRepo()
	codec := jwt.NewCodec(testSecret, time.Hour)
	cfg := config.Config{Environment: "production", AccessTokenTTL: time.Hour}
	svc := service.NewAuthService(users, codec, cfg, zap.New(core))

	_, err := svc.Register(context.Background(), "a@x.com", "pw1", "")
	require.NoError(t, err)

	entries := logs.FilterMessage("audit").All()
	require.NotEmpty(t, entries)
	fields := entries[0].ContextMap()
	require.Equal(t, "register.success", fields["event"])
	require.Equal(t, "production", fields["environment"])
}

func TestIdentifyUnknownSubject(t *testing.T) {
	// A syntactically valid token whose account has vanished must not
	// authenticate.
	ctx := context.Background()
	users := newMemoryUserRepo()
	svc := newTestService(users, time.Hour)

	resp, err := svc.Register(ctx, "gone@x.com", "pw1", "")
	require.NoError(t, err)
	users.remove("gone@x.com")

	_, err = svc.Identify(ctx, "Bearer "+resp.AccessToken)
	var authErr *service.AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, http.StatusUnauthorized, authErr.Status)
}

// memoryUserRepo enforces email uniqueness under a lock, mirroring the
// unique index the Mongo adapter relies on.
type memoryUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]domain.User)}
}

func (m *memoryUserRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (m *memoryUserRepo) Insert(ctx context.Context, user domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[user.Email]; exists {
		return domain.User{}, domain.ErrEmailTaken
	}
	user.ID = bson.NewObjectID()
	m.users[user.Email] = user
	return user, nil
}

func (m *memoryUserRepo) remove(email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, email)
}

func (m *memoryUserRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}
