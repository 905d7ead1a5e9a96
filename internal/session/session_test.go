package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/NEXT-STANDARD/appstorebank-insights-sub001/internal/models"
)

// testValkeyClient returns a client on the test Valkey database, skipping
// the test when Valkey is unreachable.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: os.Getenv("VALKEY_PASSWORD"),
		DB:       15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping integration test: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, keyPrefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})
	return client
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// sessionCookie returns the session cookie set on rr, failing if absent.
func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func requestWith(c *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	if c != nil {
		req.AddCookie(c)
	}
	return req
}

func readerData() *Data {
	return &Data{
		ProfileID:   uuid.New(),
		Email:       "reader@insights.local",
		DisplayName: "Reader",
		Role:        models.RoleReader,
		TwoFADone:   true,
	}
}

func editorData() *Data {
	return &Data{
		ProfileID:   uuid.New(),
		Email:       "editor@insights.local",
		DisplayName: "Editor",
		Role:        models.RoleEditor,
	}
}

func TestSessionID(t *testing.T) {
	valid := strings.Repeat("ab", idLength)
	tests := []struct {
		name   string
		cookie *http.Cookie
		wantOK bool
	}{
		{"no cookie", nil, false},
		{"generated id", &http.Cookie{Name: CookieName, Value: valid}, true},
		{"too short", &http.Cookie{Name: CookieName, Value: "abc123"}, false},
		{"not hex", &http.Cookie{Name: CookieName, Value: strings.Repeat("zz", idLength)}, false},
		{"key injection", &http.Cookie{Name: CookieName, Value: "x:*" + valid[3:]}, false},
		{"other cookie", &http.Cookie{Name: "csrf_token", Value: valid}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := sessionID(requestWith(tt.cookie))
			if ok != tt.wantOK {
				t.Fatalf("ok: got %v, want %v", ok, tt.wantOK)
			}
			if ok && id != valid {
				t.Errorf("id: got %q, want %q", id, valid)
			}
		})
	}
}

func TestGenerateID(t *testing.T) {
	a, err := generateID()
	if err != nil {
		t.Fatalf("generateID: %v", err)
	}
	b, _ := generateID()
	if a == b {
		t.Error("two generated IDs should differ")
	}
	if _, ok := sessionID(requestWith(&http.Cookie{Name: CookieName, Value: a})); !ok {
		t.Errorf("generated id %q is not accepted as a session cookie", a)
	}
}

func TestDestroyWithoutValkeyCall(t *testing.T) {
	// A request without a usable cookie never reaches Valkey, so a nil
	// client is fine here.
	s := NewStore(nil, true)
	rr := httptest.NewRecorder()
	if err := s.Destroy(context.Background(), rr, requestWith(&http.Cookie{Name: CookieName, Value: "bogus"})); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	c := sessionCookie(t, rr)
	if c.MaxAge != -1 || !c.Secure {
		t.Errorf("cleared cookie: MaxAge=%d Secure=%v", c.MaxAge, c.Secure)
	}
}

func TestReaderSessionRoundTrip(t *testing.T) {
	client := testValkeyClient(t)
	s := NewStore(client, false)
	ctx := context.Background()

	rr := httptest.NewRecorder()
	data := readerData()
	id, err := s.Create(ctx, rr, data)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	c := sessionCookie(t, rr)
	if c.Value != id {
		t.Errorf("cookie value: got %q, want %q", c.Value, id)
	}
	if !c.HttpOnly || c.Secure || c.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie flags: HttpOnly=%v Secure=%v SameSite=%v", c.HttpOnly, c.Secure, c.SameSite)
	}

	ttl, err := client.TTL(ctx, key(id)).Result()
	if err != nil {
		t.Fatalf("TTL: %v", err)
	}
	if ttl <= 0 || ttl > DefaultTTL {
		t.Errorf("ttl: got %v, want within (0, %v]", ttl, DefaultTTL)
	}

	got, err := s.Get(ctx, requestWith(c))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("expected session data, got nil")
	}
	if got.ProfileID != data.ProfileID || got.Role != models.RoleReader || !got.TwoFADone {
		t.Errorf("round trip: got %+v", got)
	}
	if got.IsStaff() {
		t.Error("reader session must not be staff")
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should be stamped")
	}
}

func TestGetMissingSession(t *testing.T) {
	client := testValkeyClient(t)
	s := NewStore(client, false)

	for name, c := range map[string]*http.Cookie{
		"no cookie":   nil,
		"unknown id":  {Name: CookieName, Value: strings.Repeat("0f", idLength)},
		"malformed":   {Name: CookieName, Value: "nonexistent-session-id"},
		"empty value": {Name: CookieName, Value: ""},
	} {
		t.Run(name, func(t *testing.T) {
			data, err := s.Get(context.Background(), requestWith(c))
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if data != nil {
				t.Errorf("expected no session, got %+v", data)
			}
		})
	}
}

func TestGetCorruptPayload(t *testing.T) {
	client := testValkeyClient(t)
	s := NewStore(client, false)
	ctx := context.Background()

	id := strings.Repeat("cd", idLength)
	if err := client.Set(ctx, key(id), "{not json", time.Minute).Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := s.Get(ctx, requestWith(&http.Cookie{Name: CookieName, Value: id})); err == nil {
		t.Error("expected an error for a corrupt session payload")
	}
}

func TestStaffTwoFactorCompletion(t *testing.T) {
	client := testValkeyClient(t)
	s := NewStore(client, false)
	ctx := context.Background()

	rr := httptest.NewRecorder()
	data := editorData()
	if _, err := s.Create(ctx, rr, data); err != nil {
		t.Fatalf("Create: %v", err)
	}
	req := requestWith(sessionCookie(t, rr))

	pending, _ := s.Get(ctx, req)
	if pending == nil || pending.TwoFADone || !pending.IsStaff() {
		t.Fatalf("pending staff session: got %+v", pending)
	}

	pending.TwoFADone = true
	if err := s.Update(ctx, req, pending); err != nil {
		t.Fatalf("Update: %v", err)
	}

	done, _ := s.Get(ctx, req)
	if done == nil || !done.TwoFADone {
		t.Fatalf("expected TwoFADone after update, got %+v", done)
	}
}

func TestUpdateExpiredSession(t *testing.T) {
	client := testValkeyClient(t)
	s := NewStore(client, false)
	ctx := context.Background()

	rr := httptest.NewRecorder()
	id, err := s.Create(ctx, rr, editorData())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	req := requestWith(sessionCookie(t, rr))
	client.Del(ctx, key(id))

	err = s.Update(ctx, req, &Data{TwoFADone: true})
	if !errors.Is(err, ErrNoSession) {
		t.Fatalf("Update: got %v, want ErrNoSession", err)
	}
	if n, _ := client.Exists(ctx, key(id)).Result(); n != 0 {
		t.Error("Update must not recreate an expired session")
	}
}

func TestUpdateWithoutCookie(t *testing.T) {
	s := NewStore(nil, false)
	if err := s.Update(context.Background(), requestWith(nil), &Data{}); !errors.Is(err, ErrNoSession) {
		t.Errorf("got %v, want ErrNoSession", err)
	}
}

func TestDestroy(t *testing.T) {
	client := testValkeyClient(t)
	s := NewStore(client, true)
	ctx := context.Background()

	rr := httptest.NewRecorder()
	id, err := s.Create(ctx, rr, readerData())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	c := sessionCookie(t, rr)
	if !c.Secure {
		t.Error("expected Secure cookie for a secure store")
	}

	out := httptest.NewRecorder()
	req := requestWith(c)
	if err := s.Destroy(ctx, out, req); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if cleared := sessionCookie(t, out); cleared.MaxAge != -1 {
		t.Errorf("cleared cookie MaxAge: got %d, want -1", cleared.MaxAge)
	}
	if n, _ := client.Exists(ctx, key(id)).Result(); n != 0 {
		t.Error("session key should be deleted")
	}
	if got, _ := s.Get(ctx, req); got != nil {
		t.Error("expected nil after destroy")
	}
}

func TestDataIsStaff(t *testing.T) {
	tests := []struct {
		role models.Role
		want bool
	}{
		{models.RoleAdmin, true},
		{models.RoleEditor, true},
		{models.RoleReader, false},
		{"", false},
	}
	for _, tt := range tests {
		d := &Data{Role: tt.role}
		if got := d.IsStaff(); got != tt.want {
			t.Errorf("IsStaff(%q) = %v, want %v", tt.role, got, tt.want)
		}
	}
}
