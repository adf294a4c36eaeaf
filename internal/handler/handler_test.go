package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"relaychat/internal/app/chat"
	"relaychat/internal/app/identity"
	"relaychat/internal/app/live"
	"relaychat/internal/app/memdb"
	"relaychat/internal/app/message"
	"relaychat/internal/app/moderation"
	"relaychat/internal/app/realtime"
	"relaychat/internal/app/storage"
	"relaychat/internal/app/user"
	"relaychat/internal/configs"
	"relaychat/internal/handler"
	"relaychat/internal/pkg/errs"
)

const cdnBase = "https://cdn.example.com"

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

// memStorage is an in-memory bucket served from cdnBase.
type memStorage struct {
	mu      sync.Mutex
	objects map[string]storage.ObjectMetadata
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string]storage.ObjectMetadata)}
}

func (s *memStorage) PresignUpload(_ context.Context, key, _ string, _ int64, _ time.Duration) (string, error) {
	return "https://bucket.example.com/" + key + "?X-Amz-Signature=test", nil
}

func (s *memStorage) Upload(_ context.Context, key, mimeType string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.put(key, storage.ObjectMetadata{ContentType: mimeType, ContentLength: int64(len(data))})
	return nil
}

func (s *memStorage) put(key string, meta storage.ObjectMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = meta
}

func (s *memStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memStorage) GetObjectMetadata(_ context.Context, key string) (storage.ObjectMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, ok := s.objects[key]
	if !ok {
		return storage.ObjectMetadata{}, storage.ErrObjectNotFound
	}
	return meta, nil
}

func (s *memStorage) has(key string) bool {
	_, err := s.GetObjectMetadata(context.Background(), key)
	return err == nil
}

func (s *memStorage) PublicURL(key string) string {
	return cdnBase + "/" + key
}

func (s *memStorage) KeyFromURL(u string) (string, bool) {
	key, ok := strings.CutPrefix(u, cdnBase+"/")
	return key, ok && key != ""
}

// outbox captures reset links instead of mailing them.
type outbox struct {
	mu    sync.Mutex
	links map[string]string
}

func (o *outbox) SendPasswordReset(_ context.Context, email, link string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.links == nil {
		o.links = make(map[string]string)
	}
	o.links[email] = link
	return nil
}

func (o *outbox) token(t *testing.T, email string) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()

	link, ok := o.links[email]
	require.True(t, ok, "no reset link for %s", email)
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.Query().Get("token")
}

type testServer struct {
	*httptest.Server
	store  *memdb.Store
	bucket *memStorage
	mail   *outbox
}

// rejectRude turns down any text containing "rude".
var rejectRude = moderation.GateFunc(func(_ context.Context, text string) (moderation.Verdict, error) {
	if strings.Contains(text, "rude") {
		return moderation.Verdict{IsAppropriate: false, Reason: "Please keep it civil."}, nil
	}
	return moderation.Verdict{IsAppropriate: true}, nil
})

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := memdb.New()
	bus := live.NewLocalBus()
	hub := live.NewHub(bus)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, hub.Start(ctx))

	sessions := identity.NewSessions()
	mail := &outbox{}
	bucket := newMemStorage()

	registry := chat.NewRegistry(store, store, hub)
	feed := message.NewFeed(registry, store, hub)
	composer := message.NewComposer(registry, store, rejectRude, hub)
	editor := message.NewEditor(registry, store, rejectRude, hub)

	deps := &handler.AppDeps{
		Config: &configs.AppConfig{Environment: configs.EnvDevelopment},
		Provider: identity.NewProvider(store, user.NewRegistrar(store, hub), sessions, mail, identity.Config{
			JWTSecret:  "test-secret",
			ResetURL:   "http://localhost:3000/reset-password",
			BcryptCost: bcrypt.MinCost,
		}),
		Directory:       user.NewDirectory(store),
		Registry:        registry,
		Feed:            feed,
		Composer:        composer,
		Editor:          editor,
		Gateway:         realtime.NewGateway(registry, feed, composer, editor),
		StorageService:  bucket,
		DefaultLocation: time.UTC,
	}

	router, stop := handler.Router(deps)
	server := httptest.NewServer(router)

	t.Cleanup(func() {
		server.Close()
		stop()
		hub.Shutdown()
		cancel()
		bus.Close()
	})

	return &testServer{Server: server, store: store, bucket: bucket, mail: mail}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	r, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}

	return s.send(t, r)
}

func (s *testServer) send(t *testing.T, r *http.Request) (int, envelope) {
	t.Helper()

	res, err := http.DefaultClient.Do(r)
	require.NoError(t, err)
	defer res.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(res.Body).Decode(&env))
	return res.StatusCode, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

type authData struct {
	Token string    `json:"token"`
	User  user.User `json:"user"`
}

func (s *testServer) signUp(t *testing.T, name, email string) authData {
	t.Helper()

	status, env := s.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email":       email,
		"password":    "secret123",
		"displayName": name,
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	return decode[authData](t, env)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 0, env.Code)
}

func TestAuth_SignUpSignInSignOut(t *testing.T) {
	s := newTestServer(t)

	alice := s.signUp(t, "Alice", "alice@example.com")
	require.NotEmpty(t, alice.Token)
	require.Equal(t, "Alice", alice.User.DisplayName)

	status, env := s.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": "ALICE@example.com", "password": "secret123", "displayName": "Other",
	})
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, errs.ErrEmailAlreadyInUse, env.Code)

	status, env = s.do(t, http.MethodPost, "/api/auth/signin", "", map[string]string{
		"email": "alice@example.com", "password": "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, errs.ErrInvalidCredentials, env.Code)

	status, env = s.do(t, http.MethodPost, "/api/auth/signin", "", map[string]string{
		"email": "alice@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, status)
	second := decode[authData](t, env)

	status, env = s.do(t, http.MethodGet, "/api/user/profile", second.Token, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, alice.User.ID, decode[struct {
		User user.User `json:"user"`
	}](t, env).User.ID)

	status, _ = s.do(t, http.MethodPost, "/api/auth/signout", second.Token, nil)
	require.Equal(t, http.StatusOK, status)

	status, env = s.do(t, http.MethodGet, "/api/user/profile", second.Token, nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, errs.ErrUnauthorized, env.Code)

	// the first session is unaffected
	status, _ = s.do(t, http.MethodGet, "/api/user/profile", alice.Token, nil)
	require.Equal(t, http.StatusOK, status)
}

func TestAuth_RequiresToken(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/user/profile", "/api/users", "/api/chats/channels", "/api/chats/general/messages"} {
		status, env := s.do(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusUnauthorized, status, path)
		require.Equal(t, errs.ErrUnauthorized, env.Code, path)
	}

	status, _ := s.do(t, http.MethodGet, "/api/users", "not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestAuth_PasswordReset(t *testing.T) {
	s := newTestServer(t)
	alice := s.signUp(t, "Alice", "alice@example.com")

	status, _ := s.do(t, http.MethodPost, "/api/auth/password-reset", "", map[string]string{"email": "nobody@example.com"})
	require.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodPost, "/api/auth/password-reset", "", map[string]string{"email": "alice@example.com"})
	require.Equal(t, http.StatusOK, status)
	token := s.mail.token(t, "alice@example.com")

	status, env := s.do(t, http.MethodPost, "/api/auth/password-reset/confirm", "", map[string]string{
		"token": token, "newPassword": "new-secret",
	})
	require.Equal(t, http.StatusOK, status, env.Message)

	status, env = s.do(t, http.MethodPost, "/api/auth/password-reset/confirm", "", map[string]string{
		"token": token, "newPassword": "another-secret",
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, errs.ErrResetTokenInvalid, env.Code)

	status, _ = s.do(t, http.MethodGet, "/api/user/profile", alice.Token, nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestUsers_ListAndSearch(t *testing.T) {
	s := newTestServer(t)
	alice := s.signUp(t, "Alice", "alice@example.com")
	s.signUp(t, "Bob", "bob@example.com")
	s.signUp(t, "Bobby Tables", "bobby@example.com")

	type usersData struct {
		Users []user.User `json:"users"`
	}

	_, env := s.do(t, http.MethodGet, "/api/users", alice.Token, nil)
	all := decode[usersData](t, env).Users
	require.Len(t, all, 2)
	require.Equal(t, "Bob", all[0].DisplayName)
	require.Equal(t, "bob@example.com", all[0].Email)
	require.Equal(t, "Bobby Tables", all[1].DisplayName)

	_, env = s.do(t, http.MethodGet, "/api/users?search=TAB", alice.Token, nil)
	found := decode[usersData](t, env).Users
	require.Len(t, found, 1)
	require.Equal(t, "Bobby Tables", found[0].DisplayName)
}

func TestChats_DirectMessageNamedAfterCounterpart(t *testing.T) {
	s := newTestServer(t)
	alice := s.signUp(t, "Alice", "alice@example.com")
	bob := s.signUp(t, "Bob", "bob@example.com")

	status, env := s.do(t, http.MethodPost, "/api/chats/dms", alice.Token, map[string]string{"targetId": bob.User.ID})
	require.Equal(t, http.StatusOK, status, env.Message)
	dm := decode[chat.Descriptor](t, env)
	require.Equal(t, chat.TypeDM, dm.Type)
	require.Equal(t, "Bob", dm.Name)
	require.Equal(t, chat.DirectMessageID(alice.User.ID, bob.User.ID), dm.ID)

	_, env = s.do(t, http.MethodGet, "/api/chats/dms", bob.Token, nil)
	dms := decode[struct {
		DMs []chat.Descriptor `json:"dms"`
	}](t, env).DMs
	require.Len(t, dms, 1)
	require.Equal(t, dm.ID, dms[0].ID)
	require.Equal(t, "Alice", dms[0].Name)

	status, env = s.do(t, http.MethodPost, "/api/chats/dms", alice.Token, map[string]string{"targetId": "ghost"})
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, errs.ErrUserNotFound, env.Code)

	_, env = s.do(t, http.MethodGet, "/api/chats/channels", alice.Token, nil)
	channels := decode[struct {
		Channels []chat.Descriptor `json:"channels"`
	}](t, env).Channels
	require.Equal(t, chat.Channels(), channels)
}

func TestMessages_SendEditDelete(t *testing.T) {
	s := newTestServer(t)
	alice := s.signUp(t, "Alice", "alice@example.com")
	bob := s.signUp(t, "Bob", "bob@example.com")

	path := "/api/chats/" + chat.GeneralChannelID + "/messages"

	status, env := s.do(t, http.MethodPost, path, alice.Token, map[string]string{"text": "  hello  "})
	require.Equal(t, http.StatusOK, status, env.Message)
	sent := decode[message.Message](t, env)
	require.Equal(t, "Alice", sent.SenderName)

	_, env = s.do(t, http.MethodGet, path+"?tz=Europe/Berlin", bob.Token, nil)
	timeline := decode[struct {
		Entries []message.Entry `json:"entries"`
	}](t, env).Entries
	require.Len(t, timeline, 1)
	require.True(t, timeline[0].ShowSeparator)
	require.Equal(t, sent.ID, timeline[0].Message.ID)

	status, env = s.do(t, http.MethodPatch, path+"/"+sent.ID, bob.Token, map[string]string{"text": "hijacked"})
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, errs.ErrMessageNotOwned, env.Code)

	status, env = s.do(t, http.MethodDelete, path+"/"+sent.ID, bob.Token, nil)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, errs.ErrMessageNotOwned, env.Code)

	status, env = s.do(t, http.MethodPatch, path+"/"+sent.ID, alice.Token, map[string]string{"text": "hello, edited"})
	require.Equal(t, http.StatusOK, status, env.Message)
	edited := decode[message.Message](t, env)
	require.Equal(t, "hello, edited", edited.Text)
	require.NotNil(t, edited.EditedAt)

	status, _ = s.do(t, http.MethodDelete, path+"/"+sent.ID, alice.Token, nil)
	require.Equal(t, http.StatusOK, status)

	msgs, err := s.store.ListMessages(context.Background(), chat.GeneralChannelID)
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestMessages_ModerationAndValidation(t *testing.T) {
	s := newTestServer(t)
	alice := s.signUp(t, "Alice", "alice@example.com")

	path := "/api/chats/" + chat.GeneralChannelID + "/messages"

	status, env := s.do(t, http.MethodPost, path, alice.Token, map[string]string{"text": "a rude remark"})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	require.Equal(t, errs.ErrMessageRejected, env.Code)
	require.Equal(t, "Please keep it civil.", env.Message)

	status, env = s.do(t, http.MethodPost, path, alice.Token, map[string]string{"text": "   "})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, errs.ErrMessageEmpty, env.Code)

	status, env = s.do(t, http.MethodPost, path, alice.Token, map[string]any{"text": "hi", "extra": 1})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, errs.ErrInvalidJSONFormat, env.Code)

	msgs, err := s.store.ListMessages(context.Background(), chat.GeneralChannelID)
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestMessages_DirectMessageMembership(t *testing.T) {
	s := newTestServer(t)
	alice := s.signUp(t, "Alice", "alice@example.com")
	bob := s.signUp(t, "Bob", "bob@example.com")
	carol := s.signUp(t, "Carol", "carol@example.com")

	_, env := s.do(t, http.MethodPost, "/api/chats/dms", alice.Token, map[string]string{"targetId": bob.User.ID})
	dm := decode[chat.Descriptor](t, env)

	status, env := s.do(t, http.MethodPost, "/api/chats/"+dm.ID+"/messages", carol.Token, map[string]string{"text": "hi"})
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, errs.ErrChatForbidden, env.Code)

	status, env = s.do(t, http.MethodGet, "/api/chats/"+dm.ID+"/messages", carol.Token, nil)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, errs.ErrChatForbidden, env.Code)
}

func (s *testServer) uploadAvatar(t *testing.T, token string, content []byte) (int, envelope) {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(handler.AvatarFormField, "me.png")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r, err := http.NewRequest(http.MethodPost, s.URL+"/api/user/avatar", &body)
	require.NoError(t, err)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	r.Header.Set("Authorization", "Bearer "+token)

	return s.send(t, r)
}

func TestAvatar_UploadReplacesPrevious(t *testing.T) {
	s := newTestServer(t)
	alice := s.signUp(t, "Alice", "alice@example.com")

	type userData struct {
		User user.User `json:"user"`
	}

	status, env := s.uploadAvatar(t, alice.Token, pngHeader)
	require.Equal(t, http.StatusOK, status, env.Message)
	first := decode[userData](t, env).User
	firstKey, ok := s.bucket.KeyFromURL(first.PhotoURL)
	require.True(t, ok)
	require.True(t, storage.OwnsAvatarKey(alice.User.ID, firstKey))
	require.True(t, s.bucket.has(firstKey))

	status, env = s.uploadAvatar(t, alice.Token, pngHeader)
	require.Equal(t, http.StatusOK, status, env.Message)
	second := decode[userData](t, env).User
	require.NotEqual(t, first.PhotoURL, second.PhotoURL)

	require.Eventually(t, func() bool { return !s.bucket.has(firstKey) }, 2*time.Second, 10*time.Millisecond)

	status, env = s.uploadAvatar(t, alice.Token, []byte("<html>not an image</html>"))
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, errs.ErrFileTypeInvalid, env.Code)
}

func TestAvatar_PresignAndProfileUpdate(t *testing.T) {
	s := newTestServer(t)
	alice := s.signUp(t, "Alice", "alice@example.com")
	bob := s.signUp(t, "Bob", "bob@example.com")

	status, env := s.do(t, http.MethodPost, "/api/user/avatar/presign", alice.Token, map[string]any{
		"fileName": "me.webp", "mimeType": "image/webp", "fileSize": 2048,
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	presigned := decode[struct {
		PresignedURL string `json:"presignedUrl"`
		FileKey      string `json:"fileKey"`
		PublicURL    string `json:"publicUrl"`
	}](t, env)
	require.True(t, storage.OwnsAvatarKey(alice.User.ID, presigned.FileKey))

	// not uploaded yet
	status, _ = s.do(t, http.MethodPost, "/api/user/profile", alice.Token, map[string]string{
		"displayName": "Alice", "photoURL": presigned.PublicURL,
	})
	require.Equal(t, http.StatusBadRequest, status)

	s.bucket.put(presigned.FileKey, storage.ObjectMetadata{ContentType: "image/webp", ContentLength: 2048})

	status, env = s.do(t, http.MethodPost, "/api/user/profile", alice.Token, map[string]string{
		"displayName": "Alice Liddell", "photoURL": presigned.PublicURL,
	})
	require.Equal(t, http.StatusOK, status, env.Message)

	_, env = s.do(t, http.MethodGet, "/api/user/profile", alice.Token, nil)
	profile := decode[struct {
		User user.User `json:"user"`
	}](t, env).User
	require.Equal(t, "Alice Liddell", profile.DisplayName)
	require.Equal(t, presigned.PublicURL, profile.PhotoURL)

	// someone else's object
	status, env = s.do(t, http.MethodPost, "/api/user/profile", bob.Token, map[string]string{
		"displayName": "Bob", "photoURL": presigned.PublicURL,
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, errs.ErrInvalidParams, env.Code)

	status, env = s.do(t, http.MethodPost, "/api/user/avatar/presign", alice.Token, map[string]any{
		"fileName": "me.svg", "mimeType": "image/svg+xml", "fileSize": 2048,
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, errs.ErrFileTypeInvalid, env.Code)
}

func TestWebSocket_RequiresSessionAndStreams(t *testing.T) {
	s := newTestServer(t)
	alice := s.signUp(t, "Alice", "alice@example.com")

	wsURL := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"

	_, res, err := websocket.DefaultDialer.Dial(wsURL+"?token=bogus", nil)
	require.Error(t, err)
	require.NotNil(t, res)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?tz=UTC&token="+url.QueryEscape(alice.Token), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var frame realtime.Frame
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Type != realtime.TypeSession {
			continue
		}

		var payload realtime.SessionPayload
		require.NoError(t, json.Unmarshal(frame.Payload, &payload))
		require.Equal(t, alice.User.ID, payload.User.ID)
		break
	}

	status, _ := s.do(t, http.MethodPost, "/api/auth/signout", alice.Token, nil)
	require.Equal(t, http.StatusOK, status)

	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		var closeErr *websocket.CloseError
		require.ErrorAs(t, err, &closeErr)
		require.Equal(t, realtime.CloseCodeSessionEnded, closeErr.Code)
		return
	}
}
