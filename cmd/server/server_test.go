package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/thereayou/voxus-chat/internal/config"
	"github.com/thereayou/voxus-chat/internal/database/dbtest"
	"github.com/thereayou/voxus-chat/internal/handlers/dto"
	"github.com/thereayou/voxus-chat/internal/models"
	ws "github.com/thereayou/voxus-chat/internal/websocket"
)

type account struct {
	ID    uint64
	Name  string
	Token string
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.JWTSecret = "test-secret"
	cfg.DatabaseURL = "sqlite"
	cfg.UploadDir = t.TempDir()
	cfg.MaxUploadBytes = 1024

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	s, err := New(cfg, dbtest.Open(t), rdb, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(s.Hub.Stop)
	return s
}

func (s *Server) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (s *Server) register(t *testing.T, name string) account {
	t.Helper()
	w := s.do(t, http.MethodPost, "/auth/register", "", dto.RegisterRequest{
		Username: name,
		Email:    name + "@example.com",
		Password: "password-" + name,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decodeBody[dto.RegisterResponse](t, w)
	return account{ID: resp.ID, Name: name, Token: resp.Token}
}

// live registers an authenticated connection without a socket behind it.
func (s *Server) live(a account) *ws.Client {
	c := ws.NewClient(s.Hub, nil, a.ID, nil)
	s.Hub.Attach(c)
	s.Hub.Register(c, a.ID, a.Name)
	return c
}

func frame(t *testing.T, c *ws.Client) ws.Message {
	t.Helper()
	select {
	case raw := <-c.Outbound():
		var msg ws.Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	default:
		t.Fatal("expected a frame")
		return ws.Message{}
	}
}

func noFrame(t *testing.T, c *ws.Client) {
	t.Helper()
	select {
	case raw := <-c.Outbound():
		t.Fatalf("unexpected frame: %s", raw)
	default:
	}
}

func data[T any](t *testing.T, msg ws.Message) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(msg.Data, &v))
	return v
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice")

	w := s.do(t, http.MethodPost, "/auth/login", "", dto.LoginRequest{Login: "alice@example.com", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/auth/login", "", dto.LoginRequest{Login: "alice", Password: "password-alice"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	login := decodeBody[dto.LoginResponse](t, w)
	assert.Equal(t, alice.ID, login.User.ID)
	assert.NotEmpty(t, login.Token)

	w = s.do(t, http.MethodGet, "/api/v1/users/me", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)

	w = s.do(t, http.MethodPost, "/auth/logout", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/users/me", login.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "al",
		"email":    "not-an-email",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDirectMessageOverHTTP(t *testing.T) {
	s := newTestServer(t)
	alice, bob := s.register(t, "alice"), s.register(t, "bob")
	aliceConn, bobConn := s.live(alice), s.live(bob)

	w := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/conversations/%d/messages", bob.ID), alice.Token,
		dto.SendMessageRequest{Body: "hi bob"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sent := decodeBody[dto.MessageResponse](t, w)
	assert.Equal(t, "hi bob", sent.Body)

	got := frame(t, bobConn)
	require.Equal(t, ws.TypeMessage, got.Type)
	assert.Equal(t, sent.ID, data[dto.MessageResponse](t, got).ID)

	ack := frame(t, aliceConn)
	require.Equal(t, ws.TypeRead, ack.Type)
	assert.True(t, data[dto.ReadReceipt](t, ack).Pending)

	w = s.do(t, http.MethodGet, "/api/v1/unread", bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"unread":1}`, w.Body.String())

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/conversations/%d/messages", alice.ID), bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decodeBody[dto.HistoryResponse](t, w)
	require.Len(t, history.Messages, 1)
	assert.Equal(t, "hi bob", history.Messages[0].Body)
	require.NotNil(t, history.Messages[0].Sender)
	assert.Equal(t, "alice", history.Messages[0].Sender.Username)
	assert.False(t, history.HasMore)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/messages/%d/read", sent.ID), alice.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "only the receiver marks read")

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/conversations/%d/read", alice.ID), bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"marked":1}`, w.Body.String())

	receipt := frame(t, aliceConn)
	require.Equal(t, ws.TypeRead, receipt.Type)
	assert.Equal(t, bob.ID, data[dto.ReadReceipt](t, receipt).SenderID)
	noFrame(t, bobConn)

	w = s.do(t, http.MethodGet, "/api/v1/unread", bob.Token, nil)
	assert.JSONEq(t, `{"unread":0}`, w.Body.String())
}

func TestSendToUnknownUser(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice")

	w := s.do(t, http.MethodPost, "/api/v1/conversations/999/messages", alice.Token, dto.SendMessageRequest{Body: "hello?"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/conversations/abc/messages", alice.Token, dto.SendMessageRequest{Body: "hello?"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteOwnMessageOnly(t *testing.T) {
	s := newTestServer(t)
	alice, bob := s.register(t, "alice"), s.register(t, "bob")

	w := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/conversations/%d/messages", bob.ID), alice.Token,
		dto.SendMessageRequest{Body: "oops"})
	require.Equal(t, http.StatusCreated, w.Code)
	sent := decodeBody[dto.MessageResponse](t, w)

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/messages/%d", sent.ID), bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/messages/%d", sent.ID), alice.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/messages/%d", sent.ID), alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGroupMessagingOverHTTP(t *testing.T) {
	s := newTestServer(t)
	alice, bob, carol := s.register(t, "alice"), s.register(t, "bob"), s.register(t, "carol")
	aliceConn, carolConn := s.live(alice), s.live(carol)

	w := s.do(t, http.MethodPost, "/api/v1/groups", alice.Token, dto.CreateGroupRequest{
		Name:      "team",
		MemberIDs: []uint64{bob.ID},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	group := decodeBody[struct {
		ID          uint64 `json:"id"`
		MemberCount int64  `json:"member_count"`
	}](t, w)
	assert.Equal(t, int64(2), group.MemberCount)
	groupPath := fmt.Sprintf("/api/v1/groups/%d", group.ID)

	w = s.do(t, http.MethodGet, groupPath, carol.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/groups/available", carol.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"team"`)

	w = s.do(t, http.MethodPost, groupPath+"/messages", carol.Token, dto.SendMessageRequest{Body: "let me in"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, groupPath+"/messages", bob.Token, dto.SendMessageRequest{Body: "standup at 10"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	got := frame(t, aliceConn)
	require.Equal(t, ws.TypeGroupMessage, got.Type)
	assert.Equal(t, "standup at 10", data[dto.MessageResponse](t, got).Body)
	noFrame(t, carolConn)

	w = s.do(t, http.MethodPost, groupPath+"/members", bob.Token, dto.AddMemberRequest{UserID: carol.ID})
	assert.Equal(t, http.StatusForbidden, w.Code, "only the creator adds members")

	w = s.do(t, http.MethodPost, groupPath+"/members", alice.Token, dto.AddMemberRequest{UserID: carol.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, groupPath+"/messages", carol.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decodeBody[dto.HistoryResponse](t, w)
	require.Len(t, history.Messages, 1)

	w = s.do(t, http.MethodDelete, fmt.Sprintf("%s/members/%d", groupPath, alice.ID), alice.Token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "the creator cannot leave")

	w = s.do(t, http.MethodDelete, fmt.Sprintf("%s/members/%d", groupPath, carol.ID), carol.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPatch, groupPath, alice.Token, dto.RenameGroupRequest{Name: "core team"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodDelete, groupPath, alice.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, groupPath, alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReactionToggleIsPushedToCounterpart(t *testing.T) {
	s := newTestServer(t)
	alice, bob, carol := s.register(t, "alice"), s.register(t, "bob"), s.register(t, "carol")

	w := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/conversations/%d/messages", bob.ID), alice.Token,
		dto.SendMessageRequest{Body: "shipped!"})
	require.Equal(t, http.StatusCreated, w.Code)
	sent := decodeBody[dto.MessageResponse](t, w)
	path := fmt.Sprintf("/api/v1/messages/%d/reactions", sent.ID)

	aliceConn, bobConn := s.live(alice), s.live(bob)

	w = s.do(t, http.MethodPost, path, bob.Token, map[string]string{"reaction_type": "party"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeBody[dto.ToggleReactionResponse](t, w)
	assert.True(t, resp.Added)
	require.Len(t, resp.Reactions, 1)
	assert.Equal(t, int64(1), resp.Reactions[0].Count)

	got := frame(t, aliceConn)
	require.Equal(t, ws.TypeReaction, got.Type)
	update := data[dto.ReactionUpdate](t, got)
	assert.Equal(t, bob.ID, update.UserID)
	assert.True(t, update.Added)
	noFrame(t, bobConn)

	w = s.do(t, http.MethodGet, path, alice.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"bob"`)

	w = s.do(t, http.MethodPost, path, bob.Token, map[string]string{"reaction_type": "party"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeBody[dto.ToggleReactionResponse](t, w).Added)

	w = s.do(t, http.MethodPost, path, bob.Token, map[string]string{"reaction_type": "shrug"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, path, carol.Token, map[string]string{"reaction_type": "heart"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/reactions", carol.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"type":"thumbs_up"`)
}

func upload(t *testing.T, s *Server, token string, receiverID uint64, name string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("receiver_id", fmt.Sprint(receiverID)))
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/attachments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func TestUploadAndDownload(t *testing.T) {
	s := newTestServer(t)
	alice, bob, carol := s.register(t, "alice"), s.register(t, "bob"), s.register(t, "carol")
	bobConn := s.live(bob)

	content := []byte("meeting notes\nitem one\n")
	w := upload(t, s, alice.Token, bob.ID, "notes.txt", content)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	msg := decodeBody[dto.MessageResponse](t, w)
	assert.True(t, msg.HasAttachment)
	assert.Equal(t, "Sent a file", msg.Body)
	require.Len(t, msg.Attachments, 1)
	stored := msg.Attachments[0]
	assert.True(t, strings.HasSuffix(stored.StoredName, ".txt"))
	assert.Equal(t, "text/plain", stored.MimeType)

	got := frame(t, bobConn)
	require.Equal(t, ws.TypeMessage, got.Type)
	assert.True(t, data[dto.MessageResponse](t, got).HasAttachment)

	w = s.do(t, http.MethodGet, stored.URL, bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, content, w.Body.Bytes())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "notes.txt")

	w = s.do(t, http.MethodGet, stored.URL, carol.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/messages/%d/attachments", msg.ID), bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"original_name":"notes.txt"`)
}

func TestUploadRejectsOversizedAndDisallowed(t *testing.T) {
	s := newTestServer(t)
	alice, bob := s.register(t, "alice"), s.register(t, "bob")

	w := upload(t, s, alice.Token, bob.ID, "big.txt", bytes.Repeat([]byte("a"), 4096))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	elf := append([]byte("\x7fELF\x02\x01\x01"), bytes.Repeat([]byte{0}, 64)...)
	w = upload(t, s, alice.Token, bob.ID, "tool.bin", elf)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/conversations/%d/messages", bob.ID), alice.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeBody[dto.HistoryResponse](t, w).Messages)
}

func TestSearchOverHTTP(t *testing.T) {
	s := newTestServer(t)
	alice, bob := s.register(t, "alice"), s.register(t, "bob")

	for _, body := range []string{"lunch at noon?", "sure", "lunch was great"} {
		w := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/conversations/%d/messages", bob.ID), alice.Token,
			dto.SendMessageRequest{Body: body})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := s.do(t, http.MethodGet, "/api/v1/search?q=lunch", bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeBody[dto.SearchResponse](t, w)
	assert.Equal(t, int64(2), resp.Total)
	assert.Len(t, resp.Messages, 2)

	w = s.do(t, http.MethodGet, "/api/v1/search", bob.Token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/search?q=lunch&date_from=yesterday", bob.Token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserListShowsPresenceAndUnread(t *testing.T) {
	s := newTestServer(t)
	alice, bob := s.register(t, "alice"), s.register(t, "bob")
	s.live(alice)

	w := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/conversations/%d/messages", bob.ID), alice.Token,
		dto.SendMessageRequest{Body: "ping"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/users", bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[struct {
		Users []struct {
			ID       uint64 `json:"id"`
			Username string `json:"username"`
			Online   bool   `json:"online"`
			Unread   int64  `json:"unread"`
		} `json:"users"`
	}](t, w)
	require.Len(t, resp.Users, 1)
	assert.Equal(t, "alice", resp.Users[0].Username)
	assert.True(t, resp.Users[0].Online)
	assert.Equal(t, int64(1), resp.Users[0].Unread)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "chat_live_connections")
}

func TestUnknownGroupIsNotFound(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice")

	w := s.do(t, http.MethodPost, "/api/v1/groups/9999/messages", alice.Token, dto.SendMessageRequest{Body: "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/groups/9999/messages", alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/groups/9999", alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHistoryHasMore(t *testing.T) {
	s := newTestServer(t)
	alice, bob := s.register(t, "alice"), s.register(t, "bob")
	path := fmt.Sprintf("/api/v1/conversations/%d/messages", bob.ID)

	for _, body := range []string{"one", "two"} {
		w := s.do(t, http.MethodPost, path, alice.Token, dto.SendMessageRequest{Body: body})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := s.do(t, http.MethodGet, path+"?limit=2", alice.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decodeBody[dto.HistoryResponse](t, w)
	assert.Len(t, page.Messages, 2)
	assert.False(t, page.HasMore, "exactly limit messages exist")

	w = s.do(t, http.MethodGet, path+"?limit=1", alice.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page = decodeBody[dto.HistoryResponse](t, w)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "two", page.Messages[0].Body)
	assert.True(t, page.HasMore)
}

func TestReactionByEmoji(t *testing.T) {
	s := newTestServer(t)
	alice, bob := s.register(t, "alice"), s.register(t, "bob")

	w := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/conversations/%d/messages", bob.ID), alice.Token,
		dto.SendMessageRequest{Body: "deployed"})
	require.Equal(t, http.StatusCreated, w.Code)
	sent := decodeBody[dto.MessageResponse](t, w)
	path := fmt.Sprintf("/api/v1/messages/%d/reactions", sent.ID)

	w = s.do(t, http.MethodPost, path, bob.Token, map[string]string{"emoji": "🔥"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeBody[dto.ToggleReactionResponse](t, w)
	assert.True(t, resp.Added)
	assert.Equal(t, []models.ReactionType{models.ReactionFire}, resp.UserReactions)

	w = s.do(t, http.MethodPost, path, bob.Token, map[string]string{"emoji": "🦄"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, path, bob.Token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMarkSingleMessageReadNotifiesAuthor(t *testing.T) {
	s := newTestServer(t)
	alice, bob := s.register(t, "alice"), s.register(t, "bob")

	w := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/conversations/%d/messages", bob.ID), alice.Token,
		dto.SendMessageRequest{Body: "read me"})
	require.Equal(t, http.StatusCreated, w.Code)
	sent := decodeBody[dto.MessageResponse](t, w)

	aliceConn := s.live(alice)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/messages/%d/read", sent.ID), bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	receipt := frame(t, aliceConn)
	require.Equal(t, ws.TypeRead, receipt.Type)
	got := data[dto.ReadReceipt](t, receipt)
	assert.Equal(t, bob.ID, got.SenderID)
	assert.Equal(t, alice.ID, got.ReceiverID)
	assert.Equal(t, sent.ID, got.MessageID)
}

func TestOnlineUsers(t *testing.T) {
	s := newTestServer(t)
	alice, bob := s.register(t, "alice"), s.register(t, "bob")
	s.live(bob)

	w := s.do(t, http.MethodGet, "/api/v1/users/online", alice.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"online":[%d]}`, bob.ID), w.Body.String())
}
