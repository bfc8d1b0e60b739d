package channels_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/dalemusser/stratachat/internal/app/features/channels"
	"github.com/dalemusser/stratachat/internal/app/membership"
	"github.com/dalemusser/stratachat/internal/app/realtime/fanout"
	"github.com/dalemusser/stratachat/internal/app/realtime/rooms"
	"github.com/dalemusser/stratachat/internal/domain/models"
	"github.com/dalemusser/stratachat/internal/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*channels.Handler, *testutil.Fixtures, *fanout.Service) {
	t.Helper()
	fx := testutil.NewFixtures(t)
	fan := fanout.New(fx.Mem.Messages, rooms.New(nil, zap.NewNop()), zap.NewNop(), fanout.WithHistoryLimit(10))
	return channels.NewHandler(fx.Engine, fan, zap.NewNop()), fx, fan
}

func withIDs(r *http.Request, groupID, channelID string) *http.Request {
	r = testutil.WithChiURLParam(r, "groupId", groupID)
	if channelID != "" {
		r = testutil.WithChiURLParam(r, "channelId", channelID)
	}
	return r
}

func TestHandleCreate(t *testing.T) {
	h, fx, _ := newTestHandler(t)
	founder := fx.CreateUser("founder", models.RoleUser)
	member := fx.CreateUser("member", models.RoleUser)
	g := fx.CreateGroup("G", founder)
	fx.AddMember(g, member)

	body := map[string]any{"name": "general", "description": "<i>talk</i>"}

	rec := httptest.NewRecorder()
	h.HandleCreate(rec, withIDs(testutil.NewRequest(t, "POST", "/", body, &member), g.ID, ""))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("member: expected status %d, got %d", http.StatusForbidden, rec.Code)
	}

	rec = httptest.NewRecorder()
	h.HandleCreate(rec, withIDs(testutil.NewRequest(t, "POST", "/", body, &founder), g.ID, ""))
	if rec.Code != http.StatusCreated {
		t.Fatalf("founder: expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	var ch models.Channel
	testutil.DecodeJSON(t, rec, &ch)
	if ch.GroupID != g.ID || ch.Name != "general" || ch.Description != "talk" {
		t.Errorf("unexpected channel %+v", ch)
	}
	if !fx.Group(g.ID).HasChannel(ch.ID) {
		t.Error("expected channel linked into the group")
	}
}

func TestHandleCreate_RestrictedToOutsider(t *testing.T) {
	h, fx, _ := newTestHandler(t)
	founder := fx.CreateUser("founder", models.RoleUser)
	eve := fx.CreateUser("eve", models.RoleUser)
	g := fx.CreateGroup("G", founder)

	rec := httptest.NewRecorder()
	h.HandleCreate(rec, withIDs(testutil.NewRequest(t, "POST", "/", map[string]any{
		"name":    "secret",
		"members": []string{eve.ID},
	}, &founder), g.ID, ""))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestServeList_FiltersRestricted(t *testing.T) {
	h, fx, _ := newTestHandler(t)
	founder := fx.CreateUser("founder", models.RoleUser)
	a := fx.CreateUser("a", models.RoleUser)
	b := fx.CreateUser("b", models.RoleUser)
	g := fx.CreateGroup("G", founder)
	fx.AddMember(g, a)
	fx.AddMember(g, b)
	fx.CreateChannel(g, "general")
	name := "private"
	if _, err := fx.Engine.CreateChannel(context.Background(), g.ID, membership.ChannelInput{
		Name:    &name,
		Members: &[]string{a.ID},
	}); err != nil {
		t.Fatalf("create restricted channel: %v", err)
	}

	count := func(u models.User) int {
		rec := httptest.NewRecorder()
		h.ServeList(rec, withIDs(testutil.NewRequest(t, "GET", "/", nil, &u), g.ID, ""))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected status %d, got %d", u.Username, http.StatusOK, rec.Code)
		}
		var body struct {
			Channels []models.Channel `json:"channels"`
		}
		testutil.DecodeJSON(t, rec, &body)
		return len(body.Channels)
	}

	if n := count(a); n != 2 {
		t.Errorf("a: expected 2 channels, got %d", n)
	}
	if n := count(b); n != 1 {
		t.Errorf("b: expected 1 channel, got %d", n)
	}
	if n := count(founder); n != 2 {
		t.Errorf("founder: expected 2 channels, got %d", n)
	}

	eve := fx.CreateUser("eve", models.RoleUser)
	rec := httptest.NewRecorder()
	h.ServeList(rec, withIDs(testutil.NewRequest(t, "GET", "/", nil, &eve), g.ID, ""))
	if rec.Code != http.StatusForbidden {
		t.Errorf("outsider: expected status %d, got %d", http.StatusForbidden, rec.Code)
	}
}

func TestHandleUpdate(t *testing.T) {
	h, fx, _ := newTestHandler(t)
	founder := fx.CreateUser("founder", models.RoleUser)
	a := fx.CreateUser("a", models.RoleUser)
	g := fx.CreateGroup("G", founder)
	fx.AddMember(g, a)
	ch := fx.CreateChannel(g, "general")

	rec := httptest.NewRecorder()
	h.HandleUpdate(rec, withIDs(testutil.NewRequest(t, "POST", "/", map[string]any{
		"name":    "renamed",
		"members": []string{a.ID},
	}, &founder), g.ID, ch.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	var got models.Channel
	testutil.DecodeJSON(t, rec, &got)
	if got.Name != "renamed" || !got.Restricted() || !got.Allows(a.ID) {
		t.Errorf("unexpected channel %+v", got)
	}

	// An empty list lifts the restriction
	rec = httptest.NewRecorder()
	h.HandleUpdate(rec, withIDs(testutil.NewRequest(t, "POST", "/", map[string]any{
		"members": []string{},
	}, &founder), g.ID, ch.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	got = models.Channel{}
	testutil.DecodeJSON(t, rec, &got)
	if got.Restricted() || got.Name != "renamed" {
		t.Errorf("expected unrestricted channel keeping its name, got %+v", got)
	}
}

func TestServeChannel_Restricted(t *testing.T) {
	h, fx, _ := newTestHandler(t)
	founder := fx.CreateUser("founder", models.RoleUser)
	a := fx.CreateUser("a", models.RoleUser)
	b := fx.CreateUser("b", models.RoleUser)
	g := fx.CreateGroup("G", founder)
	fx.AddMember(g, a)
	fx.AddMember(g, b)
	name := "private"
	ch, err := fx.Engine.CreateChannel(context.Background(), g.ID, membership.ChannelInput{
		Name:    &name,
		Members: &[]string{a.ID},
	})
	if err != nil {
		t.Fatalf("create channel: %v", err)
	}

	tests := []struct {
		name string
		user models.User
		want int
	}{
		{"listed member", a, http.StatusOK},
		{"unlisted member", b, http.StatusForbidden},
		{"group admin", founder, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeChannel(rec, withIDs(testutil.NewRequest(t, "GET", "/", nil, &tt.user), g.ID, ch.ID))
			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestHandleDelete(t *testing.T) {
	h, fx, _ := newTestHandler(t)
	founder := fx.CreateUser("founder", models.RoleUser)
	g := fx.CreateGroup("G", founder)
	ch := fx.CreateChannel(g, "general")

	rec := httptest.NewRecorder()
	h.HandleDelete(rec, withIDs(testutil.NewRequest(t, "DELETE", "/", nil, &founder), g.ID, ch.ID))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d: %s", http.StatusNoContent, rec.Code, rec.Body.String())
	}
	if fx.Group(g.ID).HasChannel(ch.ID) {
		t.Error("expected channel unlinked")
	}

	rec = httptest.NewRecorder()
	h.ServeChannel(rec, withIDs(testutil.NewRequest(t, "GET", "/", nil, &founder), g.ID, ch.ID))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected deleted channel to be %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestServeMessages(t *testing.T) {
	h, fx, fan := newTestHandler(t)
	founder := fx.CreateUser("founder", models.RoleUser)
	eve := fx.CreateUser("eve", models.RoleUser)
	g := fx.CreateGroup("G", founder)
	ch := fx.CreateChannel(g, "general")

	for _, body := range []string{"one", "two", "three"} {
		if _, err := fan.Submit(context.Background(), fanout.SubmitInput{ChannelID: ch.ID, UserID: founder.ID, Body: body}); err != nil {
			t.Fatalf("submit %s: %v", body, err)
		}
	}

	rec := httptest.NewRecorder()
	h.ServeMessages(rec, withIDs(testutil.NewRequest(t, "GET", "/?limit=2", nil, &founder), g.ID, ch.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	var body struct {
		Messages []models.Message `json:"messages"`
		HasMore  bool             `json:"hasMore"`
	}
	testutil.DecodeJSON(t, rec, &body)
	if len(body.Messages) != 2 || body.Messages[0].Body != "two" || body.Messages[1].Body != "three" {
		t.Fatalf("expected the newest two oldest first, got %+v", body.Messages)
	}
	if !body.HasMore {
		t.Error("expected hasMore with an older message left")
	}

	rec = httptest.NewRecorder()
	h.ServeMessages(rec, withIDs(testutil.NewRequest(t, "GET", "/", nil, &eve), g.ID, ch.ID))
	if rec.Code != http.StatusForbidden {
		t.Errorf("outsider: expected status %d, got %d", http.StatusForbidden, rec.Code)
	}
}

func TestServeMessages_Pages_Through_Shared_Timestamps(t *testing.T) {
	fx := testutil.NewFixtures(t)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fan := fanout.New(fx.Mem.Messages, rooms.New(nil, zap.NewNop()), zap.NewNop(),
		fanout.WithHistoryLimit(10), fanout.WithClock(func() time.Time { return fixed }))
	h := channels.NewHandler(fx.Engine, fan, zap.NewNop())

	founder := fx.CreateUser("founder", models.RoleUser)
	g := fx.CreateGroup("G", founder)
	ch := fx.CreateChannel(g, "general")
	for _, body := range []string{"one", "two", "three"} {
		if _, err := fan.Submit(context.Background(), fanout.SubmitInput{ChannelID: ch.ID, UserID: founder.ID, Body: body}); err != nil {
			t.Fatalf("submit %s: %v", body, err)
		}
	}

	type pageBody struct {
		Messages []models.Message `json:"messages"`
		HasMore  bool             `json:"hasMore"`
		Next     *struct {
			Before   time.Time `json:"before"`
			BeforeID string    `json:"beforeId"`
		} `json:"next"`
	}
	get := func(q string) pageBody {
		rec := httptest.NewRecorder()
		h.ServeMessages(rec, withIDs(testutil.NewRequest(t, "GET", "/?limit=2"+q, nil, &founder), g.ID, ch.ID))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
		}
		var body pageBody
		testutil.DecodeJSON(t, rec, &body)
		return body
	}

	first := get("")
	if len(first.Messages) != 2 || !first.HasMore || first.Next == nil {
		t.Fatalf("expected a full first page with a cursor, got %+v", first)
	}
	second := get("&before=" + url.QueryEscape(first.Next.Before.Format(time.RFC3339Nano)) + "&beforeId=" + first.Next.BeforeID)
	if len(second.Messages) != 1 || second.Messages[0].Body != "one" {
		t.Fatalf("expected the remaining message, got %+v", second.Messages)
	}
	if second.HasMore || second.Next != nil {
		t.Errorf("expected the last page, got %+v", second)
	}
}

func TestServeMessages_BadQuery(t *testing.T) {
	h, fx, _ := newTestHandler(t)
	founder := fx.CreateUser("founder", models.RoleUser)
	g := fx.CreateGroup("G", founder)
	ch := fx.CreateChannel(g, "general")

	for _, q := range []string{"?before=yesterday", "?limit=-1", "?limit=ten", "?beforeId=abc"} {
		rec := httptest.NewRecorder()
		h.ServeMessages(rec, withIDs(testutil.NewRequest(t, "GET", "/"+q, nil, &founder), g.ID, ch.ID))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status %d, got %d", q, http.StatusBadRequest, rec.Code)
		}
	}

	before := time.Now().Add(time.Hour).UTC().Format(time.RFC3339Nano)
	rec := httptest.NewRecorder()
	h.ServeMessages(rec, withIDs(testutil.NewRequest(t, "GET", "/?before="+before, nil, &founder), g.ID, ch.ID))
	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}
