package slack

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"findash/internal/core"
	"findash/internal/notify"
)

func TestPosterPostsBlocks(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat.postMessage", r.URL.Path)
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		_, _ = w.Write([]byte(`{"ok":true,"channel":"C123","ts":"1700000000.000100"}`))
	}))
	defer srv.Close()

	p := NewPoster("xoxb-test", "C123", slackapi.OptionAPIURL(srv.URL+"/"))
	msg := notify.LatePaymentAlert(core.Invoice{ID: "in_1", Number: "A-1", CustomerName: "Acme"}, core.NewDate(2025, 6, 1))
	require.NoError(t, p.Post(context.Background(), msg))

	assert.Equal(t, "C123", form.Get("channel"))
	assert.Contains(t, form.Get("text"), "Late Payment Detected")

	var blocks []map[string]any
	require.NoError(t, json.Unmarshal([]byte(form.Get("blocks")), &blocks))
	require.Len(t, blocks, 3)
	assert.Equal(t, "header", blocks[0]["type"])
	assert.Equal(t, "section", blocks[1]["type"])
	assert.Equal(t, "actions", blocks[2]["type"])
}

func TestPosterReturnsSlackError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	}))
	defer srv.Close()

	p := NewPoster("xoxb-test", "C404", slackapi.OptionAPIURL(srv.URL+"/"))
	err := p.Post(context.Background(), notify.Note("hi"))
	assert.ErrorContains(t, err, "channel_not_found")
}

func TestBlocksSplitsFieldsAndAddsConfirm(t *testing.T) {
	msg := notify.Message{Title: "t"}
	for i := 0; i < 12; i++ {
		msg.Fields = append(msg.Fields, notify.Field{Label: "f", Value: strconv.Itoa(i)})
	}
	msg.Actions = []notify.Action{{ID: "a", Label: "Go", Style: "danger", Confirm: "sure?"}}

	blocks := Blocks(msg)
	require.Len(t, blocks, 4)
	assert.Len(t, blocks[1].(*slackapi.SectionBlock).Fields, 10)
	assert.Len(t, blocks[2].(*slackapi.SectionBlock).Fields, 2)

	action := blocks[3].(*slackapi.ActionBlock)
	btn := action.Elements.ElementSet[0].(*slackapi.ButtonBlockElement)
	assert.Equal(t, slackapi.StyleDanger, btn.Style)
	assert.NotNil(t, btn.Confirm)
}

func signedRequest(t *testing.T, secret, body string, ts time.Time) *http.Request {
	t.Helper()
	stamp := strconv.FormatInt(ts.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte("v0:" + stamp + ":" + body))

	r := httptest.NewRequest(http.MethodPost, "/slack/actions", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set("X-Slack-Request-Timestamp", stamp)
	r.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	return r
}

func TestParseButtonPress(t *testing.T) {
	payload := `{"type":"block_actions","user":{"id":"U1","name":"sam"},"actions":[{"block_id":"b1","action_id":"send_reminder_email","value":"in_1","type":"button"}]}`
	body := "payload=" + url.QueryEscape(payload)

	press, err := ParseButtonPress(signedRequest(t, "shh", body, time.Now()), "shh")
	require.NoError(t, err)
	assert.Equal(t, ButtonPress{ActionID: notify.ActionSendReminder, Value: "in_1", UserName: "sam"}, press)

	_, err = ParseButtonPress(signedRequest(t, "other", body, time.Now()), "shh")
	assert.Error(t, err)
}
