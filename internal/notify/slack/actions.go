package slack

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	slackapi "github.com/slack-go/slack"
)

// ErrNoAction is returned for interaction payloads without a block action.
var ErrNoAction = errors.New("slack: interaction carries no block action")

// ButtonPress is the part of an interaction the application acts on.
type ButtonPress struct {
	ActionID string
	Value    string
	UserName string
}

// ParseButtonPress verifies the request signature and extracts the first
// block action from an interactivity payload.
func ParseButtonPress(r *http.Request, signingSecret string) (ButtonPress, error) {
	verifier, err := slackapi.NewSecretsVerifier(r.Header, signingSecret)
	if err != nil {
		return ButtonPress{}, fmt.Errorf("verify slack request: %w", err)
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return ButtonPress{}, fmt.Errorf("read slack request: %w", err)
	}
	if _, err := verifier.Write(body); err != nil {
		return ButtonPress{}, fmt.Errorf("verify slack request: %w", err)
	}
	if err := verifier.Ensure(); err != nil {
		return ButtonPress{}, fmt.Errorf("verify slack request: %w", err)
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		return ButtonPress{}, fmt.Errorf("parse slack form: %w", err)
	}
	var callback slackapi.InteractionCallback
	if err := json.Unmarshal([]byte(form.Get("payload")), &callback); err != nil {
		return ButtonPress{}, fmt.Errorf("decode slack payload: %w", err)
	}
	actions := callback.ActionCallback.BlockActions
	if len(actions) == 0 {
		return ButtonPress{}, ErrNoAction
	}
	return ButtonPress{
		ActionID: actions[0].ActionID,
		Value:    actions[0].Value,
		UserName: callback.User.Name,
	}, nil
}
