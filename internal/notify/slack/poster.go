// Package slack posts notify messages to a channel as Block Kit.
package slack

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"

	"findash/internal/notify"
)

const fallbackText = "Finance Dashboard notification"

type Poster struct {
	client  *slackapi.Client
	channel string
}

// NewPoster posts to channelID with a bot token. Options are passed to the
// slack client; tests use slackapi.OptionAPIURL.
func NewPoster(token, channelID string, opts ...slackapi.Option) *Poster {
	return &Poster{
		client:  slackapi.New(token, opts...),
		channel: channelID,
	}
}

func (p *Poster) Post(ctx context.Context, msg notify.Message) error {
	text := msg.Text()
	if text == "" {
		text = fallbackText
	}
	_, _, err := p.client.PostMessageContext(ctx, p.channel,
		slackapi.MsgOptionBlocks(Blocks(msg)...),
		slackapi.MsgOptionText(text, false),
	)
	if err != nil {
		return fmt.Errorf("post %s message: %w", msg.Kind, err)
	}
	return nil
}

func mrkdwn(s string) *slackapi.TextBlockObject {
	return slackapi.NewTextBlockObject(slackapi.MarkdownType, s, false, false)
}

func plain(s string) *slackapi.TextBlockObject {
	return slackapi.NewTextBlockObject(slackapi.PlainTextType, s, true, false)
}

// Blocks renders msg: a header, a field grid, one section per paragraph and
// an action row for buttons.
func Blocks(msg notify.Message) []slackapi.Block {
	var blocks []slackapi.Block
	if msg.Title != "" {
		blocks = append(blocks, slackapi.NewHeaderBlock(plain(truncate(msg.Title, 150))))
	}

	// Slack caps section fields at ten.
	for start := 0; start < len(msg.Fields); start += 10 {
		end := min(start+10, len(msg.Fields))
		fields := make([]*slackapi.TextBlockObject, 0, end-start)
		for _, f := range msg.Fields[start:end] {
			fields = append(fields, mrkdwn(fmt.Sprintf("*%s:*\n%s", f.Label, f.Value)))
		}
		blocks = append(blocks, slackapi.NewSectionBlock(nil, fields, nil))
	}

	for _, s := range msg.Sections {
		blocks = append(blocks, slackapi.NewSectionBlock(mrkdwn(truncate(s, 3000)), nil, nil))
	}

	if len(msg.Actions) > 0 {
		elements := make([]slackapi.BlockElement, 0, len(msg.Actions))
		for _, a := range msg.Actions {
			btn := slackapi.NewButtonBlockElement(a.ID, a.Value, plain(a.Label))
			switch a.Style {
			case "primary":
				btn = btn.WithStyle(slackapi.StylePrimary)
			case "danger":
				btn = btn.WithStyle(slackapi.StyleDanger)
			}
			if a.Confirm != "" {
				btn = btn.WithConfirm(slackapi.NewConfirmationBlockObject(
					plain("Are you sure?"), mrkdwn(a.Confirm), plain("Confirm"), plain("Cancel"),
				))
			}
			elements = append(elements, btn)
		}
		blocks = append(blocks, slackapi.NewActionBlock("", elements...))
	}
	return blocks
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
