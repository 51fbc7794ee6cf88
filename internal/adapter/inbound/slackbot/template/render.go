// Package template renders platform-agnostic views as Slack Block Kit.
package template

import (
	"fmt"

	slackapi "github.com/slack-go/slack"

	"github.com/jonny/insight-bot/internal/domain/model"
)

// Slack rejects modal titles longer than this.
const maxTitleLen = 24

// BuildBlocks converts view blocks to Block Kit blocks.
func BuildBlocks(view model.View) []slackapi.Block {
	blocks := make([]slackapi.Block, 0, len(view.Blocks))
	for _, b := range view.Blocks {
		switch b.Type {
		case model.BlockTypeSection:
			blocks = append(blocks, slackapi.NewSectionBlock(markdown(b.Text), nil, nil))

		case model.BlockTypeFields:
			fields := make([]*slackapi.TextBlockObject, len(b.Fields))
			for i, f := range b.Fields {
				fields[i] = markdown(fmt.Sprintf("*%s:*\n%s", f.Label, f.Value))
			}
			blocks = append(blocks, slackapi.NewSectionBlock(nil, fields, nil))

		case model.BlockTypeDivider:
			blocks = append(blocks, slackapi.NewDividerBlock())

		case model.BlockTypeActions:
			elems := make([]slackapi.BlockElement, len(b.Buttons))
			for i, btn := range b.Buttons {
				el := slackapi.NewButtonBlockElement(btn.ActionID, btn.Value,
					slackapi.NewTextBlockObject(slackapi.PlainTextType, btn.Text, true, false))
				el.Style = slackapi.Style(btn.Style)
				elems[i] = el
			}
			blocks = append(blocks, slackapi.NewActionBlock("", elems...))

		case model.BlockTypeContext:
			blocks = append(blocks, slackapi.NewContextBlock("", markdown(b.Text)))
		}
	}
	return blocks
}

// MessageOptions returns the options that post or update view as a message.
func MessageOptions(view model.View) []slackapi.MsgOption {
	return []slackapi.MsgOption{
		slackapi.MsgOptionText(view.FallbackText, false),
		slackapi.MsgOptionBlocks(BuildBlocks(view)...),
	}
}

func BuildModal(view model.View) slackapi.ModalViewRequest {
	req := slackapi.ModalViewRequest{
		Type:            slackapi.VTModal,
		Title:           plain(truncate(view.Title, maxTitleLen)),
		Blocks:          slackapi.Blocks{BlockSet: BuildBlocks(view)},
		PrivateMetadata: view.PrivateMetadata,
		CallbackID:      view.CallbackID,
	}
	if view.CloseLabel != "" {
		req.Close = plain(view.CloseLabel)
	}
	return req
}

func BuildHome(view model.View) slackapi.HomeTabViewRequest {
	return slackapi.HomeTabViewRequest{
		Type:            slackapi.VTHomeTab,
		Blocks:          slackapi.Blocks{BlockSet: BuildBlocks(view)},
		PrivateMetadata: view.PrivateMetadata,
		CallbackID:      view.CallbackID,
	}
}

func markdown(text string) *slackapi.TextBlockObject {
	return slackapi.NewTextBlockObject(slackapi.MarkdownType, text, false, false)
}

func plain(text string) *slackapi.TextBlockObject {
	return slackapi.NewTextBlockObject(slackapi.PlainTextType, text, true, false)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
