package services

import (
	"context"
	"fmt"

	"github.com/line/line-bot-sdk-go/linebot"
	"github.com/sirupsen/logrus"
)

// maxLineText is the LINE limit for one text message.
const maxLineText = 5000

// LineMessagingService wraps the LINE Messaging API client.
type LineMessagingService struct {
	Bot *linebot.Client
}

// NewLineMessagingService returns a service with a nil Bot when credentials are missing.
func NewLineMessagingService(channelSecret, channelToken string) (*LineMessagingService, error) {
	if channelSecret == "" || channelToken == "" {
		logrus.Warn("LINE Messaging API disabled: missing LINE_CHANNEL_SECRET or LINE_CHANNEL_ACCESS_TOKEN")
		return &LineMessagingService{Bot: nil}, nil
	}

	bot, err := linebot.New(channelSecret, channelToken)
	if err != nil {
		return nil, fmt.Errorf("cannot create LINE bot client: %v", err)
	}
	return &LineMessagingService{Bot: bot}, nil
}

// SendToGroup pushes a text message to groupID.
func (s *LineMessagingService) SendToGroup(ctx context.Context, groupID, message string) error {
	if s == nil || s.Bot == nil {
		return fmt.Errorf("LINE Bot client is not initialized")
	}
	if groupID == "" {
		return fmt.Errorf("LINE group id is empty")
	}
	if r := []rune(message); len(r) > maxLineText {
		message = string(r[:maxLineText-1]) + "…"
	}

	if _, err := s.Bot.PushMessage(groupID, linebot.NewTextMessage(message)).WithContext(ctx).Do(); err != nil {
		return fmt.Errorf("LINE Messaging API failed: %v", err)
	}
	return nil
}

// GroupName looks up the display name of a group the bot has joined.
func (s *LineMessagingService) GroupName(ctx context.Context, groupID string) (string, error) {
	if s == nil || s.Bot == nil {
		return "", fmt.Errorf("LINE Bot client is not initialized")
	}
	summary, err := s.Bot.GetGroupSummary(groupID).WithContext(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("LINE group summary failed: %v", err)
	}
	return summary.GroupName, nil
}
