package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/line/line-bot-sdk-go/linebot"
	"github.com/sirupsen/logrus"
)

const eventTimeout = 10 * time.Second

// GroupRegistry stores the LINE group notifications go to.
type GroupRegistry interface {
	SetLineGroup(ctx context.Context, groupID, groupName string) error
	LineGroupID(ctx context.Context) string
}

// GroupNamer resolves a group's display name.
type GroupNamer interface {
	GroupName(ctx context.Context, groupID string) (string, error)
}

type LineWebhookHandler struct {
	secret   string
	registry GroupRegistry
	namer    GroupNamer
}

func NewLineWebhookHandler(secret string, registry GroupRegistry, namer GroupNamer) *LineWebhookHandler {
	return &LineWebhookHandler{secret: secret, registry: registry, namer: namer}
}

// Handle verifies the signature, answers 200 and processes events in the background.
func (h *LineWebhookHandler) Handle(c *fiber.Ctx) error {
	if h.secret == "" {
		logrus.Warn("LINE webhook called but LINE is not configured")
		return c.SendStatus(fiber.StatusOK)
	}

	signature := c.Get("X-Line-Signature")
	if signature == "" {
		logrus.Warn("LINE webhook without signature header")
		return c.SendStatus(fiber.StatusBadRequest)
	}
	if !validateSignature(h.secret, c.Body(), signature) {
		logrus.WithField("signature", signature).Warn("LINE webhook signature mismatch")
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	// the body buffer is reused by fiber after the handler returns
	body := append([]byte(nil), c.Body()...)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
		defer cancel()
		if err := h.processEvents(ctx, body); err != nil {
			logrus.WithError(err).Error("Failed to process LINE webhook")
		}
	}()

	return c.SendStatus(fiber.StatusOK)
}

// processEvents registers the group on join and clears it on leave.
func (h *LineWebhookHandler) processEvents(ctx context.Context, body []byte) error {
	var webhook struct {
		Events []*linebot.Event `json:"events"`
	}
	if err := json.Unmarshal(body, &webhook); err != nil {
		return err
	}

	for _, event := range webhook.Events {
		if event.Source == nil || event.Source.GroupID == "" {
			continue
		}
		groupID := event.Source.GroupID

		switch event.Type {
		case linebot.EventTypeJoin:
			name := ""
			if h.namer != nil {
				n, err := h.namer.GroupName(ctx, groupID)
				if err != nil {
					logrus.WithError(err).WithField("group_id", groupID).Warn("Failed to get group summary")
				}
				name = n
			}
			if err := h.registry.SetLineGroup(ctx, groupID, name); err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{"group_id": groupID, "group_name": name}).Info("Bot joined LINE group")

		case linebot.EventTypeLeave:
			if h.registry.LineGroupID(ctx) != groupID {
				logrus.WithField("group_id", groupID).Info("Bot left an unregistered LINE group")
				continue
			}
			if err := h.registry.SetLineGroup(ctx, "", ""); err != nil {
				return err
			}
			logrus.WithField("group_id", groupID).Info("Bot left LINE group")

		default:
			// other events are ignored
		}
	}
	return nil
}

func computeSignature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func validateSignature(secret string, body []byte, signature string) bool {
	return hmac.Equal([]byte(signature), []byte(computeSignature(secret, body)))
}
