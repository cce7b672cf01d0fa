package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"udaan_go/middleware"
	"udaan_go/services"
	"udaan_go/services/websocket"
)

type BackupController struct {
	backups   *services.BackupService
	publisher services.EventPublisher
}

func NewBackupController(backups *services.BackupService, publisher services.EventPublisher) *BackupController {
	return &BackupController{backups: backups, publisher: publisher}
}

func backupError(c *fiber.Ctx, err error, fallback string) error {
	if errors.Is(err, services.ErrBackupsDisabled) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}
	return respondError(c, err, fallback)
}

// CreateBackup uploads a zip snapshot of every collection
func (bc *BackupController) CreateBackup(c *fiber.Ctx) error {
	info, err := bc.backups.Backup(c.UserContext())
	if err != nil {
		return backupError(c, err, "Failed to create backup")
	}
	logrus.WithFields(logrus.Fields{"key": info.Key, "username": middleware.CurrentUsername(c)}).Info("Backup created")
	if bc.publisher != nil {
		bc.publisher.Publish(websocket.EventBackupCompleted, info)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Backup created successfully",
		"backup":  info,
	})
}

func (bc *BackupController) ListBackups(c *fiber.Ctx) error {
	objects, err := bc.backups.List(c.UserContext())
	if err != nil {
		return backupError(c, err, "Failed to list backups")
	}
	return c.JSON(fiber.Map{"backups": objects, "total": len(objects)})
}

type restoreRequest struct {
	Key string `json:"key"`
}

// RestoreBackup replaces stored records with the contents of an archive
func (bc *BackupController) RestoreBackup(c *fiber.Ctx) error {
	var req restoreRequest
	if err := c.BodyParser(&req); err != nil || req.Key == "" {
		return badRequest(c, "key is required")
	}
	info, err := bc.backups.Restore(c.UserContext(), req.Key)
	if err != nil {
		return backupError(c, err, "Failed to restore backup")
	}
	logrus.WithFields(logrus.Fields{"key": req.Key, "username": middleware.CurrentUsername(c)}).Warn("Backup restored")
	return c.JSON(fiber.Map{
		"message": "Backup restored successfully",
		"backup":  info,
	})
}
