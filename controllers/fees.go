package controllers

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"udaan_go/middleware"
	"udaan_go/models"
	"udaan_go/services"
	"udaan_go/services/ledger"
	"udaan_go/services/websocket"
	"udaan_go/utils"
)

type FeeController struct {
	fees     *services.FeeService
	exports  *services.ExportService
	receipts services.UserPublisher
}

func NewFeeController(fees *services.FeeService, exports *services.ExportService, receipts services.UserPublisher) *FeeController {
	return &FeeController{fees: fees, exports: exports, receipts: receipts}
}

// GetLedger lists the fee ledger rows for ?academic_year=&status=&search=
func (fc *FeeController) GetLedger(c *fiber.Ctx) error {
	year := c.Query("academic_year")
	rows, err := fc.fees.Rows(c.UserContext(), year, models.FeeFilter(c.Query("status")), c.Query("search"))
	if err != nil {
		return respondError(c, err, "Failed to fetch fee ledger")
	}
	return c.JSON(fiber.Map{"rows": rows, "total": len(rows)})
}

func (fc *FeeController) GetSummary(c *fiber.Ctx) error {
	summary, err := fc.fees.Summary(c.UserContext(), c.Query("academic_year"))
	if err != nil {
		return respondError(c, err, "Failed to compute fee summary")
	}
	return c.JSON(fiber.Map{"summary": summary})
}

func (fc *FeeController) GetDefaulters(c *fiber.Ctx) error {
	rows, err := fc.fees.Defaulters(c.UserContext(), c.Query("academic_year"))
	if err != nil {
		return respondError(c, err, "Failed to fetch defaulters")
	}
	return c.JSON(fiber.Map{"defaulters": rows, "total": len(rows)})
}

// ExportLedger downloads the ledger and every transaction as xlsx
func (fc *FeeController) ExportLedger(c *fiber.Ctx) error {
	year := c.Query("academic_year")
	buf, err := fc.exports.FeesXLSX(c.UserContext(), year)
	if err != nil {
		return respondError(c, err, "Failed to export fee ledger")
	}
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Attachment(fmt.Sprintf("fees_export_%s.xlsx", utils.TodayString()))
	return c.Send(buf.Bytes())
}

// GetRecord returns one student's fee record with derived semester statuses
func (fc *FeeController) GetRecord(c *fiber.Ctx) error {
	rec, err := fc.fees.GetRecord(c.UserContext(), c.Params("studentId"), c.Query("academic_year"))
	if err != nil {
		return respondError(c, err, "Failed to fetch fee record")
	}
	return c.JSON(fiber.Map{"ledger": rec})
}

func (fc *FeeController) GetSemesterStatus(c *fiber.Ctx) error {
	sem, err := strconv.Atoi(c.Params("semester"))
	if err != nil {
		return badRequest(c, "semester must be 1 or 2")
	}
	status, err := fc.fees.SemesterStatus(c.UserContext(), c.Params("studentId"), c.Query("academic_year"), models.Semester(sem))
	if err != nil {
		return respondError(c, err, "Failed to derive semester status")
	}
	return c.JSON(fiber.Map{"status": status})
}

type recordPaymentRequest struct {
	ledger.Payment
	AcademicYear string `json:"academicYear"`
}

// RecordPayment applies a semester payment and returns the receipt
func (fc *FeeController) RecordPayment(c *fiber.Ctx) error {
	var req recordPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Date == "" {
		req.Date = utils.TodayString()
	}

	receipt, err := fc.fees.RecordPayment(c.UserContext(), c.Params("studentId"), req.AcademicYear, req.Payment)
	if err != nil {
		return respondError(c, err, "Failed to record payment")
	}

	username := middleware.CurrentUsername(c)
	logrus.WithFields(logrus.Fields{
		"receipt":  receipt.ReceiptNo,
		"username": username,
	}).Debug("Receipt issued")
	// the operator's open dashboards get a printable copy
	if fc.receipts != nil {
		fc.receipts.PublishToUser(username, websocket.EventReceiptIssued, fiber.Map{
			"receiptNo": receipt.ReceiptNo,
			"studentId": receipt.Student.ID,
			"text":      receipt.Text(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Payment recorded successfully",
		"receipt": receipt,
		"text":    receipt.Text(),
	})
}
