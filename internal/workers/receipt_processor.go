// internal/workers/receipt_processor.go
package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/hibiken/asynq"

	"github.com/ammerola/smartbook-be/internal/adapters/storage"
	"github.com/ammerola/smartbook-be/internal/core/ports"
	"github.com/ammerola/smartbook-be/internal/pkg/config"
	"github.com/ammerola/smartbook-be/internal/pkg/receipt"
)

// ReceiptProcessor renders and delivers receipts for committed sales.
// The task runs at most once; every failure here is logged and gone, the
// sale itself is already durable.
type ReceiptProcessor struct {
	sales     ports.SaleService
	customers ports.CustomerStore
	renderer  *receipt.Renderer
	storage   storage.StorageClient
	config    *config.Config
	logger    *slog.Logger
}

// NewReceiptProcessor creates a new receipt processor. storage may be nil
// when no archive bucket is configured.
func NewReceiptProcessor(
	sales ports.SaleService,
	customers ports.CustomerStore,
	renderer *receipt.Renderer,
	storageClient storage.StorageClient,
	cfg *config.Config,
	logger *slog.Logger,
) *ReceiptProcessor {
	return &ReceiptProcessor{
		sales:     sales,
		customers: customers,
		renderer:  renderer,
		storage:   storageClient,
		config:    cfg,
		logger:    logger.With(slog.String("processor", "receipt")),
	}
}

// SendReceipt renders the receipt, archives it, and emails the customer.
func (p *ReceiptProcessor) SendReceipt(ctx context.Context, t *asynq.Task) error {
	var payload ReceiptPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	sale, err := p.sales.GetByID(ctx, payload.SaleID)
	if err != nil {
		return fmt.Errorf("failed to load sale %d: %w", payload.SaleID, err)
	}
	if sale == nil {
		return fmt.Errorf("sale %d not found", payload.SaleID)
	}

	doc, err := p.renderer.Render(sale)
	if err != nil {
		return fmt.Errorf("failed to render receipt: %w", err)
	}

	// Archive is best-effort, delivery still proceeds without it.
	if p.storage != nil {
		key := storage.ReceiptKey(sale.ID)
		if _, err := p.storage.Upload(ctx, key, bytes.NewReader(doc), "text/plain; charset=utf-8"); err != nil {
			p.logger.WarnContext(ctx, "failed to archive receipt",
				slog.Int64("sale_id", sale.ID),
				slog.String("key", key),
				slog.String("error", err.Error()))
		}
	}

	customer, err := p.customers.FindByID(ctx, sale.CustomerID)
	if err != nil {
		return fmt.Errorf("failed to load customer %d: %w", sale.CustomerID, err)
	}
	if customer == nil || customer.Email == "" {
		p.logger.InfoContext(ctx, "customer has no email, skipping delivery",
			slog.Int64("sale_id", sale.ID),
			slog.Int64("customer_id", sale.CustomerID))
		return nil
	}

	if err := p.sendEmail(ctx, customer.Email, sale.ReceiptNumber, doc); err != nil {
		return fmt.Errorf("failed to send receipt email: %w", err)
	}

	p.logger.InfoContext(ctx, "receipt delivered",
		slog.Int64("sale_id", sale.ID),
		slog.String("receipt_number", sale.ReceiptNumber),
		slog.String("to", customer.Email))

	return nil
}

func (p *ReceiptProcessor) sendEmail(ctx context.Context, to, receiptNumber string, doc []byte) error {
	subject := fmt.Sprintf("Comprobante de venta %s", receiptNumber)

	// In development the relay usually does not exist, just log the mail.
	if p.config.IsDevelopment() {
		p.logger.InfoContext(ctx, "email would be sent",
			slog.String("to", to),
			slog.String("subject", subject))
		return nil
	}

	from := p.config.SMTP.From
	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		from, to, subject, doc,
	))

	var auth smtp.Auth
	if p.config.SMTP.Username != "" {
		auth = smtp.PlainAuth("", p.config.SMTP.Username, p.config.SMTP.Password, p.config.SMTP.Host)
	}

	if err := smtp.SendMail(p.config.GetSMTPAddress(), auth, from, []string{to}, msg); err != nil {
		return err
	}

	return nil
}
