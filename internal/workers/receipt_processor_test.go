// internal/workers/receipt_processor_test.go
package workers_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/smartbook-be/internal/core/domain"
	"github.com/ammerola/smartbook-be/internal/pkg/receipt"
	"github.com/ammerola/smartbook-be/internal/workers"
	"github.com/ammerola/smartbook-be/test/helpers"
	"github.com/ammerola/smartbook-be/test/mocks"
)

func receiptTask(t *testing.T, saleID int64) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(workers.ReceiptPayload{SaleID: saleID})
	require.NoError(t, err)
	return asynq.NewTask(workers.TypeReceiptSend, payload)
}

func committedSale(customerID int64) *domain.Sale {
	return &domain.Sale{
		ID:            5,
		ReceiptNumber: "V-2026-000005",
		Date:          time.Now(),
		CustomerID:    customerID,
		UserID:        1,
		Total:         decimal.RequireFromString("15.00"),
		CustomerName:  "Maria Gonzalez",
		UserName:      "Pedro Marte",
		Lines: []domain.SaleLine{
			{
				BookName:  "English File Intermediate",
				LotCode:   "2026-1",
				Units:     1,
				UnitPrice: decimal.RequireFromString("15.00"),
				Subtotal:  decimal.RequireFromString("15.00"),
			},
		},
	}
}

func TestReceiptProcessor_SendReceipt(t *testing.T) {
	cfg := helpers.LoadTestConfig()
	cfg.App.Environment = "development" // delivery is logged, not sent
	renderer := receipt.NewRenderer("Instituto de Idiomas")

	t.Run("renders_archives_and_delivers", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		store := helpers.NewMemStore()
		customer := store.SeedCustomer(domain.Customer{
			DocumentID: "001-1234567-8",
			Name:       "Maria Gonzalez",
			Email:      "maria@example.com",
		})

		sales := mocks.NewMockSaleService(ctrl)
		sales.EXPECT().GetByID(gomock.Any(), int64(5)).Return(committedSale(customer.ID), nil)

		storageClient := mocks.NewMockStorageClient(ctrl)
		storageClient.EXPECT().
			Upload(gomock.Any(), "receipts/sale-5.txt", gomock.Any(), "text/plain; charset=utf-8").
			Return("s3://smartbook-documents/receipts/sale-5.txt", nil)

		processor := workers.NewReceiptProcessor(sales, store.Stores().Customers, renderer, storageClient, cfg, helpers.TestLogger())

		err := processor.SendReceipt(context.Background(), receiptTask(t, 5))
		require.NoError(t, err)
	})

	t.Run("archive_failure_does_not_block_delivery", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		store := helpers.NewMemStore()
		customer := store.SeedCustomer(domain.Customer{
			DocumentID: "001-1234567-8",
			Name:       "Maria Gonzalez",
			Email:      "maria@example.com",
		})

		sales := mocks.NewMockSaleService(ctrl)
		sales.EXPECT().GetByID(gomock.Any(), int64(5)).Return(committedSale(customer.ID), nil)

		storageClient := mocks.NewMockStorageClient(ctrl)
		storageClient.EXPECT().
			Upload(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return("", errors.New("bucket unavailable"))

		processor := workers.NewReceiptProcessor(sales, store.Stores().Customers, renderer, storageClient, cfg, helpers.TestLogger())

		err := processor.SendReceipt(context.Background(), receiptTask(t, 5))
		require.NoError(t, err)
	})

	t.Run("skips_delivery_when_customer_has_no_email", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		store := helpers.NewMemStore()
		customer := store.SeedCustomer(domain.Customer{
			DocumentID: "001-1234567-8",
			Name:       "Maria Gonzalez",
		})

		sales := mocks.NewMockSaleService(ctrl)
		sales.EXPECT().GetByID(gomock.Any(), int64(5)).Return(committedSale(customer.ID), nil)

		storageClient := mocks.NewMockStorageClient(ctrl)
		storageClient.EXPECT().
			Upload(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return("ok", nil)

		processor := workers.NewReceiptProcessor(sales, store.Stores().Customers, renderer, storageClient, cfg, helpers.TestLogger())

		err := processor.SendReceipt(context.Background(), receiptTask(t, 5))
		require.NoError(t, err)
	})

	t.Run("works_without_archive_storage", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		store := helpers.NewMemStore()
		customer := store.SeedCustomer(domain.Customer{
			DocumentID: "001-1234567-8",
			Name:       "Maria Gonzalez",
			Email:      "maria@example.com",
		})

		sales := mocks.NewMockSaleService(ctrl)
		sales.EXPECT().GetByID(gomock.Any(), int64(5)).Return(committedSale(customer.ID), nil)

		processor := workers.NewReceiptProcessor(sales, store.Stores().Customers, renderer, nil, cfg, helpers.TestLogger())

		err := processor.SendReceipt(context.Background(), receiptTask(t, 5))
		require.NoError(t, err)
	})

	t.Run("fails_when_sale_missing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		store := helpers.NewMemStore()

		sales := mocks.NewMockSaleService(ctrl)
		sales.EXPECT().GetByID(gomock.Any(), int64(404)).Return(nil, nil)

		processor := workers.NewReceiptProcessor(sales, store.Stores().Customers, renderer, nil, cfg, helpers.TestLogger())

		err := processor.SendReceipt(context.Background(), receiptTask(t, 404))
		require.Error(t, err)
	})
}
