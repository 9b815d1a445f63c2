package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v3"
)

// CatalogEntry is one book from the catalog workbook plus its
// opening stock. Units may be zero for titles carried without stock.
type CatalogEntry struct {
	Name         string
	Level        string
	Kind         string
	Publisher    string
	Edition      string
	Units        int
	PurchaseCost decimal.Decimal
	SalePrice    decimal.Decimal
}

type CustomerFixture struct {
	DocumentID string
	Name       string
	Email      string
	Phone      string
	BirthDate  time.Time
}

type UserFixture struct {
	DocumentID string
	Name       string
	Email      string
	Role       string
}

// Seeder loads the development dataset into a fresh database.
type Seeder struct {
	db     *pgxpool.Pool
	logger *slog.Logger
	dryRun bool
}

func NewSeeder(db *pgxpool.Pool, logger *slog.Logger, dryRun bool) *Seeder {
	return &Seeder{db: db, logger: logger, dryRun: dryRun}
}

// LoadCatalog reads catalog entries from an Excel workbook. Expected
// columns: name, level, kind, publisher, edition, units,
// purchase_cost, sale_price. The first row is treated as a header.
func LoadCatalog(path string, logger *slog.Logger) ([]CatalogEntry, error) {
	file, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	if len(file.Sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in catalog file")
	}
	sheet := file.Sheets[0]

	var entries []CatalogEntry
	rowIdx := 0
	err = sheet.ForEachRow(func(r *xlsx.Row) error {
		if rowIdx == 0 {
			rowIdx++
			return nil
		}
		rowIdx++

		get := func(i int) string {
			c := r.GetCell(i)
			if c == nil {
				return ""
			}
			if s, err := c.FormattedValue(); err == nil {
				return strings.TrimSpace(s)
			}
			return strings.TrimSpace(c.String())
		}

		name := get(0)
		if name == "" {
			return nil
		}

		units, _ := strconv.Atoi(get(5))
		purchaseCost, err := decimal.NewFromString(get(6))
		if err != nil {
			purchaseCost = decimal.Zero
		}
		salePrice, err := decimal.NewFromString(get(7))
		if err != nil {
			salePrice = decimal.Zero
		}

		entries = append(entries, CatalogEntry{
			Name:         name,
			Level:        get(1),
			Kind:         normalizeKind(get(2)),
			Publisher:    get(3),
			Edition:      get(4),
			Units:        units,
			PurchaseCost: purchaseCost,
			SalePrice:    salePrice,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	logger.Info("Loaded catalog entries", slog.Int("count", len(entries)))
	return entries, nil
}

func normalizeKind(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "textbook", "libro", "student book":
		return "textbook"
	case "workbook", "cuaderno":
		return "workbook"
	case "reader", "lectura":
		return "reader"
	case "teacher_edition", "teacher's edition", "teacher ed":
		return "teacher_edition"
	default:
		return "other"
	}
}

// defaultCatalog is the built-in dev dataset used when no workbook is
// provided. Prices are in Dominican pesos.
func defaultCatalog() []CatalogEntry {
	price := func(s string) decimal.Decimal {
		d, _ := decimal.NewFromString(s)
		return d
	}

	return []CatalogEntry{
		{Name: "English File Beginner", Level: "A1", Kind: "textbook", Publisher: "Oxford", Edition: "4th", Units: 40, PurchaseCost: price("650.00"), SalePrice: price("1100.00")},
		{Name: "English File Beginner Workbook", Level: "A1", Kind: "workbook", Publisher: "Oxford", Edition: "4th", Units: 40, PurchaseCost: price("450.00"), SalePrice: price("800.00")},
		{Name: "English File Elementary", Level: "A2", Kind: "textbook", Publisher: "Oxford", Edition: "4th", Units: 35, PurchaseCost: price("650.00"), SalePrice: price("1100.00")},
		{Name: "English File Elementary Workbook", Level: "A2", Kind: "workbook", Publisher: "Oxford", Edition: "4th", Units: 35, PurchaseCost: price("450.00"), SalePrice: price("800.00")},
		{Name: "English File Intermediate", Level: "B1", Kind: "textbook", Publisher: "Oxford", Edition: "4th", Units: 25, PurchaseCost: price("700.00"), SalePrice: price("1200.00")},
		{Name: "English File Upper-Intermediate", Level: "B2", Kind: "textbook", Publisher: "Oxford", Edition: "4th", Units: 15, PurchaseCost: price("700.00"), SalePrice: price("1200.00")},
		{Name: "Oxford Bookworms: The Elephant Man", Level: "A1", Kind: "reader", Publisher: "Oxford", Edition: "", Units: 20, PurchaseCost: price("250.00"), SalePrice: price("450.00")},
		{Name: "Oxford Bookworms: Sherlock Holmes Short Stories", Level: "A2", Kind: "reader", Publisher: "Oxford", Edition: "", Units: 20, PurchaseCost: price("250.00"), SalePrice: price("450.00")},
		{Name: "English File Beginner Teacher's Guide", Level: "A1", Kind: "teacher_edition", Publisher: "Oxford", Edition: "4th", Units: 3, PurchaseCost: price("1200.00"), SalePrice: price("2000.00")},
		{Name: "Aprendo Español 1", Level: "A1", Kind: "textbook", Publisher: "Santillana", Edition: "2nd", Units: 30, PurchaseCost: price("550.00"), SalePrice: price("950.00")},
		{Name: "Aprendo Español 1 Cuaderno", Level: "A1", Kind: "workbook", Publisher: "Santillana", Edition: "2nd", Units: 30, PurchaseCost: price("400.00"), SalePrice: price("700.00")},
		{Name: "Grammaire Progressive du Français", Level: "A2", Kind: "textbook", Publisher: "CLE International", Edition: "3rd", Units: 12, PurchaseCost: price("800.00"), SalePrice: price("1350.00")},
	}
}

func defaultCustomers() []CustomerFixture {
	date := func(s string) time.Time {
		t, _ := time.Parse("2006-01-02", s)
		return t
	}

	return []CustomerFixture{
		{DocumentID: "001-1234567-8", Name: "María Rodríguez", Email: "maria.rodriguez@example.com", Phone: "809-555-0101", BirthDate: date("1998-03-14")},
		{DocumentID: "001-7654321-0", Name: "Juan Pérez", Email: "juan.perez@example.com", Phone: "809-555-0102", BirthDate: date("2001-11-02")},
		{DocumentID: "402-2345678-9", Name: "Ana Gómez", Email: "ana.gomez@example.com", Phone: "829-555-0103", BirthDate: date("1995-07-21")},
		{DocumentID: "001-8877665-4", Name: "Luis Fernández", Email: "", Phone: "849-555-0104", BirthDate: date("2003-01-30")},
		{DocumentID: "223-0011223-5", Name: "Carmen Díaz", Email: "carmen.diaz@example.com", Phone: "", BirthDate: date("1988-12-05")},
	}
}

func defaultUsers() []UserFixture {
	return []UserFixture{
		{DocumentID: "001-0000001-1", Name: "Patricia Santos", Email: "psantos@smartbook.edu.do", Role: "admin"},
		{DocumentID: "001-0000002-2", Name: "Rafael Medina", Email: "rmedina@smartbook.edu.do", Role: "staff"},
		{DocumentID: "001-0000003-3", Name: "Josefina Castillo", Email: "jcastillo@smartbook.edu.do", Role: "staff"},
	}
}

// SeedBooks inserts catalog books and returns name -> id for the
// intake pass. Existing books with the same name are reused.
func (s *Seeder) SeedBooks(ctx context.Context, entries []CatalogEntry) (map[string]int64, error) {
	ids := make(map[string]int64, len(entries))

	for _, entry := range entries {
		if s.dryRun {
			s.logger.Info("Would seed book", slog.String("name", entry.Name))
			continue
		}

		var id int64
		err := s.db.QueryRow(ctx,
			`SELECT id FROM books WHERE name = $1`, entry.Name).Scan(&id)
		if err == pgx.ErrNoRows {
			err = s.db.QueryRow(ctx,
				`INSERT INTO books (name, level, kind, publisher, edition)
				 VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), NULLIF($5, ''))
				 RETURNING id`,
				entry.Name, entry.Level, entry.Kind, entry.Publisher, entry.Edition,
			).Scan(&id)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to seed book %q: %w", entry.Name, err)
		}
		ids[entry.Name] = id
	}

	s.logger.Info("Seeded books", slog.Int("count", len(ids)))
	return ids, nil
}

// SeedIntakes records an opening-stock intake per catalog entry with
// units, creating or topping up the matching lot and book stock.
func (s *Seeder) SeedIntakes(ctx context.Context, entries []CatalogEntry, bookIDs map[string]int64, lotCode string) (int, error) {
	seeded := 0

	for _, entry := range entries {
		if entry.Units <= 0 {
			continue
		}
		if s.dryRun {
			s.logger.Info("Would seed intake",
				slog.String("name", entry.Name),
				slog.String("lot_code", lotCode),
				slog.Int("units", entry.Units))
			seeded++
			continue
		}

		bookID, ok := bookIDs[entry.Name]
		if !ok {
			continue
		}

		tx, err := s.db.Begin(ctx)
		if err != nil {
			return seeded, fmt.Errorf("failed to begin transaction: %w", err)
		}

		batch := &pgx.Batch{}
		batch.Queue(`
			INSERT INTO intakes (book_id, lot_code, units, purchase_cost, sale_price, received_at)
			VALUES ($1, $2, $3, $4, $5, NOW())`,
			bookID, lotCode, entry.Units, entry.PurchaseCost, entry.SalePrice)
		batch.Queue(`
			INSERT INTO lots (book_id, lot_code, units_available)
			VALUES ($1, $2, $3)
			ON CONFLICT (book_id, lot_code)
			DO UPDATE SET units_available = lots.units_available + EXCLUDED.units_available,
			              updated_at      = NOW()`,
			bookID, lotCode, entry.Units)
		batch.Queue(`
			UPDATE books SET stock = stock + $2, updated_at = NOW() WHERE id = $1`,
			bookID, entry.Units)

		br := tx.SendBatch(ctx, batch)
		var execErr error
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				execErr = err
				break
			}
		}
		if closeErr := br.Close(); execErr == nil {
			execErr = closeErr
		}
		if execErr != nil {
			tx.Rollback(ctx)
			return seeded, fmt.Errorf("failed to seed intake for %q: %w", entry.Name, execErr)
		}
		if err := tx.Commit(ctx); err != nil {
			return seeded, fmt.Errorf("failed to commit intake for %q: %w", entry.Name, err)
		}
		seeded++
	}

	s.logger.Info("Seeded intakes",
		slog.String("lot_code", lotCode),
		slog.Int("count", seeded))
	return seeded, nil
}

func (s *Seeder) SeedCustomers(ctx context.Context, fixtures []CustomerFixture) (int, error) {
	if s.dryRun {
		s.logger.Info("Would seed customers", slog.Int("count", len(fixtures)))
		return len(fixtures), nil
	}

	batch := &pgx.Batch{}
	for _, c := range fixtures {
		var birthDate any
		if !c.BirthDate.IsZero() {
			birthDate = c.BirthDate
		}
		batch.Queue(`
			INSERT INTO customers (document_id, name, email, phone, birth_date)
			VALUES ($1, $2, $3, NULLIF($4, ''), $5)
			ON CONFLICT (document_id) DO NOTHING`,
			c.DocumentID, c.Name, c.Email, c.Phone, birthDate)
	}

	if err := s.sendBatch(ctx, batch); err != nil {
		return 0, fmt.Errorf("failed to seed customers: %w", err)
	}

	s.logger.Info("Seeded customers", slog.Int("count", len(fixtures)))
	return len(fixtures), nil
}

func (s *Seeder) SeedUsers(ctx context.Context, fixtures []UserFixture) (int, error) {
	if s.dryRun {
		s.logger.Info("Would seed users", slog.Int("count", len(fixtures)))
		return len(fixtures), nil
	}

	batch := &pgx.Batch{}
	for _, u := range fixtures {
		batch.Queue(`
			INSERT INTO users (document_id, name, email, role, active)
			VALUES ($1, $2, $3, $4, TRUE)
			ON CONFLICT (document_id) DO NOTHING`,
			u.DocumentID, u.Name, u.Email, u.Role)
	}

	if err := s.sendBatch(ctx, batch); err != nil {
		return 0, fmt.Errorf("failed to seed users: %w", err)
	}

	s.logger.Info("Seeded users", slog.Int("count", len(fixtures)))
	return len(fixtures), nil
}

func (s *Seeder) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return err
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close batch results: %w", err)
	}
	return tx.Commit(ctx)
}

func main() {
	var (
		catalogFile = flag.String("catalog", "", "Excel workbook with the book catalog (optional)")
		lotCode     = flag.String("lot", "", "Lot code for opening-stock intakes (defaults to <year>-1)")
		logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		dryRun      = flag.Bool("dry-run", false, "Preview changes without modifying database")
	)
	flag.Parse()

	var slogLevel slog.Level
	switch *logLevel {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel,
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, opts))
	slog.SetDefault(logger)

	dbURL := fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=%s",
		getEnv("DB_USER", "smartbook"),
		getEnv("DB_PASSWORD", "smartbook_dev_2026"),
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_NAME", "smartbook"),
		getEnv("DB_SSL_MODE", "disable"),
	)

	ctx := context.Background()

	var db *pgxpool.Pool
	var err error

	if !*dryRun {
		db, err = pgxpool.New(ctx, dbURL)
		if err != nil {
			logger.Error("Failed to connect to database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer db.Close()
	}

	seeder := NewSeeder(db, logger, *dryRun)

	catalog := defaultCatalog()
	if *catalogFile != "" {
		loaded, err := LoadCatalog(*catalogFile, logger)
		if err != nil {
			logger.Error("Failed to load catalog", slog.String("error", err.Error()))
			os.Exit(1)
		}
		catalog = loaded
	}

	code := *lotCode
	if code == "" {
		code = fmt.Sprintf("%d-1", time.Now().Year())
	}

	bookIDs, err := seeder.SeedBooks(ctx, catalog)
	if err != nil {
		logger.Error("Failed to seed books", slog.String("error", err.Error()))
		os.Exit(1)
	}

	intakes, err := seeder.SeedIntakes(ctx, catalog, bookIDs, code)
	if err != nil {
		logger.Error("Failed to seed intakes", slog.String("error", err.Error()))
		os.Exit(1)
	}

	customers, err := seeder.SeedCustomers(ctx, defaultCustomers())
	if err != nil {
		logger.Error("Failed to seed customers", slog.String("error", err.Error()))
		os.Exit(1)
	}

	users, err := seeder.SeedUsers(ctx, defaultUsers())
	if err != nil {
		logger.Error("Failed to seed users", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("SEEDING SUMMARY")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Books:     %d\n", len(catalog))
	fmt.Printf("Intakes:   %d (lot %s)\n", intakes, code)
	fmt.Printf("Customers: %d\n", customers)
	fmt.Printf("Users:     %d\n", users)

	logger.Info("Seed operation completed",
		slog.Int("books", len(catalog)),
		slog.Int("intakes", intakes),
		slog.Int("customers", customers),
		slog.Int("users", users))

	if *dryRun {
		fmt.Println("\n[DRY RUN] No changes were made to the database")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
