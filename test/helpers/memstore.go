// test/helpers/memstore.go
package helpers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ammerola/smartbook-be/internal/core/domain"
	"github.com/ammerola/smartbook-be/internal/core/ports"
)

// MemStore is an in-memory ports.TxRunner for service-level tests. InTx
// holds a single mutex for the whole callback and restores a snapshot on
// error, which gives the two properties the sale tests care about:
// transactions are atomic (a failed sale leaves no trace) and concurrent
// transactions serialize (so conditional lot takes observe each other).
type MemStore struct {
	mu sync.Mutex
	st *memState
}

type memState struct {
	books     map[int64]domain.Book
	lots      map[int64]domain.Lot
	intakes   map[int64]domain.Intake
	sales     map[int64]domain.Sale
	saleLines map[int64][]domain.SaleLine
	customers map[int64]domain.Customer
	users     map[int64]domain.User
	nextID    int64
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{st: &memState{
		books:     map[int64]domain.Book{},
		lots:      map[int64]domain.Lot{},
		intakes:   map[int64]domain.Intake{},
		sales:     map[int64]domain.Sale{},
		saleLines: map[int64][]domain.SaleLine{},
		customers: map[int64]domain.Customer{},
		users:     map[int64]domain.User{},
	}}
}

func (s *memState) clone() *memState {
	c := &memState{
		books:     make(map[int64]domain.Book, len(s.books)),
		lots:      make(map[int64]domain.Lot, len(s.lots)),
		intakes:   make(map[int64]domain.Intake, len(s.intakes)),
		sales:     make(map[int64]domain.Sale, len(s.sales)),
		saleLines: make(map[int64][]domain.SaleLine, len(s.saleLines)),
		customers: make(map[int64]domain.Customer, len(s.customers)),
		users:     make(map[int64]domain.User, len(s.users)),
		nextID:    s.nextID,
	}
	for k, v := range s.books {
		c.books[k] = v
	}
	for k, v := range s.lots {
		c.lots[k] = v
	}
	for k, v := range s.intakes {
		c.intakes[k] = v
	}
	for k, v := range s.sales {
		c.sales[k] = v
	}
	for k, v := range s.saleLines {
		lines := make([]domain.SaleLine, len(v))
		copy(lines, v)
		c.saleLines[k] = lines
	}
	for k, v := range s.customers {
		c.customers[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	return c
}

func (s *memState) id() int64 {
	s.nextID++
	return s.nextID
}

// InTx implements ports.TxRunner.
func (m *MemStore) InTx(ctx context.Context, fn func(ctx context.Context, st ports.Stores) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.st.clone()
	if err := fn(ctx, m.stores()); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}

// Stores implements ports.TxRunner with mutex-per-call semantics.
func (m *MemStore) Stores() ports.Stores {
	return ports.Stores{
		Books:     lockedBooks{m},
		Lots:      lockedLots{m},
		Intakes:   lockedIntakes{m},
		Sales:     lockedSales{m},
		Customers: lockedCustomers{m},
		Users:     lockedUsers{m},
	}
}

func (m *MemStore) stores() ports.Stores {
	return ports.Stores{
		Books:     memBooks{m},
		Lots:      memLots{m},
		Intakes:   memIntakes{m},
		Sales:     memSales{m},
		Customers: memCustomers{m},
		Users:     memUsers{m},
	}
}

// Seed helpers. Each assigns an id when the record has none.

func (m *MemStore) SeedBook(b domain.Book) domain.Book {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == 0 {
		b.ID = m.st.id()
	}
	m.st.books[b.ID] = b
	return b
}

func (m *MemStore) SeedLot(l domain.Lot) domain.Lot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.ID == 0 {
		l.ID = m.st.id()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	m.st.lots[l.ID] = l
	return l
}

func (m *MemStore) SeedIntake(i domain.Intake) domain.Intake {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i.ID == 0 {
		i.ID = m.st.id()
	}
	m.st.intakes[i.ID] = i
	return i
}

func (m *MemStore) SeedCustomer(c domain.Customer) domain.Customer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == 0 {
		c.ID = m.st.id()
	}
	m.st.customers[c.ID] = c
	return c
}

func (m *MemStore) SeedUser(u domain.User) domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		u.ID = m.st.id()
	}
	m.st.users[u.ID] = u
	return u
}

// Inspection helpers for asserting on post-transaction state.

func (m *MemStore) Book(id int64) domain.Book {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.books[id]
}

func (m *MemStore) Lot(id int64) domain.Lot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.lots[id]
}

func (m *MemStore) LotByCode(bookID int64, lotCode string) (domain.Lot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.st.lots {
		if l.BookID == bookID && l.LotCode == lotCode {
			return l, true
		}
	}
	return domain.Lot{}, false
}

func (m *MemStore) LotsOf(bookID int64) []domain.Lot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lotsOf(m.st, bookID, false)
}

func (m *MemStore) SaleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.st.sales)
}

func (m *MemStore) LineCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, lines := range m.st.saleLines {
		n += len(lines)
	}
	return n
}

// Unlocked store implementations, used inside InTx.

type memBooks struct{ m *MemStore }

func (s memBooks) FindByID(_ context.Context, id int64) (*domain.Book, error) {
	if b, ok := s.m.st.books[id]; ok {
		cp := b
		return &cp, nil
	}
	return nil, nil
}

func (s memBooks) UpdateStock(_ context.Context, id int64, stock int) error {
	b, ok := s.m.st.books[id]
	if !ok {
		return nil
	}
	b.Stock = stock
	s.m.st.books[id] = b
	return nil
}

type memLots struct{ m *MemStore }

func (s memLots) FindByBookAndCode(_ context.Context, bookID int64, lotCode string) (*domain.Lot, error) {
	for _, l := range s.m.st.lots {
		if l.BookID == bookID && l.LotCode == lotCode {
			cp := l
			return &cp, nil
		}
	}
	return nil, nil
}

func (s memLots) FindSufficientLot(_ context.Context, bookID int64, units int) (*domain.Lot, error) {
	var best *domain.Lot
	for _, l := range lotsOf(s.m.st, bookID, true) {
		if l.UnitsAvailable >= units {
			cp := l
			best = &cp
			break
		}
	}
	return best, nil
}

func (s memLots) FindAvailableByBook(_ context.Context, bookID int64) ([]domain.Lot, error) {
	return lotsOf(s.m.st, bookID, true), nil
}

func (s memLots) FindByCode(_ context.Context, lotCode string) ([]domain.Lot, error) {
	var lots []domain.Lot
	for _, l := range s.m.st.lots {
		if l.LotCode == lotCode {
			cp := l
			if b, ok := s.m.st.books[l.BookID]; ok {
				cp.BookName = b.Name
			}
			lots = append(lots, cp)
		}
	}
	sort.Slice(lots, func(i, j int) bool {
		if lots[i].BookName != lots[j].BookName {
			return lots[i].BookName < lots[j].BookName
		}
		return lots[i].ID < lots[j].ID
	})
	return lots, nil
}

func (s memLots) SumAvailableByBook(_ context.Context, bookID int64) (int, error) {
	total := 0
	for _, l := range s.m.st.lots {
		if l.BookID == bookID {
			total += l.UnitsAvailable
		}
	}
	return total, nil
}

func (s memLots) Save(_ context.Context, lot *domain.Lot) error {
	// (book_id, lot_code) is unique; a second save of the pair tops up
	// the existing row, matching the store's upsert.
	for id, existing := range s.m.st.lots {
		if existing.BookID == lot.BookID && existing.LotCode == lot.LotCode {
			existing.UnitsAvailable += lot.UnitsAvailable
			s.m.st.lots[id] = existing
			*lot = existing
			return nil
		}
	}
	if lot.ID == 0 {
		lot.ID = s.m.st.id()
	}
	if lot.CreatedAt.IsZero() {
		lot.CreatedAt = time.Now().UTC()
	}
	s.m.st.lots[lot.ID] = *lot
	return nil
}

func (s memLots) AddUnits(_ context.Context, lotID int64, units int) error {
	l, ok := s.m.st.lots[lotID]
	if !ok {
		return nil
	}
	l.UnitsAvailable += units
	s.m.st.lots[lotID] = l
	return nil
}

func (s memLots) TakeUnits(_ context.Context, lotID int64, units int) (bool, error) {
	l, ok := s.m.st.lots[lotID]
	if !ok || l.UnitsAvailable < units {
		return false, nil
	}
	l.UnitsAvailable -= units
	l.UnitsSold += units
	s.m.st.lots[lotID] = l
	return true, nil
}

type memIntakes struct{ m *MemStore }

func (s memIntakes) Save(_ context.Context, intake *domain.Intake) error {
	if intake.ID == 0 {
		intake.ID = s.m.st.id()
	}
	if intake.CreatedAt.IsZero() {
		intake.CreatedAt = time.Now().UTC()
	}
	s.m.st.intakes[intake.ID] = *intake
	return nil
}

func (s memIntakes) FindByID(_ context.Context, id int64) (*domain.Intake, error) {
	if i, ok := s.m.st.intakes[id]; ok {
		cp := i
		return &cp, nil
	}
	return nil, nil
}

func (s memIntakes) LatestByBookAndLot(_ context.Context, bookID int64, lotCode string) (*domain.Intake, error) {
	return latestIntake(s.m.st, func(i domain.Intake) bool {
		return i.BookID == bookID && i.LotCode == lotCode
	}), nil
}

func (s memIntakes) LatestByBook(_ context.Context, bookID int64) (*domain.Intake, error) {
	return latestIntake(s.m.st, func(i domain.Intake) bool {
		return i.BookID == bookID
	}), nil
}

func (s memIntakes) Search(_ context.Context, params ports.IntakeSearchParams) ([]domain.Intake, error) {
	var out []domain.Intake
	for _, i := range s.m.st.intakes {
		if !params.From.IsZero() && i.ReceivedAt.Before(params.From) {
			continue
		}
		if !params.To.IsZero() && i.ReceivedAt.After(params.To) {
			continue
		}
		if params.LotCode != "" && i.LotCode != params.LotCode {
			continue
		}
		if params.BookID != 0 && i.BookID != params.BookID {
			continue
		}
		out = append(out, i)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ReceivedAt.After(out[b].ReceivedAt) })
	return out, nil
}

func (s memIntakes) NextLotCode(_ context.Context, year int) (string, error) {
	has := func(code string) bool {
		for _, i := range s.m.st.intakes {
			if i.LotCode == code {
				return true
			}
		}
		return false
	}
	first := domain.PeriodLotCode(year, 1)
	second := domain.PeriodLotCode(year, 2)
	switch {
	case has(second):
		return domain.PeriodLotCode(year+1, 1), nil
	case has(first):
		return second, nil
	default:
		return first, nil
	}
}

type memSales struct{ m *MemStore }

func (s memSales) SaveHeader(_ context.Context, sale *domain.Sale) error {
	if sale.ID == 0 {
		sale.ID = s.m.st.id()
	}
	header := *sale
	header.Lines = nil
	s.m.st.sales[sale.ID] = header
	return nil
}

func (s memSales) UpdateReceiptNumber(_ context.Context, saleID int64, receiptNumber string) error {
	sale, ok := s.m.st.sales[saleID]
	if !ok {
		return fmt.Errorf("sale %d not found", saleID)
	}
	sale.ReceiptNumber = receiptNumber
	s.m.st.sales[saleID] = sale
	return nil
}

func (s memSales) SaveLines(_ context.Context, saleID int64, lines []domain.SaleLine) error {
	stored := make([]domain.SaleLine, len(lines))
	copy(stored, lines)
	for i := range stored {
		stored[i].ID = s.m.st.id()
		stored[i].SaleID = saleID
	}
	s.m.st.saleLines[saleID] = stored
	return nil
}

func (s memSales) FindWithLines(_ context.Context, id int64) (*domain.Sale, error) {
	sale, ok := s.m.st.sales[id]
	if !ok {
		return nil, nil
	}
	lines := make([]domain.SaleLine, len(s.m.st.saleLines[id]))
	copy(lines, s.m.st.saleLines[id])
	for i := range lines {
		if b, ok := s.m.st.books[lines[i].BookID]; ok {
			lines[i].BookName = b.Name
		}
	}
	sale.Lines = lines
	if c, ok := s.m.st.customers[sale.CustomerID]; ok {
		sale.CustomerName = c.Name
		sale.CustomerDocumentID = c.DocumentID
	}
	if u, ok := s.m.st.users[sale.UserID]; ok {
		sale.UserName = u.Name
	}
	return &sale, nil
}

func (s memSales) Search(_ context.Context, params ports.SaleSearchParams) ([]domain.SaleSummary, error) {
	var out []domain.SaleSummary
	for id, sale := range s.m.st.sales {
		if !params.From.IsZero() && sale.Date.Before(params.From) {
			continue
		}
		if !params.To.IsZero() && sale.Date.After(params.To) {
			continue
		}
		customer := s.m.st.customers[sale.CustomerID]
		if params.CustomerDocumentID != "" && !strings.EqualFold(customer.DocumentID, params.CustomerDocumentID) {
			continue
		}
		if params.BookID != 0 {
			found := false
			for _, l := range s.m.st.saleLines[id] {
				if l.BookID == params.BookID {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		out = append(out, domain.SaleSummary{
			ID:            sale.ID,
			ReceiptNumber: sale.ReceiptNumber,
			Date:          sale.Date,
			CustomerID:    sale.CustomerID,
			CustomerName:  customer.Name,
			Total:         sale.Total,
		})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Date.After(out[b].Date) })
	return out, nil
}

type memCustomers struct{ m *MemStore }

func (s memCustomers) FindByID(_ context.Context, id int64) (*domain.Customer, error) {
	if c, ok := s.m.st.customers[id]; ok {
		cp := c
		return &cp, nil
	}
	return nil, nil
}

func (s memCustomers) ListIDs(_ context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(s.m.st.customers))
	for id := range s.m.st.customers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids, nil
}

type memUsers struct{ m *MemStore }

func (s memUsers) FindByID(_ context.Context, id int64) (*domain.User, error) {
	if u, ok := s.m.st.users[id]; ok {
		cp := u
		return &cp, nil
	}
	return nil, nil
}

// Locked wrappers backing Stores() for use outside transactions.

type lockedBooks struct{ m *MemStore }

func (s lockedBooks) FindByID(ctx context.Context, id int64) (*domain.Book, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return memBooks(s).FindByID(ctx, id)
}

func (s lockedBooks) UpdateStock(ctx context.Context, id int64, stock int) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return memBooks(s).UpdateStock(ctx, id, stock)
}

type lockedLots struct{ m *MemStore }

func (s lockedLots) FindByBookAndCode(ctx context.Context, bookID int64, lotCode string) (*domain.Lot, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return memLots(s).FindByBookAndCode(ctx, bookID, lotCode)
}

func (s lockedLots) FindSufficientLot(ctx context.Context, bookID int64, units int) (*domain.Lot, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return memLots(s).FindSufficientLot(ctx, bookID, units)
}

func (s lockedLots) FindAvailableByBook(ctx context.Context, bookID int64) ([]domain.Lot, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return memLots(s).FindAvailableByBook(ctx, bookID)
}

func (s lockedLots) FindByCode(ctx context.Context, lotCode string) ([]domain.Lot, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return memLots(s).FindByCode(ctx, lotCode)
}

func (s lockedLots) SumAvailableByBook(ctx context.Context, bookID int64) (int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return memLots(s).SumAvailableByBook(ctx, bookID)
}

func (s lockedLots) Save(ctx context.Context, lot *domain.Lot) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return memLots(s).Save(ctx, lot)
}

func (s lockedLots) AddUnits(ctx context.Context, lotID int64, units int) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return memLots(s).AddUnits(ctx, lotID, units)
}

func (s lockedLots) TakeUnits(ctx context.Context, lotID int64, units int) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return memLots(s).TakeUnits(ctx, lotID, units)
}

type lockedIntakes struct{ m *MemStore }

func (s lockedIntakes) Save(ctx context.Context, intake *domain.Intake) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return memIntakes(s).Save(ctx, intake)
}

func (s lockedIntakes) FindByID(ctx context.Context, id int64) (*domain.Intake, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return memIntakes(s).FindByID(ctx, id)
}

func (s lockedIntakes) LatestByBookAndLot(ctx context.Context, bookID int64, lotCode string) (*domain.Intake, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return memIntakes(s).LatestByBookAndLot(ctx, bookID, lotCode)
}

func (s lockedIntakes) LatestByBook(ctx context.Context, bookID int64) (*domain.Intake, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return memIntakes(s).LatestByBook(ctx, bookID)
}

func (s lockedIntakes) Search(ctx context.Context, params ports.IntakeSearchParams) ([]domain.Intake, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return memIntakes(s).Search(ctx, params)
}

func (s lockedIntakes) NextLotCode(ctx context.Context, year int) (string, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return memIntakes(s).NextLotCode(ctx, year)
}

type lockedSales struct{ m *MemStore }

func (s lockedSales) SaveHeader(ctx context.Context, sale *domain.Sale) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return memSales(s).SaveHeader(ctx, sale)
}

func (s lockedSales) UpdateReceiptNumber(ctx context.Context, saleID int64, receiptNumber string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return memSales(s).UpdateReceiptNumber(ctx, saleID, receiptNumber)
}

func (s lockedSales) SaveLines(ctx context.Context, saleID int64, lines []domain.SaleLine) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return memSales(s).SaveLines(ctx, saleID, lines)
}

func (s lockedSales) FindWithLines(ctx context.Context, id int64) (*domain.Sale, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return memSales(s).FindWithLines(ctx, id)
}

func (s lockedSales) Search(ctx context.Context, params ports.SaleSearchParams) ([]domain.SaleSummary, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return memSales(s).Search(ctx, params)
}

type lockedCustomers struct{ m *MemStore }

func (s lockedCustomers) FindByID(ctx context.Context, id int64) (*domain.Customer, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return memCustomers(s).FindByID(ctx, id)
}

func (s lockedCustomers) ListIDs(ctx context.Context) ([]int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return memCustomers(s).ListIDs(ctx)
}

type lockedUsers struct{ m *MemStore }

func (s lockedUsers) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return memUsers(s).FindByID(ctx, id)
}

// lotsOf returns a book's lots newest first. availableOnly filters out
// drained lots, matching the SQL the pgx store runs.
func lotsOf(st *memState, bookID int64, availableOnly bool) []domain.Lot {
	var out []domain.Lot
	for _, l := range st.lots {
		if l.BookID != bookID {
			continue
		}
		if availableOnly && l.UnitsAvailable <= 0 {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.After(out[b].CreatedAt)
		}
		return out[a].ID > out[b].ID
	})
	return out
}

func latestIntake(st *memState, match func(domain.Intake) bool) *domain.Intake {
	var latest *domain.Intake
	for _, i := range st.intakes {
		if !match(i) {
			continue
		}
		if latest == nil || i.ReceivedAt.After(latest.ReceivedAt) {
			cp := i
			latest = &cp
		}
	}
	return latest
}
