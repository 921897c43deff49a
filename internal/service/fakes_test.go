package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"split-escrow/internal/core/domain"
	"split-escrow/internal/core/ports"
	"split-escrow/pkg/apperror"
	"split-escrow/pkg/retry"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestLogger() zerolog.Logger {
	return zerolog.Nop()
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, code, appErr.Code, appErr.Message)
}

// ---- Escrow wallet store ----

type fakeWalletRepo struct {
	mu        sync.Mutex
	wallets   map[uuid.UUID]*domain.EscrowWallet
	createErr error
	updateErr error
	deleteErr error
	// rejectUpdate, when set, may veto a write by returning an error.
	rejectUpdate func(w *domain.EscrowWallet) error
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{wallets: make(map[uuid.UUID]*domain.EscrowWallet)}
}

func (r *fakeWalletRepo) Create(_ context.Context, w *domain.EscrowWallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.wallets {
		if existing.BillID == w.BillID && existing.Status != domain.WalletStatusCancelled {
			return ports.ErrWalletExistsForBill
		}
	}
	w.Version = 1
	r.wallets[w.ID] = w.Clone()
	return nil
}

func (r *fakeWalletRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.EscrowWallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, nil
	}
	return w.Clone(), nil
}

func (r *fakeWalletRepo) GetByBillID(_ context.Context, billID string) (*domain.EscrowWallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.wallets {
		if w.BillID == billID && w.Status != domain.WalletStatusCancelled {
			return w.Clone(), nil
		}
	}
	return nil, nil
}

func (r *fakeWalletRepo) Update(_ context.Context, w *domain.EscrowWallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if r.rejectUpdate != nil {
		if err := r.rejectUpdate(w); err != nil {
			return err
		}
	}
	stored, ok := r.wallets[w.ID]
	if !ok || stored.Version != w.Version {
		return ports.ErrVersionConflict
	}
	w.Version++
	r.wallets[w.ID] = w.Clone()
	return nil
}

func (r *fakeWalletRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	delete(r.wallets, id)
	return nil
}

func (r *fakeWalletRepo) ListNeedingReconciliation(_ context.Context, limit int) ([]*domain.EscrowWallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.EscrowWallet
	for _, w := range r.wallets {
		if w.NeedsReconciliation() && len(out) < limit {
			out = append(out, w.Clone())
		}
	}
	return out, nil
}

func (r *fakeWalletRepo) setRejectUpdate(fn func(w *domain.EscrowWallet) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejectUpdate = fn
}

func (r *fakeWalletRepo) get(id uuid.UUID) *domain.EscrowWallet {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.wallets[id]; ok {
		return w.Clone()
	}
	return nil
}

func (r *fakeWalletRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.wallets)
}

// edit changes a stored wallet behind the services' back.
func (r *fakeWalletRepo) edit(id uuid.UUID, fn func(w *domain.EscrowWallet)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w := r.wallets[id].Clone()
	fn(w)
	w.Version++
	r.wallets[id] = w
}

// ---- Bookkeeping store ----

type fakeSplitRepo struct {
	mu        sync.Mutex
	records   map[string]*domain.SplitRecord
	upsertErr error
	updateErr error
	upserts   int
}

func newFakeSplitRepo() *fakeSplitRepo {
	return &fakeSplitRepo{records: make(map[string]*domain.SplitRecord)}
}

func copySplit(rec *domain.SplitRecord) *domain.SplitRecord {
	c := *rec
	c.Participants = append([]domain.SplitParticipant(nil), rec.Participants...)
	return &c
}

func (r *fakeSplitRepo) Upsert(_ context.Context, rec *domain.SplitRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.upserts++
	r.records[rec.BillID] = copySplit(rec)
	return nil
}

func (r *fakeSplitRepo) GetByBillID(_ context.Context, billID string) (*domain.SplitRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[billID]
	if !ok {
		return nil, nil
	}
	return copySplit(rec), nil
}

func (r *fakeSplitRepo) UpdateParticipantStatus(_ context.Context, u ports.ParticipantStatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	rec, ok := r.records[u.SplitID]
	if !ok {
		return ports.ErrSplitNotFound
	}
	row := rec.Participant(u.UserID)
	if row == nil {
		return ports.ErrSplitNotFound
	}
	row.Status = u.Status
	row.AmountPaid = u.AmountPaid
	row.TransactionRef = u.TransactionRef
	return nil
}

func (r *fakeSplitRepo) get(billID string) *domain.SplitRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[billID]; ok {
		return copySplit(rec)
	}
	return nil
}

func (r *fakeSplitRepo) failWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upsertErr = err
	r.updateErr = err
}

// ---- Key custody store ----

type fakeCustodyStore struct {
	mu        sync.Mutex
	secrets   map[string]string
	storeErr  error
	deleteErr error
}

func newFakeCustodyStore() *fakeCustodyStore {
	return &fakeCustodyStore{secrets: make(map[string]string)}
}

func custodyKey(walletID uuid.UUID, holderID string) string {
	return walletID.String() + "/" + holderID
}

func (s *fakeCustodyStore) Store(_ context.Context, walletID uuid.UUID, holderID, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storeErr != nil {
		return s.storeErr
	}
	s.secrets[custodyKey(walletID, holderID)] = secret
	return nil
}

func (s *fakeCustodyStore) Retrieve(_ context.Context, walletID uuid.UUID, holderID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.secrets[custodyKey(walletID, holderID)], nil
}

func (s *fakeCustodyStore) Delete(_ context.Context, walletID uuid.UUID, holderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.secrets, custodyKey(walletID, holderID))
	return nil
}

func (s *fakeCustodyStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.secrets)
}

// ---- Ledger ----

type fakeLedger struct {
	mu          sync.Mutex
	balances    map[string]decimal.Decimal
	statuses    map[string]ports.TxStatus
	transfers   map[string]ports.TransferRequest
	moved       map[string]bool
	nextStatus  ports.TxStatus
	transferErr error
	delay       time.Duration
	seq         int
	// afterTransfer runs once a transfer is on the ledger.
	afterTransfer func(ref string)
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		balances:   make(map[string]decimal.Decimal),
		statuses:   make(map[string]ports.TxStatus),
		transfers:  make(map[string]ports.TransferRequest),
		moved:      make(map[string]bool),
		nextStatus: ports.TxStatusConfirmed,
	}
}

func (l *fakeLedger) Transfer(_ context.Context, req ports.TransferRequest) (string, error) {
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	l.mu.Lock()
	if l.transferErr != nil {
		l.mu.Unlock()
		return "", l.transferErr
	}
	if l.balances[req.From].LessThan(req.Amount) {
		l.mu.Unlock()
		return "", fmt.Errorf("insufficient balance at %s", req.From)
	}
	l.seq++
	ref := fmt.Sprintf("0xtx%04d", l.seq)
	l.transfers[ref] = req
	l.statuses[ref] = l.nextStatus
	if l.nextStatus != ports.TxStatusFailed {
		l.move(ref)
	}
	hook := l.afterTransfer
	l.mu.Unlock()

	if hook != nil {
		hook(ref)
	}
	return ref, nil
}

func (l *fakeLedger) move(ref string) {
	req := l.transfers[ref]
	l.balances[req.From] = l.balances[req.From].Sub(req.Amount)
	l.balances[req.To] = l.balances[req.To].Add(req.Amount)
	l.moved[ref] = true
}

// external records a transfer broadcast outside the service.
func (l *fakeLedger) external(from, to string, amount decimal.Decimal, status ports.TxStatus) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	ref := fmt.Sprintf("0xext%04d", l.seq)
	l.transfers[ref] = ports.TransferRequest{From: from, To: to, Amount: amount, Currency: "USDC"}
	l.statuses[ref] = status
	if status != ports.TxStatusFailed {
		l.move(ref)
	}
	return ref
}

// settle finalizes a pending transfer; failing one returns the funds.
func (l *fakeLedger) settle(ref string, status ports.TxStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statuses[ref] = status
	if status == ports.TxStatusFailed && l.moved[ref] {
		req := l.transfers[ref]
		l.balances[req.From] = l.balances[req.From].Add(req.Amount)
		l.balances[req.To] = l.balances[req.To].Sub(req.Amount)
		l.moved[ref] = false
	}
}

func (l *fakeLedger) GetBalance(_ context.Context, address, _ string) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[address], nil
}

func (l *fakeLedger) GetTransactionStatus(_ context.Context, ref string) (ports.TxStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.statuses[ref]
	if !ok {
		return ports.TxStatusPending, nil
	}
	return st, nil
}

func (l *fakeLedger) GetTransfer(_ context.Context, ref string) (*ports.TransferDetails, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	req, ok := l.transfers[ref]
	if !ok {
		return nil, errors.New("unknown transaction")
	}
	return &ports.TransferDetails{From: req.From, To: req.To, Amount: req.Amount, Currency: req.Currency}, nil
}

func (l *fakeLedger) balance(address string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[address]
}

func (l *fakeLedger) setBalance(address string, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[address] = amount
}

func (l *fakeLedger) setNextStatus(st ports.TxStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextStatus = st
}

func (l *fakeLedger) transfersFrom(address string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for ref, req := range l.transfers {
		if req.From == address && l.moved[ref] {
			n++
		}
	}
	return n
}

// ---- Small fakes ----

type fakeKeys struct {
	seq atomic.Int64
}

func (k *fakeKeys) NewKeypair() (string, string, error) {
	n := k.seq.Add(1)
	return fmt.Sprintf("0xescrow%04d", n), fmt.Sprintf("secret-%04d", n), nil
}

func (k *fakeKeys) ValidAddress(address string) bool {
	return strings.HasPrefix(address, "0x") && len(address) > 2
}

type fakeAddressLookup map[string]string

func (f fakeAddressLookup) GetAddress(_ context.Context, userID string) (string, error) {
	return f[userID], nil
}

type fakeIdempCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeIdempCache() *fakeIdempCache {
	return &fakeIdempCache{data: make(map[string][]byte)}
}

func (c *fakeIdempCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key], nil
}

func (c *fakeIdempCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *fakeIdempCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

func (c *fakeIdempCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
}

type fakeWalletCache struct {
	mu     sync.Mutex
	byID   map[string]*domain.EscrowWallet
	byBill map[string]*domain.EscrowWallet
}

func newFakeWalletCache() *fakeWalletCache {
	return &fakeWalletCache{byID: make(map[string]*domain.EscrowWallet), byBill: make(map[string]*domain.EscrowWallet)}
}

func (c *fakeWalletCache) Get(id string) (*domain.EscrowWallet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.byID[id]
	return w.Clone(), ok
}

func (c *fakeWalletCache) GetByBill(billID string) (*domain.EscrowWallet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.byBill[billID]
	return w.Clone(), ok
}

func (c *fakeWalletCache) Put(w *domain.EscrowWallet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[w.ID.String()] = w.Clone()
	c.byBill[w.BillID] = w.Clone()
}

func (c *fakeWalletCache) Invalidate(walletID, billID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byID, walletID)
	delete(c.byBill, billID)
}

// ---- Harness ----

const (
	restaurant = "0xrestaurant"
	startFunds = "1000"
)

type harness struct {
	wallets      *fakeWalletRepo
	splits       *fakeSplitRepo
	custodyStore *fakeCustodyStore
	ledger       *fakeLedger
	cache        *fakeWalletCache
	idemp        *fakeIdempCache
	keys         *fakeKeys

	sync       *SyncServiceImpl
	custody    *KeyCustodyServiceImpl
	reconciler *ReconciliationServiceImpl
	creation   *CreationServiceImpl
	payments   *PaymentServiceImpl
	roulette   *RouletteServiceImpl
	query      *QueryServiceImpl
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := newTestLogger()
	fast := retry.Policy{Attempts: 2, BaseDelay: time.Millisecond, Multiplier: 1}

	h := &harness{
		wallets:      newFakeWalletRepo(),
		splits:       newFakeSplitRepo(),
		custodyStore: newFakeCustodyStore(),
		ledger:       newFakeLedger(),
		cache:        newFakeWalletCache(),
		idemp:        newFakeIdempCache(),
		keys:         &fakeKeys{},
	}
	for _, user := range []string{"alice", "bob", "carol", "dave"} {
		h.ledger.setBalance(addressOf(user), d(startFunds))
	}

	addresses := fakeAddressLookup{"dave": addressOf("dave")}

	h.sync = NewSyncService(h.wallets, h.splits, fast, d("0.001"), log)
	h.custody = NewKeyCustodyService(h.custodyStore, fast, log)
	h.reconciler = NewReconciliationService(h.wallets, h.cache, h.ledger, h.sync, 10, log)
	h.creation = NewCreationService(h.wallets, h.cache, h.custody, h.sync, h.keys, addresses, d("0.01"), log)
	h.payments = NewPaymentService(h.wallets, h.cache, h.ledger, h.custody, h.sync, h.reconciler, h.keys, h.idemp,
		PaymentConfig{FundRefTTL: time.Hour, ReservationTTL: time.Minute, Confirmation: fast}, log)
	h.roulette = NewRouletteService(h.wallets, h.cache, h.sync, h.reconciler, log)
	h.query = NewQueryService(h.wallets, h.cache)
	return h
}

func addressOf(user string) string {
	return "0x" + user
}

func participant(user, owed string) ports.ParticipantInput {
	return ports.ParticipantInput{UserID: user, DisplayName: strings.ToUpper(user[:1]) + user[1:], PayoutAddress: addressOf(user), AmountOwed: d(owed)}
}

func (h *harness) createFair(t *testing.T, billID string) *domain.EscrowWallet {
	t.Helper()
	w, err := h.creation.CreateEscrowWallet(context.Background(), ports.CreateEscrowRequest{
		BillID:       billID,
		CreatorID:    "alice",
		TotalAmount:  d("100"),
		Currency:     "USDC",
		Mode:         domain.SplitModeFair,
		Participants: []ports.ParticipantInput{participant("alice", "50"), participant("bob", "50")},
	})
	require.NoError(t, err)
	return w
}

func (h *harness) createDegen(t *testing.T, billID string) *domain.EscrowWallet {
	t.Helper()
	w, err := h.creation.CreateEscrowWallet(context.Background(), ports.CreateEscrowRequest{
		BillID:      billID,
		CreatorID:   "alice",
		TotalAmount: d("30"),
		Currency:    "USDC",
		Mode:        domain.SplitModeDegen,
		Participants: []ports.ParticipantInput{
			participant("alice", "30"), participant("bob", "30"), participant("carol", "30"),
		},
	})
	require.NoError(t, err)
	return w
}

func (h *harness) fund(t *testing.T, walletID uuid.UUID, user, amount string) *ports.FundResult {
	t.Helper()
	res, err := h.payments.Fund(context.Background(), ports.FundRequest{WalletID: walletID, ParticipantID: user, Amount: d(amount)})
	require.NoError(t, err)
	return res
}
