package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"split-escrow/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWallet(billID string) *domain.EscrowWallet {
	return &domain.EscrowWallet{
		ID:          uuid.New(),
		BillID:      billID,
		CreatorID:   "alice",
		Mode:        domain.SplitModeFair,
		TotalAmount: decimal.NewFromInt(100),
		Currency:    "USDC",
		Status:      domain.WalletStatusActive,
		Participants: []domain.Participant{
			{UserID: "alice", AmountOwed: decimal.NewFromInt(50), Status: domain.ParticipantStatusPending},
			{UserID: "bob", AmountOwed: decimal.NewFromInt(50), Status: domain.ParticipantStatusPending},
		},
		Version: 1,
	}
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time      { return c.t }
func (c *clock) add(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache(capacity int, ttl time.Duration) (*WalletCache, *clock) {
	clk := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewWalletCache(capacity, ttl)
	c.now = clk.now
	return c, clk
}

func TestWalletCache_PutAndGet(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)
	w := testWallet("bill-1")
	c.Put(w)

	got, ok := c.Get(w.ID.String())
	require.True(t, ok)
	assert.Equal(t, w.ID, got.ID)

	byBill, ok := c.GetByBill("bill-1")
	require.True(t, ok)
	assert.Equal(t, w.ID, byBill.ID)

	_, ok = c.Get(uuid.NewString())
	assert.False(t, ok)
	_, ok = c.GetByBill("bill-none")
	assert.False(t, ok)
}

func TestWalletCache_HandsOutCopies(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)
	w := testWallet("bill-copy")
	c.Put(w)

	w.Status = domain.WalletStatusLocked
	got, _ := c.Get(w.ID.String())
	assert.Equal(t, domain.WalletStatusActive, got.Status, "caller mutation after Put does not leak in")

	got.Participants[0].AmountPaid = decimal.NewFromInt(50)
	again, _ := c.Get(w.ID.String())
	assert.True(t, again.Participants[0].AmountPaid.IsZero(), "reader mutation does not leak back")
}

func TestWalletCache_ExpiresAfterTTL(t *testing.T) {
	c, clk := newTestCache(10, 30*time.Second)
	w := testWallet("bill-ttl")
	c.Put(w)

	clk.add(29 * time.Second)
	_, ok := c.Get(w.ID.String())
	assert.True(t, ok)

	clk.add(time.Second)
	_, ok = c.Get(w.ID.String())
	assert.False(t, ok)
	_, ok = c.GetByBill("bill-ttl")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestWalletCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)
	a, b, d := testWallet("bill-a"), testWallet("bill-b"), testWallet("bill-d")

	c.Put(a)
	c.Put(b)
	_, _ = c.Get(a.ID.String()) // a is now most recent
	c.Put(d)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(b.ID.String())
	assert.False(t, ok, "b was least recently used")
	_, ok = c.GetByBill("bill-b")
	assert.False(t, ok)
	_, ok = c.Get(a.ID.String())
	assert.True(t, ok)
}

func TestWalletCache_Invalidate(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)
	w := testWallet("bill-inv")
	c.Put(w)

	c.Invalidate(w.ID.String(), w.BillID)

	_, ok := c.Get(w.ID.String())
	assert.False(t, ok)
	_, ok = c.GetByBill(w.BillID)
	assert.False(t, ok)

	c.Invalidate(uuid.NewString(), "bill-unknown")
}

func TestWalletCache_IgnoresStaleSnapshot(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)
	w := testWallet("bill-ver")
	w.Version = 3
	c.Put(w)

	stale := w.Clone()
	stale.Version = 2
	stale.Status = domain.WalletStatusActive
	w.Status = domain.WalletStatusLocked
	c.Put(w)
	c.Put(stale)

	got, _ := c.Get(w.ID.String())
	assert.Equal(t, domain.WalletStatusLocked, got.Status)
}

func TestWalletCache_CancelledWalletLeavesBillIndex(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)
	w := testWallet("bill-cancel")
	c.Put(w)

	cancelled := w.Clone()
	cancelled.Version = 2
	cancelled.Status = domain.WalletStatusCancelled
	c.Put(cancelled)

	_, ok := c.GetByBill("bill-cancel")
	assert.False(t, ok)
	got, ok := c.Get(w.ID.String())
	require.True(t, ok)
	assert.Equal(t, domain.WalletStatusCancelled, got.Status)

	replacement := testWallet("bill-cancel")
	c.Put(replacement)
	got, ok = c.GetByBill("bill-cancel")
	require.True(t, ok)
	assert.Equal(t, replacement.ID, got.ID)

	// dropping the old wallet keeps the replacement's index
	c.Invalidate(w.ID.String(), "bill-cancel")
	_, ok = c.GetByBill("bill-cancel")
	assert.True(t, ok)
}

func TestWalletCache_Defaults(t *testing.T) {
	c := NewWalletCache(0, 0)
	assert.Equal(t, defaultCapacity, c.cap)
	assert.Equal(t, defaultTTL, c.ttl)
}

func TestWalletCache_ConcurrentAccess(t *testing.T) {
	c := NewWalletCache(50, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := testWallet(fmt.Sprintf("bill-%d", i))
			for j := 0; j < 50; j++ {
				c.Put(w)
				_, _ = c.Get(w.ID.String())
				_, _ = c.GetByBill(w.BillID)
				if j%10 == 0 {
					c.Invalidate(w.ID.String(), w.BillID)
				}
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 50)
}
