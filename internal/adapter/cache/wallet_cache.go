// Package cache holds the in-process wallet snapshot cache.
package cache

import (
	"container/list"
	"sync"
	"time"

	"split-escrow/internal/core/domain"
	"split-escrow/internal/core/ports"
)

const (
	defaultCapacity = 1000
	defaultTTL      = 30 * time.Second
)

type walletEntry struct {
	wallet  *domain.EscrowWallet
	expires time.Time
}

// WalletCache is a bounded LRU of wallet snapshots whose entries expire
// after a fixed TTL. Every read and write copies the wallet.
type WalletCache struct {
	mu      sync.Mutex
	cap     int
	ttl     time.Duration
	now     func() time.Time
	entries map[string]*list.Element // wallet id -> entry
	byBill  map[string]string        // bill id -> wallet id, live wallets only
	order   *list.List
}

var _ ports.WalletCache = (*WalletCache)(nil)

// NewWalletCache creates a cache holding at most capacity wallets for ttl.
func NewWalletCache(capacity int, ttl time.Duration) *WalletCache {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &WalletCache{
		cap:     capacity,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*list.Element),
		byBill:  make(map[string]string),
		order:   list.New(),
	}
}

// Get returns a copy of the cached wallet.
func (c *WalletCache) Get(id string) (*domain.EscrowWallet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := c.getLocked(id)
	if w == nil {
		return nil, false
	}
	return w.Clone(), true
}

// GetByBill returns a copy of the bill's live wallet.
func (c *WalletCache) GetByBill(billID string) (*domain.EscrowWallet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, ok := c.byBill[billID]
	if !ok {
		return nil, false
	}
	w := c.getLocked(id)
	if w == nil {
		return nil, false
	}
	return w.Clone(), true
}

// Put stores a copy of w. A snapshot older than the cached one is ignored.
func (c *WalletCache) Put(w *domain.EscrowWallet) {
	if w == nil {
		return
	}
	id := w.ID.String()
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[id]; ok {
		ent := el.Value.(*walletEntry)
		if ent.wallet.Version > w.Version {
			return
		}
		c.unindexLocked(ent.wallet)
		ent.wallet = w.Clone()
		ent.expires = now.Add(c.ttl)
		c.order.MoveToFront(el)
		c.indexLocked(ent.wallet)
		return
	}

	ent := &walletEntry{wallet: w.Clone(), expires: now.Add(c.ttl)}
	c.entries[id] = c.order.PushFront(ent)
	c.indexLocked(ent.wallet)

	for len(c.entries) > c.cap {
		back := c.order.Back()
		if back == nil {
			break
		}
		c.removeLocked(back)
	}
}

// Invalidate drops the wallet and its bill index entry.
func (c *WalletCache) Invalidate(walletID, billID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[walletID]; ok {
		c.removeLocked(el)
	}
	if billID != "" && c.byBill[billID] == walletID {
		delete(c.byBill, billID)
	}
}

// Len reports the number of cached wallets, expired ones included.
func (c *WalletCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *WalletCache) getLocked(id string) *domain.EscrowWallet {
	el, ok := c.entries[id]
	if !ok {
		return nil
	}
	ent := el.Value.(*walletEntry)
	if !ent.expires.After(c.now()) {
		c.removeLocked(el)
		return nil
	}
	c.order.MoveToFront(el)
	return ent.wallet
}

func (c *WalletCache) indexLocked(w *domain.EscrowWallet) {
	if w.Status != domain.WalletStatusCancelled {
		c.byBill[w.BillID] = w.ID.String()
	}
}

func (c *WalletCache) unindexLocked(w *domain.EscrowWallet) {
	if c.byBill[w.BillID] == w.ID.String() {
		delete(c.byBill, w.BillID)
	}
}

func (c *WalletCache) removeLocked(el *list.Element) {
	ent := el.Value.(*walletEntry)
	c.unindexLocked(ent.wallet)
	delete(c.entries, ent.wallet.ID.String())
	c.order.Remove(el)
}
