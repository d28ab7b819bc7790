package ledger

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemStore keeps everything in process memory. It backs tests and local
// single-node runs; production uses the Postgres store in internal/db.
type MemStore struct {
	mu       sync.RWMutex
	accounts map[string]*accountRecord
	guilds   map[string]*guildRecord
	settings map[string]string
}

type accountRecord struct {
	mu   sync.Mutex
	acct Account
}

type guildRecord struct {
	mu    sync.Mutex
	guild Guild
}

func NewMemStore() *MemStore {
	return &MemStore{
		accounts: make(map[string]*accountRecord),
		guilds:   make(map[string]*guildRecord),
		settings: make(map[string]string),
	}
}

func cloneAccount(a *Account) *Account {
	c := *a
	if a.Loan != nil {
		l := *a.Loan
		c.Loan = &l
	}
	if a.Properties != nil {
		c.Properties = append([]OwnedProperty(nil), a.Properties...)
	}
	return &c
}

func cloneGuild(g *Guild) *Guild {
	c := *g
	if g.Members != nil {
		c.Members = append([]Member(nil), g.Members...)
	}
	if g.Wars != nil {
		c.Wars = append([]WarState(nil), g.Wars...)
	}
	if g.Alliances != nil {
		c.Alliances = append([]AllianceState(nil), g.Alliances...)
	}
	if g.Defense != nil {
		d := *g.Defense
		c.Defense = &d
	}
	return &c
}

func (s *MemStore) accountRec(id string) (*accountRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.accounts[id]
	return r, ok
}

func (s *MemStore) GetAccount(_ context.Context, id string) (*Account, error) {
	r, ok := s.accountRec(id)
	if !ok {
		return nil, ErrAccountNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneAccount(&r.acct), nil
}

func (s *MemStore) GetOrCreateAccount(_ context.Context, id string, startingCash int64) (*Account, error) {
	s.mu.Lock()
	r, ok := s.accounts[id]
	if !ok {
		r = &accountRecord{acct: *NewAccount(id, startingCash, time.Now().UTC())}
		s.accounts[id] = r
	}
	s.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneAccount(&r.acct), nil
}

func (s *MemStore) Mutate(ctx context.Context, id string, fn func(*Account) error) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, ok := s.accountRec(id)
	if !ok {
		return nil, ErrAccountNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	work := cloneAccount(&r.acct)
	if err := fn(work); err != nil {
		return nil, err
	}
	work.UpdatedAt = time.Now().UTC()
	r.acct = *work
	return cloneAccount(work), nil
}

func (s *MemStore) MutatePair(ctx context.Context, idA, idB string, fn func(a, b *Account) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ra, ok := s.accountRec(idA)
	if !ok {
		return ErrAccountNotFound
	}
	rb, ok := s.accountRec(idB)
	if !ok {
		return ErrAccountNotFound
	}

	// Lock in ID order so concurrent pairs cannot deadlock.
	first, second := ra, rb
	if strings.Compare(idA, idB) > 0 {
		first, second = rb, ra
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	wa := cloneAccount(&ra.acct)
	wb := cloneAccount(&rb.acct)
	if err := fn(wa, wb); err != nil {
		return err
	}
	now := time.Now().UTC()
	wa.UpdatedAt = now
	wb.UpdatedAt = now
	ra.acct = *wa
	rb.acct = *wb
	return nil
}

func (s *MemStore) ListAccounts(_ context.Context) ([]*Account, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)

	out := make([]*Account, 0, len(ids))
	for _, id := range ids {
		a, err := s.GetAccount(context.Background(), id)
		if err != nil {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *MemStore) guildRec(id string) (*guildRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.guilds[id]
	return r, ok
}

func (s *MemStore) GetGuild(_ context.Context, id string) (*Guild, error) {
	r, ok := s.guildRec(id)
	if !ok {
		return nil, ErrGuildNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneGuild(&r.guild), nil
}

func (s *MemStore) CreateGuild(_ context.Context, g *Guild) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.guilds[g.ID]; ok {
		return ErrGuildExists
	}
	for _, r := range s.guilds {
		if strings.EqualFold(r.guild.Name, g.Name) {
			return ErrGuildExists
		}
	}
	s.guilds[g.ID] = &guildRecord{guild: *cloneGuild(g)}
	return nil
}

func (s *MemStore) MutateGuild(ctx context.Context, id string, fn func(*Guild) error) (*Guild, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, ok := s.guildRec(id)
	if !ok {
		return nil, ErrGuildNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	work := cloneGuild(&r.guild)
	if err := fn(work); err != nil {
		return nil, err
	}
	work.UpdatedAt = time.Now().UTC()
	r.guild = *work
	return cloneGuild(work), nil
}

func (s *MemStore) MutateGuildPair(ctx context.Context, idA, idB string, fn func(a, b *Guild) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ra, ok := s.guildRec(idA)
	if !ok {
		return ErrGuildNotFound
	}
	rb, ok := s.guildRec(idB)
	if !ok {
		return ErrGuildNotFound
	}

	first, second := ra, rb
	if strings.Compare(idA, idB) > 0 {
		first, second = rb, ra
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	wa := cloneGuild(&ra.guild)
	wb := cloneGuild(&rb.guild)
	if err := fn(wa, wb); err != nil {
		return err
	}
	now := time.Now().UTC()
	wa.UpdatedAt = now
	wb.UpdatedAt = now
	ra.guild = *wa
	rb.guild = *wb
	return nil
}

func (s *MemStore) ListGuilds(_ context.Context) ([]*Guild, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.guilds))
	for id := range s.guilds {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)

	out := make([]*Guild, 0, len(ids))
	for _, id := range ids {
		g, err := s.GetGuild(context.Background(), id)
		if err != nil {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func (s *MemStore) DeleteGuild(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.guilds[id]; !ok {
		return ErrGuildNotFound
	}
	delete(s.guilds, id)
	return nil
}

func (s *MemStore) GetSetting(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.settings[key]
	return v, ok, nil
}

func (s *MemStore) SetSetting(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = value
	return nil
}

var _ Store = (*MemStore)(nil)
