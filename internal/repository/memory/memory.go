// Package memory keeps player documents in process memory behind the same
// transaction protocol as the Postgres repository: reads record a version,
// writes are staged, and commit fails with repository.ErrConflict if any
// document read by the transaction changed in the meantime.
package memory

import (
	"context"
	"maps"
	"sync"

	"UD_daily_rewards/internal/model"
	"UD_daily_rewards/internal/repository"
)

type player struct {
	version uint64
	account *model.UserAccount
	mission *model.DailyMission
}

type Store struct {
	mu            sync.Mutex
	players       map[int64]*player
	maxTxAttempts int
}

func New(maxTxAttempts int) *Store {
	if maxTxAttempts <= 0 {
		maxTxAttempts = repository.DefaultMaxTxAttempts
	}
	return &Store{
		players:       make(map[int64]*player),
		maxTxAttempts: maxTxAttempts,
	}
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) RunTransaction(ctx context.Context, fn func(tx repository.PlayerTx) error) error {
	return repository.Retry(ctx, "memory", s.maxTxAttempts, func() error {
		tx := &transaction{store: s, reads: make(map[int64]uint64)}
		if err := fn(tx); err != nil {
			return err
		}
		return s.commit(tx)
	})
}

// Account returns a copy of the stored account, or nil.
func (s *Store) Account(userID int64) *model.UserAccount {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.players[userID]; ok {
		return copyAccount(p.account)
	}
	return nil
}

// Mission returns a copy of the stored daily_login mission, or nil.
func (s *Store) Mission(userID int64) *model.DailyMission {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.players[userID]; ok {
		return copyMission(p.mission)
	}
	return nil
}

// PutAccount overwrites the account outside any transaction.
func (s *Store) PutAccount(account *model.UserAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.entry(account.UserID)
	p.account = copyAccount(account)
	p.version++
}

// PutMission overwrites the mission outside any transaction.
func (s *Store) PutMission(mission *model.DailyMission) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.entry(mission.UserID)
	p.mission = copyMission(mission)
	p.version++
}

func (s *Store) entry(userID int64) *player {
	p, ok := s.players[userID]
	if !ok {
		p = &player{}
		s.players[userID] = p
	}
	return p
}

func (s *Store) commit(tx *transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for userID, version := range tx.reads {
		var current uint64
		if p, ok := s.players[userID]; ok {
			current = p.version
		}
		if current != version {
			return repository.ErrConflict
		}
	}

	// writes go to copies first so a failing write leaves nothing behind
	staged := make(map[int64]*player)
	for _, w := range tx.writes {
		p, ok := staged[w.userID]
		if !ok {
			p = &player{}
			if current, exists := s.players[w.userID]; exists {
				p.version = current.version
				p.account = copyAccount(current.account)
				p.mission = copyMission(current.mission)
			}
			staged[w.userID] = p
		}
		if err := w.apply(p); err != nil {
			return err
		}
	}
	for userID, p := range staged {
		p.version++
		s.players[userID] = p
	}

	return nil
}

type write struct {
	userID int64
	apply  func(p *player) error
}

type transaction struct {
	store  *Store
	reads  map[int64]uint64
	writes []write
}

func (t *transaction) GetPlayer(ctx context.Context, userID int64) (*model.UserAccount, *model.DailyMission, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	p, ok := t.store.players[userID]
	if !ok {
		t.reads[userID] = 0
		return nil, nil, nil
	}
	t.reads[userID] = p.version
	return copyAccount(p.account), copyMission(p.mission), nil
}

func (t *transaction) CreateAccount(_ context.Context, account *model.UserAccount) error {
	staged := copyAccount(account)
	t.stage(account.UserID, func(p *player) error {
		if p.account == nil {
			p.account = copyAccount(staged)
		}
		return nil
	})
	return nil
}

func (t *transaction) IncrementEconomy(_ context.Context, userID int64, coins, gems int64) error {
	t.stage(userID, func(p *player) error {
		if p.account == nil {
			return repository.ErrNotFound
		}
		p.account.Economy.Coins += coins
		p.account.Economy.Gems += gems
		return nil
	})
	return nil
}

func (t *transaction) SaveDailyMission(_ context.Context, mission *model.DailyMission) error {
	staged := copyMission(mission)
	t.stage(mission.UserID, func(p *player) error {
		p.mission = copyMission(staged)
		return nil
	})
	return nil
}

func (t *transaction) SetVip(_ context.Context, userID int64, vip model.VipStatus) error {
	staged := copyVip(vip)
	t.stage(userID, func(p *player) error {
		if p.account == nil {
			return repository.ErrNotFound
		}
		p.account.Vip = copyVip(staged)
		return nil
	})
	return nil
}

func (t *transaction) stage(userID int64, apply func(p *player) error) {
	t.writes = append(t.writes, write{userID: userID, apply: apply})
}

func copyAccount(a *model.UserAccount) *model.UserAccount {
	if a == nil {
		return nil
	}
	c := *a
	c.Vip = copyVip(a.Vip)
	return &c
}

func copyVip(v model.VipStatus) model.VipStatus {
	if v.ExpiresAt != nil {
		expiresAt := *v.ExpiresAt
		v.ExpiresAt = &expiresAt
	}
	return v
}

func copyMission(m *model.DailyMission) *model.DailyMission {
	if m == nil {
		return nil
	}
	c := *m
	c.Instances = maps.Clone(m.Instances)
	if c.Instances == nil {
		c.Instances = make(map[string]model.DayClaimState)
	}
	return &c
}
