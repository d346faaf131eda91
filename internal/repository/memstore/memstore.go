// Package memstore provides in-memory stores with the same semantics as the
// postgres repositories, for tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"property-market-backend/internal/models"
	"property-market-backend/internal/repository"
)

// DB holds the rows shared by the stores so cross-table queries agree
type DB struct {
	mu         sync.Mutex
	users      map[string]*models.User
	properties map[string]*models.Property
	messages   []*models.Message
}

// Users returns the user store
func (db *DB) Users() Users { return Users{db} }

// Properties returns the property store
func (db *DB) Properties() Properties { return Properties{db} }

// Messages returns the message store
func (db *DB) Messages() Messages { return Messages{db} }

// New creates an empty database
func New() *DB {
	return &DB{
		users:      make(map[string]*models.User),
		properties: make(map[string]*models.Property),
	}
}

// Users is an in-memory UserStore
type Users struct{ db *DB }

func (s Users) Create(_ context.Context, user *models.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	cp := *user
	s.db.users[user.ID] = &cp
	return nil
}

func (s Users) GetByID(_ context.Context, id string) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s Users) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s Users) UpdateProfile(_ context.Context, userID, name string, phone *string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.Name = name
	u.Phone = phone
	return nil
}

func (s Users) UpdatePushToken(_ context.Context, userID string, pushToken *string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.PushToken = pushToken
	return nil
}

// Properties is an in-memory PropertyStore
type Properties struct{ db *DB }

func (s Properties) Create(_ context.Context, p *models.Property) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.users[p.OwnerID]; !ok {
		return repository.ErrNotFound
	}
	cp := *p
	s.db.properties[p.ID] = &cp
	return nil
}

func (s Properties) GetByID(_ context.Context, id string) (*models.Property, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.get(id)
}

func (s Properties) get(id string) (*models.Property, error) {
	p, ok := s.db.properties[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	cp.Images = append([]string{}, p.Images...)
	if owner, ok := s.db.users[p.OwnerID]; ok {
		cp.Owner = &models.UserSummary{ID: owner.ID, Name: owner.Name, Email: owner.Email}
	}
	return &cp, nil
}

func (s Properties) List(_ context.Context, filter models.PropertyFilter) ([]*models.Property, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := make([]*models.Property, 0)
	for id, p := range s.db.properties {
		if filter.OwnerID != nil && p.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.Location != nil && !strings.Contains(strings.ToLower(p.Location), strings.ToLower(*filter.Location)) {
			continue
		}
		if filter.MinPrice != nil && p.Price < *filter.MinPrice {
			continue
		}
		if filter.MaxPrice != nil && p.Price > *filter.MaxPrice {
			continue
		}
		if filter.PropertyType != nil && p.PropertyType != *filter.PropertyType {
			continue
		}
		if filter.Bedrooms != nil && (p.Bedrooms == nil || *p.Bedrooms < *filter.Bedrooms) {
			continue
		}
		if filter.Bathrooms != nil && (p.Bathrooms == nil || *p.Bathrooms < *filter.Bathrooms) {
			continue
		}
		cp, _ := s.get(id)
		out = append(out, cp)
	}
	sortNewestFirst(out)
	return out, nil
}

func (s Properties) ListInvolving(_ context.Context, userID string) ([]*models.Property, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	involved := make(map[string]bool)
	for id, p := range s.db.properties {
		if p.OwnerID == userID {
			involved[id] = true
		}
	}
	for _, m := range s.db.messages {
		if m.SenderID == userID || m.ReceiverID == userID {
			involved[m.PropertyID] = true
		}
	}
	out := make([]*models.Property, 0, len(involved))
	for id := range involved {
		if p, err := s.get(id); err == nil {
			out = append(out, p)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s Properties) Update(_ context.Context, p *models.Property) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.properties[p.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *p
	cp.Owner = nil
	s.db.properties[p.ID] = &cp
	return nil
}

func (s Properties) AppendImage(_ context.Context, propertyID, imageURL string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.properties[propertyID]
	if !ok {
		return repository.ErrNotFound
	}
	p.Images = append(p.Images, imageURL)
	return nil
}

func (s Properties) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.properties[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.db.properties, id)
	kept := s.db.messages[:0]
	for _, m := range s.db.messages {
		if m.PropertyID != id {
			kept = append(kept, m)
		}
	}
	s.db.messages = kept
	return nil
}

// Messages is an in-memory MessageStore
type Messages struct{ db *DB }

func (s Messages) Create(_ context.Context, m *models.Message) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.properties[m.PropertyID]; !ok {
		return repository.ErrNotFound
	}
	cp := *m
	s.db.messages = append(s.db.messages, &cp)
	return nil
}

func (s Messages) ListForParticipant(_ context.Context, propertyID, userID string) ([]*models.Message, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := make([]*models.Message, 0)
	for _, m := range s.db.messages {
		if m.PropertyID == propertyID && (m.SenderID == userID || m.ReceiverID == userID) {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s Messages) LatestForUser(_ context.Context, userID string) ([]*models.Message, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	latest := make(map[string]*models.Message)
	for _, m := range s.db.messages {
		if m.SenderID != userID && m.ReceiverID != userID {
			continue
		}
		cur, ok := latest[m.PropertyID]
		if !ok || m.CreatedAt.After(cur.CreatedAt) || (m.CreatedAt.Equal(cur.CreatedAt) && m.ID > cur.ID) {
			latest[m.PropertyID] = m
		}
	}
	out := make([]*models.Message, 0, len(latest))
	for _, m := range latest {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (s Messages) UnreadCounts(_ context.Context, userID string) (map[string]int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	counts := make(map[string]int)
	for _, m := range s.db.messages {
		if m.ReceiverID == userID && m.ReadAt == nil {
			counts[m.PropertyID]++
		}
	}
	return counts, nil
}

func (s Messages) MarkRead(_ context.Context, propertyID, userID string, at time.Time) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for _, m := range s.db.messages {
		if m.PropertyID == propertyID && m.ReceiverID == userID && m.ReadAt == nil {
			t := at
			m.ReadAt = &t
			n++
		}
	}
	return n, nil
}

// MessageCount returns the number of stored messages
func (db *DB) MessageCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.messages)
}

func sortNewestFirst(ps []*models.Property) {
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].CreatedAt.After(ps[j].CreatedAt) })
}
