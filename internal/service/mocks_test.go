package service

import (
	"context"
	"sort"
	"sync"

	"care-match/internal/domain"
	"care-match/internal/repository"
)

type mockProfileRepo struct {
	mu              sync.Mutex
	profiles        map[string]domain.PersonalityProfile
	contexts        map[string]domain.CareContext
	displays        map[string]domain.CaregiverDisplay
	order           []string
	candidatesCalls int
	err             error
	displayErr      error
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{
		profiles: make(map[string]domain.PersonalityProfile),
		contexts: make(map[string]domain.CareContext),
		displays: make(map[string]domain.CaregiverDisplay),
	}
}

func ownerKey(ownerType domain.OwnerType, ownerID string) string {
	return string(ownerType) + "|" + ownerID
}

func (m *mockProfileRepo) addPatient(p *domain.PersonalityProfile, c *domain.CareContext) {
	if p != nil {
		m.profiles[ownerKey(domain.OwnerPatient, p.OwnerID)] = *p
	}
	if c != nil {
		m.contexts[ownerKey(domain.OwnerPatient, c.OwnerID)] = *c
	}
}

func (m *mockProfileRepo) addCaregiver(id string, p *domain.PersonalityProfile, c *domain.CareContext) {
	if _, ok := m.displays[id]; !ok {
		m.order = append(m.order, id)
	}
	m.displays[id] = domain.CaregiverDisplay{CaregiverID: id, DisplayName: "Caregiver " + id, HourlyRate: 20, Rating: 4.5}
	if p != nil {
		p.OwnerType, p.OwnerID = domain.OwnerCaregiver, id
		m.profiles[ownerKey(domain.OwnerCaregiver, id)] = *p
	}
	if c != nil {
		c.OwnerType, c.OwnerID = domain.OwnerCaregiver, id
		m.contexts[ownerKey(domain.OwnerCaregiver, id)] = *c
	}
}

func (m *mockProfileRepo) FetchProfile(_ context.Context, ownerType domain.OwnerType, ownerID string) (domain.PersonalityProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.PersonalityProfile{}, m.err
	}
	p, ok := m.profiles[ownerKey(ownerType, ownerID)]
	if !ok {
		return domain.PersonalityProfile{}, repository.ErrNotFound
	}
	return p, nil
}

func (m *mockProfileRepo) FetchCareContext(_ context.Context, ownerType domain.OwnerType, ownerID string) (domain.CareContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.CareContext{}, m.err
	}
	c, ok := m.contexts[ownerKey(ownerType, ownerID)]
	if !ok {
		return domain.CareContext{}, repository.ErrNotFound
	}
	return c, nil
}

func (m *mockProfileRepo) FetchCandidates(_ context.Context, filter repository.CandidateFilter) ([]domain.CandidateCaregiver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candidatesCalls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.CandidateCaregiver, 0, len(m.order))
	for _, id := range m.order {
		cand := domain.CandidateCaregiver{CaregiverID: id, Display: m.displays[id]}
		if p, ok := m.profiles[ownerKey(domain.OwnerCaregiver, id)]; ok {
			cand.Profile = &p
		}
		if c, ok := m.contexts[ownerKey(domain.OwnerCaregiver, id)]; ok {
			cand.Context = &c
		}
		out = append(out, cand)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (m *mockProfileRepo) FetchCaregiverDisplay(_ context.Context, caregiverID string) (domain.CaregiverDisplay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.displayErr != nil {
		return domain.CaregiverDisplay{}, m.displayErr
	}
	d, ok := m.displays[caregiverID]
	if !ok {
		return domain.CaregiverDisplay{}, repository.ErrNotFound
	}
	return d, nil
}

func (m *mockProfileRepo) UpsertProfile(_ context.Context, p domain.PersonalityProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.profiles[ownerKey(p.OwnerType, p.OwnerID)] = p
	return nil
}

func (m *mockProfileRepo) UpsertCareContext(_ context.Context, c domain.CareContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contexts[ownerKey(c.OwnerType, c.OwnerID)] = c
	return nil
}

func (m *mockProfileRepo) UpsertCaregiverDisplay(_ context.Context, d domain.CaregiverDisplay) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.displays[d.CaregiverID]; !ok {
		m.order = append(m.order, d.CaregiverID)
	}
	m.displays[d.CaregiverID] = d
	return nil
}

type mockMatchRepo struct {
	mu      sync.Mutex
	records map[string]domain.MatchRecord
	history map[string][]domain.MatchHistoryEntry
	// raceOnCreate simula otra escritura que gano el indice unico.
	raceOnCreate bool
}

func newMockMatchRepo() *mockMatchRepo {
	return &mockMatchRepo{
		records: make(map[string]domain.MatchRecord),
		history: make(map[string][]domain.MatchHistoryEntry),
	}
}

func (m *mockMatchRepo) CreateActive(_ context.Context, rec domain.MatchRecord, entry domain.MatchHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.raceOnCreate {
		return repository.ErrActiveMatchExists
	}
	for _, r := range m.records {
		if r.PatientID == rec.PatientID && r.CaregiverID == rec.CaregiverID && r.Status == domain.MatchActive {
			return repository.ErrActiveMatchExists
		}
	}
	m.records[rec.ID] = rec
	m.history[rec.ID] = append(m.history[rec.ID], entry)
	return nil
}

func (m *mockMatchRepo) Update(_ context.Context, id string, fn repository.MatchMutation) (domain.MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return domain.MatchRecord{}, repository.ErrNotFound
	}
	entry, err := fn(&rec)
	if err != nil {
		return domain.MatchRecord{}, err
	}
	m.records[id] = rec
	m.history[id] = append(m.history[id], entry)
	return rec, nil
}

func (m *mockMatchRepo) Get(_ context.Context, id string) (domain.MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return domain.MatchRecord{}, repository.ErrNotFound
	}
	return rec, nil
}

func (m *mockMatchRepo) FindActive(_ context.Context, patientID, caregiverID string) (domain.MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.PatientID == patientID && r.CaregiverID == caregiverID && r.Status == domain.MatchActive {
			return r, nil
		}
	}
	return domain.MatchRecord{}, repository.ErrNotFound
}

func (m *mockMatchRepo) Query(_ context.Context, filter repository.MatchFilter) ([]domain.MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.MatchRecord
	for _, r := range m.records {
		if filter.PatientID != "" && r.PatientID != filter.PatientID {
			continue
		}
		if filter.CreatedFrom != nil && r.CreatedAt.Before(*filter.CreatedFrom) {
			continue
		}
		if filter.CreatedTo != nil && r.CreatedAt.After(*filter.CreatedTo) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockMatchRepo) ListHistory(_ context.Context, matchID string) ([]domain.MatchHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.history[matchID]
	out := make([]domain.MatchHistoryEntry, len(entries))
	copy(out, entries)
	return out, nil
}

type recordingInvalidator struct {
	mu       sync.Mutex
	patients []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, patientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patients = append(r.patients, patientID)
}
