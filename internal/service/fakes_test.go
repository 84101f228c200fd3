package service_test

import (
	"context"
	"sort"
	"sync"

	"reports/internal/domain"
)

// memStore is an in-memory domain.ReportStore that records calls.
type memStore struct {
	mu        sync.Mutex
	reports   map[string]domain.Report
	versions  []domain.Version
	saveCalls int
	saved     []domain.ContentTree
	failSave  error
}

func newMemStore() *memStore {
	return &memStore{reports: map[string]domain.Report{}}
}

func (m *memStore) LoadReport(_ context.Context, id string) (*domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, domain.ErrReportNotFound
	}
	r.Tree = r.Tree.Clone()
	return &r, nil
}

func (m *memStore) SaveReport(_ context.Context, r *domain.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.failSave != nil {
		return m.failSave
	}
	cp := *r
	cp.Tree = r.Tree.Clone()
	m.reports[r.ID] = cp
	m.saved = append(m.saved, cp.Tree)
	return nil
}

func (m *memStore) ListReports(_ context.Context) ([]domain.ReportSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.ReportSummary{}
	for _, r := range m.reports {
		out = append(out, domain.ReportSummary{ID: r.ID, Title: r.Title, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (m *memStore) DeleteReport(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reports[id]; !ok {
		return domain.ErrReportNotFound
	}
	delete(m.reports, id)
	kept := m.versions[:0]
	for _, v := range m.versions {
		if v.ReportID != id {
			kept = append(kept, v)
		}
	}
	m.versions = kept
	return nil
}

func (m *memStore) AppendVersion(_ context.Context, v *domain.Version) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *v
	cp.Tree = v.Tree.Clone()
	m.versions = append(m.versions, cp)
	return nil
}

func (m *memStore) ListVersions(_ context.Context, reportID string) ([]domain.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Version
	for _, v := range m.versions {
		if v.ReportID == reportID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *memStore) GetVersion(_ context.Context, id string) (*domain.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.versions {
		if v.ID == id {
			cp := v
			cp.Tree = v.Tree.Clone()
			return &cp, nil
		}
	}
	return nil, domain.ErrVersionNotFound
}

func (m *memStore) PruneVersions(_ context.Context, reportID string, keep int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	unlabeled := 0
	for _, v := range m.versions {
		if v.ReportID == reportID && v.Label == "" {
			unlabeled++
		}
	}
	drop := unlabeled - keep
	kept := m.versions[:0]
	for _, v := range m.versions {
		if drop > 0 && v.ReportID == reportID && v.Label == "" {
			drop--
			continue
		}
		kept = append(kept, v)
	}
	m.versions = kept
	return nil
}

func (m *memStore) saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveCalls
}

func (m *memStore) lastSaved() domain.ContentTree {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved[len(m.saved)-1]
}

func (m *memStore) setFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSave = err
}

func (m *memStore) put(r domain.Report) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[r.ID] = r
}

// memSettings is an in-memory domain.SettingsStore.
type memSettings struct {
	mu   sync.Mutex
	vals map[string]string
}

func (m *memSettings) GetSetting(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vals[key]
	return v, ok, nil
}

func (m *memSettings) SetSetting(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.vals == nil {
		m.vals = map[string]string{}
	}
	m.vals[key] = value
	return nil
}
