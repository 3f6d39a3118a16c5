package service

import (
	"bytes"
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"claimwatch/internal/domain"
	"claimwatch/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

// memState is the shared backing data for the in-memory stores.
type memState struct {
	mu sync.Mutex

	claims      map[uuid.UUID]*domain.Claim
	evidence    []domain.EvidenceSnippet
	media       map[uuid.UUID]domain.MediaVariant
	mediaLinks  map[uuid.UUID]map[uuid.UUID]bool // claimID -> mediaIDs
	sources     map[string]domain.Source
	sourceLinks map[string]map[uuid.UUID]bool // sourceID -> claimIDs
	events      []domain.Event
	progress    map[string]domain.AgentProgress
	nextEventID int64

	// Error injection for failure-path tests.
	claimGetErr    error
	trendCountsErr error
	progressErr    error
}

func newMemState() *memState {
	return &memState{
		claims:      make(map[uuid.UUID]*domain.Claim),
		media:       make(map[uuid.UUID]domain.MediaVariant),
		mediaLinks:  make(map[uuid.UUID]map[uuid.UUID]bool),
		sources:     make(map[string]domain.Source),
		sourceLinks: make(map[string]map[uuid.UUID]bool),
		progress:    make(map[string]domain.AgentProgress),
	}
}

// memDB implements domain.DB over memState. InTx is a passthrough: the
// in-memory stores have no transactional semantics, which is fine for
// exercising service logic.
type memDB struct {
	state *memState
	repos *domain.Repos
}

func newMemDB() *memDB {
	state := newMemState()
	return &memDB{
		state: state,
		repos: &domain.Repos{
			Claims:   &memClaimStore{state},
			Evidence: &memEvidenceStore{state},
			Media:    &memMediaStore{state},
			Sources:  &memSourceStore{state},
			Events:   &memEventStore{state},
			Progress: &memProgressStore{state},
		},
	}
}

func (d *memDB) Repos() *domain.Repos { return d.repos }

func (d *memDB) InTx(ctx context.Context, fn func(r *domain.Repos) error) error {
	return fn(d.repos)
}

func (d *memDB) addClaim(c *domain.Claim) {
	d.state.mu.Lock()
	defer d.state.mu.Unlock()
	claim := *c
	d.state.claims[claim.ID] = &claim
}

func (d *memDB) getClaim(id uuid.UUID) domain.Claim {
	d.state.mu.Lock()
	defer d.state.mu.Unlock()
	return *d.state.claims[id]
}

func (d *memDB) eventsOfType(et domain.EventType) []domain.Event {
	d.state.mu.Lock()
	defer d.state.mu.Unlock()
	var out []domain.Event
	for _, e := range d.state.events {
		if e.EventType == et {
			out = append(out, e)
		}
	}
	return out
}

type memClaimStore struct{ s *memState }

func (m *memClaimStore) Create(ctx context.Context, c *domain.Claim) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	claim := *c
	m.s.claims[claim.ID] = &claim
	return nil
}

func (m *memClaimStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Claim, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.claimGetErr != nil {
		return nil, m.s.claimGetErr
	}
	c, ok := m.s.claims[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	claim := *c
	return &claim, nil
}

func (m *memClaimStore) FindNearest(ctx context.Context, embedding []float32, k int) ([]domain.ClaimMatch, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var matches []domain.ClaimMatch
	for _, c := range m.s.claims {
		matches = append(matches, domain.ClaimMatch{
			Claim: *c,
			Score: cosine(embedding, c.Embedding),
		})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (m *memClaimStore) RecordMention(ctx context.Context, id uuid.UUID, sourceType string, seenAt time.Time) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c, ok := m.s.claims[id]
	if !ok {
		return store.ErrNotFound
	}
	c.MentionCount++
	c.LastSeenTS = seenAt
	found := false
	for _, st := range c.SourceTypes {
		if st == sourceType {
			found = true
			break
		}
	}
	if !found {
		c.SourceTypes = append(c.SourceTypes, sourceType)
	}
	return nil
}

func (m *memClaimStore) ApplyEvidence(ctx context.Context, id uuid.UUID, confidence float64, supportDelta, contradictDelta int) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c, ok := m.s.claims[id]
	if !ok {
		return store.ErrNotFound
	}
	c.Confidence = confidence
	c.SupportCount += supportDelta
	c.ContradictCount += contradictDelta
	return nil
}

func (m *memClaimStore) UpdateConfidence(ctx context.Context, id uuid.UUID, confidence float64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c, ok := m.s.claims[id]
	if !ok {
		return store.ErrNotFound
	}
	c.Confidence = confidence
	return nil
}

func (m *memClaimStore) UpdateDerived(ctx context.Context, id uuid.UUID, d domain.DerivedMetrics) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c, ok := m.s.claims[id]
	if !ok {
		return store.ErrNotFound
	}
	c.TrendScore = d.TrendScore
	c.ContradictionRatio = d.ContradictionRatio
	c.MemeVariantCount = d.MemeVariantCount
	c.VolatilityScore = d.VolatilityScore
	c.AlertLevel = d.AlertLevel
	ts := d.UpdatedAt
	c.LastAgentUpdateTS = &ts
	return nil
}

func (m *memClaimStore) MarkDisputed(ctx context.Context, id uuid.UUID) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c, ok := m.s.claims[id]
	if !ok {
		return store.ErrNotFound
	}
	if c.Status == domain.StatusUnverified {
		c.Status = domain.StatusDisputed
	}
	return nil
}

func (m *memClaimStore) ScrollStale(ctx context.Context, cutoff time.Time, afterID uuid.UUID, limit int) ([]domain.Claim, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var stale []domain.Claim
	for _, c := range m.s.claims {
		if c.LastSeenTS.Before(cutoff) && bytes.Compare(c.ID[:], afterID[:]) > 0 {
			stale = append(stale, *c)
		}
	}
	sort.Slice(stale, func(i, j int) bool {
		return bytes.Compare(stale[i].ID[:], stale[j].ID[:]) < 0
	})
	if len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

type memEvidenceStore struct{ s *memState }

func (m *memEvidenceStore) Create(ctx context.Context, e *domain.EvidenceSnippet) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	m.s.evidence = append(m.s.evidence, *e)
	return nil
}

func (m *memEvidenceStore) ScrollByClaim(ctx context.Context, claimID uuid.UUID, afterID uuid.UUID, limit int) ([]domain.EvidenceSnippet, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var page []domain.EvidenceSnippet
	for _, e := range m.s.evidence {
		if e.ClaimID == claimID && bytes.Compare(e.ID[:], afterID[:]) > 0 {
			page = append(page, e)
		}
	}
	sort.Slice(page, func(i, j int) bool {
		return bytes.Compare(page[i].ID[:], page[j].ID[:]) < 0
	})
	if len(page) > limit {
		page = page[:limit]
	}
	return page, nil
}

func (m *memEvidenceStore) SetStance(ctx context.Context, id uuid.UUID, stance domain.Stance) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for i := range m.s.evidence {
		if m.s.evidence[i].ID == id {
			m.s.evidence[i].Stance = stance
		}
	}
	return nil
}

type memMediaStore struct{ s *memState }

func (m *memMediaStore) Create(ctx context.Context, v *domain.MediaVariant) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.media[v.ID] = *v
	return nil
}

func (m *memMediaStore) LinkClaim(ctx context.Context, mediaID uuid.UUID, claimID uuid.UUID) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.mediaLinks[claimID] == nil {
		m.s.mediaLinks[claimID] = make(map[uuid.UUID]bool)
	}
	m.s.mediaLinks[claimID][mediaID] = true
	return nil
}

func (m *memMediaStore) RefsByClaim(ctx context.Context, claimID uuid.UUID) ([]domain.MediaRef, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var refs []domain.MediaRef
	for mediaID := range m.s.mediaLinks[claimID] {
		ref := domain.MediaRef{ID: mediaID.String()}
		if v, ok := m.s.media[mediaID]; ok {
			ref.Phash = v.Phash
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

type memSourceStore struct{ s *memState }

func (m *memSourceStore) Upsert(ctx context.Context, src *domain.Source) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, exists := m.s.sources[src.SourceID]; !exists {
		m.s.sources[src.SourceID] = *src
	}
	return nil
}

func (m *memSourceStore) ListIDsSince(ctx context.Context, since *time.Time) ([]string, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var list []domain.Source
	for _, src := range m.s.sources {
		if since == nil || src.Timestamp.After(*since) {
			list = append(list, src)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Timestamp.Before(list[j].Timestamp) })
	ids := make([]string, 0, len(list))
	for _, src := range list {
		ids = append(ids, src.SourceID)
	}
	return ids, nil
}

func (m *memSourceStore) LinkClaim(ctx context.Context, sourceID string, claimID uuid.UUID) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.sourceLinks[sourceID] == nil {
		m.s.sourceLinks[sourceID] = make(map[uuid.UUID]bool)
	}
	m.s.sourceLinks[sourceID][claimID] = true
	return nil
}

func (m *memSourceStore) ClaimIDsForSources(ctx context.Context, sourceIDs []string) ([]uuid.UUID, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, sid := range sourceIDs {
		for cid := range m.s.sourceLinks[sid] {
			if !seen[cid] {
				seen[cid] = true
				ids = append(ids, cid)
			}
		}
	}
	return ids, nil
}

func (m *memSourceStore) AllLinkedClaimIDs(ctx context.Context) ([]uuid.UUID, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, claims := range m.s.sourceLinks {
		for cid := range claims {
			if !seen[cid] {
				seen[cid] = true
				ids = append(ids, cid)
			}
		}
	}
	return ids, nil
}

func (m *memSourceStore) TrendCounts(ctx context.Context, claimIDs []uuid.UUID, since time.Time) (map[uuid.UUID]int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.trendCountsErr != nil {
		return nil, m.s.trendCountsErr
	}
	counts := make(map[uuid.UUID]int)
	for _, cid := range claimIDs {
		for sid, claims := range m.s.sourceLinks {
			if !claims[cid] {
				continue
			}
			src, ok := m.s.sources[sid]
			if ok && !src.Timestamp.Before(since) {
				counts[cid]++
			}
		}
	}
	return counts, nil
}

type memEventStore struct{ s *memState }

func (m *memEventStore) Append(ctx context.Context, e *domain.Event) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.nextEventID++
	e.ID = m.s.nextEventID
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	m.s.events = append(m.s.events, *e)
	return nil
}

func (m *memEventStore) CountConfidenceEvents(ctx context.Context, claimID string, since time.Time) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	count := 0
	for _, e := range m.s.events {
		if e.ClaimID != claimID {
			continue
		}
		if e.EventType != domain.EventConfidence && e.EventType != domain.EventDecay {
			continue
		}
		if !e.Timestamp.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *memEventStore) RecentAgentEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []domain.Event
	for _, e := range m.s.events {
		if e.AgentName != "" {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memProgressStore struct{ s *memState }

func (m *memProgressStore) Get(ctx context.Context, agentName string) (*domain.AgentProgress, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	p, ok := m.s.progress[agentName]
	if !ok {
		return nil, store.ErrNotFound
	}
	progress := p
	return &progress, nil
}

func (m *memProgressStore) Upsert(ctx context.Context, p *domain.AgentProgress) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.progressErr != nil {
		return m.s.progressErr
	}
	m.s.progress[p.AgentName] = *p
	return nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// mockEmbedder returns a fixed vector per text, falling back to a unit vector.
type mockEmbedder struct {
	vectors map[string][]float32
	err     error
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{vectors: make(map[string][]float32)}
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

// mockClassifier labels snippets from a fixed table, defaulting to mention.
type mockClassifier struct {
	bySnippet map[string]domain.Stance
	err       error
	calls     int
}

func newMockClassifier() *mockClassifier {
	return &mockClassifier{bySnippet: make(map[string]domain.Stance)}
}

func (m *mockClassifier) Classify(ctx context.Context, snippetText, claimText string) (domain.Stance, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	if s, ok := m.bySnippet[snippetText]; ok {
		return s, nil
	}
	return domain.StanceMention, nil
}
