package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/manualhub/manual-api/internal/models"
	appErrors "github.com/manualhub/manual-api/pkg/errors"
)

type mockManualStore struct {
	manuals        map[string]*models.Manual // keyed by slug
	slugs          map[string]bool
	created        *models.Manual
	initialVersion *models.ManualVersion
	updated        *models.Manual
	statusSet      map[string]models.ManualStatus
	currentSet     map[string]string
	published      map[string]string
	tagsReplaced   map[string][]string
	deleted        []string
	listResult     []models.Manual
	listTotal      int
	lastFilter     models.ManualFilter
	createErr      error
	publishErr     error
}

func (m *mockManualStore) Create(ctx context.Context, manual *models.Manual, initial *models.ManualVersion) error {
	if m.createErr != nil {
		return m.createErr
	}
	if manual.ID == "" {
		manual.ID = "new-manual"
	}
	initial.ID = "v-1"
	initial.ManualID = manual.ID
	initial.VersionNumber = 1
	manual.CurrentVersionID = &initial.ID
	if m.manuals == nil {
		m.manuals = make(map[string]*models.Manual)
	}
	m.manuals[manual.Slug] = manual
	m.created = manual
	m.initialVersion = initial
	return nil
}

func (m *mockManualStore) GetBySlug(ctx context.Context, slug string) (*models.Manual, error) {
	if manual, ok := m.manuals[slug]; ok {
		copied := *manual
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockManualStore) GetByID(ctx context.Context, id string) (*models.Manual, error) {
	for _, manual := range m.manuals {
		if manual.ID == id {
			copied := *manual
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockManualStore) SlugExists(ctx context.Context, slug string) (bool, error) {
	if m.slugs[slug] {
		return true, nil
	}
	_, ok := m.manuals[slug]
	return ok, nil
}

func (m *mockManualStore) List(ctx context.Context, filter models.ManualFilter) ([]models.Manual, int, error) {
	m.lastFilter = filter
	return m.listResult, m.listTotal, nil
}

func (m *mockManualStore) UpdateMeta(ctx context.Context, manual *models.Manual) error {
	if _, ok := m.manuals[manual.Slug]; !ok {
		return sql.ErrNoRows
	}
	copied := *manual
	m.manuals[manual.Slug] = &copied
	m.updated = manual
	return nil
}

func (m *mockManualStore) SetStatus(ctx context.Context, id string, status models.ManualStatus) error {
	if m.statusSet == nil {
		m.statusSet = make(map[string]models.ManualStatus)
	}
	m.statusSet[id] = status
	for _, manual := range m.manuals {
		if manual.ID == id {
			manual.Status = status
		}
	}
	return nil
}

func (m *mockManualStore) SetCurrentVersion(ctx context.Context, manualID, versionID string, status models.ManualStatus) error {
	if m.currentSet == nil {
		m.currentSet = make(map[string]string)
	}
	m.currentSet[manualID] = versionID
	for _, manual := range m.manuals {
		if manual.ID == manualID {
			manual.CurrentVersionID = &versionID
			manual.Status = status
		}
	}
	return nil
}

func (m *mockManualStore) PublishVersion(ctx context.Context, manualID, versionID string) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	if m.published == nil {
		m.published = make(map[string]string)
	}
	m.published[manualID] = versionID
	for _, manual := range m.manuals {
		if manual.ID == manualID {
			manual.PublishedVersionID = &versionID
			manual.Status = models.ManualStatusPublished
		}
	}
	return nil
}

func (m *mockManualStore) ReplaceTags(ctx context.Context, manualID string, tagIDs []string) error {
	if m.tagsReplaced == nil {
		m.tagsReplaced = make(map[string][]string)
	}
	m.tagsReplaced[manualID] = tagIDs
	return nil
}

func (m *mockManualStore) Delete(ctx context.Context, manualID string) error {
	m.deleted = append(m.deleted, manualID)
	return nil
}

type mockVersionStore struct {
	versions    map[string]*models.ManualVersion // keyed by id
	byNumber    map[string]*models.ManualVersion // keyed by manualID:number
	snapshots   []*models.ManualVersion
	nextNumber  int
	snapshotErr error
}

func (m *mockVersionStore) key(manualID string, number int) string {
	return fmt.Sprintf("%s:%d", manualID, number)
}

func (m *mockVersionStore) add(version *models.ManualVersion) {
	if m.versions == nil {
		m.versions = make(map[string]*models.ManualVersion)
		m.byNumber = make(map[string]*models.ManualVersion)
	}
	m.versions[version.ID] = version
	m.byNumber[m.key(version.ManualID, version.VersionNumber)] = version
}

func (m *mockVersionStore) CreateSnapshot(ctx context.Context, version *models.ManualVersion, blocks []models.ContentBlock) error {
	if m.snapshotErr != nil {
		return m.snapshotErr
	}
	m.nextNumber++
	version.ID = fmt.Sprintf("v-%d", m.nextNumber)
	version.VersionNumber = m.nextNumber
	version.Blocks = blocks
	m.add(version)
	m.snapshots = append(m.snapshots, version)
	return nil
}

func (m *mockVersionStore) GetByID(ctx context.Context, id string) (*models.ManualVersion, error) {
	if version, ok := m.versions[id]; ok {
		copied := *version
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockVersionStore) GetByNumber(ctx context.Context, manualID string, number int) (*models.ManualVersion, error) {
	if version, ok := m.byNumber[m.key(manualID, number)]; ok {
		copied := *version
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockVersionStore) ListByManual(ctx context.Context, manualID string) ([]models.ManualVersion, error) {
	var list []models.ManualVersion
	for _, version := range m.versions {
		if version.ManualID == manualID {
			list = append(list, *version)
		}
	}
	return list, nil
}

func (m *mockVersionStore) ListBlocks(ctx context.Context, versionID string) ([]models.ContentBlock, error) {
	if version, ok := m.versions[versionID]; ok {
		return version.Blocks, nil
	}
	return nil, nil
}

type mockReviewStore struct {
	reviews     map[string]*models.ReviewRequest
	manuals     *mockManualStore // mirrors the repository's same-tx manual writes
	created     *models.ReviewRequest
	decided     map[string]models.ReviewStatus
	hasApproved bool
	lastFilter  models.ReviewFilter
	createErr   error
	decideErr   error
}

func (m *mockReviewStore) Create(ctx context.Context, review *models.ReviewRequest) error {
	if m.createErr != nil {
		return m.createErr
	}
	if review.ID == "" {
		review.ID = "new-review"
	}
	if m.reviews == nil {
		m.reviews = make(map[string]*models.ReviewRequest)
	}
	m.reviews[review.ID] = review
	m.created = review
	if m.manuals != nil {
		_ = m.manuals.SetStatus(ctx, review.ManualID, models.ManualStatusSubmitted)
	}
	return nil
}

func (m *mockReviewStore) GetByID(ctx context.Context, id string) (*models.ReviewRequest, error) {
	if review, ok := m.reviews[id]; ok {
		copied := *review
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockReviewStore) List(ctx context.Context, filter models.ReviewFilter) ([]models.ReviewRequest, error) {
	m.lastFilter = filter
	var list []models.ReviewRequest
	for _, review := range m.reviews {
		list = append(list, *review)
	}
	return list, nil
}

func (m *mockReviewStore) Decide(ctx context.Context, id string, status models.ReviewStatus, reviewerID, feedback string, decidedAt time.Time, manualID string, manualStatus models.ManualStatus) error {
	if m.decideErr != nil {
		return m.decideErr
	}
	review, ok := m.reviews[id]
	if !ok || review.Status != models.ReviewStatusPending {
		return sql.ErrNoRows
	}
	if m.decided == nil {
		m.decided = make(map[string]models.ReviewStatus)
	}
	m.decided[id] = status
	review.Status = status
	review.ReviewerID = &reviewerID
	review.Feedback = feedback
	review.DecidedAt = &decidedAt
	if m.manuals != nil {
		_ = m.manuals.SetStatus(ctx, manualID, manualStatus)
	}
	return nil
}

func (m *mockReviewStore) HasApprovedForVersion(ctx context.Context, versionID string) (bool, error) {
	return m.hasApproved, nil
}

func (m *mockReviewStore) HasPendingForVersion(ctx context.Context, versionID string) (bool, error) {
	for _, review := range m.reviews {
		if review.VersionID == versionID && review.Status == models.ReviewStatusPending {
			return true, nil
		}
	}
	return false, nil
}

type mockCollaboratorStore struct {
	grants  []models.ManualCollaborator
	added   *models.ManualCollaborator
	removed []string
	addErr  error
}

func (m *mockCollaboratorStore) ListByManual(ctx context.Context, manualID string) ([]models.ManualCollaborator, error) {
	return m.grants, nil
}

func (m *mockCollaboratorStore) Add(ctx context.Context, grant *models.ManualCollaborator) error {
	if m.addErr != nil {
		return m.addErr
	}
	if grant.ID == "" {
		grant.ID = "new-grant"
	}
	m.grants = append(m.grants, *grant)
	m.added = grant
	return nil
}

func (m *mockCollaboratorStore) Remove(ctx context.Context, manualID, userID string) error {
	for i, grant := range m.grants {
		if grant.ManualID == manualID && grant.UserID == userID {
			m.grants = append(m.grants[:i], m.grants[i+1:]...)
			m.removed = append(m.removed, userID)
			return nil
		}
	}
	return sql.ErrNoRows
}

type mockAuditStore struct {
	entries []models.AuditLogEntry
}

func (m *mockAuditStore) Append(ctx context.Context, entry *models.AuditLogEntry) error {
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockAuditStore) ListByManual(ctx context.Context, manualID string) ([]models.AuditLogEntry, error) {
	var list []models.AuditLogEntry
	for _, entry := range m.entries {
		if entry.ManualID == manualID {
			list = append(list, entry)
		}
	}
	return list, nil
}

func (m *mockAuditStore) actions() []string {
	var actions []string
	for _, entry := range m.entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

type mockMetricsRecorder struct {
	cacheHits   int
	cacheMisses int
	dbLabels    []string
}

func (m *mockMetricsRecorder) RecordCacheOperation(hit bool) {
	if hit {
		m.cacheHits++
		return
	}
	m.cacheMisses++
}

func (m *mockMetricsRecorder) ObserveDBQuery(label string, duration time.Duration) {
	m.dbLabels = append(m.dbLabels, label)
}

type mockPreviewCache struct {
	store    map[string][]byte
	gets     int
	sets     int
	patterns []string
}

func (m *mockPreviewCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.gets++
	raw, ok := m.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockPreviewCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.sets++
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.store == nil {
		m.store = make(map[string][]byte)
	}
	m.store[key] = raw
	return nil
}

func (m *mockPreviewCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	m.store = nil
	return nil
}

type mockCategoryStore struct {
	categories map[string]*models.Category
	tags       map[string]*models.Tag
	createErr  error
}

func (m *mockCategoryStore) CreateCategory(ctx context.Context, category *models.Category) error {
	if m.createErr != nil {
		return m.createErr
	}
	if category.ID == "" {
		category.ID = "new-category"
	}
	if m.categories == nil {
		m.categories = make(map[string]*models.Category)
	}
	m.categories[category.ID] = category
	return nil
}

func (m *mockCategoryStore) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	if category, ok := m.categories[id]; ok {
		copied := *category
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCategoryStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	var list []models.Category
	for _, category := range m.categories {
		list = append(list, *category)
	}
	return list, nil
}

func (m *mockCategoryStore) UpdateCategory(ctx context.Context, category *models.Category) error {
	if _, ok := m.categories[category.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *category
	m.categories[category.ID] = &copied
	return nil
}

func (m *mockCategoryStore) DeleteCategory(ctx context.Context, id string) error {
	if _, ok := m.categories[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.categories, id)
	return nil
}

func (m *mockCategoryStore) CreateTag(ctx context.Context, tag *models.Tag) error {
	if m.createErr != nil {
		return m.createErr
	}
	if tag.ID == "" {
		tag.ID = "new-tag"
	}
	if m.tags == nil {
		m.tags = make(map[string]*models.Tag)
	}
	m.tags[tag.ID] = tag
	return nil
}

func (m *mockCategoryStore) GetTag(ctx context.Context, id string) (*models.Tag, error) {
	if tag, ok := m.tags[id]; ok {
		copied := *tag
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCategoryStore) ListTags(ctx context.Context) ([]models.Tag, error) {
	var list []models.Tag
	for _, tag := range m.tags {
		list = append(list, *tag)
	}
	return list, nil
}

func (m *mockCategoryStore) UpdateTag(ctx context.Context, tag *models.Tag) error {
	if _, ok := m.tags[tag.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *tag
	m.tags[tag.ID] = &copied
	return nil
}

func (m *mockCategoryStore) DeleteTag(ctx context.Context, id string) error {
	if _, ok := m.tags[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.tags, id)
	return nil
}
