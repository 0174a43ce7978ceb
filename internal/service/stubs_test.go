package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/folio-api/internal/dto"
	"github.com/noah-isme/folio-api/internal/models"
	"github.com/noah-isme/folio-api/internal/repository"
	appErrors "github.com/noah-isme/folio-api/pkg/errors"
)

const testOrgID = "org-1"

func managerPrincipal() *models.Principal {
	return &models.Principal{
		UserID:         "u-manager",
		Email:          "mara@example.com",
		FirstName:      "Mara",
		LastName:       "Cruz",
		OrganizationID: testOrgID,
		RoleNames:      []string{"Records Officer"},
		Capabilities:   models.Capabilities{ManageUsers: true, ManageRoles: true, ManageDocuments: true},
	}
}

func memberPrincipal(id string) *models.Principal {
	return &models.Principal{
		UserID:         id,
		Email:          id + "@example.com",
		FirstName:      "Member",
		LastName:       id,
		OrganizationID: testOrgID,
		RoleNames:      []string{"User"},
	}
}

func assertAppError(t *testing.T, err error, template *appErrors.Error) *appErrors.Error {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, template.Code, appErr.Code, appErr.Message)
	return appErr
}

// audit

type auditRepoStub struct {
	entries   []models.Log
	createErr error
	listed    models.LogFilter
	logs      []models.Log
	total     int
	listErr   error
}

func (s *auditRepoStub) CreateMany(ctx context.Context, entries []models.Log) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *auditRepoStub) List(ctx context.Context, filter models.LogFilter) ([]models.Log, int, error) {
	s.listed = filter
	return s.logs, s.total, s.listErr
}

func (s *auditRepoStub) actions() []string {
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Action
	}
	return out
}

// users

type userRepoStub struct {
	users   map[string]*models.User
	created []*models.User
	removed []string
	findErr error
}

func newUserRepoStub(users ...models.User) *userRepoStub {
	s := &userRepoStub{users: map[string]*models.User{}}
	for i := range users {
		u := users[i]
		s.users[u.ID] = &u
	}
	return s
}

func orgUser(id, first, last string) models.User {
	org := testOrgID
	return models.User{ID: id, Email: id + "@example.com", FirstName: first, LastName: last, OrganizationID: &org}
}

func (s *userRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	u, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *u
	return &copied, nil
}

func (s *userRepoStub) FindInOrganization(ctx context.Context, organizationID, id string) (*models.User, error) {
	u, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.OrganizationID == nil || *u.OrganizationID != organizationID {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	copied := *user
	s.users[user.ID] = &copied
	s.created = append(s.created, user)
	return nil
}

func (s *userRepoStub) ListByOrganization(ctx context.Context, organizationID string) ([]models.User, error) {
	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out []models.User
	for _, id := range ids {
		u := s.users[id]
		if u.OrganizationID != nil && *u.OrganizationID == organizationID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *userRepoStub) RemoveFromOrganization(ctx context.Context, organizationID, userID string) error {
	u, ok := s.users[userID]
	if !ok {
		return sql.ErrNoRows
	}
	u.OrganizationID = nil
	s.removed = append(s.removed, userID)
	return nil
}

// roles

type roleRepoStub struct {
	roles       map[string]*models.Role
	byUser      map[string][]models.Role
	created     []*models.Role
	updated     []models.Role
	deleted     []string
	assigned    []repository.AssignRoleParams
	assignErr   error
	updateErr   error
	unassignErr error
}

func newRoleRepoStub() *roleRepoStub {
	return &roleRepoStub{roles: map[string]*models.Role{}, byUser: map[string][]models.Role{}}
}

func (s *roleRepoStub) grant(userID string, role models.Role) {
	r := role
	s.roles[r.ID] = &r
	s.byUser[userID] = append(s.byUser[userID], r)
}

func (s *roleRepoStub) Create(ctx context.Context, role *models.Role) error {
	if role.ID == "" {
		role.ID = "role-" + role.Name
	}
	copied := *role
	s.roles[role.ID] = &copied
	s.created = append(s.created, role)
	return nil
}

func (s *roleRepoStub) FindByID(ctx context.Context, organizationID, id string) (*models.Role, error) {
	r, ok := s.roles[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *r
	return &copied, nil
}

func (s *roleRepoStub) ListByCampus(ctx context.Context, campusID string) ([]models.Role, error) {
	var out []models.Role
	for _, r := range s.roles {
		if r.CampusID == campusID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *roleRepoStub) ListByOrganization(ctx context.Context, organizationID string) ([]models.Role, error) {
	var out []models.Role
	for _, r := range s.roles {
		out = append(out, *r)
	}
	return out, nil
}

func (s *roleRepoStub) ListByUser(ctx context.Context, userID string) ([]models.Role, error) {
	return s.byUser[userID], nil
}

func (s *roleRepoStub) ListByUsers(ctx context.Context, userIDs []string) ([]repository.UserRoleRow, error) {
	var rows []repository.UserRoleRow
	for _, id := range userIDs {
		for _, r := range s.byUser[id] {
			rows = append(rows, repository.UserRoleRow{UserID: id, Role: r})
		}
	}
	return rows, nil
}

func (s *roleRepoStub) Update(ctx context.Context, role *models.Role) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = append(s.updated, *role)
	return nil
}

func (s *roleRepoStub) Delete(ctx context.Context, organizationID, id string) error {
	s.deleted = append(s.deleted, id)
	delete(s.roles, id)
	return nil
}

func (s *roleRepoStub) Assign(ctx context.Context, params repository.AssignRoleParams) error {
	if s.assignErr != nil {
		return s.assignErr
	}
	s.assigned = append(s.assigned, params)
	return nil
}

func (s *roleRepoStub) Unassign(ctx context.Context, organizationID, userID, roleID string) error {
	return s.unassignErr
}

// organizations

type orgRepoStub struct {
	org         *models.Organization
	campuses    []models.Campus
	departments []models.Department
	founding    *repository.FoundingParams
	createErr   error
	joinRole    *models.Role
	joinErr     error
	joined      []string
}

func (s *orgRepoStub) CreateWithFounder(ctx context.Context, params repository.FoundingParams) error {
	if s.createErr != nil {
		return s.createErr
	}
	params.Organization.ID = "org-new"
	params.Campus.ID = "campus-new"
	params.Campus.OrganizationID = params.Organization.ID
	params.AdminRole.ID = "role-admin"
	params.AdminRole.CampusID = params.Campus.ID
	s.founding = &params
	return nil
}

func (s *orgRepoStub) Join(ctx context.Context, organizationID, userID string) (*models.Role, error) {
	s.joined = append(s.joined, userID)
	return s.joinRole, s.joinErr
}

func (s *orgRepoStub) FindByID(ctx context.Context, id string) (*models.Organization, error) {
	if s.org == nil || s.org.ID != id {
		return nil, sql.ErrNoRows
	}
	copied := *s.org
	return &copied, nil
}

func (s *orgRepoStub) ListCampuses(ctx context.Context, organizationID string) ([]models.Campus, error) {
	return s.campuses, nil
}

func (s *orgRepoStub) ListDepartments(ctx context.Context, organizationID string) ([]models.Department, error) {
	return s.departments, nil
}

func (s *orgRepoStub) FindCampus(ctx context.Context, organizationID, campusID string) (*models.Campus, error) {
	for _, c := range s.campuses {
		if c.ID == campusID && c.OrganizationID == organizationID {
			copied := c
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *orgRepoStub) FindDepartment(ctx context.Context, organizationID, departmentID string) (*models.Department, error) {
	for _, d := range s.departments {
		if d.ID == departmentID {
			copied := d
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *orgRepoStub) CreateCampus(ctx context.Context, campus *models.Campus) error {
	campus.ID = "campus-" + campus.Name
	s.campuses = append(s.campuses, *campus)
	return nil
}

func (s *orgRepoStub) CreateDepartment(ctx context.Context, department *models.Department) error {
	department.ID = "dept-" + department.Name
	s.departments = append(s.departments, *department)
	return nil
}

// tags

const (
	tagForReviewID   = "7a1c0d4e-0000-4000-8000-000000000001"
	tagCommID        = "7a1c0d4e-0000-4000-8000-000000000002"
	tagApprovedID    = "7a1c0d4e-0000-4000-8000-000000000003"
	tagReturnedID    = "7a1c0d4e-0000-4000-8000-000000000004"
	tagDisapprovedID = "7a1c0d4e-0000-4000-8000-000000000005"
)

type tagRepoStub struct {
	tags    map[string]*models.Tag
	created []*models.Tag
	renamed map[string]string
	deleted []string
}

func newTagRepoStub(orgTags ...models.Tag) *tagRepoStub {
	s := &tagRepoStub{tags: map[string]*models.Tag{}, renamed: map[string]string{}}
	for _, g := range []models.Tag{
		{ID: tagForReviewID, Name: models.TagForReview},
		{ID: tagCommID, Name: models.TagCommunication},
		{ID: tagApprovedID, Name: models.TagApproved},
		{ID: tagReturnedID, Name: models.TagReturned},
		{ID: tagDisapprovedID, Name: models.TagDisapproved},
	} {
		tag := g
		tag.IsGlobal, tag.IsLocked = true, true
		s.tags[tag.ID] = &tag
	}
	for i := range orgTags {
		tag := orgTags[i]
		s.tags[tag.ID] = &tag
	}
	return s
}

func (s *tagRepoStub) index() map[string]models.Tag {
	out := make(map[string]models.Tag, len(s.tags))
	for id, tag := range s.tags {
		out[id] = *tag
	}
	return out
}

func (s *tagRepoStub) sorted(match func(models.Tag) bool) []models.Tag {
	var out []models.Tag
	for _, tag := range s.tags {
		if match(*tag) {
			out = append(out, *tag)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *tagRepoStub) ListGlobal(ctx context.Context) ([]models.Tag, error) {
	return s.sorted(func(t models.Tag) bool { return t.IsGlobal }), nil
}

func (s *tagRepoStub) ListByOrganization(ctx context.Context, organizationID string) ([]models.Tag, error) {
	return s.sorted(func(t models.Tag) bool { return t.OrganizationID != nil && *t.OrganizationID == organizationID }), nil
}

func (s *tagRepoStub) FindByID(ctx context.Context, id string) (*models.Tag, error) {
	tag, ok := s.tags[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *tag
	return &copied, nil
}

func (s *tagRepoStub) FindUsable(ctx context.Context, organizationID string, ids []string) ([]models.Tag, error) {
	var out []models.Tag
	for _, id := range ids {
		tag, ok := s.tags[id]
		if ok && (tag.IsGlobal || (tag.OrganizationID != nil && *tag.OrganizationID == organizationID)) {
			out = append(out, *tag)
		}
	}
	return out, nil
}

func (s *tagRepoStub) Create(ctx context.Context, tag *models.Tag) error {
	tag.ID = "tag-" + tag.Name
	copied := *tag
	s.tags[tag.ID] = &copied
	s.created = append(s.created, tag)
	return nil
}

func (s *tagRepoStub) Rename(ctx context.Context, organizationID, id, name string) error {
	s.renamed[id] = name
	return nil
}

func (s *tagRepoStub) Delete(ctx context.Context, organizationID, id string) (*models.Tag, error) {
	tag, ok := s.tags[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	s.deleted = append(s.deleted, id)
	delete(s.tags, id)
	return tag, nil
}

// documents

type documentRepoStub struct {
	docs           map[string]*models.Document
	docTags        map[string][]string
	tagIndex       map[string]models.Tag
	lastFilter     models.DocumentFilter
	register       []models.RegisterEntry
	transferCalls  int
	transferParams repository.TransferParams
	reviews        []repository.ReviewParams
	marked         []models.DispositionStatus
	markErr        error
	deleted        []string
	createErr      error
}

func newDocumentRepoStub(tagIndex map[string]models.Tag, docs ...models.Document) *documentRepoStub {
	s := &documentRepoStub{docs: map[string]*models.Document{}, docTags: map[string][]string{}, tagIndex: tagIndex}
	for i := range docs {
		doc := docs[i]
		s.docs[doc.ID] = &doc
		for _, tag := range doc.Tags {
			s.docTags[doc.ID] = append(s.docTags[doc.ID], tag.ID)
		}
	}
	return s
}

func (s *documentRepoStub) get(id string) models.Document {
	return *s.docs[id]
}

func (s *documentRepoStub) Create(ctx context.Context, doc *models.Document) error {
	if s.createErr != nil {
		return s.createErr
	}
	if doc.ID == "" {
		doc.ID = fmt.Sprintf("doc-%d", len(s.docs)+1)
	}
	doc.CreatedAt = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	copied := *doc
	s.docs[doc.ID] = &copied
	return nil
}

func (s *documentRepoStub) FindByID(ctx context.Context, organizationID, id string) (*models.Document, error) {
	doc, ok := s.docs[id]
	if !ok || doc.OrganizationID != organizationID {
		return nil, sql.ErrNoRows
	}
	copied := *doc
	return &copied, nil
}

func (s *documentRepoStub) FindByControlNumber(ctx context.Context, organizationID, controlNumber string) (*models.Document, error) {
	for _, doc := range s.docs {
		if doc.OrganizationID == organizationID && doc.ControlNumber != nil && *doc.ControlNumber == controlNumber {
			copied := *doc
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *documentRepoStub) sortedIDs() []string {
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *documentRepoStub) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, int, error) {
	s.lastFilter = filter
	var out []models.Document
	for _, id := range s.sortedIDs() {
		doc := s.docs[id]
		if doc.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.ScopeUserID != "" && !doc.IsHeldBy(filter.ScopeUserID) {
			continue
		}
		if filter.Lifecycle != nil && doc.Lifecycle(filter.Now) != *filter.Lifecycle {
			continue
		}
		out = append(out, *doc)
	}
	return out, len(out), nil
}

func (s *documentRepoStub) ListRegister(ctx context.Context, filter models.DocumentFilter) ([]models.RegisterEntry, error) {
	s.lastFilter = filter
	return s.register, nil
}

func (s *documentRepoStub) TagsFor(ctx context.Context, documentIDs []string) ([]repository.DocumentTagRow, error) {
	var rows []repository.DocumentTagRow
	for _, id := range documentIDs {
		for _, tagID := range s.docTags[id] {
			rows = append(rows, repository.DocumentTagRow{DocumentID: id, Tag: s.tagIndex[tagID]})
		}
	}
	return rows, nil
}

func (s *documentRepoStub) Transfer(ctx context.Context, params repository.TransferParams, authorize func(models.Document) error) ([]models.Document, error) {
	s.transferCalls++
	s.transferParams = params
	locked := make([]models.Document, 0, len(params.DocumentIDs))
	for _, id := range params.DocumentIDs {
		doc, ok := s.docs[id]
		if !ok || doc.OrganizationID != params.OrganizationID {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("document %s not found", id))
		}
		locked = append(locked, *doc)
	}
	for _, doc := range locked {
		if err := authorize(doc); err != nil {
			return nil, err
		}
	}

	keep := map[string]bool{}
	for _, id := range params.TagsToKeep {
		keep[id] = true
	}
	for i := range locked {
		doc := s.docs[locked[i].ID]
		recipient := params.RecipientID
		doc.InTransit = true
		doc.IntendedHolderID = &recipient
		if params.ReviewRequesterID != nil {
			requester := *params.ReviewRequesterID
			doc.ReviewRequesterID = &requester
		}
		var next []string
		for _, tagID := range s.docTags[doc.ID] {
			if keep[tagID] {
				next = append(next, tagID)
			}
		}
		for _, tagID := range params.TagIDs {
			if !contains(next, tagID) {
				next = append(next, tagID)
			}
		}
		s.docTags[doc.ID] = next
		locked[i] = *doc
	}
	return locked, nil
}

func (s *documentRepoStub) Receive(ctx context.Context, organizationID, id, receiverID string) (*models.Document, error) {
	doc, ok := s.docs[id]
	if !ok || !doc.InTransit || doc.IntendedHolderID == nil || *doc.IntendedHolderID != receiverID {
		return nil, sql.ErrNoRows
	}
	doc.HeldByID = receiverID
	doc.InTransit = false
	doc.IntendedHolderID = nil
	copied := *doc
	return &copied, nil
}

func (s *documentRepoStub) RecordReview(ctx context.Context, params repository.ReviewParams) (*models.Document, error) {
	id := params.Remark.DocumentID
	if params.Forward != nil {
		doc, ok := s.docs[id]
		if !ok || doc.OrganizationID != params.Forward.OrganizationID {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("document %s not found", id))
		}
		if err := params.Forward.Authorize(*doc); err != nil {
			return nil, err
		}
	}
	s.reviews = append(s.reviews, params)
	var next []string
	for _, tagID := range s.docTags[id] {
		if !contains(params.DetachTagIDs, tagID) {
			next = append(next, tagID)
		}
	}
	s.docTags[id] = append(next, params.StatusTagID)
	doc := s.docs[id]
	doc.ReviewRequesterID = nil
	if params.Forward == nil {
		return nil, nil
	}
	recipient := params.Forward.RecipientID
	doc.InTransit = true
	doc.IntendedHolderID = &recipient
	copied := *doc
	return &copied, nil
}

func (s *documentRepoStub) MarkDisposition(ctx context.Context, organizationID, id string, status models.DispositionStatus, executedAt time.Time) error {
	if s.markErr != nil {
		return s.markErr
	}
	s.marked = append(s.marked, status)
	s.docs[id].DispositionStatus = &status
	return nil
}

func (s *documentRepoStub) Delete(ctx context.Context, organizationID, id string) error {
	if _, ok := s.docs[id]; !ok {
		return sql.ErrNoRows
	}
	s.deleted = append(s.deleted, id)
	delete(s.docs, id)
	return nil
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}

// document types

type documentTypeRepoStub struct {
	types map[string]*models.DocumentType
}

func newDocumentTypeRepoStub(types ...models.DocumentType) *documentTypeRepoStub {
	s := &documentTypeRepoStub{types: map[string]*models.DocumentType{}}
	for i := range types {
		t := types[i]
		s.types[t.ID] = &t
	}
	return s
}

func (s *documentTypeRepoStub) ListByOrganization(ctx context.Context, organizationID string) ([]models.DocumentType, error) {
	var out []models.DocumentType
	for _, t := range s.types {
		if t.OrganizationID == organizationID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *documentTypeRepoStub) FindByID(ctx context.Context, organizationID, id string) (*models.DocumentType, error) {
	t, ok := s.types[id]
	if !ok || t.OrganizationID != organizationID {
		return nil, sql.ErrNoRows
	}
	copied := *t
	return &copied, nil
}

func (s *documentTypeRepoStub) Create(ctx context.Context, docType *models.DocumentType) error {
	docType.ID = "type-" + docType.Name
	copied := *docType
	s.types[docType.ID] = &copied
	return nil
}

func (s *documentTypeRepoStub) Update(ctx context.Context, docType *models.DocumentType) error {
	copied := *docType
	s.types[docType.ID] = &copied
	return nil
}

func (s *documentTypeRepoStub) Delete(ctx context.Context, organizationID, id string) error {
	delete(s.types, id)
	return nil
}

// storage

type storageStub struct {
	bucket    string
	missing   bool
	removeErr error
	removed   []ObjectRef
	eventual  []ObjectRef
}

func (s *storageStub) Bucket() string { return s.bucket }

func (s *storageStub) Exists(ref ObjectRef) (bool, error) { return !s.missing, nil }

func (s *storageStub) SignedURL(ref ObjectRef) (*dto.SignedURLResponse, error) {
	return &dto.SignedURLResponse{URL: "/storage/objects/signed-" + ref.Key, ExpiresAt: "2024-01-01T00:05:00Z"}, nil
}

func (s *storageStub) Remove(ref ObjectRef) error {
	if s.removeErr != nil {
		return s.removeErr
	}
	s.removed = append(s.removed, ref)
	return nil
}

func (s *storageStub) RemoveEventually(ref ObjectRef) {
	s.eventual = append(s.eventual, ref)
}
