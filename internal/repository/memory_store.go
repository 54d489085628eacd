package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"compliance/internal/model"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory implementation of SubmissionRepository, AuditRepository and
// TransactionManager. Transactions are serialized and rolled back by restoring a snapshot.
type MemoryStore struct {
	txMu sync.Mutex // held for the duration of RunInTx

	mu          sync.RWMutex
	submissions map[uuid.UUID]model.Submission // Documents always nil
	documents   map[uuid.UUID]model.Document   // Files always nil
	files       map[uuid.UUID]model.File
	audit       []model.AuditLog
	seq         int64
	order       map[uuid.UUID]int64 // insertion sequence, used as a stable tiebreak
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		submissions: make(map[uuid.UUID]model.Submission),
		documents:   make(map[uuid.UUID]model.Document),
		files:       make(map[uuid.UUID]model.File),
		order:       make(map[uuid.UUID]int64),
	}
}

type memoryTxKey struct{}

type memorySnapshot struct {
	submissions map[uuid.UUID]model.Submission
	documents   map[uuid.UUID]model.Document
	files       map[uuid.UUID]model.File
	audit       []model.AuditLog
	order       map[uuid.UUID]int64
	seq         int64
}

// RunInTx runs fn with exclusive write access; any error restores the state seen on entry.
func (s *MemoryStore) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if ctx.Value(memoryTxKey{}) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, memoryTxKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *MemoryStore) snapshot() memorySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := memorySnapshot{
		submissions: make(map[uuid.UUID]model.Submission, len(s.submissions)),
		documents:   make(map[uuid.UUID]model.Document, len(s.documents)),
		files:       make(map[uuid.UUID]model.File, len(s.files)),
		audit:       append([]model.AuditLog(nil), s.audit...),
		order:       make(map[uuid.UUID]int64, len(s.order)),
		seq:         s.seq,
	}
	for k, v := range s.submissions {
		snap.submissions[k] = v
	}
	for k, v := range s.documents {
		snap.documents[k] = v
	}
	for k, v := range s.files {
		snap.files[k] = v
	}
	for k, v := range s.order {
		snap.order[k] = v
	}
	return snap
}

func (s *MemoryStore) restore(snap memorySnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions = snap.submissions
	s.documents = snap.documents
	s.files = snap.files
	s.audit = snap.audit
	s.order = snap.order
	s.seq = snap.seq
}

func (s *MemoryStore) track(id uuid.UUID) {
	if _, ok := s.order[id]; !ok {
		s.seq++
		s.order[id] = s.seq
	}
}

func stamp(createdAt, updatedAt *time.Time) {
	now := time.Now().UTC()
	if createdAt.IsZero() {
		*createdAt = now
	}
	*updatedAt = now
}

func (s *MemoryStore) putDocumentLocked(doc *model.Document) {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	stamp(&doc.CreatedAt, &doc.UpdatedAt)
	for i := range doc.Files {
		f := &doc.Files[i]
		if f.ID == uuid.Nil {
			f.ID = uuid.New()
		}
		f.DocumentID = doc.ID
		stamp(&f.CreatedAt, &f.UpdatedAt)
		s.files[f.ID] = *f
		s.track(f.ID)
	}
	header := *doc
	header.Files = nil
	s.documents[doc.ID] = header
	s.track(doc.ID)
}

func (s *MemoryStore) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	stamp(&sub.CreatedAt, &sub.UpdatedAt)
	for i := range sub.Documents {
		sub.Documents[i].SubmissionID = sub.ID
		s.putDocumentLocked(&sub.Documents[i])
	}
	header := *sub
	header.Documents = nil
	s.submissions[sub.ID] = header
	s.track(sub.ID)
	return nil
}

func (s *MemoryStore) filesOfLocked(documentID uuid.UUID) []model.File {
	files := []model.File{}
	for _, f := range s.files {
		if f.DocumentID == documentID {
			files = append(files, f)
		}
	}
	sort.Slice(files, func(i, j int) bool { return s.order[files[i].ID] < s.order[files[j].ID] })
	return files
}

func (s *MemoryStore) documentLocked(id uuid.UUID) (*model.Document, bool) {
	doc, ok := s.documents[id]
	if !ok {
		return nil, false
	}
	doc.Files = s.filesOfLocked(id)
	return &doc, true
}

func (s *MemoryStore) LoadSubmission(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[id]
	if !ok {
		return nil, ErrNotFound
	}
	sub.Documents = []model.Document{}
	for docID, d := range s.documents {
		if d.SubmissionID == id {
			doc, _ := s.documentLocked(docID)
			sub.Documents = append(sub.Documents, *doc)
		}
	}
	sort.Slice(sub.Documents, func(i, j int) bool {
		return s.order[sub.Documents[i].ID] < s.order[sub.Documents[j].ID]
	})
	return &sub, nil
}

// LockSubmission only checks existence; RunInTx already serializes writers.
func (s *MemoryStore) LockSubmission(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.submissions[id]; !ok {
		return ErrNotFound
	}
	return nil
}

func (s *MemoryStore) ListSubmissions(ctx context.Context, filter SubmissionFilter, page, limit int) ([]model.Submission, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	matched := []model.Submission{}
	for _, sub := range s.submissions {
		if filter.VendorID != nil && sub.VendorID != *filter.VendorID {
			continue
		}
		if filter.Year != 0 && sub.Year != filter.Year {
			continue
		}
		if filter.Month != 0 && sub.Month != filter.Month {
			continue
		}
		matched = append(matched, sub)
	}
	// Newest first.
	sort.Slice(matched, func(i, j int) bool { return s.order[matched[i].ID] > s.order[matched[j].ID] })
	s.mu.RUnlock()

	total := int64(len(matched))
	offset := (page - 1) * limit
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []model.Submission{}, total, nil
	}
	end := len(matched)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return matched[offset:end], total, nil
}

func (s *MemoryStore) UpdateSubmissionStatus(ctx context.Context, id uuid.UUID, status model.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.submissions[id]
	if !ok {
		return ErrNotFound
	}
	sub.Status = status
	sub.UpdatedAt = time.Now().UTC()
	s.submissions[id] = sub
	return nil
}

func (s *MemoryStore) FindDocument(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documentLocked(id)
	if !ok {
		return nil, ErrNotFound
	}
	return doc, nil
}

func (s *MemoryStore) FindReplacement(ctx context.Context, originalID uuid.UUID) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, d := range s.documents {
		if d.OriginalDocumentID != nil && *d.OriginalDocumentID == originalID {
			doc, _ := s.documentLocked(id)
			return doc, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateDocument(ctx context.Context, doc *model.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.submissions[doc.SubmissionID]; !ok {
		return ErrNotFound
	}
	s.putDocumentLocked(doc)
	return nil
}

func (s *MemoryStore) SaveDocument(ctx context.Context, doc *model.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[doc.ID]; !ok {
		return ErrNotFound
	}
	doc.UpdatedAt = time.Now().UTC()
	header := *doc
	header.Files = nil
	s.documents[doc.ID] = header
	return nil
}

func (s *MemoryStore) FindFile(ctx context.Context, id uuid.UUID) (*model.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &f, nil
}

func (s *MemoryStore) SaveFile(ctx context.Context, file *model.File) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[file.ID]; !ok {
		return ErrNotFound
	}
	file.UpdatedAt = time.Now().UTC()
	s.files[file.ID] = *file
	return nil
}

// Log appends an audit entry.
func (s *MemoryStore) Log(ctx context.Context, entry *model.AuditLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.audit = append(s.audit, *entry)
	return nil
}

// List returns audit entries newest first.
func (s *MemoryStore) List(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	logs := make([]model.AuditLog, len(s.audit))
	for i, entry := range s.audit {
		logs[len(s.audit)-1-i] = entry
	}
	s.mu.RUnlock()

	total := int64(len(logs))
	offset := (page - 1) * limit
	if offset < 0 {
		offset = 0
	}
	if offset >= len(logs) {
		return []model.AuditLog{}, total, nil
	}
	end := len(logs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return logs[offset:end], total, nil
}
