package expenses_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/JaimeStill/expense-api/internal/attachments"
	"github.com/JaimeStill/expense-api/internal/expenses"
	"github.com/JaimeStill/expense-api/pkg/lifecycle"
	"github.com/JaimeStill/expense-api/pkg/storage"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRepo is an in-memory Repository.
type fakeRepo struct {
	mu        sync.Mutex
	items     map[uuid.UUID]expenses.Expense
	updates   int
	insertErr error
	updateErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: make(map[uuid.UUID]expenses.Expense)}
}

func (f *fakeRepo) List(ctx context.Context, userEmail string) ([]expenses.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []expenses.Expense{}
	for _, e := range f.items {
		if userEmail == "" || e.UserEmail == userEmail {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (f *fakeRepo) Find(ctx context.Context, id uuid.UUID) (expenses.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.items[id]
	if !ok {
		return expenses.Expense{}, expenses.ErrNotFound
	}
	return e, nil
}

func (f *fakeRepo) Insert(ctx context.Context, e expenses.Expense) (expenses.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.insertErr != nil {
		return expenses.Expense{}, f.insertErr
	}
	now := time.Now()
	e.CreatedAt, e.UpdatedAt = now, now
	f.items[e.ID] = e
	return e, nil
}

func (f *fakeRepo) Update(ctx context.Context, id uuid.UUID, p expenses.Patch, atts attachments.List) (expenses.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateErr != nil {
		return expenses.Expense{}, f.updateErr
	}
	e, ok := f.items[id]
	if !ok {
		return expenses.Expense{}, expenses.ErrNotFound
	}

	setIf(&e.ExpenseTypeID, p.ExpenseTypeID)
	setIf(&e.Title, p.Title)
	setIf(&e.Date, p.Date)
	setIf(&e.Amount, p.Amount)
	setIf(&e.PaymentMode, p.PaymentMode)
	setIf(&e.BillAvailable, p.BillAvailable)
	setIf(&e.UserEmail, p.UserEmail)
	setIf(&e.Description, p.Description)
	setIf(&e.CarNumber, p.CarNumber)
	setIf(&e.ServiceType, p.ServiceType)
	setIf(&e.Location, p.Location)
	setIf(&e.EquipmentName, p.EquipmentName)
	setIf(&e.EquipmentType, p.EquipmentType)
	e.Attachments = atts
	e.UpdatedAt = time.Now()

	f.items[id] = e
	f.updates++
	return e, nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func (f *fakeRepo) Delete(ctx context.Context, id uuid.UUID) (attachments.List, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.items[id]
	if !ok {
		return nil, expenses.ErrNotFound
	}
	delete(f.items, id)
	return e.Attachments, nil
}

func (f *fakeRepo) PullAttachment(ctx context.Context, id uuid.UUID, blobID string) (expenses.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.items[id]
	if !ok {
		return expenses.Expense{}, expenses.ErrNotFound
	}
	e.Attachments = e.Attachments.Without(blobID)
	e.UpdatedAt = time.Now()
	f.items[id] = e
	return e, nil
}

func (f *fakeRepo) ReferencedBlobIDs(ctx context.Context) (map[string]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	set := map[string]struct{}{}
	for _, e := range f.items {
		for _, id := range e.Attachments.IDs() {
			set[id] = struct{}{}
		}
	}
	return set, nil
}

func (f *fakeRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

func (f *fakeRepo) put(e expenses.Expense) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[e.ID] = e
}

type fakeTypes map[uuid.UUID]bool

func (f fakeTypes) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return f[id], nil
}

// faultyStore fails Put for listed filenames and Delete for listed ids.
type faultyStore struct {
	storage.System
	failPut    map[string]bool
	failDelete map[string]bool
}

func (s *faultyStore) Put(ctx context.Context, in storage.PutInput) (storage.Blob, error) {
	if s.failPut[in.Filename] {
		return storage.Blob{}, errors.Join(storage.ErrWrite, errors.New("upstream rejected write"))
	}
	return s.System.Put(ctx, in)
}

func (s *faultyStore) Delete(ctx context.Context, id string) error {
	if s.failDelete[id] {
		return errors.New("transport closed")
	}
	return s.System.Delete(ctx, id)
}

type harness struct {
	sys    expenses.System
	repo   *fakeRepo
	store  *faultyStore
	typeID uuid.UUID
}

func newHarness(t *testing.T, policy attachments.Policy) *harness {
	t.Helper()

	cfg := &storage.Config{Filesystem: storage.FilesystemConfig{BasePath: t.TempDir()}}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	base, err := storage.New(cfg, testLogger())
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}

	lc := lifecycle.New()
	if err := base.Start(lc); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	lc.WaitForStartup()
	t.Cleanup(func() { lc.Shutdown(time.Second) })

	pool, err := ants.NewPool(4)
	if err != nil {
		t.Fatalf("ants.NewPool() error = %v", err)
	}
	t.Cleanup(pool.Release)

	store := &faultyStore{System: base, failPut: map[string]bool{}, failDelete: map[string]bool{}}
	repo := newFakeRepo()
	typeID := uuid.New()

	sys := expenses.New(
		repo,
		fakeTypes{typeID: true},
		store,
		attachments.NewUploader(store, pool, policy, testLogger()),
		attachments.NewResolver(store, testLogger()),
		testLogger(),
	)

	return &harness{sys: sys, repo: repo, store: store, typeID: typeID}
}

func (h *harness) blobCount(t *testing.T) int {
	t.Helper()
	n := 0
	if err := h.store.Walk(context.Background(), func(storage.Blob) error {
		n++
		return nil
	}); err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	return n
}

func (h *harness) exists(t *testing.T, id string) bool {
	t.Helper()
	_, err := h.store.Stat(context.Background(), id)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Stat(%s) error = %v", id, err)
	}
	return err == nil
}

func (h *harness) fields() expenses.Fields {
	return expenses.Fields{
		ExpenseTypeID: h.typeID,
		Title:         "Client visit",
		Date:          time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Amount:        1250.5,
		PaymentMode:   "Card",
		BillAvailable: true,
		UserEmail:     "field.engineer@example.com",
	}
}

func upload(name string) attachments.Upload {
	content := []byte("contents of " + name)
	return attachments.Upload{
		Filename:    name,
		ContentType: "text/plain",
		Size:        int64(len(content)),
		Body:        bytes.NewReader(content),
	}
}

func uploads(names ...string) []attachments.Upload {
	out := make([]attachments.Upload, len(names))
	for i, n := range names {
		out[i] = upload(n)
	}
	return out
}

func filenames(refs attachments.List) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		d, _ := r.Descriptor()
		out[i] = d.Filename
	}
	return out
}
