package expenses

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/JaimeStill/expense-api/internal/attachments"
	"github.com/JaimeStill/expense-api/pkg/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// blobDeleteLimit bounds concurrent blob deletes during cascade delete.
const blobDeleteLimit = 8

// TypeChecker reports whether an expense type exists.
type TypeChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// System defines expense operations.
type System interface {
	Handler(maxUploadSize int64) *Handler
	List(ctx context.Context, userEmail string) ([]View, error)
	Find(ctx context.Context, id uuid.UUID) (View, error)
	Create(ctx context.Context, cmd CreateCommand) (Expense, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (View, error)
	Delete(ctx context.Context, ids []string) (DeleteResult, error)
	DeleteOne(ctx context.Context, id uuid.UUID) (DeleteResult, error)
	RemoveAttachment(ctx context.Context, id uuid.UUID, blobID string) (Expense, error)
	ReferencedBlobIDs(ctx context.Context) (map[string]struct{}, error)
}

type system struct {
	repo     Repository
	types    TypeChecker
	store    storage.System
	uploader *attachments.Uploader
	resolver *attachments.Resolver
	logger   *slog.Logger
}

// New creates the expense system.
func New(
	repo Repository,
	types TypeChecker,
	store storage.System,
	uploader *attachments.Uploader,
	resolver *attachments.Resolver,
	logger *slog.Logger,
) System {
	return &system{
		repo:     repo,
		types:    types,
		store:    store,
		uploader: uploader,
		resolver: resolver,
		logger:   logger.With("system", "expenses"),
	}
}

func (s *system) Handler(maxUploadSize int64) *Handler {
	return NewHandler(s, s.logger, maxUploadSize)
}

func (s *system) List(ctx context.Context, userEmail string) ([]View, error) {
	items, err := s.repo.List(ctx, userEmail)
	if err != nil {
		return nil, err
	}

	views := make([]View, len(items))
	for i, e := range items {
		views[i] = s.view(ctx, e)
	}
	return views, nil
}

func (s *system) Find(ctx context.Context, id uuid.UUID) (View, error) {
	e, err := s.repo.Find(ctx, id)
	if err != nil {
		return View{}, err
	}
	return s.view(ctx, e), nil
}

// Create validates the expense type before any blob is written, uploads
// the files, and inserts the record once with its attachments. Blobs are
// removed again if the insert fails.
func (s *system) Create(ctx context.Context, cmd CreateCommand) (Expense, error) {
	if err := validateFields(cmd.Fields); err != nil {
		return Expense{}, err
	}
	if err := s.checkType(ctx, cmd.ExpenseTypeID); err != nil {
		return Expense{}, err
	}

	refs, err := s.uploader.Upload(ctx, cmd.Files)
	if err != nil {
		return Expense{}, err
	}

	e := Expense{
		ID:            uuid.New(),
		ExpenseTypeID: cmd.ExpenseTypeID,
		Title:         cmd.Title,
		Date:          cmd.Date,
		Amount:        cmd.Amount,
		PaymentMode:   cmd.PaymentMode,
		BillAvailable: cmd.BillAvailable,
		UserEmail:     cmd.UserEmail,
		Description:   cmd.Description,
		CarNumber:     cmd.CarNumber,
		ServiceType:   cmd.ServiceType,
		Location:      cmd.Location,
		EquipmentName: cmd.EquipmentName,
		EquipmentType: cmd.EquipmentType,
		Attachments:   refs,
	}

	created, err := s.repo.Insert(ctx, e)
	if err != nil {
		s.uploader.Discard(context.WithoutCancel(ctx), refs)
		return Expense{}, err
	}

	s.logger.Info("expense created", "id", created.ID, "attachments", len(refs))
	return created, nil
}

// Update reconciles attachments against the kept set. The record is
// written before removed blobs are deleted, so it never references a
// blob that is already gone. The write always happens, refreshing
// updatedAt even when nothing changed.
func (s *system) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (View, error) {
	existing, err := s.repo.Find(ctx, id)
	if err != nil {
		return View{}, err
	}

	if err := validatePatch(cmd.Patch); err != nil {
		return View{}, err
	}
	if cmd.ExpenseTypeID != nil {
		if err := s.checkType(ctx, *cmd.ExpenseTypeID); err != nil {
			return View{}, err
		}
	}

	kept, ok := attachments.ParseKept(cmd.Kept)
	if !ok {
		s.logger.Warn("malformed kept attachments, keeping none", "id", id)
	}

	retain, remove := attachments.Partition(existing.Attachments, kept)
	retain = s.resolver.Normalize(ctx, retain)

	added, err := s.uploader.Upload(ctx, cmd.NewFiles)
	if err != nil {
		return View{}, err
	}

	final := make(attachments.List, 0, len(retain)+len(added))
	final = append(final, retain...)
	final = append(final, added...)

	updated, err := s.repo.Update(ctx, id, cmd.Patch, final)
	if err != nil {
		s.uploader.Discard(context.WithoutCancel(ctx), added)
		return View{}, err
	}

	if failed := s.deleteBlobs(context.WithoutCancel(ctx), remove); len(failed) > 0 {
		s.logger.Warn("removed attachments left in storage", "id", id, "blob_ids", failed)
	}

	s.logger.Info("expense updated",
		"id", id, "retained", len(retain), "added", len(added), "removed", len(remove))
	return s.view(ctx, updated), nil
}

// Delete removes each expense and then its blobs. Ids that are malformed
// or absent are reported as not found; blob failures are reported but
// never stop a record from being deleted.
func (s *system) Delete(ctx context.Context, ids []string) (DeleteResult, error) {
	result := DeleteResult{
		Message:             "Expense delete operation completed",
		DeletedExpenseIDs:   []string{},
		NotFoundExpenseIDs:  []string{},
		FailedAttachmentIDs: []string{},
	}

	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			result.NotFoundExpenseIDs = append(result.NotFoundExpenseIDs, raw)
			continue
		}

		failed, err := s.deleteOne(ctx, id)
		if errors.Is(err, ErrNotFound) {
			result.NotFoundExpenseIDs = append(result.NotFoundExpenseIDs, raw)
			continue
		}
		if err != nil {
			return result, fmt.Errorf("delete %s: %w", raw, err)
		}

		result.DeletedExpenseIDs = append(result.DeletedExpenseIDs, raw)
		result.FailedAttachmentIDs = append(result.FailedAttachmentIDs, failed...)
	}

	result.DeletedCount = len(result.DeletedExpenseIDs)
	return result, nil
}

func (s *system) DeleteOne(ctx context.Context, id uuid.UUID) (DeleteResult, error) {
	failed, err := s.deleteOne(ctx, id)
	if err != nil {
		return DeleteResult{}, err
	}

	return DeleteResult{
		Message:             "Expense deleted successfully",
		DeletedCount:        1,
		DeletedExpenseIDs:   []string{id.String()},
		NotFoundExpenseIDs:  []string{},
		FailedAttachmentIDs: failed,
	}, nil
}

func (s *system) deleteOne(ctx context.Context, id uuid.UUID) ([]string, error) {
	atts, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	failed := s.deleteBlobs(context.WithoutCancel(ctx), atts)
	s.logger.Info("expense deleted", "id", id, "attachments", len(atts), "failed_blob_deletes", len(failed))
	return failed, nil
}

// RemoveAttachment drops one reference from the expense and then deletes
// the blob. A blob the expense does not reference is left untouched.
func (s *system) RemoveAttachment(ctx context.Context, id uuid.UUID, blobID string) (Expense, error) {
	if err := storage.ValidateID(blobID); err != nil {
		return Expense{}, err
	}

	existing, err := s.repo.Find(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	if !existing.Attachments.Contains(blobID) {
		return Expense{}, ErrAttachmentNotFound
	}

	updated, err := s.repo.PullAttachment(ctx, id, blobID)
	if err != nil {
		return Expense{}, err
	}

	if err := s.store.Delete(context.WithoutCancel(ctx), blobID); err != nil {
		s.logger.Warn("attachment blob delete failed", "id", id, "blob_id", blobID, "error", err)
	}

	s.logger.Info("attachment removed", "id", id, "blob_id", blobID)
	return updated, nil
}

func (s *system) ReferencedBlobIDs(ctx context.Context) (map[string]struct{}, error) {
	return s.repo.ReferencedBlobIDs(ctx)
}

func (s *system) view(ctx context.Context, e Expense) View {
	return View{
		Expense:     e,
		Attachments: s.resolver.Resolve(ctx, e.Attachments),
	}
}

func (s *system) checkType(ctx context.Context, id uuid.UUID) error {
	exists, err := s.types.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("check expense type: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: invalid expenseTypeId", ErrValidation)
	}
	return nil
}

// deleteBlobs deletes every referenced blob concurrently and returns the
// ids that could not be deleted.
func (s *system) deleteBlobs(ctx context.Context, refs attachments.List) []string {
	failed := []string{}
	if len(refs) == 0 {
		return failed
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(blobDeleteLimit)

	for _, ref := range refs {
		g.Go(func() error {
			if err := s.store.Delete(ctx, ref.ID()); err != nil {
				s.logger.Error("blob delete failed", "blob_id", ref.ID(), "error", err)
				mu.Lock()
				failed = append(failed, ref.ID())
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	return failed
}

func validateFields(f Fields) error {
	var missing []string
	if f.ExpenseTypeID == uuid.Nil {
		missing = append(missing, "expenseTypeId")
	}
	if strings.TrimSpace(f.Title) == "" {
		missing = append(missing, "title")
	}
	if f.Date.IsZero() {
		missing = append(missing, "date")
	}
	if strings.TrimSpace(f.UserEmail) == "" {
		missing = append(missing, "userEmail")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
	}
	if f.Amount < 0 {
		return fmt.Errorf("%w: amount must not be negative", ErrValidation)
	}
	return nil
}

func validatePatch(p Patch) error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return fmt.Errorf("%w: title must not be empty", ErrValidation)
	}
	if p.UserEmail != nil && strings.TrimSpace(*p.UserEmail) == "" {
		return fmt.Errorf("%w: userEmail must not be empty", ErrValidation)
	}
	if p.Amount != nil && *p.Amount < 0 {
		return fmt.Errorf("%w: amount must not be negative", ErrValidation)
	}
	return nil
}
