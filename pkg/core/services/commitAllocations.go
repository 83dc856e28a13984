package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/crewfinder/pkg/core/model"
	"github.com/example/crewfinder/pkg/core/search"
	"github.com/example/crewfinder/pkg/core/selection"
	"github.com/example/crewfinder/pkg/core/window"
	"github.com/example/crewfinder/pkg/db"
)

// CommitStore defines the allocation persistence needed for a commit
type CommitStore interface {
	InsertAllocations(ctx context.Context, allocations []db.ResourceAllocation) error
	GetAllocationsByIdempotencyKey(ctx context.Context, key string) ([]db.ResourceAllocation, error)
	UpdateAllocationStatus(ctx context.Context, allocationID, status string) error
}

// InvitationSender defines the outbound mail operation used to invite the
// provider behind each committed allocation
type InvitationSender interface {
	SendEmail(to, subject, body string) error
}

// DispatchWarning reports one failed invitation dispatch. The allocation
// itself exists regardless
type DispatchWarning struct {
	AllocationID string
	ResourceID   string
	Err          error
}

// CommitResult contains the committed allocations in priority order plus
// any per-allocation dispatch warnings
type CommitResult struct {
	Allocations []model.ResourceAllocation
	Warnings    []DispatchWarning

	// Replayed is true when the commit key matched an earlier commit and
	// the stored allocations were returned instead of creating duplicates
	Replayed bool
}

// CommitAllocations converts a selection session into persisted allocation
// records and dispatches one invitation per allocation. Creation is a
// single atomic step: if the bulk insert fails nothing is committed and
// the error wraps model.ErrAllocationCreate. Invitation dispatch runs
// after creation, independently per allocation and best-effort; a failed
// dispatch never rolls the allocation back and never blocks the remaining
// dispatches. After its dispatch attempt an allocation moves from
// pre_selected to invited regardless of the dispatch outcome
func CommitAllocations(
	ctx context.Context,
	database CommitStore,
	mailer InvitationSender,
	logger *zap.Logger,
	session selection.Session,
	candidates []search.Candidate,
	tradeID string,
	searchWindow model.Window,
) (*CommitResult, error) {
	members := session.Members()
	if len(members) == 0 {
		return nil, fmt.Errorf("selection is empty, nothing to commit")
	}
	if tradeID == "" {
		return nil, fmt.Errorf("trade id is required")
	}

	logger.Info("Starting allocation commit",
		zap.String("trade_id", tradeID),
		zap.Int("selected", len(members)))

	candidatesByID := make(map[string]search.Candidate, len(candidates))
	for _, c := range candidates {
		candidatesByID[c.Resource.ID] = c
	}

	// Step 1: A commit retried after a network failure must not create a
	// second batch, so look up the commit key first
	key := commitKey(tradeID, members, searchWindow)
	existing, err := database.GetAllocationsByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check for an earlier commit: %w", err)
	}
	if len(existing) > 0 {
		logger.Info("Commit key matched an earlier commit, returning stored allocations",
			zap.String("idempotency_key", key),
			zap.Int("count", len(existing)))

		result := &CommitResult{Replayed: true}
		for _, rec := range existing {
			result.Allocations = append(result.Allocations, rec.ToModel())
		}
		return result, nil
	}

	// Step 2: Build one draft per member, in session order; the list
	// position becomes the allocation priority
	now := time.Now().UTC()
	drafts := make([]db.ResourceAllocation, 0, len(members))
	resources := make([]model.Resource, 0, len(members))

	for i, member := range members {
		candidate, ok := candidatesByID[member.ResourceID]
		if !ok {
			return nil, fmt.Errorf("selected resource %s is not in the candidate set", member.ResourceID)
		}
		resource := candidate.Resource

		effective := searchWindow
		notes := ""
		if member.Preferred != nil {
			effective = member.Preferred.Window
			notes = member.Preferred.Notes
		}
		if notes == "" {
			notes = windowSummary(resource.Availability, effective)
		}

		drafts = append(drafts, db.ResourceAllocation{
			ID:             uuid.New().String(),
			ResourceID:     resource.ID,
			TradeID:        tradeID,
			PersonCount:    resource.PersonCount,
			StartDate:      effective.Start,
			EndDate:        effective.End,
			Status:         string(model.AllocationPreSelected),
			Priority:       i,
			Notes:          notes,
			IdempotencyKey: key,
			CreatedAt:      now,
		})
		resources = append(resources, resource)
	}

	// Step 3: Atomic bulk creation
	if err := database.InsertAllocations(ctx, drafts); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrAllocationCreate, err)
	}
	logger.Info("Allocations created", zap.Int("count", len(drafts)))

	// Step 4: Dispatch invitations, one per allocation
	result := &CommitResult{}
	for i, draft := range drafts {
		resource := resources[i]

		if err := dispatchInvitation(mailer, resource, draft, tradeID); err != nil {
			logger.Warn("Invitation dispatch failed",
				zap.String("allocation_id", draft.ID),
				zap.String("resource_id", resource.ID),
				zap.Error(err))
			result.Warnings = append(result.Warnings, DispatchWarning{
				AllocationID: draft.ID,
				ResourceID:   resource.ID,
				Err:          fmt.Errorf("%w: %w", model.ErrNotificationDispatch, err),
			})
		}

		// The dispatch was attempted, so the allocation is now invited.
		// The status update itself is best-effort
		draft.Status = string(model.AllocationInvited)
		if err := database.UpdateAllocationStatus(ctx, draft.ID, draft.Status); err != nil {
			logger.Warn("Failed to record allocation status transition",
				zap.String("allocation_id", draft.ID),
				zap.Error(err))
		}

		result.Allocations = append(result.Allocations, draft.ToModel())
	}

	logger.Info("Allocation commit complete",
		zap.String("trade_id", tradeID),
		zap.Int("allocations", len(result.Allocations)),
		zap.Int("dispatch_warnings", len(result.Warnings)))

	return result, nil
}

// commitKey derives the idempotency key for a commit from the trade, the
// sorted member ids, and the search window
func commitKey(tradeID string, members []selection.Member, searchWindow model.Window) string {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ResourceID
	}
	sort.Strings(ids)

	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s",
		tradeID,
		strings.Join(ids, ","),
		searchWindow.Start.Format("2006-01-02"),
		searchWindow.End.Format("2006-01-02"))
	return hex.EncodeToString(h.Sum(nil))
}

// windowSummary builds the default allocation notes: the requested range
// and how much of the offered availability it consumes
func windowSummary(availability, effective model.Window) string {
	ratio := window.Utilization(availability, effective)
	return fmt.Sprintf("Requested %s to %s (%d of %d offered days, %.0f%%)",
		effective.Start.Format("2006-01-02"),
		effective.End.Format("2006-01-02"),
		window.Days(effective),
		window.Days(availability),
		ratio*100)
}

// dispatchInvitation sends the invitation email for one allocation
func dispatchInvitation(mailer InvitationSender, resource model.Resource, alloc db.ResourceAllocation, tradeID string) error {
	if resource.Email == "" {
		return fmt.Errorf("resource %s has no email address", resource.ID)
	}

	subject := fmt.Sprintf("Crew request: %s from %s to %s",
		resource.Category,
		alloc.StartDate.Format("2006-01-02"),
		alloc.EndDate.Format("2006-01-02"))

	body := fmt.Sprintf(
		"Hello %s,\n\n"+
			"You have been requested for trade %s:\n\n"+
			"  Period:  %s to %s\n"+
			"  Crew:    %d person(s)\n"+
			"  Notes:   %s\n\n"+
			"Please reply to confirm or decline this request.\n",
		resource.Name,
		tradeID,
		alloc.StartDate.Format("2006-01-02"),
		alloc.EndDate.Format("2006-01-02"),
		alloc.PersonCount,
		alloc.Notes)

	return mailer.SendEmail(resource.Email, subject, body)
}
