package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/data/db"
	"github.com/veldtops/fieldsuite-backend/internal/data/repos"
	"github.com/veldtops/fieldsuite-backend/internal/domain/sla"
	"github.com/veldtops/fieldsuite-backend/internal/domain/ticket"
	"github.com/veldtops/fieldsuite-backend/internal/observability"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
	"github.com/veldtops/fieldsuite-backend/internal/realtime"
)

type CreatePolicyInput struct {
	Name                       string
	Description                string
	Priority                   *ticket.Priority
	TicketType                 *ticket.Type
	CustomerTier               *ticket.Tier
	ResponseTimeHours          float64
	ResolutionTimeHours        float64
	EscalationThresholdPercent int
	IsDefault                  bool
}

type UpdatePolicyInput struct {
	Name                       *string
	Description                *string
	ResponseTimeHours          *float64
	ResolutionTimeHours        *float64
	EscalationThresholdPercent *int
	IsActive                   *bool
}

// ScanResult reports what one deadline sweep did.
type ScanResult struct {
	Checked   int `json:"checked"`
	Escalated int `json:"escalated"`
	Breached  int `json:"breached"`
}

type SLAService interface {
	CreatePolicy(ctx context.Context, orgID uuid.UUID, in CreatePolicyInput) (*sla.Policy, error)
	GetPolicy(dbc dbctx.Context, orgID, policyID uuid.UUID) (*sla.Policy, error)
	ListPolicies(dbc dbctx.Context, orgID uuid.UUID, activeOnly bool) ([]*sla.Policy, error)
	UpdatePolicy(ctx context.Context, orgID, policyID uuid.UUID, in UpdatePolicyInput) (*sla.Policy, error)
	SetDefaultPolicy(ctx context.Context, orgID, policyID uuid.UUID) error
	// DeletePolicy refuses while any tracking row still references the policy.
	DeletePolicy(ctx context.Context, orgID, policyID uuid.UUID) error

	// AttachTracking picks the best matching active policy for a fresh ticket
	// and opens its clocks. No matching policy and no default means the
	// ticket goes untracked.
	AttachTracking(dbc dbctx.Context, t *ticket.Ticket) (*sla.Tracking, error)
	// RematchTracking re-picks the policy after the ticket's matching facets
	// changed. Only trackings with a pending response clock are rebound.
	RematchTracking(dbc dbctx.Context, t *ticket.Ticket) (*sla.Tracking, error)
	TrackingForTicket(dbc dbctx.Context, orgID, ticketID uuid.UUID) (*sla.Tracking, error)

	SettleResponse(dbc dbctx.Context, ticketID uuid.UUID, at time.Time) error
	SettleResolution(dbc dbctx.Context, ticketID uuid.UUID, at time.Time) error
	ReopenResolution(dbc dbctx.Context, ticketID uuid.UUID) error

	// EscalationCandidates lists trackings whose response clock has burned
	// past the policy threshold but not yet the deadline.
	EscalationCandidates(dbc dbctx.Context, orgID uuid.UUID) ([]*sla.Tracking, error)

	// Scan sweeps unsettled trackings for crossed deadlines and due
	// escalations. Called by the background worker.
	Scan(ctx context.Context, batchSize int) (*ScanResult, error)

	Summary(dbc dbctx.Context, orgID uuid.UUID, from, to time.Time) (*repos.SLASummary, error)
}

type slaService struct {
	db           *gorm.DB
	log          *logger.Logger
	policyRepo   repos.SLAPolicyRepo
	trackingRepo repos.SLATrackingRepo
	events       EventPublisher
}

func NewSLAService(gdb *gorm.DB, baseLog *logger.Logger, policyRepo repos.SLAPolicyRepo, trackingRepo repos.SLATrackingRepo, events EventPublisher) SLAService {
	return &slaService{
		db:           gdb,
		log:          baseLog.With("service", "SLAService"),
		policyRepo:   policyRepo,
		trackingRepo: trackingRepo,
		events:       events,
	}
}

func (s *slaService) CreatePolicy(ctx context.Context, orgID uuid.UUID, in CreatePolicyInput) (*sla.Policy, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, db.ValidationError("policy name is required")
	}
	if in.ResponseTimeHours <= 0 || in.ResolutionTimeHours <= 0 {
		return nil, db.ValidationError("response and resolution windows must be positive")
	}
	if in.ResolutionTimeHours < in.ResponseTimeHours {
		return nil, db.ValidationError("resolution window cannot be shorter than the response window")
	}
	if in.Priority != nil && !in.Priority.Valid() {
		return nil, db.ValidationError("unknown priority matcher")
	}
	if in.TicketType != nil && !in.TicketType.Valid() {
		return nil, db.ValidationError("unknown ticket type matcher")
	}
	if in.CustomerTier != nil && !in.CustomerTier.Valid() {
		return nil, db.ValidationError("unknown customer tier matcher")
	}
	threshold := in.EscalationThresholdPercent
	if threshold <= 0 || threshold > 100 {
		threshold = 80
	}

	var created *sla.Policy
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		rows, err := s.policyRepo.Create(dbc, []*sla.Policy{{
			OrgID:                      orgID,
			Name:                       name,
			Description:                strings.TrimSpace(in.Description),
			Priority:                   in.Priority,
			TicketType:                 in.TicketType,
			CustomerTier:               in.CustomerTier,
			ResponseTimeHours:          in.ResponseTimeHours,
			ResolutionTimeHours:        in.ResolutionTimeHours,
			EscalationThresholdPercent: threshold,
			IsActive:                   true,
		}})
		if err != nil {
			return db.MapError("create sla policy", err)
		}
		created = rows[0]
		if in.IsDefault {
			if err := s.policyRepo.SetDefault(dbc, orgID, created.ID); err != nil {
				return db.MapError("set default sla policy", err)
			}
			created.IsDefault = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *slaService) GetPolicy(dbc dbctx.Context, orgID, policyID uuid.UUID) (*sla.Policy, error) {
	return s.orgPolicy(dbc, orgID, policyID)
}

func (s *slaService) ListPolicies(dbc dbctx.Context, orgID uuid.UUID, activeOnly bool) ([]*sla.Policy, error) {
	rows, err := s.policyRepo.ListByOrg(dbc, orgID, activeOnly)
	if err != nil {
		return nil, db.MapError("list sla policies", err)
	}
	return rows, nil
}

func (s *slaService) UpdatePolicy(ctx context.Context, orgID, policyID uuid.UUID, in UpdatePolicyInput) (*sla.Policy, error) {
	dbc := dbctx.Context{Ctx: ctx}
	policy, err := s.orgPolicy(dbc, orgID, policyID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, db.ValidationError("policy name is required")
		}
		updates["name"] = name
	}
	setString(updates, "description", in.Description)
	response := policy.ResponseTimeHours
	resolution := policy.ResolutionTimeHours
	if in.ResponseTimeHours != nil {
		response = *in.ResponseTimeHours
		updates["response_time_hours"] = response
	}
	if in.ResolutionTimeHours != nil {
		resolution = *in.ResolutionTimeHours
		updates["resolution_time_hours"] = resolution
	}
	if response <= 0 || resolution <= 0 || resolution < response {
		return nil, db.ValidationError("invalid response/resolution windows")
	}
	if in.EscalationThresholdPercent != nil {
		if *in.EscalationThresholdPercent <= 0 || *in.EscalationThresholdPercent > 100 {
			return nil, db.ValidationError("escalation threshold must be in (0,100]")
		}
		updates["escalation_threshold_percent"] = *in.EscalationThresholdPercent
	}
	if in.IsActive != nil {
		if !*in.IsActive && policy.IsDefault {
			return nil, db.ConflictError("cannot deactivate the default policy")
		}
		updates["is_active"] = *in.IsActive
	}
	if len(updates) > 0 {
		if err := s.policyRepo.UpdateFields(dbc, policyID, updates); err != nil {
			return nil, db.MapError("update sla policy", err)
		}
	}
	return s.orgPolicy(dbc, orgID, policyID)
}

func (s *slaService) SetDefaultPolicy(ctx context.Context, orgID, policyID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		policy, err := s.orgPolicy(dbc, orgID, policyID)
		if err != nil {
			return err
		}
		if !policy.IsActive {
			return db.ConflictError("cannot make an inactive policy the default")
		}
		return db.MapError("set default sla policy", s.policyRepo.SetDefault(dbc, orgID, policyID))
	})
}

func (s *slaService) DeletePolicy(ctx context.Context, orgID, policyID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		policy, err := s.orgPolicy(dbc, orgID, policyID)
		if err != nil {
			return err
		}
		if policy.IsDefault {
			return db.ConflictError("cannot delete the default policy")
		}
		refs, err := s.trackingRepo.CountByPolicyID(dbc, policyID)
		if err != nil {
			return db.MapError("count policy references", err)
		}
		if refs > 0 {
			return db.ConflictError("policy is referenced by sla tracking; deactivate it instead")
		}
		return db.MapError("delete sla policy", s.policyRepo.SoftDeleteByID(dbc, policyID))
	})
}

func (s *slaService) AttachTracking(dbc dbctx.Context, t *ticket.Ticket) (*sla.Tracking, error) {
	policies, err := s.policyRepo.ListByOrg(dbc, t.OrgID, true)
	if err != nil {
		return nil, db.MapError("list sla policies", err)
	}
	vals := make([]sla.Policy, len(policies))
	for i, p := range policies {
		vals[i] = *p
	}
	best := sla.BestMatch(vals, t)
	if best == nil {
		return nil, nil
	}
	rows, err := s.trackingRepo.Create(dbc, []*sla.Tracking{{
		OrgID:              t.OrgID,
		TicketID:           t.ID,
		PolicyID:           best.ID,
		ResponseDeadline:   best.ResponseDeadline(t.CreatedAt),
		ResolutionDeadline: best.ResolutionDeadline(t.CreatedAt),
		ResponseStatus:     sla.TrackingPending,
		ResolutionStatus:   sla.TrackingPending,
	}})
	if err != nil {
		return nil, db.MapError("create sla tracking", err)
	}
	return rows[0], nil
}

func (s *slaService) RematchTracking(dbc dbctx.Context, t *ticket.Ticket) (*sla.Tracking, error) {
	tracking, err := s.trackingRepo.GetByTicketID(dbc, t.ID)
	if err != nil {
		return nil, db.MapError("fetch sla tracking", err)
	}
	if tracking == nil {
		// A facet change can bring a previously untracked ticket into scope.
		return s.AttachTracking(dbc, t)
	}
	if tracking.ResponseStatus != sla.TrackingPending {
		return tracking, nil
	}

	policies, err := s.policyRepo.ListByOrg(dbc, t.OrgID, true)
	if err != nil {
		return nil, db.MapError("list sla policies", err)
	}
	vals := make([]sla.Policy, len(policies))
	for i, p := range policies {
		vals[i] = *p
	}
	best := sla.BestMatch(vals, t)
	if best == nil || best.ID == tracking.PolicyID {
		return tracking, nil
	}
	updates := map[string]any{
		"policy_id":           best.ID,
		"response_deadline":   best.ResponseDeadline(t.CreatedAt),
		"resolution_deadline": best.ResolutionDeadline(t.CreatedAt),
	}
	if err := s.trackingRepo.UpdateFields(dbc, tracking.ID, updates); err != nil {
		return nil, db.MapError("rebind sla tracking", err)
	}
	return s.trackingRepo.GetByID(dbc, tracking.ID)
}

func (s *slaService) TrackingForTicket(dbc dbctx.Context, orgID, ticketID uuid.UUID) (*sla.Tracking, error) {
	tracking, err := s.trackingRepo.GetByTicketID(dbc, ticketID)
	if err != nil {
		return nil, db.MapError("fetch sla tracking", err)
	}
	if tracking == nil || tracking.OrgID != orgID {
		return nil, db.NotFoundError("no sla tracking for ticket")
	}
	return tracking, nil
}

func (s *slaService) SettleResponse(dbc dbctx.Context, ticketID uuid.UUID, at time.Time) error {
	tracking, err := s.trackingRepo.GetByTicketID(dbc, ticketID)
	if err != nil {
		return db.MapError("fetch sla tracking", err)
	}
	if tracking == nil || tracking.ResponseBreachHours != nil {
		return nil
	}
	tracking.SettleResponse(at)
	return db.MapError("settle sla response", s.trackingRepo.UpdateFields(dbc, tracking.ID, map[string]any{
		"response_status":       tracking.ResponseStatus,
		"response_breach_hours": tracking.ResponseBreachHours,
	}))
}

func (s *slaService) SettleResolution(dbc dbctx.Context, ticketID uuid.UUID, at time.Time) error {
	tracking, err := s.trackingRepo.GetByTicketID(dbc, ticketID)
	if err != nil {
		return db.MapError("fetch sla tracking", err)
	}
	if tracking == nil || tracking.ResolutionBreachHours != nil {
		return nil
	}
	tracking.SettleResolution(at)
	return db.MapError("settle sla resolution", s.trackingRepo.UpdateFields(dbc, tracking.ID, map[string]any{
		"resolution_status":       tracking.ResolutionStatus,
		"resolution_breach_hours": tracking.ResolutionBreachHours,
	}))
}

func (s *slaService) ReopenResolution(dbc dbctx.Context, ticketID uuid.UUID) error {
	tracking, err := s.trackingRepo.GetByTicketID(dbc, ticketID)
	if err != nil {
		return db.MapError("fetch sla tracking", err)
	}
	if tracking == nil {
		return nil
	}
	tracking.ReopenResolution()
	return db.MapError("reopen sla resolution", s.trackingRepo.UpdateFields(dbc, tracking.ID, map[string]any{
		"resolution_status":       sla.TrackingPending,
		"resolution_breach_hours": nil,
	}))
}

func (s *slaService) EscalationCandidates(dbc dbctx.Context, orgID uuid.UUID) ([]*sla.Tracking, error) {
	rows, err := s.trackingRepo.ListPendingResponseByOrg(dbc, orgID, 500)
	if err != nil {
		return nil, db.MapError("list escalation candidates", err)
	}
	now := time.Now().UTC()
	out := make([]*sla.Tracking, 0, len(rows))
	for _, tr := range rows {
		if tr.Policy == nil || !now.Before(tr.ResponseDeadline) {
			continue
		}
		if sla.EscalationDue(trackingTicketCreatedAt(tr), tr.ResponseDeadline, tr.Policy.EscalationThresholdPercent, now) {
			out = append(out, tr)
		}
	}
	return out, nil
}

func (s *slaService) Scan(ctx context.Context, batchSize int) (*ScanResult, error) {
	if batchSize <= 0 {
		batchSize = 200
	}
	result := &ScanResult{}
	now := time.Now().UTC()

	// Key-set cursor: settling a row removes it from the pending filter,
	// which would make offset pagination skip its neighbors.
	var afterCreated time.Time
	var afterID uuid.UUID
	for {
		dbc := dbctx.Context{Ctx: ctx}
		rows, err := s.trackingRepo.ListUnsettled(dbc, batchSize, afterCreated, afterID)
		if err != nil {
			return result, db.MapError("list unsettled sla trackings", err)
		}
		if len(rows) == 0 {
			break
		}
		for _, tr := range rows {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			result.Checked++
			s.checkTracking(dbc, tr, now, result)
		}
		last := rows[len(rows)-1]
		afterCreated, afterID = last.CreatedAt, last.ID
		if len(rows) < batchSize {
			break
		}
	}
	return result, nil
}

func (s *slaService) checkTracking(dbc dbctx.Context, tr *sla.Tracking, now time.Time, result *ScanResult) {
	updates := map[string]any{"last_checked_at": now}

	if tr.ResponseStatus == sla.TrackingPending && tr.Policy != nil && !tr.Escalated &&
		sla.EscalationDue(trackingTicketCreatedAt(tr), tr.ResponseDeadline, tr.Policy.EscalationThresholdPercent, now) &&
		now.Before(tr.ResponseDeadline) {
		flipped, err := s.trackingRepo.MarkEscalated(dbc, tr.ID, now)
		if err != nil {
			s.log.Warn("escalation flag update failed", "tracking_id", tr.ID, "error", err)
		} else if flipped {
			result.Escalated++
			observability.Current().IncSLAEscalated()
			s.events.Publish(dbc.Ctx, tr.OrgID, realtime.SSEEventSLAEscalated, map[string]any{
				"ticket_id":         tr.TicketID.String(),
				"response_deadline": tr.ResponseDeadline,
			})
		}
	}

	breachedKinds := make([]string, 0, 2)
	if tr.ResponseStatus == sla.TrackingPending && now.After(tr.ResponseDeadline) {
		updates["response_status"] = sla.TrackingBreached
		breachedKinds = append(breachedKinds, "response")
	}
	if tr.ResolutionStatus == sla.TrackingPending && now.After(tr.ResolutionDeadline) {
		updates["resolution_status"] = sla.TrackingBreached
		breachedKinds = append(breachedKinds, "resolution")
	}

	if err := s.trackingRepo.UpdateFields(dbc, tr.ID, updates); err != nil {
		s.log.Warn("sla tracking update failed", "tracking_id", tr.ID, "error", err)
		return
	}
	for _, kind := range breachedKinds {
		result.Breached++
		observability.Current().IncSLABreached(kind)
		s.events.Publish(dbc.Ctx, tr.OrgID, realtime.SSEEventSLABreached, map[string]any{
			"ticket_id": tr.TicketID.String(),
			"kind":      kind,
		})
	}
}

// trackingTicketCreatedAt prefers the preloaded ticket's creation time and
// falls back to the tracking row's own.
func trackingTicketCreatedAt(tr *sla.Tracking) time.Time {
	if tr.Ticket != nil {
		return tr.Ticket.CreatedAt
	}
	return tr.CreatedAt
}

func (s *slaService) Summary(dbc dbctx.Context, orgID uuid.UUID, from, to time.Time) (*repos.SLASummary, error) {
	summary, err := s.trackingRepo.SummaryByOrg(dbc, orgID, from, to)
	if err != nil {
		return nil, db.MapError("summarize sla", err)
	}
	return summary, nil
}

func (s *slaService) orgPolicy(dbc dbctx.Context, orgID, policyID uuid.UUID) (*sla.Policy, error) {
	policy, err := s.policyRepo.GetByID(dbc, policyID)
	if err != nil {
		return nil, db.MapError("fetch sla policy", err)
	}
	if policy == nil || policy.OrgID != orgID {
		return nil, db.NotFoundError("sla policy not found")
	}
	return policy, nil
}
