// Package contract orchestrates contract modifications: request validation,
// scheduling, execution of due changes and the change history.
package contract

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"

	"github.com/ManuelReschke/contracts/internal/pkg/apperror"
	"github.com/ManuelReschke/contracts/internal/pkg/change"
	"github.com/ManuelReschke/contracts/internal/pkg/entity"
	"github.com/ManuelReschke/contracts/internal/pkg/fieldmap"
	"github.com/ManuelReschke/contracts/internal/pkg/lock"
	"github.com/ManuelReschke/contracts/internal/pkg/metrics"
	"github.com/ManuelReschke/contracts/internal/pkg/options"
	"github.com/ManuelReschke/contracts/internal/pkg/payment"
	"github.com/ManuelReschke/contracts/internal/pkg/sepa"
)

// Settings are the runtime options governing modification requests.
type Settings struct {
	// MinimumChangeDate is the earliest allowed change date; zero for none.
	MinimumChangeDate time.Time
	DefaultMediumID   string
	CreditorUsesBIC   bool
}

// SettingsSource provides the current settings.
type SettingsSource interface {
	ContractSettings(ctx context.Context) (Settings, error)
}

// StaticSettings is a SettingsSource with fixed values.
type StaticSettings Settings

func (s StaticSettings) ContractSettings(context.Context) (Settings, error) {
	return Settings(s), nil
}

// Service runs contract modifications. Every mutating call holds the
// contract's lock.
type Service struct {
	deps     *change.Deps
	locker   lock.Locker
	settings SettingsSource
	metrics  *metrics.Changes
}

// NewService creates a contract service. m may be nil.
func NewService(deps *change.Deps, locker lock.Locker, settings SettingsSource, m *metrics.Changes) *Service {
	return &Service{deps: deps, locker: locker, settings: settings, metrics: m}
}

// ModifyResult reports the outcome of a modification request.
type ModifyResult struct {
	ChangeID int64         `json:"change_id"`
	Status   string        `json:"status"`
	Process  ProcessResult `json:"process"`
}

// ProcessResult lists the changes executed by one processing run.
type ProcessResult struct {
	Executed []int64  `json:"executed"`
	Failed   *Failure `json:"failed,omitempty"`
}

// Failure names the change that stopped a processing run.
type Failure struct {
	ChangeID int64  `json:"change_id"`
	Type     string `json:"type"`
	Message  string `json:"message"`
}

// Counts are the open changes of a contract.
type Counts struct {
	Scheduled   int64 `json:"scheduled"`
	NeedsReview int64 `json:"needs_review"`
}

// HistoryEntry is one change record of a contract.
type HistoryEntry struct {
	ID      int64         `json:"id"`
	Type    string        `json:"type"`
	Title   string        `json:"title"`
	Status  string        `json:"status"`
	Date    string        `json:"date"`
	Subject string        `json:"subject,omitempty"`
	Details string        `json:"details,omitempty"`
	Fields  entity.Record `json:"fields"`
}

func (s *Service) now() time.Time {
	if s.deps.Now == nil {
		return time.Now()
	}
	return s.deps.Now()
}

func (s *Service) acquire(ctx context.Context, contractID int64) (func(), error) {
	release, err := s.locker.Acquire(ctx, lock.ContractKey(contractID))
	if errors.Is(err, lock.ErrLocked) {
		s.metrics.LockConflict()
		fiberlog.Warnf("[Contract] Contract [%d] is locked by another request", contractID)
	}
	return release, err
}

// Modify validates the request, records it as a scheduled change and runs
// every change of the contract that is due.
func (s *Service) Modify(ctx context.Context, req ModifyRequest) (*ModifyResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	t, _ := change.ParseAction(req.Action)

	release, err := s.acquire(ctx, req.ContractID)
	if err != nil {
		return nil, err
	}
	defer release()

	ch, err := s.schedule(ctx, t, req)
	if err != nil {
		if apperror.IsValidation(err) {
			s.metrics.Observe(t.Action(), metrics.ResultRejected, 0)
		}
		return nil, err
	}
	s.metrics.Observe(t.Action(), metrics.ResultScheduled, 0)
	fiberlog.Infof("[Contract] Scheduled %s [%d] for contract [%d]", t, ch.ID(), req.ContractID)

	processed, err := s.processScheduled(ctx, req.ContractID)
	if err != nil {
		return nil, err
	}
	result := &ModifyResult{ChangeID: ch.ID(), Status: change.ActivityScheduled, Process: processed}
	for _, id := range processed.Executed {
		if id == ch.ID() {
			result.Status = change.ActivityCompleted
		}
	}
	if processed.Failed != nil && processed.Failed.ChangeID == ch.ID() {
		result.Status = change.ActivityNeedsReview
	}
	return result, nil
}

func (s *Service) schedule(ctx context.Context, t change.Type, req ModifyRequest) (*change.Change, error) {
	settings, err := s.settings.ContractSettings(ctx)
	if err != nil {
		return nil, err
	}
	probe := change.New(s.deps, t, entity.Record{"source_record_id": req.ContractID})
	contract, err := probe.GetContract(ctx)
	if err != nil {
		return nil, err
	}
	status, err := probe.ContractStatus(ctx)
	if err != nil {
		return nil, err
	}
	if err := change.CheckTransition(status, t); err != nil {
		return nil, err
	}

	date, err := changeDate(req.Date, t, s.now(), settings.MinimumChangeDate)
	if err != nil {
		return nil, err
	}

	medium := req.MediumID
	if medium == "" {
		medium = settings.DefaultMediumID
	}
	data := entity.Record{
		"source_record_id":   req.ContractID,
		"target_contact_id":  contract.Int64("contact_id"),
		"activity_date_time": date.Format(entity.DateTimeLayout),
		"subject":            fmt.Sprintf("%s [%d]", t.Title(), req.ContractID),
	}
	if medium != "" {
		data["medium_id"] = medium
	}
	if req.Note != "" {
		data["details"] = req.Note
	}

	switch t {
	case change.Cancel:
		data[fieldmap.ChangeCancelReason] = req.CancelReason
	case change.Pause:
		resume, ok := entity.ParseTime(req.ResumeDate)
		if !ok {
			return nil, apperror.Validation("resume_date", "Invalid resume date '%s'.", req.ResumeDate)
		}
		if resume.Before(date) {
			return nil, apperror.Validation("resume_date", "Resume date must not be before the scheduled pause date.")
		}
		data[fieldmap.ChangeResumeDate] = resume.Format(entity.DateLayout)
	case change.Update, change.Revive:
		data[fieldmap.ChangeMembershipType] = req.MembershipTypeID
		if req.CampaignID != 0 {
			data["campaign_id"] = req.CampaignID
		}
		if err := s.paymentData(ctx, req, settings, contract, data); err != nil {
			return nil, err
		}
	}

	ch := change.New(s.deps, t, data)
	if err := ch.SetStatus(ctx, change.ActivityScheduled); err != nil {
		return nil, err
	}
	if err := ch.Save(ctx); err != nil {
		return nil, err
	}
	return ch, nil
}

// paymentData adds the payment terms of update and revive requests. Without
// a payment option the contract keeps its payment.
func (s *Service) paymentData(ctx context.Context, req ModifyRequest, settings Settings, contract, data entity.Record) error {
	switch req.PaymentOption {
	case "", PaymentNoChange:
		return nil

	case PaymentSelect:
		ok, err := s.deps.Payments.IsAssignable(ctx, req.RecurringContribution, req.ContractID)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.Validation("recurring_contribution", "Recurring contribution [%d] is already used by another contract.", req.RecurringContribution)
		}
		data[fieldmap.ChangeRecurringContribution] = req.RecurringContribution
		return nil
	}

	if req.PaymentAmount != "" && req.PaymentFrequency == 0 {
		return apperror.Validation("payment_frequency", "Please specify a frequency when specifying an amount")
	}
	if req.PaymentFrequency != 0 && req.PaymentAmount == "" {
		return apperror.Validation("payment_amount", "Please specify an amount when specifying a frequency")
	}
	if req.PaymentAmount == "" {
		return apperror.Validation("payment_amount", "payment_amount is a required field.")
	}
	amount, err := sepa.ParseMoney(req.PaymentAmount)
	if err != nil {
		return apperror.Validation("payment_amount", "payment_amount must be a number.")
	}

	iban := sepa.NormalizeIBAN(req.IBAN)
	own, err := s.isOrganisationIBAN(ctx, iban)
	if err != nil {
		return err
	}
	if own {
		return apperror.Validation("iban", "Do not use any of the organisation's own IBANs")
	}
	if req.BIC == "" && settings.CreditorUsesBIC {
		return apperror.Validation("bic", "BIC is a required field.")
	}

	cycleDay := req.CycleDay
	if cycleDay == 0 {
		current, err := s.deps.Payments.CycleDay(ctx, contract.Int64(fieldmap.MembershipRecurringContribution))
		if err != nil {
			return err
		}
		cycleDay = current
	}
	if cycleDay == 0 {
		cycleDay = sepa.NextCycleDay(s.now(), 7)
	}
	annual := amount.Mul(decimal.NewFromInt(req.PaymentFrequency))
	data[fieldmap.ChangeAnnual] = sepa.FormatMoney(annual)
	data[fieldmap.ChangeFrequency] = req.PaymentFrequency
	data[fieldmap.ChangeCycleDay] = cycleDay
	data[fieldmap.ChangeFromBA] = iban
	if settings.CreditorUsesBIC {
		data["bic"] = strings.ToUpper(req.BIC)
	}
	return nil
}

func (s *Service) isOrganisationIBAN(ctx context.Context, iban string) (bool, error) {
	creditors, err := s.deps.Gateway.Find(ctx, entity.SepaCreditor, entity.Filter{})
	if err != nil {
		return false, err
	}
	for _, c := range creditors {
		if sepa.NormalizeIBAN(c.String("iban")) == iban {
			return true, nil
		}
	}
	return false, nil
}

// changeDate applies the defaults and limits of the change date.
func changeDate(raw string, t change.Type, now time.Time, minimum time.Time) (time.Time, error) {
	var date time.Time
	if strings.TrimSpace(raw) == "" {
		if t == change.Cancel {
			date = now.Truncate(time.Minute)
		} else {
			y, m, d := now.AddDate(0, 0, 1).Date()
			date = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
		}
		if !minimum.IsZero() && date.Before(minimum) {
			date = minimum
		}
		return date, nil
	}

	date, ok := entity.ParseTime(raw)
	if !ok {
		return time.Time{}, apperror.Validation("date", "Invalid date '%s'.", raw)
	}
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	if date.Before(midnight) {
		return time.Time{}, apperror.Validation("date", "Activity date must be either today (which will execute the change now) or in the future")
	}
	if !minimum.IsZero() && date.Before(minimum) {
		return time.Time{}, apperror.Validation("date", "Activity date must be after the minimum change date %s", minimum.Format("2 Jan 2006 03:04 pm"))
	}
	return date, nil
}

// ProcessScheduled executes the contract's due scheduled changes in date
// order. The first failing change is marked Needs Review and stops the run.
func (s *Service) ProcessScheduled(ctx context.Context, contractID int64) (ProcessResult, error) {
	release, err := s.acquire(ctx, contractID)
	if err != nil {
		return ProcessResult{}, err
	}
	defer release()
	return s.processScheduled(ctx, contractID)
}

func (s *Service) processScheduled(ctx context.Context, contractID int64) (ProcessResult, error) {
	result := ProcessResult{Executed: []int64{}}
	recs, err := s.changesInStatus(ctx, contractID, change.ActivityScheduled)
	if err != nil {
		return result, err
	}
	sortByDate(recs)

	now := s.now()
	for _, rec := range recs {
		if date, ok := entity.ParseTime(rec["activity_date_time"]); ok && date.After(now) {
			continue
		}

		start := time.Now()
		ch, err := change.ForData(ctx, s.deps, rec)
		if err == nil {
			err = ch.Execute(ctx)
		}
		typ := typeName(ch)
		if err != nil {
			s.metrics.Observe(typ, metrics.ResultNeedsReview, time.Since(start))
			fiberlog.Warnf("[Contract] Change [%d] of contract [%d] failed: %v", rec.ID(), contractID, err)
			if markErr := s.markNeedsReview(ctx, rec, err); markErr != nil {
				return result, markErr
			}
			result.Failed = &Failure{ChangeID: rec.ID(), Type: typ, Message: err.Error()}
			return result, nil
		}
		s.metrics.Observe(typ, metrics.ResultCompleted, time.Since(start))
		fiberlog.Infof("[Contract] Executed %s [%d] on contract [%d]", typ, rec.ID(), contractID)
		result.Executed = append(result.Executed, rec.ID())
	}
	return result, nil
}

func typeName(ch *change.Change) string {
	if ch == nil {
		return "unknown"
	}
	return ch.Type().Action()
}

func (s *Service) markNeedsReview(ctx context.Context, rec entity.Record, cause error) error {
	status, err := s.deps.Options.Value(ctx, options.GroupActivityStatus, change.ActivityNeedsReview)
	if err != nil {
		return err
	}
	details := rec.String("details")
	if details != "" {
		details += "\n\n"
	}
	details += "Error: " + cause.Error()
	if err := s.deps.Gateway.Update(ctx, entity.Activity, rec.ID(), entity.Record{
		"status_id": status,
		"details":   details,
	}); err != nil {
		return apperror.WriteFailed("update", "Change", rec.ID(), err)
	}
	return nil
}

func (s *Service) changesInStatus(ctx context.Context, contractID int64, status string) ([]entity.Record, error) {
	statusID, err := s.deps.Options.Value(ctx, options.GroupActivityStatus, status)
	if err != nil {
		return nil, err
	}
	filter, err := s.changeFilter(ctx, contractID)
	if err != nil {
		return nil, err
	}
	return s.deps.Gateway.Find(ctx, entity.Activity, filter.Eq("status_id", statusID))
}

func (s *Service) changeFilter(ctx context.Context, contractID int64) (entity.Filter, error) {
	typeIDs, err := s.deps.Registry.ActivityTypeIDs(ctx)
	if err != nil {
		return entity.Filter{}, err
	}
	return entity.Where("source_record_id", contractID).In("activity_type_id", entity.Strings(typeIDs)...), nil
}

func sortByDate(recs []entity.Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, _ := entity.ParseTime(recs[i]["activity_date_time"])
		b, _ := entity.ParseTime(recs[j]["activity_date_time"])
		if a.Equal(b) {
			return recs[i].ID() < recs[j].ID()
		}
		return a.Before(b)
	})
}

// OpenModificationCounts counts the contract's scheduled and needs-review
// changes.
func (s *Service) OpenModificationCounts(ctx context.Context, contractID int64) (Counts, error) {
	filter, err := s.changeFilter(ctx, contractID)
	if err != nil {
		return Counts{}, err
	}
	statuses, err := s.deps.Options.Values(ctx, options.GroupActivityStatus, change.ActivityScheduled, change.ActivityNeedsReview)
	if err != nil {
		return Counts{}, err
	}
	scheduled, err := s.deps.Gateway.Count(ctx, entity.Activity, filter.Eq("status_id", statuses[0]))
	if err != nil {
		return Counts{}, err
	}
	review, err := s.deps.Gateway.Count(ctx, entity.Activity, filter.Eq("status_id", statuses[1]))
	if err != nil {
		return Counts{}, err
	}
	return Counts{Scheduled: scheduled, NeedsReview: review}, nil
}

// History returns the contract's change records, newest first.
func (s *Service) History(ctx context.Context, contractID int64) ([]HistoryEntry, error) {
	filter, err := s.changeFilter(ctx, contractID)
	if err != nil {
		return nil, err
	}
	recs, err := s.deps.Gateway.Find(ctx, entity.Activity, filter.OrderBy("activity_date_time DESC"))
	if err != nil {
		return nil, err
	}
	out := make([]HistoryEntry, 0, len(recs))
	for _, rec := range recs {
		ch, err := change.ForData(ctx, s.deps, rec)
		if err != nil {
			return nil, err
		}
		status, err := ch.Status(ctx)
		if err != nil {
			return nil, err
		}
		data := ch.Data()
		fields := entity.Record{}
		for _, d := range fieldmap.Definitions {
			if v, ok := data[d.SemanticName()]; ok {
				fields[d.SemanticName()] = v
			}
		}
		out = append(out, HistoryEntry{
			ID:      ch.ID(),
			Type:    ch.Type().Action(),
			Title:   ch.Type().Title(),
			Status:  status,
			Date:    data.String("activity_date_time"),
			Subject: data.String("subject"),
			Details: data.String("details"),
			Fields:  fields,
		})
	}
	return out, nil
}

// CurrentPayment renders the recurring contribution the contract uses, or
// nil when it has none.
func (s *Service) CurrentPayment(ctx context.Context, contractID int64) (*payment.Rendered, error) {
	probe := change.New(s.deps, change.Update, entity.Record{"source_record_id": contractID})
	contract, err := probe.GetContract(ctx)
	if err != nil {
		return nil, err
	}
	return s.deps.Payments.Current(ctx, contract.Int64("contact_id"), contract.Int64(fieldmap.MembershipRecurringContribution))
}

// Payments exposes the payment service the contract service uses.
func (s *Service) Payments() *payment.Service {
	return s.deps.Payments
}
