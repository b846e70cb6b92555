// Package sequence assigns jurisdiction slot numbers to receipt and
// payment notices. Resolution is stateful per run: the same jurisdiction
// always resolves to the same code and slot collisions are tracked.
package sequence

import (
	"errors"
	"fmt"
	"sync"

	"github.com/taxkit/tax-document-renamer/internal/jobctx"
	"github.com/taxkit/tax-document-renamer/internal/models"
	"github.com/taxkit/tax-document-renamer/pkg/logger"
)

const (
	prefectureReceiptBase   = 1003
	municipalityReceiptBase = 2003
	prefecturePaymentCode   = "1004"
	municipalityPaymentCode = "2004"

	// The special jurisdiction has no municipal layer and must sit in
	// slot 1; municipality numbering skips over it.
	specialPrefecture = "東京都"
)

// ErrSpecialSlotOrder is fatal for the whole file: the run configuration
// itself is wrong.
var ErrSpecialSlotOrder = errors.New("special jurisdiction must occupy slot 1")

type noticeKind int

const (
	kindNone noticeKind = iota
	kindPrefectureReceipt
	kindMunicipalityReceipt
	kindPrefecturePayment
	kindMunicipalityPayment
)

// Resolver computes final slot codes for one run. Not safe for concurrent
// use without the internal mutex, which also guards the idempotency cache
// and the collision tracker.
type Resolver struct {
	ctx *jobctx.Context
	log logger.Logger

	mu             sync.Mutex
	specialChecked bool
	assigned       map[string]string // jurisdiction key -> final code
	codeOwners     map[string]string // final code -> jurisdiction key
}

// NewResolver builds a resolver bound to one run context.
func NewResolver(ctx *jobctx.Context, log logger.Logger) *Resolver {
	return &Resolver{
		ctx:        ctx,
		log:        log,
		assigned:   make(map[string]string),
		codeOwners: make(map[string]string),
	}
}

// Resolve rewrites the code of jurisdiction-numbered notices. Results from
// any other domain pass through untouched with a single skip log line.
// The returned result keeps the pre-resolution code in OriginalCode
// whenever the code changed.
func (r *Resolver) Resolve(res models.ClassificationResult, text string) (models.ClassificationResult, error) {
	kind := noticeKindFor(res.Code)
	if kind == kindNone {
		if r.log != nil {
			r.log.Debug("sequence skipped",
				logger.String("code", res.Code),
				logger.String("domain", string(res.Domain)),
			)
		}
		return res, nil
	}

	if err := r.ensureSpecialSlotRule(); err != nil {
		return res, err
	}

	prefecture, municipality := extractJurisdiction(text)

	r.mu.Lock()
	defer r.mu.Unlock()

	switch kind {
	case kindPrefectureReceipt:
		return r.resolvePrefectureReceipt(res, prefecture)
	case kindMunicipalityReceipt:
		return r.resolveMunicipalityReceipt(res, prefecture, municipality)
	case kindPrefecturePayment:
		return r.resolvePayment(res, prefecture, prefecturePaymentCode, "pref_payment")
	default:
		return r.resolveMunicipalityPayment(res, prefecture, municipality)
	}
}

// ensureSpecialSlotRule validates once per run that the special
// jurisdiction, when configured at all, sits in slot 1.
func (r *Resolver) ensureSpecialSlotRule() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.specialChecked {
		return nil
	}
	for _, slot := range r.ctx.Slots() {
		if slot.Prefecture == specialPrefecture && slot.Index != 1 {
			return fmt.Errorf("%w: found at slot %d", ErrSpecialSlotOrder, slot.Index)
		}
	}
	r.specialChecked = true
	return nil
}

func (r *Resolver) resolvePrefectureReceipt(res models.ClassificationResult, prefecture string) (models.ClassificationResult, error) {
	slot, ok := r.ctx.SlotForPrefecture(prefecture)
	if !ok {
		return r.resolutionFailure(res, fmt.Sprintf("prefecture %q not in configured slots", prefecture)), nil
	}

	key := "pref/" + slot.Prefecture
	if code, done := r.assigned[key]; done {
		return r.rewrite(res, code, key), nil
	}
	code := fmt.Sprintf("%04d", prefectureReceiptBase+(slot.Index-1)*10)
	r.claim(key, code)
	return r.rewrite(res, code, key), nil
}

func (r *Resolver) resolveMunicipalityReceipt(res models.ClassificationResult, prefecture, municipality string) (models.ClassificationResult, error) {
	if r.isSpecial(prefecture) {
		return r.resolutionFailure(res, "special jurisdiction has no municipal layer"), nil
	}
	slot, ok := r.ctx.SlotForMunicipality(prefecture, municipality)
	if !ok {
		return r.resolutionFailure(res, fmt.Sprintf("municipality %q not in configured slots", municipality)), nil
	}

	key := fmt.Sprintf("city/%s/%s", slot.Prefecture, slot.Municipality)
	if code, done := r.assigned[key]; done {
		return r.rewrite(res, code, key), nil
	}
	code := fmt.Sprintf("%04d", municipalityReceiptBase+(r.municipalityIndex(slot)-1)*10)
	r.claim(key, code)
	return r.rewrite(res, code, key), nil
}

// resolvePayment handles the prefecture payment path: exactly one fixed
// code per family and run, never slot-numbered.
func (r *Resolver) resolvePayment(res models.ClassificationResult, prefecture, code, key string) (models.ClassificationResult, error) {
	if owner, done := r.codeOwners[code]; done && owner != key {
		r.audit("payment code collision", logger.String("code", code))
	}
	r.claim(key, code)
	out := r.rewrite(res, code, key)
	if prefecture != "" {
		out.Evidence = append(out.Evidence, "payment jurisdiction: "+prefecture)
	}
	return out, nil
}

// resolveMunicipalityPayment enforces the special-jurisdiction skip on the
// payment path exactly like the receipt path does.
func (r *Resolver) resolveMunicipalityPayment(res models.ClassificationResult, prefecture, municipality string) (models.ClassificationResult, error) {
	if r.isSpecial(prefecture) {
		return r.resolutionFailure(res, "special jurisdiction never takes a municipal payment code"), nil
	}
	return r.resolvePayment(res, municipality, municipalityPaymentCode, "city_payment")
}

// municipalityIndex skips the special jurisdiction's slot when it heads
// the list, because that slot has no municipal layer to number.
func (r *Resolver) municipalityIndex(slot models.JurisdictionSlot) int {
	for _, s := range r.ctx.Slots() {
		if s.Index == 1 && s.Prefecture == specialPrefecture && slot.Index > 1 {
			return slot.Index - 1
		}
	}
	return slot.Index
}

func (r *Resolver) isSpecial(prefecture string) bool {
	if prefecture == specialPrefecture {
		return true
	}
	slot, ok := r.ctx.SlotForPrefecture(prefecture)
	return ok && slot.Prefecture == specialPrefecture
}

func (r *Resolver) claim(key, code string) {
	r.assigned[key] = code
	if owner, taken := r.codeOwners[code]; taken && owner != key {
		r.audit("slot collision",
			logger.String("code", code),
			logger.String("owner", owner),
			logger.String("claimant", key),
		)
		r.ctx.AddAudit(fmt.Sprintf("slot collision: code %s owned by %s, claimed by %s", code, owner, key))
		return
	}
	r.codeOwners[code] = key
}

func (r *Resolver) rewrite(res models.ClassificationResult, code, key string) models.ClassificationResult {
	if code == res.Code {
		return res
	}
	out := res
	out.OriginalCode = res.Code
	out.Code = code
	out.Evidence = append(append([]string{}, res.Evidence...),
		fmt.Sprintf("sequence resolved %s -> %s (%s)", res.Code, code, key))
	r.audit("sequence resolved",
		logger.String("original_code", res.Code),
		logger.String("final_code", code),
		logger.String("jurisdiction", key),
	)
	return out
}

func (r *Resolver) resolutionFailure(res models.ClassificationResult, reason string) models.ClassificationResult {
	out := res
	out.Evidence = append(append([]string{}, res.Evidence...), "sequence resolution failed: "+reason)
	r.audit("sequence resolution failed",
		logger.String("code", res.Code),
		logger.String("reason", reason),
	)
	r.ctx.AddAudit(fmt.Sprintf("sequence resolution failed for %s: %s", res.Code, reason))
	return out
}

func (r *Resolver) audit(msg string, fields ...logger.Field) {
	if r.log == nil {
		return
	}
	r.log.Info(msg, fields...)
}

// noticeKindFor gates resolution to the four jurisdiction-numbered base
// codes; everything else passes through.
func noticeKindFor(code string) noticeKind {
	switch code {
	case "1003":
		return kindPrefectureReceipt
	case "2003":
		return kindMunicipalityReceipt
	case "1004":
		return kindPrefecturePayment
	case "2004":
		return kindMunicipalityPayment
	}
	return kindNone
}
