// Package jobctx carries per-run state: the user-confirmed period, the
// ordered jurisdiction slots and the protected-code guard. A Context is
// created once per run and passed by argument; run state never lives in
// package-level singletons.
package jobctx

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/taxkit/tax-document-renamer/internal/models"
	"github.com/taxkit/tax-document-renamer/internal/textnorm"
	"github.com/taxkit/tax-document-renamer/pkg/logger"
)

// ErrProtectedPeriod is returned when a protected document code would be
// named with a period that did not come from the user.
var ErrProtectedPeriod = errors.New("protected code requires a user-confirmed period")

// ErrInvalidPeriod is returned for period values that cannot be normalized
// to YYMM.
var ErrInvalidPeriod = errors.New("invalid period value")

// ErrSlotConfig is returned for malformed jurisdiction slot lists.
var ErrSlotConfig = errors.New("invalid jurisdiction slots")

// protectedCodes may never take a content-detected period: fixed-asset
// ledger, both depreciation schedules and the payment summary sheet.
var protectedCodes = map[string]struct{}{
	"0000": {},
	"6001": {},
	"6002": {},
	"6003": {},
}

// IsProtectedCode reports whether the 4-digit prefix of code is protected.
func IsProtectedCode(code string) bool {
	if len(code) > 4 {
		code = code[:4]
	}
	_, ok := protectedCodes[code]
	return ok
}

var (
	periodPlain = regexp.MustCompile(`^\d{4}$`)
	periodShort = regexp.MustCompile(`^(\d{2})\D(\d{2})$`)
	periodLong  = regexp.MustCompile(`^(\d{4})\D?(\d{2})$`)
)

// NormalizePeriod folds a user or detected period value to YYMM. Accepted
// forms: 2508, 25/08, 25-08, 2025-08, 202508 and their full-width
// spellings. The month must be 01..12 and the year 01..99.
func NormalizePeriod(v string) (string, bool) {
	s := strings.TrimSpace(textnorm.FoldWidth(v))
	if s == "" {
		return "", false
	}

	var yy, mm string
	switch {
	case periodPlain.MatchString(s):
		yy, mm = s[:2], s[2:]
	case periodShort.MatchString(s):
		m := periodShort.FindStringSubmatch(s)
		yy, mm = m[1], m[2]
	case periodLong.MatchString(s):
		m := periodLong.FindStringSubmatch(s)
		yy, mm = m[1][2:], m[2]
	default:
		return "", false
	}

	year, _ := strconv.Atoi(yy)
	month, _ := strconv.Atoi(mm)
	if year < 1 || year > 99 || month < 1 || month > 12 {
		return "", false
	}
	return yy + mm, true
}

// Stats tracks per-run processing counters.
type Stats struct {
	TotalUnits   int
	Renamed      int
	Skipped      int
	Failed       int
	BundleSplits int
}

// Context is the single per-run state object.
type Context struct {
	RunID string

	mu              sync.Mutex
	confirmedPeriod string
	periodSource    models.PeriodSource
	defaultPeriod   string
	slots           []models.JurisdictionSlot
	audit           []string
	stats           Stats
	log             logger.Logger
}

// Option tweaks Context construction.
type Option func(*Context)

// WithDefaultPeriod sets the last-resort period for non-protected codes.
func WithDefaultPeriod(p string) Option {
	return func(c *Context) { c.defaultPeriod = p }
}

// WithLogger attaches a logger for audit events.
func WithLogger(log logger.Logger) Option {
	return func(c *Context) { c.log = log }
}

// New builds a run context. An empty uiPeriod is allowed; protected codes
// will then fail loudly at naming time. Slots must use unique, contiguous
// 1-based indices.
func New(runID, uiPeriod string, slots []models.JurisdictionSlot, opts ...Option) (*Context, error) {
	c := &Context{
		RunID:        runID,
		periodSource: models.PeriodSourceNone,
	}
	for _, opt := range opts {
		opt(c)
	}

	if uiPeriod != "" {
		normalized, ok := NormalizePeriod(uiPeriod)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPeriod, uiPeriod)
		}
		c.confirmedPeriod = normalized
		c.periodSource = models.PeriodSourceUI
	}

	sorted := make([]models.JurisdictionSlot, len(slots))
	copy(sorted, slots)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })
	seen := make(map[int]bool, len(sorted))
	for i, slot := range sorted {
		if slot.Index != i+1 {
			return nil, fmt.Errorf("%w: indices must be contiguous from 1, got %d", ErrSlotConfig, slot.Index)
		}
		if seen[slot.Index] {
			return nil, fmt.Errorf("%w: duplicate index %d", ErrSlotConfig, slot.Index)
		}
		if slot.Prefecture == "" {
			return nil, fmt.Errorf("%w: slot %d has no prefecture", ErrSlotConfig, slot.Index)
		}
		seen[slot.Index] = true
	}
	c.slots = sorted

	c.addAudit(fmt.Sprintf("context initialized run=%s period=%s source=%s slots=%d",
		runID, c.confirmedPeriod, c.periodSource, len(sorted)))
	return c, nil
}

// ConfirmedPeriod returns the user-confirmed period and its source.
func (c *Context) ConfirmedPeriod() (string, models.PeriodSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.confirmedPeriod, c.periodSource
}

// ForcePeriod overrides the confirmed period on explicit user action.
func (c *Context) ForcePeriod(v string) error {
	normalized, ok := NormalizePeriod(v)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPeriod, v)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirmedPeriod = normalized
	c.periodSource = models.PeriodSourceUIForced
	c.audit = append(c.audit, fmt.Sprintf("period forced to %s", normalized))
	return nil
}

// PeriodFor resolves the period for one classified unit. Protected codes
// accept only the UI-confirmed value and fail with ErrProtectedPeriod
// otherwise; any detected value for them is discarded before it can reach
// a final name. For other codes a well-formed detected value wins over the
// UI value, which wins over the context default.
func (c *Context) PeriodFor(code, detected string) (string, models.PeriodSource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if IsProtectedCode(code) {
		if c.confirmedPeriod == "" ||
			(c.periodSource != models.PeriodSourceUI && c.periodSource != models.PeriodSourceUIForced) {
			c.audit = append(c.audit, fmt.Sprintf("period guard rejected code=%s source=%s", code, c.periodSource))
			c.logAudit("protected-code enforcement failed",
				logger.String("code", code), logger.String("source", string(c.periodSource)))
			return "", models.PeriodSourceNone, fmt.Errorf("%w: code=%s source=%s", ErrProtectedPeriod, code, c.periodSource)
		}
		if detected != "" {
			c.audit = append(c.audit, fmt.Sprintf("detected period %q discarded for protected code %s", detected, code))
		}
		c.logAudit("period resolved", logger.String("code", code),
			logger.String("value", c.confirmedPeriod), logger.String("source", string(c.periodSource)))
		return c.confirmedPeriod, c.periodSource, nil
	}

	if normalized, ok := NormalizePeriod(detected); ok {
		c.audit = append(c.audit, fmt.Sprintf("period for %s: detected %s", code, normalized))
		c.logAudit("period resolved", logger.String("code", code),
			logger.String("value", normalized), logger.String("source", string(models.PeriodSourceDetected)))
		return normalized, models.PeriodSourceDetected, nil
	}
	if c.confirmedPeriod != "" {
		c.audit = append(c.audit, fmt.Sprintf("period for %s: ui %s", code, c.confirmedPeriod))
		c.logAudit("period resolved", logger.String("code", code),
			logger.String("value", c.confirmedPeriod), logger.String("source", string(c.periodSource)))
		return c.confirmedPeriod, c.periodSource, nil
	}
	if c.defaultPeriod != "" {
		c.audit = append(c.audit, fmt.Sprintf("period for %s: default %s", code, c.defaultPeriod))
		return c.defaultPeriod, models.PeriodSourceDefault, nil
	}

	c.audit = append(c.audit, fmt.Sprintf("period for %s: none", code))
	return "", models.PeriodSourceNone, nil
}

// Slots returns the jurisdiction slots in index order.
func (c *Context) Slots() []models.JurisdictionSlot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.JurisdictionSlot, len(c.slots))
	copy(out, c.slots)
	return out
}

// SlotForPrefecture matches a prefecture name exactly, then by containment
// in either direction to absorb OCR prefix/suffix noise.
func (c *Context) SlotForPrefecture(name string) (models.JurisdictionSlot, bool) {
	name = textnorm.Normalize(name)
	if name == "" {
		return models.JurisdictionSlot{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, slot := range c.slots {
		if slot.Prefecture == name {
			return slot, true
		}
	}
	for _, slot := range c.slots {
		if strings.Contains(name, slot.Prefecture) || strings.Contains(slot.Prefecture, name) {
			return slot, true
		}
	}
	return models.JurisdictionSlot{}, false
}

// SlotForMunicipality matches by municipality name; when a prefecture name
// is also available it must agree.
func (c *Context) SlotForMunicipality(pref, city string) (models.JurisdictionSlot, bool) {
	pref = textnorm.Normalize(pref)
	city = textnorm.Normalize(city)
	if city == "" {
		return models.JurisdictionSlot{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, slot := range c.slots {
		if slot.Municipality == "" {
			continue
		}
		cityOK := slot.Municipality == city ||
			strings.Contains(city, slot.Municipality) || strings.Contains(slot.Municipality, city)
		if !cityOK {
			continue
		}
		if pref != "" && slot.Prefecture != pref &&
			!strings.Contains(pref, slot.Prefecture) && !strings.Contains(slot.Prefecture, pref) {
			continue
		}
		return slot, true
	}
	return models.JurisdictionSlot{}, false
}

// AddAudit appends a free-form audit line.
func (c *Context) AddAudit(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addAuditLocked(line)
}

func (c *Context) addAudit(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addAuditLocked(line)
}

func (c *Context) addAuditLocked(line string) {
	c.audit = append(c.audit, fmt.Sprintf("[%s] %s", time.Now().Format(time.RFC3339), line))
}

// AuditLog returns a copy of the audit trail.
func (c *Context) AuditLog() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.audit))
	copy(out, c.audit)
	return out
}

// UpdateStats applies fn under the context lock.
func (c *Context) UpdateStats(fn func(*Stats)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.stats)
}

// StatsSnapshot returns a copy of the counters.
func (c *Context) StatsSnapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Context) logAudit(msg string, fields ...logger.Field) {
	if c.log == nil {
		return
	}
	c.log.Info(msg, append(fields, logger.String("run_id", c.RunID))...)
}
