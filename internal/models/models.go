package models

import (
	"strings"
	"time"
)

// Domain tags a document-type code with the tax domain it belongs to.
type Domain string

const (
	DomainNationalTax         Domain = "NATIONAL_TAX"
	DomainLocalTaxPrefecture  Domain = "LOCAL_TAX_PREFECTURE"
	DomainLocalTaxMunicipality Domain = "LOCAL_TAX_MUNICIPALITY"
	DomainConsumptionTax      Domain = "CONSUMPTION_TAX"
	DomainAccounting          Domain = "ACCOUNTING"
	DomainAssets              Domain = "ASSETS"
	DomainSummary             Domain = "SUMMARY"
	DomainUnknown             Domain = "UNKNOWN"
)

// DomainForCode derives the domain from the leading digit of a 4-digit code.
func DomainForCode(code string) Domain {
	if len(code) < 4 {
		return DomainUnknown
	}
	switch code[0] {
	case '0':
		return DomainNationalTax
	case '1':
		return DomainLocalTaxPrefecture
	case '2':
		return DomainLocalTaxMunicipality
	case '3':
		return DomainConsumptionTax
	case '5':
		return DomainAccounting
	case '6':
		return DomainAssets
	case '7':
		return DomainSummary
	}
	return DomainUnknown
}

// KeywordCondition is a conjunction (or disjunction) of keywords that must
// appear in the combined text + filename for a rule's fast-path match.
type KeywordCondition struct {
	Keywords []string `yaml:"keywords"`
	MatchAny bool     `yaml:"match_any"`
}

// Match reports whether the condition holds for text and returns the
// keywords that were found.
func (c KeywordCondition) Match(text string) (bool, []string) {
	var matched []string
	for _, kw := range c.Keywords {
		if kw != "" && strings.Contains(text, kw) {
			matched = append(matched, kw)
		}
	}
	if c.MatchAny {
		return len(matched) > 0, matched
	}
	return len(matched) == len(c.Keywords), matched
}

// DocumentTypeRule is one entry of the rule catalog.
type DocumentTypeRule struct {
	Code               string             `yaml:"code"`
	Label              string             `yaml:"label"`
	Priority           int                `yaml:"priority"`
	Domain             Domain             `yaml:"domain"`
	PriorityConditions []KeywordCondition `yaml:"priority_conditions"`
	RequiredKeywords   []string           `yaml:"required_keywords"`
	PartialKeywords    []string           `yaml:"partial_keywords"`
	ExcludeKeywords    []string           `yaml:"exclude_keywords"`
	FilenameKeywords   []string           `yaml:"filename_keywords"`
}

// ClassificationResult is the outcome of classifying one unit of text.
// It is immutable after creation; sequence resolution wraps it in a new
// value and records the pre-resolution code in OriginalCode.
type ClassificationResult struct {
	Code            string   `json:"code"`
	Label           string   `json:"label"`
	Confidence      float64  `json:"confidence"`
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
	Method          string   `json:"method"`
	Domain          Domain   `json:"domain"`
	OriginalCode    string   `json:"original_code,omitempty"`
	Evidence        []string `json:"evidence,omitempty"`
}

// UnclassifiedCode marks a unit no rule could claim.
const UnclassifiedCode = "9999"

// BundleFamily names the two recognized bundle families.
type BundleFamily string

const (
	BundleNone     BundleFamily = "NONE"
	BundleNational BundleFamily = "NATIONAL"
	BundleLocal    BundleFamily = "LOCAL"
)

// BundleDecision is computed once per input file from sampled pages and
// never recomputed after splitting begins.
type BundleDecision struct {
	IsBundle     bool         `json:"is_bundle"`
	Family       BundleFamily `json:"family"`
	Confidence   float64      `json:"confidence"`
	SampledPages int          `json:"sampled_pages"`
}

// SplitUnit is one page carved out of an input file, in strict page order.
// Ordinal is contiguous starting at 1. A page whose text could not be
// extracted is emitted as an unreadable unit instead of aborting the split.
type SplitUnit struct {
	SourceFile string `json:"source_file"`
	PageIndex  int    `json:"page_index"`
	Ordinal    int    `json:"ordinal"`
	Text       string `json:"-"`
	Unreadable bool   `json:"unreadable,omitempty"`
	ExtractErr string `json:"extract_err,omitempty"`
}

// JurisdictionSlot is one user-configured jurisdiction with its 1-based
// numbering position. Slot 1 is reserved; when its prefecture is the
// special jurisdiction there is no municipal layer for it.
type JurisdictionSlot struct {
	Index        int    `yaml:"index" json:"index"`
	Prefecture   string `yaml:"prefecture" json:"prefecture"`
	Municipality string `yaml:"municipality" json:"municipality,omitempty"`
}

// PeriodSource records where a confirmed YYMM value came from.
type PeriodSource string

const (
	PeriodSourceUI       PeriodSource = "UI"
	PeriodSourceUIForced PeriodSource = "UI_FORCED"
	PeriodSourceDetected PeriodSource = "DETECTED"
	PeriodSourceDefault  PeriodSource = "DEFAULT"
	PeriodSourceNone     PeriodSource = "NONE"
)

// DecisionRecord is the per-unit output of the pipeline, suitable for UI
// display, CSV/XLSX export and persistence.
type DecisionRecord struct {
	RunID        string       `json:"run_id"`
	Source       string       `json:"source"`
	PageIndex    int          `json:"page_index"`
	Ordinal      int          `json:"ordinal"`
	OriginalCode string       `json:"original_code,omitempty"`
	FinalCode    string       `json:"final_code"`
	Label        string       `json:"label"`
	Period       string       `json:"period"`
	PeriodSource PeriodSource `json:"period_source"`
	Confidence   float64      `json:"confidence"`
	FinalName    string       `json:"final_name,omitempty"`
	Evidence     []string     `json:"evidence,omitempty"`
	Skipped      bool         `json:"skipped,omitempty"`
	SkipReason   string       `json:"skip_reason,omitempty"`
	Failed       bool         `json:"failed,omitempty"`
	Error        string       `json:"error,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// RunStatus is the lifecycle state of a processing run.
type RunStatus string

const (
	RunStatusPending    RunStatus = "pending"
	RunStatusProcessing RunStatus = "processing"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
)

// Run is one submission of input files processed under a single JobContext.
type Run struct {
	ID          string             `json:"id"`
	Files       []string           `json:"files"`
	Period      string             `json:"period,omitempty"`
	Slots       []JurisdictionSlot `json:"slots,omitempty"`
	Status      RunStatus          `json:"status"`
	Error       string             `json:"error,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	CompletedAt time.Time          `json:"completed_at,omitempty"`
}
