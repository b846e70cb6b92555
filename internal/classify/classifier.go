// Package classify implements the priority-ranked document-type classifier.
// Classification is a pure function over extracted text plus a filename
// hint; all run state stays outside this package.
package classify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/taxkit/tax-document-renamer/internal/catalog"
	"github.com/taxkit/tax-document-renamer/internal/models"
	"github.com/taxkit/tax-document-renamer/internal/textnorm"
	"github.com/taxkit/tax-document-renamer/pkg/logger"
)

// Filename keywords weigh heavier than body text: exported filenames from
// the filing software are curated while OCR text is noisy.
const filenameWeight = 1.5

// Classifier applies the rule catalog to extracted text.
type Classifier struct {
	catalog *catalog.Catalog
	log     logger.Logger
}

// New creates a classifier over the given catalog.
func New(cat *catalog.Catalog, log logger.Logger) *Classifier {
	return &Classifier{catalog: cat, log: log}
}

// Classify runs the multi-pass decision over text and filename hint:
// forced payment/receipt indicators first, then rule priority conditions,
// then required-keyword selection, then a low-confidence partial tier.
// A unit no rule can claim comes back as code 9999, never a guessed code.
func (c *Classifier) Classify(text, filenameHint string) models.ClassificationResult {
	normText := textnorm.Normalize(text)
	normName := textnorm.Normalize(filenameHint)
	combined := normText + " " + normName

	if res, ok := c.forcedPaymentReceipt(combined); ok {
		c.audit(res, filenameHint)
		return res
	}
	if res, ok := c.priorityConditions(combined, normText, normName); ok {
		c.audit(res, filenameHint)
		return res
	}
	if res, ok := c.requiredSelection(combined, normText, normName); ok {
		c.audit(res, filenameHint)
		return res
	}
	if res, ok := c.partialFallback(normText, normName); ok {
		c.audit(res, filenameHint)
		return res
	}

	res := models.ClassificationResult{
		Code:       models.UnclassifiedCode,
		Label:      "未分類",
		Confidence: 0,
		Method:     "unclassified",
		Domain:     models.DomainUnknown,
		Evidence:   []string{"no rule satisfied"},
	}
	c.audit(res, filenameHint)
	return res
}

var paymentIndicators = []string{
	"納付区分番号通知",
	"納付内容を確認し",
	"以下のボタンより納付",
	"メール詳細（納付区分番号通知）",
	"納付情報発行結果",
}

var receiptIndicators = []string{
	"送信されたデータを受け付けました",
	"申告データを受付けました",
	"申告受付完了通知",
	"メール詳細",
}

// topicRoutes orders the tax-topic checks; the first hit wins.
var topicRoutes = []struct {
	keywords    []string
	paymentCode string
	receiptCode string
}{
	{[]string{"法人税", "内国法人"}, "0004", "0003"},
	{[]string{"消費税"}, "3004", "3003"},
	{[]string{"都道府県", "県税事務所", "都税事務所", "事業税"}, "1004", "1003"},
	{[]string{"市町村", "市役所", "市民税"}, "2004", "2003"},
}

// forcedPaymentReceipt short-circuits classification when the text carries
// unambiguous payment or receipt-notice markers. Payment markers win over
// receipt markers because receipt wording also appears inside payment mail.
func (c *Classifier) forcedPaymentReceipt(combined string) (models.ClassificationResult, bool) {
	payment := matchAny(combined, paymentIndicators)
	if len(payment) > 0 {
		for _, route := range topicRoutes {
			topics := matchAny(combined, route.keywords)
			if len(topics) == 0 {
				continue
			}
			return c.buildForced(route.paymentCode, "forced_payment", append(payment, topics...)), true
		}
		return models.ClassificationResult{}, false
	}

	receipt := matchAny(combined, receiptIndicators)
	if len(receipt) == 0 {
		return models.ClassificationResult{}, false
	}
	for _, route := range topicRoutes {
		topics := matchAny(combined, route.keywords)
		if len(topics) == 0 {
			continue
		}
		return c.buildForced(route.receiptCode, "forced_receipt", append(receipt, topics...)), true
	}
	return models.ClassificationResult{}, false
}

func (c *Classifier) buildForced(code, method string, matched []string) models.ClassificationResult {
	label := "不明"
	if rule, ok := c.catalog.ByCode(code); ok {
		label = rule.Label
	}
	return models.ClassificationResult{
		Code:            code,
		Label:           label,
		Confidence:      1.0,
		MatchedKeywords: matched,
		Method:          method,
		Domain:          models.DomainForCode(code),
		Evidence:        []string{fmt.Sprintf("%s: %s", method, strings.Join(matched, ","))},
	}
}

// priorityConditions evaluates rule fast-path conditions in descending
// priority order. An exclusion keyword always vetoes the rule, even here.
func (c *Classifier) priorityConditions(combined, text, filename string) (models.ClassificationResult, bool) {
	rules := c.rulesByPriority()
	for _, rule := range rules {
		if len(rule.PriorityConditions) == 0 {
			continue
		}
		if vetoed(rule, text, filename) {
			continue
		}
		for i, cond := range rule.PriorityConditions {
			ok, matched := cond.Match(combined)
			if !ok {
				continue
			}
			return models.ClassificationResult{
				Code:            rule.Code,
				Label:           rule.Label,
				Confidence:      1.0,
				MatchedKeywords: matched,
				Method:          fmt.Sprintf("priority_condition_%d", i+1),
				Domain:          rule.Domain,
				Evidence: []string{
					fmt.Sprintf("priority condition %d of %s: %s", i+1, rule.Code, strings.Join(matched, ",")),
				},
			}, true
		}
	}
	return models.ClassificationResult{}, false
}

// requiredSelection picks among rules whose required keywords are all
// present: highest priority first, then partial-match weight, then catalog
// declaration order.
func (c *Classifier) requiredSelection(combined, text, filename string) (models.ClassificationResult, bool) {
	type candidate struct {
		rule    models.DocumentTypeRule
		order   int
		partial float64
		matched []string
	}

	var candidates []candidate
	for i, rule := range c.catalog.Rules() {
		if len(rule.RequiredKeywords) == 0 || vetoed(rule, text, filename) {
			continue
		}
		required := matchAny(combined, rule.RequiredKeywords)
		if len(required) != len(rule.RequiredKeywords) {
			continue
		}
		weight, partial := partialWeight(rule, text, filename)
		candidates = append(candidates, candidate{
			rule:    rule,
			order:   i,
			partial: weight,
			matched: append(required, partial...),
		})
	}
	if len(candidates) == 0 {
		return models.ClassificationResult{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].rule.Priority != candidates[j].rule.Priority {
			return candidates[i].rule.Priority > candidates[j].rule.Priority
		}
		if candidates[i].partial != candidates[j].partial {
			return candidates[i].partial > candidates[j].partial
		}
		return candidates[i].order < candidates[j].order
	})

	best := candidates[0]
	confidence := 0.75 + float64(best.rule.Priority)/800
	if confidence > 1.0 {
		confidence = 1.0
	}
	return models.ClassificationResult{
		Code:            best.rule.Code,
		Label:           best.rule.Label,
		Confidence:      confidence,
		MatchedKeywords: best.matched,
		Method:          "required_keywords",
		Domain:          best.rule.Domain,
		Evidence: []string{
			fmt.Sprintf("required match %s priority=%d partial=%.1f", best.rule.Code, best.rule.Priority, best.partial),
		},
	}, true
}

// partialFallback is the lowest-confidence tier: score partial keywords
// only, weighted by rule priority the way the scoring pass always has.
func (c *Classifier) partialFallback(text, filename string) (models.ClassificationResult, bool) {
	var (
		best        models.DocumentTypeRule
		bestScore   float64
		bestMatched []string
		bestWeight  float64
		found       bool
	)
	for _, rule := range c.catalog.Rules() {
		if vetoed(rule, text, filename) {
			continue
		}
		weight, matched := partialWeight(rule, text, filename)
		if weight == 0 {
			continue
		}
		score := weight * float64(rule.Priority)
		if score > bestScore {
			best, bestScore, bestMatched, bestWeight, found = rule, score, matched, weight, true
		}
	}
	if !found {
		return models.ClassificationResult{}, false
	}

	confidence := 0.2 + 0.1*bestWeight
	if confidence > 0.6 {
		confidence = 0.6
	}
	return models.ClassificationResult{
		Code:            best.Code,
		Label:           best.Label,
		Confidence:      confidence,
		MatchedKeywords: bestMatched,
		Method:          "partial_fallback",
		Domain:          best.Domain,
		Evidence: []string{
			fmt.Sprintf("partial fallback %s weight=%.1f", best.Code, bestWeight),
		},
	}, true
}

func (c *Classifier) rulesByPriority() []models.DocumentTypeRule {
	rules := make([]models.DocumentTypeRule, len(c.catalog.Rules()))
	copy(rules, c.catalog.Rules())
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority > rules[j].Priority
	})
	return rules
}

func (c *Classifier) audit(res models.ClassificationResult, filename string) {
	if c.log == nil {
		return
	}
	c.log.Info("classification pick",
		logger.String("file", filename),
		logger.String("code", res.Code),
		logger.String("label", res.Label),
		logger.String("method", res.Method),
		logger.Float64("confidence", res.Confidence),
	)
}

func vetoed(rule models.DocumentTypeRule, text, filename string) bool {
	for _, kw := range rule.ExcludeKeywords {
		if kw == "" {
			continue
		}
		if strings.Contains(text, kw) || strings.Contains(filename, kw) {
			return true
		}
	}
	return false
}

// partialWeight counts partial-keyword hits, weighting filename hits by
// filenameWeight, and folds in filename-only keywords.
func partialWeight(rule models.DocumentTypeRule, text, filename string) (float64, []string) {
	var weight float64
	var matched []string
	for _, kw := range rule.PartialKeywords {
		if strings.Contains(text, kw) {
			weight++
			matched = append(matched, kw)
		}
		if filename != "" && strings.Contains(filename, kw) {
			weight += filenameWeight
			matched = append(matched, "[filename]"+kw)
		}
	}
	for _, kw := range rule.FilenameKeywords {
		if filename != "" && strings.Contains(filename, kw) {
			weight += filenameWeight
			matched = append(matched, "[filename]"+kw)
		}
	}
	return weight, matched
}

func matchAny(text string, keywords []string) []string {
	var matched []string
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}
