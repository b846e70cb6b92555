// Package bundle decides whether an input PDF is a concatenation of
// notification documents and, if so, splits it into per-page units.
package bundle

import (
	"regexp"
	"strings"

	"github.com/taxkit/tax-document-renamer/internal/models"
	"github.com/taxkit/tax-document-renamer/internal/textnorm"
	"github.com/taxkit/tax-document-renamer/pkg/logger"
)

// Config bounds the sample window and sets per-category minimum counts.
type Config struct {
	ScanPages  int `yaml:"scan_pages"`
	MinReceipt int `yaml:"min_receipt"`
	MinPayment int `yaml:"min_payment"`
	MinCodes   int `yaml:"min_codes"`
}

// DefaultConfig matches the production defaults: sample 10 pages, one hit
// per category is enough.
func DefaultConfig() Config {
	return Config{ScanPages: 10, MinReceipt: 1, MinPayment: 1, MinCodes: 1}
}

type familyProfile struct {
	family   models.BundleFamily
	receipt  []string
	payment  []string
	codeExpr *regexp.Regexp
}

var localProfile = familyProfile{
	family:   models.BundleLocal,
	receipt:  []string{"申告受付完了通知", "地方税電子申告"},
	payment:  []string{"納付情報発行結果", "地方税共同機構", "ペイジー"},
	codeExpr: regexp.MustCompile(`\b(1003|1013|1023|1004|2003|2013|2023|2004)\b`),
}

var nationalProfile = familyProfile{
	family:   models.BundleNational,
	receipt:  []string{"メール詳細", "送信されたデータを受け付けました", "受信通知"},
	payment:  []string{"納付区分番号通知", "納付内容を確認し"},
	codeExpr: regexp.MustCompile(`\b(0003|0004|3003|3004)\b`),
}

// excludedSignatures force a not-bundle verdict: these documents are
// standalone by definition, whatever the keyword counters say.
var excludedSignatures = []string{
	"一括償却資産明細表",
	"少額減価償却資産明細表",
	"固定資産台帳",
	"総勘定元帳",
	"補助元帳",
	"決算報告書",
}

// Detector samples the head of a document and votes per family.
type Detector struct {
	cfg Config
	log logger.Logger
}

// NewDetector creates a detector with the given thresholds.
func NewDetector(cfg Config, log logger.Logger) *Detector {
	if cfg.ScanPages <= 0 {
		cfg = DefaultConfig()
	}
	return &Detector{cfg: cfg, log: log}
}

// Detect samples at most ScanPages page texts and declares a family only
// when its receipt, payment and code counters all reach their minimums.
// When both families qualify the higher aggregate wins; an exact tie is
// resolved to NONE rather than guessed.
func (d *Detector) Detect(filename string, pages []string) models.BundleDecision {
	sampled := pages
	if len(sampled) > d.cfg.ScanPages {
		sampled = sampled[:d.cfg.ScanPages]
	}
	decision := models.BundleDecision{Family: models.BundleNone, SampledPages: len(sampled)}

	combined := textnorm.Normalize(strings.Join(sampled, " "))
	firstPage := ""
	if len(sampled) > 0 {
		firstPage = textnorm.Normalize(sampled[0])
	}
	normName := textnorm.Normalize(filename)

	for _, sig := range excludedSignatures {
		if strings.Contains(firstPage, sig) || strings.Contains(normName, sig) {
			d.audit(filename, decision, "excluded signature: "+sig)
			return decision
		}
	}

	localAgg, localOK := d.score(combined, localProfile)
	nationalAgg, nationalOK := d.score(combined, nationalProfile)

	switch {
	case localOK && nationalOK && localAgg == nationalAgg:
		d.audit(filename, decision, "family tie, declaring none")
		return decision
	case localOK && (!nationalOK || localAgg > nationalAgg):
		decision.IsBundle = true
		decision.Family = models.BundleLocal
		decision.Confidence = d.confidence(localAgg)
	case nationalOK:
		decision.IsBundle = true
		decision.Family = models.BundleNational
		decision.Confidence = d.confidence(nationalAgg)
	}

	d.audit(filename, decision, "")
	return decision
}

// score returns the aggregate counter and whether every category met its
// minimum.
func (d *Detector) score(text string, p familyProfile) (int, bool) {
	receipt := countPresent(text, p.receipt)
	payment := countPresent(text, p.payment)
	codes := len(uniqueMatches(p.codeExpr, text))

	ok := receipt >= d.cfg.MinReceipt && payment >= d.cfg.MinPayment && codes >= d.cfg.MinCodes
	return receipt + payment + codes, ok
}

// confidence grows with how far the counters exceed the thresholds. It is
// advisory only; the split gate is threshold satisfaction.
func (d *Detector) confidence(aggregate int) float64 {
	excess := aggregate - (d.cfg.MinReceipt + d.cfg.MinPayment + d.cfg.MinCodes)
	conf := 0.5 + 0.1*float64(excess)
	if conf > 1.0 {
		conf = 1.0
	}
	if conf < 0 {
		conf = 0
	}
	return conf
}

func (d *Detector) audit(filename string, decision models.BundleDecision, note string) {
	if d.log == nil {
		return
	}
	fields := []logger.Field{
		logger.String("file", filename),
		logger.Bool("is_bundle", decision.IsBundle),
		logger.String("family", string(decision.Family)),
		logger.Float64("confidence", decision.Confidence),
		logger.Int("sampled_pages", decision.SampledPages),
	}
	if note != "" {
		fields = append(fields, logger.String("note", note))
	}
	d.log.Info("bundle verdict", fields...)
}

func countPresent(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

func uniqueMatches(re *regexp.Regexp, text string) map[string]struct{} {
	found := make(map[string]struct{})
	for _, m := range re.FindAllString(text, -1) {
		found[m] = struct{}{}
	}
	return found
}
