package catalog

import (
	"github.com/taxkit/tax-document-renamer/internal/models"
)

// defaultRules is the built-in document-type table. Declaration order is
// significant: it is the final tie-breaker during classification.
func defaultRules() []models.DocumentTypeRule {
	return []models.DocumentTypeRule{
		{
			Code:     "0000",
			Label:    "納付税額一覧表",
			Priority: 160,
			Domain:   models.DomainNationalTax,
			PriorityConditions: []models.KeywordCondition{
				{Keywords: []string{"納付税額一覧表"}, MatchAny: true},
				{Keywords: []string{"まとめ納付", "納付税額"}},
			},
			RequiredKeywords: []string{"納付税額一覧表"},
			PartialKeywords:  []string{"納付税額", "税額一覧"},
			ExcludeKeywords: []string{
				"受信通知", "納付区分番号通知", "メール詳細", "添付資料",
				"申告書", "イメージ添付", "総勘定", "仕訳", "決算",
				"内国法人", "確定申告", "都道府県民税", "市民税", "事業税",
			},
			FilenameKeywords: []string{"納付税額一覧表", "まとめ納付"},
		},
		{
			Code:     "0001",
			Label:    "法人税及び地方法人税申告書",
			Priority: 220,
			Domain:   models.DomainNationalTax,
			PriorityConditions: []models.KeywordCondition{
				{Keywords: []string{"内国法人の確定申告(青色)"}, MatchAny: true},
				{Keywords: []string{"事業年度分の法人税申告書", "差引確定法人税額"}},
				{Keywords: []string{"中間申告分の法人税額", "中間申告分の地方法人税額"}},
				{Keywords: []string{"法人税申告書別表一", "申告書第一表"}, MatchAny: true},
			},
			RequiredKeywords: []string{"法人税及び地方法人税申告書"},
			PartialKeywords:  []string{"法人税申告", "内国法人", "確定申告", "青色申告", "事業年度分"},
			ExcludeKeywords:  []string{"メール詳細", "受信通知", "納付区分番号通知", "添付資料", "イメージ添付"},
			FilenameKeywords: []string{"内国法人", "確定申告", "青色"},
		},
		{
			Code:     "0002",
			Label:    "添付資料_法人税",
			Priority: 230,
			Domain:   models.DomainNationalTax,
			PriorityConditions: []models.KeywordCondition{
				{Keywords: []string{"法人税 添付資料", "添付資料 法人税", "イメージ添付書類(法人税申告)", "添付書類 法人税"}, MatchAny: true},
				{Keywords: []string{"添付書類", "法人税", "申告書"}},
			},
			RequiredKeywords: []string{"イメージ添付書類(法人税申告)"},
			PartialKeywords:  []string{"添付資料", "イメージ添付", "添付書類"},
			ExcludeKeywords:  []string{"消費税申告", "法人消費税", "消費税", "受信通知", "納付区分番号通知"},
			FilenameKeywords: []string{"法人税申告", "法人税", "内国法人"},
		},
		{
			Code:     "0003",
			Label:    "受信通知",
			Priority: 130,
			Domain:   models.DomainNationalTax,
			PriorityConditions: []models.KeywordCondition{
				{Keywords: []string{"メール詳細", "種目 法人税及び地方法人税申告書"}},
				{Keywords: []string{"受付番号", "税目 法人税", "受付日時"}},
				{Keywords: []string{"送信されたデータを受け付けました", "法人税"}},
			},
			RequiredKeywords: []string{"受信通知", "法人税"},
			PartialKeywords:  []string{"受信通知", "国税電子申告", "メール詳細"},
			ExcludeKeywords:  []string{"消費税申告書", "納付区分番号通知"},
			FilenameKeywords: []string{"受信通知", "法人税"},
		},
		{
			Code:     "0004",
			Label:    "納付情報",
			Priority: 130,
			Domain:   models.DomainNationalTax,
			PriorityConditions: []models.KeywordCondition{
				{Keywords: []string{"メール詳細（納付区分番号通知）", "法人税及地方法人税"}},
				{Keywords: []string{"納付区分番号通知", "税目 法人税及地方法人税"}},
				{Keywords: []string{"納付内容を確認し", "法人税"}},
			},
			RequiredKeywords: []string{"納付情報", "法人税"},
			PartialKeywords:  []string{"納付情報", "納付書", "納付区分番号通知"},
			ExcludeKeywords:  []string{"消費税及地方消費税", "受信通知"},
			FilenameKeywords: []string{"納付情報", "法人税"},
		},
		{
			Code:     "1001",
			Label:    "都道府県_法人都道府県民税・事業税・特別法人事業税",
			Priority: 200,
			Domain:   models.DomainLocalTaxPrefecture,
			PriorityConditions: []models.KeywordCondition{
				{Keywords: []string{"法人都道府県民税・事業税・特別法人事業税申告書", "年400万円以下"}},
				{Keywords: []string{"県税事務所", "法人事業税", "特別法人事業税"}},
				{Keywords: []string{"都税事務所", "道府県民税", "事業税"}},
			},
			RequiredKeywords: []string{"法人都道府県民税・事業税・特別法人事業税申告書"},
			PartialKeywords: []string{
				"都道府県民税", "法人事業税", "特別法人事業税", "道府県民税",
				"県税事務所", "都税事務所",
			},
			ExcludeKeywords: []string{
				"市町村", "市民税", "市役所", "町役場", "村役場", "受信通知", "納付情報",
				"納付税額一覧表", "まとめ納付",
			},
			FilenameKeywords: []string{"県税事務所", "都税事務所"},
		},
		{
			Code:     "1003",
			Label:    "受信通知",
			Priority: 130,
			Domain:   models.DomainLocalTaxPrefecture,
			PriorityConditions: []models.KeywordCondition{
				{Keywords: []string{"申告受付完了通知", "事業税"}},
				{Keywords: []string{"県税事務所", "受信通知"}},
				{Keywords: []string{"都税事務所", "受信通知"}},
			},
			RequiredKeywords: []string{"申告受付完了通知", "事業税"},
			PartialKeywords:  []string{"受信通知", "地方税電子申告"},
			ExcludeKeywords:  []string{"市町村", "市民税", "国税電子申告"},
			FilenameKeywords: []string{"受信通知", "都道府県"},
		},
		{
			Code:     "1004",
			Label:    "納付情報",
			Priority: 185,
			Domain:   models.DomainLocalTaxPrefecture,
			PriorityConditions: []models.KeywordCondition{
				{Keywords: []string{"地方税共同機構", "法人都道府県民税・事業税・特別法人事業税"}},
				{Keywords: []string{"納付情報発行結果", "法人事業税"}},
				{Keywords: []string{"納付情報発行結果", "特別法人事業税"}},
				{Keywords: []string{"ペイジー納付情報", "都道府県民税"}},
			},
			RequiredKeywords: []string{"納付情報発行結果"},
			PartialKeywords: []string{
				"納付情報", "法人二税", "特別税", "都道府県民税", "法人事業税",
			},
			ExcludeKeywords:  []string{"市役所", "町役場", "村役場", "法人市民税", "法人住民税", "国税"},
			FilenameKeywords: []string{"納付情報", "都道府県", "地方税共同機構"},
		},
		{
			Code:     "2001",
			Label:    "市町村_法人市民税",
			Priority: 210,
			Domain:   models.DomainLocalTaxMunicipality,
			PriorityConditions: []models.KeywordCondition{
				{Keywords: []string{"法人市民税", "申告書", "市役所"}},
				{Keywords: []string{"市長", "法人市民税"}},
				{Keywords: []string{"市町村民税", "法人税割", "申告納付税額"}},
			},
			RequiredKeywords: []string{"法人市民税", "申告書"},
			PartialKeywords:  []string{"法人市民税", "市町村民税", "市役所", "町役場", "村役場"},
			ExcludeKeywords: []string{
				"都道府県", "事業税", "県税事務所", "都税事務所", "受信通知", "納付情報",
				"内国法人", "地方税共同機構", "納付区分番号通知",
			},
			FilenameKeywords: []string{"市役所", "市民税"},
		},
		{
			Code:     "2003",
			Label:    "受信通知",
			Priority: 140,
			Domain:   models.DomainLocalTaxMunicipality,
			PriorityConditions: []models.KeywordCondition{
				{Keywords: []string{"申告受付完了通知", "法人市町村民税"}},
				{Keywords: []string{"申告受付完了通知", "法人市民税"}},
				{Keywords: []string{"市役所", "申告受付完了通知"}},
			},
			RequiredKeywords: []string{"申告受付完了通知", "法人市民税"},
			PartialKeywords:  []string{"受信通知", "地方税電子申告", "市役所"},
			ExcludeKeywords:  []string{"県税事務所", "都税事務所", "法人事業税", "国税電子申告"},
			FilenameKeywords: []string{"受信通知", "市町村"},
		},
		{
			Code:     "2004",
			Label:    "納付情報",
			Priority: 195,
			Domain:   models.DomainLocalTaxMunicipality,
			PriorityConditions: []models.KeywordCondition{
				{Keywords: []string{"地方税共同機構", "法人市町村民税"}},
				{Keywords: []string{"納付情報発行結果", "法人住民税"}},
				{Keywords: []string{"納付情報発行結果", "法人市民税"}},
				{Keywords: []string{"市役所", "納付情報"}},
				{Keywords: []string{"ペイジー", "市町村"}},
			},
			RequiredKeywords: []string{"納付情報", "法人市民税"},
			PartialKeywords: []string{
				"納付情報", "法人住民税", "法人市民税", "納付書", "ペイジー", "市町村税",
			},
			ExcludeKeywords:  []string{"県税事務所", "都税事務所", "法人二税・特別税", "国税", "申告書"},
			FilenameKeywords: []string{"納付情報", "市町村", "地方税共同機構"},
		},
		{
			Code:     "3001",
			Label:    "消費税及び地方消費税申告書",
			Priority: 135,
			Domain:   models.DomainConsumptionTax,
			PriorityConditions: []models.KeywordCondition{
				{Keywords: []string{"課税期間分の消費税及び", "基準期間の"}},
				{Keywords: []string{"消費税及び地方消費税申告(一般・法人)", "課税標準額"}},
				{Keywords: []string{"課税標準額", "消費税及び地方消費税の合計税額"}},
			},
			RequiredKeywords: []string{"消費税申告書"},
			PartialKeywords:  []string{"消費税申告", "地方消費税申告", "課税期間分", "基準期間"},
			ExcludeKeywords:  []string{"添付資料", "イメージ添付", "受信通知", "納付区分番号通知"},
			FilenameKeywords: []string{"消費税及び地方消費税申告", "消費税申告", "地方消費税申告"},
		},
		{
			Code:     "3002",
			Label:    "添付資料_消費税",
			Priority: 200,
			Domain:   models.DomainConsumptionTax,
			PriorityConditions: []models.KeywordCondition{
				{Keywords: []string{"イメージ添付書類(法人消費税申告)"}, MatchAny: true},
				{Keywords: []string{"添付資料", "消費税申告", "イメージ添付"}},
				{Keywords: []string{"添付書類", "法人消費税申告"}},
			},
			RequiredKeywords: []string{"イメージ添付書類(法人消費税申告)"},
			PartialKeywords:  []string{"添付資料", "イメージ添付", "添付書類"},
			ExcludeKeywords: []string{
				"消費税及び地方消費税申告(一般・法人)", "法人税申告", "内国法人",
				"受信通知", "納付区分番号通知",
			},
			FilenameKeywords: []string{"イメージ添付書類", "添付書類", "法人消費税"},
		},
		{
			Code:     "3003",
			Label:    "受信通知",
			Priority: 130,
			Domain:   models.DomainConsumptionTax,
			PriorityConditions: []models.KeywordCondition{
				{Keywords: []string{"メール詳細", "種目 消費税申告書"}},
				{Keywords: []string{"受付番号", "消費税及び地方消費税", "受付日時"}},
				{Keywords: []string{"送信されたデータを受け付けました", "消費税"}},
			},
			RequiredKeywords: []string{"受信通知", "消費税"},
			PartialKeywords:  []string{"受信通知", "国税電子申告", "メール詳細"},
			ExcludeKeywords:  []string{"法人税及び地方法人税申告書", "納付区分番号通知"},
			FilenameKeywords: []string{"受信通知", "消費税"},
		},
		{
			Code:     "3004",
			Label:    "納付情報",
			Priority: 130,
			Domain:   models.DomainConsumptionTax,
			PriorityConditions: []models.KeywordCondition{
				{Keywords: []string{"メール詳細（納付区分番号通知）", "消費税及地方消費税"}},
				{Keywords: []string{"納付区分番号通知", "税目 消費税及地方消費税"}},
				{Keywords: []string{"納付内容を確認し", "消費税"}},
			},
			RequiredKeywords: []string{"納付情報", "消費税"},
			PartialKeywords:  []string{"納付情報", "納付書", "納付区分番号通知"},
			ExcludeKeywords:  []string{"法人税及地方法人税", "受信通知"},
			FilenameKeywords: []string{"納付情報", "消費税"},
		},
		{
			Code:     "5001",
			Label:    "決算書",
			Priority: 170,
			Domain:   models.DomainAccounting,
			PriorityConditions: []models.KeywordCondition{
				{Keywords: []string{"販売費及び一般管理費", "貸借対照表", "損益計算書"}},
			},
			RequiredKeywords: []string{"決算報告書"},
			PartialKeywords:  []string{"決算報告"},
			FilenameKeywords: []string{"決算書", "決算報告書"},
		},
		{
			Code:     "5002",
			Label:    "総勘定元帳",
			Priority: 180,
			Domain:   models.DomainAccounting,
			PriorityConditions: []models.KeywordCondition{
				{Keywords: []string{"総勘定元帳"}, MatchAny: true},
			},
			RequiredKeywords: []string{"総勘定元帳"},
			PartialKeywords:  []string{"総勘定", "元帳"},
			ExcludeKeywords:  []string{"補助元帳", "内国法人", "確定申告"},
			FilenameKeywords: []string{"総勘定元帳", "総勘定"},
		},
		{
			Code:     "5003",
			Label:    "補助元帳",
			Priority: 170,
			Domain:   models.DomainAccounting,
			PriorityConditions: []models.KeywordCondition{
				{Keywords: []string{"補助元帳"}, MatchAny: true},
			},
			RequiredKeywords: []string{"補助元帳"},
			PartialKeywords:  []string{"補助", "元帳"},
			ExcludeKeywords:  []string{"総勘定"},
			FilenameKeywords: []string{"補助元帳"},
		},
		{
			Code:     "5004",
			Label:    "残高試算表",
			Priority: 135,
			Domain:   models.DomainAccounting,
			PriorityConditions: []models.KeywordCondition{
				{Keywords: []string{"残高試算表"}, MatchAny: true},
			},
			RequiredKeywords: []string{"試算表"},
			PartialKeywords:  []string{"残高試算", "試算"},
			FilenameKeywords: []string{"残高試算表", "試算表"},
		},
		{
			Code:     "5005",
			Label:    "仕訳帳",
			Priority: 135,
			Domain:   models.DomainAccounting,
			PriorityConditions: []models.KeywordCondition{
				{Keywords: []string{"仕訳帳"}, MatchAny: true},
			},
			RequiredKeywords: []string{"仕訳帳"},
			PartialKeywords:  []string{"仕訳"},
			FilenameKeywords: []string{"仕訳帳", "仕訳"},
		},
		{
			Code:     "6001",
			Label:    "固定資産台帳",
			Priority: 135,
			Domain:   models.DomainAssets,
			PriorityConditions: []models.KeywordCondition{
				{Keywords: []string{"固定資産台帳"}, MatchAny: true},
			},
			RequiredKeywords: []string{"固定資産台帳"},
			PartialKeywords:  []string{"固定資産", "資産台帳"},
			FilenameKeywords: []string{"固定資産台帳"},
		},
		{
			Code:     "6002",
			Label:    "一括償却資産明細表",
			Priority: 170,
			Domain:   models.DomainAssets,
			PriorityConditions: []models.KeywordCondition{
				{Keywords: []string{"一括償却資産明細表"}, MatchAny: true},
			},
			RequiredKeywords: []string{"一括償却資産明細表"},
			PartialKeywords:  []string{"一括償却", "償却資産明細"},
			ExcludeKeywords:  []string{"少額"},
			FilenameKeywords: []string{"一括償却資産明細表", "一括償却"},
		},
		{
			Code:     "6003",
			Label:    "少額減価償却資産明細表",
			Priority: 170,
			Domain:   models.DomainAssets,
			PriorityConditions: []models.KeywordCondition{
				{Keywords: []string{"少額減価償却資産明細表"}, MatchAny: true},
			},
			RequiredKeywords: []string{"少額減価償却資産明細表"},
			PartialKeywords:  []string{"少額減価償却", "少額償却"},
			ExcludeKeywords:  []string{"一括"},
			FilenameKeywords: []string{"少額減価償却資産明細表", "少額"},
		},
		{
			Code:     "7001",
			Label:    "勘定科目別税区分集計表",
			Priority: 140,
			Domain:   models.DomainSummary,
			PriorityConditions: []models.KeywordCondition{
				{Keywords: []string{"勘定科目別税区分集計表"}, MatchAny: true},
			},
			RequiredKeywords: []string{"勘定科目別税区分集計表"},
			PartialKeywords:  []string{"勘定科目別税区分", "科目別税区分"},
			ExcludeKeywords:  []string{"イメージ添付書類", "添付資料"},
			FilenameKeywords: []string{"勘定科目別税区分集計表"},
		},
		{
			Code:     "7002",
			Label:    "税区分集計表",
			Priority: 170,
			Domain:   models.DomainSummary,
			PriorityConditions: []models.KeywordCondition{
				{Keywords: []string{"税区分集計表"}, MatchAny: true},
			},
			RequiredKeywords: []string{"税区分集計表"},
			PartialKeywords:  []string{"税区分集計", "区分集計"},
			ExcludeKeywords:  []string{"勘定科目別", "科目別"},
			FilenameKeywords: []string{"税区分集計表"},
		},
	}
}
