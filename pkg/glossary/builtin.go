package glossary

// builtinTables 人事评价常用术语
var builtinTables = []Table{
	{
		SourceLang: "ja",
		TargetLang: "en",
		Terms: map[string]string{
			"技術力":         "Technical Skills",
			"コミュニケーション能力": "Communication Skills",
			"リーダーシップ":     "Leadership",
			"チームワーク":      "Teamwork",
			"問題解決能力":      "Problem Solving",
			"責任感":         "Sense of Responsibility",
			"協調性":         "Cooperativeness",
			"積極性":         "Proactiveness",
			"目標":          "Goal",
			"目標設定":        "Goal Setting",
			"評価":          "Evaluation",
			"自己評価":        "Self Evaluation",
			"上司評価":        "Supervisor Evaluation",
			"評価期間":        "Evaluation Period",
			"安全":          "Safety",
			"品質":          "Quality",
			"改善":          "Improvement",
			"強み":          "Strengths",
			"改善点":         "Areas for Improvement",
			"コメント":        "Comment",
		},
	},
	{
		SourceLang: "en",
		TargetLang: "ja",
		Terms: map[string]string{
			"Technical Skills":      "技術力",
			"Communication Skills":  "コミュニケーション能力",
			"Leadership":            "リーダーシップ",
			"Teamwork":              "チームワーク",
			"Problem Solving":       "問題解決能力",
			"Goal":                  "目標",
			"Goal Setting":          "目標設定",
			"Evaluation":            "評価",
			"Self Evaluation":       "自己評価",
			"Evaluation Period":     "評価期間",
			"Safety":                "安全",
			"Quality":               "品質",
			"Improvement":           "改善",
			"Strengths":             "強み",
			"Areas for Improvement": "改善点",
			"Comment":               "コメント",
		},
	},
	{
		SourceLang: "ja",
		TargetLang: "vi",
		Terms: map[string]string{
			"技術力":         "Kỹ năng kỹ thuật",
			"コミュニケーション能力": "Kỹ năng giao tiếp",
			"リーダーシップ":     "Khả năng lãnh đạo",
			"チームワーク":      "Làm việc nhóm",
			"目標":          "Mục tiêu",
			"評価":          "Đánh giá",
			"自己評価":        "Tự đánh giá",
			"安全":          "An toàn",
			"品質":          "Chất lượng",
			"改善":          "Cải tiến",
		},
	},
	{
		SourceLang: "vi",
		TargetLang: "ja",
		Terms: map[string]string{
			"Kỹ năng kỹ thuật":  "技術力",
			"Kỹ năng giao tiếp": "コミュニケーション能力",
			"Khả năng lãnh đạo": "リーダーシップ",
			"Làm việc nhóm":     "チームワーク",
			"Mục tiêu":          "目標",
			"Đánh giá":          "評価",
			"Tự đánh giá":       "自己評価",
			"An toàn":           "安全",
			"Chất lượng":        "品質",
			"Cải tiến":          "改善",
		},
	},
	{
		SourceLang: "en",
		TargetLang: "vi",
		Terms: map[string]string{
			"Technical Skills":     "Kỹ năng kỹ thuật",
			"Communication Skills": "Kỹ năng giao tiếp",
			"Leadership":           "Khả năng lãnh đạo",
			"Teamwork":             "Làm việc nhóm",
			"Goal":                 "Mục tiêu",
			"Evaluation":           "Đánh giá",
			"Self Evaluation":      "Tự đánh giá",
			"Safety":               "An toàn",
			"Quality":              "Chất lượng",
			"Improvement":          "Cải tiến",
		},
	},
	{
		SourceLang: "vi",
		TargetLang: "en",
		Terms: map[string]string{
			"Kỹ năng kỹ thuật":  "Technical Skills",
			"Kỹ năng giao tiếp": "Communication Skills",
			"Khả năng lãnh đạo": "Leadership",
			"Làm việc nhóm":     "Teamwork",
			"Mục tiêu":          "Goal",
			"Đánh giá":          "Evaluation",
			"Tự đánh giá":       "Self Evaluation",
			"An toàn":           "Safety",
			"Chất lượng":        "Quality",
			"Cải tiến":          "Improvement",
		},
	},
}
