package countdown

// User-facing message texts. Wording is a product decision; the milestone set
// {100, 90, 30, 10} and the ordering in Message are the actual contract.
const (
	TextNotConfigured     = "很抱歉，尚未設定考試日期。請輸入'設定考試日期YYYY-MM-DD'來設定。"
	TextStoredDateInvalid = "考試日期格式錯誤，請檢查設定或重新設定。正確格式為YYYY-MM-DD。"

	TextMilestone100 = "⌛時光飛逝，你只剩下%d 天，趕快拿起書本來📚📚"
	TextMilestone90  = "沒想到已經剩下%d 天\n｡ﾟヽ(ﾟ´Д`)ﾉﾟ｡時間都在我的睡夢中流失了！"
	TextMilestone30  = "距離考試只剩下 %d 天！\n祝你考試像打遊戲一樣，一路都是暴擊，分數直接爆表！🔥🔥"
	TextMilestone10  = "距離考試只剩下 %d 天！\n祝你考試像吃雞腿一樣，輕鬆又美味，分數高高🍗"
	TextGeneric      = "你今天讀書了嗎？💥\n距離考試只剩下 %d 天！加油！💪💪💪"
	TextExamDay      = "你今天讀書了嗎？\n今天是考試的日子🏆金榜題名🏆"
	TextAlreadyEnded = "考試 (%s) 已經在 %d 天前結束了。期待你下次的挑戰！"
)
