package profile

import "time"

// Channel identifiers.
const (
	Feishu        = "feishu"
	FeishuOutside = "feishu_outside"
	DingTalk      = "dingtalk"
	WeWork        = "wework"
	WeWorkText    = "wework_text"
	Telegram      = "telegram"
	Ntfy          = "ntfy"
	Bark          = "bark"
	Slack         = "slack"
	Email         = "email"
)

const (
	DefaultBudget        = 4000
	DefaultRankThreshold = 5
	DefaultSeparator     = "━━━━━━━━━━━━━━━━━━━"
)

// DefaultBudgets are safety ceilings, not the platforms' real limits.
var DefaultBudgets = map[string]int{
	Feishu:        29000,
	FeishuOutside: 29000,
	DingTalk:      20000,
	WeWork:        DefaultBudget,
	WeWorkText:    DefaultBudget,
	Telegram:      DefaultBudget,
	Ntfy:          3800,
	Bark:          3600,
	Slack:         4000,
	Email:         1000000,
}

// markdownBase is shared by the markdown-speaking webhooks.
func markdownBase() Templates {
	return Templates{
		Header:        "**Total news:** {total}\n\n",
		Footer:        "\n\n> Updated: {time}",
		Notice:        "\n> {notice}",
		Empty:         "📭 %s\n\n",
		StatsHeading:  "📊 **Trending keywords**\n\n",
		GroupHeading:  "%s %s %s : %s items\n\n",
		Seq:           "[%d/%d]",
		Keyword:       "**%s**",
		HotCount:      "**%d**",
		WarmCount:     "**%d**",
		Count:         "%d",
		Separator:     "\n\n",
		NewHeading:    "\n\n🆕 **New this run** (%d total)\n\n",
		SourceHeading: "**%s** (%d items):\n\n",
		FailedHeading: "\n\n⚠️ **Sources that failed to refresh:**\n\n",
		FailedLine:    "  • %s\n",
		SourcePrefix:  "[%s] ",
		NewMarker:     "🆕 ",
		RankHot:       "**%s**",
		TimeSuffix:    " - %s",
		CountSuffix:   " (%d times)",
		BatchHeader:   "**[batch %d/%d]**\n",
	}
}

// wework markdown needs extra blank lines to render paragraph breaks.
func weworkTemplates() Templates {
	t := markdownBase()
	t.Header = "**Total news:** {total}\n\n\n\n"
	t.Footer = "\n\n\n> Updated: {time}"
	t.Separator = "\n\n\n\n"
	t.NewHeading = "\n\n\n\n🆕 **New this run** (%d total)\n\n"
	t.FailedHeading = "\n\n\n\n⚠️ **Sources that failed to refresh:**\n\n"
	return t
}

func plainTemplates() Templates {
	return Templates{
		Header:        "Total news: {total}\n\n",
		Footer:        "\n\nUpdated: {time}",
		Notice:        "\n{notice}",
		Empty:         "📭 %s\n\n",
		StatsHeading:  "📊 Trending keywords\n\n",
		GroupHeading:  "%s %s %s : %s items\n\n",
		Seq:           "[%d/%d]",
		Keyword:       "%s",
		HotCount:      "%d",
		WarmCount:     "%d",
		Count:         "%d",
		Separator:     "\n\n",
		NewHeading:    "\n\n🆕 New this run (%d total)\n\n",
		SourceHeading: "%s (%d items):\n\n",
		FailedHeading: "\n\n⚠️ Sources that failed to refresh:\n\n",
		FailedLine:    "  • %s\n",
		SourcePrefix:  "[%s] ",
		NewMarker:     "🆕 ",
		RankHot:       "%s",
		TimeSuffix:    " - %s",
		CountSuffix:   " (%d times)",
		BatchHeader:   "[batch %d/%d]\n",
	}
}

func larkTemplates(separator string) Templates {
	t := markdownBase()
	t.Header = ""
	t.Footer = "\n\n<font color='grey'>Updated: {time}</font>"
	t.Notice = "\n<font color='grey'>{notice}</font>"
	t.Seq = "<font color='grey'>[%d/%d]</font>"
	t.HotCount = "<font color='red'>%d</font>"
	t.WarmCount = "<font color='orange'>%d</font>"
	t.Separator = "\n" + separator + "\n\n"
	t.NewHeading = "\n" + separator + "\n\n🆕 **New this run** (%d total)\n\n"
	t.FailedHeading = "\n" + separator + "\n\n⚠️ **Sources that failed to refresh:**\n\n"
	t.FailedLine = "  • <font color='red'>%s</font>\n"
	t.SourcePrefix = "<font color='grey'>[%s]</font> "
	t.RankHot = "<font color='red'>**%s**</font>"
	t.TimeSuffix = " <font color='grey'>- %s</font>"
	t.CountSuffix = " <font color='green'>(%d times)</font>"
	return t
}

func dingtalkTemplates() Templates {
	t := markdownBase()
	t.Header = "**Total news:** {total}\n\n**Time:** {time}\n\n**Type:** {type}\n\n---\n\n"
	t.Notice = "\n> {notice}"
	t.Separator = "\n---\n\n"
	t.NewHeading = "\n---\n\n🆕 **New this run** (%d total)\n\n"
	t.FailedHeading = "\n---\n\n⚠️ **Sources that failed to refresh:**\n\n"
	t.FailedLine = "  • **%s**\n"
	return t
}

func telegramTemplates() Templates {
	t := plainTemplates()
	t.RankHot = "<b>%s</b>"
	t.TimeSuffix = " <code>- %s</code>"
	t.CountSuffix = " <code>(%d times)</code>"
	t.BatchHeader = "<b>[batch %d/%d]</b>\n"
	return t
}

func ntfyTemplates() Templates {
	t := markdownBase()
	t.TimeSuffix = " `- %s`"
	t.CountSuffix = " `(%d times)`"
	return t
}

func slackTemplates() Templates {
	t := markdownBase()
	t.Header = "*Total news:* {total}\n\n"
	t.Footer = "\n\n_Updated: {time}_"
	t.Notice = "\n_{notice}_"
	t.StatsHeading = "📊 *Trending keywords*\n\n"
	t.Keyword = "*%s*"
	t.HotCount = "*%d*"
	t.WarmCount = "*%d*"
	t.NewHeading = "\n\n🆕 *New this run* (%d total)\n\n"
	t.SourceHeading = "*%s* (%d items):\n\n"
	t.FailedHeading = "\n\n⚠️ *Sources that failed to refresh:*\n\n"
	t.RankHot = "*%s*"
	t.TimeSuffix = " `- %s`"
	t.CountSuffix = " `(%d times)`"
	t.BatchHeader = "*[batch %d/%d]*\n"
	return t
}

func builtin(separator string) []Profile {
	feishu := larkTemplates(separator)

	// feishu_outside groups render lark tags literally, so it is packed with
	// the wework markdown text under feishu's marker and budget.
	outside := weworkTemplates()
	outside.BatchHeader = feishu.BatchHeader

	bark := weworkTemplates()
	bark.BatchHeader = "[batch %d/%d]\n"

	return []Profile{
		{Channel: Feishu, Dialect: Lark, Templates: feishu},
		{Channel: FeishuOutside, Dialect: Markdown, Templates: outside},
		{Channel: DingTalk, Dialect: Markdown, Templates: dingtalkTemplates()},
		{Channel: WeWork, Dialect: Markdown, Templates: weworkTemplates()},
		{Channel: WeWorkText, Dialect: Plain, Templates: plainTemplates()},
		{Channel: Telegram, Dialect: HTML, Templates: telegramTemplates()},
		{
			Channel:   Ntfy,
			Dialect:   Markdown,
			Order:     Reversed,
			Retry:     &RetryPolicy{Backoff: 10 * time.Second, MaxRetries: 1},
			Templates: ntfyTemplates(),
		},
		{Channel: Bark, Dialect: Markdown, Order: Reversed, Templates: bark},
		{Channel: Slack, Dialect: Mrkdwn, Templates: slackTemplates()},
		{Channel: Email, Dialect: Markdown, Templates: markdownBase()},
	}
}
