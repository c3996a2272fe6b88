package cel

// RuleExpressionExamples documents the expression surface available to
// spam rules. Shown in the management API docs and used by tests.
var RuleExpressionExamples = map[string]string{
	"text_contains":        `text.contains("t.me/joinchat")`,
	"text_prefix":          `text.startsWith("🔥🔥🔥")`,
	"forwarded_heavily":    `has(metadata.forward_count) && metadata.forward_count > 50`,
	"no_views_with_links":  `text.contains("http") && has(metadata.views) && metadata.views == 0`,
	"known_spam_source":    `source_id in ["spam_channel_1", "promo_feed"]`,
	"short_link_burst":     `text.contains("bit.ly") && text.size() < 80`,
	"combined_signals":     `text.contains("donate") && has(metadata.reply_count) && metadata.reply_count == 0`,
	"stale_repost":         `has(metadata.is_forward) && metadata.is_forward == true && posted_at < timestamp("2022-01-01T00:00:00Z")`,
	"metadata_has_field":   `has(metadata.via_bot) && metadata.via_bot != ""`,
	"message_id_threshold": `message_id > 0 && text.size() == 0`,
}
