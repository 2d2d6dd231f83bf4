// Package transport defines the send capability every channel implements
// and a registry keyed by channel id.
//
// Concrete senders live in subpackages:
//   - webhook: JSON/HTTP endpoints (feishu, dingtalk, wework, slack, bark, ntfy)
//   - telegram: Bot API via telebot
//   - email: SMTP submission
package transport
