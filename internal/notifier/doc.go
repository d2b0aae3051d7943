// Package notifier posts announcements for upcoming public meetings.
//
// The notifier package formats emitted OCD events as short social posts and
// delivers them to Twitter or a Telegram chat, or prints them in dry-run mode.
// Consecutive posts are spaced out.
package notifier
