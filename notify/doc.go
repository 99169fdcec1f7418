// Package notify renders and delivers the storefront's transactional email.
//
// [Gateway] implements storefront.Notifier. It renders the HTML template
// named by a notification and hands the message to an [EmailSender]:
// [LogSender] for development, [SMTPSender] over gomail, or [SendGridSender].
package notify
